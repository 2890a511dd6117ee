package domain

import (
	"context"
	"time"
)

// TradeExecutedEventType 成交事件主题。
const TradeExecutedEventType = "trade.executed"

// TradeExecutedEvent 成交后发布的事件，驱动流水读模型投影。
type TradeExecutedEvent struct {
	TradeID        string    `json:"trade_id"`
	DocumentID     string    `json:"document_id"`
	Symbol         string    `json:"symbol"`
	Side           string    `json:"side"`
	Quantity       string    `json:"quantity"`
	Price          string    `json:"price"`
	Notional       string    `json:"notional"`
	Paper          bool      `json:"paper"`
	SentimentScore float64   `json:"sentiment_score"`
	ExecutedAt     time.Time `json:"executed_at"`
}

// EventPublisher 领域事件发布接口。
type EventPublisher interface {
	Publish(ctx context.Context, topic string, key string, event any) error
}
