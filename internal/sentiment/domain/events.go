package domain

import (
	"context"
	"time"
)

// SentimentScoredEventType 舆情入库事件的主题。
const SentimentScoredEventType = "sentiment.scored"

// SentimentScoredEvent 舆情记录入库后发布的事件。
type SentimentScoredEvent struct {
	DocumentID string    `json:"document_id"`
	Symbol     string    `json:"symbol"`
	Source     string    `json:"source"`
	Score      float64   `json:"sentiment_score"`
	Confidence float64   `json:"confidence"`
	Timestamp  time.Time `json:"timestamp"`
}

// EventPublisher 领域事件发布接口。
type EventPublisher interface {
	Publish(ctx context.Context, topic string, key string, event any) error
}
