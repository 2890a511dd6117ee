package domain

import (
	"context"
	"time"
)

// TradeRepository 成交记录仓储，Save 返回文档 ID。
type TradeRepository interface {
	Save(ctx context.Context, trade *Trade) (string, error)
	List(ctx context.Context, symbol string, limit int) ([]*Trade, error)
}

// StateRepository 交易状态仓储。Load 在状态尚不存在时返回 (nil, nil)。
type StateRepository interface {
	Load(ctx context.Context) (*State, error)
	Save(ctx context.Context, state *State) error
}

// JournalEntry 成交流水读模型中的一行。
type JournalEntry struct {
	TradeID        string
	Symbol         string
	Side           string
	Quantity       string
	Price          string
	Notional       string
	Paper          bool
	SentimentScore float64
	ExecutedAt     time.Time
}

// JournalRepository 成交流水读模型仓储（MySQL 投影）。
type JournalRepository interface {
	Insert(ctx context.Context, entry *JournalEntry) error
	List(ctx context.Context, symbol string, limit int) ([]*JournalEntry, error)
}
