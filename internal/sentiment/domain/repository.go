package domain

import (
	"context"
)

// SentimentRepository 舆情记录仓储。
// Save 返回持久化后的文档 ID；失败时返回错误而非空串，
// 调用方通过错误类型区分校验失败与存储失败。
type SentimentRepository interface {
	Save(ctx context.Context, record *SentimentRecord) (string, error)
	Latest(ctx context.Context, symbol string) (*SentimentRecord, error)
	ListBySymbol(ctx context.Context, symbol string, limit int) ([]*SentimentRecord, error)
}
