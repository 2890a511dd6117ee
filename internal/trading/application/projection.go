package application

import (
	"context"
	"log/slog"

	"github.com/wyfcoding/sentimenttrading/internal/trading/domain"
)

// JournalProjection 将 trade.executed 事件投影到 MySQL 流水读模型。
type JournalProjection struct {
	journal domain.JournalRepository
	logger  *slog.Logger
}

// NewJournalProjection 创建投影服务。
func NewJournalProjection(journal domain.JournalRepository, logger *slog.Logger) *JournalProjection {
	return &JournalProjection{journal: journal, logger: logger}
}

// ApplyTradeExecuted 写入一行流水。Insert 按 trade_id 幂等，事件重投不会产生重复行。
func (p *JournalProjection) ApplyTradeExecuted(ctx context.Context, event domain.TradeExecutedEvent) error {
	entry := &domain.JournalEntry{
		TradeID:        event.TradeID,
		Symbol:         event.Symbol,
		Side:           event.Side,
		Quantity:       event.Quantity,
		Price:          event.Price,
		Notional:       event.Notional,
		Paper:          event.Paper,
		SentimentScore: event.SentimentScore,
		ExecutedAt:     event.ExecutedAt,
	}
	if err := p.journal.Insert(ctx, entry); err != nil {
		p.logger.ErrorContext(ctx, "journal projection insert failed", "trade_id", event.TradeID, "error", err)
		return err
	}
	return nil
}
