// Package mysql 成交流水读模型的 MySQL 仓储实现，基于 GORM。
package mysql

import (
	"context"
	"fmt"
	"time"

	"github.com/wyfcoding/pkg/logging"
	"github.com/wyfcoding/sentimenttrading/internal/trading/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TradeJournalModel 成交流水表模型。
type TradeJournalModel struct {
	gorm.Model
	TradeID        string    `gorm:"column:trade_id;type:varchar(64);uniqueIndex;not null"`
	Symbol         string    `gorm:"column:symbol;type:varchar(32);index;not null"`
	Side           string    `gorm:"column:side;type:varchar(8);not null"`
	Quantity       string    `gorm:"column:quantity;type:decimal(32,16);not null"`
	Price          string    `gorm:"column:price;type:decimal(32,16);not null"`
	Notional       string    `gorm:"column:notional;type:decimal(32,16);not null"`
	Paper          bool      `gorm:"column:paper;not null"`
	SentimentScore float64   `gorm:"column:sentiment_score"`
	ExecutedAt     time.Time `gorm:"column:executed_at;index;not null"`
}

// TableName 指定表名。
func (TradeJournalModel) TableName() string {
	return "trade_journal"
}

// JournalRepository GORM 流水仓储实现。
type JournalRepository struct {
	db *gorm.DB
}

// NewJournalRepository 创建仓储并迁移表结构。
func NewJournalRepository(db *gorm.DB) (*JournalRepository, error) {
	if err := db.AutoMigrate(&TradeJournalModel{}); err != nil {
		return nil, fmt.Errorf("migrate trade_journal: %w", err)
	}
	return &JournalRepository{db: db}, nil
}

// Insert 写入一行流水。trade_id 冲突时整行覆盖，事件重投幂等。
func (r *JournalRepository) Insert(ctx context.Context, entry *domain.JournalEntry) error {
	model := &TradeJournalModel{
		TradeID:        entry.TradeID,
		Symbol:         entry.Symbol,
		Side:           entry.Side,
		Quantity:       entry.Quantity,
		Price:          entry.Price,
		Notional:       entry.Notional,
		Paper:          entry.Paper,
		SentimentScore: entry.SentimentScore,
		ExecutedAt:     entry.ExecutedAt,
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "trade_id"}},
		UpdateAll: true,
	}).Create(model).Error
	if err != nil {
		logging.Error(ctx, "journal_repository.Insert failed", "trade_id", entry.TradeID, "error", err)
		return fmt.Errorf("insert trade journal: %w", err)
	}
	return nil
}

// List 按成交时间倒序返回流水，symbol 为空时不过滤。
func (r *JournalRepository) List(ctx context.Context, symbol string, limit int) ([]*domain.JournalEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	query := r.db.WithContext(ctx).Model(&TradeJournalModel{})
	if symbol != "" {
		query = query.Where("symbol = ?", symbol)
	}

	var models []TradeJournalModel
	if err := query.Order("executed_at DESC").Limit(limit).Find(&models).Error; err != nil {
		logging.Error(ctx, "journal_repository.List failed", "symbol", symbol, "error", err)
		return nil, fmt.Errorf("query trade journal: %w", err)
	}

	entries := make([]*domain.JournalEntry, 0, len(models))
	for _, m := range models {
		entries = append(entries, &domain.JournalEntry{
			TradeID:        m.TradeID,
			Symbol:         m.Symbol,
			Side:           m.Side,
			Quantity:       m.Quantity,
			Price:          m.Price,
			Notional:       m.Notional,
			Paper:          m.Paper,
			SentimentScore: m.SentimentScore,
			ExecutedAt:     m.ExecutedAt,
		})
	}
	return entries, nil
}
