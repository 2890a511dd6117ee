// Package firestore 成交记录与交易状态的 Firestore 仓储实现。
package firestore

import (
	"context"
	"fmt"
	"time"

	fs "cloud.google.com/go/firestore"
	"github.com/shopspring/decimal"
	"github.com/wyfcoding/pkg/logging"
	"github.com/wyfcoding/sentimenttrading/internal/trading/domain"
	"google.golang.org/api/iterator"
)

const defaultListLimit = 50

// tradeDoc Firestore 文档模型。decimal 值以字符串落库，避免浮点精度损失。
type tradeDoc struct {
	TradeID        string    `firestore:"trade_id"`
	Symbol         string    `firestore:"symbol"`
	Side           string    `firestore:"side"`
	Quantity       string    `firestore:"quantity"`
	Price          string    `firestore:"price"`
	Notional       string    `firestore:"notional"`
	Paper          bool      `firestore:"paper"`
	SentimentScore float64   `firestore:"sentiment_score"`
	StopLoss       string    `firestore:"stop_loss"`
	TakeProfit     string    `firestore:"take_profit"`
	ExecutedAt     time.Time `firestore:"executed_at"`
}

func toTradeDoc(t *domain.Trade) *tradeDoc {
	return &tradeDoc{
		TradeID:        t.ID,
		Symbol:         t.Symbol,
		Side:           string(t.Side),
		Quantity:       t.Quantity.String(),
		Price:          t.Price.String(),
		Notional:       t.Notional().String(),
		Paper:          t.Paper,
		SentimentScore: t.SentimentScore,
		StopLoss:       t.StopLoss.String(),
		TakeProfit:     t.TakeProfit.String(),
		ExecutedAt:     t.ExecutedAt,
	}
}

func (d *tradeDoc) toDomain() (*domain.Trade, error) {
	quantity, err := decimal.NewFromString(d.Quantity)
	if err != nil {
		return nil, fmt.Errorf("decode quantity %q: %w", d.Quantity, err)
	}
	price, err := decimal.NewFromString(d.Price)
	if err != nil {
		return nil, fmt.Errorf("decode price %q: %w", d.Price, err)
	}
	stopLoss, err := decimal.NewFromString(d.StopLoss)
	if err != nil {
		return nil, fmt.Errorf("decode stop_loss %q: %w", d.StopLoss, err)
	}
	takeProfit, err := decimal.NewFromString(d.TakeProfit)
	if err != nil {
		return nil, fmt.Errorf("decode take_profit %q: %w", d.TakeProfit, err)
	}
	return &domain.Trade{
		ID:             d.TradeID,
		Symbol:         d.Symbol,
		Side:           domain.Side(d.Side),
		Quantity:       quantity,
		Price:          price,
		Paper:          d.Paper,
		SentimentScore: d.SentimentScore,
		StopLoss:       stopLoss,
		TakeProfit:     takeProfit,
		ExecutedAt:     d.ExecutedAt,
	}, nil
}

// TradeRepository 将成交记录写入 executed_trades 集合。
type TradeRepository struct {
	client     *fs.Client
	collection string
}

// NewTradeRepository 创建仓储。
func NewTradeRepository(client *fs.Client, collection string) *TradeRepository {
	return &TradeRepository{client: client, collection: collection}
}

// Save 持久化成交记录并返回文档 ID。
func (r *TradeRepository) Save(ctx context.Context, trade *domain.Trade) (string, error) {
	if err := trade.Validate(); err != nil {
		return "", err
	}

	doc := r.client.Collection(r.collection).NewDoc()
	if _, err := doc.Create(ctx, toTradeDoc(trade)); err != nil {
		logging.Error(ctx, "trade_repository.Save failed", "trade_id", trade.ID, "error", err)
		return "", fmt.Errorf("store trade: %w", err)
	}
	return doc.ID, nil
}

// List 按成交时间倒序返回历史记录，symbol 为空时不过滤。
func (r *TradeRepository) List(ctx context.Context, symbol string, limit int) ([]*domain.Trade, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	query := r.client.Collection(r.collection).Query
	if symbol != "" {
		query = query.Where("symbol", "==", symbol)
	}
	iter := query.OrderBy("executed_at", fs.Desc).Limit(limit).Documents(ctx)
	defer iter.Stop()

	var trades []*domain.Trade
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			logging.Error(ctx, "trade_repository.List failed", "symbol", symbol, "error", err)
			return nil, fmt.Errorf("query trade history: %w", err)
		}
		var doc tradeDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode trade document %s: %w", snap.Ref.ID, err)
		}
		trade, err := doc.toDomain()
		if err != nil {
			return nil, fmt.Errorf("trade document %s: %w", snap.Ref.ID, err)
		}
		trades = append(trades, trade)
	}
	return trades, nil
}
