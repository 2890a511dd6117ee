// Package firestore 舆情记录的 Firestore 仓储实现。
package firestore

import (
	"context"
	"fmt"

	fs "cloud.google.com/go/firestore"
	"github.com/wyfcoding/pkg/logging"
	"github.com/wyfcoding/sentimenttrading/internal/sentiment/domain"
	"google.golang.org/api/iterator"
)

const defaultListLimit = 50

// SentimentRepository 将舆情记录写入指定集合。
type SentimentRepository struct {
	client     *fs.Client
	collection string
}

// NewSentimentRepository 创建仓储。collection 即配置中的 market_sentiment 集合名。
func NewSentimentRepository(client *fs.Client, collection string) *SentimentRepository {
	return &SentimentRepository{client: client, collection: collection}
}

// Save 持久化一条记录并返回文档 ID。
// 校验失败在任何网络调用之前返回 *domain.ValidationError。
func (r *SentimentRepository) Save(ctx context.Context, record *domain.SentimentRecord) (string, error) {
	if err := record.Validate(); err != nil {
		return "", err
	}

	doc := r.client.Collection(r.collection).NewDoc()
	if _, err := doc.Create(ctx, record); err != nil {
		logging.Error(ctx, "sentiment_repository.Save failed", "symbol", record.Symbol, "error", err)
		return "", fmt.Errorf("store sentiment: %w", err)
	}
	record.ID = doc.ID
	return doc.ID, nil
}

// Latest 返回某交易对最新的舆情记录，不存在时返回 (nil, nil)。
func (r *SentimentRepository) Latest(ctx context.Context, symbol string) (*domain.SentimentRecord, error) {
	iter := r.client.Collection(r.collection).
		Where("symbol", "==", symbol).
		OrderBy("timestamp", fs.Desc).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	snap, err := iter.Next()
	if err == iterator.Done {
		return nil, nil
	}
	if err != nil {
		logging.Error(ctx, "sentiment_repository.Latest failed", "symbol", symbol, "error", err)
		return nil, fmt.Errorf("query latest sentiment: %w", err)
	}

	var record domain.SentimentRecord
	if err := snap.DataTo(&record); err != nil {
		return nil, fmt.Errorf("decode sentiment document %s: %w", snap.Ref.ID, err)
	}
	record.ID = snap.Ref.ID
	return &record, nil
}

// ListBySymbol 按时间倒序返回历史记录，symbol 为空时不过滤。
func (r *SentimentRepository) ListBySymbol(ctx context.Context, symbol string, limit int) ([]*domain.SentimentRecord, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	query := r.client.Collection(r.collection).Query
	if symbol != "" {
		query = query.Where("symbol", "==", symbol)
	}
	iter := query.OrderBy("timestamp", fs.Desc).Limit(limit).Documents(ctx)
	defer iter.Stop()

	var records []*domain.SentimentRecord
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			logging.Error(ctx, "sentiment_repository.ListBySymbol failed", "symbol", symbol, "error", err)
			return nil, fmt.Errorf("query sentiment history: %w", err)
		}
		var record domain.SentimentRecord
		if err := snap.DataTo(&record); err != nil {
			return nil, fmt.Errorf("decode sentiment document %s: %w", snap.Ref.ID, err)
		}
		record.ID = snap.Ref.ID
		records = append(records, &record)
	}
	return records, nil
}
