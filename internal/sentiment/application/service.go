// Package application 舆情服务的用例逻辑。
package application

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/allegro/bigcache/v3"
	"github.com/wyfcoding/sentimenttrading/internal/sentiment/domain"
)

// SentimentService 舆情应用服务：
// 写路径负责校验、持久化与事件发布，读路径带本地缓存。
type SentimentService struct {
	repo        domain.SentimentRepository
	publisher   domain.EventPublisher
	cache       *bigcache.BigCache
	scoredTopic string
	logger      *slog.Logger
}

// NewSentimentService 创建应用服务。cache 可以为 nil，此时读路径直接穿透仓储；
// scoredTopic 为空时使用默认的 sentiment.scored 主题。
func NewSentimentService(repo domain.SentimentRepository, publisher domain.EventPublisher, cache *bigcache.BigCache, scoredTopic string, logger *slog.Logger) *SentimentService {
	if scoredTopic == "" {
		scoredTopic = domain.SentimentScoredEventType
	}
	return &SentimentService{
		repo:        repo,
		publisher:   publisher,
		cache:       cache,
		scoredTopic: scoredTopic,
		logger:      logger,
	}
}

// Ingest 接收一条已打分的舆情记录。
// 用例流程：
// 1. 填充缺省值并校验（校验失败不触发任何网络调用）
// 2. 持久化并取得文档 ID
// 3. 刷新该交易对的本地缓存
// 4. 发布 sentiment.scored 事件
// 事件发布失败只记录日志，不回滚已持久化的记录。
func (s *SentimentService) Ingest(ctx context.Context, record *domain.SentimentRecord) (string, error) {
	record.Normalize()
	if err := record.Validate(); err != nil {
		return "", err
	}

	id, err := s.repo.Save(ctx, record)
	if err != nil {
		return "", err
	}

	s.cacheSet(record.Symbol, record)

	event := domain.SentimentScoredEvent{
		DocumentID: id,
		Symbol:     record.Symbol,
		Source:     record.Source,
		Score:      record.Score,
		Confidence: record.Confidence,
		Timestamp:  record.Timestamp,
	}
	if err := s.publisher.Publish(ctx, s.scoredTopic, record.Symbol, event); err != nil {
		s.logger.Warn("failed to publish sentiment.scored event", "document_id", id, "symbol", record.Symbol, "error", err)
	}

	return id, nil
}

// Latest 返回某交易对最新舆情，优先命中本地缓存。
func (s *SentimentService) Latest(ctx context.Context, symbol string) (*domain.SentimentRecord, error) {
	if cached := s.cacheGet(symbol); cached != nil {
		return cached, nil
	}

	record, err := s.repo.Latest(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if record != nil {
		s.cacheSet(symbol, record)
	}
	return record, nil
}

// History 按时间倒序返回某交易对的舆情历史。
func (s *SentimentService) History(ctx context.Context, symbol string, limit int) ([]*domain.SentimentRecord, error) {
	return s.repo.ListBySymbol(ctx, symbol, limit)
}

func (s *SentimentService) cacheGet(symbol string) *domain.SentimentRecord {
	if s.cache == nil {
		return nil
	}
	raw, err := s.cache.Get(cacheKey(symbol))
	if err != nil {
		if !errors.Is(err, bigcache.ErrEntryNotFound) {
			s.logger.Debug("sentiment cache read failed", "symbol", symbol, "error", err)
		}
		return nil
	}
	var record domain.SentimentRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil
	}
	return &record
}

func (s *SentimentService) cacheSet(symbol string, record *domain.SentimentRecord) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(record)
	if err != nil {
		return
	}
	if err := s.cache.Set(cacheKey(symbol), raw); err != nil {
		s.logger.Debug("sentiment cache write failed", "symbol", symbol, "error", err)
	}
}

func cacheKey(symbol string) string { return "sentiment:latest:" + symbol }

// LatestCacheTTL 本地缓存的默认过期时间。
const LatestCacheTTL = time.Minute
