package events

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/wyfcoding/pkg/messagequeue/kafka"
	"github.com/wyfcoding/sentimenttrading/internal/sentiment/application"
	"github.com/wyfcoding/sentimenttrading/internal/sentiment/domain"
)

// SentimentEventHandler 消费上游打分管道投递到 sentiment.raw 的记录。
type SentimentEventHandler struct {
	service *application.SentimentService
}

func NewSentimentEventHandler(service *application.SentimentService) *SentimentEventHandler {
	return &SentimentEventHandler{service: service}
}

// rawSentimentEvent 上游消息格式，timestamp 为 Unix 秒。
type rawSentimentEvent struct {
	Symbol     string         `json:"symbol"`
	Source     string         `json:"source"`
	Score      *float64       `json:"sentiment_score"`
	Confidence float64        `json:"confidence"`
	RawText    string         `json:"raw_text"`
	Timestamp  int64          `json:"timestamp"`
	Metadata   map[string]any `json:"metadata"`
}

// HandleRawSentiment 处理一条原始舆情消息。
// 格式错误与校验失败的消息直接丢弃（返回 nil，避免毒丸消息循环重投），
// 存储失败返回错误交由消费组重投，保证至少一次入库。
func (h *SentimentEventHandler) HandleRawSentiment(ctx context.Context, msg kafkago.Message) error {
	var event rawSentimentEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		slog.Warn("Dropping malformed sentiment message", "offset", msg.Offset, "error", err)
		return nil
	}
	if event.Score == nil {
		slog.Warn("Dropping sentiment message without score", "symbol", event.Symbol, "offset", msg.Offset)
		return nil
	}

	record := &domain.SentimentRecord{
		Symbol:     event.Symbol,
		Source:     event.Source,
		Score:      *event.Score,
		Confidence: event.Confidence,
		RawText:    event.RawText,
		Metadata:   event.Metadata,
	}
	if event.Timestamp > 0 {
		record.Timestamp = time.Unix(event.Timestamp, 0)
	}

	id, err := h.service.Ingest(ctx, record)
	if err != nil {
		var vErr *domain.ValidationError
		if errors.As(err, &vErr) {
			slog.Warn("Dropping invalid sentiment message", "symbol", event.Symbol, "offset", msg.Offset, "error", err)
			return nil
		}
		return err
	}

	slog.Debug("Ingested sentiment from pipeline", "document_id", id, "symbol", record.Symbol)
	return nil
}

func (h *SentimentEventHandler) Subscribe(ctx context.Context, consumer *kafka.Consumer) {
	consumer.Start(ctx, 1, h.HandleRawSentiment)
}
