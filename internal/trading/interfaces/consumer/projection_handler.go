// Package consumer 消费 trade.executed 事件并维护 MySQL 流水读模型。
package consumer

import (
	"context"
	"encoding/json"
	"log/slog"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/wyfcoding/pkg/messagequeue/kafka"
	"github.com/wyfcoding/sentimenttrading/internal/trading/application"
	"github.com/wyfcoding/sentimenttrading/internal/trading/domain"
)

// ProjectionHandler 将成交事件投影为流水行。
type ProjectionHandler struct {
	projection *application.JournalProjection
}

func NewProjectionHandler(projection *application.JournalProjection) *ProjectionHandler {
	return &ProjectionHandler{projection: projection}
}

// HandleTradeExecuted 处理一条成交事件。
// 格式错误的消息直接丢弃，写库失败返回错误交由消费组重投；
// 流水插入按 trade_id 幂等，重投不会产生重复行。
func (h *ProjectionHandler) HandleTradeExecuted(ctx context.Context, msg kafkago.Message) error {
	var event domain.TradeExecutedEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		slog.Warn("Dropping malformed trade event", "offset", msg.Offset, "error", err)
		return nil
	}
	if event.TradeID == "" {
		slog.Warn("Dropping trade event without trade_id", "offset", msg.Offset)
		return nil
	}

	return h.projection.ApplyTradeExecuted(ctx, event)
}

func (h *ProjectionHandler) Subscribe(ctx context.Context, consumer *kafka.Consumer) {
	consumer.Start(ctx, 1, h.HandleTradeExecuted)
}
