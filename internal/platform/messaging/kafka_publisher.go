// Package messaging 领域事件发布的 Kafka 适配。
package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/wyfcoding/pkg/messagequeue/kafka"
)

// KafkaEventPublisher 将领域事件序列化为 JSON 并发布到指定主题。
// 同时满足舆情与交易两侧的 EventPublisher 接口。
type KafkaEventPublisher struct {
	producer *kafka.Producer
}

// NewKafkaEventPublisher 创建发布器。
func NewKafkaEventPublisher(producer *kafka.Producer) *KafkaEventPublisher {
	return &KafkaEventPublisher{producer: producer}
}

// Publish 发布事件，key 用于分区路由（通常为交易对）。
func (p *KafkaEventPublisher) Publish(ctx context.Context, topic, key string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event for topic %s: %w", topic, err)
	}
	return p.producer.PublishToTopic(ctx, topic, []byte(key), payload)
}
