// internal/service/order/infrastructure/adapter/event_kafka_adapter.go
package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"swiftlogistics/internal/pkg/mq"
	"swiftlogistics/internal/service/order/domain"
)

// EventKafkaAdapter 实现了 port.EventPublisher。
// 主题集合在构造时就全部声明好（对应 broker 侧的持久化队列），
// 每条消息带持久化标记，broker 重启后允许重投——
// 因此消费者必须对 (order_id, 事件类型) 幂等。
type EventKafkaAdapter struct {
	writers map[string]*kafka.Writer
}

// eventEnvelope 是总线上的消息格式。
type eventEnvelope struct {
	EventID    string              `json:"event_id"`
	Topic      string              `json:"topic"`
	Persistent bool                `json:"persistent"`
	OccurredAt string              `json:"occurred_at"`
	Payload    domain.EventPayload `json:"payload"`
}

// NewEventKafkaAdapter 为固定主题集合各创建一个 writer。
func NewEventKafkaAdapter(brokers []string) *EventKafkaAdapter {
	topics := []string{
		domain.TopicOrderSubmitted,
		domain.TopicOrderProcessed,
		domain.TopicOrderFailed,
		domain.TopicDeliveryUpdated,
	}
	writers := make(map[string]*kafka.Writer, len(topics))
	for _, topic := range topics {
		writers[topic] = mq.NewKafkaWriter(brokers, topic)
	}
	return &EventKafkaAdapter{writers: writers}
}

// Publish 把事件发布到指定主题。
// 消息 Key 使用 order_id，保证同一订单的事件分区内有序。
func (a *EventKafkaAdapter) Publish(ctx context.Context, topic string, payload domain.EventPayload) error {
	writer, ok := a.writers[topic]
	if !ok {
		return fmt.Errorf("topic %q is not declared", topic)
	}

	envelope := eventEnvelope{
		EventID:    uuid.New().String(),
		Topic:      topic,
		Persistent: true,
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
		Payload:    payload,
	}
	value, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	key, _ := payload["order_id"].(string)
	return mq.ProduceMessage(ctx, writer, []byte(key), value)
}

// Close 关闭所有底层 writer。
func (a *EventKafkaAdapter) Close() error {
	var firstErr error
	for _, w := range a.writers {
		if err := w.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
