// cmd/notification-service/main.go
package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"swiftlogistics/internal/pkg/bootstrap"
	"swiftlogistics/internal/pkg/logger"
	"swiftlogistics/internal/pkg/mq"
	"swiftlogistics/internal/pkg/tracing"
	"swiftlogistics/internal/service/order/domain"
)

const (
	serviceName     = "notification-service"
	consumerGroupID = "notification-group"
)

var tracer = otel.Tracer(serviceName)

// orderEvent 是总线消息里本服务关心的字段。
type orderEvent struct {
	EventID string `json:"event_id"`
	Topic   string `json:"topic"`
	Payload struct {
		OrderID string `json:"order_id"`
		Status  string `json:"status"`
		Error   string `json:"error"`
	} `json:"payload"`
}

// 通知服务订阅订单终态和配送进度事件，给客户发送通知。
// 总线是 at-least-once，按 event_id 去重保证重投不会重复打扰客户。
func main() {
	bootstrap.Init()
	logger.Init(serviceName)
	cfg := bootstrap.GetCurrentConfig()

	tp, err := tracing.InitTracerProvider(serviceName, cfg.Infra.Jaeger.Endpoint)
	if err != nil {
		log.Fatalf("failed to initialize tracer provider: %v", err)
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.Printf("Error shutting down tracer provider: %v", err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	topics := []string{
		domain.TopicOrderProcessed,
		domain.TopicOrderFailed,
		domain.TopicDeliveryUpdated,
	}

	dedup := newDedupSet()
	var wg sync.WaitGroup
	readers := make([]*kafka.Reader, 0, len(topics))
	for _, topic := range topics {
		reader := mq.NewKafkaReader(cfg.Infra.Kafka.Brokers, topic, consumerGroupID)
		readers = append(readers, reader)

		wg.Add(1)
		go func(reader *kafka.Reader, topic string) {
			defer wg.Done()
			log.Printf("✅ Notification consumer started for topic '%s'.", topic)
			for {
				msg, err := reader.FetchMessage(ctx)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					log.Printf("could not read message: %v", err)
					continue
				}
				processEvent(ctx, dedup, msg)
				if err := reader.CommitMessages(ctx, msg); err != nil {
					log.Printf("failed to commit messages: %v", err)
				}
			}
		}(reader, topic)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down notification service...")

	cancel()
	for _, reader := range readers {
		reader.Close()
	}
	wg.Wait()
	log.Println("Notification service gracefully shut down.")
}

// processEvent 处理一条订单事件并发出对应的客户通知。
func processEvent(parentCtx context.Context, dedup *dedupSet, msg kafka.Message) {
	ctx := mq.ExtractTraceContext(parentCtx, msg.Headers)

	ctx, span := tracer.Start(ctx, "notification.ProcessEvent",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination", msg.Topic),
			attribute.Int64("messaging.kafka.message.offset", msg.Offset),
		),
	)
	defer span.End()

	var event orderEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		log.Printf("failed to unmarshal message: %v", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}

	if event.EventID != "" && !dedup.add(event.EventID) {
		span.AddEvent("Duplicate event skipped.")
		return
	}

	span.SetAttributes(attribute.String("order.id", event.Payload.OrderID))
	switch msg.Topic {
	case domain.TopicOrderProcessed:
		logger.Ctx(ctx).Info().
			Str("order_id", event.Payload.OrderID).
			Msg("notify client: order registered across all systems")
	case domain.TopicOrderFailed:
		logger.Ctx(ctx).Info().
			Str("order_id", event.Payload.OrderID).
			Str("error", event.Payload.Error).
			Msg("notify client: order processing failed")
	case domain.TopicDeliveryUpdated:
		logger.Ctx(ctx).Info().
			Str("order_id", event.Payload.OrderID).
			Str("status", event.Payload.Status).
			Msg("notify client: delivery progress updated")
	}
	span.AddEvent("Notification sent successfully")
}

// dedupSet 是一个容量有界的 event_id 去重集合。
// 重投通常发生在消费位点附近，小窗口足以覆盖。
type dedupSet struct {
	mu    sync.Mutex
	seen  map[string]struct{}
	order []string
	cap   int
}

func newDedupSet() *dedupSet {
	return &dedupSet{seen: make(map[string]struct{}), cap: 4096}
}

// add 记录一个 event_id，返回是否是第一次出现。
func (d *dedupSet) add(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.seen[id]; ok {
		return false
	}
	d.seen[id] = struct{}{}
	d.order = append(d.order, id)
	if len(d.order) > d.cap {
		oldest := d.order[0]
		d.order = d.order[1:]
		delete(d.seen, oldest)
	}
	return true
}
