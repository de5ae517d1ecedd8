// internal/service/order/application/saga/publish.go
package saga

import (
	"github.com/rs/zerolog/log"

	"swiftlogistics/internal/pkg/metrics"
	"swiftlogistics/internal/service/order/domain"
)

// PublishHandler 把编排结果发布到持久化事件总线。
// 发布失败只记日志并计数，不会让提交流程失败：
// 订单可以合法地处于 processing 而没有任何事件被投递出去。
type PublishHandler struct {
	NextHandler
}

func (h *PublishHandler) Handle(subCtx *SubmissionContext) error {
	ctx, span := subCtx.Tracer.Start(subCtx.Ctx, "saga.PublishOutcome")
	defer span.End()

	order := subCtx.Order

	topic := domain.TopicOrderProcessed
	payload := domain.OrderProcessedEvent(order.ID)
	if order.Status == domain.StatusFailed {
		topic = domain.TopicOrderFailed
		payload = domain.OrderFailedEvent(order.ID, order.ErrorMessage)
	}

	if err := subCtx.Publisher.Publish(ctx, topic, payload); err != nil {
		log.Printf("WARN: [Order: %s] failed to publish %s event: %v", order.ID, topic, err)
		metrics.EventPublishFailuresTotal.WithLabelValues(topic).Inc()
		span.RecordError(err)
	} else {
		span.AddEvent("Outcome event published to " + topic)
	}

	return h.executeNext(subCtx)
}
