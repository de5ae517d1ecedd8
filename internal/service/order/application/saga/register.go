// internal/service/order/application/saga/register.go
package saga

import (
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/rs/zerolog/log"
)

// RegisterLegsHandler 并发执行三条登记腿（cms / wms / ros）。
// 三条腿没有数据依赖，各自带独立超时；慢的下游只拖慢自己那条腿。
// 没有短路：即使某条腿硬失败，另外两条也一定会被调用，
// 结果写入各自的槽位，不触碰共享可变状态。
type RegisterLegsHandler struct {
	NextHandler
}

func (h *RegisterLegsHandler) Handle(subCtx *SubmissionContext) error {
	ctx, span := subCtx.Tracer.Start(subCtx.Ctx, "saga.RegisterLegs")
	defer span.End()

	order := subCtx.Order
	span.SetAttributes(
		attribute.String("order.id", order.ID),
		attribute.String("order.priority", order.Priority),
	)

	var g errgroup.Group

	g.Go(func() error {
		subCtx.Legs.CMS.Attempted = true
		subCtx.Legs.CMS.Result, subCtx.Legs.CMS.Err = subCtx.CMS.RegisterOrder(ctx, order)
		return nil
	})
	g.Go(func() error {
		subCtx.Legs.WMS.Attempted = true
		subCtx.Legs.WMS.Result, subCtx.Legs.WMS.Err = subCtx.WMS.RegisterPackage(ctx, order)
		return nil
	})
	g.Go(func() error {
		subCtx.Legs.ROS.Attempted = true
		subCtx.Legs.ROS.Result, subCtx.Legs.ROS.Err = subCtx.ROS.RegisterDeliveryPoint(ctx, order)
		return nil
	})

	// goroutine 永远返回 nil，硬失败留在槽位里由 Finalize 统一裁决
	_ = g.Wait()

	span.SetAttributes(
		attribute.Bool("leg.cms.degraded", subCtx.Legs.CMS.Result.Degraded),
		attribute.Bool("leg.wms.degraded", subCtx.Legs.WMS.Result.Degraded),
		attribute.Bool("leg.ros.degraded", subCtx.Legs.ROS.Result.Degraded),
	)

	if err := subCtx.Legs.FirstHardError(); err != nil {
		log.Printf("ERROR: [Order: %s] registration leg hard failure: %v", order.ID, err)
		span.RecordError(err)
	}

	return h.executeNext(subCtx)
}
