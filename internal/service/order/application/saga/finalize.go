// internal/service/order/application/saga/finalize.go
package saga

import (
	"fmt"

	"go.opentelemetry.io/otel/codes"

	"swiftlogistics/internal/pkg/metrics"
)

// FinalizeHandler 汇总三条腿的结果并持久化最终状态。
// 持久化发生在所有腿返回之后，外部永远观察不到半成品状态。
// 写入在每订单锁内进行，与并发的 report 串行化。
type FinalizeHandler struct {
	NextHandler
}

func (h *FinalizeHandler) Handle(subCtx *SubmissionContext) error {
	ctx, span := subCtx.Tracer.Start(subCtx.Ctx, "saga.Finalize")
	defer span.End()

	order := subCtx.Order

	release, err := subCtx.Locker.Acquire(ctx, order.ID)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to acquire order lock: %w", err)
	}
	defer release()

	if hardErr := subCtx.Legs.FirstHardError(); hardErr != nil {
		// 硬失败：终态 failed。成功腿的引用保留，失败腿的引用保持为空，
		// 引用不变式由此成立——引用只可能来自一次成功结果。
		if subCtx.Legs.CMS.Err == nil {
			order.CMSReference = subCtx.Legs.CMS.Result.Reference
		}
		if subCtx.Legs.WMS.Err == nil {
			order.WMSReference = subCtx.Legs.WMS.Result.Reference
		}
		if subCtx.Legs.ROS.Err == nil {
			order.ROSReference = subCtx.Legs.ROS.Result.Reference
		}
		order.MarkFailed(hardErr.Error())
		metrics.OrdersFailedTotal.Inc()
		span.SetStatus(codes.Error, "order registration failed")
	} else {
		if err := order.MarkProcessing(
			subCtx.Legs.CMS.Result.Reference,
			subCtx.Legs.WMS.Result.Reference,
			subCtx.Legs.ROS.Result.Reference,
		); err != nil {
			span.RecordError(err)
			return err
		}
		metrics.OrdersProcessedTotal.Inc()
		span.AddEvent("All three legs registered, order is now processing.")
	}

	if err := subCtx.Repo.Save(ctx, order); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to persist final order status")
		return fmt.Errorf("failed to persist order %s: %w", order.ID, err)
	}

	return h.executeNext(subCtx)
}
