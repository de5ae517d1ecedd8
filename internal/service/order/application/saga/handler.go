// internal/service/order/application/saga/handler.go
package saga

import (
	"context"

	"go.opentelemetry.io/otel/trace"

	"swiftlogistics/internal/service/order/domain"
	"swiftlogistics/internal/service/order/domain/port"
)

// SubmissionContext 在一次订单提交的处理链中传递上下文数据。
// 所有外部依赖都是抽象端口，由组装根注入。
type SubmissionContext struct {
	Ctx    context.Context
	Order  *domain.Order
	Tracer trace.Tracer

	// 依赖出站端口 (Interfaces)
	CMS       port.ClientManagementService
	WMS       port.WarehouseService
	ROS       port.RouteOptimizationService
	Publisher port.EventPublisher
	Locker    port.OrderLocker
	Repo      domain.OrderRepository

	// Legs 记录三条腿各自的结果。三条腿互相独立，没有回滚：
	// 某条腿硬失败不会撤销其他腿已经完成的登记。
	Legs LegResults
}

// LegResult 是一条腿的执行记录。
type LegResult struct {
	Attempted bool
	Result    port.RegistrationResult
	Err       error // 显式硬失败；降级成功时为 nil
}

// LegResults 按固定顺序（cms → wms → ros）持有三条腿的结果。
type LegResults struct {
	CMS LegResult
	WMS LegResult
	ROS LegResult
}

// FirstHardError 按固定腿顺序返回第一个硬失败，全部成功时返回 nil。
// 顺序固定保证了同样的失败组合总是产生同样的错误信息。
func (l *LegResults) FirstHardError() error {
	for _, leg := range []LegResult{l.CMS, l.WMS, l.ROS} {
		if leg.Err != nil {
			return leg.Err
		}
	}
	return nil
}

// Handler 是处理链节点的接口。
type Handler interface {
	SetNext(handler Handler) Handler
	Handle(subCtx *SubmissionContext) error
}

type NextHandler struct {
	next Handler
}

func (h *NextHandler) SetNext(handler Handler) Handler {
	h.next = handler
	return handler
}

func (h *NextHandler) executeNext(subCtx *SubmissionContext) error {
	if h.next != nil {
		return h.next.Handle(subCtx)
	}
	return nil
}
