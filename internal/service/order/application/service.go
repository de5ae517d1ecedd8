// internal/service/order/application/service.go
package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"swiftlogistics/internal/pkg/logger"
	"swiftlogistics/internal/pkg/metrics"
	"swiftlogistics/internal/service/order/application/saga"
	"swiftlogistics/internal/service/order/domain"
	"swiftlogistics/internal/service/order/domain/port"
)

// OrderApplicationService 负责订单编排的业务流程：
// 接受提交、驱动三条登记腿、落盘最终状态、接收司机上报。
type OrderApplicationService struct {
	orderRepo  domain.OrderRepository
	updateRepo domain.DeliveryUpdateRepository
	tracer     trace.Tracer

	cms       port.ClientManagementService
	wms       port.WarehouseService
	ros       port.RouteOptimizationService
	publisher port.EventPublisher
	pusher    port.LivePusher
	locker    port.OrderLocker
}

func NewOrderApplicationService(
	orderRepo domain.OrderRepository,
	updateRepo domain.DeliveryUpdateRepository,
	tracer trace.Tracer,
	cms port.ClientManagementService,
	wms port.WarehouseService,
	ros port.RouteOptimizationService,
	publisher port.EventPublisher,
	pusher port.LivePusher,
	locker port.OrderLocker,
) *OrderApplicationService {
	return &OrderApplicationService{
		orderRepo: orderRepo, updateRepo: updateRepo, tracer: tracer,
		cms: cms, wms: wms, ros: ros,
		publisher: publisher, pusher: pusher, locker: locker,
	}
}

// RequestOrderCreation 是暴露给接口层的下单入口。
// 它只负责落库并把订单 ID 投递到 order.submitted 主题，
// 真正的编排由消费者适配器驱动 SubmitOrder 完成。
// 注意：order.submitted 在这里是驱动消息而不是结果通知，
// 投递失败会返回给调用方重试，这是唯一一个不吞发布错误的位置。
func (s *OrderApplicationService) RequestOrderCreation(ctx context.Context, req *CreateOrderRequest) (*CreateOrderResponse, error) {
	ctx, span := s.tracer.Start(ctx, "app.RequestOrderCreation")
	defer span.End()

	orderID := uuid.New().String()
	order, err := domain.NewOrder(orderID, req.ClientID, req.PickupAddress, req.DeliveryAddress, req.PackageDetails, req.Priority)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(
		attribute.String("order.id", order.ID),
		attribute.String("order.priority", order.Priority),
	)

	if err := s.orderRepo.Save(ctx, order); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to save submitted order")
		return nil, fmt.Errorf("failed to save order: %w", err)
	}

	if err := s.publisher.Publish(ctx, domain.TopicOrderSubmitted, domain.OrderSubmittedEvent(order.ID)); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to enqueue order submission")
		return nil, fmt.Errorf("failed to enqueue order %s: %w", order.ID, err)
	}

	span.AddEvent("Order submission enqueued.")
	logger.Ctx(ctx).Info().Str("order_id", order.ID).Msg("order accepted, orchestration enqueued")

	return &CreateOrderResponse{
		OrderID: order.ID,
		Status:  domain.StatusSubmitted,
		Message: "Your order is being processed.",
	}, nil
}

// SubmitOrder 驱动一个订单走完三条登记腿并落盘最终状态。
// 由消费者适配器调用，也可由测试直接调用。
// 幂等性：只有 submitted 状态的订单会被编排；总线允许重投，
// 对已经 processing/failed 的订单重复投递会被静默跳过。
func (s *OrderApplicationService) SubmitOrder(ctx context.Context, orderID string) error {
	ctx, span := s.tracer.Start(ctx, "app.SubmitOrder", trace.WithSpanKind(trace.SpanKindConsumer))
	defer span.End()
	span.SetAttributes(attribute.String("order.id", orderID))

	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		span.RecordError(err)
		return err
	}

	if order.Status != domain.StatusSubmitted {
		// at-least-once 重投：不是错误，跳过即可
		logger.Ctx(ctx).Warn().
			Str("order_id", orderID).
			Str("status", string(order.Status)).
			Msg("skipping re-delivered submission, order already orchestrated")
		span.AddEvent("Duplicate submission skipped.")
		return nil
	}

	subCtx := &saga.SubmissionContext{
		Ctx:       ctx,
		Order:     order,
		Tracer:    s.tracer,
		CMS:       s.cms,
		WMS:       s.wms,
		ROS:       s.ros,
		Publisher: s.publisher,
		Locker:    s.locker,
		Repo:      s.orderRepo,
	}

	logger.Ctx(ctx).Info().Str("order_id", order.ID).Msg("starting registration across cms/wms/ros")

	if err := s.buildChain().Handle(subCtx); err != nil {
		// 链本身失败（锁或持久化问题），订单状态未定，返回错误让消息重投
		span.RecordError(err)
		span.SetStatus(codes.Error, "Submission chain failed")
		return err
	}

	logger.Ctx(ctx).Info().
		Str("order_id", order.ID).
		Str("status", string(order.Status)).
		Msg("order orchestration finished")
	return nil
}

// ReportDelivery 处理司机上报的配送进度。
// 前置校验同步返回错误；后续的 WMS 同步、实时推送、事件发布都是尽力而为。
func (s *OrderApplicationService) ReportDelivery(ctx context.Context, req *ReportDeliveryRequest) error {
	ctx, span := s.tracer.Start(ctx, "app.ReportDelivery")
	defer span.End()
	span.SetAttributes(
		attribute.String("order.id", req.OrderID),
		attribute.String("driver.id", req.DriverID),
		attribute.String("report.status", req.Status),
	)

	status := domain.Status(req.Status)
	if !status.Known() {
		span.RecordError(domain.ErrUnknownStatus)
		return domain.ErrUnknownStatus
	}

	release, err := s.locker.Acquire(ctx, req.OrderID)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to acquire order lock: %w", err)
	}
	defer release()

	order, err := s.orderRepo.FindByID(ctx, req.OrderID)
	if err != nil {
		span.RecordError(err)
		return err
	}

	if order.AssignedDriverID != req.DriverID {
		span.RecordError(domain.ErrNotAssignedDriver)
		return domain.ErrNotAssignedDriver
	}

	update, err := domain.NewDeliveryUpdate(
		uuid.New().String(), order.ID, req.DriverID,
		status, req.Notes, req.Location, req.ProofOfDelivery,
	)
	if err != nil {
		span.RecordError(err)
		return err
	}

	if err := s.updateRepo.Append(ctx, update); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to append delivery update: %w", err)
	}

	if err := order.ApplyDeliveryStatus(status); err != nil {
		span.RecordError(err)
		return err
	}
	if err := s.orderRepo.Save(ctx, order); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to save order status: %w", err)
	}
	metrics.DeliveryUpdatesTotal.Inc()

	// 同步状态到仓库系统，失败已在适配器内部降级
	if err := s.wms.UpdatePackageStatus(ctx, order.ID, status); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("order_id", order.ID).Msg("wms status sync failed")
		span.RecordError(err)
	}

	// 实时推送给订单所属客户端；离线时是静默 no-op
	msg := domain.NewDeliveryLiveMessage(order.ID, status, order.UpdatedAt)
	if err := s.pusher.PushToClient(ctx, order.ClientID, msg); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("client_id", order.ClientID).Msg("live push failed")
		span.RecordError(err)
	}

	if err := s.publisher.Publish(ctx, domain.TopicDeliveryUpdated, domain.DeliveryUpdatedEvent(order.ID, status)); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("order_id", order.ID).Msg("delivery.updated publish failed")
		metrics.EventPublishFailuresTotal.WithLabelValues(domain.TopicDeliveryUpdated).Inc()
		span.RecordError(err)
	}

	span.AddEvent("Delivery update applied.")
	return nil
}

// GetOrder 查询单个订单。
func (s *OrderApplicationService) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	return s.orderRepo.FindByID(ctx, orderID)
}

// ListDeliveryUpdates 按时间顺序返回一个订单的配送轨迹。
func (s *OrderApplicationService) ListDeliveryUpdates(ctx context.Context, orderID string) ([]*domain.DeliveryUpdate, error) {
	if _, err := s.orderRepo.FindByID(ctx, orderID); err != nil {
		return nil, err
	}
	return s.updateRepo.ListByOrder(ctx, orderID)
}

// DriverRoute 查询司机的优化路线，直接代理路径优化系统。
func (s *OrderApplicationService) DriverRoute(ctx context.Context, driverID string) (map[string]interface{}, error) {
	ctx, span := s.tracer.Start(ctx, "app.DriverRoute")
	defer span.End()
	span.SetAttributes(attribute.String("driver.id", driverID))
	return s.ros.DriverRoute(ctx, driverID)
}

// AdminStats 汇总订单状态分布，供管理端报表使用。
func (s *OrderApplicationService) AdminStats(ctx context.Context) (*AdminStatsResponse, error) {
	ctx, span := s.tracer.Start(ctx, "app.AdminStats")
	defer span.End()

	counts, err := s.orderRepo.CountByStatus(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	var total int64
	for _, n := range counts {
		total += n
	}
	resp := &AdminStatsResponse{
		TotalOrders:     total,
		PendingOrders:   counts[domain.StatusSubmitted],
		DeliveredOrders: counts[domain.StatusDelivered],
	}
	if total > 0 {
		resp.DeliveryRate = float64(resp.DeliveredOrders) / float64(total) * 100
	}
	return resp, nil
}

func (s *OrderApplicationService) buildChain() saga.Handler {
	chain := new(saga.RegisterLegsHandler)
	chain.
		SetNext(new(saga.FinalizeHandler)).
		SetNext(new(saga.PublishHandler))
	return chain
}

// IsNotFound 判断错误是否为订单不存在，供接口层映射为 404。
func IsNotFound(err error) bool {
	return errors.Is(err, domain.ErrOrderNotFound)
}

// IsForbidden 判断错误是否为司机未被指派，供接口层映射为 403。
func IsForbidden(err error) bool {
	return errors.Is(err, domain.ErrNotAssignedDriver)
}
