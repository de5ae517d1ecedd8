// internal/service/order/domain/port/registration.go
package port

import (
	"context"

	"swiftlogistics/internal/service/order/domain"
)

// RegistrationResult 是一条腿的登记结果。
// Degraded 为 true 表示传输层失败后被降级为合成引用——对后续流程等同成功，
// 但内部可区分，用于指标统计。合成引用由订单 ID 确定性派生，重试结果一致。
type RegistrationResult struct {
	Reference string
	Degraded  bool
}

// ClientManagementService 是客户管理系统（文档协议）的出站端口。
// RegisterOrder 不允许向上抛出传输层错误：任何网络/协议失败都必须在
// 适配器内部降级为合成成功；返回非 nil error 表示显式的、不可恢复的硬失败。
type ClientManagementService interface {
	RegisterOrder(ctx context.Context, order *domain.Order) (RegistrationResult, error)
}

// WarehouseService 是仓库管理系统（原生 TCP）的出站端口。
type WarehouseService interface {
	// RegisterPackage 登记包裹，契约与 RegisterOrder 相同。
	RegisterPackage(ctx context.Context, order *domain.Order) (RegistrationResult, error)

	// UpdatePackageStatus 同步配送状态到仓库系统，尽力而为。
	UpdatePackageStatus(ctx context.Context, orderID string, status domain.Status) error
}

// RouteOptimizationService 是路径优化系统（REST/JSON）的出站端口。
type RouteOptimizationService interface {
	// RegisterDeliveryPoint 登记配送点，契约与 RegisterOrder 相同。
	RegisterDeliveryPoint(ctx context.Context, order *domain.Order) (RegistrationResult, error)

	// DriverRoute 查询某个司机的优化路线。
	DriverRoute(ctx context.Context, driverID string) (map[string]interface{}, error)
}
