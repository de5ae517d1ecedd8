// internal/service/order/domain/repository.go
package domain

import "context"

// OrderRepository 定义了订单聚合的持久化接口。
// 它位于领域层，但由基础设施层实现。
type OrderRepository interface {
	// Save 保存一个订单聚合（用于创建或更新）。
	Save(ctx context.Context, order *Order) error

	// FindByID 根据 ID 查找一个订单聚合，不存在时返回 ErrOrderNotFound。
	FindByID(ctx context.Context, id string) (*Order, error)

	// CountByStatus 按状态统计订单数量，供管理端报表使用。
	CountByStatus(ctx context.Context) (map[Status]int64, error)
}

// DeliveryUpdateRepository 定义了配送记录的追加接口。
type DeliveryUpdateRepository interface {
	// Append 追加一条配送记录。记录不可变，没有更新和删除操作。
	Append(ctx context.Context, update *DeliveryUpdate) error

	// ListByOrder 按时间顺序返回一个订单的全部配送记录。
	ListByOrder(ctx context.Context, orderID string) ([]*DeliveryUpdate, error)
}
