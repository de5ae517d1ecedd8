// internal/service/order/infrastructure/gorm_repository.go
package infrastructure

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"swiftlogistics/internal/service/order/domain"
)

// GormOrderRepository 是 OrderRepository 的 GORM 实现
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository 创建一个新的 GORM 仓储实例
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// Save 保存订单聚合。主键冲突时整行覆盖，订单状态以最后一次落盘为准。
func (r *GormOrderRepository) Save(ctx context.Context, order *domain.Order) error {
	model, err := ToOrderModel(order)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(model).Error
}

// FindByID 根据 ID 查找订单，不存在时返回 domain.ErrOrderNotFound。
func (r *GormOrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	var model OrderModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, err
	}
	return ToDomainOrder(&model)
}

// CountByStatus 按状态统计订单数量。
func (r *GormOrderRepository) CountByStatus(ctx context.Context) (map[domain.Status]int64, error) {
	type row struct {
		Status string
		Count  int64
	}
	var rows []row
	err := r.db.WithContext(ctx).
		Model(&OrderModel{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[domain.Status]int64, len(rows))
	for _, r := range rows {
		counts[domain.Status(r.Status)] = r.Count
	}
	return counts, nil
}

// GormDeliveryUpdateRepository 是 DeliveryUpdateRepository 的 GORM 实现
type GormDeliveryUpdateRepository struct {
	db *gorm.DB
}

// NewGormDeliveryUpdateRepository 创建一个新的 GORM 仓储实例
func NewGormDeliveryUpdateRepository(db *gorm.DB) *GormDeliveryUpdateRepository {
	return &GormDeliveryUpdateRepository{db: db}
}

// Append 追加一条配送记录。
func (r *GormDeliveryUpdateRepository) Append(ctx context.Context, update *domain.DeliveryUpdate) error {
	return r.db.WithContext(ctx).Create(ToDeliveryUpdateModel(update)).Error
}

// ListByOrder 按时间顺序返回一个订单的全部配送记录。
func (r *GormDeliveryUpdateRepository) ListByOrder(ctx context.Context, orderID string) ([]*domain.DeliveryUpdate, error) {
	var models []DeliveryUpdateModel
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at asc").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	updates := make([]*domain.DeliveryUpdate, 0, len(models))
	for i := range models {
		updates = append(updates, ToDomainDeliveryUpdate(&models[i]))
	}
	return updates, nil
}
