// internal/service/order/infrastructure/gorm_model.go
package infrastructure

import (
	"time"
)

// OrderModel 对应数据库中的 orders 表。
// PackageDetails 序列化为 JSON 文本存储，结构由客户端自定义。
type OrderModel struct {
	ID               string `gorm:"primaryKey;size:64"`
	ClientID         string `gorm:"size:64;index"`
	AssignedDriverID string `gorm:"size:64;index"`
	PickupAddress    string `gorm:"type:text"`
	DeliveryAddress  string `gorm:"type:text"`
	PackageDetails   string `gorm:"type:text"`
	Priority         string `gorm:"size:16"`
	Status           string `gorm:"size:32;index"`
	CMSReference     string `gorm:"size:128"`
	WMSReference     string `gorm:"size:128"`
	ROSReference     string `gorm:"size:128"`
	ErrorMessage     string `gorm:"type:text"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// TableName 指定 GORM 应该使用的表名
func (OrderModel) TableName() string {
	return "orders"
}

// DeliveryUpdateModel 对应数据库中的 delivery_update 表。
// 记录只追加，表上没有更新和删除路径。
type DeliveryUpdateModel struct {
	ID              string `gorm:"primaryKey;size:64"`
	OrderID         string `gorm:"size:64;index"`
	DriverID        string `gorm:"size:64;index"`
	Status          string `gorm:"size:32"`
	Notes           string `gorm:"type:text"`
	Location        string `gorm:"size:64"`
	ProofOfDelivery string `gorm:"type:text"`
	CreatedAt       time.Time
}

// TableName 指定 GORM 应该使用的表名
func (DeliveryUpdateModel) TableName() string {
	return "delivery_update"
}
