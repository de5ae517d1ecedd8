// internal/service/order/domain/update.go
package domain

import (
	"errors"
	"time"
)

// DeliveryUpdate 是一条不可变的配送事实，只追加，不修改、不删除。
type DeliveryUpdate struct {
	ID              string
	OrderID         string
	DriverID        string
	Status          Status
	Notes           string
	Location        string // 例如 "6.9,79.8"
	ProofOfDelivery string // 签收凭证的文件路径或 URL
	CreatedAt       time.Time
}

// NewDeliveryUpdate 创建一条配送记录。
func NewDeliveryUpdate(id, orderID, driverID string, status Status, notes, location, proof string) (*DeliveryUpdate, error) {
	if id == "" || orderID == "" || driverID == "" {
		return nil, errors.New("cannot create delivery update with empty required fields")
	}
	return &DeliveryUpdate{
		ID:              id,
		OrderID:         orderID,
		DriverID:        driverID,
		Status:          status,
		Notes:           notes,
		Location:        location,
		ProofOfDelivery: proof,
		CreatedAt:       time.Now(),
	}, nil
}
