// internal/service/order/domain/order.go
package domain

import (
	"errors"
	"time"
)

var (
	// ErrOrderNotFound 表示订单不存在
	ErrOrderNotFound = errors.New("order not found")
	// ErrOrderNotSubmittable 表示订单不处于可编排的 submitted 状态
	ErrOrderNotSubmittable = errors.New("order is not in submitted status")
	// ErrNotAssignedDriver 表示上报人不是该订单的指派司机
	ErrNotAssignedDriver = errors.New("driver is not assigned to this order")
	// ErrUnknownStatus 表示上报的状态不在文档化的状态集合内
	ErrUnknownStatus = errors.New("unknown delivery status")
)

// Order 是订单聚合的根实体。
// 三个外部引用分别由 CMS / WMS / ROS 登记成功（含降级成功）后写入，
// 不变式：引用要么为空，要么来自对应适配器的一次成功结果。
type Order struct {
	ID               string
	ClientID         string
	AssignedDriverID string
	PickupAddress    string
	DeliveryAddress  string
	PackageDetails   map[string]interface{}
	Priority         string // 开放枚举: low / normal / high
	Status           Status

	CMSReference string
	WMSReference string
	ROSReference string

	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewOrder 创建一个新的订单实例，初始状态为 submitted。
func NewOrder(id, clientID, pickup, delivery string, details map[string]interface{}, priority string) (*Order, error) {
	if id == "" || clientID == "" || pickup == "" || delivery == "" {
		return nil, errors.New("cannot create order with empty required fields")
	}
	if priority == "" {
		priority = "normal"
	}
	now := time.Now()
	return &Order{
		ID:              id,
		ClientID:        clientID,
		PickupAddress:   pickup,
		DeliveryAddress: delivery,
		PackageDetails:  details,
		Priority:        priority,
		Status:          StatusSubmitted,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// MarkProcessing 在三条腿全部返回（含降级成功）后写入引用并进入 processing。
// 只有 submitted 状态的订单可以被编排。
func (o *Order) MarkProcessing(cmsRef, wmsRef, rosRef string) error {
	if o.Status != StatusSubmitted {
		return ErrOrderNotSubmittable
	}
	o.Status = StatusProcessing
	o.CMSReference = cmsRef
	o.WMSReference = wmsRef
	o.ROSReference = rosRef
	o.UpdatedAt = time.Now()
	return nil
}

// MarkFailed 在某条腿显式硬失败后进入终态 failed，并记录错误信息。
// 已经成功的腿的引用保留，失败腿的引用保持为空。
func (o *Order) MarkFailed(errMsg string) {
	o.Status = StatusFailed
	o.ErrorMessage = errMsg
	o.UpdatedAt = time.Now()
}

// ApplyDeliveryStatus 应用司机上报的配送状态。
// 这里不强制状态只能向前推进（与现网行为一致），只拒绝未知状态。
func (o *Order) ApplyDeliveryStatus(status Status) error {
	if !status.Known() {
		return ErrUnknownStatus
	}
	o.Status = status
	o.UpdatedAt = time.Now()
	return nil
}
