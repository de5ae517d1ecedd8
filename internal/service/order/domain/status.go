// internal/service/order/domain/status.go
package domain

// Status 定义了订单的生命周期状态
type Status string

const (
	StatusSubmitted      Status = "submitted"        // 客户端已提交，尚未编排
	StatusProcessing     Status = "processing"       // 三个下游系统登记完成，订单处理中
	StatusInWarehouse    Status = "in_warehouse"     // 包裹已入库
	StatusOutForDelivery Status = "out_for_delivery" // 司机配送中
	StatusDelivered      Status = "delivered"        // 已签收（终态）
	StatusFailed         Status = "failed"           // 编排硬失败（终态，需人工介入）
)

// Known 判断状态是否属于文档化的状态集合。
// report 入口只做这一层校验，不校验状态推进方向。
func (s Status) Known() bool {
	switch s {
	case StatusSubmitted, StatusProcessing, StatusInWarehouse,
		StatusOutForDelivery, StatusDelivered, StatusFailed:
		return true
	}
	return false
}

// Terminal 判断状态是否为终态。
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusFailed
}
