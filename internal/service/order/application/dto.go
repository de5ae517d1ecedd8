// internal/service/order/application/dto.go
package application

import "swiftlogistics/internal/service/order/domain"

// CreateOrderRequest 是接口层传入的下单请求。
type CreateOrderRequest struct {
	ClientID        string                 `json:"client_id"`
	PickupAddress   string                 `json:"pickup_address"`
	DeliveryAddress string                 `json:"delivery_address"`
	PackageDetails  map[string]interface{} `json:"package_details"`
	Priority        string                 `json:"priority"`
}

// CreateOrderResponse 立即返回给客户端：请求已接受，编排异步进行。
type CreateOrderResponse struct {
	OrderID string        `json:"order_id"`
	Status  domain.Status `json:"status"`
	Message string        `json:"message"`
}

// ReportDeliveryRequest 是司机上报配送进度的请求。
// 鉴权（登录态、角色）由外层完成，这里只校验司机与订单的指派关系。
type ReportDeliveryRequest struct {
	OrderID         string `json:"order_id"`
	DriverID        string `json:"driver_id"`
	Status          string `json:"status"`
	Notes           string `json:"notes"`
	Location        string `json:"location"`
	ProofOfDelivery string `json:"proof_of_delivery"`
}

// AdminStatsResponse 是管理端的订单统计。
type AdminStatsResponse struct {
	TotalOrders     int64   `json:"total_orders"`
	PendingOrders   int64   `json:"pending_orders"`
	DeliveredOrders int64   `json:"delivered_orders"`
	DeliveryRate    float64 `json:"delivery_rate"`
}
