// internal/service/order/domain/event.go
package domain

import "time"

// 事件总线上声明的固定主题集合。
// 消费者必须对 (order_id, 事件类型) 幂等：总线承诺 at-least-once，允许重投。
const (
	TopicOrderSubmitted  = "order.submitted"
	TopicOrderProcessed  = "order.processed"
	TopicOrderFailed     = "order.failed"
	TopicDeliveryUpdated = "delivery.updated"
)

// EventPayload 是事件的载荷，扁平结构化键值对。
type EventPayload map[string]interface{}

// OrderSubmittedEvent 在订单落库并入队后发布。
func OrderSubmittedEvent(orderID string) EventPayload {
	return EventPayload{"order_id": orderID, "status": string(StatusSubmitted)}
}

// OrderProcessedEvent 在三条腿全部登记完成后发布。
func OrderProcessedEvent(orderID string) EventPayload {
	return EventPayload{"order_id": orderID, "status": string(StatusProcessing)}
}

// OrderFailedEvent 在编排硬失败后发布。
func OrderFailedEvent(orderID, errMsg string) EventPayload {
	return EventPayload{"order_id": orderID, "error": errMsg}
}

// DeliveryUpdatedEvent 在司机上报配送进度后发布。
func DeliveryUpdatedEvent(orderID string, status Status) EventPayload {
	return EventPayload{"order_id": orderID, "status": string(status)}
}

// LiveMessage 是推送给在线客户端的实时消息。
type LiveMessage struct {
	Type      string `json:"type"`
	OrderID   string `json:"order_id"`
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// NewDeliveryLiveMessage 构造一条 delivery_update 实时消息。
func NewDeliveryLiveMessage(orderID string, status Status, at time.Time) LiveMessage {
	return LiveMessage{
		Type:      "delivery_update",
		OrderID:   orderID,
		Status:    string(status),
		Timestamp: at.UTC().Format(time.RFC3339),
	}
}
