// internal/service/order/domain/port/notification.go
package port

import (
	"context"

	"swiftlogistics/internal/service/order/domain"
)

// EventPublisher 是持久化事件总线的出站端口。
// 发布是 fire-and-forget：总线不可用时实现方记录日志并吞掉错误，
// 绝不因此让 submit/report 失败。
type EventPublisher interface {
	Publish(ctx context.Context, topic string, payload domain.EventPayload) error
}

// LivePusher 是实时推送通道的出站端口。
// 推送给未连接的客户端是静默 no-op，不是错误。
type LivePusher interface {
	PushToClient(ctx context.Context, clientID string, msg domain.LiveMessage) error
}
