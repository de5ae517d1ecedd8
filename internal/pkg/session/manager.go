// internal/pkg/session/manager.go
package session

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"swiftlogistics/internal/pkg/redis"
)

const (
	sessionKeyPrefix = "session:gateway:"
	sessionTTL       = 24 * time.Hour
)

// Manager 维护 "客户端身份 -> 接入网关节点" 的在线状态映射。
// 映射存放在 Redis 中，多个网关节点共享，用于判断客户端是否在线。
type Manager struct {
	client *redis.Client
}

// NewManager 创建会话管理器。
func NewManager(redisAddr string) *Manager {
	return &Manager{client: redis.NewClient(redisAddr)}
}

// SetUserGateway 记录客户端当前连接到的网关节点。
// 同一个客户端重连时会直接覆盖旧记录。
func (m *Manager) SetUserGateway(ctx context.Context, clientID, nodeID string) error {
	key := sessionKeyPrefix + clientID
	return m.client.GetClient().Set(ctx, key, nodeID, sessionTTL).Err()
}

// GetUserGateway 查询客户端所在的网关节点，离线返回空串。
func (m *Manager) GetUserGateway(ctx context.Context, clientID string) (string, error) {
	key := sessionKeyPrefix + clientID
	nodeID, err := m.client.GetClient().Get(ctx, key).Result()
	if err == goredis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get session for %s: %w", clientID, err)
	}
	return nodeID, nil
}

// DeleteUserGateway 在客户端断开时清理在线状态。
func (m *Manager) DeleteUserGateway(ctx context.Context, clientID string) error {
	return m.client.GetClient().Del(ctx, sessionKeyPrefix+clientID).Err()
}
