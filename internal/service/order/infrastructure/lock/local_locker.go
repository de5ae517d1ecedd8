// internal/service/order/infrastructure/lock/local_locker.go
package lock

import (
	"context"
	"sync"
)

// LocalOrderLocker 是单实例部署下的进程内锁，按订单 ID 分键。
// 没有配置 ZooKeeper 时回退到它；多实例部署必须用 ZkOrderLocker。
type LocalOrderLocker struct {
	mu    sync.Mutex
	locks map[string]*orderLockEntry
}

type orderLockEntry struct {
	mu   sync.Mutex
	refs int
}

// NewLocalOrderLocker 创建一个进程内订单锁。
func NewLocalOrderLocker() *LocalOrderLocker {
	return &LocalOrderLocker{locks: make(map[string]*orderLockEntry)}
}

// Acquire 获取某个订单的进程内锁，返回释放函数。
// 引用计数保证条目在没有等待者时被回收，map 不会无限增长。
func (l *LocalOrderLocker) Acquire(_ context.Context, orderID string) (func(), error) {
	l.mu.Lock()
	entry, ok := l.locks[orderID]
	if !ok {
		entry = &orderLockEntry{}
		l.locks[orderID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, orderID)
		}
		l.mu.Unlock()
	}, nil
}
