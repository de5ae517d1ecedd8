// internal/service/order/domain/port/locker.go
package port

import "context"

// OrderLocker 对单个订单的所有变更操作做互斥。
// submit 与 report 在同一订单上并发时，通过它串行化，避免丢失更新。
// 实现可以是进程内的按键互斥锁，也可以是 ZooKeeper 分布式锁。
type OrderLocker interface {
	// Acquire 获取 orderID 对应的锁，返回释放函数。
	Acquire(ctx context.Context, orderID string) (release func(), err error)
}
