// internal/service/order/infrastructure/lock/zk_locker.go
package lock

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-zookeeper/zk"
)

const (
	lockRoot = "/swiftlogistics/order_locks" // 所有订单锁的根节点

	zkSessionTimeout = 5 * time.Second
	lockWaitTimeout  = 30 * time.Second
)

// ZkOrderLocker 基于 ZooKeeper 临时顺序节点实现 port.OrderLocker。
// 锁的粒度是单个订单：编排落盘和司机上报对同一订单互斥，
// 跨实例部署时依然成立。
type ZkOrderLocker struct {
	conn *zk.Conn
}

// NewZkOrderLocker 建立 ZooKeeper 连接并确保锁根节点存在。
func NewZkOrderLocker(servers []string) (*ZkOrderLocker, error) {
	conn, _, err := zk.Connect(servers, zkSessionTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect zookeeper: %w", err)
	}

	// 逐级创建根路径，节点已存在不算错误
	parts := strings.Split(strings.Trim(lockRoot, "/"), "/")
	path := ""
	for _, part := range parts {
		path += "/" + part
		if _, err := conn.Create(path, []byte(""), 0, zk.WorldACL(zk.PermAll)); err != nil && err != zk.ErrNodeExists {
			conn.Close()
			return nil, fmt.Errorf("failed to create lock root %s: %w", path, err)
		}
	}
	return &ZkOrderLocker{conn: conn}, nil
}

// Acquire 获取某个订单的锁，返回释放函数。
// 竞争时阻塞等待前一个持有者释放，等待有上限，防止死等。
func (l *ZkOrderLocker) Acquire(ctx context.Context, orderID string) (func(), error) {
	lockPath := lockRoot + "/" + orderID
	if _, err := l.conn.Create(lockPath, []byte(""), 0, zk.WorldACL(zk.PermAll)); err != nil && err != zk.ErrNodeExists {
		return nil, fmt.Errorf("failed to create lock path node %s: %w", lockPath, err)
	}

	// 1. 创建临时顺序节点参与排队
	nodePath, err := l.conn.CreateProtectedEphemeralSequential(lockPath+"/lock-", []byte(""), zk.WorldACL(zk.PermAll))
	if err != nil {
		return nil, fmt.Errorf("failed to create sequential node: %w", err)
	}
	release := func() {
		// 临时节点随会话消失，删除失败只影响释放的及时性
		_ = l.conn.Delete(nodePath, -1)
	}

	for {
		// 2. 看自己是不是队列里最小的节点
		children, _, err := l.conn.Children(lockPath)
		if err != nil {
			release()
			return nil, fmt.Errorf("failed to get children nodes: %w", err)
		}
		sort.Strings(children)

		myNodeName := strings.TrimPrefix(nodePath, lockPath+"/")
		if myNodeName == children[0] {
			return release, nil
		}

		// 3. 不是最小节点，监听前一个节点的删除事件
		prevNodeIndex := -1
		for i, child := range children {
			if child == myNodeName {
				prevNodeIndex = i - 1
				break
			}
		}
		if prevNodeIndex < 0 {
			release()
			return nil, errors.New("cannot find previous node, something is wrong")
		}
		prevNodePath := lockPath + "/" + children[prevNodeIndex]

		exists, _, eventChan, err := l.conn.ExistsW(prevNodePath)
		if err != nil {
			if err == zk.ErrNoNode {
				continue
			}
			release()
			return nil, fmt.Errorf("failed to watch previous node: %w", err)
		}
		if !exists {
			continue
		}

		select {
		case event := <-eventChan:
			if event.Type == zk.EventNodeDeleted {
				continue
			}
		case <-ctx.Done():
			release()
			return nil, ctx.Err()
		case <-time.After(lockWaitTimeout):
			release()
			return nil, errors.New("timeout waiting for order lock")
		}
	}
}

// Close 关闭底层 ZooKeeper 会话，会话上的临时节点随之清理。
func (l *ZkOrderLocker) Close() {
	l.conn.Close()
}
