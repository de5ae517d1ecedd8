// internal/service/order/infrastructure/adapter/wms_tcp_adapter.go
package adapter

import (
	"context"
	"encoding/json"
	"net"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"swiftlogistics/internal/service/order/domain"
	"swiftlogistics/internal/service/order/domain/port"
)

const (
	wmsSystem = "WMS"

	// 仓库系统的响应是单帧短报文，读取上限固定
	wmsReadLimit = 1024
)

// WMSTcpAdapter 实现了 port.WarehouseService。
// 仓库系统只说原生 TCP：每次调用新建连接，写入一条 JSON 命令，
// 读取一帧有界响应后关闭。没有连接复用，这是对方系统的要求。
type WMSTcpAdapter struct {
	addr    string
	timeout time.Duration
}

// NewWMSTcpAdapter 创建一个新的仓库系统适配器。
func NewWMSTcpAdapter(addr string, timeout time.Duration) *WMSTcpAdapter {
	return &WMSTcpAdapter{addr: addr, timeout: timeout}
}

type wmsCommand struct {
	Action         string                 `json:"action"`
	OrderID        string                 `json:"order_id"`
	PackageDetails map[string]interface{} `json:"package_details,omitempty"`
	Status         string                 `json:"status,omitempty"`
	Timestamp      string                 `json:"timestamp"`
}

type wmsAddPackageResponse struct {
	PackageID         string `json:"package_id"`
	WarehouseLocation string `json:"warehouse_location"`
	Status            string `json:"status"`
}

// RegisterPackage 把包裹登记到仓库系统，返回仓库的包裹号。
func (a *WMSTcpAdapter) RegisterPackage(ctx context.Context, order *domain.Order) (port.RegistrationResult, error) {
	return Degrade(ctx, wmsSystem, order.ID, a.timeout, func(callCtx context.Context) (string, error) {
		respData, err := a.roundTrip(callCtx, wmsCommand{
			Action:         "ADD_PACKAGE",
			OrderID:        order.ID,
			PackageDetails: order.PackageDetails,
			Timestamp:      time.Now().UTC().Format(time.RFC3339),
		})
		if err != nil {
			return "", err
		}

		var result wmsAddPackageResponse
		if err := json.Unmarshal(respData, &result); err != nil {
			return "", errors.Wrap(err, "invalid wms response")
		}
		if result.PackageID == "" {
			return "", errors.New("wms response missing package_id")
		}
		return result.PackageID, nil
	})
}

// UpdatePackageStatus 同步配送状态到仓库系统。
// 尽力而为：传输失败记日志后返回 nil，不影响上报主流程。
func (a *WMSTcpAdapter) UpdatePackageStatus(ctx context.Context, orderID string, status domain.Status) error {
	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	_, err := a.roundTrip(callCtx, wmsCommand{
		Action:    "UPDATE_STATUS",
		OrderID:   orderID,
		Status:    string(status),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		log.Printf("WARN: [WMS] status sync for order %s degraded: %v", orderID, err)
	}
	return nil
}

// roundTrip 完成一次 连接→写命令→读响应 的往返。
func (a *WMSTcpAdapter) roundTrip(ctx context.Context, cmd wmsCommand) ([]byte, error) {
	payload, err := json.Marshal(cmd)
	if err != nil {
		return nil, err
	}

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", a.addr)
	if err != nil {
		return nil, errors.Wrap(err, "wms tcp connect failed")
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	if _, err := conn.Write(payload); err != nil {
		return nil, errors.Wrap(err, "wms tcp write failed")
	}

	buf := make([]byte, wmsReadLimit)
	n, err := conn.Read(buf)
	if err != nil {
		return nil, errors.Wrap(err, "wms tcp read failed")
	}
	return buf[:n], nil
}
