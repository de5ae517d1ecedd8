// internal/service/order/infrastructure/adapter/ros_http_adapter.go
package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"swiftlogistics/internal/pkg/httpclient"
	"swiftlogistics/internal/service/order/domain"
	"swiftlogistics/internal/service/order/domain/port"
)

const rosSystem = "ROS"

// ROSHttpAdapter 实现了 port.RouteOptimizationService。
// 配送点以 JSON 提交，携带 Bearer 凭证，对方用 201 表示创建成功。
type ROSHttpAdapter struct {
	client  *httpclient.Client
	baseURL string
	apiKey  string
	policy  port.DispatchPolicy
	timeout time.Duration
}

// NewROSHttpAdapter 创建一个新的路径优化系统适配器。
func NewROSHttpAdapter(client *httpclient.Client, baseURL, apiKey string, policy port.DispatchPolicy, timeout time.Duration) *ROSHttpAdapter {
	return &ROSHttpAdapter{client: client, baseURL: baseURL, apiKey: apiKey, policy: policy, timeout: timeout}
}

type deliveryPointRequest struct {
	DeliveryID  string `json:"delivery_id"`
	Address     string `json:"address"`
	Priority    string `json:"priority"`
	TimeWindow  string `json:"time_window"`
	ServiceTime int    `json:"service_time"` // 分钟
}

type deliveryPointResponse struct {
	ID            string `json:"id"`
	EstimatedTime string `json:"estimated_time"`
	Sequence      int    `json:"sequence"`
}

// RegisterDeliveryPoint 把配送点登记到路径优化系统。
// 服务时长和时间窗由派单策略按优先级解析。
func (a *ROSHttpAdapter) RegisterDeliveryPoint(ctx context.Context, order *domain.Order) (port.RegistrationResult, error) {
	return Degrade(ctx, rosSystem, order.ID, a.timeout, func(callCtx context.Context) (string, error) {
		plan, err := a.policy.Resolve(order.Priority)
		if err != nil {
			return "", errors.Wrap(err, "dispatch policy failed")
		}

		payload, err := json.Marshal(deliveryPointRequest{
			DeliveryID:  order.ID,
			Address:     order.DeliveryAddress,
			Priority:    order.Priority,
			TimeWindow:  plan.TimeWindow,
			ServiceTime: plan.ServiceTime,
		})
		if err != nil {
			return "", err
		}

		headers := map[string]string{
			"Content-Type":  "application/json",
			"Authorization": "Bearer " + a.apiKey,
		}

		resp, err := a.client.Do(callCtx, http.MethodPost, a.baseURL+"/api/v1/delivery-points", headers, payload)
		if err != nil {
			return "", errors.Wrap(err, "ros call failed")
		}
		if resp.StatusCode != http.StatusCreated {
			return "", errors.Errorf("ros returned status %d", resp.StatusCode)
		}

		var result deliveryPointResponse
		if err := json.Unmarshal(resp.Body, &result); err != nil {
			return "", errors.Wrap(err, "invalid ros response")
		}
		if result.ID == "" {
			// 对方响应成功但缺少 id 时的兜底，与现网行为一致
			return "ROS_" + order.ID, nil
		}
		return result.ID, nil
	})
}

// DriverRoute 查询某个司机的优化路线。
// 这不是登记腿，不做降级：查不到就把错误交给调用方。
func (a *ROSHttpAdapter) DriverRoute(ctx context.Context, driverID string) (map[string]interface{}, error) {
	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	headers := map[string]string{"Authorization": "Bearer " + a.apiKey}
	url := fmt.Sprintf("%s/api/v1/routes/driver/%s", a.baseURL, driverID)

	resp, err := a.client.Do(callCtx, http.MethodGet, url, headers, nil)
	if err != nil {
		return nil, errors.Wrap(err, "ros route query failed")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("ros returned status %d", resp.StatusCode)
	}

	var route map[string]interface{}
	if err := json.Unmarshal(resp.Body, &route); err != nil {
		return nil, errors.Wrap(err, "invalid ros route response")
	}
	return route, nil
}
