// internal/pkg/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 编排核心的业务指标，通过 /metrics 暴露给 Prometheus。
var (
	OrdersProcessedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "orders_processed_total",
			Help: "Total number of orders that reached processing status",
		},
	)

	OrdersFailedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "orders_failed_total",
			Help: "Total number of orders that ended in failed status",
		},
	)

	// 按下游系统统计降级次数，是观察“合成引用”污染面的唯一入口
	AdapterDegradedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adapter_degraded_total",
			Help: "Total number of registration calls degraded to a synthesized reference",
		},
		[]string{"system"},
	)

	DeliveryUpdatesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "delivery_updates_total",
			Help: "Total number of driver-reported delivery updates accepted",
		},
	)

	EventPublishFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "event_publish_failures_total",
			Help: "Total number of swallowed event bus publish failures",
		},
		[]string{"topic"},
	)
)
