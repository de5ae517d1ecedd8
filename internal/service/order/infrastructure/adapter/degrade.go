// internal/service/order/infrastructure/adapter/degrade.go
package adapter

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"swiftlogistics/internal/pkg/metrics"
	"swiftlogistics/internal/service/order/domain/port"
)

// Degrade 是三个登记适配器共用的降级包装：
// 在独立超时内执行底层调用，任何传输层失败都被转换为
// 由订单 ID 确定性派生的合成引用，并打上 Degraded 标记。
// 这是一个用可用性换严格正确性的取舍：管道继续前进，
// 污染面通过 Degraded 标记和指标可观测。
// 返回值的 error 恒为 nil——硬失败不产生于传输层。
func Degrade(ctx context.Context, system, orderID string, timeout time.Duration, call func(ctx context.Context) (string, error)) (port.RegistrationResult, error) {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ref, err := call(callCtx)
	if err != nil {
		log.Printf("WARN: [%s] registration for order %s degraded: %v", system, orderID, err)
		metrics.AdapterDegradedTotal.WithLabelValues(system).Inc()
		return port.RegistrationResult{
			Reference: SynthesizedReference(system, orderID),
			Degraded:  true,
		}, nil
	}
	return port.RegistrationResult{Reference: ref}, nil
}

// SynthesizedReference 返回某个系统对某订单的合成引用。
// 派生是确定性的：同一订单在同一系统上降级多少次，引用都相同，
// 这保证了重试提交的幂等性。格式沿用现网约定，合成引用与
// 真实引用在持久化记录和事件里不可区分。
func SynthesizedReference(system, orderID string) string {
	return fmt.Sprintf("%s_MOCK_%s", system, orderID)
}
