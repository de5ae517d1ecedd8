// internal/service/order/domain/port/dispatch.go
package port

// DispatchPlan 是一条派单参数：登记配送点时随订单一起下发给路径优化系统。
type DispatchPlan struct {
	ServiceTime int    // 单点服务时长（分钟）
	TimeWindow  string // 例如 "09:00-18:00"
}

// DispatchPolicy 根据订单优先级解析派单参数。
type DispatchPolicy interface {
	Resolve(priority string) (DispatchPlan, error)
}
