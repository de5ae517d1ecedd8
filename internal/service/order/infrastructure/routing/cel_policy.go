// internal/service/order/infrastructure/routing/cel_policy.go
package routing

import (
	"fmt"

	"github.com/google/cel-go/cel"

	"swiftlogistics/internal/pkg/bootstrap"
	"swiftlogistics/internal/service/order/domain/port"
)

// 没有任何规则命中时的派单参数，与现网默认值一致。
const (
	defaultServiceTime = 5
	defaultTimeWindow  = "09:00-18:00"
)

// CelDispatchPolicy 实现了 port.DispatchPolicy。
// 派单规则是配置里的 CEL 表达式（输入变量 priority），
// 按声明顺序求值，第一条命中的规则生效。
// 规则在构造时全部编译，Resolve 路径上不做任何解析。
type CelDispatchPolicy struct {
	rules []compiledRule
}

type compiledRule struct {
	program cel.Program
	plan    port.DispatchPlan
}

// NewCelDispatchPolicy 编译配置中的派单规则。
// 任何一条规则编译失败都让启动失败：带错规则上线比不上线更糟。
func NewCelDispatchPolicy(rules []bootstrap.DispatchRule) (*CelDispatchPolicy, error) {
	env, err := cel.NewEnv(
		cel.Variable("priority", cel.StringType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create cel env: %w", err)
	}

	compiled := make([]compiledRule, 0, len(rules))
	for i, rule := range rules {
		ast, issues := env.Compile(rule.When)
		if issues != nil && issues.Err() != nil {
			return nil, fmt.Errorf("dispatch rule %d (%q) invalid: %w", i, rule.When, issues.Err())
		}
		program, err := env.Program(ast)
		if err != nil {
			return nil, fmt.Errorf("dispatch rule %d (%q) not executable: %w", i, rule.When, err)
		}
		compiled = append(compiled, compiledRule{
			program: program,
			plan: port.DispatchPlan{
				ServiceTime: rule.ServiceTime,
				TimeWindow:  rule.TimeWindow,
			},
		})
	}
	return &CelDispatchPolicy{rules: compiled}, nil
}

// Resolve 按优先级解析派单参数。规则求值失败视为未命中，继续后面的规则。
func (p *CelDispatchPolicy) Resolve(priority string) (port.DispatchPlan, error) {
	input := map[string]interface{}{"priority": priority}
	for _, rule := range p.rules {
		out, _, err := rule.program.Eval(input)
		if err != nil {
			continue
		}
		if matched, ok := out.Value().(bool); ok && matched {
			plan := rule.plan
			if plan.ServiceTime <= 0 {
				plan.ServiceTime = defaultServiceTime
			}
			if plan.TimeWindow == "" {
				plan.TimeWindow = defaultTimeWindow
			}
			return plan, nil
		}
	}
	return port.DispatchPlan{ServiceTime: defaultServiceTime, TimeWindow: defaultTimeWindow}, nil
}
