// internal/service/order/infrastructure/kafka_consumer.go
package infrastructure

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"swiftlogistics/internal/pkg/mq"
	"swiftlogistics/internal/service/order/application"
)

// SubmissionConsumerAdapter 是一个驱动适配器：
// 它监听 order.submitted 主题，并驱动应用服务完成三方登记编排。
// 总线承诺 at-least-once，重投的幂等处理在应用服务里完成。
type SubmissionConsumerAdapter struct {
	reader  *kafka.Reader
	appSvc  *application.OrderApplicationService
	wg      sync.WaitGroup
	stopped bool
}

// NewSubmissionConsumerAdapter 创建一个新的提交消费者适配器。
func NewSubmissionConsumerAdapter(reader *kafka.Reader, appSvc *application.OrderApplicationService) *SubmissionConsumerAdapter {
	return &SubmissionConsumerAdapter{
		reader: reader,
		appSvc: appSvc,
	}
}

// Start 开始监听提交主题。这是一个长期运行的方法。
func (a *SubmissionConsumerAdapter) Start(ctx context.Context) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		log.Printf("✅ Submission Consumer started for topic '%s'.", a.reader.Config().Topic)
		for {
			if a.stopped {
				return
			}
			// 使用 FetchMessage 而不是 ReadMessage，以便手动控制提交时机
			msg, err := a.reader.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					log.Println("🛑 Submission Consumer shutting down.")
					return
				}
				log.Printf("ERROR: could not read message: %v. Retrying...", err)
				time.Sleep(1 * time.Second) // 避免快速失败循环
				continue
			}

			if a.processMessage(ctx, msg) {
				// 只有处理成功才提交 Offset；失败的消息留给重投
				if err := a.reader.CommitMessages(ctx, msg); err != nil {
					log.Printf("ERROR: failed to commit messages: %v", err)
				}
			}
		}
	}()
}

// Stop 优雅地停止消费者。
func (a *SubmissionConsumerAdapter) Stop() {
	a.stopped = true
	a.reader.Close()
	a.wg.Wait()
	log.Printf("✅ Submission Consumer stopped.")
}

// submissionEnvelope 只关心载荷里的订单 ID，其余字段忽略。
type submissionEnvelope struct {
	Payload struct {
		OrderID string `json:"order_id"`
	} `json:"payload"`
}

// processMessage 反序列化消息并调用应用服务。
// 返回 true 表示消息可以提交（包括不可恢复的坏消息）。
func (a *SubmissionConsumerAdapter) processMessage(parentCtx context.Context, msg kafka.Message) bool {
	var envelope submissionEnvelope
	if err := json.Unmarshal(msg.Value, &envelope); err != nil || envelope.Payload.OrderID == "" {
		// 坏消息重投也救不回来，提交跳过
		log.Printf("ERROR: malformed submission message, skipping: %v", err)
		return true
	}

	// 从消息头恢复上游的追踪上下文，保证链路跨过总线不断开
	ctx := mq.ExtractTraceContext(parentCtx, msg.Headers)

	if err := a.appSvc.SubmitOrder(ctx, envelope.Payload.OrderID); err != nil {
		// 编排链失败（锁/持久化问题），不提交，等待重投
		log.Printf("ERROR: failed to orchestrate order %s: %v", envelope.Payload.OrderID, err)
		return false
	}
	return true
}
