package adapter

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"tablecover/internal/pkg/mq"
	"tablecover/internal/service/quote/domain"
)

// NotificationKafkaAdapter 实现了 port.NotificationProducer 接口。
type NotificationKafkaAdapter struct {
	writer mq.MessageWriter
}

// NewNotificationKafkaAdapter 创建一个新的通知生产者适配器。
func NewNotificationKafkaAdapter(writer mq.MessageWriter) *NotificationKafkaAdapter {
	return &NotificationKafkaAdapter{writer: writer}
}

// SendOrderSubmitted 以订单 ID 作为消息 Key 发布订单已提交事件。
func (a *NotificationKafkaAdapter) SendOrderSubmitted(ctx context.Context, event *domain.OrderSubmitted) error {
	eventBytes, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "failed to marshal order submitted event")
	}
	// 调用通用的 mq.ProduceMessage，它会自动处理追踪上下文注入
	return mq.ProduceMessage(ctx, a.writer, []byte(event.OrderID), eventBytes)
}
