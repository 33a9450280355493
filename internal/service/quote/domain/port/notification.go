package port

import (
	"context"
	"tablecover/internal/service/quote/domain"
)

// NotificationProducer 在订单被接受后发布通知事件。
type NotificationProducer interface {
	SendOrderSubmitted(ctx context.Context, event *domain.OrderSubmitted) error
}
