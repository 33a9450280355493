package port

import (
	"context"
	"tablecover/internal/service/quote/domain"
)

// IntakeService 是外部接单端点的出站端口。
type IntakeService interface {
	// SubmitOrder 把整张订单作为一次请求发送出去。
	// 字段级错误返回 *domain.IntakeFieldError，其余拒绝包装 domain.ErrIntakeRejected，
	// 网络层失败包装 domain.ErrIntakeUnreachable。
	SubmitOrder(ctx context.Context, order *domain.Order) error
}
