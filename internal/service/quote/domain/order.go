// internal/service/quote/domain/order.go
package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order 是一次提交的快照：购物篮中的全部条目、总价以及联系信息。
type Order struct {
	ID          string
	Items       []OrderItem
	Total       decimal.Decimal
	Contact     Contact
	Shape       Shape     // 提交时配置器中选择的形状
	Thickness   Thickness // 提交时配置器中选择的厚度
	SubmittedAt time.Time
}

// NewOrder 从购物篮和联系信息生成订单，购物篮为空时返回 ErrEmptyBasket。
func NewOrder(cfg Configuration, basket *Basket, contact Contact) (*Order, error) {
	if basket.IsEmpty() {
		return nil, ErrEmptyBasket
	}
	return &Order{
		ID:          uuid.New().String(),
		Items:       basket.Items(),
		Total:       basket.Total(),
		Contact:     contact,
		Shape:       cfg.Shape,
		Thickness:   cfg.Thickness,
		SubmittedAt: time.Now(),
	}, nil
}

// Summary 每个条目一行，最后一行是总价。
func (o *Order) Summary() string {
	var sb strings.Builder
	for i, item := range o.Items {
		sb.WriteString(item.SummaryLine(i + 1))
		sb.WriteByte('\n')
	}
	fmt.Fprintf(&sb, "Total: %s", FormatMoney(o.Total))
	return sb.String()
}
