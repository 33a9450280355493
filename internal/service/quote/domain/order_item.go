// internal/service/quote/domain/order_item.go
package domain

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderItem 是已经加入购物篮的定价条目，创建后不可变。
// Price 是加入时的快照，之后修改配置不会影响它。
type OrderItem struct {
	ID         string          `json:"id"`
	Shape      Shape           `json:"shape"`
	Thickness  Thickness       `json:"thickness"`
	Dimensions string          `json:"dimensions"`
	Price      decimal.Decimal `json:"price"`
}

// NewOrderItem 从当前配置创建条目，价格必须严格大于 0。
func NewOrderItem(cfg Configuration) (OrderItem, error) {
	price := cfg.Price()
	if !price.IsPositive() {
		return OrderItem{}, ErrPriceNotReady
	}
	return OrderItem{
		ID:         uuid.New().String(),
		Shape:      cfg.Shape,
		Thickness:  cfg.Thickness,
		Dimensions: FormatDimensions(cfg.Shape, cfg.Dimensions),
		Price:      price,
	}, nil
}

// SummaryLine 生成订单摘要中的一行
func (i OrderItem) SummaryLine(n int) string {
	return fmt.Sprintf("%d. %s, %s, %s - %s", n, i.Shape.Label(), i.Thickness.Label(), i.Dimensions, FormatMoney(i.Price))
}

// FormatDimensions 生成人类可读的尺寸描述：圆形按直径，正方形按边长，其余按长×宽。
func FormatDimensions(shape Shape, dims Dimensions) string {
	switch shape {
	case ShapeRound:
		d, _ := parseDimension(dims.Diameter)
		return fmt.Sprintf("⌀%s cm", formatNumber(d))
	case ShapeSquare:
		l, _ := parseDimension(dims.Length)
		return fmt.Sprintf("%s × %s cm", formatNumber(l), formatNumber(l))
	default:
		l, _ := parseDimension(dims.Length)
		w, _ := parseDimension(dims.Width)
		return fmt.Sprintf("%s × %s cm", formatNumber(l), formatNumber(w))
	}
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
