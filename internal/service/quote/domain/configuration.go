// internal/service/quote/domain/configuration.go
package domain

import "github.com/shopspring/decimal"

// Configuration 是正在编辑、尚未加入购物篮的条目。
// 价格不缓存，每次读取都从当前字段重新推导。
type Configuration struct {
	Shape      Shape      `json:"shape"`
	Thickness  Thickness  `json:"thickness"`
	Dimensions Dimensions `json:"dimensions"`
}

// NewConfiguration 返回组件挂载时的默认配置：长方形、标准厚度、尺寸为空。
func NewConfiguration() Configuration {
	return Configuration{
		Shape:     ShapeRectangle,
		Thickness: ThicknessStandard,
	}
}

// SetShape 切换形状，不清空已填写的尺寸。
func (c *Configuration) SetShape(s Shape) error {
	if !s.Valid() {
		return ErrInvalidShape
	}
	c.Shape = s
	return nil
}

func (c *Configuration) SetThickness(t Thickness) error {
	if !t.Valid() {
		return ErrInvalidThickness
	}
	c.Thickness = t
	return nil
}

// SetDimension 原样保存输入文本，不做校验。
func (c *Configuration) SetDimension(field DimensionField, raw string) error {
	switch field {
	case FieldLength:
		c.Dimensions.Length = raw
	case FieldWidth:
		c.Dimensions.Width = raw
	case FieldDiameter:
		c.Dimensions.Diameter = raw
	default:
		return ErrInvalidDimension
	}
	return nil
}

// Price 是当前配置的实时价格，0 表示尚不能加入购物篮。
func (c Configuration) Price() decimal.Decimal {
	return Price(c.Shape, c.Thickness, c.Dimensions)
}

func (c Configuration) Ready() bool {
	return c.Price().IsPositive()
}

// Commit 把当前配置作为新条目加入购物篮。
// 价格为 0 时不做任何修改并返回 ErrPriceNotReady；成功后只清空尺寸，形状和厚度保留。
func (c *Configuration) Commit(basket *Basket) (OrderItem, error) {
	item, err := NewOrderItem(*c)
	if err != nil {
		return OrderItem{}, err
	}
	if err := basket.Add(item); err != nil {
		return OrderItem{}, err
	}
	c.Dimensions = Dimensions{}
	return item, nil
}
