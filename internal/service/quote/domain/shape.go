// internal/service/quote/domain/shape.go
package domain

import "strings"

// Shape 是桌面形状的封闭枚举，决定了面积公式和需要填写的尺寸字段。
// 值是稳定的标签，展示文案通过 Label() 获得，修改文案不会影响计算结果。
type Shape string

const (
	ShapeRectangle Shape = "rectangle"
	ShapeRound     Shape = "round"
	ShapeOval      Shape = "oval"
	ShapeSquare    Shape = "square"
)

// Shapes 按页面展示顺序列出所有形状
var Shapes = []Shape{ShapeRectangle, ShapeRound, ShapeOval, ShapeSquare}

// DimensionField 标识一个尺寸输入框
type DimensionField string

const (
	FieldLength   DimensionField = "length"
	FieldWidth    DimensionField = "width"
	FieldDiameter DimensionField = "diameter"
)

var shapeLabels = map[Shape]string{
	ShapeRectangle: "Rectangle",
	ShapeRound:     "Round",
	ShapeOval:      "Oval",
	ShapeSquare:    "Square",
}

// 每种形状实际参与计算的字段
var shapeFields = map[Shape][]DimensionField{
	ShapeRectangle: {FieldLength, FieldWidth},
	ShapeOval:      {FieldLength, FieldWidth},
	ShapeSquare:    {FieldLength},
	ShapeRound:     {FieldDiameter},
}

// ParseShape 将外部传入的标签解析为 Shape，大小写不敏感。
func ParseShape(s string) (Shape, error) {
	shape := Shape(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := shapeLabels[shape]; !ok {
		return "", ErrInvalidShape
	}
	return shape, nil
}

func (s Shape) Valid() bool {
	_, ok := shapeLabels[s]
	return ok
}

func (s Shape) Label() string {
	return shapeLabels[s]
}

// Fields 返回该形状需要用户填写的尺寸字段。
func (s Shape) Fields() []DimensionField {
	fields := shapeFields[s]
	out := make([]DimensionField, len(fields))
	copy(out, fields)
	return out
}

// ParseDimensionField 校验尺寸字段名。
func ParseDimensionField(s string) (DimensionField, error) {
	switch f := DimensionField(strings.ToLower(strings.TrimSpace(s))); f {
	case FieldLength, FieldWidth, FieldDiameter:
		return f, nil
	default:
		return "", ErrInvalidDimension
	}
}
