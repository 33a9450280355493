// internal/service/quote/domain/pricing.go
package domain

import (
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// BaseFee 是每块桌布的固定加工费
	BaseFee = decimal.NewFromInt(15)
	// UnitRate 是每平方厘米的单价
	UnitRate = decimal.RequireFromString("0.005")
)

// Dimensions 保存用户输入的原始尺寸文本，直到计算价格时才解析。
type Dimensions struct {
	Length   string `json:"length"`
	Width    string `json:"width"`
	Diameter string `json:"diameter"`
}

// Get 按字段名读取原始文本
func (d Dimensions) Get(field DimensionField) string {
	switch field {
	case FieldLength:
		return d.Length
	case FieldWidth:
		return d.Width
	case FieldDiameter:
		return d.Diameter
	}
	return ""
}

// parseDimension 解析单个尺寸。空值、非数字、非有限值以及非正数都视为“未填写”。
func parseDimension(raw string) (float64, bool) {
	s := strings.ReplaceAll(strings.TrimSpace(raw), ",", ".")
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0, false
	}
	return v, true
}

// Area 按形状计算面积（平方厘米）。任何相关字段无法解析、或结果溢出为非有限值时返回 0。
func Area(shape Shape, dims Dimensions) float64 {
	area := rawArea(shape, dims)
	if math.IsInf(area, 0) || math.IsNaN(area) {
		return 0
	}
	return area
}

func rawArea(shape Shape, dims Dimensions) float64 {
	switch shape {
	case ShapeRectangle, ShapeOval:
		l, okL := parseDimension(dims.Length)
		w, okW := parseDimension(dims.Width)
		if !okL || !okW {
			return 0
		}
		return l * w
	case ShapeSquare:
		l, ok := parseDimension(dims.Length)
		if !ok {
			return 0
		}
		return l * l
	case ShapeRound:
		d, ok := parseDimension(dims.Diameter)
		if !ok {
			return 0
		}
		r := d / 2
		return math.Pi * r * r
	}
	return 0
}

// Price 是纯函数：price = round((BaseFee + area*UnitRate) * multiplier, 2)。
// 返回 0 表示“尚无有效价格”，调用方不能把它当作免费。
func Price(shape Shape, thickness Thickness, dims Dimensions) decimal.Decimal {
	area := Area(shape, dims)
	if area <= 0 || !thickness.Valid() {
		return decimal.Zero
	}
	subtotal := BaseFee.Add(decimal.NewFromFloat(area).Mul(UnitRate))
	return subtotal.Mul(thickness.Multiplier()).Round(2)
}

// FormatMoney 按两位小数输出金额
func FormatMoney(amount decimal.Decimal) string {
	return "$" + amount.StringFixed(2)
}
