// internal/service/quote/domain/thickness.go
package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Thickness 定义了材料厚度档位，每个档位对应一个固定的价格系数。
type Thickness string

const (
	ThicknessThin     Thickness = "thin"
	ThicknessStandard Thickness = "standard"
	ThicknessThick    Thickness = "thick"
)

// Thicknesses 按页面展示顺序列出所有厚度档位
var Thicknesses = []Thickness{ThicknessThin, ThicknessStandard, ThicknessThick}

var thicknessMultipliers = map[Thickness]decimal.Decimal{
	ThicknessThin:     decimal.RequireFromString("1.0"),
	ThicknessStandard: decimal.RequireFromString("1.3"),
	ThicknessThick:    decimal.RequireFromString("1.7"),
}

var thicknessLabels = map[Thickness]string{
	ThicknessThin:     "Thin",
	ThicknessStandard: "Standard",
	ThicknessThick:    "Thick",
}

// ParseThickness 将外部传入的标签解析为 Thickness，大小写不敏感。
func ParseThickness(s string) (Thickness, error) {
	t := Thickness(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := thicknessMultipliers[t]; !ok {
		return "", ErrInvalidThickness
	}
	return t, nil
}

func (t Thickness) Valid() bool {
	_, ok := thicknessMultipliers[t]
	return ok
}

func (t Thickness) Label() string {
	return thicknessLabels[t]
}

// Multiplier 返回该档位的价格系数；未知档位返回 0，从而使价格落入“未就绪”状态。
func (t Thickness) Multiplier() decimal.Decimal {
	m, ok := thicknessMultipliers[t]
	if !ok {
		return decimal.Zero
	}
	return m
}
