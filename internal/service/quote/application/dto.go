// internal/service/quote/application/dto.go
package application

import (
	"tablecover/internal/service/quote/domain"
)

// ItemView 是购物篮条目的输出数据
type ItemView struct {
	ID             string `json:"id"`
	Shape          string `json:"shape"`
	ShapeLabel     string `json:"shapeLabel"`
	Thickness      string `json:"thickness"`
	ThicknessLabel string `json:"thicknessLabel"`
	Dimensions     string `json:"dimensions"`
	Price          string `json:"price"`
}

// ConfigurationView 是配置器的输出数据，Fields 是当前形状需要填写的尺寸字段
type ConfigurationView struct {
	Shape      string                  `json:"shape"`
	Thickness  string                  `json:"thickness"`
	Dimensions domain.Dimensions       `json:"dimensions"`
	Fields     []domain.DimensionField `json:"fields"`
	Price      string                  `json:"price"`
	Ready      bool                    `json:"ready"`
}

// Snapshot 是组件在某一时刻的完整视图
type Snapshot struct {
	SessionID     string            `json:"sessionId"`
	Anchor        string            `json:"anchor"`
	Configuration ConfigurationView `json:"configuration"`
	Basket        []ItemView        `json:"basket"`
	Total         string            `json:"total"`
	Contact       domain.Contact    `json:"contact"`
	Submission    domain.Submission `json:"submission"`
}

// QuoteRequest 是无状态报价的输入
type QuoteRequest struct {
	Shape     string
	Thickness string
	domain.Dimensions
}

// QuoteResponse 是无状态报价的输出，Price 为 "0.00" 且 Ready 为 false 表示尚无有效价格
type QuoteResponse struct {
	Shape      string `json:"shape"`
	Thickness  string `json:"thickness"`
	Dimensions string `json:"dimensions,omitempty"`
	Price      string `json:"price"`
	Ready      bool   `json:"ready"`
}

type ShapeOption struct {
	Value  string                  `json:"value"`
	Label  string                  `json:"label"`
	Fields []domain.DimensionField `json:"fields"`
}

type ThicknessOption struct {
	Value      string `json:"value"`
	Label      string `json:"label"`
	Multiplier string `json:"multiplier"`
}

// OptionsResponse 列出页面渲染计算器所需的全部选项
type OptionsResponse struct {
	Anchor      string            `json:"anchor"`
	BaseFee     string            `json:"baseFee"`
	UnitRate    string            `json:"unitRate"`
	Shapes      []ShapeOption     `json:"shapes"`
	Thicknesses []ThicknessOption `json:"thicknesses"`
}

func toItemView(item domain.OrderItem) ItemView {
	return ItemView{
		ID:             item.ID,
		Shape:          string(item.Shape),
		ShapeLabel:     item.Shape.Label(),
		Thickness:      string(item.Thickness),
		ThicknessLabel: item.Thickness.Label(),
		Dimensions:     item.Dimensions,
		Price:          item.Price.StringFixed(2),
	}
}

// toSnapshot 必须在持有会话锁时调用
func toSnapshot(sessionID string, w *domain.Widget) *Snapshot {
	cfg := w.Configuration
	price := cfg.Price()

	items := w.Basket.Items()
	basket := make([]ItemView, 0, len(items))
	for _, item := range items {
		basket = append(basket, toItemView(item))
	}

	return &Snapshot{
		SessionID: sessionID,
		Anchor:    domain.Anchor,
		Configuration: ConfigurationView{
			Shape:      string(cfg.Shape),
			Thickness:  string(cfg.Thickness),
			Dimensions: cfg.Dimensions,
			Fields:     cfg.Shape.Fields(),
			Price:      price.StringFixed(2),
			Ready:      price.IsPositive(),
		},
		Basket:     basket,
		Total:      w.Basket.Total().StringFixed(2),
		Contact:    w.Contact,
		Submission: w.Submission,
	}
}
