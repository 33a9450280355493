// internal/service/quote/domain/event.go
package domain

import "time"

// OrderSubmitted 是订单被接单端点接受后发布的事件
type OrderSubmitted struct {
	EventID     string    `json:"eventId"`
	TraceID     string    `json:"traceId,omitempty"`
	OrderID     string    `json:"orderId"`
	SessionID   string    `json:"sessionId"`
	ItemCount   int       `json:"itemCount"`
	Total       string    `json:"total"`
	City        string    `json:"city"`
	Summary     string    `json:"summary"`
	SubmittedAt time.Time `json:"submittedAt"`
}
