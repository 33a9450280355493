// internal/service/quote/domain/errors.go
package domain

import (
	"strings"

	"github.com/pkg/errors"
)

var (
	ErrInvalidShape       = errors.New("unknown table shape")
	ErrInvalidThickness   = errors.New("unknown thickness tier")
	ErrInvalidDimension   = errors.New("unknown dimension field")
	ErrPriceNotReady      = errors.New("enter valid dimensions to get a price before adding to the basket")
	ErrDuplicateItem      = errors.New("basket already contains an item with this id")
	ErrEmptyBasket        = errors.New("your basket is empty, add at least one item before ordering")
	ErrMissingContact     = errors.New("please fill in the required contact fields")
	ErrSubmissionInFlight = errors.New("an order is already being submitted")
	ErrInvalidTransition  = errors.New("order submission is not allowed in the current state")

	// ErrIntakeRejected 表示请求到达了服务端但被拒绝
	ErrIntakeRejected = errors.New("the order service rejected the request")
	// ErrIntakeUnreachable 表示请求根本没有发出去或没有收到任何响应
	ErrIntakeUnreachable = errors.New("the order service could not be reached")
)

// 展示给用户的通用失败文案
const (
	MsgIntakeRejected    = "Oops! There was a problem submitting your order. Please try again."
	MsgIntakeUnreachable = "Oops! We could not reach our order service. Please check your connection and try again."
)

// IntakeFieldError 是接单端点返回的字段级错误，Messages 保持端点给出的顺序。
type IntakeFieldError struct {
	Messages []string
}

func (e *IntakeFieldError) Error() string {
	return strings.Join(e.Messages, ", ")
}

// Is 让 errors.Is(err, ErrIntakeRejected) 对字段级错误同样成立
func (e *IntakeFieldError) Is(target error) bool {
	return target == ErrIntakeRejected
}

// MissingContactError 列出缺失的必填联系字段
type MissingContactError struct {
	Fields []string
}

func (e *MissingContactError) Error() string {
	return ErrMissingContact.Error() + ": " + strings.Join(e.Fields, ", ")
}

func (e *MissingContactError) Is(target error) bool {
	return target == ErrMissingContact
}

// UserMessage 把提交失败的错误转换为可以直接展示给用户的文案。
func UserMessage(err error) string {
	var fieldErr *IntakeFieldError
	switch {
	case errors.As(err, &fieldErr):
		return fieldErr.Error()
	case errors.Is(err, ErrIntakeUnreachable):
		return MsgIntakeUnreachable
	case errors.Is(err, ErrIntakeRejected):
		return MsgIntakeRejected
	case errors.Is(err, ErrEmptyBasket), errors.Is(err, ErrMissingContact):
		return err.Error()
	default:
		return MsgIntakeRejected
	}
}
