// internal/service/quote/domain/widget.go
package domain

// Anchor 是页面中计算器区块的锚点，导航和行动按钮通过它滚动到计算器。
const Anchor = "calculator"

// ContactRules 定义了联系信息的校验规则。
// 它位于领域层，具体的规则引擎由基础设施层实现。
type ContactRules interface {
	Validate(contact Contact) error
}

// RequiredContactRules 是默认规则：姓名、电话、城市不能为空。
type RequiredContactRules struct{}

func (RequiredContactRules) Validate(contact Contact) error {
	if missing := contact.MissingRequired(); len(missing) > 0 {
		return &MissingContactError{Fields: missing}
	}
	return nil
}

// Widget 是计价下单组件的完整状态：配置器、购物篮、联系信息和提交状态。
// 所有操作都作用在这一条显式的记录上，没有全局状态。
type Widget struct {
	Configuration Configuration
	Basket        *Basket
	Contact       Contact
	Submission    Submission
}

func NewWidget() *Widget {
	return &Widget{
		Configuration: NewConfiguration(),
		Basket:        NewBasket(),
		Submission:    Submission{Status: SubmissionIdle},
	}
}

// Commit 把当前配置加入购物篮。提交进行中时购物篮被锁定。
func (w *Widget) Commit() (OrderItem, error) {
	if w.Submission.Status == SubmissionSubmitting {
		return OrderItem{}, ErrSubmissionInFlight
	}
	return w.Configuration.Commit(w.Basket)
}

// RemoveItem 删除购物篮中的条目，不存在时返回 false 且不报错。
func (w *Widget) RemoveItem(id string) (bool, error) {
	if w.Submission.Status == SubmissionSubmitting {
		return false, ErrSubmissionInFlight
	}
	return w.Basket.Remove(id), nil
}

// BeginSubmission 做本地校验并进入 Submitting。
// 正在提交或已成功时直接返回错误且不改变状态；本地校验失败时进入 Failed，不会产生任何网络请求。
func (w *Widget) BeginSubmission(contact Contact, rules ContactRules) (*Order, error) {
	if err := w.Submission.CanSubmit(); err != nil {
		return nil, err
	}
	w.Contact = contact

	order, err := NewOrder(w.Configuration, w.Basket, contact)
	if err != nil {
		w.Submission.Fail(UserMessage(err))
		return nil, err
	}
	if rules == nil {
		rules = RequiredContactRules{}
	}
	if err := rules.Validate(contact); err != nil {
		w.Submission.Fail(UserMessage(err))
		return nil, err
	}

	if err := w.Submission.Begin(); err != nil {
		return nil, err
	}
	return order, nil
}

// CompleteSubmission 根据接单结果完成状态流转。
// 成功时清空购物篮和联系信息；失败时购物篮和配置保持不变，用户可以直接重试。
func (w *Widget) CompleteSubmission(err error) {
	if err != nil {
		w.Submission.Fail(UserMessage(err))
		return
	}
	w.Basket.Clear()
	w.Contact = Contact{}
	w.Submission.Succeed()
}
