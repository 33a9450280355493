package adapter

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"

	"github.com/pkg/errors"
	"tablecover/internal/pkg/httpclient"
	"tablecover/internal/service/quote/domain"
)

// intakeResponse 是接单端点响应体的窄契约：只关心一个有序的错误列表。
// 不符合这个结构的响应一律按通用失败处理。
type intakeResponse struct {
	OK     *bool `json:"ok"`
	Errors []struct {
		Field   string `json:"field"`
		Message string `json:"message"`
	} `json:"errors"`
}

// IntakeHTTPAdapter 实现了 port.IntakeService 接口。
type IntakeHTTPAdapter struct {
	client   *httpclient.Client
	endpoint string
}

// NewIntakeHTTPAdapter 创建一个新的接单端点适配器。
func NewIntakeHTTPAdapter(client *httpclient.Client, endpoint string) *IntakeHTTPAdapter {
	return &IntakeHTTPAdapter{client: client, endpoint: endpoint}
}

// SubmitOrder 把联系信息、形状、厚度和订单摘要编码为表单，一次性 POST 到接单端点。
func (a *IntakeHTTPAdapter) SubmitOrder(ctx context.Context, order *domain.Order) error {
	form := EncodeOrderForm(order)

	resp, err := a.client.PostForm(ctx, a.endpoint, form)
	if err != nil {
		return errors.Wrap(domain.ErrIntakeUnreachable, err.Error())
	}
	if resp.OK() && !explicitlyRejected(resp.Body) {
		return nil
	}
	return decodeIntakeError(resp)
}

// EncodeOrderForm 生成发往接单端点的表单字段
func EncodeOrderForm(order *domain.Order) url.Values {
	form := url.Values{}
	for key, value := range order.Contact.Fields() {
		form.Set(key, value)
	}
	form.Set("shape", order.Shape.Label())
	form.Set("thickness", order.Thickness.Label())
	form.Set("order", order.Summary())
	return form
}

// explicitlyRejected 判断 2xx 响应体是否明确声明了 "ok": false
func explicitlyRejected(body []byte) bool {
	var r intakeResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return false
	}
	return r.OK != nil && !*r.OK
}

func decodeIntakeError(resp *httpclient.Response) error {
	var body intakeResponse
	if err := json.Unmarshal(resp.Body, &body); err == nil {
		var messages []string
		for _, e := range body.Errors {
			if msg := strings.TrimSpace(e.Message); msg != "" {
				messages = append(messages, msg)
			}
		}
		if len(messages) > 0 {
			return &domain.IntakeFieldError{Messages: messages}
		}
	}
	return errors.Wrapf(domain.ErrIntakeRejected, "intake endpoint returned status %d", resp.StatusCode)
}
