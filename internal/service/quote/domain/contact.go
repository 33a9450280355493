// internal/service/quote/domain/contact.go
package domain

import "strings"

// Contact 是下单时填写的联系信息。FullName、Phone、City 为必填。
type Contact struct {
	FullName string `json:"fullName"`
	Phone    string `json:"phone"`
	City     string `json:"city"`
	Address  string `json:"address,omitempty"`
	Email    string `json:"email,omitempty"`
	Notes    string `json:"notes,omitempty"`
}

// Fields 以表单字段名为键返回所有联系字段，供规则引擎和表单编码使用。
func (c Contact) Fields() map[string]string {
	return map[string]string{
		"fullName": c.FullName,
		"phone":    c.Phone,
		"city":     c.City,
		"address":  c.Address,
		"email":    c.Email,
		"notes":    c.Notes,
	}
}

// MissingRequired 返回空白的必填字段，按固定顺序
func (c Contact) MissingRequired() []string {
	var missing []string
	for _, f := range []struct {
		name  string
		value string
	}{
		{"fullName", c.FullName},
		{"phone", c.Phone},
		{"city", c.City},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}
