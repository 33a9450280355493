// internal/service/quote/infrastructure/rule/cel_contact_rules.go
package rule

import (
	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/ext"
	"github.com/pkg/errors"

	"tablecover/internal/service/quote/domain"
)

// ContactRule 是一条联系信息校验规则。Expr 是 CEL 表达式，
// 可以通过 contact.<字段名> 访问表单字段，结果必须是 bool。
type ContactRule struct {
	Field string `yaml:"field"`
	Expr  string `yaml:"expr"`
}

// DefaultContactRules 要求姓名、电话、城市不能为空白
var DefaultContactRules = []ContactRule{
	{Field: "fullName", Expr: `contact.fullName.trim() != ""`},
	{Field: "phone", Expr: `contact.phone.trim() != ""`},
	{Field: "city", Expr: `contact.city.trim() != ""`},
}

type compiledRule struct {
	field   string
	program cel.Program
}

// CELContactRules 是 domain.ContactRules 接口的 CEL 实现。
// 规则在启动时编译一次，之后每次校验只做求值。
type CELContactRules struct {
	rules []compiledRule
}

// NewCELContactRules 编译规则，表达式有语法错误或返回值不是 bool 时返回错误。
func NewCELContactRules(rules []ContactRule) (*CELContactRules, error) {
	if len(rules) == 0 {
		rules = DefaultContactRules
	}
	env, err := cel.NewEnv(
		ext.Strings(),
		cel.Variable("contact", cel.MapType(cel.StringType, cel.StringType)),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create cel environment")
	}

	compiled := make([]compiledRule, 0, len(rules))
	for _, r := range rules {
		ast, iss := env.Compile(r.Expr)
		if iss != nil && iss.Err() != nil {
			return nil, errors.Wrapf(iss.Err(), "invalid contact rule for %q", r.Field)
		}
		if !ast.OutputType().IsExactType(cel.BoolType) {
			return nil, errors.Errorf("contact rule for %q must return bool, got %v", r.Field, ast.OutputType())
		}
		prg, err := env.Program(ast)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to build program for %q", r.Field)
		}
		compiled = append(compiled, compiledRule{field: r.Field, program: prg})
	}
	return &CELContactRules{rules: compiled}, nil
}

// Validate 实现了 domain.ContactRules 接口。求值出错的规则按不通过处理。
func (c *CELContactRules) Validate(contact domain.Contact) error {
	input := map[string]any{"contact": contact.Fields()}

	var failed []string
	for _, r := range c.rules {
		out, _, err := r.program.Eval(input)
		if err != nil {
			failed = append(failed, r.field)
			continue
		}
		if ok, isBool := out.Value().(bool); !isBool || !ok {
			failed = append(failed, r.field)
		}
	}
	if len(failed) > 0 {
		return &domain.MissingContactError{Fields: failed}
	}
	return nil
}
