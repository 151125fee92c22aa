package schema

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/ohler55/ojg/jp"
)

// Rule is a cross-field constraint evaluated against the coerced object,
// for example `offset <= limit` or `!(has_card && card == "")`. Fields are
// variables; absent fields are nil.
type Rule struct {
	// Expr is an expr-lang boolean expression
	Expr string `json:"expr" yaml:"expr"`

	// Message replaces the default failure message
	Message string `json:"message,omitempty" yaml:"message,omitempty"`
}

func compileRules(rules []Rule) ([]*vm.Program, error) {
	programs := make([]*vm.Program, 0, len(rules))
	for i, r := range rules {
		if r.Expr == "" {
			return nil, fmt.Errorf("rule %d: empty expression", i)
		}
		program, err := expr.Compile(r.Expr, expr.AsBool(), expr.AllowUndefinedVariables())
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", r.Expr, err)
		}
		programs = append(programs, program)
	}
	return programs, nil
}

// checkRules runs every rule against env. A rule that errors at runtime
// counts as failed.
func (w *walker) checkRules(p jp.Expr, rules []Rule, env map[string]any) {
	for i, program := range w.prog.rules {
		out, err := expr.Run(program, env)
		if ok, _ := out.(bool); err == nil && ok {
			continue
		}
		if rules[i].Message != "" {
			d := detail(p, CodeRule, "")
			d.Message = rules[i].Message
			w.errs.add(d)
			continue
		}
		w.errs.add(detail(p, CodeRule, "failed rule %q", rules[i].Expr))
	}
}
