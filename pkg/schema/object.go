package schema

import (
	"context"
	"fmt"
	"regexp"
	"sync"

	"github.com/expr-lang/expr/vm"
)

// program holds what a schema compiles once: its regular expressions and
// rule programs.
type program struct {
	patterns map[string]*regexp.Regexp
	rules    []*vm.Program
}

func (prog *program) pattern(p string) *regexp.Regexp {
	return prog.patterns[p]
}

func compileProgram(fields map[string]*Field, unknown Unknown, rules []Rule) (*program, error) {
	if err := checkUnknown(unknown); err != nil {
		return nil, err
	}
	prog := &program{patterns: make(map[string]*regexp.Regexp)}
	for _, name := range sortedKeys(fields) {
		if err := prog.compileField(name, fields[name]); err != nil {
			return nil, err
		}
	}
	var err error
	if prog.rules, err = compileRules(rules); err != nil {
		return nil, err
	}
	return prog, nil
}

// Object validates a map of fields: a query string, path parameters,
// headers or an object body.
//
// An Object compiles its patterns and rules on first use and must not be
// modified afterwards. It is safe for concurrent use.
type Object struct {
	// Fields are the known keys.
	Fields map[string]*Field

	// Unknown is the policy for keys without a Field. Default allow.
	Unknown Unknown

	// Rules are checked after every field passed.
	Rules []Rule

	once sync.Once
	prog *program
	err  error
}

// Compile checks the field types, patterns and rules. Validate calls it
// implicitly; calling it at load time reports broken schemas early.
func (o *Object) Compile() error {
	o.once.Do(func() {
		o.prog, o.err = compileProgram(o.Fields, o.Unknown, o.Rules)
	})
	return o.err
}

// FieldNames returns the names of the known keys, sorted.
func (o *Object) FieldNames() []string {
	return sortedKeys(o.Fields)
}

// Validate checks value and returns a coerced copy with defaults applied.
func (o *Object) Validate(_ context.Context, value any) (any, error) {
	if err := o.Compile(); err != nil {
		return nil, brokenSchema(err)
	}

	m, ok := jsonValue(value).(map[string]any)
	if !ok {
		return nil, &Error{Details: []Detail{detail(root(), CodeType, "%s", typeMessage(TypeObject))}}
	}

	w := &walker{prog: o.prog, errs: &Error{}}
	w.object(root(), o.Fields, o.Unknown, m)
	if err := w.errs.err(); err != nil {
		return nil, err
	}

	if len(o.Rules) > 0 {
		w.checkRules(root(), o.Rules, m)
		if err := w.errs.err(); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Scalar validates a single value of any type against one Field, such as a
// response that is a bare string or list.
type Scalar struct {
	Field *Field

	once sync.Once
	prog *program
	err  error
}

// Value returns a Scalar for f.
func Value(f *Field) *Scalar {
	return &Scalar{Field: f}
}

// Compile checks the field tree.
func (s *Scalar) Compile() error {
	s.once.Do(func() {
		if s.Field == nil {
			s.err = fmt.Errorf("no field rules")
			return
		}
		s.prog, s.err = compileProgram(map[string]*Field{"value": s.Field}, "", nil)
	})
	return s.err
}

// Validate checks value and returns its coerced form.
func (s *Scalar) Validate(_ context.Context, value any) (any, error) {
	if err := s.Compile(); err != nil {
		return nil, brokenSchema(err)
	}

	w := &walker{prog: s.prog, errs: &Error{}}
	out := w.value(root(), s.Field, jsonValue(value))
	if err := w.errs.err(); err != nil {
		return nil, err
	}
	return out, nil
}
