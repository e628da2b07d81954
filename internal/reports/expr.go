// Package reports computes custom per-family report columns. Column logic is
// a small expression tree evaluated by a closed interpreter; nothing received
// from the language model is ever executed as code.
package reports

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"campaid/internal/family"
	"campaid/internal/utils"
	"campaid/pkg/types"
)

type Op string

const (
	OpConst    Op = "const"
	OpField    Op = "field"
	OpCount    Op = "count"
	OpList     Op = "list"
	OpSum      Op = "sum"
	OpEq       Op = "eq"
	OpNe       Op = "ne"
	OpLt       Op = "lt"
	OpLe       Op = "le"
	OpGt       Op = "gt"
	OpGe       Op = "ge"
	OpAnd      Op = "and"
	OpOr       Op = "or"
	OpNot      Op = "not"
	OpContains Op = "contains"
	OpIf       Op = "if"
	OpAge      Op = "age"
)

// Expr is one node of a column expression.
//
//	{"op":"count","where":{"op":"lt","args":[{"op":"age"},{"op":"const","value":5}]}}
//
// counts the members under five.
type Expr struct {
	Op    Op      `json:"op"`
	Value any     `json:"value,omitempty"`
	Field string  `json:"field,omitempty"`
	Args  []*Expr `json:"args,omitempty"`
	Where *Expr   `json:"where,omitempty"`
	Sep   string  `json:"sep,omitempty"`
}

func Const(v any) *Expr {
	return &Expr{Op: OpConst, Value: v}
}

func Field(path string) *Expr {
	return &Expr{Op: OpField, Field: path}
}

func Call(op Op, args ...*Expr) *Expr {
	return &Expr{Op: op, Args: args}
}

// Context is what a column expression sees for one family.
type Context struct {
	Family  *types.Family
	Members []*types.Individual
	Now     time.Time

	member *types.Individual
}

const maxDepth = 32

var (
	familyFields = fieldSet(types.Family{})
	memberFields = fieldSet(types.Individual{})
)

func fieldSet(v any) map[string]bool {
	out := make(map[string]bool)
	for _, col := range utils.StructTagValues(v) {
		out[col] = true
	}
	return out
}

var ErrInvalidExpr = errors.New("invalid report expression")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidExpr, fmt.Sprintf(format, args...))
}

// Validate checks e against the grammar: known operators, arities and field
// names. member.* fields and age are only allowed inside a where clause.
func Validate(e *Expr) error {
	return validate(e, false, 0)
}

func validate(e *Expr, inMember bool, depth int) error {
	if e == nil {
		return invalid("missing expression")
	}
	if depth > maxDepth {
		return invalid("expression nested deeper than %d", maxDepth)
	}

	arity := func(n int) error {
		if len(e.Args) != n {
			return invalid("%s takes %d arguments, got %d", e.Op, n, len(e.Args))
		}
		return nil
	}

	switch e.Op {
	case OpConst:
		switch e.Value.(type) {
		case nil, string, bool, float64, int:
		default:
			return invalid("unsupported constant %T", e.Value)
		}
		return nil
	case OpField:
		return validateField(e.Field, inMember)
	case OpAge:
		if !inMember {
			return invalid("age is only available inside a member filter")
		}
		return arity(0)
	case OpCount, OpList, OpSum:
		if inMember {
			return invalid("%s cannot be nested inside a member filter", e.Op)
		}
		if e.Op != OpCount {
			if !strings.HasPrefix(e.Field, "member.") {
				return invalid("%s needs a member field, got %q", e.Op, e.Field)
			}
			if err := validateField(e.Field, true); err != nil {
				return err
			}
		}
		if e.Where != nil {
			return validate(e.Where, true, depth+1)
		}
		return nil
	case OpNot:
		if err := arity(1); err != nil {
			return err
		}
	case OpEq, OpNe, OpLt, OpLe, OpGt, OpGe, OpContains:
		if err := arity(2); err != nil {
			return err
		}
	case OpAnd, OpOr:
		if len(e.Args) < 2 {
			return invalid("%s takes at least 2 arguments", e.Op)
		}
	case OpIf:
		if err := arity(3); err != nil {
			return err
		}
	default:
		return invalid("unknown operator %q", e.Op)
	}

	for _, arg := range e.Args {
		if err := validate(arg, inMember, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func validateField(path string, inMember bool) error {
	scope, name, ok := strings.Cut(path, ".")
	if !ok {
		return invalid("field %q must be family.<name> or member.<name>", path)
	}
	switch scope {
	case "family":
		if !familyFields[name] {
			return invalid("unknown family field %q", name)
		}
	case "member":
		if !inMember {
			return invalid("member field %q used outside a member filter", name)
		}
		if !memberFields[name] {
			return invalid("unknown member field %q", name)
		}
	default:
		return invalid("unknown field scope %q", scope)
	}
	return nil
}

// Eval evaluates a validated expression. Results are nil, string, bool or float64.
func Eval(e *Expr, c Context) (any, error) {
	if err := Validate(e); err != nil {
		return nil, err
	}
	return eval(e, &c)
}

func eval(e *Expr, c *Context) (any, error) {
	switch e.Op {
	case OpConst:
		if i, ok := e.Value.(int); ok {
			return float64(i), nil
		}
		return e.Value, nil
	case OpField:
		return fieldValue(e.Field, c), nil
	case OpAge:
		return memberAge(c.member, c.Now), nil
	case OpCount:
		members, err := filterMembers(e.Where, c)
		if err != nil {
			return nil, err
		}
		return float64(len(members)), nil
	case OpList:
		members, err := filterMembers(e.Where, c)
		if err != nil {
			return nil, err
		}
		sep := e.Sep
		if sep == "" {
			sep = ", "
		}
		parts := make([]string, 0, len(members))
		for _, m := range members {
			inner := *c
			inner.member = m
			if s := Format(fieldValue(e.Field, &inner)); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, sep), nil
	case OpSum:
		members, err := filterMembers(e.Where, c)
		if err != nil {
			return nil, err
		}
		var total float64
		for _, m := range members {
			inner := *c
			inner.member = m
			if n, ok := toNumber(fieldValue(e.Field, &inner)); ok {
				total += n
			}
		}
		return total, nil
	case OpNot:
		v, err := eval(e.Args[0], c)
		if err != nil {
			return nil, err
		}
		return !truthy(v), nil
	case OpAnd:
		for _, arg := range e.Args {
			v, err := eval(arg, c)
			if err != nil {
				return nil, err
			}
			if !truthy(v) {
				return false, nil
			}
		}
		return true, nil
	case OpOr:
		for _, arg := range e.Args {
			v, err := eval(arg, c)
			if err != nil {
				return nil, err
			}
			if truthy(v) {
				return true, nil
			}
		}
		return false, nil
	case OpIf:
		cond, err := eval(e.Args[0], c)
		if err != nil {
			return nil, err
		}
		if truthy(cond) {
			return eval(e.Args[1], c)
		}
		return eval(e.Args[2], c)
	}

	left, err := eval(e.Args[0], c)
	if err != nil {
		return nil, err
	}
	right, err := eval(e.Args[1], c)
	if err != nil {
		return nil, err
	}

	if e.Op == OpContains {
		return strings.Contains(strings.ToLower(Format(left)), strings.ToLower(Format(right))), nil
	}

	cmp := compare(left, right)
	switch e.Op {
	case OpEq:
		return cmp == 0, nil
	case OpNe:
		return cmp != 0, nil
	case OpLt:
		return cmp < 0, nil
	case OpLe:
		return cmp <= 0, nil
	case OpGt:
		return cmp > 0, nil
	case OpGe:
		return cmp >= 0, nil
	}

	return nil, invalid("unknown operator %q", e.Op)
}

func filterMembers(where *Expr, c *Context) ([]*types.Individual, error) {
	out := make([]*types.Individual, 0, len(c.Members))
	for _, m := range c.Members {
		if where == nil {
			out = append(out, m)
			continue
		}
		inner := *c
		inner.member = m
		ok, err := eval(where, &inner)
		if err != nil {
			return nil, err
		}
		if truthy(ok) {
			out = append(out, m)
		}
	}
	return out, nil
}

func fieldValue(path string, c *Context) any {
	scope, name, _ := strings.Cut(path, ".")

	var values map[string]any
	switch {
	case scope == "family" && c.Family != nil:
		values = utils.StructToMap(c.Family)
	case scope == "member" && c.member != nil:
		values = utils.StructToMap(c.member)
	default:
		return nil
	}

	return normalize(values[name])
}

// normalize reduces column values to nil, string, bool or float64.
func normalize(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case *string:
		if t == nil {
			return nil
		}
		return *t
	case string:
		return t
	case bool:
		return t
	case int:
		return float64(t)
	case float64:
		return t
	case time.Time:
		return t.Format("2006-01-02")
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

// memberAge is the member's age in whole years, or nil when the birth date
// cannot be read.
func memberAge(m *types.Individual, now time.Time) any {
	if m == nil {
		return nil
	}
	dob, err := family.ParseDate(m.DateOfBirth, now)
	if err != nil {
		return nil
	}

	age := now.Year() - dob.Year
	if int(now.Month()) < dob.Month || (int(now.Month()) == dob.Month && now.Day() < dob.Day) {
		age--
	}
	return float64(age)
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	}
	return true
}

func toNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case bool:
		if t {
			return 1, true
		}
		return 0, true
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return n, err == nil
	}
	return 0, false
}

// compare orders numbers numerically when both sides are numeric and
// everything else by its formatted text, case-insensitively.
func compare(a, b any) int {
	if an, ok := toNumber(a); ok {
		if bn, ok := toNumber(b); ok {
			switch {
			case an < bn:
				return -1
			case an > bn:
				return 1
			}
			return 0
		}
	}
	return strings.Compare(strings.ToLower(Format(a)), strings.ToLower(Format(b)))
}

// Format renders a value as a report cell.
func Format(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case bool:
		if t {
			return "yes"
		}
		return "no"
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1e15 {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', 2, 64)
	case string:
		return t
	}
	return fmt.Sprint(v)
}
