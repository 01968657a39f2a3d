package expr

import (
	"fmt"
	"strconv"
	"strings"
)

// Expr is a node of a deferred computation. Nodes are immutable once built;
// rewriting functions in this package return new trees and never modify
// their input, so a tree may be shared between goroutines.
type Expr interface {
	String() string

	// isExpr is a no-op used to tag the known node types.
	isExpr()
}

var _ Expr = (*Param)(nil)
var _ Expr = (*Const)(nil)
var _ Expr = (*Var)(nil)
var _ Expr = (*Member)(nil)
var _ Expr = (*Call)(nil)
var _ Expr = (*Lambda)(nil)
var _ Expr = (*New)(nil)
var _ Expr = (*Cond)(nil)
var _ Expr = (*Binary)(nil)

// Param is a bound variable. Two params are the same variable only when they
// are the same pointer; the name is informational.
type Param struct {
	Name string
	// TypeName is the GraphQL type the parameter stands for, if any.
	TypeName string
	// Shape is set for argument parameters.
	Shape *Shape
}

func (p *Param) isExpr() {}
func (p *Param) String() string {
	if p == nil {
		return "<nil>"
	}
	return p.Name
}

// NewParam returns a fresh bound variable for a value of the named type.
func NewParam(name, typeName string) *Param {
	return &Param{Name: name, TypeName: typeName}
}

// NewShapeParam returns a fresh bound variable for an instance of shape.
func NewShapeParam(shape *Shape) *Param {
	return &Param{Name: "arg_" + shape.Name, TypeName: shape.Name, Shape: shape}
}

// Const is a closed value.
type Const struct {
	Value any
}

func (c *Const) isExpr() {}
func (c *Const) String() string {
	switch v := c.Value.(type) {
	case nil:
		return "null"
	case string:
		return strconv.Quote(v)
	case *ShapeValue:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// Constant wraps v as a closed expression.
func Constant(v any) *Const { return &Const{Value: v} }

// Var is a document variable placeholder, substituted by ReplaceVars.
type Var struct {
	Name string
}

func (v *Var) isExpr()          {}
func (v *Var) String() string   { return "$" + v.Name }
func Variable(name string) *Var { return &Var{Name: name} }

// Member reads a named member of Target.
type Member struct {
	Target Expr
	Name   string
}

func (m *Member) isExpr()        {}
func (m *Member) String() string { return m.Target.String() + "." + m.Name }

// Prop returns an access of member name on target.
func Prop(target Expr, name string) *Member { return &Member{Target: target, Name: name} }

// Call invokes a sequence or value method on Target. The methods known to
// the evaluator are listed in eval.go.
type Call struct {
	Method string
	Target Expr
	Args   []Expr
}

func (c *Call) isExpr() {}
func (c *Call) String() string {
	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		args[i] = a.String()
	}
	return c.Target.String() + "." + c.Method + "(" + strings.Join(args, ", ") + ")"
}

// CallMethod returns a call of method on target.
func CallMethod(method string, target Expr, args ...Expr) *Call {
	return &Call{Method: method, Target: target, Args: args}
}

// Lambda introduces Params that are bound within Body.
type Lambda struct {
	Params []*Param
	Body   Expr
}

func (l *Lambda) isExpr() {}
func (l *Lambda) String() string {
	names := make([]string, len(l.Params))
	for i, p := range l.Params {
		names[i] = p.Name
	}
	return "(" + strings.Join(names, ", ") + ") => " + l.Body.String()
}

// Fn returns a lambda over a single parameter.
func Fn(p *Param, body Expr) *Lambda { return &Lambda{Params: []*Param{p}, Body: body} }

// Binding is one member of an object construction.
type Binding struct {
	Name  string
	Value Expr
}

// New constructs an object from named bindings. It evaluates to a
// map[string]any.
type New struct {
	Fields []Binding
}

func (n *New) isExpr() {}
func (n *New) String() string {
	parts := make([]string, len(n.Fields))
	for i, f := range n.Fields {
		parts[i] = f.Name + " = " + f.Value.String()
	}
	return "new {" + strings.Join(parts, ", ") + "}"
}

// Object returns an object construction node.
func Object(fields ...Binding) *New { return &New{Fields: fields} }

// Cond is a conditional expression.
type Cond struct {
	Test Expr
	Then Expr
	Else Expr
}

func (c *Cond) isExpr() {}
func (c *Cond) String() string {
	return "(" + c.Test.String() + " ? " + c.Then.String() + " : " + c.Else.String() + ")"
}

func If(test, then, els Expr) *Cond { return &Cond{Test: test, Then: then, Else: els} }

// Op is a binary operator.
type Op string

const (
	OpEqual        Op = "=="
	OpNotEqual     Op = "!="
	OpLess         Op = "<"
	OpLessEqual    Op = "<="
	OpGreater      Op = ">"
	OpGreaterEqual Op = ">="
	OpAnd          Op = "&&"
	OpOr           Op = "||"
	OpAdd          Op = "+"
	OpSubtract     Op = "-"
)

// Binary applies Op to Left and Right.
type Binary struct {
	Op    Op
	Left  Expr
	Right Expr
}

func (b *Binary) isExpr() {}
func (b *Binary) String() string {
	return "(" + b.Left.String() + " " + string(b.Op) + " " + b.Right.String() + ")"
}

func BinaryOp(op Op, left, right Expr) *Binary { return &Binary{Op: op, Left: left, Right: right} }
