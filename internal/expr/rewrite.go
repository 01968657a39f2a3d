package expr

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrUnboundVariable is returned when a document variable placeholder has
	// no value.
	ErrUnboundVariable = errors.New("expr: unbound document variable")
	// ErrFreeParam is returned when evaluation reaches a parameter that was
	// never substituted.
	ErrFreeParam = errors.New("expr: free parameter")
)

// Replace substitutes with for every occurrence of old anywhere in e.
// Untouched subtrees are shared with e; e itself is never modified.
func Replace(e Expr, old *Param, with Expr) Expr {
	if old == nil {
		return e
	}
	return rewrite(e, func(n Expr) (Expr, bool) {
		if p, ok := n.(*Param); ok && p == old {
			return with, true
		}
		return nil, false
	})
}

// ReplaceVars substitutes every document variable placeholder in e with the
// matching value from vars. All missing names are reported in one error.
func ReplaceVars(e Expr, vars map[string]any) (Expr, error) {
	var missing []string
	out := rewrite(e, func(n Expr) (Expr, bool) {
		v, ok := n.(*Var)
		if !ok {
			return nil, false
		}
		val, found := vars[v.Name]
		if !found {
			missing = append(missing, v.Name)
			return n, true
		}
		return Constant(val), true
	})
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("%w: %s", ErrUnboundVariable, strings.Join(missing, ", "))
	}
	return out, nil
}

// Rewrite applies fn top-down. When fn reports true its result replaces the
// node and the node's children are not visited.
func Rewrite(e Expr, fn func(Expr) (Expr, bool)) Expr {
	return rewrite(e, fn)
}

func rewrite(e Expr, fn func(Expr) (Expr, bool)) Expr {
	if e == nil {
		return nil
	}
	if r, ok := fn(e); ok {
		return r
	}
	switch n := e.(type) {
	case *Member:
		t := rewrite(n.Target, fn)
		if t == n.Target {
			return n
		}
		return &Member{Target: t, Name: n.Name}
	case *Call:
		t := rewrite(n.Target, fn)
		args, changed := rewriteList(n.Args, fn)
		if t == n.Target && !changed {
			return n
		}
		return &Call{Method: n.Method, Target: t, Args: args}
	case *Lambda:
		body := rewrite(n.Body, fn)
		if body == n.Body {
			return n
		}
		return &Lambda{Params: n.Params, Body: body}
	case *New:
		changed := false
		fields := make([]Binding, len(n.Fields))
		for i, f := range n.Fields {
			v := rewrite(f.Value, fn)
			if v != f.Value {
				changed = true
			}
			fields[i] = Binding{Name: f.Name, Value: v}
		}
		if !changed {
			return n
		}
		return &New{Fields: fields}
	case *Cond:
		t, a, b := rewrite(n.Test, fn), rewrite(n.Then, fn), rewrite(n.Else, fn)
		if t == n.Test && a == n.Then && b == n.Else {
			return n
		}
		return &Cond{Test: t, Then: a, Else: b}
	case *Binary:
		l, r := rewrite(n.Left, fn), rewrite(n.Right, fn)
		if l == n.Left && r == n.Right {
			return n
		}
		return &Binary{Op: n.Op, Left: l, Right: r}
	}
	return e
}

func rewriteList(list []Expr, fn func(Expr) (Expr, bool)) ([]Expr, bool) {
	if len(list) == 0 {
		return list, false
	}
	changed := false
	out := make([]Expr, len(list))
	for i, a := range list {
		out[i] = rewrite(a, fn)
		if out[i] != a {
			changed = true
		}
	}
	if !changed {
		return list, false
	}
	return out, true
}

// Walk visits e in pre-order. Children of a node are skipped when fn returns
// false for it.
func Walk(e Expr, fn func(Expr) bool) {
	if e == nil || !fn(e) {
		return
	}
	for _, c := range children(e) {
		Walk(c, fn)
	}
}

func children(e Expr) []Expr {
	switch n := e.(type) {
	case *Member:
		return []Expr{n.Target}
	case *Call:
		return append([]Expr{n.Target}, n.Args...)
	case *Lambda:
		return []Expr{n.Body}
	case *New:
		out := make([]Expr, len(n.Fields))
		for i, f := range n.Fields {
			out[i] = f.Value
		}
		return out
	case *Cond:
		return []Expr{n.Test, n.Then, n.Else}
	case *Binary:
		return []Expr{n.Left, n.Right}
	}
	return nil
}

// References reports whether p occurs anywhere in e.
func References(e Expr, p *Param) bool {
	found := false
	Walk(e, func(n Expr) bool {
		if found {
			return false
		}
		if q, ok := n.(*Param); ok && q == p {
			found = true
		}
		return !found
	})
	return found
}

// Count returns the number of occurrences of p in e.
func Count(e Expr, p *Param) int {
	n := 0
	Walk(e, func(x Expr) bool {
		if q, ok := x.(*Param); ok && q == p {
			n++
		}
		return true
	})
	return n
}

// FreeParams returns the parameters used in e that no enclosing lambda
// binds, in first-occurrence order.
func FreeParams(e Expr) []*Param {
	var out []*Param
	seen := make(map[*Param]bool)
	var visit func(e Expr, bound map[*Param]bool)
	visit = func(e Expr, bound map[*Param]bool) {
		switch n := e.(type) {
		case nil:
			return
		case *Param:
			if !bound[n] && !seen[n] {
				seen[n] = true
				out = append(out, n)
			}
		case *Lambda:
			inner := make(map[*Param]bool, len(bound)+len(n.Params))
			for p := range bound {
				inner[p] = true
			}
			for _, p := range n.Params {
				inner[p] = true
			}
			visit(n.Body, inner)
		default:
			for _, c := range children(e) {
				visit(c, bound)
			}
		}
	}
	visit(e, map[*Param]bool{})
	return out
}

// HasVars reports whether e still contains document variable placeholders.
func HasVars(e Expr) bool {
	found := false
	Walk(e, func(n Expr) bool {
		if _, ok := n.(*Var); ok {
			found = true
		}
		return !found
	})
	return found
}
