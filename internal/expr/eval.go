package expr

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// Eval evaluates a closed expression against in-memory values. It is the
// reference backend: sequences are Go slices, objects are maps, structs or
// shape values. Evaluation fails on free parameters and unbound variables.
//
// Methods understood by Call:
//
//	Skip(n) Take(n)       slice the sequence; a null count is a no-op
//	Count() First()       size and first element (null when empty)
//	Where(fn) Select(fn)  filter and map with a one-parameter lambda
//	OrderBy(keys)         stable sort by member names; "-name" sorts descending
func Eval(ctx context.Context, e Expr) (any, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	return (&evaluator{ctx: ctx}).eval(e, nil)
}

type scope struct {
	param  *Param
	value  any
	parent *scope
}

func (s *scope) lookup(p *Param) (any, bool) {
	for c := s; c != nil; c = c.parent {
		if c.param == p {
			return c.value, true
		}
	}
	return nil, false
}

type closure struct {
	lambda *Lambda
	scope  *scope
}

type evaluator struct {
	ctx context.Context
}

type method func(ev *evaluator, target any, args []Expr, sc *scope) (any, error)

var methods map[string]method

func init() {
	methods = map[string]method{
		"Skip":    skipMethod,
		"Take":    takeMethod,
		"Count":   countMethod,
		"First":   firstMethod,
		"Where":   whereMethod,
		"Select":  selectMethod,
		"OrderBy": orderByMethod,
	}
}

func (ev *evaluator) eval(e Expr, sc *scope) (any, error) {
	if err := ev.ctx.Err(); err != nil {
		return nil, err
	}
	switch n := e.(type) {
	case nil:
		return nil, fmt.Errorf("expr: nil expression")
	case *Const:
		return n.Value, nil
	case *Param:
		if v, ok := sc.lookup(n); ok {
			return v, nil
		}
		return nil, fmt.Errorf("%w: %s", ErrFreeParam, n.Name)
	case *Var:
		return nil, fmt.Errorf("%w: %s", ErrUnboundVariable, n.Name)
	case *Member:
		target, err := ev.eval(n.Target, sc)
		if err != nil {
			return nil, err
		}
		return Lookup(target, n.Name)
	case *Call:
		target, err := ev.eval(n.Target, sc)
		if err != nil {
			return nil, err
		}
		m, ok := methods[n.Method]
		if !ok {
			return nil, fmt.Errorf("expr: unknown method %q", n.Method)
		}
		return m(ev, target, n.Args, sc)
	case *Lambda:
		return &closure{lambda: n, scope: sc}, nil
	case *New:
		out := make(map[string]any, len(n.Fields))
		for _, f := range n.Fields {
			v, err := ev.eval(f.Value, sc)
			if err != nil {
				return nil, err
			}
			out[f.Name] = v
		}
		return out, nil
	case *Cond:
		t, err := ev.eval(n.Test, sc)
		if err != nil {
			return nil, err
		}
		b, ok := t.(bool)
		if !ok {
			return nil, fmt.Errorf("expr: condition evaluated to %T, want bool", t)
		}
		if b {
			return ev.eval(n.Then, sc)
		}
		return ev.eval(n.Else, sc)
	case *Binary:
		return ev.binary(n, sc)
	}
	return nil, fmt.Errorf("expr: cannot evaluate %T", e)
}

func (ev *evaluator) apply(fn any, args ...any) (any, error) {
	c, ok := fn.(*closure)
	if !ok {
		return nil, fmt.Errorf("expr: expected lambda, got %T", fn)
	}
	if len(c.lambda.Params) != len(args) {
		return nil, fmt.Errorf("expr: lambda takes %d arguments, got %d", len(c.lambda.Params), len(args))
	}
	sc := c.scope
	for i, p := range c.lambda.Params {
		sc = &scope{param: p, value: args[i], parent: sc}
	}
	return ev.eval(c.lambda.Body, sc)
}

// intArg evaluates args[i] as an integer. ok is false when the value is null.
func (ev *evaluator) intArg(args []Expr, i int, sc *scope) (n int, ok bool, err error) {
	if i >= len(args) {
		return 0, false, fmt.Errorf("expr: missing argument %d", i)
	}
	v, err := ev.eval(args[i], sc)
	if err != nil {
		return 0, false, err
	}
	if v == nil {
		return 0, false, nil
	}
	n, ok = toInt(v)
	if !ok {
		return 0, false, fmt.Errorf("expr: expected integer, got %T", v)
	}
	return n, true, nil
}

func skipMethod(ev *evaluator, target any, args []Expr, sc *scope) (any, error) {
	items, err := toSlice(target)
	if err != nil {
		return nil, err
	}
	n, ok, err := ev.intArg(args, 0, sc)
	if err != nil || !ok {
		return items, err
	}
	n = clamp(n, len(items))
	return items[n:], nil
}

func takeMethod(ev *evaluator, target any, args []Expr, sc *scope) (any, error) {
	items, err := toSlice(target)
	if err != nil {
		return nil, err
	}
	n, ok, err := ev.intArg(args, 0, sc)
	if err != nil || !ok {
		return items, err
	}
	n = clamp(n, len(items))
	return items[:n], nil
}

func clamp(n, max int) int {
	if n < 0 {
		return 0
	}
	if n > max {
		return max
	}
	return n
}

func countMethod(ev *evaluator, target any, args []Expr, sc *scope) (any, error) {
	items, err := toSlice(target)
	if err != nil {
		return nil, err
	}
	return len(items), nil
}

func firstMethod(ev *evaluator, target any, args []Expr, sc *scope) (any, error) {
	items, err := toSlice(target)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return items[0], nil
}

func whereMethod(ev *evaluator, target any, args []Expr, sc *scope) (any, error) {
	items, err := toSlice(target)
	if err != nil || len(args) != 1 {
		return nil, methodArgError("Where", err, args, 1)
	}
	fn, err := ev.eval(args[0], sc)
	if err != nil {
		return nil, err
	}
	out := make([]any, 0, len(items))
	for _, item := range items {
		keep, err := ev.apply(fn, item)
		if err != nil {
			return nil, err
		}
		b, ok := keep.(bool)
		if !ok {
			return nil, fmt.Errorf("expr: Where predicate returned %T, want bool", keep)
		}
		if b {
			out = append(out, item)
		}
	}
	return out, nil
}

func selectMethod(ev *evaluator, target any, args []Expr, sc *scope) (any, error) {
	items, err := toSlice(target)
	if err != nil || len(args) != 1 {
		return nil, methodArgError("Select", err, args, 1)
	}
	fn, err := ev.eval(args[0], sc)
	if err != nil {
		return nil, err
	}
	out := make([]any, len(items))
	for i, item := range items {
		if out[i], err = ev.apply(fn, item); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func orderByMethod(ev *evaluator, target any, args []Expr, sc *scope) (any, error) {
	items, err := toSlice(target)
	if err != nil || len(args) != 1 {
		return nil, methodArgError("OrderBy", err, args, 1)
	}
	order, err := ev.eval(args[0], sc)
	if err != nil {
		return nil, err
	}
	keys, err := sortKeys(order)
	if err != nil || len(keys) == 0 {
		return items, err
	}
	out := append([]any(nil), items...)
	var sortErr error
	sort.SliceStable(out, func(i, j int) bool {
		for _, k := range keys {
			a, err := Lookup(out[i], k.name)
			if err != nil {
				sortErr = err
				return false
			}
			b, err := Lookup(out[j], k.name)
			if err != nil {
				sortErr = err
				return false
			}
			c, err := compare(a, b)
			if err != nil {
				sortErr = err
				return false
			}
			if c == 0 {
				continue
			}
			if k.desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
	if sortErr != nil {
		return nil, sortErr
	}
	return out, nil
}

type sortKey struct {
	name string
	desc bool
}

func sortKeys(order any) ([]sortKey, error) {
	var names []string
	switch s := order.(type) {
	case nil:
		return nil, nil
	case string:
		names = []string{s}
	case []string:
		names = s
	default:
		items, err := toSlice(order)
		if err != nil {
			return nil, err
		}
		for _, it := range items {
			str, ok := it.(string)
			if !ok {
				return nil, fmt.Errorf("expr: sort key must be a string, got %T", it)
			}
			names = append(names, str)
		}
	}
	keys := make([]sortKey, 0, len(names))
	for _, n := range names {
		if strings.HasPrefix(n, "-") {
			keys = append(keys, sortKey{name: n[1:], desc: true})
		} else {
			keys = append(keys, sortKey{name: n})
		}
	}
	return keys, nil
}

func methodArgError(name string, err error, args []Expr, want int) error {
	if err != nil {
		return err
	}
	return fmt.Errorf("expr: %s takes %d argument(s), got %d", name, want, len(args))
}

func (ev *evaluator) binary(n *Binary, sc *scope) (any, error) {
	l, err := ev.eval(n.Left, sc)
	if err != nil {
		return nil, err
	}
	switch n.Op {
	case OpAnd, OpOr:
		lb, ok := l.(bool)
		if !ok {
			return nil, fmt.Errorf("expr: %s operand is %T, want bool", n.Op, l)
		}
		if (n.Op == OpAnd && !lb) || (n.Op == OpOr && lb) {
			return lb, nil
		}
		r, err := ev.eval(n.Right, sc)
		if err != nil {
			return nil, err
		}
		rb, ok := r.(bool)
		if !ok {
			return nil, fmt.Errorf("expr: %s operand is %T, want bool", n.Op, r)
		}
		return rb, nil
	}
	r, err := ev.eval(n.Right, sc)
	if err != nil {
		return nil, err
	}
	switch n.Op {
	case OpEqual:
		return equal(l, r), nil
	case OpNotEqual:
		return !equal(l, r), nil
	case OpLess, OpLessEqual, OpGreater, OpGreaterEqual:
		c, err := compare(l, r)
		if err != nil {
			return nil, err
		}
		switch n.Op {
		case OpLess:
			return c < 0, nil
		case OpLessEqual:
			return c <= 0, nil
		case OpGreater:
			return c > 0, nil
		default:
			return c >= 0, nil
		}
	case OpAdd, OpSubtract:
		return arithmetic(n.Op, l, r)
	}
	return nil, fmt.Errorf("expr: unknown operator %q", n.Op)
}

func arithmetic(op Op, l, r any) (any, error) {
	if op == OpAdd {
		if ls, ok := l.(string); ok {
			if rs, ok := r.(string); ok {
				return ls + rs, nil
			}
		}
	}
	li, lok := toInt(l)
	ri, rok := toInt(r)
	if lok && rok && !isFloat(l) && !isFloat(r) {
		if op == OpAdd {
			return li + ri, nil
		}
		return li - ri, nil
	}
	lf, lok := toFloat(l)
	rf, rok := toFloat(r)
	if !lok || !rok {
		return nil, fmt.Errorf("expr: cannot apply %s to %T and %T", op, l, r)
	}
	if op == OpAdd {
		return lf + rf, nil
	}
	return lf - rf, nil
}

func equal(a, b any) bool {
	if af, ok := toFloat(a); ok {
		if bf, ok := toFloat(b); ok {
			return af == bf
		}
	}
	return reflect.DeepEqual(a, b)
}

// compare orders numbers, strings and booleans; null sorts first.
func compare(a, b any) (int, error) {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0, nil
		case a == nil:
			return -1, nil
		default:
			return 1, nil
		}
	}
	if af, ok := toFloat(a); ok {
		if bf, ok := toFloat(b); ok {
			switch {
			case af < bf:
				return -1, nil
			case af > bf:
				return 1, nil
			}
			return 0, nil
		}
	}
	if as, ok := a.(string); ok {
		if bs, ok := b.(string); ok {
			return strings.Compare(as, bs), nil
		}
	}
	if ab, ok := a.(bool); ok {
		if bb, ok := b.(bool); ok {
			switch {
			case ab == bb:
				return 0, nil
			case !ab:
				return -1, nil
			}
			return 1, nil
		}
	}
	return 0, fmt.Errorf("expr: cannot compare %T with %T", a, b)
}

func isFloat(v any) bool {
	switch v.(type) {
	case float32, float64:
		return true
	}
	return false
}

func toInt(v any) (int, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return int(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if f == float64(int(f)) {
			return int(f), true
		}
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

func toSlice(v any) ([]any, error) {
	switch s := v.(type) {
	case nil:
		return nil, nil
	case []any:
		return s, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("expr: expected sequence, got %T", v)
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, nil
}

// Lookup reads member name of target the way Member nodes do. A null target
// yields null.
func Lookup(target any, name string) (any, error) {
	switch t := target.(type) {
	case nil:
		return nil, nil
	case *ShapeValue:
		v, ok := t.Get(name)
		if !ok {
			return nil, fmt.Errorf("expr: no member %q on shape %s", name, t.Shape().Name)
		}
		return v, nil
	case map[string]any:
		return t[name], nil
	}
	rv := reflect.ValueOf(target)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, nil
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Struct:
		if f, ok := structField(rv, name); ok {
			return f.Interface(), nil
		}
	case reflect.Map:
		if rv.Type().Key().Kind() == reflect.String {
			v := rv.MapIndex(reflect.ValueOf(name).Convert(rv.Type().Key()))
			if !v.IsValid() {
				return nil, nil
			}
			return v.Interface(), nil
		}
	}
	return nil, fmt.Errorf("expr: no member %q on %T", name, target)
}

func structField(rv reflect.Value, name string) (reflect.Value, bool) {
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		if !sf.IsExported() {
			continue
		}
		if tag := strings.Split(sf.Tag.Get("graphql"), ",")[0]; tag != "" && tag != "-" {
			if tag == name {
				return rv.Field(i), true
			}
			continue
		}
		if strings.EqualFold(sf.Name, name) {
			return rv.Field(i), true
		}
	}
	return reflect.Value{}, false
}
