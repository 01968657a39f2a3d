package schema

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"unicode"

	"github.com/overjt/entitygraphql/internal/expr"
)

// DefaultArgumentKey names the shape source that AddArguments merges into.
const DefaultArgumentKey = "egql_generated_args"

// ArgType describes one declared argument of a field.
type ArgType struct {
	Name        string
	Description string
	Type        *TypeRef
	// SourceMember is the struct field or map key the argument was declared from.
	SourceMember string
	GoType       reflect.Type
	// Required arguments must be supplied with a non-null value unless they
	// carry a default.
	Required bool
	// DefaultValue is rendered in SDL. It is nil when the source member held
	// its zero value.
	DefaultValue any
	// Validate holds go-playground/validator rules, e.g. "min=0,max=100".
	Validate string
}

// argumentState is the argument model of a field. Fields that share
// arguments point at the same state.
type argumentState struct {
	arguments map[string]*ArgType
	order     []string
	param     *expr.Param
	shapes    map[string]*expr.Shape
	users     []*Field
}

func newArgumentState(f *Field) *argumentState {
	return &argumentState{
		arguments: make(map[string]*ArgType),
		shapes:    make(map[string]*expr.Shape),
		users:     []*Field{f},
	}
}

// rebind makes p the argument parameter and rewrites every expression that
// used the previous one.
func (st *argumentState) rebind(p *expr.Param) {
	old := st.param
	st.param = p
	if old == nil {
		return
	}
	for _, f := range st.users {
		f.expression = expr.Replace(f.expression, old, p)
	}
}

func (st *argumentState) attach(f *Field) {
	st.users = append(st.users, f)
}

func (st *argumentState) detach(f *Field) {
	for i, u := range st.users {
		if u == f {
			st.users = append(st.users[:i], st.users[i+1:]...)
			return
		}
	}
}

func (st *argumentState) copyFor(f *Field) *argumentState {
	cp := &argumentState{
		arguments: make(map[string]*ArgType, len(st.arguments)),
		order:     append([]string(nil), st.order...),
		param:     st.param,
		shapes:    make(map[string]*expr.Shape, len(st.shapes)),
		users:     []*Field{f},
	}
	for k, v := range st.arguments {
		a := *v
		cp.arguments[k] = &a
	}
	for k, v := range st.shapes {
		cp.shapes[k] = v
	}
	return cp
}

// AddArguments declares an argument per member of source and merges them
// into the field's argument shape. source is a struct (or pointer to one)
// or a map[string]any; member values become defaults. Struct fields are
// named by their `graphql` tag or their lower-camel name, described by a
// `description` tag, and checked by a `validate` tag.
//
// Same-named arguments are overwritten. Every reference to the previous
// argument parameter in the resolving expression is rewritten to the new
// one. The returned map is the field's live argument map.
func (f *Field) AddArguments(source any) (map[string]*ArgType, error) {
	shape, args, err := inspectArguments(f.argumentShapeName(), source)
	if err != nil {
		return nil, fmt.Errorf("field %s: %w", f.Path(), err)
	}
	st := f.args
	merged, conflicts := expr.MergeShapes(f.argumentShapeName(), st.shapes[DefaultArgumentKey], shape)
	log := f.logger()
	for _, c := range conflicts {
		log.Warn().
			Str("field", f.Path()).
			Str("argument", c.Member).
			Str("previous", c.Previous.String()).
			Str("next", c.Next.String()).
			Msg("argument redeclared with a different type")
	}
	for _, a := range args {
		if _, ok := st.arguments[a.Name]; !ok {
			st.order = append(st.order, a.Name)
		}
		st.arguments[a.Name] = a
	}
	st.shapes[DefaultArgumentKey] = merged
	st.rebind(expr.NewShapeParam(merged))
	return st.arguments, nil
}

// GetArgumentType returns the named argument descriptor.
func (f *Field) GetArgumentType(name string) (*ArgType, error) {
	a, ok := f.args.arguments[name]
	if !ok {
		return nil, fmt.Errorf("field %s: %w: %s", f.Path(), ErrArgumentNotFound, name)
	}
	return a, nil
}

func (f *Field) HasArgumentByName(name string) bool {
	_, ok := f.args.arguments[name]
	return ok
}

// Arguments returns the live argument map. It is shared with fields that
// use this field's arguments.
func (f *Field) Arguments() map[string]*ArgType { return f.args.arguments }

// ArgumentList returns the arguments in declaration order.
func (f *Field) ArgumentList() []*ArgType {
	out := make([]*ArgType, 0, len(f.args.order))
	for _, name := range f.args.order {
		out = append(out, f.args.arguments[name])
	}
	return out
}

// ArgumentParam is the parameter standing for the field's argument values.
// It is nil until arguments are declared.
func (f *Field) ArgumentParam() *expr.Param { return f.args.param }

// ArgumentShapes returns the live map of argument shapes keyed by origin.
func (f *Field) ArgumentShapes() map[string]*expr.Shape { return f.args.shapes }

func (f *Field) DefaultArgumentShape() *expr.Shape { return f.args.shapes[DefaultArgumentKey] }

func (f *Field) argumentShapeName() string {
	owner := ""
	if f.owner != nil {
		owner = f.owner.Name
	}
	return owner + upperFirst(f.Name) + "Args"
}

// NewArgumentValues binds request values onto the current argument shape.
// Missing arguments keep their defaults; supplied values are coerced to the
// argument's GraphQL type and marked as supplied.
func (f *Field) NewArgumentValues(raw map[string]any) (*expr.ShapeValue, error) {
	shape := f.DefaultArgumentShape()
	if shape == nil {
		for name := range raw {
			return nil, fmt.Errorf("field %s: %w: %s", f.Path(), ErrArgumentNotFound, name)
		}
		return nil, nil
	}
	v := expr.NewShapeValue(shape)
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		a, ok := f.args.arguments[name]
		if !ok {
			return nil, fmt.Errorf("field %s: %w: %s", f.Path(), ErrArgumentNotFound, name)
		}
		cv, err := coerceValue(raw[name], a.Type)
		if err != nil {
			return nil, fmt.Errorf("field %s: argument '%s' cannot be coerced: %w", f.Path(), name, err)
		}
		if err := v.Set(name, cv); err != nil {
			return nil, err
		}
	}
	return v, nil
}

func inspectArguments(shapeName string, source any) (*expr.Shape, []*ArgType, error) {
	if source == nil {
		return nil, nil, fmt.Errorf("%w: nil source", ErrInvalidArgumentShape)
	}
	var (
		members []expr.ShapeMember
		args    []*ArgType
	)
	switch src := source.(type) {
	case map[string]any:
		names := make([]string, 0, len(src))
		for name := range src {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			val := src[name]
			if val == nil {
				return nil, nil, fmt.Errorf("%w: argument %q has no value to infer its type from", ErrInvalidArgumentShape, name)
			}
			rt := reflect.TypeOf(val)
			members = append(members, expr.ShapeMember{Name: name, GoType: rt, Default: val})
			args = append(args, &ArgType{
				Name:         name,
				Type:         nullable(typeRefFor(rt)),
				SourceMember: name,
				GoType:       rt,
				DefaultValue: val,
			})
		}
	default:
		rv := reflect.ValueOf(source)
		for rv.Kind() == reflect.Pointer {
			if rv.IsNil() {
				return nil, nil, fmt.Errorf("%w: nil %T", ErrInvalidArgumentShape, source)
			}
			rv = rv.Elem()
		}
		if rv.Kind() != reflect.Struct {
			return nil, nil, fmt.Errorf("%w: %T has no members", ErrInvalidArgumentShape, source)
		}
		rt := rv.Type()
		for i := 0; i < rt.NumField(); i++ {
			sf := rt.Field(i)
			if !sf.IsExported() {
				continue
			}
			name := strings.Split(sf.Tag.Get("graphql"), ",")[0]
			if name == "-" {
				continue
			}
			if name == "" {
				name = lowerCamel(sf.Name)
			}
			rule := sf.Tag.Get("validate")
			slot, def := memberDefaults(rv.Field(i))
			typ := typeRefFor(sf.Type)
			// a non-null member without a default has to be supplied
			required := hasRule(rule, "required") || (sf.Type.Kind() != reflect.Pointer && typ.IsNonNull() && def == nil)
			members = append(members, expr.ShapeMember{Name: name, GoType: sf.Type, Default: slot})
			args = append(args, &ArgType{
				Name:         name,
				Description:  sf.Tag.Get("description"),
				Type:         typ,
				SourceMember: sf.Name,
				GoType:       sf.Type,
				Required:     required,
				DefaultValue: def,
				Validate:     rule,
			})
		}
	}
	if len(args) == 0 {
		return nil, nil, fmt.Errorf("%w: %T has no members", ErrInvalidArgumentShape, source)
	}
	return expr.NewShape(shapeName, members...), args, nil
}

// memberDefaults returns the value seeded into the argument slot and the
// default rendered in SDL.
func memberDefaults(v reflect.Value) (slot, rendered any) {
	switch v.Kind() {
	case reflect.Pointer:
		if v.IsNil() {
			return nil, nil
		}
		d := v.Elem().Interface()
		return d, d
	case reflect.Slice, reflect.Map:
		if v.IsNil() {
			return nil, nil
		}
		return v.Interface(), v.Interface()
	}
	d := v.Interface()
	if v.IsZero() {
		return d, nil
	}
	return d, d
}

// typeRefFor maps a Go type to a GraphQL type reference. Pointers, slices
// and maps are nullable; other values are not.
func typeRefFor(rt reflect.Type) *TypeRef {
	switch rt.Kind() {
	case reflect.Pointer:
		return nullable(typeRefFor(rt.Elem()))
	case reflect.Slice, reflect.Array:
		if rt.Elem().Kind() == reflect.Uint8 {
			return NonNullType(NamedType("String"))
		}
		return ListType(typeRefFor(rt.Elem()))
	case reflect.Map:
		if rt.Name() == "" {
			return NamedType("JSON")
		}
		return NamedType(rt.Name())
	case reflect.String:
		return NonNullType(NamedType("String"))
	case reflect.Bool:
		return NonNullType(NamedType("Boolean"))
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return NonNullType(NamedType("Int"))
	case reflect.Float32, reflect.Float64:
		return NonNullType(NamedType("Float"))
	case reflect.Interface:
		return NamedType("String")
	}
	return NonNullType(NamedType(rt.Name()))
}

func nullable(t *TypeRef) *TypeRef {
	if t.IsNonNull() {
		return t.OfType
	}
	return t
}

func hasRule(tag, rule string) bool {
	for _, r := range strings.Split(tag, ",") {
		if r == rule {
			return true
		}
	}
	return false
}

// lowerCamel lowers the leading capitals of a Go identifier: ID -> id,
// FirstName -> firstName, URLPath -> urlPath.
func lowerCamel(s string) string {
	rs := []rune(s)
	n := 0
	for n < len(rs) && unicode.IsUpper(rs[n]) {
		n++
	}
	switch {
	case n == 0:
		return s
	case n == len(rs) || n == 1:
	default:
		n--
	}
	for i := 0; i < n; i++ {
		rs[i] = unicode.ToLower(rs[i])
	}
	return string(rs)
}

func upperFirst(s string) string {
	if s == "" {
		return s
	}
	rs := []rune(s)
	rs[0] = unicode.ToUpper(rs[0])
	return string(rs)
}
