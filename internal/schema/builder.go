package schema

import (
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/overjt/entitygraphql/internal/expr"
)

type Options struct {
	// Logger receives construction warnings. Default is a no-op logger.
	Logger zerolog.Logger

	// DefaultPageSize is the take value paging extensions fall back to when
	// they are not configured with one. 0 means unlimited.
	DefaultPageSize int

	// MaxPageSize caps take for paging extensions. 0 means no cap.
	MaxPageSize int

	// Validate runs the struct-tag rules of the default argument validator.
	Validate *validator.Validate
}

type Option func(*Options)

func WithLogger(l zerolog.Logger) Option { return func(o *Options) { o.Logger = l } }
func WithDefaultPageSize(n int) Option   { return func(o *Options) { o.DefaultPageSize = n } }
func WithMaxPageSize(n int) Option       { return func(o *Options) { o.MaxPageSize = n } }
func WithValidate(v *validator.Validate) Option {
	return func(o *Options) { o.Validate = v }
}

// NewSchema returns a schema holding the builtin scalars and directives and
// the stock annotation handlers.
func NewSchema(description string, opts ...Option) *Schema {
	op := Options{Logger: zerolog.Nop()}
	for _, f := range opts {
		f(&op)
	}
	if op.Validate == nil {
		op.Validate = validator.New(validator.WithRequiredStructEnabled())
	}
	s := &Schema{
		Description: description,
		Types:       make(map[string]*Type),
		Directives:  make(map[string]*DirectiveDefinition),
		opts:        op,
		handlers:    make(map[string]AnnotationHandler),
	}
	for _, t := range builtinScalars() {
		s.AddType(t)
	}
	s.AddDirectiveDefinition(includeDirective).
		AddDirectiveDefinition(skipDirective).
		AddDirectiveDefinition(deprecatedDirective)
	registerStockHandlers(s)
	return s
}

// AddType registers t, replacing any type of the same name.
func (s *Schema) AddType(t *Type) *Schema {
	t.schema = s
	s.Types[t.Name] = t
	return s
}

func (s *Schema) AddDirectiveDefinition(d *DirectiveDefinition) *Schema {
	s.Directives[d.Name] = d
	return s
}

func (s *Schema) SetQueryType(name string) *Schema {
	s.QueryType = name
	return s
}

func (s *Schema) SetMutationType(name string) *Schema {
	s.MutationType = name
	return s
}

// NewType returns an empty named type. Add it to a schema with AddType.
func NewType(name string, kind TypeKind, description string) *Type {
	return &Type{Name: name, Kind: kind, Description: description}
}

// AddField creates a field owned by t and appends it.
func (t *Type) AddField(name, description string, returnType *TypeRef) *Field {
	f := NewField(t.schema, t, name, description, returnType)
	t.Fields = append(t.Fields, f)
	return f
}

// AddMember adds a field that reads the same-named member of the parent
// value.
func (t *Type) AddMember(name, description string, returnType *TypeRef) *Field {
	return t.AddField(name, description, returnType).
		Resolve(func(ctx *expr.Param) expr.Expr { return expr.Prop(ctx, name) })
}

// ReplaceField puts f in place of the field with the same name, or appends
// it when there is none.
func (t *Type) ReplaceField(f *Field) *Type {
	f.owner = t
	for i, cur := range t.Fields {
		if cur.Name == f.Name {
			t.Fields[i] = f
			return t
		}
	}
	t.Fields = append(t.Fields, f)
	return t
}

func (t *Type) AddEnumValue(v *EnumValue) *Type {
	t.EnumValues = append(t.EnumValues, v)
	return t
}

func (t *Type) AddInputField(v *InputValue) *Type {
	t.InputFields = append(t.InputFields, v)
	return t
}

func NewEnumValue(name, description string) *EnumValue {
	return &EnumValue{Name: name, Description: description}
}

func (v *EnumValue) Deprecate(reason string) *EnumValue {
	v.IsDeprecated = true
	v.DeprecationReason = reason
	return v
}
