package schema

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/overjt/entitygraphql/internal/expr"
)

// Field is a field of an object type. It owns the expression that resolves
// the field against its parent value, the parameters that expression is
// written over, and the metadata checked before it runs.
//
// Fields are mutated while the schema is built and must not be changed once
// requests are served. ProduceExpression only reads the field and is safe to
// call from many goroutines.
type Field struct {
	Name        string
	Description string
	Type        *TypeRef

	schema     *Schema
	owner      *Type
	selection  *expr.Param
	expression expr.Expr

	args              *argumentState
	argumentsFrom     *Field
	argumentsInternal bool

	extensions []Extension
	auth       *RequiredAuthorization
	validators []Validator
	directives []Directive
}

// NewField returns a field of fromType. The field's selection parameter
// stands for the fromType value the field is read from. The default
// argument validator is installed.
func NewField(s *Schema, fromType *Type, name, description string, returnType *TypeRef) *Field {
	typeName := ""
	if fromType != nil {
		typeName = fromType.Name
	}
	f := &Field{
		Name:        name,
		Description: description,
		Type:        returnType,
		schema:      s,
		owner:       fromType,
		selection:   expr.NewParam(lowerCamel(typeName), typeName),
		validators:  []Validator{DefaultValidator},
	}
	f.args = newArgumentState(f)
	return f
}

// Schema returns the schema the field was created for, falling back to the
// schema of its owning type.
func (f *Field) Schema() *Schema {
	if f.schema != nil {
		return f.schema
	}
	return f.owner.Schema()
}

func (f *Field) FromType() *Type { return f.owner }

// Path is "Type.field", used in errors and logs.
func (f *Field) Path() string {
	if f.owner == nil {
		return f.Name
	}
	return f.owner.Name + "." + f.Name
}

func (f *Field) logger() *zerolog.Logger {
	if s := f.Schema(); s != nil {
		l := s.Logger()
		return &l
	}
	l := zerolog.Nop()
	return &l
}

// SelectionParam is the parameter standing for the parent value.
func (f *Field) SelectionParam() *expr.Param { return f.selection }

// SetSelectionParam rebinds the selection parameter, rewriting the
// resolving expression to use p.
func (f *Field) SetSelectionParam(p *expr.Param) *Field {
	f.expression = expr.Replace(f.expression, f.selection, p)
	f.selection = p
	return f
}

// Expression returns the stored resolving expression, which may be nil.
func (f *Field) Expression() expr.Expr { return f.expression }

// UpdateExpression replaces the resolving expression. It does not check
// which parameters e uses.
func (f *Field) UpdateExpression(e expr.Expr) *Field {
	f.expression = e
	return f
}

// Resolve sets the resolving expression built from the selection parameter.
func (f *Field) Resolve(fn func(ctx *expr.Param) expr.Expr) *Field {
	return f.UpdateExpression(fn(f.selection))
}

// ResolveWithArgs is Resolve for expressions that also read the field's
// arguments. Declare the arguments first.
func (f *Field) ResolveWithArgs(fn func(ctx, args *expr.Param) expr.Expr) *Field {
	return f.UpdateExpression(fn(f.selection, f.args.param))
}

// Returns overwrites the return type. The expression is left untouched.
func (f *Field) Returns(t *TypeRef) *Field {
	f.Type = t
	return f
}

// UseArgumentsFrom makes f share other's arguments, argument parameter and
// argument shapes. Declaring arguments on either field is seen by both.
// f's arguments become internal and are hidden from the rendered schema.
func (f *Field) UseArgumentsFrom(other *Field) *Field {
	if other == nil || other.args == f.args {
		return f
	}
	old := f.args.param
	f.args.detach(f)
	f.args = other.args
	f.args.attach(f)
	if old != nil && f.args.param != nil {
		f.expression = expr.Replace(f.expression, old, f.args.param)
	}
	f.argumentsFrom = other
	f.argumentsInternal = true
	return f
}

// StopUsingArgumentsFrom gives f a private copy of the arguments it shares.
func (f *Field) StopUsingArgumentsFrom() *Field {
	if f.argumentsFrom == nil {
		return f
	}
	f.args.detach(f)
	f.args = f.args.copyFor(f)
	f.argumentsFrom = nil
	f.argumentsInternal = false
	return f
}

// ArgumentsFrom returns the field whose arguments f uses, or nil.
func (f *Field) ArgumentsFrom() *Field { return f.argumentsFrom }

// ArgumentsAreInternal reports whether the arguments only feed the
// field's own expression and are not part of the public schema.
func (f *Field) ArgumentsAreInternal() bool { return f.argumentsInternal }

// Call carries what a single use of a field in a request binds.
type Call struct {
	// Context replaces the selection parameter. When nil the selection
	// parameter is left in place for the caller to bind.
	Context expr.Expr
	// Arguments is an instance of the field's current argument shape.
	// When nil the argument defaults are used.
	Arguments *expr.ShapeValue
	// Variables are the document variables of the operation.
	Variables map[string]any
	// Directives are the executable directives at the call site, applied in
	// order.
	Directives []ExecutableDirective
	// ContextChanged reports that the parent value is no longer the one the
	// expression was written against. Context must be set with it.
	ContextChanged bool
}

// ProduceExpression returns the resolving expression with the call's
// context, arguments and variables substituted. With a context the result
// is closed; any other free parameter is ErrUnresolvedField. Without one the
// context is the field's SelectionParam, which is the only parameter left
// free, so the caller can embed the result in a larger expression and bind
// it there. A nil expression with a nil error means a directive removed the
// field.
//
// The field is never modified.
func (f *Field) ProduceExpression(call Call) (expr.Expr, error) {
	e := f.expression
	if e == nil {
		return nil, fmt.Errorf("%w: %s has no resolving expression", ErrUnresolvedField, f.Path())
	}
	if call.ContextChanged && call.Context == nil {
		return nil, fmt.Errorf("%w: %s: context changed without a new context", ErrUnresolvedField, f.Path())
	}

	var err error
	for _, ext := range f.extensions {
		ee, ok := ext.(ExpressionExtension)
		if !ok {
			continue
		}
		if e, err = ee.GetExpression(f, e, call); err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Path(), err)
		}
		if e == nil {
			return nil, fmt.Errorf("%w: %s: extension produced no expression", ErrUnresolvedField, f.Path())
		}
	}

	if call.Context != nil {
		e = expr.Replace(e, f.selection, call.Context)
	}

	if p := f.args.param; p != nil {
		values := call.Arguments
		shape := f.DefaultArgumentShape()
		if values == nil {
			values = expr.NewShapeValue(shape)
		} else if values.Shape() != shape {
			return nil, fmt.Errorf("%w: %s: argument values are not of shape %s", ErrUnresolvedField, f.Path(), shape.Name)
		}
		e = expr.Replace(e, p, expr.Constant(values))
	}

	if expr.HasVars(e) {
		if e, err = expr.ReplaceVars(e, call.Variables); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrUnresolvedField, f.Path(), err)
		}
	}

	for _, d := range call.Directives {
		if e, err = d.VisitExpression(f, e); err != nil {
			return nil, fmt.Errorf("field %s: directive @%s: %w", f.Path(), d.Name(), err)
		}
		if e == nil {
			return nil, nil
		}
	}

	for _, p := range expr.FreeParams(e) {
		if p == f.selection && call.Context == nil {
			continue
		}
		return nil, fmt.Errorf("%w: %s references unbound parameter %s", ErrUnresolvedField, f.Path(), p.Name)
	}
	return e, nil
}

// RequiresAllRoles requires the caller to hold every listed role.
func (f *Field) RequiresAllRoles(roles ...string) *Field {
	f.authorization().RequiresAllRoles(roles...)
	return f
}

// RequiresAnyRole requires the caller to hold at least one listed role.
func (f *Field) RequiresAnyRole(roles ...string) *Field {
	f.authorization().RequiresAnyRole(roles...)
	return f
}

func (f *Field) RequiresAllPolicies(policies ...string) *Field {
	f.authorization().RequiresAllPolicies(policies...)
	return f
}

func (f *Field) RequiresAnyPolicy(policies ...string) *Field {
	f.authorization().RequiresAnyPolicy(policies...)
	return f
}

// ClearAuthorization drops every requirement.
func (f *Field) ClearAuthorization() *Field {
	f.auth = nil
	return f
}

// RequiredAuthorization returns the field's requirements, or nil when the
// field is unrestricted.
func (f *Field) RequiredAuthorization() *RequiredAuthorization { return f.auth }

func (f *Field) authorization() *RequiredAuthorization {
	if f.auth == nil {
		f.auth = &RequiredAuthorization{}
	}
	return f.auth
}

// Deprecate attaches @deprecated.
func (f *Field) Deprecate(reason string) *Field {
	f.directives = append(f.directives, Deprecated{Reason: reason})
	return f
}

// Deprecation returns the attached @deprecated directive, if any.
func (f *Field) Deprecation() (Deprecated, bool) {
	for _, d := range f.directives {
		if dep, ok := d.(Deprecated); ok {
			return dep, true
		}
	}
	return Deprecated{}, false
}
