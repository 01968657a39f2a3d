package schema

import (
	"fmt"

	"github.com/overjt/entitygraphql/internal/expr"
)

// Extension reshapes a field when it is attached. Configure may replace the
// field's return type, arguments and resolving expression. An extension
// that changes the argument shape must do so through AddArguments so the
// expression keeps pointing at the live argument parameter.
type Extension interface {
	Configure(s *Schema, f *Field) error
}

// ExpressionExtension is an Extension that also rewrites the field's
// expression for each call, before parameters are substituted. It must not
// modify the field.
type ExpressionExtension interface {
	Extension
	GetExpression(f *Field, e expr.Expr, call Call) (expr.Expr, error)
}

// ExtensionFunc adapts a function to Extension.
type ExtensionFunc func(s *Schema, f *Field) error

func (fn ExtensionFunc) Configure(s *Schema, f *Field) error { return fn(s, f) }

// AddExtension appends ext and runs its Configure hook. Extensions run in
// the order they are attached and cannot be removed.
func (f *Field) AddExtension(ext Extension) error {
	f.extensions = append(f.extensions, ext)
	f.logger().Debug().
		Str("field", f.Path()).
		Str("extension", fmt.Sprintf("%T", ext)).
		Msg("configuring field extension")
	if err := ext.Configure(f.Schema(), f); err != nil {
		return fmt.Errorf("field %s: extension %T: %w", f.Path(), ext, err)
	}
	return nil
}

// Extensions returns the attached extensions in attachment order.
func (f *Field) Extensions() []Extension {
	return append([]Extension(nil), f.extensions...)
}
