package schema

import (
	"fmt"

	"github.com/overjt/entitygraphql/internal/expr"
	language "github.com/overjt/entitygraphql/internal/language"
)

// Directive is a schema directive attached to a field definition.
type Directive interface {
	Name() string
	Locations() []language.DirectiveLocation
}

// DirectiveArguments is implemented by directives that render arguments
// in SDL.
type DirectiveArguments interface {
	Arguments() map[string]any
}

// AddDirective attaches d. It fails unless d may be used on a field
// definition.
func (f *Field) AddDirective(d Directive) error {
	for _, loc := range d.Locations() {
		if loc == language.LocationFieldDefinition {
			f.directives = append(f.directives, d)
			return nil
		}
	}
	return fmt.Errorf("field %s: %w: @%s is not valid on %s", f.Path(), ErrInvalidDirectiveLocation, d.Name(), language.LocationFieldDefinition)
}

// Directives returns the attached directives in attachment order.
func (f *Field) Directives() []Directive {
	return append([]Directive(nil), f.directives...)
}

// Deprecated is the @deprecated directive.
type Deprecated struct {
	Reason string
}

func (Deprecated) Name() string { return "deprecated" }

func (Deprecated) Locations() []language.DirectiveLocation {
	return []language.DirectiveLocation{language.LocationFieldDefinition, language.LocationEnumValue}
}

func (d Deprecated) Arguments() map[string]any {
	if d.Reason == "" {
		return nil
	}
	return map[string]any{"reason": d.Reason}
}

// ExecutableDirective is a directive used in a request. It may rewrite the
// produced expression of the field it is placed on, or drop the field by
// returning nil.
type ExecutableDirective interface {
	Name() string
	VisitExpression(f *Field, e expr.Expr) (expr.Expr, error)
}

// Skip is @skip(if:).
type Skip struct{ If bool }

func (Skip) Name() string { return "skip" }

func (d Skip) VisitExpression(_ *Field, e expr.Expr) (expr.Expr, error) {
	if d.If {
		return nil, nil
	}
	return e, nil
}

// Include is @include(if:).
type Include struct{ If bool }

func (Include) Name() string { return "include" }

func (d Include) VisitExpression(_ *Field, e expr.Expr) (expr.Expr, error) {
	if !d.If {
		return nil, nil
	}
	return e, nil
}
