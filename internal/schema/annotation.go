package schema

import "fmt"

// Annotation is declarative metadata found on a host member. The kind tag
// selects the handler that applies it.
type Annotation interface {
	AnnotationKind() string
}

// ValidatorAnnotation contributes an argument validator.
type ValidatorAnnotation interface {
	Annotation
	Validator() Validator
}

// ExtensionAnnotation applies itself to a field, usually by attaching an
// extension.
type ExtensionAnnotation interface {
	Annotation
	ApplyExtension(f *Field) error
}

// AnnotationHandler applies annotations of one kind to a field.
type AnnotationHandler func(f *Field, a Annotation) error

// RegisterAnnotationHandler sets the handler for kind, replacing any
// previous one.
func (s *Schema) RegisterAnnotationHandler(kind string, h AnnotationHandler) *Schema {
	s.handlers[kind] = h
	return s
}

func (s *Schema) AnnotationHandler(kind string) (AnnotationHandler, bool) {
	h, ok := s.handlers[kind]
	return h, ok
}

// ApplyAnnotations applies each annotation in order. Annotations of a kind
// with no registered handler are ignored.
func (f *Field) ApplyAnnotations(annotations ...Annotation) error {
	for _, a := range annotations {
		switch a := a.(type) {
		case ValidatorAnnotation:
			f.AddValidator(a.Validator())
		case ExtensionAnnotation:
			if err := a.ApplyExtension(f); err != nil {
				return err
			}
		default:
			s := f.Schema()
			if s == nil {
				continue
			}
			h, ok := s.AnnotationHandler(a.AnnotationKind())
			if !ok {
				continue
			}
			if err := h(f, a); err != nil {
				return fmt.Errorf("field %s: annotation %s: %w", f.Path(), a.AnnotationKind(), err)
			}
		}
	}
	return nil
}

const (
	KindAuthorize  = "authorize"
	KindDeprecated = "deprecated"
)

// Authorize requires roles and policies on the annotated field.
type Authorize struct {
	AllRoles    []string
	AnyRoles    []string
	AllPolicies []string
	AnyPolicies []string
}

func (Authorize) AnnotationKind() string { return KindAuthorize }

// DeprecatedAnnotation marks the annotated field deprecated.
type DeprecatedAnnotation struct {
	Reason string
}

func (DeprecatedAnnotation) AnnotationKind() string { return KindDeprecated }

// ValidateWith adds Func as an argument validator.
type ValidateWith struct {
	Func Validator
}

func (ValidateWith) AnnotationKind() string { return "validateWith" }
func (v ValidateWith) Validator() Validator { return v.Func }

func registerStockHandlers(s *Schema) {
	s.RegisterAnnotationHandler(KindAuthorize, func(f *Field, a Annotation) error {
		auth, ok := a.(Authorize)
		if !ok {
			return fmt.Errorf("unexpected annotation %T", a)
		}
		if len(auth.AllRoles) > 0 {
			f.RequiresAllRoles(auth.AllRoles...)
		}
		if len(auth.AnyRoles) > 0 {
			f.RequiresAnyRole(auth.AnyRoles...)
		}
		if len(auth.AllPolicies) > 0 {
			f.RequiresAllPolicies(auth.AllPolicies...)
		}
		if len(auth.AnyPolicies) > 0 {
			f.RequiresAnyPolicy(auth.AnyPolicies...)
		}
		return nil
	})
	s.RegisterAnnotationHandler(KindDeprecated, func(f *Field, a Annotation) error {
		dep, ok := a.(DeprecatedAnnotation)
		if !ok {
			return fmt.Errorf("unexpected annotation %T", a)
		}
		return f.AddDirective(Deprecated{Reason: dep.Reason})
	})
}
