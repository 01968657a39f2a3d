package schema

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/overjt/entitygraphql/internal/expr"
)

// Validator checks the bound argument values of a call. Problems are
// reported with vc.AddError; a returned error is recorded as a failure too.
type Validator func(vc *ValidatorContext) error

type ValidatorContext struct {
	Context   context.Context
	Field     *Field
	Arguments *expr.ShapeValue

	failures []*ValidationFailure
}

// AddError records a failure for argument. argument may be empty for
// failures that concern the call as a whole.
func (vc *ValidatorContext) AddError(argument, message string) {
	vc.failures = append(vc.failures, &ValidationFailure{Argument: argument, Message: message})
}

// Value returns the bound value of the named argument.
func (vc *ValidatorContext) Value(name string) any {
	v, _ := vc.Arguments.Get(name)
	return v
}

type ValidationFailure struct {
	Argument string `json:"argument,omitempty"`
	Message  string `json:"message"`
}

// ValidationError carries every failure found for one call of a field.
type ValidationError struct {
	Field    string
	Failures []*ValidationFailure
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("field %s: %s:", e.Field, ErrValidationFailed)
	for _, f := range e.Failures {
		line := " " + f.Message
		if f.Argument != "" {
			line = fmt.Sprintf(" %s (argument '%s')", f.Message, f.Argument)
		}
		msg += line + ";"
	}
	return strings.TrimSuffix(msg, ";")
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidationFailed }

// AddValidator appends v. Validators run in the order they were added; a
// nil v is ignored.
func (f *Field) AddValidator(v Validator) *Field {
	if v == nil {
		return f
	}
	f.validators = append(f.validators, v)
	return f
}

func (f *Field) Validators() []Validator {
	return append([]Validator(nil), f.validators...)
}

// Validate runs every validator against values and returns a
// *ValidationError holding all failures, or nil.
func (f *Field) Validate(ctx context.Context, values *expr.ShapeValue) error {
	if ctx == nil {
		ctx = context.Background()
	}
	vc := &ValidatorContext{Context: ctx, Field: f, Arguments: values}
	for _, v := range f.validators {
		err := v(vc)
		if err == nil {
			continue
		}
		var ve *ValidationError
		if errors.As(err, &ve) {
			vc.failures = append(vc.failures, ve.Failures...)
			continue
		}
		vc.AddError("", err.Error())
	}
	if len(vc.failures) == 0 {
		return nil
	}
	return &ValidationError{Field: f.Path(), Failures: vc.failures}
}

var fallbackValidate = validator.New(validator.WithRequiredStructEnabled())

// DefaultValidator checks each argument against its required flag and its
// validate rules. A required argument passes when it holds a non-null
// value that was supplied or came from a declared default; zero values
// count as supplied. The validate rules run on every non-null value.
func DefaultValidator(vc *ValidatorContext) error {
	v := fallbackValidate
	if s := vc.Field.Schema(); s != nil && s.opts.Validate != nil {
		v = s.opts.Validate
	}
	for _, a := range vc.Field.ArgumentList() {
		value := vc.Value(a.Name)
		if a.Required && (value == nil || (a.DefaultValue == nil && !vc.Arguments.Supplied(a.Name))) {
			vc.AddError(a.Name, fmt.Sprintf("argument '%s' is required", a.Name))
			continue
		}
		rule := dropRule(a.Validate, "required")
		if rule == "" || value == nil {
			continue
		}
		err := v.VarCtx(vc.Context, value, rule)
		if err == nil {
			continue
		}
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return err
		}
		for _, fe := range fieldErrs {
			vc.AddError(a.Name, ruleMessage(a.Name, fe))
		}
	}
	return nil
}

// dropRule removes rule from a comma separated validate tag. Rules after
// dive apply to elements and are kept.
func dropRule(tag, rule string) string {
	kept := make([]string, 0, strings.Count(tag, ",")+1)
	dived := false
	for _, r := range strings.Split(tag, ",") {
		dived = dived || r == "dive"
		if r == "" || (r == rule && !dived) {
			continue
		}
		kept = append(kept, r)
	}
	return strings.Join(kept, ",")
}

func ruleMessage(name string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("argument '%s' is required", name)
	case "min", "gte":
		return fmt.Sprintf("argument '%s' must be at least %s", name, fe.Param())
	case "max", "lte":
		return fmt.Sprintf("argument '%s' must be at most %s", name, fe.Param())
	}
	if fe.Param() != "" {
		return fmt.Sprintf("argument '%s' failed the '%s=%s' rule", name, fe.Tag(), fe.Param())
	}
	return fmt.Sprintf("argument '%s' failed the '%s' rule", name, fe.Tag())
}
