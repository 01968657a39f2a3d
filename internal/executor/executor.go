// Package executor runs GraphQL operations against a schema whose fields
// resolve through expressions. Each field use is bound to its parent value,
// arguments and variables with Field.ProduceExpression, checked against the
// field's validators and authorization, evaluated with expr.Eval and then
// completed against the field's return type.
//
// Execution is depth-first in selection order. Errors are collected per
// field; a failing non-null field nulls its parent object, and at the root
// the field itself is set to null.
package executor

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/rs/zerolog"

	"github.com/overjt/entitygraphql/internal/eventbus"
	"github.com/overjt/entitygraphql/internal/events"
	"github.com/overjt/entitygraphql/internal/expr"
	language "github.com/overjt/entitygraphql/internal/language"
	"github.com/overjt/entitygraphql/internal/reqid"
	"github.com/overjt/entitygraphql/internal/schema"
)

type Path []PathElement

type PathElement any

type Executor struct {
	schema     *schema.Schema
	log        zerolog.Logger
	directives map[string]DirectiveFactory
}

// DirectiveFactory builds the executable directive for one use of a
// directive in a request from its argument values.
type DirectiveFactory func(args map[string]any) (schema.ExecutableDirective, error)

type Option func(*Executor)

// WithLogger overrides the schema's logger.
func WithLogger(l zerolog.Logger) Option { return func(e *Executor) { e.log = l } }

// WithDirective registers an executable directive. @skip and @include are
// registered by default.
func WithDirective(name string, f DirectiveFactory) Option {
	return func(e *Executor) { e.directives[name] = f }
}

func New(s *schema.Schema, opts ...Option) *Executor {
	e := &Executor{
		schema: s,
		log:    s.Logger(),
		directives: map[string]DirectiveFactory{
			"skip":    conditional(func(b bool) schema.ExecutableDirective { return schema.Skip{If: b} }),
			"include": conditional(func(b bool) schema.ExecutableDirective { return schema.Include{If: b} }),
		},
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

func conditional(mk func(bool) schema.ExecutableDirective) DirectiveFactory {
	return func(args map[string]any) (schema.ExecutableDirective, error) {
		b, ok := args["if"].(bool)
		if !ok {
			return nil, fmt.Errorf("argument 'if' must be a Boolean, got %T", args["if"])
		}
		return mk(b), nil
	}
}

// Request is one operation to execute.
type Request struct {
	Query         string
	OperationName string
	Variables     map[string]any
	// Root is the value the root type's fields are read from.
	Root any
	// Principal is checked against field authorization. A nil principal
	// only reaches unrestricted fields.
	Principal schema.Principal
}

// Execute parses req.Query and executes it.
func (e *Executor) Execute(ctx context.Context, req Request) *ExecutionResult {
	doc, err := language.ParseQuery(req.Query)
	if err != nil {
		return &ExecutionResult{Errors: []GraphQLError{{Message: err.Error()}}}
	}
	return e.ExecuteDocument(ctx, doc, req)
}

// ExecuteDocument executes an already parsed document. req.Query is not
// read.
func (e *Executor) ExecuteDocument(ctx context.Context, document *language.QueryDocument, req Request) *ExecutionResult {
	ctx, rid := reqid.Ensure(ctx)
	log := e.log.With().Str("request_id", rid).Logger()

	operation, err := language.FindOperation(document, req.OperationName)
	if err != nil {
		return &ExecutionResult{Errors: []GraphQLError{{Message: err.Error()}}}
	}

	start := time.Now()
	eventbus.Publish(ctx, events.RequestStart{
		OperationName: operation.Name,
		OperationType: string(operation.Operation),
	})
	result := e.execute(ctx, document, operation, req, log)

	errs := make([]error, len(result.Errors))
	for i, ge := range result.Errors {
		errs[i] = ge
	}
	elapsed := time.Since(start)
	eventbus.Publish(ctx, events.RequestFinish{
		OperationName: operation.Name,
		OperationType: string(operation.Operation),
		Errors:        errs,
		Duration:      elapsed,
	})
	log.Debug().
		Str("operation", operation.Name).
		Str("type", string(operation.Operation)).
		Int("errors", len(result.Errors)).
		Dur("duration", elapsed).
		Msg("executed operation")
	return result
}

func (e *Executor) execute(ctx context.Context, document *language.QueryDocument, operation *language.OperationDefinition, req Request, log zerolog.Logger) *ExecutionResult {
	variables, err := coerceVariableValues(operation, req.Variables)
	if err != nil {
		return &ExecutionResult{Errors: []GraphQLError{{Message: err.Error()}}}
	}

	var rootType *schema.Type
	switch operation.Operation {
	case language.Query:
		rootType = e.schema.GetQueryType()
	case language.Mutation:
		rootType = e.schema.GetMutationType()
	default:
		return &ExecutionResult{Errors: []GraphQLError{{Message: fmt.Sprintf("unsupported operation type: %s", operation.Operation)}}}
	}
	if rootType == nil {
		return &ExecutionResult{Errors: []GraphQLError{{Message: fmt.Sprintf("root type not found for %s operation", operation.Operation)}}}
	}

	state := &executionState{
		executor:  e,
		document:  document,
		variables: variables,
		context:   ctx,
		principal: req.Principal,
		log:       log,
	}
	data := state.executeSelectionSet(rootType, operation.SelectionSet, req.Root, Path{})
	return &ExecutionResult{Data: data, Errors: state.errors}
}

// executionState holds the state of one operation.
type executionState struct {
	executor  *Executor
	document  *language.QueryDocument
	variables map[string]any
	context   context.Context
	principal schema.Principal
	log       zerolog.Logger
	errors    []GraphQLError
}

func (st *executionState) executeSelectionSet(objectType *schema.Type, selectionSet language.SelectionSet, objectValue any, path Path) map[string]any {
	groupedFields := st.collectFields(objectType, selectionSet)
	resultMap := make(map[string]any)

	for _, collected := range groupedFields.orderedFields() {
		responseName := collected.ResponseName
		fields := collected.Fields
		fieldPath := appendPath(path, responseName)

		fieldResult, include := st.executeField(objectType, objectValue, fields, fieldPath)
		if !include {
			continue
		}
		if fields[0].Name == "__typename" {
			resultMap[responseName] = fieldResult
			continue
		}

		fieldDef := objectType.Field(fields[0].Name)
		if schema.IsNonNull(fieldDef.Type) && isNullish(fieldResult) {
			if len(path) > 0 {
				return nil
			}
			resultMap[responseName] = nil
			continue
		}
		if isNullish(fieldResult) {
			resultMap[responseName] = nil
		} else {
			resultMap[responseName] = fieldResult
		}
	}
	return resultMap
}

// executeField resolves one response key. include is false when the field
// is unknown or a directive dropped it.
func (st *executionState) executeField(objectType *schema.Type, objectValue any, fields []*language.Field, path Path) (value any, include bool) {
	node := fields[0]
	if node.Name == "__typename" {
		return objectType.Name, true
	}

	fieldDef := objectType.Field(node.Name)
	if fieldDef == nil {
		st.addError(fmt.Sprintf("Cannot query field '%s' on type '%s'", node.Name, objectType.Name), path)
		return nil, false
	}

	e, err := st.compileField(fieldDef, objectValue, node, path)
	if err != nil {
		st.addFieldError(err, path)
		return nil, true
	}
	if e == nil {
		return nil, false
	}

	result, err := expr.Eval(st.context, e)
	if err != nil {
		st.addFieldError(err, path)
		return nil, true
	}
	return st.completeValue(fieldDef.Type, fields, result, path), true
}

// compileField produces the closed expression for one use of f. A nil
// expression with a nil error means a directive dropped the field.
func (st *executionState) compileField(f *schema.Field, parent any, node *language.Field, path Path) (e expr.Expr, err error) {
	pathStr := pathToString(path)
	start := time.Now()
	eventbus.Publish(st.context, events.FieldCompileStart{Field: f.Path(), Path: pathStr})
	defer func() {
		eventbus.Publish(st.context, events.FieldCompileFinish{
			Field:    f.Path(),
			Path:     pathStr,
			Skipped:  e == nil && err == nil,
			Err:      err,
			Duration: time.Since(start),
		})
	}()

	raw := make(map[string]any, len(node.Arguments))
	for _, arg := range node.Arguments {
		raw[arg.Name] = valueFromASTWithVars(arg.Value, st.variables)
	}
	values, err := f.NewArgumentValues(raw)
	if err != nil {
		return nil, err
	}
	directives, err := st.executableDirectives(node.Directives)
	if err != nil {
		return nil, err
	}

	e, err = f.ProduceExpression(schema.Call{
		Context:    expr.Constant(parent),
		Arguments:  values,
		Variables:  st.variables,
		Directives: directives,
	})
	if err != nil || e == nil {
		return nil, err
	}

	if err := f.Validate(st.context, values); err != nil {
		return nil, err
	}
	if !f.RequiredAuthorization().Allows(st.principal) {
		return nil, fmt.Errorf("%w: %s", schema.ErrAuthorizationDenied, f.Path())
	}
	return e, nil
}

func (st *executionState) executableDirectives(list language.DirectiveList) ([]schema.ExecutableDirective, error) {
	var out []schema.ExecutableDirective
	for _, d := range list {
		factory, ok := st.executor.directives[d.Name]
		if !ok {
			st.log.Debug().Str("directive", d.Name).Msg("ignoring unknown directive")
			continue
		}
		args := make(map[string]any, len(d.Arguments))
		for _, a := range d.Arguments {
			args[a.Name] = valueFromASTWithVars(a.Value, st.variables)
		}
		ed, err := factory(args)
		if err != nil {
			return nil, fmt.Errorf("directive @%s: %w", d.Name, err)
		}
		out = append(out, ed)
	}
	return out, nil
}

func (st *executionState) completeValue(fieldType *schema.TypeRef, fields []*language.Field, result any, path Path) any {
	if schema.IsNonNull(fieldType) {
		if isNullish(result) {
			if !st.hasErrorAtPath(path) {
				st.addError(fmt.Sprintf("Cannot return null for non-nullable field %s", pathToString(path)), path)
			}
			return nil
		}
		completed := st.completeValue(schema.Unwrap(fieldType), fields, result, path)
		if isNullish(completed) {
			return nil
		}
		return completed
	}

	if isNullish(result) {
		return nil
	}
	if schema.IsList(fieldType) {
		return st.completeListValue(fieldType, fields, result, path)
	}

	namedType := schema.GetNamedType(fieldType)
	typeObj := st.executor.schema.Type(namedType)
	if typeObj == nil {
		st.addError(fmt.Sprintf("Unknown type: %s", namedType), path)
		return nil
	}

	switch typeObj.Kind {
	case schema.TypeKindScalar, schema.TypeKindEnum:
		serialized, err := serializeLeafValue(typeObj, result)
		if err != nil {
			st.addError(err.Error(), path)
			return nil
		}
		return serialized
	case schema.TypeKindObject:
		return st.executeSelectionSet(typeObj, mergeSelectionSets(fields), result, path)
	default:
		st.addError(fmt.Sprintf("Cannot complete value of unexpected type: %s", typeObj.Kind), path)
		return nil
	}
}

func (st *executionState) completeListValue(listType *schema.TypeRef, fields []*language.Field, result any, path Path) any {
	var items []any
	if direct, ok := result.([]any); ok {
		items = direct
	} else {
		rv := reflect.ValueOf(result)
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			st.addError(fmt.Sprintf("Expected list value, got %T", result), path)
			return nil
		}
		items = make([]any, rv.Len())
		for i := range items {
			items[i] = rv.Index(i).Interface()
		}
	}

	inner := schema.Unwrap(listType)
	completed := make([]any, len(items))
	for i, item := range items {
		v := st.completeValue(inner, fields, item, appendPath(path, i))
		if schema.IsNonNull(inner) && isNullish(v) {
			return nil
		}
		completed[i] = v
	}
	return completed
}

// serializeLeafValue turns a scalar or enum value into a JSON-safe value.
func serializeLeafValue(t *schema.Type, v any) (any, error) {
	if t.Kind == schema.TypeKindScalar {
		out, err := schema.SerializeScalar(v, t.Name)
		if err != nil {
			return nil, fmt.Errorf("cannot serialize %s: %w", t.Name, err)
		}
		return out, nil
	}
	var name string
	switch ev := v.(type) {
	case string:
		name = ev
	case fmt.Stringer:
		name = ev.String()
	default:
		rv := reflect.ValueOf(v)
		if rv.Kind() != reflect.String {
			return nil, fmt.Errorf("cannot serialize %T as enum %s", v, t.Name)
		}
		name = rv.String()
	}
	for _, val := range t.EnumValues {
		if val.Name == name {
			return name, nil
		}
	}
	return nil, fmt.Errorf("%q is not a value of enum %s", name, t.Name)
}

func (st *executionState) addError(message string, path Path) {
	st.errors = append(st.errors, GraphQLError{Message: message, Path: path})
}

// addFieldError records err with an error code for validation and
// authorization failures.
func (st *executionState) addFieldError(err error, path Path) {
	ge := GraphQLError{Message: err.Error(), Path: path}
	var ve *schema.ValidationError
	switch {
	case errors.As(err, &ve):
		ge.Extensions = map[string]any{"code": CodeValidationFailed, "failures": ve.Failures}
	case errors.Is(err, schema.ErrAuthorizationDenied):
		ge.Extensions = map[string]any{"code": CodeForbidden}
	}
	st.errors = append(st.errors, ge)
	st.log.Debug().Err(err).Str("path", pathToString(path)).Msg("field failed")
}

func (st *executionState) hasErrorAtPath(path Path) bool {
	for _, err := range st.errors {
		if reflect.DeepEqual(err.Path, path) {
			return true
		}
	}
	return false
}

func pathToString(path Path) string {
	result := ""
	for i, elem := range path {
		switch v := elem.(type) {
		case string:
			if i > 0 {
				result += "."
			}
			result += v
		case int:
			result += fmt.Sprintf("[%d]", v)
		}
	}
	return result
}

func appendPath(path Path, elem PathElement) Path {
	newPath := make(Path, len(path)+1)
	copy(newPath, path)
	newPath[len(path)] = elem
	return newPath
}

func mergeSelectionSets(fields []*language.Field) language.SelectionSet {
	var merged language.SelectionSet
	for _, f := range fields {
		merged = append(merged, f.SelectionSet...)
	}
	return merged
}

// isNullish returns true for nil interfaces and typed nils.
func isNullish(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Interface, reflect.Ptr, reflect.Slice, reflect.Map, reflect.Func, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}
