package extensions

import (
	"fmt"
	"strings"

	"github.com/overjt/entitygraphql/internal/expr"
	"github.com/overjt/entitygraphql/internal/schema"
)

// Sort adds a sort argument to a list field. Each entry names a member of
// the element type; a leading "-" sorts that member descending. When Fields
// is set only those members may be named.
type Sort struct {
	Fields  []string
	Default []string
}

type sortArgs struct {
	Sort []string `graphql:"sort" description:"Members to order by, prefix with - for descending"`
}

func (st Sort) Configure(_ *schema.Schema, f *schema.Field) error {
	if f.Type.ElementType() == nil {
		return fmt.Errorf("%w: sort on %s", ErrNotAList, f.Type)
	}
	if f.Expression() == nil {
		return fmt.Errorf("%w: sort", ErrNoExpression)
	}
	if _, err := f.AddArguments(&sortArgs{Sort: st.Default}); err != nil {
		return err
	}
	if len(st.Fields) > 0 {
		f.AddValidator(allowedSort(st.Fields))
	}
	f.UpdateExpression(expr.CallMethod("OrderBy", f.Expression(), expr.Prop(f.ArgumentParam(), "sort")))
	return nil
}

func allowedSort(fields []string) schema.Validator {
	allowed := make(map[string]struct{}, len(fields))
	for _, name := range fields {
		allowed[name] = struct{}{}
	}
	return func(vc *schema.ValidatorContext) error {
		for _, k := range sortKeys(vc.Value("sort")) {
			if _, ok := allowed[strings.TrimPrefix(k, "-")]; !ok {
				vc.AddError("sort", fmt.Sprintf("argument 'sort' cannot order by '%s'", k))
			}
		}
		return nil
	}
}

// sortKeys reads the bound sort value: the declared default is a []string,
// request values arrive coerced to []any.
func sortKeys(v any) []string {
	switch keys := v.(type) {
	case []string:
		return keys
	case []any:
		out := make([]string, 0, len(keys))
		for _, k := range keys {
			if s, ok := k.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// UseSort attaches Sort to the annotated field.
type UseSort struct {
	Fields  []string
	Default []string
}

func (UseSort) AnnotationKind() string { return "sort" }

func (a UseSort) ApplyExtension(f *schema.Field) error {
	return f.AddExtension(Sort(a))
}
