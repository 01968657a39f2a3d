package extensions

import (
	"fmt"

	"github.com/overjt/entitygraphql/internal/expr"
	"github.com/overjt/entitygraphql/internal/schema"
)

// OffsetPaging turns a list field into a page of the list. The field
// gains skip and take arguments and returns <Type>OffsetPage:
//
//	type PersonOffsetPage {
//	  items: [Person!]!
//	  totalItems: Int!
//	  hasNextPage: Boolean!
//	  hasPreviousPage: Boolean!
//	}
//
// Zero sizes fall back to the schema options. A take of null returns the
// rest of the list and is rejected when MaxPageSize is set.
type OffsetPaging struct {
	DefaultPageSize int
	MaxPageSize     int
}

type offsetArgs struct {
	Skip *int `graphql:"skip" validate:"min=0" description:"Number of items to skip"`
	Take *int `graphql:"take" validate:"min=0" description:"Number of items to return"`
}

func (p OffsetPaging) Configure(s *schema.Schema, f *schema.Field) error {
	if s == nil {
		return fmt.Errorf("%w: offset paging", ErrNoSchema)
	}
	elem := f.Type.ElementType()
	if elem == nil {
		return fmt.Errorf("%w: offset paging on %s", ErrNotAList, f.Type)
	}
	list := f.Expression()
	if list == nil {
		return fmt.Errorf("%w: offset paging", ErrNoExpression)
	}

	defaultSize, maxSize := p.DefaultPageSize, p.MaxPageSize
	if defaultSize == 0 {
		defaultSize = s.Options().DefaultPageSize
	}
	if maxSize == 0 {
		maxSize = s.Options().MaxPageSize
	}
	if defaultSize == 0 || (maxSize > 0 && defaultSize > maxSize) {
		defaultSize = maxSize
	}

	skip := 0
	args := offsetArgs{Skip: &skip}
	if defaultSize > 0 {
		args.Take = &defaultSize
	}
	if _, err := f.AddArguments(&args); err != nil {
		return err
	}
	if maxSize > 0 {
		f.AddValidator(maxTake(maxSize))
	}

	// the stored list expression was written against the previous argument
	// parameter; AddArguments rewrote the field's copy, so read it again
	list = f.Expression()
	param := f.ArgumentParam()
	skipArg, takeArg := expr.Prop(param, "skip"), expr.Prop(param, "take")
	count := expr.CallMethod("Count", list)
	null := expr.Constant(nil)

	hasNext := expr.If(expr.BinaryOp(expr.OpEqual, takeArg, null),
		expr.Constant(false),
		expr.If(expr.BinaryOp(expr.OpEqual, skipArg, null),
			expr.BinaryOp(expr.OpLess, takeArg, count),
			expr.BinaryOp(expr.OpLess, expr.BinaryOp(expr.OpAdd, skipArg, takeArg), count)))

	page := pageType(s, f, elem)
	f.Returns(schema.NonNullType(schema.NamedType(page.Name)))
	f.UpdateExpression(expr.Object(
		expr.Binding{Name: "items", Value: expr.CallMethod("Take", expr.CallMethod("Skip", list, skipArg), takeArg)},
		expr.Binding{Name: "totalItems", Value: count},
		expr.Binding{Name: "hasNextPage", Value: hasNext},
		expr.Binding{Name: "hasPreviousPage", Value: expr.BinaryOp(expr.OpGreater, skipArg, expr.Constant(0))},
	))
	return nil
}

// pageType returns the page type for elem, adding it to s on first use.
func pageType(s *schema.Schema, f *schema.Field, elem *schema.TypeRef) *schema.Type {
	named := elem.GetNamedType()
	name := named + "OffsetPage"
	if t := s.Type(name); t != nil {
		return t
	}
	page := schema.NewType(name, schema.TypeKindObject, "Offset page of "+named)
	s.AddType(page)

	items := page.AddField("items", "Items of the page", schema.NonNullType(schema.ListType(elem)))
	items.Resolve(member("items"))
	items.UseArgumentsFrom(f)

	page.AddField("totalItems", "Number of items before paging", schema.NonNullType(schema.NamedType("Int"))).
		Resolve(member("totalItems"))
	page.AddField("hasNextPage", "", schema.NonNullType(schema.NamedType("Boolean"))).
		Resolve(member("hasNextPage"))
	page.AddField("hasPreviousPage", "", schema.NonNullType(schema.NamedType("Boolean"))).
		Resolve(member("hasPreviousPage"))
	return page
}

func member(name string) func(*expr.Param) expr.Expr {
	return func(p *expr.Param) expr.Expr { return expr.Prop(p, name) }
}

func maxTake(max int) schema.Validator {
	return func(vc *schema.ValidatorContext) error {
		take, ok := vc.Value("take").(int)
		if !ok || take > max {
			vc.AddError("take", fmt.Sprintf("argument 'take' must be at most %d", max))
		}
		return nil
	}
}

// UseOffsetPaging attaches OffsetPaging to the annotated field.
type UseOffsetPaging struct {
	DefaultPageSize int
	MaxPageSize     int
}

func (UseOffsetPaging) AnnotationKind() string { return "offsetPaging" }

func (a UseOffsetPaging) ApplyExtension(f *schema.Field) error {
	return f.AddExtension(OffsetPaging(a))
}
