package executor

import (
	language "github.com/overjt/entitygraphql/internal/language"
	schema "github.com/overjt/entitygraphql/internal/schema"
)

// collectedFieldMap preserves field order from the original query
type collectedFieldMap struct {
	fields []collectedField
	index  map[string]int
}

type collectedField struct {
	ResponseName string
	Fields       []*language.Field
}

func newCollectedFieldMap() *collectedFieldMap {
	return &collectedFieldMap{index: make(map[string]int)}
}

func (cfm *collectedFieldMap) add(responseName string, field *language.Field) {
	if idx, exists := cfm.index[responseName]; exists {
		cfm.fields[idx].Fields = append(cfm.fields[idx].Fields, field)
		return
	}
	cfm.index[responseName] = len(cfm.fields)
	cfm.fields = append(cfm.fields, collectedField{
		ResponseName: responseName,
		Fields:       []*language.Field{field},
	})
}

func (cfm *collectedFieldMap) orderedFields() []collectedField {
	return cfm.fields
}

// collectFields groups the selections by response name. Directives on
// fields are left for the field's produced expression; directives on
// fragments are applied here.
func (st *executionState) collectFields(objectType *schema.Type, selectionSet language.SelectionSet) *collectedFieldMap {
	groupedFields := newCollectedFieldMap()
	st.collectFieldsImpl(objectType, selectionSet, groupedFields, make(map[string]bool))
	return groupedFields
}

func (st *executionState) collectFieldsImpl(objectType *schema.Type, selectionSet language.SelectionSet, groupedFields *collectedFieldMap, visitedFragments map[string]bool) {
	for _, selection := range selectionSet {
		switch sel := selection.(type) {
		case *language.Field:
			responseName := sel.Alias
			if responseName == "" {
				responseName = sel.Name
			}
			groupedFields.add(responseName, sel)

		case *language.InlineFragment:
			if !st.shouldIncludeNode(sel.Directives) {
				continue
			}
			if sel.TypeCondition != "" && sel.TypeCondition != objectType.Name {
				continue
			}
			st.collectFieldsImpl(objectType, sel.SelectionSet, groupedFields, visitedFragments)

		case *language.FragmentSpread:
			if !st.shouldIncludeNode(sel.Directives) || visitedFragments[sel.Name] {
				continue
			}
			visitedFragments[sel.Name] = true

			fragmentDef := st.document.Fragments.ForName(sel.Name)
			if fragmentDef == nil {
				continue
			}
			if fragmentDef.TypeCondition != "" && fragmentDef.TypeCondition != objectType.Name {
				continue
			}
			if !st.shouldIncludeNode(fragmentDef.Directives) {
				continue
			}
			st.collectFieldsImpl(objectType, fragmentDef.SelectionSet, groupedFields, visitedFragments)
		}
	}
}

// shouldIncludeNode evaluates @skip and @include on a fragment.
func (st *executionState) shouldIncludeNode(directives language.DirectiveList) bool {
	if skip := directives.ForName("skip"); skip != nil {
		if b, ok := st.directiveArgument(skip, "if").(bool); ok && b {
			return false
		}
	}
	if include := directives.ForName("include"); include != nil {
		if b, ok := st.directiveArgument(include, "if").(bool); ok && !b {
			return false
		}
	}
	return true
}

func (st *executionState) directiveArgument(directive *language.Directive, name string) any {
	arg := directive.Arguments.ForName(name)
	if arg == nil {
		return nil
	}
	return valueFromASTWithVars(arg.Value, st.variables)
}
