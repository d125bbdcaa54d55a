package executor

import (
	language "github.com/hanpama/typegraph/internal/language"
	schema "github.com/hanpama/typegraph/internal/schema"
)

// fieldGroup is every field node sharing one response name, in query order.
type fieldGroup struct {
	responseName string
	fields       []*language.Field
}

// collect groups the fields of set that apply to objectType, honoring
// @skip, @include and fragment type conditions. Each named fragment is
// expanded at most once.
func (e *execution) collect(objectType *schema.Type, set language.SelectionSet) []fieldGroup {
	var groups []fieldGroup
	index := make(map[string]int)
	visited := make(map[string]bool)

	var walk func(language.SelectionSet)
	walk = func(set language.SelectionSet) {
		for _, sel := range set {
			switch sel := sel.(type) {
			case *language.Field:
				if !e.included(sel.Directives) {
					continue
				}
				name := sel.Alias
				if name == "" {
					name = sel.Name
				}
				if i, ok := index[name]; ok {
					groups[i].fields = append(groups[i].fields, sel)
					continue
				}
				index[name] = len(groups)
				groups = append(groups, fieldGroup{responseName: name, fields: []*language.Field{sel}})

			case *language.InlineFragment:
				if e.included(sel.Directives) && e.applies(objectType, sel.TypeCondition) {
					walk(sel.SelectionSet)
				}

			case *language.FragmentSpread:
				if !e.included(sel.Directives) || visited[sel.Name] {
					continue
				}
				visited[sel.Name] = true
				def := e.document.Fragments.ForName(sel.Name)
				if def == nil || !e.applies(objectType, def.TypeCondition) || !e.included(def.Directives) {
					continue
				}
				walk(def.SelectionSet)
			}
		}
	}
	walk(set)
	return groups
}

// applies reports whether a fragment on condition applies to objectType:
// the type itself, or an interface or union it belongs to.
func (e *execution) applies(objectType *schema.Type, condition string) bool {
	if condition == "" || condition == objectType.Name {
		return true
	}
	cond := e.schema.Types[condition]
	if cond == nil || (cond.Kind != schema.TypeKindInterface && cond.Kind != schema.TypeKindUnion) {
		return false
	}
	for _, name := range cond.PossibleTypes {
		if name == objectType.Name {
			return true
		}
	}
	return false
}

// included evaluates @skip(if:) and @include(if:).
func (e *execution) included(directives language.DirectiveList) bool {
	if skip, ok := e.directiveFlag(directives.ForName("skip")); ok && skip {
		return false
	}
	if include, ok := e.directiveFlag(directives.ForName("include")); ok && !include {
		return false
	}
	return true
}

func (e *execution) directiveFlag(d *language.Directive) (value, ok bool) {
	if d == nil {
		return false, false
	}
	arg := d.Arguments.ForName("if")
	if arg == nil {
		return false, false
	}
	value, ok = literal(arg.Value, e.vars).(bool)
	return value, ok
}

// mergeSelections joins the sub-selections of a field group.
func mergeSelections(fields []*language.Field) language.SelectionSet {
	if len(fields) == 1 {
		return fields[0].SelectionSet
	}
	var merged language.SelectionSet
	for _, f := range fields {
		merged = append(merged, f.SelectionSet...)
	}
	return merged
}
