package dialect

import (
	"fmt"

	"github.com/aretw0/cafe/pkg/domain"
)

var shorthandLogic = []string{"and", "or", "not"}

// conditionList normalises a condition list that may be a single mapping,
// a template string or a list of either.
func (n *normalizer) conditionList(path string, v any) []map[string]any {
	items := asList(v)
	if len(items) == 0 {
		return nil
	}
	out := make([]map[string]any, 0, len(items))
	for i, item := range items {
		p := fmt.Sprintf("%s[%d]", path, i)
		if c := n.condition(p, item); c != nil {
			out = append(out, c)
		}
	}
	return out
}

// condition normalises one condition, expanding shorthands recursively.
func (n *normalizer) condition(path string, v any) map[string]any {
	switch c := v.(type) {
	case string:
		return map[string]any{domain.KeyCondition: "template", "value_template": c}
	case map[string]any:
		out := domain.CloneMap(c)
		if _, ok := out[domain.KeyCondition]; !ok {
			for _, logic := range shorthandLogic {
				if children, ok := out[logic]; ok {
					delete(out, logic)
					out[domain.KeyCondition] = logic
					out[domain.KeyConditions] = children
					break
				}
			}
		}
		if _, ok := out[domain.KeyCondition]; !ok {
			n.warn(path, "condition has no type")
		}
		if children, ok := out[domain.KeyConditions]; ok {
			list := n.conditionList(path+"."+domain.KeyConditions, children)
			nested := make([]any, len(list))
			for i := range list {
				nested[i] = list[i]
			}
			out[domain.KeyConditions] = nested
		}
		return out
	}
	n.warn(path, "condition must be a mapping or a template, got %T; skipped", v)
	return nil
}

// conditionsAny is conditionList returned as []any for embedding in blocks.
func (n *normalizer) conditionsAny(path string, v any) []any {
	list := n.conditionList(path, v)
	out := make([]any, len(list))
	for i := range list {
		out[i] = list[i]
	}
	return out
}
