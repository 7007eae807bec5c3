// Package flatten turns a nested action sequence into a flat, tagged list.
//
// Every if/then/else or choose block becomes a synthetic condition entry
// followed by its branch entries, each tagged with the branch of its
// immediate parent. The parser walks this list to rebuild graph edges.
package flatten

import (
	"bytes"

	"gopkg.in/yaml.v3"
)

// Branch tags an entry with the branch of its immediate parent block.
type Branch string

const (
	BranchNone Branch = ""
	BranchThen Branch = "then"
	BranchElse Branch = "else"
)

// MarshalJSON writes the untagged branch as null.
func (b Branch) MarshalJSON() ([]byte, error) {
	if b == BranchNone {
		return []byte("null"), nil
	}
	return []byte(`"` + string(b) + `"`), nil
}

// Block tells which construct produced a synthetic condition entry.
type Block string

const (
	BlockIf     Block = "if"
	BlockChoose Block = "choose"
)

// Aliases of synthetic condition entries.
const (
	AliasIf     = "If condition"
	AliasChoose = "Choose condition"
)

// Entry is one element of the flattened list.
type Entry struct {
	Action map[string]any `json:"action"`
	Branch Branch         `json:"branch"`

	// Parent is the index of the synthetic condition governing this entry, -1 at top level.
	Parent int `json:"parent"`
	// Handle is the parent's outcome ("true" or "false") that leads here.
	Handle string `json:"handle,omitempty"`
	// Block is set on synthetic condition entries only.
	Block Block `json:"block,omitempty"`
	// BlockKeys holds keys of the source block that have no place in the synthetic entry
	// (e.g. enabled, continue_on_error, or a block alias).
	BlockKeys map[string]any `json:"block_keys,omitempty"`
}

// Synthetic reports whether the entry was produced for an if or choose block.
func (e Entry) Synthetic() bool { return e.Block != "" }

// Flatten walks actions depth first. Nesting is unbounded.
func Flatten(actions []map[string]any) []Entry {
	var out []Entry
	walk(&out, actions, BranchNone, -1, "")
	return out
}

// FlattenAny is Flatten for a decoded YAML sequence; non-mapping items are skipped.
func FlattenAny(actions []any) []Entry {
	return Flatten(mappings(actions))
}

func walk(out *[]Entry, seq []map[string]any, branch Branch, parent int, handle string) {
	for _, entry := range seq {
		switch {
		case has(entry, "if"):
			idx := appendSynthetic(out, entry, BlockIf, AliasIf, entry["if"], parent, handle, "if", "then", "else")
			walk(out, sequence(entry["then"]), BranchThen, idx, "true")
			walk(out, sequence(entry["else"]), BranchElse, idx, "false")
		case has(entry, "choose"):
			prev := parent
			prevHandle := handle
			for _, opt := range mappings(asList(entry["choose"])) {
				idx := appendSynthetic(out, opt, BlockChoose, AliasChoose, opt["conditions"], prev, prevHandle, "conditions", "sequence")
				walk(out, sequence(opt["sequence"]), BranchThen, idx, "true")
				prev, prevHandle = idx, "false"
			}
			// The default hangs off the false path of the last option.
			walk(out, sequence(entry["default"]), BranchElse, prev, prevHandle)
		default:
			*out = append(*out, Entry{Action: entry, Branch: branch, Parent: parent, Handle: handle})
		}
	}
}

func appendSynthetic(out *[]Entry, src map[string]any, block Block, alias string, conds any, parent int, handle string, consumed ...string) int {
	list := Conditions(conds)
	action := map[string]any{
		"alias":      alias,
		"conditions": list,
	}
	if len(list) > 0 {
		action["condition"] = conditionType(list[0])
	}

	var keys map[string]any
	for k, v := range src {
		if contains(consumed, k) {
			continue
		}
		if keys == nil {
			keys = map[string]any{}
		}
		keys[k] = v
	}

	*out = append(*out, Entry{Action: action, Branch: BranchNone, Parent: parent, Handle: handle, Block: block, BlockKeys: keys})
	return len(*out) - 1
}

// Conditions normalises a condition list given as a single mapping, a list,
// or template shorthand strings.
func Conditions(v any) []any {
	switch val := v.(type) {
	case nil:
		return []any{}
	case []any:
		return val
	case []map[string]any:
		out := make([]any, len(val))
		for i := range val {
			out[i] = val[i]
		}
		return out
	default:
		return []any{val}
	}
}

func conditionType(c any) any {
	switch val := c.(type) {
	case map[string]any:
		return val["condition"]
	case string:
		return "template"
	}
	return nil
}

func sequence(v any) []map[string]any {
	return mappings(asList(v))
}

func asList(v any) []any {
	switch val := v.(type) {
	case nil:
		return nil
	case []any:
		return val
	case []map[string]any:
		out := make([]any, len(val))
		for i := range val {
			out[i] = val[i]
		}
		return out
	default:
		return []any{val}
	}
}

func mappings(items []any) []map[string]any {
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

func has(m map[string]any, key string) bool {
	_, ok := m[key]
	return ok
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Equal reports whether two flattened lists carry the same branch tags and
// actions. Actions are compared through their canonical YAML encoding.
func Equal(a, b []Entry) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Branch != b[i].Branch {
			return false
		}
		if !bytes.Equal(canonical(a[i].Action), canonical(b[i].Action)) {
			return false
		}
	}
	return true
}

// canonical encodes v as YAML; map keys come out sorted.
func canonical(v any) []byte {
	out, err := yaml.Marshal(v)
	if err != nil {
		return nil
	}
	return out
}

// Branches returns the branch tags of entries, for compact assertions.
func Branches(entries []Entry) []Branch {
	out := make([]Branch, len(entries))
	for i, e := range entries {
		out[i] = e.Branch
	}
	return out
}

// Children returns the indices of entries whose parent is idx and whose
// handle matches, in list order. idx -1 selects top-level entries.
func Children(entries []Entry, idx int, handle string) []int {
	var out []int
	for i, e := range entries {
		if e.Parent == idx && (idx < 0 || e.Handle == handle) {
			out = append(out, i)
		}
	}
	return out
}
