package automation

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/aretw0/cafe/pkg/domain"
	"gopkg.in/yaml.v3"
)

// keyOrder ranks well-known keys inside entries; unknown keys follow, sorted.
var keyOrder = rank(
	"id", "alias", "enabled",
	"trigger", "platform", "condition", "action", "service", "event",
	"delay", "wait_template", "wait_for_trigger", "timeout", "continue_on_timeout",
	"if", "then", "else", "choose", "conditions", "sequence", "default",
	"repeat", "until", "while",
	"variables", "entity_id", "device_id", "area_id", "target", "data",
	"version", "strategy", "nodes", "type", "x", "y",
)

func rank(keys ...string) map[string]int {
	m := make(map[string]int, len(keys))
	for i, k := range keys {
		m[k] = i
	}
	return m
}

// Marshal encodes the document in the given dialect.
func (d *Document) Marshal(dialect Dialect) ([]byte, error) {
	root, err := d.Node(dialect)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		return nil, fmt.Errorf("encode automation: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Map returns the document as plain values, keys spelled in the given dialect.
func (d *Document) Map(dialect Dialect) (map[string]any, error) {
	root, err := d.Node(dialect)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := root.Decode(&m); err != nil {
		return nil, fmt.Errorf("decode automation: %w", err)
	}
	return m, nil
}

// Node builds the ordered YAML tree of the document.
func (d *Document) Node(dialect Dialect) (*yaml.Node, error) {
	kw := dialect.Keywords()
	root := &yaml.Node{Kind: yaml.MappingNode}

	add := func(key string, v any) error {
		n, err := encodeValue(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		root.Content = append(root.Content, scalar(key), n)
		return nil
	}

	if d.ID != "" {
		if err := add("id", d.ID); err != nil {
			return nil, err
		}
	}
	if d.Alias != "" {
		if err := add("alias", d.Alias); err != nil {
			return nil, err
		}
	}
	if d.Description != "" {
		if err := add("description", d.Description); err != nil {
			return nil, err
		}
	}
	if d.Mode != "" {
		if err := add("mode", d.Mode); err != nil {
			return nil, err
		}
	}
	if d.Max > 0 {
		if err := add("max", d.Max); err != nil {
			return nil, err
		}
	}
	if d.InitialState != nil {
		if err := add("initial_state", *d.InitialState); err != nil {
			return nil, err
		}
	}

	vars := domain.CloneMap(d.Variables)
	if d.Layout != nil {
		if vars == nil {
			vars = map[string]any{}
		}
		vars[domain.MetadataKey] = d.Layout.Map()
	}
	if len(vars) > 0 {
		if err := add("variables", vars); err != nil {
			return nil, err
		}
	}

	if err := add(kw.Triggers, renameTriggers(d.Triggers, kw)); err != nil {
		return nil, err
	}
	if len(d.Conditions) > 0 {
		if err := add(kw.Conditions, toAny(d.Conditions)); err != nil {
			return nil, err
		}
	}
	if err := add(kw.Actions, renameActions(d.Actions, kw)); err != nil {
		return nil, err
	}

	extra := make([]string, 0, len(d.Extra))
	for k := range d.Extra {
		extra = append(extra, k)
	}
	sort.Strings(extra)
	for _, k := range extra {
		if err := add(k, d.Extra[k]); err != nil {
			return nil, err
		}
	}
	return root, nil
}

func scalar(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

func encodeValue(v any) (*yaml.Node, error) {
	switch val := v.(type) {
	case map[string]any:
		return encodeMap(val)
	case []map[string]any:
		return encodeValue(toAny(val))
	case []any:
		seq := &yaml.Node{Kind: yaml.SequenceNode}
		for _, item := range val {
			n, err := encodeValue(item)
			if err != nil {
				return nil, err
			}
			seq.Content = append(seq.Content, n)
		}
		return seq, nil
	}
	n := &yaml.Node{}
	if err := n.Encode(v); err != nil {
		return nil, err
	}
	return n, nil
}

func encodeMap(m map[string]any) (*yaml.Node, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ri, iok := keyOrder[keys[i]]
		rj, jok := keyOrder[keys[j]]
		switch {
		case iok && jok:
			return ri < rj
		case iok:
			return true
		case jok:
			return false
		}
		return keys[i] < keys[j]
	})

	out := &yaml.Node{Kind: yaml.MappingNode}
	for _, k := range keys {
		n, err := encodeValue(m[k])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		out.Content = append(out.Content, scalar(k), n)
	}
	return out, nil
}

func toAny(list []map[string]any) []any {
	out := make([]any, len(list))
	for i, m := range list {
		out[i] = m
	}
	return out
}

// renameTriggers spells the canonical "platform" key in the target dialect.
func renameTriggers(triggers []map[string]any, kw Keywords) []any {
	out := make([]any, len(triggers))
	for i, t := range triggers {
		out[i] = renameTrigger(t, kw)
	}
	return out
}

// renameTrigger drops a stray current-dialect key so the platform is written once.
func renameTrigger(t map[string]any, kw Keywords) map[string]any {
	out := make(map[string]any, len(t))
	_, hasPlatform := t[domain.KeyPlatform]
	for k, v := range t {
		switch {
		case k == domain.KeyPlatform:
			k = kw.Platform
		case k == domain.KeyTrigger && hasPlatform:
			continue
		}
		out[k] = v
	}
	return out
}

// renameActions spells canonical service calls in the target dialect,
// descending into every nested sequence.
func renameActions(actions []map[string]any, kw Keywords) []any {
	out := make([]any, len(actions))
	for i, a := range actions {
		out[i] = renameAction(a, kw)
	}
	return out
}

func renameAction(a map[string]any, kw Keywords) map[string]any {
	out := make(map[string]any, len(a))
	_, hasService := a[domain.KeyService].(string)
	for k, v := range a {
		switch k {
		case domain.KeyService:
			if _, ok := v.(string); ok {
				k = kw.Service
			}
		case domain.KeyAction:
			if _, ok := v.(string); ok && hasService {
				continue
			}
		case "then", "else", "default", "sequence", "parallel":
			v = renameNested(v, kw)
		case "choose":
			v = renameOptions(v, kw)
		case "repeat":
			if r, ok := v.(map[string]any); ok {
				v = renameAction(r, kw)
			}
		case domain.KeyWaitTrig:
			v = renameNestedTriggers(v, kw)
		}
		out[k] = v
	}
	return out
}

func renameNested(v any, kw Keywords) any {
	switch val := v.(type) {
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			if m, ok := item.(map[string]any); ok {
				out[i] = renameAction(m, kw)
			} else {
				out[i] = item
			}
		}
		return out
	case []map[string]any:
		return renameActions(val, kw)
	case map[string]any:
		return renameAction(val, kw)
	}
	return v
}

func renameOptions(v any, kw Keywords) any {
	list, ok := v.([]any)
	if !ok {
		return v
	}
	out := make([]any, len(list))
	for i, item := range list {
		opt, ok := item.(map[string]any)
		if !ok {
			out[i] = item
			continue
		}
		o := make(map[string]any, len(opt))
		for k, val := range opt {
			if k == "sequence" {
				val = renameNested(val, kw)
			}
			o[k] = val
		}
		out[i] = o
	}
	return out
}

func renameNestedTriggers(v any, kw Keywords) any {
	switch val := v.(type) {
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			if m, ok := item.(map[string]any); ok {
				out[i] = renameTrigger(m, kw)
			} else {
				out[i] = item
			}
		}
		return out
	case map[string]any:
		return renameTrigger(val, kw)
	}
	return v
}
