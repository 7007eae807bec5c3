// Package dialect reads automation documents written in any of the historical
// spellings and produces a single canonical automation.Document.
//
// It runs once, at parse entry. Every recovered anomaly is reported as a
// *domain.DialectWarning; only unreadable input is an error.
package dialect

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aretw0/cafe/pkg/automation"
	"github.com/aretw0/cafe/pkg/domain"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Options tunes normalisation.
type Options struct {
	// Canonical rewrites single target ids as one-element lists.
	Canonical bool
}

// normalizer accumulates warnings for one document.
type normalizer struct {
	opts     Options
	warnings []error
}

func (n *normalizer) warn(path, format string, args ...any) {
	n.warnings = append(n.warnings, domain.Warnf(path, format, args...))
}

// Parse decodes YAML text and normalises it.
func Parse(text []byte, opts Options) (*automation.Document, []error, error) {
	var raw any
	if err := yaml.Unmarshal(text, &raw); err != nil {
		return nil, nil, &domain.ParseError{Line: yamlLine(err), Msg: "invalid YAML", Err: err}
	}
	return Normalize(raw, opts)
}

// Normalize turns a decoded YAML value into a canonical document.
func Normalize(raw any, opts Options) (*automation.Document, []error, error) {
	n := &normalizer{opts: opts}
	root, err := n.pickAutomation(raw)
	if err != nil {
		return nil, n.warnings, err
	}
	doc := n.document(root)
	return doc, n.warnings, nil
}

func (n *normalizer) pickAutomation(raw any) (map[string]any, error) {
	switch v := raw.(type) {
	case nil:
		return nil, &domain.ParseError{Msg: "document is empty"}
	case []any:
		if len(v) == 0 {
			return nil, &domain.ParseError{Msg: "document holds no automation"}
		}
		if len(v) > 1 {
			n.warn("", "document holds %d automations; importing the first", len(v))
		}
		return n.pickAutomation(v[0])
	case map[string]any:
		// configuration.yaml style: automation: [...]
		if inner, ok := v["automation"]; ok && !hasAny(v, "trigger", "triggers", "action", "actions") {
			n.warn("automation", "unwrapping automation section")
			return n.pickAutomation(inner)
		}
		return v, nil
	}
	return nil, &domain.ParseError{Msg: fmt.Sprintf("document root must be a mapping, got %T", raw)}
}

var topLevel = map[string]bool{
	"id": true, "alias": true, "description": true, "mode": true, "max": true,
	"initial_state": true, "variables": true,
	"trigger": true, "triggers": true, "condition": true, "conditions": true,
	"action": true, "actions": true,
}

func (n *normalizer) document(root map[string]any) *automation.Document {
	doc := &automation.Document{
		ID:          stringOf(root["id"]),
		Alias:       stringOf(root["alias"]),
		Description: stringOf(root["description"]),
		Mode:        stringOf(root["mode"]),
	}
	if v, ok := root["max"]; ok {
		if m, ok := v.(int); ok {
			doc.Max = m
		} else {
			n.warn("max", "expected an integer, got %T; ignored", v)
		}
	}
	if v, ok := root["initial_state"]; ok {
		if b, ok := v.(bool); ok {
			doc.InitialState = &b
		} else {
			n.warn("initial_state", "expected a boolean, got %T; ignored", v)
		}
	}

	if v, ok := root["variables"]; ok {
		vars, isMap := v.(map[string]any)
		if !isMap {
			n.warn("variables", "expected a mapping, got %T; ignored", v)
		}
		doc.Variables = domain.CloneMap(vars)
		if meta, ok := doc.Variables[domain.MetadataKey]; ok {
			delete(doc.Variables, domain.MetadataKey)
			doc.Layout = n.layout(meta)
		}
		if len(doc.Variables) == 0 {
			doc.Variables = nil
		}
	}

	triggersKey, triggers := n.section(root, "triggers", "trigger")
	for i, t := range asList(triggers) {
		path := fmt.Sprintf("%s[%d]", triggersKey, i)
		m, ok := t.(map[string]any)
		if !ok {
			n.warn(path, "trigger must be a mapping, got %T; skipped", t)
			continue
		}
		doc.Triggers = append(doc.Triggers, n.trigger(path, m))
	}

	condKey, conds := n.section(root, "conditions", "condition")
	doc.Conditions = n.conditionList(condKey, conds)

	actionsKey, actions := n.section(root, "actions", "action")
	doc.Actions = n.actionList(actionsKey, actions)

	for k, v := range root {
		if topLevel[k] {
			continue
		}
		if doc.Extra == nil {
			doc.Extra = map[string]any{}
		}
		doc.Extra[k] = domain.CloneValue(v)
	}
	return doc
}

// section reads a top-level list under its plural or singular key. The plural
// key wins when both are present.
func (n *normalizer) section(root map[string]any, plural, singular string) (string, any) {
	pv, hasPlural := root[plural]
	sv, hasSingular := root[singular]
	switch {
	case hasPlural && hasSingular:
		n.warn(singular, "both %q and %q present; using %q", singular, plural, plural)
		return plural, pv
	case hasPlural:
		n.singleEntry(plural, pv)
		return plural, pv
	case hasSingular:
		n.warn(singular, "%q is the legacy spelling of %q", singular, plural)
		n.singleEntry(singular, sv)
		return singular, sv
	}
	return plural, nil
}

// singleEntry reports a section written as one mapping instead of a list.
func (n *normalizer) singleEntry(key string, v any) {
	if _, ok := v.(map[string]any); ok {
		n.warn(key, "single entry read as a one-item list")
	}
}

func (n *normalizer) layout(raw any) *automation.Layout {
	var l automation.Layout
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &l,
	})
	if err == nil {
		err = dec.Decode(raw)
	}
	if err != nil {
		n.warn("variables."+domain.MetadataKey, "unreadable editor layout: %v", err)
		return nil
	}
	return &l
}

func yamlLine(err error) int {
	var te *yaml.TypeError
	if errors.As(err, &te) {
		return 0
	}
	// yaml.v3 syntax errors read "yaml: line N: ..."
	var line int
	if _, scanErr := fmt.Sscanf(strings.TrimPrefix(err.Error(), "yaml: "), "line %d:", &line); scanErr == nil {
		return line
	}
	return 0
}

func asList(v any) []any {
	switch val := v.(type) {
	case nil:
		return nil
	case []any:
		return val
	default:
		return []any{val}
	}
}

func stringOf(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	default:
		return fmt.Sprint(val)
	}
}

func hasAny(m map[string]any, keys ...string) bool {
	for _, k := range keys {
		if _, ok := m[k]; ok {
			return true
		}
	}
	return false
}
