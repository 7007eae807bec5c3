package compiler

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/aretw0/cafe/pkg/automation"
	"github.com/aretw0/cafe/pkg/domain"
)

var guardStates = regexp.MustCompile(`(?s)in (\[.*\])\s*\}\}`)

// isStateMachine recognises documents written by the state machine emitter.
func isStateMachine(doc *automation.Document) bool {
	if len(doc.Actions) != 2 {
		return false
	}
	vars, ok := doc.Actions[0]["variables"].(map[string]any)
	if !ok {
		return false
	}
	if _, ok := vars[domain.StateVariable]; !ok {
		return false
	}
	_, ok = dispatcherOptions(doc)
	return ok
}

// dispatcherOptions digs the choose options out of the repeat loop.
func dispatcherOptions(doc *automation.Document) ([]any, bool) {
	repeat, ok := doc.Actions[1]["repeat"].(map[string]any)
	if !ok {
		return nil, false
	}
	seq, ok := repeat["sequence"].([]any)
	if !ok || len(seq) != 1 {
		return nil, false
	}
	choose, ok := seq[0].(map[string]any)
	if !ok {
		return nil, false
	}
	options, ok := choose["choose"].([]any)
	return options, ok
}

// stateMachine rebuilds the graph from a dispatcher document: each option
// is a node, and the states listed in its guard are its incoming edges.
func (b *graphBuilder) stateMachine(doc *automation.Document) {
	for i, t := range doc.Triggers {
		data := domain.CloneMap(t)
		id, _ := data["id"].(string)
		delete(data, "id")
		b.add(id, domain.NodeTypeTrigger, data, fmt.Sprintf("triggers[%d]", i))
	}

	type link struct {
		states []string
		target string
	}
	var links []link
	conditions := map[string]bool{}

	options, _ := dispatcherOptions(doc)
	for i, o := range options {
		path := fmt.Sprintf("actions[1].repeat.sequence[0].choose[%d]", i)
		opt, ok := o.(map[string]any)
		if !ok {
			b.warn(path, "option must be a mapping; skipped")
			continue
		}
		conds, _ := opt["conditions"].([]any)
		seq, _ := opt["sequence"].([]any)
		if len(conds) == 0 || len(seq) == 0 {
			b.warn(path, "option without guard or state update; skipped")
			continue
		}
		state := stateOf(seq[len(seq)-1])
		preds := guardPredecessors(conds[0])

		// Options are told apart by shape: a step runs an entry before its
		// state update, a condition's true option carries the predicate and
		// its false option carries neither.
		switch {
		case state == "":
			b.warn(path, "unrecognised option; skipped")
		case len(seq) == 2:
			entry, _ := seq[0].(map[string]any)
			id := b.add(state, domain.ClassifyEntry(entry), entry, path)
			links = append(links, link{preds, id})
		case len(conds) == 2 && strings.HasSuffix(state, "."+domain.HandleTrue):
			pred, _ := conds[1].(map[string]any)
			id := b.add(strings.TrimSuffix(state, "."+domain.HandleTrue), domain.NodeTypeCondition, pred, path)
			conditions[id] = true
			links = append(links, link{preds, id})
		case len(conds) == 1 && strings.HasSuffix(state, "."+domain.HandleFalse):
		default:
			b.warn(path, "unrecognised option; skipped")
		}
	}

	for _, l := range links {
		b.linkStates(l.states, l.target, conditions)
	}
	b.restoreByID(doc.Layout)
}

// linkStates connects every state of a guard to target. A state is a
// condition outcome only when it names a condition read from the document.
func (b *graphBuilder) linkStates(states []string, target string, conditions map[string]bool) {
	for _, s := range states {
		source, handle := s, ""
		for _, h := range []string{domain.HandleTrue, domain.HandleFalse} {
			if id := strings.TrimSuffix(s, "."+h); id != s && conditions[id] {
				source, handle = id, h
			}
		}
		b.connect(source, target, handle)
	}
}

func stateOf(v any) string {
	m, ok := v.(map[string]any)
	if !ok {
		return ""
	}
	vars, ok := m["variables"].(map[string]any)
	if !ok {
		return ""
	}
	s, _ := vars[domain.StateVariable].(string)
	return s
}

// guardPredecessors reads `{{ cafe_state in ["a", "b.true"] }}`. Lists of
// single-quoted names without commas or quotes are read too.
func guardPredecessors(v any) []string {
	var tmpl string
	switch g := v.(type) {
	case string:
		tmpl = g
	case map[string]any:
		tmpl, _ = g["value_template"].(string)
	}
	m := guardStates.FindStringSubmatch(tmpl)
	if m == nil {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(m[1]), &out); err == nil {
		return out
	}
	out = nil
	for _, part := range strings.Split(strings.Trim(m[1], "[]"), ",") {
		s := strings.Trim(strings.TrimSpace(part), `'"`)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// restoreByID applies layout positions by node id and, when the layout lists
// every node, restores its node order.
func (b *graphBuilder) restoreByID(l *automation.Layout) {
	if l == nil {
		AutoLayout(b.g)
		return
	}
	index := b.g.Index()
	ordered := make([]domain.Node, 0, len(b.g.Nodes))
	for _, nl := range l.Nodes {
		i, ok := index[nl.ID]
		if !ok {
			continue
		}
		b.g.Nodes[i].Position = domain.Position{X: nl.X, Y: nl.Y}
		ordered = append(ordered, b.g.Nodes[i])
	}
	if len(ordered) == len(b.g.Nodes) {
		b.g.Nodes = ordered
	} else {
		b.warn("variables."+domain.MetadataKey, "layout lists %d of %d nodes", len(ordered), len(b.g.Nodes))
	}
	b.hadMetadata = true
}
