package domain

// cloneMap deep-copies nested maps and slices so transforms never alias
// caller-owned data.
func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = CloneValue(v)
	}
	return out
}

// CloneMap returns a deep copy of m.
func CloneMap(m map[string]any) map[string]any {
	return cloneMap(m)
}

// CloneValue deep-copies maps and slices inside v. Scalars are returned as is.
func CloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return cloneMap(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = CloneValue(item)
		}
		return out
	case []string:
		return append([]string(nil), val...)
	case []map[string]any:
		out := make([]map[string]any, len(val))
		for i, item := range val {
			out[i] = cloneMap(item)
		}
		return out
	default:
		return v
	}
}

// Clone returns a deep copy of the node.
func (n Node) Clone() Node {
	out := n
	if n.Trigger != nil {
		out.Trigger = n.Trigger.clone()
	}
	if n.Condition != nil {
		c := n.Condition.clone()
		out.Condition = &c
	}
	if n.Action != nil {
		a := *n.Action
		a.Data = cloneMap(n.Action.Data)
		a.Extra = cloneMap(n.Action.Extra)
		if n.Action.Target != nil {
			t := *n.Action.Target
			t.EntityID = cloneIDList(t.EntityID)
			t.DeviceID = cloneIDList(t.DeviceID)
			t.AreaID = cloneIDList(t.AreaID)
			t.Extra = cloneMap(t.Extra)
			a.Target = &t
		}
		out.Action = &a
	}
	if n.Delay != nil {
		d := *n.Delay
		d.Duration = n.Delay.Duration.clone()
		d.Extra = cloneMap(n.Delay.Extra)
		out.Delay = &d
	}
	if n.Wait != nil {
		w := *n.Wait
		w.Extra = cloneMap(n.Wait.Extra)
		if n.Wait.Triggers != nil {
			w.Triggers = make([]TriggerData, len(n.Wait.Triggers))
			for i := range n.Wait.Triggers {
				w.Triggers[i] = *n.Wait.Triggers[i].clone()
			}
		}
		if n.Wait.Timeout != nil {
			d := n.Wait.Timeout.clone()
			w.Timeout = &d
		}
		if n.Wait.ContinueOnTimeout != nil {
			b := *n.Wait.ContinueOnTimeout
			w.ContinueOnTimeout = &b
		}
		out.Wait = &w
	}
	return out
}

func (t *TriggerData) clone() *TriggerData {
	return &TriggerData{Platform: t.Platform, Extra: cloneMap(t.Extra)}
}

func (c ConditionData) clone() ConditionData {
	out := ConditionData{Condition: c.Condition, Extra: cloneMap(c.Extra)}
	if c.Conditions != nil {
		out.Conditions = make([]ConditionData, len(c.Conditions))
		for i := range c.Conditions {
			out.Conditions[i] = c.Conditions[i].clone()
		}
	}
	return out
}

func (d Duration) clone() Duration {
	out := Duration{Text: d.Text, Parts: cloneMap(d.Parts)}
	if d.Seconds != nil {
		s := *d.Seconds
		out.Seconds = &s
	}
	return out
}

func cloneIDList(l IDList) IDList {
	return IDList{IDs: append([]string(nil), l.IDs...), Single: l.Single}
}

// Clone returns a deep copy of the graph.
func (g *Graph) Clone() *Graph {
	if g == nil {
		return nil
	}
	out := *g
	out.Nodes = make([]Node, len(g.Nodes))
	for i := range g.Nodes {
		out.Nodes[i] = g.Nodes[i].Clone()
	}
	out.Edges = append([]Edge(nil), g.Edges...)
	out.Variables = cloneMap(g.Variables)
	out.Extra = cloneMap(g.Extra)
	if g.Metadata.InitialState != nil {
		b := *g.Metadata.InitialState
		out.Metadata.InitialState = &b
	}
	return &out
}
