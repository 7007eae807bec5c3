package domain

// NodeType is the closed set of node kinds the editor can place on a canvas.
type NodeType string

const (
	// NodeTypeTrigger starts the automation when its platform fires.
	NodeTypeTrigger NodeType = "trigger"
	// NodeTypeCondition evaluates a predicate and continues on its "true" or "false" handle.
	NodeTypeCondition NodeType = "condition"
	// NodeTypeAction calls a service (or carries a raw step the editor does not model).
	NodeTypeAction NodeType = "action"
	// NodeTypeDelay pauses the run for a duration.
	NodeTypeDelay NodeType = "delay"
	// NodeTypeWait blocks until a template or trigger fires, optionally with a timeout.
	NodeTypeWait NodeType = "wait"
)

// Valid reports whether t is one of the known node types.
func (t NodeType) Valid() bool {
	switch t {
	case NodeTypeTrigger, NodeTypeCondition, NodeTypeAction, NodeTypeDelay, NodeTypeWait:
		return true
	}
	return false
}

// Position is the canvas coordinate of a node.
type Position struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Node is a tagged union: Type selects which payload pointer is set.
// Exactly one of Trigger, Condition, Action, Delay or Wait is non-nil.
type Node struct {
	ID       string
	Type     NodeType
	Position Position
	Alias    string

	Trigger   *TriggerData
	Condition *ConditionData
	Action    *ActionData
	Delay     *DelayData
	Wait      *WaitData
}

// TriggerData describes what starts the automation.
// Platform-specific fields (entity_id, to, at, event_type...) live in Extra.
type TriggerData struct {
	Platform string         `mapstructure:"platform"`
	Extra    map[string]any `mapstructure:",remain"`
}

// ConditionData is a predicate. Composite conditions (and, or, not) carry
// ordered children in Conditions.
type ConditionData struct {
	Condition  string          `mapstructure:"condition"`
	Conditions []ConditionData `mapstructure:"conditions"`
	Extra      map[string]any  `mapstructure:",remain"`
}

// ActionData is a service call.
// When Service is UnknownService the step is not a service call and Extra
// holds the original entry verbatim.
type ActionData struct {
	Service string         `mapstructure:"service"`
	Target  *Target        `mapstructure:"target"`
	Data    map[string]any `mapstructure:"data"`
	Extra   map[string]any `mapstructure:",remain"`
}

// Target addresses the entities a service call acts on.
type Target struct {
	EntityID IDList         `mapstructure:"entity_id"`
	DeviceID IDList         `mapstructure:"device_id"`
	AreaID   IDList         `mapstructure:"area_id"`
	Extra    map[string]any `mapstructure:",remain"`
}

// Empty reports whether the target addresses nothing.
func (t *Target) Empty() bool {
	return t == nil || (t.EntityID.Empty() && t.DeviceID.Empty() && t.AreaID.Empty() && len(t.Extra) == 0)
}

// DelayData pauses the run.
type DelayData struct {
	Duration Duration       `mapstructure:"delay"`
	Extra    map[string]any `mapstructure:",remain"`
}

// WaitData waits for a template to become true or for one of Triggers to fire.
type WaitData struct {
	Template          string         `mapstructure:"wait_template"`
	Triggers          []TriggerData  `mapstructure:"wait_for_trigger"`
	Timeout           *Duration      `mapstructure:"timeout"`
	ContinueOnTimeout *bool          `mapstructure:"continue_on_timeout"`
	Extra             map[string]any `mapstructure:",remain"`
}

// IDList is a list of ids that remembers whether it was written as a single
// string, so a document round-trips with the same cardinality.
type IDList struct {
	IDs    []string
	Single bool
}

// Empty reports whether the list holds no ids.
func (l IDList) Empty() bool { return len(l.IDs) == 0 }

// Value returns the list in its original form: a string when it was written
// as one, otherwise a list.
func (l IDList) Value() any {
	if l.Single && len(l.IDs) == 1 {
		return l.IDs[0]
	}
	out := make([]any, len(l.IDs))
	for i, id := range l.IDs {
		out[i] = id
	}
	return out
}

// Canonical returns the list forced into list form.
func (l IDList) Canonical() IDList {
	return IDList{IDs: append([]string(nil), l.IDs...)}
}

// Payload returns the node data pointer matching its type, or nil.
func (n *Node) Payload() any {
	switch n.Type {
	case NodeTypeTrigger:
		if n.Trigger != nil {
			return n.Trigger
		}
	case NodeTypeCondition:
		if n.Condition != nil {
			return n.Condition
		}
	case NodeTypeAction:
		if n.Action != nil {
			return n.Action
		}
	case NodeTypeDelay:
		if n.Delay != nil {
			return n.Delay
		}
	case NodeTypeWait:
		if n.Wait != nil {
			return n.Wait
		}
	}
	return nil
}

// payloadCount counts how many payload pointers are set.
func (n *Node) payloadCount() int {
	c := 0
	if n.Trigger != nil {
		c++
	}
	if n.Condition != nil {
		c++
	}
	if n.Action != nil {
		c++
	}
	if n.Delay != nil {
		c++
	}
	if n.Wait != nil {
		c++
	}
	return c
}
