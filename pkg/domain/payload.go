package domain

import (
	"fmt"
	"reflect"

	"github.com/mitchellh/mapstructure"
)

// Canonical field names used by node data maps and the normalised document.
const (
	KeyAlias      = "alias"
	KeyPlatform   = "platform"
	KeyCondition  = "condition"
	KeyConditions = "conditions"
	KeyService    = "service"
	KeyTarget     = "target"
	KeyData       = "data"
	KeyDelay      = "delay"
	KeyWaitTmpl   = "wait_template"
	KeyWaitTrig   = "wait_for_trigger"
	KeyTimeout    = "timeout"
	KeyContinue   = "continue_on_timeout"
	KeyEntityID   = "entity_id"
	KeyDeviceID   = "device_id"
	KeyAreaID     = "area_id"

	// Current-dialect spellings of KeyPlatform and KeyService.
	KeyTrigger = "trigger"
	KeyAction  = "action"
)

// UnknownService marks an action whose entry names no service.
const UnknownService = "unknown.service"

var (
	idListType   = reflect.TypeOf(IDList{})
	durationType = reflect.TypeOf(Duration{})
)

// payloadHook lets mapstructure build IDList and Duration values from their
// scalar, list or mapping forms.
func payloadHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	switch to {
	case idListType:
		return toIDList(data)
	case durationType:
		return toDuration(data)
	}
	return data, nil
}

func toIDList(data any) (IDList, error) {
	switch v := data.(type) {
	case nil:
		return IDList{}, nil
	case IDList:
		return v, nil
	case string:
		return IDList{IDs: []string{v}, Single: true}, nil
	case []string:
		return IDList{IDs: append([]string(nil), v...)}, nil
	case []any:
		ids := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return IDList{}, fmt.Errorf("id list item must be a string, got %T", item)
			}
			ids = append(ids, s)
		}
		return IDList{IDs: ids}, nil
	}
	return IDList{}, fmt.Errorf("id list must be a string or a list, got %T", data)
}

func toDuration(data any) (Duration, error) {
	switch v := data.(type) {
	case nil:
		return Duration{}, nil
	case Duration:
		return v, nil
	case string:
		return Duration{Text: v}, nil
	case map[string]any:
		return Duration{Parts: cloneMap(v)}, nil
	}
	f, err := toFloat(data)
	if err != nil {
		return Duration{}, fmt.Errorf("duration must be text, a mapping or seconds, got %T", data)
	}
	return DurationFromSeconds(f), nil
}

func decode(input map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: payloadHook,
		Result:     out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}

// NewNode builds a node of type t from a canonical data map.
// The "alias" key is lifted onto the node; every other key goes to the payload.
// The input map is not modified.
func NewNode(id string, t NodeType, data map[string]any) (Node, error) {
	n := Node{ID: id, Type: t}
	fields := cloneMap(data)
	if fields == nil {
		fields = map[string]any{}
	}
	if alias, ok := fields[KeyAlias].(string); ok {
		n.Alias = alias
		delete(fields, KeyAlias)
	}

	var err error
	switch t {
	case NodeTypeTrigger:
		n.Trigger, err = DecodeTrigger(fields)
	case NodeTypeCondition:
		n.Condition, err = DecodeCondition(fields)
	case NodeTypeAction:
		n.Action, err = DecodeAction(fields)
	case NodeTypeDelay:
		n.Delay = &DelayData{}
		err = decode(fields, n.Delay)
	case NodeTypeWait:
		n.Wait = &WaitData{}
		err = decode(fields, n.Wait)
	default:
		return n, &StructuralError{Kind: KindBadPayload, NodeID: id, Msg: fmt.Sprintf("unknown node type %q", t)}
	}
	if err != nil {
		return n, fmt.Errorf("node %s: decode %s data: %w", id, t, err)
	}
	return n, nil
}

// DecodeTrigger decodes a trigger mapping. A "trigger" key is read as the
// platform and wins over a conflicting "platform".
func DecodeTrigger(fields map[string]any) (*TriggerData, error) {
	fields = lift(fields, KeyTrigger, KeyPlatform)
	out := &TriggerData{}
	if err := decode(fields, out); err != nil {
		return nil, err
	}
	return out, nil
}

// DecodeCondition decodes a canonical condition mapping, children included.
func DecodeCondition(fields map[string]any) (*ConditionData, error) {
	out := &ConditionData{}
	if err := decode(fields, out); err != nil {
		return nil, err
	}
	return out, nil
}

// DecodeAction decodes a service call. An "action" key is read as the service
// and wins over a conflicting "service". Entries without a service keep every
// field in Extra under the UnknownService marker.
func DecodeAction(fields map[string]any) (*ActionData, error) {
	fields = lift(fields, KeyAction, KeyService)
	if _, ok := fields[KeyService]; !ok {
		return &ActionData{Service: UnknownService, Extra: cloneMap(fields)}, nil
	}
	out := &ActionData{}
	if err := decode(fields, out); err != nil {
		return nil, err
	}
	return out, nil
}

// lift moves a string under from onto the canonical key to, on a copy.
func lift(fields map[string]any, from, to string) map[string]any {
	v, ok := fields[from].(string)
	if !ok {
		return fields
	}
	out := cloneMap(fields)
	delete(out, from)
	out[to] = v
	return out
}

// Data returns the node payload as a canonical map, alias included.
func (n *Node) Data() map[string]any {
	var m map[string]any
	switch p := n.Payload().(type) {
	case *TriggerData:
		m = p.Fields()
	case *ConditionData:
		m = p.Fields()
	case *ActionData:
		m = p.Fields()
	case *DelayData:
		m = p.Fields()
	case *WaitData:
		m = p.Fields()
	default:
		m = map[string]any{}
	}
	if n.Alias != "" {
		m[KeyAlias] = n.Alias
	}
	return m
}

// Fields returns the trigger as a canonical map.
func (t *TriggerData) Fields() map[string]any {
	m := cloneMap(t.Extra)
	if m == nil {
		m = map[string]any{}
	}
	if t.Platform != "" {
		m[KeyPlatform] = t.Platform
	}
	return m
}

// Fields returns the condition as a canonical map.
func (c *ConditionData) Fields() map[string]any {
	m := cloneMap(c.Extra)
	if m == nil {
		m = map[string]any{}
	}
	if c.Condition != "" {
		m[KeyCondition] = c.Condition
	}
	if len(c.Conditions) > 0 {
		children := make([]any, len(c.Conditions))
		for i := range c.Conditions {
			children[i] = c.Conditions[i].Fields()
		}
		m[KeyConditions] = children
	}
	return m
}

// Fields returns the action as a canonical map.
func (a *ActionData) Fields() map[string]any {
	m := cloneMap(a.Extra)
	if m == nil {
		m = map[string]any{}
	}
	if a.Service == UnknownService {
		return m
	}
	m[KeyService] = a.Service
	if !a.Target.Empty() {
		m[KeyTarget] = a.Target.Fields()
	}
	if a.Data != nil {
		m[KeyData] = cloneMap(a.Data)
	}
	return m
}

// Fields returns the target as a map, keeping each id list's cardinality.
func (t *Target) Fields() map[string]any {
	m := cloneMap(t.Extra)
	if m == nil {
		m = map[string]any{}
	}
	if !t.EntityID.Empty() {
		m[KeyEntityID] = t.EntityID.Value()
	}
	if !t.DeviceID.Empty() {
		m[KeyDeviceID] = t.DeviceID.Value()
	}
	if !t.AreaID.Empty() {
		m[KeyAreaID] = t.AreaID.Value()
	}
	return m
}

// Fields returns the delay as a canonical map.
func (d *DelayData) Fields() map[string]any {
	m := cloneMap(d.Extra)
	if m == nil {
		m = map[string]any{}
	}
	m[KeyDelay] = d.Duration.Value()
	return m
}

// Fields returns the wait as a canonical map.
func (w *WaitData) Fields() map[string]any {
	m := cloneMap(w.Extra)
	if m == nil {
		m = map[string]any{}
	}
	if w.Template != "" {
		m[KeyWaitTmpl] = w.Template
	}
	if len(w.Triggers) > 0 {
		triggers := make([]any, len(w.Triggers))
		for i := range w.Triggers {
			triggers[i] = w.Triggers[i].Fields()
		}
		m[KeyWaitTrig] = triggers
	}
	if w.Timeout != nil {
		m[KeyTimeout] = w.Timeout.Value()
	}
	if w.ContinueOnTimeout != nil {
		m[KeyContinue] = *w.ContinueOnTimeout
	}
	return m
}

// ClassifyEntry infers the node type of a canonical action-list entry.
func ClassifyEntry(entry map[string]any) NodeType {
	switch {
	case has(entry, KeyDelay):
		return NodeTypeDelay
	case has(entry, KeyWaitTmpl), has(entry, KeyWaitTrig):
		return NodeTypeWait
	case has(entry, KeyCondition):
		return NodeTypeCondition
	default:
		return NodeTypeAction
	}
}

func has(m map[string]any, key string) bool {
	_, ok := m[key]
	return ok
}
