package domain_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/aretw0/cafe/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNode_ActionKeepsCardinality(t *testing.T) {
	n, err := domain.NewNode("a1", domain.NodeTypeAction, map[string]any{
		"alias":   "Lights on",
		"service": "light.turn_on",
		"target": map[string]any{
			"entity_id": "light.kitchen",
			"area_id":   []any{"living_room", "hall"},
		},
		"data":    map[string]any{"brightness": 255},
		"enabled": false,
	})
	require.NoError(t, err)

	assert.Equal(t, "Lights on", n.Alias)
	require.NotNil(t, n.Action)
	assert.Equal(t, "light.turn_on", n.Action.Service)
	assert.True(t, n.Action.Target.EntityID.Single)
	assert.False(t, n.Action.Target.AreaID.Single)
	assert.Equal(t, map[string]any{"enabled": false}, n.Action.Extra)

	data := n.Data()
	assert.Equal(t, "light.kitchen", data["target"].(map[string]any)["entity_id"])
	assert.Equal(t, []any{"living_room", "hall"}, data["target"].(map[string]any)["area_id"])
	assert.Equal(t, "Lights on", data["alias"])
}

func TestNewNode_ActionWithoutService(t *testing.T) {
	n, err := domain.NewNode("a1", domain.NodeTypeAction, map[string]any{
		"event":      "my_event",
		"event_data": map[string]any{"k": "v"},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.UnknownService, n.Action.Service)
	assert.Equal(t, map[string]any{"event": "my_event", "event_data": map[string]any{"k": "v"}}, n.Data())
}

func TestNewNode_CurrentDialectKeys(t *testing.T) {
	src := map[string]any{"platform": "state", "trigger": "time", "at": "07:00:00"}
	n, err := domain.NewNode("t1", domain.NodeTypeTrigger, src)
	require.NoError(t, err)
	assert.Equal(t, "time", n.Trigger.Platform)
	assert.Equal(t, map[string]any{"at": "07:00:00"}, n.Trigger.Extra)
	assert.Contains(t, src, "trigger", "input is not modified")

	n, err = domain.NewNode("a1", domain.NodeTypeAction, map[string]any{
		"action":  "light.turn_on",
		"service": "light.turn_off",
	})
	require.NoError(t, err)
	assert.Equal(t, "light.turn_on", n.Action.Service)
	assert.Empty(t, n.Action.Extra)

	n, err = domain.NewNode("a2", domain.NodeTypeAction, map[string]any{"action": "scene.turn_on"})
	require.NoError(t, err)
	assert.Equal(t, "scene.turn_on", n.Action.Service)
}

func TestNewNode_NestedCondition(t *testing.T) {
	n, err := domain.NewNode("c1", domain.NodeTypeCondition, map[string]any{
		"condition": "or",
		"conditions": []any{
			map[string]any{"condition": "state", "entity_id": "sun.sun", "state": "below_horizon"},
			map[string]any{"condition": "not", "conditions": []any{
				map[string]any{"condition": "template", "value_template": "{{ is_day }}"},
			}},
		},
	})
	require.NoError(t, err)
	require.Len(t, n.Condition.Conditions, 2)
	assert.Equal(t, "not", n.Condition.Conditions[1].Condition)
	assert.Equal(t, "template", n.Condition.Conditions[1].Conditions[0].Condition)
	assert.Equal(t, "sun.sun", n.Condition.Conditions[0].Extra["entity_id"])
}

func TestNewNode_WaitAndDelay(t *testing.T) {
	w, err := domain.NewNode("w", domain.NodeTypeWait, map[string]any{
		"wait_for_trigger":    []any{map[string]any{"platform": "state", "entity_id": "binary_sensor.door"}},
		"timeout":             "00:05:00",
		"continue_on_timeout": false,
	})
	require.NoError(t, err)
	require.Len(t, w.Wait.Triggers, 1)
	assert.Equal(t, "state", w.Wait.Triggers[0].Platform)
	assert.Equal(t, "00:05:00", w.Wait.Timeout.Text)
	require.NotNil(t, w.Wait.ContinueOnTimeout)
	assert.False(t, *w.Wait.ContinueOnTimeout)

	d, err := domain.NewNode("d", domain.NodeTypeDelay, map[string]any{
		"delay": map[string]any{"minutes": 1, "seconds": 30},
	})
	require.NoError(t, err)
	dur, err := d.Delay.Duration.ToDuration()
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, dur)
	assert.Equal(t, map[string]any{"delay": map[string]any{"minutes": 1, "seconds": 30}}, d.Data())
}

func TestDuration_ToDuration(t *testing.T) {
	tests := []struct {
		in   domain.Duration
		want time.Duration
		err  bool
	}{
		{in: domain.DurationFromText("00:01:05"), want: 65 * time.Second},
		{in: domain.DurationFromText("45"), want: 45 * time.Second},
		{in: domain.DurationFromSeconds(1.5), want: 1500 * time.Millisecond},
		{in: domain.DurationFromText("{{ states('input_number.x') }}"), err: true},
		{in: domain.DurationFromText("soon"), err: true},
	}
	for _, tt := range tests {
		got, err := tt.in.ToDuration()
		if tt.err {
			assert.Error(t, err)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestGraphJSON_EditorShape(t *testing.T) {
	src := `{
		"id": "auto_1",
		"name": "Night light",
		"metadata": {"mode": "restart"},
		"nodes": [
			{"id": "t1", "type": "trigger", "position": {"x": 0, "y": 0}, "data": {"platform": "state", "entity_id": "binary_sensor.motion", "to": "on"}},
			{"id": "a1", "type": "action", "position": {"x": 300, "y": 0}, "data": {"service": "light.turn_on", "data": {"brightness": 128}}}
		],
		"edges": [{"id": "e1", "source": "t1", "target": "a1"}]
	}`
	g, err := domain.ParseGraphJSON([]byte(src))
	require.NoError(t, err)
	assert.Equal(t, domain.SchemaVersion, g.Version)
	assert.Equal(t, domain.ModeRestart, g.Metadata.Mode)
	require.Len(t, g.Nodes, 2)
	assert.Equal(t, 128, g.Nodes[1].Action.Data["brightness"])
	assert.Equal(t, 300.0, g.Nodes[1].Position.X)

	out, err := json.Marshal(g)
	require.NoError(t, err)
	back, err := domain.ParseGraphJSON(out)
	require.NoError(t, err)
	assert.Equal(t, g, back)
}

func TestGraphClone_IsDeep(t *testing.T) {
	g := &domain.Graph{Nodes: []domain.Node{{
		ID: "a", Type: domain.NodeTypeAction,
		Action: &domain.ActionData{Service: "x.y", Data: map[string]any{"nested": map[string]any{"k": 1}}},
	}}}
	c := g.Clone()
	c.Nodes[0].Action.Data["nested"].(map[string]any)["k"] = 2
	assert.Equal(t, 1, g.Nodes[0].Action.Data["nested"].(map[string]any)["k"])
}
