package dialect_test

import (
	"errors"
	"testing"

	"github.com/aretw0/cafe/pkg/dialect"
	"github.com/aretw0/cafe/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_LegacyDialect(t *testing.T) {
	doc, warnings, err := dialect.Parse([]byte(`
alias: Legacy
trigger:
  platform: state
  entity_id: binary_sensor.motion
action:
  - service: light.turn_on
    entity_id: light.hall
    service_data:
      brightness: 200
`), dialect.Options{})
	require.NoError(t, err)

	require.Len(t, doc.Triggers, 1)
	assert.Equal(t, "state", doc.Triggers[0]["platform"])

	require.Len(t, doc.Actions, 1)
	a := doc.Actions[0]
	assert.Equal(t, "light.turn_on", a["service"])
	assert.Equal(t, map[string]any{"brightness": 200}, a["data"])
	assert.Equal(t, map[string]any{"entity_id": "light.hall"}, a["target"])
	assert.NotContains(t, a, "service_data")
	assert.NotContains(t, a, "entity_id")

	var paths []string
	for _, w := range warnings {
		assert.True(t, errors.Is(w, domain.ErrDialect))
		var dw *domain.DialectWarning
		require.ErrorAs(t, w, &dw)
		paths = append(paths, dw.Path)
	}
	assert.ElementsMatch(t, []string{
		"trigger",                // singular section key
		"trigger",                // single mapping instead of a list
		"trigger[0]",             // platform
		"action",                 // singular section key
		"action[0]",              // service
		"action[0].service_data", // deprecated data key
		"action[0].entity_id",    // moved into target
	}, paths)
}

func TestParse_LegacyConditionSection(t *testing.T) {
	_, warnings, err := dialect.Parse([]byte(`
triggers: [{trigger: state}]
condition:
  condition: state
  entity_id: sun.sun
  state: below_horizon
actions: []
`), dialect.Options{})
	require.NoError(t, err)
	assert.Len(t, warnings, 2)
}

func TestParse_CurrentDialect(t *testing.T) {
	doc, warnings, err := dialect.Parse([]byte(`
triggers:
  - trigger: time
    at: "07:00:00"
conditions: "{{ is_state('input_boolean.vacation', 'off') }}"
actions:
  - action: cover.open_cover
    target:
      area_id: [bedroom, office]
`), dialect.Options{})
	require.NoError(t, err)
	assert.Empty(t, warnings)

	assert.Equal(t, "time", doc.Triggers[0]["platform"])
	assert.NotContains(t, doc.Triggers[0], "trigger")

	require.Len(t, doc.Conditions, 1)
	assert.Equal(t, "template", doc.Conditions[0]["condition"])

	assert.Equal(t, "cover.open_cover", doc.Actions[0]["service"])
	assert.Equal(t, []any{"bedroom", "office"}, doc.Actions[0]["target"].(map[string]any)["area_id"])
}

func TestParse_TriggerPlatformConflict(t *testing.T) {
	doc, warnings, err := dialect.Parse([]byte(`
triggers:
  - trigger: state
    platform: event
actions: []
`), dialect.Options{})
	require.NoError(t, err)
	assert.Equal(t, "state", doc.Triggers[0]["platform"])
	require.Len(t, warnings, 1)

	doc, warnings, err = dialect.Parse([]byte(`
triggers:
  - trigger: state
    platform: state
actions: []
`), dialect.Options{})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"platform": "state"}, doc.Triggers[0])
	assert.Len(t, warnings, 1)
}

func TestParse_DeviceTriggerInferred(t *testing.T) {
	doc, warnings, err := dialect.Parse([]byte(`
triggers:
  - domain: zha
    device_id: abc123
    type: remote_button_short_press
actions: []
`), dialect.Options{})
	require.NoError(t, err)
	assert.Equal(t, "device", doc.Triggers[0]["platform"])
	assert.Len(t, warnings, 1)
}

func TestParse_ConditionShorthands(t *testing.T) {
	doc, _, err := dialect.Parse([]byte(`
triggers: [{trigger: sun, event: sunset}]
conditions:
  - or:
      - "{{ states('sensor.lux') | int < 10 }}"
      - condition: state
        entity_id: sun.sun
        state: below_horizon
actions: []
`), dialect.Options{})
	require.NoError(t, err)
	c := doc.Conditions[0]
	assert.Equal(t, "or", c["condition"])
	children := c["conditions"].([]any)
	require.Len(t, children, 2)
	assert.Equal(t, "template", children[0].(map[string]any)["condition"])
}

func TestParse_PluralWins(t *testing.T) {
	doc, warnings, err := dialect.Parse([]byte(`
trigger: [{platform: state}]
triggers: [{trigger: time}]
actions: []
`), dialect.Options{})
	require.NoError(t, err)
	require.Len(t, doc.Triggers, 1)
	assert.Equal(t, "time", doc.Triggers[0]["platform"])
	assert.Len(t, warnings, 1)
}

func TestParse_ListOfAutomations(t *testing.T) {
	doc, warnings, err := dialect.Parse([]byte(`
- id: first
  triggers: [{trigger: state}]
  actions: []
- id: second
  triggers: [{trigger: time}]
  actions: []
`), dialect.Options{})
	require.NoError(t, err)
	assert.Equal(t, "first", doc.ID)
	assert.Len(t, warnings, 1)
}

func TestParse_UnknownEntry(t *testing.T) {
	doc, warnings, err := dialect.Parse([]byte(`
triggers: [{trigger: state}]
actions:
  - event: doorbell
    event_data: {room: hall}
  - fire_the_thing: true
`), dialect.Options{})
	require.NoError(t, err)
	assert.Equal(t, "doorbell", doc.Actions[0]["event"])
	require.Len(t, warnings, 1)
	var w *domain.DialectWarning
	require.ErrorAs(t, warnings[0], &w)
	assert.Equal(t, "actions[1]", w.Path)
}

func TestParse_NestedBlocksAreNormalised(t *testing.T) {
	doc, _, err := dialect.Parse([]byte(`
triggers: [{trigger: state}]
actions:
  - if: "{{ x }}"
    then:
      service: light.turn_on
      data_template: {brightness: 10}
  - choose:
      conditions: "{{ y }}"
      sequence:
        - action: light.turn_off
`), dialect.Options{})
	require.NoError(t, err)

	then := doc.Actions[0]["then"].([]any)
	require.Len(t, then, 1)
	assert.Equal(t, map[string]any{"brightness": 10}, then[0].(map[string]any)["data"])
	assert.Len(t, doc.Actions[0]["if"], 1)

	opts := doc.Actions[1]["choose"].([]any)
	require.Len(t, opts, 1)
	seq := opts[0].(map[string]any)["sequence"].([]any)
	assert.Equal(t, "light.turn_off", seq[0].(map[string]any)["service"])
}

func TestParse_CanonicalIDs(t *testing.T) {
	src := []byte(`
triggers: [{trigger: state}]
actions:
  - action: light.turn_on
    target: {entity_id: light.a}
`)
	doc, _, err := dialect.Parse(src, dialect.Options{})
	require.NoError(t, err)
	assert.Equal(t, "light.a", doc.Actions[0]["target"].(map[string]any)["entity_id"])

	doc, _, err = dialect.Parse(src, dialect.Options{Canonical: true})
	require.NoError(t, err)
	assert.Equal(t, []any{"light.a"}, doc.Actions[0]["target"].(map[string]any)["entity_id"])
}

func TestParse_Layout(t *testing.T) {
	doc, _, err := dialect.Parse([]byte(`
variables:
  _cafe_metadata:
    version: 1
    strategy: native
    nodes:
      - {id: t1, type: trigger, x: 0, y: 0}
      - {id: a1, type: action, x: 300, y: 0}
triggers: [{trigger: state}]
actions: [{action: light.turn_on}]
`), dialect.Options{})
	require.NoError(t, err)
	require.NotNil(t, doc.Layout)
	assert.Nil(t, doc.Variables)
	assert.Equal(t, domain.StrategyNative, doc.Layout.Strategy)
	require.Len(t, doc.Layout.Nodes, 2)
	assert.Equal(t, 300.0, doc.Layout.Nodes[1].X)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"malformed", "triggers: [\n"},
		{"scalar root", "just a string"},
		{"empty", ""},
		{"empty list", "[]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, _, err := dialect.Parse([]byte(tt.src), dialect.Options{})
			assert.Nil(t, doc)
			assert.ErrorIs(t, err, domain.ErrParse)
		})
	}
}
