package compiler

import (
	"encoding/json"
	"testing"

	"github.com/aretw0/cafe/pkg/automation"
	"github.com/aretw0/cafe/pkg/domain"
	"github.com/aretw0/cafe/pkg/dsl"
	"github.com/aretw0/cafe/pkg/flatten"
	"github.com/aretw0/cafe/pkg/topology"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func linearGraph() *domain.Graph {
	b := dsl.New("Hall light").ID("hall_light").Mode(domain.ModeRestart)
	b.Add("motion").Trigger("state", map[string]any{"entity_id": "binary_sensor.hall", "to": "on"}).At(0, 0).Go("dark")
	b.Add("dark").Alias("Is dark?").When("state", map[string]any{"entity_id": "sun.sun", "state": "below_horizon"}).At(300, 0).Then("on")
	b.Add("on").Call("light.turn_on").Entity("light.hall").Data("brightness", 200).At(600, 0).Go("wait")
	b.Add("wait").Delay("00:05:00").At(900, 0).Go("off")
	b.Add("off").Call("light.turn_off").Entity("light.hall").At(1200, 0)
	return b.Graph()
}

// elseIfGraph: motion -> home? (true: on -> pause) (false: night? (true: dim) (false: off))
func elseIfGraph() *domain.Graph {
	b := dsl.New("Presence").ID("presence").Mode(domain.ModeRestart)
	b.Add("motion").Trigger("state", map[string]any{"entity_id": "binary_sensor.hall"}).At(0, 0).Go("home")
	b.Add("home").Alias("Anyone home?").When("state", map[string]any{"entity_id": "group.family", "state": "home"}).At(300, 0).Then("on").Else("night")
	b.Add("on").Call("light.turn_on").Entity("light.hall").At(600, 0).Go("pause")
	b.Add("pause").Delay("00:00:30").At(900, 0)
	b.Add("night").Alias("Night?").Template("{{ now().hour > 22 }}").At(600, 150).Then("dim").Else("off")
	b.Add("dim").Call("light.turn_on").Entity("light.hall").Data("brightness", 20).At(900, 150)
	b.Add("off").Call("light.turn_off").Entity("light.hall", "light.porch").At(900, 300)
	return b.Graph()
}

func rejoinGraph() *domain.Graph {
	b := dsl.New("Rejoin").ID("rejoin")
	b.Add("t").Trigger("state", map[string]any{"entity_id": "binary_sensor.door"}).Go("c")
	b.Add("c").Alias("Home?").Template("{{ is_state('group.family', 'home') }}").Then("x").Else("y")
	b.Add("x").Call("light.turn_on").Go("end")
	b.Add("y").Call("alarm_control_panel.alarm_arm_away").Go("end")
	b.Add("end").Call("notify.notify").Data("message", "door")
	return b.Graph()
}

type edgeKey struct{ source, target, handle string }

func edgeSet(edges []domain.Edge) map[edgeKey]bool {
	out := map[edgeKey]bool{}
	for _, e := range edges {
		out[edgeKey{e.Source, e.Target, e.SourceHandle}] = true
	}
	return out
}

func TestTranspile_LinearUsesTopLevelConditions(t *testing.T) {
	res := Transpile(linearGraph(), Options{})
	require.True(t, res.Success, res.Errors)
	assert.Empty(t, res.Warnings)
	assert.Equal(t, domain.StrategyNative, res.Output.Strategy)
	assert.Equal(t, topology.ShapeLinear, res.Output.Shape)

	doc := res.Output.Automation
	require.Len(t, doc.Triggers, 1)
	require.Len(t, doc.Conditions, 1)
	assert.Equal(t, "Is dark?", doc.Conditions[0]["alias"])
	require.Len(t, doc.Actions, 3)
	assert.Equal(t, "light.turn_on", doc.Actions[0]["service"])
	assert.Equal(t, "00:05:00", doc.Actions[1]["delay"])

	assert.Contains(t, res.YAML, "mode: restart")
	assert.Contains(t, res.YAML, "trigger: state")
	assert.Contains(t, res.YAML, "action: light.turn_on")
	assert.Contains(t, res.YAML, domain.MetadataKey)
}

func TestResult_JSONCarriesAutomation(t *testing.T) {
	for _, tc := range []struct {
		dialect automation.Dialect
		trigger string
		service string
	}{
		{automation.DialectCurrent, "trigger", "action"},
		{automation.DialectLegacy, "platform", "service"},
	} {
		t.Run(string(tc.dialect), func(t *testing.T) {
			res := Transpile(linearGraph(), Options{Dialect: tc.dialect})
			require.True(t, res.Success, res.Errors)

			b, err := json.Marshal(res)
			require.NoError(t, err)
			var out struct {
				Output struct {
					Strategy   string         `json:"strategy"`
					Dialect    string         `json:"dialect"`
					Automation map[string]any `json:"automation"`
				} `json:"output"`
			}
			require.NoError(t, json.Unmarshal(b, &out))

			assert.Equal(t, "native", out.Output.Strategy)
			assert.Equal(t, string(tc.dialect), out.Output.Dialect)
			doc := out.Output.Automation
			require.NotNil(t, doc)
			assert.Equal(t, "hall_light", doc["id"])
			assert.Equal(t, "restart", doc["mode"])

			triggers := doc[tc.dialect.Keywords().Triggers].([]any)
			require.Len(t, triggers, 1)
			assert.Equal(t, "state", triggers[0].(map[string]any)[tc.trigger])

			actions := doc[tc.dialect.Keywords().Actions].([]any)
			require.Len(t, actions, 3)
			assert.Equal(t, "light.turn_on", actions[0].(map[string]any)[tc.service])
		})
	}
}

func TestTranspile_MidSequenceGateIsInline(t *testing.T) {
	b := dsl.New("gate")
	b.Add("t").Trigger("state", nil).Go("a")
	b.Add("a").Call("light.turn_on").Go("g")
	b.Add("g").Template("{{ x }}").Then("z")
	b.Add("z").Call("light.turn_off")

	res := Transpile(b.Graph(), Options{})
	require.True(t, res.Success, res.Errors)
	doc := res.Output.Automation
	assert.Empty(t, doc.Conditions)
	require.Len(t, doc.Actions, 3)
	assert.Equal(t, "template", doc.Actions[1]["condition"])
}

func TestTranspile_IfThenElse(t *testing.T) {
	b := dsl.New("if")
	b.Add("t").Trigger("state", nil).Go("c")
	b.Add("c").Template("{{ x }}").Then("a").Else("z")
	b.Add("a").Call("light.turn_on")
	b.Add("z").Call("light.turn_off")

	res := Transpile(b.Graph(), Options{})
	require.True(t, res.Success, res.Errors)
	assert.Equal(t, topology.ShapeTreeBranching, res.Output.Shape)

	actions := res.Output.Automation.Actions
	require.Len(t, actions, 1)
	assert.Contains(t, actions[0], "if")
	assert.Len(t, actions[0]["then"], 1)
	assert.Len(t, actions[0]["else"], 1)
	assert.Equal(t, []flatten.Branch{"", "then", "else"}, flatten.Branches(flatten.Flatten(actions)))
}

func TestTranspile_ElseIfChainBecomesChoose(t *testing.T) {
	res := Transpile(elseIfGraph(), Options{})
	require.True(t, res.Success, res.Errors)

	actions := res.Output.Automation.Actions
	require.Len(t, actions, 1)
	options, ok := actions[0]["choose"].([]any)
	require.True(t, ok)
	assert.Len(t, options, 2)
	assert.Len(t, actions[0]["default"], 1)

	entries := flatten.Flatten(actions)
	assert.Equal(t, []flatten.Branch{"", "then", "then", "", "then", "else"}, flatten.Branches(entries))

	first := options[0].(map[string]any)["conditions"].([]any)[0].(map[string]any)
	assert.Equal(t, "Anyone home?", first["alias"])
}

func TestTranspile_RoundTrip(t *testing.T) {
	for name, g := range map[string]*domain.Graph{
		"linear":  linearGraph(),
		"else-if": elseIfGraph(),
	} {
		t.Run(name, func(t *testing.T) {
			first := Transpile(g, Options{})
			require.True(t, first.Success, first.Errors)

			imported := NewParser(ParseOptions{}).Parse([]byte(first.YAML))
			require.True(t, imported.Success, imported.Errors)
			assert.True(t, imported.HadMetadata)
			assert.Empty(t, imported.Warnings)

			assert.Equal(t, g.ID, imported.Graph.ID)
			assert.Equal(t, g.Name, imported.Graph.Name)
			assert.Equal(t, g.Metadata, imported.Graph.Metadata)
			assert.Equal(t, g.Nodes, imported.Graph.Nodes)
			assert.Equal(t, edgeSet(g.Edges), edgeSet(imported.Graph.Edges))

			second := Transpile(imported.Graph, Options{})
			require.True(t, second.Success, second.Errors)
			assert.True(t, flatten.Equal(
				flatten.Flatten(first.Output.Automation.Actions),
				flatten.Flatten(second.Output.Automation.Actions),
			))
			assert.Equal(t, first.YAML, second.YAML)
		})
	}
}

func TestTranspile_IrregularSelectsStateMachine(t *testing.T) {
	res := Transpile(rejoinGraph(), Options{})
	require.True(t, res.Success, res.Errors)
	assert.Equal(t, domain.StrategyStateMachine, res.Output.Strategy)
	assert.Equal(t, topology.ShapeIrregular, res.Output.Shape)

	doc := res.Output.Automation
	assert.Equal(t, "t", doc.Triggers[0]["id"])
	require.Len(t, doc.Actions, 2)
	assert.Contains(t, res.YAML, "cafe_state")
	assert.Contains(t, res.YAML, "repeat:")
	assert.Contains(t, res.YAML, "repeat.index >= 1000")

	options, ok := dispatcherOptions(doc)
	require.True(t, ok)
	// c contributes a true and a false option.
	assert.Len(t, options, 5)
	last := options[len(options)-1].(map[string]any)
	guard := last["conditions"].([]any)[0].(map[string]any)
	assert.Equal(t, `{{ cafe_state in ["x", "y"] }}`, guard["value_template"])
	assert.Equal(t, []string{"x", "y"}, guardPredecessors(guard))
}

func TestTranspile_ForcedNativeOnIrregular(t *testing.T) {
	res := Transpile(rejoinGraph(), Options{Strategy: domain.StrategyNative})
	assert.False(t, res.Success)
	require.Len(t, res.Errors, 1)
	assert.ErrorIs(t, res.Errors[0], domain.ErrUnsupportedShape)
	var shapeErr *domain.UnsupportedShapeError
	require.ErrorAs(t, res.Errors[0], &shapeErr)
	assert.NotEmpty(t, shapeErr.Reasons)
}

func TestTranspile_ForcedStateMachineOnTree(t *testing.T) {
	res := Transpile(elseIfGraph(), Options{Strategy: domain.StrategyStateMachine, MaxSteps: 50})
	require.True(t, res.Success, res.Errors)
	assert.Equal(t, domain.StrategyStateMachine, res.Output.Strategy)
	assert.Contains(t, res.YAML, "repeat.index >= 50")
}

func TestStateMachine_RoundTrip(t *testing.T) {
	g := rejoinGraph()
	res := Transpile(g, Options{})
	require.True(t, res.Success, res.Errors)

	imported := NewParser(ParseOptions{}).Parse([]byte(res.YAML))
	require.True(t, imported.Success, imported.Errors)
	assert.True(t, imported.HadMetadata)
	assert.Equal(t, g.Nodes, imported.Graph.Nodes)
	assert.Equal(t, edgeSet(g.Edges), edgeSet(imported.Graph.Edges))
}

func TestStateMachine_QuotedIDs(t *testing.T) {
	b := dsl.New("Quoted").ID("quoted")
	b.Add("t").Trigger("state", map[string]any{"entity_id": "binary_sensor.door"}).Go("c")
	b.Add("c").Template("{{ is_state('group.family', 'home') }}").Then("kid's").Else("a, b")
	b.Add("kid's").Call("light.turn_on").Go("done.true")
	b.Add("a, b").Call("light.turn_off").Go("done.true")
	b.Add("done.true").Call("notify.notify")
	g := b.Graph()

	res := Transpile(g, Options{})
	require.True(t, res.Success, res.Errors)
	assert.Equal(t, domain.StrategyStateMachine, res.Output.Strategy)

	options, ok := dispatcherOptions(res.Output.Automation)
	require.True(t, ok)
	last := options[len(options)-1].(map[string]any)
	guard := last["conditions"].([]any)[0].(map[string]any)
	assert.Equal(t, `{{ cafe_state in ["kid's", "a, b"] }}`, guard["value_template"])
	assert.Equal(t, []string{"kid's", "a, b"}, guardPredecessors(guard))

	imported := NewParser(ParseOptions{}).Parse([]byte(res.YAML))
	require.True(t, imported.Success, imported.Errors)
	assert.Equal(t, g.Nodes, imported.Graph.Nodes)
	assert.Equal(t, edgeSet(g.Edges), edgeSet(imported.Graph.Edges))
}

func TestStateMachine_GuardReadsSingleQuotes(t *testing.T) {
	assert.Equal(t, []string{"x", "c.true"}, guardPredecessors("{{ cafe_state in ['x', 'c.true'] }}"))
}

func TestStateMachine_StateCollisionRejected(t *testing.T) {
	b := dsl.New("Collide")
	b.Add("t").Trigger("state", nil).Go("c")
	b.Add("c").Template("{{ true }}").Then("c.true").Else("c.false")
	b.Add("c.true").Call("light.turn_on")
	b.Add("c.false").Call("light.turn_off")

	res := Transpile(b.Graph(), Options{Strategy: domain.StrategyStateMachine})
	assert.False(t, res.Success)
	require.Len(t, res.Errors, 1)
	assert.ErrorIs(t, res.Errors[0], domain.ErrUnsupportedShape)

	res = Transpile(b.Graph(), Options{})
	assert.True(t, res.Success, res.Errors)
	assert.Equal(t, domain.StrategyNative, res.Output.Strategy)
}

func TestTranspile_LegacyDialect(t *testing.T) {
	res := Transpile(linearGraph(), Options{Dialect: automation.DialectLegacy})
	require.True(t, res.Success, res.Errors)
	assert.Contains(t, res.YAML, "platform: state")
	assert.Contains(t, res.YAML, "service: light.turn_on")
	assert.NotContains(t, res.YAML, "triggers:")
}

func TestTranspile_InvalidGraph(t *testing.T) {
	res := Transpile(&domain.Graph{}, Options{})
	assert.False(t, res.Success)
	require.NotEmpty(t, res.Errors)
	assert.ErrorIs(t, res.Errors[0], domain.ErrStructural)
	assert.Empty(t, res.YAML)
}

func TestTranspile_DoesNotMutateInput(t *testing.T) {
	g := elseIfGraph()
	before := g.Clone()
	Transpile(g, Options{})
	assert.Equal(t, before, g)
}

func TestTranspile_UnknownActionIsVerbatim(t *testing.T) {
	b := dsl.New("event")
	b.Add("t").Trigger("state", nil).Go("e")
	g := b.Graph()
	n, err := domain.NewNode("e", domain.NodeTypeAction, map[string]any{"event": "doorbell", "event_data": map[string]any{"room": "hall"}})
	require.NoError(t, err)
	g.Nodes = append(g.Nodes, n)

	res := Transpile(g, Options{})
	require.True(t, res.Success, res.Errors)
	assert.Len(t, res.Warnings, 1)
	assert.Equal(t, map[string]any{"event": "doorbell", "event_data": map[string]any{"room": "hall"}}, res.Output.Automation.Actions[0])
}

func TestTranspile_EditorKeysAreDeterministic(t *testing.T) {
	g, err := domain.ParseGraphJSON([]byte(`{
  "nodes": [
    {"id": "t", "type": "trigger", "data": {"platform": "state", "trigger": "time", "at": "07:00:00"}},
    {"id": "a", "type": "action", "data": {"service": "light.turn_off", "action": "light.turn_on"}}
  ],
  "edges": [{"id": "e1", "source": "t", "target": "a"}]
}`))
	require.NoError(t, err)

	for _, d := range []automation.Dialect{automation.DialectCurrent, automation.DialectLegacy} {
		first := Transpile(g, Options{Dialect: d})
		require.True(t, first.Success, first.Errors)
		for i := 0; i < 20; i++ {
			require.Equal(t, first.YAML, Transpile(g, Options{Dialect: d}).YAML)
		}
	}

	legacy := Transpile(g, Options{Dialect: automation.DialectLegacy}).YAML
	assert.Contains(t, legacy, "platform: time")
	assert.Contains(t, legacy, "service: light.turn_on")
	assert.NotContains(t, legacy, "trigger: ")
	assert.NotContains(t, legacy, "action: ")
}

func TestTranspile_UnreachableWarns(t *testing.T) {
	b := dsl.New("orphan")
	b.Add("t").Trigger("state", nil).Go("a")
	b.Add("a").Call("light.turn_on")
	b.Add("lost").Call("light.turn_off")

	res := Transpile(b.Graph(), Options{})
	require.True(t, res.Success, res.Errors)
	require.Len(t, res.Warnings, 1)
	assert.ErrorIs(t, res.Warnings[0], domain.ErrDialect)
}

func TestSelectStrategy(t *testing.T) {
	linear := &topology.Topology{Shape: topology.ShapeLinear}
	irregular := &topology.Topology{Shape: topology.ShapeIrregular}

	s, err := SelectStrategy(linear, domain.StrategyAuto)
	require.NoError(t, err)
	assert.Equal(t, domain.StrategyNative, s)

	s, err = SelectStrategy(irregular, domain.StrategyAuto)
	require.NoError(t, err)
	assert.Equal(t, domain.StrategyStateMachine, s)

	s, err = SelectStrategy(linear, domain.StrategyStateMachine)
	require.NoError(t, err)
	assert.Equal(t, domain.StrategyStateMachine, s)

	_, err = SelectStrategy(irregular, domain.StrategyNative)
	assert.ErrorIs(t, err, domain.ErrUnsupportedShape)
}
