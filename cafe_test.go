package cafe_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/aretw0/cafe"
	"github.com/aretw0/cafe/pkg/automation"
	"github.com/aretw0/cafe/pkg/domain"
	"github.com/aretw0/cafe/pkg/dsl"
	"github.com/aretw0/cafe/pkg/topology"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rejoin(t *testing.T) *domain.Graph {
	t.Helper()
	b := dsl.New("rejoin").ID("rejoin")
	b.Add("t").Trigger("state", map[string]any{"entity_id": "binary_sensor.door"}).Go("c")
	b.Add("c").Template("{{ x }}").Then("a").Else("b")
	b.Add("a").Call("light.turn_on").Go("end")
	b.Add("b").Call("light.turn_off").Go("end")
	b.Add("end").Call("notify.notify")
	g, err := b.Build()
	require.NoError(t, err)
	return g
}

func TestTranspiler_Hooks(t *testing.T) {
	var transpiled []*domain.TranspileEvent
	var imported []*domain.ImportEvent
	tr := cafe.New(cafe.WithLifecycleHooks(domain.LifecycleHooks{
		OnTranspile: func(_ context.Context, e *domain.TranspileEvent) { transpiled = append(transpiled, e) },
		OnImport:    func(_ context.Context, e *domain.ImportEvent) { imported = append(imported, e) },
	}))

	ctx := context.Background()
	res := tr.Transpile(ctx, rejoin(t))
	require.True(t, res.Success, res.Errors)

	require.Len(t, transpiled, 1)
	ev := transpiled[0]
	assert.Equal(t, domain.EventTranspile, ev.Type)
	assert.True(t, ev.Success)
	assert.Equal(t, "rejoin", ev.GraphID)
	assert.Equal(t, 5, ev.Nodes)
	assert.Equal(t, string(topology.ShapeIrregular), ev.Shape)
	assert.Equal(t, domain.StrategyStateMachine, ev.Strategy)

	back := tr.FromYAML(ctx, []byte(res.YAML))
	require.True(t, back.Success, back.Errors)
	require.Len(t, imported, 1)
	assert.True(t, imported[0].HadMetadata)
	assert.Equal(t, 5, imported[0].Nodes)
}

func TestTranspiler_FailedTranspileStillFiresHook(t *testing.T) {
	var events []*domain.TranspileEvent
	tr := cafe.New(cafe.WithLifecycleHooks(domain.LifecycleHooks{
		OnTranspile: func(_ context.Context, e *domain.TranspileEvent) { events = append(events, e) },
	}))

	res := tr.Transpile(context.Background(), rejoin(t), cafe.WithForceStrategy(domain.StrategyNative))
	assert.False(t, res.Success)
	require.Len(t, res.Errors, 1)
	assert.ErrorIs(t, res.Errors[0], domain.ErrUnsupportedShape)

	require.Len(t, events, 1)
	assert.False(t, events[0].Success)
	assert.Equal(t, 1, events[0].Errors)
}

func TestTranspiler_NilGraph(t *testing.T) {
	assert.NotPanics(t, func() {
		res := cafe.Transpile(nil)
		assert.False(t, res.Success)
		assert.NotEmpty(t, res.Errors)

		assert.NotEmpty(t, cafe.Validate(nil))
		assert.NotNil(t, cafe.AnalyzeTopology(nil))
	})
}

func TestTranspiler_Validate(t *testing.T) {
	g := &domain.Graph{
		Nodes: []domain.Node{
			{ID: "a", Type: domain.NodeTypeAction, Action: &domain.ActionData{Service: "light.turn_on"}},
			{ID: "a", Type: domain.NodeTypeAction, Action: &domain.ActionData{Service: "light.turn_off"}},
		},
		Edges: []domain.Edge{{ID: "e1", Source: "a", Target: "ghost"}},
	}
	errs := cafe.Validate(g)
	assert.GreaterOrEqual(t, len(errs), 3)
	for _, err := range errs {
		assert.ErrorIs(t, err, domain.ErrStructural)
	}

	assert.Empty(t, cafe.Validate(rejoin(t)))
}

func TestTranspiler_Options(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	tr := cafe.New(
		cafe.WithLogger(logger),
		cafe.WithDialect(automation.DialectLegacy),
		cafe.WithMaxSteps(25),
		cafe.WithoutLayout(),
	)
	res := tr.Transpile(context.Background(), rejoin(t))
	require.True(t, res.Success, res.Errors)

	assert.Contains(t, res.YAML, "service: light.turn_on")
	assert.Contains(t, res.YAML, "repeat.index >= 25")
	assert.NotContains(t, res.YAML, domain.MetadataKey)
	assert.Contains(t, buf.String(), "graph transpiled")

	res = tr.Transpile(context.Background(), rejoin(t), cafe.WithTranspileDialect(automation.DialectCurrent))
	require.True(t, res.Success, res.Errors)
	assert.Contains(t, res.YAML, "action: light.turn_on")
}

func TestTranspiler_Canonical(t *testing.T) {
	text := `
triggers:
  - trigger: state
    entity_id: binary_sensor.hall
actions:
  - action: light.turn_on
    target:
      entity_id: light.hall
`
	kept := cafe.FromYAML([]byte(text))
	require.True(t, kept.Success, kept.Errors)
	call, _ := kept.Graph.Node("action_1")
	assert.True(t, call.Action.Target.EntityID.Single)

	canon := cafe.New(cafe.WithCanonical(true)).FromYAML(context.Background(), []byte(text))
	require.True(t, canon.Success, canon.Errors)
	call, _ = canon.Graph.Node("action_1")
	assert.False(t, call.Action.Target.EntityID.Single)
	assert.Equal(t, []string{"light.hall"}, call.Action.Target.EntityID.IDs)
}
