package mcp

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/aretw0/cafe/pkg/adapters/memory"
	"github.com/aretw0/cafe/pkg/ports"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const hallGraph = `{
  "id": "hall",
  "name": "Hall light",
  "nodes": [
    {"id": "motion", "type": "trigger", "position": {"x": 0, "y": 0},
     "data": {"platform": "state", "entity_id": "binary_sensor.hall", "to": "on"}},
    {"id": "on", "type": "action", "position": {"x": 300, "y": 0},
     "data": {"service": "light.turn_on", "target": {"entity_id": "light.hall"}}}
  ],
  "edges": [{"id": "e1", "source": "motion", "target": "on"}]
}`

func call(t *testing.T, s *Server, method string, params any) map[string]any {
	t.Helper()
	msg, err := json.Marshal(map[string]any{"jsonrpc": "2.0", "id": 1, "method": method, "params": params})
	require.NoError(t, err)
	resp := s.MCPServer().HandleMessage(context.Background(), msg)
	b, err := json.Marshal(resp)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(b, &out))
	return out
}

func TestTools_Listed(t *testing.T) {
	s := NewServer(nil)
	call(t, s, "initialize", map[string]any{
		"protocolVersion": mcp.LATEST_PROTOCOL_VERSION,
		"clientInfo":      map[string]any{"name": "test", "version": "0"},
	})

	out := call(t, s, "tools/list", map[string]any{})
	result := out["result"].(map[string]any)
	var names []string
	for _, tool := range result["tools"].([]any) {
		names = append(names, tool.(map[string]any)["name"].(string))
	}
	assert.ElementsMatch(t, []string{"transpile", "import_yaml", "validate_graph", "analyze_topology"}, names)
}

func TestHandleTranspile(t *testing.T) {
	s := NewServer(nil)

	out, err := s.handleTranspile(context.Background(), mcp.CallToolRequest{}, TranspileArgs{Graph: hallGraph})
	require.NoError(t, err)
	assert.True(t, out.Success, out.Errors)
	assert.Equal(t, "native", out.Strategy)
	assert.Equal(t, "linear", out.Shape)
	assert.Contains(t, out.YAML, "action: light.turn_on")
	require.NotNil(t, out.Automation)
	triggers := out.Automation["triggers"].([]any)
	require.Len(t, triggers, 1)
	assert.Equal(t, "state", triggers[0].(map[string]any)["trigger"])

	out, err = s.handleTranspile(context.Background(), mcp.CallToolRequest{}, TranspileArgs{
		Graph: hallGraph, Strategy: "state-machine", Dialect: "legacy",
	})
	require.NoError(t, err)
	assert.Equal(t, "state-machine", out.Strategy)
	assert.Contains(t, out.YAML, "service: light.turn_on")
}

func TestHandleTranspile_BadGraph(t *testing.T) {
	s := NewServer(nil)
	_, err := s.handleTranspile(context.Background(), mcp.CallToolRequest{}, TranspileArgs{Graph: "{"})
	assert.Error(t, err)
}

func TestHandleImport(t *testing.T) {
	s := NewServer(nil)
	out, err := s.handleImport(context.Background(), mcp.CallToolRequest{}, ImportArgs{
		YAML: "triggers:\n  - trigger: sun\n    event: sunset\nactions:\n  - action: light.turn_on\n",
	})
	require.NoError(t, err)
	assert.True(t, out.Success)
	require.NotNil(t, out.Graph)
	assert.Len(t, out.Graph.Nodes, 2)
	assert.False(t, out.HadMetadata)
	assert.Empty(t, out.Errors)
}

func TestHandleValidateAndTopology(t *testing.T) {
	s := NewServer(nil)

	v, err := s.handleValidate(context.Background(), mcp.CallToolRequest{}, GraphArgs{Graph: hallGraph})
	require.NoError(t, err)
	assert.True(t, v.Valid)
	assert.Empty(t, v.Errors)

	v, err = s.handleValidate(context.Background(), mcp.CallToolRequest{}, GraphArgs{Graph: `{"nodes": [], "edges": []}`})
	require.NoError(t, err)
	assert.False(t, v.Valid)
	assert.NotEmpty(t, v.Errors)

	topo, err := s.handleTopology(context.Background(), mcp.CallToolRequest{}, GraphArgs{Graph: hallGraph})
	require.NoError(t, err)
	assert.Equal(t, "linear", string(topo.Shape))
	assert.Equal(t, []string{"motion"}, topo.EntryNodes)
}

func TestResources_StoredAutomation(t *testing.T) {
	store := memory.NewStore()
	require.NoError(t, store.Save(context.Background(), &ports.StoredAutomation{
		ID: "hall", YAML: "alias: Hall\n", UpdatedAt: time.Now(),
	}))
	s := NewServer(nil, WithStore(store))

	out := call(t, s, "resources/read", map[string]any{"uri": "cafe://automations/hall"})
	result := out["result"].(map[string]any)
	contents := result["contents"].([]any)
	require.Len(t, contents, 1)
	assert.Equal(t, "alias: Hall\n", contents[0].(map[string]any)["text"])

	out = call(t, s, "resources/read", map[string]any{"uri": "cafe://automations"})
	contents = out["result"].(map[string]any)["contents"].([]any)
	assert.Equal(t, `["hall"]`, contents[0].(map[string]any)["text"])
}
