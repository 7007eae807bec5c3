// Package mcp exposes the transpiler as Model Context Protocol tools.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/cafe"
	"github.com/aretw0/cafe/pkg/automation"
	"github.com/aretw0/cafe/pkg/domain"
	"github.com/aretw0/cafe/pkg/ports"
	"github.com/aretw0/cafe/pkg/topology"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const automationURIPrefix = "cafe://automations/"

// TranspileArgs are the arguments of the transpile tool.
type TranspileArgs struct {
	Graph    string `json:"graph"`
	Strategy string `json:"strategy,omitempty"`
	Dialect  string `json:"dialect,omitempty"`
}

// TranspileResponse mirrors the HTTP transpile response.
type TranspileResponse struct {
	Success    bool           `json:"success" jsonschema_description:"False when the graph was rejected"`
	YAML       string         `json:"yaml,omitempty" jsonschema_description:"The automation document"`
	Strategy   string         `json:"strategy,omitempty" jsonschema_description:"native or state-machine"`
	Shape      string         `json:"shape,omitempty" jsonschema_description:"linear, tree-branching or irregular"`
	Automation map[string]any `json:"automation,omitempty" jsonschema_description:"The automation document as structured data"`
	Warnings   []string       `json:"warnings" jsonschema_description:"Recovered anomalies"`
	Errors     []string       `json:"errors" jsonschema_description:"Reasons the graph was rejected"`
}

// ImportArgs are the arguments of the import_yaml tool.
type ImportArgs struct {
	YAML string `json:"yaml"`
}

// ImportResponse carries the graph read from a document.
type ImportResponse struct {
	Success     bool          `json:"success"`
	Graph       *domain.Graph `json:"graph,omitempty" jsonschema_description:"The editor graph"`
	HadMetadata bool          `json:"had_metadata" jsonschema_description:"Whether the stored layout was restored"`
	Warnings    []string      `json:"warnings"`
	Errors      []string      `json:"errors"`
}

// GraphArgs carries a graph in editor JSON.
type GraphArgs struct {
	Graph string `json:"graph"`
}

// ValidateResponse lists broken invariants.
type ValidateResponse struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// Server wraps a Transpiler and exposes it as an MCP Server.
type Server struct {
	transpiler *cafe.Transpiler
	store      ports.AutomationStore
	logger     *slog.Logger
	mcpServer  *server.MCPServer
}

// Option configures NewServer.
type Option func(*Server)

// WithStore exposes stored automations as resources.
func WithStore(store ports.AutomationStore) Option {
	return func(s *Server) { s.store = store }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// NewServer creates a new MCP Server instance. A nil transpiler uses defaults.
func NewServer(t *cafe.Transpiler, opts ...Option) *Server {
	if t == nil {
		t = cafe.New()
	}
	s := &Server{
		transpiler: t,
		mcpServer:  server.NewMCPServer("cafe-mcp", strings.TrimSpace(cafe.Version)),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	s.registerTools()
	if s.store != nil {
		s.registerResources()
	}
	return s
}

// MCPServer returns the underlying protocol server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves the SSE transport on port until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	graphArg := mcp.WithString("graph", mcp.Required(),
		mcp.Description("The automation graph as editor JSON: {\"nodes\": [...], \"edges\": [...]}"))

	s.mcpServer.AddTool(mcp.NewTool("transpile",
		mcp.WithDescription("Convert an automation graph into automation YAML."),
		graphArg,
		mcp.WithString("strategy", mcp.Enum("native", "state-machine"),
			mcp.Description("Force a generation strategy (optional)")),
		mcp.WithString("dialect", mcp.Enum("current", "legacy"),
			mcp.Description("Key spelling of the output (optional)")),
		mcp.WithOutputSchema[TranspileResponse](),
	), mcp.NewStructuredToolHandler(s.handleTranspile))

	s.mcpServer.AddTool(mcp.NewTool("import_yaml",
		mcp.WithDescription("Read automation YAML, in either dialect, back into a graph."),
		mcp.WithString("yaml", mcp.Required(), mcp.Description("The automation document")),
		mcp.WithOutputSchema[ImportResponse](),
	), mcp.NewStructuredToolHandler(s.handleImport))

	s.mcpServer.AddTool(mcp.NewTool("validate_graph",
		mcp.WithDescription("Check the structural invariants of a graph."),
		graphArg,
		mcp.WithOutputSchema[ValidateResponse](),
	), mcp.NewStructuredToolHandler(s.handleValidate))

	s.mcpServer.AddTool(mcp.NewTool("analyze_topology",
		mcp.WithDescription("Classify a graph as linear, tree-branching or irregular."),
		graphArg,
		mcp.WithOutputSchema[topology.Topology](),
	), mcp.NewStructuredToolHandler(s.handleTopology))
}

func parseGraph(text string) (*domain.Graph, error) {
	g, err := domain.ParseGraphJSON([]byte(text))
	if err != nil {
		return nil, fmt.Errorf("invalid graph: %w", err)
	}
	return g, nil
}

func (s *Server) handleTranspile(ctx context.Context, _ mcp.CallToolRequest, args TranspileArgs) (TranspileResponse, error) {
	g, err := parseGraph(args.Graph)
	if err != nil {
		return TranspileResponse{}, err
	}

	var opts []cafe.TranspileOption
	if args.Strategy != "" {
		opts = append(opts, cafe.WithForceStrategy(domain.Strategy(args.Strategy)))
	}
	if args.Dialect != "" {
		opts = append(opts, cafe.WithTranspileDialect(automation.Dialect(args.Dialect)))
	}

	res := s.transpiler.Transpile(ctx, g, opts...)
	out := TranspileResponse{
		Success:  res.Success,
		YAML:     res.YAML,
		Warnings: messages(res.Warnings),
		Errors:   messages(res.Errors),
	}
	if res.Output != nil {
		out.Strategy = string(res.Output.Strategy)
		out.Shape = string(res.Output.Shape)
		if res.Output.Automation != nil {
			doc, err := res.Output.Automation.Map(res.Output.Dialect)
			if err != nil {
				return TranspileResponse{}, err
			}
			out.Automation = doc
		}
	}
	return out, nil
}

func (s *Server) handleImport(ctx context.Context, _ mcp.CallToolRequest, args ImportArgs) (ImportResponse, error) {
	res := s.transpiler.FromYAML(ctx, []byte(args.YAML))
	return ImportResponse{
		Success:     res.Success,
		Graph:       res.Graph,
		HadMetadata: res.HadMetadata,
		Warnings:    messages(res.Warnings),
		Errors:      messages(res.Errors),
	}, nil
}

func (s *Server) handleValidate(_ context.Context, _ mcp.CallToolRequest, args GraphArgs) (ValidateResponse, error) {
	g, err := parseGraph(args.Graph)
	if err != nil {
		return ValidateResponse{}, err
	}
	errs := s.transpiler.Validate(g)
	return ValidateResponse{Valid: len(errs) == 0, Errors: messages(errs)}, nil
}

func (s *Server) handleTopology(_ context.Context, _ mcp.CallToolRequest, args GraphArgs) (topology.Topology, error) {
	g, err := parseGraph(args.Graph)
	if err != nil {
		return topology.Topology{}, err
	}
	return *s.transpiler.AnalyzeTopology(g), nil
}

func messages(errs []error) []string {
	out := make([]string, 0, len(errs))
	for _, err := range errs {
		out = append(out, err.Error())
	}
	return out
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource("cafe://automations", "Stored automations",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		ids, err := s.store.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list automations: %w", err)
		}
		b, _ := json.Marshal(ids)
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "cafe://automations",
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	})

	s.mcpServer.AddResourceTemplate(mcp.NewResourceTemplate(automationURIPrefix+"{id}", "Stored automation YAML",
		mcp.WithTemplateMIMEType("text/yaml"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		id := strings.TrimPrefix(request.Params.URI, automationURIPrefix)
		a, err := s.store.Load(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to load automation %s: %w", id, err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      request.Params.URI,
				MIMEType: "text/yaml",
				Text:     a.YAML,
			},
		}, nil
	})
}
