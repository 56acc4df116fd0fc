package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/hashfsm"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// DefinitionsURI is the resource listing the prefix bindings.
const DefinitionsURI = "hashfsm://definitions"

// Service defines the operator commands exposed as MCP tools.
// It is satisfied by *hashfsm.Module.
type Service interface {
	Create(ctx context.Context, payload []byte) (string, error)
	Info(ctx context.Context, name string) ([]byte, error)
	Delete(ctx context.Context, name string) error
	Allowed(ctx context.Context, fsm, key, event string) (bool, error)
	Trigger(ctx context.Context, fsm, key, event string) (bool, error)
	State(ctx context.Context, fsm, key string) (string, bool, error)
	Events(ctx context.Context, fsm, key string) ([]string, error)
	List(ctx context.Context) (map[string]string, error)
}

var _ Service = (*hashfsm.Module)(nil)

// EntityResponse is the structured result of the entity tools.
type EntityResponse struct {
	FSM         string   `json:"fsm" jsonschema_description:"Definition name"`
	Key         string   `json:"key" jsonschema_description:"Entity key"`
	State       string   `json:"state,omitempty" jsonschema_description:"Current state, empty while uninitialized"`
	Initialized bool     `json:"initialized" jsonschema_description:"Whether the entity carries a state"`
	Allowed     *bool    `json:"allowed,omitempty" jsonschema_description:"Whether the event may fire (fsm_allowed)"`
	Fired       *bool    `json:"fired,omitempty" jsonschema_description:"Whether the entity changed state (fsm_trigger)"`
	Events      []string `json:"events,omitempty" jsonschema_description:"Events that may fire from the current state"`
}

// Server wraps a Service and exposes it as an MCP Server.
type Server struct {
	service   Service
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP Server instance.
func NewServer(service Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		service:   service,
		logger:    logger,
		mcpServer: server.NewMCPServer("hashfsm-mcp", strings.TrimSpace(hashfsm.Version)),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
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

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("fsm_create",
		mcp.WithDescription("Create or replace a state machine definition from a YAML or JSON payload with name, prefix, field, states and events."),
		mcp.WithString("payload", mcp.Required(), mcp.Description("The definition document")),
	), s.handleCreate)

	s.mcpServer.AddTool(mcp.NewTool("fsm_info",
		mcp.WithDescription("Show the stored form of a definition."),
		mcp.WithString("fsm", mcp.Required(), mcp.Description("Definition name")),
	), s.handleInfo)

	s.mcpServer.AddTool(mcp.NewTool("fsm_delete",
		mcp.WithDescription("Delete a definition and its prefix binding. Entities keep their state field."),
		mcp.WithString("fsm", mcp.Required(), mcp.Description("Definition name")),
	), s.handleDelete)

	s.mcpServer.AddTool(mcp.NewTool("fsm_allowed",
		mcp.WithDescription("Check whether an event may fire on an entity. Never modifies the entity."),
		mcp.WithString("fsm", mcp.Required(), mcp.Description("Definition name")),
		mcp.WithString("key", mcp.Required(), mcp.Description("Entity key")),
		mcp.WithString("event", mcp.Required(), mcp.Description("Event name")),
		mcp.WithOutputSchema[EntityResponse](),
	), mcp.NewStructuredToolHandler(s.handleAllowed))

	s.mcpServer.AddTool(mcp.NewTool("fsm_trigger",
		mcp.WithDescription("Fire an event on an entity, moving it to the event's target state when its current state is a source."),
		mcp.WithString("fsm", mcp.Required(), mcp.Description("Definition name")),
		mcp.WithString("key", mcp.Required(), mcp.Description("Entity key")),
		mcp.WithString("event", mcp.Required(), mcp.Description("Event name")),
		mcp.WithOutputSchema[EntityResponse](),
	), mcp.NewStructuredToolHandler(s.handleTrigger))

	s.mcpServer.AddTool(mcp.NewTool("fsm_state",
		mcp.WithDescription("Read the current state of an entity and the events that may fire from it."),
		mcp.WithString("fsm", mcp.Required(), mcp.Description("Definition name")),
		mcp.WithString("key", mcp.Required(), mcp.Description("Entity key")),
		mcp.WithOutputSchema[EntityResponse](),
	), mcp.NewStructuredToolHandler(s.handleState))
}

func (s *Server) handleCreate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	payload, _ := request.GetArguments()["payload"].(string)
	name, err := s.service.Create(ctx, []byte(payload))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("create failed: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created %s", name)), nil
}

func (s *Server) handleInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	fsm, _ := request.GetArguments()["fsm"].(string)
	data, err := s.service.Info(ctx, fsm)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("info failed: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) handleDelete(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	fsm, _ := request.GetArguments()["fsm"].(string)
	if err := s.service.Delete(ctx, fsm); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("delete failed: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted %s", fsm)), nil
}

func entityArgs(args map[string]interface{}) (fsm, key, event string) {
	fsm, _ = args["fsm"].(string)
	key, _ = args["key"].(string)
	event, _ = args["event"].(string)
	return fsm, key, event
}

func (s *Server) handleAllowed(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (EntityResponse, error) {
	fsm, key, event := entityArgs(args)
	ok, err := s.service.Allowed(ctx, fsm, key, event)
	if err != nil {
		return EntityResponse{}, fmt.Errorf("allowed failed: %w", err)
	}
	resp, err := s.describe(ctx, fsm, key)
	resp.Allowed = &ok
	return resp, err
}

func (s *Server) handleTrigger(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (EntityResponse, error) {
	fsm, key, event := entityArgs(args)
	fired, err := s.service.Trigger(ctx, fsm, key, event)
	if err != nil {
		return EntityResponse{}, fmt.Errorf("trigger failed: %w", err)
	}
	s.logger.Debug("MCP Trigger", "fsm", fsm, "key", key, "event", event, "fired", fired)
	resp, err := s.describe(ctx, fsm, key)
	resp.Fired = &fired
	return resp, err
}

func (s *Server) handleState(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (EntityResponse, error) {
	fsm, key, _ := entityArgs(args)
	return s.describe(ctx, fsm, key)
}

func (s *Server) describe(ctx context.Context, fsm, key string) (EntityResponse, error) {
	resp := EntityResponse{FSM: fsm, Key: key}
	state, ok, err := s.service.State(ctx, fsm, key)
	if err != nil {
		return resp, fmt.Errorf("state failed: %w", err)
	}
	resp.State, resp.Initialized = state, ok

	events, err := s.service.Events(ctx, fsm, key)
	if err != nil {
		return resp, fmt.Errorf("events failed: %w", err)
	}
	resp.Events = events
	return resp, nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(DefinitionsURI, "Prefix Bindings",
		mcp.WithResourceDescription("Key prefixes and the definitions governing them"),
		mcp.WithMIMEType("application/json"),
	), s.readDefinitions)
}

func (s *Server) readDefinitions(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	bindings, err := s.service.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list definitions: %w", err)
	}
	jsonBytes, _ := json.Marshal(bindings)

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      DefinitionsURI,
			MIMEType: "application/json",
			Text:     string(jsonBytes),
		},
	}, nil
}
