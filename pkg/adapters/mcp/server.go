// Package mcp exposes a pipeline and its parked runs over the Model Context
// Protocol, so agents can inspect the step order and drive runs.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/aretw0/sluice"
	"github.com/aretw0/sluice/internal/logging"
	"github.com/aretw0/sluice/pkg/domain"
	"github.com/aretw0/sluice/pkg/ports"
	"github.com/aretw0/sluice/pkg/session"
)

// OrderURI is the resource holding the finalized step list.
const OrderURI = "sluice://order"

// RunResult is the structured output of run tools.
type RunResult struct {
	ID       string            `json:"id" jsonschema_description:"Run identifier"`
	Outcome  domain.Outcome    `json:"outcome" jsonschema_description:"suspended, completed or aborted"`
	Position int               `json:"position" jsonschema_description:"Index of the next step"`
	Trace    []domain.Identity `json:"trace,omitempty" jsonschema_description:"Contributors executed so far"`
	Status   int               `json:"status,omitempty" jsonschema_description:"HTTP status of the response, once completed"`
	Body     string            `json:"body,omitempty" jsonschema_description:"Response body, once completed"`
	Parked   bool              `json:"parked" jsonschema_description:"Whether the run was stored for later resumption"`
}

// StartRunArgs are the arguments of start_run.
type StartRunArgs struct {
	Method       string `json:"method"`
	Path         string `json:"path"`
	Body         string `json:"body"`
	SuspendAfter string `json:"suspend_after"`
}

// ResumeRunArgs are the arguments of resume_run.
type ResumeRunArgs struct {
	RunID        string `json:"run_id"`
	SuspendAfter string `json:"suspend_after"`
}

// Server wraps a pipeline and exposes it as an MCP server.
type Server struct {
	pipeline  ports.Pipeline
	manager   *session.Manager
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP server.
func NewServer(pipeline ports.Pipeline, manager *session.Manager, opts ...Option) *Server {
	s := &Server{
		pipeline:  pipeline,
		manager:   manager,
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("sluice-mcp", strings.TrimSpace(sluice.Version)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
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

// ServeSSE serves the SSE transport on addr until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", sseServer.SSEHandler())
	mux.Handle("/message", sseServer.MessageHandler())

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
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
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

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("get_order",
		mcp.WithDescription("Get the finalized pipeline order: every contributor step and stage marker by position."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		steps, err := s.pipeline.Steps()
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("order unavailable: %v", err)), nil
		}
		jsonBytes, _ := json.Marshal(steps)
		return mcp.NewToolResultText(string(jsonBytes)), nil
	})

	s.mcpServer.AddTool(mcp.NewTool("start_run",
		mcp.WithDescription("Run a request through the pipeline. A run that suspends is parked and can be resumed later."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Request path, e.g. /orders/42")),
		mcp.WithString("method", mcp.Description("HTTP method (default GET)")),
		mcp.WithString("body", mcp.Description("Request body")),
		mcp.WithString("suspend_after", mcp.Description("Step or stage to suspend after (optional)")),
		mcp.WithOutputSchema[RunResult](),
	), mcp.NewStructuredToolHandler(s.handleStartRun))

	s.mcpServer.AddTool(mcp.NewTool("resume_run",
		mcp.WithDescription("Resume a parked run."),
		mcp.WithString("run_id", mcp.Required(), mcp.Description("ID of the parked run")),
		mcp.WithString("suspend_after", mcp.Description("Step or stage to suspend after again (optional)")),
		mcp.WithOutputSchema[RunResult](),
	), mcp.NewStructuredToolHandler(s.handleResumeRun))

	s.mcpServer.AddTool(mcp.NewTool("list_runs",
		mcp.WithDescription("List the IDs of parked runs."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ids, err := s.manager.List(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("list failed: %v", err)), nil
		}
		if ids == nil {
			ids = []string{}
		}
		jsonBytes, _ := json.Marshal(ids)
		return mcp.NewToolResultText(string(jsonBytes)), nil
	})

	s.mcpServer.AddTool(mcp.NewTool("inspect_run",
		mcp.WithDescription("Show the stored snapshot of a parked run."),
		mcp.WithString("run_id", mcp.Required(), mcp.Description("ID of the parked run")),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := request.RequireString("run_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		snap, err := s.manager.Load(ctx, id)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("inspect failed: %v", err)), nil
		}
		jsonBytes, _ := json.Marshal(snap)
		return mcp.NewToolResultText(string(jsonBytes)), nil
	})
}

func (s *Server) handleStartRun(ctx context.Context, request mcp.CallToolRequest, args StartRunArgs) (RunResult, error) {
	if args.Path == "" {
		return RunResult{}, errors.New("path is required")
	}
	method := args.Method
	if method == "" {
		method = http.MethodGet
	}

	cc := s.pipeline.NewContext(ctx, &domain.Request{
		Method: strings.ToUpper(method),
		Path:   args.Path,
		Header: http.Header{},
		Body:   []byte(args.Body),
	})
	cc.Run.SuspendAfter = domain.Identity(args.SuspendAfter)

	outcome, err := s.pipeline.Advance(cc)
	if err != nil {
		s.logger.Warn("MCP run failed", "run_id", cc.ID, "err", err)
	}
	res := result(cc, outcome)
	if outcome == domain.OutcomeSuspended {
		if err := s.manager.Park(ctx, cc); err != nil {
			return RunResult{}, fmt.Errorf("park run: %w", err)
		}
		res.Parked = true
	}
	return res, nil
}

func (s *Server) handleResumeRun(ctx context.Context, request mcp.CallToolRequest, args ResumeRunArgs) (RunResult, error) {
	cc, outcome, err := s.manager.Resume(ctx, args.RunID, func(cc *domain.CommunicationContext) (domain.Outcome, error) {
		cc.Run.SuspendAfter = domain.Identity(args.SuspendAfter)
		return s.pipeline.Advance(cc)
	})
	if cc == nil {
		return RunResult{}, fmt.Errorf("resume failed: %w", err)
	}
	if err != nil {
		s.logger.Warn("MCP resumed run failed", "run_id", cc.ID, "err", err)
	}
	res := result(cc, outcome)
	res.Parked = outcome == domain.OutcomeSuspended
	return res, nil
}

func result(cc *domain.CommunicationContext, outcome domain.Outcome) RunResult {
	res := RunResult{
		ID:       cc.ID,
		Outcome:  outcome,
		Position: cc.Run.Index,
		Trace:    cc.Run.Trace,
	}
	if outcome == domain.OutcomeCompleted {
		res.Status = cc.Response.StatusCode
		res.Body = string(cc.Response.Body)
	}
	return res
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(OrderURI, "Pipeline order",
		mcp.WithResourceDescription("Finalized step list, stage markers included"),
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		steps, err := s.pipeline.Steps()
		if err != nil {
			return nil, fmt.Errorf("failed to read order: %w", err)
		}
		jsonBytes, _ := json.Marshal(steps)

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      OrderURI,
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}
