// Package mcp exposes the stagegate engine to agents as Model Context Protocol tools.
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

	"github.com/aretw0/stagegate"
	"github.com/aretw0/stagegate/internal/logging"
	"github.com/aretw0/stagegate/pkg/domain"
	"github.com/aretw0/stagegate/pkg/handoff"
	"github.com/aretw0/stagegate/pkg/runner"
)

const stagesURI = "stagegate://stages"

// Engine is the part of *stagegate.Engine the MCP server exposes.
type Engine interface {
	Turn(ctx context.Context, req stagegate.TurnRequest) (*stagegate.TurnResult, error)
	Comply(ctx context.Context, req stagegate.ComplyRequest) (stagegate.ComplianceCheck, error)
	Complete(ctx context.Context, sessionID string, status domain.ExecutionStatus) (*stagegate.Completion, error)
	Handoff(ctx context.Context, sessionID string, intended domain.Team) (*stagegate.HandoffResult, error)
	Resume(ctx context.Context, sessionID string, contract *handoff.Contract) (*domain.SessionContext, error)
	Session(ctx context.Context, sessionID string) (*domain.SessionContext, error)
	Stages() []domain.StageRule
}

// Server wraps the engine and exposes it as an MCP Server.
type Server struct {
	engine    Engine
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures the server.
type Option func(*Server)

// WithLogger sets the logger. Under the stdio transport it must not write to stdout.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(engine Engine, opts ...Option) *Server {
	s := &Server{
		engine:    engine,
		mcpServer: server.NewMCPServer("stagegate-mcp", strings.TrimSpace(stagegate.Version)),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.NewNop()
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE and stops when ctx is done.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", sseServer.SSEHandler())
	mux.Handle("/message", sseServer.MessageHandler())

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

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("process_turn",
		mcp.WithDescription("Run one user message through the stage engine. Returns the stage, the mandated action and a compliant response."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Conversation ID")),
		mcp.WithString("message", mcp.Required(), mcp.Description("The user's message")),
		mcp.WithString("turn_id", mcp.Description("Idempotency key; a repeated ID does not apply the turn twice")),
		mcp.WithOutputSchema[stagegate.TurnResult](),
	), mcp.NewStructuredToolHandler(s.handleProcessTurn))

	s.mcpServer.AddTool(mcp.NewTool("check_compliance",
		mcp.WithDescription("Check a drafted reply against the conversation state and rewrite it if it re-asks known data, dead-ends or leaks internals."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Conversation ID")),
		mcp.WithString("draft", mcp.Required(), mcp.Description("The drafted reply")),
		mcp.WithString("classification", mcp.Description("JSON classification of the turn being answered (optional)")),
		mcp.WithOutputSchema[stagegate.ComplianceCheck](),
	), mcp.NewStructuredToolHandler(s.handleCheckCompliance))

	s.mcpServer.AddTool(mcp.NewTool("complete_action",
		mcp.WithDescription("Report what happened when the mandated search or booking was executed."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Conversation ID")),
		mcp.WithString("action_type", mcp.Required(), mcp.Description("execute_search or initiate_booking")),
		mcp.WithBoolean("action_executed", mcp.Required(), mcp.Description("Whether the action actually ran")),
		mcp.WithNumber("result_count", mcp.Description("Number of results returned")),
		mcp.WithString("error", mcp.Description("Execution error, if any")),
		mcp.WithOutputSchema[stagegate.Completion](),
	), mcp.NewStructuredToolHandler(s.handleCompleteAction))

	s.mcpServer.AddTool(mcp.NewTool("create_handoff",
		mcp.WithDescription("Hand the conversation to another specialist team. Returns the contract the next agent resumes from."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Conversation ID")),
		mcp.WithString("target", mcp.Required(), mcp.Description("Team to hand over to, e.g. flight-operations")),
		mcp.WithOutputSchema[stagegate.HandoffResult](),
	), mcp.NewStructuredToolHandler(s.handleCreateHandoff))

	s.mcpServer.AddTool(mcp.NewTool("resume_handoff",
		mcp.WithDescription("Continue a conversation from a handoff contract without re-asking anything."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Conversation ID on the receiving side")),
		mcp.WithString("contract", mcp.Required(), mcp.Description("JSON handoff contract")),
		mcp.WithOutputSchema[domain.SessionContext](),
	), mcp.NewStructuredToolHandler(s.handleResumeHandoff))

	s.mcpServer.AddTool(mcp.NewTool("get_session",
		mcp.WithDescription("Get the tracked state of a conversation."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Conversation ID")),
		mcp.WithOutputSchema[domain.SessionContext](),
	), mcp.NewStructuredToolHandler(s.handleGetSession))
}

func (s *Server) handleProcessTurn(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (*stagegate.TurnResult, error) {
	sessionID, _ := args["session_id"].(string)
	message, _ := args["message"].(string)
	turnID, _ := args["turn_id"].(string)

	clean, err := runner.SanitizeInput(message)
	if err != nil {
		s.logger.Warn("MCP process_turn: input rejected", "err", err, "size", len(message))
		return nil, fmt.Errorf("input rejected: %w", err)
	}
	return s.engine.Turn(ctx, stagegate.TurnRequest{SessionID: sessionID, Message: clean, TurnID: turnID})
}

func (s *Server) handleCheckCompliance(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (stagegate.ComplianceCheck, error) {
	sessionID, _ := args["session_id"].(string)
	draft, _ := args["draft"].(string)

	clean, err := runner.SanitizeInput(draft)
	if err != nil {
		return stagegate.ComplianceCheck{}, fmt.Errorf("draft rejected: %w", err)
	}

	req := stagegate.ComplyRequest{SessionID: sessionID, Draft: clean}
	if raw, ok := args["classification"].(string); ok && raw != "" {
		var cls domain.Classification
		if err := json.Unmarshal([]byte(raw), &cls); err != nil {
			return stagegate.ComplianceCheck{}, fmt.Errorf("invalid classification: %w", err)
		}
		req.Classification = &cls
	}
	return s.engine.Comply(ctx, req)
}

func (s *Server) handleCompleteAction(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (*stagegate.Completion, error) {
	sessionID, _ := args["session_id"].(string)
	action, _ := args["action_type"].(string)
	executed, _ := args["action_executed"].(bool)
	execErr, _ := args["error"].(string)

	status := domain.ExecutionStatus{
		ActionExecuted: executed,
		ActionType:     domain.ActionType(action),
		Error:          execErr,
	}
	if n, ok := args["result_count"].(float64); ok {
		status.Results = &domain.SearchResults{Count: int(n)}
	}

	done, err := s.engine.Complete(ctx, sessionID, status)
	var violation *domain.MandatoryActionViolation
	if errors.As(err, &violation) {
		s.logger.Warn("MCP complete_action: mandatory action not executed", "stage", violation.Stage, "expected", violation.ExpectedAction)
	}
	return done, err
}

func (s *Server) handleCreateHandoff(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (*stagegate.HandoffResult, error) {
	sessionID, _ := args["session_id"].(string)
	target, _ := args["target"].(string)
	return s.engine.Handoff(ctx, sessionID, domain.Team(target))
}

func (s *Server) handleResumeHandoff(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (*domain.SessionContext, error) {
	sessionID, _ := args["session_id"].(string)
	raw, _ := args["contract"].(string)

	contract, err := handoff.DecodeJSON([]byte(raw))
	if err != nil {
		return nil, err
	}
	return s.engine.Resume(ctx, sessionID, contract)
}

func (s *Server) handleGetSession(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (*domain.SessionContext, error) {
	sessionID, _ := args["session_id"].(string)
	return s.engine.Session(ctx, sessionID)
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(stagesURI, "Stage rules",
		mcp.WithResourceDescription("Allowed and forbidden actions, consent requirements and successors of every stage."),
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		jsonBytes, err := json.Marshal(s.engine.Stages())
		if err != nil {
			return nil, fmt.Errorf("failed to encode stages: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      stagesURI,
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}
