// Package mcp exposes the surge workflow as Model Context Protocol tools.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"arogya-swarm/backend/internal/notify"
	"arogya-swarm/backend/internal/simulation"
	"arogya-swarm/backend/internal/workflow"
	"arogya-swarm/backend/pkg/models"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Runner launches runs and remembers the latest one.
type Runner interface {
	Trigger(ctx context.Context, signals models.ExternalSignals) (*workflow.RunResult, error)
	Latest() *workflow.RunResult
}

type Server struct {
	mcpServer *server.MCPServer
	runs      Runner
	scenarios *simulation.Catalog
}

func NewServer(runs Runner, scenarios *simulation.Catalog) *Server {
	s := &Server{
		mcpServer: server.NewMCPServer(
			"Arogya Swarm",
			"1.0.0",
			server.WithToolCapabilities(true),
		),
		runs:      runs,
		scenarios: scenarios,
	}

	s.registerTools()
	return s
}

func (s *Server) GetMCPServer() *server.MCPServer {
	return s.mcpServer
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcp.NewTool(
			"run_surge_workflow",
			mcp.WithDescription("Predict a patient surge for a crisis scenario and plan the response"),
			mcp.WithString("scenario", mcp.Description("Scenario key: pollution, dengue or trauma. Defaults to pollution")),
			mcp.WithNumber("aqi", mcp.Description("Override the scenario's air quality index")),
		),
		s.handleRun,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"latest_run",
			mcp.WithDescription("Return the most recent workflow run"),
		),
		s.handleLatest,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"list_scenarios",
			mcp.WithDescription("List the built-in crisis scenarios"),
		),
		s.handleListScenarios,
	)
}

func (s *Server) handleRun(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok && request.Params.Arguments != nil {
		return mcp.NewToolResultError("Invalid arguments type"), nil
	}

	key := simulation.DefaultScenario
	if raw, present := args["scenario"]; present {
		v, ok := raw.(string)
		if !ok {
			return mcp.NewToolResultError("Parameter scenario must be a string"), nil
		}
		if v != "" {
			key = v
		}
	}
	scenario, ok := s.scenarios.Get(key)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("Unknown scenario: %s", key)), nil
	}

	signals := scenario.Signals()
	if raw, present := args["aqi"]; present {
		aqi, ok := raw.(float64)
		if !ok || aqi < 0 {
			return mcp.NewToolResultError("Parameter aqi must be a non-negative number"), nil
		}
		signals.AQI = int(aqi)
	}

	res, err := s.runs.Trigger(ctx, signals)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Workflow run failed: %v", err)), nil
	}
	return jsonResult(notify.FromRun(res))
}

func (s *Server) handleLatest(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res := s.runs.Latest()
	if res == nil {
		return mcp.NewToolResultText("No workflow run has completed yet"), nil
	}
	return jsonResult(notify.FromRun(res))
}

func (s *Server) handleListScenarios(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.scenarios.List())
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

// MountHTTPHandlers serves the MCP server over SSE under /mcp.
func MountHTTPHandlers(mux *http.ServeMux, mcpServer *server.MCPServer) {
	sseServer := server.NewSSEServer(mcpServer, server.WithStaticBasePath("/mcp"))

	mux.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			sseServer.ServeHTTP(w, r)
			return
		}
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	})

	mux.HandleFunc("/mcp/sse", sseServer.ServeHTTP)
	mux.HandleFunc("/mcp/message", sseServer.ServeHTTP)
}
