package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wricardo/carsim/sim/scenario"
	"github.com/wricardo/carsim/sim/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"carsim",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`carsim - MCP Interface

Simulates cars moving on a rectangular grid. Every car runs its own program
of F (forward), L (turn left) and R (turn right) commands, one command per
step, all cars at once. A simulation ends at the first collision or when
every program is exhausted.

AVAILABLE TOOLS:
- create_simulation: Start a session from a stored scenario or inline scenario text
- list_sessions: List active sessions
- simulation_state: Show the grid and every car of a session
- step: Advance one step
- run: Run until a collision or until all programs finish
- reset_simulation: Rebuild the session from its scenario
- list_scenarios: List stored scenarios
- simulation_instructions: Rules and the scenario text format`),
	)

	c.registerTools()
}

func sessionIDProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Session ID",
	}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_simulation",
		Description: "Create a simulation session from a stored scenario (scenario_id) or from scenario text (scenario). Exactly one must be given.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"scenario_id": map[string]interface{}{
					"type":        "string",
					"description": "Name of a stored scenario, see list_scenarios",
				},
				"scenario": map[string]interface{}{
					"type":        "string",
					"description": "Scenario in text format, see simulation_instructions",
				},
			},
		},
	}, c.handleCreateSimulation)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all active simulation sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "simulation_state",
		Description: "Get the current grid, car positions and run state of a session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleSimulationState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "step",
		Description: "Advance a simulation by one step",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleStep)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "run",
		Description: "Run a simulation to the first collision or until every program is exhausted",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleRun)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "reset_simulation",
		Description: "Reset a simulation to its initial car positions",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleReset)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_scenarios",
		Description: "List stored scenarios",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListScenarios)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "simulation_instructions",
		Description: "Get the movement rules, collision rules and the scenario text format",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleInstructions)
}

// GetMCPServer returns the underlying MCP server
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// apiCall makes an HTTP request to the REST API
func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

func stringArg(request mcp.CallToolRequest, name string) string {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return ""
	}
	value, _ := args[name].(string)
	return strings.TrimSpace(value)
}

func sessionPath(sessionID, suffix string) string {
	return "/api/sessions/" + url.PathEscape(sessionID) + suffix
}

// Tool handlers

func (c *Client) handleCreateSimulation(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	body := service.CreateSessionRequest{
		ScenarioID: stringArg(request, "scenario_id"),
		Scenario:   stringArg(request, "scenario"),
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "POST", "/api/sessions", body, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}

	if err := c.apiCall(ctx, "GET", "/api/sessions", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var result strings.Builder
	fmt.Fprintf(&result, "Active Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		status := "unknown"
		if s.State != nil {
			status = fmt.Sprintf("%s, step %d/%d", s.State.RunState, s.State.CurrentStep, s.State.MaxStep)
		}
		fmt.Fprintf(&result, "- %s (Scenario: %s, %s, Created: %s)\n",
			s.ID, s.ScenarioName, status, s.CreatedAt.Format("15:04:05"))
	}

	return mcp.NewToolResultText(result.String()), nil
}

func (c *Client) handleSimulationState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := stringArg(request, "session_id")
	if sessionID == "" {
		return mcp.NewToolResultError("session_id is required"), nil
	}

	var state service.GridState
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, "/state"), nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatGridState(&state)), nil
}

func (c *Client) handleStep(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := stringArg(request, "session_id")
	if sessionID == "" {
		return mcp.NewToolResultError("session_id is required"), nil
	}

	var result service.StepResponse
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/step"), nil, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatStepResult(&result)), nil
}

func (c *Client) handleRun(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := stringArg(request, "session_id")
	if sessionID == "" {
		return mcp.NewToolResultError("session_id is required"), nil
	}

	var result service.RunResponse
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/run"), nil, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatRunResult(&result)), nil
}

func (c *Client) handleReset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := stringArg(request, "session_id")
	if sessionID == "" {
		return mcp.NewToolResultError("session_id is required"), nil
	}

	var response struct {
		Message string             `json:"message"`
		State   *service.GridState `json:"state"`
	}
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/reset"), nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(response.Message + "\n\n" + formatGridState(response.State)), nil
}

func (c *Client) handleListScenarios(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var scenarios []service.ScenarioInfo
	if err := c.apiCall(ctx, "GET", "/api/scenarios", nil, &scenarios); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if len(scenarios) == 0 {
		return mcp.NewToolResultText("No stored scenarios. Pass scenario text to create_simulation instead."), nil
	}

	var result strings.Builder
	result.WriteString("Available Scenarios:\n\n")
	for _, s := range scenarios {
		fmt.Fprintf(&result, "- %s: %dx%d grid, %d cars, up to %d steps\n",
			s.ScenarioID, s.Width, s.Height, s.Cars, s.MaxStep)
	}

	return mcp.NewToolResultText(result.String()), nil
}

func (c *Client) handleInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(instructions), nil
}

const instructions = `# carsim Rules

## Grid
- Coordinates are (x, y) with (0, 0) in the south-west corner
- x grows to the east, y grows to the north
- A grid holds at most width*height cars and never more than the configured limits

## Commands
- F: move one cell forward in the facing direction
- L: turn 90 degrees left in place
- R: turn 90 degrees right in place

## Steps
- Every car executes command N of its program at step N
- Cars whose program is exhausted stay where they are
- A move that would leave the grid is skipped; the car keeps its position and facing
- All moves are computed first and applied together, so two cars can swap cells

## Collisions
- A collision is two or more cars resting on the same cell after a step
- The simulation stops at the first collision and reports the car ids,
  the cell and the 1-based step
- Without a collision it stops once the longest program is exhausted and
  reports "no collision"

## Scenario text
` + scenario.FormatHelp

// Formatting helpers

func formatSessionInfo(session *service.SessionInfo) string {
	return fmt.Sprintf("Session: %s\nScenario: %s\nCreated: %s\n\n%s",
		session.ID, session.ScenarioName,
		session.CreatedAt.Format("2006-01-02 15:04:05"),
		formatGridState(session.State))
}

// formatGridState renders the grid with north at the top. Single-character
// car ids are drawn in place; longer ids are drawn as '#'.
func formatGridState(state *service.GridState) string {
	if state == nil {
		return "No simulation state available"
	}

	var result strings.Builder
	fmt.Fprintf(&result, "Grid: %dx%d | Step: %d/%d | State: %s\n\n",
		state.Width, state.Height, state.CurrentStep, state.MaxStep, state.RunState)

	cells := make(map[[2]int]string, len(state.Cars))
	for _, car := range state.Cars {
		mark := "#"
		if len(car.ID) == 1 {
			mark = car.ID
		}
		cells[[2]int{car.X, car.Y}] = mark
	}
	if state.Collision != nil {
		cells[[2]int{state.Collision.Position.X, state.Collision.Position.Y}] = "*"
	}

	for y := state.Height - 1; y >= 0; y-- {
		fmt.Fprintf(&result, "%3d ", y)
		for x := 0; x < state.Width; x++ {
			if mark, ok := cells[[2]int{x, y}]; ok {
				result.WriteString(mark)
			} else {
				result.WriteString(".")
			}
		}
		result.WriteString("\n")
	}

	result.WriteString("\nCars:\n")
	for _, car := range state.Cars {
		remaining := "finished"
		if car.Remaining > 0 {
			remaining = fmt.Sprintf("%d commands left", car.Remaining)
		}
		fmt.Fprintf(&result, "- %s at (%d,%d) facing %s, %s\n",
			car.ID, car.X, car.Y, car.Facing.Letter(), remaining)
	}

	if state.Collision != nil {
		fmt.Fprintf(&result, "\nCOLLISION: %s at (%d,%d) in step %d\n",
			strings.Join(state.Collision.CarIDs, " "),
			state.Collision.Position.X, state.Collision.Position.Y, state.Collision.Step)
	}

	return result.String()
}

func formatStepResult(result *service.StepResponse) string {
	return result.Message + "\n\n" + formatGridState(result.State)
}

func formatRunResult(result *service.RunResponse) string {
	return fmt.Sprintf("Steps executed: %d\n\nResult:\n%s\n\n%s",
		result.StepsExecuted, result.Output, formatGridState(result.State))
}
