// Package mcp exposes carsim to AI agents over the Model Context Protocol.
//
// Client is a thin proxy: every tool call is translated into a REST request
// against the api package and the JSON reply is rendered as text, including
// an ASCII drawing of the grid with north at the top.
//
// Tools:
//   - create_simulation: start a session from scenario_id or inline scenario text
//   - list_sessions: list active sessions
//   - simulation_state: grid, cars and run state of a session
//   - step: advance one step
//   - run: run to the first collision or until all programs finish
//   - reset_simulation: rebuild a session from its scenario
//   - list_scenarios: list stored scenarios
//   - simulation_instructions: rules and the scenario text format
//
// The same MCP server is served over stdio (carsim mcp) and over HTTP at
// /mcp by carsim serve.
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
package mcp
