// Package api provides the HTTP REST API for carsim.
//
// Endpoints:
//
// Sessions:
//   - POST /api/sessions - Create a session ({"scenario_id": "..."} or {"scenario": "<text>"})
//   - GET /api/sessions - List sessions (?sort=created|accessed&order=asc|desc&limit=N)
//   - GET /api/sessions/{id} - Get a session with its current grid state
//   - DELETE /api/sessions/{id} - Delete a session
//
// Simulation:
//   - GET /api/sessions/{id}/state - Current grid state
//   - POST /api/sessions/{id}/step - Advance one step
//   - POST /api/sessions/{id}/run - Run to the first collision or until all programs finish
//   - POST /api/sessions/{id}/reset - Rebuild the simulation from its scenario
//
// Scenarios:
//   - GET /api/scenarios - List stored scenarios
//   - GET /api/scenarios/{name} - Get a scenario with its text rendering
//   - POST /api/scenarios - Store a scenario ({"name", "scenario"} or {"name", "width", "height", "cars"})
//
// Other:
//   - GET /api/health - Liveness probe
//   - GET /ws?session={id} - WebSocket stream of the session's steps
//
// Errors are returned as {"error": "message"}. Invalid input is 400,
// unknown sessions or scenarios are 404, and stepping a finished simulation
// is 409.
package api
