// Package websocket streams simulation updates to browser clients.
//
// A central Hub owns every connection. Clients subscribe to one session
// with /ws?session=<id> and receive JSON messages:
//
//	{"session_id": "3f9a1c2e", "event": "state_update", "state": {...}}
//	{"session_id": "3f9a1c2e", "event": "step", "data": {"step": 4, "cars": [...]}}
//	{"session_id": "3f9a1c2e", "event": "collision", "data": {"car_ids": ["A", "B"], ...}}
//
// Hub.Observer adapts the hub to engine.Observer so every step a simulation
// takes is pushed as it happens, including steps taken during a paced run.
// Broadcasting never blocks the simulation: when the hub falls behind,
// messages are dropped and a warning is logged.
//
// Usage:
//
//	hub := websocket.NewHub(logger)
//	go hub.Run(ctx)
//
//	svc := service.NewSimulationService(sessions, scenarios,
//		service.WithObserverFactory(hub.Observer))
package websocket
