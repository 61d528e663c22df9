// Package service provides the business logic layer for carsim.
//
// SimulationService is the interface every transport (HTTP, WebSocket, MCP)
// talks to. It resolves scenarios through a ScenarioManager, stores live
// simulations through a SessionManager and serializes access to each
// session's simulation.
//
// Usage:
//
//	sessions := session.NewManager()
//	scenarios, err := config.NewManager("scenarios", settings.GridLimits())
//	svc := service.NewSimulationService(sessions, scenarios,
//		service.WithLimits(settings.GridLimits()),
//		service.WithLogger(logger),
//	)
//
//	info, err := svc.CreateSession(ctx, service.CreateSessionRequest{ScenarioID: "crossing"})
//	step, err := svc.Step(ctx, info.ID)
//	run, err := svc.Run(ctx, info.ID)
//	fmt.Println(run.Output)
//
// Sessions are independent: stepping one never blocks another.
package service
