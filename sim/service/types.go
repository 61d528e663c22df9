package service

import (
	"time"

	"github.com/wricardo/carsim/sim/engine"
)

// CreateSessionRequest names a stored scenario or carries one inline.
// Exactly one of the two must be set.
type CreateSessionRequest struct {
	ScenarioID string `json:"scenario_id,omitempty"`
	Scenario   string `json:"scenario,omitempty"` // scenario text format
}

// SessionInfo provides information about a simulation session
type SessionInfo struct {
	ID             string     `json:"id"`
	ScenarioName   string     `json:"scenario_name"`
	CreatedAt      time.Time  `json:"created_at"`
	LastAccessedAt time.Time  `json:"last_accessed_at"`
	State          *GridState `json:"state"`
}

// CarView is the read-only view of one car for renderers
type CarView struct {
	ID        string           `json:"id"`
	X         int              `json:"x"`
	Y         int              `json:"y"`
	Facing    engine.Direction `json:"facing"`
	Program   string           `json:"program"`
	Remaining int              `json:"remaining"`
}

// GridState is a snapshot of a simulation between steps
type GridState struct {
	Width       int               `json:"width"`
	Height      int               `json:"height"`
	CurrentStep int               `json:"current_step"`
	MaxStep     int               `json:"max_step"`
	RunState    engine.RunState   `json:"run_state"`
	Cars        []CarView         `json:"cars"`
	Collision   *engine.Collision `json:"collision,omitempty"`
}

// StepResponse is the result of advancing one step
type StepResponse struct {
	Step      int               `json:"step"`
	Collision *engine.Collision `json:"collision,omitempty"`
	State     *GridState        `json:"state"`
	Message   string            `json:"message"`
}

// RunResponse is the result of running to a terminal state
type RunResponse struct {
	Outcome       engine.Outcome `json:"outcome"`
	Output        string         `json:"output"` // command-line rendering of the outcome
	StepsExecuted int            `json:"steps_executed"`
	State         *GridState     `json:"state"`
}

// ScenarioInfo provides information about a stored scenario
type ScenarioInfo struct {
	Filename   string `json:"filename"`
	ScenarioID string `json:"scenario_id"` // The identifier to use for session creation
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	Cars       int    `json:"cars"`
	MaxStep    int    `json:"max_step"`
}

// NewGridState snapshots sim
func NewGridState(sim *engine.Simulation) *GridState {
	grid := sim.Grid()
	snapshot := grid.Snapshot()

	cars := make([]CarView, 0, len(snapshot))
	for _, c := range snapshot {
		cars = append(cars, CarView{
			ID:        c.ID,
			X:         c.Position.X,
			Y:         c.Position.Y,
			Facing:    c.Facing,
			Program:   c.Program,
			Remaining: c.Remaining,
		})
	}

	return &GridState{
		Width:       grid.Width(),
		Height:      grid.Height(),
		CurrentStep: grid.CurrentStep(),
		MaxStep:     sim.MaxStep(),
		RunState:    sim.State(),
		Cars:        cars,
		Collision:   sim.Outcome().Collision,
	}
}
