package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/wricardo/carsim/sim/engine"
	"github.com/wricardo/carsim/sim/scenario"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidRequest  = errors.New("invalid request")
)

// SimulationService defines all simulation-related operations
type SimulationService interface {
	// Session Management
	CreateSession(ctx context.Context, req CreateSessionRequest) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Simulation Operations
	Step(ctx context.Context, sessionID string) (*StepResponse, error)
	Run(ctx context.Context, sessionID string) (*RunResponse, error)
	Reset(ctx context.Context, sessionID string) (*GridState, error)

	// Simulation State
	GetState(ctx context.Context, sessionID string) (*GridState, error)

	// Scenarios
	ListScenarios(ctx context.Context) ([]*ScenarioInfo, error)
	LoadScenario(ctx context.Context, name string) (*scenario.Scenario, error)
	SaveScenario(ctx context.Context, name string, s *scenario.Scenario) error
}

// SessionManager defines session storage operations
type SessionManager interface {
	NewID() string
	Create(id string, sc *scenario.Scenario, sim *engine.Simulation) (*Session, error)
	Get(id string) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
}

// ScenarioManager handles scenario loading
type ScenarioManager interface {
	LoadScenario(name string) (*scenario.Scenario, error)
	ListScenarios() ([]*ScenarioInfo, error)
	SaveScenario(name string, s *scenario.Scenario) error
}

// Session is one live simulation. The simulation itself is not safe for
// concurrent use; callers hold mu while touching it. Once the session is
// shared, LastAccessedAt is only read and written through LastAccessed and
// Touch.
type Session struct {
	ID             string
	Scenario       *scenario.Scenario
	Simulation     *engine.Simulation
	CreatedAt      time.Time
	LastAccessedAt time.Time

	mu       sync.Mutex
	accessMu sync.Mutex
}

// Touch records an access at t
func (s *Session) Touch(t time.Time) {
	s.accessMu.Lock()
	defer s.accessMu.Unlock()
	s.LastAccessedAt = t
}

// LastAccessed returns the time of the last access
func (s *Session) LastAccessed() time.Time {
	s.accessMu.Lock()
	defer s.accessMu.Unlock()
	return s.LastAccessedAt
}

// Lock serializes access to the session's simulation
func (s *Session) Lock() {
	s.mu.Lock()
}

// Unlock releases the session
func (s *Session) Unlock() {
	s.mu.Unlock()
}
