package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/wricardo/carsim/sim/engine"
	"github.com/wricardo/carsim/sim/scenario"
)

// ObserverFactory returns an extra observer for the session being created
type ObserverFactory func(sessionID string) engine.Observer

// Option configures the simulation service
type Option func(*simulationServiceImpl)

// WithLimits sets the grid limits every new simulation is checked against
func WithLimits(limits engine.GridLimits) Option {
	return func(s *simulationServiceImpl) {
		s.limits = limits
	}
}

// WithLogger sets the service logger. Step traces go to it at debug level.
func WithLogger(logger *log.Logger) Option {
	return func(s *simulationServiceImpl) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithObserverFactory attaches an observer to every simulation created
func WithObserverFactory(factory ObserverFactory) Option {
	return func(s *simulationServiceImpl) {
		s.observers = factory
	}
}

// WithStepDelay paces Run so subscribers can follow each step
func WithStepDelay(delay time.Duration) Option {
	return func(s *simulationServiceImpl) {
		s.stepDelay = delay
	}
}

// simulationServiceImpl implements the SimulationService interface
type simulationServiceImpl struct {
	sessions  SessionManager
	scenarios ScenarioManager
	limits    engine.GridLimits
	logger    *log.Logger
	observers ObserverFactory
	stepDelay time.Duration
}

// NewSimulationService creates a new simulation service instance
func NewSimulationService(sessions SessionManager, scenarios ScenarioManager, opts ...Option) SimulationService {
	s := &simulationServiceImpl{
		sessions:  sessions,
		scenarios: scenarios,
		limits:    engine.DefaultGridLimits(),
		logger:    log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateSession builds a simulation from a stored or inline scenario
func (s *simulationServiceImpl) CreateSession(ctx context.Context, req CreateSessionRequest) (*SessionInfo, error) {
	sc, err := s.resolveScenario(req)
	if err != nil {
		return nil, err
	}

	id := s.sessions.NewID()
	sim, err := sc.Simulation(s.gridOptions(id)...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	sess, err := s.sessions.Create(id, sc, sim)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.logger.Info("session created", "session", sess.ID, "scenario", sc.Name, "cars", len(sc.Cars), "max_step", sim.MaxStep())

	sess.Lock()
	defer sess.Unlock()
	return sessionInfo(sess), nil
}

func (s *simulationServiceImpl) resolveScenario(req CreateSessionRequest) (*scenario.Scenario, error) {
	switch {
	case req.ScenarioID != "" && req.Scenario != "":
		return nil, fmt.Errorf("%w: set either scenario_id or scenario, not both", ErrInvalidRequest)

	case req.ScenarioID != "":
		sc, err := s.scenarios.LoadScenario(req.ScenarioID)
		if err == nil {
			return sc, nil
		}
		// Point the caller at what exists
		available, listErr := s.scenarios.ListScenarios()
		if listErr == nil && len(available) > 0 {
			ids := make([]string, 0, len(available))
			for _, info := range available {
				ids = append(ids, info.ScenarioID)
			}
			return nil, fmt.Errorf("%w: %w. Available scenarios: %s", ErrInvalidRequest, err, strings.Join(ids, ", "))
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)

	case req.Scenario != "":
		sc, err := scenario.ParseString(req.Scenario)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		}
		sc.Name = "inline"
		return sc, nil

	default:
		return nil, fmt.Errorf("%w: scenario_id or scenario is required", ErrInvalidRequest)
	}
}

func (s *simulationServiceImpl) gridOptions(sessionID string) []engine.GridOption {
	observers := engine.MultiObserver{engine.NewLogObserver(s.logger.With("session", sessionID))}
	if s.observers != nil {
		if extra := s.observers(sessionID); extra != nil {
			observers = append(observers, extra)
		}
	}
	return []engine.GridOption{
		engine.WithLimits(s.limits),
		engine.WithObserver(observers),
	}
}

// GetSession retrieves session information
func (s *simulationServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	sess.Lock()
	defer sess.Unlock()
	return sessionInfo(sess), nil
}

// ListSessions returns all active sessions
func (s *simulationServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))

	for _, sess := range sessions {
		sess.Lock()
		result = append(result, sessionInfo(sess))
		sess.Unlock()
	}

	return result, nil
}

// DeleteSession removes a session
func (s *simulationServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	if err := s.sessions.Delete(sessionID); err != nil {
		return fmt.Errorf("session %s: %w", sessionID, err)
	}
	s.logger.Info("session deleted", "session", sessionID)
	return nil
}

// Step advances a session by a single step
func (s *simulationServiceImpl) Step(ctx context.Context, sessionID string) (*StepResponse, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	sess.Lock()
	defer sess.Unlock()

	result, err := sess.Simulation.Step()
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", sess.ID, err)
	}

	return &StepResponse{
		Step:      result.Step,
		Collision: result.Collision,
		State:     NewGridState(sess.Simulation),
		Message:   stepMessage(result, sess.Simulation.State()),
	}, nil
}

// Run steps a session until the first collision or until every program is
// exhausted. With a step delay configured the run can be cancelled through
// ctx between steps; the steps already taken stay applied.
func (s *simulationServiceImpl) Run(ctx context.Context, sessionID string) (*RunResponse, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	sess.Lock()
	defer sess.Unlock()

	sim := sess.Simulation
	start := sim.Grid().CurrentStep()

	var outcome engine.Outcome
	if s.stepDelay <= 0 {
		outcome = sim.Run()
	} else {
		for !sim.State().IsTerminal() {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(s.stepDelay):
			}
			if _, err := sim.Step(); err != nil {
				return nil, fmt.Errorf("session %s: %w", sess.ID, err)
			}
		}
		outcome = sim.Outcome()
	}

	s.logger.Info("run finished", "session", sess.ID, "state", outcome.State, "steps", outcome.StepsRun)

	return &RunResponse{
		Outcome:       outcome,
		Output:        outcome.String(),
		StepsExecuted: sim.Grid().CurrentStep() - start,
		State:         NewGridState(sim),
	}, nil
}

// Reset rebuilds a session's simulation from its scenario
func (s *simulationServiceImpl) Reset(ctx context.Context, sessionID string) (*GridState, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	sess.Lock()
	defer sess.Unlock()

	if err := sess.Simulation.Reset(); err != nil {
		return nil, fmt.Errorf("failed to reset session %s: %w", sess.ID, err)
	}
	return NewGridState(sess.Simulation), nil
}

// GetState returns the current grid snapshot of a session
func (s *simulationServiceImpl) GetState(ctx context.Context, sessionID string) (*GridState, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	sess.Lock()
	defer sess.Unlock()
	return NewGridState(sess.Simulation), nil
}

// ListScenarios returns information about all stored scenarios
func (s *simulationServiceImpl) ListScenarios(ctx context.Context) ([]*ScenarioInfo, error) {
	return s.scenarios.ListScenarios()
}

// LoadScenario loads a specific scenario
func (s *simulationServiceImpl) LoadScenario(ctx context.Context, name string) (*scenario.Scenario, error) {
	return s.scenarios.LoadScenario(name)
}

// SaveScenario stores a scenario
func (s *simulationServiceImpl) SaveScenario(ctx context.Context, name string, sc *scenario.Scenario) error {
	return s.scenarios.SaveScenario(name, sc)
}

func (s *simulationServiceImpl) session(sessionID string) (*Session, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, err)
	}
	if err := s.sessions.UpdateLastAccessed(sessionID); err != nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, err)
	}
	return sess, nil
}

// sessionInfo expects the session to be locked
func sessionInfo(sess *Session) *SessionInfo {
	name := ""
	if sess.Scenario != nil {
		name = sess.Scenario.Name
	}
	return &SessionInfo{
		ID:             sess.ID,
		ScenarioName:   name,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessed(),
		State:          NewGridState(sess.Simulation),
	}
}

func stepMessage(result engine.StepResult, state engine.RunState) string {
	if c := result.Collision; c != nil {
		return fmt.Sprintf("step %d: collision of %s at (%d, %d)", result.Step, strings.Join(c.CarIDs, " "), c.Position.X, c.Position.Y)
	}
	if state == engine.Exhausted {
		return fmt.Sprintf("step %d: no collision, all programs finished", result.Step)
	}
	return fmt.Sprintf("step %d: no collision", result.Step)
}
