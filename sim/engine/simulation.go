package engine

import (
	"fmt"
	"strconv"
	"strings"
)

// RunState is the position of a Simulation in its run state machine
type RunState int

const (
	Running RunState = iota
	Collided
	Exhausted
)

func (s RunState) String() string {
	switch s {
	case Running:
		return "running"
	case Collided:
		return "collided"
	case Exhausted:
		return "exhausted"
	default:
		return fmt.Sprintf("RunState(%d)", int(s))
	}
}

// MarshalText encodes the state name
func (s RunState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name produced by MarshalText
func (s *RunState) UnmarshalText(text []byte) error {
	switch string(text) {
	case "running":
		*s = Running
	case "collided":
		*s = Collided
	case "exhausted":
		*s = Exhausted
	default:
		return fmt.Errorf("unknown run state %q", text)
	}
	return nil
}

// IsTerminal reports whether no further steps will run
func (s RunState) IsTerminal() bool {
	return s == Collided || s == Exhausted
}

// Outcome is the terminal result of a run
type Outcome struct {
	State     RunState   `json:"state"`
	StepsRun  int        `json:"steps_run"`
	Collision *Collision `json:"collision,omitempty"`
}

// String renders the outcome the way the command line prints it: either
// "no collision" or the colliding ids, their cell and the 1-based step,
// one per line.
func (o Outcome) String() string {
	if o.Collision == nil {
		return "no collision"
	}
	return fmt.Sprintf("%s\n%d %d\n%d",
		strings.Join(o.Collision.CarIDs, " "),
		o.Collision.Position.X, o.Collision.Position.Y,
		o.Collision.Step)
}

// Simulation builds a grid from car specs and drives it until the first
// collision or until the longest program is exhausted
type Simulation struct {
	width   int
	height  int
	specs   []CarSpec
	opts    []GridOption
	grid    *Grid
	maxStep int
	state   RunState
	last    *Collision
}

// NewSimulation creates the grid and places every car. Any invalid size,
// initial state or placement aborts construction.
func NewSimulation(width, height int, specs []CarSpec, opts ...GridOption) (*Simulation, error) {
	s := &Simulation{
		width:  width,
		height: height,
		specs:  append([]CarSpec(nil), specs...),
		opts:   opts,
	}
	if err := s.build(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Simulation) build() error {
	grid, err := NewGrid(s.width, s.height, s.opts...)
	if err != nil {
		return err
	}

	for i, spec := range s.specs {
		x, y, facing, err := ParseInitialState(spec.InitialState)
		if err != nil {
			return fmt.Errorf("car %d ('%s'): %w", i+1, spec.ID, err)
		}
		if err := grid.AddCar(spec.ID, x, y, facing, spec.Commands); err != nil {
			return fmt.Errorf("car %d ('%s'): %w", i+1, spec.ID, err)
		}
	}

	s.grid = grid
	s.maxStep = grid.MaxProgramLength()
	s.last = nil
	s.state = Running
	if s.maxStep == 0 {
		s.state = Exhausted
	}
	return nil
}

// ParseInitialState parses "x y facing" into its parts
func ParseInitialState(state string) (int, int, Direction, error) {
	parts := strings.Fields(state)
	if len(parts) != 3 {
		return 0, 0, North, fmt.Errorf("%w: %q must have exactly 3 parts: x y direction", ErrInvalidInitialState, state)
	}
	x, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, North, fmt.Errorf("%w: x %q is not an integer", ErrInvalidInitialState, parts[0])
	}
	y, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, North, fmt.Errorf("%w: y %q is not an integer", ErrInvalidInitialState, parts[1])
	}
	facing, err := ParseDirection(parts[2])
	if err != nil {
		return 0, 0, North, err
	}
	return x, y, facing, nil
}

// Grid exposes the underlying grid for read access between steps
func (s *Simulation) Grid() *Grid {
	return s.grid
}

// MaxStep returns the length of the longest program
func (s *Simulation) MaxStep() int {
	return s.maxStep
}

// State returns the current run state
func (s *Simulation) State() RunState {
	return s.state
}

// Specs returns the car specs the simulation was built from
func (s *Simulation) Specs() []CarSpec {
	return append([]CarSpec(nil), s.specs...)
}

// Step runs a single grid step. It fails with ErrSimulationFinished once
// the run reached a terminal state.
func (s *Simulation) Step() (StepResult, error) {
	if s.state.IsTerminal() {
		return StepResult{Step: s.grid.CurrentStep()}, ErrSimulationFinished
	}

	result := s.grid.Step()
	switch {
	case result.Collision != nil:
		s.state = Collided
		s.last = result.Collision
	case s.grid.CurrentStep() >= s.maxStep:
		s.state = Exhausted
	}
	return result, nil
}

// Run steps until the first collision or until every program is done.
// Steps already taken through Step count towards the run.
func (s *Simulation) Run() Outcome {
	for !s.state.IsTerminal() {
		if _, err := s.Step(); err != nil {
			break
		}
	}
	return s.Outcome()
}

// Outcome returns the result so far. Before a terminal state it reports the
// steps run and no collision.
func (s *Simulation) Outcome() Outcome {
	return Outcome{
		State:     s.state,
		StepsRun:  s.grid.CurrentStep(),
		Collision: s.last,
	}
}

// Reset rebuilds the grid from the original specs
func (s *Simulation) Reset() error {
	return s.build()
}
