package engine

import "fmt"

// CarState is a read-only view of a car, used for rendering and diagnostics
type CarState struct {
	ID        string    `json:"id"`
	Position  Position  `json:"position"`
	Facing    Direction `json:"facing"`
	Program   string    `json:"program"`
	Remaining int       `json:"remaining"`
}

// Grid owns the cars of one simulation and advances them in lock-step
type Grid struct {
	width       int
	height      int
	limits      GridLimits
	order       []string
	cars        map[string]*Car
	currentStep int
	observer    Observer
	parser      CommandParser
	movement    Movement
}

// GridOption customizes a Grid at construction time
type GridOption func(*Grid)

// WithLimits overrides the default 20x20 maximum dimensions
func WithLimits(limits GridLimits) GridOption {
	return func(g *Grid) {
		g.limits = limits
	}
}

// WithObserver installs an observer for step diagnostics
func WithObserver(observer Observer) GridOption {
	return func(g *Grid) {
		if observer != nil {
			g.observer = observer
		}
	}
}

// WithParser replaces the lenient command parser
func WithParser(parser CommandParser) GridOption {
	return func(g *Grid) {
		if parser != nil {
			g.parser = parser
		}
	}
}

// WithMovement replaces the strategies cars dispatch to. A nil strategy
// keeps the current one for its command kind, so a single strategy can be
// overridden alone. A strategy that fails for a command of its own kind
// breaks the step protocol and makes Step panic.
func WithMovement(movement Movement) GridOption {
	return func(g *Grid) {
		if movement.Forward != nil {
			g.movement.Forward = movement.Forward
		}
		if movement.Turn != nil {
			g.movement.Turn = movement.Turn
		}
	}
}

// NewGrid creates an empty grid of width x height cells
func NewGrid(width, height int, opts ...GridOption) (*Grid, error) {
	g := &Grid{
		width:    width,
		height:   height,
		limits:   DefaultGridLimits(),
		cars:     make(map[string]*Car),
		observer: NopObserver{},
		parser:   SimpleParser{},
		movement: DefaultMovement(),
	}
	for _, opt := range opts {
		opt(g)
	}

	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: dimensions must be positive, got %dx%d", ErrInvalidGridSize, width, height)
	}
	if width > g.limits.MaxWidth {
		return nil, fmt.Errorf("%w: width %d exceeds maximum %d", ErrInvalidGridSize, width, g.limits.MaxWidth)
	}
	if height > g.limits.MaxHeight {
		return nil, fmt.Errorf("%w: height %d exceeds maximum %d", ErrInvalidGridSize, height, g.limits.MaxHeight)
	}

	return g, nil
}

// Width returns the number of columns
func (g *Grid) Width() int {
	return g.width
}

// Height returns the number of rows
func (g *Grid) Height() int {
	return g.height
}

// CurrentStep returns the number of completed steps
func (g *Grid) CurrentStep() int {
	return g.currentStep
}

// Len returns the number of cars on the grid
func (g *Grid) Len() int {
	return len(g.order)
}

// IsWithinBounds reports whether (x, y) lies on the grid
func (g *Grid) IsWithinBounds(x, y int) bool {
	return x >= 0 && x < g.width && y >= 0 && y < g.height
}

// AddCar validates and places a new car. On failure the grid is unchanged.
func (g *Grid) AddCar(id string, x, y int, facing Direction, rawCommands string) error {
	if id == "" {
		return ErrEmptyCarID
	}
	if _, exists := g.cars[id]; exists {
		return fmt.Errorf("%w: car with id '%s' already exists", ErrDuplicateCar, id)
	}
	if !facing.IsValid() {
		return fmt.Errorf("%w: car '%s' has facing %d", ErrInvalidDirection, id, int(facing))
	}
	if len(g.order) >= g.width*g.height {
		return fmt.Errorf("%w: grid %dx%d already holds %d cars", ErrGridFull, g.width, g.height, len(g.order))
	}
	if !g.IsWithinBounds(x, y) {
		return fmt.Errorf("%w: car '%s' position (%d, %d) is outside grid %dx%d", ErrOutOfBounds, id, x, y, g.width, g.height)
	}
	if occupant := g.carAt(Position{X: x, Y: y}); occupant != nil {
		return fmt.Errorf("%w: position (%d, %d) is already occupied by car %s", ErrPositionOccupied, x, y, occupant.ID())
	}

	program := g.parser.Parse(rawCommands)
	g.cars[id] = NewCar(id, x, y, facing, program, g.movement)
	g.order = append(g.order, id)
	return nil
}

// RemoveCar deletes a car. It is an administrative operation and not part
// of the step protocol.
func (g *Grid) RemoveCar(id string) error {
	if _, exists := g.cars[id]; !exists {
		return fmt.Errorf("%w: car with id '%s' does not exist", ErrCarNotFound, id)
	}
	delete(g.cars, id)
	for i, existing := range g.order {
		if existing == id {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}
	return nil
}

// Car returns the car with the given id
func (g *Grid) Car(id string) (*Car, bool) {
	car, ok := g.cars[id]
	return car, ok
}

// Cars returns the cars in insertion order
func (g *Grid) Cars() []*Car {
	out := make([]*Car, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.cars[id])
	}
	return out
}

// Snapshot returns the state of every car in insertion order
func (g *Grid) Snapshot() []CarState {
	out := make([]CarState, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.stateOf(g.cars[id]))
	}
	return out
}

// MaxProgramLength returns the longest program among the cars
func (g *Grid) MaxProgramLength() int {
	longest := 0
	for _, car := range g.cars {
		if n := car.ProgramLength(); n > longest {
			longest = n
		}
	}
	return longest
}

// pendingMove is a move computed from start-of-step state, not yet committed
type pendingMove struct {
	car    *Car
	cmd    Command
	before CarState
	pos    Position
	facing Direction
}

// Step advances every car by one command. All moves are computed from the
// state at the start of the step and committed together, so no car sees
// another car's move from the same step. Moves leaving the grid are
// dropped. Collision detection runs over the resting positions afterwards.
func (g *Grid) Step() StepResult {
	step := g.currentStep + 1
	g.observer.StepStarted(step)

	pending := make([]pendingMove, 0, len(g.order))
	for _, id := range g.order {
		car := g.cars[id]
		cmd, ok := car.NextCommand(g.currentStep)
		if !ok {
			g.observer.CarIdle(step, g.stateOf(car))
			continue
		}

		pos, facing, err := car.Preview(cmd)
		if err != nil {
			panic(fmt.Errorf("car %s at step %d: %w", car.ID(), step, err))
		}
		if !g.IsWithinBounds(pos.X, pos.Y) {
			g.observer.MoveBlocked(step, cmd, g.stateOf(car), pos)
			continue
		}

		pending = append(pending, pendingMove{car: car, cmd: cmd, before: g.stateOf(car), pos: pos, facing: facing})
	}

	for _, move := range pending {
		move.car.commit(move.pos, move.facing)
	}
	g.currentStep++

	for _, move := range pending {
		g.observer.CarMoved(step, move.cmd, move.before, g.stateOf(move.car))
	}

	result := g.CheckCollisions()
	if result.Collision != nil {
		g.observer.CollisionDetected(*result.Collision)
	}
	g.observer.StepFinished(result, g.Snapshot())

	return result
}

// CheckCollisions groups cars by cell and reports the first shared cell,
// walking cars in insertion order. Only resting positions are compared:
// two cars swapping cells within one step do not collide.
func (g *Grid) CheckCollisions() StepResult {
	result := StepResult{Step: g.currentStep}

	groups := make(map[Position][]string, len(g.order))
	for _, id := range g.order {
		pos := g.cars[id].Position()
		groups[pos] = append(groups[pos], id)
	}

	for _, id := range g.order {
		pos := g.cars[id].Position()
		if ids := groups[pos]; len(ids) >= 2 {
			result.Collision = &Collision{
				CarIDs:   ids,
				Position: pos,
				Step:     g.currentStep,
			}
			return result
		}
	}

	return result
}

// carAt returns the car occupying pos, if any
func (g *Grid) carAt(pos Position) *Car {
	for _, id := range g.order {
		if car := g.cars[id]; car.Position() == pos {
			return car
		}
	}
	return nil
}

func (g *Grid) stateOf(car *Car) CarState {
	remaining := car.ProgramLength() - g.currentStep
	if remaining < 0 {
		remaining = 0
	}
	return CarState{
		ID:        car.ID(),
		Position:  car.Position(),
		Facing:    car.Facing(),
		Program:   FormatCommands(car.program),
		Remaining: remaining,
	}
}
