package engine

// Car is one simulated agent: a position, a facing and a fixed program.
// Bounds and collisions are the grid's concern; a car only knows how to
// compute and apply its own commands.
type Car struct {
	id       string
	pos      Position
	facing   Direction
	program  []Command
	movement Movement
}

// NewCar creates a car with an already parsed program
func NewCar(id string, x, y int, facing Direction, program []Command, movement Movement) *Car {
	return &Car{
		id:       id,
		pos:      Position{X: x, Y: y},
		facing:   facing,
		program:  program,
		movement: movement,
	}
}

// ID returns the car identifier
func (c *Car) ID() string {
	return c.id
}

// Position returns the current cell
func (c *Car) Position() Position {
	return c.pos
}

// Facing returns the current direction
func (c *Car) Facing() Direction {
	return c.facing
}

// Program returns a copy of the bound command program
func (c *Car) Program() []Command {
	out := make([]Command, len(c.program))
	copy(out, c.program)
	return out
}

// ProgramLength returns the number of commands in the program
func (c *Car) ProgramLength() int {
	return len(c.program)
}

// NextCommand returns the command at the 0-based step index. The second
// result is false once the program is exhausted.
func (c *Car) NextCommand(step int) (Command, bool) {
	if step < 0 || step >= len(c.program) {
		return Forward, false
	}
	return c.program[step], true
}

// Preview computes the state after cmd without mutating the car
func (c *Car) Preview(cmd Command) (Position, Direction, error) {
	strategy, err := c.movement.strategyFor(cmd)
	if err != nil {
		return c.pos, c.facing, err
	}
	x, y, facing, err := strategy.Execute(c.pos.X, c.pos.Y, c.facing, cmd)
	if err != nil {
		return c.pos, c.facing, err
	}
	return Position{X: x, Y: y}, facing, nil
}

// Apply executes cmd, updating position and facing
func (c *Car) Apply(cmd Command) error {
	pos, facing, err := c.Preview(cmd)
	if err != nil {
		return err
	}
	c.pos = pos
	c.facing = facing
	return nil
}

// commit stores a state computed earlier by Preview
func (c *Car) commit(pos Position, facing Direction) {
	c.pos = pos
	c.facing = facing
}
