package engine

import "fmt"

// MovementStrategy computes the state a car would reach by executing one
// command. Implementations are pure: they never touch a car or the grid.
type MovementStrategy interface {
	Execute(x, y int, facing Direction, cmd Command) (int, int, Direction, error)
}

// ForwardStrategy moves one cell along the current facing
type ForwardStrategy struct{}

// Execute implements MovementStrategy
func (ForwardStrategy) Execute(x, y int, facing Direction, cmd Command) (int, int, Direction, error) {
	if cmd != Forward {
		return x, y, facing, fmt.Errorf("%w: forward strategy cannot handle %s", ErrInvalidCommand, cmd)
	}
	dx, dy := facing.Displacement()
	return x + dx, y + dy, facing, nil
}

// TurnStrategy rotates 90 degrees in place
type TurnStrategy struct{}

// Execute implements MovementStrategy
func (TurnStrategy) Execute(x, y int, facing Direction, cmd Command) (int, int, Direction, error) {
	if !cmd.IsTurn() {
		return x, y, facing, fmt.Errorf("%w: turn strategy cannot handle %s", ErrInvalidCommand, cmd)
	}
	return x, y, Turn(facing, cmd), nil
}

// Movement bundles the strategy pair a car dispatches to
type Movement struct {
	Forward MovementStrategy
	Turn    MovementStrategy
}

// DefaultMovement returns the built-in forward and turn strategies
func DefaultMovement() Movement {
	return Movement{Forward: ForwardStrategy{}, Turn: TurnStrategy{}}
}

// strategyFor selects the strategy responsible for cmd
func (m Movement) strategyFor(cmd Command) (MovementStrategy, error) {
	switch cmd {
	case Forward:
		return m.Forward, nil
	case TurnLeft, TurnRight:
		return m.Turn, nil
	default:
		return nil, fmt.Errorf("%w: unknown command %d", ErrInvalidCommand, int(cmd))
	}
}
