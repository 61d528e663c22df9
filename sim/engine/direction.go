package engine

import (
	"fmt"
	"strings"
)

// Direction is the facing of a car. The set is closed.
type Direction int

const (
	North Direction = iota
	East
	South
	West
)

// Command is a single program instruction. The set is closed.
type Command int

const (
	Forward Command = iota
	TurnLeft
	TurnRight
)

// AllDirections returns every direction in clockwise order starting at North
func AllDirections() []Direction {
	return []Direction{North, East, South, West}
}

// IsValid reports whether d is one of the four cardinal directions
func (d Direction) IsValid() bool {
	return d >= North && d <= West
}

// Displacement returns the unit vector a forward move adds to the position
func (d Direction) Displacement() (dx, dy int) {
	switch d {
	case North:
		return 0, 1
	case South:
		return 0, -1
	case East:
		return 1, 0
	case West:
		return -1, 0
	}
	panic(fmt.Errorf("%w: %d", ErrInvalidDirection, int(d)))
}

// String returns the upper-case name, e.g. "NORTH"
func (d Direction) String() string {
	switch d {
	case North:
		return "NORTH"
	case East:
		return "EAST"
	case South:
		return "SOUTH"
	case West:
		return "WEST"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// Letter returns the single-letter code used by the input format
func (d Direction) Letter() string {
	switch d {
	case North:
		return "N"
	case East:
		return "E"
	case South:
		return "S"
	case West:
		return "W"
	default:
		return "?"
	}
}

// ParseDirection maps N/S/E/W (case-insensitive) to a Direction
func ParseDirection(s string) (Direction, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "N":
		return North, nil
	case "S":
		return South, nil
	case "E":
		return East, nil
	case "W":
		return West, nil
	}
	return North, fmt.Errorf("%w: %q (expected N, S, E or W)", ErrInvalidDirection, s)
}

// MarshalText encodes the direction as its letter code
func (d Direction) MarshalText() ([]byte, error) {
	if !d.IsValid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDirection, int(d))
	}
	return []byte(d.Letter()), nil
}

// UnmarshalText decodes a letter code (N/S/E/W, case-insensitive)
func (d *Direction) UnmarshalText(text []byte) error {
	parsed, err := ParseDirection(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// IsTurn reports whether c rotates the car instead of moving it
func (c Command) IsTurn() bool {
	return c == TurnLeft || c == TurnRight
}

// IsValid reports whether c is one of the three known commands
func (c Command) IsValid() bool {
	return c >= Forward && c <= TurnRight
}

// Letter returns the program character for c
func (c Command) Letter() string {
	switch c {
	case Forward:
		return "F"
	case TurnLeft:
		return "L"
	case TurnRight:
		return "R"
	default:
		return "?"
	}
}

func (c Command) String() string {
	switch c {
	case Forward:
		return "FORWARD"
	case TurnLeft:
		return "TURN_LEFT"
	case TurnRight:
		return "TURN_RIGHT"
	default:
		return fmt.Sprintf("Command(%d)", int(c))
	}
}

// turnTable maps (facing, turn) to the new facing. Indexed by Direction,
// then by TurnLeft/TurnRight.
var turnTable = [4][2]Direction{
	North: {West, East},
	East:  {North, South},
	South: {East, West},
	West:  {South, North},
}

// Turn rotates d by 90 degrees. Passing a non-turn command or an invalid
// direction is a programming error and panics.
func Turn(d Direction, c Command) Direction {
	if !d.IsValid() {
		panic(fmt.Errorf("%w: %d", ErrInvalidDirection, int(d)))
	}
	switch c {
	case TurnLeft:
		return turnTable[d][0]
	case TurnRight:
		return turnTable[d][1]
	}
	panic(fmt.Errorf("%w: cannot turn with %s", ErrInvalidCommand, c))
}
