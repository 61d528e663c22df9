package engine

import "errors"

const (
	// Default grid limits, used when no settings override them
	DefaultMaxGridWidth  = 20
	DefaultMaxGridHeight = 20
)

var (
	ErrInvalidGridSize     = errors.New("invalid grid size")
	ErrDuplicateCar        = errors.New("car already exists")
	ErrCarNotFound         = errors.New("car does not exist")
	ErrEmptyCarID          = errors.New("car id must not be empty")
	ErrOutOfBounds         = errors.New("position out of bounds")
	ErrPositionOccupied    = errors.New("position already occupied")
	ErrGridFull            = errors.New("cannot add more cars than the grid can hold")
	ErrInvalidDirection    = errors.New("invalid direction")
	ErrInvalidCommand      = errors.New("invalid command")
	ErrInvalidInitialState = errors.New("invalid initial state")
	ErrSimulationFinished  = errors.New("simulation already finished")
)

// Position represents x,y coordinates on the grid. Y grows to the north.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// GridLimits bounds the dimensions a grid may be created with
type GridLimits struct {
	MaxWidth  int `json:"max_width"`
	MaxHeight int `json:"max_height"`
}

// DefaultGridLimits returns the 20x20 limits
func DefaultGridLimits() GridLimits {
	return GridLimits{MaxWidth: DefaultMaxGridWidth, MaxHeight: DefaultMaxGridHeight}
}

// CarSpec describes a car as handed over by the input layer.
// InitialState has the form "x y facing", e.g. "1 2 N".
type CarSpec struct {
	ID           string `json:"id"`
	InitialState string `json:"initial_state"`
	Commands     string `json:"commands"`
}

// Collision records cars sharing a cell right after a step
type Collision struct {
	CarIDs   []string `json:"car_ids"`
	Position Position `json:"position"`
	Step     int      `json:"step"`
}

// StepResult is the outcome of a single grid step. Collision is nil when
// no two cars share a cell.
type StepResult struct {
	Step      int        `json:"step"`
	Collision *Collision `json:"collision,omitempty"`
}

// HasCollision reports whether the step ended with a collision
func (r StepResult) HasCollision() bool {
	return r.Collision != nil
}
