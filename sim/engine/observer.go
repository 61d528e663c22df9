package engine

import "github.com/charmbracelet/log"

// Observer receives step-level diagnostics from a Grid. Step numbers passed
// to observers are 1-based, matching the reported collision step.
type Observer interface {
	StepStarted(step int)
	CarIdle(step int, car CarState)
	CarMoved(step int, cmd Command, before, after CarState)
	MoveBlocked(step int, cmd Command, car CarState, target Position)
	CollisionDetected(collision Collision)
	StepFinished(result StepResult, cars []CarState)
}

// NopObserver ignores every event
type NopObserver struct{}

func (NopObserver) StepStarted(int)                              {}
func (NopObserver) CarIdle(int, CarState)                        {}
func (NopObserver) CarMoved(int, Command, CarState, CarState)    {}
func (NopObserver) MoveBlocked(int, Command, CarState, Position) {}
func (NopObserver) CollisionDetected(Collision)                  {}
func (NopObserver) StepFinished(StepResult, []CarState)          {}

// LogObserver writes a step trace to a structured logger. Per-car lines are
// logged at debug level, collisions at info.
type LogObserver struct {
	logger *log.Logger
}

// NewLogObserver creates an observer logging to logger
func NewLogObserver(logger *log.Logger) *LogObserver {
	return &LogObserver{logger: logger}
}

func (o *LogObserver) StepStarted(step int) {
	o.logger.Debug("step started", "step", step)
}

func (o *LogObserver) CarIdle(step int, car CarState) {
	o.logger.Debug("no more commands",
		"step", step, "car", car.ID, "x", car.Position.X, "y", car.Position.Y, "facing", car.Facing)
}

func (o *LogObserver) CarMoved(step int, cmd Command, before, after CarState) {
	o.logger.Debug("executing command",
		"step", step, "car", before.ID, "command", cmd.Letter(),
		"from", before.Position, "to", after.Position, "facing", after.Facing)
}

func (o *LogObserver) MoveBlocked(step int, cmd Command, car CarState, target Position) {
	o.logger.Debug("move out of bounds, staying put",
		"step", step, "car", car.ID, "command", cmd.Letter(),
		"x", car.Position.X, "y", car.Position.Y, "target", target)
}

func (o *LogObserver) CollisionDetected(collision Collision) {
	o.logger.Info("collision detected",
		"step", collision.Step, "cars", collision.CarIDs,
		"x", collision.Position.X, "y", collision.Position.Y)
}

func (o *LogObserver) StepFinished(result StepResult, cars []CarState) {
	for _, car := range cars {
		o.logger.Debug("after step",
			"step", result.Step, "car", car.ID, "x", car.Position.X, "y", car.Position.Y, "facing", car.Facing)
	}
}

// MultiObserver fans every event out to several observers in order
type MultiObserver []Observer

func (m MultiObserver) StepStarted(step int) {
	for _, o := range m {
		o.StepStarted(step)
	}
}

func (m MultiObserver) CarIdle(step int, car CarState) {
	for _, o := range m {
		o.CarIdle(step, car)
	}
}

func (m MultiObserver) CarMoved(step int, cmd Command, before, after CarState) {
	for _, o := range m {
		o.CarMoved(step, cmd, before, after)
	}
}

func (m MultiObserver) MoveBlocked(step int, cmd Command, car CarState, target Position) {
	for _, o := range m {
		o.MoveBlocked(step, cmd, car, target)
	}
}

func (m MultiObserver) CollisionDetected(collision Collision) {
	for _, o := range m {
		o.CollisionDetected(collision)
	}
}

func (m MultiObserver) StepFinished(result StepResult, cars []CarState) {
	for _, o := range m {
		o.StepFinished(result, cars)
	}
}
