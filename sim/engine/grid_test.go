package engine

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
)

func newTestGrid(t *testing.T, width, height int, opts ...GridOption) *Grid {
	t.Helper()
	grid, err := NewGrid(width, height, opts...)
	if err != nil {
		t.Fatalf("NewGrid(%d, %d) failed: %v", width, height, err)
	}
	return grid
}

func mustAddCar(t *testing.T, g *Grid, id string, x, y int, facing Direction, commands string) {
	t.Helper()
	if err := g.AddCar(id, x, y, facing, commands); err != nil {
		t.Fatalf("AddCar(%s) failed: %v", id, err)
	}
}

func TestNewGrid_Validation(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
		limits        *GridLimits
		wantErr       bool
	}{
		{"valid", 10, 10, nil, false},
		{"non-square", 10, 8, nil, false},
		{"at default maximum", 20, 20, nil, false},
		{"zero width", 0, 5, nil, true},
		{"negative height", 5, -1, nil, true},
		{"width over default maximum", 21, 5, nil, true},
		{"height over default maximum", 5, 21, nil, true},
		{"custom limits allow larger", 30, 25, &GridLimits{MaxWidth: 30, MaxHeight: 30}, false},
		{"custom limits reject", 6, 5, &GridLimits{MaxWidth: 5, MaxHeight: 5}, true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var opts []GridOption
			if test.limits != nil {
				opts = append(opts, WithLimits(*test.limits))
			}
			_, err := NewGrid(test.width, test.height, opts...)
			if test.wantErr && !errors.Is(err, ErrInvalidGridSize) {
				t.Errorf("expected ErrInvalidGridSize, got %v", err)
			}
			if !test.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestGrid_IsWithinBounds(t *testing.T) {
	grid := newTestGrid(t, 10, 8)

	for x := 0; x < 10; x++ {
		for y := 0; y < 8; y++ {
			if !grid.IsWithinBounds(x, y) {
				t.Fatalf("(%d,%d) should be within bounds", x, y)
			}
		}
	}

	outside := []Position{{-1, 0}, {0, -1}, {10, 0}, {0, 8}, {10, 8}, {-5, -5}}
	for _, p := range outside {
		if grid.IsWithinBounds(p.X, p.Y) {
			t.Errorf("(%d,%d) should be out of bounds", p.X, p.Y)
		}
	}
}

func TestGrid_AddCar(t *testing.T) {
	grid := newTestGrid(t, 10, 10)
	mustAddCar(t, grid, "A", 1, 2, North, "FFR")

	car, ok := grid.Car("A")
	if !ok {
		t.Fatal("expected car A to exist")
	}
	if car.Position() != (Position{X: 1, Y: 2}) || car.Facing() != North {
		t.Errorf("unexpected car state %v %s", car.Position(), car.Facing())
	}
	if car.ProgramLength() != 3 {
		t.Errorf("expected program length 3, got %d", car.ProgramLength())
	}
}

func TestGrid_AddCarFailures(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		x, y    int
		wantErr error
	}{
		{"duplicate id", "A", 4, 4, ErrDuplicateCar},
		{"empty id", "", 4, 4, ErrEmptyCarID},
		{"out of bounds x", "B", 5, 0, ErrOutOfBounds},
		{"out of bounds y", "B", 0, 5, ErrOutOfBounds},
		{"negative", "B", -1, 0, ErrOutOfBounds},
		{"occupied", "B", 2, 2, ErrPositionOccupied},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			grid := newTestGrid(t, 5, 5)
			mustAddCar(t, grid, "A", 2, 2, North, "")

			err := grid.AddCar(test.id, test.x, test.y, South, "F")
			if !errors.Is(err, test.wantErr) {
				t.Fatalf("expected %v, got %v", test.wantErr, err)
			}
			if grid.Len() != 1 {
				t.Errorf("failed AddCar must not change the grid, got %d cars", grid.Len())
			}
			car, _ := grid.Car("A")
			if car.Position() != (Position{X: 2, Y: 2}) || car.Facing() != North {
				t.Error("failed AddCar must not touch existing cars")
			}
		})
	}
}

func TestGrid_AddCarOccupiedReportsOccupant(t *testing.T) {
	grid := newTestGrid(t, 5, 5)
	mustAddCar(t, grid, "A", 2, 2, North, "")

	err := grid.AddCar("B", 2, 2, South, "")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "(2, 2) is already occupied by car A") {
		t.Errorf("error should name the occupying car, got %q", err)
	}
}

func TestGrid_AddCarCapacity(t *testing.T) {
	grid := newTestGrid(t, 5, 5)
	for x := 0; x < 5; x++ {
		for y := 0; y < 5; y++ {
			mustAddCar(t, grid, fmt.Sprintf("car-%d-%d", x, y), x, y, North, "")
		}
	}

	err := grid.AddCar("extra", 0, 0, North, "")
	if !errors.Is(err, ErrGridFull) {
		t.Fatalf("expected ErrGridFull on the 26th car, got %v", err)
	}
	if grid.Len() != 25 {
		t.Errorf("expected 25 cars, got %d", grid.Len())
	}
}

func TestGrid_RemoveCar(t *testing.T) {
	grid := newTestGrid(t, 5, 5)
	mustAddCar(t, grid, "A", 1, 1, North, "")
	mustAddCar(t, grid, "B", 2, 2, North, "")
	mustAddCar(t, grid, "C", 3, 3, North, "")

	if err := grid.RemoveCar("B"); err != nil {
		t.Fatalf("RemoveCar failed: %v", err)
	}
	if _, ok := grid.Car("B"); ok {
		t.Error("car B should be gone")
	}

	var ids []string
	for _, car := range grid.Cars() {
		ids = append(ids, car.ID())
	}
	if !reflect.DeepEqual(ids, []string{"A", "C"}) {
		t.Errorf("expected insertion order [A C], got %v", ids)
	}

	if err := grid.RemoveCar("X"); !errors.Is(err, ErrCarNotFound) {
		t.Errorf("expected ErrCarNotFound, got %v", err)
	}

	// the freed cell can be reused
	mustAddCar(t, grid, "D", 2, 2, East, "")
}

func TestGrid_StepMovesCar(t *testing.T) {
	grid := newTestGrid(t, 5, 5)
	mustAddCar(t, grid, "A", 1, 1, North, "F")

	result := grid.Step()
	if result.HasCollision() {
		t.Fatal("unexpected collision")
	}
	if grid.CurrentStep() != 1 || result.Step != 1 {
		t.Errorf("expected step 1, got grid=%d result=%d", grid.CurrentStep(), result.Step)
	}
	car, _ := grid.Car("A")
	if car.Position() != (Position{X: 1, Y: 2}) {
		t.Errorf("expected (1,2), got %v", car.Position())
	}
}

func TestGrid_StepOutOfBoundsIsSkipped(t *testing.T) {
	grid := newTestGrid(t, 2, 2)
	mustAddCar(t, grid, "A", 1, 1, North, "FRF")

	grid.Step()
	car, _ := grid.Car("A")
	if car.Position() != (Position{X: 1, Y: 1}) || car.Facing() != North {
		t.Errorf("out of bounds move should be dropped, got %v %s", car.Position(), car.Facing())
	}
	if grid.CurrentStep() != 1 {
		t.Errorf("step counter should advance, got %d", grid.CurrentStep())
	}

	grid.Step() // R: east
	grid.Step() // F: blocked again
	if car.Position() != (Position{X: 1, Y: 1}) || car.Facing() != East {
		t.Errorf("expected (1,1) facing EAST, got %v %s", car.Position(), car.Facing())
	}
}

func TestGrid_IdleCarIsUnaffected(t *testing.T) {
	grid := newTestGrid(t, 5, 5)
	mustAddCar(t, grid, "A", 3, 3, West, "")
	mustAddCar(t, grid, "B", 0, 0, North, "FFF")

	before := grid.Snapshot()[0]
	for i := 0; i < 10; i++ {
		grid.Step()
	}
	after := grid.Snapshot()[0]

	if before.Position != after.Position || before.Facing != after.Facing {
		t.Errorf("idle car changed: before %+v after %+v", before, after)
	}
	if grid.CurrentStep() != 10 {
		t.Errorf("expected 10 steps, got %d", grid.CurrentStep())
	}
}

func TestGrid_SwapIsNotACollision(t *testing.T) {
	grid := newTestGrid(t, 5, 5)
	mustAddCar(t, grid, "A", 0, 0, East, "F")
	mustAddCar(t, grid, "B", 1, 0, West, "F")

	result := grid.Step()
	if result.HasCollision() {
		t.Fatalf("swapping cars must not collide, got %+v", result.Collision)
	}
	a, _ := grid.Car("A")
	b, _ := grid.Car("B")
	if a.Position() != (Position{X: 1, Y: 0}) || b.Position() != (Position{X: 0, Y: 0}) {
		t.Errorf("expected swap, got A=%v B=%v", a.Position(), b.Position())
	}
}

func TestGrid_FollowIntoVacatedCell(t *testing.T) {
	grid := newTestGrid(t, 5, 5)
	// B is inserted first; it leaves (1,0) in the same step A enters it
	mustAddCar(t, grid, "B", 1, 0, East, "F")
	mustAddCar(t, grid, "A", 0, 0, East, "F")

	if result := grid.Step(); result.HasCollision() {
		t.Fatalf("unexpected collision %+v", result.Collision)
	}
}

func TestGrid_BlockedCarCanBeHit(t *testing.T) {
	grid := newTestGrid(t, 3, 3)
	mustAddCar(t, grid, "A", 2, 1, East, "F")
	mustAddCar(t, grid, "B", 1, 1, East, "F")

	result := grid.Step()
	if !result.HasCollision() {
		t.Fatal("expected collision with the car that could not move")
	}
	if !reflect.DeepEqual(result.Collision.CarIDs, []string{"A", "B"}) {
		t.Errorf("expected [A B], got %v", result.Collision.CarIDs)
	}
	if result.Collision.Position != (Position{X: 2, Y: 1}) {
		t.Errorf("expected (2,1), got %v", result.Collision.Position)
	}
}

func TestGrid_CheckCollisionsOrder(t *testing.T) {
	grid := newTestGrid(t, 5, 5)
	mustAddCar(t, grid, "C", 4, 4, North, "")
	mustAddCar(t, grid, "B", 0, 2, East, "FF")
	mustAddCar(t, grid, "A", 2, 0, North, "FF")
	mustAddCar(t, grid, "D", 4, 2, West, "FF")

	grid.Step()
	result := grid.Step()
	if !result.HasCollision() {
		t.Fatal("expected collision at (2,2)")
	}
	if !reflect.DeepEqual(result.Collision.CarIDs, []string{"B", "A", "D"}) {
		t.Errorf("expected ids in insertion order [B A D], got %v", result.Collision.CarIDs)
	}
	if result.Collision.Position != (Position{X: 2, Y: 2}) || result.Collision.Step != 2 {
		t.Errorf("unexpected collision %+v", result.Collision)
	}
}

func TestGrid_FirstCollisionByInsertionOrder(t *testing.T) {
	grid := newTestGrid(t, 6, 6)
	// pair one meets at (4,4), pair two at (1,1); C is inserted first
	mustAddCar(t, grid, "C", 0, 1, East, "F")
	mustAddCar(t, grid, "A", 3, 4, East, "F")
	mustAddCar(t, grid, "B", 5, 4, West, "F")
	mustAddCar(t, grid, "D", 2, 1, West, "F")

	result := grid.Step()
	if !result.HasCollision() {
		t.Fatal("expected collision")
	}
	if !reflect.DeepEqual(result.Collision.CarIDs, []string{"C", "D"}) {
		t.Errorf("expected [C D], got %v", result.Collision.CarIDs)
	}
	if result.Collision.Position != (Position{X: 1, Y: 1}) {
		t.Errorf("expected (1,1), got %v", result.Collision.Position)
	}
}

type recordingObserver struct {
	NopObserver
	events []string
}

func (r *recordingObserver) StepStarted(step int) {
	r.events = append(r.events, fmt.Sprintf("start %d", step))
}

func (r *recordingObserver) CarIdle(step int, car CarState) {
	r.events = append(r.events, fmt.Sprintf("idle %s", car.ID))
}

func (r *recordingObserver) CarMoved(step int, cmd Command, before, after CarState) {
	r.events = append(r.events, fmt.Sprintf("moved %s %s %v->%v", before.ID, cmd.Letter(), before.Position, after.Position))
}

func (r *recordingObserver) MoveBlocked(step int, cmd Command, car CarState, target Position) {
	r.events = append(r.events, fmt.Sprintf("blocked %s %v", car.ID, target))
}

func (r *recordingObserver) CollisionDetected(c Collision) {
	r.events = append(r.events, fmt.Sprintf("collision %v", c.CarIDs))
}

func (r *recordingObserver) StepFinished(result StepResult, cars []CarState) {
	r.events = append(r.events, fmt.Sprintf("finish %d", result.Step))
}

func TestGrid_ObserverEvents(t *testing.T) {
	observer := &recordingObserver{}
	grid := newTestGrid(t, 3, 3, WithObserver(observer))
	mustAddCar(t, grid, "A", 0, 0, South, "F")
	mustAddCar(t, grid, "B", 1, 1, North, "")
	mustAddCar(t, grid, "C", 2, 1, West, "F")

	grid.Step()

	expected := []string{
		"start 1",
		"blocked A {0 -1}",
		"idle B",
		"moved C F {2 1}->{1 1}",
		"collision [B C]",
		"finish 1",
	}
	if !reflect.DeepEqual(observer.events, expected) {
		t.Errorf("unexpected events:\n got %v\nwant %v", observer.events, expected)
	}
}

func TestGrid_SnapshotRemaining(t *testing.T) {
	grid := newTestGrid(t, 5, 5)
	mustAddCar(t, grid, "A", 0, 0, North, "FFR")

	if got := grid.Snapshot()[0].Remaining; got != 3 {
		t.Errorf("expected 3 remaining, got %d", got)
	}
	grid.Step()
	grid.Step()
	grid.Step()
	grid.Step()
	state := grid.Snapshot()[0]
	if state.Remaining != 0 || state.Program != "FFR" {
		t.Errorf("unexpected snapshot %+v", state)
	}
}
