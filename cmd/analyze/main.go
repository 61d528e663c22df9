// Command analyze prints quick, human-readable heuristics about the scenario
// files in the project's scenarios directory. It summarizes dimensions,
// program lengths and the outcome, and highlights near misses: cars that
// swapped cells (which is not a collision) and moves lost at the grid edge.
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/wricardo/carsim/sim/config"
	"github.com/wricardo/carsim/sim/engine"
	"github.com/wricardo/carsim/sim/scenario"
)

// Swap records two cars exchanging cells within one step
type Swap struct {
	Step int
	A, B string
}

// Analysis is the result of running one scenario to completion
type Analysis struct {
	Name      string
	Width     int
	Height    int
	Cars      int
	MaxStep   int
	Outcome   engine.Outcome
	Swaps     []Swap
	EdgeHits  map[string]int
	Distances map[string]int
}

// tracer collects per-step moves for swap detection
type tracer struct {
	engine.NopObserver
	analysis *Analysis
	moves    []move
}

type move struct {
	id       string
	from, to engine.Position
}

func (t *tracer) StepStarted(step int) {
	t.moves = t.moves[:0]
}

func (t *tracer) CarMoved(step int, cmd engine.Command, before, after engine.CarState) {
	if before.Position == after.Position {
		return
	}
	t.analysis.Distances[before.ID]++
	t.moves = append(t.moves, move{id: before.ID, from: before.Position, to: after.Position})
}

func (t *tracer) MoveBlocked(step int, cmd engine.Command, car engine.CarState, target engine.Position) {
	t.analysis.EdgeHits[car.ID]++
}

func (t *tracer) StepFinished(result engine.StepResult, cars []engine.CarState) {
	for i := 0; i < len(t.moves); i++ {
		for j := i + 1; j < len(t.moves); j++ {
			a, b := t.moves[i], t.moves[j]
			if a.from == b.to && a.to == b.from {
				t.analysis.Swaps = append(t.analysis.Swaps, Swap{Step: result.Step, A: a.id, B: b.id})
			}
		}
	}
}

func analyze(sc *scenario.Scenario, limits engine.GridLimits) (*Analysis, error) {
	a := &Analysis{
		Name:      sc.Name,
		Width:     sc.Width,
		Height:    sc.Height,
		Cars:      len(sc.Cars),
		EdgeHits:  make(map[string]int),
		Distances: make(map[string]int),
	}

	sim, err := sc.Simulation(engine.WithLimits(limits), engine.WithObserver(&tracer{analysis: a}))
	if err != nil {
		return nil, err
	}
	a.MaxStep = sim.MaxStep()
	a.Outcome = sim.Run()
	return a, nil
}

func report(w io.Writer, sc *scenario.Scenario, a *Analysis) {
	fmt.Fprintf(w, "Grid Size: %d x %d\n", a.Width, a.Height)
	fmt.Fprintf(w, "Cars: %d\n", a.Cars)
	fmt.Fprintf(w, "Max Step: %d\n", a.MaxStep)

	for _, car := range sc.Cars {
		fmt.Fprintf(w, "  %s: start %s, %d commands, %d cells travelled\n",
			car.ID, car.InitialState, len(car.Commands), a.Distances[car.ID])
	}

	if c := a.Outcome.Collision; c != nil {
		fmt.Fprintf(w, "💥 Collision: %s at (%d, %d) in step %d of %d\n",
			strings.Join(c.CarIDs, " "), c.Position.X, c.Position.Y, c.Step, a.MaxStep)
	} else {
		fmt.Fprintf(w, "✅ No collision in %d steps\n", a.Outcome.StepsRun)
	}

	if len(a.Swaps) > 0 {
		fmt.Fprintf(w, "⚠️  %d near miss(es): cars swapped cells\n", len(a.Swaps))
		for _, s := range a.Swaps {
			fmt.Fprintf(w, "   Step %d: %s <-> %s\n", s.Step, s.A, s.B)
		}
	}

	for _, car := range sc.Cars {
		if n := a.EdgeHits[car.ID]; n > 0 {
			fmt.Fprintf(w, "⚠️  %s lost %d move(s) at the grid edge\n", car.ID, n)
		}
	}
}

func main() {
	dir := "scenarios"
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}

	limits := engine.DefaultGridLimits()
	manager, err := config.NewManager(dir, limits)
	if err != nil {
		fmt.Printf("Error opening scenarios: %v\n", err)
		os.Exit(1)
	}

	infos, err := manager.ListScenarios()
	if err != nil {
		fmt.Printf("Error listing scenarios: %v\n", err)
		os.Exit(1)
	}

	for _, info := range infos {
		fmt.Printf("\n=== Analyzing %s ===\n", info.Filename)
		sc, err := manager.LoadScenario(info.ScenarioID)
		if err != nil {
			fmt.Printf("Error loading scenario: %v\n", err)
			continue
		}
		a, err := analyze(sc, limits)
		if err != nil {
			fmt.Printf("Error building simulation: %v\n", err)
			continue
		}
		report(os.Stdout, sc, a)
	}
}
