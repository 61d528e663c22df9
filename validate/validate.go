// Command validate checks every scenario file in a directory (../scenarios
// by default, or the first argument). It checks:
//   - The text format, with the strict scenario parser
//   - Grid size against the default 20x20 limits
//   - Car placement: unique ids, in-bounds and unoccupied starting cells
//   - Programs: cars without commands and forward moves that run into the
//     grid edge are reported as warnings
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/wricardo/carsim/sim/config"
	"github.com/wricardo/carsim/sim/engine"
	"github.com/wricardo/carsim/sim/scenario"
)

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Errors contains informational messages and warnings;
// otherwise it accumulates the validation errors that were found.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
}

// edgeCounter counts forward moves skipped at the grid edge, per car
type edgeCounter struct {
	engine.NopObserver
	blocked map[string]int
}

func (e *edgeCounter) MoveBlocked(step int, cmd engine.Command, car engine.CarState, target engine.Position) {
	e.blocked[car.ID]++
}

// validateScenario loads and validates a single scenario file, then runs it
// to report the outcome.
func validateScenario(filePath string, limits engine.GridLimits) ValidationResult {
	result := ValidationResult{
		File:   filepath.Base(filePath),
		Valid:  true,
		Errors: []string{},
	}

	sc, err := scenario.ParseFile(filePath)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, err.Error())
		return result
	}

	counter := &edgeCounter{blocked: make(map[string]int)}
	sim, err := sc.Simulation(engine.WithLimits(limits), engine.WithObserver(counter))
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, err.Error())
		return result
	}

	result.Errors = append(result.Errors, fmt.Sprintf("✓ Grid: %dx%d", sc.Width, sc.Height))
	result.Errors = append(result.Errors, fmt.Sprintf("✓ Cars: %d", len(sc.Cars)))
	result.Errors = append(result.Errors, fmt.Sprintf("✓ Max step: %d", sim.MaxStep()))

	for _, car := range sc.Cars {
		if car.Commands == "" {
			result.Errors = append(result.Errors, fmt.Sprintf("⚠ Car %s has no commands", car.ID))
		}
	}

	outcome := sim.Run()
	for _, car := range sc.Cars {
		if n := counter.blocked[car.ID]; n > 0 {
			result.Errors = append(result.Errors, fmt.Sprintf("⚠ Car %s hits the grid edge %d time(s)", car.ID, n))
		}
	}

	if outcome.Collision != nil {
		c := outcome.Collision
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Outcome: collision of %s at (%d,%d) in step %d",
			strings.Join(c.CarIDs, " "), c.Position.X, c.Position.Y, c.Step))
	} else {
		result.Errors = append(result.Errors, "✓ Outcome: no collision")
	}

	return result
}

// main scans the scenario directory for scenario files and validates each
// one, printing a concise report and exiting with non-zero status if any
// are invalid.
func main() {
	scenarioDir := "../scenarios"
	if len(os.Args) > 1 {
		scenarioDir = os.Args[1]
	}

	files, err := filepath.Glob(filepath.Join(scenarioDir, "*"+config.ScenarioExt))
	if err != nil {
		fmt.Printf("Error finding scenario files: %v\n", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Printf("No scenario files found in %s\n", scenarioDir)
		os.Exit(1)
	}

	limits := engine.DefaultGridLimits()
	allValid := true
	for _, file := range files {
		result := validateScenario(file, limits)

		fmt.Printf("\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Println("✅ VALID")
			for _, info := range result.Errors {
				fmt.Println("  " + info)
			}
		} else {
			fmt.Println("❌ INVALID")
			allValid = false
			for _, err := range result.Errors {
				fmt.Println("  ❌ " + err)
			}
		}
	}

	fmt.Printf("\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Println("✅ All scenarios are valid!")
	} else {
		fmt.Println("❌ Some scenarios have errors")
		os.Exit(1)
	}
}
