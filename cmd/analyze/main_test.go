package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wricardo/carsim/sim/engine"
	"github.com/wricardo/carsim/sim/scenario"
)

func mustParse(t *testing.T, text string) *scenario.Scenario {
	t.Helper()
	sc, err := scenario.ParseString(text)
	if err != nil {
		t.Fatalf("ParseString failed: %v", err)
	}
	sc.Name = "test"
	return sc
}

func TestAnalyze_Collision(t *testing.T) {
	sc := mustParse(t, "5 5\n\nA\n0 0 E\nFF\n\nB\n4 0 W\nFF\n")

	a, err := analyze(sc, engine.DefaultGridLimits())
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}

	if a.MaxStep != 2 || a.Cars != 2 {
		t.Errorf("Unexpected summary %+v", a)
	}
	if a.Outcome.String() != "A B\n2 0\n2" {
		t.Errorf("Unexpected outcome %q", a.Outcome.String())
	}
	if a.Distances["A"] != 2 || a.Distances["B"] != 2 {
		t.Errorf("Expected two cells travelled each, got %v", a.Distances)
	}
	if len(a.Swaps) != 0 {
		t.Errorf("Expected no swaps, got %v", a.Swaps)
	}
}

func TestAnalyze_SwapIsANearMiss(t *testing.T) {
	sc := mustParse(t, "4 1\n\nA\n1 0 E\nF\n\nB\n2 0 W\nF\n")

	a, err := analyze(sc, engine.DefaultGridLimits())
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}

	if a.Outcome.Collision != nil {
		t.Fatalf("Swapping cells must not collide, got %v", a.Outcome.Collision)
	}
	if len(a.Swaps) != 1 || a.Swaps[0] != (Swap{Step: 1, A: "A", B: "B"}) {
		t.Errorf("Expected one swap in step 1, got %v", a.Swaps)
	}
}

func TestAnalyze_EdgeHits(t *testing.T) {
	sc := mustParse(t, "3 3\n\nA\n0 0 W\nFLF\n")

	a, err := analyze(sc, engine.DefaultGridLimits())
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}

	// West is blocked, then after turning left the car faces south and is blocked again
	if a.EdgeHits["A"] != 2 {
		t.Errorf("Expected 2 edge hits, got %d", a.EdgeHits["A"])
	}
	if a.Distances["A"] != 0 {
		t.Errorf("Expected no cells travelled, got %d", a.Distances["A"])
	}
}

func TestAnalyze_InvalidScenario(t *testing.T) {
	sc := mustParse(t, "30 30\n\nA\n0 0 N\nF\n")

	if _, err := analyze(sc, engine.DefaultGridLimits()); err == nil {
		t.Error("Expected error for grid beyond limits")
	}
}

func TestReport(t *testing.T) {
	sc := mustParse(t, "4 1\n\nA\n1 0 E\nFF\n\nB\n2 0 W\nF\n")
	a, err := analyze(sc, engine.DefaultGridLimits())
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}

	var buf bytes.Buffer
	report(&buf, sc, a)
	out := buf.String()

	expected := []string{
		"Grid Size: 4 x 1",
		"Cars: 2",
		"Max Step: 2",
		"A: start 1 0 E, 2 commands",
		"Step 1: A <-> B",
	}
	for _, want := range expected {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in report:\n%s", want, out)
		}
	}
}

func TestAnalyzeScenarioFiles(t *testing.T) {
	files, _ := filepath.Glob("../../scenarios/*.txt")
	if len(files) == 0 {
		t.Skip("Skipping test - no scenario files found")
	}

	for _, file := range files {
		t.Run(filepath.Base(file), func(t *testing.T) {
			if _, err := os.Stat(file); err != nil {
				t.Fatalf("stat failed: %v", err)
			}
			sc, err := scenario.ParseFile(file)
			if err != nil {
				t.Fatalf("ParseFile failed: %v", err)
			}
			if _, err := analyze(sc, engine.DefaultGridLimits()); err != nil {
				t.Errorf("analyze failed: %v", err)
			}
		})
	}
}
