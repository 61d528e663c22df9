// Package scenario reads and writes the plain-text scenario format: a grid
// size line followed by one block per car (id, "x y facing", commands).
//
// The parser here is strict and rejects any command character other than
// F, L or R. The engine's own command parser stays lenient; this package is
// the enforcement point for input files.
package scenario

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/wricardo/carsim/sim/engine"
)

var ErrInvalidFormat = errors.New("invalid input format")

// FormatHelp describes the input format for usage errors
const FormatHelp = `Correct format:
Line 1: grid_size_x grid_size_y
Then for each car:
  - Car ID (single character or string)
  - Starting position: x y direction
  - Commands (optional, can be empty line)
  - Empty line between cars (optional)

Example:
10 10

A
1 2 N
FFRFFFFFRL

B
7 8 W
FFLFFFFFFF

C
5 4 S

Directions: N (North), S (South), E (East), W (West)
Commands: F (Forward), L (Left turn), R (Right turn)`

// Scenario is a parsed input: grid dimensions plus car specs in file order
type Scenario struct {
	Name   string           `json:"name,omitempty"`
	Width  int              `json:"width"`
	Height int              `json:"height"`
	Cars   []engine.CarSpec `json:"cars"`
}

type line struct {
	text string
	num  int
}

// Parse reads a scenario from r
func Parse(r io.Reader) (*Scenario, error) {
	var lines []line
	scanner := bufio.NewScanner(r)
	for n := 1; scanner.Scan(); n++ {
		lines = append(lines, line{text: strings.TrimSpace(scanner.Text()), num: n})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read scenario: %w", err)
	}

	// Drop leading and trailing blank lines
	for len(lines) > 0 && lines[0].text == "" {
		lines = lines[1:]
	}
	for len(lines) > 0 && lines[len(lines)-1].text == "" {
		lines = lines[:len(lines)-1]
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrInvalidFormat)
	}

	width, height, err := parseGridSize(lines[0])
	if err != nil {
		return nil, err
	}

	s := &Scenario{Width: width, Height: height}

	i := 1
	carNumber := 1
	for i < len(lines) {
		for i < len(lines) && lines[i].text == "" {
			i++
		}
		if i >= len(lines) {
			break
		}

		carID := lines[i].text
		i++

		if i >= len(lines) {
			return nil, fmt.Errorf("%w: car %d ('%s') missing position and direction", ErrInvalidFormat, carNumber, carID)
		}
		if err := validatePosition(lines[i].text); err != nil {
			return nil, fmt.Errorf("%w: car %d ('%s') has invalid position/direction '%s' at line %d: %v. Expected format: 'x y direction' (e.g., '1 2 N')",
				ErrInvalidFormat, carNumber, carID, lines[i].text, lines[i].num, err)
		}
		initialState := lines[i].text
		i++

		commands := ""
		if i < len(lines) && lines[i].text != "" {
			// A non-empty line followed by a position line is the next car's id
			isNextCar := i+1 < len(lines) && lines[i+1].text != "" && len(strings.Fields(lines[i+1].text)) == 3
			if !isNextCar {
				commands = lines[i].text
				for _, ch := range commands {
					if !strings.ContainsRune("FLR", ch) {
						return nil, fmt.Errorf("%w: car %d ('%s') has invalid command '%c' in '%s' at line %d. Commands must contain only F (Forward), L (Left), R (Right)",
							ErrInvalidFormat, carNumber, carID, ch, commands, lines[i].num)
					}
				}
				i++
			}
		}

		s.Cars = append(s.Cars, engine.CarSpec{ID: carID, InitialState: initialState, Commands: commands})
		carNumber++
	}

	if len(s.Cars) == 0 {
		return nil, fmt.Errorf("%w: no cars found in input", ErrInvalidFormat)
	}

	return s, nil
}

// ParseString parses a scenario held in memory
func ParseString(text string) (*Scenario, error) {
	return Parse(strings.NewReader(text))
}

// ParseFile parses the file at path and names the scenario after it
func ParseFile(path string) (*Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	s, err := Parse(f)
	if err != nil {
		return nil, err
	}
	s.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return s, nil
}

func parseGridSize(l line) (int, int, error) {
	parts := strings.Fields(l.text)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%w: invalid grid size format '%s': expected two positive integers (e.g., '10 10')", ErrInvalidFormat, l.text)
	}
	width, errX := strconv.Atoi(parts[0])
	height, errY := strconv.Atoi(parts[1])
	if errX != nil || errY != nil || width <= 0 || height <= 0 {
		return 0, 0, fmt.Errorf("%w: invalid grid size format '%s': expected two positive integers (e.g., '10 10')", ErrInvalidFormat, l.text)
	}
	return width, height, nil
}

func validatePosition(text string) error {
	parts := strings.Fields(text)
	if len(parts) != 3 {
		return errors.New("position must have exactly 3 parts: x y direction")
	}
	x, errX := strconv.Atoi(parts[0])
	y, errY := strconv.Atoi(parts[1])
	if errX != nil || errY != nil {
		return errors.New("coordinates must be integers")
	}
	if x < 0 || y < 0 {
		return errors.New("coordinates must be non-negative")
	}
	if _, err := engine.ParseDirection(parts[2]); err != nil {
		return errors.New("direction must be N, S, E, or W")
	}
	return nil
}

// MaxStep returns the longest command program in the scenario
func (s *Scenario) MaxStep() int {
	longest := 0
	for _, car := range s.Cars {
		if n := len(engine.ParseCommands(car.Commands)); n > longest {
			longest = n
		}
	}
	return longest
}

// Simulation builds a ready-to-run simulation from the scenario
func (s *Scenario) Simulation(opts ...engine.GridOption) (*engine.Simulation, error) {
	return engine.NewSimulation(s.Width, s.Height, s.Cars, opts...)
}

// Validate checks that the scenario builds a simulation within limits
func (s *Scenario) Validate(limits engine.GridLimits) error {
	_, err := s.Simulation(engine.WithLimits(limits))
	return err
}

// Format renders the scenario in the text format Parse reads
func (s *Scenario) Format() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d %d\n", s.Width, s.Height)
	for _, car := range s.Cars {
		fmt.Fprintf(&b, "\n%s\n%s\n", car.ID, car.InitialState)
		if car.Commands != "" {
			fmt.Fprintf(&b, "%s\n", car.Commands)
		}
	}
	return b.String()
}
