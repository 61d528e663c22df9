package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/wricardo/carsim/sim/engine"
	"github.com/wricardo/carsim/sim/scenario"
	"github.com/wricardo/carsim/sim/service"
)

// ScenarioExt is the file extension of stored scenarios
const ScenarioExt = ".txt"

var (
	ErrScenarioNotFound = errors.New("scenario not found")
	ErrInvalidScenario  = errors.New("invalid scenario")
)

// Manager handles scenario loading and caching
type Manager struct {
	dir       string
	limits    engine.GridLimits
	scenarios map[string]*scenario.Scenario
	mu        sync.RWMutex
}

// NewManager creates a scenario library over dir
func NewManager(dir string, limits engine.GridLimits) (*Manager, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("scenario directory does not exist: %s", dir)
		}
		return nil, fmt.Errorf("failed to stat scenario directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("scenario path is not a directory: %s", dir)
	}

	return &Manager{
		dir:       dir,
		limits:    limits,
		scenarios: make(map[string]*scenario.Scenario),
	}, nil
}

// Dir returns the directory the library reads from
func (m *Manager) Dir() string {
	return m.dir
}

// LoadScenario loads a scenario by name, with or without extension
func (m *Manager) LoadScenario(name string) (*scenario.Scenario, error) {
	name, err := cleanName(name)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	if s, exists := m.scenarios[name]; exists {
		m.mu.RUnlock()
		return s, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock
	if s, exists := m.scenarios[name]; exists {
		return s, nil
	}

	s, err := scenario.ParseFile(filepath.Join(m.dir, name+ScenarioExt))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrScenarioNotFound, name)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidScenario, name, err)
	}

	if err := s.Validate(m.limits); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidScenario, name, err)
	}

	m.scenarios[name] = s
	return s, nil
}

// ListScenarios returns a summary of every valid scenario in the directory,
// sorted by name. Invalid files are skipped.
func (m *Manager) ListScenarios() ([]*service.ScenarioInfo, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario directory: %w", err)
	}

	var infos []*service.ScenarioInfo
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ScenarioExt) {
			continue
		}

		name := strings.TrimSuffix(entry.Name(), ScenarioExt)
		s, err := m.LoadScenario(name)
		if err != nil {
			continue
		}

		infos = append(infos, &service.ScenarioInfo{
			Filename:   entry.Name(),
			ScenarioID: name,
			Width:      s.Width,
			Height:     s.Height,
			Cars:       len(s.Cars),
			MaxStep:    s.MaxStep(),
		})
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].ScenarioID < infos[j].ScenarioID })
	return infos, nil
}

// SaveScenario validates s and writes it to the library
func (m *Manager) SaveScenario(name string, s *scenario.Scenario) error {
	name, err := cleanName(name)
	if err != nil {
		return err
	}
	if s == nil {
		return fmt.Errorf("%w: nil scenario", ErrInvalidScenario)
	}
	if err := s.Validate(m.limits); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidScenario, err)
	}

	// Round trip through the strict parser so the stored file always loads
	stored, err := scenario.ParseString(s.Format())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidScenario, err)
	}
	stored.Name = name

	path := filepath.Join(m.dir, name+ScenarioExt)
	if err := os.WriteFile(path, []byte(stored.Format()), 0644); err != nil {
		return fmt.Errorf("failed to write scenario file: %w", err)
	}

	m.mu.Lock()
	m.scenarios[name] = stored
	m.mu.Unlock()

	return nil
}

// RefreshCache drops every cached scenario so the next load hits disk
func (m *Manager) RefreshCache() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scenarios = make(map[string]*scenario.Scenario)
}

// cleanName strips the extension and rejects names that would escape the
// scenario directory
func cleanName(name string) (string, error) {
	name = strings.TrimSuffix(strings.TrimSpace(name), ScenarioExt)
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("%w: bad scenario name %q", ErrInvalidScenario, name)
	}
	return name, nil
}
