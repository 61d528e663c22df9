package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"

	"github.com/wricardo/carsim/sim/engine"
)

// DefaultSettingsFile is read when no explicit settings path is given
const DefaultSettingsFile = "carsim.json"

// EnvPrefix prefixes every environment override
const EnvPrefix = "CARSIM_"

var ErrInvalidSettings = errors.New("invalid settings")

// Settings holds process-wide knobs shared by every entry point
type Settings struct {
	MaxGridWidth  int    `json:"max_grid_width"`
	MaxGridHeight int    `json:"max_grid_height"`
	LogLevel      string `json:"log_level"`
	ScenariosDir  string `json:"scenarios_dir"`
	Addr          string `json:"addr"`
	StepDelayMS   int    `json:"step_delay_ms"`
}

// DefaultSettings returns the built-in defaults
func DefaultSettings() Settings {
	return Settings{
		MaxGridWidth:  engine.DefaultMaxGridWidth,
		MaxGridHeight: engine.DefaultMaxGridHeight,
		LogLevel:      "info",
		ScenariosDir:  "scenarios",
		Addr:          "localhost:8080",
	}
}

// LoadSettings layers defaults, the JSON settings file and CARSIM_*
// environment variables. An empty path falls back to DefaultSettingsFile,
// which may be absent; an explicit path must exist.
func LoadSettings(path string) (Settings, error) {
	s := DefaultSettings()

	// .env is optional
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return s, fmt.Errorf("failed to load .env: %w", err)
	}

	explicit := path != ""
	if !explicit {
		path = DefaultSettingsFile
	}

	f, err := os.Open(path)
	switch {
	case err == nil:
		defer f.Close()
		if err := s.decode(f); err != nil {
			return s, fmt.Errorf("failed to parse settings file %s: %w", path, err)
		}
	case os.IsNotExist(err) && !explicit:
		// defaults only
	default:
		return s, fmt.Errorf("failed to open settings file: %w", err)
	}

	if err := s.applyEnv(os.LookupEnv); err != nil {
		return s, err
	}

	if err := s.Validate(); err != nil {
		return s, err
	}
	return s, nil
}

func (s *Settings) decode(r io.Reader) error {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	return dec.Decode(s)
}

func (s *Settings) applyEnv(lookup func(string) (string, bool)) error {
	ints := map[string]*int{
		"MAX_GRID_WIDTH":  &s.MaxGridWidth,
		"MAX_GRID_HEIGHT": &s.MaxGridHeight,
		"STEP_DELAY_MS":   &s.StepDelayMS,
	}
	for key, target := range ints {
		value, ok := lookup(EnvPrefix + key)
		if !ok || value == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("%w: %s%s=%q is not an integer", ErrInvalidSettings, EnvPrefix, key, value)
		}
		*target = n
	}

	strs := map[string]*string{
		"LOG_LEVEL":     &s.LogLevel,
		"SCENARIOS_DIR": &s.ScenariosDir,
		"ADDR":          &s.Addr,
	}
	for key, target := range strs {
		if value, ok := lookup(EnvPrefix + key); ok && value != "" {
			*target = value
		}
	}
	return nil
}

// Validate rejects limits and levels no component can work with
func (s Settings) Validate() error {
	if s.MaxGridWidth <= 0 || s.MaxGridHeight <= 0 {
		return fmt.Errorf("%w: grid limits must be positive, got %dx%d", ErrInvalidSettings, s.MaxGridWidth, s.MaxGridHeight)
	}
	if _, err := log.ParseLevel(s.LogLevel); err != nil {
		return fmt.Errorf("%w: log_level %q: %v", ErrInvalidSettings, s.LogLevel, err)
	}
	if s.StepDelayMS < 0 {
		return fmt.Errorf("%w: step_delay_ms must not be negative", ErrInvalidSettings)
	}
	if s.ScenariosDir == "" {
		return fmt.Errorf("%w: scenarios_dir is required", ErrInvalidSettings)
	}
	return nil
}

// GridLimits returns the size limits handed to every grid
func (s Settings) GridLimits() engine.GridLimits {
	return engine.GridLimits{MaxWidth: s.MaxGridWidth, MaxHeight: s.MaxGridHeight}
}

// StepDelay is the pause between steps of a paced run
func (s Settings) StepDelay() time.Duration {
	return time.Duration(s.StepDelayMS) * time.Millisecond
}

// NewLogger builds the process logger at the configured level
func (s Settings) NewLogger(w io.Writer) *log.Logger {
	level, err := log.ParseLevel(s.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	return log.NewWithOptions(w, log.Options{
		Level:           level,
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
		Prefix:          "carsim",
	})
}
