package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/wricardo/carsim/sim/config"
	"github.com/wricardo/carsim/sim/engine"
	"github.com/wricardo/carsim/sim/scenario"
	"github.com/wricardo/carsim/sim/service"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
	return path
}

func TestConstants(t *testing.T) {
	if Version == "" {
		t.Error("Version should not be empty")
	}
	if AppName != "carsim" {
		t.Errorf("Expected app name carsim, got %s", AppName)
	}
}

func TestNewApp(t *testing.T) {
	app := newApp()

	names := map[string]bool{}
	for _, cmd := range app.Commands {
		names[cmd.Name] = true
	}
	for _, want := range []string{"run", "serve", "mcp"} {
		if !names[want] {
			t.Errorf("Expected command %q", want)
		}
	}
	if app.Version != Version {
		t.Errorf("Expected version %s, got %s", Version, app.Version)
	}
}

func TestRunScenarioFile(t *testing.T) {
	dir := t.TempDir()
	logger := log.New(io.Discard)

	tests := []struct {
		name    string
		content string
		want    string
		wantErr error
	}{
		{
			name:    "collision",
			content: "10 10\n\nA\n1 2 N\nFFRFFFFFRL\n\nB\n7 8 W\nFFLFFFFFFF\n",
			want:    "A B\n5 4\n7",
		},
		{
			name:    "no collision",
			content: "5 5\n\nA\n0 0 N\nFFF\n\nB\n2 0 N\nFFF\n",
			want:    "no collision",
		},
		{
			name:    "swap is not a collision",
			content: "4 1\n\nA\n1 0 E\nF\n\nB\n2 0 W\nF\n",
			want:    "no collision",
		},
		{
			name:    "invalid command",
			content: "5 5\n\nA\n0 0 N\nFXF\n",
			wantErr: scenario.ErrInvalidFormat,
		},
		{
			name:    "grid too large",
			content: "21 5\n\nA\n0 0 N\nF\n",
			wantErr: engine.ErrInvalidGridSize,
		},
		{
			name:    "occupied start",
			content: "5 5\n\nA\n1 1 N\nF\n\nB\n1 1 S\nF\n",
			wantErr: engine.ErrPositionOccupied,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, dir, strings.ReplaceAll(tt.name, " ", "_")+".txt", tt.content)

			got, err := runScenarioFile(path, engine.DefaultGridLimits(), logger)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("runScenarioFile failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestRunScenarioFile_Missing(t *testing.T) {
	_, err := runScenarioFile(filepath.Join(t.TempDir(), "nope.txt"), engine.DefaultGridLimits(), log.New(io.Discard))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected not-exist error, got %v", err)
	}
}

func TestRunScenarioFile_DebugTrace(t *testing.T) {
	path := writeFile(t, t.TempDir(), "trace.txt", "3 3\n\nA\n0 0 N\nF\n")

	var buf bytes.Buffer
	logger := log.New(&buf)
	logger.SetLevel(log.DebugLevel)

	if _, err := runScenarioFile(path, engine.DefaultGridLimits(), logger); err != nil {
		t.Fatalf("runScenarioFile failed: %v", err)
	}
	if !strings.Contains(buf.String(), "executing command") {
		t.Errorf("Expected step trace at debug level, got %q", buf.String())
	}
}

func TestRunCommand(t *testing.T) {
	t.Chdir(t.TempDir())
	path := writeFile(t, ".", "example.txt", "5 5\n\nA\n0 0 E\nFF\n\nB\n4 0 W\nFF\n")

	app := newApp()
	var out bytes.Buffer
	app.Writer = &out
	app.ErrWriter = io.Discard

	if err := app.Run(context.Background(), []string{"carsim", "run", path}); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if out.String() != "A B\n2 0\n2\n" {
		t.Errorf("Unexpected output %q", out.String())
	}
}

func testSettings(t *testing.T) config.Settings {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, "crossing.txt", "5 5\n\nA\n0 0 E\nFF\n\nB\n4 0 W\nFF\n")

	settings := config.DefaultSettings()
	settings.ScenariosDir = dir
	return settings
}

func TestNewStack_InvalidScenarioDir(t *testing.T) {
	settings := config.DefaultSettings()
	settings.ScenariosDir = "/non/existent/path"

	if _, err := newStack(settings, log.New(io.Discard), ""); err == nil {
		t.Error("Expected error for non-existent scenario directory")
	}
}

func TestNewStack_ServesAPIAndMCP(t *testing.T) {
	st, err := newStack(testSettings(t), log.New(io.Discard), "http://127.0.0.1:0")
	if err != nil {
		t.Fatalf("newStack failed: %v", err)
	}

	srv := httptest.NewServer(st.handler)
	defer srv.Close()

	body := strings.NewReader(`{"scenario_id": "crossing"}`)
	resp, err := http.Post(srv.URL+"/api/sessions", "application/json", body)
	if err != nil {
		t.Fatalf("create session failed: %v", err)
	}
	var info service.SessionInfo
	json.NewDecoder(resp.Body).Decode(&info)
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated || info.ScenarioName != "crossing" {
		t.Fatalf("Unexpected create response %d %+v", resp.StatusCode, info)
	}
	if st.sessions.Count() != 1 {
		t.Errorf("Expected the session to be stored, got %d", st.sessions.Count())
	}

	rpc := strings.NewReader(`{"jsonrpc": "2.0", "id": 1, "method": "tools/list"}`)
	resp, err = http.Post(srv.URL+"/mcp", "application/json", rpc)
	if err != nil {
		t.Fatalf("mcp request failed: %v", err)
	}
	data, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	for _, tool := range []string{"create_simulation", "step", "run", "simulation_instructions"} {
		if !strings.Contains(string(data), `"`+tool+`"`) {
			t.Errorf("Expected tool %s in tools/list response: %s", tool, data)
		}
	}

	resp, err = http.Get(srv.URL + "/mcp")
	if err != nil {
		t.Fatalf("GET /mcp failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405 for GET /mcp, got %d", resp.StatusCode)
	}
}

func TestNewStack_WithoutMCP(t *testing.T) {
	st, err := newStack(testSettings(t), log.New(io.Discard), "")
	if err != nil {
		t.Fatalf("newStack failed: %v", err)
	}

	rec := httptest.NewRecorder()
	st.handler.ServeHTTP(rec, httptest.NewRequest("POST", "/mcp", strings.NewReader("{}")))
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 without an MCP endpoint, got %d", rec.Code)
	}
}

func TestCleanupSessions(t *testing.T) {
	st, err := newStack(testSettings(t), log.New(io.Discard), "")
	if err != nil {
		t.Fatalf("newStack failed: %v", err)
	}
	if _, err := st.service.CreateSession(context.Background(), service.CreateSessionRequest{ScenarioID: "crossing"}); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		cleanupSessions(ctx, st.sessions, log.New(io.Discard), time.Millisecond, 0)
		close(done)
	}()

	deadline := time.Now().Add(time.Second)
	for st.sessions.Count() > 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done

	if st.sessions.Count() != 0 {
		t.Errorf("Expected expired session to be removed, %d left", st.sessions.Count())
	}
}

func TestExternalAPIAvailable(t *testing.T) {
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/health" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer healthy.Close()

	if !externalAPIAvailable(healthy.URL) {
		t.Error("Expected healthy server to be detected")
	}

	healthy.Close()
	if externalAPIAvailable(healthy.URL) {
		t.Error("Expected closed server to be unavailable")
	}
}
