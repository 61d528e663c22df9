// Command carsim simulates cars driving on a rectangular grid.
//
// It supports three modes:
//  1. "run <input_file>" – reads a scenario file, runs it and prints the first collision or "no collision"
//  2. "serve" – runs the HTTP server exposing the REST API, WebSocket streams, and an /mcp HTTP endpoint
//  3. "mcp" – runs an MCP stdio server and spins up an internal HTTP API if none is available
//
// Settings come from carsim.json, CARSIM_* environment variables (a .env file
// is honoured) and flags, in increasing order of precedence.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
	"golang.org/x/sync/errgroup"

	"github.com/wricardo/carsim/api"
	"github.com/wricardo/carsim/sim/config"
	"github.com/wricardo/carsim/sim/engine"
	"github.com/wricardo/carsim/sim/scenario"
	"github.com/wricardo/carsim/sim/service"
	"github.com/wricardo/carsim/sim/session"
	"github.com/wricardo/carsim/transport/mcp"
	"github.com/wricardo/carsim/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "carsim"
)

const (
	sessionCleanupInterval = time.Hour
	sessionMaxAge          = 24 * time.Hour
	shutdownTimeout        = 10 * time.Second
)

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:    AppName,
		Usage:   "stepwise multi-car grid simulator",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "settings",
				Usage:   "settings file (default: " + config.DefaultSettingsFile + " when present)",
				Sources: cli.EnvVars(config.EnvPrefix + "SETTINGS"),
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "enable debug logging, including the per-step trace",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "run",
				Usage:     "run a scenario file and print the first collision",
				ArgsUsage: "<input_file>",
				Action:    runCommand,
			},
			{
				Name:  "serve",
				Usage: "run the HTTP server with REST API, WebSocket, and MCP endpoint",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "addr", Usage: "listen address (overrides settings)"},
					&cli.StringFlag{Name: "scenarios", Usage: "scenario directory (overrides settings)"},
					&cli.BoolFlag{
						Name:    "ngrok",
						Usage:   "expose the server through an ngrok tunnel",
						Sources: cli.EnvVars("NGROK_ENABLED"),
					},
					&cli.StringFlag{
						Name:    "ngrok-authtoken",
						Usage:   "ngrok auth token",
						Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN"),
					},
					&cli.StringFlag{
						Name:    "ngrok-domain",
						Usage:   "custom ngrok domain",
						Sources: cli.EnvVars("NGROK_DOMAIN"),
					},
				},
				Action: serveCommand,
			},
			{
				Name:    "mcp",
				Aliases: []string{"stdio-mcp", "mcp-stdio"},
				Usage:   "run an MCP stdio server backed by the REST API",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "addr", Usage: "address of an external API to reuse (overrides settings)"},
					&cli.StringFlag{Name: "scenarios", Usage: "scenario directory for the internal API (overrides settings)"},
				},
				Action: mcpCommand,
			},
		},
	}
}

// loadSettings layers the flags of cmd over the settings file and environment
func loadSettings(cmd *cli.Command) (config.Settings, error) {
	settings, err := config.LoadSettings(cmd.String("settings"))
	if err != nil {
		return settings, err
	}
	if cmd.Bool("debug") {
		settings.LogLevel = "debug"
	}
	if addr := cmd.String("addr"); addr != "" {
		settings.Addr = addr
	}
	if dir := cmd.String("scenarios"); dir != "" {
		settings.ScenariosDir = dir
	}
	return settings, nil
}

func runCommand(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 1 {
		return cli.Exit(fmt.Sprintf("Usage: %s run <input_file>\n\n%s", AppName, scenario.FormatHelp), 1)
	}

	settings, err := loadSettings(cmd)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	logger := settings.NewLogger(os.Stderr)

	output, err := runScenarioFile(cmd.Args().First(), settings.GridLimits(), logger)
	if err != nil {
		return cli.Exit(fmt.Sprintf("Error: %v\n\n%s", err, scenario.FormatHelp), 1)
	}

	fmt.Fprintln(cmd.Root().Writer, output)
	return nil
}

// runScenarioFile parses and runs the scenario at path, returning the
// outcome as printed by the run command. The step trace is logged at debug
// level.
func runScenarioFile(path string, limits engine.GridLimits, logger *log.Logger) (string, error) {
	sc, err := scenario.ParseFile(path)
	if err != nil {
		return "", err
	}

	opts := []engine.GridOption{engine.WithLimits(limits)}
	if logger.GetLevel() <= log.DebugLevel {
		opts = append(opts, engine.WithObserver(engine.NewLogObserver(logger)))
	}

	sim, err := sc.Simulation(opts...)
	if err != nil {
		return "", err
	}
	return sim.Run().String(), nil
}

// stack is the wired set of services behind the HTTP handler
type stack struct {
	sessions *session.Manager
	service  service.SimulationService
	hub      *websocket.Hub
	handler  http.Handler
}

// newStack wires session/scenario managers, the simulation service and the
// HTTP handler. mcpBaseURL is the API address the /mcp endpoint proxies to.
func newStack(settings config.Settings, logger *log.Logger, mcpBaseURL string) (*stack, error) {
	scenarios, err := config.NewManager(settings.ScenariosDir, settings.GridLimits())
	if err != nil {
		return nil, fmt.Errorf("failed to create scenario manager: %w", err)
	}

	sessions := session.NewManager()
	hub := websocket.NewHub(logger.With("component", "ws"))

	svc := service.NewSimulationService(sessions, scenarios,
		service.WithLimits(settings.GridLimits()),
		service.WithLogger(logger),
		service.WithObserverFactory(hub.Observer),
		service.WithStepDelay(settings.StepDelay()),
	)

	apiServer := api.NewServer(svc, hub, logger.With("component", "api"))
	if mcpBaseURL != "" {
		apiServer.Router().Handle("/mcp", mcpHandler(mcp.NewClient(mcpBaseURL))).Methods("POST")
	}

	return &stack{sessions: sessions, service: svc, hub: hub, handler: apiServer}, nil
}

// mcpHandler serves single JSON-RPC MCP messages over HTTP
func mcpHandler(client *mcp.Client) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := client.GetMCPServer().HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	})
}

// cleanupSessions periodically removes sessions that have not been accessed
// within maxAge, until ctx is done.
func cleanupSessions(ctx context.Context, sessions *session.Manager, logger *log.Logger, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := sessions.CleanupExpiredSessions(maxAge); removed > 0 {
				logger.Info("cleaned up expired sessions", "count", removed)
			}
		}
	}
}

func serveCommand(ctx context.Context, cmd *cli.Command) error {
	settings, err := loadSettings(cmd)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	logger := settings.NewLogger(os.Stderr)
	logger.Info("starting", "app", AppName, "version", Version, "mode", "serve")

	st, err := newStack(settings, logger, "http://"+settings.Addr)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpServer := &http.Server{
		Addr:         settings.Addr,
		Handler:      st.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		st.hub.Run(gctx)
		return nil
	})

	g.Go(func() error {
		cleanupSessions(gctx, st.sessions, logger, sessionCleanupInterval, sessionMaxAge)
		return nil
	})

	g.Go(func() error {
		logger.Info("HTTP server listening", "addr", settings.Addr)
		logger.Info("endpoints",
			"api", "http://"+settings.Addr+"/api",
			"ws", "ws://"+settings.Addr+"/ws?session=<session_id>",
			"mcp", "http://"+settings.Addr+"/mcp")

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if cmd.Bool("ngrok") {
		g.Go(func() error {
			return serveNgrok(gctx, cmd.String("ngrok-authtoken"), cmd.String("ngrok-domain"), st.handler, logger)
		})
	}

	if err := g.Wait(); err != nil {
		return cli.Exit(err.Error(), 1)
	}
	logger.Info("server stopped")
	return nil
}

// serveNgrok exposes handler through an ngrok tunnel until ctx is done. A
// missing auth token disables the tunnel with a warning.
func serveNgrok(ctx context.Context, authToken, domain string, handler http.Handler, logger *log.Logger) error {
	if authToken == "" {
		logger.Warn("ngrok enabled but no auth token provided (use --ngrok-authtoken or NGROK_AUTHTOKEN)")
		return nil
	}

	var tunnel ngrokConfig.Tunnel
	if domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(domain))
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(authToken))
	if err != nil {
		logger.Error("failed to start ngrok tunnel", "err", err)
		return nil
	}

	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			logger.Warn("failed to close ngrok tunnel", "err", err)
		}
	}()

	ngrokURL := tun.URL()
	logger.Info("ngrok tunnel established", "url", ngrokURL,
		"api", ngrokURL+"/api", "mcp", ngrokURL+"/mcp")

	if err := http.Serve(tun, handler); err != nil && !errors.Is(err, http.ErrServerClosed) && ctx.Err() == nil {
		logger.Error("ngrok server error", "err", err)
	}
	logger.Info("ngrok tunnel closed")
	return nil
}

// externalAPIAvailable reports whether an API already answers at baseURL
func externalAPIAvailable(baseURL string) bool {
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(baseURL + "/api/health")
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// mcpCommand runs an MCP stdio server. It reuses an API already listening
// at the configured address; otherwise it starts an internal API on a random
// loopback port. Logs go to stderr since stdout carries the protocol.
func mcpCommand(ctx context.Context, cmd *cli.Command) error {
	settings, err := loadSettings(cmd)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	logger := settings.NewLogger(os.Stderr)

	baseURL := "http://" + settings.Addr
	if externalAPIAvailable(baseURL) {
		logger.Info("external API server found, using it for MCP", "url", baseURL)
	} else {
		logger.Info("no external API server found, starting internal HTTP server")

		st, err := newStack(settings, logger, "")
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return cli.Exit(fmt.Sprintf("failed to get available port: %v", err), 1)
		}
		baseURL = "http://" + listener.Addr().String()

		ctx, cancel := context.WithCancel(ctx)
		defer cancel()
		go st.hub.Run(ctx)

		httpServer := &http.Server{Handler: st.handler}
		go func() {
			if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("internal HTTP server error", "err", err)
			}
		}()
		defer httpServer.Close()

		logger.Info("internal HTTP server started", "url", baseURL)
	}

	client := mcp.NewClient(baseURL)
	logger.Info("MCP stdio server ready")

	if err := server.ServeStdio(client.GetMCPServer()); err != nil {
		return cli.Exit(fmt.Sprintf("MCP stdio server error: %v", err), 1)
	}
	return nil
}
