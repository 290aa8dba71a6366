// Command rescue-grid serves the rescue simulation.
//
// Commands:
//  1. "serve" (default) runs the HTTP server exposing the REST API, WebSocket
//     updates and an /mcp HTTP endpoint, optionally behind an ngrok tunnel
//  2. "mcp" runs an MCP stdio server and spins up an internal HTTP API if none
//     is reachable
//  3. "validate", "schema" and "route" are offline helpers for scenario authors
//
// Settings come from defaults, then an optional YAML file, then the
// environment (a .env file is loaded first), then command line flags.
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
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"

	"github.com/wricardo/rescue-grid/api"
	"github.com/wricardo/rescue-grid/game/config"
	"github.com/wricardo/rescue-grid/game/engine"
	"github.com/wricardo/rescue-grid/game/grid"
	"github.com/wricardo/rescue-grid/game/service"
	"github.com/wricardo/rescue-grid/game/session"
	"github.com/wricardo/rescue-grid/logger"
	"github.com/wricardo/rescue-grid/transport/mcp"
	"github.com/wricardo/rescue-grid/transport/websocket"
	"github.com/wricardo/rescue-grid/validate"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Rescue Grid Server"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: Error loading .env file: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:    "rescue-grid",
		Usage:   AppName,
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "settings", Usage: "YAML settings file", Sources: cli.EnvVars("RESCUE_SETTINGS")},
			&cli.StringFlag{Name: "host", Usage: "HTTP server host"},
			&cli.IntFlag{Name: "port", Usage: "HTTP server port"},
			&cli.StringFlag{Name: "config-dir", Usage: "Directory containing scenario files"},
			&cli.StringFlag{Name: "sessions-dir", Usage: "Directory for persisted sessions"},
			&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error"},
			&cli.StringFlag{Name: "log-file", Usage: "Also write JSON logs to this file (rotated)"},
			&cli.BoolFlag{Name: "debug", Usage: "Shorthand for --log-level debug"},
		},
		Action: serveAction,
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "Run HTTP server with API, WebSocket and MCP endpoint",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "ngrok", Usage: "Enable ngrok tunnel", Sources: cli.EnvVars("NGROK_ENABLED")},
					&cli.StringFlag{Name: "ngrok-auth", Usage: "Ngrok auth token", Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN")},
					&cli.StringFlag{Name: "ngrok-domain", Usage: "Custom ngrok domain", Sources: cli.EnvVars("NGROK_DOMAIN")},
				},
				Action: serveAction,
			},
			{
				Name:  "mcp",
				Usage: "Run MCP stdio server, reusing an external API when one answers",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "api-url", Value: "http://localhost:8080", Usage: "External API to proxy"},
				},
				Action: mcpAction,
			},
			{
				Name:      "validate",
				Usage:     "Validate scenario files",
				ArgsUsage: "[dir]",
				Action:    validateAction,
			},
			{
				Name:   "schema",
				Usage:  "Print the JSON schema of scenario files",
				Action: schemaAction,
			},
			{
				Name:      "route",
				Usage:     "Plan a route in a fresh world and print it",
				ArgsUsage: "<scenario> <agent> <x> <y>",
				Action:    routeAction,
			},
		},
	}
}

// loadSettings applies command line flags on top of LoadSettings
func loadSettings(cmd *cli.Command) (*config.Settings, error) {
	s, err := config.LoadSettings(cmd.String("settings"))
	if err != nil {
		return nil, err
	}
	if cmd.IsSet("host") {
		s.Server.Host = cmd.String("host")
	}
	if cmd.IsSet("port") {
		s.Server.Port = int(cmd.Int("port"))
	}
	if cmd.IsSet("config-dir") {
		s.ConfigDir = cmd.String("config-dir")
	}
	if cmd.IsSet("sessions-dir") {
		s.SessionsDir = cmd.String("sessions-dir")
	}
	if cmd.IsSet("log-level") {
		s.Log.Level = cmd.String("log-level")
	}
	if cmd.IsSet("log-file") {
		s.Log.File = cmd.String("log-file")
	}
	if cmd.Bool("debug") {
		s.Log.Level = "debug"
	}
	return s, s.Validate()
}

func setup(cmd *cli.Command) (*config.Settings, *zap.Logger, error) {
	s, err := loadSettings(cmd)
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.Init(s.Log.Level, s.Log.File)
	if err != nil {
		return nil, nil, err
	}
	return s, log, nil
}

func serveAction(ctx context.Context, cmd *cli.Command) error {
	s, log, err := setup(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	log.Info("starting", zap.String("app", AppName), zap.String("version", Version))

	gameService, err := initializeServices(ctx, s, log)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}

	return runHTTPServer(ctx, s, gameService, log, ngrokOptions{
		enabled: cmd.Bool("ngrok"),
		auth:    cmd.String("ngrok-auth"),
		domain:  cmd.String("ngrok-domain"),
	})
}

type ngrokOptions struct {
	enabled bool
	auth    string
	domain  string
}

// mcpHandler serves single JSON-RPC messages over HTTP POST
func mcpHandler(s *server.MCPServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := s.HandleMessage(r.Context(), body)

		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(responseData)
	}
}

// loopbackURL returns a URL for reaching a listener from the same host
func loopbackURL(addr net.Addr) string {
	port := 0
	if tcp, ok := addr.(*net.TCPAddr); ok {
		port = tcp.Port
	}
	return fmt.Sprintf("http://127.0.0.1:%d", port)
}

// newRouter mounts the REST API at the root and the MCP proxy at /mcp
func newRouter(apiServer http.Handler, mcpClient *mcp.Client) *http.ServeMux {
	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", apiServer)
	mainRouter.Handle("/mcp", mcpHandler(mcpClient.GetMCPServer()))
	return mainRouter
}

// runHTTPServer serves until ctx is cancelled or the listener fails
func runHTTPServer(ctx context.Context, s *config.Settings, gameService service.GameService, log *zap.Logger, ng ngrokOptions) error {
	hub := websocket.NewHub(log.Named("ws"))
	go hub.Run(ctx)

	apiServer := api.NewServer(gameService, hub, log.Named("api"))

	listener, err := net.Listen("tcp", s.Addr())
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.Addr(), err)
	}
	baseURL := loopbackURL(listener.Addr())
	mainRouter := newRouter(apiServer, mcp.NewClient(baseURL, log))

	httpServer := &http.Server{
		Handler:      mainRouter,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	var wg sync.WaitGroup
	errCh := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("HTTP server listening",
			zap.String("addr", listener.Addr().String()),
			zap.String("api", baseURL+"/api"),
			zap.String("ws", strings.Replace(baseURL, "http", "ws", 1)+"/ws?session=<session_id>"),
			zap.String("mcp", baseURL+"/mcp"))
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	if ng.enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrok(ctx, ng, mainRouter, log.Named("ngrok"))
		}()
	}

	var serveErr error
	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case serveErr = <-errCh:
		log.Error("HTTP server failed", zap.Error(serveErr))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP server shutdown error", zap.Error(err))
	}

	wg.Wait()
	log.Info("server stopped")
	return serveErr
}

func runNgrok(ctx context.Context, ng ngrokOptions, handler http.Handler, log *zap.Logger) {
	if ng.auth == "" {
		log.Warn("ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN or NGROK_AUTH_TOKEN)")
		return
	}

	var tunnel ngrokConfig.Tunnel
	if ng.domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(ng.domain))
		log.Info("using custom ngrok domain", zap.String("domain", ng.domain))
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(ng.auth))
	if err != nil {
		log.Error("failed to start ngrok tunnel", zap.Error(err))
		return
	}
	go func() {
		<-ctx.Done()
		tun.Close()
	}()

	url := tun.URL()
	log.Info("ngrok tunnel established",
		zap.String("url", url),
		zap.String("api", url+"/api"),
		zap.String("mcp", url+"/mcp"))

	if err := http.Serve(tun, handler); err != nil && !errors.Is(err, http.ErrServerClosed) && ctx.Err() == nil {
		log.Warn("ngrok server error", zap.Error(err))
	}
	log.Info("ngrok tunnel closed")
}

// initializeServices wires config and session managers into the game service
// and starts the background session maintenance routines.
func initializeServices(ctx context.Context, s *config.Settings, log *zap.Logger) (service.GameService, error) {
	configManager, err := config.NewManager(s.ConfigDir, log.Named("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to create config manager: %w", err)
	}

	persistence, err := session.NewFilePersistence(s.SessionsDir, configManager)
	if err != nil {
		return nil, fmt.Errorf("failed to create session persistence: %w", err)
	}

	sessionManager := session.NewManagerWithPersistence(persistence, log.Named("session"))
	if err := sessionManager.LoadPersistedSessions(); err != nil {
		log.Warn("failed to load persisted sessions", zap.Error(err))
	}

	gameService := service.NewGameServiceWithOptions(sessionManager, configManager, log.Named("service"), service.Options{
		Search:      s.Search,
		PlanWorkers: s.Sessions.PlanWorkers,
	})

	if s.Sessions.Retention > 0 && s.Sessions.CleanupInterval > 0 {
		go sessionCleanupRoutine(ctx, sessionManager, s.Sessions.Retention, s.Sessions.CleanupInterval, log)
	}
	go filesystemSyncRoutine(ctx, sessionManager, persistence, 5*time.Second, log)

	return gameService, nil
}

// sessionCleanupRoutine periodically removes sessions that have not been
// accessed within retention.
func sessionCleanupRoutine(ctx context.Context, manager *session.Manager, retention, interval time.Duration, log *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := manager.CleanupExpiredSessions(retention); removed > 0 {
				log.Info("cleaned up expired sessions", zap.Int("removed", removed))
			}
		}
	}
}

// filesystemSyncRoutine drops sessions from memory whose files were deleted
func filesystemSyncRoutine(ctx context.Context, manager *session.Manager, persistence session.SessionPersistence, interval time.Duration, log *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		pruned := syncWithFilesystem(manager, persistence, log)
		if pruned > 0 {
			log.Info("filesystem sync pruned orphaned sessions", zap.Int("pruned", pruned))
		}
	}
}

func syncWithFilesystem(manager *session.Manager, persistence session.SessionPersistence, log *zap.Logger) int {
	pruned := 0
	for _, sess := range manager.List() {
		if persistence.Exists(sess.ID) {
			continue
		}
		if err := manager.DeleteFromMemory(sess.ID); err == nil {
			pruned++
			log.Debug("pruned session from memory (file deleted)", zap.String("session", sess.ID))
		}
	}
	return pruned
}

func mcpAction(ctx context.Context, cmd *cli.Command) error {
	s, log, err := setup(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	baseURL, cleanup, err := mcpBackend(ctx, s, cmd.String("api-url"), log)
	if err != nil {
		return err
	}
	defer cleanup()

	mcpClient := mcp.NewClient(baseURL, log)
	log.Info("MCP stdio server ready", zap.String("api", baseURL))
	return server.ServeStdio(mcpClient.GetMCPServer())
}

// mcpBackend returns externalURL when its health check answers; otherwise
// it starts an internal API on a random loopback port.
func mcpBackend(ctx context.Context, s *config.Settings, externalURL string, log *zap.Logger) (string, func(), error) {
	if externalURL != "" {
		testClient := &http.Client{Timeout: 2 * time.Second}
		resp, err := testClient.Get(strings.TrimRight(externalURL, "/") + "/api/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode < 500 {
				log.Info("using external API server", zap.String("url", externalURL))
				return externalURL, func() {}, nil
			}
		}
	}

	log.Info("no external API server found, starting internal HTTP server")
	gameService, err := initializeServices(ctx, s, log)
	if err != nil {
		return "", nil, err
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", nil, fmt.Errorf("failed to get available port: %w", err)
	}

	hub := websocket.NewHub(log.Named("ws"))
	go hub.Run(ctx)
	httpServer := &http.Server{Handler: api.NewServer(gameService, hub, log.Named("api"))}
	go func() {
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("internal HTTP server error", zap.Error(err))
		}
	}()

	cleanup := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx)
	}
	return loopbackURL(listener.Addr()), cleanup, nil
}

func validateAction(ctx context.Context, cmd *cli.Command) error {
	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	dir := s.ConfigDir
	if cmd.Args().Len() > 0 {
		dir = cmd.Args().First()
	}

	results, err := validate.Dir(dir)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		return fmt.Errorf("no scenario files found in %s", dir)
	}

	report, ok := validate.Format(results)
	fmt.Fprint(cmd.Root().Writer, report)
	if !ok {
		return errors.New("some configurations have errors")
	}
	return nil
}

func schemaAction(ctx context.Context, cmd *cli.Command) error {
	r := &jsonschema.Reflector{}
	schema := r.Reflect(&engine.ScenarioConfig{})
	schema.Title = "Rescue Grid scenario"

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.Root().Writer, string(data))
	return nil
}

// loadScenario resolves a file path, the built-in "default" scenario, or a
// scenario name in the config directory, in that order.
func loadScenario(s *config.Settings, name string) (*engine.ScenarioConfig, error) {
	if info, err := os.Stat(name); err == nil && !info.IsDir() {
		return engine.LoadScenarioConfig(name)
	}
	if name == "default" {
		return engine.DefaultScenario(), nil
	}
	configs, err := config.NewManager(s.ConfigDir, nil)
	if err != nil {
		return nil, err
	}
	return configs.LoadConfig(name)
}

func routeAction(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 4 {
		return fmt.Errorf("usage: route <scenario> <agent> <x> <y>")
	}
	args := cmd.Args().Slice()
	x, errX := strconv.Atoi(args[2])
	y, errY := strconv.Atoi(args[3])
	if errX != nil || errY != nil {
		return fmt.Errorf("x and y must be integers, got %q %q", args[2], args[3])
	}

	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	scenario, err := loadScenario(s, args[0])
	if err != nil {
		return err
	}
	eng, err := engine.NewEngine(scenario, nil)
	if err != nil {
		return err
	}

	plan, err := eng.PlanRoute(args[1], grid.Pos(x, y))
	if err != nil {
		return err
	}

	w := cmd.Root().Writer
	fmt.Fprintf(w, "Route for %s to %s: %s (%s), %d steps, %d nodes expanded\n",
		plan.AgentID, plan.Goal, plan.Result.Status, plan.Result.Reason,
		plan.Result.Steps(), plan.Result.Expanded)
	if len(plan.Directions) > 0 {
		fmt.Fprintf(w, "Directions: %s\n", strings.Join(plan.Directions, " "))
	}
	for _, row := range drawRoute(engine.RenderASCII(eng.Snapshot()), plan.Result.Path) {
		fmt.Fprintln(w, row)
	}
	return nil
}

// drawRoute marks the interior of path with '*'
func drawRoute(rows []string, path []grid.Position) []string {
	out := make([][]byte, len(rows))
	for i, r := range rows {
		out[i] = []byte(r)
	}
	for i, p := range path {
		if i == 0 || i == len(path)-1 {
			continue
		}
		if p.Y >= 0 && p.Y < len(out) && p.X >= 0 && p.X < len(out[p.Y]) {
			out[p.Y][p.X] = '*'
		}
	}
	lines := make([]string, len(out))
	for i, r := range out {
		lines[i] = string(r)
	}
	return lines
}
