// Command rpsls plays Rock Paper Scissors Lizard Spock against a remote game
// server.
//
// It supports these commands:
//  1. "play" (default) – terminal view of one game, plus the local control API
//  2. "serve" – headless game with the control API, observer websocket and /mcp endpoint
//  3. "mcp" – MCP stdio server proxying to a running client's control API
//  4. "bot" – play automatically through a running client's control API
//  5. "whoami" – print the persisted user id
//  6. "profiles" – list profiles, or save the effective one under a name
//  7. "validate" – check profile JSON files
//
// Flags and RPSLS_* environment variables override the selected profile.
// A .env file in the working directory is loaded first.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"
	"github.com/wricardo/rpsls/api"
	"github.com/wricardo/rpsls/bot"
	"github.com/wricardo/rpsls/game/config"
	"github.com/wricardo/rpsls/game/identity"
	"github.com/wricardo/rpsls/game/service"
	"github.com/wricardo/rpsls/game/session"
	"github.com/wricardo/rpsls/transport/mcp"
	"github.com/wricardo/rpsls/transport/terminal"
	"github.com/wricardo/rpsls/transport/websocket"
	"github.com/wricardo/rpsls/validate"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
	"golang.org/x/sync/errgroup"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "rpsls"
)

const (
	defaultAPIAddr  = "127.0.0.1:8090"
	logFileName     = "rpsls.log"
	shutdownTimeout = 5 * time.Second
)

var errInvalidProfiles = errors.New("some profiles are invalid")

func main() {
	// Load .env file if it exists (ignore error if not found)
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: error loading .env file: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:      AppName,
		Usage:     "Rock Paper Scissors Lizard Spock client",
		Version:   Version,
		ArgsUsage: "[game link or id]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config-dir",
				Value:   "configs",
				Usage:   "directory containing profile JSON files",
				Sources: cli.EnvVars("RPSLS_CONFIG_DIR", "CONFIG_DIR"),
			},
			&cli.StringFlag{
				Name:    "profile",
				Value:   config.DefaultProfileName,
				Usage:   "profile to load from the config directory",
				Sources: cli.EnvVars("RPSLS_PROFILE"),
			},
			&cli.StringFlag{
				Name:    "server-url",
				Usage:   "game server websocket URL (overrides the profile)",
				Sources: cli.EnvVars("RPSLS_SERVER_URL"),
			},
			&cli.StringFlag{
				Name:    "share-url",
				Usage:   "base of the shareable game link (overrides the profile)",
				Sources: cli.EnvVars("RPSLS_SHARE_URL"),
			},
			&cli.StringFlag{
				Name:    "data-dir",
				Usage:   "directory for the persisted user id and log file (overrides the profile)",
				Sources: cli.EnvVars("RPSLS_DATA_DIR"),
			},
			&cli.StringFlag{
				Name:    "lock-policy",
				Usage:   "which pushes release a submitted play: any or round (overrides the profile)",
				Sources: cli.EnvVars("RPSLS_LOCK_POLICY"),
			},
			&cli.DurationFlag{
				Name:    "lock-timeout",
				Usage:   "release a play the server never answered after this long, 0 to wait forever (overrides the profile)",
				Sources: cli.EnvVars("RPSLS_LOCK_TIMEOUT"),
			},
			&cli.StringFlag{
				Name:    "api-addr",
				Value:   defaultAPIAddr,
				Usage:   "listen address of the local control API, empty to disable",
				Sources: cli.EnvVars("RPSLS_API_ADDR"),
			},
			&cli.BoolFlag{
				Name:    "ephemeral",
				Usage:   "use a fresh user id that is not persisted",
				Sources: cli.EnvVars("RPSLS_EPHEMERAL"),
			},
			&cli.BoolFlag{
				Name:    "debug",
				Usage:   "enable debug logging",
				Sources: cli.EnvVars("RPSLS_DEBUG"),
			},
		},
		Action: runPlay,
		Commands: []*cli.Command{
			{
				Name:      "play",
				Usage:     "play a game in the terminal (join one by passing its link or id)",
				ArgsUsage: "[game link or id]",
				Action:    runPlay,
			},
			{
				Name:      "serve",
				Usage:     "run a game headless behind the control API",
				ArgsUsage: "[game link or id]",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "ngrok",
						Usage:   "expose the control API through an ngrok tunnel",
						Sources: cli.EnvVars("NGROK_ENABLED"),
					},
					&cli.StringFlag{
						Name:    "ngrok-auth",
						Usage:   "ngrok auth token",
						Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN"),
					},
					&cli.StringFlag{
						Name:    "ngrok-domain",
						Usage:   "custom ngrok domain",
						Sources: cli.EnvVars("NGROK_DOMAIN"),
					},
				},
				Action: runServe,
			},
			{
				Name:  "mcp",
				Usage: "run an MCP stdio server against a running client",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "api-url",
						Value:   "http://" + defaultAPIAddr,
						Usage:   "control API of the running client",
						Sources: cli.EnvVars("RPSLS_API_URL"),
					},
				},
				Action: runMCP,
			},
			{
				Name:  "bot",
				Usage: "play automatically through a running client's control API",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "api-url",
						Value:   "http://" + defaultAPIAddr,
						Usage:   "control API of the running client",
						Sources: cli.EnvVars("RPSLS_API_URL"),
					},
					&cli.StringFlag{
						Name:  "strategy",
						Value: "counter",
						Usage: "one of " + strings.Join(bot.Strategies(), ", "),
					},
					&cli.DurationFlag{
						Name:  "interval",
						Value: time.Second,
						Usage: "how often to poll the game state",
					},
					&cli.IntFlag{
						Name:  "rounds",
						Usage: "stop after this many plays, 0 for no limit",
					},
				},
				Action: runBot,
			},
			{
				Name:   "whoami",
				Usage:  "print the persisted user id",
				Action: runWhoami,
			},
			{
				Name:   "profiles",
				Usage:  "list the profiles in the config directory",
				Action: runProfilesList,
				Commands: []*cli.Command{
					{
						Name:   "list",
						Usage:  "list the valid profiles in the config directory",
						Action: runProfilesList,
					},
					{
						Name:      "save",
						Usage:     "save the selected profile, with flag overrides applied, under a new name",
						ArgsUsage: "<name>",
						Action:    runProfilesSave,
					},
				},
			},
			{
				Name:      "validate",
				Usage:     "validate profile JSON files",
				ArgsUsage: "[dir]",
				Action:    runValidate,
			},
		},
	}
}

// newLogger builds the console logger. Debug lowers the level.
func newLogger(w io.Writer, debug bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}).
		Level(level).
		With().
		Timestamp().
		Logger()
}

// loadProfile resolves the selected profile and applies flag overrides
func loadProfile(cmd *cli.Command) (*config.Profile, error) {
	manager, err := config.NewManager(cmd.String("config-dir"))
	if err != nil {
		return nil, fmt.Errorf("failed to create config manager: %w", err)
	}

	base, err := manager.Resolve(cmd.String("profile"))
	if err != nil {
		return nil, fmt.Errorf("failed to load profile %q: %w", cmd.String("profile"), err)
	}

	profile := *base
	if cmd.IsSet("server-url") {
		profile.ServerURL = cmd.String("server-url")
	}
	if cmd.IsSet("share-url") {
		profile.ShareBaseURL = cmd.String("share-url")
	}
	if cmd.IsSet("data-dir") {
		profile.DataDir = cmd.String("data-dir")
	}
	if cmd.IsSet("lock-policy") {
		profile.LockPolicy = cmd.String("lock-policy")
	}
	if cmd.IsSet("lock-timeout") {
		profile.LockTimeout = config.Duration(cmd.Duration("lock-timeout"))
	}
	if profile.ShareBaseURL == "" {
		profile.ShareBaseURL = config.DefaultShareBaseURL
	}
	if profile.DataDir == "" {
		profile.DataDir = config.DefaultDataDir
	}

	if err := config.ValidateProfile(&profile); err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrInvalidConfig, err)
	}
	return &profile, nil
}

// newIdentity returns the user id provider for the profile's data dir
func newIdentity(profile *config.Profile, ephemeral bool, logger zerolog.Logger) (*identity.Provider, error) {
	if ephemeral {
		return identity.NewProvider(identity.NewMemoryStore(), identity.WithLogger(logger)), nil
	}

	store, err := identity.NewFileStore(profile.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open identity store: %w", err)
	}
	return identity.NewProvider(store, identity.WithLogger(logger)), nil
}

// shareAddress builds the navigable address. join may be a full game link,
// a bare game id or empty for a new game.
func shareAddress(base, join string) (*session.URLAddress, error) {
	join = strings.TrimSpace(join)
	if strings.HasPrefix(join, "http://") || strings.HasPrefix(join, "https://") {
		return session.ParseURLAddress(join)
	}

	addr, err := session.ParseURLAddress(base)
	if err != nil {
		return nil, err
	}
	if session.FirstSegment(addr.Path()) != "" {
		return nil, fmt.Errorf("%w: share base %q already names a game", session.ErrInvalidAddress, base)
	}

	if id := strings.Trim(join, "/"); id != "" {
		if strings.Contains(id, "/") {
			return nil, fmt.Errorf("%w: game id %q", session.ErrInvalidAddress, join)
		}
		if err := addr.Replace("/" + id); err != nil {
			return nil, err
		}
	}
	return addr, nil
}

// newGame wires identity, address, connection and service for one game
func newGame(cmd *cli.Command, profile *config.Profile, logger zerolog.Logger) (*service.Service, error) {
	ids, err := newIdentity(profile, cmd.Bool("ephemeral"), logger)
	if err != nil {
		return nil, err
	}

	addr, err := shareAddress(profile.ShareBaseURL, cmd.Args().First())
	if err != nil {
		return nil, err
	}
	addr.OnChange(func(link string) {
		logger.Info().Str("link", link).Msg("share this link to invite a second player")
	})

	conn := websocket.NewConn(websocket.Config{
		URL:        profile.ServerURL,
		WriteWait:  profile.WriteWait.Std(),
		PongWait:   profile.PongWait.Std(),
		PingPeriod: profile.PingPeriod.Std(),
		SendBuffer: profile.SendBuffer,
	}, websocket.WithLogger(logger.With().Str("component", "conn").Logger()))

	return service.New(service.Options{
		Conn:        conn,
		Identity:    ids,
		Resolver:    session.NewResolver(addr),
		Link:        addr,
		ServerURL:   profile.ServerURL,
		LockPolicy:  profile.Policy(),
		LockTimeout: profile.LockTimeout.Std(),
		Logger:      logger.With().Str("component", "service").Logger(),
	})
}

// runPlay shows one game in the terminal. Logs go to a file in the data
// dir because the view owns the screen.
func runPlay(ctx context.Context, cmd *cli.Command) error {
	profile, err := loadProfile(cmd)
	if err != nil {
		return err
	}

	logOut := io.Discard
	if err := os.MkdirAll(profile.DataDir, 0755); err == nil {
		if f, err := os.OpenFile(filepath.Join(profile.DataDir, logFileName), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644); err == nil {
			defer f.Close()
			logOut = f
		}
	}
	logger := newLogger(logOut, cmd.Bool("debug"))

	svc, err := newGame(cmd, profile, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return svc.Start(gctx)
	})

	if addr := cmd.String("api-addr"); addr != "" {
		serveControl(gctx, g, addr, svc, nil, true, logger)
	}

	g.Go(func() error {
		defer cancel()
		return terminal.Run(gctx, svc)
	})

	return g.Wait()
}

// runServe runs one game headless. The control API stays up after the game
// connection ends so its final state can still be read.
func runServe(ctx context.Context, cmd *cli.Command) error {
	logger := newLogger(os.Stderr, cmd.Bool("debug"))

	profile, err := loadProfile(cmd)
	if err != nil {
		return err
	}

	svc, err := newGame(cmd, profile, logger)
	if err != nil {
		return err
	}

	addr := cmd.String("api-addr")
	if addr == "" {
		return errors.New("serve needs --api-addr")
	}

	hub := websocket.NewHub(logger.With().Str("component", "hub").Logger())

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})

	updates, unsubscribe := svc.Subscribe()
	g.Go(func() error {
		defer unsubscribe()
		for st := range updates {
			hub.BroadcastState(st)
		}
		hub.BroadcastClosed()
		return nil
	})

	g.Go(func() error {
		if err := svc.Start(gctx); err != nil {
			return err
		}
		logger.Warn().Str("status", string(svc.Info().Status)).Msg("game connection ended; control API still serving")
		return nil
	})

	handler := serveControl(gctx, g, addr, svc, hub, false, logger)

	if cmd.Bool("ngrok") {
		serveNgrok(gctx, g, cmd.String("ngrok-auth"), cmd.String("ngrok-domain"), handler, logger)
	}

	logger.Info().
		Str("version", Version).
		Str("server", profile.ServerURL).
		Str("lock_policy", string(profile.Policy())).
		Msg("rpsls serving")
	return g.Wait()
}

// serveControl starts the control API on addr and returns its handler.
// The server shuts down when ctx is done. An optional API that cannot
// listen is logged instead of failing the group.
func serveControl(ctx context.Context, g *errgroup.Group, addr string, svc service.GameService, hub *websocket.Hub, optional bool, logger zerolog.Logger) http.Handler {
	apiServer := api.NewServer(svc, hub, logger.With().Str("component", "api").Logger())

	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", apiServer)
	mainRouter.Handle("/mcp", mcpHandler(mcp.NewClient("http://"+addr, mcp.WithLogger(logger))))

	httpServer := &http.Server{
		Addr:        addr,
		Handler:     mainRouter,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	g.Go(func() error {
		logger.Info().
			Str("api", fmt.Sprintf("http://%s/api", addr)).
			Str("mcp", fmt.Sprintf("http://%s/mcp", addr)).
			Msg("control API listening")
		err := httpServer.ListenAndServe()
		switch {
		case err == nil || errors.Is(err, http.ErrServerClosed):
			return nil
		case optional:
			logger.Warn().Err(err).Msg("control API unavailable; continuing without it")
			return nil
		default:
			return fmt.Errorf("control API failed: %w", err)
		}
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("control API shutdown")
		}
		return nil
	})

	return mainRouter
}

// mcpHandler serves single MCP JSON-RPC messages over HTTP POST
func mcpHandler(client *mcp.Client) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
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

		response := client.GetMCPServer().HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(response); err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
		}
	})
}

// serveNgrok exposes handler through an ngrok tunnel. A tunnel that cannot
// be opened is logged and skipped.
func serveNgrok(ctx context.Context, g *errgroup.Group, authToken, domain string, handler http.Handler, logger zerolog.Logger) {
	if authToken == "" {
		logger.Warn().Msg("ngrok enabled but no auth token provided (use --ngrok-auth or NGROK_AUTHTOKEN)")
		return
	}

	var tunnel ngrokConfig.Tunnel
	if domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(domain))
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	g.Go(func() error {
		tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(authToken))
		if err != nil {
			logger.Error().Err(err).Msg("failed to start ngrok tunnel")
			return nil
		}

		go func() {
			<-ctx.Done()
			if err := tun.Close(); err != nil {
				logger.Warn().Err(err).Msg("failed to close ngrok tunnel")
			}
		}()

		logger.Info().
			Str("url", tun.URL()).
			Str("observers", strings.Replace(tun.URL(), "https://", "wss://", 1)+"/ws").
			Msg("ngrok tunnel established")

		if err := http.Serve(tun, handler); err != nil && ctx.Err() == nil {
			logger.Error().Err(err).Msg("ngrok server error")
		}
		logger.Info().Msg("ngrok tunnel closed")
		return nil
	})
}

// runMCP serves MCP over stdio. Stdout carries the protocol, so nothing
// else may write to it.
func runMCP(ctx context.Context, cmd *cli.Command) error {
	logger := newLogger(os.Stderr, cmd.Bool("debug"))
	apiURL := cmd.String("api-url")

	logger.Info().Str("api", apiURL).Msg("MCP stdio server ready")
	if err := server.ServeStdio(mcp.NewClient(apiURL, mcp.WithLogger(logger)).GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}

// runBot plays through the control API until the round limit or a signal
func runBot(ctx context.Context, cmd *cli.Command) error {
	logger := newLogger(os.Stderr, cmd.Bool("debug"))

	strategy, err := bot.NewStrategy(cmd.String("strategy"), nil)
	if err != nil {
		return err
	}

	b := bot.New(bot.NewClient(cmd.String("api-url")), strategy, cmd.Duration("interval"), int(cmd.Int("rounds")), logger)
	result, err := b.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.Root().Writer, "played %d rounds, score %d - %d\n", result.Plays, result.YourScore, result.TheirScore)
	return nil
}

func runWhoami(ctx context.Context, cmd *cli.Command) error {
	profile, err := loadProfile(cmd)
	if err != nil {
		return err
	}

	ids, err := newIdentity(profile, cmd.Bool("ephemeral"), zerolog.Nop())
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.Root().Writer, ids.UserID())
	return nil
}

func runProfilesList(ctx context.Context, cmd *cli.Command) error {
	dir := cmd.String("config-dir")
	manager, err := config.NewManager(dir)
	if err != nil {
		return fmt.Errorf("failed to create config manager: %w", err)
	}

	infos, err := manager.ListConfigs()
	if err != nil {
		return err
	}

	w := cmd.Root().Writer
	if len(infos) == 0 {
		fmt.Fprintf(w, "No profiles in %s, using the built-in default\n", dir)
		return nil
	}
	for _, info := range infos {
		fmt.Fprintf(w, "%-16s %-24s %s\n", info.ConfigID, info.Name, info.ServerURL)
		if info.Description != "" {
			fmt.Fprintf(w, "%-16s %s\n", "", info.Description)
		}
	}
	return nil
}

func runProfilesSave(ctx context.Context, cmd *cli.Command) error {
	name := strings.TrimSuffix(cmd.Args().First(), ".json")
	if name == "" {
		return errors.New("profile name is required")
	}
	if strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("invalid profile name %q", name)
	}

	profile, err := loadProfile(cmd)
	if err != nil {
		return err
	}
	saved := *profile
	saved.Name = name

	manager, err := config.NewManager(cmd.String("config-dir"))
	if err != nil {
		return fmt.Errorf("failed to create config manager: %w", err)
	}
	if err := manager.SaveConfig(name, &saved); err != nil {
		return err
	}

	fmt.Fprintf(cmd.Root().Writer, "Saved %s\n", filepath.Join(cmd.String("config-dir"), name+".json"))
	return nil
}

func runValidate(ctx context.Context, cmd *cli.Command) error {
	dir := cmd.Args().First()
	if dir == "" {
		dir = cmd.String("config-dir")
	}

	results, err := validate.Dir(dir)
	if err != nil {
		return err
	}

	if !validate.Report(cmd.Root().Writer, results) {
		return errInvalidProfiles
	}
	return nil
}
