package main

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
	webview "github.com/webview/webview_go"

	"github.com/kartoza/moment-rotation/internal/api"
	"github.com/kartoza/moment-rotation/internal/config"
	"github.com/kartoza/moment-rotation/internal/dialog"
	"github.com/kartoza/moment-rotation/internal/plot"
	"github.com/kartoza/moment-rotation/internal/prediction"
	"github.com/kartoza/moment-rotation/internal/registry"
	"github.com/kartoza/moment-rotation/internal/scaler"
	"github.com/kartoza/moment-rotation/internal/server"
	"github.com/kartoza/moment-rotation/internal/session"
)

var version = "dev"

func main() {
	// a missing .env is normal
	_ = godotenv.Load()

	app := &cli.App{
		Name:    "moment-rotation",
		Usage:   "Predict the moment-rotation response of stainless-steel flush end-plate connections",
		Version: version,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Value:   8080,
				Usage:   "HTTP server port (the next free port is used if taken)",
				EnvVars: []string{"MOMENT_ROTATION_PORT"},
			},
			&cli.StringFlag{
				Name:    "models-dir",
				Value:   "saved_models",
				Usage:   "Directory containing the model artifacts",
				EnvVars: []string{"MOMENT_ROTATION_MODELS_DIR"},
			},
			&cli.StringFlag{
				Name:    "config",
				Usage:   "Path to a YAML configuration file",
				EnvVars: []string{"MOMENT_ROTATION_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"MOMENT_ROTATION_LOG_LEVEL"},
			},
			&cli.BoolFlag{
				Name:    "dev",
				Usage:   "Human-readable console logs",
				EnvVars: []string{"MOMENT_ROTATION_DEV"},
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg.Version = version

	// explicit flags and env vars win over the file
	if c.IsSet("port") {
		cfg.Port = c.Int("port")
	}
	if c.IsSet("models-dir") {
		cfg.ModelsDir = c.String("models-dir")
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	if c.IsSet("dev") {
		cfg.Dev = c.Bool("dev")
	}

	setupLogging(cfg)

	availablePort, err := findAvailablePort(cfg.Port, 10)
	if err != nil {
		return err
	}
	if availablePort != cfg.Port {
		log.Info().Msgf("Port %d in use, using port %d instead", cfg.Port, availablePort)
		cfg.Port = availablePort
	}

	log.Info().Str("version", version).Str("models_dir", cfg.ModelsDir).Msg("Moment-rotation predictor starting")

	// models are loaded once; missing artifacts only disable their outputs
	reg := registry.Load(cfg.ModelsDir)
	if reg.Loaded() < 4 {
		log.Warn().Int("loaded", reg.Loaded()).Msg("Some models are not loaded")
	}

	sc, err := scaler.New(scaler.DefaultConfig())
	if err != nil {
		return fmt.Errorf("scaler: %w", err)
	}

	sess := session.New(
		prediction.NewService(sc, reg),
		plot.NewSurface(),
		dialog.NewNative(),
		session.WithPlotSize(cfg.Plot.Width, cfg.Plot.Height),
	)

	srv, err := server.New(cfg, api.NewHandler(sess, reg, cfg))
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	serverURL := fmt.Sprintf("http://localhost:%d", cfg.Port)
	waitForServer(serverURL, 10*time.Second)

	log.Info().Msg("Opening application window")
	w := webview.New(cfg.Dev)
	defer w.Destroy()

	w.SetTitle(cfg.Window.Title)
	w.SetSize(cfg.Window.Width, cfg.Window.Height, webview.HintNone)
	w.Navigate(serverURL)

	// When the server fails or a signal arrives, close the window
	go func() {
		select {
		case err := <-errCh:
			// nil means Stop was called after the window closed
			if err == nil {
				return
			}
			log.Error().Err(err).Msg("Server error")
			w.Dispatch(w.Terminate)
		case sig := <-stop:
			log.Info().Msgf("Received %v signal, shutting down", sig)
			w.Dispatch(w.Terminate)
		}
	}()

	// Run blocks until the window is closed
	w.Run()

	log.Info().Msg("Window closed, shutting down server")
	return srv.Stop()
}

func setupLogging(cfg config.Config) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if cfg.Dev {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}

// waitForServer polls until the server is accepting connections
func waitForServer(url string, timeout time.Duration) {
	addr := url[len("http://"):]
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", addr, 500*time.Millisecond)
		if err == nil {
			conn.Close()
			return
		}
		time.Sleep(100 * time.Millisecond)
	}
	log.Warn().Str("url", url).Msg("Server may not be ready")
}

// findAvailablePort finds an available port, starting from the given port.
// If the port is in use, it tries subsequent ports up to maxAttempts times.
func findAvailablePort(startPort int, maxAttempts int) (int, error) {
	for i := 0; i < maxAttempts; i++ {
		port := startPort + i
		listener, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
		if err == nil {
			listener.Close()
			return port, nil
		}
	}
	return 0, fmt.Errorf("no available port found after %d attempts starting from %d", maxAttempts, startPort)
}
