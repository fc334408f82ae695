package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	webview "github.com/webview/webview_go"
	"go.uber.org/zap"

	"github.com/kartoza/boston-price/internal/config"
	"github.com/kartoza/boston-price/internal/contract"
	"github.com/kartoza/boston-price/internal/features"
	"github.com/kartoza/boston-price/internal/logging"
	"github.com/kartoza/boston-price/internal/predict"
	"github.com/kartoza/boston-price/internal/server"
	"github.com/kartoza/boston-price/internal/tui"
)

var version = "dev"

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "boston-price.yaml", "Settings file (YAML)")
	port := flag.Int("port", 0, "HTTP server port (overrides settings)")
	predictURL := flag.String("predict-url", "", "Base URL of the prediction service (overrides settings)")
	headless := flag.Bool("headless", false, "Run in headless mode (no GUI window)")
	terminal := flag.Bool("tui", false, "Fill in the form in the terminal instead of a window")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("Boston Price v%s\n", version)
		os.Exit(0)
	}

	// Resolve configuration: defaults, settings file, environment, flags
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load settings: %v\n", err)
		os.Exit(1)
	}
	cfg.Version = version
	if *port > 0 {
		cfg.Port = *port
	}
	if *predictURL != "" {
		cfg.Predict.URL = *predictURL
	}

	logger, err := logging.New(cfg.Log, cfg.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up logging: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ct, err := contract.Load(ctx)
	if err != nil {
		logger.Fatal("failed to load service contract", zap.Error(err))
	}
	client := predict.NewClient(cfg.Predict.URL,
		predict.WithTimeout(cfg.Predict.Timeout),
		predict.WithContract(ct),
		predict.WithLogger(logger))

	// Follow edits to the settings file; flags still win for the endpoint
	if *predictURL == "" {
		go func() {
			err := config.Watch(ctx, *configPath, logger, func(c config.Config) {
				client.SetBaseURL(c.Predict.URL)
			})
			if err != nil {
				logger.Warn("settings watch disabled", zap.Error(err))
			}
		}()
	}

	logger.Info("Boston Price starting",
		zap.String("version", version),
		zap.String("predict_url", client.BaseURL()))

	if *terminal {
		runTerminal(ctx, client, logger)
		return
	}
	runWindow(ctx, cfg, client, logger, *headless)
}

func runTerminal(ctx context.Context, client *predict.Client, logger *zap.Logger) {
	runner := tui.NewRunner(tui.NewSurveyDriver(), func(ctx context.Context, in features.InputVector) (float64, error) {
		res, err := client.Predict(ctx, in)
		return res.Price, err
	})
	if _, err := runner.Run(ctx); err != nil && !errors.Is(err, tui.ErrAborted) {
		logger.Fatal("terminal form failed", zap.Error(err))
	}
}

func runWindow(ctx context.Context, cfg config.Config, client *predict.Client, logger *zap.Logger, headless bool) {
	// Find an available port (try up to 10 ports starting from the requested one)
	availablePort, err := findAvailablePort(cfg.Port, 10)
	if err != nil {
		logger.Fatal("failed to find available port", zap.Error(err))
	}
	if availablePort != cfg.Port {
		logger.Info("port in use, using another", zap.Int("requested", cfg.Port), zap.Int("port", availablePort))
	}
	cfg.Port = availablePort

	srv, err := server.New(cfg, client, logger)
	if err != nil {
		logger.Fatal("failed to create server", zap.Error(err))
	}

	// Start server in background
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	// Wait for server to be ready
	serverURL := fmt.Sprintf("http://localhost:%d", cfg.Port)
	waitForServer(serverURL, 10*time.Second, logger)

	if headless {
		logger.Info("headless mode, open the form in a browser", zap.String("url", serverURL))
		select {
		case err := <-errCh:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Fatal("server error", zap.Error(err))
			}
		case <-ctx.Done():
			logger.Info("shutting down")
			if err := srv.Stop(); err != nil {
				logger.Warn("error during shutdown", zap.Error(err))
			}
		}
		return
	}

	// GUI mode: open embedded WebView window
	logger.Info("opening application window")
	w := webview.New(false)
	defer w.Destroy()

	w.SetTitle("Boston House Price Prediction")
	w.SetSize(1280, 900, webview.HintNone)
	w.Navigate(serverURL)

	// When the process is signalled or the server dies, close the window
	go func() {
		select {
		case err := <-errCh:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("server error", zap.Error(err))
			}
		case <-ctx.Done():
			logger.Info("signal received, shutting down")
		}
		w.Dispatch(w.Terminate)
	}()

	// Run blocks until the window is closed
	w.Run()

	logger.Info("window closed, shutting down server")
	if err := srv.Stop(); err != nil {
		logger.Warn("error during shutdown", zap.Error(err))
	}
}

// waitForServer polls until the server is accepting connections
func waitForServer(url string, timeout time.Duration, logger *zap.Logger) {
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
	logger.Warn("server may not be ready", zap.String("url", url))
}

// findAvailablePort finds an available port, starting from the given port.
// If the port is in use, it tries subsequent ports up to maxAttempts times.
func findAvailablePort(startPort int, maxAttempts int) (int, error) {
	for i := 0; i < maxAttempts; i++ {
		port := startPort + i
		addr := fmt.Sprintf(":%d", port)
		listener, err := net.Listen("tcp", addr)
		if err == nil {
			listener.Close()
			return port, nil
		}
	}
	return 0, fmt.Errorf("no available port found after %d attempts starting from %d", maxAttempts, startPort)
}
