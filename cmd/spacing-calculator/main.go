package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"go.uber.org/zap"

	"github.com/eugenenazirov/spacing-calculator/internal/application"
	"github.com/eugenenazirov/spacing-calculator/internal/config"
	"github.com/eugenenazirov/spacing-calculator/internal/logging"
)

var signalNotify = signal.Notify

const appDescription = "Spacing Calculator - fills a target gap greedily, largest spacers first"

func main() {
	kingpinApp := kingpin.New("spacing-calculator", appDescription)
	configFile := kingpinApp.Flag("config", "Path to YAML configuration file").String()
	port := kingpinApp.Flag("port", "HTTP port exposed by the service").String()
	stateBackend := kingpinApp.Flag("state-backend", "Where the session is kept: file, sqlite or memory").String()
	statePath := kingpinApp.Flag("state-path", "Location of the saved session").String()
	spacersStr := kingpinApp.Flag("spacers", "Comma-separated name=thickness pairs seeding a fresh session").String()
	logLevel := kingpinApp.Flag("log-level", "Minimum log level (debug, info, warn, error)").String()
	rateLimitRPSFlag := kingpinApp.Flag("rate-limit-rps", "Requests per second allowed (set 0 to disable)").Default("-1").Float64()
	rateLimitBurstFlag := kingpinApp.Flag("rate-limit-burst", "Burst capacity for rate limiter (set 0 to disable)").Default("-1").Int()

	serveCmd := kingpinApp.Command("serve", "Run the HTTP service").Default()

	fitCmd := kingpinApp.Command("fit", "Print the spacer breakdown for a target thickness")
	fitTarget := fitCmd.Arg("target", "Target thickness in inches").Required().String()
	fitSave := fitCmd.Flag("save", "Append the breakdown to the saved output history").Bool()

	spacersCmd := kingpinApp.Command("spacers", "List the saved spacer inventory")
	historyCmd := kingpinApp.Command("history", "Print the saved output history")

	command := kingpin.MustParse(kingpinApp.Parse(os.Args[1:]))

	overrides := &config.CLIOverrides{
		ConfigFile: *configFile,
	}

	if *port != "" {
		overrides.Port = port
	}

	if *stateBackend != "" {
		overrides.StateBackend = stateBackend
	}

	if *statePath != "" {
		overrides.StatePath = statePath
	}

	if *spacersStr != "" {
		overrides.SpacersStr = spacersStr
	}

	if *logLevel != "" {
		overrides.LogLevel = logLevel
	}

	if *rateLimitRPSFlag >= 0 {
		overrides.RateLimitRPS = rateLimitRPSFlag
	}

	if *rateLimitBurstFlag >= 0 {
		overrides.RateLimitBurst = rateLimitBurstFlag
	}

	cfg, err := config.Load(overrides)
	if err != nil {
		kingpinApp.Fatalf("failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		kingpinApp.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	switch command {
	case serveCmd.FullCommand():
		err = serve(cfg, logger)
	case fitCmd.FullCommand():
		err = withSession(cfg, logger, func(c *cli) error {
			return c.fit(*fitTarget, *fitSave)
		})
	case spacersCmd.FullCommand():
		err = withSession(cfg, logger, func(c *cli) error {
			return c.listSpacers()
		})
	case historyCmd.FullCommand():
		err = withSession(cfg, logger, func(c *cli) error {
			return c.history()
		})
	}

	if err != nil {
		_ = logger.Sync()
		fmt.Fprintf(os.Stderr, "spacing-calculator: %v\n", err)
		os.Exit(1)
	}
}

func serve(cfg config.Config, logger *zap.Logger) error {
	app, err := application.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	if err := app.Start(); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return shutdown(app, cfg.ShutdownGracePeriod, logger)
}

// stopper is the part of application.App the shutdown sequence needs.
type stopper interface {
	Shutdown(ctx context.Context) error
}

func shutdown(app stopper, timeout time.Duration, logger *zap.Logger) error {
	quit := make(chan os.Signal, 1)
	signalNotify(quit, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	logger.Info("shutting down server", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := app.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
