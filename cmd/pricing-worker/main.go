// -----------------------------------------------------------------------
// Last Modified: Saturday, 17th October 2026 10:20:00 am
// Modified By: Bob McAllan
// -----------------------------------------------------------------------

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ternarybob/pricing-engine/internal/app"
	"github.com/ternarybob/pricing-engine/internal/common"
	"github.com/ternarybob/pricing-engine/internal/services/session"
)

// configPaths is a custom flag type that allows multiple -config flags
type configPaths []string

func (c *configPaths) String() string {
	return fmt.Sprintf("%v", *c)
}

func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

var (
	// Command-line flags
	configFiles configPaths // Multiple -config flags supported
	backend     = flag.String("backend", "", "Queue backend: badger or redis (overrides config)")
	concurrency = flag.Int("concurrency", 0, "Jobs executed at the same time (overrides config)")
	logLevel    = flag.String("log-level", "", "Log level (overrides config)")
	showVersion = flag.Bool("version", false, "Print version information")

	// Development helpers: enqueue one job and keep running to process it
	enqueue  = flag.String("enqueue", "", "Channel to enqueue a job on before starting workers")
	payload  = flag.String("payload", "", "Job payload (WHERE clause, create:N or delete)")
	sessionT = flag.String("session", "", "Session token stashed for the enqueued job")
	instance = flag.String("instance", "", "Instance URL stashed for the enqueued job")
)

func init() {
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times, later files override earlier ones)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
}

func main() {
	common.InstallCrashHandler("logs")
	defer common.RecoverWithCrashFile()

	flag.Parse()

	if *showVersion {
		fmt.Printf("Pricing Engine version %s\n", common.GetFullVersion())
		os.Exit(0)
	}

	// Auto-discover config file if not specified
	if len(configFiles) == 0 {
		if _, err := os.Stat("pricing-worker.toml"); err == nil {
			configFiles = append(configFiles, "pricing-worker.toml")
		} else if _, err := os.Stat("deployments/local/pricing-worker.toml"); err == nil {
			configFiles = append(configFiles, "deployments/local/pricing-worker.toml")
		}
	}

	// 1. Load configuration (default -> file1 -> file2 -> ... -> env)
	config, err := common.LoadFromFiles(configFiles...)
	if err != nil {
		common.GetLogger().Fatal().Strs("paths", configFiles).Err(err).Msg("Failed to load configuration")
		os.Exit(1)
	}

	// 2. Apply command-line flag overrides (highest priority)
	common.ApplyFlagOverrides(config, *backend, *concurrency, *logLevel)
	if err := config.Validate(); err != nil {
		common.GetLogger().Fatal().Err(err).Msg("Invalid command-line overrides")
		os.Exit(1)
	}

	// 3. Initialize logger with final configuration
	logger := common.InitLogger(config)

	// 4. Print banner
	common.PrintBanner(config, logger)

	application, err := app.New(config, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize application")
		os.Exit(1)
	}

	if *enqueue != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		jobID, err := application.Submitter.Submit(ctx, *enqueue, *payload, session.Credentials{
			SessionToken: *sessionT,
			Endpoint:     *instance,
		})
		cancel()
		if err != nil {
			logger.Error().Err(err).Str("channel", *enqueue).Msg("Failed to enqueue job")
		} else {
			logger.Info().Str("job_id", jobID).Msg("Development job enqueued")
		}
	}

	application.Start()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan

	logger.Info().Str("signal", sig.String()).Msg("Shutdown signal received")

	if err := application.Close(); err != nil {
		logger.Error().Err(err).Msg("Shutdown completed with errors")
		os.Exit(1)
	}
}
