// Package main runs the orbitflow HTTP server (A3): the §6 ingest surface,
// execution control API, and deployment API over a Postgres-backed engine.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/orbitflow/orbitflow/pkg/config"
	"github.com/orbitflow/orbitflow/pkg/logger"
)

func main() {
	cmd := createRootCommand()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func createRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "orbitflow-server",
		Short: "orbitflow server - workflow ingest, execution and deployment API",
		RunE:  runServer,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return setupGlobalConfig(cmd)
		},
	}
	root.Flags().String("config", "", "path to a YAML configuration file")
	root.Flags().String("env-file", "", "path to a .env file to load before reading configuration")
	root.Flags().Bool("debug", false, "enable debug logging")
	return root
}

// setupGlobalConfig loads .env, builds the default->env->yaml provider
// chain, initializes the process-wide config, and installs a context
// logger driven by runtime.log_level (overridable by --debug).
func setupGlobalConfig(cmd *cobra.Command) error {
	envFile, err := cmd.Flags().GetString("env-file")
	if err != nil {
		return fmt.Errorf("failed to read env-file flag: %w", err)
	}
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("failed to load env file: %w", err)
		}
	} else {
		// Best-effort: a missing .env in the working directory is normal.
		_ = godotenv.Load()
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	sources := []config.Source{
		config.NewDefaultProvider(),
		config.NewEnvProvider(),
	}
	configFile, err := cmd.Flags().GetString("config")
	if err != nil {
		return fmt.Errorf("failed to read config flag: %w", err)
	}
	if configFile != "" {
		sources = append(sources, config.NewYAMLProvider(configFile))
	}

	if err := config.Initialize(ctx, nil, sources...); err != nil {
		return fmt.Errorf("failed to initialize global configuration: %w", err)
	}

	cfg := config.Get()
	logLevel := logger.LogLevel(cfg.Runtime.LogLevel)
	if debug, err := cmd.Flags().GetBool("debug"); err == nil && debug {
		logLevel = logger.DebugLevel
	}
	log := logger.NewLogger(&logger.Config{
		Level:      logLevel,
		Output:     os.Stdout,
		JSON:       cfg.Runtime.Environment == "production",
		TimeFormat: "15:04:05",
	})
	ctx = logger.ContextWithLogger(ctx, log)
	cmd.SetContext(ctx)
	return nil
}
