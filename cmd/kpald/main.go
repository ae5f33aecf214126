// kpald is the KPAL daemon: it loads peripheral plugins, runs their
// executors, and exposes them over a REST API.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kmdouglass/kpal/pkg/api/rest"
	"github.com/kmdouglass/kpal/pkg/config"
	"github.com/kmdouglass/kpal/pkg/core"
)

var (
	version   = "0.1.0"
	buildTime = "dev"
	gitCommit = "unknown"
)

var (
	cfgFile      string
	libraryPaths []string
	logLevel     string
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "kpald",
		Short:   "kpald - the KPAL peripheral daemon",
		Long:    "kpald loads peripheral plugins behind a stable C ABI and serves them over HTTP.",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildTime),
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: first found of ./config.yaml, ./config.yml, ./kpald.yaml, ./kpald.yml, /etc/kpal/config.yaml)")
	rootCmd.PersistentFlags().StringArrayVar(&libraryPaths, "library", nil, "path to a plugin shared object (repeatable, appended to config)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override configured log level (debug|info|warn|error)")

	rootCmd.AddCommand(newStartCmd(), newVersionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStart()
		},
	}
}

func runStart() error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if envLevel := os.Getenv("KPAL_LOG_LEVEL"); envLevel != "" {
		cfg.Logging.Level = envLevel
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	cfg.Libraries.Paths = append(cfg.Libraries.Paths, libraryPaths...)

	engine, err := core.NewEngine(cfg)
	if err != nil {
		return fmt.Errorf("create engine: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := engine.Start(ctx); err != nil {
		return fmt.Errorf("start engine: %w", err)
	}

	server := rest.NewServer(engine)
	if err := server.Start(); err != nil {
		return fmt.Errorf("start REST API: %w", err)
	}

	engine.Logger().Info("kpald running", "address", cfg.HTTP.Address)
	<-ctx.Done()
	engine.Logger().Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), core.ShutdownGracePeriod())
	defer cancel()

	if err := server.Stop(shutdownCtx); err != nil {
		engine.Logger().Error("REST API shutdown error", "error", err)
	}
	if err := engine.Stop(); err != nil {
		return fmt.Errorf("stop engine: %w", err)
	}

	engine.Logger().Info("kpald stopped")
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("kpald %s\n", version)
			fmt.Printf("  commit: %s\n", gitCommit)
			fmt.Printf("  built:  %s\n", buildTime)
		},
	}
}
