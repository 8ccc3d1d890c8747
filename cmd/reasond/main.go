// Command reasond is the reasoner's process entry point: pure wiring
// over the core packages, grounded on the shape of the teacher's
// cmd/nerd/main.go rootCmd (PersistentPreRunE logger bootstrap,
// PersistentPostRun logger sync, signal-driven graceful shutdown
// borrowed from cmd_campaign.go's runCampaignStart). It holds no
// reasoning logic of its own.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/automenta/cog-sub003/internal/config"
	"github.com/automenta/cog-sub003/internal/eventbus"
	"github.com/automenta/cog-sub003/internal/lifecycle"
	"github.com/automenta/cog-sub003/internal/loader"
	"github.com/automenta/cog-sub003/internal/logging"
	"github.com/automenta/cog-sub003/internal/plugins"
	"github.com/automenta/cog-sub003/internal/reasonctx"
)

// version is set by the build in the teacher's release tooling; here it
// is just a literal since this module has no release pipeline of its own.
const version = "0.1.0"

var (
	configPath string
	logger     *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "reasond",
	Short: "reasond - probabilistic concurrent forward-chaining KIF reasoner",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Use == "version" {
			return nil
		}
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		logger, err = logging.New(logging.Config{Level: cfg.Logging.Level})
		if err != nil {
			return fmt.Errorf("build logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "start the reasoner: bus, context, plugins, optional rules file",
	RunE:  runReasoner,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "print the reasond version",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println(version)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to reasond.yaml (defaults used if absent)")
	rootCmd.AddCommand(runCmd, versionCmd)
}

func runReasoner(cmd *cobra.Command, args []string) error {
	runID := uuid.NewString()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.With(zap.String("run_id", runID))

	var audit *logging.AuditLogger
	if cfg.Logging.AuditPath != "" {
		audit, err = logging.NewAuditLogger(cfg.Logging.AuditPath)
		if err != nil {
			return fmt.Errorf("open audit log: %w", err)
		}
		defer audit.Close()
	}

	bus := eventbus.New(log)
	reasonCtx := reasonctx.New(reasonctx.Config{Bus: bus, MaxKBSize: cfg.MaxKBSize, Logger: log})
	gate := lifecycle.New()

	if audit != nil {
		audit.Subscribe(bus)
	}
	if cfg.BroadcastInput {
		eventbus.Subscribe(bus, func(e eventbus.ExternalInput) {
			log.Info("external input", zap.String("kif", e.KIF.String()), zap.String("note", e.SourceNote))
		})
	}

	corePlugins := []plugins.Plugin{
		plugins.NewInputNormalization(log),
		plugins.NewCommit(),
		plugins.NewForwardChaining(log),
		plugins.NewEqualityRewriting(log),
		plugins.NewUniversalInstantiation(log),
		plugins.NewRetraction(log),
		plugins.NewStatusAggregation(log),
	}
	for _, p := range corePlugins {
		if err := p.Init(bus, reasonCtx); err != nil {
			return fmt.Errorf("init plugin: %w", err)
		}
	}

	var fileLoader *loader.FileLoader
	if cfg.RulesFile != "" {
		fileLoader = loader.New(bus, log, cfg.RulesFile, "")
		if err := fileLoader.Load(); err != nil {
			return fmt.Errorf("load rules file: %w", err)
		}
		if err := fileLoader.Watch(); err != nil {
			log.Warn("rules file watch failed, continuing without hot reload", zap.Error(err))
		}
	}

	log.Info("reasond started", zap.Int("port", cfg.Port), zap.Int("max_kb_size", cfg.MaxKBSize))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down")
	gate.Shutdown()
	if fileLoader != nil {
		fileLoader.Stop()
	}
	for _, p := range corePlugins {
		p.Shutdown()
	}
	bus.Close()
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
