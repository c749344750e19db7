package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"lathe/internal/config"
	"lathe/internal/logging"
	"lathe/pkg/lathe"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	a := &app{out: out}
	root := newRootCmd(a)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if closeErr := a.teardown(); err == nil {
		err = closeErr
	}
	return err
}

// app carries the state shared by every subcommand once the root has parsed
// its persistent flags.
type app struct {
	out io.Writer

	configPath   string
	storeKind    string
	dbPath       string
	artifactsDir string
	logLevel     string
	logFormat    string
	jsonOutput   bool

	cfg    *config.Config
	logger *zap.Logger
	client *lathe.Client
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "lathectl",
		Short: "Design, check and evolve printable solids of revolution",
		Long: `lathectl builds vase, table and stool shells from six design parameters,
checks them for unsupported overhangs, repairs violations with a single-field
sweep, and breeds new designs from favorites with a binary genetic algorithm.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}
	root.SetOut(a.out)
	root.SetErr(a.out)

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "lathe.yaml", "YAML configuration file; defaults apply when missing")
	flags.StringVar(&a.storeKind, "store", "", "store backend: memory|sqlite (overrides config)")
	flags.StringVar(&a.dbPath, "db-path", "", "sqlite database path (overrides config)")
	flags.StringVar(&a.artifactsDir, "artifacts-dir", "", "generation artifacts directory (overrides config)")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: debug|info|warn|error (overrides config)")
	flags.StringVar(&a.logFormat, "log-format", "", "log format: auto|json|console (overrides config)")
	flags.BoolVar(&a.jsonOutput, "json", false, "print results as JSON")

	root.AddCommand(
		newClassesCmd(a),
		newCheckCmd(a),
		newRepairCmd(a),
		newMeshCmd(a),
		newSampleCmd(a),
		newEvolveCmd(a),
		newFavoritesCmd(a),
		newGenerationsCmd(a),
		newConfigCmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Logging.Format = a.logFormat
	}
	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return err
	}
	client, err := lathe.New(lathe.Options{
		Config:       cfg,
		StoreKind:    a.storeKind,
		DBPath:       a.dbPath,
		ArtifactsDir: a.artifactsDir,
		Logger:       logger.Named("lathe"),
	})
	if err != nil {
		_ = logger.Sync()
		return err
	}
	a.cfg = cfg
	a.logger = logger
	a.client = client
	a.logger.Debug("command started",
		zap.String("command", cmd.CommandPath()),
		zap.String("config", a.configPath),
	)
	return nil
}

func (a *app) teardown() error {
	var err error
	if a.client != nil {
		err = a.client.Close()
		a.client = nil
	}
	if a.logger != nil {
		// stderr sync fails on some terminals; ignore it.
		_ = a.logger.Sync()
	}
	return err
}

func usageError(msg string) error {
	return errors.New("usage: " + msg)
}
