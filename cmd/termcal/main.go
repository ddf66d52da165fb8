package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"termcal/internal/agenda"
	"termcal/internal/config"
	appLog "termcal/internal/log"
	"termcal/internal/term"
)

const version = "0.3.0"

// rootOptions holds the persistent flags shared by every command.
type rootOptions struct {
	configPath string
	logLevel   string
}

func main() {
	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "termcal:", err)
		cancel()
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "termcal",
		Short:         "Calendar and task journal for the terminal",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := opts.setup(true)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ag, err := loadAgenda(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			return term.Run(cmd.Context(), ag, cfg.RefreshCron, logger)
		},
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", config.DefaultPath, "Path to config file")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level (overrides config if set)")

	addList(cmd, opts)
	addServe(cmd, opts)
	addExport(cmd, opts)
	return cmd
}

// setup loads the config and secrets and builds the logger. The interactive
// UI owns the terminal, so toFile sends logs to the configured file.
func (o *rootOptions) setup(toFile bool) (*config.Config, *appLog.Logger, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config %s: %w", o.configPath, err)
	}
	if err := cfg.LoadEnv(".env", "~/.config/termcal/.env"); err != nil {
		return nil, nil, err
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}

	logOpts := appLog.Options{Level: appLog.Level(cfg.Log.Level)}
	if toFile && cfg.Log.File != "" {
		logOpts.Output = config.Expand(cfg.Log.File)
		if err := os.MkdirAll(filepath.Dir(logOpts.Output), 0o700); err != nil {
			return nil, nil, fmt.Errorf("create log dir: %w", err)
		}
	}
	logger, err := appLog.New(logOpts)
	if err != nil {
		return nil, nil, err
	}

	logger.Info("termcal starting",
		"version", version,
		"config", o.configPath,
		"calendar", cfg.Calendar,
		"timezone", cfg.Timezone,
		"ics_events", len(cfg.ICSEvents),
		"ics_tasks", len(cfg.ICSTasks),
		"notion", cfg.Notion.Ready(),
	)
	return cfg, logger, nil
}

func loadAgenda(ctx context.Context, cfg *config.Config, logger *appLog.Logger) (*agenda.Agenda, error) {
	ag, err := agenda.New(cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := ag.Load(ctx); err != nil {
		return nil, err
	}
	return ag, nil
}
