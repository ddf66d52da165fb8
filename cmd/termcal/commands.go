package main

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"termcal/internal/calendar"
	"termcal/internal/config"
	"termcal/internal/ics"
	"termcal/internal/model"
	"termcal/internal/printer"
	"termcal/internal/safefile"
	"termcal/internal/web"
)

func addList(topLevel *cobra.Command, opts *rootOptions) {
	var (
		date        string
		month       bool
		tasks       bool
		hidePrivate bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print the agenda of a day or month",
		Example: `
termcal list
termcal list --date 2024-03-05
termcal list --month --date 2024-03-01
termcal list --tasks
`,
		Args: cobra.NoArgs,
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

			day := ag.Today(time.Now())
			if date != "" {
				if day, err = parseDay(date, ag.System()); err != nil {
					return err
				}
			}

			p := printer.New(color.Output)
			p.HidePrivate = hidePrivate
			if month {
				p.Month(ag, day.Year, day.Month)
			} else {
				p.Day(ag, day)
			}
			if tasks {
				p.Tasks(ag)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "Day in the display calendar, YYYY-MM-DD (default today)")
	cmd.Flags().BoolVar(&month, "month", false, "List the whole month")
	cmd.Flags().BoolVar(&tasks, "tasks", false, "Also list the journal")
	cmd.Flags().BoolVar(&hidePrivate, "hide-private", false, "Mask private entries")

	topLevel.AddCommand(cmd)
}

func addServe(topLevel *cobra.Command, opts *rootOptions) {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the agenda over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := opts.setup(false)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			// CLI --listen overrides config file listen if provided.
			if listen != "" {
				cfg.Listen = listen
			}

			ctx := cmd.Context()
			ag, err := loadAgenda(ctx, cfg, logger)
			if err != nil {
				return err
			}

			if cfg.RefreshCron != "" {
				c := cron.New()
				if _, err := c.AddFunc(cfg.RefreshCron, func() { ag.Reload(ctx) }); err != nil {
					return fmt.Errorf("refresh schedule %q: %w", cfg.RefreshCron, err)
				}
				c.Start()
				defer c.Stop()
			}

			return web.Serve(ctx, cfg, ag, logger)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "HTTP listen address (overrides config if set)")

	topLevel.AddCommand(cmd)
}

func addExport(topLevel *cobra.Command, opts *rootOptions) {
	var out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write local events as an iCalendar file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if out == "" {
				return errors.New("--out is required")
			}
			cfg, logger, err := opts.setup(true)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ag, err := loadAgenda(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}

			var buf bytes.Buffer
			if err := ics.Export(&buf, ag.Events.Items(), ag.System(), ag.Location()); err != nil {
				return err
			}
			if out == "-" {
				_, err := cmd.OutOrStdout().Write(buf.Bytes())
				return err
			}
			path := config.Expand(out)
			if err := safefile.WriteFile(path, buf.Bytes(), 0o644); err != nil {
				return err
			}
			logger.Info("events exported", "path", path, "events", ag.Events.Len())
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "Output .ics file, - for stdout")

	topLevel.AddCommand(cmd)
}

// parseDay reads YYYY-MM-DD in the display calendar.
func parseDay(s string, sys calendar.System) (model.Date, error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 3 {
		return model.Date{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", s)
	}
	var n [3]int
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil {
			return model.Date{}, fmt.Errorf("invalid date %q: %w", s, err)
		}
		n[i] = v
	}
	d := model.NewDate(n[0], n[1], n[2])
	if !sys.Valid(d) {
		return model.Date{}, fmt.Errorf("invalid date %q for the %s calendar", s, sys.Name())
	}
	return d, nil
}
