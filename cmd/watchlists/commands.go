package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/gl0bal01/discord-watchlists/internal/app"
	"github.com/gl0bal01/discord-watchlists/internal/config"
	"github.com/gl0bal01/discord-watchlists/internal/di"
	"github.com/gl0bal01/discord-watchlists/internal/errors"
)

type globalFlags struct {
	configPath string
	logLevel   string
	dryRun     bool
}

func newRootCmd(stdout io.Writer) *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "watchlists",
		Short: "Forward new watchlist entries to Discord",
		Long: `watchlists polls public watchlists (CISA KEV, FBI wanted, Europol most wanted,
ransomware victims) and posts every entry not seen before to a Discord webhook.

Examples:
  watchlists run cve          # one batch run, for cron or a systemd timer
  watchlists serve            # run every monitor on its own schedule
  watchlists monitors         # list monitors and whether they are ready`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "config file (default: ./watchlists.yaml or /etc/watchlists/watchlists.yaml)")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "override log.level (debug, info, warn, error)")
	root.PersistentFlags().BoolVar(&flags.dryRun, "dry-run", false, "format and log notifications without sending or marking them")

	root.AddCommand(newRunCmd(flags), newServeCmd(flags), newMonitorsCmd(flags))
	return root
}

func (f *globalFlags) build() (*app.App, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, err
	}
	if f.logLevel != "" {
		cfg.Log.Level = f.logLevel
	}
	return di.InitializeApp(cfg, app.Options{DryRun: f.dryRun})
}

func newRunCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "run <monitor>",
		Short: "Run one batch of a monitor and exit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := flags.build()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			report, err := a.RunOnce(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: fetched=%d unseen=%d delivered=%d failed=%d\n",
				report.Monitor, report.Fetched, report.Unseen, report.Delivered, report.Failed)
			return nil
		},
	}
}

func newServeCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run every ready monitor on its cron schedule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := flags.build()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.Serve(ctx)
		},
	}
}

func newMonitorsCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "monitors",
		Short: "List configured monitors and their readiness",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := flags.build()
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tSOURCE\tSCHEDULE\tSTATUS")
			for _, m := range a.Monitors() {
				status := "ready"
				switch {
				case m.Disabled:
					status = "disabled"
				case m.Err != nil:
					status = m.Err.Error()
				}
				schedule := m.Schedule
				if schedule == "" {
					schedule = "-"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", m.Name, m.Source, schedule, status)
			}
			return w.Flush()
		},
	}
}

// execute runs the CLI and maps the outcome to a process exit code.
func execute(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout)
	root.SetArgs(args)
	root.SetErr(stderr)

	err := root.ExecuteContext(context.Background())
	if err == nil {
		return errors.ExitOK
	}
	fmt.Fprintf(stderr, "watchlists: %v\n", err)
	for _, hint := range errors.GetAllHints(err) {
		fmt.Fprintf(stderr, "hint: %s\n", hint)
	}
	return errors.ExitCode(err)
}
