package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"NewsDigest/internal/app"
	"NewsDigest/internal/config"
	"NewsDigest/internal/domain"
	"NewsDigest/internal/infrastructure/httpapi"
	"NewsDigest/internal/logging"
)

type rootOptions struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "newsdigest",
		Short: "Collects AI news and mails a daily digest",
		Long: `newsdigest scrapes feeds, YouTube channels and web pages, summarizes new
items with a language model and delivers one digest per run.

Examples:
  newsdigest run                      # one digest run, then exit
  newsdigest serve                    # cron schedule plus /healthz and /metrics
  newsdigest status --json            # last recorded run`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "YAML config file (default $NEWSDIGEST_CONFIG)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override logging.level")

	root.AddCommand(newRunCmd(opts), newServeCmd(opts), newStatusCmd(opts))
	return root
}

func (o *rootOptions) load(cmd *cobra.Command) (*app.Application, *slog.Logger, error) {
	cfg := config.Load(o.configPath)
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	logger := logging.NewWithWriter(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)

	application, err := app.New(cmd.Context(), cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return application, logger, nil
}

func newRunCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the pipeline once",
		RunE: func(cmd *cobra.Command, _ []string) error {
			application, _, err := opts.load(cmd)
			if err != nil {
				return err
			}
			defer application.Close()

			run, err := application.Run(cmd.Context())
			printRun(cmd.OutOrStdout(), run)
			return err
		},
	}
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run on the cron schedule and expose operational endpoints",
		RunE: func(cmd *cobra.Command, _ []string) error {
			application, logger, err := opts.load(cmd)
			if err != nil {
				return err
			}
			defer application.Close()

			logger.Info("service starting")
			return application.Serve(cmd.Context())
		},
	}
}

func newStatusCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the last recorded run",
		RunE: func(cmd *cobra.Command, _ []string) error {
			application, _, err := opts.load(cmd)
			if err != nil {
				return err
			}
			defer application.Close()

			run, err := application.LastRun(cmd.Context())
			if errors.Is(err, domain.ErrNotFound) {
				fmt.Fprintln(cmd.OutOrStdout(), "no runs recorded")
				return nil
			}
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(httpapi.NewRunView(run))
			}
			printRun(cmd.OutOrStdout(), run)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	return cmd
}

func printRun(w io.Writer, run domain.DigestRun) {
	if run.ID == 0 {
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	state := "running"
	finished := "-"
	if run.Finished() {
		state = "failed"
		if run.Success {
			state = "ok"
		}
		finished = run.CompletedAt.Format(time.RFC3339)
	}
	fmt.Fprintf(tw, "run\t#%d\n", run.ID)
	fmt.Fprintf(tw, "state\t%s\n", state)
	fmt.Fprintf(tw, "started\t%s\n", run.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(tw, "finished\t%s\n", finished)
	fmt.Fprintf(tw, "articles\t%d\n", run.ArticlesProcessed)
	fmt.Fprintf(tw, "sources failed\t%d\n", run.SourcesFailed)
	fmt.Fprintf(tw, "summaries failed\t%d\n", run.SummariesFailed)
	fmt.Fprintf(tw, "delivered\t%t\n", run.EmailSent)
	if run.ErrorMessage != "" {
		fmt.Fprintf(tw, "error\t%s\n", run.ErrorMessage)
	}
	if run.OverallSummary != "" {
		fmt.Fprintf(tw, "summary\t%s\n", run.OverallSummary)
	}
}
