package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"
	"go.temporal.io/sdk/client"

	"github.com/leowmjw/go-walk-sync/pkg/config"
	"github.com/leowmjw/go-walk-sync/pkg/hcl"
	"github.com/leowmjw/go-walk-sync/pkg/pipeline"
	"github.com/leowmjw/go-walk-sync/pkg/temporal"
	"github.com/leowmjw/go-walk-sync/pkg/timeline"
)

func main() {
	cmd := &cli.Command{
		Name:  "walksync",
		Usage: "Segment and synchronize multi-sensor walk recordings",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML or HCL config file, or a directory of .hcl files",
				Sources: cli.EnvVars("WALKSYNC_CONFIG"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error); overrides the config",
				Sources: cli.EnvVars("WALKSYNC_LOG_LEVEL"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "Synchronize sessions locally",
				Action: runLocal,
				Flags: append(sessionFlags(),
					&cli.BoolFlag{Name: "json", Usage: "Print summaries as JSON"},
				),
			},
			{
				Name:   "submit",
				Usage:  "Submit sessions to the Temporal worker as one batch",
				Action: submit,
				Flags: append(sessionFlags(),
					&cli.BoolFlag{Name: "wait", Usage: "Wait for the batch to finish and print its results"},
				),
			},
			{
				Name:      "decode",
				Usage:     "Decode fractional day numbers into formatted timestamps",
				ArgsUsage: "VALUE...",
				Action:    decode,
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "seconds", Usage: "Values are NTP seconds rather than days"},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func sessionFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringSliceFlag{Name: "subject", Aliases: []string{"s"}, Usage: "Subject number; repeatable", Required: true},
		&cli.StringSliceFlag{Name: "walk", Aliases: []string{"w"}, Usage: "Walk number; repeatable", Required: true},
		&cli.BoolFlag{Name: "dry-run", Usage: "Evaluate every interval but keep slices in memory"},
	}
}

// setup loads the configuration and builds the logger.
func setup(cmd *cli.Command) (*config.Config, *slog.Logger, error) {
	cfg, err := hcl.LoadConfig(cmd.String("config"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if lvl := cmd.String("log-level"); lvl != "" {
		cfg.App.LogLevel = lvl
	}
	if cmd.Bool("dry-run") {
		cfg.Sync.DryRun = true
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Level()}))
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func runLocal(ctx context.Context, cmd *cli.Command) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	runner, err := pipeline.NewRunner(cfg, logger)
	if err != nil {
		return err
	}

	var reqs []pipeline.SessionRequest
	for _, s := range temporal.SessionGrid(cmd.StringSlice("subject"), cmd.StringSlice("walk")) {
		reqs = append(reqs, s.Session())
	}

	summaries, runErr := runner.RunSessions(ctx, reqs)
	if err := printSummaries(cmd.Root().Writer, summaries, cmd.Bool("json")); err != nil {
		return err
	}
	return runErr
}

func printSummaries(w io.Writer, summaries []*pipeline.Summary, asJSON bool) error {
	if w == nil {
		w = os.Stdout
	}
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(summaries)
	}
	for _, s := range summaries {
		fmt.Fprintf(w, "RW%s-Walk%s: %d intervals, %d rejected, output %s\n",
			s.Subject, s.Walk, s.Intervals, s.Rejected, s.OutputDir)
		for name, n := range s.Missing {
			fmt.Fprintf(w, "  missing %-18s %d\n", name, n)
		}
	}
	return nil
}

func submit(ctx context.Context, cmd *cli.Command) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}

	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
	})
	if err != nil {
		return fmt.Errorf("failed to create Temporal client: %w", err)
	}
	defer c.Close()

	workflowID, batchID := temporal.GenerateBatchWorkflowID()
	req := temporal.BatchRequest{
		BatchID:  batchID,
		Sessions: temporal.SessionGrid(cmd.StringSlice("subject"), cmd.StringSlice("walk")),
		DryRun:   cfg.Sync.DryRun,
	}
	if err := req.Validate(); err != nil {
		return err
	}

	run, err := c.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        workflowID,
		TaskQueue: cfg.Temporal.TaskQueue,
	}, temporal.SyncBatchWorkflow, req)
	if err != nil {
		return fmt.Errorf("failed to start batch workflow: %w", err)
	}
	logger.Info("Batch submitted", "workflowID", run.GetID(), "runID", run.GetRunID(), "sessions", len(req.Sessions))

	if !cmd.Bool("wait") {
		return nil
	}
	var results []*temporal.SyncResult
	if err := run.Get(ctx, &results); err != nil {
		return fmt.Errorf("batch workflow failed: %w", err)
	}
	enc := json.NewEncoder(cmd.Root().Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}

func decode(_ context.Context, cmd *cli.Command) error {
	values := cmd.Args().Slice()
	if len(values) == 0 {
		return fmt.Errorf("at least one value is required")
	}
	lines, err := decodeValues(values, cmd.Bool("seconds"))
	if err != nil {
		return err
	}
	for _, l := range lines {
		fmt.Fprintln(cmd.Root().Writer, l)
	}
	return nil
}

func decodeValues(values []string, seconds bool) ([]string, error) {
	out := make([]string, 0, len(values))
	for _, v := range values {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid value %q: %w", v, err)
		}
		var ts timeline.Timestamp
		if seconds {
			ts, err = timeline.DecodeSeconds(f)
		} else {
			ts, err = timeline.Decode(f)
		}
		if err != nil {
			return nil, err
		}
		out = append(out, ts.String())
	}
	return out, nil
}
