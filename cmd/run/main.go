package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	catalog "apitest-backend"
	"apitest-backend/internal/bus"
	"apitest-backend/internal/config"
	"apitest-backend/internal/executor"
	"apitest-backend/internal/report"
	"apitest-backend/internal/results"
)

type commandParams struct {
	ids     []int64
	xlsx    string
	noColor bool
	verbose bool
	timeout time.Duration
}

func (c *commandParams) Read(args []string, defaults config.Config) bool {
	var rawIDs string
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.StringVar(&rawIDs, "ids", "", "comma separated test ids; all tests when empty")
	fs.StringVar(&c.xlsx, "xlsx", "", "write an Excel report to this path")
	fs.BoolVar(&c.noColor, "no-color", false, "disable colored output")
	fs.BoolVar(&c.verbose, "v", false, "print every response body")
	fs.DurationVar(&c.timeout, "timeout", defaults.RequestTimeout(), "timeout for each HTTP call")
	if err := fs.Parse(args[1:]); err != nil {
		return false
	}
	ids, err := parseIDs(rawIDs)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		fs.Usage()
		return false
	}
	c.ids = ids
	return true
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %s\n", err)
		os.Exit(1)
	}
	var params commandParams
	if !params.Read(os.Args, cfg) {
		os.Exit(2)
	}
	logger := config.NewLogger(os.Stderr, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := catalog.NewCatalog(ctx, cfg.Connection())
	if err != nil {
		logger.Error("failed to open catalog", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer store.Close()

	var sink results.Sink = results.NewMemorySink()
	if cfg.RedisURL != "" {
		redisSink, err := results.NewRedisSink(ctx, cfg.RedisURL, cfg.ResultTTL())
		if err != nil {
			logger.Error("failed to connect to redis", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer redisSink.Close()
		sink = redisSink
	}

	var events executor.EventPublisher = bus.Discard{}
	if cfg.NATSURL != "" {
		publisher, err := bus.NewPublisher(cfg.NATSURL)
		if err != nil {
			logger.Error("failed to connect to nats", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer publisher.Close()
		events = publisher
	}

	ids := params.ids
	if len(ids) == 0 {
		ids, err = allIDs(ctx, store)
		if err != nil {
			logger.Error("failed to list tests", slog.String("error", err.Error()))
			os.Exit(1)
		}
		if len(ids) == 0 {
			fmt.Fprintln(os.Stderr, "catalog is empty")
			return
		}
	}

	runner := executor.New(store, executor.NewClient(params.timeout), sink, events, logger)
	started := time.Now()
	outcomes, runErr := runner.Run(ctx, ids)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		logger.Error("run failed", slog.String("error", runErr.Error()))
		os.Exit(1)
	}

	runID := ""
	if len(outcomes) > 0 {
		runID = outcomes[0].Result.RunID
	}
	summary := executor.Summarize(runID, outcomes, time.Since(started))
	summary.Cancelled = runErr != nil

	console := report.NewConsole(os.Stdout, params.noColor)
	console.Verbose = params.verbose
	console.Print(outcomes, summary)

	if params.xlsx != "" {
		if err := report.WriteExcel(params.xlsx, outcomes, summary); err != nil {
			logger.Error("failed to write excel report", slog.String("path", params.xlsx), slog.String("error", err.Error()))
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "report written to %s\n", params.xlsx)
	}
	if summary.Cancelled || summary.Failed > 0 || summary.Errored > 0 {
		os.Exit(1)
	}
}

func parseIDs(raw string) ([]int64, error) {
	ids := []int64{}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid test id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

type lister interface {
	List(ctx context.Context, opts catalog.ListOptions) (catalog.Page, error)
}

// allIDs pages through the catalog in id order.
func allIDs(ctx context.Context, store lister) ([]int64, error) {
	ids := []int64{}
	for page := 1; ; page++ {
		p, err := store.List(ctx, catalog.ListOptions{Page: page, PageSize: 100, SortKey: "id"})
		if err != nil {
			return nil, err
		}
		for _, tc := range p.Items {
			ids = append(ids, tc.ID)
		}
		if len(p.Items) == 0 || int64(len(ids)) >= p.Total {
			return ids, nil
		}
	}
}
