package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	catalog "apitest-backend"
	"apitest-backend/internal/bus"
	"apitest-backend/internal/config"
	"apitest-backend/internal/contract"
	"apitest-backend/internal/report"
)

type commandParams struct {
	file    string
	baseURL string
	strict  bool
}

func (c *commandParams) Read(args []string, defaults config.Config) bool {
	fs := flag.NewFlagSet("ingest", flag.ContinueOnError)
	fs.StringVar(&c.file, "file", "", "contract file (JSON or YAML), - for stdin")
	fs.StringVar(&c.baseURL, "base-url", defaults.BaseURL, "base URL prefixed to every contract path")
	fs.BoolVar(&c.strict, "strict", defaults.ContractStrict, "validate the contract before importing")
	if err := fs.Parse(args[1:]); err != nil {
		return false
	}
	if c.file == "" {
		fmt.Fprintln(os.Stderr, "-file is required")
		fs.Usage()
		return false
	}
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

	data, err := readContract(params.file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cannot read contract: %s\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := catalog.NewCatalog(ctx, cfg.Connection())
	if err != nil {
		logger.Error("failed to open catalog", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer store.Close()

	var events contract.EventPublisher = bus.Discard{}
	if cfg.NATSURL != "" {
		publisher, err := bus.NewPublisher(cfg.NATSURL)
		if err != nil {
			logger.Error("failed to connect to nats", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer publisher.Close()
		events = publisher
	}

	importer := contract.NewImporter(store, contract.NewBuilder(cfg.BaseURL, nil, nil), events, logger)
	result, err := importer.Import(ctx, data, contract.ImportOptions{BaseURL: params.baseURL, Strict: params.strict})
	if err != nil {
		logger.Error("import failed", slog.String("file", params.file), slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := report.PrintCatalog(os.Stdout, result.Tests); err != nil {
		logger.Error("failed to print catalog", slog.String("error", err.Error()))
		os.Exit(1)
	}
	for _, gap := range result.Gaps {
		fmt.Fprintf(os.Stderr, "gap: %s\n", gap)
	}
	fmt.Fprintf(os.Stderr, "imported %d test cases, %d gaps\n", len(result.Tests), len(result.Gaps))
}

func readContract(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}
