package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	catalog "apitest-backend"
	"apitest-backend/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stdout, nil)).Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger := cfg.Logger()
	ctx := context.Background()

	dir, err := migrationDir(cfg.MigrationsDir, cfg.Database.Driver)
	if err != nil {
		logger.Error("no migrations for driver", slog.String("error", err.Error()))
		os.Exit(1)
	}
	files, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	if err != nil {
		logger.Error("failed to list migrations", slog.String("error", err.Error()))
		os.Exit(1)
	}
	sort.Strings(files)
	if len(files) == 0 {
		logger.Warn("no migration files found", slog.String("dir", dir))
		return
	}

	store, err := catalog.NewCatalog(ctx, cfg.Connection())
	if err != nil {
		logger.Error("failed to connect", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer store.Close()

	for _, file := range files {
		content, err := os.ReadFile(file)
		if err != nil {
			logger.Error("failed to read migration", slog.String("file", file), slog.String("error", err.Error()))
			os.Exit(1)
		}
		if err := store.ExecScript(ctx, string(content)); err != nil {
			logger.Error("failed to apply migration", slog.String("file", file), slog.String("error", err.Error()))
			os.Exit(1)
		}
		logger.Info("applied migration", slog.String("file", file))
	}
}

// migrationDir maps a driver name, including its aliases, to its directory under root.
func migrationDir(root, driver string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "postgres", "postgresql":
		return filepath.Join(root, "postgres"), nil
	case "mysql":
		return filepath.Join(root, "mysql"), nil
	case "mssql", "sqlserver":
		return filepath.Join(root, "sqlserver"), nil
	default:
		return "", fmt.Errorf("driver %q has no migrations", driver)
	}
}
