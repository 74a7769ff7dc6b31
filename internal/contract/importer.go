package contract

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	catalog "apitest-backend"
	"apitest-backend/internal/bus"
)

type EventPublisher interface {
	Publish(subject string, payload any) error
}

type Importer struct {
	Catalog catalog.Catalog
	Builder *Builder
	Bus     EventPublisher
	Logger  *slog.Logger
}

type ImportOptions struct {
	BaseURL string
	Strict  bool
}

type ImportResult struct {
	Tests []catalog.TestCase `json:"tests"`
	Gaps  []Gap              `json:"gaps"`
}

type importedEvent struct {
	Count int     `json:"count"`
	IDs   []int64 `json:"ids"`
	Gaps  int     `json:"gaps"`
}

func NewImporter(c catalog.Catalog, b *Builder, publisher EventPublisher, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if publisher == nil {
		publisher = bus.Discard{}
	}
	return &Importer{Catalog: c, Builder: b, Bus: publisher, Logger: logger}
}

// Import parses a contract, builds its test cases and upserts them in one batch.
func (i *Importer) Import(ctx context.Context, data []byte, opts ImportOptions) (ImportResult, error) {
	if opts.Strict {
		if err := Validate(ctx, data); err != nil {
			return ImportResult{}, err
		}
	}
	doc, err := Parse(data)
	if err != nil {
		return ImportResult{}, err
	}
	builder := i.Builder
	if opts.BaseURL != "" {
		builder = builder.WithBaseURL(opts.BaseURL)
	}
	tests, gaps, err := builder.Build(doc)
	if err != nil {
		return ImportResult{}, err
	}
	stored := []catalog.TestCase{}
	if len(tests) > 0 {
		stored, err = i.Catalog.UpsertMany(ctx, tests)
		if err != nil {
			return ImportResult{}, fmt.Errorf("store imported tests: %w", err)
		}
	}
	for _, gap := range gaps {
		i.Logger.Warn("contract gap", slog.String("kind", string(gap.Kind)), slog.String("name", gap.Name), slog.String("location", gap.Location), slog.String("detail", gap.Detail))
	}
	ids := make([]int64, 0, len(stored))
	for _, tc := range stored {
		ids = append(ids, tc.ID)
	}
	if err := i.Bus.Publish(bus.SubjectTestCasesImported, importedEvent{Count: len(stored), IDs: ids, Gaps: len(gaps)}); err != nil {
		i.Logger.Error("failed to publish import event", slog.String("error", err.Error()))
	}
	i.Logger.Info("contract imported", slog.Int("tests", len(stored)), slog.Int("gaps", len(gaps)))
	return ImportResult{Tests: stored, Gaps: gaps}, nil
}
