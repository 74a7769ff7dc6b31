package executor

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	catalog "apitest-backend"
	"apitest-backend/internal/bus"
	"apitest-backend/internal/results"
)

// Source loads the tests of a batch. Missing ids fail with catalog.ErrNotFound.
type Source interface {
	GetMany(ctx context.Context, ids []int64) ([]catalog.TestCase, error)
}

type Sender interface {
	Send(ctx context.Context, tc catalog.TestCase) (Response, error)
}

type EventPublisher interface {
	Publish(subject string, payload any) error
}

type Outcome struct {
	Test   catalog.TestCase
	Result catalog.ExecutionResult
}

type Summary struct {
	RunID      string `json:"run_id"`
	Total      int    `json:"total"`
	Passed     int    `json:"passed"`
	Failed     int    `json:"failed"`
	Errored    int    `json:"errored"`
	DurationMS int64  `json:"duration_ms"`
	Cancelled  bool   `json:"cancelled"`
}

func Summarize(runID string, outcomes []Outcome, elapsed time.Duration) Summary {
	s := Summary{RunID: runID, Total: len(outcomes), DurationMS: elapsed.Milliseconds()}
	for _, o := range outcomes {
		switch o.Result.Verdict {
		case catalog.VerdictPassed:
			s.Passed++
		case catalog.VerdictFailed:
			s.Failed++
		default:
			s.Errored++
		}
	}
	return s
}

type Executor struct {
	Catalog Source
	Client  Sender
	Sink    results.Sink
	Bus     EventPublisher
	Logger  *slog.Logger
	Now     func() time.Time
}

func New(src Source, client Sender, sink results.Sink, publisher EventPublisher, logger *slog.Logger) *Executor {
	if sink == nil {
		sink = results.NewMemorySink()
	}
	if publisher == nil {
		publisher = bus.Discard{}
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Executor{Catalog: src, Client: client, Sink: sink, Bus: publisher, Logger: logger, Now: time.Now}
}

// Run executes the tests with the given ids one at a time in dependency order.
// A failing or erroring test does not stop the batch. When ctx is cancelled the
// outcomes collected so far are returned together with ctx.Err().
func (e *Executor) Run(ctx context.Context, ids []int64) ([]Outcome, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("no test ids given: %w", catalog.ErrInvalidInput)
	}
	tests, err := e.Catalog.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	ordered, err := Order(tests)
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	logger := e.Logger.With(slog.String("run_id", runID))
	started := e.Now()
	logger.Info("test run started", slog.Int("tests", len(ordered)))

	outcomes := make([]Outcome, 0, len(ordered))
	var runErr error
	for _, tc := range ordered {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		result := e.execute(ctx, runID, tc)
		if err := e.Sink.Save(ctx, result); err != nil {
			logger.Error("failed to save result", slog.Int64("test_id", tc.ID), slog.String("error", err.Error()))
		}
		logger.Info("test executed",
			slog.Int64("test_id", tc.ID),
			slog.String("method", tc.Method),
			slog.String("url", tc.URL),
			slog.String("verdict", string(result.Verdict)),
			slog.Int("status", result.ActualStatusCode),
			slog.Int64("duration_ms", result.DurationMS),
		)
		outcomes = append(outcomes, Outcome{Test: tc, Result: result})
	}
	if runErr == nil {
		runErr = ctx.Err()
	}

	summary := Summarize(runID, outcomes, e.Now().Sub(started))
	summary.Cancelled = runErr != nil
	if err := e.Bus.Publish(bus.SubjectTestRunCompleted, summary); err != nil {
		logger.Error("failed to publish run event", slog.String("error", err.Error()))
	}
	logger.Info("test run finished",
		slog.Int("passed", summary.Passed),
		slog.Int("failed", summary.Failed),
		slog.Int("errored", summary.Errored),
		slog.Bool("cancelled", summary.Cancelled),
	)
	return outcomes, runErr
}

func (e *Executor) execute(ctx context.Context, runID string, tc catalog.TestCase) catalog.ExecutionResult {
	started := e.Now()
	result := catalog.ExecutionResult{TestID: tc.ID, RunID: runID, ExecutedAt: started.UTC()}
	resp, err := e.Client.Send(ctx, tc)
	result.DurationMS = e.Now().Sub(started).Milliseconds()
	if err != nil {
		result.Verdict = catalog.VerdictError
		result.Error = err.Error()
		return result
	}
	result.ActualStatusCode = resp.StatusCode
	result.ActualResponse = resp.Body
	bodyMatches, diff := compareBodies(tc.ExpectedResponse, resp.Body)
	switch {
	case resp.StatusCode != tc.ExpectedStatusCode:
		result.Verdict = catalog.VerdictFailed
		result.Diff = fmt.Sprintf("status: expected %d, got %d", tc.ExpectedStatusCode, resp.StatusCode)
		if !bodyMatches {
			result.Diff += "\nbody:\n" + diff
		}
	case !bodyMatches:
		result.Verdict = catalog.VerdictFailed
		result.Diff = diff
	default:
		result.Verdict = catalog.VerdictPassed
	}
	return result
}
