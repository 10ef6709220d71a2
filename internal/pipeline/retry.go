package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"time"

	"sheetfill/internal/llm"
	"sheetfill/internal/model"
	"sheetfill/internal/sheet"
)

const MaxRetries = 3

// IsRetryable checks if an error is worth retrying.
func IsRetryable(err error) bool {
	var retryErr *llm.RetryableError
	return errors.As(err, &retryErr)
}

// Backoff returns a duration for attempt n (0-indexed) with jitter.
func Backoff(attempt int) time.Duration {
	base := time.Duration(1<<uint(attempt)) * time.Second
	if base > 30*time.Second {
		base = 30 * time.Second
	}
	jitter := time.Duration(rand.Int64N(int64(base) / 2))
	return base + jitter
}

// retryingAnalyzer retries transient provider errors before letting the
// extraction layer fall back to its heuristics.
type retryingAnalyzer struct {
	inner sheet.Analyzer
	log   *slog.Logger
}

// WithRetry wraps an analyzer with retry on retryable errors.
func WithRetry(inner sheet.Analyzer, log *slog.Logger) sheet.Analyzer {
	return &retryingAnalyzer{inner: inner, log: log}
}

func retry[T any](ctx context.Context, log *slog.Logger, op string, fn func() (T, error)) (T, error) {
	var out T
	var err error
	for attempt := range MaxRetries {
		out, err = fn()
		if err == nil || !IsRetryable(err) {
			return out, err
		}
		log.Warn("retryable provider error", "op", op, "attempt", attempt, "error", err)
		select {
		case <-time.After(Backoff(attempt)):
		case <-ctx.Done():
			return out, ctx.Err()
		}
	}
	return out, err
}

func (r *retryingAnalyzer) AnalyzeSheets(ctx context.Context, sheets []model.SheetInfo) (*model.SheetsAnalysis, error) {
	return retry(ctx, r.log, "analyze_sheets", func() (*model.SheetsAnalysis, error) {
		return r.inner.AnalyzeSheets(ctx, sheets)
	})
}

func (r *retryingAnalyzer) DetectColumns(ctx context.Context, sheetName string, headers []model.Header, samples [][]string, stats map[string]model.ColumnStats) (*model.ColumnDetection, error) {
	return retry(ctx, r.log, "detect_columns", func() (*model.ColumnDetection, error) {
		return r.inner.DetectColumns(ctx, sheetName, headers, samples, stats)
	})
}

func (r *retryingAnalyzer) ExtractGlobalContext(ctx context.Context, data model.SheetData) (*model.GlobalContext, error) {
	return retry(ctx, r.log, "global_context", func() (*model.GlobalContext, error) {
		return r.inner.ExtractGlobalContext(ctx, data)
	})
}
