package classify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"sheetfill/internal/model"
)

// Config controls batch windowing and retry behavior.
type Config struct {
	BatchSize    int           // Items per classification window.
	Overlap      int           // Positions shared between consecutive windows.
	MinBatchSize int           // Floor when degrading the batch size.
	MaxBatches   int           // Hard ceiling on windows attempted per run.
	MaxFailures  int           // Consecutive batch failures before the breaker trips.
	MaxAttempts  int           // Attempts per batch before it counts as failed.
	BaseDelay    time.Duration // First retry delay; doubles each attempt.
}

// DefaultConfig returns the tuned defaults.
func DefaultConfig() Config {
	return Config{
		BatchSize:    50,
		Overlap:      10,
		MinBatchSize: 20,
		MaxBatches:   50,
		MaxFailures:  3,
		MaxAttempts:  5,
		BaseDelay:    time.Second,
	}
}

// Pipeline classifies an ordered unit sequence in overlapping windows,
// reconciling per-window results into one complete, gap-free judgement set.
type Pipeline struct {
	classifier Classifier
	cfg        Config
	log        *slog.Logger
}

// NewPipeline builds a pipeline. classifier may be nil, in which case every
// position is resolved by the rule classifier.
func NewPipeline(classifier Classifier, cfg Config, log *slog.Logger) *Pipeline {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.MinBatchSize <= 0 {
		cfg.MinBatchSize = 20
	}
	if cfg.MaxBatches <= 0 {
		cfg.MaxBatches = 50
	}
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 3
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{classifier: classifier, cfg: cfg, log: log}
}

// ClassifyAll returns exactly one judgement for every position in
// [0, len(items)): no gaps, no duplicates, regardless of how the external
// classifier behaves. It never returns an error; positions the classifier
// could not resolve fall back to the rule classifier.
//
// Windows are processed strictly in position order. When two windows both
// judge an overlapped position, the later-started window wins: it saw more
// trailing context on at least one side. A parallel implementation would
// still have to apply that rule by submission order, not completion order.
func (p *Pipeline) ClassifyAll(ctx context.Context, items []BatchItem) map[int]Judgement {
	total := len(items)
	results := make(map[int]Judgement, total)
	if total == 0 {
		return results
	}

	if p.classifier != nil {
		p.runBatches(ctx, items, results)
	}

	// Terminal safety net: rule-classify every remaining gap.
	filled := 0
	for i := range items {
		if _, ok := results[i]; !ok {
			j := ClassifyByRule(items[i].Text)
			j.Position = i
			results[i] = j
			filled++
		}
	}
	if filled > 0 {
		p.log.Info("rule fallback applied", "positions", filled, "total", total)
	}
	return results
}

func (p *Pipeline) runBatches(ctx context.Context, items []BatchItem, results map[int]Judgement) {
	total := len(items)
	start := 0
	failures := 0

	for batchNum := 1; start < total && batchNum <= p.cfg.MaxBatches; batchNum++ {
		size := p.cfg.BatchSize
		if failures >= 2 {
			// Degrade: smaller windows are cheaper to retry and less
			// likely to trip an implicit size limit of the classifier.
			size = max(p.cfg.MinBatchSize, p.cfg.BatchSize/2)
		}
		end := min(start+size, total)
		batch := items[start:end]

		judgements, err := p.classifyWithRetry(ctx, batch)
		if err != nil {
			failures++
			p.log.Warn("batch classification failed",
				"batch", batchNum, "start", start, "end", end,
				"consecutive_failures", failures, "error", err)
			if failures >= p.cfg.MaxFailures {
				p.log.Warn("too many consecutive failures, abandoning classifier",
					"unresolved_from", start)
				return
			}
		} else {
			p.merge(batch, judgements, results, total)
			failures = 0
		}

		start = nextStart(start, size, p.cfg.Overlap, total)
	}
}

// merge applies one window's judgements, overwriting any judgement an
// earlier window produced for the same position (later window wins).
// Judgements for positions outside the window are ignored.
func (p *Pipeline) merge(batch []BatchItem, judgements []Judgement, results map[int]Judgement, total int) {
	inWindow := make(map[int]bool, len(batch))
	for _, it := range batch {
		inWindow[it.Position] = true
	}
	for _, j := range judgements {
		if !inWindow[j.Position] {
			continue
		}
		if !model.ValidQuestionType(string(j.Type)) {
			continue
		}
		if j.ParentPosition != nil && (*j.ParentPosition < 0 || *j.ParentPosition >= total) {
			j.ParentPosition = nil
		}
		results[j.Position] = normalize(j)
	}
}

// classifyWithRetry makes up to MaxAttempts calls for one window with an
// exponentially growing blocking delay between attempts. An attempt fails
// if the call errors or returns an empty result.
func (p *Pipeline) classifyWithRetry(ctx context.Context, batch []BatchItem) ([]Judgement, error) {
	delay := p.cfg.BaseDelay
	var lastErr error

	for attempt := 0; attempt < p.cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			delay *= 2
		}

		judgements, err := p.classifier.ClassifyBatch(ctx, batch)
		if err == nil && len(judgements) == 0 {
			err = fmt.Errorf("classifier returned no judgements")
		}
		if err == nil {
			return judgements, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return nil, fmt.Errorf("after %d attempts: %w", p.cfg.MaxAttempts, lastErr)
}

// nextStart advances the window, guaranteeing forward progress of at least
// one position even when overlap >= size.
func nextStart(start, size, overlap, total int) int {
	next := start + size - overlap
	if next <= start {
		next = start + 1
	}
	if next > total {
		next = total
	}
	return next
}
