package classify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"sheetfill/internal/model"
)

// scriptedClassifier drives the pipeline with a per-call function and
// records every batch it receives.
type scriptedClassifier struct {
	calls   int
	batches [][]BatchItem
	fn      func(call int, items []BatchItem) ([]Judgement, error)
}

func (c *scriptedClassifier) ClassifyBatch(_ context.Context, items []BatchItem) ([]Judgement, error) {
	c.calls++
	copied := make([]BatchItem, len(items))
	copy(copied, items)
	c.batches = append(c.batches, copied)
	return c.fn(c.calls, items)
}

func echoJudgements(items []BatchItem) []Judgement {
	out := make([]Judgement, len(items))
	for i, it := range items {
		out[i] = Judgement{
			Position:   it.Position,
			Type:       model.GeneralQuestion,
			ShouldFill: true,
		}
	}
	return out
}

func makeItems(n int) []BatchItem {
	items := make([]BatchItem, n)
	for i := range items {
		items[i] = BatchItem{Position: i, Text: fmt.Sprintf("item %d", i)}
	}
	return items
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.BaseDelay = 0
	cfg.MaxAttempts = 1
	return cfg
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func assertFullCoverage(t *testing.T, results map[int]Judgement, n int) {
	t.Helper()
	if len(results) != n {
		t.Fatalf("expected %d judgements, got %d", n, len(results))
	}
	for i := range n {
		j, ok := results[i]
		if !ok {
			t.Fatalf("position %d has no judgement", i)
		}
		if j.Position != i {
			t.Errorf("position %d: judgement carries position %d", i, j.Position)
		}
	}
}

func TestClassifyAll_TotalCoverageOnSuccess(t *testing.T) {
	c := &scriptedClassifier{fn: func(_ int, items []BatchItem) ([]Judgement, error) {
		return echoJudgements(items), nil
	}}
	p := NewPipeline(c, testConfig(), discardLogger())

	results := p.ClassifyAll(context.Background(), makeItems(123))
	assertFullCoverage(t, results, 123)
}

func TestClassifyAll_TotalCoverageOnCompleteFailure(t *testing.T) {
	c := &scriptedClassifier{fn: func(_ int, _ []BatchItem) ([]Judgement, error) {
		return nil, errors.New("service unavailable")
	}}
	p := NewPipeline(c, testConfig(), discardLogger())

	results := p.ClassifyAll(context.Background(), makeItems(77))
	assertFullCoverage(t, results, 77)
}

func TestClassifyAll_PartialBatchResponseFilledByFallback(t *testing.T) {
	// The classifier only judges even positions; odd positions must still
	// be covered via the rule fallback.
	c := &scriptedClassifier{fn: func(_ int, items []BatchItem) ([]Judgement, error) {
		var out []Judgement
		for _, it := range items {
			if it.Position%2 == 0 {
				out = append(out, Judgement{
					Position: it.Position, Type: model.NumberedRequirement, ShouldFill: true, HierarchyLevel: 1,
				})
			}
		}
		return out, nil
	}}
	p := NewPipeline(c, testConfig(), discardLogger())

	results := p.ClassifyAll(context.Background(), makeItems(40))
	assertFullCoverage(t, results, 40)
	if results[2].Type != model.NumberedRequirement {
		t.Errorf("expected classifier judgement at position 2, got %s", results[2].Type)
	}
	if results[3].Type != model.GeneralQuestion {
		t.Errorf("expected rule fallback at position 3, got %s", results[3].Type)
	}
}

func TestClassifyAll_LaterBatchWinsOverlap(t *testing.T) {
	// Two windows cover [0,10) and [8,18). Both judge position 9; the
	// second window's judgement must win.
	cfg := testConfig()
	cfg.BatchSize = 10
	cfg.Overlap = 2

	c := &scriptedClassifier{fn: func(call int, items []BatchItem) ([]Judgement, error) {
		out := echoJudgements(items)
		for i, it := range items {
			if it.Position == 9 {
				if call == 1 {
					out[i].Type = model.ParentHeader
				} else {
					out[i].Type = model.LetteredRequirement
					out[i].HierarchyLevel = 1
				}
			}
		}
		return out, nil
	}}
	p := NewPipeline(c, cfg, discardLogger())

	results := p.ClassifyAll(context.Background(), makeItems(18))
	assertFullCoverage(t, results, 18)

	if got := results[9].Type; got != model.LetteredRequirement {
		t.Errorf("expected later batch's judgement at position 9, got %s", got)
	}
	if len(c.batches) < 2 {
		t.Fatalf("expected at least 2 batches, got %d", len(c.batches))
	}
	if first := c.batches[1][0].Position; first != 8 {
		t.Errorf("expected second window to start at 8, got %d", first)
	}
}

func TestClassifyAll_CircuitBreakerStopsCalls(t *testing.T) {
	cfg := testConfig()
	cfg.BatchSize = 50

	c := &scriptedClassifier{fn: func(_ int, _ []BatchItem) ([]Judgement, error) {
		return nil, errors.New("boom")
	}}
	p := NewPipeline(c, cfg, discardLogger())

	results := p.ClassifyAll(context.Background(), makeItems(100))
	assertFullCoverage(t, results, 100)

	if c.calls != cfg.MaxFailures {
		t.Errorf("expected exactly %d calls before the breaker trips, got %d", cfg.MaxFailures, c.calls)
	}
	for i := range 100 {
		if results[i].Type != ClassifyByRule(fmt.Sprintf("item %d", i)).Type {
			t.Fatalf("position %d: expected rule-based judgement", i)
		}
	}
}

func TestClassifyAll_ForwardProgressWhenOverlapExceedsBatchSize(t *testing.T) {
	cfg := testConfig()
	cfg.BatchSize = 10
	cfg.Overlap = 15
	cfg.MaxBatches = 1000

	c := &scriptedClassifier{fn: func(_ int, items []BatchItem) ([]Judgement, error) {
		return echoJudgements(items), nil
	}}
	p := NewPipeline(c, cfg, discardLogger())

	results := p.ClassifyAll(context.Background(), makeItems(30))
	assertFullCoverage(t, results, 30)

	// Each window must start strictly after the previous one.
	for i := 1; i < len(c.batches); i++ {
		if c.batches[i][0].Position <= c.batches[i-1][0].Position {
			t.Fatalf("window %d did not advance: %d -> %d",
				i, c.batches[i-1][0].Position, c.batches[i][0].Position)
		}
	}
}

func TestClassifyAll_BatchCeilingBoundsCalls(t *testing.T) {
	cfg := testConfig()
	cfg.BatchSize = 10
	cfg.Overlap = 15 // forces +1 steps, far too slow to cover 200 items
	cfg.MaxBatches = 50

	c := &scriptedClassifier{fn: func(_ int, items []BatchItem) ([]Judgement, error) {
		return echoJudgements(items), nil
	}}
	p := NewPipeline(c, cfg, discardLogger())

	results := p.ClassifyAll(context.Background(), makeItems(200))
	assertFullCoverage(t, results, 200)
	if c.calls > cfg.MaxBatches {
		t.Errorf("expected at most %d calls, got %d", cfg.MaxBatches, c.calls)
	}
}

func TestClassifyAll_BatchSizeHalvesAfterRepeatedFailures(t *testing.T) {
	cfg := testConfig()
	cfg.BatchSize = 60
	cfg.MaxFailures = 5

	c := &scriptedClassifier{fn: func(call int, items []BatchItem) ([]Judgement, error) {
		if call <= 2 {
			return nil, errors.New("overloaded")
		}
		return echoJudgements(items), nil
	}}
	p := NewPipeline(c, cfg, discardLogger())

	results := p.ClassifyAll(context.Background(), makeItems(200))
	assertFullCoverage(t, results, 200)

	if len(c.batches) < 3 {
		t.Fatalf("expected at least 3 batches, got %d", len(c.batches))
	}
	if got := len(c.batches[2]); got != 30 {
		t.Errorf("expected third window to degrade to 30 items, got %d", got)
	}
}

func TestClassifyAll_RetriesWithinOneBatch(t *testing.T) {
	cfg := testConfig()
	cfg.MaxAttempts = 5

	c := &scriptedClassifier{fn: func(call int, items []BatchItem) ([]Judgement, error) {
		if call < 3 {
			return nil, errors.New("transient")
		}
		return echoJudgements(items), nil
	}}
	p := NewPipeline(c, cfg, discardLogger())

	results := p.ClassifyAll(context.Background(), makeItems(10))
	assertFullCoverage(t, results, 10)
	if c.calls != 3 {
		t.Errorf("expected 3 attempts for the single batch, got %d", c.calls)
	}
	if results[0].Type != model.GeneralQuestion {
		t.Errorf("expected classifier judgement after retries, got %s", results[0].Type)
	}
}

func TestClassifyAll_EmptyResultCountsAsFailure(t *testing.T) {
	c := &scriptedClassifier{fn: func(_ int, _ []BatchItem) ([]Judgement, error) {
		return nil, nil
	}}
	p := NewPipeline(c, testConfig(), discardLogger())

	results := p.ClassifyAll(context.Background(), makeItems(5))
	assertFullCoverage(t, results, 5)
}

func TestClassifyAll_InvalidJudgementsDiscarded(t *testing.T) {
	c := &scriptedClassifier{fn: func(_ int, items []BatchItem) ([]Judgement, error) {
		out := echoJudgements(items)
		out[0].Type = "made_up_role"
		bogus := 9999
		out[1].ParentPosition = &bogus
		return out, nil
	}}
	p := NewPipeline(c, testConfig(), discardLogger())

	results := p.ClassifyAll(context.Background(), makeItems(10))
	assertFullCoverage(t, results, 10)

	// Position 0's invalid role was dropped and rule-fallbacked.
	if !model.ValidQuestionType(string(results[0].Type)) {
		t.Errorf("invalid role leaked through: %s", results[0].Type)
	}
	if results[1].ParentPosition != nil {
		t.Error("out-of-range parent position must be cleared")
	}
}

func TestClassifyAll_NilClassifierRuleClassifiesEverything(t *testing.T) {
	p := NewPipeline(nil, testConfig(), discardLogger())

	items := []BatchItem{
		{Position: 0, Text: "Please provide the following capabilities:"},
		{Position: 1, Text: "1) Supports SSO"},
		{Position: 2, Text: "What is your uptime SLA?"},
	}
	results := p.ClassifyAll(context.Background(), items)
	assertFullCoverage(t, results, 3)

	if results[0].Type != model.ParentHeader {
		t.Errorf("expected parent_header, got %s", results[0].Type)
	}
	if results[1].Type != model.NumberedRequirement {
		t.Errorf("expected numbered_requirement, got %s", results[1].Type)
	}
	if results[2].Type != model.GeneralQuestion {
		t.Errorf("expected general_question, got %s", results[2].Type)
	}
}

func TestClassifyAll_NoInput(t *testing.T) {
	c := &scriptedClassifier{fn: func(_ int, items []BatchItem) ([]Judgement, error) {
		return echoJudgements(items), nil
	}}
	p := NewPipeline(c, testConfig(), discardLogger())

	results := p.ClassifyAll(context.Background(), nil)
	if len(results) != 0 {
		t.Errorf("expected no judgements, got %d", len(results))
	}
	if c.calls != 0 {
		t.Errorf("expected no classifier calls, got %d", c.calls)
	}
}
