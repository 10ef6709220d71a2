package fill

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"path/filepath"
	"strings"
	"time"

	"sheetfill/internal/llm"
	"sheetfill/internal/model"
	"sheetfill/internal/sheet"
)

type responseType string

const (
	positive responseType = "positive"
	negative responseType = "negative"
	partial  responseType = "partial"
)

// Common compliance-matrix column layout used by cross-column rules.
var complianceColumns = []string{"C", "D", "E"}

var complianceMarks = map[responseType]string{
	positive: "C",
	negative: "D",
	partial:  "E",
}

// Filler writes synthesized answers into empty answer cells of a workbook,
// guided by a fill strategy and its cross-column rules.
type Filler struct {
	wb         *sheet.Workbook
	strategist StrategyGenerator
	log        *slog.Logger
	rng        *rand.Rand

	// OutputDir receives the filled workbook copy; empty means the
	// current directory.
	OutputDir string

	// Distribution is the response-type split used when a strategy does
	// not carry a valid one. Must sum to 100 to take effect.
	Distribution model.FillDistribution
}

// NewFiller builds a filler. strategist may be nil; the purpose-keyed
// fallback strategy is used instead.
func NewFiller(wb *sheet.Workbook, strategist StrategyGenerator, log *slog.Logger) *Filler {
	if log == nil {
		log = slog.Default()
	}
	return &Filler{
		wb:         wb,
		strategist: strategist,
		log:        log,
		rng:        rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
}

// FillWorkbook fills every extracted sheet and saves the result as
// enhanced_filled_<timestamp>_<base>.xlsx. It returns the output path and
// the number of questions that received at least one answer.
func (f *Filler) FillWorkbook(ctx context.Context, result *model.WorkbookResult) (string, int, error) {
	total := 0
	for sheetName, sheetResult := range result.SheetResults {
		filled, err := f.FillSheet(ctx, sheetName, sheetResult, result.GlobalContext)
		if err != nil {
			return "", total, err
		}
		total += filled
		f.log.Info("sheet filled", "sheet", sheetName, "questions", filled)
	}

	out := f.outputPath()
	if err := f.wb.File().SaveAs(out); err != nil {
		return "", total, fmt.Errorf("save filled workbook: %w", err)
	}
	return out, total, nil
}

// FillSheet synthesizes answers for one sheet's fillable, unanswered
// questions.
func (f *Filler) FillSheet(ctx context.Context, sheetName string, res *model.ExtractionResult, gc *model.GlobalContext) (int, error) {
	var fillable []model.ExtractedQuestion
	for _, q := range res.Questions {
		if q.ShouldFill && len(q.Answers) == 0 {
			fillable = append(fillable, q)
		}
	}
	if len(fillable) == 0 {
		return 0, nil
	}

	info := llm.FillSheetInfo{
		SheetName:         sheetName,
		FillableQuestions: len(fillable),
	}
	if res.ColumnInfo != nil {
		info.AnswerColumns = res.ColumnInfo.AnswerColumns
		info.ColumnPurposes = res.ColumnInfo.ColumnPurposes
	}
	if len(info.AnswerColumns) == 0 {
		return 0, fmt.Errorf("sheet %q has no answer columns to fill", sheetName)
	}

	strategy := f.resolveStrategy(ctx, info, gc)
	return f.apply(sheetName, fillable, strategy)
}

func (f *Filler) resolveStrategy(ctx context.Context, info llm.FillSheetInfo, gc *model.GlobalContext) *model.FillStrategy {
	if f.strategist != nil {
		strategy, err := f.strategist.GenerateFillStrategy(ctx, info, gc)
		if err == nil && strategy != nil && len(strategy.ColumnStrategies) > 0 {
			return strategy
		}
		f.log.Warn("strategy generation failed, using fallback", "sheet", info.SheetName, "error", err)
	}
	return FallbackStrategy(info)
}

func (f *Filler) apply(sheetName string, questions []model.ExtractedQuestion, strategy *model.FillStrategy) (int, error) {
	assignments := f.assignResponseTypes(len(questions), f.distribution(strategy))

	filled := 0
	for i, q := range questions {
		rt := assignments[i]
		rowValues := make(map[string]string)
		for col, cs := range strategy.ColumnStrategies {
			value := f.valueFor(col, cs, rt, rowValues, strategy.CrossColumnRules)
			if value == "" {
				continue
			}
			current, err := f.wb.CellValue(sheetName, col, q.RowID)
			if err != nil {
				return filled, err
			}
			if strings.TrimSpace(current) != "" {
				continue
			}
			if err := f.wb.SetCellValue(sheetName, col, q.RowID, value); err != nil {
				return filled, err
			}
			rowValues[col] = value
		}
		if len(rowValues) > 0 {
			filled++
		}
	}
	return filled, nil
}

// distribution picks the strategy's split when it sums to 100, then the
// filler-level default, then the stock 70/15/15.
func (f *Filler) distribution(strategy *model.FillStrategy) model.FillDistribution {
	for _, d := range []model.FillDistribution{strategy.Distribution, f.Distribution} {
		if d.Positive+d.Negative+d.Partial == 100 {
			return d
		}
	}
	return model.FillDistribution{Positive: 70, Negative: 15, Partial: 15}
}

// assignResponseTypes splits questions into positive/negative/partial per
// the distribution percentages, then shuffles the assignment order.
func (f *Filler) assignResponseTypes(n int, d model.FillDistribution) []responseType {
	positiveCount := n * d.Positive / 100
	negativeCount := n * d.Negative / 100
	partialCount := n - positiveCount - negativeCount

	assignments := make([]responseType, 0, n)
	for range positiveCount {
		assignments = append(assignments, positive)
	}
	for range negativeCount {
		assignments = append(assignments, negative)
	}
	for range partialCount {
		assignments = append(assignments, partial)
	}
	f.rng.Shuffle(len(assignments), func(i, j int) {
		assignments[i], assignments[j] = assignments[j], assignments[i]
	})
	return assignments
}

func (f *Filler) valueFor(col string, cs model.ColumnFillStrategy, rt responseType, rowValues map[string]string, crossRules []string) string {
	if f.rng.Float64() < cs.EmptyProbability {
		return ""
	}
	for _, rule := range crossRules {
		if v, ok := f.applyCrossRule(rule, col, rt); ok {
			return v
		}
	}
	// Conditional columns are only filled for the response type their
	// logic names.
	if cs.ConditionalLogic != "" && !conditionalApplies(cs.ConditionalLogic, rt) {
		return ""
	}
	return f.pick(valuesFor(cs, rt))
}

// applyCrossRule evaluates one cross-column rule. A compliance-matrix rule
// ticks exactly one of the compliance columns per response type; a
// not-applicable rule substitutes the negative answer.
func (f *Filler) applyCrossRule(rule, col string, rt responseType) (string, bool) {
	r := strings.ToLower(rule)

	if strings.Contains(r, "only one") && strings.Contains(r, "compliance") {
		for _, c := range complianceColumns {
			if c != col {
				continue
			}
			if complianceMarks[rt] == col {
				return "✓", true
			}
			return "", true
		}
	}
	if strings.Contains(r, "not applicable") && rt == negative {
		return "Not applicable", true
	}
	return "", false
}

func conditionalApplies(logic string, rt responseType) bool {
	l := strings.ToLower(logic)
	switch {
	case strings.Contains(l, "if positive"):
		return rt == positive
	case strings.Contains(l, "if negative"):
		return rt == negative
	case strings.Contains(l, "if partial"):
		return rt == partial
	}
	return false
}

func valuesFor(cs model.ColumnFillStrategy, rt responseType) []string {
	switch rt {
	case positive:
		return cs.PositiveValues
	case negative:
		return cs.NegativeValues
	}
	return cs.PartialValues
}

func (f *Filler) pick(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[f.rng.IntN(len(values))]
}

func (f *Filler) outputPath() string {
	base := strings.TrimSuffix(filepath.Base(f.wb.Path()), filepath.Ext(f.wb.Path()))
	name := fmt.Sprintf("enhanced_filled_%s_%s.xlsx", time.Now().Format("20060102_150405"), base)
	return filepath.Join(f.OutputDir, name)
}
