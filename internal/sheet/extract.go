package sheet

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"sheetfill/internal/classify"
	"sheetfill/internal/model"
)

// Extractor walks a workbook's question sheets and turns their cells into
// classified, hierarchy-linked questions.
type Extractor struct {
	wb       *Workbook
	analyzer Analyzer
	pipeline *classify.Pipeline
	log      *slog.Logger

	// ContentSheet overrides content-sheet selection when non-empty.
	ContentSheet string
	// OnSheet, when set, is invoked after each sheet finishes.
	OnSheet func(sheetName string, result *model.ExtractionResult)
}

// NewExtractor builds an extractor. analyzer may be nil; every analysis
// step then uses its fallback.
func NewExtractor(wb *Workbook, analyzer Analyzer, pipeline *classify.Pipeline, log *slog.Logger) *Extractor {
	if log == nil {
		log = slog.Default()
	}
	return &Extractor{wb: wb, analyzer: analyzer, pipeline: pipeline, log: log}
}

// Run extracts every question sheet in the workbook.
func (e *Extractor) Run(ctx context.Context) (*model.WorkbookResult, error) {
	analysis, err := AnalyzeWorkbook(ctx, e.wb, e.analyzer, e.log)
	if err != nil {
		return nil, err
	}

	result := &model.WorkbookResult{
		FilePath:     e.wb.Path(),
		SheetResults: make(map[string]*model.ExtractionResult),
		Timestamp:    time.Now().Format(time.RFC3339),
	}
	result.GlobalContext = e.extractGlobalContext(ctx, analysis)

	for _, name := range e.wb.SheetNames() {
		sa, ok := analysis.Sheets[name]
		if !ok || sa.SkipExtraction || sa.SheetType != model.QuestionSheet {
			e.log.Info("skipping sheet", "sheet", name, "type", sa.SheetType)
			continue
		}
		det, err := e.detectColumns(ctx, name, sa)
		if err != nil {
			e.log.Warn("column detection failed, skipping sheet", "sheet", name, "error", err)
			continue
		}
		sheetResult, err := e.ExtractSheet(ctx, name, det)
		if err != nil {
			e.log.Warn("sheet extraction failed", "sheet", name, "error", err)
			continue
		}
		result.SheetResults[name] = sheetResult
		if e.OnSheet != nil {
			e.OnSheet(name, sheetResult)
		}
	}
	if len(result.SheetResults) == 0 {
		return nil, fmt.Errorf("no question sheets extracted from %s", e.wb.Path())
	}
	return result, nil
}

func (e *Extractor) extractGlobalContext(ctx context.Context, analysis *model.SheetsAnalysis) *model.GlobalContext {
	name := ChooseContentSheet(e.ContentSheet, analysis, e.wb.SheetNames())
	if name == "" || e.analyzer == nil {
		return FallbackContext()
	}
	data, err := e.wb.CollectSheetData(name)
	if err != nil {
		e.log.Warn("content sheet read failed", "sheet", name, "error", err)
		return FallbackContext()
	}
	gc, err := e.analyzer.ExtractGlobalContext(ctx, *data)
	if err != nil || gc == nil {
		e.log.Warn("global context extraction failed, using fallback", "sheet", name, "error", err)
		return FallbackContext()
	}
	e.log.Info("global context extracted", "sheet", name, "document_type", gc.DocumentType)
	return gc
}

// detectColumns resolves the question/answer column layout for a sheet,
// preferring the model-based detection, then the analysis strategy, then
// pure statistics.
func (e *Extractor) detectColumns(ctx context.Context, sheetName string, sa model.SheetAnalysis) (*model.ColumnDetection, error) {
	headers, err := e.wb.Headers(sheetName)
	if err != nil {
		return nil, err
	}
	samples, err := e.wb.Samples(sheetName)
	if err != nil {
		return nil, err
	}
	stats := AnalyzeColumnPatterns(samples)

	if e.analyzer != nil {
		det, err := e.analyzer.DetectColumns(ctx, sheetName, headers, samples, stats)
		if err == nil && det != nil && det.QuestionColumn != "" {
			if det.StartRow < 1 {
				det.StartRow = 2
			}
			return det, nil
		}
		e.log.Warn("column detection failed, using fallback", "sheet", sheetName, "error", err)
	}

	if sa.Strategy != nil && len(sa.Strategy.QuestionColumns) > 0 {
		startRow := sa.Strategy.StartRow
		if startRow < 1 {
			startRow = 2
		}
		purposes := map[string]string{sa.Strategy.QuestionColumns[0]: "question"}
		for _, a := range sa.Strategy.AnswerColumns {
			purposes[a] = "answer"
		}
		return &model.ColumnDetection{
			QuestionColumn: sa.Strategy.QuestionColumns[0],
			AnswerColumns:  sa.Strategy.AnswerColumns,
			ColumnPurposes: purposes,
			StartRow:       startRow,
			Confidence:     "low",
		}, nil
	}

	if stats == nil {
		return nil, fmt.Errorf("sheet %q has no data to detect columns from", sheetName)
	}
	return StatisticalColumnFallback(stats), nil
}

// ExtractSheet pulls every question out of one sheet using the given
// column layout.
func (e *Extractor) ExtractSheet(ctx context.Context, sheetName string, det *model.ColumnDetection) (*model.ExtractionResult, error) {
	rows, cols, err := e.wb.Dimensions(sheetName)
	if err != nil {
		return nil, err
	}
	qCol, err := excelize.ColumnNameToNumber(det.QuestionColumn)
	if err != nil {
		return nil, fmt.Errorf("bad question column %q: %w", det.QuestionColumn, err)
	}

	skip := make(map[int]bool, len(det.SkipRows))
	for _, r := range det.SkipRows {
		skip[r] = true
	}

	all, err := e.wb.f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheetName, err)
	}

	// Segment cells into classifiable units. Subunits inherit the position
	// of the primary unit they were split from.
	var units []classify.Unit
	var batch []classify.BatchItem
	for rowIdx := det.StartRow - 1; rowIdx < len(all); rowIdx++ {
		rowNum := rowIdx + 1
		if skip[rowNum] {
			continue
		}
		var raw string
		if qCol-1 < len(all[rowIdx]) {
			raw = all[rowIdx][qCol-1]
		}
		if strings.TrimSpace(raw) == "" {
			continue
		}
		segments := classify.SegmentCell(raw)
		primaryText := ""
		for _, seg := range segments {
			if !seg.IsSubunit {
				pos := len(batch)
				primaryText = seg.Text
				units = append(units, classify.Unit{Position: pos, Row: rowNum, Text: seg.Text})
				batch = append(batch, classify.BatchItem{Position: pos, Text: classify.TruncateItemText(seg.Text)})
				continue
			}
			units = append(units, classify.Unit{
				Position:   len(batch) - 1,
				Row:        rowNum,
				Text:       seg.Text,
				ParentText: primaryText,
				IsSubunit:  true,
			})
		}
	}

	judgements := e.pipeline.ClassifyAll(ctx, batch)
	items := classify.Assemble(units, judgements)

	result := &model.ExtractionResult{
		SheetName:      sheetName,
		TotalRows:      rows,
		TotalColumns:   cols,
		TotalExtracted: len(items),
		ColumnInfo:     det,
	}
	answered := 0
	for _, item := range items {
		q := model.ExtractedQuestion{
			QuestionID:     item.SequentialID,
			RowID:          item.Row,
			ColumnLetter:   det.QuestionColumn,
			Question:       item.Text,
			QuestionType:   item.Type,
			IsParent:       item.IsParent,
			ShouldFill:     item.ShouldFill,
			ParentRowID:    item.ParentRow,
			ParentText:     item.ParentText,
			HierarchyLevel: item.HierarchyLevel,
		}
		if item.ShouldFill {
			q.Answers = e.readAnswers(all, det.AnswerColumns, item.Row)
			if len(q.Answers) > 0 {
				answered++
			}
		}
		result.Questions = append(result.Questions, q)
		tallyHierarchy(&result.HierarchyStats, q)
	}

	result.Statistics.FillableQuestions = result.HierarchyStats.TotalFillable
	result.Statistics.NonFillableQuestions = len(items) - result.HierarchyStats.TotalFillable
	if result.HierarchyStats.TotalFillable > 0 {
		result.Statistics.CompletionRate = float64(answered) / float64(result.HierarchyStats.TotalFillable)
	}

	e.log.Info("sheet extracted",
		"sheet", sheetName,
		"questions", len(items),
		"fillable", result.HierarchyStats.TotalFillable,
		"parents", result.HierarchyStats.ParentHeaders)
	return result, nil
}

func (e *Extractor) readAnswers(all [][]string, answerColumns []string, row int) map[string]string {
	var answers map[string]string
	for _, col := range answerColumns {
		n, err := excelize.ColumnNameToNumber(col)
		if err != nil {
			continue
		}
		if row-1 >= len(all) || n-1 >= len(all[row-1]) {
			continue
		}
		v := strings.TrimSpace(all[row-1][n-1])
		if v == "" {
			continue
		}
		if answers == nil {
			answers = make(map[string]string)
		}
		answers[col] = v
	}
	return answers
}

func tallyHierarchy(hs *model.HierarchyStats, q model.ExtractedQuestion) {
	switch q.QuestionType {
	case model.ParentHeader:
		hs.ParentHeaders++
	case model.NumberedRequirement:
		hs.NumberedRequirements++
	case model.LetteredRequirement:
		hs.LetteredRequirements++
	case model.SubListRequirement:
		hs.SubListRequirements++
	case model.BulletItem:
		hs.BulletItems++
	}
	if q.ShouldFill {
		hs.TotalFillable++
	}
}
