// Package report persists extraction results and their analysis summary to
// disk, and loads them back for the fill stage.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"sheetfill/internal/model"
)

const resultsFileName = "extraction_results.json"

// SheetSummary is the per-sheet section of the analysis report.
type SheetSummary struct {
	TotalItems           int                  `json:"total_items"`
	FillableRequirements int                  `json:"fillable_requirements"`
	StructuralItems      int                  `json:"structural_items"`
	HierarchyStats       model.HierarchyStats `json:"hierarchy_stats"`
	ColumnDetection      ColumnSummary        `json:"column_detection"`
}

// ColumnSummary is the condensed column layout in the analysis report.
type ColumnSummary struct {
	QuestionColumn string   `json:"question_column"`
	AnswerColumns  []string `json:"answer_columns"`
	Confidence     string   `json:"confidence"`
}

// OverallSummary aggregates across all sheets.
type OverallSummary struct {
	TotalItemsExtracted       int     `json:"total_items_extracted"`
	TotalFillableRequirements int     `json:"total_fillable_requirements"`
	TotalStructuralItems      int     `json:"total_structural_items"`
	FillablePercentage        float64 `json:"fillable_percentage"`
}

// AnalysisReport is the analysis_report.json document.
type AnalysisReport struct {
	File             string                  `json:"file"`
	Timestamp        string                  `json:"timestamp"`
	ExtractionMethod string                  `json:"extraction_method"`
	GlobalContext    *model.GlobalContext    `json:"global_context"`
	SheetSummary     map[string]SheetSummary `json:"sheet_summary"`
	OverallSummary   OverallSummary          `json:"overall_summary"`
}

// BuildAnalysisReport derives the analysis summary from a workbook result.
func BuildAnalysisReport(result *model.WorkbookResult, timestamp string) *AnalysisReport {
	report := &AnalysisReport{
		File:             result.FilePath,
		Timestamp:        timestamp,
		ExtractionMethod: "statistical analysis with model-based hierarchy",
		GlobalContext:    result.GlobalContext,
		SheetSummary:     make(map[string]SheetSummary, len(result.SheetResults)),
	}

	totalQuestions, totalFillable := 0, 0
	for name, sheet := range result.SheetResults {
		fillable := sheet.Statistics.FillableQuestions
		totalQuestions += sheet.TotalExtracted
		totalFillable += fillable

		summary := SheetSummary{
			TotalItems:           sheet.TotalExtracted,
			FillableRequirements: fillable,
			StructuralItems:      sheet.TotalExtracted - fillable,
			HierarchyStats:       sheet.HierarchyStats,
		}
		if sheet.ColumnInfo != nil {
			summary.ColumnDetection = ColumnSummary{
				QuestionColumn: sheet.ColumnInfo.QuestionColumn,
				AnswerColumns:  sheet.ColumnInfo.AnswerColumns,
				Confidence:     sheet.ColumnInfo.Confidence,
			}
		}
		report.SheetSummary[name] = summary
	}

	report.OverallSummary = OverallSummary{
		TotalItemsExtracted:       totalQuestions,
		TotalFillableRequirements: totalFillable,
		TotalStructuralItems:      totalQuestions - totalFillable,
	}
	if totalQuestions > 0 {
		pct := float64(totalFillable) / float64(totalQuestions) * 100
		report.OverallSummary.FillablePercentage = float64(int(pct*100+0.5)) / 100
	}
	return report
}

// SaveResults writes extraction_results.json and analysis_report.json into
// a new enhanced_extraction_<base>_<timestamp>/ directory under baseDir and
// returns the directory path.
func SaveResults(result *model.WorkbookResult, baseDir string) (string, error) {
	timestamp := time.Now().Format("20060102_150405")
	base := strings.TrimSuffix(filepath.Base(result.FilePath), filepath.Ext(result.FilePath))
	dir := filepath.Join(baseDir, fmt.Sprintf("enhanced_extraction_%s_%s", base, timestamp))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	if err := writeJSON(filepath.Join(dir, resultsFileName), result); err != nil {
		return "", err
	}
	report := BuildAnalysisReport(result, timestamp)
	if err := writeJSON(filepath.Join(dir, "analysis_report.json"), report); err != nil {
		return "", err
	}
	return dir, nil
}

// LoadResults reads extraction results from a results file or from an
// output directory produced by SaveResults.
func LoadResults(path string) (*model.WorkbookResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("extraction results not found: %w", err)
	}
	if info.IsDir() {
		path = filepath.Join(path, resultsFileName)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read extraction results: %w", err)
	}
	var result model.WorkbookResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("decode extraction results: %w", err)
	}
	return &result, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}
