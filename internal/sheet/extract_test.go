package sheet

import (
	"context"
	"log/slog"
	"testing"

	"github.com/xuri/excelize/v2"

	"sheetfill/internal/classify"
	"sheetfill/internal/model"
)

func testWorkbook(t *testing.T) *Workbook {
	t.Helper()
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", "Questions"); err != nil {
		t.Fatalf("rename sheet: %v", err)
	}
	cells := map[string]string{
		"A1": "Requirement",
		"B1": "Response",
		"A2": "Security Requirements include the following:",
		"A3": "1) Describe encryption at rest",
		"B3": "AES-256",
		"A4": "Provide details for each area:\na) backups\nb) retention of data",
	}
	for cell, v := range cells {
		if err := f.SetCellValue("Questions", cell, v); err != nil {
			t.Fatalf("set %s: %v", cell, err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	wb, err := OpenReader(buf, "test.xlsx")
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	t.Cleanup(func() { wb.Close() })
	return wb
}

func ruleOnlyPipeline() *classify.Pipeline {
	return classify.NewPipeline(nil, classify.DefaultConfig(), slog.New(slog.DiscardHandler))
}

func TestExtractorRun_RuleOnly(t *testing.T) {
	wb := testWorkbook(t)
	ex := NewExtractor(wb, nil, ruleOnlyPipeline(), slog.New(slog.DiscardHandler))

	result, err := ex.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.GlobalContext == nil || result.GlobalContext.DocumentType != "RFI/RFP" {
		t.Errorf("expected fallback global context, got %+v", result.GlobalContext)
	}

	sheet, ok := result.SheetResults["Questions"]
	if !ok {
		t.Fatalf("missing sheet result, have %v", result.SheetResults)
	}
	if sheet.TotalExtracted != 5 {
		t.Fatalf("extracted %d questions, want 5", sheet.TotalExtracted)
	}

	byRow := make(map[int][]model.ExtractedQuestion)
	for _, q := range sheet.Questions {
		byRow[q.RowID] = append(byRow[q.RowID], q)
	}

	header := byRow[2][0]
	if header.QuestionType != model.ParentHeader || !header.IsParent || header.ShouldFill {
		t.Errorf("row 2 = %+v, want non-fillable parent header", header)
	}

	numbered := byRow[3][0]
	if numbered.QuestionType != model.NumberedRequirement || !numbered.ShouldFill {
		t.Errorf("row 3 = %+v, want fillable numbered requirement", numbered)
	}
	if numbered.Answers["B"] != "AES-256" {
		t.Errorf("row 3 answers = %v, want B=AES-256", numbered.Answers)
	}

	if len(byRow[4]) != 3 {
		t.Fatalf("row 4 produced %d items, want 3", len(byRow[4]))
	}
	for _, q := range byRow[4][1:] {
		if q.QuestionType != model.SubListRequirement {
			t.Errorf("sub-item type = %q, want sub_list_requirement", q.QuestionType)
		}
		if q.HierarchyLevel != 2 {
			t.Errorf("sub-item level = %d, want 2", q.HierarchyLevel)
		}
		if q.ParentRowID == nil || *q.ParentRowID != 4 {
			t.Errorf("sub-item parent row = %v, want 4", q.ParentRowID)
		}
		if q.ParentText != byRow[4][0].Question {
			t.Errorf("sub-item parent text = %q, want %q", q.ParentText, byRow[4][0].Question)
		}
	}

	hs := sheet.HierarchyStats
	if hs.ParentHeaders != 1 || hs.NumberedRequirements != 1 || hs.SubListRequirements != 2 {
		t.Errorf("hierarchy stats = %+v", hs)
	}
	if hs.TotalFillable != 4 {
		t.Errorf("total fillable = %d, want 4", hs.TotalFillable)
	}
	if sheet.Statistics.CompletionRate != 0.25 {
		t.Errorf("completion rate = %v, want 0.25", sheet.Statistics.CompletionRate)
	}

	for i, q := range sheet.Questions {
		if q.QuestionID != i+1 {
			t.Errorf("question %d has ID %d, want sequential", i, q.QuestionID)
		}
	}
}

func TestExtractSheet_SkipRows(t *testing.T) {
	wb := testWorkbook(t)
	ex := NewExtractor(wb, nil, ruleOnlyPipeline(), slog.New(slog.DiscardHandler))

	det := &model.ColumnDetection{
		QuestionColumn: "A",
		AnswerColumns:  []string{"B"},
		StartRow:       2,
		SkipRows:       []int{2, 4},
	}
	result, err := ex.ExtractSheet(context.Background(), "Questions", det)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if result.TotalExtracted != 1 {
		t.Fatalf("extracted %d questions, want 1", result.TotalExtracted)
	}
	if result.Questions[0].RowID != 3 {
		t.Errorf("remaining question row = %d, want 3", result.Questions[0].RowID)
	}
}
