package sheet

import (
	"context"
	"log/slog"
	"strings"

	"sheetfill/internal/model"
)

// Analyzer is the model-backed analysis capability. All three operations
// have statistical or heuristic fallbacks, so an Analyzer may be nil.
type Analyzer interface {
	AnalyzeSheets(ctx context.Context, sheets []model.SheetInfo) (*model.SheetsAnalysis, error)
	DetectColumns(ctx context.Context, sheetName string, headers []model.Header, samples [][]string, stats map[string]model.ColumnStats) (*model.ColumnDetection, error)
	ExtractGlobalContext(ctx context.Context, data model.SheetData) (*model.GlobalContext, error)
}

var instructionWords = []string{
	"instruction", "guideline", "overview", "introduction", "about",
	"how to", "please read", "context", "background", "purpose",
}

var requirementWords = []string{
	"requirement", "question", "describe", "provide", "explain",
	"vendor", "response", "capability", "compliance", "support",
}

// smartFallbackAnalysis classifies sheets without a model: small sheets
// dominated by instructional vocabulary become content sheets, everything
// else is treated as a question sheet extracted from column A with the
// following columns as answers.
func smartFallbackAnalysis(infos []model.SheetInfo) *model.SheetsAnalysis {
	out := &model.SheetsAnalysis{
		Sheets: make(map[string]model.SheetAnalysis, len(infos)),
		Overview: model.DocumentOverview{
			DocumentType: "RFI/RFP questionnaire",
		},
	}
	for _, info := range infos {
		instr, req := scoreVocabulary(info)
		nameScore := scoreSheetName(info.Name)

		if (instr > req && info.Rows <= 50) || nameScore > 0 {
			out.Sheets[info.Name] = model.SheetAnalysis{
				SheetType:      model.ContentSheet,
				Purpose:        "document instructions and context",
				SkipExtraction: true,
				Confidence:     "low",
			}
			continue
		}

		answers := make([]string, 0, fallbackAnswerColumnSpan)
		for _, h := range info.Headers {
			if h.Column != "A" {
				answers = append(answers, h.Column)
			}
			if len(answers) == fallbackAnswerColumnSpan {
				break
			}
		}
		out.Sheets[info.Name] = model.SheetAnalysis{
			SheetType:         model.QuestionSheet,
			Purpose:           "questions to extract",
			ContainsQuestions: true,
			Strategy: &model.ExtractionStrategy{
				QuestionColumns: []string{"A"},
				AnswerColumns:   answers,
				StartRow:        2,
			},
			Confidence: "low",
		}
		out.Overview.TotalQuestionSheets++
	}
	return out
}

// scoreVocabulary counts instructional versus requirement vocabulary hits
// across a sheet's headers and samples.
func scoreVocabulary(info model.SheetInfo) (instr, req int) {
	var sb strings.Builder
	for _, h := range info.Headers {
		sb.WriteString(h.Value)
		sb.WriteByte(' ')
	}
	for _, row := range info.Samples {
		for _, v := range row {
			sb.WriteString(v)
			sb.WriteByte(' ')
		}
	}
	text := strings.ToLower(sb.String())
	for _, w := range instructionWords {
		instr += strings.Count(text, w)
	}
	for _, w := range requirementWords {
		req += strings.Count(text, w)
	}
	return instr, req
}

func scoreSheetName(name string) int {
	name = strings.ToLower(name)
	score := 0
	for _, w := range []string{"instruction", "intro", "cover", "read me", "readme", "overview", "context", "about"} {
		if strings.Contains(name, w) {
			score++
		}
	}
	return score
}

// ChooseContentSheet picks the sheet to extract global context from:
// manual override first, then the analysis verdict, then the first sheet.
func ChooseContentSheet(manual string, analysis *model.SheetsAnalysis, names []string) string {
	if manual != "" {
		for _, n := range names {
			if strings.EqualFold(n, manual) {
				return n
			}
		}
	}
	if analysis != nil {
		// Preserve workbook order among detected content sheets.
		for _, n := range names {
			if sa, ok := analysis.Sheets[n]; ok && sa.SheetType == model.ContentSheet {
				return n
			}
		}
	}
	if len(names) > 0 {
		return names[0]
	}
	return ""
}

// FallbackContext returns the document context assumed when none can be
// extracted.
func FallbackContext() *model.GlobalContext {
	return &model.GlobalContext{
		DocumentType:    "RFI/RFP",
		DocumentPurpose: "vendor capability assessment",
		FillingInstructions: model.FillingInstructions{
			General: "Answer each requirement on behalf of the responding vendor.",
		},
		AnswerGuidelines: model.AnswerGuidelines{
			ComplianceResponses: []string{"Yes", "No", "Partial"},
		},
	}
}

// AnalyzeWorkbook runs sheet-type analysis with the model, falling back to
// the vocabulary heuristic on any failure.
func AnalyzeWorkbook(ctx context.Context, wb *Workbook, analyzer Analyzer, log *slog.Logger) (*model.SheetsAnalysis, error) {
	infos, err := wb.SheetInfos()
	if err != nil {
		return nil, err
	}
	if analyzer != nil {
		analysis, err := analyzer.AnalyzeSheets(ctx, infos)
		if err == nil && analysis != nil && len(analysis.Sheets) > 0 {
			return analysis, nil
		}
		log.Warn("sheet analysis failed, using heuristic fallback", "error", err)
	}
	return smartFallbackAnalysis(infos), nil
}
