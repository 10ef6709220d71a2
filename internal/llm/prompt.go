package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"sheetfill/internal/classify"
	"sheetfill/internal/model"
)

// BuildHierarchyPrompt creates the batch classification prompt. Item text
// is truncated before submission to bound request size.
func BuildHierarchyPrompt(items []classify.BatchItem) string {
	truncated := make([]classify.BatchItem, len(items))
	for i, it := range items {
		truncated[i] = classify.BatchItem{
			Position: it.Position,
			Text:     classify.TruncateItemText(it.Text),
		}
	}
	encoded, _ := json.Marshal(truncated)

	var sb strings.Builder
	fmt.Fprintf(&sb, `Analyze these questions for hierarchical structure. Return a JSON array with exactly %d results, one per input item.

REQUIRED FIELDS for each result:
- "position": the exact position value from the input
- "question_type": one of "parent_header", "numbered_requirement", "lettered_requirement", "sub_list_requirement", "bullet_item", "general_question"
- "is_parent": true only for headers that introduce a list
- "should_fill": false ONLY for parent headers, true for everything else
- "hierarchy_level": 0 for top level, 1 for sub-items, 2 for sub-sub-items
- "parent_position": the position of the parent item, or null

HIERARCHY DETECTION RULES:
1. Parent headers end with ":" AND contain words like "following", "includes", "comprises"
2. Numbered requirements start with "1)", "2)", etc. These ARE requirements that need answers
3. Lettered requirements start with "a.", "b.", etc. These ARE requirements unless they also introduce lists
4. Sub-list items under parents ARE requirements that need answers
5. When in doubt, mark should_fill=true

INPUT ITEMS:
%s

Return only a valid JSON array with %d items, no other text.`, len(items), encoded, len(items))
	return sb.String()
}

// BuildSheetAnalysisPrompt asks for content vs question sheet classification.
func BuildSheetAnalysisPrompt(sheets []model.SheetInfo) string {
	encoded, _ := json.MarshalIndent(sheets, "", " ")
	return fmt.Sprintf(`Analyze these spreadsheet sheets to determine their purpose and structure.

SHEETS INFORMATION:
%s

DETECTION RULES:
1. A sheet is a QUESTION SHEET if it has a column with questions, requirements, or statements, and one or more empty columns that appear to be for answers/responses. Even 2 columns can be a question sheet.
2. Key indicators: column headers like "Compliance", "Response", "Status", "Answer", "Yes/No"; one column with descriptive text while other columns are mostly empty.
3. A sheet is a CONTENT/INSTRUCTION sheet only if it contains mostly instructions or explanations with no clear answer columns.

Analyze the actual data, not just row/column counts.

Respond with JSON only:
{
 "sheets_analysis": {
  "<sheet name>": {
   "sheet_type": "question_sheet" | "content_sheet" | "reference_sheet" | "summary_sheet",
   "purpose": "specific purpose based on content",
   "contains_questions": true,
   "skip_extraction": false,
   "extraction_strategy": {"question_columns": ["A"], "answer_columns": ["B"], "start_row": 2},
   "confidence": "high" | "medium" | "low"
  }
 },
 "document_overview": {"document_type": "detected type", "total_question_sheets": 1, "common_structure": "detected pattern"}
}`, encoded)
}

// BuildColumnDetectionPrompt asks for question/answer column layout using
// header, sample, and statistical evidence.
func BuildColumnDetectionPrompt(sheetName string, headers []model.Header, samples [][]string, stats map[string]model.ColumnStats) string {
	encHeaders, _ := json.Marshal(headers)
	if len(samples) > 10 {
		samples = samples[:10]
	}
	encSamples, _ := json.Marshal(samples)
	encStats, _ := json.Marshal(stats)

	return fmt.Sprintf(`Detect question and answer columns in this sheet.

SHEET: %s
HEADERS: %s
SAMPLE DATA: %s
COLUMN STATISTICS: %s

DETECTION RULES:
1. Question column: the column with the actual questions/requirements. Usually longer text, descriptive content, often column A or B.
2. Answer columns: columns meant for responses. Headers like "Compliance", "Response", "Status", "Answer", "Yes/No"; usually empty or sparsely filled. Can be a single column.

Respond with JSON only:
{
 "question_column": "A",
 "answer_columns": ["B"],
 "column_purposes": {"A": "purpose", "B": "purpose"},
 "start_row": 2,
 "confidence": "high" | "medium" | "low"
}`, sheetName, encHeaders, encSamples, encStats)
}

// BuildGlobalContextPrompt asks for document-wide context from the content
// sheet.
func BuildGlobalContextPrompt(data model.SheetData) string {
	encoded, _ := json.MarshalIndent(data, "", " ")
	return fmt.Sprintf(`Analyze this content/instruction sheet to extract comprehensive global context.

CONTENT SHEET DATA:
%s

Analyze the actual content: document type (RFI, RFP, compliance checklist), filling instructions, how sections relate, answer requirements and formats, evaluation criteria.

Respond with JSON only:
{
 "document_type": "specific analyzed type",
 "document_purpose": "analyzed purpose",
 "filling_instructions": {"general": "instructions", "by_section": {}},
 "sheet_relationships": {},
 "answer_guidelines": {"compliance_responses": ["Yes", "No"], "detail_requirements": "requirements", "evidence_requirements": "requirements"},
 "evaluation_criteria": "criteria or empty",
 "special_notes": []
}`, encoded)
}

// FillSheetInfo is the per-sheet summary used to request a fill strategy.
type FillSheetInfo struct {
	SheetName         string            `json:"sheet_name"`
	FillableQuestions int               `json:"fillable_questions"`
	AnswerColumns     []string          `json:"answer_columns"`
	ColumnPurposes    map[string]string `json:"column_purposes"`
}

// BuildFillStrategyPrompt asks for an answer-synthesis strategy with
// cross-column logic.
func BuildFillStrategyPrompt(info FillSheetInfo, gc *model.GlobalContext) string {
	var context string
	if gc != nil {
		guidelines, _ := json.Marshal(gc.AnswerGuidelines)
		context = fmt.Sprintf("\nGLOBAL CONTEXT:\nDocument Type: %s\nFilling Instructions: %s\nAnswer Guidelines: %s\n",
			gc.DocumentType, gc.FillingInstructions.General, guidelines)
	}
	encPurposes, _ := json.Marshal(info.ColumnPurposes)

	return fmt.Sprintf(`Generate an answer filling strategy with cross-column logic.
%s
SHEET: %s
Fillable questions: %d
Answer columns: %s
Column purposes: %s

REQUIREMENTS:
1. Analyze column purposes to determine relationships
2. Create cross-column rules (e.g. if compliance=No, then details=Not applicable)
3. Use a realistic distribution for the document type
4. Column-specific values that make sense for each purpose
5. Consider empty probability for optional columns

Respond with JSON only:
{
 "distribution": {"positive": 70, "negative": 15, "partial": 15},
 "column_strategies": {
  "C": {"purpose": "analyzed purpose", "positive_values": [], "negative_values": [], "partial_values": [], "conditional_logic": "when to use each value type", "empty_probability": 0.1}
 },
 "cross_column_rules": ["If column C is 'No', then column D should be 'Not applicable'"]
}`, context, info.SheetName, info.FillableQuestions, strings.Join(info.AnswerColumns, ", "), encPurposes)
}
