// Package model holds the shared domain types for workbook extraction and
// filling: question/sheet taxonomies, detection results, and the structures
// persisted to extraction_results.json.
package model

// QuestionType classifies the structural role of an extracted item.
type QuestionType string

const (
	ParentHeader        QuestionType = "parent_header"
	NumberedRequirement QuestionType = "numbered_requirement"
	LetteredRequirement QuestionType = "lettered_requirement"
	SubListRequirement  QuestionType = "sub_list_requirement"
	BulletItem          QuestionType = "bullet_item"
	GeneralQuestion     QuestionType = "general_question"
)

// ValidQuestionType reports whether s is a known QuestionType value.
func ValidQuestionType(s string) bool {
	switch QuestionType(s) {
	case ParentHeader, NumberedRequirement, LetteredRequirement,
		SubListRequirement, BulletItem, GeneralQuestion:
		return true
	}
	return false
}

// SheetType classifies a worksheet's purpose within the workbook.
type SheetType string

const (
	ContentSheet   SheetType = "content_sheet"
	QuestionSheet  SheetType = "question_sheet"
	ReferenceSheet SheetType = "reference_sheet"
	SummarySheet   SheetType = "summary_sheet"
)

// Header is one first-row cell with its column letter.
type Header struct {
	Column string `json:"column"`
	Value  string `json:"value"`
}

// SheetInfo is the per-sheet summary submitted for sheet-type analysis.
type SheetInfo struct {
	Name    string     `json:"name"`
	Rows    int        `json:"rows"`
	Columns int        `json:"columns"`
	Headers []Header   `json:"headers"`
	Samples [][]string `json:"sample_data"`
}

// ExtractionStrategy describes how to pull questions out of a sheet.
type ExtractionStrategy struct {
	QuestionColumns []string `json:"question_columns"`
	AnswerColumns   []string `json:"answer_columns"`
	StartRow        int      `json:"start_row"`
}

// SheetAnalysis is the verdict for a single sheet.
type SheetAnalysis struct {
	SheetType         SheetType           `json:"sheet_type"`
	Purpose           string              `json:"purpose"`
	ContainsQuestions bool                `json:"contains_questions"`
	SkipExtraction    bool                `json:"skip_extraction"`
	Strategy          *ExtractionStrategy `json:"extraction_strategy,omitempty"`
	Confidence        string              `json:"confidence"`
}

// DocumentOverview summarizes the whole workbook.
type DocumentOverview struct {
	DocumentType        string `json:"document_type"`
	TotalQuestionSheets int    `json:"total_question_sheets"`
	CommonStructure     string `json:"common_structure,omitempty"`
}

// SheetsAnalysis is the complete sheet-type classification result.
type SheetsAnalysis struct {
	Sheets   map[string]SheetAnalysis `json:"sheets_analysis"`
	Overview DocumentOverview         `json:"document_overview"`
}

// ColumnStats captures statistical patterns observed in one column's samples.
type ColumnStats struct {
	FilledRatio    float64 `json:"filled_ratio"`
	LongTextRatio  float64 `json:"long_text_ratio"`
	ShortTextRatio float64 `json:"short_text_ratio"`
	NumericRatio   float64 `json:"numeric_ratio"`
	AvgTextLength  float64 `json:"avg_text_length"`
	LikelyQuestion bool    `json:"likely_question_column"`
	LikelyAnswer   bool    `json:"likely_answer_column"`
}

// ColumnDetection is the resolved question/answer column layout for a sheet.
type ColumnDetection struct {
	QuestionColumn string            `json:"question_column"`
	AnswerColumns  []string          `json:"answer_columns"`
	ColumnPurposes map[string]string `json:"column_purposes"`
	StartRow       int               `json:"start_row"`
	SkipRows       []int             `json:"skip_rows,omitempty"`
	Confidence     string            `json:"confidence"`
}

// SheetData is the full content collected from a content/instruction sheet.
type SheetData struct {
	SheetName    string         `json:"sheet_name"`
	Headers      []Header       `json:"headers"`
	Samples      [][]string     `json:"samples"`
	TotalRows    int            `json:"total_rows"`
	TotalColumns int            `json:"total_columns"`
	TextContent  []string       `json:"text_content"`
	Sections     []SheetSection `json:"sections"`
}

// SheetSection is one row of collected content with its row number.
type SheetSection struct {
	Row     int      `json:"row"`
	Content []string `json:"content"`
}

// FillingInstructions holds document-level filling guidance.
type FillingInstructions struct {
	General   string            `json:"general"`
	BySection map[string]string `json:"by_section,omitempty"`
}

// AnswerGuidelines holds answer format requirements from the content sheet.
type AnswerGuidelines struct {
	ComplianceResponses  []string `json:"compliance_responses"`
	DetailRequirements   string   `json:"detail_requirements,omitempty"`
	EvidenceRequirements string   `json:"evidence_requirements,omitempty"`
}

// GlobalContext is the document-wide context extracted from a content sheet.
type GlobalContext struct {
	DocumentType        string               `json:"document_type"`
	DocumentPurpose     string               `json:"document_purpose"`
	FillingInstructions FillingInstructions  `json:"filling_instructions"`
	SheetRelationships  map[string]string    `json:"sheet_relationships,omitempty"`
	AnswerGuidelines    AnswerGuidelines     `json:"answer_guidelines"`
	EvaluationCriteria  string               `json:"evaluation_criteria,omitempty"`
	SpecialNotes        []string             `json:"special_notes,omitempty"`
}

// FillDistribution splits responses into positive/negative/partial shares,
// expressed as percentages.
type FillDistribution struct {
	Positive int `json:"positive"`
	Negative int `json:"negative"`
	Partial  int `json:"partial"`
}

// ColumnFillStrategy describes how one answer column is filled.
type ColumnFillStrategy struct {
	Purpose          string   `json:"purpose"`
	PositiveValues   []string `json:"positive_values"`
	NegativeValues   []string `json:"negative_values"`
	PartialValues    []string `json:"partial_values"`
	ConditionalLogic string   `json:"conditional_logic,omitempty"`
	EmptyProbability float64  `json:"empty_probability"`
}

// FillStrategy is the complete answer-synthesis plan for one sheet.
type FillStrategy struct {
	Distribution     FillDistribution              `json:"distribution"`
	ColumnStrategies map[string]ColumnFillStrategy `json:"column_strategies"`
	CrossColumnRules []string                      `json:"cross_column_rules"`
}

// ExtractedQuestion is one classified item with hierarchy info and any
// pre-existing answers found in the answer columns.
type ExtractedQuestion struct {
	QuestionID     int               `json:"question_id"`
	RowID          int               `json:"row_id"`
	ColumnLetter   string            `json:"column_letter"`
	Question       string            `json:"question"`
	Answers        map[string]string `json:"answers,omitempty"`
	QuestionType   QuestionType      `json:"question_type"`
	IsParent       bool              `json:"is_parent"`
	ShouldFill     bool              `json:"should_fill"`
	ParentRowID    *int              `json:"parent_row_id"`
	ParentText     string            `json:"parent_text,omitempty"`
	HierarchyLevel int               `json:"hierarchy_level"`
}

// HierarchyStats aggregates structural roles across a sheet.
type HierarchyStats struct {
	ParentHeaders        int `json:"parent_headers"`
	NumberedRequirements int `json:"numbered_requirements"`
	LetteredRequirements int `json:"lettered_requirements"`
	SubListRequirements  int `json:"sub_list_requirements"`
	BulletItems          int `json:"bullet_items"`
	TotalFillable        int `json:"total_fillable"`
}

// SheetStatistics summarizes extraction outcomes for one sheet.
type SheetStatistics struct {
	FillableQuestions    int     `json:"fillable_questions"`
	NonFillableQuestions int     `json:"non_fillable_questions"`
	CompletionRate       float64 `json:"completion_rate"`
}

// ExtractionResult is the full outcome of extracting one sheet.
type ExtractionResult struct {
	SheetName      string              `json:"sheet_name"`
	TotalRows      int                 `json:"total_rows"`
	TotalColumns   int                 `json:"total_columns"`
	TotalExtracted int                 `json:"total_questions_extracted"`
	Questions      []ExtractedQuestion `json:"questions"`
	Statistics     SheetStatistics     `json:"statistics"`
	HierarchyStats HierarchyStats      `json:"hierarchy_stats"`
	ColumnInfo     *ColumnDetection    `json:"column_info,omitempty"`
}

// WorkbookResult is the complete extraction output for a workbook.
type WorkbookResult struct {
	FilePath      string                       `json:"file_path"`
	GlobalContext *GlobalContext               `json:"global_context,omitempty"`
	SheetResults  map[string]*ExtractionResult `json:"sheet_results"`
	Timestamp     string                       `json:"timestamp"`
}
