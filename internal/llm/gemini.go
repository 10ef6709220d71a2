package llm

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/genai"

	"sheetfill/internal/classify"
	"sheetfill/internal/model"
)

// GeminiClient provides the same capabilities as ClaudeClient via the
// Google Gen AI SDK, with JSON-constrained output.
type GeminiClient struct {
	client *genai.Client
	model  string

	Stats *Stats
}

func NewGeminiClient(ctx context.Context, apiKey, modelName string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	if modelName == "" {
		modelName = "gemini-2.5-flash"
	}
	return &GeminiClient{
		client: client,
		model:  modelName,
		Stats:  NewStats(time.Hour),
	}, nil
}

// Model returns the configured model name.
func (c *GeminiClient) Model() string { return c.model }

func (c *GeminiClient) complete(ctx context.Context, prompt string) (string, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](0),
		ResponseMIMEType: "application/json",
	}

	start := time.Now()
	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), cfg)
	if c.Stats != nil {
		c.Stats.Record(time.Since(start).Milliseconds())
	}
	if err != nil {
		return "", fmt.Errorf("gemini api: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("empty response from gemini")
	}
	return text, nil
}

// ClassifyBatch implements classify.Classifier.
func (c *GeminiClient) ClassifyBatch(ctx context.Context, items []classify.BatchItem) ([]classify.Judgement, error) {
	text, err := c.complete(ctx, BuildHierarchyPrompt(items))
	if err != nil {
		return nil, err
	}
	return DecodeJudgements(text)
}

// AnalyzeSheets classifies each sheet as content vs question.
func (c *GeminiClient) AnalyzeSheets(ctx context.Context, sheets []model.SheetInfo) (*model.SheetsAnalysis, error) {
	text, err := c.complete(ctx, BuildSheetAnalysisPrompt(sheets))
	if err != nil {
		return nil, err
	}
	var out model.SheetsAnalysis
	if err := decodeInto(text, &out); err != nil {
		return nil, err
	}
	if len(out.Sheets) == 0 {
		return nil, fmt.Errorf("sheet analysis returned no sheets")
	}
	return &out, nil
}

// DetectColumns resolves the question/answer column layout for one sheet.
func (c *GeminiClient) DetectColumns(ctx context.Context, sheetName string, headers []model.Header, samples [][]string, stats map[string]model.ColumnStats) (*model.ColumnDetection, error) {
	text, err := c.complete(ctx, BuildColumnDetectionPrompt(sheetName, headers, samples, stats))
	if err != nil {
		return nil, err
	}
	var out model.ColumnDetection
	if err := decodeInto(text, &out); err != nil {
		return nil, err
	}
	if out.QuestionColumn == "" {
		return nil, fmt.Errorf("column detection returned no question column")
	}
	if out.StartRow <= 0 {
		out.StartRow = 2
	}
	return &out, nil
}

// ExtractGlobalContext pulls document-wide context from a content sheet.
func (c *GeminiClient) ExtractGlobalContext(ctx context.Context, data model.SheetData) (*model.GlobalContext, error) {
	text, err := c.complete(ctx, BuildGlobalContextPrompt(data))
	if err != nil {
		return nil, err
	}
	var out model.GlobalContext
	if err := decodeInto(text, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GenerateFillStrategy produces the answer-synthesis plan for one sheet.
func (c *GeminiClient) GenerateFillStrategy(ctx context.Context, info FillSheetInfo, gc *model.GlobalContext) (*model.FillStrategy, error) {
	text, err := c.complete(ctx, BuildFillStrategyPrompt(info, gc))
	if err != nil {
		return nil, err
	}
	var out model.FillStrategy
	if err := decodeInto(text, &out); err != nil {
		return nil, err
	}
	if len(out.ColumnStrategies) == 0 {
		return nil, fmt.Errorf("fill strategy has no column strategies")
	}
	return &out, nil
}
