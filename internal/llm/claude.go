package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"sheetfill/internal/classify"
	"sheetfill/internal/model"
)

const anthropicEndpoint = "https://api.anthropic.com/v1/messages"

// ClaudeClient calls the Anthropic Messages API for structured analysis:
// batch classification, sheet analysis, column detection, global context,
// and fill strategies.
type ClaudeClient struct {
	apiKey     string
	model      string
	httpClient *http.Client

	// Stats collects call latencies for /api/stats/llm.
	Stats *Stats
}

func NewClaudeClient(apiKey, model string) *ClaudeClient {
	return &ClaudeClient{
		apiKey: apiKey,
		model:  model,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		Stats: NewStats(time.Hour),
	}
}

// Model returns the configured model name.
func (c *ClaudeClient) Model() string { return c.model }

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature"`
	Messages    []anthropicMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// complete sends one prompt and returns the raw response text.
func (c *ClaudeClient) complete(ctx context.Context, prompt string) (string, error) {
	reqBody := anthropicRequest{
		Model:       c.model,
		MaxTokens:   8192,
		Temperature: 0.1,
		Messages: []anthropicMessage{
			{Role: "user", Content: prompt},
		},
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, anthropicEndpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("claude api: %w", err)
	}
	defer resp.Body.Close()
	if c.Stats != nil {
		c.Stats.Record(time.Since(start).Milliseconds())
	}

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return "", &RetryableError{
			StatusCode: resp.StatusCode,
			Message:    string(respBody),
		}
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("claude api status %d: %s", resp.StatusCode, truncate(string(respBody), 200))
	}

	var apiResp anthropicResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if apiResp.Error != nil {
		return "", fmt.Errorf("claude error: %s: %s", apiResp.Error.Type, apiResp.Error.Message)
	}
	if len(apiResp.Content) == 0 {
		return "", fmt.Errorf("empty response from claude")
	}
	return apiResp.Content[0].Text, nil
}

// ClassifyBatch implements classify.Classifier.
func (c *ClaudeClient) ClassifyBatch(ctx context.Context, items []classify.BatchItem) ([]classify.Judgement, error) {
	text, err := c.complete(ctx, BuildHierarchyPrompt(items))
	if err != nil {
		return nil, err
	}
	return DecodeJudgements(text)
}

// AnalyzeSheets classifies each sheet as content vs question.
func (c *ClaudeClient) AnalyzeSheets(ctx context.Context, sheets []model.SheetInfo) (*model.SheetsAnalysis, error) {
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
func (c *ClaudeClient) DetectColumns(ctx context.Context, sheetName string, headers []model.Header, samples [][]string, stats map[string]model.ColumnStats) (*model.ColumnDetection, error) {
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
func (c *ClaudeClient) ExtractGlobalContext(ctx context.Context, data model.SheetData) (*model.GlobalContext, error) {
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
func (c *ClaudeClient) GenerateFillStrategy(ctx context.Context, info FillSheetInfo, gc *model.GlobalContext) (*model.FillStrategy, error) {
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

// Close releases resources.
func (c *ClaudeClient) Close() {
	c.httpClient.CloseIdleConnections()
}

// RetryableError indicates a transient failure worth retrying.
type RetryableError struct {
	StatusCode int
	Message    string
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable error (status %d): %s", e.StatusCode, truncate(e.Message, 200))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
