package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"sheetfill/internal/classify"
	"sheetfill/internal/model"
)

// Model responses are supposed to be bare JSON but routinely arrive wrapped
// in markdown fences, with trailing commas, or cut off mid-structure. All
// repair heuristics live here, behind the typed-decode boundary; a response
// that still fails to decode is a batch failure, never a panic.

var (
	codeFenceRe     = regexp.MustCompile("(?s)^```(?:json)?\\s*(.*?)\\s*```$")
	trailingCommaRe = regexp.MustCompile(`,(\s*[}\]])`)
)

// RepairJSON applies the cleanup heuristics to a raw model response.
func RepairJSON(s string) string {
	s = strings.TrimSpace(s)
	if m := codeFenceRe.FindStringSubmatch(s); len(m) > 1 {
		s = m[1]
	}
	// A fence opener without a closer (truncated response).
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	s = trailingCommaRe.ReplaceAllString(s, "$1")
	s = balanceBrackets(strings.TrimSpace(s))
	return s
}

// balanceBrackets closes unterminated arrays/objects so a truncated but
// otherwise well-formed prefix can still be recovered. Inputs with more
// closers than openers are left for the decoder to reject.
func balanceBrackets(s string) string {
	var stack []byte
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{', '[':
			if !inString {
				stack = append(stack, c)
			}
		case '}', ']':
			if !inString && len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}
	}
	if len(stack) == 0 {
		return s
	}
	// Drop a trailing partial value before closing.
	s = strings.TrimRight(s, ", \n\t")
	var sb strings.Builder
	sb.WriteString(s)
	if inString {
		sb.WriteByte('"')
	}
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] == '{' {
			sb.WriteByte('}')
		} else {
			sb.WriteByte(']')
		}
	}
	return sb.String()
}

// wireJudgement is the raw response shape for one classified item.
type wireJudgement struct {
	Position       int    `json:"position"`
	QuestionType   string `json:"question_type"`
	IsParent       bool   `json:"is_parent"`
	ShouldFill     bool   `json:"should_fill"`
	HierarchyLevel int    `json:"hierarchy_level"`
	ParentPosition *int   `json:"parent_position"`
}

// DecodeJudgements repairs and decodes a classification response. Items
// with unknown roles are dropped rather than failing the whole batch; an
// empty or undecodable response is an error.
func DecodeJudgements(raw string) ([]classify.Judgement, error) {
	raw = RepairJSON(raw)
	if raw == "" {
		return nil, fmt.Errorf("empty response")
	}

	var wire []wireJudgement
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		return nil, fmt.Errorf("decode judgements: %w", err)
	}

	out := make([]classify.Judgement, 0, len(wire))
	for _, w := range wire {
		if !model.ValidQuestionType(w.QuestionType) {
			continue
		}
		out = append(out, classify.Judgement{
			Position:       w.Position,
			Type:           model.QuestionType(w.QuestionType),
			IsParent:       w.IsParent,
			ShouldFill:     w.ShouldFill,
			HierarchyLevel: w.HierarchyLevel,
			ParentPosition: w.ParentPosition,
		})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no valid judgements in response")
	}
	return out, nil
}

// decodeInto repairs raw and decodes it into v.
func decodeInto(raw string, v any) error {
	raw = RepairJSON(raw)
	if raw == "" {
		return fmt.Errorf("empty response")
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
