package llm

import (
	"strings"
	"testing"

	"sheetfill/internal/model"
)

func TestRepairJSON_StripsCodeFence(t *testing.T) {
	in := "```json\n[{\"position\": 0}]\n```"
	got := RepairJSON(in)
	if got != `[{"position": 0}]` {
		t.Errorf("expected fence stripped, got %q", got)
	}
}

func TestRepairJSON_StripsBareFence(t *testing.T) {
	got := RepairJSON("```\n{\"a\": 1}\n```")
	if got != `{"a": 1}` {
		t.Errorf("expected fence stripped, got %q", got)
	}
}

func TestRepairJSON_RemovesTrailingCommas(t *testing.T) {
	got := RepairJSON(`[{"a": 1,}, {"b": 2},]`)
	if got != `[{"a": 1}, {"b": 2}]` {
		t.Errorf("expected trailing commas removed, got %q", got)
	}
}

func TestRepairJSON_BalancesTruncatedArray(t *testing.T) {
	// Response cut off mid-stream after a complete object.
	got := RepairJSON(`[{"position": 0, "question_type": "general_question"},`)
	if !strings.HasSuffix(got, "]") {
		t.Errorf("expected closing bracket appended, got %q", got)
	}
	if _, err := DecodeJudgements(got); err != nil {
		t.Errorf("balanced output should decode: %v", err)
	}
}

func TestRepairJSON_WellFormedUntouched(t *testing.T) {
	in := `[{"position": 3, "question_type": "parent_header"}]`
	if got := RepairJSON(in); got != in {
		t.Errorf("well-formed input modified: %q", got)
	}
}

func TestDecodeJudgements_Valid(t *testing.T) {
	raw := `[
	 {"position": 0, "question_type": "parent_header", "is_parent": true, "should_fill": false, "hierarchy_level": 0, "parent_position": null},
	 {"position": 1, "question_type": "numbered_requirement", "is_parent": false, "should_fill": true, "hierarchy_level": 1, "parent_position": 0}
	]`
	js, err := DecodeJudgements(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(js) != 2 {
		t.Fatalf("expected 2 judgements, got %d", len(js))
	}
	if js[0].Type != model.ParentHeader || !js[0].IsParent {
		t.Errorf("unexpected first judgement: %+v", js[0])
	}
	if js[1].ParentPosition == nil || *js[1].ParentPosition != 0 {
		t.Errorf("expected parent position 0, got %v", js[1].ParentPosition)
	}
}

func TestDecodeJudgements_UnknownRolesDropped(t *testing.T) {
	raw := `[
	 {"position": 0, "question_type": "alien_role"},
	 {"position": 1, "question_type": "general_question", "should_fill": true}
	]`
	js, err := DecodeJudgements(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(js) != 1 || js[0].Position != 1 {
		t.Errorf("expected only the valid judgement, got %+v", js)
	}
}

func TestDecodeJudgements_AllInvalidIsError(t *testing.T) {
	if _, err := DecodeJudgements(`[{"position": 0, "question_type": "nope"}]`); err == nil {
		t.Error("expected error when no judgement is valid")
	}
}

func TestDecodeJudgements_GarbageIsError(t *testing.T) {
	if _, err := DecodeJudgements("I could not classify these items."); err == nil {
		t.Error("expected error for non-JSON response")
	}
	if _, err := DecodeJudgements(""); err == nil {
		t.Error("expected error for empty response")
	}
}
