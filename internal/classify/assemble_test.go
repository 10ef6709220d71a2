package classify

import (
	"testing"

	"sheetfill/internal/model"
)

func intPtr(i int) *int { return &i }

func TestAssemble_SubunitsGetFixedJudgement(t *testing.T) {
	units := []Unit{
		{Position: 0, Row: 5, Text: "Provide the following:"},
		{Position: 0, Row: 5, Text: "a) one", ParentText: "Provide the following:", IsSubunit: true},
		{Position: 0, Row: 5, Text: "b) two", ParentText: "Provide the following:", IsSubunit: true},
	}
	judgements := map[int]Judgement{
		0: {Position: 0, Type: model.ParentHeader, IsParent: true},
	}

	items := Assemble(units, judgements)
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}

	parent := items[0]
	if parent.Type != model.ParentHeader || !parent.IsParent || parent.ShouldFill {
		t.Errorf("unexpected parent item: %+v", parent)
	}

	for _, sub := range items[1:] {
		if sub.Type != model.SubListRequirement {
			t.Errorf("expected sub_list_requirement, got %s", sub.Type)
		}
		if !sub.ShouldFill || sub.HierarchyLevel != 2 {
			t.Errorf("expected fillable level-2 subunit, got %+v", sub)
		}
		if sub.ParentRow == nil || *sub.ParentRow != 5 {
			t.Errorf("expected parent row 5, got %v", sub.ParentRow)
		}
		if sub.ParentText != "Provide the following:" {
			t.Errorf("unexpected parent text %q", sub.ParentText)
		}
	}
}

func TestAssemble_SequentialIDsCoverAllRoles(t *testing.T) {
	units := []Unit{
		{Position: 0, Row: 2, Text: "Header:"},
		{Position: 1, Row: 3, Text: "1) req"},
		{Position: 1, Row: 3, Text: "a) sub", ParentText: "1) req", IsSubunit: true},
		{Position: 2, Row: 4, Text: "question?"},
	}
	judgements := map[int]Judgement{
		0: {Position: 0, Type: model.ParentHeader, IsParent: true},
		1: {Position: 1, Type: model.NumberedRequirement, ShouldFill: true, HierarchyLevel: 1},
		2: {Position: 2, Type: model.GeneralQuestion, ShouldFill: true},
	}

	items := Assemble(units, judgements)
	if len(items) != 4 {
		t.Fatalf("expected 4 items, got %d", len(items))
	}
	for i, it := range items {
		if it.SequentialID != i+1 {
			t.Errorf("item %d: expected sequential id %d, got %d", i, i+1, it.SequentialID)
		}
	}
}

func TestAssemble_ParentLinkageResolvesRowAndText(t *testing.T) {
	units := []Unit{
		{Position: 0, Row: 10, Text: "Security requirements include the following:"},
		{Position: 1, Row: 11, Text: "1) Encryption at rest"},
	}
	judgements := map[int]Judgement{
		0: {Position: 0, Type: model.ParentHeader, IsParent: true},
		1: {
			Position: 1, Type: model.NumberedRequirement, ShouldFill: true,
			HierarchyLevel: 1, ParentPosition: intPtr(0),
		},
	}

	items := Assemble(units, judgements)
	req := items[1]
	if req.ParentRow == nil || *req.ParentRow != 10 {
		t.Fatalf("expected parent row 10, got %v", req.ParentRow)
	}
	if req.ParentText != "Security requirements include the following:" {
		t.Errorf("unexpected parent text %q", req.ParentText)
	}
}

func TestAssemble_MissingJudgementFallsBackToRule(t *testing.T) {
	units := []Unit{{Position: 0, Row: 2, Text: "1) orphaned"}}

	items := Assemble(units, map[int]Judgement{})
	if items[0].Type != model.NumberedRequirement {
		t.Errorf("expected rule fallback judgement, got %s", items[0].Type)
	}
}
