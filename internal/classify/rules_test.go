package classify

import (
	"testing"

	"sheetfill/internal/model"
)

func TestClassifyByRule_ParentHeader(t *testing.T) {
	j := ClassifyByRule("Please provide the following capabilities:")

	if j.Type != model.ParentHeader {
		t.Errorf("expected parent_header, got %s", j.Type)
	}
	if !j.IsParent {
		t.Error("expected is_parent=true")
	}
	if j.ShouldFill {
		t.Error("parent headers must not be fillable")
	}
	if j.HierarchyLevel != 0 {
		t.Errorf("expected level 0, got %d", j.HierarchyLevel)
	}
}

func TestClassifyByRule_ColonWithoutKeywordIsNotParent(t *testing.T) {
	j := ClassifyByRule("Response format:")
	if j.Type == model.ParentHeader {
		t.Error("colon without a list keyword must not classify as parent")
	}
}

func TestClassifyByRule_NumberedRequirement(t *testing.T) {
	j := ClassifyByRule("1) Supports SSO")

	if j.Type != model.NumberedRequirement {
		t.Errorf("expected numbered_requirement, got %s", j.Type)
	}
	if !j.ShouldFill || j.HierarchyLevel != 1 {
		t.Errorf("expected fillable level-1 item, got %+v", j)
	}
}

func TestClassifyByRule_LetteredRequirement(t *testing.T) {
	j := ClassifyByRule("a. Describe integration")

	if j.Type != model.LetteredRequirement {
		t.Errorf("expected lettered_requirement, got %s", j.Type)
	}
	if !j.ShouldFill || j.HierarchyLevel != 1 {
		t.Errorf("expected fillable level-1 item, got %+v", j)
	}
}

func TestClassifyByRule_GeneralQuestion(t *testing.T) {
	j := ClassifyByRule("What is your uptime SLA?")

	if j.Type != model.GeneralQuestion {
		t.Errorf("expected general_question, got %s", j.Type)
	}
	if !j.ShouldFill || j.HierarchyLevel != 0 {
		t.Errorf("expected fillable level-0 item, got %+v", j)
	}
}

func TestClassifyByRule_NeverLinksParents(t *testing.T) {
	inputs := []string{
		"Please provide the following capabilities:",
		"1) Supports SSO",
		"a. Describe integration",
		"What is your uptime SLA?",
	}
	for _, in := range inputs {
		if j := ClassifyByRule(in); j.ParentPosition != nil {
			t.Errorf("%q: rule classifier must not infer parent linkage", in)
		}
	}
}

func TestClassifyByRule_ParentInvariant(t *testing.T) {
	inputs := []string{
		"Requirements comprise the following:",
		"2) Data residency in the EU",
		"b. Provide architecture diagrams",
		"Any general statement",
		"",
	}
	for _, in := range inputs {
		j := ClassifyByRule(in)
		if j.IsParent != (j.Type == model.ParentHeader) {
			t.Errorf("%q: is_parent must hold exactly for parent headers, got %+v", in, j)
		}
		if j.IsParent && j.ShouldFill {
			t.Errorf("%q: parent header marked fillable", in)
		}
		if !j.IsParent && !j.ShouldFill {
			t.Errorf("%q: non-parent marked unfillable", in)
		}
	}
}
