package classify

import (
	"regexp"
	"strings"

	"sheetfill/internal/model"
)

var (
	numberedLead = regexp.MustCompile(`^\d+\)`)
	letteredLead = regexp.MustCompile(`^[a-z]\.`)

	parentKeywords = []string{"following", "include", "comprise"}
)

// ClassifyByRule deterministically classifies a single text without any
// external call. It is a total function: every input maps to a judgement,
// which is what guarantees the pipeline always terminates with full
// coverage. Rule-based judgements never carry a parent linkage; only the
// external classifier attempts cross-item linking.
func ClassifyByRule(text string) Judgement {
	t := strings.TrimSpace(text)
	lower := strings.ToLower(t)

	if strings.HasSuffix(t, ":") && containsAny(lower, parentKeywords) {
		return Judgement{
			Type:     model.ParentHeader,
			IsParent: true,
		}
	}
	if numberedLead.MatchString(t) {
		return Judgement{
			Type:           model.NumberedRequirement,
			ShouldFill:     true,
			HierarchyLevel: 1,
		}
	}
	if letteredLead.MatchString(t) {
		return Judgement{
			Type:           model.LetteredRequirement,
			ShouldFill:     true,
			HierarchyLevel: 1,
		}
	}
	return Judgement{
		Type:       model.GeneralQuestion,
		ShouldFill: true,
	}
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
