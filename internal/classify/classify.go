// Package classify implements the hierarchical question-structure parser:
// cell segmentation, chunked LLM-assisted classification with overlap
// reconciliation, a deterministic rule fallback, and final hierarchy
// assembly. The package's public surface is total — classification never
// propagates an error to its caller, it only degrades.
package classify

import (
	"context"

	"sheetfill/internal/model"
)

// MaxItemTextLen bounds the text length submitted per item to the external
// classifier. Longer cell contents are elided with a truncation marker.
const MaxItemTextLen = 500

// BatchItem is one unit submitted to the external classifier, keyed by its
// stable 0-based position in the full submitted sequence.
type BatchItem struct {
	Position int    `json:"position"`
	Text     string `json:"text"`
}

// Judgement is the structural verdict for one unit.
type Judgement struct {
	Position       int                `json:"position"`
	Type           model.QuestionType `json:"question_type"`
	IsParent       bool               `json:"is_parent"`
	ShouldFill     bool               `json:"should_fill"`
	HierarchyLevel int                `json:"hierarchy_level"`
	ParentPosition *int               `json:"parent_position"`
}

// Classifier is the external classification capability. A call may return
// fewer judgements than items submitted; that is a partial result, not an
// error. An error, or an empty result, is a batch failure.
type Classifier interface {
	ClassifyBatch(ctx context.Context, items []BatchItem) ([]Judgement, error)
}

// Unit is one classifiable piece of text derived from a cell. Position is
// the index among primary (non-subunit) units; subunits carry their owning
// primary unit's position and bypass classification entirely.
type Unit struct {
	Position   int
	Row        int
	Text       string
	ParentText string
	IsSubunit  bool
}

// Item is the final classified output: a unit merged with its resolved
// judgement, ready for answer extraction.
type Item struct {
	SequentialID   int
	Row            int
	Text           string
	Type           model.QuestionType
	IsParent       bool
	ShouldFill     bool
	HierarchyLevel int
	ParentRow      *int
	ParentText     string
}

// TruncateItemText elides text beyond MaxItemTextLen with a marker.
func TruncateItemText(s string) string {
	if len(s) <= MaxItemTextLen {
		return s
	}
	return s[:MaxItemTextLen] + "..."
}

// normalize enforces the parent invariant on a judgement: is_parent holds
// exactly for parent headers, and only parent headers are unfillable.
func normalize(j Judgement) Judgement {
	if j.Type == model.ParentHeader {
		j.IsParent = true
		j.ShouldFill = false
	} else {
		j.IsParent = false
		j.ShouldFill = true
	}
	if j.HierarchyLevel < 0 {
		j.HierarchyLevel = 0
	}
	return j
}
