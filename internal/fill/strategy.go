// Package fill synthesizes answers for extracted questions and writes them
// back into a copy of the workbook. Response types follow a distribution
// across fillable questions; per-column values come from a model-generated
// strategy with a purpose-keyed fallback.
package fill

import (
	"context"
	"strings"

	"sheetfill/internal/llm"
	"sheetfill/internal/model"
)

// StrategyGenerator is the model-backed strategy capability. It may be nil;
// FallbackStrategy then supplies the plan.
type StrategyGenerator interface {
	GenerateFillStrategy(ctx context.Context, info llm.FillSheetInfo, gc *model.GlobalContext) (*model.FillStrategy, error)
}

// FallbackStrategy derives a fill plan from the column purposes alone.
func FallbackStrategy(info llm.FillSheetInfo) *model.FillStrategy {
	strategies := make(map[string]model.ColumnFillStrategy, len(info.AnswerColumns))
	for _, col := range info.AnswerColumns {
		purpose := info.ColumnPurposes[col]
		strategies[col] = strategyForPurpose(purpose)
	}
	return &model.FillStrategy{
		Distribution:     model.FillDistribution{Positive: 70, Negative: 15, Partial: 15},
		ColumnStrategies: strategies,
		CrossColumnRules: []string{
			"Ensure consistency across compliance columns",
			"Comments should provide context for non-positive responses",
			"Only fill relevant columns based on response type",
		},
	}
}

func strategyForPurpose(purpose string) model.ColumnFillStrategy {
	p := strings.ToLower(purpose)
	switch {
	case containsAny(p, "compli", "yes", "no", "status"):
		return model.ColumnFillStrategy{
			Purpose:          "Compliance/Status",
			PositiveValues:   []string{"Yes", "Compliant", "Supported"},
			NegativeValues:   []string{"No", "Not Compliant", "Not Supported"},
			PartialValues:    []string{"Partial", "Limited", "With Conditions"},
			EmptyProbability: 0.05,
		}
	case containsAny(p, "comment", "remark", "note", "detail"):
		return model.ColumnFillStrategy{
			Purpose:          "Comments/Details",
			PositiveValues:   []string{"Fully supported with standard configuration", "Available out-of-the-box", "Standard feature"},
			NegativeValues:   []string{"Not available in current version", "Would require custom development", "Not supported"},
			PartialValues:    []string{"Available with customization", "Requires additional configuration", "Limited support available"},
			EmptyProbability: 0.15,
		}
	case containsAny(p, "cost", "price", "fee"):
		return model.ColumnFillStrategy{
			Purpose:          "Cost/Pricing",
			PositiveValues:   []string{"Included in base cost", "No additional charge", "Standard pricing"},
			NegativeValues:   []string{"Additional licensing required", "Custom pricing", "Not available"},
			PartialValues:    []string{"Additional cost may apply", "Depends on configuration", "Quote required"},
			EmptyProbability: 0.3,
		}
	}
	return model.ColumnFillStrategy{
		Purpose:          purpose,
		PositiveValues:   []string{"Available", "Supported", "Yes"},
		NegativeValues:   []string{"Not Available", "Not Supported", "No"},
		PartialValues:    []string{"Limited", "Partial", "Conditional"},
		EmptyProbability: 0.2,
	}
}

func containsAny(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
