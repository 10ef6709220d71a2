package classify

import "sheetfill/internal/model"

// Assemble walks the full ordered unit sequence (subunits interleaved at
// their source position) and merges each unit with its resolved judgement.
// Subunits carry a fixed judgement by construction: they are always
// fillable sub-list requirements nested under their owning row's primary
// unit. Every output item gets a sequential identifier regardless of role.
func Assemble(units []Unit, judgements map[int]Judgement) []Item {
	byPosition := make(map[int]Unit, len(units))
	for _, u := range units {
		if !u.IsSubunit {
			byPosition[u.Position] = u
		}
	}

	items := make([]Item, 0, len(units))
	for _, u := range units {
		it := Item{
			SequentialID: len(items) + 1,
			Row:          u.Row,
			Text:         u.Text,
		}
		if u.IsSubunit {
			it.Type = model.SubListRequirement
			it.ShouldFill = true
			it.HierarchyLevel = 2
			it.ParentText = u.ParentText
			row := u.Row
			it.ParentRow = &row
		} else {
			j, ok := judgements[u.Position]
			if !ok {
				// ClassifyAll guarantees coverage; guard anyway.
				j = ClassifyByRule(u.Text)
			}
			it.Type = j.Type
			it.IsParent = j.IsParent
			it.ShouldFill = j.ShouldFill
			it.HierarchyLevel = j.HierarchyLevel
			if j.ParentPosition != nil {
				if parent, ok := byPosition[*j.ParentPosition]; ok {
					row := parent.Row
					it.ParentRow = &row
					it.ParentText = parent.Text
				}
			}
		}
		items = append(items, it)
	}
	return items
}
