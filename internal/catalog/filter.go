// Package catalog narrows the document template catalog by search text,
// filters and the selected category tab.
package catalog

import (
	"strings"

	"github.com/elec-mate/elecmate-engine/internal/models"
)

// Filters are the optional narrowing predicates. A nil pointer means "any".
type Filters struct {
	Category   *models.Category
	Difficulty *models.Difficulty
	UKSpecific bool
	Regulation *string
}

// IsDefault reports whether no filter narrows the catalog
func (f Filters) IsDefault() bool {
	return f.Category == nil && f.Difficulty == nil && !f.UKSpecific && f.Regulation == nil
}

// ParseFilters builds Filters from raw request values; "" and "all" mean any
func ParseFilters(category, difficulty, regulation string, ukSpecific bool) Filters {
	var f Filters
	if v := optional(category); v != "" {
		c := models.Category(v)
		f.Category = &c
	}
	if v := optional(difficulty); v != "" {
		d := models.Difficulty(v)
		f.Difficulty = &d
	}
	if v := optional(regulation); v != "" {
		f.Regulation = &v
	}
	f.UKSpecific = ukSpecific
	return f
}

func optional(v string) string {
	v = strings.TrimSpace(v)
	if strings.EqualFold(v, "all") {
		return ""
	}
	return v
}

// Filter returns the templates passing every predicate, in catalog order.
// Each step narrows the result of the previous one.
func Filter(templates []*models.DocumentTemplate, query string, f Filters) []*models.DocumentTemplate {
	out := templates

	if f.Category != nil {
		out = keep(out, func(t *models.DocumentTemplate) bool { return t.Category == *f.Category })
	}

	if q := strings.ToLower(strings.TrimSpace(query)); q != "" {
		out = keep(out, func(t *models.DocumentTemplate) bool {
			return strings.Contains(strings.ToLower(t.Name), q) ||
				strings.Contains(strings.ToLower(t.Description), q) ||
				strings.Contains(strings.ToLower(string(t.Category)), q)
		})
	}

	if f.Difficulty != nil {
		out = keep(out, func(t *models.DocumentTemplate) bool { return t.Difficulty == *f.Difficulty })
	}

	if f.UKSpecific {
		out = keep(out, func(t *models.DocumentTemplate) bool { return t.UKSpecific })
	}

	if f.Regulation != nil {
		out = keep(out, func(t *models.DocumentTemplate) bool {
			for _, r := range t.RegulationCompliant {
				if r == *f.Regulation {
					return true
				}
			}
			return false
		})
	}

	// never hand back the caller's slice
	if len(out) == len(templates) {
		out = append([]*models.DocumentTemplate(nil), out...)
	}
	return out
}

func keep(in []*models.DocumentTemplate, pred func(*models.DocumentTemplate) bool) []*models.DocumentTemplate {
	out := make([]*models.DocumentTemplate, 0, len(in))
	for _, t := range in {
		if pred(t) {
			out = append(out, t)
		}
	}
	return out
}

// Summaries counts templates per category, led by an "all" entry
func Summaries(templates []*models.DocumentTemplate) []models.CategorySummary {
	counts := make(map[models.Category]int, len(models.Categories))
	for _, t := range templates {
		counts[t.Category]++
	}

	out := make([]models.CategorySummary, 0, len(models.Categories)+1)
	out = append(out, models.CategorySummary{ID: "all", Label: "All Templates", Count: len(templates)})
	for _, c := range models.Categories {
		out = append(out, models.CategorySummary{ID: string(c), Label: c.Label(), Count: counts[c]})
	}
	return out
}
