package catalog

import (
	"strings"

	"github.com/elec-mate/elecmate-engine/internal/models"
)

// EmptyReason explains an empty visible list
type EmptyReason string

const (
	// NoMatches means the search, a filter or the tab excluded everything
	NoMatches EmptyReason = "no_matches"
	// CategoryEmpty means the catalog itself has nothing to show
	CategoryEmpty EmptyReason = "category_empty"
)

// View is the catalog screen state: search text, filters and category tab.
//
// The tab is applied as an extra category predicate ahead of the filter
// chain, so a tab and a different filter category produce an empty list.
type View struct {
	templates []*models.DocumentTemplate
	query     string
	filters   Filters
	tab       *models.Category
}

// NewView creates a view over a loaded catalog
func NewView(templates []*models.DocumentTemplate) *View {
	return &View{templates: templates}
}

func (v *View) SetQuery(q string)     { v.query = q }
func (v *View) SetFilters(f Filters)  { v.filters = f }
func (v *View) Query() string         { return v.query }
func (v *View) Filters() Filters      { return v.filters }
func (v *View) Tab() *models.Category { return v.tab }

// SelectTab switches the category tab; "" or "all" shows every category
func (v *View) SelectTab(tab string) {
	if t := optional(tab); t != "" {
		c := models.Category(t)
		v.tab = &c
		return
	}
	v.tab = nil
}

// ClearFilters restores the default filters; search text and tab are kept
func (v *View) ClearFilters() {
	v.filters = Filters{}
}

// Visible recomputes the list shown to the user
func (v *View) Visible() []*models.DocumentTemplate {
	base := v.templates
	if v.tab != nil {
		base = keep(base, func(t *models.DocumentTemplate) bool { return t.Category == *v.tab })
	}
	return Filter(base, v.query, v.filters)
}

// EmptyReason is "" when something is visible. An empty tab with no search
// or filters reports CategoryEmpty.
func (v *View) EmptyReason() EmptyReason {
	if len(v.Visible()) > 0 {
		return ""
	}
	if v.filters.IsDefault() && strings.TrimSpace(v.query) == "" {
		return CategoryEmpty
	}
	return NoMatches
}
