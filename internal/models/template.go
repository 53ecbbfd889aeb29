package models

import (
	"github.com/elec-mate/elecmate-engine/internal/forms"
)

// Category groups document templates in the catalog
type Category string

const (
	CategoryInvoicing     Category = "invoicing"
	CategoryCertification Category = "certification"
	CategoryHealthSafety  Category = "health_safety"
	CategoryCompliance    Category = "compliance"
	CategoryContracts     Category = "contracts"
	CategoryBusiness      Category = "business"
)

// Categories lists every catalog category in display order
var Categories = []Category{
	CategoryInvoicing,
	CategoryCertification,
	CategoryHealthSafety,
	CategoryCompliance,
	CategoryContracts,
	CategoryBusiness,
}

// Label returns the human readable category name
func (c Category) Label() string {
	switch c {
	case CategoryInvoicing:
		return "Invoicing"
	case CategoryCertification:
		return "Certification"
	case CategoryHealthSafety:
		return "Health & Safety"
	case CategoryCompliance:
		return "Compliance"
	case CategoryContracts:
		return "Contracts"
	case CategoryBusiness:
		return "Business"
	}
	return string(c)
}

// Valid reports whether c is a known category
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Difficulty of completing a document template
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

// Valid reports whether d is a known difficulty
func (d Difficulty) Valid() bool {
	return d == DifficultyBeginner || d == DifficultyIntermediate || d == DifficultyAdvanced
}

// DocumentTemplate is a catalog entry the generator renders a form for.
// Templates are immutable once loaded.
type DocumentTemplate struct {
	ID                  string        `json:"id"`
	Name                string        `json:"name"`
	Description         string        `json:"description"`
	Category            Category      `json:"category"`
	FileType            string        `json:"fileType"`
	Difficulty          Difficulty    `json:"difficulty,omitempty"`
	UKSpecific          bool          `json:"ukSpecific"`
	RegulationCompliant []string      `json:"regulationCompliant,omitempty"`
	EstimatedTime       string        `json:"estimatedTime,omitempty"`
	LastUpdated         string        `json:"lastUpdated"`
	Fields              []forms.Field `json:"fields"`
}

// Field returns the field with the given name
func (t *DocumentTemplate) Field(name string) (forms.Field, bool) {
	for _, f := range t.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return forms.Field{}, false
}

// CategorySummary is a catalog tab with its template count
type CategorySummary struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Count int    `json:"count"`
}
