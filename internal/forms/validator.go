package forms

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	emailPattern    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	postcodePattern = regexp.MustCompile(`^[A-Z]{1,2}[0-9][A-Z0-9]? [0-9][ABD-HJLNP-UW-Z]{2}$`)
	phonePattern    = regexp.MustCompile(`^(\+447\d{9}|07\d{3} ?\d{3} ?\d{3}|\(07\d{3}\) ?\d{3} ?\d{3})$`)
	spaceRun        = regexp.MustCompile(`\s+`)
)

// DateLayout is the canonical string form of date values
const DateLayout = "2006-01-02"

// Field is one entry of a template's field schema
type Field struct {
	ID          string
	Name        string
	Label       string
	Kind        Kind
	Required    bool
	Placeholder string
	HelpText    string
	// Validation is an optional regular expression the string form must match
	Validation string
}

// FormData maps field names to input values (string, number, time.Time or nil)
type FormData map[string]any

// Errors maps field names to a human readable message
type Errors map[string]string

// Validate checks a single value against a field. An empty string means the value passes.
func Validate(field Field, value any) string {
	str := Stringify(value)
	present := strings.TrimSpace(str) != ""

	if field.Required && !present {
		return field.Label + " is required"
	}
	if !present {
		return ""
	}

	if field.Validation != "" {
		re, err := regexp.Compile(field.Validation)
		if err != nil || !re.MatchString(str) {
			return field.Label + " format is invalid"
		}
		return ""
	}

	if field.Kind == nil {
		return ""
	}
	return field.Kind.check(str)
}

// ValidateAll validates every field in declaration order and returns a fresh error map
func ValidateAll(fields []Field, data FormData) Errors {
	errs := make(Errors)
	for _, f := range fields {
		if msg := Validate(f, data[f.Name]); msg != "" {
			errs[f.Name] = msg
		}
	}
	return errs
}

// Stringify coerces a form value to the string the rules are tested against
func Stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case *string:
		if v == nil {
			return ""
		}
		return *v
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case json.Number:
		return v.String()
	case time.Time:
		if v.IsZero() {
			return ""
		}
		return v.Format(DateLayout)
	case *time.Time:
		if v == nil || v.IsZero() {
			return ""
		}
		return v.Format(DateLayout)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// Normalize applies the input-side transformation a kind performs before storage
func Normalize(field Field, value any) any {
	if _, ok := field.Kind.(Postcode); ok {
		if s, ok := value.(string); ok {
			return strings.ToUpper(s)
		}
	}
	return value
}

func collapseSpaces(s string) string {
	return spaceRun.ReplaceAllString(strings.TrimSpace(s), " ")
}

type fieldJSON struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Label       string    `json:"label"`
	Type        FieldType `json:"type"`
	Required    bool      `json:"required"`
	Placeholder string    `json:"placeholder,omitempty"`
	HelpText    string    `json:"helpText,omitempty"`
	Validation  string    `json:"validation,omitempty"`
	Options     []string  `json:"options,omitempty"`
	Input       *Input    `json:"input,omitempty"`
}

// MarshalJSON renders the field in its wire shape with the resolved input descriptor
func (f Field) MarshalJSON() ([]byte, error) {
	out := fieldJSON{
		ID:          f.ID,
		Name:        f.Name,
		Label:       f.Label,
		Required:    f.Required,
		Placeholder: f.Placeholder,
		HelpText:    f.HelpText,
		Validation:  f.Validation,
	}
	if f.Kind != nil {
		in := f.Kind.Input()
		out.Type = f.Kind.Type()
		out.Options = in.Options
		out.Input = &in
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts the wire shape and resolves the kind
func (f *Field) UnmarshalJSON(data []byte) error {
	var in fieldJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	kind, err := ParseKind(string(in.Type), in.Options)
	if err != nil {
		return fmt.Errorf("field %q: %w", in.Name, err)
	}
	*f = Field{
		ID:          in.ID,
		Name:        in.Name,
		Label:       in.Label,
		Kind:        kind,
		Required:    in.Required,
		Placeholder: in.Placeholder,
		HelpText:    in.HelpText,
		Validation:  in.Validation,
	}
	return nil
}
