package forms

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestValidateRequired(t *testing.T) {
	kinds := []Kind{Text{}, Email{}, Phone{}, Textarea{}, Number{}, Number{Currency: true}, Postcode{}, Date{}, Select{Options: []string{"a"}}}

	for _, k := range kinds {
		field := Field{Name: "f", Label: "Client Name", Kind: k, Required: true}
		for _, v := range []any{"", "   ", nil} {
			msg := Validate(field, v)
			require.NotEmpty(t, msg, "kind %s value %q", k.Type(), v)
			require.Contains(t, msg, "Client Name")
			require.Equal(t, "Client Name is required", msg)
		}
	}
}

func TestValidateRequiredBeatsPattern(t *testing.T) {
	field := Field{Name: "ref", Label: "Reference", Kind: Text{}, Required: true, Validation: `^INV-\d+$`}

	require.Equal(t, "Reference is required", Validate(field, ""))
	require.Equal(t, "Reference format is invalid", Validate(field, "abc"))
	require.Empty(t, Validate(field, "INV-42"))
}

func TestValidateOptionalEmptyPasses(t *testing.T) {
	require.Empty(t, Validate(Field{Label: "Email", Kind: Email{}}, ""))
	require.Empty(t, Validate(Field{Label: "Postcode", Kind: Postcode{}}, "  "))
}

func TestCustomPatternSupersedesKindCheck(t *testing.T) {
	field := Field{Label: "Email", Kind: Email{}, Validation: `^[a-z]+$`}

	require.Empty(t, Validate(field, "notanemail"))
	require.Equal(t, "Email format is invalid", Validate(field, "a@b.co"))
}

func TestInvalidPatternReportsFormatError(t *testing.T) {
	field := Field{Label: "Code", Kind: Text{}, Validation: `([`}
	require.Equal(t, "Code format is invalid", Validate(field, "x"))
}

func TestValidateKinds(t *testing.T) {
	tests := []struct {
		name  string
		kind  Kind
		value any
		want  string
	}{
		{"email ok", Email{}, "a@b.co", ""},
		{"email no tld", Email{}, "a@b", "Please enter a valid email address"},
		{"email whitespace", Email{}, "a b@c.com", "Please enter a valid email address"},
		{"postcode lower", Postcode{}, "sw1a 1aa", ""},
		{"postcode upper", Postcode{}, "M1 1AE", ""},
		{"postcode no space", Postcode{}, "SW1A1AA", "Please enter a valid UK postcode"},
		{"postcode ambiguous inward", Postcode{}, "SW1A 1AC", "Please enter a valid UK postcode"},
		{"phone plain", Phone{}, "07123456789", ""},
		{"phone spaced", Phone{}, "07123 456 789", ""},
		{"phone international", Phone{}, "+447123456789", ""},
		{"phone bracketed", Phone{}, "(07123) 456 789", ""},
		{"phone double spaces", Phone{}, "07123  456  789", ""},
		{"phone wrong prefix", Phone{}, "06123456789", "Please enter a valid UK phone number"},
		{"phone short", Phone{}, "0712345678", "Please enter a valid UK phone number"},
		{"number", Number{}, 12.5, ""},
		{"currency", Number{Currency: true}, "99.99", ""},
		{"date", Date{}, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), ""},
		{"select", Select{Options: []string{"a", "b"}}, "a", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Validate(Field{Label: "Field", Kind: tt.kind}, tt.value)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestValidateAllReplacesErrors(t *testing.T) {
	fields := []Field{
		{Name: "name", Label: "Name", Kind: Text{}, Required: true},
		{Name: "email", Label: "Email", Kind: Email{}, Required: true},
		{Name: "postcode", Label: "Postcode", Kind: Postcode{}},
	}

	errs := ValidateAll(fields, FormData{"email": "bad", "postcode": "SW1A 1AA"})
	require.Equal(t, Errors{
		"name":  "Name is required",
		"email": "Please enter a valid email address",
	}, errs)

	errs = ValidateAll(fields, FormData{"name": "Sam", "email": "sam@example.co.uk"})
	require.Empty(t, errs)
}

func TestStringify(t *testing.T) {
	require.Equal(t, "", Stringify(nil))
	require.Equal(t, "42", Stringify(42))
	require.Equal(t, "1250.5", Stringify(1250.5))
	require.Equal(t, "2024-06-01", Stringify(time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)))
	require.Equal(t, "", Stringify(time.Time{}))
}

func TestNormalizeUppercasesPostcode(t *testing.T) {
	require.Equal(t, "SW1A 1AA", Normalize(Field{Kind: Postcode{}}, "sw1a 1aa"))
	require.Equal(t, "sw1a", Normalize(Field{Kind: Text{}}, "sw1a"))
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("currency", nil)
	require.NoError(t, err)
	require.Equal(t, Number{Currency: true}, k)
	require.Equal(t, "£", k.Input().Prefix)
	require.Equal(t, "0.01", k.Input().Step)

	_, err = ParseKind("select", nil)
	require.Error(t, err)

	_, err = ParseKind("signature", nil)
	require.Error(t, err)
}

func TestFieldJSONRoundTrip(t *testing.T) {
	in := Field{ID: "1", Name: "vat", Label: "VAT rate", Kind: Select{Options: []string{"0%", "20%"}}, Required: true}

	data, err := json.Marshal(in)
	require.NoError(t, err)
	require.JSONEq(t, `{"id":"1","name":"vat","label":"VAT rate","type":"select","required":true,
		"options":["0%","20%"],"input":{"affordance":"select","options":["0%","20%"]}}`, string(data))

	var out Field
	require.NoError(t, json.Unmarshal(data, &out))
	require.Equal(t, in, out)
}
