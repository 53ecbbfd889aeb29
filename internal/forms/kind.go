package forms

import (
	"fmt"
	"strings"
)

// FieldType is the wire name of a field kind
type FieldType string

const (
	TypeText     FieldType = "text"
	TypeEmail    FieldType = "email"
	TypePhone    FieldType = "phone"
	TypeTextarea FieldType = "textarea"
	TypeNumber   FieldType = "number"
	TypeCurrency FieldType = "currency"
	TypePostcode FieldType = "postcode"
	TypeDate     FieldType = "date"
	TypeSelect   FieldType = "select"
)

// Affordance identifies the input control a kind renders as
type Affordance string

const (
	AffordanceText      Affordance = "text"
	AffordanceMultiline Affordance = "multiline"
	AffordanceNumeric   Affordance = "numeric"
	AffordancePostcode  Affordance = "postcode"
	AffordanceDate      Affordance = "date"
	AffordanceSelect    Affordance = "select"
)

// Input describes how a field is rendered by a client
type Input struct {
	Affordance Affordance `json:"affordance"`
	InputMode  string     `json:"input_mode,omitempty"`
	Prefix     string     `json:"prefix,omitempty"`
	Step       string     `json:"step,omitempty"`
	Uppercase  bool       `json:"uppercase,omitempty"`
	Options    []string   `json:"options,omitempty"`
}

// Kind is the closed set of field kinds. Only the variants in this file
// implement it, so every switch over kinds is total.
type Kind interface {
	Type() FieldType
	Input() Input
	// check runs the kind-specific rule against a non-empty value
	check(value string) string
}

type Text struct{}

type Email struct{}

type Phone struct{}

type Textarea struct{}

// Number covers both plain numbers and currency amounts
type Number struct {
	Currency bool
}

type Postcode struct{}

type Date struct{}

type Select struct {
	Options []string
}

func (Text) Type() FieldType     { return TypeText }
func (Email) Type() FieldType    { return TypeEmail }
func (Phone) Type() FieldType    { return TypePhone }
func (Textarea) Type() FieldType { return TypeTextarea }
func (Postcode) Type() FieldType { return TypePostcode }
func (Date) Type() FieldType     { return TypeDate }
func (Select) Type() FieldType   { return TypeSelect }

func (n Number) Type() FieldType {
	if n.Currency {
		return TypeCurrency
	}
	return TypeNumber
}

func (Text) Input() Input     { return Input{Affordance: AffordanceText} }
func (Email) Input() Input    { return Input{Affordance: AffordanceText, InputMode: "email"} }
func (Phone) Input() Input    { return Input{Affordance: AffordanceText, InputMode: "tel"} }
func (Textarea) Input() Input { return Input{Affordance: AffordanceMultiline} }
func (Date) Input() Input     { return Input{Affordance: AffordanceDate} }

func (n Number) Input() Input {
	if n.Currency {
		return Input{Affordance: AffordanceNumeric, Prefix: "£", Step: "0.01"}
	}
	return Input{Affordance: AffordanceNumeric}
}

func (Postcode) Input() Input {
	return Input{Affordance: AffordancePostcode, Uppercase: true}
}

func (s Select) Input() Input {
	opts := make([]string, len(s.Options))
	copy(opts, s.Options)
	return Input{Affordance: AffordanceSelect, Options: opts}
}

func (Text) check(string) string     { return "" }
func (Textarea) check(string) string { return "" }
func (Number) check(string) string   { return "" }
func (Date) check(string) string     { return "" }
func (Select) check(string) string   { return "" }

func (Email) check(value string) string {
	if !emailPattern.MatchString(value) {
		return "Please enter a valid email address"
	}
	return ""
}

func (Postcode) check(value string) string {
	if !postcodePattern.MatchString(strings.ToUpper(value)) {
		return "Please enter a valid UK postcode"
	}
	return ""
}

func (Phone) check(value string) string {
	if !phonePattern.MatchString(collapseSpaces(value)) {
		return "Please enter a valid UK phone number"
	}
	return ""
}

// ParseKind maps a wire type name to its kind. Options are only kept for select.
func ParseKind(t string, options []string) (Kind, error) {
	switch FieldType(strings.ToLower(strings.TrimSpace(t))) {
	case TypeText:
		return Text{}, nil
	case TypeEmail:
		return Email{}, nil
	case TypePhone:
		return Phone{}, nil
	case TypeTextarea:
		return Textarea{}, nil
	case TypeNumber:
		return Number{}, nil
	case TypeCurrency:
		return Number{Currency: true}, nil
	case TypePostcode:
		return Postcode{}, nil
	case TypeDate:
		return Date{}, nil
	case TypeSelect:
		if len(options) == 0 {
			return nil, fmt.Errorf("select field requires options")
		}
		return Select{Options: options}, nil
	default:
		return nil, fmt.Errorf("unknown field type %q", t)
	}
}
