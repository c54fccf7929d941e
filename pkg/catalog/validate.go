package catalog

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Validate checks raw against attr's declared data type and returns the
// typed value. It has no side effects.
func Validate(attr *Attribute, raw any) (Value, error) {
	if attr == nil {
		return nil, &ValidationError{Code: CodeInvalidDefinition, Message: "attribute is nil"}
	}
	switch attr.DataType {
	case TypeString:
		return validateString(attr, raw)
	case TypeNumber:
		return validateNumber(attr, raw)
	case TypeBoolean:
		return validateBool(attr, raw)
	case TypeEnum:
		return validateEnum(attr, raw)
	}
	return nil, &ValidationError{
		Code:    CodeInvalidDefinition,
		Field:   attr.Name,
		Message: fmt.Sprintf("unsupported data type %q", attr.DataType),
	}
}

func validateString(attr *Attribute, raw any) (Value, error) {
	s, ok := raw.(string)
	if !ok {
		return nil, invalidValue(attr, "string", "expected a string, got %T", raw)
	}
	if attr.ValidationRegex != "" {
		re, err := regexp.Compile("^(?:" + attr.ValidationRegex + ")$")
		if err != nil {
			return nil, &ValidationError{
				Code:    CodeInvalidDefinition,
				Field:   attr.Name,
				Message: fmt.Sprintf("invalid validation regex: %v", err),
			}
		}
		if !re.MatchString(s) {
			return nil, invalidValue(attr, "string matching "+attr.ValidationRegex,
				"value %q does not match pattern %q", s, attr.ValidationRegex)
		}
	}
	return StringValue(s), nil
}

func validateNumber(attr *Attribute, raw any) (Value, error) {
	var d decimal.Decimal
	switch v := raw.(type) {
	case int:
		d = decimal.NewFromInt(int64(v))
	case int32:
		d = decimal.NewFromInt32(v)
	case int64:
		d = decimal.NewFromInt(v)
	case uint:
		d = decimal.NewFromUint64(uint64(v))
	case uint64:
		d = decimal.NewFromUint64(v)
	case float32:
		if !finite(float64(v)) {
			return nil, invalidValue(attr, "number", "value %v is not a finite number", v)
		}
		d = decimal.NewFromFloat32(v)
	case float64:
		if !finite(v) {
			return nil, invalidValue(attr, "number", "value %v is not a finite number", v)
		}
		d = decimal.NewFromFloat(v)
	case decimal.Decimal:
		d = v
	case json.Number:
		parsed, err := decimal.NewFromString(v.String())
		if err != nil {
			return nil, invalidValue(attr, "number", "value %q is not a number", v.String())
		}
		d = parsed
	case string:
		parsed, err := decimal.NewFromString(strings.TrimSpace(v))
		if err != nil {
			return nil, invalidValue(attr, "number", "value %q is not a number", v)
		}
		d = parsed
	default:
		return nil, invalidValue(attr, "number", "expected a number, got %T", raw)
	}
	if !InNumberRange(d) {
		return nil, invalidValue(attr, "number", "value %s is out of range", inputText(raw))
	}
	if !d.Equal(d.Truncate(NumberScale)) {
		return nil, invalidValue(attr, "number", "value %s has more than %d decimal places", inputText(raw), NumberScale)
	}
	if d.Abs().GreaterThanOrEqual(maxNumber) {
		return nil, invalidValue(attr, "number", "value %s is out of range", inputText(raw))
	}
	return Number(d), nil
}

// NumberScale and NumberPrecision match the number_value column.
const (
	NumberScale     = 6
	NumberPrecision = 20
)

var maxNumber = decimal.New(1, NumberPrecision-NumberScale)

// InNumberRange reports whether d's exponent is small enough for the
// number_value column. Decimal arithmetic costs grow with the exponent, so
// this must be checked before comparing or rescaling parsed input.
func InNumberRange(d decimal.Decimal) bool {
	exp := d.Exponent()
	return exp >= -(NumberPrecision+NumberScale) && exp <= NumberPrecision
}

// PriceScale and PricePrecision match the price column.
const (
	PriceScale     = 2
	PricePrecision = 10
)

var maxPrice = decimal.New(1, PricePrecision-PriceScale)

// ValidatePrice checks that p is a non-negative amount the price column
// stores without rounding.
func ValidatePrice(p decimal.Decimal) error {
	exp := p.Exponent()
	if exp < -(PricePrecision+PriceScale) || exp > PricePrecision || p.Abs().GreaterThanOrEqual(maxPrice) {
		return &ValidationError{Code: CodeInvalidValue, Field: "price", Expected: "amount", Message: "price is out of range"}
	}
	if p.IsNegative() {
		return &ValidationError{Code: CodeInvalidValue, Field: "price", Expected: "amount", Message: "price must not be negative"}
	}
	if !p.Equal(p.Truncate(PriceScale)) {
		return &ValidationError{Code: CodeInvalidValue, Field: "price", Expected: "amount",
			Message: fmt.Sprintf("price has more than %d decimal places", PriceScale)}
	}
	return nil
}

const maxInputText = 32

// inputText renders raw for an error message without formatting the
// parsed decimal, whose string form can be arbitrarily long.
func inputText(raw any) string {
	var s string
	switch v := raw.(type) {
	case string:
		s = strings.TrimSpace(v)
	case json.Number:
		s = v.String()
	case decimal.Decimal:
		return fmt.Sprintf("with exponent %d", v.Exponent())
	default:
		s = fmt.Sprint(v)
	}
	if len(s) > maxInputText {
		s = s[:maxInputText] + "..."
	}
	return fmt.Sprintf("%q", s)
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func validateBool(attr *Attribute, raw any) (Value, error) {
	switch v := raw.(type) {
	case bool:
		return BoolValue(v), nil
	case string:
		if b, ok := parseBoolText(v); ok {
			return BoolValue(b), nil
		}
		return nil, invalidValue(attr, "boolean", "value %q is not a boolean", v)
	}
	return nil, invalidValue(attr, "boolean", "expected a boolean, got %T", raw)
}

func validateEnum(attr *Attribute, raw any) (Value, error) {
	var s string
	switch v := raw.(type) {
	case string:
		s = v
	case EnumValue:
		s = string(v)
	default:
		return nil, invalidValue(attr, "enum", "expected an enum option, got %T", raw)
	}
	opts := attr.Options()
	if opts.Cardinality() == 0 {
		return nil, invalidValue(attr, "enum", "attribute has no enum options; value %q rejected", s)
	}
	if !opts.Contains(s) {
		return nil, invalidValue(attr, "one of ["+strings.Join(attr.EnumOptions, ", ")+"]",
			"value %q is not a valid option", s)
	}
	return EnumValue(s), nil
}
