package catalog

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// DataType is the declared shape of an attribute's values.
type DataType string

const (
	TypeString  DataType = "string"
	TypeNumber  DataType = "number"
	TypeBoolean DataType = "boolean"
	TypeEnum    DataType = "enum"
)

// Valid reports whether t is one of the supported data types.
func (t DataType) Valid() bool {
	switch t {
	case TypeString, TypeNumber, TypeBoolean, TypeEnum:
		return true
	}
	return false
}

// Value is a typed attribute value. The set of implementations is closed:
// StringValue, NumberValue, BoolValue and EnumValue.
type Value interface {
	Type() DataType
	String() string
	isValue()
}

// StringValue is a free-form text value.
type StringValue string

func (StringValue) Type() DataType   { return TypeString }
func (v StringValue) String() string { return string(v) }
func (StringValue) isValue()         {}

// NumberValue is an exact decimal number (watts, millimetres, gigabytes...).
type NumberValue struct {
	Amount decimal.Decimal
}

// Number wraps d as a NumberValue.
func Number(d decimal.Decimal) NumberValue { return NumberValue{Amount: d} }

// Int is a convenience constructor for whole numbers.
func Int(n int64) NumberValue { return NumberValue{Amount: decimal.NewFromInt(n)} }

func (NumberValue) Type() DataType   { return TypeNumber }
func (v NumberValue) String() string { return v.Amount.String() }
func (NumberValue) isValue()         {}

// BoolValue is a yes/no value.
type BoolValue bool

func (BoolValue) Type() DataType   { return TypeBoolean }
func (v BoolValue) String() string { return strconv.FormatBool(bool(v)) }
func (BoolValue) isValue()         {}

// EnumValue is one of an attribute's enum options.
type EnumValue string

func (EnumValue) Type() DataType   { return TypeEnum }
func (v EnumValue) String() string { return string(v) }
func (EnumValue) isValue()         {}

// Equal compares two values after type normalization: numbers compare
// numerically, booleans as booleans, and text-like values (strings and
// enum options) by their text. A text value that parses as a number or a
// boolean compares equal to the matching number or boolean.
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch av := a.(type) {
	case NumberValue:
		bn, ok := asNumber(b)
		return ok && av.Amount.Equal(bn)
	case BoolValue:
		bb, ok := asBool(b)
		return ok && bool(av) == bb
	case StringValue, EnumValue:
		switch b.(type) {
		case NumberValue, BoolValue:
			return Equal(b, a)
		case StringValue, EnumValue:
			return a.String() == b.String()
		}
	}
	return false
}

func asNumber(v Value) (decimal.Decimal, bool) {
	switch tv := v.(type) {
	case NumberValue:
		return tv.Amount, true
	case StringValue, EnumValue:
		d, err := decimal.NewFromString(strings.TrimSpace(tv.String()))
		if err != nil || !InNumberRange(d) {
			return decimal.Zero, false
		}
		return d, true
	}
	return decimal.Zero, false
}

func asBool(v Value) (bool, bool) {
	switch tv := v.(type) {
	case BoolValue:
		return bool(tv), true
	case StringValue, EnumValue:
		return parseBoolText(tv.String())
	}
	return false, false
}

// parseBoolText accepts "true"/"1"/"yes" and "false"/"0"/"no", case-insensitively.
func parseBoolText(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes":
		return true, true
	case "false", "0", "no":
		return false, true
	}
	return false, false
}
