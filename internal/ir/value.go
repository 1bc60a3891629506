package ir

import (
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

// Value is a sealed interface representing a bound or literal SQL value.
// Only Null, String, Int, Decimal, Bool, and Bytes implement it.
// There is NO float type: inexact numerics make literal identity unstable.
type Value interface {
	irValue() // Sealed - only these types implement it
}

// Null represents SQL NULL.
type Null struct{}

func (Null) irValue() {}

// String represents a character string value.
type String string

func (String) irValue() {}

// Int represents an exact integer value.
type Int int64

func (Int) irValue() {}

// Decimal represents an exact non-integer numeric value.
type Decimal struct {
	decimal.Decimal
}

func (Decimal) irValue() {}

// Bool represents a boolean value.
type Bool bool

func (Bool) irValue() {}

// Bytes represents a binary string value.
type Bytes []byte

func (Bytes) irValue() {}

// NewDecimal parses a numeric literal into a Decimal.
// Returns an error for text that is not an exact decimal number.
func NewDecimal(text string) (Decimal, error) {
	d, err := decimal.NewFromString(text)
	if err != nil {
		return Decimal{}, fmt.Errorf("invalid decimal %q: %w", text, err)
	}
	return Decimal{Decimal: d}, nil
}

// MustDecimal is like NewDecimal but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustDecimal(text string) Decimal {
	d, err := NewDecimal(text)
	if err != nil {
		panic(err)
	}
	return d
}

// ParseNumber turns numeric literal text into the narrowest exact Value:
// Int when the text is an int64, Decimal otherwise.
func ParseNumber(text string) (Value, error) {
	if n, err := strconv.ParseInt(text, 10, 64); err == nil {
		return Int(n), nil
	}
	return NewDecimal(text)
}

// Of converts a Go value into a Value.
//
// Floats are converted through their shortest decimal representation so
// that the resulting Decimal is exact with respect to what was written.
func Of(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return val, nil
	case string:
		return String(val), nil
	case int:
		return Int(val), nil
	case int32:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case uint32:
		return Int(val), nil
	case bool:
		return Bool(val), nil
	case []byte:
		return Bytes(val), nil
	case float64:
		return Decimal{Decimal: decimal.NewFromFloat(val)}, nil
	case float32:
		return Decimal{Decimal: decimal.NewFromFloat32(val)}, nil
	case decimal.Decimal:
		return Decimal{Decimal: val}, nil
	default:
		return nil, fmt.Errorf("unsupported value type: %T", v)
	}
}

// MustOf is like Of but panics on error.
func MustOf(v any) Value {
	val, err := Of(v)
	if err != nil {
		panic(err)
	}
	return val
}

// ToDriver converts a Value to the Go type handed to database drivers.
func ToDriver(v Value) any {
	switch val := v.(type) {
	case nil, Null:
		return nil
	case String:
		return string(val)
	case Int:
		return int64(val)
	case Decimal:
		// Drivers accept exact numerics as text; the database casts.
		return val.String()
	case Bool:
		return bool(val)
	case Bytes:
		return []byte(val)
	default:
		return nil
	}
}

// ToDriverSlice converts an ordered parameter list for database/sql.
func ToDriverSlice(vals []Value) []any {
	out := make([]any, len(vals))
	for i, v := range vals {
		out[i] = ToDriver(v)
	}
	return out
}

// Key returns the exact normalized identity of a value.
//
// Two values share a key iff they are the same SQL constant: the type
// family is part of the key (the string '1' and the number 1 differ), and
// numerics are compared by exact value (1, 1.0 and 1.00 are one key).
func Key(v Value) string {
	switch val := v.(type) {
	case nil, Null:
		return "null"
	case String:
		return "s:" + string(val)
	case Int:
		return "n:" + strconv.FormatInt(int64(val), 10)
	case Decimal:
		// decimal normalizes trailing zeros away in String().
		return "n:" + val.String()
	case Bool:
		return "b:" + strconv.FormatBool(bool(val))
	case Bytes:
		return "x:" + hex.EncodeToString(val)
	default:
		return fmt.Sprintf("?:%v", v)
	}
}

// Equal reports whether two values share the same Key.
func Equal(a, b Value) bool {
	return Key(a) == Key(b)
}

// IsNull reports whether v is SQL NULL.
func IsNull(v Value) bool {
	switch v.(type) {
	case nil, Null:
		return true
	}
	return false
}
