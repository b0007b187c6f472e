package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Float is a float64 that survives JSON round-trips when the value is
// infinite. DSCR and leverage are +Inf by convention when their denominator
// is zero, and encoding/json refuses to marshal that. Infinities are written
// as the strings "Infinity" / "-Infinity" (the same literals the variant
// files have always contained), NaN as null.
type Float float64

// Inf returns the +Inf ratio value.
func Inf() Float {
	return Float(math.Inf(1))
}

// IsInf reports whether the value is +Inf or -Inf.
func (f Float) IsInf() bool {
	return math.IsInf(float64(f), 0)
}

func (f Float) MarshalJSON() ([]byte, error) {
	v := float64(f)
	switch {
	case math.IsInf(v, 1):
		return []byte(`"Infinity"`), nil
	case math.IsInf(v, -1):
		return []byte(`"-Infinity"`), nil
	case math.IsNaN(v):
		return []byte("null"), nil
	default:
		return json.Marshal(v)
	}
}

func (f *Float) UnmarshalJSON(data []byte) error {
	s := string(data)
	switch s {
	case `"Infinity"`, "Infinity":
		*f = Float(math.Inf(1))
		return nil
	case `"-Infinity"`, "-Infinity":
		*f = Float(math.Inf(-1))
		return nil
	case "null":
		*f = Float(math.NaN())
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid ratio value %s: %w", s, err)
	}
	*f = Float(v)
	return nil
}
