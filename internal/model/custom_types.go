package model

import (
	"encoding/json"
	"math"
)

// NullableFloat marshals non-finite values (NaN, ±Inf) as JSON null instead
// of failing the encode. Averages over zero active members produce NaN and
// must still serialize.
type NullableFloat float64

// MarshalJSON implements json.Marshaler.
func (v NullableFloat) MarshalJSON() ([]byte, error) {
	f := float64(v)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return json.Marshal(nil)
	}
	return json.Marshal(f)
}

// UnmarshalJSON implements json.Unmarshaler; null decodes to NaN.
func (v *NullableFloat) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*v = NullableFloat(math.NaN())
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*v = NullableFloat(f)
	return nil
}
