package model

import (
	"bytes"
	"encoding/json"
)

// OptionalString is a JSON field that distinguishes an absent key from an explicit null.
// Set reports whether the key was present; Value is nil when it was null.
type OptionalString struct {
	Set   bool
	Value *string
}

// SomeString returns an OptionalString holding s.
func SomeString(s string) OptionalString {
	return OptionalString{Set: true, Value: &s}
}

// NullString returns an OptionalString holding an explicit null.
func NullString() OptionalString {
	return OptionalString{Set: true}
}

func (o *OptionalString) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	o.Value = &s
	return nil
}
