package ir

import "encoding/json"

// JSON serialization support for descriptors.
// Class descriptors include a "kind" field for type discrimination.

// MarshalJSON implements json.Marshaler for ClassDescriptor.
func (c *ClassDescriptor) MarshalJSON() ([]byte, error) {
	type Alias ClassDescriptor
	kind := "class"
	if c.IsInterface {
		kind = "interface"
	}
	return json.Marshal(&struct {
		Kind string `json:"kind"`
		*Alias
	}{
		Kind:  kind,
		Alias: (*Alias)(c),
	})
}

// MarshalJSON implements json.Marshaler for TypeDescriptor.
// A nullable type is also rendered with its pointer marker for readability.
func (t *TypeDescriptor) MarshalJSON() ([]byte, error) {
	type Alias TypeDescriptor
	display := t.Name
	if t.AllowsNull && !t.IsAny() && !t.IsUnion() && !t.IsIntersection() {
		display = "*" + t.Name
	}
	return json.Marshal(&struct {
		*Alias
		Display string `json:"display"`
	}{
		Alias:   (*Alias)(t),
		Display: display,
	})
}
