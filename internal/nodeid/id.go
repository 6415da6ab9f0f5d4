// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package nodeid

// Reserved types for nodes that are not provisioned by a backend.
const (
	TypeGate      = "gate"
	TypeValue     = "value"
	TypeComposite = "composite"
)

// ID is the structured identifier of a node: a type plus a logical name.
// It is comparable and safe to use as a map key.
type ID struct {
	Type string
	Name string
}

// New builds an ID without validating it.
func New(typ, name string) ID {
	return ID{Type: typ, Name: name}
}

// String serializes the ID into its canonical `type.name` form.
func (id ID) String() string {
	if id.Type == "" && id.Name == "" {
		return ""
	}
	return id.Type + "." + id.Name
}

// IsZero reports whether the ID is unset.
func (id ID) IsZero() bool {
	return id.Type == "" && id.Name == ""
}

// IsReserved reports whether the ID uses one of the reserved types.
func (id ID) IsReserved() bool {
	return IsReservedType(id.Type)
}

// IsReservedType reports whether typ is one of gate, value or composite.
func IsReservedType(typ string) bool {
	switch typ {
	case TypeGate, TypeValue, TypeComposite:
		return true
	}
	return false
}

// MarshalText implements encoding.TextMarshaler so IDs can be map keys in
// JSON and YAML documents.
func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *ID) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
