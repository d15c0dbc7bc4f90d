package tryenv

import (
	"fmt"

	"github.com/tryEnv-xyz/tryEnv/pkg/codec"
)

// InstanceKind names one of the three fixed deployment contexts a
// project's variables are partitioned into. The set is closed: instances
// are never added, removed, or renamed.
type InstanceKind string

const (
	Preview     InstanceKind = "preview"
	Development InstanceKind = "development"
	Production  InstanceKind = "production"
)

// Instances returns all instance kinds in display order.
func Instances() []InstanceKind {
	return []InstanceKind{Preview, Development, Production}
}

// ParseInstance validates a user-supplied instance name.
func ParseInstance(s string) (InstanceKind, error) {
	switch InstanceKind(s) {
	case Preview, Development, Production:
		return InstanceKind(s), nil
	}
	return "", fmt.Errorf("%w: unknown instance %q (want preview, development, or production)", ErrNotFound, s)
}

// VariableMap maps variable names to their sealed values.
type VariableMap map[string]codec.EncryptedValue

// InstanceSet holds the per-instance variable maps of one project. The
// fixed struct fields keep the instance set closed and the serialized
// field order stable.
type InstanceSet struct {
	Preview     VariableMap `json:"preview"`
	Development VariableMap `json:"development"`
	Production  VariableMap `json:"production"`
}

func newInstanceSet() InstanceSet {
	return InstanceSet{
		Preview:     VariableMap{},
		Development: VariableMap{},
		Production:  VariableMap{},
	}
}

// Vars returns the variable map for the given instance. The returned map
// is the live map, not a copy.
func (s *InstanceSet) Vars(kind InstanceKind) (VariableMap, bool) {
	switch kind {
	case Preview:
		return s.Preview, true
	case Development:
		return s.Development, true
	case Production:
		return s.Production, true
	}
	return nil, false
}

// normalize replaces nil maps with empty ones so loaded projects are
// mutable and serialize as {} rather than null.
func (s *InstanceSet) normalize() {
	if s.Preview == nil {
		s.Preview = VariableMap{}
	}
	if s.Development == nil {
		s.Development = VariableMap{}
	}
	if s.Production == nil {
		s.Production = VariableMap{}
	}
}

// Project is one named collection of variables. ID is generated once at
// creation and never changes; it is also the key-derivation input for
// every value encrypted under this project.
type Project struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Instances InstanceSet `json:"instances"`
}
