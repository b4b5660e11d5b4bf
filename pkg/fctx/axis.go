package fctx

import (
	"fmt"
	"sync"

	"github.com/flagforge/core/pkg/ffcerr"
)

// ValueType enumerates the primitive types an Axis's tag values carry.
type ValueType int

const (
	ValueTypeString ValueType = iota
	ValueTypeInt
	ValueTypeBool
)

func (t ValueType) String() string {
	switch t {
	case ValueTypeString:
		return "string"
	case ValueTypeInt:
		return "int"
	case ValueTypeBool:
		return "bool"
	default:
		return "unknown"
	}
}

// Axis is a named handle over an enum of tags.
type Axis struct {
	ID        string
	ValueType ValueType
}

// Catalog is an explicit axis registry: registration is never implicit.
// Multiple registrations of the same id with the same ValueType are
// idempotent; a conflicting registration (same id, different type) is a
// fatal error at catalog build time.
type Catalog struct {
	mu   sync.RWMutex
	byID map[string]Axis
}

// NewCatalog creates an empty axis catalog.
func NewCatalog() *Catalog {
	return &Catalog{byID: make(map[string]Axis)}
}

// Register adds an axis to the catalog. Returns an error if id is already
// registered with a different ValueType.
func (c *Catalog) Register(id string, valueType ValueType) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	existing, ok := c.byID[id]
	if !ok {
		c.byID[id] = Axis{ID: id, ValueType: valueType}
		return nil
	}
	if existing.ValueType != valueType {
		return ffcerr.New(ffcerr.ErrAxisConflict, fmt.Sprintf("axis %q already registered with type %s, cannot re-register as %s", id, existing.ValueType, valueType))
	}
	return nil
}

// Lookup returns the registered axis, if any.
func (c *Catalog) Lookup(id string) (Axis, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	a, ok := c.byID[id]
	return a, ok
}

// Axes returns a snapshot of all registered axes.
func (c *Catalog) Axes() []Axis {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Axis, 0, len(c.byID))
	for _, a := range c.byID {
		out = append(out, a)
	}
	return out
}
