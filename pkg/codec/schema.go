package codec

import (
	"sync"

	"github.com/flagforge/core/pkg/flag"
	"github.com/flagforge/core/pkg/targeting"
)

// FieldSchema describes one property of a custom object value: its name,
// declared kind, whether it is required, and the value substituted when an
// optional field is absent from the wire object.
type FieldSchema struct {
	Name     string
	Kind     flag.ValueKind
	Required bool
	Default  interface{}
}

// ObjectSchema enumerates a custom object value's properties, standing in
// for "a constructor whose parameter names match the JSON object keys":
// decoding locates each wire key against a field by name rather than
// invoking an actual constructor, since Go has none to invoke.
type ObjectSchema struct {
	Name   string
	Fields []FieldSchema
}

// Schema is everything the codec needs to resolve a snapshot against:
// the namespace's declared features (so a rule's typed value can be
// decoded against the right ValueKind), enum member sets, custom object
// schemas, and an optional expression registry for named Custom
// predicates referenced by a rule's targeting tree.
type Schema struct {
	mu               sync.RWMutex
	features         map[flag.FeatureId]flag.Feature
	enumMembers      map[string]map[string]struct{}
	objects          map[string]ObjectSchema
	CustomPredicates *targeting.ExprRegistry
}

// NewSchema builds an empty schema bound to the given declared features.
func NewSchema(features map[flag.FeatureId]flag.Feature) *Schema {
	copied := make(map[flag.FeatureId]flag.Feature, len(features))
	for k, v := range features {
		copied[k] = v
	}
	return &Schema{
		features:    copied,
		enumMembers: make(map[string]map[string]struct{}),
		objects:     make(map[string]ObjectSchema),
	}
}

// Feature looks up a declared feature by id.
func (s *Schema) Feature(id flag.FeatureId) (flag.Feature, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.features[id]
	return f, ok
}

// RegisterEnum declares the valid member names for an enum-kind feature
// key. A value outside this set fails to decode.
func (s *Schema) RegisterEnum(name string, members ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := make(map[string]struct{}, len(members))
	for _, m := range members {
		set[m] = struct{}{}
	}
	s.enumMembers[name] = set
}

func (s *Schema) enumAllowed(name, value string) (bool, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set, declared := s.enumMembers[name]
	if !declared {
		return true, false
	}
	_, ok := set[value]
	return ok, true
}

// RegisterObject declares a custom object value's schema.
func (s *Schema) RegisterObject(schema ObjectSchema) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[schema.Name] = schema
}

func (s *Schema) object(name string) (ObjectSchema, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.objects[name]
	return o, ok
}
