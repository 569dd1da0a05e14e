package pipeline

import (
	"encoding/json"
	"sync"
)

// ScalarKind tags the seven value shapes spec.md §4.5 allows in a
// PipelineValueStore entry.
type ScalarKind string

const (
	KindInt64        ScalarKind = "i64"
	KindFloat64      ScalarKind = "f64"
	KindBool         ScalarKind = "bool"
	KindString       ScalarKind = "string"
	KindInt64Slice   ScalarKind = "[]i64"
	KindFloat64Slice ScalarKind = "[]f64"
	KindStringSlice  ScalarKind = "[]string"
)

// Scalar is a PipelineValueStore entry: a tagged value that also
// carries its own JSON-encoded form, so parameter binding (§4.5) is a
// pure string-level substitution that never needs to know the
// concrete Go type on either side.
type Scalar struct {
	Kind ScalarKind
	JSON json.RawMessage
}

func mustMarshal(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		// Every caller passes a value from the closed set below;
		// marshalling one of these can never fail.
		panic(err)
	}
	return b
}

func Int64Scalar(v int64) Scalar     { return Scalar{Kind: KindInt64, JSON: mustMarshal(v)} }
func Float64Scalar(v float64) Scalar { return Scalar{Kind: KindFloat64, JSON: mustMarshal(v)} }
func BoolScalar(v bool) Scalar       { return Scalar{Kind: KindBool, JSON: mustMarshal(v)} }
func StringScalar(v string) Scalar   { return Scalar{Kind: KindString, JSON: mustMarshal(v)} }
func Int64SliceScalar(v []int64) Scalar {
	return Scalar{Kind: KindInt64Slice, JSON: mustMarshal(v)}
}
func Float64SliceScalar(v []float64) Scalar {
	return Scalar{Kind: KindFloat64Slice, JSON: mustMarshal(v)}
}
func StringSliceScalar(v []string) Scalar {
	return Scalar{Kind: KindStringSlice, JSON: mustMarshal(v)}
}

// PipelineValueStore is the flat key/value scratch space populated by
// range reductions and consumed by parameter bindings (spec.md §4.5).
type PipelineValueStore struct {
	mu     sync.RWMutex
	values map[string]Scalar
}

// NewPipelineValueStore builds an empty store.
func NewPipelineValueStore() *PipelineValueStore {
	return &PipelineValueStore{values: make(map[string]Scalar)}
}

// Set writes key's value, overwriting any existing entry.
func (s *PipelineValueStore) Set(key string, v Scalar) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = v
}

// Get reads key's value.
func (s *PipelineValueStore) Get(key string) (Scalar, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// Keys returns every populated key, in no particular order.
func (s *PipelineValueStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.values))
	for k := range s.values {
		out = append(out, k)
	}
	return out
}
