// Package reduction implements spec.md §4.6's range reductions: a
// registry of named functions that collapse a sequence of elements
// into a single scalar, exactly mirroring package transform's
// registration/discovery shape so the pipeline runtime can treat both
// uniformly.
package reduction

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/paulmthompson/WhiskerToolbox-sub000/apperrors"
	"github.com/paulmthompson/WhiskerToolbox-sub000/container"
	"github.com/paulmthompson/WhiskerToolbox-sub000/timeframe"
)

// Sample is the generic element a reduction consumes. Event reductions
// only read Time; value reductions read both. Containers without a
// value (EventSeries) are adapted with Value left at its zero value.
type Sample struct {
	Time  timeframe.Index
	Value float64
}

// FromScalarSamples adapts ScalarSeries.Samples() output.
func FromScalarSamples(in []container.ScalarSample) []Sample {
	out := make([]Sample, len(in))
	for i, s := range in {
		out[i] = Sample{Time: s.Time, Value: float64(s.Val)}
	}
	return out
}

// FromRaggedElements adapts container.Element[container.RaggedScalar]
// or any (time, f32) element slice sharing that shape.
func FromRaggedElements(in []container.Element[container.RaggedScalar]) []Sample {
	out := make([]Sample, len(in))
	for i, e := range in {
		out[i] = Sample{Time: e.Time, Value: float64(e.Payload.Val)}
	}
	return out
}

// FromFloatElements adapts the common case of a lazily-zipped or
// transformed sequence already reduced to plain (time, f64) pairs —
// e.g. the output of normalize_event_time feeding first_positive_latency
// in spec.md §8 S5.
func FromFloatElements(times []timeframe.Index, values []float64) []Sample {
	n := len(times)
	if len(values) < n {
		n = len(values)
	}
	out := make([]Sample, n)
	for i := 0; i < n; i++ {
		out[i] = Sample{Time: times[i], Value: values[i]}
	}
	return out
}

// FromEventTimes adapts a plain list of event times (no value); Value
// is left at zero since event reductions never read it.
func FromEventTimes(times []timeframe.Index) []Sample {
	out := make([]Sample, len(times))
	for i, t := range times {
		out[i] = Sample{Time: t}
	}
	return out
}

// Func computes a reduction's scalar result from samples sorted in
// non-decreasing time order.
type Func func(samples []Sample, params any) (float64, error)

// ParamParser deserialises a reduction's JSON parameter document,
// mirroring transform.ParamParser.
type ParamParser func(raw json.RawMessage) (any, error)

// Metadata describes one registered reduction.
type Metadata struct {
	Name        string
	Category    string // "event" or "value"
	Description string
	InputType   string
	OutputType  string
	ParamType   string
}

type registration struct {
	meta  Metadata
	fn    Func
	parse ParamParser
}

// Registry is the reduction analogue of transform.Registry.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]*registration
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*registration)}
}

// Register installs a reduction under meta.Name.
func (r *Registry) Register(meta Metadata, fn Func, parse ParamParser) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byName[meta.Name] = &registration{meta: meta, fn: fn, parse: parse}
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byName[name]
	return ok
}

// Metadata returns the registered metadata for name.
func (r *Registry) Metadata(name string) (Metadata, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.byName[name]
	if !ok {
		return Metadata{}, fmt.Errorf("reduction %q: %w", name, apperrors.ErrUnknownReduction)
	}
	return reg.meta, nil
}

// List returns every registered reduction name, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.byName))
	for name := range r.byName {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// ListByCategory returns every registered name in the given category,
// sorted.
func (r *Registry) ListByCategory(category string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []string
	for name, reg := range r.byName {
		if reg.meta.Category == category {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// ParseParams deserialises raw JSON into name's parameter type.
func (r *Registry) ParseParams(name string, raw json.RawMessage) (any, error) {
	r.mu.RLock()
	reg, ok := r.byName[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("reduction %q: %w", name, apperrors.ErrUnknownReduction)
	}
	if reg.parse == nil {
		return nil, nil
	}
	if len(raw) == 0 {
		raw = []byte("{}")
	}
	params, err := reg.parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing params for %q: %w: %v", name, apperrors.ErrParameterParse, err)
	}
	return params, nil
}

// Apply runs name's reduction function over samples.
func (r *Registry) Apply(name string, samples []Sample, params any) (float64, error) {
	r.mu.RLock()
	reg, ok := r.byName[name]
	r.mu.RUnlock()
	if !ok {
		return 0, fmt.Errorf("reduction %q: %w", name, apperrors.ErrUnknownReduction)
	}
	sorted := samples
	if !sort.SliceIsSorted(sorted, func(i, j int) bool { return sorted[i].Time < sorted[j].Time }) {
		sorted = append([]Sample(nil), samples...)
		sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time < sorted[j].Time })
	}
	return reg.fn(sorted, params)
}
