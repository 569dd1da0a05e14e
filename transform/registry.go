// Package transform implements the transform registry of spec.md §4.3:
// registration of element, time-grouped, and container transforms,
// together with the parameter-deserialisation hooks the pipeline
// runtime needs to hydrate JSON into concrete parameter structs without
// knowing their shape.
package transform

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/sony/gobreaker"

	"github.com/paulmthompson/WhiskerToolbox-sub000/apperrors"
)

// LineageClass names which spec.md §3.6 Lineage variant a transform's
// output should be recorded under. The pipeline runtime records
// Source, OneToOneByTime, AllToOneByTime and MultiSource lineage; it
// records nothing for Subset or None. Explicit, EntityMapped and
// ImplicitEntityMap have no class here.
type LineageClass string

const (
	LineageSource         LineageClass = "Source"
	LineageOneToOneByTime LineageClass = "OneToOneByTime"
	LineageAllToOneByTime LineageClass = "AllToOneByTime"
	LineageSubset         LineageClass = "Subset"
	LineageMultiSource    LineageClass = "MultiSource"
	LineageNone           LineageClass = "None"
)

// Kind distinguishes the three registration flavours of spec.md §4.3.
type Kind int

const (
	KindElement Kind = iota
	KindTimeGrouped
	KindContainer
)

// ElementFunc maps one input payload to one output payload. The
// runtime lifts it automatically: applied to a container C<In> it
// produces C<Out> with one output per input at the same (time,
// local_index), preserving EntityIds under OneToOneByTime lineage.
type ElementFunc func(in any, params any) (any, error)

// TimeGroupedFunc collapses every payload sharing one time into zero
// or more output payloads at that same time.
type TimeGroupedFunc func(group []any, params any) ([]any, error)

// ContainerContext is the subset of execctx.Context a container
// transform needs: progress reporting and cancellation polling. It is
// declared as an interface here (rather than importing execctx.Context
// directly as a concrete type) purely so tests can supply a fake;
// production callers pass a *execctx.Context, which satisfies it.
type ContainerContext interface {
	ReportProgress(done, total int)
	IsCancelled() bool
}

// ContainerFunc operates on a whole input container when the operation
// cannot be expressed element-wise.
type ContainerFunc func(in any, params any, ctx ContainerContext) (any, error)

// ParamParser deserialises a transform's JSON parameter document into
// the transform's concrete parameter type, returning an error on
// failure or validation violation; Registry.ParseParams wraps that
// error with apperrors.ErrParameterParse.
type ParamParser func(raw json.RawMessage) (any, error)

// Metadata describes one registered transform.
type Metadata struct {
	Name          string
	Category      string
	Description   string
	InputType     string
	OutputType    string
	ParamType     string
	Lineage       LineageClass
	Arity         int
	Expensive     bool
	Deterministic bool
	ContextKeys   []string // expected context/value-store bindings
}

type registration struct {
	meta        Metadata
	kind        Kind
	elementFn   ElementFunc
	groupedFn   TimeGroupedFunc
	containerFn ContainerFunc
	parseParams ParamParser
	breaker     *gobreaker.CircuitBreaker
}

// Registry is a name -> registration map plus the parameter-parsing
// side table. The zero value is not usable; construct with
// NewRegistry.
type Registry struct {
	mu    sync.RWMutex
	byName map[string]*registration
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*registration)}
}

// RegisterElement registers a single-in/single-out element transform.
func (r *Registry) RegisterElement(meta Metadata, fn ElementFunc, parse ParamParser) {
	meta.Arity = max(meta.Arity, 1)
	r.register(&registration{meta: meta, kind: KindElement, elementFn: fn, parseParams: parse})
}

// RegisterTimeGrouped registers a time-grouped (per-time-bucket)
// transform.
func (r *Registry) RegisterTimeGrouped(meta Metadata, fn TimeGroupedFunc, parse ParamParser) {
	meta.Arity = max(meta.Arity, 1)
	r.register(&registration{meta: meta, kind: KindTimeGrouped, groupedFn: fn, parseParams: parse})
}

// RegisterContainer registers a whole-container transform. A transform
// flagged Expensive gets its own circuit breaker (spec.md §4.3's
// Expensive metadata flag): repeated failures of a single expensive
// container scan trip it open rather than letting a caller retry a
// costly transform into the ground, the same protection
// circuitbreaker.go's Circuit gives the teacher's exchange calls.
func (r *Registry) RegisterContainer(meta Metadata, fn ContainerFunc, parse ParamParser) {
	meta.Arity = max(meta.Arity, 1)
	reg := &registration{meta: meta, kind: KindContainer, containerFn: fn, parseParams: parse}
	if meta.Expensive {
		st := gobreaker.Settings{Name: meta.Name}
		st.ReadyToTrip = func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		}
		reg.breaker = gobreaker.NewCircuitBreaker(st)
	}
	r.register(reg)
}

func (r *Registry) register(reg *registration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byName[reg.meta.Name] = reg
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
		return Metadata{}, fmt.Errorf("transform %q: %w", name, apperrors.ErrUnknownTransform)
	}
	return reg.meta, nil
}

// List returns every registered transform name, sorted.
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

// ParseParams deserialises raw JSON into name's parameter type using
// its registered ParamParser. A nil/empty raw uses the transform's
// default (the parser is expected to supply zero-value defaults for an
// empty document).
func (r *Registry) ParseParams(name string, raw json.RawMessage) (any, error) {
	r.mu.RLock()
	reg, ok := r.byName[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("transform %q: %w", name, apperrors.ErrUnknownTransform)
	}
	if reg.parseParams == nil {
		return nil, nil
	}
	if len(raw) == 0 {
		raw = []byte("{}")
	}
	params, err := reg.parseParams(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing params for %q: %w: %v", name, apperrors.ErrParameterParse, err)
	}
	return params, nil
}

// Kind returns the registration kind for name.
func (r *Registry) Kind(name string) (Kind, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.byName[name]
	if !ok {
		return 0, fmt.Errorf("transform %q: %w", name, apperrors.ErrUnknownTransform)
	}
	return reg.kind, nil
}

// ApplyElement invokes name's ElementFunc. Returns
// apperrors.ErrUnknownTransform if name is not registered, and
// apperrors.ErrInvariantViolation if it is registered as another kind.
func (r *Registry) ApplyElement(name string, in any, params any) (any, error) {
	reg, err := r.lookup(name, KindElement)
	if err != nil {
		return nil, err
	}
	return reg.elementFn(in, params)
}

// ApplyTimeGrouped invokes name's TimeGroupedFunc.
func (r *Registry) ApplyTimeGrouped(name string, group []any, params any) ([]any, error) {
	reg, err := r.lookup(name, KindTimeGrouped)
	if err != nil {
		return nil, err
	}
	return reg.groupedFn(group, params)
}

// ApplyContainer invokes name's ContainerFunc. If name was registered
// Expensive, the call runs through its circuit breaker: once open, it
// fails fast with gobreaker.ErrOpenState instead of re-running the
// scan.
func (r *Registry) ApplyContainer(name string, in any, params any, ctx ContainerContext) (any, error) {
	reg, err := r.lookup(name, KindContainer)
	if err != nil {
		return nil, err
	}
	if reg.breaker == nil {
		return reg.containerFn(in, params, ctx)
	}
	out, err := reg.breaker.Execute(func() (interface{}, error) {
		return reg.containerFn(in, params, ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("container transform %q: %w", name, err)
	}
	return out, nil
}

func (r *Registry) lookup(name string, want Kind) (*registration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("transform %q: %w", name, apperrors.ErrUnknownTransform)
	}
	if reg.kind != want {
		return nil, fmt.Errorf("transform %q is not registered as the expected kind: %w", name, apperrors.ErrInvariantViolation)
	}
	return reg, nil
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
