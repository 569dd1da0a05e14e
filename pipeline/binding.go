package pipeline

import (
	"encoding/json"
	"fmt"

	"github.com/paulmthompson/WhiskerToolbox-sub000/apperrors"
	"github.com/paulmthompson/WhiskerToolbox-sub000/reduction"
	"github.com/paulmthompson/WhiskerToolbox-sub000/transform"
)

// applyBindings implements spec.md §4.5's parameter binding contract
// exactly: serialise the step's params to JSON, replace each bound
// field's value with the store entry's JSON form, and hand the result
// back for the transform's own ParamParser to deserialise. Bindings
// are applied in map iteration order; the output is still
// byte-identical for identical store contents because json.Marshal
// writes the field map's keys in sorted order (spec.md §8 invariant
// 6, "binding determinism").
func applyBindings(paramsJSON json.RawMessage, bindings map[string]string, store *PipelineValueStore) (json.RawMessage, error) {
	if len(bindings) == 0 {
		return paramsJSON, nil
	}
	raw := paramsJSON
	if len(raw) == 0 {
		raw = []byte("{}")
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("binding target is not a JSON object: %w", apperrors.ErrBindingTypeMismatch)
	}
	if fields == nil {
		fields = make(map[string]json.RawMessage)
	}
	for field, key := range bindings {
		scalar, ok := store.Get(key)
		if !ok {
			return nil, fmt.Errorf("binding %q -> store key %q: %w", field, key, apperrors.ErrBindingMissingKey)
		}
		fields[field] = scalar.JSON
	}
	return json.Marshal(fields)
}

// ResolveStepParams applies step's bindings against store and parses the
// result through transform's own ParamParser, exposing the runtime's
// binding mechanism to callers (package gather's bind_projection /
// bind_view_adaptor) that need one step's bound parameters without
// running the whole pipeline (spec.md §4.8: "bindings are applied
// exactly as in §4.5").
func ResolveStepParams(transforms *transform.Registry, step PipelineStep, store *PipelineValueStore) (any, error) {
	paramsJSON, err := applyBindings(step.Params, step.ParamBindings, store)
	if err != nil {
		return nil, err
	}
	return transforms.ParseParams(step.Transform, paramsJSON)
}

// ResolveReductionParams is ResolveStepParams' analogue for a
// ReductionStep, used by package gather's bind_reducer.
func ResolveReductionParams(reductions *reduction.Registry, step ReductionStep, store *PipelineValueStore) (any, error) {
	paramsJSON, err := applyBindings(step.Params, step.Bindings, store)
	if err != nil {
		return nil, err
	}
	return reductions.ParseParams(step.Reduction, paramsJSON)
}
