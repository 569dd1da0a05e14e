// Package pipeline implements the pipeline runtime of spec.md §4.4-4.5:
// JSON-declared Pipelines, the PipelineValueStore, parameter binding,
// multi-input zipping, and lazy-chain execution against the container
// types.
package pipeline

import (
	"encoding/json"
	"fmt"

	"github.com/paulmthompson/WhiskerToolbox-sub000/apperrors"
	"github.com/paulmthompson/WhiskerToolbox-sub000/transform"
)

// jsonPipeline mirrors spec.md §6.1's wire schema exactly.
type jsonPipeline struct {
	Name          string              `json:"name"`
	PreReductions []jsonReductionStep `json:"pre_reductions,omitempty"`
	Steps         []jsonStep          `json:"steps"`
}

type jsonStep struct {
	StepID        string            `json:"step_id,omitempty"`
	Transform     string            `json:"transform"`
	Params        json.RawMessage   `json:"params,omitempty"`
	ParamBindings map[string]string `json:"param_bindings,omitempty"`
	Enabled       *bool             `json:"enabled,omitempty"`
}

type jsonReductionStep struct {
	Reduction string            `json:"reduction"`
	OutputKey string            `json:"output_key"`
	Params    json.RawMessage   `json:"params,omitempty"`
	Bindings  map[string]string `json:"bindings,omitempty"`
}

// PipelineStep is one step in a loaded Pipeline.
type PipelineStep struct {
	StepID        string
	Transform     string
	Params        json.RawMessage
	ParamBindings map[string]string
	Enabled       bool
}

// ReductionStep is one pre-reduction in a loaded Pipeline.
type ReductionStep struct {
	Reduction string
	OutputKey string
	Params    json.RawMessage
	Bindings  map[string]string
}

// Pipeline is a sequence of pre-reductions and steps (spec.md §4.4).
type Pipeline struct {
	Name          string
	PreReductions []ReductionStep
	Steps         []PipelineStep
}

// Load parses and validates raw against spec.md §6.1's schema. Unknown
// transform or reduction names fail the load before any execution
// starts (spec.md §7 "load-time errors... fail the pipeline
// construction").
func Load(raw json.RawMessage, transforms *transform.Registry, reductions *ReductionHasser) (*Pipeline, error) {
	var doc jsonPipeline
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("loading pipeline: %w: %v", apperrors.ErrParameterParse, err)
	}

	p := &Pipeline{Name: doc.Name}

	for _, rs := range doc.PreReductions {
		if reductions != nil && !reductions.Has(rs.Reduction) {
			return nil, fmt.Errorf("pre-reduction %q: %w", rs.Reduction, apperrors.ErrUnknownReduction)
		}
		p.PreReductions = append(p.PreReductions, ReductionStep{
			Reduction: rs.Reduction,
			OutputKey: rs.OutputKey,
			Params:    rs.Params,
			Bindings:  rs.Bindings,
		})
	}

	for _, s := range doc.Steps {
		if !transforms.Has(s.Transform) {
			return nil, fmt.Errorf("step %q: unknown transform %q: %w", s.StepID, s.Transform, apperrors.ErrUnknownTransform)
		}
		enabled := true
		if s.Enabled != nil {
			enabled = *s.Enabled
		}
		p.Steps = append(p.Steps, PipelineStep{
			StepID:        s.StepID,
			Transform:     s.Transform,
			Params:        s.Params,
			ParamBindings: s.ParamBindings,
			Enabled:       enabled,
		})
	}

	return p, nil
}

// ReductionHasser is the minimal surface Load needs from
// reduction.Registry; declared locally (rather than importing package
// reduction) so pipeline.Load can validate pre-reduction names without
// pipeline depending on reduction's full registry machinery.
type ReductionHasser struct {
	has func(name string) bool
}

// NewReductionHasser adapts any registry exposing Has(name) bool —
// reduction.Registry satisfies this shape — into the validator Load
// expects.
func NewReductionHasser(has func(name string) bool) *ReductionHasser {
	return &ReductionHasser{has: has}
}

func (h *ReductionHasser) Has(name string) bool {
	if h == nil || h.has == nil {
		return true
	}
	return h.has(name)
}
