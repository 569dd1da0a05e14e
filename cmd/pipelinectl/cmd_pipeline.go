package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/paulmthompson/WhiskerToolbox-sub000/enginemetrics"
	"github.com/paulmthompson/WhiskerToolbox-sub000/execctx"
	"github.com/paulmthompson/WhiskerToolbox-sub000/lineage"
	"github.com/paulmthompson/WhiskerToolbox-sub000/pipeline"
	"github.com/paulmthompson/WhiskerToolbox-sub000/reduction"
	"github.com/paulmthompson/WhiskerToolbox-sub000/transform"
)

func newPipelineCmd() *cobra.Command {
	pipelineCmd := &cobra.Command{
		Use:   "pipeline",
		Short: "Validate or run a declarative pipeline document",
	}

	validateCmd := &cobra.Command{
		Use:   "validate <file.json>",
		Short: "Load a pipeline document and report the steps it resolves to",
		Args:  cobra.ExactArgs(1),
		RunE:  runValidate,
	}

	runCmd := &cobra.Command{
		Use:   "run <file.json> --fixture <name>",
		Short: "Run a pipeline document against an in-memory fixture container",
		Args:  cobra.ExactArgs(1),
		RunE:  runPipeline,
	}
	runCmd.Flags().String("fixture", "scalar_ramp", fmt.Sprintf("fixture container to run against (%v)", fixtureNames()))
	runCmd.Flags().String("output-key", "", "output key to materialize (defaults to the fixture's own)")

	pipelineCmd.AddCommand(validateCmd)
	pipelineCmd.AddCommand(runCmd)
	return pipelineCmd
}

func buildRegistries() (*transform.Registry, *reduction.Registry) {
	transforms := transform.NewRegistry()
	transform.RegisterBuiltins(transforms)
	reductions := reduction.NewRegistry()
	reduction.RegisterBuiltins(reductions)
	return transforms, reductions
}

func loadPipelineFile(path string) (*pipeline.Pipeline, *transform.Registry, *reduction.Registry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("reading %s: %w", path, err)
	}
	transforms, reductions := buildRegistries()
	hasser := pipeline.NewReductionHasser(reductions.Has)
	p, err := pipeline.Load(json.RawMessage(raw), transforms, hasser)
	if err != nil {
		return nil, nil, nil, err
	}
	return p, transforms, reductions, nil
}

func runValidate(cmd *cobra.Command, args []string) error {
	p, transforms, _, err := loadPipelineFile(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("pipeline %q: %d pre-reduction(s), %d step(s)\n", p.Name, len(p.PreReductions), len(p.Steps))
	for _, rs := range p.PreReductions {
		fmt.Printf("  pre-reduction %-24s -> %s\n", rs.Reduction, rs.OutputKey)
	}
	for i, step := range p.Steps {
		meta, err := transforms.Metadata(step.Transform)
		if err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}
		state := "enabled"
		if !step.Enabled {
			state = "disabled"
		}
		fmt.Printf("  step %-3d %-24s lineage=%-18s %s\n", i, step.Transform, meta.Lineage, state)
	}
	fmt.Println("OK")
	return nil
}

func runPipeline(cmd *cobra.Command, args []string) error {
	fixtureName, _ := cmd.Flags().GetString("fixture")
	outputKeyFlag, _ := cmd.Flags().GetString("output-key")

	p, transforms, reductions, err := loadPipelineFile(args[0])
	if err != nil {
		return err
	}

	fx, err := buildFixture(fixtureName)
	if err != nil {
		return err
	}
	outputKey := fx.outputKey
	if outputKeyFlag != "" {
		outputKey = outputKeyFlag
	}

	metrics := enginemetrics.NewRegistry(prometheus.DefaultRegisterer)
	lineageRegistry := lineage.NewRegistry()
	lineageRegistry.OnInvalidate(func(_, _ string, _ lineage.ChangeType) {
		metrics.RecordLineageStaleMark()
	})

	runID := uuid.NewString()
	var ctx *execctx.Context
	if engineCfg.ProgressRateLimitPerSecond > 0 {
		ctx = execctx.NewRateLimited(nil, nil, engineCfg.ProgressRateLimitPerSecond, engineCfg.ProgressRateLimitBurst)
	} else {
		ctx = execctx.New(nil, nil)
	}
	timer := metrics.StartStepTimer(fmt.Sprintf("pipeline:%s", p.Name))
	out, err := pipeline.Execute(p, fx.inputKey, fx.container, outputKey, transforms, reductions, ctx, lineageRegistry)
	if err != nil {
		timer.Stop("error")
		return fmt.Errorf("run %s: running pipeline %q against fixture %q: %w", runID, p.Name, fixtureName, err)
	}
	timer.Stop("ok")

	log.Info().Str("run_id", runID).Str("pipeline", p.Name).Str("fixture", fixtureName).Str("output_key", outputKey).Msg("pipeline run complete")
	printContainerSummary(outputKey, out)
	return nil
}

// printContainerSummary re-adapts a materialised container into a
// LazyView and prints a short per-element table, rather than dumping
// the concrete container struct, since the five container categories
// have no shared printable representation.
func printContainerSummary(dataKey string, out any) {
	view, err := pipeline.AdaptContainer(out)
	if err != nil {
		fmt.Printf("%s: (unprintable: %v)\n", dataKey, err)
		return
	}
	fmt.Printf("%s: %d element(s)\n", dataKey, len(view.Elems))
	limit := len(view.Elems)
	if limit > 10 {
		limit = 10
	}
	width := outputWidth()
	for _, e := range view.Elems[:limit] {
		var line string
		if e.HasID {
			line = fmt.Sprintf("  t=%-6d id=%-6d payload=%v", e.Time, e.ID, e.Payload)
		} else {
			line = fmt.Sprintf("  t=%-6d payload=%v", e.Time, e.Payload)
		}
		if len(line) > width {
			line = line[:width-3] + "..."
		}
		fmt.Println(line)
	}
	if len(view.Elems) > limit {
		fmt.Printf("  ... %d more\n", len(view.Elems)-limit)
	}
}
