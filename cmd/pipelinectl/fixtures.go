package main

import (
	"fmt"

	"github.com/paulmthompson/WhiskerToolbox-sub000/container"
	"github.com/paulmthompson/WhiskerToolbox-sub000/entity"
	"github.com/paulmthompson/WhiskerToolbox-sub000/timeframe"
)

// fixture bundles a demo container with the input/output keys its
// pipelines are expected to run against, since disk codecs (and so
// loading a real container) are out of scope per spec.md §1.
type fixture struct {
	inputKey  string
	outputKey string
	container any
}

// fixtureBuilders builds the small set of in-memory demo containers
// pipelinectl can run a pipeline against (SPEC_FULL.md §6.4). Names are
// deliberately short: operators pass them via --fixture.
var fixtureBuilders = map[string]func() fixture{
	"scalar_ramp": newScalarRampFixture,
	"events":      newEventsFixture,
}

func fixtureNames() []string {
	names := make([]string, 0, len(fixtureBuilders))
	for name := range fixtureBuilders {
		names = append(names, name)
	}
	return names
}

func buildFixture(name string) (fixture, error) {
	build, ok := fixtureBuilders[name]
	if !ok {
		return fixture{}, fmt.Errorf("unknown fixture %q (available: %v)", name, fixtureNames())
	}
	return build(), nil
}

// newScalarRampFixture builds a ten-point ScalarSeries ramping from 0
// to 9, suitable for z_score (bound mean/std_dev) or any other
// single-scalar-in element transform.
func newScalarRampFixture() fixture {
	frame := timeframe.NewFrame("demo", linspace(10))
	series := container.NewScalarSeries("scalar_ramp", frame)
	for i := 0; i < 10; i++ {
		_ = series.Set(timeframe.Index(i), float32(i), container.NotifySuppress)
	}
	return fixture{inputKey: "scalar_ramp", outputKey: "scalar_ramp_out", container: series}
}

// newEventsFixture builds an EventSeries with events at t = 5, 25, 55,
// 65, 120 (spec.md §8 S5's own example data), each carrying a distinct
// entity id, suitable for normalize_event_time bound to an
// alignment_time.
func newEventsFixture() fixture {
	frame := timeframe.NewFrame("demo", linspace(150))
	events := container.NewEventSeries("events", frame)
	reg := entity.NewRegistry()
	for i, t := range []int64{5, 25, 55, 65, 120} {
		id := reg.Assign("events", entity.KindEvent, timeframe.Index(t), i)
		_ = events.Insert(timeframe.Index(t), id, container.NotifySuppress)
	}
	return fixture{inputKey: "events", outputKey: "events_out", container: events}
}

func linspace(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i)
	}
	return out
}
