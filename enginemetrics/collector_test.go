package enginemetrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestStepTimerRecordsDurationAndOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewRegistry(reg)

	timer := m.StartStepTimer("mask_area")
	timer.Stop("ok")

	metric := &dto.Metric{}
	if err := m.StepsTotal.WithLabelValues("mask_area", "ok").Write(metric); err != nil {
		t.Fatalf("reading counter: %v", err)
	}
	if metric.Counter.GetValue() != 1 {
		t.Fatalf("pipeline_steps_total{mask_area,ok} = %v, want 1", metric.Counter.GetValue())
	}
}

func TestRecordCancellationAndLineageStaleMark(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewRegistry(reg)

	m.RecordCancellation()
	m.RecordLineageStaleMark()

	cancelMetric := &dto.Metric{}
	if err := m.CancellationsTotal.Write(cancelMetric); err != nil {
		t.Fatalf("reading cancellations counter: %v", err)
	}
	if cancelMetric.Counter.GetValue() != 1 {
		t.Fatalf("pipeline_cancellations_total = %v, want 1", cancelMetric.Counter.GetValue())
	}

	staleMetric := &dto.Metric{}
	if err := m.LineageStaleMarks.Write(staleMetric); err != nil {
		t.Fatalf("reading lineage stale marks counter: %v", err)
	}
	if staleMetric.Counter.GetValue() != 1 {
		t.Fatalf("lineage_stale_marks_total = %v, want 1", staleMetric.Counter.GetValue())
	}
}
