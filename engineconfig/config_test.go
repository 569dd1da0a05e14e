package engineconfig

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "engine.yaml")
	if err := os.WriteFile(path, []byte("progress_report_every: 50\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ProgressReportEvery != 50 {
		t.Fatalf("ProgressReportEvery = %d, want 50", cfg.ProgressReportEvery)
	}
	if cfg.CancellationPollEvery != 100 {
		t.Fatalf("CancellationPollEvery = %d, want default 100", cfg.CancellationPollEvery)
	}
	if !cfg.StrictParameterValidation {
		t.Fatalf("StrictParameterValidation should default true")
	}
}

func TestValidateRejectsNonPositiveIntervals(t *testing.T) {
	cfg := Default()
	cfg.ProgressReportEvery = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error for progress_report_every = 0")
	}
}
