// Package enginelog configures the shared github.com/rs/zerolog logger
// (SPEC_FULL.md §4.10). cmd/pipelinectl calls Setup; the pipeline
// runtime does not call StepDebug or RecoverableWarn. Grounded on cmd/cprotocol/main.go and cmd/cryptorun/main.go's
// "set zerolog.TimeFieldFormat, then swap log.Logger's writer" bootstrap
// idiom.
package enginelog

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup installs the module's logger: a human-readable console writer
// in dev, structured JSON in production. Call once at process start
// (cmd/pipelinectl's root command does this before any subcommand
// runs).
func Setup(production bool) {
	zerolog.TimeFieldFormat = time.RFC3339
	if production {
		log.Logger = log.Output(os.Stderr)
		return
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
}

// StepDebug logs one debug line per pipeline step, as SPEC_FULL.md
// §4.10 names: step, transform, elements, duration_ms.
func StepDebug(stepID, transform string, elements int, duration time.Duration) {
	log.Debug().
		Str("step", stepID).
		Str("transform", transform).
		Int("elements", elements).
		Int64("duration_ms", duration.Milliseconds()).
		Msg("pipeline step complete")
}

// RecoverableWarn logs one warn line for a recoverable error taxonomy
// member (lineage write failures, binding mismatches) before the
// caller propagates it.
func RecoverableWarn(err error, context string) {
	log.Warn().Err(err).Str("context", context).Msg("recoverable pipeline error")
}
