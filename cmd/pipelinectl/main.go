// Command pipelinectl is a thin embedding-host CLI over the pipeline
// library (SPEC_FULL.md §6.4): it lists registered transforms and
// reductions, validates a pipeline JSON document, and runs a pipeline
// against a small set of in-memory fixture containers for
// smoke-testing. It owns no persistence layer of its own — disk codecs
// are out of scope per spec.md §1.
package main

import (
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/paulmthompson/WhiskerToolbox-sub000/engineconfig"
	"github.com/paulmthompson/WhiskerToolbox-sub000/enginelog"
	"github.com/paulmthompson/WhiskerToolbox-sub000/execctx"
)

const (
	appName = "pipelinectl"
	version = "v0.1.0"
)

// engineCfg is the config loaded via --config, consulted by
// runPipeline to decide whether a run's execctx.Context should be
// rate-limited. It stays at engineconfig.Default() (rate limiting
// disabled) until --config overrides it.
var engineCfg = engineconfig.Default()

func main() {
	production := os.Getenv("PIPELINECTL_ENV") == "production"
	enginelog.Setup(production)

	var configPath string

	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Inspect and run declarative pipeline documents",
		Version: version,
		Long: appName + ` lists the transforms and reductions this build
registers, validates pipeline JSON documents against them, and runs a
pipeline against a small built-in fixture container for smoke-testing.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return nil
			}
			cfg, err := engineconfig.Load(configPath)
			if err != nil {
				return err
			}
			engineCfg = cfg
			execctx.ProgressEvery = cfg.ProgressReportEvery
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to an engine config YAML file (overrides progress_report_every)")

	rootCmd.AddCommand(newTransformsCmd())
	rootCmd.AddCommand(newReductionsCmd())
	rootCmd.AddCommand(newPipelineCmd())

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

// outputWidth returns a reasonable column width for table output,
// falling back to 100 when stdout is not a terminal (piped or
// redirected output, e.g. in CI).
func outputWidth() int {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return 100
	}
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 {
		return 100
	}
	return w
}
