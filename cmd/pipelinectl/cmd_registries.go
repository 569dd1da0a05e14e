package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/paulmthompson/WhiskerToolbox-sub000/reduction"
	"github.com/paulmthompson/WhiskerToolbox-sub000/transform"
)

func newTransformsCmd() *cobra.Command {
	transformsCmd := &cobra.Command{
		Use:   "transforms",
		Short: "Inspect the registered element/time-grouped/container transforms",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List every registered transform with its category and lineage class",
		RunE: func(cmd *cobra.Command, args []string) error {
			r := transform.NewRegistry()
			transform.RegisterBuiltins(r)

			names := r.List()
			sort.Strings(names)
			for _, name := range names {
				meta, err := r.Metadata(name)
				if err != nil {
					return fmt.Errorf("transforms list: %w", err)
				}
				fmt.Printf("%-28s %-14s %-20s in=%-24s out=%-16s arity=%d\n",
					meta.Name, meta.Category, meta.Lineage, meta.InputType, meta.OutputType, max1(meta.Arity))
			}
			return nil
		},
	}

	transformsCmd.AddCommand(listCmd)
	return transformsCmd
}

func newReductionsCmd() *cobra.Command {
	reductionsCmd := &cobra.Command{
		Use:   "reductions",
		Short: "Inspect the registered sample -> scalar reductions",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List every registered reduction with its category",
		RunE: func(cmd *cobra.Command, args []string) error {
			r := reduction.NewRegistry()
			reduction.RegisterBuiltins(r)

			names := r.List()
			sort.Strings(names)
			for _, name := range names {
				meta, err := r.Metadata(name)
				if err != nil {
					return fmt.Errorf("reductions list: %w", err)
				}
				fmt.Printf("%-28s %-10s in=%-16s out=%-16s\n",
					meta.Name, meta.Category, meta.InputType, meta.OutputType)
			}
			return nil
		},
	}

	reductionsCmd.AddCommand(listCmd)
	return reductionsCmd
}

// max1 reports an arity of at least 1. The transform registry already
// raises a zero Arity to 1 at registration, so this only guards
// Metadata that did not pass through it.
func max1(arity int) int {
	if arity <= 0 {
		return 1
	}
	return arity
}
