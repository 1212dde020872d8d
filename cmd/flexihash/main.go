// Command flexihash exercises the flexihash ring from the command line:
// one-off lookups and a lookup-distribution benchmark over a synthetic key
// sequence. Strictly a demo; the library itself has no CLI dependency.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sylr/flexihash"
)

func main() {
	cmd := &cobra.Command{
		Use:          "flexihash",
		Short:        "consistent-hashing ring demos",
		SilenceUsage: true,
	}

	cmd.AddCommand(
		cmdLookup(),
		cmdBench(),
	)

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func cmdLookup() *cobra.Command {
	var (
		targets  []string
		replicas int
		count    int
	)

	cmd := &cobra.Command{
		Use:   "lookup [resource]...",
		Short: "Resolves resources to their owning targets",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ring, err := flexihash.New(flexihash.Options{Replicas: replicas})
			if err != nil {
				return err
			}
			if err := ring.AddTargets(targets...); err != nil {
				return err
			}

			for _, resource := range args {
				owners, err := ring.LookupList(resource, count)
				if err != nil {
					return err
				}
				fmt.Printf("%s: %v\n", resource, owners)
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&targets, "target", nil, "Target to add to the ring (repeatable)")
	cmd.Flags().IntVar(&replicas, "ring-replicas", flexihash.DefaultReplicas, "Positions per weight-1 target")
	cmd.Flags().IntVar(&count, "count", 1, "Number of owners to resolve per resource")

	_ = cmd.MarkFlagRequired("target")

	return cmd
}
