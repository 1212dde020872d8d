package main

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/sylr/flexihash"
)

func cmdBench() *cobra.Command {
	var (
		numTargets  int
		numKeys     int
		workers     int
		replicas    int
		weightEvery int
	)

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Tallies lookup distribution over a synthetic key sequence",
		RunE: func(cmd *cobra.Command, args []string) error {
			l := log.NewLogfmtLogger(log.NewSyncWriter(os.Stdout))

			ring, err := flexihash.New(flexihash.Options{Replicas: replicas})
			if err != nil {
				return err
			}
			for i := 0; i < numTargets; i++ {
				weight := 1.0
				if weightEvery > 0 && (i+1)%weightEvery == 0 {
					weight = 2.0
				}
				if err := ring.AddWeightedTarget(fmt.Sprintf("target-%d", i), weight); err != nil {
					return err
				}
			}

			m := newBenchMetrics()
			reg := prometheus.NewRegistry()
			if err := reg.Register(m); err != nil {
				return err
			}

			level.Info(l).Log("msg", "running lookups",
				"targets", numTargets, "keys", numKeys, "workers", workers, "replicas", replicas)

			start := time.Now()

			var g errgroup.Group
			for w := 0; w < workers; w++ {
				w := w
				g.Go(func() error {
					for i := w; i < numKeys; i += workers {
						timer := prometheus.NewTimer(m.lookupDuration)
						owner, err := ring.Lookup(fmt.Sprintf("key-%d", i))
						timer.ObserveDuration()
						if err != nil {
							return err
						}
						m.lookupsTotal.WithLabelValues(owner).Inc()
					}
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			elapsed := time.Since(start)
			level.Info(l).Log("msg", "lookups complete",
				"elapsed", elapsed,
				"rate", fmt.Sprintf("%.0f/s", float64(numKeys)/elapsed.Seconds()))

			return printDistribution(reg, numKeys, numTargets)
		},
	}

	cmd.Flags().IntVar(&numTargets, "targets", 10, "Number of synthetic targets to add")
	cmd.Flags().IntVar(&numKeys, "keys", 100_000, "Number of keys to look up")
	cmd.Flags().IntVar(&workers, "workers", 8, "Concurrent lookup workers")
	cmd.Flags().IntVar(&replicas, "ring-replicas", flexihash.DefaultReplicas, "Positions per weight-1 target")
	cmd.Flags().IntVar(&weightEvery, "weight-every", 0, "Add every Nth target with weight 2 (0 disables)")

	return cmd
}

// printDistribution reads the lookup tallies back out of the registry and
// renders per-target counts plus summary stats against a perfectly even
// spread. Weighted targets are expected to land above 100%.
func printDistribution(g prometheus.Gatherer, numKeys, numTargets int) error {
	mfs, err := g.Gather()
	if err != nil {
		return err
	}

	counts := map[string]float64{}
	for _, mf := range mfs {
		if mf.GetName() != "flexihash_bench_lookups_total" {
			continue
		}
		for _, metric := range mf.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == "target" {
					counts[label.GetValue()] = metric.GetCounter().GetValue()
				}
			}
		}
	}

	targets := make([]string, 0, len(counts))
	for target := range counts {
		targets = append(targets, target)
	}
	sort.Strings(targets)

	perfect := float64(numKeys) / float64(numTargets)
	dists := make([]float64, 0, len(targets))
	for _, target := range targets {
		dist := 100 * counts[target] / perfect
		dists = append(dists, dist)
		fmt.Printf("%-16s %10.0f %7.1f%%\n", target, counts[target], dist)
	}
	sort.Float64s(dists)

	if len(dists) == 0 {
		return nil
	}
	fmt.Printf("distribution stats: min %0.1f%%, median %0.1f%%, max %0.1f%%\n",
		dists[0], median(dists), dists[len(dists)-1])
	return nil
}

func median(nums []float64) float64 {
	mid := len(nums) / 2
	if len(nums)%2 != 0 {
		return nums[mid]
	}
	return (nums[mid-1] + nums[mid]) / 2.0
}
