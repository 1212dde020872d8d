package flexihash

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestRing_Distribution enforces that lookups spread evenly across targets
// within a controlled tolerance, for both shipped hashers.
func TestRing_Distribution(t *testing.T) {
	var (
		numTargets = 10
		numLookups = 10_000 * numTargets

		perfectDist = numLookups / numTargets
		errorMargin = 0.25 // Tolerance for distribution (percentage)
		minDist     = perfectDist - int(math.Floor(errorMargin*float64(perfectDist)))
		maxDist     = perfectDist + int(math.Ceil(errorMargin*float64(perfectDist)))
	)

	hashers := []struct {
		Name string
		H    Hasher
	}{
		{Name: "xxhash", H: XXHasher{}},
		{Name: "md5", H: MD5Hasher{}},
	}

	for _, hasher := range hashers {
		t.Run(hasher.Name, func(t *testing.T) {
			ring, err := New(Options{Hasher: hasher.H, Replicas: 256})
			require.NoError(t, err)

			r := rand.New(rand.NewSource(0))
			randStr := func() string {
				key := make([]byte, 5)
				_, _ = r.Read(key)
				return fmt.Sprintf("%2x", key)
			}

			targetDist := map[string]int{}
			for n := 0; n < numTargets; n++ {
				target := randStr()
				require.NoError(t, ring.AddTarget(target))
				targetDist[target] = 0
			}

			for i := 0; i < numLookups; i++ {
				owner, err := ring.Lookup(randStr())
				require.NoError(t, err)
				targetDist[owner]++
			}

			dists := make([]float64, 0, len(targetDist))
			for _, calls := range targetDist {
				dists = append(dists, 100*(float64(calls)/float64(perfectDist)))
			}
			sort.Float64s(dists)

			fmt.Printf(
				"%s distribution stats: min %0.1f%%, median %0.1f%%, max %0.1f%%\n",
				hasher.Name,
				dists[0], median(dists), dists[len(dists)-1],
			)

			for target, calls := range targetDist {
				if calls < minDist || calls > maxDist {
					require.Failf(t, "distribution out of acceptable range",
						"unacceptable distribution for %s. expected [%d, %d], got %d",
						target, minDist, maxDist, calls,
					)
				}
			}
		})
	}
}

func median(nums []float64) float64 {
	mid := len(nums) / 2
	if len(nums)%2 != 0 {
		return nums[mid]
	}
	return (nums[mid-1] + nums[mid]) / 2.0
}

// BenchmarkRing_Lookup measures lookup speed across ring sizes.
func BenchmarkRing_Lookup(b *testing.B) {
	counts := []int{1, 10, 50, 100, 500, 1000}
	for _, count := range counts {
		b.Run(fmt.Sprintf("%d targets", count), func(b *testing.B) {
			runBenchmarkLookup(b, count)
		})
	}
}

func runBenchmarkLookup(b *testing.B, numTargets int) {
	b.Helper()

	ring, err := New(Options{})
	if err != nil {
		b.Fatal(err)
	}
	for n := 0; n < numTargets; n++ {
		if err := ring.AddTarget(fmt.Sprintf("target_%d", n+1)); err != nil {
			b.Fatal(err)
		}
	}

	r := rand.New(rand.NewSource(0))
	b.ResetTimer()

	for n := 0; n < b.N; n++ {
		key := make([]byte, 5)
		_, _ = r.Read(key)
		_, _ = ring.LookupList(fmt.Sprintf("%2x", key), 3)
	}
}

// BenchmarkRing_AddTarget measures how expensive topology changes are as the
// ring grows, including the recompile triggered by the following lookup.
func BenchmarkRing_AddTarget(b *testing.B) {
	ring, err := New(Options{})
	if err != nil {
		b.Fatal(err)
	}

	for n := 0; n < b.N; n++ {
		if err := ring.AddTarget(fmt.Sprintf("target_%d", n)); err != nil {
			b.Fatal(err)
		}
		if _, err := ring.Lookup("some-key"); err != nil {
			b.Fatal(err)
		}
	}
}
