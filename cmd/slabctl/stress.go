package main

import (
	"errors"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/joshuapare/slabkit/backing"
	"github.com/joshuapare/slabkit/mem"
	"github.com/joshuapare/slabkit/slab"
)

var (
	stressGoroutines int
	stressOps        int
	stressBacking    string
	stressBudget     int64
	stressSeed       int64
	stressMaxSize    int
)

func init() {
	cmd := newStressCmd()
	cmd.Flags().IntVar(&stressGoroutines, "goroutines", 4, "Number of concurrent workers")
	cmd.Flags().IntVar(&stressOps, "ops", 10000, "Operations per worker")
	cmd.Flags().StringVar(&stressBacking, "backing", "heap", "Backing allocator: heap, mmap or cheap")
	cmd.Flags().Int64Var(&stressBudget, "budget", 0, "Byte budget for the backing allocator (0 = unlimited)")
	cmd.Flags().Int64Var(&stressSeed, "seed", 1, "Random seed; worker i uses seed+i")
	cmd.Flags().IntVar(&stressMaxSize, "max-size", 4096, "Largest request size")
	rootCmd.AddCommand(cmd)
}

func newStressCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stress",
		Short: "Run a concurrent random workload against the allocator",
		Long: `The stress command runs --goroutines workers, each performing --ops random
issue/release operations with random sizes and alignments. Every issued
region is filled with a pattern that is verified on release, and all regions
live at the end are checked to be pairwise disjoint. Exhaustion of the
--budget is counted, not fatal.

Example:
  slabctl stress
  slabctl stress --goroutines 16 --ops 100000 --backing mmap
  slabctl stress --budget 65536 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStress()
		},
	}
}

// StressReport is the JSON form of the stress command.
type StressReport struct {
	Backing    string     `json:"backing"`
	Goroutines int        `json:"goroutines"`
	Ops        int        `json:"ops"`
	Seed       int64      `json:"seed"`
	Allocs     int        `json:"allocs"`
	Frees      int        `json:"frees"`
	Exhausted  int        `json:"exhausted"`
	Corrupt    int        `json:"corrupt"`
	Overlaps   int        `json:"overlaps"`
	Live       int        `json:"live"`
	Duration   string     `json:"duration"`
	Stats      slab.Stats `json:"stats"` // Snapshot before the final release
}

type stressRegion struct {
	b    []byte
	l    mem.Layout
	seed byte
}

type stressWorker struct {
	allocs, frees, exhausted, corrupt int
	live                              []stressRegion
	err                               error
}

func newBacking(name string, budget int64) (mem.Allocator, func(), error) {
	var (
		b       mem.Allocator
		cleanup = func() {}
	)
	switch name {
	case "heap":
		b = backing.NewHeap()
	case "mmap":
		if !backing.MmapSupported {
			printVerbose("mmap is not supported on this platform, using heap memory\n")
		}
		b = backing.NewMmap()
	case "cheap":
		c := backing.NewCHeap()
		b = c
		cleanup = func() { _ = c.Close() }
	default:
		return nil, nil, fmt.Errorf("unknown backing %q (want heap, mmap or cheap)", name)
	}
	if budget > 0 {
		b = backing.NewLimit(b, budget)
	}
	return b, cleanup, nil
}

func runStress() error {
	if stressGoroutines < 1 || stressOps < 0 || stressMaxSize < 0 {
		return fmt.Errorf("--goroutines must be positive and --ops, --max-size not negative")
	}

	b, cleanup, err := newBacking(stressBacking, stressBudget)
	if err != nil {
		return err
	}
	defer cleanup()

	a := slab.New(b, nil)
	defer a.Close()

	printVerbose("Running %d workers x %d ops on %s backing (seed %d)\n",
		stressGoroutines, stressOps, stressBacking, stressSeed)

	start := time.Now()
	workers := make([]stressWorker, stressGoroutines)
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			workers[i].run(a, rand.New(rand.NewSource(stressSeed+int64(i))), stressOps, stressMaxSize)
		}()
	}
	wg.Wait()
	elapsed := time.Since(start)

	report := StressReport{
		Backing:    stressBacking,
		Goroutines: stressGoroutines,
		Ops:        stressOps,
		Seed:       stressSeed,
		Duration:   elapsed.String(),
		Stats:      a.Stats(),
	}
	var live []stressRegion
	for _, w := range workers {
		report.Allocs += w.allocs
		report.Frees += w.frees
		report.Exhausted += w.exhausted
		report.Corrupt += w.corrupt
		live = append(live, w.live...)
		if w.err != nil && err == nil {
			err = w.err
		}
	}
	report.Live = len(live)
	report.Overlaps = countOverlaps(live)

	for _, r := range live {
		if !verifyPattern(r.b, r.seed) {
			report.Corrupt++
		}
		a.Deallocate(r.b, r.l)
	}

	if err != nil {
		return fmt.Errorf("worker failed: %w", err)
	}

	if jsonOut {
		if err := printJSON(report); err != nil {
			return err
		}
	} else {
		printStressReport(report)
		if !quiet {
			a.PrintStats(os.Stdout)
		}
	}

	if report.Corrupt > 0 || report.Overlaps > 0 {
		return fmt.Errorf("%d corrupt region(s), %d overlapping pair(s)", report.Corrupt, report.Overlaps)
	}
	return nil
}

func (w *stressWorker) run(a *slab.Allocator, rng *rand.Rand, ops, maxSize int) {
	for range ops {
		if len(w.live) > 0 && rng.Intn(2) == 0 {
			i := rng.Intn(len(w.live))
			r := w.live[i]
			if !verifyPattern(r.b, r.seed) {
				w.corrupt++
			}
			a.Deallocate(r.b, r.l)
			w.frees++
			w.live[i] = w.live[len(w.live)-1]
			w.live = w.live[:len(w.live)-1]
			continue
		}

		l := mem.MustLayout(rng.Intn(maxSize+1), 1<<rng.Intn(8))
		b, err := a.Allocate(l)
		if errors.Is(err, mem.ErrExhausted) {
			w.exhausted++
			continue
		}
		if err != nil {
			w.err = err
			return
		}
		b = b[:l.Size]
		seed := byte(rng.Intn(256))
		fillPattern(b, seed)
		w.allocs++
		w.live = append(w.live, stressRegion{b: b, l: l, seed: seed})
	}
}

func fillPattern(b []byte, seed byte) {
	for i := range b {
		b[i] = seed ^ byte(i)
	}
}

func verifyPattern(b []byte, seed byte) bool {
	for i := range b {
		if b[i] != seed^byte(i) {
			return false
		}
	}
	return true
}

// countOverlaps returns the number of adjacent pairs, in address order, whose
// bytes overlap.
func countOverlaps(regions []stressRegion) int {
	type span struct{ start, end uintptr }
	spans := make([]span, 0, len(regions))
	for _, r := range regions {
		if r.l.Size == 0 {
			continue
		}
		start := mem.Addr(r.b)
		spans = append(spans, span{start, start + uintptr(len(r.b))})
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })

	n := 0
	for i := 1; i < len(spans); i++ {
		if spans[i].start < spans[i-1].end {
			n++
		}
	}
	return n
}

func printStressReport(r StressReport) {
	printInfo("Stress: %d workers x %d ops on %s backing in %s\n", r.Goroutines, r.Ops, r.Backing, r.Duration)
	printInfo("  allocs:    %d\n", r.Allocs)
	printInfo("  frees:     %d\n", r.Frees)
	printInfo("  live:      %d\n", r.Live)
	if r.Exhausted > 0 {
		printInfo("  exhausted: %d\n", r.Exhausted)
	}
	printInfo("  corrupt:   %d\n", r.Corrupt)
	printInfo("  overlaps:  %d\n", r.Overlaps)
}
