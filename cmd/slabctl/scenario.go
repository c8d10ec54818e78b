package main

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/joshuapare/slabkit/backing"
	"github.com/joshuapare/slabkit/mem"
	"github.com/joshuapare/slabkit/slab"
)

var (
	scenarioClass int
	scenarioCount int
)

func init() {
	cmd := newScenarioCmd()
	cmd.Flags().IntVar(&scenarioClass, "class", 2048, "Slab class to exercise")
	cmd.Flags().IntVar(&scenarioCount, "count", 5, "Number of objects to issue")
	rootCmd.AddCommand(cmd)
}

func newScenarioCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scenario",
		Short: "Issue and release objects of one class, printing the free count",
		Long: `The scenario command issues --count objects of one class, then releases
them in issue order, printing the pool's remaining count after each step.
With the defaults it shows the 2048-byte class growing one page at a time:
1, 0, 1, 0, 1 while issuing and 2, 3, 4, 5, 6 while releasing.

Example:
  slabctl scenario
  slabctl scenario --class 1024 --count 9 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenario()
		},
	}
}

// ScenarioStep is one line of the scenario output.
type ScenarioStep struct {
	Op        string `json:"op"` // "issue" or "release"
	Index     int    `json:"index"`
	Addr      string `json:"addr"`
	Remaining int    `json:"remaining"`
}

func runScenario() error {
	if !slices.Contains(slab.Classes[:], scenarioClass) {
		return fmt.Errorf("class must be one of %v, got %d", slab.Classes, scenarioClass)
	}
	if scenarioCount < 0 {
		return fmt.Errorf("count must not be negative, got %d", scenarioCount)
	}

	a := slab.New(backing.NewHeap(), nil)
	defer a.Close()

	l := mem.MustLayout(scenarioClass, 1)
	steps := make([]ScenarioStep, 0, 2*scenarioCount)
	objs := make([][]byte, scenarioCount)

	for i := range objs {
		b, err := a.Allocate(l)
		if err != nil {
			return fmt.Errorf("issue %d: %w", i, err)
		}
		objs[i] = b
		steps = append(steps, ScenarioStep{"issue", i, fmt.Sprintf("%#x", mem.Addr(b)), a.Remaining(scenarioClass)})
	}
	for i, b := range objs {
		addr := fmt.Sprintf("%#x", mem.Addr(b))
		a.Deallocate(b, l)
		steps = append(steps, ScenarioStep{"release", i, addr, a.Remaining(scenarioClass)})
	}

	if jsonOut {
		return printJSON(steps)
	}
	printInfo("Class %d (%d objects per page)\n", scenarioClass, mem.PageSize/scenarioClass)
	for _, s := range steps {
		if verbose {
			printVerbose("%-7s #%d %s remaining=%d\n", s.Op, s.Index, s.Addr, s.Remaining)
			continue
		}
		printInfo("%-7s #%d remaining=%d\n", s.Op, s.Index, s.Remaining)
	}
	return nil
}
