package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/joshuapare/slabkit/mem"
	"github.com/joshuapare/slabkit/slab"
)

func init() {
	rootCmd.AddCommand(newClassifyCmd())
}

func newClassifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify <size> [align]",
		Short: "Show which size class serves a request",
		Long: `The classify command prints the slab class a request of the given size
and alignment (default 1) is served from, or "backing" when it is passed
through to the backing allocator.

Example:
  slabctl classify 100
  slabctl classify 24 256
  slabctl classify 4096 --json`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClassify(args)
		},
	}
}

// ClassifyResult is the JSON form of the classify command.
type ClassifyResult struct {
	Size    int    `json:"size"`
	Align   int    `json:"align"`
	Class   int    `json:"class,omitempty"`
	Route   string `json:"route"` // "slab" or "backing"
	Waste   int    `json:"waste"` // Bytes of the class beyond the requested size
	PerPage int    `json:"per_page,omitempty"`
}

func runClassify(args []string) error {
	size, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid size %q: %w", args[0], err)
	}
	align := 1
	if len(args) == 2 {
		align, err = strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid alignment %q: %w", args[1], err)
		}
	}

	l, err := mem.NewLayout(size, align)
	if err != nil {
		return err
	}
	printVerbose("Classifying %s\n", l)

	res := ClassifyResult{Size: size, Align: align, Route: "backing"}
	if class, ok := slab.ClassFor(l); ok {
		res.Class = class
		res.Route = "slab"
		res.Waste = class - size
		res.PerPage = mem.PageSize / class
	}

	if jsonOut {
		return printJSON(res)
	}
	if res.Route == "backing" {
		printInfo("%s -> backing\n", l)
		return nil
	}
	printInfo("%s -> %d (%d per page, %d bytes unused)\n", l, res.Class, res.PerPage, res.Waste)
	return nil
}
