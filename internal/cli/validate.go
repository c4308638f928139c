package cli

import (
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/spf13/cobra"

	"github.com/happyhackingspace/treetopk"
	"github.com/happyhackingspace/treetopk/internal/storage"
	"github.com/happyhackingspace/treetopk/tree"
)

func (c *CLI) newValidateCommand() *cobra.Command {
	var flags engineFlags

	cmd := &cobra.Command{
		Use:     "validate <problem-file>",
		Short:   "Check a problem's tree and dimensions without decoding",
		Args:    cobra.ExactArgs(1),
		Example: `  treetopk validate problem.json --root 3`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			flags.apply(cmd, &cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}

			p, err := storage.LoadProblem(args[0])
			if err != nil {
				return err
			}
			t, mm, err := treetopk.New(cfg).Validate(p)
			if err != nil {
				return err
			}
			slog.Debug("Problem is valid", "path", args[0])
			printSummary(cmd.OutOrStdout(), t, mm, p.K)
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}

func printSummary(w io.Writer, t *tree.Tree, mm, k int) {
	_, _ = fmt.Fprintf(w, "nodes:      %d\n", t.NumNodes())
	_, _ = fmt.Fprintf(w, "edges:      %d\n", t.NumEdges())
	_, _ = fmt.Fprintf(w, "root:       %d\n", t.Root)
	_, _ = fmt.Fprintf(w, "max degree: %d\n", t.MaxDegree)
	_, _ = fmt.Fprintf(w, "instances:  %d\n", mm)
	_, _ = fmt.Fprintf(w, "k:          %d\n", k)
	printDegreeHistogram(w, t.Degree)
}

func printDegreeHistogram(w io.Writer, degree []int) {
	counts := make(map[int]int)
	for _, d := range degree {
		counts[d]++
	}
	keys := make([]int, 0, len(counts))
	for d := range counts {
		keys = append(keys, d)
	}
	sort.Ints(keys)

	_, _ = fmt.Fprintf(w, "\nDegree histogram:\n")
	_, _ = fmt.Fprintf(w, "%8s  %6s  %6s\n", "degree", "nodes", "share")
	for _, d := range keys {
		_, _ = fmt.Fprintf(w, "%8d  %6d  %5.1f%%\n", d, counts[d], float64(counts[d])/float64(len(degree))*100)
	}
}
