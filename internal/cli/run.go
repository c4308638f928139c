package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/happyhackingspace/treetopk"
	"github.com/happyhackingspace/treetopk/internal/storage"
)

// engineFlags override config file values when set on the command line.
type engineFlags struct {
	chunkSize int
	workers   int
	root      int
	epsilon   float64
}

func (f *engineFlags) register(cmd *cobra.Command) {
	def := treetopk.DefaultConfig()
	cmd.Flags().IntVar(&f.chunkSize, "chunk-size", def.ChunkSize, "Instances per worker chunk")
	cmd.Flags().IntVar(&f.workers, "workers", def.Workers, "Chunks processed in parallel")
	cmd.Flags().IntVar(&f.root, "root", def.Root, "Anchor node of the decoder")
	cmd.Flags().Float64Var(&f.epsilon, "epsilon", def.Epsilon, "Positivity margin of the score normalizer")
}

func (f *engineFlags) apply(cmd *cobra.Command, cfg *treetopk.Config) {
	if cmd.Flags().Changed("chunk-size") {
		cfg.ChunkSize = f.chunkSize
	}
	if cmd.Flags().Changed("workers") {
		cfg.Workers = f.workers
	}
	if cmd.Flags().Changed("root") {
		cfg.Root = f.root
	}
	if cmd.Flags().Changed("epsilon") {
		cfg.Epsilon = f.epsilon
	}
}

func (c *CLI) newRunCommand() *cobra.Command {
	var output string
	var dataFolder string
	var stdinFormat string
	var flags engineFlags

	cmd := &cobra.Command{
		Use:   "run [problem-file]",
		Short: "Decode the top-K labelings of every instance in a problem file or stdin",
		Args:  cobra.MaximumNArgs(1),
		Example: `  # Decode a JSON problem and print the result
  treetopk run problem.json

  # YAML problems are picked by extension
  treetopk run problem.yaml --output result.json

  # Read the problem from stdin
  cat problem.json | treetopk run

  # Decode every problem in a folder, writing <name>.result.json beside each
  treetopk run --data-folder problems

  # Tune scheduling
  treetopk run problem.json --workers 8 --chunk-size 50 -v`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			flags.apply(cmd, &cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}
			engine := treetopk.New(cfg)

			if dataFolder != "" {
				return runFolder(cmd.Context(), engine, dataFolder)
			}

			var p treetopk.Problem
			if len(args) == 0 {
				if isStdinTerminal() {
					return cmd.Help()
				}
				format := storage.JSON
				if stdinFormat == "yaml" {
					format = storage.YAML
				}
				slog.Debug("Reading problem from stdin", "format", stdinFormat)
				p, err = storage.ReadProblem(os.Stdin, format)
			} else {
				slog.Debug("Loading problem", "path", args[0])
				p, err = storage.LoadProblem(args[0])
			}
			if err != nil {
				return err
			}

			res, err := compute(cmd.Context(), engine, p)
			if err != nil {
				return err
			}
			if output != "" {
				if err := storage.SaveResult(res, output); err != nil {
					return fmt.Errorf("write result: %w", err)
				}
				slog.Info("Result saved", "path", output)
				return nil
			}
			return storage.WriteResult(cmd.OutOrStdout(), res)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the result to this file instead of stdout")
	cmd.Flags().StringVar(&dataFolder, "data-folder", "", "Decode every problem file in this folder")
	cmd.Flags().StringVar(&stdinFormat, "stdin-format", "json", "Encoding of a problem read from stdin (json or yaml)")
	flags.register(cmd)
	return cmd
}

func compute(ctx context.Context, engine *treetopk.Engine, p treetopk.Problem) (*treetopk.Result, error) {
	start := time.Now()
	res, err := engine.Compute(ctx, p)
	if err != nil {
		return nil, err
	}
	slog.Debug("Decoding completed", "instances", res.Instances(), "k", res.K,
		"labels", res.NumLabels, "duration", time.Since(start))
	return res, nil
}

func runFolder(ctx context.Context, engine *treetopk.Engine, folder string) error {
	store := storage.NewStorage(folder)
	entries, err := store.IterProblems()
	if err != nil {
		return fmt.Errorf("list problems: %w", err)
	}
	if len(entries) == 0 {
		return fmt.Errorf("no problem files found in %s", folder)
	}
	for _, e := range entries {
		res, err := compute(ctx, engine, e.Problem)
		if err != nil {
			return fmt.Errorf("%s: %w", e.Name, err)
		}
		dest := store.ResultPath(e.Name)
		if err := storage.SaveResult(res, dest); err != nil {
			return fmt.Errorf("write result: %w", err)
		}
		slog.Info("Result saved", "problem", e.Name, "path", dest)
	}
	return nil
}

func isStdinTerminal() bool {
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
