package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/inodb/vibe-locus/internal/config"
	"github.com/inodb/vibe-locus/internal/duckdb"
	"github.com/inodb/vibe-locus/internal/genome"
	"github.com/inodb/vibe-locus/internal/locus"
	"github.com/inodb/vibe-locus/internal/output"
	"github.com/inodb/vibe-locus/internal/pick"
)

type pickOptions struct {
	input      string
	output     string
	scores     string
	summary    bool
	noDatabase bool
}

func newPickCmd(a *app) *cobra.Command {
	var opts pickOptions

	cmd := &cobra.Command{
		Use:   "pick",
		Short: "Build and pad one locus per primary transcript",
		Long: `Read the candidates table of a DuckDB database, build one locus per
locus_id, and write the picked transcripts as a tab-delimited table.
Results are also stored in the picked_transcripts and locus_scores tables.`,
		Example: `  vibe-locus pick --input loci.duckdb --genome genome.fa
  vibe-locus pick --input loci.duckdb --genome genome.fa -o picked.tsv --scores scores.tsv
  vibe-locus pick --input loci.duckdb --set locus.pad=false --workers 4`,
		Args: cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if err := a.v.BindPFlag("pick.genome", cmd.Flags().Lookup("genome")); err != nil {
				return err
			}
			return a.v.BindPFlag("pick.workers", cmd.Flags().Lookup("workers"))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			overrides, err := cmd.Flags().GetStringToString("set")
			if err != nil {
				return err
			}
			for k, v := range overrides {
				a.v.Set(k, v)
			}
			s, err := config.Load(a.v)
			if err != nil {
				return err
			}
			return runPick(a.logger, s, opts, cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVarP(&opts.input, "input", "i", "", "DuckDB database with a candidates table")
	cmd.Flags().String("genome", "", "genome FASTA (needed when padding)")
	cmd.Flags().Int("workers", 0, "number of parallel workers (default: number of CPUs)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().StringVar(&opts.scores, "scores", "", "write the score breakdown to this file")
	cmd.Flags().BoolVar(&opts.summary, "summary", false, "print a per-locus summary table to stderr")
	cmd.Flags().BoolVar(&opts.noDatabase, "no-database", false, "do not store results in the input database")
	cmd.Flags().StringToString("set", nil, "override a config value, e.g. --set locus.max_isoforms=3")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func runPick(logger *zap.Logger, s config.Settings, opts pickOptions, stderr io.Writer) error {
	var g genome.Reader
	if s.Pick.Genome != "" {
		r, err := genome.Open(s.Pick.Genome)
		if err != nil {
			return fmt.Errorf("opening genome: %w", err)
		}
		if c, ok := r.(io.Closer); ok {
			defer c.Close()
		}
		g = r
		logger.Info("genome loaded", zap.String("path", s.Pick.Genome))
	}

	engine, err := locus.NewEngine(s.Locus, g)
	if err != nil {
		return err
	}
	engine.SetLogger(logger)

	store, err := duckdb.Open(opts.input)
	if err != nil {
		return err
	}
	defer store.Close()

	jobs, err := store.LoadJobs()
	if err != nil {
		return err
	}
	logger.Info("loaded loci", zap.Int("loci", len(jobs)), zap.Int("workers", s.Pick.Workers))

	if !opts.noDatabase {
		if err := store.ClearOutputs(); err != nil {
			return err
		}
	}

	out := os.Stdout
	if opts.output != "" {
		f, err := os.Create(opts.output)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		out = f
	}
	lw := output.NewLocusWriter(out)
	if err := lw.WriteHeader(); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	var sw *output.ScoreWriter
	if opts.scores != "" {
		f, err := os.Create(opts.scores)
		if err != nil {
			return fmt.Errorf("creating scores file: %w", err)
		}
		defer f.Close()
		sw = output.NewScoreWriter(f, nil)
	}

	summary := output.NewSummaryWriter(stderr)
	if opts.summary {
		if err := summary.WriteHeader(); err != nil {
			return err
		}
	}

	picker := pick.NewPicker(engine)
	picker.SetLogger(logger)

	ch := make(chan pick.Job, 2*s.Pick.Workers)
	go func() {
		defer close(ch)
		for _, j := range jobs {
			ch <- j
		}
	}()

	err = pick.OrderedCollect(picker.ParallelPick(ch, s.Pick.Workers), func(r pick.Result) error {
		switch {
		case r.Err != nil:
			summary.Fail()
			logger.Error("locus failed", zap.String("locus", r.Job.Name), zap.Error(r.Err))
			return nil
		case r.Skipped:
			summary.Skip()
			return nil
		}

		l := r.Locus
		if err := lw.Write(l); err != nil {
			return fmt.Errorf("writing locus %s: %w", l.ID(), err)
		}
		rows, err := l.ScoreRows()
		if err != nil {
			return err
		}
		if sw != nil {
			if err := sw.Write(rows); err != nil {
				return fmt.Errorf("writing scores of %s: %w", l.ID(), err)
			}
		}
		if !opts.noDatabase {
			if err := store.WritePicked(l); err != nil {
				return err
			}
			if err := store.WriteScoreRows(rows); err != nil {
				return err
			}
		}
		if opts.summary {
			return summary.WriteLocus(l)
		}
		summary.Count(l)
		return nil
	})
	if err != nil {
		return err
	}

	if err := lw.Flush(); err != nil {
		return fmt.Errorf("flushing output: %w", err)
	}
	if sw != nil {
		if err := sw.Flush(); err != nil {
			return fmt.Errorf("flushing scores: %w", err)
		}
	}
	if err := summary.Flush(); err != nil {
		return err
	}
	summary.WriteSummary(stderr)

	if _, _, failed, _ := summary.Totals(); failed > 0 {
		return fmt.Errorf("%d loci failed", failed)
	}
	return nil
}
