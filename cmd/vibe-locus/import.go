package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/inodb/vibe-locus/internal/candidates"
	"github.com/inodb/vibe-locus/internal/duckdb"
)

func newImportCmd(a *app) *cobra.Command {
	var (
		outputPath string
		replace    bool
	)

	cmd := &cobra.Command{
		Use:   "import <candidates.tsv>",
		Short: "Load a candidate transcript table into DuckDB",
		Long: `Load a tab-delimited candidate table into the candidates table of a
DuckDB database, ready for "vibe-locus pick".

Required columns: locus_id, tid, chrom, strand, is_primary, exons.
Optional columns: score, is_reference, orfs, verified_introns.`,
		Example: `  vibe-locus import candidates.tsv -o loci.duckdb
  zcat candidates.tsv.gz | vibe-locus import - -o loci.duckdb --replace`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(a.logger, args[0], outputPath, replace)
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "output DuckDB file")
	cmd.Flags().BoolVar(&replace, "replace", false, "remove an existing output database first")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

func runImport(logger *zap.Logger, inputPath, outputPath string, replace bool) error {
	if ext := filepath.Ext(outputPath); ext != ".duckdb" && ext != ".db" {
		outputPath += ".duckdb"
	}

	if replace {
		if err := os.Remove(outputPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing existing database: %w", err)
		}
	}

	parser, err := candidates.NewParser(inputPath)
	if err != nil {
		return err
	}
	defer parser.Close()

	cands, err := parser.ReadAll()
	if err != nil {
		return err
	}
	if len(cands) == 0 {
		logger.Warn("no candidates in input", zap.String("input", inputPath))
		return nil
	}

	store, err := duckdb.Open(outputPath)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.InsertCandidates(cands); err != nil {
		return err
	}

	var count int
	if err := store.DB().QueryRow("SELECT count(*) FROM candidates").Scan(&count); err != nil {
		return fmt.Errorf("counting candidates: %w", err)
	}

	logger.Info("import complete",
		zap.String("input", inputPath),
		zap.String("output", outputPath),
		zap.Int("inserted", len(cands)),
		zap.Int("candidates", count))
	return nil
}
