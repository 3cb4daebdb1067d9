// Package main provides the vibe-locus command-line tool.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/vibe-locus/internal/config"
)

// Exit codes
const (
	ExitSuccess = 0
	ExitError   = 1
)

// Version information (set at build time)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// app carries the state shared by all subcommands.
type app struct {
	cfgFile string
	verbose bool
	v       *viper.Viper
	logger  *zap.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(ExitError)
	}
	os.Exit(ExitSuccess)
}

func newRootCmd() *cobra.Command {
	a := &app{logger: zap.NewNop()}

	cmd := &cobra.Command{
		Use:   "vibe-locus",
		Short: "Consolidate candidate transcripts into loci",
		Long: `vibe-locus builds one locus per primary transcript: it admits valid
alternative splicing isoforms, scores and filters them, and pads their
terminal exons so the isoforms of a locus share their boundaries.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.logger.Sync()
		},
	}

	cmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default: ./.vibe-locus.yaml or ~/.vibe-locus.yaml)")
	cmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")

	cmd.AddCommand(newPickCmd(a))
	cmd.AddCommand(newImportCmd(a))
	cmd.AddCommand(newConfigCmd(a))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// init loads the configuration and builds the logger.
func (a *app) init() error {
	v, err := config.New(a.cfgFile)
	if err != nil {
		return err
	}
	a.v = v

	logger, err := newLogger(a.verbose)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	a.logger = logger
	return nil
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.DisableStacktrace = true
	return cfg.Build()
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "vibe-locus version %s (%s) built %s\n", version, commit, date)
		},
	}
}
