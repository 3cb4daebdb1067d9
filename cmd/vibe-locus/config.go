package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/inodb/vibe-locus/internal/config"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage vibe-locus configuration",
		Long:  "Show, get, or set configuration values. Config is stored in ~/.vibe-locus.yaml unless --config is given.",
		Example: `  vibe-locus config                              # show the effective config
  vibe-locus config set locus.max_isoforms 3      # keep at most 3 isoforms
  vibe-locus config get locus.pad                 # get a value`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runConfigShow(cmd.OutOrStdout())
		},
	}

	cmd.AddCommand(newConfigSetCmd(a))
	cmd.AddCommand(newConfigGetCmd(a))

	return cmd
}

func newConfigSetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runConfigSet(cmd.OutOrStdout(), args[0], args[1])
		},
	}
}

func newConfigGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runConfigGet(cmd.OutOrStdout(), args[0])
		},
	}
}

func (a *app) runConfigShow(w io.Writer) error {
	out, err := yaml.Marshal(a.v.AllSettings())
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	fmt.Fprint(w, string(out))
	return nil
}

func (a *app) runConfigSet(w io.Writer, key, value string) error {
	if !a.v.IsSet(key) && !isSchemeKey(key) {
		return fmt.Errorf("unknown key %q", key)
	}

	// Parse boolean-like and numeric values
	switch value {
	case "true", "yes", "on":
		a.v.Set(key, true)
	case "false", "no", "off":
		a.v.Set(key, false)
	default:
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			a.v.Set(key, n)
		} else if f, err := strconv.ParseFloat(value, 64); err == nil {
			a.v.Set(key, f)
		} else {
			a.v.Set(key, value)
		}
	}

	// pick.genome may still come from the pick command line
	if _, err := config.Load(a.v); err != nil && !errors.Is(err, config.ErrNoGenome) {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}

	cfgFile, err := config.WritePath(a.v)
	if err != nil {
		return err
	}
	if err := a.v.WriteConfigAs(cfgFile); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	fmt.Fprintf(w, "Set %s = %s in %s\n", key, value, cfgFile)
	return nil
}

func (a *app) runConfigGet(w io.Writer, key string) error {
	val := a.v.Get(key)
	if val == nil {
		return fmt.Errorf("key %q is not set", key)
	}
	fmt.Fprintln(w, val)
	return nil
}

// isSchemeKey reports whether key addresses a scoring scheme entry, which
// has no default to check against.
func isSchemeKey(key string) bool {
	return strings.HasPrefix(key, "locus.scoring.")
}
