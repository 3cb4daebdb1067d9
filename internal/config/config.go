// Package config loads vibe-locus settings from a YAML file, the
// environment and command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"

	"github.com/inodb/vibe-locus/internal/locus"
)

// EnvPrefix is the prefix of environment overrides, e.g.
// VIBE_LOCUS_LOCUS_MAX_ISOFORMS=3.
const EnvPrefix = "VIBE_LOCUS"

// FileName is the default config file name, looked up in the working
// directory and then the home directory.
const FileName = ".vibe-locus.yaml"

// ErrNoGenome is returned when padding is enabled without a genome.
var ErrNoGenome = errors.New("locus.pad requires pick.genome")

// Settings is the full run configuration.
type Settings struct {
	Locus locus.Config `mapstructure:"locus" yaml:"locus"`
	Pick  Pick         `mapstructure:"pick" yaml:"pick"`
}

// Pick holds the batch run settings.
type Pick struct {
	Genome  string `mapstructure:"genome" yaml:"genome"`
	Workers int    `mapstructure:"workers" yaml:"workers"`
}

// New returns a viper instance with defaults and environment overrides
// registered. If path is empty the default config file is searched for;
// a missing default file is not an error.
func New(path string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
		return v, nil
	}

	v.SetConfigName(strings.TrimSuffix(FileName, ".yaml"))
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(home)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}
	return v, nil
}

// SetDefaults registers the default value of every setting. Keys must be
// registered for environment overrides to reach Unmarshal.
func SetDefaults(v *viper.Viper) {
	d := locus.DefaultConfig()
	v.SetDefault("locus.min_score_perc", d.MinScorePerc)
	v.SetDefault("locus.max_isoforms", d.MaxIsoforms)
	v.SetDefault("locus.ts_distance", d.TSDistance)
	v.SetDefault("locus.ts_max_splices", d.TSMaxSplices)
	v.SetDefault("locus.keep_retained_introns", d.KeepRetainedIntrons)
	v.SetDefault("locus.min_cdna_overlap", d.MinCDNAOverlap)
	v.SetDefault("locus.min_cds_overlap", d.MinCDSOverlap)
	v.SetDefault("locus.valid_ccodes", d.ValidCCodes)
	v.SetDefault("locus.redundant_ccodes", d.RedundantCCodes)
	v.SetDefault("locus.cds_only", d.CDSOnly)
	v.SetDefault("locus.only_confirmed_introns", d.OnlyConfirmedIntrons)
	v.SetDefault("locus.pad", d.Pad)
	v.SetDefault("locus.pad_max_rounds", d.PadMaxRounds)
	v.SetDefault("locus.requirements", d.Requirements)
	v.SetDefault("locus.as_requirements", d.ASRequirements)

	v.SetDefault("pick.genome", "")
	v.SetDefault("pick.workers", runtime.NumCPU())
}

// Load decodes and validates the settings held by v.
func Load(v *viper.Viper) (Settings, error) {
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate checks the locus thresholds and the run settings.
func (s Settings) Validate() error {
	if err := s.Locus.Validate(); err != nil {
		return err
	}
	if s.Pick.Workers < 1 {
		return fmt.Errorf("pick.workers %d must be at least 1", s.Pick.Workers)
	}
	if s.Locus.Pad && s.Pick.Genome == "" {
		return ErrNoGenome
	}
	return nil
}

// WritePath returns the file that config changes should be written to.
func WritePath(v *viper.Viper) (string, error) {
	if f := v.ConfigFileUsed(); f != "" {
		return f, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, FileName), nil
}
