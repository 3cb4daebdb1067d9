package locus

import (
	"github.com/inodb/vibe-locus/internal/scoring"
)

// Config holds the alternative splicing and padding thresholds of a locus.
type Config struct {
	MinScorePerc         float64        `mapstructure:"min_score_perc" yaml:"min_score_perc"`
	MaxIsoforms          int            `mapstructure:"max_isoforms" yaml:"max_isoforms"`
	TSDistance           int64          `mapstructure:"ts_distance" yaml:"ts_distance"`
	TSMaxSplices         int            `mapstructure:"ts_max_splices" yaml:"ts_max_splices"`
	KeepRetainedIntrons  bool           `mapstructure:"keep_retained_introns" yaml:"keep_retained_introns"`
	MinCDNAOverlap       float64        `mapstructure:"min_cdna_overlap" yaml:"min_cdna_overlap"`
	MinCDSOverlap        float64        `mapstructure:"min_cds_overlap" yaml:"min_cds_overlap"`
	ValidCCodes          []string       `mapstructure:"valid_ccodes" yaml:"valid_ccodes"`
	RedundantCCodes      []string       `mapstructure:"redundant_ccodes" yaml:"redundant_ccodes"`
	CDSOnly              bool           `mapstructure:"cds_only" yaml:"cds_only"`
	OnlyConfirmedIntrons bool           `mapstructure:"only_confirmed_introns" yaml:"only_confirmed_introns"`
	Pad                  bool           `mapstructure:"pad" yaml:"pad"`
	PadMaxRounds         int            `mapstructure:"pad_max_rounds" yaml:"pad_max_rounds"`
	Requirements         string         `mapstructure:"requirements" yaml:"requirements"`
	ASRequirements       string         `mapstructure:"as_requirements" yaml:"as_requirements"`
	Scoring              scoring.Scheme `mapstructure:"scoring" yaml:"scoring"`
}

// DefaultConfig returns the default thresholds.
func DefaultConfig() Config {
	return Config{
		MinScorePerc:        0.6,
		MaxIsoforms:         5,
		TSDistance:          2000,
		TSMaxSplices:        2,
		KeepRetainedIntrons: false,
		MinCDNAOverlap:      0.5,
		MinCDSOverlap:       0.75,
		ValidCCodes:         []string{"j", "J", "C", "G", "g", "h"},
		RedundantCCodes:     []string{"c", "m", "_", "=", "n"},
		Pad:                 true,
		PadMaxRounds:        10,
	}
}

// Validate checks threshold ranges and the scoring scheme.
func (c Config) Validate() error {
	const op = "validate config"
	switch {
	case c.MinScorePerc < 0 || c.MinScorePerc > 1:
		return newError(op, KindConfig, "", "min_score_perc %v not in [0, 1]", c.MinScorePerc)
	case c.MaxIsoforms < 0:
		return newError(op, KindConfig, "", "max_isoforms %d is negative", c.MaxIsoforms)
	case c.TSDistance < 0:
		return newError(op, KindConfig, "", "ts_distance %d is negative", c.TSDistance)
	case c.TSMaxSplices < 0:
		return newError(op, KindConfig, "", "ts_max_splices %d is negative", c.TSMaxSplices)
	case c.MinCDNAOverlap < 0 || c.MinCDNAOverlap > 1:
		return newError(op, KindConfig, "", "min_cdna_overlap %v not in [0, 1]", c.MinCDNAOverlap)
	case c.MinCDSOverlap < 0 || c.MinCDSOverlap > 1:
		return newError(op, KindConfig, "", "min_cds_overlap %v not in [0, 1]", c.MinCDSOverlap)
	case c.Pad && c.PadMaxRounds < 1:
		return newError(op, KindConfig, "", "pad_max_rounds %d must be at least 1", c.PadMaxRounds)
	}
	if err := c.Scoring.Validate(); err != nil {
		return &Error{Op: op, Kind: KindConfig, Err: err}
	}
	return nil
}

func codeSet(codes []string) map[string]bool {
	s := make(map[string]bool, len(codes))
	for _, c := range codes {
		s[c] = true
	}
	return s
}
