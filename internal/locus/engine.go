// Package locus consolidates the candidate transcripts of one genomic locus
// into a primary model plus validated alternative splicing isoforms, and
// harmonizes their boundaries by padding.
package locus

import (
	"go.uber.org/zap"

	"github.com/inodb/vibe-locus/internal/compare"
	"github.com/inodb/vibe-locus/internal/genome"
	"github.com/inodb/vibe-locus/internal/scoring"
)

// Engine holds the validated configuration and collaborators shared by every
// locus. It is read-only once built and may be shared across goroutines.
type Engine struct {
	cfg            Config
	valid          map[string]bool
	redundant      map[string]bool
	requirements   scoring.Predicate
	asRequirements scoring.Predicate
	scorer         *scoring.Scorer
	comparator     compare.Comparator
	genome         genome.Reader
	logger         *zap.Logger
}

// NewEngine validates cfg and compiles its requirement expressions. The
// genome reader is needed only when padding is enabled.
func NewEngine(cfg Config, g genome.Reader) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Pad && g == nil {
		return nil, newError("new engine", KindConfig, "", "padding enabled without a genome")
	}
	req, err := scoring.CompileExpression(cfg.Requirements)
	if err != nil {
		return nil, &Error{Op: "compile requirements", Kind: KindConfig, Err: err}
	}
	asReq, err := scoring.CompileExpression(cfg.ASRequirements)
	if err != nil {
		return nil, &Error{Op: "compile as_requirements", Kind: KindConfig, Err: err}
	}
	return &Engine{
		cfg:            cfg,
		valid:          codeSet(cfg.ValidCCodes),
		redundant:      codeSet(cfg.RedundantCCodes),
		requirements:   req,
		asRequirements: asReq,
		scorer:         scoring.NewScorer(cfg.Scoring, req),
		comparator:     compare.NewAssigner(),
		genome:         g,
		logger:         zap.NewNop(),
	}, nil
}

// SetComparator replaces the default class code assigner.
func (e *Engine) SetComparator(c compare.Comparator) {
	e.comparator = c
}

// SetLogger sets the logger for debug and info messages.
func (e *Engine) SetLogger(l *zap.Logger) {
	e.logger = l
}

// Config returns the engine configuration.
func (e *Engine) Config() Config {
	return e.cfg
}
