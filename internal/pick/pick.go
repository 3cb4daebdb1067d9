// Package pick builds finalized loci from seed transcripts and their
// candidate isoforms, one locus per job, optionally across a worker pool.
package pick

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/inodb/vibe-locus/internal/locus"
	"github.com/inodb/vibe-locus/internal/transcript"
)

// Job is a primary transcript with the candidates clustered around it.
type Job struct {
	Seq        int
	Name       string // locus name for renaming; empty keeps the original ids
	Primary    *transcript.Transcript
	Candidates []*transcript.Transcript
}

// Picker runs jobs against a shared engine. The engine is read-only once
// built, so a Picker is safe for concurrent use.
type Picker struct {
	engine *locus.Engine
	logger *zap.Logger
}

// NewPicker creates a picker for the given engine.
func NewPicker(e *locus.Engine) *Picker {
	return &Picker{
		engine: e,
		logger: zap.NewNop(),
	}
}

// SetLogger sets the logger for warning and info messages.
func (p *Picker) SetLogger(l *zap.Logger) {
	p.logger = l
}

// Pick seeds a locus with the job primary, offers it the candidates by
// decreasing source score, finalizes it and renames it to the job name.
func (p *Picker) Pick(job Job) (*locus.Locus, error) {
	if job.Primary == nil {
		return nil, fmt.Errorf("job %d: no primary transcript", job.Seq)
	}
	l, err := p.engine.NewLocus(job.Primary)
	if err != nil {
		return nil, err
	}

	candidates := make([]*transcript.Transcript, 0, len(job.Candidates))
	for _, c := range job.Candidates {
		if c.ID != job.Primary.ID {
			candidates = append(candidates, c)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].SourceScore != candidates[j].SourceScore {
			return candidates[i].SourceScore > candidates[j].SourceScore
		}
		return candidates[i].ID < candidates[j].ID
	})

	added := 0
	for _, c := range candidates {
		ok, err := l.Add(c, true)
		if err != nil {
			return nil, err
		}
		if ok {
			added++
		}
	}
	if err := l.Finalize(); err != nil {
		return nil, err
	}
	if job.Name != "" {
		l.AssignID(job.Name)
	}

	p.logger.Debug("locus picked",
		zap.String("locus", l.ID()),
		zap.Int("candidates", len(candidates)),
		zap.Int("admitted", added),
		zap.Int("kept", l.Len()-1))
	return l, nil
}
