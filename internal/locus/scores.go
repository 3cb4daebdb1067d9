package locus

import (
	"sort"

	"go.uber.org/zap"

	"github.com/inodb/vibe-locus/internal/scoring"
)

// recomputeScores recalculates retained introns, requirement results and
// locus-relative scores for every member.
func (l *Locus) recomputeScores() error {
	members := l.sortedMembers()
	l.retained = l.findRetainedIntrons()

	ctx := scoring.NewContext(members)
	for id, n := range l.retained {
		ctx.RetainedIntrons[id] = n
	}
	scores, err := l.engine.scorer.Score(members, ctx)
	if err != nil {
		return &Error{Op: "score", Kind: KindConfig, Locus: l.id, Err: err}
	}

	l.scores = scores
	l.notPassing = make(map[string]bool)
	for id, b := range scores {
		l.members[id].Score = b.Total
		if !b.Passing {
			l.notPassing[id] = true
		}
	}
	l.scoresValid = true
	l.logger.Debug("scores computed",
		zap.String("locus", l.id),
		zap.Int("members", len(members)),
		zap.Int("not_passing", len(l.notPassing)))
	return nil
}

func (l *Locus) ensureScores() error {
	if l.scoresValid {
		return nil
	}
	return l.recomputeScores()
}

// Scores returns the current score of every member, recomputing them if the
// membership or geometry changed since the last computation.
func (l *Locus) Scores() (map[string]float64, error) {
	if err := l.ensureScores(); err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(l.members))
	for id, t := range l.members {
		out[id] = t.Score
	}
	return out, nil
}

// NotPassing returns the ids of members failing the minimum requirements.
func (l *Locus) NotPassing() ([]string, error) {
	if err := l.ensureScores(); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(l.notPassing))
	for id := range l.notPassing {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// ScoreRows returns a score breakdown row per member, sorted by id.
func (l *Locus) ScoreRows() ([]scoring.Row, error) {
	if err := l.ensureScores(); err != nil {
		return nil, err
	}
	rows := make([]scoring.Row, 0, len(l.scores))
	for id, b := range l.scores {
		t := l.members[id]
		alias := t.Attributes[AttrAlias]
		if alias == "" {
			alias = id
		}
		comps := make(map[string]float64, len(b.Components))
		for k, v := range b.Components {
			comps[k] = v
		}
		rows = append(rows, scoring.Row{
			TID:        id,
			Alias:      alias,
			Parent:     l.id,
			Score:      b.Total,
			Passing:    b.Passing,
			Components: comps,
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].TID < rows[j].TID })
	return rows, nil
}
