package locus

import (
	"sort"

	"go.uber.org/zap"

	"github.com/inodb/vibe-locus/internal/transcript"
)

// Finalize filters the members by score and isoform count, removes
// transcripts with retained introns and pads the survivors, repeating until
// nothing changes. If padding keeps failing, the locus falls back to its
// state before padding was first attempted.
func (l *Locus) Finalize() error {
	if l.finalized {
		return nil
	}
	if err := l.recomputeScores(); err != nil {
		return err
	}

	var prePadding map[string]*transcript.Transcript
	padded := false
	rounds := 0
	for {
		removed, err := l.filterByScore()
		if err != nil {
			return err
		}
		if removed {
			continue
		}

		removed, err = l.removeRetainedIntrons()
		if err != nil {
			return err
		}
		if removed {
			continue
		}

		if !l.engine.cfg.Pad || padded {
			break
		}
		if prePadding == nil {
			prePadding = l.snapshot()
		}
		rounds++
		if rounds > l.engine.cfg.PadMaxRounds {
			l.logger.Info("padding did not converge, keeping unpadded transcripts",
				zap.String("locus", l.id), zap.Int("rounds", rounds-1))
			if err := l.fallback(prePadding); err != nil {
				return err
			}
			break
		}

		failed, evicted, err := l.pad()
		if err != nil {
			return err
		}
		if !failed {
			padded = true
			continue
		}
		if evicted == 0 {
			l.logger.Info("padding failed without evicting, keeping unpadded transcripts",
				zap.String("locus", l.id))
			if err := l.fallback(prePadding); err != nil {
				return err
			}
			break
		}
	}

	l.finalized = true
	l.logger.Debug("locus finalized",
		zap.String("locus", l.id),
		zap.Strings("transcripts", l.IDs()))
	return nil
}

func (l *Locus) fallback(snap map[string]*transcript.Transcript) error {
	l.restore(snap)
	return l.recomputeScores()
}

// filterByScore keeps the primary plus the max_isoforms best members scoring
// at least min_score_perc of the primary score. Ties are broken by id.
func (l *Locus) filterByScore() (bool, error) {
	if err := l.ensureScores(); err != nil {
		return false, err
	}
	cfg := l.engine.cfg
	threshold := cfg.MinScorePerc * l.members[l.primaryID].Score

	order := l.byScore()
	var drop []string
	kept := 0
	for _, t := range order {
		if t.Score >= threshold && kept < cfg.MaxIsoforms {
			kept++
			continue
		}
		drop = append(drop, t.ID)
	}
	if len(drop) == 0 {
		return false, nil
	}
	for _, id := range drop {
		l.logger.Debug("removing transcript below threshold",
			zap.String("locus", l.id),
			zap.String("transcript", id),
			zap.Float64("score", l.members[id].Score),
			zap.Float64("threshold", threshold))
		if err := l.Remove(id); err != nil {
			return false, err
		}
	}
	return true, l.recomputeScores()
}

// byScore returns the non-primary members by decreasing score, then id.
func (l *Locus) byScore() []*transcript.Transcript {
	order := make([]*transcript.Transcript, 0, len(l.members))
	for id, t := range l.members {
		if id != l.primaryID {
			order = append(order, t)
		}
	}
	sort.Slice(order, func(i, j int) bool {
		if order[i].Score != order[j].Score {
			return order[i].Score > order[j].Score
		}
		return order[i].ID < order[j].ID
	})
	return order
}

// pad expands every member to its templates, then checks that the result
// is still a valid locus. On failure it evicts the offending members and
// reports how many were evicted so the caller can retry.
func (l *Locus) pad() (failed bool, evicted int, err error) {
	backup := l.snapshot()

	assigned := l.resolveTemplates()
	templates := make(map[string]bool)
	ids := make([]string, 0, len(assigned))
	for id, tpl := range assigned {
		ids = append(ids, id)
		if tpl.Five != nil {
			templates[tpl.Five.ID] = true
		}
		if tpl.Three != nil {
			templates[tpl.Three.ID] = true
		}
	}
	sort.Strings(ids)

	for _, id := range ids {
		expanded, err := l.expandTranscript(l.members[id], assigned[id])
		if err != nil {
			l.restore(backup)
			return false, 0, err
		}
		l.replace(expanded)
	}
	if err := l.recomputeScores(); err != nil {
		return false, 0, err
	}

	if l.notPassing[l.primaryID] || intersects(templates, l.notPassing) {
		evict := make(map[string]bool)
		for id := range l.notPassing {
			if id != l.primaryID {
				evict[id] = true
			}
		}
		if len(l.notPassing) == 1 && l.notPassing[l.primaryID] {
			l.logger.Info("primary invalidated by padding, keeping only the primary",
				zap.String("locus", l.id), zap.String("primary", l.primaryID))
			for id := range l.members {
				if id != l.primaryID {
					evict[id] = true
				}
			}
		}
		n, err := l.rollback(backup, evict)
		return true, n, err
	}

	fresh, err := l.engine.NewLocus(l.members[l.primaryID])
	if err != nil {
		return false, 0, err
	}
	fresh.SetLogger(l.logger)
	toRemove := make(map[string]bool)
	for _, t := range l.byScore() {
		ok, err := fresh.Add(t, true)
		if err != nil {
			return false, 0, err
		}
		if !ok {
			toRemove[t.ID] = true
		}
	}
	if !l.engine.cfg.KeepRetainedIntrons {
		for id := range fresh.findRetainedIntrons() {
			toRemove[id] = true
		}
	}
	if len(toRemove) == 0 {
		return false, 0, nil
	}

	if intersects(templates, toRemove) {
		evict := make(map[string]bool)
		for id := range toRemove {
			if templates[id] {
				evict[id] = true
			}
		}
		n, err := l.rollback(backup, evict)
		return true, n, err
	}

	for _, id := range sortedKeys(toRemove) {
		l.logger.Debug("removing transcript invalidated by padding",
			zap.String("locus", l.id), zap.String("transcript", id))
		if err := l.Remove(id); err != nil {
			return false, 0, err
		}
	}
	return true, len(toRemove), l.recomputeScores()
}

// rollback restores the pre-padding members and evicts the given ids.
func (l *Locus) rollback(backup map[string]*transcript.Transcript, evict map[string]bool) (int, error) {
	l.restore(backup)
	for _, id := range sortedKeys(evict) {
		l.logger.Debug("evicting transcript after failed padding",
			zap.String("locus", l.id), zap.String("transcript", id))
		if err := l.Remove(id); err != nil {
			return 0, err
		}
	}
	return len(evict), l.recomputeScores()
}

func intersects(a, b map[string]bool) bool {
	for k := range a {
		if b[k] {
			return true
		}
	}
	return false
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
