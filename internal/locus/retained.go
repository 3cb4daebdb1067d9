package locus

import (
	"sort"

	"go.uber.org/zap"

	"github.com/inodb/vibe-locus/internal/transcript"
)

// findRetainedIntrons returns, for every non-primary member with at least
// one retained intron, the number of introns it retains. Only introns of
// other members that the member does not share are considered, and only
// its terminal non-coding region (the 3' UTR, or every exon when
// non-coding) can retain them.
func (l *Locus) findRetainedIntrons() map[string]int {
	out := make(map[string]int)
	for id, t := range l.members {
		if id == l.primaryID {
			continue
		}
		own := t.IntronSet()
		foreign := make(transcript.IntervalSet)
		for oid, o := range l.members {
			if oid == id {
				continue
			}
			for _, in := range o.Introns() {
				if !own.Has(in) {
					foreign.Add(in)
				}
			}
		}
		if n := countRetained(t, t.ThreePrimeNonCoding(), foreign); n > 0 {
			out[id] = n
		}
	}
	return out
}

func countRetained(t *transcript.Transcript, regions []transcript.Interval, introns transcript.IntervalSet) int {
	n := 0
	for in := range introns {
		for _, r := range regions {
			if retains(t.Span(), r, in) {
				n++
				break
			}
		}
	}
	return n
}

// retains reports whether region, part of a transcript covering span,
// retains intron: either the region covers the whole intron, or the
// transcript ends inside the intron after running through its splice site.
func retains(span, region, intron transcript.Interval) bool {
	if region.Start < intron.Start && region.End > intron.End {
		return true
	}
	if region.Start < intron.Start && region.End >= intron.Start && region.End <= intron.End {
		return region.End == span.End
	}
	if region.Start >= intron.Start && region.Start <= intron.End && region.End > intron.End {
		return region.Start == span.Start
	}
	return false
}

// removeRetainedIntrons flags members with retained introns. Unless they
// are kept by configuration they are evicted; the return value reports
// whether any member was removed.
func (l *Locus) removeRetainedIntrons() (bool, error) {
	if err := l.ensureScores(); err != nil {
		return false, err
	}
	if len(l.retained) == 0 {
		return false, nil
	}
	ids := make([]string, 0, len(l.retained))
	for id := range l.retained {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	if l.engine.cfg.KeepRetainedIntrons {
		for _, id := range ids {
			l.members[id].Attributes[AttrRetainedIntron] = "true"
		}
		return false, nil
	}
	for _, id := range ids {
		l.logger.Debug("removing transcript with retained intron",
			zap.String("locus", l.id),
			zap.String("transcript", id),
			zap.Int("retained", l.retained[id]))
		if err := l.Remove(id); err != nil {
			return false, err
		}
	}
	return true, l.recomputeScores()
}
