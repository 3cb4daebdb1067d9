package locus

import (
	"fmt"
	"sort"

	"github.com/inodb/vibe-locus/internal/compare"
	"github.com/inodb/vibe-locus/internal/transcript"
)

// Classification is the verdict of the isoform classifier.
type Classification struct {
	Admissible bool
	ClassCode  string
	Result     *compare.Result // nil when the comparison was not run
	Reason     string
}

// Classify decides whether candidate is a valid alternative splicing isoform
// of the primary transcript that is not redundant with another member.
// It does not modify the locus.
func (l *Locus) Classify(candidate *transcript.Transcript) Classification {
	primary := l.members[l.primaryID]
	cfg := l.engine.cfg

	if candidate.IsCoding() != primary.IsCoding() {
		kind := "non-coding"
		if candidate.IsCoding() {
			kind = "coding"
		}
		return Classification{
			ClassCode: compare.CodeNotApplicable,
			Reason:    fmt.Sprintf("%s is %s, unlike primary %s", candidate.ID, kind, primary.ID),
		}
	}

	cand, prim, ok := l.comparable(candidate, primary)
	if !ok {
		return Classification{
			ClassCode: compare.CodeNotApplicable,
			Reason:    fmt.Sprintf("%s or %s has no selected ORF", candidate.ID, primary.ID),
		}
	}

	res := l.engine.comparator.Compare(cand, prim)
	cls := Classification{ClassCode: res.ClassCode, Result: &res}

	cdna := compare.CDNAOverlap(cand, prim)
	if cdna < cfg.MinCDNAOverlap {
		cls.Reason = fmt.Sprintf("cDNA overlap %.2f below %.2f", cdna, cfg.MinCDNAOverlap)
		return cls
	}
	if cand.IsCoding() {
		cds, ok := compare.CDSOverlap(cand, prim)
		if !ok || cds < cfg.MinCDSOverlap {
			cls.Reason = fmt.Sprintf("CDS overlap %.2f below %.2f", cds, cfg.MinCDSOverlap)
			return cls
		}
	}
	if !l.engine.valid[res.ClassCode] {
		cls.Reason = fmt.Sprintf("class code %s is not a valid splicing event", res.ClassCode)
		return cls
	}

	others := make([]string, 0, len(l.members))
	for id := range l.members {
		if id != l.primaryID && id != candidate.ID {
			others = append(others, id)
		}
	}
	sort.Strings(others)
	for _, id := range others {
		other, otherOK := l.members[id], true
		a := cand
		if cfg.CDSOnly {
			a, other, otherOK = l.comparable(candidate, other)
		}
		if !otherOK {
			continue
		}
		r := l.engine.comparator.Compare(a, other)
		if l.engine.redundant[r.ClassCode] {
			cls.Reason = fmt.Sprintf("redundant with %s (class code %s)", id, r.ClassCode)
			return cls
		}
	}

	cls.Admissible = true
	return cls
}

// comparable returns the transcripts to compare under the CDS-only setting.
// When CDS-only is set, coding transcripts are restricted to their selected
// ORF; a pair where exactly one side has no ORF cannot be compared.
func (l *Locus) comparable(a, b *transcript.Transcript) (*transcript.Transcript, *transcript.Transcript, bool) {
	if !l.engine.cfg.CDSOnly {
		return a, b, true
	}
	if !a.IsCoding() && !b.IsCoding() {
		return a, b, true
	}
	ao, okA := a.SelectedORFTranscript()
	bo, okB := b.SelectedORFTranscript()
	if !okA || !okB {
		return nil, nil, false
	}
	return ao, bo, true
}
