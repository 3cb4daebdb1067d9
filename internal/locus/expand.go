package locus

import (
	"errors"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/inodb/vibe-locus/internal/dna"
	"github.com/inodb/vibe-locus/internal/genome"
	"github.com/inodb/vibe-locus/internal/transcript"
)

// expandTranscript extends t to the boundaries of its templates and remaps
// its ORFs onto the new cDNA. The input is not modified. When the expansion
// would invalidate the coding sequence the original is returned unchanged.
func (l *Locus) expandTranscript(t *transcript.Transcript, tpl Templates) (*transcript.Transcript, error) {
	const op = "expand"
	if tpl.Five == nil && tpl.Three == nil {
		return t, nil
	}
	left, right := tpl.Five, tpl.Three
	if t.Strand == transcript.StrandMinus {
		left, right = right, left
	}

	backup := t.Clone()
	work := t.Clone()
	work.Unfinalize()
	if err := work.StripORFs(); err != nil {
		return nil, &Error{Op: op, Kind: KindInvariant, Locus: l.id, Err: err}
	}

	up, err := enlargeStart(backup, left)
	if err != nil {
		return nil, l.wrapExpand(err, backup.ID)
	}
	down, err := enlargeEnd(backup, right, &up)
	if err != nil {
		return nil, l.wrapExpand(err, backup.ID)
	}

	exons := backup.Exons()
	firstExon, lastExon := exons[0], exons[len(exons)-1]
	if up.removeTerminal {
		if err := work.RemoveExon(firstExon); err != nil {
			return nil, &Error{Op: op, Kind: KindInvariant, Locus: l.id, Err: err}
		}
	}
	if down.removeTerminal && !(up.removeTerminal && firstExon == lastExon) {
		if err := work.RemoveExon(lastExon); err != nil {
			return nil, &Error{Op: op, Kind: KindInvariant, Locus: l.id, Err: err}
		}
	}

	newExons := append(append([]transcript.Interval(nil), up.exons...), down.exons...)
	if len(newExons) == 0 {
		return backup, nil
	}
	if err := work.AddExons(newExons...); err != nil {
		return nil, &Error{Op: op, Kind: KindInvariant, Locus: l.id, Err: err}
	}
	if err := work.Finalize(); err != nil {
		return nil, &Error{Op: op, Kind: KindInvariant, Locus: l.id, Err: err}
	}

	upstream, downstream := up.added, down.added
	if backup.Strand == transcript.StrandMinus {
		upstream, downstream = downstream, upstream
	}
	if want := backup.CDNALength() + upstream + downstream; work.CDNALength() != want {
		return nil, newError(op, KindInvariant, l.id,
			"%s: cDNA length %d after expansion, expected %d", work.ID, work.CDNALength(), want)
	}

	if backup.IsCoding() {
		seq, err := l.checkExpanded(work, backup, upstream, downstream)
		if err != nil {
			return nil, err
		}
		if err := enlargeORFs(work, backup, seq, upstream, downstream); err != nil {
			l.logInvalidExpansion(backup, err)
			return backup, nil
		}
	}

	if work.Start() < backup.Start() || work.End() > backup.End() {
		work.Attributes[AttrPadded] = "true"
	}

	if backup.IsCoding() {
		if err := validateExpansion(backup, work); err != nil {
			l.logInvalidExpansion(backup, err)
			return backup, nil
		}
		moved := backup.CombinedCDSStart() != work.CombinedCDSStart() ||
			backup.CombinedCDSEnd() != work.CombinedCDSEnd()
		work.Attributes[AttrCDSPadded] = strconv.FormatBool(moved)
	}

	l.logger.Debug("transcript padded",
		zap.String("locus", l.id),
		zap.String("transcript", work.ID),
		zap.Int64("start", work.Start()),
		zap.Int64("end", work.End()),
		zap.Int64("old_start", backup.Start()),
		zap.Int64("old_end", backup.End()))
	return work, nil
}

func (l *Locus) wrapExpand(err error, id string) error {
	var le *Error
	if errors.As(err, &le) {
		le.Locus = l.id
		return le
	}
	return &Error{Op: "expand " + id, Kind: KindInvariant, Locus: l.id, Err: err}
}

func (l *Locus) logInvalidExpansion(t *transcript.Transcript, err error) {
	l.logger.Info("padding would invalidate the CDS, keeping original",
		zap.String("locus", l.id),
		zap.String("transcript", t.ID),
		zap.Error(err))
}

// validateExpansion rejects an expansion that lost the CDS or moved the
// CDS end backwards.
func validateExpansion(backup, work *transcript.Transcript) error {
	const op = "validate expansion"
	if !work.IsCoding() {
		return newError(op, KindInvalidExpansion, "", "%s became non-coding", backup.ID)
	}
	regressed := backup.CombinedCDSEnd() > work.CombinedCDSEnd()
	if backup.Strand == transcript.StrandMinus {
		regressed = backup.CombinedCDSEnd() < work.CombinedCDSEnd()
	}
	if regressed {
		return newError(op, KindInvalidExpansion, "",
			"%s CDS end would move from %d to %d", backup.ID, backup.CombinedCDSEnd(), work.CombinedCDSEnd())
	}
	return nil
}

// boundaryEdit describes the change at one genomic end.
type boundaryEdit struct {
	added          int64                 // bases added to the cDNA
	exons          []transcript.Interval // exons to add
	newTerminal    *transcript.Interval  // replacement for the terminal exon, if any
	removeTerminal bool                  // whether the original terminal exon is dropped
}

// enlargeStart computes the extension of t at its genomic start using tpl.
func enlargeStart(t, tpl *transcript.Transcript) (boundaryEdit, error) {
	const op = "enlarge start"
	var edit boundaryEdit
	if tpl == nil {
		return edit, nil
	}
	first := t.Exons()[0]

	segs, err := tpl.FindUpstream(first.Start, first.End)
	if err != nil {
		return edit, &Error{Op: op, Kind: KindInvariant, Err: err}
	}
	var upstream []transcript.Interval
	for _, s := range segs {
		if s.IsExon() {
			upstream = append(upstream, s.Interval)
		}
	}
	inter, err := tpl.Search(first.Start, first.End)
	if err != nil {
		return edit, &Error{Op: op, Kind: KindInvariant, Err: err}
	}
	if len(inter) == 0 {
		return edit, newError(op, KindInvariant, "",
			"no exon or intron of %s intersects %s first exon %s", tpl.ID, t.ID, first)
	}

	if inter[0].IsExon() {
		nf := transcript.Interval{Start: min(inter[0].Start, t.Start()), End: first.End}
		if nf != first {
			edit.added += t.Start() - nf.Start
			edit.exons = append(edit.exons, nf)
			edit.newTerminal = &nf
			edit.removeTerminal = true
		}
	} else {
		if len(upstream) == 0 {
			if tpl.Start() < t.Start() {
				return edit, newError(op, KindInvariant, "",
					"%s starts before %s but has no upstream exon", tpl.ID, t.ID)
			}
			return edit, nil
		}
		last := upstream[len(upstream)-1]
		upstream = upstream[:len(upstream)-1]
		nf := transcript.Interval{Start: last.Start, End: first.End}
		edit.added += t.Start() - nf.Start
		edit.exons = append(edit.exons, nf)
		edit.newTerminal = &nf
		edit.removeTerminal = true
	}

	for _, e := range upstream {
		edit.added += e.Len()
		edit.exons = append(edit.exons, e)
	}
	return edit, nil
}

// enlargeEnd computes the extension of t at its genomic end using tpl. For
// a monoexonic transcript already extended at its start, the new first exon
// in up is replaced by the fully extended exon.
func enlargeEnd(t, tpl *transcript.Transcript, up *boundaryEdit) (boundaryEdit, error) {
	const op = "enlarge end"
	var edit boundaryEdit
	if tpl == nil {
		return edit, nil
	}
	exons := t.Exons()
	last := exons[len(exons)-1]

	segs, err := tpl.FindDownstream(last.Start, last.End)
	if err != nil {
		return edit, &Error{Op: op, Kind: KindInvariant, Err: err}
	}
	var downstream []transcript.Interval
	for _, s := range segs {
		if s.IsExon() {
			downstream = append(downstream, s.Interval)
		}
	}
	inter, err := tpl.Search(last.Start, last.End)
	if err != nil {
		return edit, &Error{Op: op, Kind: KindInvariant, Err: err}
	}
	if len(inter) == 0 {
		return edit, newError(op, KindInvariant, "",
			"no exon or intron of %s intersects %s last exon %s", tpl.ID, t.ID, last)
	}
	right := inter[len(inter)-1]
	extendMono := t.Monoexonic() && up.newTerminal != nil

	if right.IsExon() {
		base := last
		if extendMono {
			base = *up.newTerminal
		}
		ne := transcript.Interval{Start: base.Start, End: max(right.End, base.End)}
		if ne != base {
			if extendMono {
				up.exons = removeInterval(up.exons, *up.newTerminal)
			}
			edit.added += ne.End - t.End()
			edit.exons = append(edit.exons, ne)
			edit.removeTerminal = true
		}
	} else {
		if len(downstream) == 0 {
			if tpl.End() > t.End() {
				return edit, newError(op, KindInvariant, "",
					"%s ends after %s but has no downstream exon", tpl.ID, t.ID)
			}
			return edit, nil
		}
		d := downstream[0]
		downstream = downstream[1:]
		base := last
		if extendMono {
			base = *up.newTerminal
			up.exons = removeInterval(up.exons, *up.newTerminal)
		}
		ne := transcript.Interval{Start: base.Start, End: d.End}
		edit.added += ne.End - t.End()
		edit.exons = append(edit.exons, ne)
		edit.removeTerminal = true
	}

	for _, e := range downstream {
		edit.added += e.Len()
		edit.exons = append(edit.exons, e)
	}
	return edit, nil
}

func removeInterval(ivs []transcript.Interval, iv transcript.Interval) []transcript.Interval {
	out := ivs[:0:0]
	for _, x := range ivs {
		if x != iv {
			out = append(out, x)
		}
	}
	return out
}

// checkExpanded fetches the genomic sequence of the expanded transcript and
// returns its cDNA in transcript orientation. The cDNA must be exactly as
// long as the original plus the added bases.
func (l *Locus) checkExpanded(work, backup *transcript.Transcript, upstream, downstream int64) (string, error) {
	const op = "check expanded"
	start, end := work.Start(), work.End()
	seq, err := l.engine.genome.Fetch(work.Chrom, start, end)
	if err != nil {
		kind := KindInvariant
		if errors.Is(err, genome.ErrUnknownSequence) || errors.Is(err, genome.ErrOutOfRange) {
			kind = KindDataAnomaly
		}
		return "", &Error{Op: op, Kind: kind, Locus: l.id, Err: err}
	}
	if int64(len(seq)) != end-start+1 {
		return "", newError(op, KindInvariant, l.id,
			"%s: expected %d bases for %s:%d-%d, got %d", work.ID, end-start+1, work.Chrom, start, end, len(seq))
	}

	var b strings.Builder
	b.Grow(int(work.CDNALength()))
	for _, e := range work.Exons() {
		b.WriteString(seq[e.Start-start : e.End-start+1])
	}
	cdna := b.String()
	if work.Strand == transcript.StrandMinus {
		cdna = dna.ReverseComplement(cdna)
	}

	want := backup.CDNALength() + upstream + downstream
	if int64(len(cdna)) != want {
		return "", newError(op, KindInvariant, l.id,
			"%s: cDNA length %d, expected %d (%d + %d upstream + %d downstream)",
			work.ID, len(cdna), want, backup.CDNALength(), upstream, downstream)
	}
	return cdna, nil
}

// enlargeORFs remaps the ORFs of backup onto the expanded cDNA and loads
// them into work.
func enlargeORFs(work, backup *transcript.Transcript, seq string, upstream, downstream int64) error {
	const op = "enlarge ORFs"
	orfs := backup.ORFs()
	if len(orfs) == 0 {
		return nil
	}
	for i := range orfs {
		if err := orfs[i].Expand(seq, upstream, downstream); err != nil {
			return &Error{Op: op, Kind: KindInvalidExpansion, Err: err}
		}
	}
	work.Unfinalize()
	if err := work.LoadORFs(orfs...); err != nil {
		return &Error{Op: op, Kind: KindInvalidExpansion, Err: err}
	}
	if err := work.Finalize(); err != nil {
		return &Error{Op: op, Kind: KindInvalidExpansion, Err: err}
	}
	return nil
}
