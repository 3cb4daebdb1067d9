package locus

import (
	"sort"

	"github.com/inodb/vibe-locus/internal/transcript"
)

// MemberRow is the reported view of one member of a finalized locus.
type MemberRow struct {
	LocusID   string
	TID       string
	Alias     string
	Chrom     string
	Strand    transcript.Strand
	Start     int64
	End       int64
	Kind      string
	Feature   string
	IsPrimary bool
	Score     float64
	ClassCode string
	Padded    bool
	Exons     []transcript.Interval
	ORFs      []transcript.ORF
}

// MemberRows returns one row per member, primary first and the others by id.
func (l *Locus) MemberRows() []MemberRow {
	ids := make([]string, 0, len(l.members))
	for id := range l.members {
		if id != l.primaryID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	ids = append([]string{l.primaryID}, ids...)

	kind := l.Kind()
	rows := make([]MemberRow, 0, len(ids))
	for _, id := range ids {
		t := l.members[id]
		alias := t.Attributes[AttrAlias]
		if alias == "" {
			alias = t.ID
		}
		rows = append(rows, MemberRow{
			LocusID:   l.id,
			TID:       t.ID,
			Alias:     alias,
			Chrom:     t.Chrom,
			Strand:    t.Strand,
			Start:     t.Start(),
			End:       t.End(),
			Kind:      kind,
			Feature:   t.Feature,
			IsPrimary: id == l.primaryID,
			Score:     t.Score,
			ClassCode: t.Attributes[AttrClassCode],
			Padded:    t.Attributes[AttrPadded] == "true",
			Exons:     t.Exons(),
			ORFs:      t.ORFs(),
		})
	}
	return rows
}
