package transcript

import (
	"fmt"
	"sort"
)

// Interval is a closed genomic range, 1-based and inclusive at both ends.
type Interval struct {
	Start int64
	End   int64
}

// Len returns the number of bases covered by the interval.
func (iv Interval) Len() int64 {
	return iv.End - iv.Start + 1
}

// Overlaps returns true if the two intervals share at least one base.
func (iv Interval) Overlaps(o Interval) bool {
	return iv.Start <= o.End && o.Start <= iv.End
}

// Overlap returns the number of bases shared by the two intervals.
func (iv Interval) Overlap(o Interval) int64 {
	lo := max(iv.Start, o.Start)
	hi := min(iv.End, o.End)
	if hi < lo {
		return 0
	}
	return hi - lo + 1
}

// Contains returns true if pos lies within the interval.
func (iv Interval) Contains(pos int64) bool {
	return pos >= iv.Start && pos <= iv.End
}

func (iv Interval) String() string {
	return fmt.Sprintf("%d-%d", iv.Start, iv.End)
}

// SortIntervals sorts intervals by start, then end.
func SortIntervals(ivs []Interval) {
	sort.Slice(ivs, func(i, j int) bool {
		if ivs[i].Start != ivs[j].Start {
			return ivs[i].Start < ivs[j].Start
		}
		return ivs[i].End < ivs[j].End
	})
}

// IntervalSet is a set of intervals, typically introns.
type IntervalSet map[Interval]struct{}

// NewIntervalSet builds a set from the given intervals.
func NewIntervalSet(ivs ...Interval) IntervalSet {
	s := make(IntervalSet, len(ivs))
	for _, iv := range ivs {
		s[iv] = struct{}{}
	}
	return s
}

// Add inserts an interval.
func (s IntervalSet) Add(iv Interval) {
	s[iv] = struct{}{}
}

// Has reports whether the interval is present.
func (s IntervalSet) Has(iv Interval) bool {
	_, ok := s[iv]
	return ok
}

// Update inserts every interval of other.
func (s IntervalSet) Update(other IntervalSet) {
	for iv := range other {
		s[iv] = struct{}{}
	}
}

// Clone returns an independent copy of the set.
func (s IntervalSet) Clone() IntervalSet {
	c := make(IntervalSet, len(s))
	for iv := range s {
		c[iv] = struct{}{}
	}
	return c
}

// Sorted returns the members in genomic order.
func (s IntervalSet) Sorted() []Interval {
	out := make([]Interval, 0, len(s))
	for iv := range s {
		out = append(out, iv)
	}
	SortIntervals(out)
	return out
}

// SegmentKind distinguishes exonic from intronic segments.
type SegmentKind string

const (
	KindExon   SegmentKind = "exon"
	KindIntron SegmentKind = "intron"
)

// Segment is a typed exon or intron of a finalized transcript.
type Segment struct {
	Interval
	Kind SegmentKind
}

// IsExon returns true for exonic segments.
func (s Segment) IsExon() bool {
	return s.Kind == KindExon
}
