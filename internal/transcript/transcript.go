// Package transcript provides the owned transcript record consumed by the
// locus engine: exon geometry, internal ORFs, verified introns and the
// edit lifecycle that gates geometry changes.
package transcript

import (
	"errors"
	"fmt"
	"sort"
)

// Strand of a transcript.
type Strand string

const (
	StrandPlus    Strand = "+"
	StrandMinus   Strand = "-"
	StrandUnknown Strand = "."
)

// ParseStrand converts a strand column value to a Strand.
func ParseStrand(s string) Strand {
	switch s {
	case "+", "1", "+1":
		return StrandPlus
	case "-", "-1":
		return StrandMinus
	default:
		return StrandUnknown
	}
}

// State is the lifecycle state of a transcript.
// A transcript starts as Draft, becomes Finalized once its geometry has
// been validated, and moves to Edited when reopened for modification.
type State int

const (
	StateDraft State = iota
	StateEdited
	StateFinalized
)

func (s State) String() string {
	switch s {
	case StateDraft:
		return "draft"
	case StateEdited:
		return "edited"
	case StateFinalized:
		return "finalized"
	}
	return "unknown"
}

// Feature labels used in output.
const (
	FeatureMRNA  = "mRNA"
	FeatureNCRNA = "ncRNA"
)

var (
	// ErrNotFinalized is returned by geometry queries on a transcript being edited.
	ErrNotFinalized = errors.New("transcript is not finalized")
	// ErrFinalized is returned by edits on a finalized transcript.
	ErrFinalized = errors.New("transcript is finalized")
	// ErrInvalid is returned when a transcript fails validation.
	ErrInvalid = errors.New("invalid transcript")
)

// Transcript represents a single candidate transcript model.
type Transcript struct {
	ID              string            // Transcript identifier
	Chrom           string            // Chromosome
	Strand          Strand            // +, - or . (unknown)
	Score           float64           // Current score, recomputed by the locus
	SourceScore     float64           // Score assigned upstream
	IsReference     bool              // Reference annotation model
	VerifiedIntrons IntervalSet       // Introns confirmed by external evidence
	Attributes      map[string]string // Free-form attributes
	Feature         string            // mRNA or ncRNA

	exons    []Interval // sorted ascending once finalized
	orfs     []ORF      // transcriptomic coordinates; orfs[0] is selected
	state    State
	segments []Segment // exons and introns, genomic order; valid when finalized
}

// New creates a draft transcript with the given exons.
func New(id, chrom string, strand Strand, exons ...Interval) *Transcript {
	t := &Transcript{
		ID:              id,
		Chrom:           chrom,
		Strand:          strand,
		VerifiedIntrons: make(IntervalSet),
		Attributes:      make(map[string]string),
		state:           StateDraft,
	}
	t.exons = append(t.exons, exons...)
	return t
}

// State returns the current lifecycle state.
func (t *Transcript) State() State {
	return t.state
}

// IsFinalized returns true if geometry queries are currently valid.
func (t *Transcript) IsFinalized() bool {
	return t.state == StateFinalized
}

// Clone returns a deep copy of the transcript.
func (t *Transcript) Clone() *Transcript {
	c := *t
	c.exons = append([]Interval(nil), t.exons...)
	c.orfs = append([]ORF(nil), t.orfs...)
	c.segments = append([]Segment(nil), t.segments...)
	c.VerifiedIntrons = t.VerifiedIntrons.Clone()
	c.Attributes = make(map[string]string, len(t.Attributes))
	for k, v := range t.Attributes {
		c.Attributes[k] = v
	}
	return &c
}

// Exons returns a copy of the exon intervals.
func (t *Transcript) Exons() []Interval {
	return append([]Interval(nil), t.exons...)
}

// ORFs returns a copy of the internal ORFs. The first one is the selected ORF.
func (t *Transcript) ORFs() []ORF {
	return append([]ORF(nil), t.orfs...)
}

// Start returns the leftmost genomic coordinate.
func (t *Transcript) Start() int64 {
	if len(t.exons) == 0 {
		return 0
	}
	start := t.exons[0].Start
	for _, e := range t.exons[1:] {
		start = min(start, e.Start)
	}
	return start
}

// End returns the rightmost genomic coordinate.
func (t *Transcript) End() int64 {
	if len(t.exons) == 0 {
		return 0
	}
	end := t.exons[0].End
	for _, e := range t.exons[1:] {
		end = max(end, e.End)
	}
	return end
}

// Span returns the genomic interval covered by the transcript.
func (t *Transcript) Span() Interval {
	return Interval{Start: t.Start(), End: t.End()}
}

// Monoexonic returns true for single-exon transcripts.
func (t *Transcript) Monoexonic() bool {
	return len(t.exons) == 1
}

// Introns returns the introns in genomic order.
func (t *Transcript) Introns() []Interval {
	exons := t.sortedExons()
	if len(exons) < 2 {
		return nil
	}
	introns := make([]Interval, 0, len(exons)-1)
	for i := 1; i < len(exons); i++ {
		introns = append(introns, Interval{Start: exons[i-1].End + 1, End: exons[i].Start - 1})
	}
	return introns
}

// IntronSet returns the introns as a set.
func (t *Transcript) IntronSet() IntervalSet {
	return NewIntervalSet(t.Introns()...)
}

func (t *Transcript) sortedExons() []Interval {
	if t.state == StateFinalized {
		return t.exons
	}
	exons := t.Exons()
	SortIntervals(exons)
	return exons
}

// IsCoding returns true if the transcript has at least one ORF.
func (t *Transcript) IsCoding() bool {
	return len(t.orfs) > 0
}

// Unfinalize reopens the transcript for editing.
func (t *Transcript) Unfinalize() {
	if t.state == StateFinalized {
		t.state = StateEdited
		t.segments = nil
	}
}

func (t *Transcript) editable() error {
	if t.state == StateFinalized {
		return fmt.Errorf("%s: %w", t.ID, ErrFinalized)
	}
	return nil
}

// StripORFs removes every ORF from the transcript.
func (t *Transcript) StripORFs() error {
	if err := t.editable(); err != nil {
		return err
	}
	t.orfs = nil
	return nil
}

// LoadORFs replaces the ORFs of the transcript.
func (t *Transcript) LoadORFs(orfs ...ORF) error {
	if err := t.editable(); err != nil {
		return err
	}
	t.orfs = append([]ORF(nil), orfs...)
	return nil
}

// AddExons appends exons to the transcript.
func (t *Transcript) AddExons(exons ...Interval) error {
	if err := t.editable(); err != nil {
		return err
	}
	t.exons = append(t.exons, exons...)
	return nil
}

// RemoveExon removes the given exon. Removing an exon that is not present
// is an error.
func (t *Transcript) RemoveExon(exon Interval) error {
	if err := t.editable(); err != nil {
		return err
	}
	for i, e := range t.exons {
		if e == exon {
			t.exons = append(t.exons[:i], t.exons[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%s: exon %s not found: %w", t.ID, exon, ErrInvalid)
}

// Finalize validates the geometry and ORFs and makes geometry queries valid.
// On failure the transcript keeps its previous state.
func (t *Transcript) Finalize() error {
	if t.state == StateFinalized {
		return nil
	}
	if len(t.exons) == 0 {
		return fmt.Errorf("%s: no exons: %w", t.ID, ErrInvalid)
	}

	exons := t.Exons()
	SortIntervals(exons)
	for i, e := range exons {
		if e.Start < 1 || e.End < e.Start {
			return fmt.Errorf("%s: malformed exon %s: %w", t.ID, e, ErrInvalid)
		}
		if i > 0 && e.Start <= exons[i-1].End+1 {
			return fmt.Errorf("%s: exon %s overlaps or abuts %s: %w", t.ID, e, exons[i-1], ErrInvalid)
		}
	}

	var cdnaLength int64
	for _, e := range exons {
		cdnaLength += e.Len()
	}
	if len(t.orfs) > 0 && t.Strand == StrandUnknown {
		return fmt.Errorf("%s: coding transcript without strand: %w", t.ID, ErrInvalid)
	}
	for _, o := range t.orfs {
		if o.Start < 1 || o.End < o.Start || o.End > cdnaLength {
			return fmt.Errorf("%s: ORF %d-%d outside cDNA of length %d: %w",
				t.ID, o.Start, o.End, cdnaLength, ErrInvalid)
		}
		if o.Phase < 0 || o.Phase > 2 {
			return fmt.Errorf("%s: ORF phase %d: %w", t.ID, o.Phase, ErrInvalid)
		}
	}

	segments := make([]Segment, 0, 2*len(exons)-1)
	for i, e := range exons {
		if i > 0 {
			segments = append(segments, Segment{
				Interval: Interval{Start: exons[i-1].End + 1, End: e.Start - 1},
				Kind:     KindIntron,
			})
		}
		segments = append(segments, Segment{Interval: e, Kind: KindExon})
	}

	t.exons = exons
	t.segments = segments
	t.state = StateFinalized
	if t.VerifiedIntrons == nil {
		t.VerifiedIntrons = make(IntervalSet)
	}
	if t.Attributes == nil {
		t.Attributes = make(map[string]string)
	}
	return nil
}

// Search returns the exon and intron segments intersecting [start, end],
// in genomic order.
func (t *Transcript) Search(start, end int64) ([]Segment, error) {
	if t.state != StateFinalized {
		return nil, fmt.Errorf("%s: search: %w", t.ID, ErrNotFinalized)
	}
	query := Interval{Start: start, End: end}
	// Segments are sorted and contiguous, so binary search the first candidate.
	i := sort.Search(len(t.segments), func(i int) bool {
		return t.segments[i].End >= start
	})
	var out []Segment
	for ; i < len(t.segments) && t.segments[i].Start <= end; i++ {
		if t.segments[i].Overlaps(query) {
			out = append(out, t.segments[i])
		}
	}
	return out, nil
}

// FindUpstream returns the segments lying entirely before start, in genomic order.
func (t *Transcript) FindUpstream(start, _ int64) ([]Segment, error) {
	if t.state != StateFinalized {
		return nil, fmt.Errorf("%s: find upstream: %w", t.ID, ErrNotFinalized)
	}
	var out []Segment
	for _, s := range t.segments {
		if s.End >= start {
			break
		}
		out = append(out, s)
	}
	return out, nil
}

// FindDownstream returns the segments lying entirely after end, in genomic order.
func (t *Transcript) FindDownstream(_, end int64) ([]Segment, error) {
	if t.state != StateFinalized {
		return nil, fmt.Errorf("%s: find downstream: %w", t.ID, ErrNotFinalized)
	}
	var out []Segment
	for _, s := range t.segments {
		if s.Start > end {
			out = append(out, s)
		}
	}
	return out, nil
}

// Less orders transcripts by start, end, then id.
func Less(a, b *Transcript) bool {
	if a.Start() != b.Start() {
		return a.Start() < b.Start()
	}
	if a.End() != b.End() {
		return a.End() < b.End()
	}
	return a.ID < b.ID
}
