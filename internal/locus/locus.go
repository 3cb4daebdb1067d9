package locus

import (
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/inodb/vibe-locus/internal/scoring"
	"github.com/inodb/vibe-locus/internal/transcript"
)

// Attribute keys set on member transcripts.
const (
	AttrPrimary        = "primary"
	AttrClassCode      = "ccode"
	AttrRetainedIntron = "retained_intron"
	AttrPadded         = "padded"
	AttrCDSPadded      = "cds_padded"
	AttrAlias          = "alias"
)

// Locus kinds reported by Kind.
const (
	KindGene      = "gene"
	KindNCRNAGene = "ncRNA_gene"
	KindEmpty     = "locus"
)

// ErrUnknownTranscript is returned when removing a transcript that is not a member.
var ErrUnknownTranscript = errors.New("transcript not in locus")

// Locus is one primary transcript plus its accepted alternative isoforms.
// Members are owned copies; a Locus is not safe for concurrent use.
type Locus struct {
	engine          *Engine
	id              string
	chrom           string
	strand          transcript.Strand
	primaryID       string
	members         map[string]*transcript.Transcript
	exons           transcript.IntervalSet
	verifiedIntrons transcript.IntervalSet
	finalized       bool

	scores      map[string]scoring.Breakdown
	scoresValid bool
	notPassing  map[string]bool
	retained    map[string]int

	logger *zap.Logger
}

// NewLocus creates a locus seeded with a deep copy of primary.
func (e *Engine) NewLocus(primary *transcript.Transcript) (*Locus, error) {
	p := primary.Clone()
	if err := p.Finalize(); err != nil {
		return nil, &Error{Op: "new locus", Kind: KindDataAnomaly, Locus: primary.ID, Err: err}
	}
	l := &Locus{
		engine:          e,
		id:              fmt.Sprintf("%s:%d-%d", p.Chrom, p.Start(), p.End()),
		chrom:           p.Chrom,
		strand:          p.Strand,
		primaryID:       p.ID,
		members:         make(map[string]*transcript.Transcript),
		exons:           make(transcript.IntervalSet),
		verifiedIntrons: make(transcript.IntervalSet),
		logger:          e.logger,
	}
	p.Attributes[AttrPrimary] = "true"
	p.Feature = featureOf(p)
	l.insert(p)
	return l, nil
}

// SetLogger sets the logger for this locus only.
func (l *Locus) SetLogger(lg *zap.Logger) {
	l.logger = lg
}

// ID returns the locus identifier.
func (l *Locus) ID() string {
	return l.id
}

// Chrom returns the chromosome of the locus.
func (l *Locus) Chrom() string {
	return l.chrom
}

// Strand returns the strand inherited from the primary transcript.
func (l *Locus) Strand() transcript.Strand {
	return l.strand
}

// PrimaryID returns the id of the primary transcript.
func (l *Locus) PrimaryID() string {
	return l.primaryID
}

// Primary returns a copy of the primary transcript.
func (l *Locus) Primary() *transcript.Transcript {
	return l.members[l.primaryID].Clone()
}

// Len returns the number of members, primary included.
func (l *Locus) Len() int {
	return len(l.members)
}

// Has reports whether id is a member.
func (l *Locus) Has(id string) bool {
	_, ok := l.members[id]
	return ok
}

// IDs returns the member ids sorted by genomic position.
func (l *Locus) IDs() []string {
	ts := l.sortedMembers()
	ids := make([]string, len(ts))
	for i, t := range ts {
		ids[i] = t.ID
	}
	return ids
}

// Members returns copies of every member keyed by id.
func (l *Locus) Members() map[string]*transcript.Transcript {
	out := make(map[string]*transcript.Transcript, len(l.members))
	for id, t := range l.members {
		out[id] = t.Clone()
	}
	return out
}

// Span returns the genomic interval covered by the members.
func (l *Locus) Span() transcript.Interval {
	var span transcript.Interval
	first := true
	for _, t := range l.members {
		if first {
			span = t.Span()
			first = false
			continue
		}
		span.Start = min(span.Start, t.Start())
		span.End = max(span.End, t.End())
	}
	return span
}

// Exons returns the union of member exons in genomic order.
func (l *Locus) Exons() []transcript.Interval {
	return l.exons.Sorted()
}

// VerifiedIntrons returns the merged set of verified introns.
func (l *Locus) VerifiedIntrons() transcript.IntervalSet {
	return l.verifiedIntrons.Clone()
}

// IsFinalized reports whether Finalize has completed.
func (l *Locus) IsFinalized() bool {
	return l.finalized
}

// Add runs candidate through the membership gate and, if it passes,
// inserts a copy of it. With enforce false every check is bypassed.
func (l *Locus) Add(candidate *transcript.Transcript, enforce bool) (bool, error) {
	const op = "add"
	if l.finalized {
		return false, newError(op, KindInvariant, l.id, "locus is finalized, cannot add %s", candidate.ID)
	}
	if l.Has(candidate.ID) {
		return false, newError(op, KindInvariant, l.id, "duplicate transcript id %s", candidate.ID)
	}
	c := candidate.Clone()
	if err := c.Finalize(); err != nil {
		return false, &Error{Op: op, Kind: KindDataAnomaly, Locus: l.id, Err: err}
	}

	if !enforce {
		l.insert(c)
		return true, nil
	}

	if c.Strand != l.strand {
		l.reject(c, "strand mismatch")
		return false, nil
	}

	if l.engine.cfg.OnlyConfirmedIntrons {
		primaryIntrons := l.members[l.primaryID].IntronSet()
		novel := 0
		for _, in := range c.Introns() {
			if !c.VerifiedIntrons.Has(in) && !primaryIntrons.Has(in) {
				novel++
			}
		}
		if novel > 0 {
			l.reject(c, fmt.Sprintf("%d non-confirmed introns", novel))
			return false, nil
		}
	}

	m := scoring.ExtractInLocus(c, scoring.NewContext(append(l.sortedMembers(), c)))
	ok, err := l.engine.asRequirements.Eval(m)
	if err != nil {
		return false, &Error{Op: op, Kind: KindConfig, Locus: l.id, Err: err}
	}
	if !ok {
		l.reject(c, "fails alternative splicing requirements")
		return false, nil
	}

	cls := l.Classify(c)
	if !cls.Admissible {
		l.reject(c, cls.Reason)
		return false, nil
	}

	c.Attributes[AttrPrimary] = "false"
	c.Attributes[AttrClassCode] = cls.ClassCode
	c.Feature = featureOf(c)
	l.insert(c)
	l.logger.Debug("added isoform",
		zap.String("locus", l.id),
		zap.String("transcript", c.ID),
		zap.String("ccode", cls.ClassCode))
	return true, nil
}

func (l *Locus) reject(t *transcript.Transcript, reason string) {
	l.logger.Debug("isoform rejected",
		zap.String("locus", l.id),
		zap.String("transcript", t.ID),
		zap.String("reason", reason))
}

// insert adds an owned, finalized transcript without any check.
func (l *Locus) insert(t *transcript.Transcript) {
	l.members[t.ID] = t
	for _, e := range t.Exons() {
		l.exons.Add(e)
	}
	l.verifiedIntrons.Update(t.VerifiedIntrons)
	l.invalidate()
}

// Remove evicts a member. The primary transcript can never be removed.
func (l *Locus) Remove(id string) error {
	if id == l.primaryID {
		return newError("remove", KindInvariant, l.id, "%s is the primary transcript", id)
	}
	if !l.Has(id) {
		return fmt.Errorf("remove %s from %s: %w", id, l.id, ErrUnknownTranscript)
	}
	delete(l.members, id)
	l.rebuildUnions()
	l.finalized = false
	l.invalidate()
	return nil
}

// replace swaps the geometry of a member without running any check.
func (l *Locus) replace(t *transcript.Transcript) {
	l.members[t.ID] = t
	l.rebuildUnions()
	l.invalidate()
}

func (l *Locus) rebuildUnions() {
	l.exons = make(transcript.IntervalSet)
	l.verifiedIntrons = make(transcript.IntervalSet)
	for _, t := range l.members {
		for _, e := range t.Exons() {
			l.exons.Add(e)
		}
		l.verifiedIntrons.Update(t.VerifiedIntrons)
	}
}

func (l *Locus) invalidate() {
	l.scoresValid = false
}

// sortedMembers returns the members ordered by start, end and id.
func (l *Locus) sortedMembers() []*transcript.Transcript {
	ts := make([]*transcript.Transcript, 0, len(l.members))
	for _, t := range l.members {
		ts = append(ts, t)
	}
	sort.Slice(ts, func(i, j int) bool { return transcript.Less(ts[i], ts[j]) })
	return ts
}

// snapshot returns deep copies of every member.
func (l *Locus) snapshot() map[string]*transcript.Transcript {
	out := make(map[string]*transcript.Transcript, len(l.members))
	for id, t := range l.members {
		out[id] = t.Clone()
	}
	return out
}

// restore replaces the member map with copies from a snapshot.
func (l *Locus) restore(snap map[string]*transcript.Transcript) {
	l.members = make(map[string]*transcript.Transcript, len(snap))
	for id, t := range snap {
		l.members[id] = t.Clone()
	}
	l.rebuildUnions()
	l.invalidate()
}

// Kind returns gene when any member has a coding sequence, ncRNA_gene
// otherwise, and locus when empty.
func (l *Locus) Kind() string {
	if len(l.members) == 0 {
		return KindEmpty
	}
	for _, t := range l.members {
		if t.SelectedCDSLength() > 0 {
			return KindGene
		}
	}
	return KindNCRNAGene
}

// AssignID renames the locus to name and its members to name.1 (primary),
// name.2 and so on by genomic position. Previous ids are kept in the alias
// attribute.
func (l *Locus) AssignID(name string) {
	order := []*transcript.Transcript{l.members[l.primaryID]}
	for _, t := range l.sortedMembers() {
		if t.ID != l.primaryID {
			order = append(order, t)
		}
	}

	renamed := make(map[string]string, len(order))
	members := make(map[string]*transcript.Transcript, len(order))
	for i, t := range order {
		newID := fmt.Sprintf("%s.%d", name, i+1)
		if _, ok := t.Attributes[AttrAlias]; !ok {
			t.Attributes[AttrAlias] = t.ID
		}
		renamed[t.ID] = newID
		t.ID = newID
		members[newID] = t
	}

	if l.scoresValid {
		scores := make(map[string]scoring.Breakdown, len(l.scores))
		for old, b := range l.scores {
			b.ID = renamed[old]
			scores[b.ID] = b
		}
		l.scores = scores
		notPassing := make(map[string]bool, len(l.notPassing))
		for old := range l.notPassing {
			notPassing[renamed[old]] = true
		}
		l.notPassing = notPassing
		retained := make(map[string]int, len(l.retained))
		for old, n := range l.retained {
			retained[renamed[old]] = n
		}
		l.retained = retained
	}

	l.primaryID = renamed[l.primaryID]
	l.members = members
	l.id = name
}

func featureOf(t *transcript.Transcript) string {
	if t.IsCoding() {
		return transcript.FeatureMRNA
	}
	return transcript.FeatureNCRNA
}
