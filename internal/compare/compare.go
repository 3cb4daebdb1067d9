// Package compare classifies the structural relationship between two
// transcripts with a class code, in the style of gffcompare.
package compare

import (
	"github.com/inodb/vibe-locus/internal/transcript"
)

// Class codes produced by Assigner.
const (
	CodeMatch           = "=" // identical intron chains
	CodeMonoMatch       = "_" // monoexonic transcripts overlapping for most of their length
	CodeMonoOverlap     = "m" // monoexonic transcripts with a partial overlap
	CodeContained       = "c" // prediction contained in the reference, compatible intron chain
	CodeContainedIntron = "C" // contained intron chain, but exons run into reference introns
	CodeExtension       = "n" // prediction extends the reference chain outside its boundaries
	CodeExtensionInside = "J" // prediction extends the reference chain inside its boundaries
	CodeSharedJunction  = "j" // at least one shared splice site
	CodeIntronOverlap   = "h" // introns overlap without any shared splice site
	CodeOverlap         = "o" // generic exonic overlap
	CodeExonIntron      = "e" // monoexonic prediction overlapping an exon and an intron
	CodeMonoOnMulti     = "g" // monoexonic prediction spanning several reference exons
	CodeMultiOnMono     = "G" // multiexonic prediction over a monoexonic reference
	CodeInIntron        = "i" // prediction inside a reference intron
	CodeRefInIntron     = "I" // reference inside a prediction intron
	CodeAntisense       = "x" // overlap on the opposite strand
	CodeUnknown         = "u" // no overlap
	CodeNotApplicable   = "NA"
)

// Result of a pairwise comparison of a prediction against a reference.
type Result struct {
	ClassCode           string
	Distance            int64 // 0 when the transcripts overlap
	NucleotidePrecision float64
	NucleotideRecall    float64
	NucleotideF1        float64
	JunctionPrecision   float64
	JunctionRecall      float64
	JunctionF1          float64
}

// Comparator compares a prediction against a reference transcript.
// Inputs are symmetric; how the result is read is up to the caller.
type Comparator interface {
	Compare(prediction, reference *transcript.Transcript) Result
}

// Assigner is the default Comparator.
type Assigner struct {
	// MonoMatchF1 is the nucleotide F1 above which two monoexonic transcripts
	// are considered a match.
	MonoMatchF1 float64
}

// NewAssigner creates an Assigner with default thresholds.
func NewAssigner() *Assigner {
	return &Assigner{MonoMatchF1: 0.8}
}

// Compare classifies prediction against reference.
func (a *Assigner) Compare(p, r *transcript.Transcript) Result {
	ps, rs := p.Span(), r.Span()
	if !ps.Overlaps(rs) {
		var dist int64
		if ps.Start > rs.End {
			dist = ps.Start - rs.End
		} else {
			dist = rs.Start - ps.End
		}
		return Result{ClassCode: CodeUnknown, Distance: dist}
	}

	res := Result{}
	overlap := ExonOverlap(p.Exons(), r.Exons())
	res.NucleotidePrecision = ratio(overlap, p.CDNALength())
	res.NucleotideRecall = ratio(overlap, r.CDNALength())
	res.NucleotideF1 = f1(res.NucleotidePrecision, res.NucleotideRecall)

	pSites, rSites := spliceSites(p), spliceSites(r)
	shared := int64(0)
	for s := range pSites {
		if _, ok := rSites[s]; ok {
			shared++
		}
	}
	res.JunctionPrecision = ratio(shared, int64(len(pSites)))
	res.JunctionRecall = ratio(shared, int64(len(rSites)))
	res.JunctionF1 = f1(res.JunctionPrecision, res.JunctionRecall)

	if p.Strand != transcript.StrandUnknown && r.Strand != transcript.StrandUnknown && p.Strand != r.Strand {
		res.ClassCode = CodeAntisense
		return res
	}

	res.ClassCode = a.classify(p, r, overlap, shared)
	return res
}

func (a *Assigner) classify(p, r *transcript.Transcript, overlap, sharedSites int64) string {
	pMono, rMono := p.Monoexonic(), r.Monoexonic()
	switch {
	case pMono && rMono:
		f := f1(ratio(overlap, p.CDNALength()), ratio(overlap, r.CDNALength()))
		if f >= a.MonoMatchF1 {
			return CodeMonoMatch
		}
		return CodeMonoOverlap

	case pMono:
		if overlap == 0 {
			return CodeInIntron
		}
		ps := p.Span()
		for _, e := range r.Exons() {
			if e.Start <= ps.Start && ps.End <= e.End {
				return CodeContained
			}
		}
		if inExon(ps.Start, r.Exons()) && inExon(ps.End, r.Exons()) {
			return CodeMonoOnMulti
		}
		return CodeExonIntron

	case rMono:
		if overlap == 0 {
			return CodeRefInIntron
		}
		return CodeMultiOnMono
	}

	pi, ri := p.Introns(), r.Introns()
	if equalChains(pi, ri) {
		return CodeMatch
	}
	if isSubChain(pi, ri) {
		if anyOverlap(p.Exons(), ri) {
			return CodeContainedIntron
		}
		return CodeContained
	}
	if isSubChain(ri, pi) {
		rs := r.Span()
		outside := true
		for _, in := range pi {
			if containsInterval(ri, in) {
				continue
			}
			if in.Overlaps(rs) {
				outside = false
				break
			}
		}
		if outside {
			return CodeExtension
		}
		return CodeExtensionInside
	}
	if sharedSites > 0 {
		return CodeSharedJunction
	}
	if anyOverlap(pi, ri) {
		return CodeIntronOverlap
	}
	if overlap > 0 {
		return CodeOverlap
	}
	return CodeUnknown
}

// ExonOverlap returns the number of bases shared by two sorted exon lists.
func ExonOverlap(a, b []transcript.Interval) int64 {
	var n int64
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		n += a[i].Overlap(b[j])
		if a[i].End < b[j].End {
			i++
		} else {
			j++
		}
	}
	return n
}

func spliceSites(t *transcript.Transcript) map[int64]struct{} {
	sites := make(map[int64]struct{})
	for _, in := range t.Introns() {
		sites[in.Start] = struct{}{}
		sites[in.End] = struct{}{}
	}
	return sites
}

func equalChains(a, b []transcript.Interval) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// isSubChain returns true if sub appears as a contiguous run inside chain.
func isSubChain(sub, chain []transcript.Interval) bool {
	if len(sub) == 0 || len(sub) > len(chain) {
		return false
	}
	for i := 0; i+len(sub) <= len(chain); i++ {
		if chain[i] == sub[0] && equalChains(sub, chain[i:i+len(sub)]) {
			return true
		}
	}
	return false
}

func containsInterval(ivs []transcript.Interval, iv transcript.Interval) bool {
	for _, x := range ivs {
		if x == iv {
			return true
		}
	}
	return false
}

func anyOverlap(exons, introns []transcript.Interval) bool {
	for _, e := range exons {
		for _, in := range introns {
			if e.Overlaps(in) {
				return true
			}
		}
	}
	return false
}

func inExon(pos int64, exons []transcript.Interval) bool {
	for _, e := range exons {
		if e.Contains(pos) {
			return true
		}
	}
	return false
}

func ratio(num, den int64) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

func f1(precision, recall float64) float64 {
	if precision+recall == 0 {
		return 0
	}
	return 2 * precision * recall / (precision + recall)
}
