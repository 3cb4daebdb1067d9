package compare

import "github.com/inodb/vibe-locus/internal/transcript"

// CDNAOverlap returns the fraction of candidate's cDNA shared with other.
func CDNAOverlap(candidate, other *transcript.Transcript) float64 {
	return ratio(ExonOverlap(candidate.Exons(), other.Exons()), candidate.CDNALength())
}

// CDSOverlap returns the fraction of candidate's selected CDS shared with the
// selected CDS of other. The second return value is false when either
// transcript is non-coding.
func CDSOverlap(candidate, other *transcript.Transcript) (float64, bool) {
	if !candidate.IsCoding() || !other.IsCoding() {
		return 0, false
	}
	a, b := candidate.CDSSegments(), other.CDSSegments()
	var length int64
	for _, s := range a {
		length += s.Len()
	}
	return ratio(ExonOverlap(a, b), length), true
}
