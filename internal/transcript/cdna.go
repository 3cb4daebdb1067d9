package transcript

// CDNALength returns the total exonic length.
func (t *Transcript) CDNALength() int64 {
	var n int64
	for _, e := range t.exons {
		n += e.Len()
	}
	return n
}

// GenomicPosition maps a 1-based cDNA position (transcript orientation) to
// its genomic coordinate. Returns false if pos lies outside the cDNA.
func (t *Transcript) GenomicPosition(pos int64) (int64, bool) {
	if pos < 1 {
		return 0, false
	}
	exons := t.sortedExons()
	seen := int64(0)
	if t.Strand == StrandMinus {
		for i := len(exons) - 1; i >= 0; i-- {
			e := exons[i]
			if pos <= seen+e.Len() {
				return e.End - (pos - seen - 1), true
			}
			seen += e.Len()
		}
		return 0, false
	}
	for _, e := range exons {
		if pos <= seen+e.Len() {
			return e.Start + (pos - seen - 1), true
		}
		seen += e.Len()
	}
	return 0, false
}

// GenomicSegments maps the cDNA range [from, to] to genomic intervals,
// returned in genomic order.
func (t *Transcript) GenomicSegments(from, to int64) []Interval {
	if from > to {
		return nil
	}
	exons := t.sortedExons()
	var out []Interval
	seen := int64(0)
	if t.Strand == StrandMinus {
		for i := len(exons) - 1; i >= 0; i-- {
			e := exons[i]
			lo, hi := seen+1, seen+e.Len()
			seen = hi
			if hi < from || lo > to {
				continue
			}
			a, b := max(lo, from), min(hi, to)
			out = append(out, Interval{Start: e.End - (b - lo), End: e.End - (a - lo)})
		}
		SortIntervals(out)
		return out
	}
	for _, e := range exons {
		lo, hi := seen+1, seen+e.Len()
		seen = hi
		if hi < from || lo > to {
			continue
		}
		a, b := max(lo, from), min(hi, to)
		out = append(out, Interval{Start: e.Start + (a - lo), End: e.Start + (b - lo)})
	}
	return out
}

// SelectedORF returns the selected (first) ORF.
func (t *Transcript) SelectedORF() (ORF, bool) {
	if len(t.orfs) == 0 {
		return ORF{}, false
	}
	return t.orfs[0], true
}

// SelectedCDSLength returns the length of the selected ORF, 0 if non-coding.
func (t *Transcript) SelectedCDSLength() int64 {
	o, ok := t.SelectedORF()
	if !ok {
		return 0
	}
	return o.Len()
}

// CombinedCDSLength returns the number of cDNA bases covered by any ORF.
func (t *Transcript) CombinedCDSLength() int64 {
	covered := make([]Interval, 0, len(t.orfs))
	for _, o := range t.orfs {
		covered = append(covered, Interval{Start: o.Start, End: o.End})
	}
	SortIntervals(covered)
	var n int64
	var cur Interval
	for i, iv := range covered {
		if i == 0 {
			cur = iv
			continue
		}
		if iv.Start <= cur.End+1 {
			cur.End = max(cur.End, iv.End)
			continue
		}
		n += cur.Len()
		cur = iv
	}
	if len(covered) > 0 {
		n += cur.Len()
	}
	return n
}

// combinedCDNABounds returns the smallest ORF start and largest ORF end in
// cDNA coordinates.
func (t *Transcript) combinedCDNABounds() (int64, int64, bool) {
	if len(t.orfs) == 0 {
		return 0, 0, false
	}
	lo, hi := t.orfs[0].Start, t.orfs[0].End
	for _, o := range t.orfs[1:] {
		lo = min(lo, o.Start)
		hi = max(hi, o.End)
	}
	return lo, hi, true
}

// CombinedCDSStart returns the genomic coordinate of the first coding base
// in transcript orientation (the largest coordinate on the minus strand).
func (t *Transcript) CombinedCDSStart() int64 {
	lo, _, ok := t.combinedCDNABounds()
	if !ok {
		return 0
	}
	pos, _ := t.GenomicPosition(lo)
	return pos
}

// CombinedCDSEnd returns the genomic coordinate of the last coding base
// in transcript orientation (the smallest coordinate on the minus strand).
func (t *Transcript) CombinedCDSEnd() int64 {
	_, hi, ok := t.combinedCDNABounds()
	if !ok {
		return 0
	}
	pos, _ := t.GenomicPosition(hi)
	return pos
}

// CDSSegments returns the genomic coding intervals of the selected ORF.
func (t *Transcript) CDSSegments() []Interval {
	o, ok := t.SelectedORF()
	if !ok {
		return nil
	}
	return t.GenomicSegments(o.Start, o.End)
}

// FiveUTRLength returns the cDNA length before the selected ORF.
func (t *Transcript) FiveUTRLength() int64 {
	o, ok := t.SelectedORF()
	if !ok {
		return 0
	}
	return o.Start - 1
}

// ThreeUTRLength returns the cDNA length after the selected ORF.
func (t *Transcript) ThreeUTRLength() int64 {
	o, ok := t.SelectedORF()
	if !ok {
		return 0
	}
	return t.CDNALength() - o.End
}

// ThreePrimeNonCoding returns the genomic intervals of the transcript
// downstream of its last coding base. For non-coding transcripts every
// exon is returned.
func (t *Transcript) ThreePrimeNonCoding() []Interval {
	_, hi, ok := t.combinedCDNABounds()
	if !ok {
		return append([]Interval(nil), t.sortedExons()...)
	}
	return t.GenomicSegments(hi+1, t.CDNALength())
}

// SelectedORFTranscript returns a finalized copy of the transcript restricted
// to the coding portion of its selected ORF. Returns false for non-coding
// transcripts.
func (t *Transcript) SelectedORFTranscript() (*Transcript, bool) {
	o, ok := t.SelectedORF()
	if !ok {
		return nil, false
	}
	c := New(t.ID, t.Chrom, t.Strand, t.GenomicSegments(o.Start, o.End)...)
	c.Score = t.Score
	c.SourceScore = t.SourceScore
	c.IsReference = t.IsReference
	c.Feature = t.Feature
	c.VerifiedIntrons = t.VerifiedIntrons.Clone()
	c.orfs = []ORF{{
		Start:         1,
		End:           o.Len(),
		Phase:         o.Phase,
		HasStartCodon: o.HasStartCodon,
		HasStopCodon:  o.HasStopCodon,
	}}
	if err := c.Finalize(); err != nil {
		return nil, false
	}
	return c, true
}
