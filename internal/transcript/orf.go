package transcript

import (
	"fmt"

	"github.com/inodb/vibe-locus/internal/dna"
)

// ORF is an open reading frame in transcriptomic coordinates: Start and End
// are 1-based inclusive positions on the cDNA in transcript orientation.
// Phase is the number of bases before the first complete codon.
type ORF struct {
	Start         int64
	End           int64
	Phase         int
	HasStartCodon bool
	HasStopCodon  bool
}

// Len returns the ORF length in bases.
func (o ORF) Len() int64 {
	return o.End - o.Start + 1
}

// Complete returns true if the ORF has both a start and a stop codon.
func (o ORF) Complete() bool {
	return o.HasStartCodon && o.HasStopCodon
}

func (o ORF) String() string {
	return fmt.Sprintf("%d-%d:%d", o.Start, o.End, o.Phase)
}

// Expand remaps the ORF onto seq, the cDNA of the transcript after
// upstream bases were added at its 5' end and downstream bases at its 3'
// end. When the original ORF lacks a start codon, the new sequence is
// scanned upstream in frame for one; if none is found the ORF is opened at
// the first base with the residual phase. When it lacks a stop codon the
// first in-frame stop defines the new end, otherwise the ORF stays open.
func (o *ORF) Expand(seq string, upstream, downstream int64) error {
	total := int64(len(seq))
	oldLength := total - upstream - downstream
	if upstream < 0 || downstream < 0 || oldLength < o.End {
		return fmt.Errorf("expand ORF %s: sequence of length %d cannot hold old cDNA with +%d/+%d: %w",
			o, total, upstream, downstream, ErrInvalid)
	}
	if upstream == 0 && downstream == 0 {
		return nil
	}

	oldSeq := seq[upstream : upstream+oldLength]
	oldStartPos := o.Start + int64(o.Phase) - 1
	oldEndPos := o.End - (o.End-oldStartPos)%3
	if oldEndPos-oldStartPos < 3 {
		return fmt.Errorf("expand ORF %s: no complete codon: %w", o, ErrInvalid)
	}
	oldORF := oldSeq[oldStartPos:oldEndPos]
	startCodon := oldORF[:3]
	stopCodon := oldORF[len(oldORF)-3:]

	o.Start += upstream
	o.End += upstream
	o.HasStartCodon = dna.IsStartCodon(startCodon)
	o.HasStopCodon = dna.IsStopCodon(stopCodon)
	if o.HasStartCodon && o.HasStopCodon {
		return nil
	}

	if !o.HasStartCodon {
		found := false
		var pos int64
		for pos = oldStartPos + upstream; pos >= 0; pos -= 3 {
			if pos+3 > total {
				continue
			}
			if dna.IsStartCodon(seq[pos : pos+3]) {
				found = true
				break
			}
		}
		if found {
			o.Start = pos + 1
			o.Phase = 0
			o.HasStartCodon = true
		} else {
			// pos overshot the boundary by one codon
			o.Phase = int((pos + 3) % 3)
			o.Start = 1
		}
	}

	codingStart := o.Start + int64(o.Phase) - 1
	coding := seq[codingStart:]
	coding = coding[:len(coding)-len(coding)%3]
	if idx := dna.FirstStop(coding); idx >= 0 {
		o.End = codingStart + int64(idx) + 3
		o.HasStopCodon = true
	} else if !o.HasStopCodon {
		o.End = total
	}
	return nil
}
