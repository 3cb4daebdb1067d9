package output

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/inodb/vibe-locus/internal/locus"
)

// SummaryWriter writes a human-readable table of picked loci and keeps run
// totals.
type SummaryWriter struct {
	w           *tabwriter.Writer
	loci        int
	skipped     int
	failed      int
	transcripts int
	padded      int
}

// NewSummaryWriter creates a new summary writer.
func NewSummaryWriter(w io.Writer) *SummaryWriter {
	return &SummaryWriter{
		w: tabwriter.NewWriter(w, 0, 0, 2, ' ', 0),
	}
}

// WriteHeader writes the summary table header.
func (s *SummaryWriter) WriteHeader() error {
	_, err := fmt.Fprintln(s.w, "Locus\tKind\tPrimary\tTranscripts\tPadded")
	return err
}

// WriteLocus counts a finalized locus and writes its summary line.
func (s *SummaryWriter) WriteLocus(l *locus.Locus) error {
	rows, padded := s.Count(l)
	_, err := fmt.Fprintf(s.w, "%s\t%s\t%s\t%d\t%d\n",
		l.ID(), l.Kind(), l.PrimaryID(), rows, padded)
	return err
}

// Count adds a finalized locus to the totals without writing it. It returns
// the number of members and how many of them were padded.
func (s *SummaryWriter) Count(l *locus.Locus) (members, padded int) {
	rows := l.MemberRows()
	for _, r := range rows {
		if r.Padded {
			padded++
		}
	}
	s.loci++
	s.transcripts += len(rows)
	s.padded += padded
	return len(rows), padded
}

// Skip records a locus dropped because of anomalous input.
func (s *SummaryWriter) Skip() {
	s.skipped++
}

// Fail records a locus aborted by an error.
func (s *SummaryWriter) Fail() {
	s.failed++
}

// Flush flushes the writer.
func (s *SummaryWriter) Flush() error {
	return s.w.Flush()
}

// Totals returns the run counts.
func (s *SummaryWriter) Totals() (loci, skipped, failed, transcripts int) {
	return s.loci, s.skipped, s.failed, s.transcripts
}

// WriteSummary writes the run totals.
func (s *SummaryWriter) WriteSummary(w io.Writer) {
	perLocus := float64(0)
	if s.loci > 0 {
		perLocus = float64(s.transcripts) / float64(s.loci)
	}
	fmt.Fprintf(w, "\nPick Summary:\n")
	fmt.Fprintf(w, "  Loci picked:     %d\n", s.loci)
	fmt.Fprintf(w, "  Loci skipped:    %d\n", s.skipped)
	fmt.Fprintf(w, "  Loci failed:     %d\n", s.failed)
	fmt.Fprintf(w, "  Transcripts:     %d (%.1f per locus)\n", s.transcripts, perLocus)
	fmt.Fprintf(w, "  Padded:          %d\n", s.padded)
}
