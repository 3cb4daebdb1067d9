// Package output provides tab-delimited writers for picked loci.
package output

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/inodb/vibe-locus/internal/locus"
	"github.com/inodb/vibe-locus/internal/transcript"
)

// LocusWriter writes the members of finalized loci in tab-delimited format.
type LocusWriter struct {
	w       *bufio.Writer
	columns []string
}

// NewLocusWriter creates a new tab-delimited locus writer.
func NewLocusWriter(w io.Writer) *LocusWriter {
	return &LocusWriter{
		w: bufio.NewWriter(w),
		columns: []string{
			"#locus",
			"tid",
			"alias",
			"chrom",
			"strand",
			"start",
			"end",
			"kind",
			"feature",
			"primary",
			"score",
			"ccode",
			"padded",
			"exons",
			"orfs",
		},
	}
}

// WriteHeader writes the header line.
func (lw *LocusWriter) WriteHeader() error {
	_, err := lw.w.WriteString(strings.Join(lw.columns, "\t") + "\n")
	return err
}

// Write writes one line per member of l, primary first.
func (lw *LocusWriter) Write(l *locus.Locus) error {
	for _, r := range l.MemberRows() {
		if err := lw.WriteRow(r); err != nil {
			return err
		}
	}
	return nil
}

// WriteRow writes a single member row.
func (lw *LocusWriter) WriteRow(r locus.MemberRow) error {
	primary := "-"
	if r.IsPrimary {
		primary = "YES"
	}
	padded := "-"
	if r.Padded {
		padded = "YES"
	}

	values := []string{
		r.LocusID,
		r.TID,
		orDash(r.Alias),
		r.Chrom,
		string(r.Strand),
		strconv.FormatInt(r.Start, 10),
		strconv.FormatInt(r.End, 10),
		r.Kind,
		orDash(r.Feature),
		primary,
		formatScore(r.Score),
		orDash(r.ClassCode),
		padded,
		orDash(transcript.FormatIntervals(r.Exons)),
		orDash(transcript.FormatORFs(r.ORFs)),
	}

	_, err := lw.w.WriteString(strings.Join(values, "\t") + "\n")
	return err
}

// Flush flushes any buffered data to the underlying writer.
func (lw *LocusWriter) Flush() error {
	return lw.w.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
