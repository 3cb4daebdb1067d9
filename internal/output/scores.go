package output

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/inodb/vibe-locus/internal/scoring"
)

// ScoreWriter writes score breakdown rows in tab-delimited format. The
// component columns are fixed by the first call to Write.
type ScoreWriter struct {
	w          *bufio.Writer
	components []string
	started    bool
}

// NewScoreWriter creates a new score breakdown writer. If components is
// empty, the columns are taken from the first batch of rows written.
func NewScoreWriter(w io.Writer, components []string) *ScoreWriter {
	return &ScoreWriter{
		w:          bufio.NewWriter(w),
		components: components,
	}
}

// Write writes rows, preceded by the header on the first call.
func (sw *ScoreWriter) Write(rows []scoring.Row) error {
	if !sw.started {
		if len(sw.components) == 0 {
			sw.components = scoring.ComponentNames(rows)
		}
		header := append([]string{"tid", "alias", "parent", "score", "passing"}, sw.components...)
		if _, err := sw.w.WriteString(strings.Join(header, "\t") + "\n"); err != nil {
			return err
		}
		sw.started = true
	}

	for _, r := range rows {
		values := make([]string, 0, 5+len(sw.components))
		values = append(values,
			r.TID,
			orDash(r.Alias),
			r.Parent,
			formatScore(r.Score),
			strconv.FormatBool(r.Passing),
		)
		for _, name := range sw.components {
			v, ok := r.Components[name]
			if !ok {
				values = append(values, "-")
				continue
			}
			values = append(values, formatScore(v))
		}
		if _, err := sw.w.WriteString(strings.Join(values, "\t") + "\n"); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes any buffered data to the underlying writer.
func (sw *ScoreWriter) Flush() error {
	return sw.w.Flush()
}
