package transcript

import (
	"fmt"
	"strconv"
	"strings"
)

// Compact text encodings: intervals are written as "start-end" joined by
// commas, ORFs as "start-end:phase:start_codon:stop_codon" joined by
// semicolons, with the codon flags written as 0 or 1.

// FormatIntervals encodes intervals in genomic order.
func FormatIntervals(ivs []Interval) string {
	sorted := append([]Interval(nil), ivs...)
	SortIntervals(sorted)
	parts := make([]string, len(sorted))
	for i, iv := range sorted {
		parts[i] = strconv.FormatInt(iv.Start, 10) + "-" + strconv.FormatInt(iv.End, 10)
	}
	return strings.Join(parts, ",")
}

// ParseIntervals decodes a FormatIntervals string. An empty string yields
// no intervals.
func ParseIntervals(s string) ([]Interval, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var out []Interval
	for _, part := range strings.Split(s, ",") {
		iv, err := parseInterval(part)
		if err != nil {
			return nil, err
		}
		out = append(out, iv)
	}
	return out, nil
}

func parseInterval(s string) (Interval, error) {
	start, end, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok {
		return Interval{}, fmt.Errorf("interval %q: missing '-'", s)
	}
	a, err := strconv.ParseInt(start, 10, 64)
	if err != nil {
		return Interval{}, fmt.Errorf("interval %q: %w", s, err)
	}
	b, err := strconv.ParseInt(end, 10, 64)
	if err != nil {
		return Interval{}, fmt.Errorf("interval %q: %w", s, err)
	}
	return Interval{Start: a, End: b}, nil
}

// FormatORFs encodes ORFs in their stored order; the first is the
// selected one.
func FormatORFs(orfs []ORF) string {
	parts := make([]string, len(orfs))
	for i, o := range orfs {
		parts[i] = fmt.Sprintf("%d-%d:%d:%s:%s", o.Start, o.End, o.Phase, flag(o.HasStartCodon), flag(o.HasStopCodon))
	}
	return strings.Join(parts, ";")
}

// ParseORFs decodes a FormatORFs string.
func ParseORFs(s string) ([]ORF, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var out []ORF
	for _, part := range strings.Split(s, ";") {
		fields := strings.Split(strings.TrimSpace(part), ":")
		if len(fields) != 4 {
			return nil, fmt.Errorf("ORF %q: expected 4 fields, got %d", part, len(fields))
		}
		iv, err := parseInterval(fields[0])
		if err != nil {
			return nil, fmt.Errorf("ORF %q: %w", part, err)
		}
		phase, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("ORF %q phase: %w", part, err)
		}
		out = append(out, ORF{
			Start:         iv.Start,
			End:           iv.End,
			Phase:         phase,
			HasStartCodon: fields[2] == "1",
			HasStopCodon:  fields[3] == "1",
		})
	}
	return out, nil
}

func flag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// Decode builds a draft transcript from its compact text fields.
func Decode(id, chrom, strand, exons, orfs, verifiedIntrons string) (*Transcript, error) {
	ex, err := ParseIntervals(exons)
	if err != nil {
		return nil, fmt.Errorf("exons: %w", err)
	}
	o, err := ParseORFs(orfs)
	if err != nil {
		return nil, fmt.Errorf("orfs: %w", err)
	}
	vi, err := ParseIntervals(verifiedIntrons)
	if err != nil {
		return nil, fmt.Errorf("verified introns: %w", err)
	}

	t := New(id, chrom, ParseStrand(strand), ex...)
	if err := t.LoadORFs(o...); err != nil {
		return nil, err
	}
	for _, in := range vi {
		t.VerifiedIntrons.Add(in)
	}
	return t, nil
}
