// Package scoring extracts named metrics from transcripts, evaluates
// requirement expressions over them and computes locus-relative scores.
package scoring

import (
	"sort"

	"github.com/inodb/vibe-locus/internal/transcript"
)

// Metrics maps metric names to values. Boolean metrics are 0 or 1.
type Metrics map[string]float64

// Metric names.
const (
	MetricCDNALength          = "cdna_length"
	MetricCDSLength           = "cds_length"
	MetricCombinedCDSLength   = "combined_cds_length"
	MetricSelectedCDSFraction = "selected_cds_fraction"
	MetricExonNum             = "exon_num"
	MetricIntronNum           = "intron_num"
	MetricFiveUTRLength       = "five_utr_length"
	MetricThreeUTRLength      = "three_utr_length"
	MetricMaxIntronLength     = "max_intron_length"
	MetricMinExonLength       = "min_exon_length"
	MetricVerifiedIntronsNum  = "verified_introns_num"
	MetricProportionVerified  = "proportion_verified_introns"
	MetricHasStartCodon       = "has_start_codon"
	MetricHasStopCodon        = "has_stop_codon"
	MetricIsComplete          = "is_complete"
	MetricIsReference         = "is_reference"
	MetricSourceScore         = "source_score"
	MetricExonFraction        = "exon_fraction"
	MetricIntronFraction      = "intron_fraction"
	MetricRetainedIntronNum   = "retained_intron_num"
)

// Names returns every known metric name, sorted.
func Names() []string {
	names := []string{
		MetricCDNALength, MetricCDSLength, MetricCombinedCDSLength,
		MetricSelectedCDSFraction, MetricExonNum, MetricIntronNum,
		MetricFiveUTRLength, MetricThreeUTRLength, MetricMaxIntronLength,
		MetricMinExonLength, MetricVerifiedIntronsNum, MetricProportionVerified,
		MetricHasStartCodon, MetricHasStopCodon, MetricIsComplete,
		MetricIsReference, MetricSourceScore, MetricExonFraction,
		MetricIntronFraction, MetricRetainedIntronNum,
	}
	sort.Strings(names)
	return names
}

// IsMetric returns true if name is a known metric.
func IsMetric(name string) bool {
	for _, n := range Names() {
		if n == name {
			return true
		}
	}
	return false
}

// Context carries the locus-wide information needed by relative metrics.
type Context struct {
	Exons           transcript.IntervalSet // union of member exons
	Introns         transcript.IntervalSet // union of member introns
	RetainedIntrons map[string]int         // retained intron count by transcript id
}

// NewContext builds a Context from the given members.
func NewContext(members []*transcript.Transcript) Context {
	ctx := Context{
		Exons:           make(transcript.IntervalSet),
		Introns:         make(transcript.IntervalSet),
		RetainedIntrons: make(map[string]int),
	}
	for _, t := range members {
		for _, e := range t.Exons() {
			ctx.Exons.Add(e)
		}
		ctx.Introns.Update(t.IntronSet())
	}
	return ctx
}

// Extract computes the intrinsic metrics of a transcript.
func Extract(t *transcript.Transcript) Metrics {
	exons := t.Exons()
	introns := t.Introns()
	m := Zero()
	m[MetricCDNALength] = float64(t.CDNALength())
	m[MetricCDSLength] = float64(t.SelectedCDSLength())
	m[MetricCombinedCDSLength] = float64(t.CombinedCDSLength())
	m[MetricExonNum] = float64(len(exons))
	m[MetricIntronNum] = float64(len(introns))
	m[MetricFiveUTRLength] = float64(t.FiveUTRLength())
	m[MetricThreeUTRLength] = float64(t.ThreeUTRLength())
	m[MetricIsReference] = boolValue(t.IsReference)
	m[MetricSourceScore] = t.SourceScore
	if cdna := t.CDNALength(); cdna > 0 {
		m[MetricSelectedCDSFraction] = float64(t.SelectedCDSLength()) / float64(cdna)
	}

	var minExon int64
	for i, e := range exons {
		if i == 0 || e.Len() < minExon {
			minExon = e.Len()
		}
	}
	m[MetricMinExonLength] = float64(minExon)

	var maxIntron int64
	verified := 0
	for _, in := range introns {
		maxIntron = max(maxIntron, in.Len())
		if t.VerifiedIntrons.Has(in) {
			verified++
		}
	}
	m[MetricMaxIntronLength] = float64(maxIntron)
	m[MetricVerifiedIntronsNum] = float64(verified)
	if len(introns) > 0 {
		m[MetricProportionVerified] = float64(verified) / float64(len(introns))
	}

	if o, ok := t.SelectedORF(); ok {
		m[MetricHasStartCodon] = boolValue(o.HasStartCodon)
		m[MetricHasStopCodon] = boolValue(o.HasStopCodon)
		m[MetricIsComplete] = boolValue(o.Complete())
	}
	return m
}

// ExtractInLocus computes intrinsic and locus-relative metrics.
func ExtractInLocus(t *transcript.Transcript, ctx Context) Metrics {
	m := Extract(t)
	if n := len(ctx.Exons); n > 0 {
		m[MetricExonFraction] = float64(len(t.Exons())) / float64(n)
	}
	if n := len(ctx.Introns); n > 0 {
		m[MetricIntronFraction] = float64(len(t.Introns())) / float64(n)
	}
	m[MetricRetainedIntronNum] = float64(ctx.RetainedIntrons[t.ID])
	return m
}

// Zero returns a Metrics value with every known metric set to 0.
func Zero() Metrics {
	m := make(Metrics)
	for _, n := range Names() {
		m[n] = 0
	}
	return m
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
