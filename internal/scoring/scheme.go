package scoring

import (
	"fmt"
	"math"
	"sort"

	"github.com/inodb/vibe-locus/internal/transcript"
)

// Rescaling selects how a metric is normalized across a locus.
type Rescaling string

const (
	RescaleMax    Rescaling = "max"    // highest value scores 1
	RescaleMin    Rescaling = "min"    // lowest value scores 1
	RescaleTarget Rescaling = "target" // value closest to Parameter.Value scores 1
)

// Parameter is the scoring rule for a single metric.
type Parameter struct {
	Rescaling  Rescaling `mapstructure:"rescaling" yaml:"rescaling"`
	Value      float64   `mapstructure:"value" yaml:"value,omitempty"`
	Multiplier float64   `mapstructure:"multiplier" yaml:"multiplier,omitempty"`
}

// Scheme maps metric names to their scoring rule.
type Scheme map[string]Parameter

// Validate checks that every metric is known and every rescaling valid.
func (s Scheme) Validate() error {
	for name, p := range s {
		if !IsMetric(name) {
			return fmt.Errorf("scoring scheme: unknown metric %q", name)
		}
		switch p.Rescaling {
		case RescaleMax, RescaleMin, RescaleTarget:
		default:
			return fmt.Errorf("scoring scheme: metric %q: invalid rescaling %q", name, p.Rescaling)
		}
	}
	return nil
}

// names returns the scheme metrics in sorted order.
func (s Scheme) names() []string {
	names := make([]string, 0, len(s))
	for n := range s {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Breakdown is the score of one transcript with its per-metric components.
type Breakdown struct {
	ID         string
	Total      float64
	Components map[string]float64
	Metrics    Metrics
	Passing    bool
}

// Scorer computes locus-relative scores.
type Scorer struct {
	Scheme       Scheme
	Requirements Predicate
}

// NewScorer creates a Scorer. A nil requirements predicate accepts everything.
func NewScorer(scheme Scheme, requirements Predicate) *Scorer {
	if requirements == nil {
		requirements = Always
	}
	return &Scorer{Scheme: scheme, Requirements: requirements}
}

// Score computes a Breakdown for every member. The total is the source
// score plus the sum of multiplier times rescaled value for each metric of
// the scheme. Members failing the requirements are not passing and get a
// total of 0; they take no part in rescaling.
func (s *Scorer) Score(members []*transcript.Transcript, ctx Context) (map[string]Breakdown, error) {
	out := make(map[string]Breakdown, len(members))
	var passing []string
	for _, t := range members {
		m := ExtractInLocus(t, ctx)
		ok, err := s.Requirements.Eval(m)
		if err != nil {
			return nil, fmt.Errorf("requirements for %s: %w", t.ID, err)
		}
		out[t.ID] = Breakdown{
			ID:         t.ID,
			Metrics:    m,
			Components: make(map[string]float64, len(s.Scheme)),
			Passing:    ok,
		}
		if ok {
			passing = append(passing, t.ID)
		}
	}

	for _, name := range s.Scheme.names() {
		p := s.Scheme[name]
		values := make(map[string]float64, len(passing))
		for _, id := range passing {
			values[id] = out[id].Metrics[name]
		}
		for id, v := range rescale(values, p) {
			out[id].Components[name] = v
		}
	}

	for id, b := range out {
		if !b.Passing {
			b.Total = 0
			out[id] = b
			continue
		}
		b.Total = b.Metrics[MetricSourceScore]
		for _, c := range b.Components {
			b.Total += c
		}
		out[id] = b
	}
	return out, nil
}

// rescale normalizes values to [0, 1] according to p and applies the
// multiplier. If all values are equal each rescaled value is 1.
func rescale(values map[string]float64, p Parameter) map[string]float64 {
	mult := p.Multiplier
	if mult == 0 {
		mult = 1
	}
	out := make(map[string]float64, len(values))
	if len(values) == 0 {
		return out
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}

	switch p.Rescaling {
	case RescaleTarget:
		var denom float64
		for _, v := range values {
			denom = math.Max(denom, math.Abs(v-p.Value))
		}
		for id, v := range values {
			if denom == 0 {
				out[id] = mult
				continue
			}
			out[id] = mult * (1 - math.Abs(v-p.Value)/denom)
		}
	default:
		for id, v := range values {
			if hi == lo {
				out[id] = mult
				continue
			}
			r := (v - lo) / (hi - lo)
			if p.Rescaling == RescaleMin {
				r = 1 - r
			}
			out[id] = mult * r
		}
	}
	return out
}

// Row is a per-transcript score breakdown for reporting.
type Row struct {
	TID        string
	Alias      string
	Parent     string
	Score      float64
	Passing    bool
	Components map[string]float64
}

// ComponentNames returns the sorted union of component names over rows.
func ComponentNames(rows []Row) []string {
	seen := make(map[string]struct{})
	for _, r := range rows {
		for k := range r.Components {
			seen[k] = struct{}{}
		}
	}
	names := make([]string, 0, len(seen))
	for k := range seen {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
