package locus

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-locus/internal/compare"
	"github.com/inodb/vibe-locus/internal/genome"
	"github.com/inodb/vibe-locus/internal/scoring"
	"github.com/inodb/vibe-locus/internal/transcript"
)

type iv = transcript.Interval

const plus, minus = transcript.StrandPlus, transcript.StrandMinus

func tx(t *testing.T, id string, strand transcript.Strand, score float64, exons ...iv) *transcript.Transcript {
	t.Helper()
	tr := transcript.New(id, "chr1", strand, exons...)
	tr.SourceScore = score
	require.NoError(t, tr.Finalize())
	return tr
}

func codingTx(t *testing.T, id string, strand transcript.Strand, score float64, orf transcript.ORF, exons ...iv) *transcript.Transcript {
	t.Helper()
	tr := transcript.New(id, "chr1", strand, exons...)
	tr.SourceScore = score
	require.NoError(t, tr.LoadORFs(orf))
	require.NoError(t, tr.Finalize())
	return tr
}

func noPad(c *Config) { c.Pad = false }

func withCodes(codes ...string) func(*Config) {
	return func(c *Config) { c.ValidCCodes = append(c.ValidCCodes, codes...) }
}

func newTestEngine(t *testing.T, g genome.Reader, opts ...func(*Config)) *Engine {
	t.Helper()
	cfg := DefaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	e, err := NewEngine(cfg, g)
	require.NoError(t, err)
	return e
}

func newTestLocus(t *testing.T, e *Engine, primary *transcript.Transcript, candidates ...*transcript.Transcript) *Locus {
	t.Helper()
	l, err := e.NewLocus(primary)
	require.NoError(t, err)
	for _, c := range candidates {
		_, err := l.Add(c, true)
		require.NoError(t, err)
	}
	return l
}

type countingComparator struct {
	inner compare.Comparator
	calls int
}

func (c *countingComparator) Compare(a, b *transcript.Transcript) compare.Result {
	c.calls++
	return c.inner.Compare(a, b)
}

// fourExonSet returns a four exon primary and exon skipping isoforms that are
// valid, non-redundant alternatives of it and of each other.
func fourExonSet(t *testing.T, scores [4]float64) (*transcript.Transcript, []*transcript.Transcript) {
	p := tx(t, "p", plus, 100, iv{Start: 100, End: 200}, iv{Start: 300, End: 400}, iv{Start: 500, End: 600}, iv{Start: 700, End: 800})
	return p, []*transcript.Transcript{
		tx(t, "c1", plus, scores[0], iv{Start: 100, End: 200}, iv{Start: 500, End: 600}, iv{Start: 700, End: 800}),
		tx(t, "c2", plus, scores[1], iv{Start: 100, End: 200}, iv{Start: 300, End: 400}, iv{Start: 700, End: 800}),
		tx(t, "c3", plus, scores[2], iv{Start: 100, End: 200}, iv{Start: 300, End: 400}, iv{Start: 500, End: 600}, iv{Start: 750, End: 800}),
		tx(t, "c4", plus, scores[3], iv{Start: 100, End: 200}, iv{Start: 300, End: 350}, iv{Start: 500, End: 600}, iv{Start: 700, End: 800}),
	}
}

func TestNewEngineRejectsBadConfig(t *testing.T) {
	g := genome.NewMemory(map[string]string{"chr1": "ACGT"})
	tests := []struct {
		name   string
		mutate func(*Config)
		genome genome.Reader
	}{
		{"min score above one", func(c *Config) { c.MinScorePerc = 1.5 }, g},
		{"negative max isoforms", func(c *Config) { c.MaxIsoforms = -1 }, g},
		{"negative ts distance", func(c *Config) { c.TSDistance = -5 }, g},
		{"cds overlap above one", func(c *Config) { c.MinCDSOverlap = 2 }, g},
		{"no pad rounds", func(c *Config) { c.PadMaxRounds = 0 }, g},
		{"padding without genome", func(c *Config) {}, nil},
		{"malformed requirements", func(c *Config) { c.Requirements = "exon_num >" }, g},
		{"unknown metric", func(c *Config) { c.ASRequirements = "bogus == 1" }, g},
		{"unknown scoring metric", func(c *Config) {
			c.Scoring = scoring.Scheme{"bogus": {Rescaling: scoring.RescaleMax}}
		}, g},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			_, err := NewEngine(cfg, tt.genome)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrConfig)
			assert.True(t, IsKind(err, KindConfig))
		})
	}
}

func TestNewLocusCopiesPrimary(t *testing.T) {
	e := newTestEngine(t, nil, noPad)
	p := tx(t, "p", plus, 100, iv{Start: 100, End: 200}, iv{Start: 300, End: 400})
	l := newTestLocus(t, e, p)

	p.Attributes["mutated"] = "yes"
	got := l.Primary()
	assert.Equal(t, "p", l.PrimaryID())
	assert.Equal(t, "true", got.Attributes[AttrPrimary])
	assert.Empty(t, got.Attributes["mutated"])
	assert.Equal(t, transcript.FeatureNCRNA, got.Feature)
}

func TestAddStrandMismatchNeverReachesClassifier(t *testing.T) {
	e := newTestEngine(t, nil, noPad)
	spy := &countingComparator{inner: compare.NewAssigner()}
	e.SetComparator(spy)
	l := newTestLocus(t, e, tx(t, "p", plus, 100, iv{Start: 100, End: 200}, iv{Start: 300, End: 400}))

	added, err := l.Add(tx(t, "c", minus, 90, iv{Start: 100, End: 200}, iv{Start: 350, End: 400}), true)
	require.NoError(t, err)
	assert.False(t, added)
	assert.Zero(t, spy.calls)
	assert.False(t, l.Has("c"))
}

func TestAddOnlyConfirmedIntrons(t *testing.T) {
	e := newTestEngine(t, nil, noPad, func(c *Config) { c.OnlyConfirmedIntrons = true })
	p, cands := fourExonSet(t, [4]float64{90, 90, 90, 90})

	l := newTestLocus(t, e, p)
	added, err := l.Add(cands[0], true)
	require.NoError(t, err)
	assert.False(t, added, "intron 201-499 is novel and not verified")

	c := cands[0].Clone()
	c.VerifiedIntrons.Add(iv{Start: 201, End: 499})
	added, err = l.Add(c, true)
	require.NoError(t, err)
	assert.True(t, added)
	assert.True(t, l.VerifiedIntrons().Has(iv{Start: 201, End: 499}))
}

func TestAddASRequirements(t *testing.T) {
	e := newTestEngine(t, nil, noPad, func(c *Config) { c.ASRequirements = "exon_num >= 4" })
	p, cands := fourExonSet(t, [4]float64{90, 90, 90, 90})
	l := newTestLocus(t, e, p)

	added, err := l.Add(cands[0], true)
	require.NoError(t, err)
	assert.False(t, added)

	added, err = l.Add(cands[2], true)
	require.NoError(t, err)
	assert.True(t, added)
}

func TestAddTagsMember(t *testing.T) {
	e := newTestEngine(t, nil, noPad)
	p, cands := fourExonSet(t, [4]float64{90, 90, 90, 90})
	l := newTestLocus(t, e, p, cands[0])

	m := l.Members()["c1"]
	require.NotNil(t, m)
	assert.Equal(t, "false", m.Attributes[AttrPrimary])
	assert.Equal(t, compare.CodeSharedJunction, m.Attributes[AttrClassCode])
	assert.Equal(t, transcript.FeatureNCRNA, m.Feature)

	// the locus owns a copy
	cands[0].Attributes["late"] = "edit"
	assert.Empty(t, l.Members()["c1"].Attributes["late"])
}

func TestAddBypassSkipsChecks(t *testing.T) {
	e := newTestEngine(t, nil, noPad)
	l := newTestLocus(t, e, tx(t, "p", plus, 100, iv{Start: 100, End: 200}, iv{Start: 300, End: 400}))

	added, err := l.Add(tx(t, "anti", minus, 10, iv{Start: 5000, End: 6000}), false)
	require.NoError(t, err)
	assert.True(t, added)
	assert.True(t, l.Has("anti"))
}

func TestAddErrors(t *testing.T) {
	e := newTestEngine(t, nil, noPad)
	p := tx(t, "p", plus, 100, iv{Start: 100, End: 200}, iv{Start: 300, End: 400})
	l := newTestLocus(t, e, p)

	_, err := l.Add(p, true)
	assert.True(t, IsKind(err, KindInvariant), "duplicate id")

	_, err = l.Add(transcript.New("broken", "chr1", plus), true)
	assert.ErrorIs(t, err, ErrDataAnomaly)

	require.NoError(t, l.Finalize())
	_, err = l.Add(tx(t, "late", plus, 90, iv{Start: 100, End: 200}, iv{Start: 350, End: 400}), true)
	assert.ErrorIs(t, err, ErrInvariant)
}

func TestClassify(t *testing.T) {
	e := newTestEngine(t, nil, noPad)
	p, cands := fourExonSet(t, [4]float64{90, 90, 90, 90})
	l := newTestLocus(t, e, p, cands[0])

	t.Run("coding mismatch", func(t *testing.T) {
		c := codingTx(t, "cod", plus, 90, transcript.ORF{Start: 1, End: 30}, iv{Start: 100, End: 200}, iv{Start: 500, End: 600})
		cls := l.Classify(c)
		assert.False(t, cls.Admissible)
		assert.Equal(t, compare.CodeNotApplicable, cls.ClassCode)
		assert.Nil(t, cls.Result)
	})

	t.Run("valid", func(t *testing.T) {
		cls := l.Classify(cands[1])
		assert.True(t, cls.Admissible)
		assert.Equal(t, compare.CodeSharedJunction, cls.ClassCode)
		require.NotNil(t, cls.Result)
	})

	t.Run("invalid class code", func(t *testing.T) {
		cls := l.Classify(tx(t, "same", plus, 90, iv{Start: 150, End: 200}, iv{Start: 300, End: 400}, iv{Start: 500, End: 600}, iv{Start: 700, End: 800}))
		assert.False(t, cls.Admissible)
		assert.Equal(t, compare.CodeMatch, cls.ClassCode)
	})

	t.Run("insufficient overlap", func(t *testing.T) {
		cls := l.Classify(tx(t, "far", plus, 90, iv{Start: 700, End: 800}, iv{Start: 900, End: 2000}))
		assert.False(t, cls.Admissible)
		assert.Contains(t, cls.Reason, "cDNA overlap")
	})

	t.Run("identical exons are redundant", func(t *testing.T) {
		dup := cands[0].Clone()
		dup.ID = "c1dup"
		cls := l.Classify(dup)
		assert.False(t, cls.Admissible)
		assert.Equal(t, compare.CodeSharedJunction, cls.ClassCode)
		assert.Contains(t, cls.Reason, "redundant with c1")
	})
}

func TestClassifyCDSOnly(t *testing.T) {
	e := newTestEngine(t, nil, noPad, func(c *Config) { c.CDSOnly = true })
	orf := transcript.ORF{Start: 1, End: 99, HasStartCodon: true, HasStopCodon: true}
	p := codingTx(t, "p", plus, 100, orf, iv{Start: 100, End: 200}, iv{Start: 300, End: 400}, iv{Start: 500, End: 600})
	l := newTestLocus(t, e, p)

	// same CDS, different UTR exons: identical once restricted to the ORF
	c := codingTx(t, "c", plus, 90, orf, iv{Start: 100, End: 200}, iv{Start: 350, End: 400}, iv{Start: 500, End: 600})
	cls := l.Classify(c)
	assert.False(t, cls.Admissible)
	assert.Equal(t, compare.CodeMonoMatch, cls.ClassCode)

	// one side without ORF is an overlap failure
	a, b, ok := l.comparable(p, tx(t, "nc", plus, 90, iv{Start: 100, End: 200}))
	assert.False(t, ok)
	assert.Nil(t, a)
	assert.Nil(t, b)
}

func TestRemove(t *testing.T) {
	e := newTestEngine(t, nil, noPad)
	p, cands := fourExonSet(t, [4]float64{90, 90, 90, 90})
	l := newTestLocus(t, e, p, cands[2])

	err := l.Remove("p")
	require.Error(t, err)
	assert.True(t, IsKind(err, KindInvariant))

	assert.ErrorIs(t, l.Remove("nope"), ErrUnknownTranscript)

	assert.Contains(t, l.Exons(), iv{Start: 750, End: 800})
	require.NoError(t, l.Remove("c3"))
	assert.Equal(t, 1, l.Len())
	assert.NotContains(t, l.Exons(), iv{Start: 750, End: 800}, "exon union follows membership")
}

func TestFinalizeFiltersByScoreAndIsoformCount(t *testing.T) {
	e := newTestEngine(t, nil, noPad, func(c *Config) { c.MaxIsoforms = 2 })
	p, cands := fourExonSet(t, [4]float64{90, 85, 70, 50})
	l := newTestLocus(t, e, p, cands...)
	require.Equal(t, 5, l.Len())

	require.NoError(t, l.Finalize())
	assert.True(t, l.IsFinalized())
	assert.ElementsMatch(t, []string{"p", "c1", "c2"}, l.IDs())

	scores, err := l.Scores()
	require.NoError(t, err)
	for id, s := range scores {
		if id != "p" {
			assert.GreaterOrEqual(t, s, 0.6*scores["p"])
		}
	}
	assert.LessOrEqual(t, l.Len()-1, 2)
}

func TestFinalizeTieBreakByID(t *testing.T) {
	e := newTestEngine(t, nil, noPad, func(c *Config) { c.MaxIsoforms = 1 })
	p, cands := fourExonSet(t, [4]float64{90, 90, 90, 90})
	l := newTestLocus(t, e, p, cands[1], cands[0], cands[2])

	require.NoError(t, l.Finalize())
	assert.ElementsMatch(t, []string{"p", "c1"}, l.IDs())
}

func TestFinalizeRetainedIntrons(t *testing.T) {
	p := tx(t, "p", plus, 100, iv{Start: 100, End: 200}, iv{Start: 300, End: 400}, iv{Start: 500, End: 600})
	// exon 100-400 runs through intron 201-299 of the primary
	ri := tx(t, "ri", plus, 90, iv{Start: 100, End: 400}, iv{Start: 500, End: 600})

	t.Run("evicted", func(t *testing.T) {
		e := newTestEngine(t, nil, noPad)
		l := newTestLocus(t, e, p, ri)
		require.True(t, l.Has("ri"))
		require.NoError(t, l.Finalize())
		assert.False(t, l.Has("ri"))
		assert.True(t, l.Has("p"))
	})

	t.Run("kept and tagged", func(t *testing.T) {
		e := newTestEngine(t, nil, noPad, func(c *Config) { c.KeepRetainedIntrons = true })
		l := newTestLocus(t, e, p, ri)
		require.NoError(t, l.Finalize())
		require.True(t, l.Has("ri"))
		assert.Equal(t, "true", l.Members()["ri"].Attributes[AttrRetainedIntron])
	})
}

func TestScenarioCandidateRetainedAfterFiltering(t *testing.T) {
	g := genome.NewMemory(map[string]string{"chr1": repeat('C', 1000)})
	e := newTestEngine(t, g, withCodes(compare.CodeMatch), func(c *Config) { c.OnlyConfirmedIntrons = true })
	p := tx(t, "p", plus, 100, iv{Start: 100, End: 200}, iv{Start: 300, End: 400})

	a := tx(t, "a", plus, 80, iv{Start: 100, End: 200}, iv{Start: 300, End: 420})
	a.VerifiedIntrons.Add(iv{Start: 201, End: 299})
	la := newTestLocus(t, e, p)
	cls := la.Classify(a)
	require.True(t, cls.Admissible)
	assert.Equal(t, compare.CodeMatch, cls.ClassCode)
	added, err := la.Add(a, true)
	require.NoError(t, err)
	require.True(t, added)
	require.NoError(t, la.Finalize())
	assert.True(t, la.Has("a"))
	primary := la.Primary()
	assert.Equal(t, int64(420), primary.End(), "primary padded to the end of a")
	assert.Equal(t, "true", primary.Attributes[AttrPadded])

	// B has the same exons but a score below 0.6 * 100: admitted, then filtered
	b := tx(t, "b", plus, 40, iv{Start: 100, End: 200}, iv{Start: 300, End: 420})
	lb := newTestLocus(t, e, p)
	added, err = lb.Add(b, true)
	require.NoError(t, err)
	require.True(t, added)
	require.NoError(t, lb.Finalize())
	assert.False(t, lb.Has("b"))
	assert.True(t, lb.Has("p"))
}

func TestFinalizeIsIdempotent(t *testing.T) {
	e := newTestEngine(t, nil, noPad)
	p, cands := fourExonSet(t, [4]float64{90, 90, 90, 90})
	l := newTestLocus(t, e, p, cands...)
	require.NoError(t, l.Finalize())
	ids := l.IDs()
	require.NoError(t, l.Finalize())
	assert.Equal(t, ids, l.IDs())
}

func TestScoresFollowMembership(t *testing.T) {
	cfg := func(c *Config) {
		c.Scoring = scoring.Scheme{scoring.MetricExonNum: {Rescaling: scoring.RescaleMax, Multiplier: 10}}
	}
	e := newTestEngine(t, nil, noPad, cfg)
	p, cands := fourExonSet(t, [4]float64{90, 90, 90, 90})
	l := newTestLocus(t, e, p, cands[0])

	scores, err := l.Scores()
	require.NoError(t, err)
	assert.Equal(t, 110.0, scores["p"])
	assert.Equal(t, 90.0, scores["c1"])

	_, err = l.Add(cands[2], true)
	require.NoError(t, err)
	scores, err = l.Scores()
	require.NoError(t, err)
	assert.Equal(t, 110.0, scores["p"])
	assert.Equal(t, 100.0, scores["c3"])
	assert.Equal(t, 90.0, scores["c1"])
}

func TestScoreRowsAndNaming(t *testing.T) {
	e := newTestEngine(t, nil, noPad)
	p, cands := fourExonSet(t, [4]float64{90, 80, 90, 90})
	l := newTestLocus(t, e, p, cands[0], cands[1])
	require.NoError(t, l.Finalize())

	l.AssignID("gene1")
	assert.Equal(t, "gene1", l.ID())
	assert.Equal(t, "gene1.1", l.PrimaryID())
	members := l.Members()
	require.Len(t, members, 3)
	assert.Equal(t, "p", members["gene1.1"].Attributes[AttrAlias])
	// same span, so id breaks the tie
	assert.Equal(t, "c1", members["gene1.2"].Attributes[AttrAlias])
	assert.Equal(t, "c2", members["gene1.3"].Attributes[AttrAlias])

	rows, err := l.ScoreRows()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "gene1.1", rows[0].TID)
	assert.Equal(t, "p", rows[0].Alias)
	assert.Equal(t, "gene1", rows[0].Parent)
	assert.Equal(t, 100.0, rows[0].Score)
	assert.Equal(t, 80.0, rows[2].Score)
	assert.Equal(t, KindNCRNAGene, l.Kind())

	memberRows := l.MemberRows()
	require.Len(t, memberRows, 3)
	assert.Equal(t, "gene1.1", memberRows[0].TID)
	assert.True(t, memberRows[0].IsPrimary)
	assert.Equal(t, "gene1", memberRows[0].LocusID)
	assert.Equal(t, "c2", memberRows[2].Alias)
	assert.Equal(t, compare.CodeSharedJunction, memberRows[2].ClassCode)
	assert.Equal(t, KindNCRNAGene, memberRows[2].Kind)
	assert.Equal(t, int64(100), memberRows[2].Start)
	assert.Equal(t, int64(800), memberRows[2].End)
}

func TestKind(t *testing.T) {
	e := newTestEngine(t, nil, noPad)
	orf := transcript.ORF{Start: 1, End: 30}
	l := newTestLocus(t, e, codingTx(t, "p", plus, 10, orf, iv{Start: 100, End: 200}))
	assert.Equal(t, KindGene, l.Kind())
}

func TestErrorFormatting(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{"full", newError("expand", KindDataAnomaly, "chr1:1-10", "no segment for %s", "t1"),
			"locus chr1:1-10: expand: input data anomaly: no segment for t1"},
		{"no locus", newError("enlarge start", KindInvariant, "", "missing exon"),
			"enlarge start: invariant violation: missing exon"},
		{"no cause", &Error{Op: "new engine", Kind: KindConfig},
			"new engine: invalid configuration"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}

	err := newError("expand", KindDataAnomaly, "chr1:1-10", "no segment for %s", "t1")
	assert.ErrorIs(t, err, ErrDataAnomaly)
	assert.NotErrorIs(t, err, ErrInvariant)

	wrapped := fmt.Errorf("pick: %w", err)
	assert.True(t, IsKind(wrapped, KindDataAnomaly))
	assert.False(t, IsKind(errors.New("plain"), KindDataAnomaly))
}

func repeat(b byte, n int) string {
	out := make([]byte, n)
	for i := range out {
		out[i] = b
	}
	return string(out)
}
