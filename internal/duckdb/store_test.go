package duckdb

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-locus/internal/locus"
	"github.com/inodb/vibe-locus/internal/pick"
	"github.com/inodb/vibe-locus/internal/scoring"
	"github.com/inodb/vibe-locus/internal/transcript"
)

type iv = transcript.Interval

func openInMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func newCandidate(locusID, id string, primary bool, score float64, exons ...iv) Candidate {
	tr := transcript.New(id, "chr1", transcript.StrandPlus, exons...)
	tr.SourceScore = score
	return Candidate{LocusID: locusID, IsPrimary: primary, Transcript: tr}
}

func TestOpenClose(t *testing.T) {
	s := openInMemory(t)
	assert.NotNil(t, s.DB())
	assert.Empty(t, s.Path())
}

func TestOpenCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "loci.duckdb")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, path, s.Path())
}

func TestLoadJobs(t *testing.T) {
	s := openInMemory(t)

	coding := newCandidate("locB", "b1", true, 50, iv{Start: 1000, End: 1100})
	require.NoError(t, coding.Transcript.LoadORFs(transcript.ORF{Start: 1, End: 99, HasStopCodon: true}))
	verified := newCandidate("locA", "a2", false, 80, iv{Start: 100, End: 200}, iv{Start: 300, End: 420})
	verified.Transcript.VerifiedIntrons.Add(iv{Start: 201, End: 299})

	require.NoError(t, s.InsertCandidates([]Candidate{
		coding,
		verified,
		newCandidate("locA", "a1", true, 100, iv{Start: 100, End: 200}, iv{Start: 300, End: 400}),
	}))

	jobs, err := s.LoadJobs()
	require.NoError(t, err)
	require.Len(t, jobs, 2)

	a := jobs[0]
	assert.Equal(t, 0, a.Seq)
	assert.Equal(t, "locA", a.Name)
	require.NotNil(t, a.Primary)
	assert.Equal(t, "a1", a.Primary.ID)
	assert.Equal(t, 100.0, a.Primary.SourceScore)
	require.Len(t, a.Candidates, 1)
	c := a.Candidates[0]
	assert.Equal(t, "a2", c.ID)
	assert.Equal(t, transcript.StrandPlus, c.Strand)
	assert.True(t, c.VerifiedIntrons.Has(iv{Start: 201, End: 299}))
	assert.Equal(t, []transcript.Interval{{Start: 100, End: 200}, {Start: 300, End: 420}}, c.Exons())

	b := jobs[1]
	assert.Equal(t, 1, b.Seq)
	assert.Equal(t, "b1", b.Primary.ID)
	assert.Equal(t, []transcript.ORF{{Start: 1, End: 99, HasStopCodon: true}}, b.Primary.ORFs())
	assert.Empty(t, b.Candidates)
}

func TestLoadJobsRejectsBadPrimaries(t *testing.T) {
	t.Run("missing", func(t *testing.T) {
		s := openInMemory(t)
		require.NoError(t, s.InsertCandidates([]Candidate{newCandidate("loc", "x", false, 1, iv{Start: 1, End: 10})}))
		_, err := s.LoadJobs()
		assert.ErrorContains(t, err, "no primary")
	})
	t.Run("duplicate", func(t *testing.T) {
		s := openInMemory(t)
		require.NoError(t, s.InsertCandidates([]Candidate{
			newCandidate("loc", "x", true, 1, iv{Start: 1, End: 10}),
			newCandidate("loc", "y", true, 1, iv{Start: 1, End: 10}),
		}))
		_, err := s.LoadJobs()
		assert.ErrorContains(t, err, "primaries")
	})
}

func TestWritePickedAndScores(t *testing.T) {
	s := openInMemory(t)

	cfg := locus.DefaultConfig()
	cfg.Pad = false
	cfg.Scoring = scoring.Scheme{scoring.MetricExonNum: {Rescaling: scoring.RescaleMax}}
	e, err := locus.NewEngine(cfg, nil)
	require.NoError(t, err)

	job := pick.Job{
		Name: "gene1",
		Primary: newCandidate("", "p", true, 100,
			iv{Start: 100, End: 200}, iv{Start: 300, End: 400}, iv{Start: 500, End: 600}, iv{Start: 700, End: 800}).Transcript,
		Candidates: []*transcript.Transcript{
			newCandidate("", "a", false, 90, iv{Start: 100, End: 200}, iv{Start: 500, End: 600}, iv{Start: 700, End: 800}).Transcript,
		},
	}
	l, err := pick.NewPicker(e).Pick(job)
	require.NoError(t, err)

	require.NoError(t, s.WritePicked(l))
	picked, err := s.LookupPicked("gene1")
	require.NoError(t, err)
	require.Len(t, picked, 2)
	assert.Equal(t, "gene1.1", picked[0].TID)
	assert.True(t, picked[0].IsPrimary)
	assert.Equal(t, "p", picked[0].Alias)
	assert.Equal(t, int64(100), picked[0].Start)
	assert.Equal(t, int64(800), picked[0].End)
	assert.Equal(t, locus.KindNCRNAGene, picked[0].Kind)
	assert.Equal(t, transcript.FeatureNCRNA, picked[0].Feature)
	assert.Equal(t, "gene1.2", picked[1].TID)
	assert.Equal(t, "j", picked[1].ClassCode)
	assert.Equal(t, []transcript.Interval{{Start: 100, End: 200}, {Start: 500, End: 600}, {Start: 700, End: 800}}, picked[1].Exons)
	assert.Equal(t, transcript.StrandPlus, picked[1].Strand)
	assert.Empty(t, picked[1].ORFs)
	assert.False(t, picked[1].Padded)

	rows, err := l.ScoreRows()
	require.NoError(t, err)
	require.NoError(t, s.WriteScoreRows(rows))
	stored, err := s.LookupScores("gene1")
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, rows, stored)
	assert.Equal(t, 1.0, stored[0].Components[scoring.MetricExonNum])

	require.NoError(t, s.ClearOutputs())
	picked, err = s.LookupPicked("gene1")
	require.NoError(t, err)
	assert.Empty(t, picked)
}

func TestWriteEmpty(t *testing.T) {
	s := openInMemory(t)
	assert.NoError(t, s.InsertCandidates(nil))
	assert.NoError(t, s.WritePicked())
	assert.NoError(t, s.WriteScoreRows(nil))
}
