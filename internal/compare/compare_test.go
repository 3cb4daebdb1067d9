package compare

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-locus/internal/transcript"
)

type iv = transcript.Interval

func tx(t *testing.T, id string, strand transcript.Strand, exons ...iv) *transcript.Transcript {
	t.Helper()
	tr := transcript.New(id, "chr1", strand, exons...)
	require.NoError(t, tr.Finalize())
	return tr
}

func TestAssignerClassCodes(t *testing.T) {
	plus := transcript.StrandPlus
	tests := []struct {
		name string
		pred []iv
		ref  []iv
		want string
	}{
		{"identical chain", []iv{{Start: 100, End: 200}, {Start: 300, End: 400}}, []iv{{Start: 100, End: 200}, {Start: 300, End: 420}}, CodeMatch},
		{"contained", []iv{{Start: 150, End: 200}, {Start: 300, End: 400}}, []iv{{Start: 100, End: 200}, {Start: 300, End: 400}, {Start: 500, End: 600}}, CodeContained},
		{"contained into intron", []iv{{Start: 100, End: 200}, {Start: 300, End: 450}}, []iv{{Start: 100, End: 200}, {Start: 300, End: 400}, {Start: 500, End: 600}}, CodeContainedIntron},
		{"extension outside", []iv{{Start: 50, End: 80}, {Start: 100, End: 200}, {Start: 300, End: 400}}, []iv{{Start: 100, End: 200}, {Start: 300, End: 400}}, CodeExtension},
		{"extension inside", []iv{{Start: 100, End: 200}, {Start: 300, End: 400}, {Start: 500, End: 600}}, []iv{{Start: 100, End: 200}, {Start: 300, End: 600}}, CodeExtensionInside},
		{"shared junction", []iv{{Start: 100, End: 200}, {Start: 300, End: 400}}, []iv{{Start: 100, End: 200}, {Start: 350, End: 400}}, CodeSharedJunction},
		{"intron overlap", []iv{{Start: 100, End: 210}, {Start: 300, End: 400}}, []iv{{Start: 100, End: 200}, {Start: 290, End: 400}}, CodeIntronOverlap},
		{"mono match", []iv{{Start: 100, End: 200}}, []iv{{Start: 100, End: 205}}, CodeMonoMatch},
		{"mono partial", []iv{{Start: 100, End: 200}}, []iv{{Start: 180, End: 400}}, CodeMonoOverlap},
		{"mono in intron", []iv{{Start: 250, End: 260}}, []iv{{Start: 100, End: 200}, {Start: 300, End: 400}}, CodeInIntron},
		{"mono in exon", []iv{{Start: 120, End: 180}}, []iv{{Start: 100, End: 200}, {Start: 300, End: 400}}, CodeContained},
		{"mono across exons", []iv{{Start: 150, End: 350}}, []iv{{Start: 100, End: 200}, {Start: 300, End: 400}}, CodeMonoOnMulti},
		{"mono exon and intron", []iv{{Start: 150, End: 250}}, []iv{{Start: 100, End: 200}, {Start: 300, End: 400}}, CodeExonIntron},
		{"ref in intron", []iv{{Start: 100, End: 200}, {Start: 300, End: 400}}, []iv{{Start: 250, End: 260}}, CodeRefInIntron},
		{"multi on mono", []iv{{Start: 100, End: 200}, {Start: 300, End: 400}}, []iv{{Start: 150, End: 350}}, CodeMultiOnMono},
	}

	a := NewAssigner()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := a.Compare(tx(t, "p", plus, tt.pred...), tx(t, "r", plus, tt.ref...))
			assert.Equal(t, tt.want, res.ClassCode)
			assert.Zero(t, res.Distance)
		})
	}
}

func TestAssignerStrandAndDistance(t *testing.T) {
	a := NewAssigner()

	res := a.Compare(
		tx(t, "p", transcript.StrandMinus, iv{Start: 100, End: 200}),
		tx(t, "r", transcript.StrandPlus, iv{Start: 150, End: 300}),
	)
	assert.Equal(t, CodeAntisense, res.ClassCode)

	res = a.Compare(
		tx(t, "p", transcript.StrandUnknown, iv{Start: 100, End: 200}),
		tx(t, "r", transcript.StrandPlus, iv{Start: 150, End: 300}),
	)
	assert.NotEqual(t, CodeAntisense, res.ClassCode)

	res = a.Compare(
		tx(t, "p", transcript.StrandPlus, iv{Start: 1000, End: 1100}),
		tx(t, "r", transcript.StrandPlus, iv{Start: 100, End: 200}),
	)
	assert.Equal(t, CodeUnknown, res.ClassCode)
	assert.Equal(t, int64(800), res.Distance)
}

func TestAssignerStatistics(t *testing.T) {
	a := NewAssigner()
	res := a.Compare(
		tx(t, "p", transcript.StrandPlus, iv{Start: 100, End: 199}, iv{Start: 300, End: 399}),
		tx(t, "r", transcript.StrandPlus, iv{Start: 100, End: 199}, iv{Start: 300, End: 399}, iv{Start: 500, End: 599}),
	)
	assert.InDelta(t, 1.0, res.NucleotidePrecision, 1e-9)
	assert.InDelta(t, 200.0/300.0, res.NucleotideRecall, 1e-9)
	assert.InDelta(t, 0.8, res.NucleotideF1, 1e-9)
	assert.InDelta(t, 1.0, res.JunctionPrecision, 1e-9)
	assert.InDelta(t, 0.5, res.JunctionRecall, 1e-9)
}

func TestOverlapFractions(t *testing.T) {
	a := tx(t, "a", transcript.StrandPlus, iv{Start: 100, End: 199}, iv{Start: 300, End: 399})
	b := tx(t, "b", transcript.StrandPlus, iv{Start: 150, End: 199}, iv{Start: 300, End: 399})

	assert.InDelta(t, 0.75, CDNAOverlap(a, b), 1e-9)
	assert.InDelta(t, 1.0, CDNAOverlap(b, a), 1e-9)

	_, ok := CDSOverlap(a, b)
	assert.False(t, ok)

	ca := transcript.New("ca", "chr1", transcript.StrandPlus, iv{Start: 100, End: 199}, iv{Start: 300, End: 399})
	require.NoError(t, ca.LoadORFs(transcript.ORF{Start: 1, End: 120}))
	require.NoError(t, ca.Finalize())
	cb := transcript.New("cb", "chr1", transcript.StrandPlus, iv{Start: 100, End: 199}, iv{Start: 300, End: 399})
	require.NoError(t, cb.LoadORFs(transcript.ORF{Start: 61, End: 180}))
	require.NoError(t, cb.Finalize())

	frac, ok := CDSOverlap(ca, cb)
	require.True(t, ok)
	assert.InDelta(t, 0.5, frac, 1e-9)
}

func TestExonOverlap(t *testing.T) {
	assert.Equal(t, int64(0), ExonOverlap(nil, []iv{{Start: 1, End: 10}}))
	assert.Equal(t, int64(11), ExonOverlap([]iv{{Start: 1, End: 10}, {Start: 20, End: 30}}, []iv{{Start: 5, End: 24}}))
}
