package transcript

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestORFExpand(t *testing.T) {
	tests := []struct {
		name       string
		orf        ORF
		seq        string
		upstream   int64
		downstream int64
		want       ORF
	}{
		{
			name:     "in-frame start found upstream",
			orf:      ORF{Start: 1, End: 9},
			seq:      "ATGTTT" + "CCCAAATAG",
			upstream: 6,
			want:     ORF{Start: 1, End: 15, Phase: 0, HasStartCodon: true, HasStopCodon: true},
		},
		{
			name:     "no start codon leaves residual phase",
			orf:      ORF{Start: 1, End: 9},
			seq:      "ACCTTTT" + "CCCAAATAG",
			upstream: 7,
			want:     ORF{Start: 1, End: 16, Phase: 1, HasStartCodon: false, HasStopCodon: true},
		},
		{
			name:       "stop codon found downstream",
			orf:        ORF{Start: 1, End: 9, HasStartCodon: true},
			seq:        "ATGCCCAAA" + "GGGTGACC",
			downstream: 8,
			want:       ORF{Start: 1, End: 15, Phase: 0, HasStartCodon: true, HasStopCodon: true},
		},
		{
			name:       "no stop codon keeps the ORF open",
			orf:        ORF{Start: 1, End: 9, HasStartCodon: true},
			seq:        "ATGCCCAAA" + "GGGCC",
			downstream: 5,
			want:       ORF{Start: 1, End: 14, Phase: 0, HasStartCodon: true, HasStopCodon: false},
		},
		{
			name:       "complete ORF is only shifted",
			orf:        ORF{Start: 1, End: 6, HasStartCodon: true, HasStopCodon: true},
			seq:        "CC" + "ATGTAA" + "G",
			upstream:   2,
			downstream: 1,
			want:       ORF{Start: 3, End: 8, Phase: 0, HasStartCodon: true, HasStopCodon: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := tt.orf
			require.NoError(t, o.Expand(tt.seq, tt.upstream, tt.downstream))
			assert.Equal(t, tt.want, o)
		})
	}
}

func TestORFExpandRejectsShortSequence(t *testing.T) {
	o := ORF{Start: 1, End: 9}
	err := o.Expand("ATG", 1, 0)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestORFExpandNoChange(t *testing.T) {
	o := ORF{Start: 1, End: 9, HasStartCodon: true}
	require.NoError(t, o.Expand("ATGCCCAAA", 0, 0))
	assert.Equal(t, ORF{Start: 1, End: 9, HasStartCodon: true}, o)
}
