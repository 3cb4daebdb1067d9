package genome

import (
	"compress/gzip"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testFASTA = ">chr1 test chromosome\nACGTACGTAC\nGTTTGGGCCC\nAA\n>chr2\nTTTT\n"

// Index for testFASTA: chr1 has 22 bases in lines of 10.
const testFAI = "chr1\t22\t22\t10\t11\nchr2\t4\t53\t4\t5\n"

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestParseFASTA(t *testing.T) {
	m, err := ParseFASTA(strings.NewReader(testFASTA))
	require.NoError(t, err)

	assert.Equal(t, 2, m.SequenceCount())
	n, ok := m.Length("chr1")
	assert.True(t, ok)
	assert.Equal(t, int64(22), n)

	seq, err := m.Fetch("chr1", 9, 14)
	require.NoError(t, err)
	assert.Equal(t, "ACGTTT", seq)
}

func TestMemoryFetchErrors(t *testing.T) {
	m := NewMemory(map[string]string{"chr1": "ACGT"})

	_, err := m.Fetch("chrX", 1, 2)
	assert.ErrorIs(t, err, ErrUnknownSequence)

	_, err = m.Fetch("chr1", 3, 5)
	assert.ErrorIs(t, err, ErrOutOfRange)

	_, err = m.Fetch("chr1", 0, 2)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestIndexedFetch(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "genome.fa", testFASTA)
	writeFile(t, dir, "genome.fa.fai", testFAI)

	r, err := Open(path)
	require.NoError(t, err)
	x, ok := r.(*Indexed)
	require.True(t, ok, "expected indexed reader when .fai is present")
	t.Cleanup(func() { x.Close() })

	tests := []struct {
		chrom      string
		start, end int64
		want       string
	}{
		{"chr1", 1, 4, "ACGT"},
		{"chr1", 9, 14, "ACGTTT"},
		{"chr1", 20, 22, "CAA"},
		{"chr2", 1, 4, "TTTT"},
	}
	for _, tt := range tests {
		seq, err := x.Fetch(tt.chrom, tt.start, tt.end)
		require.NoError(t, err)
		assert.Equal(t, tt.want, seq)
	}

	_, err = x.Fetch("chr1", 20, 23)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestIndexedConcurrentFetch(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "genome.fa", testFASTA)
	writeFile(t, dir, "genome.fa.fai", testFAI)

	x, err := OpenIndexed(path)
	require.NoError(t, err)
	t.Cleanup(func() { x.Close() })

	var wg sync.WaitGroup
	errs := make(chan error, 32)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seq, err := x.Fetch("chr1", 9, 14)
			if err == nil && seq != "ACGTTT" {
				err = assert.AnError
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
}

func TestOpenGzipLoadsIntoMemory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "genome.fa.gz")
	f, err := os.Create(path)
	require.NoError(t, err)
	gz := gzip.NewWriter(f)
	_, err = gz.Write([]byte(testFASTA))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())

	r, err := Open(path)
	require.NoError(t, err)
	_, ok := r.(*Memory)
	assert.True(t, ok)

	seq, err := r.Fetch("chr2", 2, 3)
	require.NoError(t, err)
	assert.Equal(t, "TT", seq)
}
