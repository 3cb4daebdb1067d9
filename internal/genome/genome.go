// Package genome provides random access to reference genome sequence.
package genome

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

var (
	// ErrUnknownSequence is returned when the chromosome is not in the genome.
	ErrUnknownSequence = errors.New("unknown sequence")
	// ErrOutOfRange is returned when the requested range exceeds the sequence.
	ErrOutOfRange = errors.New("range out of bounds")
)

// Reader fetches genomic sequence. Implementations must be safe for
// concurrent use: loci are padded in parallel against a shared reader.
type Reader interface {
	// Fetch returns the sequence of chrom between start and end,
	// 1-based and inclusive.
	Fetch(chrom string, start, end int64) (string, error)
	// Length returns the length of chrom.
	Length(chrom string) (int64, bool)
}

// Open opens a genome FASTA. An uncompressed FASTA with a samtools-style
// .fai index next to it is read on demand; anything else is loaded into memory.
func Open(path string) (Reader, error) {
	if !strings.HasSuffix(path, ".gz") {
		if _, err := os.Stat(path + ".fai"); err == nil {
			return OpenIndexed(path)
		}
	}
	m, err := LoadFASTA(path)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func checkRange(chrom string, start, end, length int64) error {
	if start < 1 || end < start || end > length {
		return fmt.Errorf("fetch %s:%d-%d (length %d): %w", chrom, start, end, length, ErrOutOfRange)
	}
	return nil
}
