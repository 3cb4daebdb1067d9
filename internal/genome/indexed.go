package genome

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

type faiEntry struct {
	length    int64
	offset    int64
	lineBases int64
	lineWidth int64
}

// Indexed reads sequence on demand from a FASTA file with a .fai index.
// It only uses ReadAt, which carries no file offset state, so one Indexed
// can serve many goroutines.
type Indexed struct {
	f     *os.File
	index map[string]faiEntry
}

// OpenIndexed opens path and its path.fai index.
func OpenIndexed(path string) (*Indexed, error) {
	index, err := readIndex(path + ".fai")
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open FASTA file: %w", err)
	}
	return &Indexed{f: f, index: index}, nil
}

func readIndex(path string) (map[string]faiEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open FASTA index: %w", err)
	}
	defer f.Close()

	index := make(map[string]faiEntry)
	scanner := bufio.NewScanner(f)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 5 {
			return nil, fmt.Errorf("FASTA index line %d: expected 5 fields, got %d", lineNum, len(fields))
		}
		var vals [4]int64
		for i := range vals {
			v, err := strconv.ParseInt(fields[i+1], 10, 64)
			if err != nil {
				return nil, fmt.Errorf("FASTA index line %d: %w", lineNum, err)
			}
			vals[i] = v
		}
		if vals[2] <= 0 || vals[3] < vals[2] {
			return nil, fmt.Errorf("FASTA index line %d: invalid line geometry", lineNum)
		}
		index[fields[0]] = faiEntry{length: vals[0], offset: vals[1], lineBases: vals[2], lineWidth: vals[3]}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan FASTA index: %w", err)
	}
	return index, nil
}

// Close closes the underlying FASTA file.
func (x *Indexed) Close() error {
	return x.f.Close()
}

// Length returns the length of chrom.
func (x *Indexed) Length(chrom string) (int64, bool) {
	e, ok := x.index[chrom]
	return e.length, ok
}

func (e faiEntry) byteOffset(pos0 int64) int64 {
	return e.offset + (pos0/e.lineBases)*e.lineWidth + pos0%e.lineBases
}

// Fetch returns the sequence of chrom between start and end (1-based, inclusive).
func (x *Indexed) Fetch(chrom string, start, end int64) (string, error) {
	e, ok := x.index[chrom]
	if !ok {
		return "", fmt.Errorf("fetch %s: %w", chrom, ErrUnknownSequence)
	}
	if err := checkRange(chrom, start, end, e.length); err != nil {
		return "", err
	}

	from := e.byteOffset(start - 1)
	to := e.byteOffset(end - 1)
	buf := make([]byte, to-from+1)
	if _, err := x.f.ReadAt(buf, from); err != nil {
		return "", fmt.Errorf("read %s:%d-%d: %w", chrom, start, end, err)
	}

	out := make([]byte, 0, end-start+1)
	for _, b := range buf {
		if b != '\n' && b != '\r' {
			out = append(out, b)
		}
	}
	if int64(len(out)) != end-start+1 {
		return "", fmt.Errorf("read %s:%d-%d: got %d bases: %w", chrom, start, end, len(out), ErrOutOfRange)
	}
	return string(out), nil
}
