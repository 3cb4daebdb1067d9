package genome

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strings"
)

// Memory is an in-memory genome. It is read-only after loading.
type Memory struct {
	sequences map[string]string
}

// NewMemory creates an in-memory genome from chromosome sequences.
func NewMemory(sequences map[string]string) *Memory {
	m := &Memory{sequences: make(map[string]string, len(sequences))}
	for k, v := range sequences {
		m.sequences[k] = v
	}
	return m
}

// LoadFASTA reads a plain or gzipped FASTA file into memory.
func LoadFASTA(path string) (*Memory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open FASTA file: %w", err)
	}
	defer f.Close()

	var reader io.Reader = f

	// Handle gzipped files
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("open gzip reader: %w", err)
		}
		defer gz.Close()
		reader = gz
	}

	return ParseFASTA(reader)
}

// ParseFASTA parses FASTA content. The sequence name is the first word of
// the header line.
func ParseFASTA(reader io.Reader) (*Memory, error) {
	m := &Memory{sequences: make(map[string]string)}
	scanner := bufio.NewScanner(reader)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024) // 10MB max line

	var currentID string
	var currentSeq strings.Builder

	for scanner.Scan() {
		line := scanner.Text()

		if strings.HasPrefix(line, ">") {
			if currentID != "" {
				m.sequences[currentID] = currentSeq.String()
			}
			currentID = parseHeader(line)
			currentSeq.Reset()
			continue
		}
		currentSeq.WriteString(strings.TrimSpace(line))
	}

	if currentID != "" {
		m.sequences[currentID] = currentSeq.String()
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan FASTA: %w", err)
	}
	return m, nil
}

func parseHeader(header string) string {
	header = strings.TrimPrefix(header, ">")
	if idx := strings.IndexAny(header, " \t"); idx != -1 {
		return header[:idx]
	}
	return header
}

// Fetch returns the sequence of chrom between start and end (1-based, inclusive).
func (m *Memory) Fetch(chrom string, start, end int64) (string, error) {
	seq, ok := m.sequences[chrom]
	if !ok {
		return "", fmt.Errorf("fetch %s: %w", chrom, ErrUnknownSequence)
	}
	if err := checkRange(chrom, start, end, int64(len(seq))); err != nil {
		return "", err
	}
	return seq[start-1 : end], nil
}

// Length returns the length of chrom.
func (m *Memory) Length(chrom string) (int64, bool) {
	seq, ok := m.sequences[chrom]
	return int64(len(seq)), ok
}

// SequenceCount returns the number of loaded sequences.
func (m *Memory) SequenceCount() int {
	return len(m.sequences)
}
