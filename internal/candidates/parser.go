// Package candidates parses tab-delimited candidate transcript tables.
//
// Each row is one transcript assigned to a locus. Intervals and ORFs use the
// compact encodings of the transcript package.
package candidates

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/inodb/vibe-locus/internal/duckdb"
	"github.com/inodb/vibe-locus/internal/transcript"
)

// Column names
const (
	ColLocusID         = "locus_id"
	ColTID             = "tid"
	ColChrom           = "chrom"
	ColStrand          = "strand"
	ColScore           = "score"
	ColIsPrimary       = "is_primary"
	ColIsReference     = "is_reference"
	ColExons           = "exons"
	ColORFs            = "orfs"
	ColVerifiedIntrons = "verified_introns"
)

// ColumnIndices holds the indices of the table columns. Missing optional
// columns are -1.
type ColumnIndices struct {
	LocusID         int
	TID             int
	Chrom           int
	Strand          int
	Score           int
	IsPrimary       int
	IsReference     int
	Exons           int
	ORFs            int
	VerifiedIntrons int
}

// Parser reads candidates from a table file.
type Parser struct {
	reader     *bufio.Reader
	file       *os.File
	gzipReader *gzip.Reader
	lineNumber int
	columns    ColumnIndices
}

// NewParser creates a parser for the given file. Gzipped tables are
// detected from their magic bytes; "-" reads stdin.
func NewParser(path string) (*Parser, error) {
	if path == "-" {
		return NewParserFromReader(os.Stdin)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open candidates file: %w", err)
	}

	p := &Parser{file: file}
	br := bufio.NewReader(file)
	magic, err := br.Peek(2)
	if err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		p.gzipReader, err = gzip.NewReader(br)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("create gzip reader: %w", err)
		}
		p.reader = bufio.NewReader(p.gzipReader)
	} else {
		p.reader = br
	}

	if err := p.parseHeader(); err != nil {
		p.Close()
		return nil, err
	}
	return p, nil
}

// NewParserFromReader creates a parser from an io.Reader.
func NewParserFromReader(r io.Reader) (*Parser, error) {
	p := &Parser{reader: bufio.NewReader(r)}
	if err := p.parseHeader(); err != nil {
		return nil, err
	}
	return p, nil
}

// parseHeader reads the first non-comment line as the header.
func (p *Parser) parseHeader() error {
	for {
		line, err := p.reader.ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			if err == io.EOF {
				return &ParseError{Line: p.lineNumber, Message: "no header line found"}
			}
			return fmt.Errorf("read header: %w", err)
		}
		p.lineNumber++

		line = strings.TrimRight(line, "\r\n")
		if line == "" || strings.HasPrefix(line, "##") {
			continue
		}
		return p.parseColumnIndices(strings.TrimPrefix(line, "#"))
	}
}

func (p *Parser) parseColumnIndices(header string) error {
	p.columns = ColumnIndices{
		LocusID:         -1,
		TID:             -1,
		Chrom:           -1,
		Strand:          -1,
		Score:           -1,
		IsPrimary:       -1,
		IsReference:     -1,
		Exons:           -1,
		ORFs:            -1,
		VerifiedIntrons: -1,
	}

	for i, col := range strings.Split(header, "\t") {
		switch strings.TrimSpace(col) {
		case ColLocusID:
			p.columns.LocusID = i
		case ColTID:
			p.columns.TID = i
		case ColChrom:
			p.columns.Chrom = i
		case ColStrand:
			p.columns.Strand = i
		case ColScore:
			p.columns.Score = i
		case ColIsPrimary:
			p.columns.IsPrimary = i
		case ColIsReference:
			p.columns.IsReference = i
		case ColExons:
			p.columns.Exons = i
		case ColORFs:
			p.columns.ORFs = i
		case ColVerifiedIntrons:
			p.columns.VerifiedIntrons = i
		}
	}

	required := []struct {
		name string
		idx  int
	}{
		{ColLocusID, p.columns.LocusID},
		{ColTID, p.columns.TID},
		{ColChrom, p.columns.Chrom},
		{ColStrand, p.columns.Strand},
		{ColIsPrimary, p.columns.IsPrimary},
		{ColExons, p.columns.Exons},
	}
	for _, r := range required {
		if r.idx == -1 {
			return &ParseError{
				Line:    p.lineNumber,
				Message: fmt.Sprintf("required column '%s' not found in header", r.name),
			}
		}
	}
	return nil
}

// Next reads the next candidate. It returns nil, nil at the end of input.
func (p *Parser) Next() (*duckdb.Candidate, error) {
	for {
		line, err := p.reader.ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			if err == io.EOF {
				return nil, nil
			}
			return nil, fmt.Errorf("read candidate line: %w", err)
		}
		p.lineNumber++

		line = strings.TrimRight(line, "\r\n")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		return p.parseLine(line)
	}
}

// ReadAll reads every remaining candidate.
func (p *Parser) ReadAll() ([]duckdb.Candidate, error) {
	var out []duckdb.Candidate
	for {
		c, err := p.Next()
		if err != nil {
			return nil, err
		}
		if c == nil {
			return out, nil
		}
		out = append(out, *c)
	}
}

func (p *Parser) parseLine(line string) (*duckdb.Candidate, error) {
	fields := strings.Split(line, "\t")
	field := func(idx int) string {
		if idx < 0 || idx >= len(fields) {
			return ""
		}
		return strings.TrimSpace(fields[idx])
	}

	minCols := max(p.columns.LocusID, p.columns.TID, p.columns.Chrom,
		p.columns.Strand, p.columns.IsPrimary, p.columns.Exons)
	if len(fields) <= minCols {
		return nil, &ParseError{
			Line:    p.lineNumber,
			Message: fmt.Sprintf("expected at least %d columns, found %d", minCols+1, len(fields)),
		}
	}

	t, err := transcript.Decode(field(p.columns.TID), field(p.columns.Chrom),
		field(p.columns.Strand), field(p.columns.Exons),
		field(p.columns.ORFs), field(p.columns.VerifiedIntrons))
	if err != nil {
		return nil, &ParseError{Line: p.lineNumber, Message: err.Error()}
	}

	if s := field(p.columns.Score); s != "" && s != "." {
		t.SourceScore, err = strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, &ParseError{Line: p.lineNumber, Message: fmt.Sprintf("invalid score: %s", s)}
		}
	}
	isPrimary, err := parseBool(field(p.columns.IsPrimary))
	if err != nil {
		return nil, &ParseError{Line: p.lineNumber, Message: err.Error()}
	}
	t.IsReference, err = parseBool(field(p.columns.IsReference))
	if err != nil {
		return nil, &ParseError{Line: p.lineNumber, Message: err.Error()}
	}

	return &duckdb.Candidate{
		LocusID:    field(p.columns.LocusID),
		IsPrimary:  isPrimary,
		Transcript: t,
	}, nil
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "", "0", "-", "false", "no", "n":
		return false, nil
	case "1", "true", "yes", "y":
		return true, nil
	}
	return false, fmt.Errorf("invalid boolean: %s", s)
}

// Columns returns the parsed column indices.
func (p *Parser) Columns() ColumnIndices {
	return p.columns
}

// LineNumber returns the current line number being processed.
func (p *Parser) LineNumber() int {
	return p.lineNumber
}

// Close closes the parser and underlying file.
func (p *Parser) Close() error {
	if p.gzipReader != nil {
		p.gzipReader.Close()
	}
	if p.file != nil {
		return p.file.Close()
	}
	return nil
}

// ParseError represents an error during parsing with line context.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("candidates parse error at line %d: %s", e.Line, e.Message)
}
