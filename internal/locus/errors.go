package locus

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinels matched by errors.Is for each ErrorKind.
var (
	ErrInvariant        = errors.New("invariant violation")
	ErrInvalidExpansion = errors.New("invalid expansion")
	ErrConfig           = errors.New("invalid configuration")
	ErrDataAnomaly      = errors.New("input data anomaly")
)

// ErrorKind classifies a locus failure.
type ErrorKind string

const (
	// KindInvariant aborts the locus: the computation is inconsistent.
	KindInvariant ErrorKind = "invariant"
	// KindInvalidExpansion is recovered locally by reverting the expansion.
	KindInvalidExpansion ErrorKind = "invalid_expansion"
	// KindConfig is fatal at engine construction.
	KindConfig ErrorKind = "config"
	// KindDataAnomaly lets batch runs skip the locus and carry on.
	KindDataAnomaly ErrorKind = "data_anomaly"
)

var kindSentinels = map[ErrorKind]error{
	KindInvariant:        ErrInvariant,
	KindInvalidExpansion: ErrInvalidExpansion,
	KindConfig:           ErrConfig,
	KindDataAnomaly:      ErrDataAnomaly,
}

// Error is returned by locus operations. Kind decides how a caller recovers.
type Error struct {
	Op    string
	Kind  ErrorKind
	Locus string
	Err   error
}

// Error renders as "locus <id>: <op>: <kind sentinel>: <cause>". The locus
// prefix is omitted when unknown.
func (e *Error) Error() string {
	var b strings.Builder
	if e.Locus != "" {
		b.WriteString("locus ")
		b.WriteString(e.Locus)
		b.WriteString(": ")
	}
	b.WriteString(e.Op)
	if s, ok := kindSentinels[e.Kind]; ok {
		b.WriteString(": ")
		b.WriteString(s.Error())
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the sentinel of e's kind.
func (e *Error) Is(target error) bool {
	return kindSentinels[e.Kind] == target
}

// IsKind reports whether err wraps a *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var le *Error
	if errors.As(err, &le) {
		return le.Kind == kind
	}
	return false
}

func newError(op string, kind ErrorKind, locus string, format string, args ...interface{}) *Error {
	return &Error{Op: op, Kind: kind, Locus: locus, Err: fmt.Errorf(format, args...)}
}
