package scoring

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/PaesslerAG/gval"
)

// ErrExpression is returned when a requirement expression cannot be compiled.
var ErrExpression = errors.New("invalid requirement expression")

// Predicate decides whether a transcript described by its metrics passes a
// requirement.
type Predicate interface {
	Eval(m Metrics) (bool, error)
}

// PredicateFunc adapts a function to the Predicate interface.
type PredicateFunc func(m Metrics) (bool, error)

// Eval calls f(m).
func (f PredicateFunc) Eval(m Metrics) (bool, error) {
	return f(m)
}

// Always is a Predicate that accepts every transcript.
var Always Predicate = PredicateFunc(func(Metrics) (bool, error) { return true, nil })

var (
	wordAnd = regexp.MustCompile(`\band\b`)
	wordOr  = regexp.MustCompile(`\bor\b`)
	wordNot = regexp.MustCompile(`\bnot\b`)

	quoted     = regexp.MustCompile(`"(?:[^"\\]|\\.)*"|'(?:[^'\\]|\\.)*'`)
	identifier = regexp.MustCompile(`(?:^|[^A-Za-z0-9_.])([A-Za-z_][A-Za-z0-9_]*)`)
)

var keywords = map[string]bool{
	"and": true, "or": true, "not": true,
	"true": true, "false": true, "in": true, "nil": true,
}

// Expression is a compiled boolean expression over metric names, such as
// "exon_num > 1 and cdna_length >= 200".
type Expression struct {
	source string
	eval   gval.Evaluable
}

// CompileExpression parses expr. The words and, or, not are accepted in
// place of &&, ||, !. Every identifier must name a metric, and the
// expression must yield a boolean on a zero-valued metric set.
// An empty expression compiles to Always.
func CompileExpression(expr string) (Predicate, error) {
	src := strings.TrimSpace(expr)
	if src == "" {
		return Always, nil
	}
	if err := checkIdentifiers(src); err != nil {
		return nil, err
	}
	normalized := wordAnd.ReplaceAllString(src, "&&")
	normalized = wordOr.ReplaceAllString(normalized, "||")
	normalized = wordNot.ReplaceAllString(normalized, "!")

	eval, err := gval.Full().NewEvaluable(normalized)
	if err != nil {
		return nil, fmt.Errorf("%q: %v: %w", src, err, ErrExpression)
	}
	e := &Expression{source: src, eval: eval}
	if _, err := e.Eval(Zero()); err != nil {
		return nil, fmt.Errorf("%q: %v: %w", src, err, ErrExpression)
	}
	return e, nil
}

// checkIdentifiers rejects names that are neither keywords nor metrics.
// gval resolves a missing variable to nil, which compares without error.
func checkIdentifiers(src string) error {
	bare := quoted.ReplaceAllString(src, `""`)
	for _, m := range identifier.FindAllStringSubmatch(bare, -1) {
		name := m[1]
		if keywords[name] || IsMetric(name) {
			continue
		}
		return fmt.Errorf("%q: unknown metric %q: %w", src, name, ErrExpression)
	}
	return nil
}

// Eval evaluates the expression against m.
func (e *Expression) Eval(m Metrics) (bool, error) {
	params := make(map[string]interface{}, len(m))
	for k, v := range m {
		params[k] = v
	}
	ok, err := e.eval.EvalBool(context.Background(), params)
	if err != nil {
		return false, fmt.Errorf("evaluate %q: %w", e.source, err)
	}
	return ok, nil
}

func (e *Expression) String() string {
	return e.source
}
