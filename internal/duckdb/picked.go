package duckdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"

	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/inodb/vibe-locus/internal/locus"
	"github.com/inodb/vibe-locus/internal/scoring"
	"github.com/inodb/vibe-locus/internal/transcript"
)

// withAppender runs fn with an appender on table and flushes it.
func (s *Store) withAppender(table string, fn func(*goduckdb.Appender) error) error {
	conn, err := s.db.Conn(context.Background())
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", table)
		return err
	}); err != nil {
		return fmt.Errorf("create appender: %w", err)
	}
	defer appender.Close()

	if err := fn(appender); err != nil {
		return err
	}
	return appender.Flush()
}

// WritePicked appends the members of finalized loci to picked_transcripts.
func (s *Store) WritePicked(loci ...*locus.Locus) error {
	var rows []locus.MemberRow
	for _, l := range loci {
		rows = append(rows, l.MemberRows()...)
	}
	if len(rows) == 0 {
		return nil
	}
	return s.withAppender("picked_transcripts", func(a *goduckdb.Appender) error {
		for _, r := range rows {
			if err := a.AppendRow(
				r.LocusID, r.TID, r.Alias, r.Chrom, string(r.Strand), r.Start, r.End,
				r.Kind, r.Feature, r.IsPrimary, r.Score, r.ClassCode, r.Padded,
				transcript.FormatIntervals(r.Exons), transcript.FormatORFs(r.ORFs),
			); err != nil {
				return fmt.Errorf("append picked transcript %s: %w", r.TID, err)
			}
		}
		return nil
	})
}

// WriteScoreRows appends score breakdowns to locus_scores and their
// per-metric components to score_components.
func (s *Store) WriteScoreRows(rows []scoring.Row) error {
	if len(rows) == 0 {
		return nil
	}
	if err := s.withAppender("locus_scores", func(a *goduckdb.Appender) error {
		for _, r := range rows {
			if err := a.AppendRow(r.TID, r.Alias, r.Parent, r.Score, r.Passing); err != nil {
				return fmt.Errorf("append score row %s: %w", r.TID, err)
			}
		}
		return nil
	}); err != nil {
		return err
	}

	names := scoring.ComponentNames(rows)
	if len(names) == 0 {
		return nil
	}
	return s.withAppender("score_components", func(a *goduckdb.Appender) error {
		for _, r := range rows {
			for _, name := range names {
				v, ok := r.Components[name]
				if !ok {
					continue
				}
				if err := a.AppendRow(r.Parent, r.TID, name, v); err != nil {
					return fmt.Errorf("append score component %s/%s: %w", r.TID, name, err)
				}
			}
		}
		return nil
	})
}

// ClearOutputs removes every picked transcript and score row so a run
// can be repeated against the same database.
func (s *Store) ClearOutputs() error {
	for _, table := range []string{"picked_transcripts", "locus_scores", "score_components"} {
		if _, err := s.db.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return nil
}

// LookupPicked returns the stored members of a locus, primary first.
func (s *Store) LookupPicked(locusID string) ([]locus.MemberRow, error) {
	rows, err := s.db.Query(`SELECT
		locus_id, tid, alias, chrom, strand, start, "end", kind, feature,
		is_primary, score, ccode, padded, exons, orfs
		FROM picked_transcripts
		WHERE locus_id=?
		ORDER BY is_primary DESC, tid`, locusID)
	if err != nil {
		return nil, fmt.Errorf("query picked transcripts: %w", err)
	}
	defer rows.Close()

	var out []locus.MemberRow
	for rows.Next() {
		var r locus.MemberRow
		var strand, exons, orfs string
		if err := rows.Scan(
			&r.LocusID, &r.TID, &r.Alias, &r.Chrom, &strand, &r.Start, &r.End,
			&r.Kind, &r.Feature, &r.IsPrimary, &r.Score, &r.ClassCode, &r.Padded,
			&exons, &orfs,
		); err != nil {
			return nil, fmt.Errorf("scan picked transcript: %w", err)
		}
		r.Strand = transcript.ParseStrand(strand)
		if r.Exons, err = transcript.ParseIntervals(exons); err != nil {
			return nil, fmt.Errorf("picked transcript %s exons: %w", r.TID, err)
		}
		if r.ORFs, err = transcript.ParseORFs(orfs); err != nil {
			return nil, fmt.Errorf("picked transcript %s orfs: %w", r.TID, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate picked transcripts: %w", err)
	}
	return out, nil
}

// LookupScores returns the score rows of a locus, with components, by tid.
func (s *Store) LookupScores(parent string) ([]scoring.Row, error) {
	rows, err := s.db.Query(`SELECT tid, alias, parent, score, passing
		FROM locus_scores
		WHERE parent=?
		ORDER BY tid`, parent)
	if err != nil {
		return nil, fmt.Errorf("query locus scores: %w", err)
	}
	defer rows.Close()

	var out []scoring.Row
	index := make(map[string]int)
	for rows.Next() {
		var r scoring.Row
		if err := rows.Scan(&r.TID, &r.Alias, &r.Parent, &r.Score, &r.Passing); err != nil {
			return nil, fmt.Errorf("scan locus score: %w", err)
		}
		r.Components = make(map[string]float64)
		index[r.TID] = len(out)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate locus scores: %w", err)
	}

	comps, err := s.db.Query(`SELECT tid, metric, value
		FROM score_components
		WHERE parent=?`, parent)
	if err != nil {
		return nil, fmt.Errorf("query score components: %w", err)
	}
	defer comps.Close()
	if err := scanComponents(comps, out, index); err != nil {
		return nil, err
	}
	return out, nil
}

func scanComponents(rows *sql.Rows, out []scoring.Row, index map[string]int) error {
	for rows.Next() {
		var tid, metric string
		var v float64
		if err := rows.Scan(&tid, &metric, &v); err != nil {
			return fmt.Errorf("scan score component: %w", err)
		}
		if i, ok := index[tid]; ok {
			out[i].Components[metric] = v
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate score components: %w", err)
	}
	return nil
}
