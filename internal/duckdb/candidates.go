package duckdb

import (
	"fmt"

	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/inodb/vibe-locus/internal/pick"
	"github.com/inodb/vibe-locus/internal/transcript"
)

// Candidate is a transcript assigned to a locus in the candidates table.
type Candidate struct {
	LocusID    string
	IsPrimary  bool
	Transcript *transcript.Transcript
}

// InsertCandidates batch-inserts candidates using the Appender API.
func (s *Store) InsertCandidates(cands []Candidate) error {
	if len(cands) == 0 {
		return nil
	}

	return s.withAppender("candidates", func(a *goduckdb.Appender) error {
		for _, c := range cands {
			t := c.Transcript
			if err := a.AppendRow(
				t.ID, c.LocusID, t.Chrom, string(t.Strand), t.SourceScore,
				t.IsReference, c.IsPrimary,
				transcript.FormatIntervals(t.Exons()), transcript.FormatORFs(t.ORFs()),
				transcript.FormatIntervals(t.VerifiedIntrons.Sorted()),
			); err != nil {
				return fmt.Errorf("append candidate %s: %w", t.ID, err)
			}
		}
		return nil
	})
}

// LoadJobs reads the candidates table and groups it into one job per
// locus, ordered by locus id. Each locus needs exactly one primary row.
// Transcripts are returned as drafts; the locus validates them on entry.
func (s *Store) LoadJobs() ([]pick.Job, error) {
	rows, err := s.db.Query(`SELECT
		tid, locus_id, chrom, strand, score, is_reference, is_primary,
		exons, orfs, verified_introns
		FROM candidates
		ORDER BY locus_id, tid`)
	if err != nil {
		return nil, fmt.Errorf("query candidates: %w", err)
	}
	defer rows.Close()

	var jobs []pick.Job
	for rows.Next() {
		var (
			tid, locusID, chrom, strand  string
			score                        float64
			isReference, isPrimary       bool
			exons, orfs, verifiedIntrons string
		)
		if err := rows.Scan(&tid, &locusID, &chrom, &strand, &score,
			&isReference, &isPrimary, &exons, &orfs, &verifiedIntrons); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}

		t, err := transcript.Decode(tid, chrom, strand, exons, orfs, verifiedIntrons)
		if err != nil {
			return nil, fmt.Errorf("candidate %s in %s: %w", tid, locusID, err)
		}
		t.SourceScore = score
		t.IsReference = isReference

		if len(jobs) == 0 || jobs[len(jobs)-1].Name != locusID {
			jobs = append(jobs, pick.Job{Seq: len(jobs), Name: locusID})
		}
		job := &jobs[len(jobs)-1]
		if isPrimary {
			if job.Primary != nil {
				return nil, fmt.Errorf("locus %s: primaries %s and %s", locusID, job.Primary.ID, tid)
			}
			job.Primary = t
			continue
		}
		job.Candidates = append(job.Candidates, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candidates: %w", err)
	}

	for _, j := range jobs {
		if j.Primary == nil {
			return nil, fmt.Errorf("locus %s has no primary transcript", j.Name)
		}
	}
	return jobs, nil
}
