package pick

import (
	"runtime"
	"sync"

	"go.uber.org/zap"

	"github.com/inodb/vibe-locus/internal/locus"
)

// Result holds the outcome of a single job.
type Result struct {
	Seq     int
	Job     Job
	Locus   *locus.Locus
	Skipped bool // the input was anomalous and the locus was dropped
	Err     error
}

// ParallelPick runs jobs using a pool of workers.
// Results are sent to the returned channel in arrival order (not sequence order).
// Use OrderedCollect to consume results in sequence-number order.
// If workers is 0, runtime.NumCPU() is used.
func (p *Picker) ParallelPick(jobs <-chan Job, workers int) <-chan Result {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	results := make(chan Result, 2*workers)

	var wg sync.WaitGroup
	wg.Add(workers)

	for range workers {
		go func() {
			defer wg.Done()
			for job := range jobs {
				results <- p.run(job)
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	return results
}

// run picks one job. Data anomalies skip the locus; any other error is
// reported in the result.
func (p *Picker) run(job Job) Result {
	l, err := p.Pick(job)
	if err == nil {
		return Result{Seq: job.Seq, Job: job, Locus: l}
	}
	if locus.IsKind(err, locus.KindDataAnomaly) {
		id := ""
		if job.Primary != nil {
			id = job.Primary.ID
		}
		p.logger.Warn("skipping locus with anomalous input",
			zap.Int("seq", job.Seq),
			zap.String("primary", id),
			zap.Error(err))
		return Result{Seq: job.Seq, Job: job, Skipped: true}
	}
	return Result{Seq: job.Seq, Job: job, Err: err}
}

// OrderedCollect calls fn for each result in sequence-number order.
// It buffers out-of-order results in a pending map and emits them
// as soon as the next expected sequence number is available.
// Blocks until the results channel is closed.
func OrderedCollect(results <-chan Result, fn func(Result) error) error {
	pending := make(map[int]Result)
	nextSeq := 0

	for r := range results {
		pending[r.Seq] = r

		for {
			rr, ok := pending[nextSeq]
			if !ok {
				break
			}
			delete(pending, nextSeq)
			nextSeq++
			if err := fn(rr); err != nil {
				// Drain remaining results to unblock workers.
				for range results {
				}
				return err
			}
		}
	}

	return nil
}
