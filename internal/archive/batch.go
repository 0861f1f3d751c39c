package archive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Job is one archive to fetch.
type Job struct {
	Name    string
	Dest    string
	Request RequestFunc
	// Unauthorized, when set, is called once after a 401 before the
	// request is rebuilt, e.g. to drop a cached token.
	Unauthorized func()
}

// JobError records a failed job.
type JobError struct {
	Name string
	Err  error
}

func (e *JobError) Error() string { return fmt.Sprintf("%s: %v", e.Name, e.Err) }
func (e *JobError) Unwrap() error { return e.Err }

// Result summarises a batch.
type Result struct {
	Downloaded int
	Skipped    int
	Bytes      int64
	Failed     []*JobError
}

// Err joins the job failures, or returns nil.
func (r *Result) Err() error {
	errs := make([]error, len(r.Failed))
	for i, f := range r.Failed {
		errs[i] = f
	}
	return errors.Join(errs...)
}

// Add merges another result into r.
func (r *Result) Add(o Result) {
	r.Downloaded += o.Downloaded
	r.Skipped += o.Skipped
	r.Bytes += o.Bytes
	r.Failed = append(r.Failed, o.Failed...)
}

// Run fetches jobs with at most concurrency transfers in flight. A failed
// job does not stop the others. The returned error is non-nil only when ctx
// is cancelled.
func (f *Fetcher) Run(ctx context.Context, jobs []Job, concurrency int) (Result, error) {
	if concurrency < 1 {
		concurrency = 1
	}

	var (
		mu  sync.Mutex
		res Result
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, job := range jobs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if Exists(job.Dest) {
				f.logger.InfoContext(gctx, "already downloaded", slog.String("name", job.Name))
				mu.Lock()
				res.Skipped++
				mu.Unlock()
				return nil
			}

			f.logger.InfoContext(gctx, "downloading",
				slog.String("name", job.Name),
				slog.Int("index", i+1),
				slog.Int("total", len(jobs)),
			)

			n, err := f.fetch(gctx, job.Request, job.Unauthorized, job.Dest)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case errors.Is(err, ErrAlreadyDownloaded):
				res.Skipped++
			case err != nil:
				if gctx.Err() != nil {
					return gctx.Err()
				}
				f.logger.ErrorContext(gctx, "download failed",
					slog.String("name", job.Name),
					slog.String("error", err.Error()),
				)
				res.Failed = append(res.Failed, &JobError{Name: job.Name, Err: err})
			default:
				res.Downloaded++
				res.Bytes += n
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return res, err
	}
	return res, ctx.Err()
}
