package unwrap

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Job is one mesh and the cache blob that belongs to it.
type Job struct {
	Mesh Mesh
	Blob []byte
}

// JobResult is the outcome of a Job. Blob is the blob to keep for the mesh;
// on error it is the job's input blob.
type JobResult struct {
	Result Result
	Blob   []byte
	Err    error
}

// UnwrapAll unwraps independent jobs concurrently.
//
// Each job owns its blob, so jobs never share cache state. Per-job failures,
// including ErrEmptyArea, are reported in JobResult.Err and do not stop other
// jobs. limit bounds the number of concurrent unwraps; values <= 0 use
// GOMAXPROCS. If ctx is canceled, jobs not yet started fail with ctx.Err()
// and UnwrapAll returns it.
func (s *Service) UnwrapAll(ctx context.Context, jobs []Job, limit int) ([]JobResult, error) {
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}
	out := make([]JobResult, len(jobs))

	var g errgroup.Group
	g.SetLimit(limit)
	for i := range jobs {
		g.Go(func() error {
			job := &jobs[i]
			if err := ctx.Err(); err != nil {
				out[i] = JobResult{Blob: job.Blob, Err: err}
				return nil
			}
			res, blob, err := s.Unwrap(job.Mesh, job.Blob)
			out[i] = JobResult{Result: res, Blob: blob, Err: err}
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // jobs report errors through out

	s.log().Debug("batch unwrap finished", "jobs", len(jobs), "limit", limit)
	return out, ctx.Err()
}
