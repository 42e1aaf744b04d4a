package moviehash

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Result captures the outcome of hashing one path.
type Result struct {
	Path        string
	Fingerprint Fingerprint
	Size        int64
	Err         error
}

// OK reports whether the path was fingerprinted.
func (r Result) OK() bool {
	return r.Err == nil
}

// HashFiles fingerprints paths with at most workers concurrent files. Results
// are returned in input order. Once ctx is cancelled no further files are
// started and the remaining results carry ctx.Err().
func HashFiles(ctx context.Context, paths []string, workers int) []Result {
	return defaultHasher.HashFiles(ctx, paths, workers)
}

// HashFiles is the Hasher-specific form of the package level HashFiles.
func (h *Hasher) HashFiles(ctx context.Context, paths []string, workers int) []Result {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	results := make([]Result, len(paths))

	var g errgroup.Group
	g.SetLimit(workers)
	for i, path := range paths {
		results[i].Path = path
		if err := ctx.Err(); err != nil {
			results[i].Err = err
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}
			fp, size, err := h.HashFile(path)
			results[i].Fingerprint = fp
			results[i].Size = size
			results[i].Err = err
			return nil
		})
	}
	_ = g.Wait()
	return results
}
