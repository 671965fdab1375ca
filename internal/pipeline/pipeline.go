// Package pipeline ties discovery, enrichment, and the scan cache into one
// aggregation flow.
package pipeline

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/tw93/appsweep/internal/apps"
	"github.com/tw93/appsweep/internal/cache"
	"github.com/tw93/appsweep/internal/enrich"
	"github.com/tw93/appsweep/internal/scan"
)

// ErrNoCandidates reports that discovery finished without finding a single
// application bundle. Distinct from a cache miss: the caller should not fall
// back to anything, there is simply nothing to show.
var ErrNoCandidates = errors.New("no application bundles found")

// Reporter is the slice of the progress UI the pipeline drives. Satisfied by
// progress.Reporter; tests substitute a recorder.
type Reporter interface {
	Start(total int64, current func() int64)
	Stop()
}

type noopReporter struct{}

func (noopReporter) Start(int64, func() int64) {}
func (noopReporter) Stop()                     {}

// Runner aggregates installed applications, consulting the cache first.
type Runner struct {
	Store    *cache.Store
	Scanner  *scan.Scanner
	Pool     *enrich.Pool
	Progress Reporter

	// TTLSeconds bounds cache age; Force bypasses the cache entirely.
	TTLSeconds int64
	Force      bool

	Log zerolog.Logger
}

// Run returns the application list, freshest-last. The cache is used when it
// is younger than the TTL; otherwise a full scan runs and its result replaces
// the cache. A cache that fails to load or save is logged and ignored, never
// fatal.
func (r *Runner) Run(ctx context.Context) ([]apps.Record, error) {
	if r.TTLSeconds <= 0 {
		r.TTLSeconds = cache.DefaultTTLSeconds
	}
	if r.Progress == nil {
		r.Progress = noopReporter{}
	}

	if !r.Force && r.Store != nil && r.Store.Fresh(r.TTLSeconds) {
		records, err := r.Store.Load()
		if err == nil {
			r.Log.Debug().Int("count", len(records)).Msg("serving cached scan")
			return records, nil
		}
		r.Log.Warn().Err(err).Str("path", r.Store.Path()).Msg("cache unreadable, rescanning")
	}

	candidates := r.Scanner.Discover(ctx)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, ErrNoCandidates
	}

	r.Progress.Start(int64(len(candidates)), r.Pool.Dispatched)
	records := r.Pool.Enrich(ctx, candidates)
	r.Progress.Stop()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	apps.SortByLastUsed(records)

	if r.Store != nil && len(records) > 0 {
		if err := r.Store.Save(records); err != nil {
			r.Log.Warn().Err(err).Str("path", r.Store.Path()).Msg("cache write failed")
		}
	}

	return records, nil
}
