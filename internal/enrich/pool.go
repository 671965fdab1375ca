// Package enrich turns discovered candidates into complete records using a
// bounded pool of concurrent workers. Workers are isolated: a timeout or
// probe failure on one candidate degrades that record to fallbacks and never
// aborts the batch.
package enrich

import (
	"context"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/tw93/appsweep/internal/apps"
	"github.com/tw93/appsweep/internal/scan"
	"github.com/tw93/appsweep/internal/tuner"
)

// Pool enriches candidates with a sliding window of in-flight workers: new
// work is admitted as soon as any slot frees, rather than in strict batches.
type Pool struct {
	workers    int
	prober     Prober
	log        zerolog.Logger
	now        func() time.Time
	dispatched atomic.Int64
}

// NewPool builds a pool. The worker count is clamped to the supported range
// no matter what the caller asks for.
func NewPool(workers int, prober Prober, log zerolog.Logger) *Pool {
	return &Pool{
		workers: tuner.Clamp(workers),
		prober:  prober,
		log:     log,
		now:     time.Now,
	}
}

// Workers returns the effective pool size.
func (p *Pool) Workers() int { return p.workers }

// Dispatched returns how many candidates have been handed to workers so far.
// The progress reporter polls this from its own goroutine.
func (p *Pool) Dispatched() int64 { return p.dispatched.Load() }

// Enrich produces one record per candidate. Completion order is arbitrary;
// callers needing a total order sort afterwards. Returns whatever completed
// if ctx is cancelled mid-flight.
func (p *Pool) Enrich(ctx context.Context, candidates []scan.Candidate) []apps.Record {
	sem := semaphore.NewWeighted(int64(p.workers))
	results := make(chan apps.Record, len(candidates))

	var wg sync.WaitGroup
	for _, c := range candidates {
		// Blocks while the window is saturated; any completing worker
		// frees a slot.
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		p.dispatched.Add(1)
		wg.Add(1)
		go func(c scan.Candidate) {
			defer wg.Done()
			defer sem.Release(1)
			results <- p.enrichOne(ctx, c)
		}(c)
	}

	wg.Wait()
	close(results)

	records := make([]apps.Record, 0, len(candidates))
	for rec := range results {
		records = append(records, rec)
	}
	return records
}

func (p *Pool) enrichOne(ctx context.Context, c scan.Candidate) apps.Record {
	rec := apps.Record{
		Path:        c.Path,
		BundleID:    c.BundleID,
		DisplayName: p.resolveName(ctx, c),
	}

	kb, err := p.prober.SizeKB(ctx, c.Path)
	if err != nil {
		p.log.Debug().Err(err).Str("path", c.Path).Msg("size probe failed")
		kb = 0
	}
	rec.SizeKB = kb
	rec.SizeHuman = apps.HumanizeKB(kb)

	rec.LastUsedEpoch = p.resolveLastUsed(ctx, c.Path)
	rec.LastUsedLabel = apps.RelativeLabel(rec.LastUsedEpoch, p.now())

	return rec.Sanitize()
}

// resolveName walks the display-name priority chain: localized metadata
// name, bundle display name, bundle name, folder name. A metadata answer
// that is empty, path-shaped, or merely repeats the folder name falls
// through to the cheaper sources.
func (p *Pool) resolveName(ctx context.Context, c scan.Candidate) string {
	if name, err := p.prober.DisplayName(ctx, c.Path); err == nil {
		name = strings.TrimSpace(name)
		if name != "" && !apps.LooksLikePath(name) && apps.SanitizeName(name) != c.FolderName {
			return name
		}
	} else {
		p.log.Debug().Err(err).Str("path", c.Path).Msg("name lookup fell back")
	}
	if c.DisplayName != "" {
		return c.DisplayName
	}
	if c.BundleName != "" {
		return c.BundleName
	}
	return c.FolderName
}

// resolveLastUsed prefers the metadata service and falls back to the
// bundle's filesystem modification time. Zero means genuinely unknown.
func (p *Pool) resolveLastUsed(ctx context.Context, path string) int64 {
	if t, err := p.prober.LastUsed(ctx, path); err == nil && !t.IsZero() {
		return t.Unix()
	}
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	mod := info.ModTime()
	if mod.IsZero() || mod.Unix() <= 0 {
		return 0
	}
	return mod.Unix()
}
