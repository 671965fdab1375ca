package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tw93/appsweep/internal/apps"
	"github.com/tw93/appsweep/internal/cache"
	"github.com/tw93/appsweep/internal/enrich"
	"github.com/tw93/appsweep/internal/scan"
)

const infoPlist = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>CFBundleIdentifier</key>
	<string>%s</string>
	<key>CFBundleDisplayName</key>
	<string>%s</string>
	<key>CFBundleName</key>
	<string>%s</string>
</dict>
</plist>
`

func makeBundle(t *testing.T, root, name, bundleID string) string {
	t.Helper()
	path := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(filepath.Join(path, "Contents"), 0o755))
	display := name[:len(name)-len(".app")]
	data := fmt.Sprintf(infoPlist, bundleID, display, display)
	require.NoError(t, os.WriteFile(filepath.Join(path, "Contents", "Info.plist"), []byte(data), 0o644))
	return path
}

// stubProber answers from canned last-used times keyed by folder name.
type stubProber struct {
	lastUsed map[string]time.Time
}

func (p *stubProber) DisplayName(ctx context.Context, path string) (string, error) {
	return "", nil
}

func (p *stubProber) SizeKB(ctx context.Context, path string) (int64, error) {
	return 2048, nil
}

func (p *stubProber) LastUsed(ctx context.Context, path string) (time.Time, error) {
	if ts, ok := p.lastUsed[filepath.Base(path)]; ok {
		return ts, nil
	}
	return time.Time{}, nil
}

type recordingReporter struct {
	startedTotal int64
	stopped      bool
}

func (r *recordingReporter) Start(total int64, current func() int64) { r.startedTotal = total }
func (r *recordingReporter) Stop()                                   { r.stopped = true }

func newRunner(t *testing.T, root string, prober enrich.Prober) (*Runner, *recordingReporter) {
	t.Helper()
	rep := &recordingReporter{}
	return &Runner{
		Store:      cache.New(t.TempDir(), []string{root}),
		Scanner:    scan.New([]string{root}, nil, zerolog.Nop()),
		Pool:       enrich.NewPool(8, prober, zerolog.Nop()),
		Progress:   rep,
		TTLSeconds: cache.DefaultTTLSeconds,
		Log:        zerolog.Nop(),
	}, rep
}

func TestRunScansSortsAndCaches(t *testing.T) {
	root := t.TempDir()
	makeBundle(t, root, "Older.app", "com.example.older")
	makeBundle(t, root, "Newer.app", "com.example.newer")

	now := time.Now()
	prober := &stubProber{lastUsed: map[string]time.Time{
		"Older.app": now.Add(-90 * 24 * time.Hour),
		"Newer.app": now.Add(-2 * time.Hour),
	}}

	r, rep := newRunner(t, root, prober)
	records, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)

	// Ascending by last use: the long-idle bundle leads.
	assert.Equal(t, "Older", records[0].DisplayName)
	assert.Equal(t, "Newer", records[1].DisplayName)

	assert.Equal(t, int64(2), rep.startedTotal)
	assert.True(t, rep.stopped)

	// The scan result is persisted for the next invocation.
	_, err = os.Stat(r.Store.Path())
	require.NoError(t, err)
}

func TestRunServesFreshCache(t *testing.T) {
	root := t.TempDir()
	makeBundle(t, root, "Live.app", "com.example.live")

	r, rep := newRunner(t, root, &stubProber{})
	cached := []apps.Record{{
		LastUsedEpoch: 100,
		Path:          filepath.Join(root, "Live.app"),
		DisplayName:   "Cached Name",
		BundleID:      "com.example.live",
		SizeHuman:     "2.0MB",
		LastUsedLabel: "Today",
		SizeKB:        2048,
	}}
	require.NoError(t, r.Store.Save(cached))

	records, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Cached Name", records[0].DisplayName)
	// The cache fast path never touches the scan pipeline.
	assert.Zero(t, rep.startedTotal)
}

func TestRunForceBypassesCache(t *testing.T) {
	root := t.TempDir()
	makeBundle(t, root, "Live.app", "com.example.live")

	r, _ := newRunner(t, root, &stubProber{})
	stale := []apps.Record{{
		LastUsedEpoch: 100,
		Path:          filepath.Join(root, "Live.app"),
		DisplayName:   "Cached Name",
		BundleID:      "com.example.live",
		SizeHuman:     "N/A",
		LastUsedLabel: "Never",
	}}
	require.NoError(t, r.Store.Save(stale))
	r.Force = true

	records, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Live", records[0].DisplayName)
}

func TestRunEmptyRootReturnsErrNoCandidates(t *testing.T) {
	root := t.TempDir()
	r, _ := newRunner(t, root, &stubProber{})

	_, err := r.Run(context.Background())
	require.ErrorIs(t, err, ErrNoCandidates)

	// An empty result must not clobber the cache slot.
	_, statErr := os.Stat(r.Store.Path())
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunCorruptCacheFallsBackToScan(t *testing.T) {
	root := t.TempDir()
	makeBundle(t, root, "Live.app", "com.example.live")

	r, _ := newRunner(t, root, &stubProber{})
	require.NoError(t, os.WriteFile(r.Store.Path(), []byte("#appsweep/v99\ngarbage\n"), 0o644))

	records, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Live", records[0].DisplayName)
}

// cancellingProber pulls the plug from inside the first probe, the way an
// interrupt lands while workers are mid-flight.
type cancellingProber struct {
	stubProber
	cancel context.CancelFunc
}

func (p *cancellingProber) SizeKB(ctx context.Context, path string) (int64, error) {
	p.cancel()
	return 0, ctx.Err()
}

func TestRunCancelledMidEnrichmentStopsReporter(t *testing.T) {
	root := t.TempDir()
	makeBundle(t, root, "Live.app", "com.example.live")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r, rep := newRunner(t, root, &cancellingProber{cancel: cancel})
	_, err := r.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	// The progress line must be torn down even on the cancellation path.
	assert.True(t, rep.stopped)
}

func TestRunHonorsCancelledContext(t *testing.T) {
	root := t.TempDir()
	makeBundle(t, root, "Live.app", "com.example.live")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r, _ := newRunner(t, root, &stubProber{})
	_, err := r.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
