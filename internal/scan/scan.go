// Package scan walks the application directories and yields candidate
// bundles with their cheap identity fields. Nothing expensive happens here;
// metadata enrichment is internal/enrich's job.
package scan

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"howett.net/plist"

	"github.com/tw93/appsweep/internal/apps"
	"github.com/tw93/appsweep/internal/protect"
)

// BundleSuffix marks an application bundle directory.
const BundleSuffix = ".app"

// maxDepth bounds how many path segments below a root a bundle may sit
// (e.g. /Applications/Utilities/Thing.app).
const maxDepth = 3

// Candidate is one discovered bundle with the identity fields a fast
// manifest read provides. The plist name fields ride along so the enrichment
// fallback chain never re-reads the manifest.
type Candidate struct {
	Path        string
	FolderName  string // bundle folder name without the suffix
	BundleID    string
	DisplayName string // CFBundleDisplayName, may be empty
	BundleName  string // CFBundleName, may be empty
}

// DefaultRoots returns the fixed scan roots: the system applications
// directory and the per-user one.
func DefaultRoots() []string {
	roots := []string{"/Applications"}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		roots = append(roots, filepath.Join(home, "Applications"))
	}
	return roots
}

// Scanner performs the discovery pass over a root set.
type Scanner struct {
	roots  []string
	policy *protect.Policy
	log    zerolog.Logger
}

// New returns a scanner over the given roots; nil roots means DefaultRoots.
func New(roots []string, policy *protect.Policy, log zerolog.Logger) *Scanner {
	if len(roots) == 0 {
		roots = DefaultRoots()
	}
	return &Scanner{roots: roots, policy: policy, log: log}
}

// Stream walks the roots and sends candidates as they are found. The channel
// is closed when the walk finishes or ctx is cancelled; re-invoke to re-walk.
func (s *Scanner) Stream(ctx context.Context) <-chan Candidate {
	out := make(chan Candidate)
	go func() {
		defer close(out)
		for _, root := range s.roots {
			s.walk(ctx, root, root, 1, out)
		}
	}()
	return out
}

// Discover collects the whole stream into a slice.
func (s *Scanner) Discover(ctx context.Context) []Candidate {
	var candidates []Candidate
	for c := range s.Stream(ctx) {
		candidates = append(candidates, c)
	}
	return candidates
}

func (s *Scanner) walk(ctx context.Context, root, dir string, depth int, out chan<- Candidate) {
	if depth > maxDepth {
		return
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		// Roots may be absent (no ~/Applications) or racing with the live
		// filesystem; both are expected.
		return
	}
	for _, entry := range entries {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if !entry.IsDir() {
			continue
		}
		full := filepath.Join(dir, entry.Name())
		if strings.HasSuffix(entry.Name(), BundleSuffix) {
			if NestedInBundle(root, full) {
				continue
			}
			if c, ok := s.inspect(full); ok {
				out <- c
			}
			// Never descend into a bundle: anything inside is a helper,
			// not an installed application.
			continue
		}
		s.walk(ctx, root, full, depth+1, out)
	}
}

func (s *Scanner) inspect(path string) (Candidate, bool) {
	// The entry may have vanished between listing and inspection.
	if _, err := os.Stat(path); err != nil {
		return Candidate{}, false
	}
	c := Candidate{
		Path:       path,
		FolderName: strings.TrimSuffix(filepath.Base(path), BundleSuffix),
	}
	c.BundleID, c.DisplayName, c.BundleName = readManifest(path)
	if s.policy.Protected(c.BundleID) {
		s.log.Debug().Str("bundle", c.BundleID).Msg("skipping protected application")
		return Candidate{}, false
	}
	return c, true
}

// NestedInBundle reports whether any path segment strictly between root and
// path carries the bundle suffix. Only segment-boundary matches count:
// /Applications/Outer.app/Contents/Inner.app is nested, while
// /Applications/Old.apps/Target.app is not.
func NestedInBundle(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	segments := strings.Split(filepath.ToSlash(rel), "/")
	for _, seg := range segments[:len(segments)-1] {
		if strings.HasSuffix(seg, BundleSuffix) {
			return true
		}
	}
	return false
}

type manifest struct {
	BundleID    string `plist:"CFBundleIdentifier"`
	DisplayName string `plist:"CFBundleDisplayName"`
	Name        string `plist:"CFBundleName"`
}

// readManifest does the fast identity read: Contents/Info.plist, XML or
// binary. Unreadable manifests yield the unknown sentinel.
func readManifest(bundlePath string) (id, displayName, name string) {
	data, err := os.ReadFile(filepath.Join(bundlePath, "Contents", "Info.plist"))
	if err != nil {
		return apps.UnknownBundleID, "", ""
	}
	var m manifest
	if err := plist.NewDecoder(bytes.NewReader(data)).Decode(&m); err != nil {
		return apps.UnknownBundleID, "", ""
	}
	if strings.TrimSpace(m.BundleID) == "" {
		m.BundleID = apps.UnknownBundleID
	}
	return strings.TrimSpace(m.BundleID), strings.TrimSpace(m.DisplayName), strings.TrimSpace(m.Name)
}
