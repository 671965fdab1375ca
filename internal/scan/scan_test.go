package scan

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tw93/appsweep/internal/apps"
	"github.com/tw93/appsweep/internal/protect"
)

const infoPlistTemplate = `<?xml version="1.0" encoding="UTF-8"?>
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

func makeBundle(t *testing.T, root, rel, bundleID, displayName string) string {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Join(path, "Contents"), 0o755))
	if bundleID != "" {
		data := fmt.Sprintf(infoPlistTemplate, bundleID, displayName, displayName)
		require.NoError(t, os.WriteFile(filepath.Join(path, "Contents", "Info.plist"), []byte(data), 0o644))
	}
	return path
}

func discover(t *testing.T, root string, policy *protect.Policy) []Candidate {
	t.Helper()
	s := New([]string{root}, policy, zerolog.Nop())
	return s.Discover(context.Background())
}

func paths(candidates []Candidate) []string {
	var out []string
	for _, c := range candidates {
		out = append(out, c.Path)
	}
	return out
}

func TestDiscoverFindsTopLevelAndSubfolderBundles(t *testing.T) {
	root := t.TempDir()
	top := makeBundle(t, root, "Top.app", "com.example.top", "Top")
	sub := makeBundle(t, root, "Utilities/Deep.app", "com.example.deep", "Deep")

	got := discover(t, root, nil)
	assert.ElementsMatch(t, []string{top, sub}, paths(got))
}

func TestDiscoverSkipsNestedBundles(t *testing.T) {
	root := t.TempDir()
	outer := makeBundle(t, root, "Outer.app", "com.example.outer", "Outer")
	makeBundle(t, root, "Outer.app/Contents/Inner.app", "com.example.inner", "Inner")

	got := discover(t, root, nil)
	assert.Equal(t, []string{outer}, paths(got))
}

func TestDiscoverKeepsSuffixSubstringFolders(t *testing.T) {
	// "Old.apps" only contains the suffix as a substring, not at a segment
	// boundary, so bundles beneath it are legitimate candidates.
	root := t.TempDir()
	target := makeBundle(t, root, "Old.apps/Target.app", "com.example.target", "Target")

	got := discover(t, root, nil)
	assert.Equal(t, []string{target}, paths(got))
}

func TestNestedInBundleRule(t *testing.T) {
	tests := []struct {
		name string
		path string
		want bool
	}{
		{"true nesting", "/Applications/Outer.app/Contents/Inner.app", true},
		{"substring folder", "/Applications/Old.apps/Target.app", false},
		{"top level", "/Applications/Plain.app", false},
		{"deep nesting", "/Applications/A.app/B/C/D.app", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NestedInBundle("/Applications", tt.path))
		})
	}
}

func TestDiscoverUnreadableManifestYieldsUnknown(t *testing.T) {
	root := t.TempDir()
	makeBundle(t, root, "NoPlist.app", "", "")

	got := discover(t, root, nil)
	require.Len(t, got, 1)
	assert.Equal(t, apps.UnknownBundleID, got[0].BundleID)
	assert.Equal(t, "NoPlist", got[0].FolderName)
}

func TestDiscoverFiltersProtectedBundles(t *testing.T) {
	root := t.TempDir()
	makeBundle(t, root, "Safari.app", "com.apple.Safari", "Safari")
	keep := makeBundle(t, root, "Editor.app", "com.example.editor", "Editor")

	got := discover(t, root, protect.New())
	assert.Equal(t, []string{keep}, paths(got))
}

func TestDiscoverReadsManifestFields(t *testing.T) {
	root := t.TempDir()
	makeBundle(t, root, "Named.app", "com.example.named", "Nice Name")

	got := discover(t, root, nil)
	require.Len(t, got, 1)
	assert.Equal(t, "com.example.named", got[0].BundleID)
	assert.Equal(t, "Nice Name", got[0].DisplayName)
}

func TestDiscoverMissingRootIsNotAnError(t *testing.T) {
	got := discover(t, filepath.Join(t.TempDir(), "nope"), nil)
	assert.Empty(t, got)
}

func TestDiscoverIgnoresPlainFilesWithSuffix(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "NotADir.app"), []byte("x"), 0o644))

	got := discover(t, root, nil)
	assert.Empty(t, got)
}
