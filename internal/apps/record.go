package apps

import (
	"path/filepath"
	"sort"
	"strings"
)

const (
	// FieldDelimiter joins the serialized record fields. No field value may
	// ever contain it; see SanitizeField.
	FieldDelimiter = "|"

	// UnknownBundleID marks bundles whose manifest could not be read.
	UnknownBundleID = "unknown"

	// SizeUnknown marks bundles whose size could not be measured.
	SizeUnknown = "N/A"
)

// Record is one discovered application with its enrichment metadata.
type Record struct {
	LastUsedEpoch int64  // seconds; 0 = never used / unknown
	Path          string // absolute bundle path
	DisplayName   string
	BundleID      string
	SizeHuman     string
	LastUsedLabel string
	SizeKB        int64
}

// SanitizeField makes a value safe for the line/delimiter cache format: the
// delimiter, tabs, carriage returns, and newlines are removed.
func SanitizeField(s string) string {
	r := strings.NewReplacer(FieldDelimiter, " ", "\t", " ", "\r", "", "\n", " ")
	return strings.TrimSpace(r.Replace(s))
}

// SanitizeName additionally strips path-like prefixes, so a metadata service
// that answers with a filesystem path never leaks one into a display name.
func SanitizeName(s string) string {
	s = SanitizeField(s)
	if strings.Contains(s, "/") {
		s = filepath.Base(s)
	}
	return strings.TrimSuffix(s, ".app")
}

// LooksLikePath reports whether a metadata value is path-shaped and must be
// rejected as a display name.
func LooksLikePath(s string) bool {
	s = strings.TrimSpace(s)
	return strings.HasPrefix(s, "/") || strings.HasPrefix(s, "~/") || strings.Contains(s, "/")
}

// Sanitize returns a copy of the record with every serialized field made
// line-safe. Called before a record is ever written.
func (r Record) Sanitize() Record {
	r.Path = SanitizeField(r.Path)
	r.DisplayName = SanitizeName(r.DisplayName)
	r.BundleID = SanitizeField(r.BundleID)
	r.SizeHuman = SanitizeField(r.SizeHuman)
	r.LastUsedLabel = SanitizeField(r.LastUsedLabel)
	if r.DisplayName == "" {
		r.DisplayName = filepath.Base(r.Path)
	}
	if r.BundleID == "" {
		r.BundleID = UnknownBundleID
	}
	if r.SizeKB < 0 {
		r.SizeKB = 0
	}
	return r
}

// SortByLastUsed orders records ascending by last-used epoch, oldest first.
// The sort is stable so equal epochs keep their discovery order.
func SortByLastUsed(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].LastUsedEpoch < records[j].LastUsedEpoch
	})
}
