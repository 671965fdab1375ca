// Package remove plans and applies application removal, including the
// leftover files an uninstalled bundle leaves under ~/Library.
package remove

import (
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/tw93/appsweep/internal/apps"
)

// Plan lists everything removal of one application would delete. Paths are
// only ever the bundle itself plus per-identifier Library entries that
// actually exist on disk.
type Plan struct {
	Record apps.Record
	Paths  []string
}

// leftoverDirs are the ~/Library locations keyed by bundle identifier.
var leftoverDirs = []string{
	"Caches",
	"Preferences",
	"Application Support",
	"Saved Application State",
	"Logs",
	"Containers",
	"HTTPStorages",
	"WebKit",
}

// Leftovers returns the existing Library paths tied to bundleID under home.
// An unknown identifier yields nothing rather than guessing by name.
func Leftovers(home, bundleID string) []string {
	if bundleID == "" || bundleID == apps.UnknownBundleID {
		return nil
	}

	var out []string
	library := filepath.Join(home, "Library")
	for _, dir := range leftoverDirs {
		candidate := filepath.Join(library, dir, bundleID)
		switch dir {
		case "Preferences":
			candidate = filepath.Join(library, dir, bundleID+".plist")
		case "Saved Application State":
			candidate = filepath.Join(library, dir, bundleID+".savedState")
		}
		if _, err := os.Lstat(candidate); err == nil {
			out = append(out, candidate)
		}
	}
	return out
}

// PlanFor builds the removal plan for one record. The bundle path leads so
// callers can print plans in delete order.
func PlanFor(home string, rec apps.Record) Plan {
	paths := append([]string{rec.Path}, Leftovers(home, rec.BundleID)...)
	return Plan{Record: rec, Paths: paths}
}

// BuildPlans plans removal for every selected record.
func BuildPlans(records []apps.Record) ([]Plan, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	plans := make([]Plan, 0, len(records))
	for _, rec := range records {
		plans = append(plans, PlanFor(home, rec))
	}
	return plans, nil
}

// Execute deletes every path in the plan. A failing path is logged and
// skipped so one permission error does not strand the rest.
func (p Plan) Execute(log zerolog.Logger) (removed []string, failed []error) {
	for _, path := range p.Paths {
		if err := os.RemoveAll(path); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("removal failed")
			failed = append(failed, err)
			continue
		}
		log.Debug().Str("path", path).Msg("removed")
		removed = append(removed, path)
	}
	return removed, failed
}
