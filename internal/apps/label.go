package apps

import (
	"fmt"
	"time"
)

// Day thresholds for the relative-time buckets.
const (
	daysPerWeek  = 7
	daysPerMonth = 30
	daysPerYear  = 365
)

// RelativeLabel renders a last-used epoch as a triage-friendly bucket:
// Today / Yesterday / N days / N weeks / N months / N years ago. Epoch 0
// means the usage date is unknown and renders as "Never".
func RelativeLabel(epoch int64, now time.Time) string {
	if epoch <= 0 {
		return "Never"
	}
	// Divide in int64 first; the raw second count overflows int on 32-bit.
	days := int((now.Unix() - epoch) / (24 * 3600))
	switch {
	case days < 1:
		return "Today"
	case days == 1:
		return "Yesterday"
	case days < daysPerWeek:
		return fmt.Sprintf("%d days ago", days)
	case days < daysPerMonth:
		return fmt.Sprintf("%d weeks ago", days/daysPerWeek)
	case days < daysPerYear:
		return fmt.Sprintf("%d months ago", days/daysPerMonth)
	default:
		return fmt.Sprintf("%d years ago", days/daysPerYear)
	}
}

// HumanizeKB formats a kilobyte count the way the size column displays it.
// Zero or negative sizes are unmeasured and render as the N/A sentinel.
func HumanizeKB(kb int64) string {
	if kb <= 0 {
		return SizeUnknown
	}
	const unit = 1024
	switch {
	case kb < unit:
		return fmt.Sprintf("%dKB", kb)
	case kb < unit*unit:
		return fmt.Sprintf("%.1fMB", float64(kb)/unit)
	default:
		return fmt.Sprintf("%.1fGB", float64(kb)/(unit*unit))
	}
}
