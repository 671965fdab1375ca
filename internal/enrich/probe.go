package enrich

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// Query timeouts. The date lookup gets more headroom than the name lookup
// because accuracy matters more for triage ordering; both stay short enough
// that a hung metadata service cannot stall the pool.
const (
	DefaultNameTimeout = 50 * time.Millisecond
	DefaultDateTimeout = 100 * time.Millisecond
	DefaultSizeTimeout = 30 * time.Second
)

// mdls prints this for attributes with no value.
const mdlsNull = "(null)"

// Prober resolves the expensive per-candidate metadata. It is an interface
// so the pool can be exercised without the macOS metadata services.
type Prober interface {
	// DisplayName queries the localized-name metadata service.
	DisplayName(ctx context.Context, path string) (string, error)
	// SizeKB measures the bundle subtree in kilobytes.
	SizeKB(ctx context.Context, path string) (int64, error)
	// LastUsed queries the last-used-date metadata service.
	LastUsed(ctx context.Context, path string) (time.Time, error)
}

// SpotlightProber shells out to mdls and du, each call bounded by its own
// timeout.
type SpotlightProber struct {
	NameTimeout time.Duration
	DateTimeout time.Duration
	SizeTimeout time.Duration
}

// NewSpotlightProber returns a prober with the default timeouts.
func NewSpotlightProber() *SpotlightProber {
	return &SpotlightProber{
		NameTimeout: DefaultNameTimeout,
		DateTimeout: DefaultDateTimeout,
		SizeTimeout: DefaultSizeTimeout,
	}
}

func (p *SpotlightProber) DisplayName(ctx context.Context, path string) (string, error) {
	out, err := p.mdls(ctx, p.NameTimeout, "kMDItemDisplayName", path)
	if err != nil {
		return "", err
	}
	return out, nil
}

func (p *SpotlightProber) SizeKB(ctx context.Context, path string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, p.SizeTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "du", "-sk", path)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return 0, fmt.Errorf("du timeout after %v", p.SizeTimeout)
		}
		return 0, fmt.Errorf("du failed: %w", err)
	}
	fields := strings.Fields(stdout.String())
	if len(fields) == 0 {
		return 0, fmt.Errorf("du output empty")
	}
	kb, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse du output: %w", err)
	}
	if kb < 0 {
		return 0, fmt.Errorf("du size invalid: %d", kb)
	}
	return kb, nil
}

// mdls date layout, e.g. "2024-05-02 11:22:33 +0000".
const mdlsDateLayout = "2006-01-02 15:04:05 -0700"

func (p *SpotlightProber) LastUsed(ctx context.Context, path string) (time.Time, error) {
	out, err := p.mdls(ctx, p.DateTimeout, "kMDItemLastUsedDate", path)
	if err != nil {
		return time.Time{}, err
	}
	if out == "" {
		return time.Time{}, fmt.Errorf("last-used date unavailable")
	}
	t, err := time.Parse(mdlsDateLayout, out)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse last-used date %q: %w", out, err)
	}
	return t, nil
}

func (p *SpotlightProber) mdls(ctx context.Context, timeout time.Duration, attr, path string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "mdls", "-raw", "-name", attr, path)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("mdls %s timeout after %v", attr, timeout)
		}
		return "", fmt.Errorf("mdls %s failed: %w", attr, err)
	}
	value := strings.TrimSpace(stdout.String())
	if value == mdlsNull {
		value = ""
	}
	return value, nil
}
