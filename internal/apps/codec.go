package apps

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// FormatVersion is written as the first cache line so the on-disk schema can
// evolve without silently misparsing older files.
const FormatVersion = "#appsweep/v1"

const numFields = 7

// ErrNoneAvailable reports an empty live record set: the cache held no rows,
// or every row's path has since disappeared. This is an expected state for
// the caller, not a failure.
var ErrNoneAvailable = errors.New("no applications available")

// Marshal serializes records in cache order: a version header, then one
// delimiter-joined line per record. Records are sanitized on the way out so
// the line invariant holds regardless of what enrichment produced.
func Marshal(records []Record) []byte {
	var buf bytes.Buffer
	buf.WriteString(FormatVersion)
	buf.WriteByte('\n')
	for _, rec := range records {
		rec = rec.Sanitize()
		fmt.Fprintf(&buf, "%d%s%s%s%s%s%s%s%s%s%s%s%d\n",
			rec.LastUsedEpoch, FieldDelimiter,
			rec.Path, FieldDelimiter,
			rec.DisplayName, FieldDelimiter,
			rec.BundleID, FieldDelimiter,
			rec.SizeHuman, FieldDelimiter,
			rec.LastUsedLabel, FieldDelimiter,
			rec.SizeKB)
	}
	return buf.Bytes()
}

// ParseLine splits one cache line into a record. Lines with the wrong field
// count or a malformed epoch are rejected.
func ParseLine(line string) (Record, error) {
	fields := strings.Split(line, FieldDelimiter)
	if len(fields) != numFields {
		return Record{}, fmt.Errorf("expected %d fields, got %d", numFields, len(fields))
	}
	epoch, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return Record{}, fmt.Errorf("bad last-used epoch %q: %w", fields[0], err)
	}
	sizeKB, err := strconv.ParseInt(fields[6], 10, 64)
	if err != nil {
		return Record{}, fmt.Errorf("bad size %q: %w", fields[6], err)
	}
	return Record{
		LastUsedEpoch: epoch,
		Path:          fields[1],
		DisplayName:   fields[2],
		BundleID:      fields[3],
		SizeHuman:     fields[4],
		LastUsedLabel: fields[5],
		SizeKB:        sizeKB,
	}, nil
}

// Load reads serialized records, dropping header/comment lines, malformed
// rows, and rows whose bundle path no longer exists. Returns ErrNoneAvailable
// when nothing live remains.
func Load(r io.Reader) ([]Record, error) {
	return load(r, func(path string) bool {
		_, err := os.Stat(path)
		return err == nil
	})
}

func load(r io.Reader, exists func(string) bool) ([]Record, error) {
	var records []Record
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		rec, err := ParseLine(line)
		if err != nil {
			continue
		}
		// Stale entries are dropped, not surfaced.
		if !exists(rec.Path) {
			continue
		}
		records = append(records, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read records: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrNoneAvailable
	}
	return records, nil
}
