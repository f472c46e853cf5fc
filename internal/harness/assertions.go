package harness

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/juju/collections/set"

	"github.com/roach88/otasync/internal/record"
)

// evaluate checks one assertion against the final state.
func evaluate(a Assertion, result *Result) error {
	switch a.Type {
	case AssertURLs:
		return assertURLs(a, result)
	case AssertRow:
		return assertRow(a, result)
	case AssertAbsent:
		if _, ok := findRow(result, a.MirrorID, a.URL); ok {
			return fmt.Errorf("mirror %d: %s still present", a.MirrorID, a.URL)
		}
		return nil
	case AssertRunCount:
		if got := result.RunCounts[a.MirrorID]; got != a.Count {
			return fmt.Errorf("mirror %d: expected %d runs, got %d", a.MirrorID, a.Count, got)
		}
		return nil
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func assertURLs(a Assertion, result *Result) error {
	want := set.NewStrings(a.URLs...)
	got := set.NewStrings(record.Keys(result.MirrorRows(a.MirrorID))...)

	missing := want.Difference(got)
	extra := got.Difference(want)
	if missing.IsEmpty() && extra.IsEmpty() {
		return nil
	}
	return fmt.Errorf("mirror %d: missing %v, unexpected %v", a.MirrorID, missing.SortedValues(), extra.SortedValues())
}

func assertRow(a Assertion, result *Result) error {
	row, ok := findRow(result, a.MirrorID, a.URL)
	if !ok {
		return fmt.Errorf("mirror %d: %s not found", a.MirrorID, a.URL)
	}

	cols := columns(row)
	names := make([]string, 0, len(a.Expect))
	for name := range a.Expect {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		got, known := cols[name]
		if !known {
			return fmt.Errorf("unknown column %q", name)
		}
		if want := a.Expect[name]; got != want {
			return fmt.Errorf("%s: column %s = %q, expected %q", a.URL, name, got, want)
		}
	}
	return nil
}

func findRow(result *Result, mirrorID int64, url string) (record.Record, bool) {
	for _, row := range result.MirrorRows(mirrorID) {
		if row.Key == url {
			return row, true
		}
	}
	return record.Record{}, false
}

// columns maps updates column names to a row's values.
func columns(r record.Record) map[string]string {
	return map[string]string{
		"url":         r.Key,
		"filename":    r.Filename,
		"device":      r.Device,
		"incremental": r.IncrementalVersion,
		"timestamp":   r.TimestampUTC,
		"md5sum":      r.Checksum,
		"channel":     r.Channel,
		"api_level":   r.APILevel,
		"changes":     r.ChangelogURL,
		"mirror_id":   strconv.FormatInt(r.MirrorID, 10),
	}
}
