package record

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ErrEmptyKey is returned by Validate when a record has no key.
var ErrEmptyKey = errors.New("record key is empty")

// Record is the normalized metadata of one published archive.
type Record struct {
	Key                string `json:"url"`
	Filename           string `json:"filename"`
	Device             string `json:"device"`
	IncrementalVersion string `json:"incremental"`
	TimestampUTC       string `json:"timestamp"`
	Checksum           string `json:"md5sum"`
	Channel            string `json:"channel"`
	APILevel           string `json:"api_level"`
	ChangelogURL       string `json:"changes"`
	MirrorID           int64  `json:"mirror_id"`
}

// Validate checks the only invariant a Record carries: a non-empty key.
func (r Record) Validate() error {
	if strings.TrimSpace(r.Key) == "" {
		if r.Filename != "" {
			return fmt.Errorf("%s: %w", r.Filename, ErrEmptyKey)
		}
		return ErrEmptyKey
	}
	return nil
}

// NormalizeKey returns the canonical form of a key.
// Paths coming from different filesystems may use decomposed unicode, so
// keys are always stored in NFC.
func NormalizeKey(key string) string {
	return norm.NFC.String(key)
}

// Keys returns the keys of records in input order.
func Keys(records []Record) []string {
	keys := make([]string, 0, len(records))
	for _, r := range records {
		keys = append(keys, r.Key)
	}
	return keys
}
