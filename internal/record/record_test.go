package record

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_EmptyKey(t *testing.T) {
	err := Record{Filename: "a.zip", Key: "  "}.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEmptyKey))
	assert.Contains(t, err.Error(), "a.zip")

	assert.NoError(t, Record{Key: "https://m/a.zip"}.Validate())
}

func TestNormalizeKey_NFC(t *testing.T) {
	// "é" as e + combining acute accent (NFD) must equal the precomposed form.
	decomposed := "https://m/cafe\u0301.zip"
	composed := "https://m/caf\u00e9.zip"

	assert.Equal(t, composed, NormalizeKey(decomposed))
	assert.Equal(t, composed, NormalizeKey(composed))
}

func TestSplit(t *testing.T) {
	outcomes := []Outcome{
		Accept("/a.zip", Record{Key: "a"}),
		Skip("/b.zip", "no channel"),
		Accept("/c.zip", Record{Key: "c"}),
	}

	records, skipped := Split(outcomes)
	assert.Equal(t, 1, skipped)
	assert.Equal(t, []string{"a", "c"}, Keys(records))
}

func TestOutcomeKindString(t *testing.T) {
	assert.Equal(t, "accepted", Accepted.String())
	assert.Equal(t, "skipped", Skipped.String())
	assert.Equal(t, "unknown", OutcomeKind(9).String())
}
