package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlexibleTime(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2024-03-05", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)},
		{"2024-03-05T10:20:30Z", time.Date(2024, 3, 5, 10, 20, 30, 0, time.UTC)},
		{"2024-03-05T10:20:30+02:00", time.Date(2024, 3, 5, 8, 20, 30, 0, time.UTC)},
		{"2024-03-05T10:20:30", time.Date(2024, 3, 5, 10, 20, 30, 0, time.UTC)},
		{"2024-03-05T10:20Z", time.Date(2024, 3, 5, 10, 20, 0, 0, time.UTC)},
		{" 2024-03-05 ", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFlexibleTime(tt.in)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}

	_, err := ParseFlexibleTime("05/03/2024")
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestParseDecimal(t *testing.T) {
	d, err := ParseDecimal(" 1234.50 ")
	require.NoError(t, err)
	assert.Equal(t, "1234.5", d.String())

	_, err = ParseDecimal("12,5")
	assert.ErrorIs(t, err, ErrInvalidDecimal)
}

func TestParseID(t *testing.T) {
	id, err := ParseID("42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	for _, bad := range []string{"", "0", "-3", "abc", "1.5"} {
		_, err := ParseID(bad)
		assert.ErrorIs(t, err, ErrInvalidID, bad)
	}
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "photo.jpg", SanitizeFilename("photo.jpg"))
	assert.Equal(t, "passwd", SanitizeFilename("../../etc/passwd"))
	assert.Equal(t, "evil.png", SanitizeFilename(`C:\Users\me\evil.png`))
	assert.Equal(t, "a_b.png", SanitizeFilename(`a"b.png`))
	assert.Equal(t, "image", SanitizeFilename(""))
	assert.Equal(t, "image", SanitizeFilename("..."))

	long := SanitizeFilename(strings.Repeat("x", 300) + ".jpeg")
	assert.Len(t, long, 255)
	assert.True(t, strings.HasSuffix(long, ".jpeg"))
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, 100, ClampLimit(0, 100, 500))
	assert.Equal(t, 100, ClampLimit(-1, 100, 500))
	assert.Equal(t, 20, ClampLimit(20, 100, 500))
	assert.Equal(t, 500, ClampLimit(1000, 100, 500))
}

func TestTrimPtr(t *testing.T) {
	assert.Nil(t, TrimPtr(nil))
	blank := "   "
	assert.Nil(t, TrimPtr(&blank))
	v := "  x "
	assert.Equal(t, "x", *TrimPtr(&v))
}

func TestArgs(t *testing.T) {
	var a Args
	clauses := []string{"owner_id = " + a.Add("u"), "collection_id = " + a.Add(int64(3))}

	assert.Equal(t, " WHERE owner_id = $1 AND collection_id = $2", Where(clauses))
	assert.Equal(t, []any{"u", int64(3)}, a.Values())
	assert.Equal(t, "", Where(nil))
}
