package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want time.Time
	}{
		{"2025-01-02T03:04:05Z", time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)},
		{"2025-01-02T03:04:05+02:00", time.Date(2025, 1, 2, 1, 4, 5, 0, time.UTC)},
		{"2025-01-02T03:04:05.123456", time.Date(2025, 1, 2, 3, 4, 5, 123456000, time.UTC)},
		{"2025-01-02T03:04:05", time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)},
		{"2025-01-02 03:04:05", time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)},
		{"2025-01-02T03:04", time.Date(2025, 1, 2, 3, 4, 0, 0, time.UTC)},
		{"2025-01-02", time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)},
		{"2024-05-01 10:00", time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)},
		{"2024-05-01T10:00:00+0300", time.Date(2024, 5, 1, 7, 0, 0, 0, time.UTC)},
		{"2024-05-01 10:00:00.5-0130", time.Date(2024, 5, 1, 11, 30, 0, 500000000, time.UTC)},
		{"2024-05-01T10:00:00z", time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)},
		{"2024-05-01T10:00+02:00", time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)},
		{"2024-05-01 10:00Z", time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTimestamp(tt.in)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %v want %v", got, tt.want)
			assert.Equal(t, time.UTC, got.Location())
		})
	}
}

func TestParseTimestamp_Invalid(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"", "tomorrow", "2025-13-01", "01/02/2025", "z", "2024-05-01T10:00:00+3"} {
		_, err := ParseTimestamp(in)
		assert.True(t, errors.Is(err, ErrInvalidTimestamp), "input %q", in)
	}
}

func TestNormalizeUTCPtr(t *testing.T) {
	t.Parallel()

	assert.Nil(t, NormalizeUTCPtr(nil))

	local := time.Date(2025, 1, 1, 9, 0, 0, 0, time.FixedZone("JST", 9*3600))
	got := NormalizeUTCPtr(&local)
	require.NotNil(t, got)
	assert.Equal(t, time.UTC, got.Location())
	assert.True(t, local.Equal(*got))
	assert.Equal(t, "JST", local.Location().String(), "input must not be modified")
}
