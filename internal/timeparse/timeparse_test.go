package timeparse_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jonesrussell/north-cloud/article-ingestor/internal/timeparse"
)

func TestNormalize_ValidFormats(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want time.Time
	}{
		{"May 1, 2024 at 2:30 PM UTC", time.Date(2024, 5, 1, 14, 30, 0, 0, time.UTC)},
		{"Jan 09, 2024 at 09:05 AM UTC", time.Date(2024, 1, 9, 9, 5, 0, 0, time.UTC)},
		{"Dec 31, 2023 at 12:00 AM UTC", time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)},
		{"Dec 31, 2023 at 12:00 PM UTC", time.Date(2023, 12, 31, 12, 0, 0, 0, time.UTC)},
		{"Mar. 3, 2024 at 7:45 PM UTC", time.Date(2024, 3, 3, 19, 45, 0, 0, time.UTC)},
		{"Aug 12, 2024 at 3:01 p.m. UTC", time.Date(2024, 8, 12, 15, 1, 0, 0, time.UTC)},
		{"Sept. 5, 2024 at 11:15 a.m. UTC", time.Date(2024, 9, 5, 11, 15, 0, 0, time.UTC)},
		{"  Feb 29, 2024   at 1:00 PM UTC\n", time.Date(2024, 2, 29, 13, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			t.Parallel()
			got, ok := timeparse.Normalize(tt.raw)
			assert.True(t, ok)
			assert.True(t, tt.want.Equal(got), "got %v want %v", got, tt.want)
			_, offset := got.Zone()
			assert.Zero(t, offset)
			assert.Equal(t, time.UTC, got.Location())
		})
	}
}

func TestNormalize_Malformed(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{
		"",
		"   ",
		"yesterday",
		"2024-05-01T14:30:00Z",
		"May 1, 2024",
		"May 32, 2024 at 2:30 PM UTC",
		"Feb 30, 2023 at 1:00 PM UTC",
		"May 1, 2024 at 13:30 PM UTC",
		"May 1, 2024 at 2:30 PM EST",
		"Updated May 1, 2024 at 2:30 PM UTC",
	} {
		got, ok := timeparse.Normalize(raw)
		assert.False(t, ok, "raw=%q", raw)
		assert.True(t, got.IsZero(), "raw=%q", raw)
	}
}
