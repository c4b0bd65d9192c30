package schedule

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSpecValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		expression string
		timezone   string
		wantField  string
	}{
		{name: "valid", expression: "*/5 * * * *", timezone: "UTC"},
		{name: "valid with zone", expression: "30 2 * * *", timezone: "America/New_York"},
		{name: "empty timezone means UTC", expression: "0 0 * * *"},
		{name: "malformed expression", expression: "not a cron", wantField: "expression"},
		{name: "too few fields", expression: "* * *", wantField: "expression"},
		{name: "unknown zone", expression: "0 0 * * *", timezone: "Mars/Olympus", wantField: "timezone"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			spec, err := NewSpec(tt.expression, tt.timezone, false)
			if tt.wantField == "" {
				require.NoError(t, err)
				assert.Equal(t, tt.expression, spec.Expression)
				return
			}
			var perr *ParseError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, tt.wantField, perr.Field)
		})
	}
}

func TestExpandEveryFiveMinutes(t *testing.T) {
	t.Parallel()
	spec, err := NewSpec("*/5 * * * *", "UTC", false)
	require.NoError(t, err)

	start := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	slots := spec.Expand(start, end)

	require.Len(t, slots, 12)
	assert.WithinDuration(t, start, slots[0].ExpectedAt, 0, "window start is inclusive")
	for i, s := range slots {
		assert.WithinDuration(t, start.Add(time.Duration(i)*5*time.Minute), s.ExpectedAt, 0)
		assert.False(t, s.ExpectedAt.Before(start))
		assert.True(t, s.ExpectedAt.Before(end), "window end is exclusive")
	}
}

func TestExpandDeterministic(t *testing.T) {
	t.Parallel()
	spec, err := NewSpec("17 3,15 * * 1-5", "Europe/Berlin", false)
	require.NoError(t, err)

	start := time.Date(2024, 2, 5, 0, 0, 0, 0, time.UTC)
	end := start.Add(7 * 24 * time.Hour)
	first := spec.Expand(start, end)
	second := spec.Expand(start, end)
	require.Equal(t, first, second)
	require.NotEmpty(t, first)
	for i := 1; i < len(first); i++ {
		assert.True(t, first[i-1].ExpectedAt.Before(first[i].ExpectedAt), "ascending order")
	}
}

func TestExpandSuspended(t *testing.T) {
	t.Parallel()
	spec, err := NewSpec("* * * * *", "UTC", true)
	require.NoError(t, err)

	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	assert.Empty(t, spec.Expand(start, start.Add(time.Hour)))
}

func TestExpandEmptyWindow(t *testing.T) {
	t.Parallel()
	spec, err := NewSpec("* * * * *", "UTC", false)
	require.NoError(t, err)

	at := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	assert.Empty(t, spec.Expand(at, at))
	assert.Empty(t, spec.Expand(at.Add(time.Hour), at))
}

func TestExpandSpringForwardGap(t *testing.T) {
	t.Parallel()
	// America/New_York skipped 02:00-03:00 on 2024-03-10. A 02:30 local
	// schedule has no slot that day.
	spec, err := NewSpec("30 2 * * *", "America/New_York", false)
	require.NoError(t, err)

	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	dayStart := time.Date(2024, 3, 10, 0, 0, 0, 0, loc)
	dayEnd := time.Date(2024, 3, 11, 0, 0, 0, 0, loc)
	assert.Empty(t, spec.Expand(dayStart.UTC(), dayEnd.UTC()))

	// The following day fires normally at 02:30 EDT.
	nextEnd := time.Date(2024, 3, 12, 0, 0, 0, 0, loc)
	slots := spec.Expand(dayEnd.UTC(), nextEnd.UTC())
	require.Len(t, slots, 1)
	assert.WithinDuration(t, time.Date(2024, 3, 11, 6, 30, 0, 0, time.UTC), slots[0].ExpectedAt, 0)
}

func TestExpandFallBackOverlapSingleSlot(t *testing.T) {
	t.Parallel()
	// America/New_York repeated 01:00-02:00 on 2024-11-03. A 01:30 local
	// schedule maps to two instants (01:30 EDT and 01:30 EST); one
	// nominal fire time is one slot, at the earlier instant.
	spec, err := NewSpec("30 1 * * *", "America/New_York", false)
	require.NoError(t, err)

	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	dayStart := time.Date(2024, 11, 3, 0, 0, 0, 0, loc)
	dayEnd := dayStart.Add(25 * time.Hour) // local day spans the extra hour
	slots := spec.Expand(dayStart.UTC(), dayEnd.UTC())

	require.Len(t, slots, 1)
	assert.WithinDuration(t, time.Date(2024, 11, 3, 5, 30, 0, 0, time.UTC), slots[0].ExpectedAt, 0,
		"01:30 EDT, not the 06:30Z replay in EST")
}

func TestExpandFallBackKeepsDistinctTimes(t *testing.T) {
	t.Parallel()
	// Across the same transition, distinct nominal times all survive the
	// replay suppression: hourly fires lose only the repeated 01:00.
	spec, err := NewSpec("0 * * * *", "America/New_York", false)
	require.NoError(t, err)

	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	start := time.Date(2024, 11, 3, 0, 0, 0, 0, loc)
	end := time.Date(2024, 11, 3, 4, 0, 0, 0, loc)
	slots := spec.Expand(start.UTC(), end.UTC())

	// 00:00, 01:00 (first occurrence only), 02:00, 03:00 local.
	require.Len(t, slots, 4)
	for i := 1; i < len(slots); i++ {
		assert.True(t, slots[i-1].ExpectedAt.Before(slots[i].ExpectedAt))
	}
	assert.WithinDuration(t, time.Date(2024, 11, 3, 5, 0, 0, 0, time.UTC), slots[1].ExpectedAt, 0,
		"01:00 EDT")
	assert.WithinDuration(t, time.Date(2024, 11, 3, 7, 0, 0, 0, time.UTC), slots[2].ExpectedAt, 0,
		"02:00 EST")
}

func TestExpandTimezoneConversion(t *testing.T) {
	t.Parallel()
	// 09:00 in Tokyo is 00:00 UTC (no DST in Japan).
	spec, err := NewSpec("0 9 * * *", "Asia/Tokyo", false)
	require.NoError(t, err)

	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	slots := spec.Expand(start, start.Add(24*time.Hour))
	require.Len(t, slots, 1)
	assert.WithinDuration(t, start, slots[0].ExpectedAt, 0)
	assert.Equal(t, time.UTC, slots[0].ExpectedAt.Location())
}

func TestNext(t *testing.T) {
	t.Parallel()
	spec, err := NewSpec("0 * * * *", "UTC", false)
	require.NoError(t, err)

	from := time.Date(2024, 6, 1, 10, 30, 0, 0, time.UTC)
	assert.WithinDuration(t, time.Date(2024, 6, 1, 11, 0, 0, 0, time.UTC), spec.Next(from), 0)
}

func TestValidate(t *testing.T) {
	t.Parallel()
	assert.NoError(t, Validate("*/10 * * * *"))
	assert.Error(t, Validate("61 * * * *"))
}
