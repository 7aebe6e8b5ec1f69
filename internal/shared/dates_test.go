package shared

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boothkeeper/boothkeeper/internal/platform/httpx"
)

func TestDayOfUsesViewerZone(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)
	instant := time.Date(2024, 3, 1, 20, 0, 0, 0, time.UTC)

	assert.Equal(t, "2024-03-01", FormatDay(DayOf(instant, time.UTC)))
	assert.Equal(t, "2024-03-02", FormatDay(DayOf(instant, tokyo)))
}

func TestDaysInclusiveAcrossDST(t *testing.T) {
	start, _ := ParseDay("2024-03-09")
	end, _ := ParseDay("2024-03-11")
	assert.Equal(t, 3, DaysInclusive(start, end))
	assert.Equal(t, 1, DaysInclusive(start, start))
	assert.Equal(t, 0, DaysInclusive(end, start))
	assert.Equal(t, end, AddDays(start, 2))
}

func TestParseDayRejectsGarbage(t *testing.T) {
	_, err := ParseDay("03/01/2024")
	assert.ErrorIs(t, err, httpx.ErrValidation)
}

func TestLoadLocation(t *testing.T) {
	loc, err := LoadLocation("", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)

	_, err = LoadLocation("Mars/Olympus", nil)
	assert.ErrorIs(t, err, httpx.ErrValidation)
}
