package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadLocation(t *testing.T) {
	assert.Equal(t, time.UTC, LoadLocation(""))
	assert.Equal(t, time.UTC, LoadLocation("Mars/Olympus_Mons"))
	assert.Equal(t, "UTC", LoadLocation(DefaultTimezone).String())
}

func TestIn_ShiftsCalendarDay(t *testing.T) {
	late := time.Date(2024, 4, 15, 22, 30, 0, 0, time.UTC)
	plusFive := time.FixedZone("UTC+5", 5*60*60)

	assert.Equal(t, 16, In(late, plusFive).Day())
	assert.Equal(t, 15, In(late, nil).Day())
}
