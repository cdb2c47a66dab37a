package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidZone(t *testing.T) {
	for _, zone := range ZoneOrder {
		assert.True(t, IsValidZone(zone), zone)
	}
	assert.False(t, IsValidZone("Half Court"))
	assert.False(t, IsValidZone(""))
}

func TestInCourtBounds(t *testing.T) {
	assert.True(t, InCourtBounds(0, 0))
	assert.True(t, InCourtBounds(-250, -52.5))
	assert.True(t, InCourtBounds(250, 417.5))

	// Shots from the far half court are rendered off-frame and dropped.
	assert.False(t, InCourtBounds(0, 800))
	assert.False(t, InCourtBounds(-251, 0))
	assert.False(t, InCourtBounds(0, -53))
}

func TestZoneRecordKey(t *testing.T) {
	rec := ZoneRecord{Season: "2015-16", Entity: "league", Zone: ZoneMidRange, Attempted: 10, Made: 4}
	assert.Equal(t, "2015-16|league|Mid-Range", rec.Key())
}

func TestShotRecordKey(t *testing.T) {
	rec := ShotRecord{Season: "2015-16", Entity: "Stephen Curry", ShotIndex: 42}
	assert.Equal(t, "2015-16|Stephen Curry|42", rec.Key())
}
