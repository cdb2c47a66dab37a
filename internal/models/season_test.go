package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeasonString(t *testing.T) {
	assert.Equal(t, "2015-16", SeasonString(2015))
	assert.Equal(t, "1999-00", SeasonString(1999))
	assert.Equal(t, "2009-10", SeasonString(2009))
	assert.Equal(t, "2024-25", SeasonString(2024))
}

func TestSeasonRange(t *testing.T) {
	seasons := SeasonRange(2000, 2003)
	assert.Equal(t, []string{"2000-01", "2001-02", "2002-03", "2003-04"}, seasons)

	assert.Equal(t, []string{"2010-11"}, SeasonRange(2010, 2010))
	assert.Nil(t, SeasonRange(2010, 2009))
}

func TestSeasonStartYear(t *testing.T) {
	year, err := SeasonStartYear("2015-16")
	require.NoError(t, err)
	assert.Equal(t, 2015, year)

	year, err = SeasonStartYear("1999-00")
	require.NoError(t, err)
	assert.Equal(t, 1999, year)

	_, err = SeasonStartYear("2015")
	assert.Error(t, err)
	_, err = SeasonStartYear("abcd-ef")
	assert.Error(t, err)
}

func TestSeasonRoundTrip(t *testing.T) {
	for _, startYear := range []int{1996, 1999, 2000, 2009, 2015, 2024} {
		parsed, err := SeasonStartYear(SeasonString(startYear))
		require.NoError(t, err)
		assert.Equal(t, startYear, parsed)
	}
}
