package models

import (
	"fmt"
	"strconv"
)

// SeasonString formats an NBA season label from its starting year,
// e.g. 2015 -> "2015-16".
func SeasonString(startYear int) string {
	return fmt.Sprintf("%d-%02d", startYear, (startYear+1)%100)
}

// SeasonRange returns season labels from start to end inclusive.
func SeasonRange(start, end int) []string {
	if end < start {
		return nil
	}
	seasons := make([]string, 0, end-start+1)
	for y := start; y <= end; y++ {
		seasons = append(seasons, SeasonString(y))
	}
	return seasons
}

// SeasonStartYear parses the starting year out of a season label like
// "2015-16". It returns an error for labels that do not match the format.
func SeasonStartYear(season string) (int, error) {
	if len(season) != 7 || season[4] != '-' {
		return 0, fmt.Errorf("invalid season label %q", season)
	}
	year, err := strconv.Atoi(season[:4])
	if err != nil {
		return 0, fmt.Errorf("invalid season label %q: %w", season, err)
	}
	return year, nil
}
