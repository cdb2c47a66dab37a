package providers

import "strings"

// stats.nba.com wraps tabular payloads in a resultSets envelope. Most
// endpoints return an array of result sets; leaguedashteamshotlocations
// returns a single object with a two-level header describing per-zone
// column groups.

type statsResponse struct {
	Resource   string      `json:"resource"`
	ResultSets []resultSet `json:"resultSets"`
}

type resultSet struct {
	Name    string          `json:"name"`
	Headers []string        `json:"headers"`
	RowSet  [][]interface{} `json:"rowSet"`
}

type shotLocationsResponse struct {
	Resource   string                 `json:"resource"`
	ResultSets shotLocationsResultSet `json:"resultSets"`
}

type shotLocationsResultSet struct {
	Name    string                `json:"name"`
	Headers []shotLocationsHeader `json:"headers"`
	RowSet  [][]interface{}       `json:"rowSet"`
}

type shotLocationsHeader struct {
	Name          string   `json:"name"`
	ColumnsToSkip int      `json:"columnsToSkip"`
	ColumnSpan    int      `json:"columnSpan"`
	ColumnNames   []string `json:"columnNames"`
}

// columnIndex maps a header name to its row offset, case-insensitively.
func (rs resultSet) columnIndex(name string) int {
	for i, h := range rs.Headers {
		if strings.EqualFold(h, name) {
			return i
		}
	}
	return -1
}

// Row cells arrive as untyped JSON values; numbers decode as float64 and
// identifiers sometimes as strings. These helpers tolerate both.

func cellString(row []interface{}, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	if s, ok := row[idx].(string); ok {
		return s
	}
	return ""
}

func cellFloat(row []interface{}, idx int) (float64, bool) {
	if idx < 0 || idx >= len(row) {
		return 0, false
	}
	switch v := row[idx].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}

func cellInt(row []interface{}, idx int) (int, bool) {
	f, ok := cellFloat(row, idx)
	if !ok {
		return 0, false
	}
	return int(f), true
}
