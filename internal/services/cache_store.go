package services

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/courtsight/shot-evolution/internal/models"
	"github.com/courtsight/shot-evolution/internal/stats"
)

var (
	zoneHeader = []string{"SEASON", "ENTITY", "SHOT_ZONE_BASIC", "FGA", "FGM"}
	shotHeader = []string{"SEASON", "ENTITY", "GAME_DATE", "SHOT_INDEX", "LOC_X", "LOC_Y", "SHOT_MADE_FLAG", "SHOT_ZONE_BASIC"}
)

// CacheStore owns the on-disk cache tables: one CSV file per record kind
// under a single directory. Writes go through a temp file and an atomic
// rename, so an interrupted write never corrupts the previous table.
type CacheStore struct {
	dir    string
	logger *logrus.Logger
	mu     sync.Mutex
}

// NewCacheStore creates a store rooted at dir, creating it if needed.
// Temp files left behind by an interrupted write are swept on startup.
func NewCacheStore(dir string, logger *logrus.Logger) (*CacheStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	stale, _ := filepath.Glob(filepath.Join(dir, "*.tmp"))
	for _, path := range stale {
		if err := os.Remove(path); err == nil {
			logger.WithField("file", filepath.Base(path)).Warn("Removed stale temp file")
		}
	}
	return &CacheStore{dir: dir, logger: logger}, nil
}

// CacheStatus reports what a cached table already covers.
type CacheStatus struct {
	Kind     models.RecordKind `json:"kind"`
	Exists   bool              `json:"exists"`
	Rows     int               `json:"rows"`
	Seasons  []string          `json:"seasons"`
	Entities []string          `json:"entities"`

	pairs map[string]struct{}
}

// Covers reports whether the cache holds at least one row for the
// (season, entity) pair.
func (s CacheStatus) Covers(season, entity string) bool {
	_, ok := s.pairs[season+"|"+entity]
	return ok
}

func (c *CacheStore) path(kind models.RecordKind) string {
	return filepath.Join(c.dir, kind.FileName())
}

// LoadZones reads a zone table from disk. It returns stats.ErrCacheMiss
// when the file does not exist yet.
func (c *CacheStore) LoadZones(kind models.RecordKind) ([]models.ZoneRecord, error) {
	if !kind.IsZoneKind() {
		return nil, fmt.Errorf("kind %s does not hold zone records", kind)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadZonesLocked(kind)
}

func (c *CacheStore) loadZonesLocked(kind models.RecordKind) ([]models.ZoneRecord, error) {
	rows, idx, err := c.readTable(kind)
	if err != nil {
		return nil, err
	}

	iSeason, iEntity, iZone := idx["SEASON"], idx["ENTITY"], idx["SHOT_ZONE_BASIC"]
	iFGA, iFGM := idx["FGA"], idx["FGM"]
	records := make([]models.ZoneRecord, 0, len(rows))
	for n, row := range rows {
		fga, errA := strconv.Atoi(row[iFGA])
		fgm, errM := strconv.Atoi(row[iFGM])
		if errA != nil || errM != nil {
			return nil, fmt.Errorf("%s row %d: bad counts %q/%q", kind.FileName(), n+2, row[iFGA], row[iFGM])
		}
		records = append(records, models.ZoneRecord{
			Season:    row[iSeason],
			Entity:    row[iEntity],
			Zone:      row[iZone],
			Attempted: fga,
			Made:      fgm,
		})
	}
	return records, nil
}

// LoadShots reads the shot-chart table from disk. It returns
// stats.ErrCacheMiss when the file does not exist yet.
func (c *CacheStore) LoadShots(kind models.RecordKind) ([]models.ShotRecord, error) {
	if kind.IsZoneKind() {
		return nil, fmt.Errorf("kind %s does not hold shot records", kind)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadShotsLocked(kind)
}

func (c *CacheStore) loadShotsLocked(kind models.RecordKind) ([]models.ShotRecord, error) {
	rows, idx, err := c.readTable(kind)
	if err != nil {
		return nil, err
	}

	records := make([]models.ShotRecord, 0, len(rows))
	for n, row := range rows {
		index, err1 := strconv.Atoi(row[idx["SHOT_INDEX"]])
		x, err2 := strconv.ParseFloat(row[idx["LOC_X"]], 64)
		y, err3 := strconv.ParseFloat(row[idx["LOC_Y"]], 64)
		made, err4 := strconv.Atoi(row[idx["SHOT_MADE_FLAG"]])
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
			return nil, fmt.Errorf("%s row %d: bad numeric fields", kind.FileName(), n+2)
		}
		records = append(records, models.ShotRecord{
			Season:    row[idx["SEASON"]],
			Entity:    row[idx["ENTITY"]],
			GameDate:  row[idx["GAME_DATE"]],
			ShotIndex: index,
			LocX:      x,
			LocY:      y,
			Made:      made == 1,
			Zone:      row[idx["SHOT_ZONE_BASIC"]],
		})
	}
	return records, nil
}

// MergeAndSaveZones combines staging rows with the existing table,
// deduplicating on (season, entity, zone) with staging rows winning, and
// atomically replaces the file. It returns the merged row count.
func (c *CacheStore) MergeAndSaveZones(kind models.RecordKind, staging []models.ZoneRecord) (int, error) {
	if !kind.IsZoneKind() {
		return 0, fmt.Errorf("kind %s does not hold zone records", kind)
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	existing, err := c.loadZonesLocked(kind)
	if err != nil && !errors.Is(err, stats.ErrCacheMiss) {
		return 0, err
	}
	merged := mergeZones(existing, staging, c.logger)
	if err := c.writeZonesLocked(kind, merged); err != nil {
		return 0, err
	}
	return len(merged), nil
}

// SaveZones atomically replaces the table with exactly the given rows.
// Used by hard refresh.
func (c *CacheStore) SaveZones(kind models.RecordKind, rows []models.ZoneRecord) (int, error) {
	if !kind.IsZoneKind() {
		return 0, fmt.Errorf("kind %s does not hold zone records", kind)
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	merged := mergeZones(nil, rows, c.logger)
	if err := c.writeZonesLocked(kind, merged); err != nil {
		return 0, err
	}
	return len(merged), nil
}

// MergeAndSaveShots combines staging rows with the existing shot table,
// deduplicating on (season, entity, shot index) with staging rows winning.
func (c *CacheStore) MergeAndSaveShots(kind models.RecordKind, staging []models.ShotRecord) (int, error) {
	if kind.IsZoneKind() {
		return 0, fmt.Errorf("kind %s does not hold shot records", kind)
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	existing, err := c.loadShotsLocked(kind)
	if err != nil && !errors.Is(err, stats.ErrCacheMiss) {
		return 0, err
	}
	merged := mergeShots(existing, staging)
	if err := c.writeShotsLocked(kind, merged); err != nil {
		return 0, err
	}
	return len(merged), nil
}

// SaveShots atomically replaces the shot table with exactly the given rows.
func (c *CacheStore) SaveShots(kind models.RecordKind, rows []models.ShotRecord) (int, error) {
	if kind.IsZoneKind() {
		return 0, fmt.Errorf("kind %s does not hold shot records", kind)
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	merged := mergeShots(nil, rows)
	if err := c.writeShotsLocked(kind, merged); err != nil {
		return 0, err
	}
	return len(merged), nil
}

// Status reports whether a cache file exists and which seasons and
// entities it covers, so refreshes can fetch only the missing coverage.
func (c *CacheStore) Status(kind models.RecordKind) (CacheStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	status := CacheStatus{Kind: kind, pairs: make(map[string]struct{})}

	rows, idx, err := c.readTable(kind)
	if errors.Is(err, stats.ErrCacheMiss) {
		return status, nil
	}
	if err != nil {
		return status, err
	}

	status.Exists = true
	status.Rows = len(rows)
	seasons := make(map[string]struct{})
	entities := make(map[string]struct{})
	iSeason, iEntity := idx["SEASON"], idx["ENTITY"]
	for _, row := range rows {
		seasons[row[iSeason]] = struct{}{}
		entities[row[iEntity]] = struct{}{}
		status.pairs[row[iSeason]+"|"+row[iEntity]] = struct{}{}
	}
	for s := range seasons {
		status.Seasons = append(status.Seasons, s)
	}
	for e := range entities {
		status.Entities = append(status.Entities, e)
	}
	sort.Strings(status.Seasons)
	sort.Strings(status.Entities)
	return status, nil
}

// readTable reads a CSV file and returns its data rows plus a header
// index map.
func (c *CacheStore) readTable(kind models.RecordKind) ([][]string, map[string]int, error) {
	f, err := os.Open(c.path(kind))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, stats.ErrCacheMiss
		}
		return nil, nil, fmt.Errorf("open %s: %w", kind.FileName(), err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	all, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", kind.FileName(), err)
	}
	if len(all) == 0 {
		return nil, nil, fmt.Errorf("%s: empty file", kind.FileName())
	}

	header := all[0]
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[h] = i
	}
	want := zoneHeader
	if !kind.IsZoneKind() {
		want = shotHeader
	}
	for _, col := range want {
		if _, ok := idx[col]; !ok {
			return nil, nil, fmt.Errorf("%s: missing column %s", kind.FileName(), col)
		}
	}
	return all[1:], idx, nil
}

func (c *CacheStore) writeZonesLocked(kind models.RecordKind, records []models.ZoneRecord) error {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			r.Season,
			r.Entity,
			r.Zone,
			strconv.Itoa(r.Attempted),
			strconv.Itoa(r.Made),
		})
	}
	return c.writeAtomic(kind, zoneHeader, rows)
}

func (c *CacheStore) writeShotsLocked(kind models.RecordKind, records []models.ShotRecord) error {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		made := "0"
		if r.Made {
			made = "1"
		}
		rows = append(rows, []string{
			r.Season,
			r.Entity,
			r.GameDate,
			strconv.Itoa(r.ShotIndex),
			strconv.FormatFloat(r.LocX, 'f', -1, 64),
			strconv.FormatFloat(r.LocY, 'f', -1, 64),
			made,
			r.Zone,
		})
	}
	return c.writeAtomic(kind, shotHeader, rows)
}

// writeAtomic writes the table to a temp file in the same directory and
// renames it over the target, so readers either see the old table or the
// complete new one.
func (c *CacheStore) writeAtomic(kind models.RecordKind, header []string, rows [][]string) error {
	tmp, err := os.CreateTemp(c.dir, string(kind)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	w := csv.NewWriter(tmp)
	if err := w.Write(header); err != nil {
		tmp.Close()
		return fmt.Errorf("write header: %w", err)
	}
	if err := w.WriteAll(rows); err != nil {
		tmp.Close()
		return fmt.Errorf("write rows: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("flush %s: %w", kind.FileName(), err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync %s: %w", kind.FileName(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", kind.FileName(), err)
	}
	if err := os.Rename(tmpName, c.path(kind)); err != nil {
		return fmt.Errorf("replace %s: %w", kind.FileName(), err)
	}
	return nil
}

// mergeZones unions existing and staging rows keyed on (season, entity,
// zone), staging last so a fresh row wins a conflict. Rows with negative
// counts or unknown zones are dropped.
func mergeZones(existing, staging []models.ZoneRecord, logger *logrus.Logger) []models.ZoneRecord {
	byKey := make(map[string]models.ZoneRecord, len(existing)+len(staging))
	order := make([]string, 0, len(existing)+len(staging))
	for _, rec := range append(append([]models.ZoneRecord{}, existing...), staging...) {
		if rec.Attempted < 0 || rec.Made < 0 || !models.IsValidZone(rec.Zone) {
			logger.WithFields(logrus.Fields{
				"season": rec.Season,
				"entity": rec.Entity,
				"zone":   rec.Zone,
			}).Warn("Dropping invalid zone row")
			continue
		}
		key := rec.Key()
		if _, seen := byKey[key]; !seen {
			order = append(order, key)
		}
		byKey[key] = rec
	}

	merged := make([]models.ZoneRecord, 0, len(byKey))
	for _, key := range order {
		merged = append(merged, byKey[key])
	}
	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].Season != merged[j].Season {
			return merged[i].Season < merged[j].Season
		}
		if merged[i].Entity != merged[j].Entity {
			return merged[i].Entity < merged[j].Entity
		}
		return zoneRank(merged[i].Zone) < zoneRank(merged[j].Zone)
	})
	return merged
}

// mergeShots unions existing and staging rows keyed on (season, entity,
// shot index), staging last so a fresh row wins a conflict.
func mergeShots(existing, staging []models.ShotRecord) []models.ShotRecord {
	byKey := make(map[string]models.ShotRecord, len(existing)+len(staging))
	order := make([]string, 0, len(existing)+len(staging))
	for _, rec := range append(append([]models.ShotRecord{}, existing...), staging...) {
		key := rec.Key()
		if _, seen := byKey[key]; !seen {
			order = append(order, key)
		}
		byKey[key] = rec
	}

	merged := make([]models.ShotRecord, 0, len(byKey))
	for _, key := range order {
		merged = append(merged, byKey[key])
	}
	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].Season != merged[j].Season {
			return merged[i].Season < merged[j].Season
		}
		if merged[i].Entity != merged[j].Entity {
			return merged[i].Entity < merged[j].Entity
		}
		return merged[i].ShotIndex < merged[j].ShotIndex
	})
	return merged
}

func zoneRank(zone string) int {
	for i, z := range models.ZoneOrder {
		if z == zone {
			return i
		}
	}
	return len(models.ZoneOrder)
}
