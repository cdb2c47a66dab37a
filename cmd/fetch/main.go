package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/courtsight/shot-evolution/internal/models"
	"github.com/courtsight/shot-evolution/internal/providers"
	"github.com/courtsight/shot-evolution/internal/services"
	"github.com/courtsight/shot-evolution/pkg/config"
)

func main() {
	var (
		startYear  = flag.Int("start", 0, "first season start year (default SEASON_START)")
		endYear    = flag.Int("end", 0, "last season start year (default SEASON_END)")
		players    = flag.String("players", "", "comma-separated player names for the zone table (default TRACKED_PLAYERS)")
		shotPlayer = flag.String("shot-player", "", "player whose raw shot chart to fetch (default SHOT_CHART_PLAYER)")
		kinds      = flag.String("kinds", "", "comma-separated record kinds (default all)")
		hard       = flag.Bool("hard", false, "refetch every pair and overwrite the cache")
		cacheDir   = flag.String("cache-dir", "", "cache directory (default CACHE_DIR)")
	)
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}
	logger := logrus.StandardLogger()

	if *startYear == 0 {
		*startYear = cfg.SeasonStart
	}
	if *endYear == 0 {
		*endYear = cfg.SeasonEnd
	}
	if *cacheDir == "" {
		*cacheDir = cfg.CacheDir
	}

	playerNames := cfg.TrackedPlayers
	if *players != "" {
		playerNames = splitList(*players)
	}
	shotChartPlayer := cfg.ShotChartPlayer
	if *shotPlayer != "" {
		shotChartPlayer = *shotPlayer
	}

	recordKinds := models.AllKinds
	if *kinds != "" {
		recordKinds = nil
		for _, name := range splitList(*kinds) {
			kind, err := models.ParseRecordKind(name)
			if err != nil {
				logrus.Fatalf("Invalid kind %q: %v", name, err)
			}
			recordKinds = append(recordKinds, kind)
		}
	}

	store, err := services.NewCacheStore(*cacheDir, logger)
	if err != nil {
		logrus.Fatalf("Failed to open cache dir: %v", err)
	}

	nbaClient := providers.NewNBAClient(cfg.NBABaseURL, cfg.RequestTimeout, cfg.BreakerThreshold, services.NewMemoryCache(), logger)
	pacer := services.NewPacer(cfg.PacerMin, cfg.PacerMax)
	fetcher := services.NewFetchService(nbaClient, store, pacer, logger, []string{shotChartPlayer})
	fetcher.SetProgressFunc(func(ev services.ProgressEvent) {
		fmt.Printf("[%d/%d] %s %s %s\n", ev.Completed, ev.Total, ev.Kind, ev.Season, ev.Entity)
	})

	req := services.FetchRequest{
		Kinds:   recordKinds,
		Seasons: models.SeasonRange(*startYear, *endYear),
		Players: playerNames,
		Hard:    *hard,
	}

	status, err := fetcher.Run(context.Background(), req)
	if err != nil {
		logrus.Fatalf("Fetch run failed: %v", err)
	}

	fmt.Printf("Processed %d of %d pairs\n", status.Completed, status.Total)
	for _, warning := range status.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", warning)
	}
	if status.Error != "" {
		fmt.Fprintf(os.Stderr, "error: %s\n", status.Error)
		os.Exit(1)
	}
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
