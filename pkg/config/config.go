package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	// Server
	Port string `mapstructure:"PORT"`
	Env  string `mapstructure:"ENV"`

	// CORS
	CorsOrigins []string `mapstructure:"CORS_ORIGINS"`

	// Cache
	CacheDir string `mapstructure:"CACHE_DIR"`
	RedisURL string `mapstructure:"REDIS_URL"`

	// NBA stats API
	NBABaseURL       string        `mapstructure:"NBA_BASE_URL"`
	RequestTimeout   time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	BreakerThreshold int           `mapstructure:"BREAKER_THRESHOLD"`
	PacerMin         time.Duration `mapstructure:"PACER_MIN"`
	PacerMax         time.Duration `mapstructure:"PACER_MAX"`

	// Fetch coverage
	SeasonStart     int      `mapstructure:"SEASON_START"`
	SeasonEnd       int      `mapstructure:"SEASON_END"`
	TrackedPlayers  []string `mapstructure:"TRACKED_PLAYERS"`
	ShotChartPlayer string   `mapstructure:"SHOT_CHART_PLAYER"`

	// Background refresh
	EnableScheduledRefresh bool   `mapstructure:"ENABLE_SCHEDULED_REFRESH"`
	RefreshSchedule        string `mapstructure:"REFRESH_SCHEDULE"`
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")

	// Set defaults
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("CORS_ORIGINS", "http://localhost:5173,http://localhost:3000")
	viper.SetDefault("CACHE_DIR", "data")
	viper.SetDefault("REDIS_URL", "")
	viper.SetDefault("NBA_BASE_URL", "https://stats.nba.com")
	viper.SetDefault("REQUEST_TIMEOUT", "30s")
	viper.SetDefault("BREAKER_THRESHOLD", 5)
	viper.SetDefault("PACER_MIN", "600ms")
	viper.SetDefault("PACER_MAX", "1s")
	viper.SetDefault("SEASON_START", 2000)
	viper.SetDefault("SEASON_END", 2024)
	viper.SetDefault("TRACKED_PLAYERS", "Stephen Curry,James Harden,LeBron James,Kevin Durant,DeMar DeRozan")
	viper.SetDefault("SHOT_CHART_PLAYER", "Stephen Curry")
	viper.SetDefault("ENABLE_SCHEDULED_REFRESH", false)
	viper.SetDefault("REFRESH_SCHEDULE", "0 5 * * *") // 5 AM daily

	// Read from environment
	viper.AutomaticEnv()

	// Read config file if exists
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Parse comma-separated lists
	if corsStr := viper.GetString("CORS_ORIGINS"); corsStr != "" {
		config.CorsOrigins = strings.Split(corsStr, ",")
	}
	if playersStr := viper.GetString("TRACKED_PLAYERS"); playersStr != "" {
		config.TrackedPlayers = strings.Split(playersStr, ",")
		for i := range config.TrackedPlayers {
			config.TrackedPlayers[i] = strings.TrimSpace(config.TrackedPlayers[i])
		}
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate rejects configurations the fetch pipeline cannot run with.
func (c *Config) Validate() error {
	if c.SeasonEnd < c.SeasonStart {
		return fmt.Errorf("SEASON_END %d precedes SEASON_START %d", c.SeasonEnd, c.SeasonStart)
	}
	if c.PacerMin <= 0 || c.PacerMax < c.PacerMin {
		return fmt.Errorf("invalid pacer bounds %v-%v", c.PacerMin, c.PacerMax)
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
