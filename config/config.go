package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig
	Scraper   ScraperConfig
	Cache     CacheConfig
	Archive   ArchiveConfig
	S3        S3Config
	Scheduler SchedulerConfig
	LogLevel  string
}

type ServerConfig struct {
	Addr            string
	MaxUploadMB     int64
	CalcConcurrency int
}

type ScraperConfig struct {
	Headless   bool
	MinDelay   time.Duration
	MaxDelay   time.Duration
	NavTimeout time.Duration
}

type CacheConfig struct {
	DBPath     string
	TTL        time.Duration
	LegacyJSON string // old flat-file cache to import on startup, if present
}

type ArchiveConfig struct {
	PostgresURL string
}

type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

type SchedulerConfig struct {
	PruneCron   string
	RefreshCron string
}

// scraperOverrides is the optional config/scraper.yaml shape. Env vars win
// over the file.
type scraperOverrides struct {
	Headless     *bool `yaml:"headless"`
	MinDelaySec  int   `yaml:"min_delay_sec"`
	MaxDelaySec  int   `yaml:"max_delay_sec"`
	NavTimeoutMS int   `yaml:"nav_timeout_ms"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Addr:            getEnv("LISTEN_ADDR", ":8000"),
			MaxUploadMB:     int64(getEnvInt("MAX_UPLOAD_MB", 32)),
			CalcConcurrency: getEnvInt("CALC_CONCURRENCY", 4),
		},
		Scraper: ScraperConfig{
			Headless:   getEnv("SCRAPER_HEADLESS", "true") == "true",
			MinDelay:   time.Duration(getEnvInt("SCRAPE_MIN_DELAY_SEC", 2)) * time.Second,
			MaxDelay:   time.Duration(getEnvInt("SCRAPE_MAX_DELAY_SEC", 5)) * time.Second,
			NavTimeout: time.Duration(getEnvInt("SCRAPE_NAV_TIMEOUT_MS", 60000)) * time.Millisecond,
		},
		Cache: CacheConfig{
			DBPath:     getEnv("CACHE_DB_PATH", "snapshots.db"),
			TTL:        time.Duration(getEnvInt("CACHE_TTL_HOURS", 24)) * time.Hour,
			LegacyJSON: os.Getenv("LEGACY_CACHE_JSON"),
		},
		Archive: ArchiveConfig{
			PostgresURL: os.Getenv("ARCHIVE_POSTGRES_URL"),
		},
		S3: S3Config{
			Bucket:          os.Getenv("S3_BUCKET"),
			Region:          getEnv("S3_REGION", "ap-southeast-2"),
			Endpoint:        os.Getenv("S3_ENDPOINT"),
			AccessKeyID:     os.Getenv("S3_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("S3_SECRET_ACCESS_KEY"),
		},
		Scheduler: SchedulerConfig{
			PruneCron:   getEnv("CACHE_PRUNE_CRON", "0 3 * * *"),
			RefreshCron: os.Getenv("CACHE_REFRESH_CRON"),
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	if err := cfg.loadScraperOverrides("config/scraper.yaml"); err != nil {
		return nil, err
	}

	if cfg.Scraper.MaxDelay < cfg.Scraper.MinDelay {
		cfg.Scraper.MaxDelay = cfg.Scraper.MinDelay
	}

	return cfg, nil
}

func (c *Config) loadScraperOverrides(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var overrides scraperOverrides
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return err
	}

	if overrides.Headless != nil && os.Getenv("SCRAPER_HEADLESS") == "" {
		c.Scraper.Headless = *overrides.Headless
	}
	if overrides.MinDelaySec > 0 && os.Getenv("SCRAPE_MIN_DELAY_SEC") == "" {
		c.Scraper.MinDelay = time.Duration(overrides.MinDelaySec) * time.Second
	}
	if overrides.MaxDelaySec > 0 && os.Getenv("SCRAPE_MAX_DELAY_SEC") == "" {
		c.Scraper.MaxDelay = time.Duration(overrides.MaxDelaySec) * time.Second
	}
	if overrides.NavTimeoutMS > 0 && os.Getenv("SCRAPE_NAV_TIMEOUT_MS") == "" {
		c.Scraper.NavTimeout = time.Duration(overrides.NavTimeoutMS) * time.Millisecond
	}

	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}
