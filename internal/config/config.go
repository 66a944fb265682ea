// Package config reads settings from the environment, after loading an
// optional .env file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port      string
	DBPath    string
	BaseURL   string
	LogLevel  string
	LogFormat string
	Location  *time.Location

	Sweep         SweepConfig
	OpenFoodFacts string
	Push          PushConfig
	Email         EmailConfig
	Backup        BackupConfig
}

type SweepConfig struct {
	Enabled      bool
	Interval     time.Duration
	InitialDelay time.Duration
	Concurrency  int
}

type PushConfig struct {
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	Subscriber      string
}

type EmailConfig struct {
	PostmarkToken string
	From          string
	To            string
}

type BackupConfig struct {
	S3Endpoint    string
	S3Bucket      string
	S3Region      string
	S3AccessKey   string
	S3SecretKey   string
	Prefix        string
	Passphrase    string
	Hour          int
	RetentionDays int
}

// Load reads the configuration. envFiles are loaded first if they exist;
// with none given, ./.env is tried. Variables already set in the
// environment win over file values.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	var errs []string
	p := parser{errs: &errs}

	cfg := &Config{
		Port:      getEnv("LARDER_PORT", "8080"),
		DBPath:    getEnv("LARDER_DB_PATH", "larder.db"),
		LogLevel:  getEnv("LARDER_LOG_LEVEL", "info"),
		LogFormat: getEnv("LARDER_LOG_FORMAT", "text"),
		Sweep: SweepConfig{
			Enabled:      p.getBoolEnv("LARDER_SWEEP_ENABLED", true),
			Interval:     p.getDurationEnv("LARDER_SWEEP_INTERVAL", 24*time.Hour),
			InitialDelay: p.getDurationEnv("LARDER_SWEEP_INITIAL_DELAY", time.Minute),
			Concurrency:  p.getIntEnv("LARDER_SWEEP_CONCURRENCY", 4),
		},
		OpenFoodFacts: getEnv("LARDER_OFF_BASE_URL", "https://world.openfoodfacts.org"),
		Push: PushConfig{
			VAPIDPublicKey:  os.Getenv("LARDER_VAPID_PUBLIC_KEY"),
			VAPIDPrivateKey: os.Getenv("LARDER_VAPID_PRIVATE_KEY"),
			Subscriber:      getEnv("LARDER_VAPID_SUBSCRIBER", "mailto:noreply@larder.local"),
		},
		Email: EmailConfig{
			PostmarkToken: os.Getenv("LARDER_POSTMARK_TOKEN"),
			From:          os.Getenv("LARDER_EMAIL_FROM"),
			To:            os.Getenv("LARDER_EMAIL_TO"),
		},
		Backup: BackupConfig{
			S3Endpoint:    os.Getenv("LARDER_S3_ENDPOINT"),
			S3Bucket:      os.Getenv("LARDER_S3_BUCKET"),
			S3Region:      getEnv("LARDER_S3_REGION", "us-east-1"),
			S3AccessKey:   os.Getenv("LARDER_S3_ACCESS_KEY"),
			S3SecretKey:   os.Getenv("LARDER_S3_SECRET_KEY"),
			Prefix:        getEnv("LARDER_BACKUP_PREFIX", "larder"),
			Passphrase:    os.Getenv("LARDER_BACKUP_PASSPHRASE"),
			Hour:          p.getIntEnv("LARDER_BACKUP_HOUR", 3),
			RetentionDays: p.getIntEnv("LARDER_BACKUP_RETENTION_DAYS", 30),
		},
	}

	cfg.BaseURL = getEnv("LARDER_BASE_URL", "http://localhost:"+cfg.Port)

	tz := getEnv("LARDER_TZ", "Local")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		errs = append(errs, fmt.Sprintf("LARDER_TZ: %v", err))
	}
	cfg.Location = loc

	if cfg.Sweep.Interval <= 0 {
		errs = append(errs, "LARDER_SWEEP_INTERVAL must be positive")
	}
	if cfg.Sweep.Concurrency <= 0 {
		errs = append(errs, "LARDER_SWEEP_CONCURRENCY must be positive")
	}
	if cfg.Backup.Hour < 0 || cfg.Backup.Hour > 23 {
		errs = append(errs, "LARDER_BACKUP_HOUR must be between 0 and 23")
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid config: %s", strings.Join(errs, "; "))
	}
	return cfg, nil
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// parser collects malformed values so Load can report them all at once.
type parser struct {
	errs *[]string
}

func (p parser) getIntEnv(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*p.errs = append(*p.errs, fmt.Sprintf("%s: not an integer: %q", key, v))
		return def
	}
	return n
}

func (p parser) getBoolEnv(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		*p.errs = append(*p.errs, fmt.Sprintf("%s: not a boolean: %q", key, v))
		return def
	}
	return b
}

func (p parser) getDurationEnv(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*p.errs = append(*p.errs, fmt.Sprintf("%s: not a duration: %q", key, v))
		return def
	}
	return d
}
