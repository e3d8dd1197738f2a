package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"attendance_gate/internal/liveness"
	"attendance_gate/internal/location"
)

// Settings is the whole service configuration, read once at startup.
type Settings struct {
	Addr      string
	JWTSecret string
	TokenTTL  time.Duration

	// CORSOrigins empty allows any origin.
	CORSOrigins []string

	LogPath  string
	LogLevel string

	// SeedFile, when set, is a YAML file of employees and zones applied at
	// startup.
	SeedFile string

	// Database is empty when DB_HOST is unset; the service then keeps
	// everything in memory.
	Database Database

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Timezone decides which calendar day a clock-in belongs to.
	Timezone *time.Location
	LockTTL  time.Duration

	Location location.Config
	Liveness liveness.Config
}

type Database struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
	TimeZone string
}

func (d Database) Enabled() bool { return d.Host != "" }

// DSN builds the Postgres data source name.
func (d Database) DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		d.Host, d.User, d.Password, d.Name, d.Port, d.SSLMode, d.TimeZone,
	)
}

// Load reads .env (if present) and the environment.
func Load() (Settings, error) {
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, relying on environment variables.")
	}

	s := Settings{
		Addr:      getEnv("SERVER_ADDR", "0.0.0.0:8080"),
		JWTSecret: getEnv("JWT_SECRET", "supersecret"),
		LogPath:   getEnv("LOG_PATH", "./logs/app.log"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		SeedFile:  getEnv("SEED_FILE", ""),
		Database: Database{
			Host:     getEnv("DB_HOST", ""),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "password"),
			Name:     getEnv("DB_NAME", "attendance"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			TimeZone: getEnv("DB_TIMEZONE", "UTC"),
		},
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		CORSOrigins:   splitList(getEnv("CORS_ALLOWED_ORIGINS", "")),
	}

	var err error
	if s.TokenTTL, err = getEnvDuration("JWT_TTL", 12*time.Hour); err != nil {
		return s, err
	}
	if s.RedisDB, err = getEnvInt("REDIS_DB", 0); err != nil {
		return s, err
	}
	if s.Timezone, err = time.LoadLocation(getEnv("ATTENDANCE_TIMEZONE", "UTC")); err != nil {
		return s, fmt.Errorf("ATTENDANCE_TIMEZONE: %w", err)
	}
	if s.LockTTL, err = getEnvDuration("CLOCK_IN_LOCK_TTL", 0); err != nil {
		return s, err
	}
	if s.Location, err = loadLocation(); err != nil {
		return s, err
	}
	if s.Liveness, err = loadLiveness(); err != nil {
		return s, err
	}
	return s, nil
}

func loadLocation() (location.Config, error) {
	cfg := location.DefaultConfig()
	var err error
	if cfg.MinAccuracyMeters, err = getEnvFloat("LOCATION_MIN_ACCURACY_METERS", cfg.MinAccuracyMeters); err != nil {
		return cfg, err
	}
	if cfg.MaxSampleAge, err = getEnvDuration("LOCATION_MAX_SAMPLE_AGE", cfg.MaxSampleAge); err != nil {
		return cfg, err
	}
	if cfg.StabilityThreshold, err = getEnvInt("LOCATION_STABILITY_THRESHOLD", cfg.StabilityThreshold); err != nil {
		return cfg, err
	}
	if cfg.StabilityWindow, err = getEnvInt("LOCATION_STABILITY_WINDOW", cfg.StabilityWindow); err != nil {
		return cfg, err
	}
	if cfg.MinValidReadings, err = getEnvInt("LOCATION_MIN_VALID_READINGS", cfg.MinValidReadings); err != nil {
		return cfg, err
	}

	switch {
	case cfg.MinValidReadings < 1:
		return cfg, fmt.Errorf("LOCATION_MIN_VALID_READINGS: must be at least 1")
	case cfg.StabilityThreshold < 1:
		return cfg, fmt.Errorf("LOCATION_STABILITY_THRESHOLD: must be at least 1")
	case cfg.StabilityWindow < 1:
		return cfg, fmt.Errorf("LOCATION_STABILITY_WINDOW: must be at least 1")
	case cfg.MaxSampleAge <= 0:
		return cfg, fmt.Errorf("LOCATION_MAX_SAMPLE_AGE: must be positive")
	}

	switch p := location.MockPolicy(strings.ToLower(getEnv("LOCATION_MOCK_POLICY", string(cfg.MockPolicy)))); p {
	case location.MockPolicyReject, location.MockPolicyIgnore:
		cfg.MockPolicy = p
	default:
		return cfg, fmt.Errorf("LOCATION_MOCK_POLICY: unknown policy %q", p)
	}
	return cfg, nil
}

func loadLiveness() (liveness.Config, error) {
	cfg := liveness.DefaultConfig()
	var err error
	if cfg.Challenges, err = liveness.ParseChallengeSet(getEnv("LIVENESS_CHALLENGE_SET", "three")); err != nil {
		return cfg, err
	}
	if cfg.NumChallenges, err = getEnvInt("LIVENESS_NUM_CHALLENGES", cfg.NumChallenges); err != nil {
		return cfg, err
	}
	if cfg.RequiredConsecutiveFrames, err = getEnvInt("LIVENESS_REQUIRED_FRAMES", cfg.RequiredConsecutiveFrames); err != nil {
		return cfg, err
	}
	if cfg.TurnThreshold, err = getEnvFloat("LIVENESS_TURN_THRESHOLD", cfg.TurnThreshold); err != nil {
		return cfg, err
	}
	if cfg.NodThreshold, err = getEnvFloat("LIVENESS_NOD_THRESHOLD", cfg.NodThreshold); err != nil {
		return cfg, err
	}
	if cfg.NoFaceResetThreshold, err = getEnvInt("LIVENESS_NO_FACE_FRAMES", cfg.NoFaceResetThreshold); err != nil {
		return cfg, err
	}
	if cfg.TransitionPause, err = getEnvDuration("LIVENESS_TRANSITION_PAUSE", cfg.TransitionPause); err != nil {
		return cfg, err
	}
	if cfg.MatchDistance, err = getEnvFloat("LIVENESS_MATCH_DISTANCE", cfg.MatchDistance); err != nil {
		return cfg, err
	}
	if cfg.MirroredInput, err = getEnvBool("LIVENESS_MIRRORED_INPUT", cfg.MirroredInput); err != nil {
		return cfg, err
	}
	if cfg.TickInterval, err = getEnvDuration("LIVENESS_TICK_INTERVAL", cfg.TickInterval); err != nil {
		return cfg, err
	}
	if cfg.Timeout, err = getEnvDuration("LIVENESS_TIMEOUT", cfg.Timeout); err != nil {
		return cfg, err
	}
	switch {
	case cfg.NumChallenges < 1:
		return cfg, fmt.Errorf("LIVENESS_NUM_CHALLENGES: must be at least 1")
	case cfg.RequiredConsecutiveFrames < 1:
		return cfg, fmt.Errorf("LIVENESS_REQUIRED_FRAMES: must be at least 1")
	case cfg.NoFaceResetThreshold < 1:
		return cfg, fmt.Errorf("LIVENESS_NO_FACE_FRAMES: must be at least 1")
	case cfg.TurnThreshold <= 0 || cfg.NodThreshold <= 0:
		return cfg, fmt.Errorf("LIVENESS_TURN_THRESHOLD and LIVENESS_NOD_THRESHOLD: must be positive")
	case cfg.MatchDistance <= 0:
		return cfg, fmt.Errorf("LIVENESS_MATCH_DISTANCE: must be positive")
	case cfg.TransitionPause < 0:
		return cfg, fmt.Errorf("LIVENESS_TRANSITION_PAUSE: must not be negative")
	// The session ticker panics on a non-positive interval.
	case cfg.TickInterval <= 0:
		return cfg, fmt.Errorf("LIVENESS_TICK_INTERVAL: must be positive")
	case cfg.Timeout <= 0:
		return cfg, fmt.Errorf("LIVENESS_TIMEOUT: must be positive")
	}
	return cfg, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// getEnv reads an environment variable or returns the provided default
func getEnv(key, defaultValue string) string {
	if v, exists := os.LookupEnv(key); exists {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

// getEnvFloat accepts a decimal comma, like the zone table does.
func getEnvFloat(key string, defaultValue float64) (float64, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return defaultValue, nil
	}
	f, err := location.ParseNumber(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}
