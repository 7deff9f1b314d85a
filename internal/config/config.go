package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/kacper-wojtaszczyk/jackfruit/extraction-go/internal/model"
)

const (
	SinkFile  = "file"
	SinkMinIO = "minio"
)

// Config holds application configuration.
type Config struct {
	Port      string
	Sink      string
	OutputDir string
	Workers   int

	ClickHouseHost     string
	ClickHousePort     string
	ClickHouseUser     string
	ClickHousePassword string
	ClickHouseDatabase string

	TrackDatabaseURL string

	MinIOEndpoint  string
	MinIOAccessKey string
	MinIOSecretKey string
	MinIOBucket    string
	MinIOUseSSL    bool

	ProfilesFile string
}

type ErrMissingRequiredEnvVar struct {
	Name string
}

func (e *ErrMissingRequiredEnvVar) Error() string {
	return fmt.Sprintf("required environment variable %q is not set", e.Name)
}

// ErrInvalidEnvVar reports a variable that is set but cannot be used.
type ErrInvalidEnvVar struct {
	Name  string
	Value string
}

func (e *ErrInvalidEnvVar) Error() string {
	return fmt.Sprintf("environment variable %q has invalid value %q", e.Name, e.Value)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Load reads configuration from environment variables.
// MinIO variables are required only when results go to MinIO.
func Load() (*Config, error) {
	config := Config{
		Port:               getEnv("PORT", "8080"),
		Sink:               getEnv("EXTRACT_SINK", SinkFile),
		OutputDir:          getEnv("EXTRACT_OUTPUT_DIR", "."),
		ClickHouseHost:     getEnv("CLICKHOUSE_HOST", "localhost"),
		ClickHousePort:     getEnv("CLICKHOUSE_PORT", "9000"),
		ClickHouseUser:     getEnv("CLICKHOUSE_USER", "default"),
		ClickHousePassword: getEnv("CLICKHOUSE_PASSWORD", ""),
		ClickHouseDatabase: getEnv("CLICKHOUSE_DATABASE", "jackfruit"),
		TrackDatabaseURL:   os.Getenv("TRACK_DATABASE_URL"),
		ProfilesFile:       os.Getenv("EXTRACT_PROFILES_FILE"),
	}

	workers := getEnv("EXTRACT_WORKERS", "4")
	n, err := strconv.Atoi(workers)
	if err != nil || n < 1 {
		return nil, &ErrInvalidEnvVar{Name: "EXTRACT_WORKERS", Value: workers}
	}
	config.Workers = n

	switch config.Sink {
	case SinkFile:
	case SinkMinIO:
		required := []struct {
			name string
			dst  *string
		}{
			{"MINIO_ENDPOINT", &config.MinIOEndpoint},
			{"MINIO_ACCESS_KEY", &config.MinIOAccessKey},
			{"MINIO_SECRET_KEY", &config.MinIOSecretKey},
			{"MINIO_BUCKET", &config.MinIOBucket},
		}
		for _, r := range required {
			*r.dst = os.Getenv(r.name)
			if *r.dst == "" {
				return nil, &ErrMissingRequiredEnvVar{Name: r.name}
			}
		}
		config.MinIOUseSSL = os.Getenv("MINIO_USE_SSL") == "true"
	default:
		return nil, &ErrInvalidEnvVar{Name: "EXTRACT_SINK", Value: config.Sink}
	}

	return &config, nil
}

// LoadProfiles returns the built-in profiles merged with the ones from the
// YAML file at path. An empty path yields the built-in set.
//
//	sst:
//	  field: analysed_sst
//	  trackTime: Timestamp
func LoadProfiles(path string) (model.Profiles, error) {
	profiles := model.DefaultProfiles()
	if path == "" {
		return profiles, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profiles: %w", err)
	}
	var custom model.Profiles
	if err := yaml.Unmarshal(data, &custom); err != nil {
		return nil, fmt.Errorf("parse profiles %s: %w", path, err)
	}
	return profiles.Merge(custom), nil
}
