package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"event-catalog/core/database"
	"event-catalog/core/kv"
	"event-catalog/core/logger"
	"event-catalog/core/reconcile"
	"event-catalog/core/server"
	"event-catalog/core/storage"
	"event-catalog/feature/runs"
	"event-catalog/feature/sources"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// It is divided into partial configurations for better modularity.
type Config struct {
	// Server holds configuration for the HTTP server.
	Server server.Config `mapstructure:"server"`
	// Storage holds configuration for the object storage (e.g., S3, Minio).
	Storage storage.Config `mapstructure:"storage"`
	// Log holds configuration for the logger.
	Log logger.Config `mapstructure:"log"`
	// Database holds configuration for the database connection.
	Database database.Config `mapstructure:"database"`
	// Redis holds configuration for the shared Redis instance.
	Redis kv.Config `mapstructure:"redis"`
	// Reconcile tunes the reconciliation engine.
	Reconcile reconcile.Config `mapstructure:"reconcile"`
	// Sources lists the upstream feeds.
	Sources sources.Config `mapstructure:"sources"`
	// Runs controls scheduling and run notifications.
	Runs runs.Config `mapstructure:"runs"`
}

// LoadConfig reads path/.env (if present) and the environment over the
// defaults declared in struct tags, then validates the result.
func LoadConfig(path string) (*Config, error) {
	envPath := filepath.Join(path, ".env")
	// A missing .env is normal in production.
	_ = godotenv.Overload(envPath)

	v := viper.New()
	bindValues(v, Config{}, "")

	// SERVER_PORT -> server.port
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate rejects settings the reconciliation stack cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if _, err := time.LoadLocation(c.Reconcile.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("reconcile.timezone: %w", err))
	}
	if c.Reconcile.Workers < 0 {
		errs = append(errs, errors.New("reconcile.workers must not be negative"))
	}
	if c.Redis.Enabled() && c.Runs.LockTTL <= 0 {
		errs = append(errs, errors.New("runs.lock_ttl must be positive when redis is enabled"))
	}
	if c.Storage.Bucket == "" && (c.Runs.ArchivePrefix != "" || c.Sources.BucketPrefix != "") {
		errs = append(errs, errors.New("storage.bucket is required for bucket sources and run archives"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// bindValues uses reflection to iterate over the struct and set default values in Viper
// based on the 'default' and 'mapstructure' tags.
func bindValues(v *viper.Viper, iface any, prefix string) {
	t := reflect.TypeOf(iface)

	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")

		if tag == "" {
			continue
		}

		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}

		// Nested sections recurse. time.Duration is an int64 and takes a default.
		if field.Type.Kind() == reflect.Struct {
			bindValues(v, reflect.New(field.Type).Elem().Interface(), key)
			continue
		}

		// Empty defaults are still set so AutomaticEnv sees the key.
		v.SetDefault(key, field.Tag.Get("default"))
	}
}
