// Package config provides configuration management for the event catalog.
//
// It utilizes Viper for loading configuration from environment variables and an
// optional .env file. Defaults come from the `default` struct tag of each section.
//
// # Configuration Structure
//
// The Config struct is the central repository for all application settings, divided into subsections:
//   - Server: HTTP port, admin API key and shutdown timeout
//   - Database: driver (mysql or sqlite) and connection details
//   - Storage: S3/MinIO credentials and bucket settings
//   - Log: Logging level and format
//   - Redis: optional lock and notification backend
//   - Reconcile: staleness threshold, workers, retries, default city
//   - Sources: feed URLs, bucket prefix and fixture files
//   - Runs: schedule interval, lock TTL, notification channel and archive prefix
//
// Environment variables map onto nested keys with underscores, so
// RECONCILE_STALE_AFTER sets reconcile.stale_after.
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Server.Port)
package config
