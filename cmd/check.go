package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"event-catalog/core/catalog"
	"event-catalog/core/config"
	"event-catalog/core/database"
	"event-catalog/core/logger"
	"event-catalog/core/storage"
	"event-catalog/feature/integrity"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	migrateFlag bool
	fixFlag     bool
)

// checkCmd verifies the deployment's dependencies.
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the catalog schema and connected services",
	Long: `Checks that the events table carries every column and index reconciliation
relies on, that the storage bucket holds the source drop and archive folders,
and that Redis answers. Exits non-zero when anything fails.

Examples:
  # Report only
  check

  # Create the schema and missing folders first
  check --migrate --fix`,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().BoolVar(&migrateFlag, "migrate", false, "Apply the catalog schema before verifying it")
	checkCmd.Flags().BoolVar(&fixFlag, "fix", false, "Create missing storage folders")
	checkCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the report as JSON")
	RootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	l, err := logger.New(&cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer l.Sync()

	ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
	defer cancel()

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	if migrateFlag {
		if err := catalog.NewStore(db).Migrate(ctx); err != nil {
			return fmt.Errorf("failed to migrate catalog: %w", err)
		}
	}

	var client storage.Client
	if cfg.Storage.Endpoint != "" {
		if client, err = storage.NewClient(cfg.Storage); err != nil {
			return fmt.Errorf("failed to create storage client: %w", err)
		}
	}

	// Connect failures surface through the Redis check itself.
	var rdb *redis.Client
	if cfg.Redis.Enabled() {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("parsing redis URL: %w", err)
		}
		rdb = redis.NewClient(opts)
		defer rdb.Close()
	}

	svc := integrity.NewService(db, client, cfg.Storage.Bucket, storagePrefixes(cfg), rdb, l)
	report := svc.Run(ctx, fixFlag)

	out := cmd.OutOrStdout()
	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(out, "=== Integrity Check ===")
		for _, row := range []struct {
			name string
			s    integrity.Section
		}{{"Catalog", report.Catalog}, {"Storage", report.Storage}, {"Redis", report.Redis}} {
			fmt.Fprintf(out, "%-8s %s", row.name+":", row.s.Status)
			if len(row.s.Missing) > 0 {
				fmt.Fprintf(out, " %v", row.s.Missing)
			}
			if row.s.Error != "" {
				fmt.Fprintf(out, " (%s)", row.s.Error)
			}
			fmt.Fprintln(out)
		}
	}

	if !report.OK() {
		l.Debug("Integrity check failed", zap.Any("report", report))
		return errors.New("integrity check failed")
	}
	return nil
}

// storagePrefixes lists the bucket folders the configured features write to or read from.
func storagePrefixes(cfg *config.Config) []string {
	var prefixes []string
	if cfg.Sources.BucketPrefix != "" {
		prefixes = append(prefixes, cfg.Sources.BucketPrefix)
	}
	if cfg.Runs.ArchivePrefix != "" {
		prefixes = append(prefixes, cfg.Runs.ArchivePrefix)
	}
	return prefixes
}
