package runs

import "time"

// Config controls scheduled runs and what happens to their summaries.
type Config struct {
	// Interval between scheduled runs. Zero disables the scheduler.
	Interval time.Duration `mapstructure:"interval" default:"6h"`
	// RunOnStart triggers a run as soon as the server starts.
	RunOnStart bool `mapstructure:"run_on_start" default:"true"`
	// LockTTL bounds how long a crashed replica can hold the run lock.
	LockTTL time.Duration `mapstructure:"lock_ttl" default:"30m"`
	// Channel is the Redis channel summaries are published on.
	Channel string `mapstructure:"channel" default:"runs"`
	// ArchivePrefix is the storage prefix for archived summaries. Empty disables archiving.
	ArchivePrefix string `mapstructure:"archive_prefix" default:"runs"`
	// ArchiveRetention is how long archived summaries are kept.
	ArchiveRetention time.Duration `mapstructure:"archive_retention" default:"720h"`
}
