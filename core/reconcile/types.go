package reconcile

import (
	"strconv"
	"strings"
	"time"

	"event-catalog/core/catalog"
)

// RawRecord is one listing exactly as a source produced it.
// Sources may give a parsed DateTime, only free-text DateText, or neither.
type RawRecord struct {
	Title        string     `json:"title" yaml:"title"`
	Description  string     `json:"description,omitempty" yaml:"description"`
	ShortSummary string     `json:"shortSummary,omitempty" yaml:"shortSummary"`
	DateTime     *time.Time `json:"dateTime,omitempty" yaml:"dateTime"`
	DateText     string     `json:"dateText,omitempty" yaml:"dateText"`
	VenueName    string     `json:"venueName,omitempty" yaml:"venueName"`
	VenueAddress string     `json:"venueAddress,omitempty" yaml:"venueAddress"`
	City         string     `json:"city,omitempty" yaml:"city"`
	Category     []string   `json:"category,omitempty" yaml:"category"`
	ImageURL     string     `json:"imageUrl,omitempty" yaml:"imageUrl"`
	SourceName   string     `json:"sourceName" yaml:"sourceName"`
	SourceURL    string     `json:"sourceUrl,omitempty" yaml:"sourceUrl"`
}

// Record is the canonical, source-agnostic form of a listing.
type Record struct {
	Title        string
	Description  string
	ShortSummary string
	DateTime     time.Time
	// DateEstimated is set when no date could be resolved and the processing time was used.
	DateEstimated bool
	VenueName     string
	VenueAddress  string
	City          string
	Category      catalog.Tags
	ImageURL      string
	SourceName    string
	SourceURL     string
}

// HasFallbackKey reports whether (title, date, venue) can identify the record.
// The venue may be empty. An estimated date says nothing about the listing, so
// it never forms a key.
func (r Record) HasFallbackKey() bool {
	return r.Title != "" && !r.DateEstimated
}

// MatchKey is the partition key used to serialize records that may hit the same event.
// The matcher looks up the (title, date, venue) triple for every record that has
// one, with or without a URL, so the triple takes precedence. Records keyed only
// by URL that collide with a triple-keyed record are caught by the unique
// source_url index.
func (r Record) MatchKey() string {
	if r.HasFallbackKey() {
		return "key:" + r.Title + "\x00" + strconv.FormatInt(r.DateTime.Unix(), 10) + "\x00" + r.VenueName
	}
	return "url:" + r.SourceURL
}

// Config holds reconciliation settings.
type Config struct {
	// StaleAfter retires unseen events whose last sighting is at least this old.
	StaleAfter time.Duration `mapstructure:"stale_after" default:"168h"`
	// Workers is the number of record lanes processed in parallel.
	Workers int `mapstructure:"workers" default:"4"`
	// SourceTimeout bounds each source fetch.
	SourceTimeout time.Duration `mapstructure:"source_timeout" default:"60s"`
	// MaxAttempts bounds the read-modify-write retries for one record.
	MaxAttempts int `mapstructure:"max_attempts" default:"5"`
	// DefaultCity fills records without a city.
	DefaultCity string `mapstructure:"default_city" default:"Sydney"`
	// Timezone is used for free-text dates without an offset.
	Timezone string `mapstructure:"timezone" default:"Australia/Sydney"`
	// RefreshClaimed lets runs overwrite the fields of claimed events (status stays imported).
	RefreshClaimed bool `mapstructure:"refresh_claimed" default:"false"`
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		StaleAfter:    7 * 24 * time.Hour,
		Workers:       4,
		SourceTimeout: 60 * time.Second,
		MaxAttempts:   5,
		DefaultCity:   catalog.DefaultCity,
		Timezone:      "Australia/Sydney",
	}
}

// withDefaults fills zero values from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.StaleAfter <= 0 {
		c.StaleAfter = d.StaleAfter
	}
	if c.Workers <= 0 {
		c.Workers = d.Workers
	}
	if c.SourceTimeout <= 0 {
		c.SourceTimeout = d.SourceTimeout
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = d.MaxAttempts
	}
	if strings.TrimSpace(c.DefaultCity) == "" {
		c.DefaultCity = d.DefaultCity
	}
	if c.Timezone == "" {
		c.Timezone = d.Timezone
	}
	return c
}

// SourceReport describes what one source contributed to a run.
type SourceReport struct {
	Name     string        `json:"name"`
	Records  int           `json:"records"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// SweepResult summarizes an inactivity sweep.
type SweepResult struct {
	// Examined counts unclaimed, active events that were not seen this run.
	Examined int `json:"examined"`
	// Retired lists the ids marked inactive.
	Retired []string `json:"retired"`
	// Contended counts events that changed between selection and write and were left alone.
	Contended int `json:"contended"`
}

// Summary is the outcome of one run. It is the contract consumed by notifiers.
type Summary struct {
	RunID           string          `json:"runId"`
	StartedAt       time.Time       `json:"startedAt"`
	FinishedAt      time.Time       `json:"finishedAt"`
	TotalObserved   int             `json:"totalObserved"`
	ProcessedCount  int             `json:"processedCount"`
	Dropped         int             `json:"dropped"`
	Failed          int             `json:"failed"`
	Created         int             `json:"created"`
	Updated         int             `json:"updated"`
	Sources         []SourceReport  `json:"sources"`
	Sweep           SweepResult     `json:"sweep"`
	TouchedEntities []catalog.Event `json:"touchedEntities"`
}
