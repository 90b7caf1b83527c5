package catalog

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Status is the lifecycle state of a catalog event.
type Status string

const (
	// StatusNew marks an event first seen, or seen again without changes.
	StatusNew Status = "new"
	// StatusUpdated marks an event whose tracked fields changed in the latest run.
	StatusUpdated Status = "updated"
	// StatusInactive marks an event retired by the sweeper.
	StatusInactive Status = "inactive"
	// StatusImported marks an event claimed by an operator. It is never changed by reconciliation.
	StatusImported Status = "imported"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusUpdated, StatusInactive, StatusImported:
		return true
	}
	return false
}

// DefaultCity is used when a source does not report one.
const DefaultCity = "Sydney"

// Tags is an ordered list of category tags stored as a JSON array.
type Tags []string

// Value implements driver.Valuer.
func (t Tags) Value() (driver.Value, error) {
	if t == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(t))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (t *Tags) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*t = Tags{}
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("unsupported tags column type %T", src)
	}
	if len(raw) == 0 {
		*t = Tags{}
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("decode tags: %w", err)
	}
	*t = out
	return nil
}

// Equal compares two tag lists element by element; nil and empty are equal.
func (t Tags) Equal(other Tags) bool {
	if len(t) != len(other) {
		return false
	}
	for i := range t {
		if t[i] != other[i] {
			return false
		}
	}
	return true
}

// Event is a reconciled catalog entry.
type Event struct {
	ID            string     `gorm:"column:id;primaryKey;type:varchar(36)" json:"id"`
	Title         string     `gorm:"column:title;type:varchar(300);not null;index:idx_events_match,priority:1" json:"title"`
	Description   string     `gorm:"column:description;type:text" json:"description"`
	ShortSummary  string     `gorm:"column:short_summary;type:text" json:"shortSummary"`
	DateTime      time.Time  `gorm:"column:date_time;not null;index:idx_events_match,priority:2" json:"dateTime"`
	DateEstimated bool       `gorm:"column:date_estimated;not null;default:false" json:"dateEstimated"`
	VenueName     string     `gorm:"column:venue_name;type:varchar(255);not null;default:'';index:idx_events_match,priority:3" json:"venueName"`
	VenueAddress  string     `gorm:"column:venue_address;type:varchar(512);not null;default:''" json:"venueAddress"`
	City          string     `gorm:"column:city;type:varchar(128);not null;default:'Sydney';index" json:"city"`
	Category      Tags       `gorm:"column:category;type:text" json:"category"`
	ImageURL      string     `gorm:"column:image_url;type:varchar(1024);not null;default:''" json:"imageUrl"`
	SourceName    string     `gorm:"column:source_name;type:varchar(128);not null" json:"sourceName"`
	SourceURL     *string    `gorm:"column:source_url;type:varchar(512);uniqueIndex:idx_events_source_url" json:"sourceUrl,omitempty"`
	Status        Status     `gorm:"column:status;type:varchar(16);not null;default:'new';index" json:"status"`
	LastScrapedAt time.Time  `gorm:"column:last_scraped_at;not null" json:"lastScrapedAt"`
	ImportedAt    *time.Time `gorm:"column:imported_at" json:"importedAt,omitempty"`
	ImportedBy    *string    `gorm:"column:imported_by;type:varchar(64)" json:"importedBy,omitempty"`
	ImportNotes   string     `gorm:"column:import_notes;type:text" json:"importNotes"`
	Version       int64      `gorm:"column:version;not null;default:1" json:"version"`
	CreatedAt     time.Time  `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt     time.Time  `gorm:"column:updated_at" json:"updatedAt"`
}

// TableName overrides the table name.
func (Event) TableName() string {
	return "events"
}

// BeforeSave stores every instant in UTC so exact-match lookups compare like with like.
func (e *Event) BeforeSave(_ *gorm.DB) error {
	e.DateTime = e.DateTime.UTC()
	e.LastScrapedAt = e.LastScrapedAt.UTC()
	if e.Category == nil {
		e.Category = Tags{}
	}
	return nil
}

// URL returns the source URL, or an empty string when the event has none.
func (e *Event) URL() string {
	if e.SourceURL == nil {
		return ""
	}
	return *e.SourceURL
}

// Claimed reports whether an operator has imported the event.
func (e *Event) Claimed() bool {
	return e.Status == StatusImported
}

// NullableURL maps an empty URL to NULL so the unique index only binds real URLs.
func NullableURL(u string) *string {
	if u == "" {
		return nil
	}
	return &u
}

// Columns lists the columns the events table must carry.
var Columns = []string{
	"id", "title", "description", "short_summary", "date_time", "date_estimated",
	"venue_name", "venue_address", "city", "category", "image_url", "source_name",
	"source_url", "status", "last_scraped_at", "imported_at", "imported_by",
	"import_notes", "version", "created_at", "updated_at",
}

// Indexes lists the indexes the matcher and sweeper depend on.
var Indexes = []string{"idx_events_match", "idx_events_source_url"}
