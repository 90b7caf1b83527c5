package reconcile

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"event-catalog/core/catalog"
)

// Normalizer turns raw source records into canonical records.
type Normalizer struct {
	defaultCity string
	loc         *time.Location
}

// NewNormalizer creates a normalizer. Zone-less date text is read in timezone;
// an unknown timezone falls back to UTC.
func NewNormalizer(defaultCity, timezone string) *Normalizer {
	loc, err := time.LoadLocation(timezone)
	if err != nil || timezone == "" {
		loc = time.UTC
	}
	if strings.TrimSpace(defaultCity) == "" {
		defaultCity = catalog.DefaultCity
	}
	return &Normalizer{defaultCity: defaultCity, loc: loc}
}

// Normalize validates raw and fills defaults. When no date can be resolved the
// processing time is used and the record is flagged DateEstimated.
func (n *Normalizer) Normalize(raw RawRecord, now time.Time) (Record, error) {
	rec := Record{
		Title:        strings.TrimSpace(raw.Title),
		Description:  strings.TrimSpace(raw.Description),
		ShortSummary: strings.TrimSpace(raw.ShortSummary),
		VenueName:    strings.TrimSpace(raw.VenueName),
		VenueAddress: strings.TrimSpace(raw.VenueAddress),
		City:         strings.TrimSpace(raw.City),
		Category:     normalizeTags(raw.Category),
		ImageURL:     strings.TrimSpace(raw.ImageURL),
		SourceName:   strings.TrimSpace(raw.SourceName),
		SourceURL:    strings.TrimSpace(raw.SourceURL),
	}

	if rec.Title == "" {
		return Record{}, fmt.Errorf("%w: missing title", ErrValidation)
	}
	if rec.SourceName == "" {
		return Record{}, fmt.Errorf("%w: missing source name for %q", ErrValidation, rec.Title)
	}
	if rec.City == "" {
		rec.City = n.defaultCity
	}

	switch {
	case raw.DateTime != nil && !raw.DateTime.IsZero():
		rec.DateTime = raw.DateTime.UTC()
	default:
		if t, ok := ParseDate(raw.DateText, now, n.loc); ok {
			rec.DateTime = t
		} else {
			rec.DateTime = now.UTC()
			rec.DateEstimated = true
		}
	}
	rec.DateTime = rec.DateTime.Truncate(time.Second)

	if rec.SourceURL == "" && !rec.HasFallbackKey() {
		return Record{}, fmt.Errorf("%w: %q has no source url and no date to match on", ErrValidation, rec.Title)
	}
	return rec, nil
}

func normalizeTags(in []string) catalog.Tags {
	out := make(catalog.Tags, 0, len(in))
	for _, t := range in {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
