package reconcile

import (
	"time"

	"event-catalog/core/catalog"
)

// Diff lists the tracked fields on which rec differs from existing.
// An estimated incoming date is not evidence of a change and is ignored.
func Diff(existing *catalog.Event, rec Record) []string {
	var changed []string
	check := func(field string, differs bool) {
		if differs {
			changed = append(changed, field)
		}
	}

	check("title", existing.Title != rec.Title)
	check("description", existing.Description != rec.Description)
	check("shortSummary", existing.ShortSummary != rec.ShortSummary)
	check("dateTime", !rec.DateEstimated && !existing.DateTime.Equal(rec.DateTime))
	check("venueName", existing.VenueName != rec.VenueName)
	check("venueAddress", existing.VenueAddress != rec.VenueAddress)
	check("city", existing.City != rec.City)
	check("category", !existing.Category.Equal(rec.Category))
	check("imageUrl", existing.ImageURL != rec.ImageURL)
	check("sourceName", existing.SourceName != rec.SourceName)
	return changed
}

// ResolveStatus computes the lifecycle status for rec given its match.
func ResolveStatus(existing *catalog.Event, rec Record) catalog.Status {
	if existing == nil {
		return catalog.StatusNew
	}
	if len(Diff(existing, rec)) > 0 {
		return catalog.StatusUpdated
	}
	if existing.Claimed() {
		return catalog.StatusImported
	}
	return catalog.StatusNew
}

// NewEvent builds the event created for an unmatched record.
func NewEvent(id string, rec Record, status catalog.Status, runAt time.Time) *catalog.Event {
	return &catalog.Event{
		ID:            id,
		Title:         rec.Title,
		Description:   rec.Description,
		ShortSummary:  rec.ShortSummary,
		DateTime:      rec.DateTime,
		DateEstimated: rec.DateEstimated,
		VenueName:     rec.VenueName,
		VenueAddress:  rec.VenueAddress,
		City:          rec.City,
		Category:      rec.Category,
		ImageURL:      rec.ImageURL,
		SourceName:    rec.SourceName,
		SourceURL:     catalog.NullableURL(rec.SourceURL),
		Status:        status,
		LastScrapedAt: runAt,
		CreatedAt:     runAt,
		UpdatedAt:     runAt,
	}
}

// Apply computes the next state of a matched event. It does not touch existing.
// Claimed events keep status imported, and unless refreshClaimed is set their
// fields are left as the operator saw them.
func Apply(existing *catalog.Event, rec Record, status catalog.Status, runAt time.Time, refreshClaimed bool) *catalog.Event {
	next := *existing
	next.LastScrapedAt = runAt
	next.UpdatedAt = runAt

	if existing.Claimed() {
		next.Status = catalog.StatusImported
		if !refreshClaimed {
			return &next
		}
	} else {
		next.Status = status
	}

	next.Title = rec.Title
	next.Description = rec.Description
	next.ShortSummary = rec.ShortSummary
	if !rec.DateEstimated {
		next.DateTime = rec.DateTime
		next.DateEstimated = false
	}
	next.VenueName = rec.VenueName
	next.VenueAddress = rec.VenueAddress
	next.City = rec.City
	next.Category = append(catalog.Tags{}, rec.Category...)
	next.ImageURL = rec.ImageURL
	next.SourceName = rec.SourceName
	if rec.SourceURL != "" {
		next.SourceURL = catalog.NullableURL(rec.SourceURL)
	}
	return &next
}
