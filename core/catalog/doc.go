// Package catalog holds the reconciled event catalog: the Event model and its gorm store.
//
// The events table is keyed by a UUID surrogate id. source_url carries a unique index
// and is stored as NULL when a source gives no URL, so uniqueness only binds real URLs.
// A composite index on (title, date_time, venue_name) backs the fallback matcher.
//
// Every write is a compare-and-swap on the version column; the claim operation used by
// operators bumps the version too, so an in-flight reconciliation write or sweep
// decided against the pre-claim state is rejected rather than overwriting the claim.
package catalog
