// Package sources provides the upstream listing sources consumed by the
// reconciliation engine.
//
// Three kinds are supported:
//   - Feed: a JSON document fetched over HTTP.
//   - Bucket: JSON or YAML objects dropped under a storage prefix.
//   - File: a local fixture, used for seeding and development.
//
// All of them share Decode, which accepts plain arrays, schema.org ItemList and
// @graph documents, and objects wrapping a list under "events" or "items".
// Listing fields are read from either schema.org Event keys (name, startDate,
// location.address.addressLocality, ...) or the catalog's own names.
package sources
