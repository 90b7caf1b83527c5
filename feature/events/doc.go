// Package events exposes the catalog to curators: listing and inspecting
// reconciled events, and claiming (importing) or releasing them.
package events
