// Package server holds the HTTP server configuration.
//
// The start command owns the Fiber app; this package only describes where it
// listens, which API key guards the admin routes and how long shutdown may take.
package server
