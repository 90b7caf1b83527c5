// Package middleware contains HTTP middleware for the Fiber application.
//
// # Components
//
//   - auth: API key validation for the admin routes.
//   - rayid: a request id stored in locals and echoed in X-Ray-ID, picked up by
//     logger.WithRayID.
package middleware
