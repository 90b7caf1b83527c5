// Package integrity verifies that a deployment has what reconciliation needs.
//
// # Checks Provided
//
//   - Schema: the events table carries every column and index the matcher and sweeper use.
//   - Storage: the bucket exists and holds the source drop and run archive folders.
//   - Redis: the shared instance used for the run lock and notifications answers.
//
// Storage and Redis are optional; when they are not configured their checks
// report "disabled" and pass.
//
// # HTTP Endpoints
//
//   - GET /integrity : Runs all checks (supports ?fix=true).
//   - GET /integrity/schema : Runs the schema check.
//   - GET /integrity/storage : Runs the storage check (supports ?fix=true).
//   - GET /integrity/redis : Pings Redis.
package integrity
