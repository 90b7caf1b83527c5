// Package runs schedules reconciliation runs and distributes their results.
//
// A Runner wraps the engine so that overlapping triggers (the scheduler, the
// HTTP endpoint, another replica) never reconcile concurrently. Within a process
// callers share the in-flight run; across processes a Redis lease decides who
// runs and the others get ErrBusy.
//
// Successful summaries are handed to publishers: RedisPublisher announces them
// on a pub/sub channel and Archive keeps a JSON copy in object storage.
package runs
