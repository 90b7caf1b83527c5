// Package reconcile turns batches of raw listings from unreliable sources into a
// consistent event catalog.
//
// A run moves every record through four stages, then retires what was not seen:
//
//  1. Normalizer: defaults missing fields and resolves the date. Records without
//     a title, a source name, or any usable identity are dropped.
//  2. Matcher: finds the existing event by source URL, then by the exact
//     (title, date, venue) triple. Ties resolve to the oldest event.
//  3. Status resolver: new when unmatched, updated when a tracked field changed,
//     otherwise unchanged (imported stays imported, everything else reads new).
//  4. Upsert: creates the event or writes it back with a version check, retrying
//     the whole read-modify-write when another writer won.
//
// After the batch, the sweeper marks unclaimed events that were not seen as
// inactive when their date has passed or they have not been seen for StaleAfter.
//
// # Concurrency
//
// Sources are fetched concurrently and fail independently. Records are hashed by
// their match key onto Config.Workers lanes, so records sharing a key are applied
// in arrival order while unrelated keys proceed in parallel. Store connectivity
// failures cancel the run.
//
// # Claimed events
//
// An event with status imported belongs to an operator. Runs only advance its
// LastScrapedAt unless Config.RefreshClaimed is set, and the sweeper never
// retires it.
//
// # Usage
//
//	engine := reconcile.NewEngine(store, sources, cfg, logger)
//	summary, err := engine.Run(ctx)
//	if errors.Is(err, reconcile.ErrStoreUnavailable) {
//	    // retry on the next schedule
//	}
package reconcile
