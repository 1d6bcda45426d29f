// Package registry persists the mirror of the monitored mail estate: servers,
// their domains and accounts, the append-only change log, and per-run
// snapshots.
//
// # Write discipline
//
// The Store is the only mutation surface for the mirror tables, and during a
// sync run it is driven exclusively by the reconciliation writer and the run
// orchestrator. Concurrent domain workers never touch storage; upsert races
// are impossible by construction rather than prevented by locking.
//
// # Change log
//
// Domain transitions (added, removed, status changed) are recorded as
// immutable DomainChange rows. The AccountChange table and the per-account
// quota fingerprint exist so account-level events can be added later without
// a schema change, but no account events are emitted today.
package registry
