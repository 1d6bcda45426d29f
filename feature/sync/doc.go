// Package sync implements the reconciliation engine that keeps the mirror
// database in step with the monitored mail servers.
//
// One run walks every configured server sequentially. Per server it
// reconciles the domain inventory first (upserts, change events, removal of
// vanished domains, account purge for disabled domains), then fans the
// usage-visible domains out over a bounded worker pool. Each worker owns one
// exclusive admin CLI session for its domain and reads account quotas
// sequentially inside it.
//
// # Components
//
//   - BuildPlan: pure transform of the raw usage snapshot into per-domain work.
//   - ProcessDomain: one domain pass over one session; account failures are
//     stage-tagged values, not errors.
//   - Dispatcher: worker pool plus the bounded bridge channel feeding results
//     to a single consumer in completion order.
//   - Writer: the sole mirror mutator during a pass; batches account upserts
//     and hard-deletes accounts that stopped appearing.
//   - Runner: per-server orchestration, failure containment, the run snapshot
//     and the optional report archive.
//
// Concurrency model: workers perform all the blocking network I/O, the
// writer performs all the state mutation. They meet only at the bridge
// channel, whose close is the end-of-stream signal.
package sync
