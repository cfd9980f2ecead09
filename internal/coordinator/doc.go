// Package coordinator owns the single authoritative measurement series and
// reconciles concurrent update sources under a last-write-wins policy.
//
// Every mutation funnels through one mutex and replaces the series wholesale,
// so a concurrent reader always sees either the old or the new series in
// full, never a partial one. Consumers only ever receive copies. Persistence
// is best-effort and asynchronous: a slow or failing save never blocks or
// fails an update, it only leaves the on-disk copy stale until the next
// successful write.
package coordinator
