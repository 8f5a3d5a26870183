// Package models defines the core domain models for the savings planning
// and execution engine.
//
// # Lifecycle
//
// Each calendar month is bucketed by a month label ("YYYY-MM"). For a month,
// every active goal gets one MonthlyPlan (draft → executing → closed). When
// the user commits a month's draft plans, an ExecutionRecord is created with
// an immutable Snapshot of the planned amounts; Contributions are recorded
// against it while it is executing, and closing it freezes totals into a
// CompletedExecution for stable historical reporting.
//
// # Derived vs persistent
//
//   - MonthlyRequirement and AdjustedRequirement are ephemeral: recomputed
//     each planning session, never stored.
//   - MonthlyPlan, ExecutionRecord, Contribution, CompletedExecution and
//     Goal are persistent rows owned by the storage layer.
//
// # Design principles
//
//  1. Snapshots are embedded by value: once tracking starts, later edits to
//     goals or plans must not leak into an ExecutionRecord's Snapshot.
//  2. Contributions reference their ExecutionRecord by ID only (a lookup
//     key, not a strong back-reference): a contribution outlives the
//     record's undo window.
//  3. The effective amount of a plan lives in one place,
//     MonthlyPlan.EffectiveAmount, instead of nil-coalescing scattered
//     through call sites.
package models
