// Package service implements the aggregation workflow for netcensus.
//
// AggregationService coordinates the snapshot loader, the aggregation
// engine and the repository. A run loads every configured snapshot source,
// skips the work when the combined input digest matches the latest stored
// run, folds the snapshots into an inventory, and stores the inventory
// together with its device index.
//
// # Event System
//
// Run outcomes are published on an EventBus for real-time updates to
// connected clients via Server-Sent Events (SSE): inventory_updated,
// aggregate_skipped and aggregate_failed.
//
// # Design Principles
//
// - Runs are serialised; a reader sees the previous inventory until the
//   next one is committed
// - Repository pattern for data access
// - Context-aware for cancellation and timeouts
package service
