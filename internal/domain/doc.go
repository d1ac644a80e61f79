// Package domain defines the core types for the netcensus inventory reconciler.
//
// This package contains the entities exchanged between the snapshot loader,
// the aggregation engine and the storage layer: scan snapshots, device
// records, sessions and the merged inventory document.
//
// # Core Types
//
// Snapshot is one ingested scan result. It carries an ordered set of device
// records, the sessions that produced them, and a provenance tag describing
// how trustworthy the collection method was.
//
// DeviceRecord describes one network device as seen by one snapshot. Most
// attributes are optional; absent values are represented by the empty string
// and never overwrite present ones during a merge.
//
// Inventory is the merged, deduplicated document produced by an aggregation
// run, together with recomputed Statistics and MergeInfo bookkeeping.
//
// # Values
//
// Normalize canonicalizes raw scalar fields. Scanners emit several spellings
// of "no value" (empty, "none", "<nil>"); all of them are treated as absent.
//
// SNMPData models the two-level snmp_data_by_ip map and owns its merge rule.
//
// CompareTimestamps orders ISO-8601 timestamps by parsing them, falling back
// to string order when a value does not parse.
//
// # Design Principles
//
// - No database, network or file system access
// - Records are copied, never mutated in place, by merge helpers
// - Deterministic output: sets are sorted, maps are keyed
package domain
