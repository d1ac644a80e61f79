// Package aggregate implements the device-record reconciliation engine.
//
// An Aggregator folds an ordered list of parsed snapshots into one
// deduplicated Inventory. It performs no I/O: loading, persistence and
// transport live in other packages and call into this one.
//
// # Pipeline
//
// Each record is canonicalized, resolved to an Identity, scored, and folded
// into a registry keyed by dedup key:
//
//	snapshot records -> Resolve -> Score -> registry.fold -> Summarize
//
// Identity is hostname-based when the record carries a real name (directly or
// through the SNMP sysName OID) and IP-based otherwise. After the fold, IP
// entries whose address is claimed by exactly one hostname entry are folded
// into it, which upgrades their id to the hostname.
//
// # Conflict Resolution
//
// When two records share an identity the higher Score survives and keeps its
// id, confidence_score and detection_method. The payload of the loser is
// merged in with fill-missing semantics (see Merge). On equal scores the
// record already in the registry survives.
//
// # Concurrency
//
// Aggregate is synchronous and safe to call from multiple goroutines on the
// same Aggregator; each call owns its registry.
package aggregate
