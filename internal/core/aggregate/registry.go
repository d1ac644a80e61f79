package aggregate

import (
	"sort"
	"strings"

	"netcensus/internal/domain"
)

// entry is one registered identity.
// Entries are never modified once stored; decide builds replacements.
type entry struct {
	key        string
	record     *domain.DeviceRecord
	provenance domain.Provenance
	score      int
}

// decide computes the next entry for an identity from the registered entry
// and an incoming one. The higher score survives; on a tie the registered
// entry survives. The survivor is the merge base, so its id, confidence and
// detection method are kept while the other side fills missing payload.
func decide(existing, incoming *entry) (*entry, domain.RecordOutcome) {
	if existing == nil {
		return incoming, domain.OutcomeInserted
	}

	survivor, other, outcome := existing, incoming, domain.OutcomeMerged
	if incoming.score > existing.score {
		survivor, other, outcome = incoming, existing, domain.OutcomeReplaced
	}

	merged := Merge(survivor.record, other.record)
	merged.ID = upgradeID(survivor.record.ID, other.record.ID)

	return &entry{
		key:        existing.key,
		record:     merged,
		provenance: survivor.provenance,
		score:      survivor.score,
	}, outcome
}

// upgradeID prefers a hostname id over an address-derived one. Hostname ids
// that differ only in case resolve to the lexicographically smaller one.
func upgradeID(survivor, other string) string {
	if other == "" || domain.IsSyntheticName(other) {
		return survivor
	}
	if domain.IsSyntheticName(survivor) {
		return other
	}
	return caseVariant(survivor, other)
}

// caseVariant returns the smaller of two names that fold to the same host
// key, and a otherwise
func caseVariant(a, b string) string {
	if b < a && domain.HostKey(a) == domain.HostKey(b) {
		return b
	}
	return a
}

// alias records an address entry folded into a hostname entry
type alias struct {
	from, to string
	outcome  domain.RecordOutcome
}

// registry accumulates entries by dedup key
type registry struct {
	entries map[string]*entry
}

func newRegistry() *registry {
	return &registry{entries: make(map[string]*entry)}
}

// fold applies one incoming entry and reports what happened to it
func (r *registry) fold(incoming *entry) domain.RecordOutcome {
	next, outcome := decide(r.entries[incoming.key], incoming)
	r.entries[incoming.key] = next
	return outcome
}

// sortedKeys returns the registered dedup keys in sorted order
func (r *registry) sortedKeys() []string {
	keys := make([]string, 0, len(r.entries))
	for k := range r.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// resolveAliases folds every address entry into the hostname entry that
// claims its IP. An IP claimed by more than one hostname stays separate.
// Claims are taken from the hostname entries before any folding so the
// result does not depend on processing order.
func (r *registry) resolveAliases() []alias {
	claims := make(map[string][]string)
	for _, key := range r.sortedKeys() {
		e := r.entries[key]
		if !isHostnameKey(key) {
			continue
		}
		for _, ip := range e.record.Addresses() {
			claims[ip] = append(claims[ip], key)
		}
	}

	var aliases []alias
	for _, key := range r.sortedKeys() {
		ip, ok := addressOf(key)
		if !ok {
			continue
		}
		owners := claims[ip]
		if len(owners) != 1 {
			continue
		}

		target := owners[0]
		next, _ := decide(r.entries[target], r.entries[key])
		r.entries[target] = next
		delete(r.entries, key)
		aliases = append(aliases, alias{from: key, to: target, outcome: domain.OutcomeAliased})
	}
	return aliases
}

// devices returns the final records keyed by id. Entries that end up with
// the same id are merged so ids stay unique.
func (r *registry) devices() (map[string]*domain.DeviceRecord, []alias) {
	byID := make(map[string]*entry, len(r.entries))
	var collisions []alias
	for _, key := range r.sortedKeys() {
		e := r.entries[key]
		id := e.record.ID
		prev, ok := byID[id]
		if !ok {
			byID[id] = e
			continue
		}
		next, _ := decide(prev, e)
		byID[id] = next
		collisions = append(collisions, alias{from: key, to: prev.key, outcome: domain.OutcomeAliased})
	}

	out := make(map[string]*domain.DeviceRecord, len(byID))
	for id, e := range byID {
		out[id] = e.record
	}
	return out, collisions
}

func isHostnameKey(key string) bool {
	return strings.HasPrefix(key, hostnameKeyPrefix)
}
