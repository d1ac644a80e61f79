package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Provenance classifies how trustworthy a snapshot's collection method was
type Provenance string

const (
	ProvenanceHigherTrust Provenance = "higher-trust" // authenticated collection, e.g. SNMPv3
	ProvenanceLowerTrust  Provenance = "lower-trust"  // unauthenticated/legacy, e.g. SNMPv2c, nmap
)

// ParseProvenance maps a config or CLI string to a Provenance.
// Unknown values fall back to lower-trust.
func ParseProvenance(s string) Provenance {
	switch Provenance(s) {
	case ProvenanceHigherTrust:
		return ProvenanceHigherTrust
	default:
		return ProvenanceLowerTrust
	}
}

// Known reports whether p is one of the provenance values, ignoring case and
// surrounding space
func (p Provenance) Known() bool {
	switch Provenance(strings.ToLower(strings.TrimSpace(string(p)))) {
	case ProvenanceHigherTrust, ProvenanceLowerTrust:
		return true
	}
	return false
}

// ProvenanceRule assigns a provenance to snapshot files whose base name
// contains Match, compared case-insensitively.
type ProvenanceRule struct {
	Match      string     `json:"match" yaml:"match"`
	Provenance Provenance `json:"provenance" yaml:"provenance"`
}

// Matches reports whether the rule applies to a file name
func (r ProvenanceRule) Matches(name string) bool {
	return r.Match != "" && strings.Contains(strings.ToLower(name), strings.ToLower(r.Match))
}

// Snapshot is one ingested scan result
type Snapshot struct {
	Source     string         `json:"source" yaml:"source"`
	Provenance Provenance     `json:"provenance" yaml:"provenance"`
	Digest     string         `json:"digest,omitempty" yaml:"digest,omitempty"`
	Version    string         `json:"version,omitempty" yaml:"version,omitempty"`
	Devices    DeviceSet      `json:"devices" yaml:"devices"`
	Sessions   []Session      `json:"sessions,omitempty" yaml:"sessions,omitempty"`
	Statistics map[string]any `json:"statistics,omitempty" yaml:"statistics,omitempty"`
	Config     map[string]any `json:"config,omitempty" yaml:"config,omitempty"`
}

// DeviceEntry is one keyed device in a snapshot
type DeviceEntry struct {
	Key    string
	Record *DeviceRecord
}

// DeviceSet is a device map that remembers document order
type DeviceSet []DeviceEntry

// Add appends a keyed record
func (s *DeviceSet) Add(key string, rec *DeviceRecord) {
	*s = append(*s, DeviceEntry{Key: key, Record: rec})
}

// Len returns the number of entries
func (s DeviceSet) Len() int {
	return len(s)
}

// UnmarshalJSON decodes a JSON object while keeping key order
func (s *DeviceSet) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*s = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("devices: expected object, got %v", tok)
	}

	var out DeviceSet
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("devices: expected string key, got %v", keyTok)
		}
		var rec DeviceRecord
		if err := dec.Decode(&rec); err != nil {
			return fmt.Errorf("devices[%s]: %w", key, err)
		}
		out.Add(key, &rec)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	*s = out
	return nil
}

// MarshalJSON encodes entries as a JSON object in stored order
func (s DeviceSet) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.Key)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(e.Record)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalYAML decodes a YAML mapping while keeping key order
func (s *DeviceSet) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		*s = nil
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("devices: expected mapping at line %d", node.Line)
	}

	var out DeviceSet
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		var rec DeviceRecord
		if err := node.Content[i+1].Decode(&rec); err != nil {
			return fmt.Errorf("devices[%s]: %w", key, err)
		}
		out.Add(key, &rec)
	}

	*s = out
	return nil
}

// MarshalYAML encodes entries as a YAML mapping in stored order
func (s DeviceSet) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, e := range s {
		var val yaml.Node
		if err := val.Encode(e.Record); err != nil {
			return nil, err
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: e.Key},
			&val,
		)
	}
	return node, nil
}

// Session is a passthrough scan session record
type Session map[string]any

// Timestamp returns the session timestamp as a string, or ""
func (s Session) Timestamp() string {
	switch v := s["timestamp"].(type) {
	case string:
		return v
	case time.Time:
		return v.Format(time.RFC3339Nano)
	}
	return ""
}

// Clone returns a shallow copy
func (s Session) Clone() Session {
	cp := make(Session, len(s)+2)
	for k, v := range s {
		cp[k] = v
	}
	return cp
}

// ErrorTypes returns the error_type of every entry in the session's errors
// list; untyped entries are reported as "general".
func (s Session) ErrorTypes() []string {
	list, ok := s["errors"].([]any)
	if !ok {
		return nil
	}
	var types []string
	for _, item := range list {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if t, ok := entry["error_type"].(string); ok && t != "" {
			types = append(types, t)
		} else {
			types = append(types, "general")
		}
	}
	return types
}

// SortSessions stably orders sessions by timestamp
func SortSessions(sessions []Session) {
	sort.SliceStable(sessions, func(i, j int) bool {
		return CompareTimestamps(sessions[i].Timestamp(), sessions[j].Timestamp()) < 0
	})
}
