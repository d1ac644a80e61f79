package codec

import (
	"encoding/json"
	"fmt"
	"io"

	"netcensus/internal/domain"
)

// JSONCodec handles JSON snapshots and inventories
type JSONCodec struct{}

// NewJSONCodec creates a new JSON codec
func NewJSONCodec() *JSONCodec {
	return &JSONCodec{}
}

// Format returns the codec format identifier
func (c *JSONCodec) Format() string {
	return "json"
}

// Decode parses a snapshot document, keeping device order
func (c *JSONCodec) Decode(r io.Reader) (*domain.Snapshot, error) {
	var snap domain.Snapshot
	decoder := json.NewDecoder(r)
	if err := decoder.Decode(&snap); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	return &snap, nil
}

// Encode writes an inventory as indented JSON
func (c *JSONCodec) Encode(inv *domain.Inventory, w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(inv); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}

	return nil
}
