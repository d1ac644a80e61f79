package codec

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"netcensus/internal/domain"
)

// YAMLCodec handles YAML snapshots and inventories
type YAMLCodec struct{}

// NewYAMLCodec creates a new YAML codec
func NewYAMLCodec() *YAMLCodec {
	return &YAMLCodec{}
}

// Format returns the codec format identifier
func (c *YAMLCodec) Format() string {
	return "yaml"
}

// Decode parses a snapshot document, keeping device order.
// An empty document decodes to an empty snapshot.
func (c *YAMLCodec) Decode(r io.Reader) (*domain.Snapshot, error) {
	var snap domain.Snapshot
	decoder := yaml.NewDecoder(r)
	if err := decoder.Decode(&snap); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return &snap, nil
}

// Encode writes an inventory as YAML
func (c *YAMLCodec) Encode(inv *domain.Inventory, w io.Writer) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)

	if err := encoder.Encode(inv); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}

	return encoder.Close()
}
