// Package codec converts between scan documents on disk and domain types.
//
// Decoders turn one snapshot document into a domain.Snapshot; encoders write
// a merged domain.Inventory. Decoders never classify provenance unless the
// format itself implies it (nmap output is always unauthenticated).
package codec

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"netcensus/internal/domain"
)

// ErrUnsupportedFormat is returned for unknown file extensions and formats
var ErrUnsupportedFormat = errors.New("unsupported format")

// SnapshotDecoder parses one snapshot document
type SnapshotDecoder interface {
	Decode(r io.Reader) (*domain.Snapshot, error)
	Format() string
}

// InventoryEncoder writes a merged inventory
type InventoryEncoder interface {
	Encode(inv *domain.Inventory, w io.Writer) error
	Format() string
}

// DecoderForPath picks a decoder from a file extension
func DecoderForPath(path string) (SnapshotDecoder, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return NewJSONCodec(), nil
	case ".yaml", ".yml":
		return NewYAMLCodec(), nil
	case ".xml":
		return NewNmapCodec(), nil
	}
	return nil, fmt.Errorf("%s: %w", path, ErrUnsupportedFormat)
}

// EncoderFor returns the inventory encoder for a format name
func EncoderFor(format string) (InventoryEncoder, error) {
	switch strings.ToLower(format) {
	case "json":
		return NewJSONCodec(), nil
	case "yaml", "yml":
		return NewYAMLCodec(), nil
	}
	return nil, fmt.Errorf("%s: %w", format, ErrUnsupportedFormat)
}

// ContentType returns the HTTP media type for an encoder format
func ContentType(format string) string {
	switch format {
	case "yaml":
		return "application/yaml"
	default:
		return "application/json"
	}
}
