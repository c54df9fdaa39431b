package crate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// WriteMetadata serializes the graph as ro-crate-metadata.json inside dir:
// sorted keys, two-space indent, UTF-8, so re-serializing an unchanged graph
// produces byte-identical output and stable checksums downstream.
func (c *Crate) WriteMetadata(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("write crate metadata: %w", err)
	}
	data, err := c.MarshalMetadata()
	if err != nil {
		return err
	}
	target := filepath.Join(dir, MetadataFilename)
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return fmt.Errorf("write crate metadata %s: %w", target, err)
	}
	return nil
}

// MarshalMetadata renders the canonical metadata document.
func (c *Crate) MarshalMetadata() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(c.graph()); err != nil {
		return nil, fmt.Errorf("marshal crate metadata: %w", err)
	}
	return buf.Bytes(), nil
}

// ReadMetadataGraph loads the @graph array of a serialized metadata document,
// keyed by @id. Used when inspecting an already-built package.
func ReadMetadataGraph(dir string) (map[string]map[string]any, error) {
	raw, err := os.ReadFile(filepath.Join(dir, MetadataFilename))
	if err != nil {
		return nil, fmt.Errorf("read crate metadata: %w", err)
	}
	var doc struct {
		Graph []map[string]any `json:"@graph"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse crate metadata: %w", err)
	}
	byID := make(map[string]map[string]any, len(doc.Graph))
	for _, node := range doc.Graph {
		id, ok := node["@id"].(string)
		if !ok {
			return nil, fmt.Errorf("parse crate metadata: node without @id")
		}
		byID[id] = node
	}
	return byID, nil
}
