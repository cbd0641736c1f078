// Package bootstrap provides the sources a peer loads its initial snapshot
// from: a YAML fixture, a SQLite seed database or generated demo data.
package bootstrap

import (
	"context"
	"fmt"
	"os"

	"tablesync/internal/store"

	"gopkg.in/yaml.v3"
)

// Fixture loads a snapshot from a YAML file.
type Fixture struct {
	Path string
}

// Load reads and parses the fixture file.
func (f Fixture) Load(_ context.Context) (store.Snapshot, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return store.Snapshot{}, fmt.Errorf("failed to read fixture: %w", err)
	}

	var snap store.Snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return store.Snapshot{}, fmt.Errorf("failed to parse fixture %s: %w", f.Path, err)
	}
	return snap, nil
}

// WriteFixture saves snap as YAML at path.
func WriteFixture(path string, snap store.Snapshot) error {
	data, err := yaml.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode fixture: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write fixture: %w", err)
	}
	return nil
}
