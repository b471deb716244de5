package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// New creates an empty manifest with defaults.
func New(profileName string, budgetKB int) *Manifest {
	return &Manifest{
		Version:     SupportedManifestVersion,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Profile:     profileName,
		BudgetKB:    budgetKB,
		BasePath:    "./",
		Entries:     make(map[string]Entry),
	}
}

// ComputeStats recalculates aggregate statistics from entries. Failed is a
// run-time count and is left untouched.
func (m *Manifest) ComputeStats() {
	s := Stats{Failed: m.Stats.Failed}
	s.TotalEntries = len(m.Entries)
	for _, e := range m.Entries {
		s.TotalInputBytes += e.Source.Size
		s.TotalOutputBytes += e.Output.Size
		if !e.Output.MetBudget {
			s.OverBudget++
		}
	}
	m.Stats = s
}

// WriteJSON serializes the manifest to a JSON file.
func WriteJSON(m *Manifest, path string) error {
	m.ComputeStats()

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}

// ReadJSON loads a manifest, rejecting unknown schema versions.
func ReadJSON(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if m.Version != SupportedManifestVersion {
		return nil, fmt.Errorf("unsupported manifest version: %d", m.Version)
	}
	return &m, nil
}
