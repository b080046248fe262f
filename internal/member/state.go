// Package member implements the probing agent: registration maintenance,
// peer discovery, the four probe pipelines, and the local health/metrics
// surface described in spec.md §4.2.
package member

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

type instanceState struct {
	InstanceID string `json:"instance_id"`
}

// LoadOrCreateInstanceID implements spec.md §6.5's persisted-state
// contract: a single file holds the generated instance id, created on
// first start and never overwritten afterward. configuredID, when
// non-empty and no id has been persisted yet, is used verbatim and
// persisted; once a file holds an id, that id wins over configuredID.
func LoadOrCreateInstanceID(path, configuredID string) (string, error) {
	st, err := loadInstanceState(path)
	if err != nil {
		return "", err
	}
	if st.InstanceID != "" {
		return st.InstanceID, nil
	}

	id := configuredID
	if id == "" {
		id = uuid.NewString()
	}
	if err := saveInstanceState(path, instanceState{InstanceID: id}); err != nil {
		return "", err
	}
	return id, nil
}

func loadInstanceState(path string) (instanceState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return instanceState{}, nil
		}
		return instanceState{}, fmt.Errorf("member: failed to read instance state file: %w", err)
	}
	var st instanceState
	if err := json.Unmarshal(data, &st); err != nil {
		return instanceState{}, fmt.Errorf("member: corrupted instance state file: %w", err)
	}
	return st, nil
}

// saveInstanceState writes st to path atomically: a temp file in the same
// directory is written and fsynced, then renamed over the destination, so
// a crash mid-write never leaves a half-written instance id on disk.
func saveInstanceState(path string, st instanceState) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("member: failed to encode instance state: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("member: failed to create state directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".instance-state-*.tmp")
	if err != nil {
		return fmt.Errorf("member: failed to create temp state file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("member: failed to write temp state file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("member: failed to sync temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("member: failed to close temp state file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("member: failed to install instance state file: %w", err)
	}
	return nil
}
