// Package snapshotManifest indexes the offering snapshots stored in a directory.
package snapshotManifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/mod/semver"
)

const ManifestFileName = "manifest.json"

// CreatedAt is a time.Time that only accepts quoted RFC3339 values.
type CreatedAt struct {
	time.Time
}

func (ca *CreatedAt) UnmarshalJSON(data []byte) error {
	timeString := string(data)
	if timeString == "" || timeString == "null" {
		return nil
	}
	if len(timeString) < 2 || timeString[0] != '"' || timeString[len(timeString)-1] != '"' {
		return fmt.Errorf("Invalid value provided for createdAt '%s'", timeString)
	}
	timeString = timeString[1 : len(timeString)-1]

	t, err := time.Parse(time.RFC3339, timeString)
	if err != nil {
		return err
	}
	ca.Time = t
	return nil
}

func (ca CreatedAt) MarshalJSON() ([]byte, error) {
	return json.Marshal(ca.Time.UTC().Format(time.RFC3339))
}

type Snapshot struct {
	OfferingId string    `json:"offeringId"`
	Version    string    `json:"version"`
	CreatedAt  CreatedAt `json:"createdAt"`
	FileName   string    `json:"fileName"`
	StateRoot  string    `json:"stateRoot"`
}

type Metadata struct {
	Version string `json:"version"`
}

type SnapshotManifest struct {
	Metadata  Metadata    `json:"metadata"`
	Snapshots []*Snapshot `json:"snapshots"`
}

const manifestVersion = "v1.0.0"

func NewSnapshotManifest() *SnapshotManifest {
	return &SnapshotManifest{
		Metadata:  Metadata{Version: manifestVersion},
		Snapshots: make([]*Snapshot, 0),
	}
}

// FindSnapshot returns the newest snapshot of offeringId written by a version equal to
// or lower than runningVersion, or nil.
func (sm *SnapshotManifest) FindSnapshot(offeringId string, runningVersion string) *Snapshot {
	var found *Snapshot
	for _, snapshot := range sm.Snapshots {
		if snapshot.OfferingId != offeringId {
			continue
		}
		if semver.Compare(snapshot.Version, runningVersion) > 0 {
			continue
		}
		if found == nil || !snapshot.CreatedAt.Before(found.CreatedAt.Time) {
			found = snapshot
		}
	}
	return found
}

func (sm *SnapshotManifest) AddSnapshot(snapshot *Snapshot) {
	sm.Snapshots = append(sm.Snapshots, snapshot)
}

func NewSnapshotManifestFromJson(data []byte) (*SnapshotManifest, error) {
	var manifest *SnapshotManifest

	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, err
	}
	if manifest == nil {
		return nil, fmt.Errorf("empty manifest")
	}
	return manifest, nil
}

// LoadFromDir reads the manifest in dir, returning an empty manifest when there is none.
func LoadFromDir(dir string) (*SnapshotManifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return NewSnapshotManifest(), nil
		}
		return nil, err
	}
	return NewSnapshotManifestFromJson(data)
}

func (sm *SnapshotManifest) SaveToDir(dir string) error {
	data, err := json.MarshalIndent(sm, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, ManifestFileName), data, 0644)
}
