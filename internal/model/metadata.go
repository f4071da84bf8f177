package model

import (
	"encoding/json"
	"time"
)

// Well-known metadata keys.
const (
	MetaMigratedFromLegacy = "migratedFromLocalStorage"
	MetaLastSync           = "lastSync"
)

// Metadata is a generic key/value entry with its update time.
type Metadata struct {
	Key       string          `json:"key"`
	Value     json.RawMessage `json:"value"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// RecordID returns the metadata key.
func (m Metadata) RecordID() string { return m.Key }
