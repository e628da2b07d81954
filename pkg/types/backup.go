package types

import "time"

type BackupMetadata struct {
	Version   string    `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	App       string    `json:"app"`
}

// Backup is the export document: one entry per core table, each a list of
// rows keyed by column name.
type Backup struct {
	Metadata BackupMetadata              `json:"metadata"`
	Data     map[string][]map[string]any `json:"data"`
}
