package storage

import "fmt"

// ObjectKey addresses one result file in object storage.
type ObjectKey struct {
	Source    string
	Profile   string
	Date      string // YYYY-MM-DD, or "undated"
	RunID     string // UUIDv7 passed from orchestration
	Extension string
}

func (k ObjectKey) Key() string {
	return fmt.Sprintf("%s/%s/%s/%s.%s", k.Source, k.Profile, k.Date, k.RunID, k.Extension)
}
