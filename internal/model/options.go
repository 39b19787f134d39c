package model

// Options is the per-run restore configuration. It is passed by value to
// every component and never modified after the run starts.
type Options struct {
	SpaceID    string `json:"space_id"`
	BackupPath string `json:"backup_path"`
}
