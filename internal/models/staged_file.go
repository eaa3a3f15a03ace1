package models

import "time"

// StagedFile is a file the console received from the browser and holds on local disk
// until its session ends.
type StagedFile struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Size     int64     `json:"size"`
	StagedAt time.Time `json:"stagedAt"`
}
