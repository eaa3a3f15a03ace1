package models

import "time"

// ConsoleSession is what the web console reports about one browser session.
type ConsoleSession struct {
	ID           string        `json:"id"`
	Upload       UploadSession `json:"upload"`
	Inspection   *CSVSummary   `json:"inspection,omitempty"`
	CreatedAt    time.Time     `json:"createdAt"`
	LastAccessed time.Time     `json:"lastAccessed"`
}
