package models

import (
	"fmt"
	"os"
	"path/filepath"
)

// CandidateFile describes a file the user picked but that has not been accepted yet.
type CandidateFile struct {
	Name      string `json:"name"`
	SizeBytes int64  `json:"sizeBytes"`
	Extension string `json:"extension"`
	Path      string `json:"-"` // local path the submitter streams from
}

// NewCandidateFile builds a descriptor for a named file stored at path.
func NewCandidateFile(name string, size int64, path string) *CandidateFile {
	return &CandidateFile{
		Name:      name,
		SizeBytes: size,
		Extension: filepath.Ext(name),
		Path:      path,
	}
}

// CandidateFromPath stats a local file and describes it.
func CandidateFromPath(path string) (*CandidateFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	return NewCandidateFile(info.Name(), info.Size(), path), nil
}

// Clone returns a copy safe to hand out of a locked section.
func (f *CandidateFile) Clone() *CandidateFile {
	if f == nil {
		return nil
	}
	c := *f
	return &c
}
