// File: pkg/storage/model.go
package storage

import (
	"fmt"
)

// Candidate identifies one object (or one version of it) to remove
// An empty VersionID targets the current object
type Candidate struct {
	Key       string
	VersionID string
}

func (c Candidate) String() string {
	if c.VersionID == "" {
		return c.Key
	}
	return c.Key + "@" + c.VersionID
}

// Represents a single object that the backend refused to delete inside an otherwise successful call
type DeleteError struct {
	Key       string
	VersionID string
	Code      string
	Message   string
}

func (e DeleteError) Error() string {
	target := e.Key
	if e.VersionID != "" {
		target += "@" + e.VersionID
	}
	return fmt.Sprintf("%s: %s (%s)", target, e.Message, e.Code)
}

type DeleteResult struct {
	Deleted int
	Errors  []DeleteError
}

func FormatBytes(bytes int64) string {
	if bytes < 0 {
		return "N/A"
	}
	if bytes == 0 {
		return "0 B"
	}

	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}

	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}

	sizes := []string{"KB", "MB", "GB", "TB", "PB", "EB"}
	if exp >= len(sizes) {
		return fmt.Sprintf("%d B", bytes)
	}
	return fmt.Sprintf("%.1f %s", float64(bytes)/float64(div), sizes[exp])
}
