package model

import "time"

// Download is the outcome of fetching one harvested resource path.
type Download struct {
	// Path is the raw match found in a script file.
	Path string `json:"path"`

	// URL is the absolute URL the path resolved to. Empty when resolution failed.
	URL string `json:"url,omitempty"`

	// File is the saved file name inside the resource directory, e.g. "3.pdf".
	File string `json:"file,omitempty"`

	// Bytes is the decoded body size.
	Bytes int64 `json:"bytes"`

	// Digest is the hex SHA3-256 of the decoded body.
	Digest string `json:"digest,omitempty"`

	// Err is the failure message. Empty on success.
	Err string `json:"error,omitempty"`

	// FinishedAt is when the task finished.
	FinishedAt time.Time `json:"finishedAt"`
}

// OK reports whether the resource was saved.
func (d *Download) OK() bool {
	return d.Err == ""
}
