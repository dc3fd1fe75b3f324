package models

// Content entry types used by the GitHub contents API.
const (
	ContentTypeFile = "file"
	ContentTypeDir  = "dir"
)

// Repo describes a repository visible to the authenticated user.
type Repo struct {
	Name          string `json:"name"`
	FullName      string `json:"full_name"`
	Private       bool   `json:"private"`
	DefaultBranch string `json:"default_branch"`
}

// RepoContent is a single entry returned by the GitHub contents API, either
// a directory listing element or a full file object. Encoding and Content
// are only populated on single-file reads.
type RepoContent struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	SHA      string `json:"sha"`
	Size     int64  `json:"size"`
	Type     string `json:"type"`
	Encoding string `json:"encoding,omitempty"`
	Content  string `json:"content,omitempty"`
}
