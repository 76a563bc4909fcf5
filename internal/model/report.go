package model

import (
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// Report is the rendered envelope around one comparison
type Report struct {
	AnalysisID        string          `json:"analysis_id"`
	GeneratedAt       time.Time       `json:"generated_at"`
	ConfigFingerprint string          `json:"config_fingerprint"`
	Before            SourceMeta      `json:"before_source"`
	After             SourceMeta      `json:"after_source"`
	Result            *AnalysisResult `json:"result"`
}

// SourceKind says how a document version was obtained
type SourceKind string

const (
	SourceFile   SourceKind = "file"
	SourceURL    SourceKind = "url"
	SourceInline SourceKind = "inline"
)

// SourceMeta describes where a document version came from
type SourceMeta struct {
	Location     string     `json:"location"`
	Kind         SourceKind `json:"kind"`
	ContentType  string     `json:"content_type,omitempty"`
	StatusCode   int        `json:"status_code,omitempty"` // URL sources only
	LastModified string     `json:"last_modified,omitempty"`
	ETag         string     `json:"etag,omitempty"`
	Bytes        int        `json:"bytes"`
	LoadedAt     time.Time  `json:"loaded_at"`
}

// Subject returns a short display name for the source
func (m SourceMeta) Subject() string {
	return SubjectFromLocation(m.Location)
}

// SubjectFromLocation extracts the last path element of a file path or URL
func SubjectFromLocation(location string) string {
	if u, err := url.Parse(location); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		if base := path.Base(strings.TrimSuffix(u.Path, "/")); base != "." && base != "/" && base != "" {
			return base
		}
		return u.Host
	}
	if location == "" {
		return "inline"
	}
	return filepath.Base(location)
}
