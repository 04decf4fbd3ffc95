package models

import (
	"strings"
	"time"
)

// File is one file record within a project. Content is whole-file text;
// LastModified (wall-clock millis) is the sole conflict-resolution signal.
type File struct {
	Name         string `json:"name"`
	Content      string `json:"content"`
	Type         string `json:"type"`
	LastModified int64  `json:"lastModified"`
	ModifiedBy   string `json:"modifiedBy,omitempty"`
}

// NewFile creates a file record stamped with the current time.
func NewFile(name, content, modifiedBy string) *File {
	return &File{
		Name:         name,
		Content:      content,
		Type:         FileTypeFor(name),
		LastModified: NowMillis(),
		ModifiedBy:   modifiedBy,
	}
}

// NewerThan reports whether f carries a strictly greater timestamp than other.
func (f *File) NewerThan(other *File) bool {
	return f.LastModified > other.LastModified
}

// FileTypeFor derives the display type from a file name's extension.
func FileTypeFor(name string) string {
	idx := strings.LastIndex(name, ".")
	if idx < 0 {
		return "text"
	}
	switch strings.ToLower(name[idx+1:]) {
	case "html", "htm":
		return "html"
	case "css":
		return "css"
	case "js":
		return "javascript"
	case "json":
		return "json"
	case "md":
		return "markdown"
	default:
		return "text"
	}
}

// NowMillis returns the current wall-clock time in milliseconds.
func NowMillis() int64 {
	return time.Now().UnixMilli()
}
