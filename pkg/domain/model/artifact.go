package model

import (
	"mime"
	"os"
	"path/filepath"
	"strings"
)

// audioContentTypes covers the extensions the extractor can produce. The
// mime package only knows them when the host has a mime.types file.
var audioContentTypes = map[string]string{
	".mp3":  "audio/mpeg",
	".m4a":  "audio/mp4",
	".opus": "audio/opus",
	".ogg":  "audio/ogg",
	".flac": "audio/flac",
	".wav":  "audio/wav",
}

// Artifact is a finished output file owned by a job directory
type Artifact struct {
	Path  string
	Name  string
	Size  int64
	Title string

	// Dir is the job directory holding the file. Release removes it.
	Dir string
}

// ContentType returns the MIME type of the artifact from its extension
func (a *Artifact) ContentType() string {
	return ContentTypeOf(a.Name)
}

// Release deletes the job directory and everything in it
func (a *Artifact) Release() error {
	if a == nil || a.Dir == "" {
		return nil
	}
	return os.RemoveAll(a.Dir)
}

// ContentTypeOf returns the MIME type for a file name
func ContentTypeOf(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ct, ok := audioContentTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
