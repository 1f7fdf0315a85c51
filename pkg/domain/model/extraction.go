package model

import (
	"path/filepath"
	"strings"
)

// OutputTemplateName is the yt-dlp output template for a file inside a job
// directory: the source title plus the source extension
const OutputTemplateName = "%(title)s.%(ext)s"

// ExtractionRequest is one invocation of the extractor against one URL
type ExtractionRequest struct {
	URL            string
	OutputTemplate string
	Profile        Profile

	// OnProgress, when set, receives download progress in percent (0-100)
	OnProgress func(percent int)
}

// ExtractionResult is what the extractor reports after a successful run
type ExtractionResult struct {
	Title string
	// Filename is the path the extractor predicted for the downloaded file.
	// It keeps the source extension because post-processing renames the
	// file after the prediction is made.
	Filename string
}

// OutputPath derives the final file path by replacing the extension of the
// reported filename with ext
func (r *ExtractionResult) OutputPath(ext string) string {
	return ReplaceExt(r.Filename, ext)
}

// ReplaceExt replaces the extension of path with ext. A path without an
// extension gets ext appended.
func ReplaceExt(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}
