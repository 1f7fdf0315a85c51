// Package assets embeds the web front-end served by the HTTP server
package assets

import (
	"embed"
	"io/fs"

	"github.com/m-mizutani/goerr/v2"
)

//go:embed static
var static embed.FS

// IndexFile is the entry page served on "/"
const IndexFile = "index.html"

// FS returns the embedded static root
func FS() (fs.FS, error) {
	root, err := fs.Sub(static, "static")
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open embedded assets")
	}
	return root, nil
}
