package http

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/tubeaudio/pkg/assets"
)

// staticHandler serves the front-end. Names are resolved with io/fs rules,
// so no request can reach outside root.
type staticHandler struct {
	root fs.FS
}

// Index serves the entry page regardless of the query string
func (h *staticHandler) Index(w http.ResponseWriter, r *http.Request) {
	data, err := fs.ReadFile(h.root, assets.IndexFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			http.NotFound(w, r)
			return
		}
		respondError(w, r, goerr.Wrap(err, "failed to read index page"))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data) // client may have gone away
}

// File serves one file under root. Invalid names, directories and missing
// files are all 404.
func (h *staticHandler) File(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "*")
	if r.URL.RawPath != "" {
		// chi routes on RawPath when it is set, leaving the wildcard escaped
		var err error
		if name, err = url.PathUnescape(name); err != nil {
			http.NotFound(w, r)
			return
		}
	}
	if !fs.ValidPath(name) || name == "." {
		http.NotFound(w, r)
		return
	}

	f, err := h.root.Open(name)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer func() {
		_ = f.Close() // read only
	}()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}

	content, ok := f.(io.ReadSeeker)
	if !ok {
		data, err := io.ReadAll(f)
		if err != nil {
			respondError(w, r, goerr.Wrap(err, "failed to read static file", goerr.V("name", name)))
			return
		}
		content = bytes.NewReader(data)
	}

	http.ServeContent(w, r, info.Name(), info.ModTime(), content)
}
