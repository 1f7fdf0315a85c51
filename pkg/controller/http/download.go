package http

import (
	"io"
	"mime"
	"net/http"
	"os"
	"strconv"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/tubeaudio/pkg/domain/interfaces"
	"github.com/m-mizutani/tubeaudio/pkg/domain/model"
)

type downloadHandler struct {
	jobUC interfaces.JobUseCase
}

// Handle converts the submitted url and streams the audio file back as an
// attachment. The job directory is removed once the body is written.
func (h *downloadHandler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := ctxlog.From(ctx)

	artifact, err := h.jobUC.Run(ctx, r.PostFormValue("url"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	defer func() {
		if err := artifact.Release(); err != nil {
			logger.Warn("Failed to remove job directory", "error", err, "dir", artifact.Dir)
		}
	}()

	f, err := os.Open(artifact.Path)
	if err != nil {
		respondError(w, r, goerr.Wrap(err, "failed to open output file", goerr.V("path", artifact.Path)))
		return
	}
	defer func() {
		_ = f.Close() // read only
	}()

	writeAttachment(w, r, artifact.Name, artifact.Size, f)
}

// writeAttachment streams body with download headers. size < 0 omits
// Content-Length.
func writeAttachment(w http.ResponseWriter, r *http.Request, name string, size int64, body io.Reader) {
	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": name})
	if disposition == "" {
		disposition = "attachment"
	}

	w.Header().Set("Content-Type", model.ContentTypeOf(name))
	w.Header().Set("Content-Disposition", disposition)
	if size >= 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	}
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, body); err != nil {
		// Headers are sent already; the client sees a truncated body
		ctxlog.From(r.Context()).Warn("Failed to write attachment", "error", err, "file", name)
	}
}
