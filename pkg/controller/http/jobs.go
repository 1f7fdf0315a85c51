package http

import (
	"encoding/json"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/tubeaudio/pkg/domain/interfaces"
	"github.com/m-mizutani/tubeaudio/pkg/domain/types"
)

// maxJSONBody bounds the JSON body of a job submission
const maxJSONBody = 64 << 10

type jobHandler struct {
	jobUC interfaces.JobUseCase
}

type submitRequest struct {
	URL string `json:"url"`
}

// Submit queues an asynchronous conversion and answers 202 with the job
func (h *jobHandler) Submit(w http.ResponseWriter, r *http.Request) {
	url, err := submittedURL(w, r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	job, err := h.jobUC.Submit(r.Context(), url)
	if err != nil {
		respondError(w, r, err)
		return
	}

	w.Header().Set("Location", "/jobs/"+job.ID.String())
	writeJSON(w, r, http.StatusAccepted, job)
}

// Get returns the job status
func (h *jobHandler) Get(w http.ResponseWriter, r *http.Request) {
	job, err := h.jobUC.Get(r.Context(), types.JobID(chi.URLParam(r, "id")))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, job)
}

// File streams the output of a succeeded job
func (h *jobHandler) File(w http.ResponseWriter, r *http.Request) {
	job, rc, err := h.jobUC.Open(r.Context(), types.JobID(chi.URLParam(r, "id")))
	if err != nil {
		respondError(w, r, err)
		return
	}
	defer func() {
		if err := rc.Close(); err != nil {
			ctxlog.From(r.Context()).Warn("Failed to close job output", "error", err, "job_id", job.ID)
		}
	}()

	writeAttachment(w, r, job.Filename, job.Size, rc)
}

// submittedURL reads the url from a JSON body or from form fields
func submittedURL(w http.ResponseWriter, r *http.Request) (string, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "application/json" {
		return r.PostFormValue("url"), nil
	}

	var req submitRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(&req); err != nil {
		return "", goerr.Wrap(err, "invalid JSON body, expected {\"url\": \"...\"}", goerr.T(types.ErrTagMissingURL))
	}
	return req.URL, nil
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		ctxlog.From(r.Context()).Error("Failed to encode response", "error", err)
	}
}
