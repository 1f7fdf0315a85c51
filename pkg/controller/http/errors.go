package http

import (
	"encoding/json"
	"net/http"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/tubeaudio/pkg/domain/types"
	"github.com/m-mizutani/tubeaudio/pkg/utils/errutil"
)

// statusClientClosedRequest is recorded when the client went away before
// the response. Nobody reads it; it only shows up in the access log.
const statusClientClosedRequest = 499

var statusByCode = map[string]int{
	types.ErrTagMissingURL.String():       http.StatusBadRequest,
	types.ErrTagRateLimited.String():      http.StatusTooManyRequests,
	types.ErrTagQueueFull.String():        http.StatusServiceUnavailable,
	types.ErrTagExtractionFailed.String(): http.StatusInternalServerError,
	types.ErrTagOutputMissing.String():    http.StatusInternalServerError,
	types.ErrTagCanceled.String():         http.StatusServiceUnavailable,
	types.ErrTagJobNotFound.String():      http.StatusNotFound,
	types.ErrTagJobNotReady.String():      http.StatusConflict,
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// statusOf maps the error's tag to an HTTP status
func statusOf(err error) int {
	if status, ok := statusByCode[types.ErrorCode(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// respondError logs err and writes it as a JSON error response
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	errutil.Handle(ctx, "Request failed", err)

	if ctx.Err() != nil {
		w.WriteHeader(statusClientClosedRequest)
		return
	}

	writeError(w, r, err, statusOf(err))
}

// writeError writes an error response
func writeError(w http.ResponseWriter, r *http.Request, err error, status int) {
	resp := errorResponse{
		Error: err.Error(),
		Code:  types.ErrorCode(err),
	}
	if resp.Error == "" {
		resp.Error = http.StatusText(status)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		ctxlog.From(r.Context()).Error("Failed to encode error response", "error", err)
	}
}
