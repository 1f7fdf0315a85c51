package http

import (
	"encoding/json"
	"net/http"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/tubeaudio/pkg/domain/interfaces"
	"github.com/m-mizutani/tubeaudio/pkg/domain/model"
	"github.com/m-mizutani/tubeaudio/pkg/domain/types"
)

type healthHandler struct {
	jobUC interfaces.JobUseCase
}

// Handle handles health check requests
func (h *healthHandler) Handle(w http.ResponseWriter, r *http.Request) {
	stats := h.jobUC.Stats()
	status := &model.HealthStatus{
		Status:  "healthy",
		Service: types.ServiceName,
		Version: types.Version,
		Workers: stats.Workers,
		Queued:  stats.Queued,
		Running: stats.Running,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(status); err != nil {
		ctxlog.From(r.Context()).Error("Failed to encode health response", "error", err)
	}
}
