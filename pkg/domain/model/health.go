package model

// HealthStatus represents the health check status
type HealthStatus struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
	Workers int    `json:"workers"`
	Queued  int    `json:"queued"`
	Running int64  `json:"running"`
}

// PoolStats is a snapshot of the worker pool
type PoolStats struct {
	Workers int
	Queued  int
	Running int64
}
