package repository

import (
	"context"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/tubeaudio/pkg/domain/interfaces"
	"github.com/m-mizutani/tubeaudio/pkg/domain/model"
	"github.com/m-mizutani/tubeaudio/pkg/domain/types"
)

// Memory keeps jobs in process memory. Jobs are lost on restart.
type Memory struct {
	mu   sync.RWMutex
	jobs map[types.JobID]model.Job
}

var _ interfaces.JobRepository = (*Memory)(nil)

// NewMemory creates an empty in-memory repository
func NewMemory() *Memory {
	return &Memory{
		jobs: make(map[types.JobID]model.Job),
	}
}

// PutJob stores a copy of job
func (m *Memory) PutJob(ctx context.Context, job *model.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.ID] = *job
	return nil
}

// GetJob returns a copy of the stored job
func (m *Memory) GetJob(ctx context.Context, id types.JobID) (*model.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	job, ok := m.jobs[id]
	if !ok {
		return nil, goerr.New("job not found", goerr.V("job_id", id), goerr.T(types.ErrTagJobNotFound))
	}
	return &job, nil
}

// DeleteJob removes the job. Deleting an unknown job is not an error.
func (m *Memory) DeleteJob(ctx context.Context, id types.JobID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.jobs, id)
	return nil
}

// ListFinishedJobs returns copies of succeeded and failed jobs
func (m *Memory) ListFinishedJobs(ctx context.Context) ([]*model.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var jobs []*model.Job
	for _, job := range m.jobs {
		if job.Status.IsFinished() {
			jobs = append(jobs, &job)
		}
	}
	return jobs, nil
}
