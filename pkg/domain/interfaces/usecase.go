package interfaces

import (
	"context"
	"io"

	"github.com/m-mizutani/tubeaudio/pkg/domain/model"
	"github.com/m-mizutani/tubeaudio/pkg/domain/types"
)

// ConvertUseCase runs one extraction job synchronously
type ConvertUseCase interface {
	// Convert downloads url and returns the transcoded artifact. The caller
	// owns the artifact and must Release it.
	Convert(ctx context.Context, url string) (*model.Artifact, error)
}

// JobUseCase schedules conversions on the bounded worker pool
type JobUseCase interface {
	// Run executes a conversion on the pool and waits for it. Cancelling ctx
	// aborts the conversion.
	Run(ctx context.Context, url string) (*model.Artifact, error)

	// Submit queues an asynchronous conversion and returns immediately
	Submit(ctx context.Context, url string) (*model.Job, error)

	// Get returns the job status
	Get(ctx context.Context, id types.JobID) (*model.Job, error)

	// Open returns the output of a succeeded job
	Open(ctx context.Context, id types.JobID) (*model.Job, io.ReadCloser, error)

	// Stats returns the pool state for health reporting
	Stats() model.PoolStats
}
