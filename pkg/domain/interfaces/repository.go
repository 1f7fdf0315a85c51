package interfaces

import (
	"context"
	"io"

	"github.com/m-mizutani/tubeaudio/pkg/domain/model"
	"github.com/m-mizutani/tubeaudio/pkg/domain/types"
)

// JobRepository stores job status records. Implementations must be safe for
// concurrent use. Get returns an error tagged types.ErrTagJobNotFound for
// unknown IDs.
type JobRepository interface {
	PutJob(ctx context.Context, job *model.Job) error
	GetJob(ctx context.Context, id types.JobID) (*model.Job, error)
	DeleteJob(ctx context.Context, id types.JobID) error

	// ListFinishedJobs returns succeeded and failed jobs. The job runner
	// uses it to resume expiry of jobs finished by an earlier process.
	ListFinishedJobs(ctx context.Context) ([]*model.Job, error)
}

// ArtifactStore keeps finished files of asynchronous jobs until they are
// fetched or expire
type ArtifactStore interface {
	// Save stores the artifact under the job and returns its key
	Save(ctx context.Context, id types.JobID, artifact *model.Artifact) (string, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Remove(ctx context.Context, key string) error
}
