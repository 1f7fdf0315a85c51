package repository

import (
	"context"
	"errors"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/tubeaudio/pkg/domain/interfaces"
	"github.com/m-mizutani/tubeaudio/pkg/domain/model"
	"github.com/m-mizutani/tubeaudio/pkg/domain/types"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Firestore stores one document per job
type Firestore struct {
	client     *firestore.Client
	collection string
}

var _ interfaces.JobRepository = (*Firestore)(nil)

// NewFirestore creates a Firestore client for the given project and database
func NewFirestore(ctx context.Context, projectID, databaseID, collection string, opts ...option.ClientOption) (*Firestore, error) {
	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("project_id", projectID),
			goerr.V("database_id", databaseID))
	}

	return &Firestore{
		client:     client,
		collection: collection,
	}, nil
}

// Close closes the Firestore client
func (f *Firestore) Close() error {
	return f.client.Close()
}

// PutJob overwrites the job document
func (f *Firestore) PutJob(ctx context.Context, job *model.Job) error {
	if _, err := f.client.Collection(f.collection).Doc(job.ID.String()).Set(ctx, job); err != nil {
		return goerr.Wrap(err, "failed to save job to firestore", goerr.V("job_id", job.ID))
	}
	return nil
}

// GetJob loads the job document
func (f *Firestore) GetJob(ctx context.Context, id types.JobID) (*model.Job, error) {
	doc, err := f.client.Collection(f.collection).Doc(id.String()).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.New("job not found", goerr.V("job_id", id), goerr.T(types.ErrTagJobNotFound))
		}
		return nil, goerr.Wrap(err, "failed to get job from firestore", goerr.V("job_id", id))
	}

	var job model.Job
	if err := doc.DataTo(&job); err != nil {
		return nil, goerr.Wrap(err, "failed to decode job document", goerr.V("job_id", id))
	}
	return &job, nil
}

// DeleteJob deletes the job document
func (f *Firestore) DeleteJob(ctx context.Context, id types.JobID) error {
	if _, err := f.client.Collection(f.collection).Doc(id.String()).Delete(ctx); err != nil {
		return goerr.Wrap(err, "failed to delete job from firestore", goerr.V("job_id", id))
	}
	return nil
}

// ListFinishedJobs queries succeeded and failed jobs
func (f *Firestore) ListFinishedJobs(ctx context.Context) ([]*model.Job, error) {
	iter := f.client.Collection(f.collection).
		Where("status", "in", []string{string(model.JobStatusSucceeded), string(model.JobStatusFailed)}).
		Documents(ctx)
	defer iter.Stop()

	var jobs []*model.Job
	for {
		doc, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to query jobs from firestore")
		}

		var job model.Job
		if err := doc.DataTo(&job); err != nil {
			return nil, goerr.Wrap(err, "failed to decode job document", goerr.V("doc_id", doc.Ref.ID))
		}
		jobs = append(jobs, &job)
	}

	return jobs, nil
}
