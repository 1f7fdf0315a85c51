package artifact

import (
	"context"
	"errors"
	"io"
	"os"
	"path"

	"cloud.google.com/go/storage"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/tubeaudio/pkg/domain/interfaces"
	"github.com/m-mizutani/tubeaudio/pkg/domain/model"
	"github.com/m-mizutani/tubeaudio/pkg/domain/types"
	"google.golang.org/api/option"
)

// GCS keeps artifacts as objects in a Cloud Storage bucket so that any
// instance sharing the job repository can serve them
type GCS struct {
	client *storage.Client
	bucket string
	prefix string
}

var _ interfaces.ArtifactStore = (*GCS)(nil)

// NewGCS creates a Cloud Storage client
func NewGCS(ctx context.Context, bucket, prefix string, opts ...option.ClientOption) (*GCS, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create storage client", goerr.V("bucket", bucket))
	}

	return &GCS{
		client: client,
		bucket: bucket,
		prefix: prefix,
	}, nil
}

// Close closes the storage client
func (s *GCS) Close() error {
	return s.client.Close()
}

// Save uploads the artifact file; the key is the object name
func (s *GCS) Save(ctx context.Context, id types.JobID, artifact *model.Artifact) (string, error) {
	key := path.Join(s.prefix, id.String(), artifact.Name)

	f, err := os.Open(artifact.Path)
	if err != nil {
		return "", goerr.Wrap(err, "failed to open artifact", goerr.V("path", artifact.Path))
	}
	defer f.Close()

	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	w.ContentType = artifact.ContentType()
	w.Metadata = map[string]string{
		"job_id": id.String(),
		"title":  artifact.Title,
	}

	if _, err := io.Copy(w, f); err != nil {
		_ = w.Close()
		return "", goerr.Wrap(err, "failed to upload artifact", goerr.V("bucket", s.bucket), goerr.V("object", key))
	}
	if err := w.Close(); err != nil {
		return "", goerr.Wrap(err, "failed to finalize artifact upload", goerr.V("bucket", s.bucket), goerr.V("object", key))
	}

	return key, nil
}

// Open streams the object
func (s *GCS) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	r, err := s.client.Bucket(s.bucket).Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, goerr.Wrap(err, "artifact not found", goerr.V("object", key), goerr.T(types.ErrTagJobNotFound))
		}
		return nil, goerr.Wrap(err, "failed to read artifact", goerr.V("bucket", s.bucket), goerr.V("object", key))
	}
	return r, nil
}

// Remove deletes the object. A missing object is not an error.
func (s *GCS) Remove(ctx context.Context, key string) error {
	err := s.client.Bucket(s.bucket).Object(key).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return goerr.Wrap(err, "failed to delete artifact", goerr.V("bucket", s.bucket), goerr.V("object", key))
	}
	return nil
}
