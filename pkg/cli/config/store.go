package config

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/tubeaudio/pkg/domain/interfaces"
	"github.com/m-mizutani/tubeaudio/pkg/domain/types"
	"github.com/m-mizutani/tubeaudio/pkg/infra/artifact"
	"github.com/m-mizutani/tubeaudio/pkg/infra/repository"
	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v3"
	"google.golang.org/api/option"
)

const (
	backendMemory    = "memory"
	backendRedis     = "redis"
	backendFirestore = "firestore"
	backendLocal     = "local"
	backendGCS       = "gcs"
)

// Store holds job repository and artifact store configuration
type Store struct {
	JobStore string

	RedisAddr     string
	RedisPassword string `masq:"secret"`
	RedisDB       int

	FirestoreProjectID  string
	FirestoreDatabaseID string
	FirestoreCollection string

	ArtifactStore string
	SpoolDir      string

	GCSBucket          string
	GCSPrefix          string
	GCPCredentialsFile string
}

// Flags returns CLI flags for storage configuration
func (c *Store) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "job-store",
			Usage:       "Job status backend (memory, redis, firestore)",
			Value:       backendMemory,
			Destination: &c.JobStore,
			Sources:     cli.EnvVars("TUBEAUDIO_JOB_STORE"),
		},
		&cli.StringFlag{
			Name:        "redis-addr",
			Usage:       "Redis address (host:port)",
			Value:       "localhost:6379",
			Destination: &c.RedisAddr,
			Sources:     cli.EnvVars("TUBEAUDIO_REDIS_ADDR"),
		},
		&cli.StringFlag{
			Name:        "redis-password",
			Usage:       "Redis password",
			Destination: &c.RedisPassword,
			Sources:     cli.EnvVars("TUBEAUDIO_REDIS_PASSWORD"),
		},
		&cli.IntFlag{
			Name:        "redis-db",
			Usage:       "Redis database number",
			Destination: &c.RedisDB,
			Sources:     cli.EnvVars("TUBEAUDIO_REDIS_DB"),
		},
		&cli.StringFlag{
			Name:        "firestore-project-id",
			Usage:       "Google Cloud project ID for Firestore",
			Destination: &c.FirestoreProjectID,
			Sources:     cli.EnvVars("TUBEAUDIO_FIRESTORE_PROJECT_ID"),
		},
		&cli.StringFlag{
			Name:        "firestore-database-id",
			Usage:       "Firestore database ID",
			Value:       "(default)",
			Destination: &c.FirestoreDatabaseID,
			Sources:     cli.EnvVars("TUBEAUDIO_FIRESTORE_DATABASE_ID"),
		},
		&cli.StringFlag{
			Name:        "firestore-collection",
			Usage:       "Firestore collection for jobs",
			Value:       "tubeaudio_jobs",
			Destination: &c.FirestoreCollection,
			Sources:     cli.EnvVars("TUBEAUDIO_FIRESTORE_COLLECTION"),
		},
		&cli.StringFlag{
			Name:        "artifact-store",
			Usage:       "Background job output backend (local, gcs)",
			Value:       backendLocal,
			Destination: &c.ArtifactStore,
			Sources:     cli.EnvVars("TUBEAUDIO_ARTIFACT_STORE"),
		},
		&cli.StringFlag{
			Name:        "spool-dir",
			Usage:       "Directory of background job outputs for the local store (default: <temp dir>/tubeaudio-spool)",
			Destination: &c.SpoolDir,
			Sources:     cli.EnvVars("TUBEAUDIO_SPOOL_DIR"),
		},
		&cli.StringFlag{
			Name:        "gcs-bucket",
			Usage:       "GCS bucket for background job outputs",
			Destination: &c.GCSBucket,
			Sources:     cli.EnvVars("TUBEAUDIO_GCS_BUCKET"),
		},
		&cli.StringFlag{
			Name:        "gcs-prefix",
			Usage:       "Object name prefix in the GCS bucket",
			Value:       "tubeaudio/",
			Destination: &c.GCSPrefix,
			Sources:     cli.EnvVars("TUBEAUDIO_GCS_PREFIX"),
		},
		&cli.StringFlag{
			Name:        "gcp-credentials-file",
			Usage:       "Service account key file for Firestore and GCS (default: application default credentials)",
			Destination: &c.GCPCredentialsFile,
			Sources:     cli.EnvVars("TUBEAUDIO_GCP_CREDENTIALS_FILE"),
		},
	}
}

func (c *Store) clientOptions() []option.ClientOption {
	if c.GCPCredentialsFile == "" {
		return nil
	}
	return []option.ClientOption{option.WithCredentialsFile(c.GCPCredentialsFile)}
}

// NewJobRepository connects the configured job backend. The returned closer
// releases its connection.
func (c *Store) NewJobRepository(ctx context.Context, ttl time.Duration) (interfaces.JobRepository, io.Closer, error) {
	switch c.JobStore {
	case backendMemory, "":
		return repository.NewMemory(), nopCloser{}, nil

	case backendRedis:
		repo, err := repository.NewRedis(ctx, &redis.Options{
			Addr:     c.RedisAddr,
			Password: c.RedisPassword,
			DB:       c.RedisDB,
		}, ttl)
		if err != nil {
			return nil, nil, err
		}
		return repo, repo, nil

	case backendFirestore:
		if c.FirestoreProjectID == "" {
			return nil, nil, goerr.New("firestore-project-id is required for firestore job store",
				goerr.T(types.ErrTagInvalidConfig))
		}
		repo, err := repository.NewFirestore(ctx, c.FirestoreProjectID, c.FirestoreDatabaseID, c.FirestoreCollection, c.clientOptions()...)
		if err != nil {
			return nil, nil, err
		}
		return repo, repo, nil

	default:
		return nil, nil, goerr.New("unknown job store",
			goerr.V("job_store", c.JobStore),
			goerr.T(types.ErrTagInvalidConfig))
	}
}

// NewArtifactStore opens the configured artifact backend
func (c *Store) NewArtifactStore(ctx context.Context) (interfaces.ArtifactStore, io.Closer, error) {
	switch c.ArtifactStore {
	case backendLocal, "":
		dir := c.SpoolDir
		if dir == "" {
			dir = filepath.Join(os.TempDir(), types.ServiceName+"-spool")
		}
		store, err := artifact.NewLocal(dir)
		if err != nil {
			return nil, nil, err
		}
		return store, nopCloser{}, nil

	case backendGCS:
		if c.GCSBucket == "" {
			return nil, nil, goerr.New("gcs-bucket is required for gcs artifact store",
				goerr.T(types.ErrTagInvalidConfig))
		}
		store, err := artifact.NewGCS(ctx, c.GCSBucket, c.GCSPrefix, c.clientOptions()...)
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil

	default:
		return nil, nil, goerr.New("unknown artifact store",
			goerr.V("artifact_store", c.ArtifactStore),
			goerr.T(types.ErrTagInvalidConfig))
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
