package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/tubeaudio/pkg/domain/interfaces"
	"github.com/m-mizutani/tubeaudio/pkg/domain/model"
	"github.com/m-mizutani/tubeaudio/pkg/domain/types"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "tubeaudio:job:"

// Redis stores jobs as JSON values with an expiry so that abandoned keys
// disappear even if the sweeper never runs
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

var _ interfaces.JobRepository = (*Redis)(nil)

// redisJob mirrors model.Job including fields hidden from the public JSON
type redisJob struct {
	model.Job
	ArtifactKey string `json:"artifact_key,omitempty"`
}

// NewRedis connects to Redis and verifies the connection
func NewRedis(ctx context.Context, opts *redis.Options, ttl time.Duration) (*Redis, error) {
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, goerr.Wrap(err, "failed to connect to redis", goerr.V("addr", opts.Addr))
	}

	return &Redis{
		client: client,
		ttl:    ttl,
	}, nil
}

// Close closes the Redis connection
func (r *Redis) Close() error {
	return r.client.Close()
}

// PutJob stores job, refreshing the key expiry
func (r *Redis) PutJob(ctx context.Context, job *model.Job) error {
	data, err := json.Marshal(redisJob{Job: *job, ArtifactKey: job.ArtifactKey})
	if err != nil {
		return goerr.Wrap(err, "failed to marshal job", goerr.V("job_id", job.ID))
	}

	ttl := r.ttl
	if !job.ExpiresAt.IsZero() {
		ttl = time.Until(job.ExpiresAt) + r.ttl
	}
	// go-redis treats non-positive expirations as "no expiry"
	if ttl < time.Second {
		ttl = time.Second
	}

	if err := r.client.Set(ctx, redisKeyPrefix+job.ID.String(), data, ttl).Err(); err != nil {
		return goerr.Wrap(err, "failed to save job to redis", goerr.V("job_id", job.ID))
	}
	return nil
}

// GetJob loads a job
func (r *Redis) GetJob(ctx context.Context, id types.JobID) (*model.Job, error) {
	data, err := r.client.Get(ctx, redisKeyPrefix+id.String()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, goerr.New("job not found", goerr.V("job_id", id), goerr.T(types.ErrTagJobNotFound))
		}
		return nil, goerr.Wrap(err, "failed to get job from redis", goerr.V("job_id", id))
	}

	return decodeRedisJob(data)
}

func decodeRedisJob(data []byte) (*model.Job, error) {
	var stored redisJob
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal job")
	}
	stored.Job.ArtifactKey = stored.ArtifactKey
	return &stored.Job, nil
}

// DeleteJob removes the job key
func (r *Redis) DeleteJob(ctx context.Context, id types.JobID) error {
	if err := r.client.Del(ctx, redisKeyPrefix+id.String()).Err(); err != nil {
		return goerr.Wrap(err, "failed to delete job from redis", goerr.V("job_id", id))
	}
	return nil
}

// ListFinishedJobs scans job keys and returns succeeded and failed jobs.
// Keys that expire during the scan are skipped.
func (r *Redis) ListFinishedJobs(ctx context.Context) ([]*model.Job, error) {
	var jobs []*model.Job

	iter := r.client.Scan(ctx, 0, redisKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		data, err := r.client.Get(ctx, iter.Val()).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return nil, goerr.Wrap(err, "failed to get job from redis", goerr.V("key", iter.Val()))
		}

		job, err := decodeRedisJob(data)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to decode job", goerr.V("key", iter.Val()))
		}
		if job.Status.IsFinished() {
			jobs = append(jobs, job)
		}
	}
	if err := iter.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to scan jobs in redis")
	}

	return jobs, nil
}
