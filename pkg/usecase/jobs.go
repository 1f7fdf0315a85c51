package usecase

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/tubeaudio/pkg/domain/interfaces"
	"github.com/m-mizutani/tubeaudio/pkg/domain/model"
	"github.com/m-mizutani/tubeaudio/pkg/domain/types"
	"github.com/m-mizutani/tubeaudio/pkg/utils/async"
	"github.com/m-mizutani/tubeaudio/pkg/utils/errutil"
)

const (
	defaultWorkers       = 4
	defaultQueueSize     = 32
	defaultJobTimeout    = 30 * time.Minute
	defaultJobTTL        = time.Hour
	defaultSweepInterval = time.Minute

	// progressStep is the minimum percent change persisted to the repository
	progressStep = 5
)

type taskResult struct {
	artifact *model.Artifact
	err      error
}

// task is one queued conversion. Synchronous tasks deliver their result on
// result; asynchronous tasks carry a job record.
type task struct {
	ctx    context.Context
	cancel context.CancelFunc
	url    string
	job    *model.Job
	result chan taskResult
}

var _ interfaces.JobUseCase = (*Jobs)(nil)

// Jobs runs conversions on a bounded worker pool
type Jobs struct {
	converter interfaces.ConvertUseCase
	repo      interfaces.JobRepository
	store     interfaces.ArtifactStore

	workers       int
	queue         chan *task
	jobTimeout    time.Duration
	jobTTL        time.Duration
	sweepInterval time.Duration

	now   func() time.Time
	newID func() types.JobID

	running atomic.Int64

	mu       sync.Mutex
	expiring map[types.JobID]time.Time

	baseCtx   context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	startOnce sync.Once
	closeOnce sync.Once
}

// JobsOption configures Jobs
type JobsOption func(*Jobs)

// WithWorkers sets the number of concurrent conversions
func WithWorkers(n int) JobsOption {
	return func(x *Jobs) {
		if n > 0 {
			x.workers = n
		}
	}
}

// WithQueueSize sets how many conversions may wait for a worker
func WithQueueSize(n int) JobsOption {
	return func(x *Jobs) {
		if n >= 0 {
			x.queue = make(chan *task, n)
		}
	}
}

// WithJobTimeout bounds a single conversion
func WithJobTimeout(d time.Duration) JobsOption {
	return func(x *Jobs) {
		if d > 0 {
			x.jobTimeout = d
		}
	}
}

// WithJobTTL sets how long finished asynchronous jobs are kept
func WithJobTTL(d time.Duration) JobsOption {
	return func(x *Jobs) {
		if d > 0 {
			x.jobTTL = d
		}
	}
}

// WithSweepInterval sets how often expired jobs are removed
func WithSweepInterval(d time.Duration) JobsOption {
	return func(x *Jobs) {
		if d > 0 {
			x.sweepInterval = d
		}
	}
}

// WithClock replaces time.Now (for testing)
func WithClock(now func() time.Time) JobsOption {
	return func(x *Jobs) {
		x.now = now
	}
}

// WithIDGenerator replaces the UUID job ID generator (for testing)
func WithIDGenerator(fn func() types.JobID) JobsOption {
	return func(x *Jobs) {
		x.newID = fn
	}
}

// NewJobs creates the worker pool. Call Start before submitting work.
func NewJobs(
	converter interfaces.ConvertUseCase,
	repo interfaces.JobRepository,
	store interfaces.ArtifactStore,
	opts ...JobsOption,
) *Jobs {
	x := &Jobs{
		converter:     converter,
		repo:          repo,
		store:         store,
		workers:       defaultWorkers,
		queue:         make(chan *task, defaultQueueSize),
		jobTimeout:    defaultJobTimeout,
		jobTTL:        defaultJobTTL,
		sweepInterval: defaultSweepInterval,
		now:           time.Now,
		newID:         func() types.JobID { return types.JobID(uuid.NewString()) },
		expiring:      make(map[types.JobID]time.Time),
	}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// Start launches the workers and the sweeper. They stop when ctx is
// cancelled or Close is called.
func (x *Jobs) Start(ctx context.Context) {
	x.startOnce.Do(func() {
		x.baseCtx, x.cancel = context.WithCancel(ctx)

		for i := 0; i < x.workers; i++ {
			x.wg.Add(1)
			go x.worker(i)
		}

		x.wg.Add(1)
		go x.sweepLoop()

		ctxlog.From(ctx).Info("Job runner started",
			"workers", x.workers,
			"queue_size", cap(x.queue),
			"job_timeout", x.jobTimeout.String(),
			"job_ttl", x.jobTTL.String(),
		)
	})
}

// Close stops the workers and waits for running conversions to return.
// Running conversions are cancelled.
func (x *Jobs) Close() {
	x.closeOnce.Do(func() {
		if x.cancel != nil {
			x.cancel()
		}
		x.wg.Wait()
	})
}

// Run executes a conversion on the pool and waits for the result
func (x *Jobs) Run(ctx context.Context, url string) (*model.Artifact, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, goerr.New("missing URL", goerr.T(types.ErrTagMissingURL))
	}

	taskCtx, cancel := context.WithTimeout(ctx, x.jobTimeout)
	defer cancel()

	t := &task{
		ctx:    taskCtx,
		cancel: cancel,
		url:    url,
		result: make(chan taskResult, 1),
	}
	if err := x.enqueue(t); err != nil {
		return nil, err
	}

	select {
	case r := <-t.result:
		return r.artifact, r.err

	case <-taskCtx.Done():
		// The worker still delivers a result; release whatever it produced
		async.Dispatch(ctx, func(ctx context.Context) error {
			r := <-t.result
			if err := r.artifact.Release(); err != nil {
				return goerr.Wrap(err, "failed to release abandoned artifact", goerr.V("url", url))
			}
			return nil
		})
		return nil, abortError(ctx, taskCtx, url)
	}
}

// Submit queues an asynchronous conversion and returns the pending job
func (x *Jobs) Submit(ctx context.Context, url string) (*model.Job, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, goerr.New("missing URL", goerr.T(types.ErrTagMissingURL))
	}
	if x.baseCtx == nil {
		return nil, goerr.New("job runner is not started")
	}

	job := model.NewJob(x.newID(), url, x.now())
	if err := x.repo.PutJob(ctx, job); err != nil {
		return nil, goerr.Wrap(err, "failed to save job", goerr.V("job_id", job.ID))
	}
	snapshot := *job

	// Detached from the submitting request, bounded by the runner lifetime
	taskCtx, cancel := context.WithTimeout(ctxlog.With(x.baseCtx, ctxlog.From(ctx)), x.jobTimeout)
	t := &task{
		ctx:    taskCtx,
		cancel: cancel,
		url:    url,
		job:    job,
	}

	if err := x.enqueue(t); err != nil {
		cancel()
		if delErr := x.repo.DeleteJob(ctx, job.ID); delErr != nil {
			ctxlog.From(ctx).Warn("Failed to delete rejected job", "error", delErr, "job_id", job.ID)
		}
		return nil, err
	}

	ctxlog.From(ctx).Info("Job queued", "job_id", job.ID, "url", url)
	return &snapshot, nil
}

// Get returns the job status
func (x *Jobs) Get(ctx context.Context, id types.JobID) (*model.Job, error) {
	job, err := x.repo.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Expired(x.now()) {
		return nil, goerr.New("job expired", goerr.V("job_id", id), goerr.T(types.ErrTagJobNotFound))
	}
	return job, nil
}

// Open returns the output of a succeeded job. The caller must close the
// reader.
func (x *Jobs) Open(ctx context.Context, id types.JobID) (*model.Job, io.ReadCloser, error) {
	job, err := x.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	if job.Status != model.JobStatusSucceeded {
		return nil, nil, goerr.New("job has no output",
			goerr.V("job_id", id),
			goerr.V("status", job.Status),
			goerr.T(types.ErrTagJobNotReady))
	}

	rc, err := x.store.Open(ctx, job.ArtifactKey)
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to open job output", goerr.V("job_id", id))
	}
	return job, rc, nil
}

// Stats returns the pool state
func (x *Jobs) Stats() model.PoolStats {
	return model.PoolStats{
		Workers: x.workers,
		Queued:  len(x.queue),
		Running: x.running.Load(),
	}
}

// Sweep removes finished asynchronous jobs whose TTL has passed and returns
// how many were removed
func (x *Jobs) Sweep(ctx context.Context) int {
	now := x.now()

	x.mu.Lock()
	var expired []types.JobID
	for id, at := range x.expiring {
		if now.After(at) {
			expired = append(expired, id)
			delete(x.expiring, id)
		}
	}
	x.mu.Unlock()

	logger := ctxlog.From(ctx)
	for _, id := range expired {
		job, err := x.repo.GetJob(ctx, id)
		if err == nil && job.ArtifactKey != "" {
			if err := x.store.Remove(ctx, job.ArtifactKey); err != nil {
				logger.Warn("Failed to remove artifact", "error", err, "job_id", id)
			}
		}
		if err := x.repo.DeleteJob(ctx, id); err != nil {
			logger.Warn("Failed to delete job", "error", err, "job_id", id)
		}
	}

	if len(expired) > 0 {
		logger.Info("Swept expired jobs", "count", len(expired))
	}
	return len(expired)
}

func (x *Jobs) enqueue(t *task) error {
	if x.baseCtx == nil || x.baseCtx.Err() != nil {
		return goerr.New("job runner is not accepting work", goerr.T(types.ErrTagQueueFull))
	}

	select {
	case x.queue <- t:
		return nil
	default:
		return goerr.New("job queue is full",
			goerr.V("queue_size", cap(x.queue)),
			goerr.T(types.ErrTagQueueFull))
	}
}

func (x *Jobs) worker(id int) {
	defer x.wg.Done()
	logger := ctxlog.From(x.baseCtx).With("worker", id)

	for {
		select {
		case <-x.baseCtx.Done():
			x.drain()
			return
		case t := <-x.queue:
			logger.Debug("Task picked up", "url", t.url)
			x.process(t)
		}
	}
}

// drain fails queued tasks so that synchronous callers are not left waiting
func (x *Jobs) drain() {
	for {
		select {
		case t := <-x.queue:
			x.finish(t, nil, goerr.New("job runner stopped", goerr.T(types.ErrTagCanceled)))
		default:
			return
		}
	}
}

func (x *Jobs) process(t *task) {
	x.running.Add(1)
	defer x.running.Add(-1)

	if t.ctx.Err() != nil {
		x.finish(t, nil, abortError(t.ctx, t.ctx, t.url))
		return
	}

	ctx := t.ctx
	if t.job != nil {
		t.job.Start(x.now())
		x.putJob(ctx, t.job)
		ctx = withProgress(ctx, x.progressRecorder(ctx, t.job))
	}

	var artifact *model.Artifact
	err := async.Safe(ctx, func(ctx context.Context) error {
		var err error
		artifact, err = x.converter.Convert(ctx, t.url)
		return err
	})

	x.finish(t, artifact, err)
}

func (x *Jobs) finish(t *task, artifact *model.Artifact, err error) {
	if t.job == nil {
		t.result <- taskResult{artifact: artifact, err: err}
		return
	}
	defer t.cancel()

	ctx := t.ctx
	if ctx.Err() != nil {
		// Persist the outcome even when the conversion itself was cancelled
		ctx = async.Detach(ctx)
	}

	now := x.now()
	expiresAt := now.Add(x.jobTTL)

	if err == nil {
		var key string
		key, err = x.store.Save(ctx, t.job.ID, artifact)
		if relErr := artifact.Release(); relErr != nil {
			ctxlog.From(ctx).Warn("Failed to release job directory", "error", relErr, "job_id", t.job.ID)
		}
		if err == nil {
			t.job.Succeed(artifact, key, now, expiresAt)
		}
	}

	if err != nil {
		errutil.Handle(ctx, "Job failed", goerr.Wrap(err, "job failed", goerr.V("job_id", t.job.ID)))
		t.job.Fail(types.ErrorCode(err), err.Error(), now, expiresAt)
	}

	// Registered before the final status is visible so a sweep never misses it
	x.mu.Lock()
	x.expiring[t.job.ID] = expiresAt
	x.mu.Unlock()

	x.putJob(ctx, t.job)

	ctxlog.From(ctx).Info("Job finished",
		"job_id", t.job.ID,
		"status", t.job.Status,
		"file", t.job.Filename,
	)
}

// progressRecorder persists progress of an asynchronous job in steps
func (x *Jobs) progressRecorder(ctx context.Context, job *model.Job) func(percent int) {
	var mu sync.Mutex
	return func(percent int) {
		mu.Lock()
		defer mu.Unlock()

		if percent <= job.Percent || (percent < job.Percent+progressStep && percent < 100) {
			return
		}
		job.Percent = percent
		x.putJob(ctx, job)
	}
}

func (x *Jobs) putJob(ctx context.Context, job *model.Job) {
	if err := x.repo.PutJob(ctx, job); err != nil {
		errutil.Handle(ctx, "Failed to save job", goerr.Wrap(err, "failed to save job", goerr.V("job_id", job.ID)))
	}
}

func (x *Jobs) sweepLoop() {
	defer x.wg.Done()

	if x.restoreExpiring(x.baseCtx) > 0 {
		x.Sweep(x.baseCtx)
	}

	ticker := time.NewTicker(x.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-x.baseCtx.Done():
			return
		case <-ticker.C:
			x.Sweep(x.baseCtx)
		}
	}
}

// restoreExpiring schedules removal of jobs finished before this process
// started. Entries registered by running workers are kept.
func (x *Jobs) restoreExpiring(ctx context.Context) int {
	jobs, err := x.repo.ListFinishedJobs(ctx)
	if err != nil {
		errutil.Handle(ctx, "Failed to list finished jobs", err)
		return 0
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	var n int
	for _, job := range jobs {
		if job.ExpiresAt.IsZero() {
			continue
		}
		if _, ok := x.expiring[job.ID]; ok {
			continue
		}
		x.expiring[job.ID] = job.ExpiresAt
		n++
	}

	if n > 0 {
		ctxlog.From(ctx).Info("Restored job expiry schedule", "count", n)
	}
	return n
}

// abortError classifies a conversion that ended because taskCtx is done.
// Only a cancelled caller is a client error; a deadline hit while the caller
// is still waiting is a failed extraction.
func abortError(callerCtx, taskCtx context.Context, url string) error {
	if errors.Is(callerCtx.Err(), context.Canceled) {
		return goerr.Wrap(callerCtx.Err(), "conversion canceled",
			goerr.V("url", url),
			goerr.T(types.ErrTagCanceled))
	}
	return goerr.Wrap(taskCtx.Err(), "conversion timed out",
		goerr.V("url", url),
		goerr.T(types.ErrTagExtractionFailed))
}
