package http_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	controller "github.com/m-mizutani/tubeaudio/pkg/controller/http"
	"github.com/m-mizutani/tubeaudio/pkg/domain/model"
	"github.com/m-mizutani/tubeaudio/pkg/infra/artifact"
	"github.com/m-mizutani/tubeaudio/pkg/infra/repository"
	"github.com/m-mizutani/tubeaudio/pkg/usecase"
)

// MockExtractor is a mock implementation of Extractor
type MockExtractor struct {
	extractFunc func(ctx context.Context, req *model.ExtractionRequest) (*model.ExtractionResult, error)
	calls       atomic.Int64
}

func (m *MockExtractor) Extract(ctx context.Context, req *model.ExtractionRequest) (*model.ExtractionResult, error) {
	m.calls.Add(1)
	if m.extractFunc != nil {
		return m.extractFunc(ctx, req)
	}
	return nil, errors.New("mock not configured")
}

func (m *MockExtractor) Calls() int64 {
	return m.calls.Load()
}

// fakeDownload writes the transcoded file and reports the pre-transcode
// name, like yt-dlp with an audio post-processor
func fakeDownload(title, sourceExt string, body []byte) func(ctx context.Context, req *model.ExtractionRequest) (*model.ExtractionResult, error) {
	return func(ctx context.Context, req *model.ExtractionRequest) (*model.ExtractionResult, error) {
		reported := strings.ReplaceAll(req.OutputTemplate, "%(title)s", title)
		reported = strings.ReplaceAll(reported, "%(ext)s", strings.TrimPrefix(sourceExt, "."))
		if err := os.WriteFile(model.ReplaceExt(reported, req.Profile.Extension()), body, 0600); err != nil {
			return nil, err
		}
		return &model.ExtractionResult{Title: title, Filename: reported}, nil
	}
}

type testServer struct {
	server  *controller.Server
	workDir string
}

func newTestServer(t *testing.T, mock *MockExtractor, jobOpts []usecase.JobsOption, opts ...controller.Option) *testServer {
	t.Helper()
	ctx := context.Background()

	workDir := t.TempDir()
	store, err := artifact.NewLocal(filepath.Join(t.TempDir(), "spool"))
	gt.NoError(t, err)

	jobOpts = append([]usecase.JobsOption{usecase.WithSweepInterval(time.Hour)}, jobOpts...)
	jobs := usecase.NewJobs(
		usecase.NewConvert(mock, usecase.WithWorkDir(workDir)),
		repository.NewMemory(),
		store,
		jobOpts...,
	)
	jobs.Start(ctx)
	t.Cleanup(jobs.Close)

	opts = append([]controller.Option{controller.WithAddr("localhost:0")}, opts...)
	server, err := controller.NewServer(ctx, jobs, opts...)
	gt.NoError(t, err)

	return &testServer{server: server, workDir: workDir}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
