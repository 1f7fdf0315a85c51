package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	controller "github.com/m-mizutani/tubeaudio/pkg/controller/http"
	"github.com/m-mizutani/tubeaudio/pkg/domain/model"
	"github.com/m-mizutani/tubeaudio/pkg/domain/types"
	"github.com/m-mizutani/tubeaudio/pkg/usecase"
)

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func postForm(handler http.Handler, path string, values url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func get(handler http.Handler, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	gt.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body
}

func TestHealthEndpoint(t *testing.T) {
	ts := newTestServer(t, &MockExtractor{}, []usecase.JobsOption{usecase.WithWorkers(3)})

	w := get(ts.server.Handler, "/health")
	gt.Value(t, w.Code).Equal(http.StatusOK)

	var status model.HealthStatus
	gt.NoError(t, json.NewDecoder(w.Body).Decode(&status))
	gt.Value(t, status.Status).Equal("healthy")
	gt.Value(t, status.Service).Equal(types.ServiceName)
	gt.Value(t, status.Workers).Equal(3)
	gt.True(t, status.Version != "")
}

func TestDownload_Success(t *testing.T) {
	mock := &MockExtractor{
		extractFunc: fakeDownload("Example Title", ".webm", []byte("ID3 audio bytes")),
	}
	ts := newTestServer(t, mock, nil)

	w := postForm(ts.server.Handler, "/download", url.Values{"url": {"https://www.youtube.com/watch?v=abc"}})
	gt.Value(t, w.Code).Equal(http.StatusOK)
	gt.Value(t, w.Body.String()).Equal("ID3 audio bytes")
	gt.Value(t, w.Header().Get("Content-Type")).Equal("audio/mpeg")
	gt.Value(t, w.Header().Get("Content-Length")).Equal(fmt.Sprint(len("ID3 audio bytes")))
	gt.String(t, w.Header().Get("Content-Disposition")).Equal(`attachment; filename="Example Title.mp3"`)

	// job directory is removed after the response
	entries, err := os.ReadDir(ts.workDir)
	gt.NoError(t, err)
	gt.Number(t, len(entries)).Equal(0)
	gt.Number(t, mock.Calls()).Equal(1)
}

func TestDownload_NonASCIIFilename(t *testing.T) {
	mock := &MockExtractor{
		extractFunc: fakeDownload("노래 제목", ".m4a", []byte("x")),
	}
	ts := newTestServer(t, mock, nil)

	w := postForm(ts.server.Handler, "/download", url.Values{"url": {"https://example.com/v"}})
	gt.Value(t, w.Code).Equal(http.StatusOK)
	gt.String(t, w.Header().Get("Content-Disposition")).Contains("filename*=utf-8''")
}

func TestDownload_MissingURL(t *testing.T) {
	testCases := []struct {
		name   string
		values url.Values
	}{
		{name: "no field", values: url.Values{}},
		{name: "empty", values: url.Values{"url": {""}}},
		{name: "blank", values: url.Values{"url": {"   "}}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			mock := &MockExtractor{}
			ts := newTestServer(t, mock, nil)

			w := postForm(ts.server.Handler, "/download", tc.values)
			gt.Value(t, w.Code).Equal(http.StatusBadRequest)
			body := decodeError(t, w)
			gt.Value(t, body.Code).Equal("missing_url")
			gt.True(t, body.Error != "")
			gt.Number(t, mock.Calls()).Equal(0)
		})
	}
}

func TestDownload_UnresolvableURL(t *testing.T) {
	mock := &MockExtractor{
		extractFunc: func(ctx context.Context, req *model.ExtractionRequest) (*model.ExtractionResult, error) {
			return nil, fmt.Errorf("Unable to download webpage: name resolution failed")
		},
	}
	ts := newTestServer(t, mock, nil)

	w := postForm(ts.server.Handler, "/download", url.Values{"url": {"https://no-such-host.invalid/"}})
	gt.Value(t, w.Code).Equal(http.StatusInternalServerError)
	gt.String(t, w.Header().Get("Content-Type")).Contains("application/json")

	body := decodeError(t, w)
	gt.Value(t, body.Code).Equal("extraction_failed")
	gt.String(t, body.Error).Contains("name resolution failed")

	entries, err := os.ReadDir(ts.workDir)
	gt.NoError(t, err)
	gt.Number(t, len(entries)).Equal(0)
}

func TestDownload_OutputMissing(t *testing.T) {
	mock := &MockExtractor{
		extractFunc: func(ctx context.Context, req *model.ExtractionRequest) (*model.ExtractionResult, error) {
			return &model.ExtractionResult{Title: "x", Filename: strings.ReplaceAll(req.OutputTemplate, "%(title)s.%(ext)s", "x.webm")}, nil
		},
	}
	ts := newTestServer(t, mock, nil)

	w := postForm(ts.server.Handler, "/download", url.Values{"url": {"https://example.com/v"}})
	gt.Value(t, w.Code).Equal(http.StatusInternalServerError)
	gt.Value(t, decodeError(t, w).Code).Equal("output_missing")
}

func TestDownload_Concurrent(t *testing.T) {
	mock := &MockExtractor{
		extractFunc: func(ctx context.Context, req *model.ExtractionRequest) (*model.ExtractionResult, error) {
			time.Sleep(50 * time.Millisecond)
			id := req.URL[strings.LastIndex(req.URL, "=")+1:]
			return fakeDownload("track "+id, ".webm", []byte(req.URL))(ctx, req)
		},
	}
	ts := newTestServer(t, mock, []usecase.JobsOption{usecase.WithWorkers(4), usecase.WithQueueSize(16)})

	const n = 10
	var wg sync.WaitGroup
	results := make([]*httptest.ResponseRecorder, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = postForm(ts.server.Handler, "/download", url.Values{"url": {fmt.Sprintf("https://example.com/watch?v=%d", i)}})
		}(i)
	}
	wg.Wait()

	for i, w := range results {
		gt.Value(t, w.Code).Equal(http.StatusOK)
		gt.Value(t, w.Body.String()).Equal(fmt.Sprintf("https://example.com/watch?v=%d", i))
		gt.String(t, w.Header().Get("Content-Disposition")).Contains(fmt.Sprintf("track %d.mp3", i))
	}

	entries, err := os.ReadDir(ts.workDir)
	gt.NoError(t, err)
	gt.Number(t, len(entries)).Equal(0)
}

func TestDownload_QueueFull(t *testing.T) {
	started := make(chan struct{}, 4)
	release := make(chan struct{})
	download := fakeDownload("t", ".webm", []byte("x"))
	mock := &MockExtractor{
		extractFunc: func(ctx context.Context, req *model.ExtractionRequest) (*model.ExtractionResult, error) {
			started <- struct{}{}
			select {
			case <-release:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			return download(ctx, req)
		},
	}
	ts := newTestServer(t, mock, []usecase.JobsOption{usecase.WithWorkers(1), usecase.WithQueueSize(1)})
	defer close(release)

	// occupy the worker and the queue slot
	w := postForm(ts.server.Handler, "/jobs", url.Values{"url": {"https://example.com/1"}})
	gt.Value(t, w.Code).Equal(http.StatusAccepted)
	<-started
	w = postForm(ts.server.Handler, "/jobs", url.Values{"url": {"https://example.com/2"}})
	gt.Value(t, w.Code).Equal(http.StatusAccepted)

	w = postForm(ts.server.Handler, "/download", url.Values{"url": {"https://example.com/3"}})
	gt.Value(t, w.Code).Equal(http.StatusServiceUnavailable)
	gt.Value(t, decodeError(t, w).Code).Equal("queue_full")

	w = postForm(ts.server.Handler, "/jobs", url.Values{"url": {"https://example.com/4"}})
	gt.Value(t, w.Code).Equal(http.StatusServiceUnavailable)
}

func TestDownload_RateLimited(t *testing.T) {
	mock := &MockExtractor{}
	ts := newTestServer(t, mock, nil, controller.WithRateLimit(0.001, 1))

	w := postForm(ts.server.Handler, "/download", url.Values{})
	gt.Value(t, w.Code).Equal(http.StatusBadRequest)

	w = postForm(ts.server.Handler, "/download", url.Values{})
	gt.Value(t, w.Code).Equal(http.StatusTooManyRequests)
	gt.Value(t, decodeError(t, w).Code).Equal("rate_limited")

	// other routes are not limited
	gt.Value(t, get(ts.server.Handler, "/health").Code).Equal(http.StatusOK)
}

func TestJobsAPI(t *testing.T) {
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	download := fakeDownload("Example Title", ".webm", []byte("audio"))
	mock := &MockExtractor{
		extractFunc: func(ctx context.Context, req *model.ExtractionRequest) (*model.ExtractionResult, error) {
			started <- struct{}{}
			select {
			case <-release:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			return download(ctx, req)
		},
	}
	ts := newTestServer(t, mock, nil)
	handler := ts.server.Handler

	req := httptest.NewRequest(http.MethodPost, "/jobs", strings.NewReader(`{"url":"https://example.com/watch?v=1"}`))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	gt.Value(t, w.Code).Equal(http.StatusAccepted)

	var job model.Job
	gt.NoError(t, json.NewDecoder(w.Body).Decode(&job))
	gt.True(t, job.ID != "")
	gt.Value(t, job.URL).Equal("https://example.com/watch?v=1")
	gt.Value(t, w.Header().Get("Location")).Equal("/jobs/" + job.ID.String())

	<-started
	w = get(handler, "/jobs/"+job.ID.String()+"/file")
	gt.Value(t, w.Code).Equal(http.StatusConflict)
	gt.Value(t, decodeError(t, w).Code).Equal("job_not_ready")

	close(release)
	waitFor(t, func() bool {
		w := get(handler, "/jobs/"+job.ID.String())
		if w.Code != http.StatusOK {
			return false
		}
		var current model.Job
		if err := json.NewDecoder(w.Body).Decode(&current); err != nil {
			return false
		}
		return current.Status == model.JobStatusSucceeded
	})

	w = get(handler, "/jobs/"+job.ID.String()+"/file")
	gt.Value(t, w.Code).Equal(http.StatusOK)
	gt.Value(t, w.Body.String()).Equal("audio")
	gt.Value(t, w.Header().Get("Content-Type")).Equal("audio/mpeg")
	gt.String(t, w.Header().Get("Content-Disposition")).Contains("Example Title.mp3")
}

func TestJobsAPI_Errors(t *testing.T) {
	mock := &MockExtractor{}
	ts := newTestServer(t, mock, nil)
	handler := ts.server.Handler

	w := get(handler, "/jobs/no-such-job")
	gt.Value(t, w.Code).Equal(http.StatusNotFound)
	gt.Value(t, decodeError(t, w).Code).Equal("job_not_found")

	w = get(handler, "/jobs/no-such-job/file")
	gt.Value(t, w.Code).Equal(http.StatusNotFound)

	w = postForm(handler, "/jobs", url.Values{"url": {""}})
	gt.Value(t, w.Code).Equal(http.StatusBadRequest)
	gt.Value(t, decodeError(t, w).Code).Equal("missing_url")

	req := httptest.NewRequest(http.MethodPost, "/jobs", strings.NewReader(`{"url":`))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	gt.Value(t, w.Code).Equal(http.StatusBadRequest)

	gt.Number(t, mock.Calls()).Equal(0)
}

func TestDownload_Timeout(t *testing.T) {
	mock := &MockExtractor{
		extractFunc: func(ctx context.Context, req *model.ExtractionRequest) (*model.ExtractionResult, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	ts := newTestServer(t, mock, []usecase.JobsOption{usecase.WithJobTimeout(50 * time.Millisecond)})

	w := postForm(ts.server.Handler, "/download", url.Values{"url": {"https://example.com/slow"}})
	gt.Value(t, w.Code).Equal(http.StatusInternalServerError)

	body := decodeError(t, w)
	gt.Value(t, body.Code).Equal("extraction_failed")
	gt.String(t, body.Error).Contains("timed out")
}
