package usecase_test

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/m-mizutani/tubeaudio/pkg/domain/model"
)

// MockExtractor is a mock implementation of Extractor
type MockExtractor struct {
	extractFunc func(ctx context.Context, req *model.ExtractionRequest) (*model.ExtractionResult, error)
	calls       atomic.Int64

	mu   sync.Mutex
	urls []string
}

func (m *MockExtractor) Extract(ctx context.Context, req *model.ExtractionRequest) (*model.ExtractionResult, error) {
	m.calls.Add(1)
	m.mu.Lock()
	m.urls = append(m.urls, req.URL)
	m.mu.Unlock()

	if m.extractFunc != nil {
		return m.extractFunc(ctx, req)
	}
	return nil, errors.New("mock not configured")
}

func (m *MockExtractor) Calls() int64 {
	return m.calls.Load()
}

// expand fills the output template the way yt-dlp does
func expand(template, title, ext string) string {
	s := strings.ReplaceAll(template, "%(title)s", title)
	return strings.ReplaceAll(s, "%(ext)s", ext)
}

// fakeDownload simulates yt-dlp with an audio post-processor: the reported
// filename keeps the source extension while the file on disk is the
// transcoded one
func fakeDownload(title, sourceExt string, body []byte) func(ctx context.Context, req *model.ExtractionRequest) (*model.ExtractionResult, error) {
	return func(ctx context.Context, req *model.ExtractionRequest) (*model.ExtractionResult, error) {
		reported := expand(req.OutputTemplate, title, strings.TrimPrefix(sourceExt, "."))
		final := model.ReplaceExt(reported, req.Profile.Extension())
		if err := os.WriteFile(final, body, 0600); err != nil {
			return nil, err
		}
		if req.OnProgress != nil {
			req.OnProgress(50)
			req.OnProgress(100)
		}
		return &model.ExtractionResult{Title: title, Filename: reported}, nil
	}
}
