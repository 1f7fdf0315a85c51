package usecase

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/tubeaudio/pkg/domain/interfaces"
	"github.com/m-mizutani/tubeaudio/pkg/domain/model"
	"github.com/m-mizutani/tubeaudio/pkg/domain/types"
)

type convertUseCase struct {
	extractor interfaces.Extractor
	profile   model.Profile
	workDir   string
}

// ConvertOption configures the convert use case
type ConvertOption func(*convertUseCase)

// WithProfile sets the extraction profile
func WithProfile(profile model.Profile) ConvertOption {
	return func(uc *convertUseCase) {
		uc.profile = profile
	}
}

// WithWorkDir sets the parent directory of job directories. Empty means the
// system temp directory.
func WithWorkDir(dir string) ConvertOption {
	return func(uc *convertUseCase) {
		uc.workDir = dir
	}
}

// NewConvert creates a new instance of ConvertUseCase
func NewConvert(extractor interfaces.Extractor, opts ...ConvertOption) interfaces.ConvertUseCase {
	uc := &convertUseCase{
		extractor: extractor,
		profile:   model.DefaultProfile(),
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// Convert downloads url into a fresh job directory and returns the
// transcoded file. The job directory is removed when Convert fails.
func (uc *convertUseCase) Convert(ctx context.Context, url string) (*model.Artifact, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, goerr.New("missing URL", goerr.T(types.ErrTagMissingURL))
	}

	logger := ctxlog.From(ctx)

	jobDir, err := uc.createJobDir()
	if err != nil {
		return nil, err
	}

	artifact, err := uc.extract(ctx, url, jobDir)
	if err != nil {
		if rmErr := os.RemoveAll(jobDir); rmErr != nil {
			logger.Warn("Failed to remove job directory", "error", rmErr, "dir", jobDir)
		}
		return nil, err
	}

	logger.Info("Converted media",
		"url", url,
		"title", artifact.Title,
		"file", artifact.Name,
		"size_bytes", artifact.Size,
	)
	return artifact, nil
}

func (uc *convertUseCase) createJobDir() (string, error) {
	dir, err := os.MkdirTemp(uc.workDir, types.ServiceName+"-job-*")
	if err != nil {
		return "", goerr.Wrap(err, "failed to create job directory", goerr.V("work_dir", uc.workDir))
	}

	if err := os.Chmod(dir, 0700); err != nil {
		return "", goerr.Wrap(err, "failed to set job directory permissions", goerr.V("dir", dir))
	}

	return dir, nil
}

func (uc *convertUseCase) extract(ctx context.Context, url, jobDir string) (*model.Artifact, error) {
	logger := ctxlog.From(ctx)

	req := &model.ExtractionRequest{
		URL:            url,
		OutputTemplate: filepath.Join(jobDir, model.OutputTemplateName),
		Profile:        uc.profile,
		OnProgress:     progressFromContext(ctx),
	}

	logger.Debug("Running extractor",
		"url", url,
		"template", req.OutputTemplate,
		"format", uc.profile.Format,
		"codec", uc.profile.Codec,
	)

	result, err := uc.extractor.Extract(ctx, req)
	if err != nil {
		switch {
		case errors.Is(ctx.Err(), context.Canceled):
			return nil, goerr.Wrap(err, "extraction canceled", goerr.V("url", url), goerr.T(types.ErrTagCanceled))
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			return nil, goerr.Wrap(err, "extraction timed out", goerr.V("url", url), goerr.T(types.ErrTagExtractionFailed))
		}
		return nil, goerr.Wrap(err, "extraction failed", goerr.V("url", url), goerr.T(types.ErrTagExtractionFailed))
	}

	path := result.OutputPath(uc.profile.Extension())

	// Security check: the reported path comes from the remote title
	if !strings.HasPrefix(filepath.Clean(path), filepath.Clean(jobDir)+string(os.PathSeparator)) {
		return nil, goerr.New("output path is outside of job directory",
			goerr.V("path", path),
			goerr.V("dir", jobDir),
			goerr.T(types.ErrTagOutputMissing))
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, goerr.Wrap(err, "output file not found", goerr.V("path", path), goerr.T(types.ErrTagOutputMissing))
		}
		return nil, goerr.Wrap(err, "failed to stat output file", goerr.V("path", path))
	}
	if info.IsDir() {
		return nil, goerr.New("output path is a directory", goerr.V("path", path), goerr.T(types.ErrTagOutputMissing))
	}

	title := result.Title
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	return &model.Artifact{
		Path:  path,
		Name:  filepath.Base(path),
		Size:  info.Size(),
		Title: title,
		Dir:   jobDir,
	}, nil
}

type progressCtxKey struct{}

// withProgress attaches a progress callback that Convert forwards to the
// extractor
func withProgress(ctx context.Context, fn func(percent int)) context.Context {
	return context.WithValue(ctx, progressCtxKey{}, fn)
}

func progressFromContext(ctx context.Context) func(percent int) {
	if fn, ok := ctx.Value(progressCtxKey{}).(func(percent int)); ok {
		return fn
	}
	return nil
}
