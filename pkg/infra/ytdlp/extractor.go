package ytdlp

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/lrstanley/go-ytdlp"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/tubeaudio/pkg/domain/interfaces"
	"github.com/m-mizutani/tubeaudio/pkg/domain/model"
)

const (
	// DefaultExecutable is looked up in PATH
	DefaultExecutable = "yt-dlp"

	progressInterval = 500 * time.Millisecond
)

// Extractor implements interfaces.Extractor with the yt-dlp binary. yt-dlp
// in turn runs ffmpeg for the audio post-processing step.
type Extractor struct {
	executable string
}

var _ interfaces.Extractor = (*Extractor)(nil)

// Option is a functional option for configuring Extractor
type Option func(*Extractor)

// WithExecutable sets a custom yt-dlp executable path
func WithExecutable(path string) Option {
	return func(e *Extractor) {
		if path != "" {
			e.executable = path
		}
	}
}

// New creates a new yt-dlp based extractor
func New(opts ...Option) *Extractor {
	e := &Extractor{
		executable: DefaultExecutable,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// command builds the yt-dlp invocation for req
func (e *Extractor) command(req *model.ExtractionRequest) *ytdlp.Command {
	return ytdlp.New().
		SetExecutable(e.executable).
		PrintJSON().
		NoPlaylist().
		Format(req.Profile.Format).
		ExtractAudio().
		AudioFormat(req.Profile.Codec).
		AudioQuality(req.Profile.Quality).
		Output(req.OutputTemplate)
}

// Extract runs yt-dlp against req.URL. Cancelling ctx kills the process.
func (e *Extractor) Extract(ctx context.Context, req *model.ExtractionRequest) (*model.ExtractionResult, error) {
	logger := ctxlog.From(ctx)

	dl := e.command(req)
	if req.OnProgress != nil {
		dl.ProgressFunc(progressInterval, func(update ytdlp.ProgressUpdate) {
			if update.TotalBytes > 0 {
				req.OnProgress(int(float64(update.DownloadedBytes) / float64(update.TotalBytes) * 100))
			}
		})
	}

	result, err := dl.Run(ctx, req.URL)
	if err != nil {
		var stderr string
		if result != nil {
			stderr = result.Stderr
		}
		logger.Debug("yt-dlp failed", "error", err, "stderr", stderr)

		msg := "yt-dlp failed"
		if line := ErrorLine(stderr); line != "" {
			msg = line
		}
		return nil, goerr.Wrap(err, msg, goerr.V("url", req.URL))
	}

	info, err := result.GetExtractedInfo()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to parse yt-dlp output", goerr.V("url", req.URL))
	}
	if len(info) == 0 || info[0].Filename == nil || *info[0].Filename == "" {
		return nil, goerr.New("yt-dlp reported no output file", goerr.V("url", req.URL))
	}

	return extractionResult(info[0]), nil
}

// extractionResult prefers the title yt-dlp reports. The file name is
// sanitized for the filesystem (e.g. "/" becomes "⧸"), so it is only a
// fallback.
func extractionResult(info *ytdlp.ExtractedInfo) *model.ExtractionResult {
	filename := *info.Filename
	title := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	if info.Title != nil && *info.Title != "" {
		title = *info.Title
	}
	return &model.ExtractionResult{
		Title:    title,
		Filename: filename,
	}
}

// CommandLine returns the yt-dlp argv that Extract would run for req
func (e *Extractor) CommandLine(req *model.ExtractionRequest) []string {
	args := []string{e.executable}
	for _, flag := range e.command(req).GetFlagConfig().ToFlags() {
		args = append(args, flag.Raw()...)
	}
	return append(args, req.URL)
}

// ErrorLine returns the message of the last "ERROR:" line yt-dlp wrote to
// stderr, or an empty string
func ErrorLine(stderr string) string {
	lines := strings.Split(strings.TrimSpace(stderr), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if msg, ok := strings.CutPrefix(line, "ERROR:"); ok {
			return strings.TrimSpace(msg)
		}
	}
	return ""
}
