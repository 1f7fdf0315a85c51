package errutil

import (
	"context"
	"log/slog"

	"github.com/getsentry/sentry-go"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/tubeaudio/pkg/domain/types"
)

// clientErrorCodes are failures caused by the request, not by the server.
// They are logged at warn level and never reported to Sentry.
var clientErrorCodes = map[string]bool{
	types.ErrTagMissingURL.String():  true,
	types.ErrTagRateLimited.String(): true,
	types.ErrTagQueueFull.String():   true,
	types.ErrTagCanceled.String():    true,
	types.ErrTagJobNotFound.String(): true,
	types.ErrTagJobNotReady.String(): true,
}

// IsClientError returns true when err is caused by the caller
func IsClientError(err error) bool {
	return clientErrorCodes[types.ErrorCode(err)]
}

// Handle logs err with its goerr values and reports server-side failures to
// Sentry when a client is configured
func Handle(ctx context.Context, msg string, err error) {
	if err == nil {
		return
	}

	logger := ctxlog.From(ctx)
	attrs := []any{
		slog.Any("error", err),
		slog.String("code", types.ErrorCode(err)),
	}
	if ge := goerr.Unwrap(err); ge != nil {
		for k, v := range ge.Values() {
			attrs = append(attrs, slog.Any(k, v))
		}
	}

	if IsClientError(err) {
		logger.Warn(msg, attrs...)
		return
	}
	logger.Error(msg, attrs...)

	hub := sentry.CurrentHub().Clone()
	if hub.Client() == nil {
		return
	}
	hub.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("code", types.ErrorCode(err))
		scope.SetContext(types.ServiceName, sentry.Context{"message": msg})
	})
	hub.CaptureException(err)
}
