package async

import (
	"context"
	"runtime/debug"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
)

// Dispatch runs handler in a new goroutine with a context detached from
// ctx's cancellation. Panics and returned errors are logged.
func Dispatch(ctx context.Context, handler func(ctx context.Context) error) {
	newCtx := Detach(ctx)

	go func() {
		if err := Safe(newCtx, handler); err != nil {
			logger := ctxlog.From(newCtx)
			logger.Error("error in async handler", "error", err)
		}
	}()
}

// Safe runs handler in the calling goroutine. A panic is logged with its
// stack trace and returned as an error.
func Safe(ctx context.Context, handler func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			stack := debug.Stack()
			logger := ctxlog.From(ctx)
			logger.Error("panic in async handler",
				"recover", r,
				"stack", string(stack))
			err = goerr.New("panic in async handler", goerr.V("recover", r))
		}
	}()

	return handler(ctx)
}

// Detach returns a background context carrying ctx's logger
func Detach(ctx context.Context) context.Context {
	newCtx := context.Background()
	newCtx = ctxlog.With(newCtx, ctxlog.From(ctx))
	return newCtx
}
