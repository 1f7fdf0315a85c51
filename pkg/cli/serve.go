package cli

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/tubeaudio/pkg/cli/config"
	controller "github.com/m-mizutani/tubeaudio/pkg/controller/http"
	"github.com/m-mizutani/tubeaudio/pkg/usecase"
	"github.com/urfave/cli/v3"
)

func cmdServe() *cli.Command {
	var (
		serverCfg    config.Server
		extractorCfg config.Extractor
		workerCfg    config.Worker
		storeCfg     config.Store
		sentryCfg    config.Sentry
	)

	var flags []cli.Flag
	flags = append(flags, serverCfg.Flags()...)
	flags = append(flags, extractorCfg.Flags()...)
	flags = append(flags, workerCfg.Flags()...)
	flags = append(flags, storeCfg.Flags()...)
	flags = append(flags, sentryCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start HTTP server",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := ctxlog.From(ctx)

			profile, err := extractorCfg.Profile()
			if err != nil {
				return err
			}

			flush, err := sentryCfg.Configure()
			if err != nil {
				return err
			}
			defer flush()

			logger.Info("Starting tubeaudio server",
				slog.String("addr", serverCfg.Addr),
				slog.Any("profile", profile),
				slog.Any("store", storeCfg),
				slog.Any("sentry", sentryCfg),
			)

			repo, repoCloser, err := storeCfg.NewJobRepository(ctx, workerCfg.JobTTL)
			if err != nil {
				return goerr.Wrap(err, "failed to open job store")
			}
			defer closeWithLog(ctx, "job store", repoCloser)

			store, storeCloser, err := storeCfg.NewArtifactStore(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to open artifact store")
			}
			defer closeWithLog(ctx, "artifact store", storeCloser)

			// Create use cases
			convertUC := usecase.NewConvert(
				extractorCfg.NewExtractor(),
				usecase.WithProfile(profile),
				usecase.WithWorkDir(extractorCfg.WorkDir),
			)
			jobs := usecase.NewJobs(convertUC, repo, store, workerCfg.Options()...)
			jobs.Start(ctx)
			defer jobs.Close()

			// Create HTTP server with options
			opts := []controller.Option{
				controller.WithAddr(serverCfg.Addr),
				controller.WithRateLimit(serverCfg.RateLimit, serverCfg.RateBurst),
			}
			if root := serverCfg.StaticFS(); root != nil {
				opts = append(opts, controller.WithStaticFS(root))
			}

			server, err := controller.NewServer(ctx, jobs, opts...)
			if err != nil {
				return goerr.Wrap(err, "failed to create HTTP server")
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				logger.Info("HTTP server starting", slog.String("addr", serverCfg.Addr))
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					serverErr <- err
				}
			}()

			// Wait for interrupt signal
			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(sigChan)

			select {
			case <-ctx.Done():
				logger.Info("Context cancelled, shutting down...")
			case sig := <-sigChan:
				logger.Info("Signal received, shutting down...", slog.Any("signal", sig))
			case err := <-serverErr:
				return goerr.Wrap(err, "HTTP server failed", goerr.V("addr", serverCfg.Addr))
			}

			// Graceful shutdown
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
			defer cancel()

			if err := server.Shutdown(shutdownCtx); err != nil {
				return goerr.Wrap(err, "failed to shutdown server gracefully")
			}

			logger.Info("Server shutdown complete")
			return nil
		},
	}
}

func closeWithLog(ctx context.Context, name string, c io.Closer) {
	if err := c.Close(); err != nil {
		ctxlog.From(ctx).Warn("Failed to close "+name, "error", err)
	}
}
