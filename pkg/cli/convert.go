package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/tubeaudio/pkg/cli/config"
	"github.com/m-mizutani/tubeaudio/pkg/domain/interfaces"
	"github.com/m-mizutani/tubeaudio/pkg/domain/types"
	"github.com/m-mizutani/tubeaudio/pkg/usecase"
	"github.com/urfave/cli/v3"
)

func cmdConvert() *cli.Command {
	var (
		extractorCfg config.Extractor
		outputDir    string
	)

	flags := append(extractorCfg.Flags(),
		&cli.StringFlag{
			Name:        "output",
			Aliases:     []string{"o"},
			Usage:       "Directory to write the audio file to",
			Value:       ".",
			Destination: &outputDir,
			Sources:     cli.EnvVars("TUBEAUDIO_OUTPUT"),
		},
	)

	return &cli.Command{
		Name:      "convert",
		Aliases:   []string{"c"},
		Usage:     "Download one URL and write the audio file locally",
		ArgsUsage: "<url>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			// Ctrl-C kills the running yt-dlp
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			profile, err := extractorCfg.Profile()
			if err != nil {
				return err
			}

			uc := usecase.NewConvert(
				extractorCfg.NewExtractor(),
				usecase.WithProfile(profile),
				usecase.WithWorkDir(extractorCfg.WorkDir),
			)

			path, err := convertTo(ctx, uc, c.Args().First(), outputDir)
			if err != nil {
				return err
			}

			fmt.Fprintln(c.Root().Writer, path)
			return nil
		},
	}
}

// convertTo runs one conversion and copies the result into outputDir
func convertTo(ctx context.Context, uc interfaces.ConvertUseCase, url, outputDir string) (string, error) {
	logger := ctxlog.From(ctx)

	artifact, err := uc.Convert(ctx, url)
	if err != nil {
		return "", err
	}
	defer func() {
		if err := artifact.Release(); err != nil {
			logger.Warn("Failed to remove job directory", "error", err, "dir", artifact.Dir)
		}
	}()

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", goerr.Wrap(err, "failed to create output directory", goerr.V("dir", outputDir))
	}

	dst := filepath.Join(outputDir, artifact.Name)
	if err := copyFile(artifact.Path, dst); err != nil {
		return "", goerr.Wrap(err, "failed to write output file",
			goerr.V("src", artifact.Path),
			goerr.V("dst", dst),
			goerr.T(types.ErrTagOutputMissing))
	}

	logger.Info("Saved audio file",
		slog.String("path", dst),
		slog.String("title", artifact.Title),
		slog.Int64("size_bytes", artifact.Size),
	)
	return dst, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		_ = in.Close() // read only
	}()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
