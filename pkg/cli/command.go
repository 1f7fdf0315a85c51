package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/tubeaudio/pkg/cli/config"
	"github.com/m-mizutani/tubeaudio/pkg/domain/model"
	"github.com/m-mizutani/tubeaudio/pkg/domain/types"
	"github.com/urfave/cli/v3"
)

func cmdCommand() *cli.Command {
	var (
		extractorCfg config.Extractor
		outputDir    string
	)

	flags := append(extractorCfg.Flags(),
		&cli.StringFlag{
			Name:        "output",
			Aliases:     []string{"o"},
			Usage:       "Directory used in the output template",
			Value:       ".",
			Destination: &outputDir,
		},
	)

	return &cli.Command{
		Name:      "command",
		Usage:     "Print the yt-dlp command line a conversion of <url> would run",
		ArgsUsage: "<url>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			url := strings.TrimSpace(c.Args().First())
			if url == "" {
				return goerr.New("missing URL", goerr.T(types.ErrTagMissingURL))
			}

			profile, err := extractorCfg.Profile()
			if err != nil {
				return err
			}

			req := &model.ExtractionRequest{
				URL:            url,
				OutputTemplate: filepath.Join(outputDir, model.OutputTemplateName),
				Profile:        profile,
			}
			args := extractorCfg.NewExtractor().CommandLine(req)

			fmt.Fprintln(c.Root().Writer, shellJoin(args))
			return nil
		},
	}
}

// shellJoin quotes args for a POSIX shell
func shellJoin(args []string) string {
	quoted := make([]string, len(args))
	for i, arg := range args {
		quoted[i] = shellQuote(arg)
	}
	return strings.Join(quoted, " ")
}

func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	safe := true
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || strings.ContainsRune("-_./:=,+@%", r)) {
			safe = false
			break
		}
	}
	if safe {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
