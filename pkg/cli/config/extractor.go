package config

import (
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/tubeaudio/pkg/domain/model"
	"github.com/m-mizutani/tubeaudio/pkg/domain/types"
	"github.com/m-mizutani/tubeaudio/pkg/infra/ytdlp"
	"github.com/pelletier/go-toml/v2"
	"github.com/urfave/cli/v3"
)

// Extractor holds yt-dlp and extraction profile configuration
type Extractor struct {
	YtdlpPath   string
	WorkDir     string
	ProfilePath string

	// Overrides applied on top of the profile file
	Format  string
	Codec   string
	Quality string
}

// Flags returns CLI flags for extractor configuration
func (c *Extractor) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "ytdlp-path",
			Usage:       "Path to the yt-dlp executable",
			Value:       ytdlp.DefaultExecutable,
			Destination: &c.YtdlpPath,
			Sources:     cli.EnvVars("TUBEAUDIO_YTDLP_PATH"),
		},
		&cli.StringFlag{
			Name:        "work-dir",
			Usage:       "Parent directory of per-job temp directories (default: system temp dir)",
			Destination: &c.WorkDir,
			Sources:     cli.EnvVars("TUBEAUDIO_WORK_DIR"),
		},
		&cli.StringFlag{
			Name:        "profile",
			Usage:       "Extraction profile TOML file (format, codec, quality)",
			Destination: &c.ProfilePath,
			Sources:     cli.EnvVars("TUBEAUDIO_PROFILE"),
		},
		&cli.StringFlag{
			Name:        "format",
			Usage:       "yt-dlp format selector (overrides profile)",
			Destination: &c.Format,
			Sources:     cli.EnvVars("TUBEAUDIO_FORMAT"),
		},
		&cli.StringFlag{
			Name:        "codec",
			Usage:       "Audio codec: mp3, aac, m4a, alac, opus, vorbis, flac, wav (overrides profile)",
			Destination: &c.Codec,
			Sources:     cli.EnvVars("TUBEAUDIO_CODEC"),
		},
		&cli.StringFlag{
			Name:        "quality",
			Usage:       "Audio quality, bitrate in kbps or 0-10 VBR (overrides profile)",
			Destination: &c.Quality,
			Sources:     cli.EnvVars("TUBEAUDIO_QUALITY"),
		},
	}
}

// Profile loads the profile file if given, applies overrides and
// validates the result
func (c *Extractor) Profile() (model.Profile, error) {
	var profile model.Profile

	if c.ProfilePath != "" {
		f, err := os.Open(c.ProfilePath)
		if err != nil {
			return model.Profile{}, goerr.Wrap(err, "failed to read profile",
				goerr.V("path", c.ProfilePath),
				goerr.T(types.ErrTagInvalidConfig))
		}
		defer func() {
			_ = f.Close() // read only
		}()

		if err := toml.NewDecoder(f).DisallowUnknownFields().Decode(&profile); err != nil {
			return model.Profile{}, goerr.Wrap(err, "failed to parse profile",
				goerr.V("path", c.ProfilePath),
				goerr.T(types.ErrTagInvalidConfig))
		}
	}

	if c.Format != "" {
		profile.Format = c.Format
	}
	if c.Codec != "" {
		profile.Codec = c.Codec
	}
	if c.Quality != "" {
		profile.Quality = c.Quality
	}

	profile = profile.WithDefaults()
	if err := profile.Validate(); err != nil {
		return model.Profile{}, goerr.Wrap(err, "invalid extraction profile", goerr.V("path", c.ProfilePath))
	}
	return profile, nil
}

// NewExtractor creates the yt-dlp extractor
func (c *Extractor) NewExtractor() *ytdlp.Extractor {
	return ytdlp.New(ytdlp.WithExecutable(c.YtdlpPath))
}
