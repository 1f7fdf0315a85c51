package model

import (
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/tubeaudio/pkg/domain/types"
)

const (
	// DefaultFormat prefers an audio-only stream and falls back to the best
	// muxed stream
	DefaultFormat = "bestaudio/best"

	// DefaultCodec is the post-processing target codec
	DefaultCodec = "mp3"

	// DefaultQuality is the target bitrate in kbps passed to the encoder
	DefaultQuality = "192"
)

// codecExtensions maps a post-processing codec to the extension of the file
// it produces
var codecExtensions = map[string]string{
	"mp3":    ".mp3",
	"aac":    ".m4a",
	"m4a":    ".m4a",
	"alac":   ".m4a",
	"opus":   ".opus",
	"vorbis": ".ogg",
	"flac":   ".flac",
	"wav":    ".wav",
}

// Profile is the extraction configuration applied to every job
type Profile struct {
	Format  string `toml:"format" json:"format"`
	Codec   string `toml:"codec" json:"codec"`
	Quality string `toml:"quality" json:"quality"`
}

// DefaultProfile returns best audio transcoded to 192 kbps mp3
func DefaultProfile() Profile {
	return Profile{
		Format:  DefaultFormat,
		Codec:   DefaultCodec,
		Quality: DefaultQuality,
	}
}

// WithDefaults fills empty fields from DefaultProfile
func (p Profile) WithDefaults() Profile {
	d := DefaultProfile()
	if p.Format == "" {
		p.Format = d.Format
	}
	if p.Codec == "" {
		p.Codec = d.Codec
	}
	if p.Quality == "" {
		p.Quality = d.Quality
	}
	p.Codec = strings.ToLower(p.Codec)
	return p
}

// Validate checks that the codec is one the extractor can produce
func (p Profile) Validate() error {
	if p.Format == "" {
		return goerr.New("format is required", goerr.T(types.ErrTagInvalidConfig))
	}
	if _, ok := codecExtensions[p.Codec]; !ok {
		return goerr.New("unsupported audio codec",
			goerr.V("codec", p.Codec),
			goerr.T(types.ErrTagInvalidConfig))
	}
	if p.Quality == "" {
		return goerr.New("quality is required", goerr.T(types.ErrTagInvalidConfig))
	}
	return nil
}

// Extension returns the extension, with leading dot, of files produced by
// the profile's codec
func (p Profile) Extension() string {
	if ext, ok := codecExtensions[p.Codec]; ok {
		return ext
	}
	return "." + p.Codec
}
