package config

import (
	"io/fs"
	"os"

	"github.com/urfave/cli/v3"
)

// Server holds server configuration
type Server struct {
	Addr      string
	StaticDir string
	RateLimit float64
	RateBurst int
}

// Flags returns CLI flags for server configuration
func (c *Server) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "Server address",
			Value:       "0.0.0.0:5000",
			Destination: &c.Addr,
			Sources:     cli.EnvVars("TUBEAUDIO_ADDR"),
		},
		&cli.StringFlag{
			Name:        "static-dir",
			Usage:       "Serve the front-end from this directory instead of the embedded one",
			Destination: &c.StaticDir,
			Sources:     cli.EnvVars("TUBEAUDIO_STATIC_DIR"),
		},
		&cli.FloatFlag{
			Name:        "rate-limit",
			Usage:       "Conversion requests per second accepted by the server (0 disables)",
			Value:       0,
			Destination: &c.RateLimit,
			Sources:     cli.EnvVars("TUBEAUDIO_RATE_LIMIT"),
		},
		&cli.IntFlag{
			Name:        "rate-burst",
			Usage:       "Burst size of the conversion rate limit",
			Value:       5,
			Destination: &c.RateBurst,
			Sources:     cli.EnvVars("TUBEAUDIO_RATE_BURST"),
		},
	}
}

// StaticFS returns the served root, or nil for the embedded front-end
func (c *Server) StaticFS() fs.FS {
	if c.StaticDir == "" {
		return nil
	}
	return os.DirFS(c.StaticDir)
}
