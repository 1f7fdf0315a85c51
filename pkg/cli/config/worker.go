package config

import (
	"time"

	"github.com/m-mizutani/tubeaudio/pkg/usecase"
	"github.com/urfave/cli/v3"
)

// Worker holds job runner configuration
type Worker struct {
	Workers       int
	QueueSize     int
	JobTimeout    time.Duration
	JobTTL        time.Duration
	SweepInterval time.Duration
}

// Flags returns CLI flags for job runner configuration
func (c *Worker) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:        "workers",
			Usage:       "Number of concurrent conversions",
			Value:       4,
			Destination: &c.Workers,
			Sources:     cli.EnvVars("TUBEAUDIO_WORKERS"),
		},
		&cli.IntFlag{
			Name:        "queue-size",
			Usage:       "Conversions allowed to wait for a worker; more are rejected with 503",
			Value:       32,
			Destination: &c.QueueSize,
			Sources:     cli.EnvVars("TUBEAUDIO_QUEUE_SIZE"),
		},
		&cli.DurationFlag{
			Name:        "job-timeout",
			Usage:       "Upper bound of a single conversion",
			Value:       30 * time.Minute,
			Destination: &c.JobTimeout,
			Sources:     cli.EnvVars("TUBEAUDIO_JOB_TIMEOUT"),
		},
		&cli.DurationFlag{
			Name:        "job-ttl",
			Usage:       "How long finished background jobs and their files are kept",
			Value:       time.Hour,
			Destination: &c.JobTTL,
			Sources:     cli.EnvVars("TUBEAUDIO_JOB_TTL"),
		},
		&cli.DurationFlag{
			Name:        "sweep-interval",
			Usage:       "How often expired background jobs are removed",
			Value:       time.Minute,
			Destination: &c.SweepInterval,
			Sources:     cli.EnvVars("TUBEAUDIO_SWEEP_INTERVAL"),
		},
	}
}

// Options returns job runner options
func (c *Worker) Options() []usecase.JobsOption {
	return []usecase.JobsOption{
		usecase.WithWorkers(c.Workers),
		usecase.WithQueueSize(c.QueueSize),
		usecase.WithJobTimeout(c.JobTimeout),
		usecase.WithJobTTL(c.JobTTL),
		usecase.WithSweepInterval(c.SweepInterval),
	}
}
