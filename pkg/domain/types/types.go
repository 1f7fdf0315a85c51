package types

// Version is the application version, overridden at build time with
// -ldflags "-X github.com/m-mizutani/tubeaudio/pkg/domain/types.Version=..."
var Version = "dev"

// ServiceName is reported by the health endpoint and used as the default
// temp directory prefix
const ServiceName = "tubeaudio"

// JobID identifies a conversion job
type JobID string

// String returns the string form of the job ID
func (x JobID) String() string {
	return string(x)
}
