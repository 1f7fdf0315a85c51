package types

import "github.com/m-mizutani/goerr/v2"

// Error tags classify failures. The HTTP controller maps each tag to a
// status code and a stable error code.
var (
	ErrTagMissingURL       = goerr.NewTag("missing_url")
	ErrTagRateLimited      = goerr.NewTag("rate_limited")
	ErrTagQueueFull        = goerr.NewTag("queue_full")
	ErrTagExtractionFailed = goerr.NewTag("extraction_failed")
	ErrTagOutputMissing    = goerr.NewTag("output_missing")
	ErrTagCanceled         = goerr.NewTag("canceled")
	ErrTagJobNotFound      = goerr.NewTag("job_not_found")
	ErrTagJobNotReady      = goerr.NewTag("job_not_ready")
	ErrTagInvalidConfig    = goerr.NewTag("invalid_config")
)

// ErrorCode returns the stable public code of err. Errors carrying none of
// the known tags are reported as "internal". When several tags are present
// the first match in this order wins.
func ErrorCode(err error) string {
	switch {
	case goerr.HasTag(err, ErrTagMissingURL):
		return ErrTagMissingURL.String()
	case goerr.HasTag(err, ErrTagRateLimited):
		return ErrTagRateLimited.String()
	case goerr.HasTag(err, ErrTagQueueFull):
		return ErrTagQueueFull.String()
	case goerr.HasTag(err, ErrTagCanceled):
		return ErrTagCanceled.String()
	case goerr.HasTag(err, ErrTagJobNotFound):
		return ErrTagJobNotFound.String()
	case goerr.HasTag(err, ErrTagJobNotReady):
		return ErrTagJobNotReady.String()
	case goerr.HasTag(err, ErrTagOutputMissing):
		return ErrTagOutputMissing.String()
	case goerr.HasTag(err, ErrTagExtractionFailed):
		return ErrTagExtractionFailed.String()
	case goerr.HasTag(err, ErrTagInvalidConfig):
		return ErrTagInvalidConfig.String()
	default:
		return "internal"
	}
}
