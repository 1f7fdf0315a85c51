package interfaces

import (
	"context"

	"github.com/m-mizutani/tubeaudio/pkg/domain/model"
)

// Extractor downloads a media URL and transcodes its audio track. The
// implementation delegates to an external engine; it must kill any
// subprocess when ctx is cancelled.
type Extractor interface {
	Extract(ctx context.Context, req *model.ExtractionRequest) (*model.ExtractionResult, error)
}
