// Package inference defines the boundary to the external object detection engine.
package inference

import (
	"context"

	"github.com/ericnjogu/video-object-detection/internal/types"
)

// Engine runs object detection on a single frame.
type Engine interface {
	Detect(ctx context.Context, frame types.FrameTensor) (types.DetectionOutput, error)
	Close() error
}
