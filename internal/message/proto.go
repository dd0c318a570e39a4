package message

import (
	"maps"

	pb "github.com/ericnjogu/video-object-detection/pkg/proto"
)

func (a FloatArray) proto() *pb.FloatArray {
	return &pb.FloatArray{Numbers: a.Numbers, Shape: a.Shape}
}

func floatArrayFrom(a *pb.FloatArray) FloatArray {
	return FloatArray{Numbers: a.GetNumbers(), Shape: a.GetShape()}
}

// Proto returns the handle_detection_request for r. Slices and maps are shared, not copied.
func (r *DetectionRequest) Proto() *pb.HandleDetectionRequest {
	return &pb.HandleDetectionRequest{
		StartTimestamp:   r.StartTimestamp,
		InstanceName:     r.InstanceName,
		Source:           r.Source,
		FrameCount:       r.FrameCount,
		DetectionClasses: r.DetectionClasses,
		DetectionScores:  r.DetectionScores,
		DetectionBoxes:   r.DetectionBoxes.proto(),
		Frame:            r.Frame.proto(),
		CategoryIndex:    r.CategoryIndex,
		StringMap:        r.StringMap,
		FloatMap:         r.FloatMap,
		Id:               r.ID,
	}
}

// FromProto converts a received handle_detection_request. Empty maps stay nil.
func FromProto(m *pb.HandleDetectionRequest) *DetectionRequest {
	return &DetectionRequest{
		StartTimestamp:   m.GetStartTimestamp(),
		InstanceName:     m.GetInstanceName(),
		Source:           m.GetSource(),
		FrameCount:       m.GetFrameCount(),
		DetectionClasses: m.GetDetectionClasses(),
		DetectionScores:  m.GetDetectionScores(),
		DetectionBoxes:   floatArrayFrom(m.GetDetectionBoxes()),
		Frame:            floatArrayFrom(m.GetFrame()),
		CategoryIndex:    cloneNonEmpty(m.GetCategoryIndex()),
		StringMap:        cloneNonEmpty(m.GetStringMap()),
		FloatMap:         cloneNonEmpty(m.GetFloatMap()),
		ID:               m.GetId(),
	}
}

func cloneNonEmpty[K comparable, V any](m map[K]V) map[K]V {
	if len(m) == 0 {
		return nil
	}
	return maps.Clone(m)
}
