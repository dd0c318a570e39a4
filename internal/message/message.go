// Package message builds the detection request sent to a downstream handler.
package message

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ericnjogu/video-object-detection/internal/detection"
	"github.com/ericnjogu/video-object-detection/internal/tensor"
	"github.com/ericnjogu/video-object-detection/internal/types"
)

// FloatArray is the wire form of a numeric tensor.
type FloatArray struct {
	Numbers []float32 `json:"numbers"`
	Shape   []int32   `json:"shape"`
}

// Tensor converts the wire form back into a tensor.
func (a FloatArray) Tensor() (tensor.Tensor[float32], error) {
	shape := make([]int, len(a.Shape))
	for i, d := range a.Shape {
		shape[i] = int(d)
	}
	return tensor.New(a.Numbers, shape...)
}

// FloatArrayOf lowers a float32 tensor into its wire form.
func FloatArrayOf(t tensor.Tensor[float32]) FloatArray {
	shape := make([]int32, len(t.Shape))
	for i, d := range t.Shape {
		shape[i] = int32(d)
	}
	return FloatArray{Numbers: t.Values, Shape: shape}
}

// DetectionRequest is one frame worth of detections sent to the handler.
type DetectionRequest struct {
	StartTimestamp   float64            `json:"start_timestamp"`
	InstanceName     string             `json:"instance_name"`
	Source           string             `json:"source"`
	FrameCount       int64              `json:"frame_count"`
	DetectionClasses []int32            `json:"detection_classes"`
	DetectionScores  []float32          `json:"detection_scores"`
	DetectionBoxes   FloatArray         `json:"detection_boxes"`
	Frame            FloatArray         `json:"frame"`
	CategoryIndex    map[int32]string   `json:"category_index,omitempty"`
	StringMap        map[string]string  `json:"string_map,omitempty"`
	FloatMap         map[string]float32 `json:"float_map,omitempty"`
	ID               string             `json:"id"`
}

// DetectionResponse is the handler's reply.
type DetectionResponse struct {
	Status bool `json:"status"`
}

// MakeID hashes the string form of each part, in order, into a hex digest.
// Identical parts always give the same id.
func MakeID(parts ...any) string {
	var b strings.Builder
	for _, p := range parts {
		fmt.Fprint(&b, p)
	}
	hash := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(hash[:])
}

// Meta carries the scalar fields of a request.
type Meta struct {
	InstanceName   string
	Source         string
	FrameCount     int64
	StartTimestamp float64
	ID             string
}

// Pack builds the request for one frame and its filtered detections. The
// category index is restricted to classes present in dets.
func Pack(frame types.FrameTensor, dets []types.Detection, meta Meta, categoryIndex map[int32]string) *DetectionRequest {
	out := types.OutputFrom(dets)
	return &DetectionRequest{
		StartTimestamp:   meta.StartTimestamp,
		InstanceName:     meta.InstanceName,
		Source:           meta.Source,
		FrameCount:       meta.FrameCount,
		DetectionClasses: out.Classes,
		DetectionScores:  out.Scores,
		DetectionBoxes:   FloatArrayOf(tensor.FromBoxes(out.Boxes)),
		Frame:            FloatArrayOf(tensor.Convert[float32](tensor.FromFrame(frame))),
		CategoryIndex:    detection.ClassNames(out.Classes, categoryIndex),
		StringMap:        map[string]string{"id": meta.ID},
		FloatMap: map[string]float32{
			"frame_height": float32(frame.Height),
			"frame_width":  float32(frame.Width),
		},
		ID: meta.ID,
	}
}

// Detections returns the request's detections as records.
func (r *DetectionRequest) Detections() ([]types.Detection, error) {
	t, err := r.DetectionBoxes.Tensor()
	if err != nil {
		return nil, err
	}
	boxes, err := t.Boxes()
	if err != nil {
		return nil, err
	}
	out := types.DetectionOutput{Scores: r.DetectionScores, Classes: r.DetectionClasses, Boxes: boxes}
	dets, ok := out.Detections()
	if !ok {
		return nil, fmt.Errorf("%w: %d scores, %d classes, %d boxes",
			detection.ErrMisaligned, len(r.DetectionScores), len(r.DetectionClasses), len(boxes))
	}
	return dets, nil
}
