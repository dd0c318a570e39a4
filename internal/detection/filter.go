// Package detection reduces raw inference output to the detections worth
// forwarding and maps their class ids to display names.
package detection

import (
	"errors"
	"fmt"

	"github.com/ericnjogu/video-object-detection/internal/tensor"
	"github.com/ericnjogu/video-object-detection/internal/types"
)

// ErrMisaligned is returned when co-indexed detection arrays differ in length.
var ErrMisaligned = errors.New("detection arrays are not the same length")

// Keep reports whether a score meets the cutoff. The comparison is inclusive.
func Keep(score, cutoff float32) bool {
	return score >= cutoff
}

// Filter returns the detections whose score meets the cutoff, in their original order.
func Filter(dets []types.Detection, cutoff float32) []types.Detection {
	kept := make([]types.Detection, 0, len(dets))
	for _, d := range dets {
		if Keep(d.Score, cutoff) {
			kept = append(kept, d)
		}
	}
	return kept
}

// Mask computes the keep-mask for a score sequence.
func Mask(scores []float32, cutoff float32) []bool {
	mask := make([]bool, len(scores))
	for i, s := range scores {
		mask[i] = Keep(s, cutoff)
	}
	return mask
}

// FilterOutput applies the cutoff to co-indexed arrays. All three arrays are
// reduced with the same mask so index i still refers to one detection.
func FilterOutput(out types.DetectionOutput, cutoff float32) (types.DetectionOutput, error) {
	dets, ok := out.Detections()
	if !ok {
		return types.DetectionOutput{}, fmt.Errorf("%w: %d scores, %d classes, %d boxes",
			ErrMisaligned, len(out.Scores), len(out.Classes), len(out.Boxes))
	}
	return types.OutputFrom(Filter(dets, cutoff)), nil
}

// TensorOutput is inference output whose boxes arrive as a flat buffer with a shape.
type TensorOutput struct {
	Scores  []float32
	Classes []int32
	Boxes   tensor.Tensor[float32]
}

// FilterTensor applies the cutoff when boxes are a tensor: whole rows are
// selected along the first axis with the mask derived from the scores.
func FilterTensor(out TensorOutput, cutoff float32) (TensorOutput, error) {
	if len(out.Classes) != len(out.Scores) || out.Boxes.Rows() != len(out.Scores) {
		return TensorOutput{}, fmt.Errorf("%w: %d scores, %d classes, %d box rows",
			ErrMisaligned, len(out.Scores), len(out.Classes), out.Boxes.Rows())
	}
	mask := Mask(out.Scores, cutoff)
	boxes, err := tensor.SelectRows(out.Boxes, mask)
	if err != nil {
		return TensorOutput{}, err
	}
	res := TensorOutput{
		Scores:  make([]float32, 0, boxes.Rows()),
		Classes: make([]int32, 0, boxes.Rows()),
		Boxes:   boxes,
	}
	for i, keep := range mask {
		if keep {
			res.Scores = append(res.Scores, out.Scores[i])
			res.Classes = append(res.Classes, out.Classes[i])
		}
	}
	return res, nil
}

// FilterClasses keeps only detections whose class is in allowed.
// An empty allow-list keeps everything.
func FilterClasses(dets []types.Detection, allowed map[int32]bool) []types.Detection {
	if len(allowed) == 0 {
		return dets
	}
	kept := dets[:0:0]
	for _, d := range dets {
		if allowed[d.Class] {
			kept = append(kept, d)
		}
	}
	return kept
}

// ClassNames restricts a category index to the classes present in classes.
// Classes missing from the index are omitted.
func ClassNames(classes []int32, index map[int32]string) map[int32]string {
	names := make(map[int32]string)
	for _, c := range classes {
		if name, ok := index[c]; ok {
			names[c] = name
		}
	}
	return names
}
