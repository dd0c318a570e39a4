package types

// Box is a bounding box in normalized coordinates: [ymin, xmin, ymax, xmax]
type Box [4]float32

// Detection is a single object found by the inference engine
type Detection struct {
	Class int32   `json:"class"`
	Score float32 `json:"score"`
	Box   Box     `json:"box"`
}

// DetectionOutput matches the JSON structure returned by an inference engine.
// The three slices are co-indexed: entry i of each describes the same detection.
type DetectionOutput struct {
	Scores  []float32 `json:"detection_scores"`
	Classes []int32   `json:"detection_classes"`
	Boxes   []Box     `json:"detection_boxes"`
}

// Len returns the number of detections, or -1 if the slices disagree.
func (o DetectionOutput) Len() int {
	n := len(o.Scores)
	if len(o.Classes) != n || len(o.Boxes) != n {
		return -1
	}
	return n
}

// Detections zips the co-indexed slices into records. ok is false when the
// slices are not the same length.
func (o DetectionOutput) Detections() (dets []Detection, ok bool) {
	n := o.Len()
	if n < 0 {
		return nil, false
	}
	dets = make([]Detection, n)
	for i := 0; i < n; i++ {
		dets[i] = Detection{Class: o.Classes[i], Score: o.Scores[i], Box: o.Boxes[i]}
	}
	return dets, true
}

// OutputFrom unzips records back into co-indexed slices.
func OutputFrom(dets []Detection) DetectionOutput {
	out := DetectionOutput{
		Scores:  make([]float32, len(dets)),
		Classes: make([]int32, len(dets)),
		Boxes:   make([]Box, len(dets)),
	}
	for i, d := range dets {
		out.Scores[i] = d.Score
		out.Classes[i] = d.Class
		out.Boxes[i] = d.Box
	}
	return out
}

// FrameTensor is a decoded video frame: row-major height x width x channel bytes
type FrameTensor struct {
	Pix      []uint8
	Height   int
	Width    int
	Channels int
}

// Shape returns the frame dimensions in row-major order.
func (f FrameTensor) Shape() []int {
	return []int{f.Height, f.Width, f.Channels}
}

// ErrorResult captures the error object returned by an inference engine on failure
type ErrorResult struct {
	Error string `json:"error"`
}
