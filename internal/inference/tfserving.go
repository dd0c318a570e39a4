package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ericnjogu/video-object-detection/internal/types"
)

// DefaultPredictTimeout is the budget for a single predict call.
const DefaultPredictTimeout = 10 * time.Second

// TFServing calls the TensorFlow Serving REST predict API of an object
// detection model exported with the standard detection signature.
type TFServing struct {
	BaseURL string // e.g. http://localhost:8501
	Model   string
	Timeout time.Duration
	Client  *http.Client
}

// NewTFServing returns an engine for model served at baseURL.
func NewTFServing(baseURL, model string, timeout time.Duration) (*TFServing, error) {
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid tensorflow serving url: %w", err)
	}
	if model == "" {
		return nil, fmt.Errorf("model name is required")
	}
	if timeout <= 0 {
		timeout = DefaultPredictTimeout
	}
	return &TFServing{BaseURL: baseURL, Model: model, Timeout: timeout, Client: http.DefaultClient}, nil
}

type predictRequest struct {
	Instances [][][][]int `json:"instances"`
}

type predictResponse struct {
	Predictions []struct {
		Scores  []float32   `json:"detection_scores"`
		Classes []float32   `json:"detection_classes"`
		Boxes   []types.Box `json:"detection_boxes"`
		Count   *float32    `json:"num_detections"`
	} `json:"predictions"`
	Error string `json:"error"`
}

// Detect sends the frame as a batch of one image and returns the first prediction.
func (s *TFServing) Detect(ctx context.Context, frame types.FrameTensor) (types.DetectionOutput, error) {
	body, err := json.Marshal(predictRequest{Instances: [][][][]int{nestFrame(frame)}})
	if err != nil {
		return types.DetectionOutput{}, fmt.Errorf("failed to encode predict request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/v1/models/%s:predict", s.BaseURL, url.PathEscape(s.Model))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return types.DetectionOutput{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return types.DetectionOutput{}, fmt.Errorf("predict request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return types.DetectionOutput{}, fmt.Errorf("failed to read predict response: %w", err)
	}

	var pr predictResponse
	if err := json.Unmarshal(data, &pr); err != nil {
		return types.DetectionOutput{}, fmt.Errorf("malformed predict response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK || pr.Error != "" {
		return types.DetectionOutput{}, fmt.Errorf("tensorflow serving error (status %d): %s", resp.StatusCode, pr.Error)
	}
	if len(pr.Predictions) == 0 {
		return types.DetectionOutput{}, fmt.Errorf("tensorflow serving returned no predictions")
	}

	p := pr.Predictions[0]
	// Outputs are padded to a fixed size; num_detections, when present, says
	// how many are real, and zero means none
	n := len(p.Scores)
	if p.Count != nil {
		n = min(max(int(*p.Count), 0), n)
	}
	if len(p.Classes) < n || len(p.Boxes) < n {
		return types.DetectionOutput{}, fmt.Errorf("tensorflow serving returned %d scores, %d classes, %d boxes",
			len(p.Scores), len(p.Classes), len(p.Boxes))
	}

	out := types.DetectionOutput{
		Scores:  p.Scores[:n],
		Classes: make([]int32, n),
		Boxes:   p.Boxes[:n],
	}
	// Class ids come back as floats
	for i := 0; i < n; i++ {
		out.Classes[i] = int32(p.Classes[i])
	}
	return out, nil
}

// Close is a no-op; the HTTP client holds no per-engine resources.
func (s *TFServing) Close() error {
	return nil
}

// nestFrame reshapes the flat pixel buffer into height x width x channel.
// Pixels are widened to int so they encode as JSON numbers, not base64.
func nestFrame(f types.FrameTensor) [][][]int {
	rows := make([][][]int, f.Height)
	for y := range rows {
		rows[y] = make([][]int, f.Width)
		for x := range rows[y] {
			off := (y*f.Width + x) * f.Channels
			px := make([]int, f.Channels)
			for c := range px {
				px[c] = int(f.Pix[off+c])
			}
			rows[y][x] = px
		}
	}
	return rows
}
