package inference

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/ericnjogu/video-object-detection/internal/types"
)

func TestTFServingDetect(t *testing.T) {
	var gotPath string
	var gotInstances [][][][]int

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		var req struct {
			Instances [][][][]int `json:"instances"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error": "bad json"}`, http.StatusBadRequest)
			return
		}
		gotInstances = req.Instances

		// Padded output: three slots, two real detections
		w.Write([]byte(`{"predictions": [{
			"detection_scores": [0.95, 0.4, 0.0],
			"detection_classes": [1.0, 18.0, 0.0],
			"detection_boxes": [[0.1, 0.2, 0.3, 0.4], [0.5, 0.6, 0.7, 0.8], [0, 0, 0, 0]],
			"num_detections": 2.0
		}]}`))
	}))
	defer srv.Close()

	engine, err := NewTFServing(srv.URL, "ssd_mobilenet", 0)
	if err != nil {
		t.Fatal(err)
	}
	defer engine.Close()

	frame := types.FrameTensor{Pix: []uint8{1, 2, 3, 4, 5, 6}, Height: 1, Width: 2, Channels: 3}
	out, err := engine.Detect(context.Background(), frame)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}

	if gotPath != "/v1/models/ssd_mobilenet:predict" {
		t.Errorf("Unexpected predict path %q", gotPath)
	}
	wantInstances := [][][][]int{{{{1, 2, 3}, {4, 5, 6}}}}
	if !reflect.DeepEqual(gotInstances, wantInstances) {
		t.Errorf("Frame sent as %v, want %v", gotInstances, wantInstances)
	}

	want := types.DetectionOutput{
		Scores:  []float32{0.95, 0.4},
		Classes: []int32{1, 18},
		Boxes:   []types.Box{{0.1, 0.2, 0.3, 0.4}, {0.5, 0.6, 0.7, 0.8}},
	}
	if !reflect.DeepEqual(out, want) {
		t.Errorf("Detect() = %+v, want %+v", out, want)
	}
}

func TestTFServingNoDetections(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{
			name: "zero num_detections drops padding",
			body: `{"predictions": [{
				"detection_scores": [0.0, 0.0, 0.0],
				"detection_classes": [0.0, 0.0, 0.0],
				"detection_boxes": [[0, 0, 0, 0], [0, 0, 0, 0], [0, 0, 0, 0]],
				"num_detections": 0.0
			}]}`,
			want: 0,
		},
		{
			name: "missing num_detections keeps every slot",
			body: `{"predictions": [{
				"detection_scores": [0.9, 0.8],
				"detection_classes": [1.0, 2.0],
				"detection_boxes": [[0, 0, 1, 1], [0, 0, 1, 1]]
			}]}`,
			want: 2,
		},
		{
			name: "count above slots is clamped",
			body: `{"predictions": [{
				"detection_scores": [0.9],
				"detection_classes": [1.0],
				"detection_boxes": [[0, 0, 1, 1]],
				"num_detections": 100.0
			}]}`,
			want: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			engine, err := NewTFServing(srv.URL, "ssd_mobilenet", 0)
			if err != nil {
				t.Fatal(err)
			}
			frame := types.FrameTensor{Pix: []uint8{1, 2, 3}, Height: 1, Width: 1, Channels: 3}
			out, err := engine.Detect(context.Background(), frame)
			if err != nil {
				t.Fatalf("Detect failed: %v", err)
			}
			if out.Len() != tt.want {
				t.Errorf("Expected %d detections, got %d: %+v", tt.want, out.Len(), out)
			}
		})
	}
}

func TestTFServingError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error": "Servable not found for request: Latest(missing)"}`))
	}))
	defer srv.Close()

	engine, _ := NewTFServing(srv.URL, "missing", 0)
	frame := types.FrameTensor{Pix: []uint8{0, 0, 0}, Height: 1, Width: 1, Channels: 3}
	if _, err := engine.Detect(context.Background(), frame); err == nil {
		t.Fatal("Expected error, got nil")
	}
}

func TestNewTFServingRequiresModel(t *testing.T) {
	if _, err := NewTFServing("http://localhost:8501", "", 0); err == nil {
		t.Error("Expected error for empty model name")
	}
}
