package message

import (
	"reflect"
	"testing"

	"google.golang.org/protobuf/proto"

	"github.com/ericnjogu/video-object-detection/internal/types"
	pb "github.com/ericnjogu/video-object-detection/pkg/proto"
)

func TestMakeID(t *testing.T) {
	id := MakeID("localhost", "webcam", 958)
	if len(id) != 64 {
		t.Errorf("Expected a 64 character sha256 hex digest, got %q", id)
	}

	// Verify Determinism
	if id2 := MakeID("localhost", "webcam", 958); id != id2 {
		t.Errorf("Hash is not deterministic. Got %s, then %s", id, id2)
	}

	// Verify Sensitivity (Change any part -> Change ID)
	variants := [][]any{
		{"otherhost", "webcam", 958},
		{"localhost", "device 0", 958},
		{"localhost", "webcam", 959},
		{"localhost", "webcam", 958, 1700000000.5},
	}
	for _, v := range variants {
		if MakeID(v...) == id {
			t.Errorf("MakeID(%v) collided with the base id", v)
		}
	}
}

func samplePack() (*DetectionRequest, types.FrameTensor, []types.Detection) {
	frame := types.FrameTensor{
		Pix:      []uint8{5, 2, 3, 8, 7, 5, 59, 64, 64},
		Height:   1,
		Width:    3,
		Channels: 3,
	}
	dets := []types.Detection{
		{Class: 8, Score: 0.54, Box: types.Box{0.36190858, 0.11737314, 0.94603133, 0.3205647}},
		{Class: 3, Score: 0.91, Box: types.Box{0.1, 0.2, 0.3, 0.4}},
	}
	index := map[int32]string{8: "elephant", 1: "person", 3: "car"}
	meta := Meta{
		InstanceName:   "testing",
		Source:         "steam",
		FrameCount:     1619,
		StartTimestamp: 1700000000.25,
		ID:             MakeID("testing", "steam", 1619),
	}
	return Pack(frame, dets, meta, index), frame, dets
}

func TestPack(t *testing.T) {
	req, frame, dets := samplePack()

	if req.InstanceName != "testing" || req.Source != "steam" || req.FrameCount != 1619 || req.StartTimestamp != 1700000000.25 {
		t.Errorf("Scalar fields not copied verbatim: %+v", req)
	}
	if req.ID == "" || req.StringMap["id"] != req.ID {
		t.Errorf("Expected id in both id field and string map, got %q / %q", req.ID, req.StringMap["id"])
	}
	if !reflect.DeepEqual(req.DetectionClasses, []int32{8, 3}) {
		t.Errorf("Unexpected classes %v", req.DetectionClasses)
	}
	if !reflect.DeepEqual(req.CategoryIndex, map[int32]string{8: "elephant", 3: "car"}) {
		t.Errorf("Category index should only hold detected classes, got %v", req.CategoryIndex)
	}
	if !reflect.DeepEqual(req.DetectionBoxes.Shape, []int32{2, 4}) {
		t.Errorf("Expected box shape [2 4], got %v", req.DetectionBoxes.Shape)
	}
	if !reflect.DeepEqual(req.Frame.Shape, []int32{1, 3, 3}) {
		t.Errorf("Expected frame shape [1 3 3], got %v", req.Frame.Shape)
	}
	if req.FloatMap["frame_height"] != 1 || req.FloatMap["frame_width"] != 3 {
		t.Errorf("Unexpected float map %v", req.FloatMap)
	}

	// Reshape the wire tensors back into the originals
	ft, err := req.Frame.Tensor()
	if err != nil {
		t.Fatal(err)
	}
	back, err := ft.Frame()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(back, frame) {
		t.Errorf("Frame round trip mismatch: %+v", back)
	}
	gotDets, err := req.Detections()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(gotDets, dets) {
		t.Errorf("Detections round trip mismatch: %+v", gotDets)
	}
}

func TestProtoRoundTrip(t *testing.T) {
	req, _, _ := samplePack()
	req.StringMap["color"] = "blue"
	req.FloatMap["weight"] = 56.9

	data, err := proto.Marshal(req.Proto())
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var m pb.HandleDetectionRequest
	if err := proto.Unmarshal(data, &m); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	got := FromProto(&m)
	if !reflect.DeepEqual(got, req) {
		t.Errorf("Wire round trip mismatch.\n got: %+v\nwant: %+v", *got, *req)
	}
}

func TestFromProtoEmpty(t *testing.T) {
	got := FromProto(&pb.HandleDetectionRequest{Id: "abc"})
	if got.ID != "abc" {
		t.Errorf("Expected id abc, got %q", got.ID)
	}
	if got.CategoryIndex != nil || got.StringMap != nil || got.FloatMap != nil {
		t.Errorf("Expected nil maps for an empty message, got %+v", got)
	}
	if got.Frame.Numbers != nil || got.DetectionBoxes.Shape != nil {
		t.Errorf("Expected empty tensors for missing arrays, got %+v", got)
	}
}

func TestProtoFieldNumbers(t *testing.T) {
	// Handlers written against detection_handler.proto decode by field number
	data, err := proto.Marshal(&pb.HandleDetectionRequest{FrameCount: 7, Id: "x"})
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{4 << 3, 7, 12<<3 | 2, 1, 'x'}
	if !reflect.DeepEqual(data, want) {
		t.Errorf("Unexpected wire bytes %x, want %x", data, want)
	}
}
