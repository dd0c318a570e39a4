package worker

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"reflect"
	"testing"

	"github.com/ericnjogu/video-object-detection/internal/types"
)

// MockCloser wraps a bytes.Buffer to satisfy io.ReadCloser and io.WriteCloser interfaces.
// This allows us to use in-memory buffers as if they were OS Pipes.
type MockCloser struct {
	*bytes.Buffer
}

func (m *MockCloser) Close() error { return nil }

// writeResponse frames a payload the way the Python side does.
func writeResponse(pipe *MockCloser, payload []byte) {
	binary.Write(pipe, binary.BigEndian, uint32(len(payload)))
	pipe.Write(payload)
}

func TestProcessFrame(t *testing.T) {
	// 1. Setup Mocks
	// stdinMock simulates the pipe TO Python (we write to it)
	stdinMock := &MockCloser{Buffer: new(bytes.Buffer)}

	// dataPipeMock simulates the pipe FROM Python (we read from it)
	dataPipeMock := &MockCloser{Buffer: new(bytes.Buffer)}

	// 2. Pre-fill dataPipeMock with a fake response from "Python"
	payload := new(bytes.Buffer)
	payload.WriteByte(statusOK)
	payload.WriteString(`{"detection_scores": [0.54, 0.1], "detection_classes": [8, 3],
		"detection_boxes": [[0.36190858, 0.11737314, 0.94603133, 0.3205647], [0, 0, 1, 1]]}`)
	writeResponse(dataPipeMock, payload.Bytes())

	// 3. Create Worker with mocks injected
	w := &PythonWorker{
		ID:       1,
		Stdin:    stdinMock,
		DataPipe: dataPipeMock,
		// Cmd is nil because we aren't testing process management, just the protocol
	}

	// 4. Execute the function under test
	frame := types.FrameTensor{Pix: []uint8{0xDE, 0xAD, 0xBE, 0xEF, 0x00, 0x01}, Height: 1, Width: 2, Channels: 3}
	out, err := w.Detect(context.Background(), frame)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}

	// 5. Assertions

	// Verify Go sent the correct data TO Python
	sent := stdinMock.Bytes()
	// Expect 4 bytes length + 12 bytes dimensions + pixels
	if len(sent) != 4+12+len(frame.Pix) {
		t.Fatalf("Expected %d bytes sent, got %d", 4+12+len(frame.Pix), len(sent))
	}
	if got := binary.BigEndian.Uint32(sent[0:4]); got != uint32(12+len(frame.Pix)) {
		t.Errorf("Length prefix = %d, want %d", got, 12+len(frame.Pix))
	}
	if h, wd, c := binary.BigEndian.Uint32(sent[4:8]), binary.BigEndian.Uint32(sent[8:12]), binary.BigEndian.Uint32(sent[12:16]); h != 1 || wd != 2 || c != 3 {
		t.Errorf("Dimensions sent as %dx%dx%d, want 1x2x3", h, wd, c)
	}
	if !bytes.Equal(sent[16:], frame.Pix) {
		t.Errorf("Pixels sent as %X, want %X", sent[16:], frame.Pix)
	}

	// Verify Go read the correct data FROM Python
	want := types.DetectionOutput{
		Scores:  []float32{0.54, 0.1},
		Classes: []int32{8, 3},
		Boxes:   []types.Box{{0.36190858, 0.11737314, 0.94603133, 0.3205647}, {0, 0, 1, 1}},
	}
	if !reflect.DeepEqual(out, want) {
		t.Errorf("Detect() = %+v, want %+v", out, want)
	}
}

func TestProcessFrame_Error(t *testing.T) {
	// 1. Setup Mocks
	stdinMock := &MockCloser{Buffer: new(bytes.Buffer)}
	dataPipeMock := &MockCloser{Buffer: new(bytes.Buffer)}

	// 2. Pre-fill dataPipeMock with an ERROR response from "Python"
	// Protocol: [Status:1] [MsgLen] [Msg]
	payload := new(bytes.Buffer)
	payload.WriteByte(statusError)

	errMsg := "Python Exception: Import Error"
	binary.Write(payload, binary.BigEndian, uint32(len(errMsg)))
	payload.WriteString(errMsg)
	writeResponse(dataPipeMock, payload.Bytes())

	// 3. Create Worker
	w := &PythonWorker{
		ID:       1,
		Stdin:    stdinMock,
		DataPipe: dataPipeMock,
	}

	// 4. Execute
	_, err := w.ProcessFrame(types.FrameTensor{Pix: []uint8{1, 2, 3}, Height: 1, Width: 1, Channels: 3})

	// 5. Assertions
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
	if !errors.Is(err, ErrWorker) {
		t.Errorf("Expected ErrWorker, got %v", err)
	}
	if err.Error() != "python worker error: "+errMsg {
		t.Errorf("Expected error message '%s', got '%v'", "python worker error: "+errMsg, err)
	}
}

func TestProcessFrame_ErrorObject(t *testing.T) {
	stdinMock := &MockCloser{Buffer: new(bytes.Buffer)}
	dataPipeMock := &MockCloser{Buffer: new(bytes.Buffer)}

	writeResponse(dataPipeMock, append([]byte{statusOK}, `{"error": "model not loaded"}`...))

	w := &PythonWorker{ID: 2, Stdin: stdinMock, DataPipe: dataPipeMock}
	_, err := w.ProcessFrame(types.FrameTensor{Pix: []uint8{1, 2, 3}, Height: 1, Width: 1, Channels: 3})
	if !errors.Is(err, ErrWorker) {
		t.Errorf("Expected ErrWorker for error object, got %v", err)
	}
}

func TestProcessFrame_Crash(t *testing.T) {
	// Empty data pipe simulates Python dying before it answers
	w := &PythonWorker{
		ID:       3,
		Stdin:    &MockCloser{Buffer: new(bytes.Buffer)},
		DataPipe: &MockCloser{Buffer: new(bytes.Buffer)},
	}
	if _, err := w.ProcessFrame(types.FrameTensor{Pix: []uint8{1, 2, 3}, Height: 1, Width: 1, Channels: 3}); err == nil {
		t.Fatal("Expected error when worker sends nothing")
	}
}

func TestDetectHonorsCancelledContext(t *testing.T) {
	stdinMock := &MockCloser{Buffer: new(bytes.Buffer)}
	w := &PythonWorker{ID: 4, Stdin: stdinMock, DataPipe: &MockCloser{Buffer: new(bytes.Buffer)}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := w.Detect(ctx, types.FrameTensor{}); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if stdinMock.Len() != 0 {
		t.Error("Nothing should be sent after cancellation")
	}
}

func TestCloseTwice(t *testing.T) {
	// sh -u -c 'exit 3' stands in for an interpreter that fails on startup
	w, err := NewPythonWorker(context.Background(), 5, Config{Python: "sh", Script: "-c", ModelPath: "exit 3"})
	if err != nil {
		t.Fatalf("NewPythonWorker failed: %v", err)
	}

	first := w.Close()
	if first == nil {
		t.Fatal("Expected the exit status from the first Close")
	}
	if second := w.Close(); second != first {
		t.Errorf("Expected the second Close to repeat %v, got %v", first, second)
	}
}
