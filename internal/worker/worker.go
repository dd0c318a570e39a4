// Package worker runs object detection in a Python subprocess.
//
// Frames go to the worker on stdin and results come back on a side-channel
// pipe (FD 3), so anything the model libraries print never corrupts the data.
//
// Request:  [len uint32][height uint32][width uint32][channels uint32][pixels]
// Response: [len uint32][status byte][body]
//
// status 0: body is a JSON object with detection_scores, detection_classes, detection_boxes
// status 1: body is [msglen uint32][message]
//
// All integers are big endian.
package worker

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/ericnjogu/video-object-detection/internal/types"
	"github.com/ericnjogu/video-object-detection/internal/utils" // Using the SafeCommand wrapper
)

// ErrWorker wraps errors reported by the Python side.
var ErrWorker = errors.New("python worker error")

const (
	statusOK    = 0
	statusError = 1
)

// Config selects the worker script and model.
type Config struct {
	Python      string // interpreter, default python3
	Script      string
	ModelPath   string
	ReadTimeout time.Duration
}

type PythonWorker struct {
	ID          int
	Cmd         *utils.SafeCommand
	Stdin       io.WriteCloser
	DataPipe    io.ReadCloser
	ReadTimeout time.Duration

	closeOnce sync.Once
	closeErr  error
}

func NewPythonWorker(ctx context.Context, id int, cfg Config) (*PythonWorker, error) {
	python := cfg.Python
	if python == "" {
		python = "python3"
	}

	// 1. Initialize the SafeCommand
	py := utils.NewSafeCommandContext(ctx, python, "-u", cfg.Script, cfg.ModelPath)

	// Create a side-channel pipe (FD 3) for clean data transfer
	r, w, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create pipe: %w", err)
	}
	// Pass the write-end to the child process. It will appear as FD 3.
	py.Cmd.ExtraFiles = []*os.File{w}

	stdin, err := py.StdinPipe()
	if err != nil {
		w.Close() // Prevent FD leak
		r.Close() // Close read-end too!
		return nil, fmt.Errorf("failed to create stdin pipe: %w", err)
	}

	if err := py.Start(); err != nil {
		w.Close() // Close write end if start fails
		r.Close() // Close read-end too!
		return nil, fmt.Errorf("worker %d failed to start: %w", id, err)
	}

	// Close the write-end in the parent so only the child holds it
	w.Close()

	return &PythonWorker{
		ID:          id,
		Cmd:         py,
		Stdin:       stdin,
		DataPipe:    r,
		ReadTimeout: cfg.ReadTimeout,
	}, nil
}

// Communicate sends one length-prefixed message and reads one back.
func (w *PythonWorker) Communicate(data []byte) ([]byte, error) {
	// Protocol: [Length][Data]
	if err := binary.Write(w.Stdin, binary.BigEndian, uint32(len(data))); err != nil {
		return nil, err
	}
	if _, err := w.Stdin.Write(data); err != nil {
		return nil, err
	}

	// Pipes from os.Pipe support deadlines; test mocks do not
	if d, ok := w.DataPipe.(interface{ SetReadDeadline(time.Time) error }); ok && w.ReadTimeout > 0 {
		d.SetReadDeadline(time.Now().Add(w.ReadTimeout))
	}

	// Read Result
	header := make([]byte, 4)
	if _, err := io.ReadFull(w.DataPipe, header); err != nil {
		return nil, err // This is where we catch an interpreter crash on import
	}

	respLen := binary.BigEndian.Uint32(header)
	respBody := make([]byte, respLen)
	_, err := io.ReadFull(w.DataPipe, respBody)
	return respBody, err
}

// ProcessFrame runs detection on one frame.
func (w *PythonWorker) ProcessFrame(frame types.FrameTensor) (types.DetectionOutput, error) {
	payload := make([]byte, 12, 12+len(frame.Pix))
	binary.BigEndian.PutUint32(payload[0:], uint32(frame.Height))
	binary.BigEndian.PutUint32(payload[4:], uint32(frame.Width))
	binary.BigEndian.PutUint32(payload[8:], uint32(frame.Channels))
	payload = append(payload, frame.Pix...)

	resp, err := w.Communicate(payload)
	if err != nil {
		return types.DetectionOutput{}, err
	}
	if len(resp) == 0 {
		return types.DetectionOutput{}, fmt.Errorf("empty response from worker %d", w.ID)
	}

	switch resp[0] {
	case statusOK:
		// The body is either detections or a Python error object ({"error": "..."})
		var out struct {
			types.DetectionOutput
			types.ErrorResult
		}
		if err := json.Unmarshal(resp[1:], &out); err != nil {
			return types.DetectionOutput{}, fmt.Errorf("worker %d JSON malformed: %w", w.ID, err)
		}
		if out.Error != "" {
			return types.DetectionOutput{}, fmt.Errorf("%w: %s", ErrWorker, out.Error)
		}
		return out.DetectionOutput, nil
	case statusError:
		if len(resp) < 5 {
			return types.DetectionOutput{}, fmt.Errorf("%w: truncated error message", ErrWorker)
		}
		msgLen := binary.BigEndian.Uint32(resp[1:5])
		if int(msgLen) > len(resp)-5 {
			return types.DetectionOutput{}, fmt.Errorf("%w: truncated error message", ErrWorker)
		}
		return types.DetectionOutput{}, fmt.Errorf("%w: %s", ErrWorker, resp[5:5+msgLen])
	default:
		return types.DetectionOutput{}, fmt.Errorf("worker %d sent unknown status %d", w.ID, resp[0])
	}
}

// Detect implements inference.Engine. The worker handles one frame at a time.
func (w *PythonWorker) Detect(ctx context.Context, frame types.FrameTensor) (types.DetectionOutput, error) {
	if err := ctx.Err(); err != nil {
		return types.DetectionOutput{}, err
	}
	return w.ProcessFrame(frame)
}

// Close ends the worker. Closing stdin tells Python to exit.
// It is safe to call more than once; later calls return the first result.
func (w *PythonWorker) Close() error {
	w.closeOnce.Do(func() {
		w.Stdin.Close()
		w.DataPipe.Close()
		if w.Cmd == nil {
			return
		}
		if err := w.Cmd.Wait(); err != nil {
			w.closeErr = fmt.Errorf("worker %d exited: %w", w.ID, err)
		}
	})
	return w.closeErr
}
