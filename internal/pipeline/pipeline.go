// Package pipeline drives the sequential detect loop: read a frame, gate it
// with the sampler, run inference, filter, package and deliver.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/ericnjogu/video-object-detection/internal/delivery"
	"github.com/ericnjogu/video-object-detection/internal/detection"
	"github.com/ericnjogu/video-object-detection/internal/inference"
	"github.com/ericnjogu/video-object-detection/internal/message"
	"github.com/ericnjogu/video-object-detection/internal/metrics"
	"github.com/ericnjogu/video-object-detection/internal/source"
	"github.com/ericnjogu/video-object-detection/internal/types"
)

// ShouldProcess reports whether the frame at index passes a sampler running
// at rate. The index counts every frame read, processed or not.
func ShouldProcess(index, rate int) bool {
	if rate < 1 {
		rate = 1
	}
	return index%rate == 0
}

// Params is the run's fixed input. It is not modified by Run.
type Params struct {
	Cutoff          float32
	SampleRate      int
	Classes         map[int32]bool // nil keeps every class
	InstanceName    string
	Source          string
	StartTimestamp  float64
	IDWithTimestamp bool
	CategoryIndex   map[int32]string

	// Progress receives a progress bar; nil disables it.
	Progress io.Writer
}

// Result summarises a run.
type Result struct {
	Frames      int // frames read
	Processed   int // frames sent to inference
	Predictions int // frames delivered with detections
}

// framer is implemented by readers that know their length up front.
type framer interface {
	TotalFrames() int
}

// RequestID identifies the detection event for frame index.
func (p Params) RequestID(index int) string {
	if p.IDWithTimestamp {
		return message.MakeID(p.InstanceName, p.Source, index, p.StartTimestamp)
	}
	return message.MakeID(p.InstanceName, p.Source, index)
}

// Run reads reader to the end, or until ctx is done, and closes it on every
// exit path. Inference and delivery errors stop the run.
func Run(ctx context.Context, p Params, reader source.FrameReader, engine inference.Engine, out delivery.Deliverer, m *metrics.Metrics) (res Result, err error) {
	defer func() {
		if cerr := reader.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close source: %w", cerr)
		}
	}()

	log := slog.With("component", "pipeline", "source", p.Source)
	bar := newBar(p.Progress, reader)

	for index := 0; ; index++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		frame, err := reader.ReadFrame()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return res, fmt.Errorf("failed to read frame %d: %w", index, err)
		}
		res.Frames++
		m.FrameRead()
		if bar != nil {
			bar.Add(1)
		}

		if !ShouldProcess(index, p.SampleRate) {
			continue
		}

		delivered, err := processFrame(ctx, p, index, frame, engine, out, m, log)
		if err != nil {
			return res, err
		}
		res.Processed++
		if delivered {
			res.Predictions++
		}
	}

	if bar != nil {
		bar.Finish()
	}
	log.Info(fmt.Sprintf("predictions/total frames: %d/%d", res.Predictions, res.Frames),
		"processed", res.Processed)
	return res, nil
}

// processFrame runs one sampled frame through inference and, when anything
// survives filtering, delivers it. It reports whether a request was sent.
func processFrame(ctx context.Context, p Params, index int, frame types.FrameTensor,
	engine inference.Engine, out delivery.Deliverer, m *metrics.Metrics, log *slog.Logger) (bool, error) {

	start := time.Now()
	raw, err := engine.Detect(ctx, frame)
	m.ObserveInference(time.Since(start))
	m.FrameProcessed()
	if err != nil {
		m.InferenceFailed()
		return false, fmt.Errorf("inference failed on frame %d: %w", index, err)
	}

	dets, ok := raw.Detections()
	if !ok {
		m.InferenceFailed()
		return false, fmt.Errorf("frame %d: %w: %d scores, %d classes, %d boxes",
			index, detection.ErrMisaligned, len(raw.Scores), len(raw.Classes), len(raw.Boxes))
	}
	dets = detection.Filter(dets, p.Cutoff)
	if p.Classes != nil {
		dets = detection.FilterClasses(dets, p.Classes)
	}
	if len(dets) == 0 {
		log.Debug("no score was above cut-off, skipping", "frame", index)
		return false, nil
	}

	req := message.Pack(frame, dets, message.Meta{
		InstanceName:   p.InstanceName,
		Source:         p.Source,
		FrameCount:     int64(index),
		StartTimestamp: p.StartTimestamp,
		ID:             p.RequestID(index),
	}, p.CategoryIndex)

	if err := out.Deliver(ctx, req); err != nil {
		m.DeliveryFailed()
		return false, fmt.Errorf("delivery failed on frame %d: %w", index, err)
	}
	m.Delivered(len(dets))
	log.Debug("delivered detections", "frame", index, "count", len(dets), "id", req.ID)
	return true, nil
}

func newBar(w io.Writer, reader source.FrameReader) *progressbar.ProgressBar {
	if w == nil {
		return nil
	}
	total := -1 // spinner
	if f, ok := reader.(framer); ok && f.TotalFrames() > 0 {
		total = f.TotalFrames()
	}
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription("🔍 Detecting"),
		progressbar.OptionSetWriter(w),
		progressbar.OptionShowCount(),
	)
}
