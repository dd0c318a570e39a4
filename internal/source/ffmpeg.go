package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"sync"

	"github.com/ericnjogu/video-object-detection/internal/types"
	"github.com/ericnjogu/video-object-detection/internal/utils"
)

const channels = 3 // rgb24

// Default frame size for sources that cannot be probed (stdin, devices).
const (
	DefaultWidth  = 640
	DefaultHeight = 480
)

// Info is what ffprobe reports about the first video stream.
type Info struct {
	Width  int
	Height int
	Frames int // 0 when unknown
}

// Probe uses ffprobe to read the stream dimensions and frame count.
func Probe(ctx context.Context, path string) (Info, error) {
	if _, err := exec.LookPath("ffprobe"); err != nil {
		return Info{}, fmt.Errorf("ffprobe not found: %w", err)
	}

	// Helper struct for structured JSON parsing
	type ffprobeOutput struct {
		Streams []struct {
			Width    int    `json:"width"`
			Height   int    `json:"height"`
			NbFrames string `json:"nb_frames"`
		} `json:"streams"`
	}

	cmd := utils.NewSafeCommandContext(ctx, "ffprobe", "-v", "error", "-select_streams", "v:0",
		"-show_entries", "stream=width,height,nb_frames", "-of", "json", path)
	out, err := cmd.Output()
	if err != nil {
		return Info{}, fmt.Errorf("ffprobe failed: %w: %s", err, cmd.Logs())
	}

	var res ffprobeOutput
	if err := json.Unmarshal(out, &res); err != nil {
		return Info{}, fmt.Errorf("ffprobe JSON parse error: %w", err)
	}
	if len(res.Streams) == 0 {
		return Info{}, fmt.Errorf("no video stream in %s", path)
	}

	s := res.Streams[0]
	info := Info{Width: s.Width, Height: s.Height}
	// nb_frames is "N/A" for live streams and some containers
	if n, err := strconv.Atoi(s.NbFrames); err == nil && n > 0 {
		info.Frames = n
	}
	return info, nil
}

// FFmpegOpener decodes sources to raw rgb24 frames through an ffmpeg subprocess.
type FFmpegOpener struct {
	Ctx context.Context
	// Width and Height force a scaled output size. Zero means probe the
	// source, falling back to the defaults when it cannot be probed.
	Width  int
	Height int
	// DeviceFormat and DevicePrefix select the capture backend for device
	// indices, e.g. "v4l2" and "/dev/video".
	DeviceFormat string
	DevicePrefix string
}

func (o *FFmpegOpener) context() context.Context {
	if o.Ctx == nil {
		return context.Background()
	}
	return o.Ctx
}

// OpenReader decodes a stream piped into ffmpeg's stdin.
func (o *FFmpegOpener) OpenReader(r io.Reader) (FrameReader, error) {
	w, h := o.size(Info{})
	cmd := newFFmpegCmd(o.context(), []string{"-i", "pipe:0"}, w, h)
	cmd.Stdin = r
	return startReader(o.context(), cmd, w, h, 0)
}

// OpenName decodes a capture device, a file or a stream URL.
func (o *FFmpegOpener) OpenName(name string) (FrameReader, error) {
	if isDeviceIndex(name) {
		format, prefix := o.DeviceFormat, o.DevicePrefix
		if format == "" {
			format = "v4l2"
		}
		if prefix == "" {
			prefix = "/dev/video"
		}
		w, h := o.size(Info{})
		cmd := newFFmpegCmd(o.context(), []string{"-f", format, "-i", prefix + name}, w, h)
		return startReader(o.context(), cmd, w, h, 0)
	}

	info, err := Probe(o.context(), name)
	if err != nil && (o.Width == 0 || o.Height == 0) {
		return nil, fmt.Errorf("cannot determine frame size of %s: %w", name, err)
	}
	w, h := o.size(info)
	cmd := newFFmpegCmd(o.context(), []string{"-i", name}, w, h)
	return startReader(o.context(), cmd, w, h, info.Frames)
}

func (o *FFmpegOpener) size(info Info) (int, int) {
	switch {
	case o.Width > 0 && o.Height > 0:
		return o.Width, o.Height
	case info.Width > 0 && info.Height > 0:
		return info.Width, info.Height
	default:
		return DefaultWidth, DefaultHeight
	}
}

// newFFmpegCmd creates a decoder pipe writing raw rgb24 frames of w x h to stdout.
// -hide_banner and -loglevel error keep the stderr buffer small.
func newFFmpegCmd(ctx context.Context, input []string, w, h int) *utils.SafeCommand {
	args := []string{"-hide_banner", "-loglevel", "error"}
	args = append(args, input...)
	args = append(args,
		"-vf", fmt.Sprintf("scale=%d:%d", w, h),
		"-f", "rawvideo", "-pix_fmt", "rgb24", "-")
	return utils.NewSafeCommandContext(ctx, "ffmpeg", args...)
}

type ffmpegReader struct {
	ctx    context.Context
	cmd    *utils.SafeCommand
	out    io.ReadCloser
	width  int
	height int
	total  int
	eof    bool

	closeOnce sync.Once
	closeErr  error
}

// startReader starts cmd, which must have been created with ctx.
func startReader(ctx context.Context, cmd *utils.SafeCommand, w, h, total int) (FrameReader, error) {
	out, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create ffmpeg stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}
	return &ffmpegReader{ctx: ctx, cmd: cmd, out: out, width: w, height: h, total: total}, nil
}

// ReadFrame reads exactly one frame worth of bytes.
func (r *ffmpegReader) ReadFrame() (types.FrameTensor, error) {
	pix := make([]byte, r.width*r.height*channels)
	if _, err := io.ReadFull(r.out, pix); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			// A trailing partial frame is dropped; surface ffmpeg's own failure if any
			r.eof = true
			if werr := r.Close(); werr != nil {
				return types.FrameTensor{}, werr
			}
			return types.FrameTensor{}, io.EOF
		}
		return types.FrameTensor{}, fmt.Errorf("failed to read frame: %w", err)
	}
	return types.FrameTensor{Pix: pix, Height: r.height, Width: r.width, Channels: channels}, nil
}

// TotalFrames is the probed frame count, 0 when unknown.
func (r *ffmpegReader) TotalFrames() int {
	return r.total
}

// Close stops ffmpeg and reaps the process. It is safe to call more than once.
// The exit status only matters once the stream was read to the end; before
// that the process is killed and its status ignored. When the context
// stopped ffmpeg, the context's error is returned instead.
func (r *ffmpegReader) Close() error {
	r.closeOnce.Do(func() {
		if !r.eof && r.cmd.Process != nil {
			r.cmd.Process.Kill()
		}
		r.out.Close()
		err := r.cmd.Wait()
		switch {
		case err == nil || !r.eof:
		case r.ctx.Err() != nil:
			r.closeErr = r.ctx.Err()
		default:
			r.closeErr = fmt.Errorf("ffmpeg execution failed: %w: %s", err, r.cmd.Logs())
		}
	})
	return r.closeErr
}
