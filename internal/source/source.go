// Package source resolves a source descriptor to a stream of decoded frames.
//
// A descriptor is one of:
//
//	"-"            standard input
//	"2"            capture device index
//	"/path/x.mp4"  an existing file
//	"rtsp://..."   a network stream URL
//
// Anything else is unresolved and reported as a configuration error.
package source

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/ericnjogu/video-object-detection/internal/types"
)

// ErrUnresolved is returned for a descriptor that matches no source kind.
var ErrUnresolved = errors.New("unresolved source")

// Kind tags how a descriptor was interpreted.
type Kind int

const (
	Stdin Kind = iota + 1
	Device
	Path
	Stream
)

func (k Kind) String() string {
	switch k {
	case Stdin:
		return "stdin"
	case Device:
		return "device"
	case Path:
		return "path"
	case Stream:
		return "stream"
	default:
		return "unknown"
	}
}

// streamSchemes are the URL schemes accepted for network sources.
var streamSchemes = map[string]bool{
	"rtsp": true, "rtsps": true, "rtmp": true, "http": true, "https": true,
	"udp": true, "tcp": true, "srt": true,
}

// Source is a classified descriptor.
type Source struct {
	Kind       Kind
	Descriptor string
}

// FrameReader yields decoded frames in stream order.
type FrameReader interface {
	// ReadFrame returns the next frame, or io.EOF when the source is exhausted.
	ReadFrame() (types.FrameTensor, error)
	Close() error
}

// Opener turns a resolved source into a frame reader.
type Opener interface {
	// OpenReader opens a stream already held by the process (standard input).
	OpenReader(r io.Reader) (FrameReader, error)
	// OpenName opens a device index, file path or URL given as a string.
	OpenName(name string) (FrameReader, error)
}

// isDeviceIndex reports whether s is a non-empty string of decimal digits.
func isDeviceIndex(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func isStreamURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return false
	}
	return streamSchemes[strings.ToLower(u.Scheme)]
}

// Classify interprets a descriptor. Checks run in order: hyphen, device
// index, existing path, stream URL. The first match wins.
func Classify(descriptor string) (Source, error) {
	switch {
	case descriptor == "-":
		return Source{Kind: Stdin, Descriptor: descriptor}, nil
	case isDeviceIndex(descriptor):
		return Source{Kind: Device, Descriptor: descriptor}, nil
	}
	if _, err := os.Stat(descriptor); err == nil {
		return Source{Kind: Path, Descriptor: descriptor}, nil
	}
	if isStreamURL(descriptor) {
		return Source{Kind: Stream, Descriptor: descriptor}, nil
	}
	return Source{}, fmt.Errorf("%w: %q is not '-', a device number, an existing path or a stream URL", ErrUnresolved, descriptor)
}

// Resolve classifies the descriptor and opens it. Standard input is handed to
// the opener as a stream; every other kind as its literal string.
func Resolve(descriptor string, stdin io.Reader, opener Opener) (FrameReader, error) {
	src, err := Classify(descriptor)
	if err != nil {
		return nil, err
	}
	if src.Kind == Stdin {
		return opener.OpenReader(stdin)
	}
	return opener.OpenName(src.Descriptor)
}

// Describe returns a human readable name for a descriptor. It does not touch
// the filesystem, so remote URLs are echoed back unchanged.
func Describe(descriptor string) string {
	switch {
	case descriptor == "-":
		return "standard input"
	case isDeviceIndex(descriptor):
		return "device " + descriptor
	default:
		return descriptor
	}
}

// DeviceIndex parses a device descriptor.
func DeviceIndex(descriptor string) (int, error) {
	if !isDeviceIndex(descriptor) {
		return 0, fmt.Errorf("%q is not a device number", descriptor)
	}
	return strconv.Atoi(descriptor)
}
