// Package delivery sends detection requests to a downstream handler.
//
// Two modes exist: a blocking gRPC call that waits for the handler's status,
// and a fire-and-forget MQTT publish. Neither retries.
package delivery

import (
	"context"
	"fmt"

	"github.com/ericnjogu/video-object-detection/internal/message"
)

// Deliverer sends one request per call.
type Deliverer interface {
	Deliver(ctx context.Context, req *message.DetectionRequest) error
	Close() error
}

// HandleFunc processes a received request and reports whether it was accepted.
type HandleFunc func(ctx context.Context, req *message.DetectionRequest) (bool, error)

const (
	TransportGRPC = "grpc"
	TransportMQTT = "mqtt"
)

// ValidTransport reports whether name is a known delivery mode.
func ValidTransport(name string) error {
	switch name {
	case TransportGRPC, TransportMQTT:
		return nil
	}
	return fmt.Errorf("unknown transport %q (want %s or %s)", name, TransportGRPC, TransportMQTT)
}
