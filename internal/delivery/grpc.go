package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/ericnjogu/video-object-detection/internal/message"
	pb "github.com/ericnjogu/video-object-detection/pkg/proto"
)

const (
	// DefaultRPCTimeout bounds a single handle_detection call.
	DefaultRPCTimeout = 10 * time.Second

	// DefaultMaxMessageSize fits a 1920x1080 rgb frame, which travels as
	// float32 (about 25 MB), plus the detections.
	DefaultMaxMessageSize = 32 << 20
)

// RPCClient calls handle_detection and waits for the status reply.
type RPCClient struct {
	conn    *grpc.ClientConn
	client  pb.DetectionHandlerClient
	timeout time.Duration
	log     *slog.Logger
}

// DialRPC connects to a handler at addr (host:port). maxMsgSize caps the
// request size; zero selects DefaultMaxMessageSize. extra options are
// appended, which tests use to swap the dialer.
func DialRPC(addr string, timeout time.Duration, maxMsgSize int, extra ...grpc.DialOption) (*RPCClient, error) {
	if timeout <= 0 {
		timeout = DefaultRPCTimeout
	}
	if maxMsgSize <= 0 {
		maxMsgSize = DefaultMaxMessageSize
	}
	opts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.MaxCallSendMsgSize(maxMsgSize)),
	}, extra...)

	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create grpc client for %s: %w", addr, err)
	}
	return &RPCClient{
		conn:    conn,
		client:  pb.NewDetectionHandlerClient(conn),
		timeout: timeout,
		log:     slog.With("component", "delivery", "transport", TransportGRPC, "target", addr),
	}, nil
}

// Deliver blocks until the handler answers or the timeout expires.
// A false status is reported as an error.
func (c *RPCClient) Deliver(ctx context.Context, req *message.DetectionRequest) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.HandleDetection(ctx, req.Proto())
	if err != nil {
		return fmt.Errorf("handle_detection failed: %w", err)
	}
	c.log.Debug("handler replied", "id", req.ID, "status", resp.GetStatus())
	if !resp.GetStatus() {
		return fmt.Errorf("handler rejected request %s", req.ID)
	}
	return nil
}

func (c *RPCClient) Close() error {
	return c.conn.Close()
}

// handlerServer adapts a HandleFunc to the generated service interface.
type handlerServer struct {
	pb.UnimplementedDetectionHandlerServer
	fn HandleFunc
}

func (h handlerServer) HandleDetection(ctx context.Context, in *pb.HandleDetectionRequest) (*pb.HandleDetectionResponse, error) {
	ok, err := h.fn(ctx, message.FromProto(in))
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return &pb.HandleDetectionResponse{Status: ok}, nil
}

// NewServer returns a gRPC server accepting requests up to maxMsgSize bytes;
// zero selects DefaultMaxMessageSize.
func NewServer(maxMsgSize int, opts ...grpc.ServerOption) *grpc.Server {
	if maxMsgSize <= 0 {
		maxMsgSize = DefaultMaxMessageSize
	}
	return grpc.NewServer(append([]grpc.ServerOption{grpc.MaxRecvMsgSize(maxMsgSize)}, opts...)...)
}

// RegisterHandler exposes fn as the DetectionHandler service on s.
func RegisterHandler(s *grpc.Server, fn HandleFunc) {
	pb.RegisterDetectionHandlerServer(s, handlerServer{fn: fn})
}

// Serve runs the handler service on lis until ctx is done.
func Serve(ctx context.Context, lis net.Listener, maxMsgSize int, fn HandleFunc) error {
	s := NewServer(maxMsgSize)
	RegisterHandler(s, fn)

	go func() {
		<-ctx.Done()
		s.GracefulStop()
	}()

	slog.Info("detection handler listening", "component", "delivery", "addr", lis.Addr().String())
	if err := s.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}
