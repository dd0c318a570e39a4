package delivery

import (
	"context"
	"errors"
	"net"
	"reflect"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/ericnjogu/video-object-detection/internal/message"
	"github.com/ericnjogu/video-object-detection/internal/types"
)

func sampleRequest() *message.DetectionRequest {
	frame := types.FrameTensor{Pix: []uint8{5, 2, 3, 8, 7, 5}, Height: 1, Width: 2, Channels: 3}
	dets := []types.Detection{{Class: 31, Score: 0.85, Box: types.Box{0.1, 0.2, 0.3, 0.4}}}
	meta := message.Meta{
		InstanceName: "testing",
		Source:       "standard input",
		FrameCount:   10,
		ID:           message.MakeID("testing", "standard input", 10),
	}
	return message.Pack(frame, dets, meta, map[int32]string{31: "handbag"})
}

// startHandler serves fn over an in-memory listener and returns a connected client.
func startHandler(t *testing.T, fn HandleFunc) *RPCClient {
	t.Helper()
	return startHandlerWithLimit(t, 0, fn)
}

func startHandlerWithLimit(t *testing.T, maxMsgSize int, fn HandleFunc) *RPCClient {
	t.Helper()
	lis := bufconn.Listen(1 << 20)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, lis, maxMsgSize, fn) }()

	client, err := DialRPC("passthrough:///bufnet", 5*time.Second, 0,
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}))
	if err != nil {
		t.Fatalf("DialRPC failed: %v", err)
	}

	t.Cleanup(func() {
		client.Close()
		cancel()
		if err := <-done; err != nil {
			t.Errorf("Serve returned %v", err)
		}
	})
	return client
}

func TestRPCRoundTrip(t *testing.T) {
	var got *message.DetectionRequest
	client := startHandler(t, func(_ context.Context, req *message.DetectionRequest) (bool, error) {
		got = req
		return true, nil
	})

	want := sampleRequest()
	if err := client.Deliver(context.Background(), want); err != nil {
		t.Fatalf("Deliver failed: %v", err)
	}

	if got == nil {
		t.Fatal("Handler was not called")
	}
	if got.ID != want.ID || got.Source != want.Source || got.FrameCount != want.FrameCount {
		t.Errorf("Scalars changed in transit: got %+v", got)
	}
	if !reflect.DeepEqual(got.DetectionScores, want.DetectionScores) || !reflect.DeepEqual(got.DetectionClasses, want.DetectionClasses) {
		t.Errorf("Detections changed in transit: got %v %v", got.DetectionScores, got.DetectionClasses)
	}
	if !reflect.DeepEqual(got.Frame, want.Frame) || !reflect.DeepEqual(got.DetectionBoxes, want.DetectionBoxes) {
		t.Errorf("Tensors changed in transit")
	}
	if !reflect.DeepEqual(got.CategoryIndex, want.CategoryIndex) {
		t.Errorf("Category index changed in transit: %v", got.CategoryIndex)
	}
}

func hdRequest() *message.DetectionRequest {
	frame := types.FrameTensor{Pix: make([]uint8, 1280*720*3), Height: 720, Width: 1280, Channels: 3}
	dets := []types.Detection{{Class: 1, Score: 0.95, Box: types.Box{0.1, 0.2, 0.3, 0.4}}}
	meta := message.Meta{InstanceName: "testing", Source: "clip.mp4", FrameCount: 0, ID: "hd"}
	return message.Pack(frame, dets, meta, nil)
}

func TestRPCHDFrame(t *testing.T) {
	var frameLen int
	client := startHandler(t, func(_ context.Context, req *message.DetectionRequest) (bool, error) {
		frameLen = len(req.Frame.Numbers)
		return true, nil
	})

	// About 11 MB on the wire, well past gRPC's 4 MiB default
	if err := client.Deliver(context.Background(), hdRequest()); err != nil {
		t.Fatalf("Deliver of a 720p frame failed: %v", err)
	}
	if frameLen != 1280*720*3 {
		t.Errorf("Expected %d frame values, got %d", 1280*720*3, frameLen)
	}
}

func TestRPCMessageLimit(t *testing.T) {
	client := startHandlerWithLimit(t, 1<<20, func(context.Context, *message.DetectionRequest) (bool, error) {
		return true, nil
	})
	err := client.Deliver(context.Background(), hdRequest())
	if status.Code(errors.Unwrap(err)) != codes.ResourceExhausted {
		t.Errorf("Expected ResourceExhausted above the server limit, got %v", err)
	}
}

func TestRPCRejected(t *testing.T) {
	client := startHandler(t, func(context.Context, *message.DetectionRequest) (bool, error) {
		return false, nil
	})
	if err := client.Deliver(context.Background(), sampleRequest()); err == nil {
		t.Error("Expected an error for a false status")
	}
}

func TestRPCHandlerError(t *testing.T) {
	client := startHandler(t, func(context.Context, *message.DetectionRequest) (bool, error) {
		return false, errors.New("disk full")
	})
	if err := client.Deliver(context.Background(), sampleRequest()); err == nil {
		t.Error("Expected handler error to surface to the caller")
	}
}

func TestValidTransport(t *testing.T) {
	for _, name := range []string{TransportGRPC, TransportMQTT} {
		if err := ValidTransport(name); err != nil {
			t.Errorf("ValidTransport(%q) = %v", name, err)
		}
	}
	if err := ValidTransport("carrier-pigeon"); err == nil {
		t.Error("Expected an error for an unknown transport")
	}
}

// --- MQTT fakes ---

type fakeToken struct{ err error }

func (t fakeToken) Wait() bool                     { return true }
func (t fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t fakeToken) Error() error                   { return t.err }
func (t fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 0 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 0 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

// fakeBroker delivers publishes straight to the subscribed callback.
type fakeBroker struct {
	mu           sync.Mutex
	published    [][]byte
	callbacks    map[string]mqtt.MessageHandler
	subscribed   chan struct{}
	publishErr   error
	disconnected bool
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{callbacks: map[string]mqtt.MessageHandler{}, subscribed: make(chan struct{})}
}

func (b *fakeBroker) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	if b.publishErr != nil {
		return fakeToken{err: b.publishErr}
	}
	data := payload.([]byte)
	b.mu.Lock()
	b.published = append(b.published, data)
	cb := b.callbacks[topic]
	b.mu.Unlock()
	if cb != nil {
		cb(nil, fakeMessage{topic: topic, payload: data})
	}
	return fakeToken{}
}

func (b *fakeBroker) Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token {
	b.mu.Lock()
	b.callbacks[topic] = callback
	b.mu.Unlock()
	close(b.subscribed)
	return fakeToken{}
}

func (b *fakeBroker) Unsubscribe(topics ...string) mqtt.Token {
	b.mu.Lock()
	for _, t := range topics {
		delete(b.callbacks, t)
	}
	b.mu.Unlock()
	return fakeToken{}
}

func (b *fakeBroker) Disconnect(uint) {
	b.mu.Lock()
	b.disconnected = true
	b.mu.Unlock()
}

func TestPublishSubscribe(t *testing.T) {
	broker := newFakeBroker()
	const topic = "detections/testing"

	received := make(chan *message.DetectionRequest, 1)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- NewSubscriber(broker, topic, 0).Run(ctx, func(_ context.Context, req *message.DetectionRequest) (bool, error) {
			received <- req
			return true, nil
		})
	}()
	<-broker.subscribed

	want := sampleRequest()
	pub := NewPublisher(broker, topic, 0)
	if err := pub.Deliver(context.Background(), want); err != nil {
		t.Fatalf("Deliver failed: %v", err)
	}

	select {
	case got := <-received:
		if got.ID != want.ID || !reflect.DeepEqual(got.DetectionClasses, want.DetectionClasses) {
			t.Errorf("Subscriber decoded %+v, want id %s", got, want.ID)
		}
	case <-time.After(time.Second):
		t.Fatal("Subscriber never received the request")
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run returned %v", err)
	}
	if len(broker.published) != 1 {
		t.Errorf("Expected one publish, got %d", len(broker.published))
	}
}

func TestSubscriberDropsMalformed(t *testing.T) {
	called := false
	s := NewSubscriber(newFakeBroker(), "t", 0)
	s.handle(context.Background(), []byte{0xFF, 0xFF, 0xFF}, func(context.Context, *message.DetectionRequest) (bool, error) {
		called = true
		return true, nil
	})
	if called {
		t.Error("Handler should not see a malformed payload")
	}
}

func TestPublishError(t *testing.T) {
	broker := newFakeBroker()
	broker.publishErr = errors.New("not connected")

	pub := NewPublisher(broker, "t", 0)
	if err := pub.Deliver(context.Background(), sampleRequest()); err == nil {
		t.Error("Expected publish error to surface")
	}
	pub.Close()
	if !broker.disconnected {
		t.Error("Close should disconnect the client")
	}
}

func TestClientIDUnique(t *testing.T) {
	a, b := ClientID("vodetect"), ClientID("vodetect")
	if a == b {
		t.Errorf("Client ids should differ, both %q", a)
	}
}
