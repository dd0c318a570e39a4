package delivery

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"google.golang.org/protobuf/proto"

	"github.com/ericnjogu/video-object-detection/internal/message"
	pb "github.com/ericnjogu/video-object-detection/pkg/proto"
)

const (
	connectTimeout = 5 * time.Second
	publishTimeout = 2 * time.Second
)

// publisher is the part of mqtt.Client the Publisher needs.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// subscriber is the part of mqtt.Client the Subscriber needs.
type subscriber interface {
	Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token
	Unsubscribe(topics ...string) mqtt.Token
	Disconnect(quiesce uint)
}

// ClientID builds a unique client id so several detectors can share a broker.
func ClientID(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, uuid.NewString())
}

// ConnectMQTT opens a client to broker (host:port or a full tcp:// URL).
func ConnectMQTT(broker, clientID string) (mqtt.Client, error) {
	if !strings.Contains(broker, "://") {
		broker = "tcp://" + broker
	}
	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(30 * time.Second)

	opts.OnConnect = func(c mqtt.Client) {
		slog.Info("mqtt connection established", "component", "delivery", "broker", broker, "client_id", clientID)
	}
	opts.OnConnectionLost = func(c mqtt.Client, err error) {
		slog.Warn("mqtt connection lost, will auto-reconnect", "component", "delivery", "error", err, "broker", broker)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("mqtt connection to %s timed out", broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connection failed: %w", err)
	}
	return client, nil
}

// Publisher publishes each request as a serialized handle_detection_request.
// No reply is awaited; the token only confirms the message left the client.
type Publisher struct {
	client publisher
	topic  string
	qos    byte
	log    *slog.Logger
}

func NewPublisher(client publisher, topic string, qos byte) *Publisher {
	return &Publisher{
		client: client,
		topic:  topic,
		qos:    qos,
		log:    slog.With("component", "delivery", "transport", TransportMQTT, "topic", topic),
	}
}

func (p *Publisher) Deliver(ctx context.Context, req *message.DetectionRequest) error {
	payload, err := proto.Marshal(req.Proto())
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	token := p.client.Publish(p.topic, p.qos, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish to %s timed out", p.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s failed: %w", p.topic, err)
	}

	p.log.Debug("request published", "id", req.ID, "size", len(payload))
	return nil
}

func (p *Publisher) Close() error {
	p.client.Disconnect(250)
	return nil
}

// Subscriber decodes requests published on a topic and hands them to a HandleFunc.
type Subscriber struct {
	client subscriber
	topic  string
	qos    byte
	log    *slog.Logger
}

func NewSubscriber(client subscriber, topic string, qos byte) *Subscriber {
	return &Subscriber{
		client: client,
		topic:  topic,
		qos:    qos,
		log:    slog.With("component", "delivery", "transport", TransportMQTT, "topic", topic),
	}
}

// Run subscribes and blocks until ctx is done. Malformed payloads are logged and dropped.
func (s *Subscriber) Run(ctx context.Context, fn HandleFunc) error {
	token := s.client.Subscribe(s.topic, s.qos, func(_ mqtt.Client, msg mqtt.Message) {
		s.handle(ctx, msg.Payload(), fn)
	})
	if !token.WaitTimeout(connectTimeout) {
		return fmt.Errorf("subscribe to %s timed out", s.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe to %s failed: %w", s.topic, err)
	}
	s.log.Info("subscribed")

	<-ctx.Done()
	s.client.Unsubscribe(s.topic).WaitTimeout(publishTimeout)
	s.client.Disconnect(250)
	return nil
}

func (s *Subscriber) handle(ctx context.Context, payload []byte, fn HandleFunc) {
	var m pb.HandleDetectionRequest
	if err := proto.Unmarshal(payload, &m); err != nil {
		s.log.Warn("dropping malformed request", "error", err, "size", len(payload))
		return
	}
	req := message.FromProto(&m)
	if _, err := fn(ctx, req); err != nil {
		s.log.Error("handler failed", "id", req.ID, "error", err)
	}
}
