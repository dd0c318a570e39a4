package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"

	"github.com/spf13/cobra"

	"github.com/ericnjogu/video-object-detection/internal/config"
	"github.com/ericnjogu/video-object-detection/internal/delivery"
	"github.com/ericnjogu/video-object-detection/internal/message"
	"github.com/ericnjogu/video-object-detection/internal/metrics"
	"github.com/ericnjogu/video-object-detection/internal/store"
)

var handlerOpts struct {
	transport    string
	port         int
	broker       string
	topic        string
	persist      bool
	withFrame    bool
	metricsAddr  string
	maxMessageMB int
}

var handlerCmd = &cobra.Command{
	Use:   "handler",
	Short: "Run a sample detection handler that prints every request to stdout",
	Long: `Serves the DetectionHandler gRPC service (or subscribes to an MQTT topic) and
prints each received request as one JSON line. With --persist, requests are also
stored in PostgreSQL, deduplicated by request id.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runHandler(cmd.Context(), cmd.OutOrStdout())
	},
}

func init() {
	f := handlerCmd.Flags()
	f.StringVar(&handlerOpts.transport, "transport", config.DefaultTransport, "Receive over grpc or mqtt")
	f.IntVar(&handlerOpts.port, "port", config.DefaultHandlerPort, "gRPC port to listen on")
	f.StringVar(&handlerOpts.broker, "broker", "", "MQTT broker address, required for --transport mqtt")
	f.StringVar(&handlerOpts.topic, "topic", config.DefaultTopicPrefix+"/#", "MQTT topic filter")
	f.BoolVar(&handlerOpts.persist, "persist", false, "Store received requests in PostgreSQL")
	f.BoolVar(&handlerOpts.withFrame, "with_frame", false, "Include the frame pixels in the printed JSON")
	f.StringVar(&handlerOpts.metricsAddr, "metrics_addr", "", "Serve Prometheus metrics on this address, e.g. :9101")
	f.IntVar(&handlerOpts.maxMessageMB, "max_message_mb", config.DefaultMaxMessageMB, "Largest accepted gRPC request in MiB")
	rootCmd.AddCommand(handlerCmd)
}

// printer writes one JSON line per request. gRPC calls arrive concurrently
// and a pgx connection is not safe for concurrent use, so requests are
// handled one at a time.
type printer struct {
	mu        sync.Mutex
	enc       *json.Encoder
	withFrame bool
	db        *store.Store
	m         *metrics.Metrics
}

func (p *printer) handle(ctx context.Context, req *message.DetectionRequest) (bool, error) {
	p.m.RequestReceived()

	out := *req
	if !p.withFrame {
		out.Frame = message.FloatArray{Shape: req.Frame.Shape}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.enc.Encode(&out); err != nil {
		return false, err
	}
	if p.db == nil {
		return true, nil
	}
	inserted, err := p.db.InsertRequest(ctx, req)
	if err != nil {
		return false, err
	}
	if inserted {
		p.m.RequestStored()
	} else {
		slog.Debug("duplicate request ignored", "component", "handler", "id", req.ID)
	}
	return true, nil
}

// newHandleFunc prints the request, optionally stores it, and accepts it.
func newHandleFunc(w io.Writer, withFrame bool, db *store.Store, m *metrics.Metrics) delivery.HandleFunc {
	p := &printer{enc: json.NewEncoder(w), withFrame: withFrame, db: db, m: m}
	return p.handle
}

func runHandler(ctx context.Context, stdout io.Writer) error {
	if err := delivery.ValidTransport(handlerOpts.transport); err != nil {
		return err
	}

	var db *store.Store
	if handlerOpts.persist {
		var err error
		if db, err = openDB(ctx); err != nil {
			return err
		}
		// Use Background here because the main context might be cancelled already (due to Ctrl+C)
		// and we still need to send the "Close" command to the DB.
		defer db.Close(context.Background())
	}

	var m *metrics.Metrics
	if handlerOpts.metricsAddr != "" {
		m = metrics.New()
		go func() {
			if err := m.Serve(ctx, handlerOpts.metricsAddr); err != nil {
				slog.Error("metrics server failed", "component", "handler", "error", err)
			}
		}()
	}

	fn := newHandleFunc(stdout, handlerOpts.withFrame, db, m)

	if handlerOpts.transport == delivery.TransportMQTT {
		if handlerOpts.broker == "" {
			return fmt.Errorf("--broker is required for the mqtt transport")
		}
		client, err := delivery.ConnectMQTT(handlerOpts.broker, delivery.ClientID("vodetect-handler"))
		if err != nil {
			return err
		}
		return delivery.NewSubscriber(client, handlerOpts.topic, 0).Run(ctx, fn)
	}

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", handlerOpts.port))
	if err != nil {
		return fmt.Errorf("failed to listen on port %d: %w", handlerOpts.port, err)
	}
	return delivery.Serve(ctx, lis, handlerOpts.maxMessageMB<<20, fn)
}
