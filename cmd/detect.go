package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ericnjogu/video-object-detection/internal/config"
	"github.com/ericnjogu/video-object-detection/internal/delivery"
	"github.com/ericnjogu/video-object-detection/internal/detection"
	"github.com/ericnjogu/video-object-detection/internal/inference"
	"github.com/ericnjogu/video-object-detection/internal/metrics"
	"github.com/ericnjogu/video-object-detection/internal/pipeline"
	"github.com/ericnjogu/video-object-detection/internal/source"
	"github.com/ericnjogu/video-object-detection/internal/utils"
	"github.com/ericnjogu/video-object-detection/internal/worker"
)

// detectFlags holds raw flag values. Only flags the user changed become
// present fields of config.Options.
type detectFlags struct {
	configPath      string
	dryRun          bool
	cutoff          int
	sampleRate      int
	classes         string
	instanceName    string
	handlerHost     string
	handlerPort     int
	transport       string
	broker          string
	topic           string
	engine          string
	tfservingURL    string
	workerScript    string
	python          string
	frameWidth      int
	frameHeight     int
	idWithTimestamp bool
	rpcTimeout      time.Duration
	metricsAddr     string
	maxMessageMB    int
}

var detectOpts detectFlags

var detectCmd = &cobra.Command{
	Use:   "detect <source> <model> <label_map>",
	Short: "Detect objects in a video stream and forward them to a handler",
	Long: `Reads frames from <source>, runs every n-th frame through the detection model and
sends detections above the cutoff to the handler.

<source> is '-' for standard input, a number for a capture device, a path to a
video file, or a stream URL (rtsp, rtmp, http, udp, tcp, srt).
<model> is the model path passed to the Python worker, or the model name for
TensorFlow Serving. <label_map> is a .pbtxt or .yaml label map.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := detectOptions(cmd.Flags(), detectOpts, args)
		if err != nil {
			return err
		}
		settings, err := config.Resolve(opts)
		if err != nil {
			return err
		}
		if detectOpts.dryRun {
			return json.NewEncoder(cmd.OutOrStdout()).Encode(settings)
		}
		return runDetect(cmd.Context(), settings)
	},
}

func init() {
	bindDetectFlags(detectCmd.Flags(), &detectOpts)
	rootCmd.AddCommand(detectCmd)
}

func bindDetectFlags(f *pflag.FlagSet, v *detectFlags) {
	f.StringVar(&v.configPath, "config", "", "YAML file with detect options; flags override it")
	f.BoolVar(&v.dryRun, "dryrun", false, "Print the resolved options as JSON and exit")
	f.IntVar(&v.cutoff, "cutoff", 90, "Cut off detection score (%), a value between 0 and 100")
	f.IntVar(&v.sampleRate, "samplerate", config.DefaultSampleRate, "Run detection on every n-th frame")
	f.StringVar(&v.classes, "classes", "", "Space separated list of class ids to keep (default: all)")
	f.StringVar(&v.instanceName, "instance_name", "", "A descriptive name for this detection instance (default: hostname)")
	f.StringVar(&v.handlerHost, "handler_host", config.DefaultHandlerHost, "Host of the gRPC detection handler")
	f.IntVar(&v.handlerPort, "handler_port", config.DefaultHandlerPort, "Port of the gRPC detection handler")
	f.StringVar(&v.transport, "transport", config.DefaultTransport, "Delivery transport: grpc or mqtt")
	f.StringVar(&v.broker, "broker", "", "MQTT broker address, required for --transport mqtt")
	f.StringVar(&v.topic, "topic", "", "MQTT topic (default: detections/<instance_name>)")
	f.StringVar(&v.engine, "engine", config.DefaultEngine, "Inference engine: python or tfserving")
	f.StringVar(&v.tfservingURL, "tfserving_url", config.DefaultTFServingURL, "TensorFlow Serving REST address")
	f.StringVar(&v.workerScript, "worker_script", config.DefaultWorkerScript, "Python worker script")
	f.StringVar(&v.python, "python", config.DefaultPython, "Python interpreter for the worker")
	f.IntVar(&v.frameWidth, "frame_width", 0, "Scale frames to this width (default: source width)")
	f.IntVar(&v.frameHeight, "frame_height", 0, "Scale frames to this height (default: source height)")
	f.BoolVar(&v.idWithTimestamp, "id_with_timestamp", false, "Include the run start time in request ids")
	f.DurationVar(&v.rpcTimeout, "rpc_timeout", config.DefaultRPCTimeout, "Budget for one handler call")
	f.StringVar(&v.metricsAddr, "metrics_addr", "", "Serve Prometheus metrics on this address, e.g. :9100")
	f.IntVar(&v.maxMessageMB, "max_message_mb", config.DefaultMaxMessageMB, "Largest gRPC request in MiB; raise it for frames above 1080p")
}

// detectOptions merges the config file (if any) with the flags the user set.
func detectOptions(flags *pflag.FlagSet, v detectFlags, args []string) (config.Options, error) {
	set := func(name string) bool { return flags.Changed(name) }

	var fromFlags config.Options
	fromFlags.Source, fromFlags.Model, fromFlags.LabelMap = args[0], args[1], args[2]
	if set("cutoff") {
		fromFlags.Cutoff = &v.cutoff
	}
	if set("samplerate") {
		fromFlags.SampleRate = &v.sampleRate
	}
	if set("classes") {
		fromFlags.Classes = &v.classes
	}
	if set("instance_name") {
		fromFlags.InstanceName = &v.instanceName
	}
	if set("handler_host") {
		fromFlags.HandlerHost = &v.handlerHost
	}
	if set("handler_port") {
		fromFlags.HandlerPort = &v.handlerPort
	}
	if set("transport") {
		fromFlags.Transport = &v.transport
	}
	if set("broker") {
		fromFlags.Broker = &v.broker
	}
	if set("topic") {
		fromFlags.Topic = &v.topic
	}
	if set("engine") {
		fromFlags.Engine = &v.engine
	}
	if set("tfserving_url") {
		fromFlags.TFServingURL = &v.tfservingURL
	}
	if set("worker_script") {
		fromFlags.WorkerScript = &v.workerScript
	}
	if set("python") {
		fromFlags.Python = &v.python
	}
	if set("frame_width") {
		fromFlags.FrameWidth = &v.frameWidth
	}
	if set("frame_height") {
		fromFlags.FrameHeight = &v.frameHeight
	}
	if set("id_with_timestamp") {
		fromFlags.IDWithTimestamp = &v.idWithTimestamp
	}
	if set("rpc_timeout") {
		fromFlags.RPCTimeout = &v.rpcTimeout
	}
	if set("metrics_addr") {
		fromFlags.MetricsAddr = &v.metricsAddr
	}
	if set("max_message_mb") {
		fromFlags.MaxMessageMB = &v.maxMessageMB
	}

	if v.configPath == "" {
		return fromFlags, nil
	}
	fromFile, err := config.LoadFile(v.configPath)
	if err != nil {
		return config.Options{}, err
	}
	return config.Overlay(fromFile, fromFlags), nil
}

// runDetect wires the engine, the delivery transport and the source, then runs the pipeline.
func runDetect(ctx context.Context, s config.Settings) error {
	log := slog.With("component", "detect", "instance", s.InstanceName)

	// Fail on a bad source before starting any subprocess
	if _, err := source.Classify(s.Source); err != nil {
		return err
	}

	categoryIndex, err := detection.LoadLabelMap(s.LabelMap)
	if err != nil {
		return err
	}
	log.Debug("loaded label map", "classes", len(categoryIndex), "cutoff", s.Cutoff, "samplerate", s.SampleRate)

	engine, pyWorker, err := newEngine(ctx, s)
	if err != nil {
		return err
	}
	defer engine.Close()

	out, err := newDeliverer(s)
	if err != nil {
		return err
	}
	defer out.Close()

	var m *metrics.Metrics
	if s.MetricsAddr != "" {
		m = metrics.New()
		go func() {
			if err := m.Serve(ctx, s.MetricsAddr); err != nil {
				log.Error("metrics server failed", "error", err)
			}
		}()
	}

	opener := &source.FFmpegOpener{Ctx: ctx, Width: s.FrameWidth, Height: s.FrameHeight}
	reader, err := source.Resolve(s.Source, os.Stdin, opener)
	if err != nil {
		return fmt.Errorf("failed to open source %s: %w", s.Source, err)
	}

	params := pipeline.Params{
		Cutoff:          s.Cutoff,
		SampleRate:      s.SampleRate,
		Classes:         s.AllowedClasses(),
		InstanceName:    s.InstanceName,
		Source:          source.Describe(s.Source),
		StartTimestamp:  float64(time.Now().UnixNano()) / float64(time.Second),
		IDWithTimestamp: s.IDWithTimestamp,
		CategoryIndex:   categoryIndex,
		Progress:        os.Stderr,
	}
	if _, err := pipeline.Run(ctx, params, reader, engine, out, m); err != nil {
		if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			log.Info("detection interrupted")
			return nil
		}
		if pyWorker != nil {
			// DRAIN: Wait for process to exit and capture final stderr logs
			pyWorker.Close()
			utils.ShowError("Detection stopped", err, pyWorker.Cmd)
		}
		return err
	}
	return nil
}

// newEngine starts the configured inference engine. The Python worker is also
// returned on its own so its logs can be shown on failure.
func newEngine(ctx context.Context, s config.Settings) (inference.Engine, *worker.PythonWorker, error) {
	switch s.Engine {
	case "tfserving":
		engine, err := inference.NewTFServing(s.TFServingURL, s.Model, inference.DefaultPredictTimeout)
		return engine, nil, err
	default:
		w, err := worker.NewPythonWorker(ctx, 0, worker.Config{
			Python:    s.Python,
			Script:    s.WorkerScript,
			ModelPath: s.Model,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("worker startup failed: %w", err)
		}
		return w, w, nil
	}
}

func newDeliverer(s config.Settings) (delivery.Deliverer, error) {
	switch s.Transport {
	case delivery.TransportMQTT:
		client, err := delivery.ConnectMQTT(s.Broker, delivery.ClientID("vodetect-"+s.InstanceName))
		if err != nil {
			return nil, err
		}
		return delivery.NewPublisher(client, s.Topic, 0), nil
	default:
		return delivery.DialRPC(s.HandlerAddr(), s.RPCTimeout, s.MaxMessageSize())
	}
}
