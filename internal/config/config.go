// Package config turns optional user input (flags and a YAML file) into the
// immutable Settings a detect run uses.
//
// Every optional field is a pointer: nil means absent. Each field has one
// pure function that resolves it to a value, falling back to a default only
// when the field is absent. Present zero values are kept.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var ErrInvalid = errors.New("invalid configuration")

const (
	DefaultCutoff       float32 = 0.90
	DefaultSampleRate           = 5
	DefaultHandlerHost          = "localhost"
	DefaultHandlerPort          = 50051
	DefaultTransport            = "grpc"
	DefaultEngine               = "python"
	DefaultTFServingURL         = "http://localhost:8501"
	DefaultWorkerScript         = "python/detect_worker.py"
	DefaultPython               = "python3"
	DefaultRPCTimeout           = 10 * time.Second
	DefaultTopicPrefix          = "detections"
	// DefaultMaxMessageMB fits a 1080p frame sent as float32.
	DefaultMaxMessageMB = 32
)

var (
	transports = map[string]bool{"grpc": true, "mqtt": true}
	engines    = map[string]bool{"python": true, "tfserving": true}
)

// Options is user input before defaulting. Positional arguments are plain strings.
type Options struct {
	Source   string `yaml:"source"`
	Model    string `yaml:"model"`
	LabelMap string `yaml:"label_map"`

	Cutoff          *int           `yaml:"cutoff"` // percent
	SampleRate      *int           `yaml:"samplerate"`
	Classes         *string        `yaml:"classes"` // space separated class ids
	InstanceName    *string        `yaml:"instance_name"`
	HandlerHost     *string        `yaml:"handler_host"`
	HandlerPort     *int           `yaml:"handler_port"`
	Transport       *string        `yaml:"transport"`
	Broker          *string        `yaml:"broker"`
	Topic           *string        `yaml:"topic"`
	Engine          *string        `yaml:"engine"`
	TFServingURL    *string        `yaml:"tfserving_url"`
	WorkerScript    *string        `yaml:"worker_script"`
	Python          *string        `yaml:"python"`
	FrameWidth      *int           `yaml:"frame_width"`
	FrameHeight     *int           `yaml:"frame_height"`
	IDWithTimestamp *bool          `yaml:"id_with_timestamp"`
	RPCTimeout      *time.Duration `yaml:"rpc_timeout"`
	MetricsAddr     *string        `yaml:"metrics_addr"`
	MaxMessageMB    *int           `yaml:"max_message_mb"`
}

// LoadFile reads Options from a YAML file. Unknown keys are an error.
func LoadFile(path string) (Options, error) {
	f, err := os.Open(path)
	if err != nil {
		return Options{}, fmt.Errorf("failed to read config file: %w", err)
	}
	defer f.Close()

	var opts Options
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&opts); err != nil && !errors.Is(err, io.EOF) {
		return Options{}, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return opts, nil
}

// Overlay returns base with every field that is present in over replaced.
func Overlay(base, over Options) Options {
	out := base
	if over.Source != "" {
		out.Source = over.Source
	}
	if over.Model != "" {
		out.Model = over.Model
	}
	if over.LabelMap != "" {
		out.LabelMap = over.LabelMap
	}
	pick(&out.Cutoff, over.Cutoff)
	pick(&out.SampleRate, over.SampleRate)
	pick(&out.Classes, over.Classes)
	pick(&out.InstanceName, over.InstanceName)
	pick(&out.HandlerHost, over.HandlerHost)
	pick(&out.HandlerPort, over.HandlerPort)
	pick(&out.Transport, over.Transport)
	pick(&out.Broker, over.Broker)
	pick(&out.Topic, over.Topic)
	pick(&out.Engine, over.Engine)
	pick(&out.TFServingURL, over.TFServingURL)
	pick(&out.WorkerScript, over.WorkerScript)
	pick(&out.Python, over.Python)
	pick(&out.FrameWidth, over.FrameWidth)
	pick(&out.FrameHeight, over.FrameHeight)
	pick(&out.IDWithTimestamp, over.IDWithTimestamp)
	pick(&out.RPCTimeout, over.RPCTimeout)
	pick(&out.MetricsAddr, over.MetricsAddr)
	pick(&out.MaxMessageMB, over.MaxMessageMB)
	return out
}

func pick[T any](dst **T, v *T) {
	if v != nil {
		*dst = v
	}
}

func or[T any](v *T, def T) T {
	if v == nil {
		return def
	}
	return *v
}

// --- Per-field resolution ---

// CutoffScore converts a percentage to a fraction: 51 becomes 0.51.
func CutoffScore(percent *int) float32 {
	if percent == nil {
		return DefaultCutoff
	}
	return float32(*percent) / 100
}

func SampleRate(v *int) int { return or(v, DefaultSampleRate) }

func HandlerHost(v *string) string { return or(v, DefaultHandlerHost) }

func HandlerPort(v *int) int { return or(v, DefaultHandlerPort) }

func Transport(v *string) string { return or(v, DefaultTransport) }

func Engine(v *string) string { return or(v, DefaultEngine) }

func TFServingURL(v *string) string { return or(v, DefaultTFServingURL) }

func WorkerScript(v *string) string { return or(v, DefaultWorkerScript) }

func Python(v *string) string { return or(v, DefaultPython) }

func IDWithTimestamp(v *bool) bool { return or(v, false) }

func RPCTimeout(v *time.Duration) time.Duration { return or(v, DefaultRPCTimeout) }

func MaxMessageMB(v *int) int { return or(v, DefaultMaxMessageMB) }

// InstanceName defaults to the host name.
func InstanceName(v *string) string {
	if v != nil {
		return *v
	}
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "localhost"
	}
	return host
}

// Topic defaults to detections/<instance>.
func Topic(v *string, instance string) string {
	if v != nil {
		return *v
	}
	return DefaultTopicPrefix + "/" + instance
}

// ParseClasses reads a list of class ids separated by spaces or commas.
// An empty list is returned as nil, which keeps every class.
func ParseClasses(s string) ([]int32, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ' ' || r == ',' || r == '\t' })
	if len(fields) == 0 {
		return nil, nil
	}
	classes := make([]int32, 0, len(fields))
	for _, f := range fields {
		id, err := strconv.ParseInt(f, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: class %q is not an integer", ErrInvalid, f)
		}
		classes = append(classes, int32(id))
	}
	return classes, nil
}

// Settings is the resolved, validated configuration of a detect run.
type Settings struct {
	Source          string        `json:"source"`
	Model           string        `json:"model"`
	LabelMap        string        `json:"label_map"`
	Cutoff          float32       `json:"cutoff"`
	SampleRate      int           `json:"samplerate"`
	Classes         []int32       `json:"classes"`
	InstanceName    string        `json:"instance_name"`
	HandlerHost     string        `json:"handler_host"`
	HandlerPort     int           `json:"handler_port"`
	Transport       string        `json:"transport"`
	Broker          string        `json:"broker"`
	Topic           string        `json:"topic"`
	Engine          string        `json:"engine"`
	TFServingURL    string        `json:"tfserving_url"`
	WorkerScript    string        `json:"worker_script"`
	Python          string        `json:"python"`
	FrameWidth      int           `json:"frame_width"`
	FrameHeight     int           `json:"frame_height"`
	IDWithTimestamp bool          `json:"id_with_timestamp"`
	RPCTimeout      time.Duration `json:"-"`
	MetricsAddr     string        `json:"metrics_addr"`
	MaxMessageMB    int           `json:"max_message_mb"`
}

// MarshalJSON writes the settings as one flat object with a readable timeout.
func (s Settings) MarshalJSON() ([]byte, error) {
	type plain Settings
	return json.Marshal(struct {
		plain
		RPCTimeout string `json:"rpc_timeout"`
	}{plain(s), s.RPCTimeout.String()})
}

// HandlerAddr is the host:port of the gRPC handler.
func (s Settings) HandlerAddr() string {
	return fmt.Sprintf("%s:%d", s.HandlerHost, s.HandlerPort)
}

// MaxMessageSize is the gRPC request size limit in bytes.
func (s Settings) MaxMessageSize() int {
	return s.MaxMessageMB << 20
}

// AllowedClasses returns the class allow-list as a set, nil when every class is allowed.
func (s Settings) AllowedClasses() map[int32]bool {
	if len(s.Classes) == 0 {
		return nil
	}
	set := make(map[int32]bool, len(s.Classes))
	for _, c := range s.Classes {
		set[c] = true
	}
	return set
}

// Resolve applies the defaults and validates the result.
func Resolve(o Options) (Settings, error) {
	var classes []int32
	if o.Classes != nil {
		var err error
		if classes, err = ParseClasses(*o.Classes); err != nil {
			return Settings{}, err
		}
	}

	instance := InstanceName(o.InstanceName)
	s := Settings{
		Source:          o.Source,
		Model:           o.Model,
		LabelMap:        o.LabelMap,
		Cutoff:          CutoffScore(o.Cutoff),
		SampleRate:      SampleRate(o.SampleRate),
		Classes:         classes,
		InstanceName:    instance,
		HandlerHost:     HandlerHost(o.HandlerHost),
		HandlerPort:     HandlerPort(o.HandlerPort),
		Transport:       Transport(o.Transport),
		Broker:          or(o.Broker, ""),
		Topic:           Topic(o.Topic, instance),
		Engine:          Engine(o.Engine),
		TFServingURL:    TFServingURL(o.TFServingURL),
		WorkerScript:    WorkerScript(o.WorkerScript),
		Python:          Python(o.Python),
		FrameWidth:      or(o.FrameWidth, 0),
		FrameHeight:     or(o.FrameHeight, 0),
		IDWithTimestamp: IDWithTimestamp(o.IDWithTimestamp),
		RPCTimeout:      RPCTimeout(o.RPCTimeout),
		MetricsAddr:     or(o.MetricsAddr, ""),
		MaxMessageMB:    MaxMessageMB(o.MaxMessageMB),
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate checks ranges and cross-field requirements.
func (s Settings) Validate() error {
	var errs []error
	if s.Cutoff < 0 || s.Cutoff > 1 {
		errs = append(errs, fmt.Errorf("cutoff must be between 0 and 100 percent, got %g", s.Cutoff*100))
	}
	if s.SampleRate < 1 {
		errs = append(errs, fmt.Errorf("samplerate must be at least 1, got %d", s.SampleRate))
	}
	if s.HandlerPort < 1 || s.HandlerPort > 65535 {
		errs = append(errs, fmt.Errorf("handler_port must be between 1 and 65535, got %d", s.HandlerPort))
	}
	if !transports[s.Transport] {
		errs = append(errs, fmt.Errorf("transport must be grpc or mqtt, got %q", s.Transport))
	}
	if s.Transport == "mqtt" && s.Broker == "" {
		errs = append(errs, errors.New("broker is required for the mqtt transport"))
	}
	if !engines[s.Engine] {
		errs = append(errs, fmt.Errorf("engine must be python or tfserving, got %q", s.Engine))
	}
	if s.FrameWidth < 0 || s.FrameHeight < 0 {
		errs = append(errs, fmt.Errorf("frame size must not be negative, got %dx%d", s.FrameWidth, s.FrameHeight))
	}
	if s.RPCTimeout <= 0 {
		errs = append(errs, fmt.Errorf("rpc_timeout must be positive, got %s", s.RPCTimeout))
	}
	if s.MaxMessageMB < 1 {
		errs = append(errs, fmt.Errorf("max_message_mb must be at least 1, got %d", s.MaxMessageMB))
	}
	if s.InstanceName == "" {
		errs = append(errs, errors.New("instance_name must not be empty"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}
