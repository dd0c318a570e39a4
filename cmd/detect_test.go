package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"

	"github.com/ericnjogu/video-object-detection/internal/config"
)

// parseDetectFlags binds a fresh flag set so Changed state does not leak between tests.
func parseDetectFlags(t *testing.T, args ...string) (*pflag.FlagSet, *detectFlags) {
	t.Helper()
	var v detectFlags
	f := pflag.NewFlagSet("detect", pflag.ContinueOnError)
	bindDetectFlags(f, &v)
	if err := f.Parse(args); err != nil {
		t.Fatalf("Failed to parse flags %v: %v", args, err)
	}
	return f, &v
}

func TestDetectOptionsOnlyChangedFlags(t *testing.T) {
	f, v := parseDetectFlags(t, "--cutoff", "51", "--classes", "1 18")
	opts, err := detectOptions(f, *v, []string{"-", "model", "labels.pbtxt"})
	if err != nil {
		t.Fatalf("detectOptions failed: %v", err)
	}

	if opts.Source != "-" || opts.Model != "model" || opts.LabelMap != "labels.pbtxt" {
		t.Errorf("Positional args not mapped: %+v", opts)
	}
	if opts.Cutoff == nil || *opts.Cutoff != 51 {
		t.Errorf("Expected cutoff 51, got %v", opts.Cutoff)
	}
	if opts.Classes == nil || *opts.Classes != "1 18" {
		t.Errorf("Expected classes '1 18', got %v", opts.Classes)
	}
	// Flags left at their defaults must stay absent so a config file can fill them
	if opts.SampleRate != nil || opts.HandlerPort != nil || opts.Transport != nil {
		t.Errorf("Unchanged flags should be absent: %+v", opts)
	}
}

func TestDetectOptionsZeroCutoffIsPresent(t *testing.T) {
	f, v := parseDetectFlags(t, "--cutoff", "0")
	opts, err := detectOptions(f, *v, []string{"-", "m", "l"})
	if err != nil {
		t.Fatal(err)
	}
	if got := config.CutoffScore(opts.Cutoff); got != 0 {
		t.Errorf("Expected an explicit zero cutoff to stay zero, got %v", got)
	}
}

func TestDetectOptionsConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "detect.yaml")
	content := "cutoff: 40\nsamplerate: 3\ninstance_name: porch\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	f, v := parseDetectFlags(t, "--config", path, "--samplerate", "7")
	opts, err := detectOptions(f, *v, []string{"-", "m", "l"})
	if err != nil {
		t.Fatalf("detectOptions failed: %v", err)
	}

	s, err := config.Resolve(opts)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if s.Cutoff != 0.40 {
		t.Errorf("Expected cutoff from file (0.40), got %v", s.Cutoff)
	}
	if s.SampleRate != 7 {
		t.Errorf("Expected flag to override file samplerate, got %d", s.SampleRate)
	}
	if s.InstanceName != "porch" {
		t.Errorf("Expected instance name from file, got %q", s.InstanceName)
	}
}

func TestDetectOptionsMissingConfigFile(t *testing.T) {
	f, v := parseDetectFlags(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := detectOptions(f, *v, []string{"-", "m", "l"}); err == nil {
		t.Error("Expected an error for a missing config file")
	}
}

func TestDetectDryRun(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"detect", "-", "model_dir", "labels.pbtxt", "--dryrun",
		"--cutoff", "51", "--instance_name", "testing", "--classes", "1 3"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("dry run failed: %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("Dry run output is not JSON: %v\n%s", err, out.String())
	}
	checks := map[string]any{
		"source":        "-",
		"model":         "model_dir",
		"instance_name": "testing",
		"samplerate":    float64(config.DefaultSampleRate),
		"handler_port":  float64(config.DefaultHandlerPort),
		"transport":     "grpc",
		"topic":         "detections/testing",
		"rpc_timeout":   config.DefaultRPCTimeout.String(),
	}
	for key, want := range checks {
		if got[key] != want {
			t.Errorf("%s: expected %v, got %v", key, want, got[key])
		}
	}
	if cutoff, _ := got["cutoff"].(float64); cutoff < 0.509 || cutoff > 0.511 {
		t.Errorf("Expected cutoff 0.51, got %v", got["cutoff"])
	}
	if classes, _ := got["classes"].([]any); len(classes) != 2 {
		t.Errorf("Expected two classes, got %v", got["classes"])
	}
}

func TestDetectRequiresThreeArgs(t *testing.T) {
	rootCmd.SetArgs([]string{"detect", "-"})
	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetErr(&bytes.Buffer{})
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})

	err := rootCmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "accepts 3 arg(s)") {
		t.Errorf("Expected an argument count error, got %v", err)
	}
}
