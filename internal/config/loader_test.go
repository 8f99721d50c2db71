package config

import (
	"reflect"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func TestAsString(t *testing.T) {
	tests := []struct {
		input interface{}
		want  string
	}{
		{"hello", "hello"},
		{123, "123"},
		{true, "true"},
		{nil, ""},
		{[]byte("bytes"), "bytes"},
	}

	for _, tt := range tests {
		got, err := asString(tt.input)
		if err != nil {
			t.Errorf("asString(%v) error = %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("asString(%v) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestAsInt(t *testing.T) {
	tests := []struct {
		input interface{}
		want  int
	}{
		{123, 123},
		{"456", 456},
		{int64(789), 789},
		{float64(10.0), 10},
		{nil, 0},
	}

	for _, tt := range tests {
		got, err := asInt(tt.input)
		if err != nil {
			t.Errorf("asInt(%v) error = %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("asInt(%v) = %d, want %d", tt.input, got, tt.want)
		}
	}
}

func TestAsIntSlice(t *testing.T) {
	tests := []struct {
		input interface{}
		want  []int
	}{
		{[]interface{}{10, "20", float64(50)}, []int{10, 20, 50}},
		{"1, 2,3", []int{1, 2, 3}},
		{[]int{7}, []int{7}},
		{5, []int{5}},
		{nil, nil},
	}

	for _, tt := range tests {
		got, err := asIntSlice(tt.input)
		if err != nil {
			t.Errorf("asIntSlice(%v) error = %v", tt.input, err)
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("asIntSlice(%v) = %v, want %v", tt.input, got, tt.want)
		}
	}

	if _, err := asIntSlice("1,x"); err == nil {
		t.Error("asIntSlice(\"1,x\") expected error")
	}
}

func TestAsBool(t *testing.T) {
	tests := []struct {
		input interface{}
		want  bool
	}{
		{true, true},
		{"true", true},
		{"1", true},
		{false, false},
		{"false", false},
		{"0", false},
		{nil, false},
	}

	for _, tt := range tests {
		got, err := asBool(tt.input)
		if err != nil {
			t.Errorf("asBool(%v) error = %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("asBool(%v) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestAsDuration(t *testing.T) {
	tests := []struct {
		input interface{}
		want  time.Duration
	}{
		{time.Second, time.Second},
		{"1m", time.Minute},
		{10, 10 * time.Second}, // int treated as seconds
		{nil, 0},
	}

	for _, tt := range tests {
		got, err := asDuration(tt.input)
		if err != nil {
			t.Errorf("asDuration(%v) error = %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("asDuration(%v) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestApplyConfigSettings(t *testing.T) {
	cfg := &Config{}
	settings := map[string]interface{}{
		"baseurl":            "http://example.com",
		"threads":            []interface{}{2, 4},
		"warmup-concurrency": 3,
		"card_number":        "4000-0000-0000-0002",
		"isolateconnections": true,
		"tracing": map[string]interface{}{
			"endpoint":    "otel:4318",
			"servicename": "carts",
		},
	}

	if err := applyConfigSettings(cfg, settings); err != nil {
		t.Fatalf("applyConfigSettings() error = %v", err)
	}

	if cfg.BaseURL != "http://example.com" {
		t.Errorf("BaseURL = %q, want http://example.com", cfg.BaseURL)
	}
	if !reflect.DeepEqual(cfg.Levels, []int{2, 4}) {
		t.Errorf("Levels = %v, want [2 4]", cfg.Levels)
	}
	if cfg.WarmupConcurrency != 3 {
		t.Errorf("WarmupConcurrency = %d, want 3", cfg.WarmupConcurrency)
	}
	if cfg.CardNumber != "4000-0000-0000-0002" {
		t.Errorf("CardNumber = %q", cfg.CardNumber)
	}
	if !cfg.IsolateConnections {
		t.Error("IsolateConnections = false, want true")
	}
	if cfg.Tracing.Endpoint != "otel:4318" || cfg.Tracing.ServiceName != "carts" {
		t.Errorf("Tracing = %+v", cfg.Tracing)
	}
	if cfg.Tracing.Propagate != nil {
		t.Error("Propagate should stay unset when absent from the file")
	}
}

func TestApplyConfigSettingsRejectsBadTypes(t *testing.T) {
	cfg := &Config{}
	if err := applyConfigSettings(cfg, map[string]interface{}{"total": []string{"x"}}); err == nil {
		t.Error("expected error for non-numeric total")
	}
	if err := applyConfigSettings(cfg, map[string]interface{}{"tracing": "yes"}); err == nil {
		t.Error("expected error for scalar tracing block")
	}
}

func TestApplyFlagOverrides(t *testing.T) {
	cfg := &Config{Total: 1, Levels: []int{1}}

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	configureFlags(fs)

	args := []string{
		"--total=5",
		"--threads=3,6",
		"--output=YAML",
		"--tracing-propagate",
		"--isolate-connections",
	}
	if err := fs.Parse(args); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if err := applyFlagOverrides(cfg, fs); err != nil {
		t.Fatalf("applyFlagOverrides() error = %v", err)
	}

	if cfg.Total != 5 {
		t.Errorf("Total = %d, want 5", cfg.Total)
	}
	if !reflect.DeepEqual(cfg.Levels, []int{3, 6}) {
		t.Errorf("Levels = %v, want [3 6]", cfg.Levels)
	}
	if cfg.Output != OutputYAML {
		t.Errorf("Output = %q, want yaml", cfg.Output)
	}
	if cfg.Tracing.Propagate == nil || !*cfg.Tracing.Propagate {
		t.Error("Tracing.Propagate should be set to true")
	}
	if !cfg.IsolateConnections {
		t.Error("IsolateConnections = false, want true")
	}
}

func TestApplyFlagOverridesLeavesUnchangedFlags(t *testing.T) {
	cfg := &Config{Timeout: 7 * time.Second, CardNumber: "from-file"}

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	configureFlags(fs)
	if err := fs.Parse(nil); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if err := applyFlagOverrides(cfg, fs); err != nil {
		t.Fatalf("applyFlagOverrides() error = %v", err)
	}

	if cfg.Timeout != 7*time.Second {
		t.Errorf("Timeout = %s, want file value 7s", cfg.Timeout)
	}
	if cfg.CardNumber != "from-file" {
		t.Errorf("CardNumber = %q, want file value", cfg.CardNumber)
	}
}
