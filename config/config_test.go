package config

import (
	"testing"
	"time"
)

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PLAYWRIGHT_MCP_SSE_URL", "http://10.0.0.1:9000/sse")
	t.Setenv("CAPTURE_WAIT_MODE", "sleep")
	t.Setenv("CAPTURE_WAIT_SECS", "2.5")
	t.Setenv("CAPTURE_STATUS_MAX", "399")
	t.Setenv("FILESYSTEM_MCP_ARGS", "@agent-infra/mcp-server-filesystem@latest --allowed-directories /data")

	cfg := Load()
	if cfg.Browser.Endpoint != "http://10.0.0.1:9000/sse" {
		t.Errorf("Endpoint = %q", cfg.Browser.Endpoint)
	}
	if cfg.Capture.WaitMode != WaitModeSleep {
		t.Errorf("WaitMode = %q", cfg.Capture.WaitMode)
	}
	if cfg.Capture.WaitSeconds != 2.5 {
		t.Errorf("WaitSeconds = %v", cfg.Capture.WaitSeconds)
	}
	if cfg.Filter.StatusMax != 399 {
		t.Errorf("StatusMax = %d", cfg.Filter.StatusMax)
	}
	wantArgs := []string{"@agent-infra/mcp-server-filesystem@latest", "--allowed-directories", "/data"}
	if len(cfg.Storage.Args) != len(wantArgs) {
		t.Fatalf("Args = %v, want %v", cfg.Storage.Args, wantArgs)
	}
	for i := range wantArgs {
		if cfg.Storage.Args[i] != wantArgs[i] {
			t.Errorf("Args[%d] = %q, want %q", i, cfg.Storage.Args[i], wantArgs[i])
		}
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CAPTURE_STATUS_MIN", "")
	t.Setenv("CAPTURE_STATUS_MAX", "")

	cfg := Load()
	if cfg.Filter.StatusMin != DefaultStatusMin || cfg.Filter.StatusMax != DefaultStatusMax {
		t.Errorf("status range = %d-%d, want %d-%d",
			cfg.Filter.StatusMin, cfg.Filter.StatusMax, DefaultStatusMin, DefaultStatusMax)
	}
	if cfg.Retry.Retries != 2 || cfg.Retry.Backoff != 750*time.Millisecond {
		t.Errorf("retry config = %d/%v", cfg.Retry.Retries, cfg.Retry.Backoff)
	}
	if cfg.Browser.Transport != TransportSSE {
		t.Errorf("Transport = %q", cfg.Browser.Transport)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := Load()
		cfg.Capture.URL = "https://example.com"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"missing url", func(c *Config) { c.Capture.URL = "" }, true},
		{"bad transport", func(c *Config) { c.Browser.Transport = "carrier-pigeon" }, true},
		{"bad wait mode", func(c *Config) { c.Capture.WaitMode = "eventually" }, true},
		{"negative wait", func(c *Config) { c.Capture.WaitSeconds = -1 }, true},
		{"negative retries", func(c *Config) { c.Retry.Retries = -1 }, true},
		{"bad url regex", func(c *Config) { c.Filter.URL = "([" }, true},
		{"good url regex", func(c *Config) { c.Filter.URL = `api\.example\.com` }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestWaitDuration(t *testing.T) {
	c := CaptureConfig{WaitSeconds: 1.5}
	if got := c.WaitDuration(); got != 1500*time.Millisecond {
		t.Errorf("WaitDuration = %v, want 1.5s", got)
	}
}
