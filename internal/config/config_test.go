package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sampleYAML = `
server:
  port: "9090"
  mode: debug
assessment:
  base_url: http://assessment.local/api/v1
  timeout: 3s
engine:
  tick_interval: 500ms
  redirect_seconds: 15
cache:
  type: redis
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return dir
}

func TestLoadConfigFileAndDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, sampleYAML))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Fatalf("port = %q", cfg.Server.Port)
	}
	if cfg.Assessment.Timeout != 3*time.Second {
		t.Fatalf("assessment timeout = %s", cfg.Assessment.Timeout)
	}
	if cfg.Engine.TickInterval != 500*time.Millisecond {
		t.Fatalf("tick interval = %s", cfg.Engine.TickInterval)
	}
	if cfg.Engine.RedirectAfter() != 15*time.Second {
		t.Fatalf("redirect after = %s", cfg.Engine.RedirectAfter())
	}
	if cfg.Engine.MaxSubmitAttempts != 3 {
		t.Fatalf("max submit attempts default = %d, want 3", cfg.Engine.MaxSubmitAttempts)
	}
	if cfg.Cache.Type != CacheRedis {
		t.Fatalf("cache type = %q", cfg.Cache.Type)
	}
	if cfg.Log.File != "logs/attemptd.log" || cfg.Log.MaxBackups != 5 {
		t.Fatalf("log defaults = %+v", cfg.Log)
	}
	if cfg.Redis.PoolSize != 20 || cfg.Redis.DialTimeout != 5*time.Second {
		t.Fatalf("redis defaults = %+v", cfg.Redis)
	}
	if cfg.Tracing.SampleRatio != 1 {
		t.Fatalf("sample ratio default = %g", cfg.Tracing.SampleRatio)
	}
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("TESTWISE_ENGINE_MAX_SUBMIT_ATTEMPTS", "5")
	t.Setenv("JWT_SECRET", "env-secret")

	cfg, err := LoadConfig(writeConfig(t, sampleYAML))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Engine.MaxSubmitAttempts != 5 {
		t.Fatalf("max submit attempts = %d, want 5", cfg.Engine.MaxSubmitAttempts)
	}
	if cfg.JWT.Secret != "env-secret" {
		t.Fatalf("jwt secret = %q", cfg.JWT.Secret)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	base := func() Config {
		return Config{
			Server:     ServerConfig{Mode: "debug"},
			Assessment: AssessmentConfig{BaseURL: "http://x"},
			Engine:     EngineConfig{TickInterval: time.Second, MaxSubmitAttempts: 3, RedirectSeconds: 30},
			Cache:      CacheConfig{Type: CacheMemory},
		}
	}

	cases := map[string]func(c *Config){
		"no base url":      func(c *Config) { c.Assessment.BaseURL = "" },
		"zero tick":        func(c *Config) { c.Engine.TickInterval = 0 },
		"no attempts":      func(c *Config) { c.Engine.MaxSubmitAttempts = 0 },
		"unknown cache":    func(c *Config) { c.Cache.Type = "etcd" },
		"short jwt secret": func(c *Config) { c.Server.Mode = "release"; c.JWT.Secret = "short" },
		"bad sample ratio": func(c *Config) { c.Tracing.SampleRatio = 1.5 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := base()
			mutate(&c)
			if err := c.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}

	c := base()
	if err := c.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
}
