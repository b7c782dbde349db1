package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const minimalConfig = `
database:
  url: postgres://localhost/test
redis:
  url: localhost:6379
auth:
  hmac_secret: secret
generation:
  providers:
    - name: noop
`

func TestLoadConfig_Defaults(t *testing.T) {
	t.Parallel()

	cfg, err := LoadConfig(writeConfig(t, minimalConfig), false)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Fatalf("port default: %d", cfg.Server.Port)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "json" {
		t.Fatalf("log defaults: %s/%s", cfg.Log.Level, cfg.Log.Format)
	}
	if cfg.Jobs.Workers != 16 || cfg.Jobs.WatchdogTimeout != 3*time.Minute {
		t.Fatalf("jobs defaults: %d/%s", cfg.Jobs.Workers, cfg.Jobs.WatchdogTimeout)
	}
	if cfg.Jobs.RunningTTL != time.Hour || cfg.Jobs.RetentionTTL != 15*time.Minute {
		t.Fatalf("ttl defaults: %s/%s", cfg.Jobs.RunningTTL, cfg.Jobs.RetentionTTL)
	}
	if cfg.Generation.MaxRetries != 2 || cfg.Generation.Timeout != 2*time.Minute {
		t.Fatalf("generation defaults: %d/%s", cfg.Generation.MaxRetries, cfg.Generation.Timeout)
	}
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Parallel()

	cfg, err := LoadConfig(writeConfig(t, minimalConfig+`
server:
  port: 9090
jobs:
  workers: 4
  watchdog_timeout: 30s
quota:
  roles:
    free:
      reading: 2
`), false)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 9090 || cfg.Jobs.Workers != 4 || cfg.Jobs.WatchdogTimeout != 30*time.Second {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.Quota.Roles["free"]["reading"] != 2 {
		t.Fatalf("quota roles: %+v", cfg.Quota.Roles)
	}
}

func TestLoadConfig_Validation(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"missing database": `
redis: {url: localhost:6379}
auth: {hmac_secret: s}
generation: {providers: [{name: noop}]}
`,
		"missing redis": `
database: {url: postgres://localhost/test}
auth: {hmac_secret: s}
generation: {providers: [{name: noop}]}
`,
		"no providers": `
database: {url: postgres://localhost/test}
redis: {url: localhost:6379}
auth: {hmac_secret: s}
`,
		"missing secret outside dev": `
database: {url: postgres://localhost/test}
redis: {url: localhost:6379}
generation: {providers: [{name: noop}]}
`,
	}
	for name, body := range cases {
		if _, err := LoadConfig(writeConfig(t, body), false); err == nil {
			t.Fatalf("%s: want error", name)
		}
	}

	// Dev mode tolerates a missing secret.
	if _, err := LoadConfig(writeConfig(t, `
database: {url: postgres://localhost/test}
redis: {url: localhost:6379}
generation: {providers: [{name: noop}]}
`), true); err != nil {
		t.Fatalf("dev mode: %v", err)
	}
}
