package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// TestNewConfig verifies the default values. Changing a default must be
// intentional, so every value is asserted.
func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()

	t.Run("frontier defaults to urls.json", func(t *testing.T) {
		t.Parallel()
		if cfg.FrontierPath != "urls.json" {
			t.Errorf("expected FrontierPath 'urls.json', got %q", cfg.FrontierPath)
		}
	})

	t.Run("navigation timeout is 60 seconds", func(t *testing.T) {
		t.Parallel()
		if cfg.NavigationTimeout != 60*time.Second {
			t.Errorf("expected 60s, got %v", cfg.NavigationTimeout)
		}
	})

	t.Run("settle delay is 2 seconds", func(t *testing.T) {
		t.Parallel()
		if cfg.SettleDelay != 2*time.Second {
			t.Errorf("expected 2s, got %v", cfg.SettleDelay)
		}
	})

	t.Run("page rendering defaults", func(t *testing.T) {
		t.Parallel()
		if cfg.WaitPolicy != "networkidle" {
			t.Errorf("expected networkidle, got %q", cfg.WaitPolicy)
		}
		if cfg.ReadySelector != "body" {
			t.Errorf("expected body, got %q", cfg.ReadySelector)
		}
		if cfg.Language != "en" {
			t.Errorf("expected en, got %q", cfg.Language)
		}
		if !cfg.Headless {
			t.Error("expected headless by default")
		}
		if cfg.MaxPages != 0 {
			t.Errorf("expected unlimited pages, got %d", cfg.MaxPages)
		}
	})

	t.Run("harvest defaults", func(t *testing.T) {
		t.Parallel()
		if !cfg.Harvest {
			t.Error("expected harvest enabled")
		}
		if cfg.DownloadConcurrency != 4 {
			t.Errorf("expected concurrency 4, got %d", cfg.DownloadConcurrency)
		}
		if cfg.DownloadRate != 5 {
			t.Errorf("expected rate 5, got %v", cfg.DownloadRate)
		}
		if cfg.DownloadTimeout != 60*time.Second {
			t.Errorf("expected 60s, got %v", cfg.DownloadTimeout)
		}
		if cfg.MaxDownloadSize != 100*1024*1024 {
			t.Errorf("expected 100MB, got %d", cfg.MaxDownloadSize)
		}
	})

	t.Run("data locations are under XDG", func(t *testing.T) {
		t.Parallel()
		if !strings.HasPrefix(cfg.OutputDir, XDGDataDir()) {
			t.Errorf("OutputDir %q not under %q", cfg.OutputDir, XDGDataDir())
		}
		if cfg.DBDir != XDGDataDir() {
			t.Errorf("DBDir %q, want %q", cfg.DBDir, XDGDataDir())
		}
		if !cfg.SaveToDB {
			t.Error("expected database enabled")
		}
	})

	t.Run("defaults validate", func(t *testing.T) {
		t.Parallel()
		if err := NewConfig().Validate(); err != nil {
			t.Errorf("expected defaults to be valid, got %v", err)
		}
	})
}

// TestConfigValidate tests one validation rule per case.
func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		modify func(c *Config)
		want   error
	}{
		{name: "valid seed", modify: func(c *Config) { c.Seed = "https://www.example.com/start" }},
		{name: "empty frontier", modify: func(c *Config) { c.FrontierPath = "" }, want: ErrNoFrontierPath},
		{name: "relative seed", modify: func(c *Config) { c.Seed = "/start" }, want: ErrInvalidSeed},
		{name: "ftp seed", modify: func(c *Config) { c.Seed = "ftp://example.com" }, want: ErrInvalidSeed},
		{name: "zero timeout", modify: func(c *Config) { c.NavigationTimeout = 0 }, want: ErrInvalidTimeout},
		{name: "negative settle delay", modify: func(c *Config) { c.SettleDelay = -time.Second }, want: ErrInvalidSettleDelay},
		{name: "zero settle delay", modify: func(c *Config) { c.SettleDelay = 0 }},
		{name: "unknown wait policy", modify: func(c *Config) { c.WaitPolicy = "idle" }, want: ErrInvalidWaitPolicy},
		{name: "load wait policy", modify: func(c *Config) { c.WaitPolicy = "load" }},
		{name: "bad language", modify: func(c *Config) { c.Language = "not a language" }, want: ErrInvalidLanguage},
		{name: "regional language", modify: func(c *Config) { c.Language = "en-GB" }},
		{name: "negative max pages", modify: func(c *Config) { c.MaxPages = -1 }, want: ErrInvalidMaxPages},
		{name: "zero concurrency", modify: func(c *Config) { c.DownloadConcurrency = 0 }, want: ErrInvalidConcurrency},
		{name: "negative rate", modify: func(c *Config) { c.DownloadRate = -1 }, want: ErrInvalidDownloadRate},
		{name: "zero rate disables limit", modify: func(c *Config) { c.DownloadRate = 0 }},
		{name: "zero download timeout", modify: func(c *Config) { c.DownloadTimeout = 0 }, want: ErrInvalidDownloadTimeout},
		{name: "negative max size", modify: func(c *Config) { c.MaxDownloadSize = -1 }, want: ErrInvalidMaxBodySize},
		{name: "bad pattern", modify: func(c *Config) { c.ResourcePattern = "[" }, want: ErrInvalidResourcePattern},
		{name: "relative resource base", modify: func(c *Config) { c.ResourceBaseURL = "cdn/files" }, want: ErrInvalidResourceBase},
		{name: "absolute resource base", modify: func(c *Config) { c.ResourceBaseURL = "https://cdn.example.com/files" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := NewConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.want == nil {
				if err != nil {
					t.Errorf("expected no error, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

const sampleFile = `
frontier: state/urls.json
seed: https://www.example.com
outputDir: out
crawl:
  navigationTimeout: 30s
  settleDelay: 500ms
  waitPolicy: load
  language: fr
  maxPages: 25
browser:
  headless: false
  userAgent: test-agent
harvest:
  enabled: false
  baseUrl: https://cdn.example.com/files
  concurrency: 8
  rate: 2.5
  timeout: 2m
  headers:
    X-Token: secret
database:
  enabled: false
`

// TestLoadConfigFile tests reading the YAML file.
func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("returns ErrConfigNotFound for non-existent file", func(t *testing.T) {
		t.Parallel()

		_, err := LoadConfigFile(filepath.Join(t.TempDir(), "missing.yaml"))
		if !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("loads valid YAML config", func(t *testing.T) {
		t.Parallel()

		path := writeConfig(t, sampleFile)
		cf, err := LoadConfigFile(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cf.Crawl.NavigationTimeout != 30*time.Second {
			t.Errorf("expected 30s, got %v", cf.Crawl.NavigationTimeout)
		}
		if cf.Harvest.Timeout != 2*time.Minute {
			t.Errorf("expected 2m, got %v", cf.Harvest.Timeout)
		}
		if cf.Browser.Headless == nil || *cf.Browser.Headless {
			t.Error("expected explicit headless false")
		}
		if cf.Harvest.Headers["X-Token"] != "secret" {
			t.Errorf("unexpected headers %v", cf.Harvest.Headers)
		}
	})

	t.Run("returns error for invalid YAML", func(t *testing.T) {
		t.Parallel()

		path := writeConfig(t, "crawl: [unclosed")
		if _, err := LoadConfigFile(path); err == nil {
			t.Error("expected parse error")
		}
	})

	t.Run("rejects invalid values", func(t *testing.T) {
		t.Parallel()

		cases := map[string]string{
			"wait policy": "crawl:\n  waitPolicy: sometimes\n",
			"max pages":   "crawl:\n  maxPages: -3\n",
			"base url":    "harvest:\n  baseUrl: not a url\n",
			"seed":        "seed: \"not a url\"\n",
			"concurrency": "harvest:\n  concurrency: -1\n",
		}
		for name, content := range cases {
			path := writeConfig(t, content)
			if _, err := LoadConfigFile(path); err == nil {
				t.Errorf("%s: expected validation error", name)
			}
		}
	})
}

// TestLoadConfigFileExpandsEnv cannot run in parallel because it sets
// environment variables.
func TestLoadConfigFileExpandsEnv(t *testing.T) {
	t.Setenv("SITECRAWL_TEST_TOKEN", "from-env")

	path := writeConfig(t, "harvest:\n  headers:\n    Authorization: Bearer ${SITECRAWL_TEST_TOKEN}\n")
	cf, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := cf.Harvest.Headers["Authorization"]; got != "Bearer from-env" {
		t.Errorf("expected expanded header, got %q", got)
	}
}

// TestFileApply tests folding file values into a Config.
func TestFileApply(t *testing.T) {
	t.Parallel()

	t.Run("set values override defaults", func(t *testing.T) {
		t.Parallel()

		cf, err := LoadConfigFile(writeConfig(t, sampleFile))
		if err != nil {
			t.Fatal(err)
		}
		cfg := NewConfig()
		cf.Apply(cfg)

		if cfg.FrontierPath != "state/urls.json" || cfg.Seed != "https://www.example.com" || cfg.OutputDir != "out" {
			t.Errorf("paths not applied: %+v", cfg)
		}
		if cfg.NavigationTimeout != 30*time.Second || cfg.SettleDelay != 500*time.Millisecond {
			t.Errorf("durations not applied: %v %v", cfg.NavigationTimeout, cfg.SettleDelay)
		}
		if cfg.WaitPolicy != "load" || cfg.Language != "fr" || cfg.MaxPages != 25 {
			t.Errorf("crawl section not applied: %+v", cfg)
		}
		if cfg.Headless || cfg.UserAgent != "test-agent" {
			t.Errorf("browser section not applied: %+v", cfg)
		}
		if cfg.Harvest || cfg.DownloadConcurrency != 8 || cfg.DownloadRate != 2.5 || cfg.DownloadTimeout != 2*time.Minute {
			t.Errorf("harvest section not applied: %+v", cfg)
		}
		if cfg.ResourceBaseURL != "https://cdn.example.com/files" {
			t.Errorf("unexpected resource base %q", cfg.ResourceBaseURL)
		}
		if cfg.SaveToDB {
			t.Error("expected database disabled")
		}
		if err := cfg.Validate(); err != nil {
			t.Errorf("applied config invalid: %v", err)
		}
	})

	t.Run("empty file keeps defaults", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig()
		(&File{}).Apply(cfg)
		def := NewConfig()

		if cfg.FrontierPath != def.FrontierPath || cfg.NavigationTimeout != def.NavigationTimeout ||
			cfg.Headless != def.Headless || cfg.Harvest != def.Harvest || cfg.SaveToDB != def.SaveToDB {
			t.Errorf("defaults changed: %+v", cfg)
		}
	})

	t.Run("headers merge into existing headers", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig()
		cfg.DownloadHeaders = map[string]string{"A": "1", "B": "1"}
		(&File{Harvest: HarvestSection{Headers: map[string]string{"B": "2"}}}).Apply(cfg)

		if cfg.DownloadHeaders["A"] != "1" || cfg.DownloadHeaders["B"] != "2" {
			t.Errorf("unexpected headers %v", cfg.DownloadHeaders)
		}
	})
}

// TestFindConfigFile tests configuration file lookup.
func TestFindConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("returns explicit path if exists", func(t *testing.T) {
		t.Parallel()

		path := writeConfig(t, "seed: https://example.com\n")
		if got := FindConfigFile(path); got != path {
			t.Errorf("expected %q, got %q", path, got)
		}
	})

	t.Run("returns empty for non-existent explicit path", func(t *testing.T) {
		t.Parallel()

		if got := FindConfigFile(filepath.Join(t.TempDir(), "nope")); got != "" {
			t.Errorf("expected empty, got %q", got)
		}
	})
}

// TestXDGDirs tests the XDG helpers.
func TestXDGDirs(t *testing.T) {
	t.Parallel()

	for name, dir := range map[string]string{
		"data":   XDGDataDir(),
		"state":  XDGStateDir(),
		"config": XDGConfigDir(),
	} {
		if dir == "" || filepath.Base(dir) != AppName {
			t.Errorf("%s dir %q does not end in %s", name, dir, AppName)
		}
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), ".sitecrawl")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}
