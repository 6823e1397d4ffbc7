package config

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// File is the structure of the .sitecrawl YAML configuration file.
// Every field is optional; unset fields leave the defaults untouched.
type File struct {
	// Frontier is the frontier document path.
	Frontier string `yaml:"frontier,omitempty"`

	// Seed is the first URL of a new crawl.
	Seed string `yaml:"seed,omitempty"`

	// OutputDir receives the per-site artifact tree.
	OutputDir string `yaml:"outputDir,omitempty"`

	// LogDir receives per-page error logs.
	LogDir string `yaml:"logDir,omitempty"`

	Crawl    CrawlSection    `yaml:"crawl,omitempty"`
	Browser  BrowserSection  `yaml:"browser,omitempty"`
	Harvest  HarvestSection  `yaml:"harvest,omitempty"`
	Database DatabaseSection `yaml:"database,omitempty"`
}

// CrawlSection configures page rendering and filtering.
type CrawlSection struct {
	NavigationTimeout time.Duration `yaml:"navigationTimeout,omitempty"`
	SettleDelay       time.Duration `yaml:"settleDelay,omitempty"`
	WaitPolicy        string        `yaml:"waitPolicy,omitempty"`
	ReadySelector     string        `yaml:"readySelector,omitempty"`
	Language          string        `yaml:"language,omitempty"`
	LanguageFamily    *bool         `yaml:"languageFamily,omitempty"`
	ScriptHost        string        `yaml:"scriptHost,omitempty"`
	MaxPages          int           `yaml:"maxPages,omitempty"`
}

// Validate validates the crawl section.
func (s *CrawlSection) Validate() error {
	return validation.ValidateStruct(s,
		validation.Field(&s.NavigationTimeout, validation.Min(time.Duration(0))),
		validation.Field(&s.SettleDelay, validation.Min(time.Duration(0))),
		validation.Field(&s.WaitPolicy, validation.In("networkidle", "load", "domcontentloaded")),
		validation.Field(&s.Language, validation.Length(2, 35)),
		validation.Field(&s.ScriptHost, is.Host),
		validation.Field(&s.MaxPages, validation.Min(0)),
	)
}

// BrowserSection configures the headless browser.
type BrowserSection struct {
	// Headless is a pointer so an explicit false can be told from unset.
	Headless  *bool  `yaml:"headless,omitempty"`
	UserAgent string `yaml:"userAgent,omitempty"`
	Proxy     string `yaml:"proxy,omitempty"`
	ExecPath  string `yaml:"execPath,omitempty"`
}

// HarvestSection configures the resource harvester.
type HarvestSection struct {
	Enabled     *bool             `yaml:"enabled,omitempty"`
	Pattern     string            `yaml:"pattern,omitempty"`
	BaseURL     string            `yaml:"baseUrl,omitempty"`
	Concurrency int               `yaml:"concurrency,omitempty"`
	Rate        float64           `yaml:"rate,omitempty"`
	Timeout     time.Duration     `yaml:"timeout,omitempty"`
	Proxy       string            `yaml:"proxy,omitempty"`
	MaxSize     int64             `yaml:"maxSize,omitempty"`
	Headers     map[string]string `yaml:"headers,omitempty"`
}

// Validate validates the harvest section.
func (s *HarvestSection) Validate() error {
	return validation.ValidateStruct(s,
		validation.Field(&s.BaseURL, is.URL),
		validation.Field(&s.Concurrency, validation.Min(0)),
		validation.Field(&s.Rate, validation.Min(0.0)),
		validation.Field(&s.Timeout, validation.Min(time.Duration(0))),
		validation.Field(&s.Proxy, is.DialString),
		validation.Field(&s.MaxSize, validation.Min(int64(0))),
	)
}

// DatabaseSection configures the crawl database.
type DatabaseSection struct {
	Enabled *bool  `yaml:"enabled,omitempty"`
	Dir     string `yaml:"dir,omitempty"`
}

// Validate validates the whole file.
func (f *File) Validate() error {
	if err := validation.ValidateStruct(f,
		validation.Field(&f.Seed, is.URL),
	); err != nil {
		return err
	}
	if err := f.Crawl.Validate(); err != nil {
		return err
	}
	return f.Harvest.Validate()
}

// Apply copies every value set in the file into cfg.
func (f *File) Apply(cfg *Config) {
	setString(&cfg.FrontierPath, f.Frontier)
	setString(&cfg.Seed, f.Seed)
	setString(&cfg.OutputDir, f.OutputDir)
	setString(&cfg.LogDir, f.LogDir)

	if f.Crawl.NavigationTimeout > 0 {
		cfg.NavigationTimeout = f.Crawl.NavigationTimeout
	}
	if f.Crawl.SettleDelay > 0 {
		cfg.SettleDelay = f.Crawl.SettleDelay
	}
	setString(&cfg.WaitPolicy, f.Crawl.WaitPolicy)
	setString(&cfg.ReadySelector, f.Crawl.ReadySelector)
	setString(&cfg.Language, f.Crawl.Language)
	if f.Crawl.LanguageFamily != nil {
		cfg.LanguageFamily = *f.Crawl.LanguageFamily
	}
	setString(&cfg.ScriptHost, f.Crawl.ScriptHost)
	if f.Crawl.MaxPages > 0 {
		cfg.MaxPages = f.Crawl.MaxPages
	}

	if f.Browser.Headless != nil {
		cfg.Headless = *f.Browser.Headless
	}
	setString(&cfg.UserAgent, f.Browser.UserAgent)
	setString(&cfg.BrowserProxy, f.Browser.Proxy)
	setString(&cfg.ChromePath, f.Browser.ExecPath)

	if f.Harvest.Enabled != nil {
		cfg.Harvest = *f.Harvest.Enabled
	}
	setString(&cfg.ResourcePattern, f.Harvest.Pattern)
	setString(&cfg.ResourceBaseURL, f.Harvest.BaseURL)
	if f.Harvest.Concurrency > 0 {
		cfg.DownloadConcurrency = f.Harvest.Concurrency
	}
	if f.Harvest.Rate > 0 {
		cfg.DownloadRate = f.Harvest.Rate
	}
	if f.Harvest.Timeout > 0 {
		cfg.DownloadTimeout = f.Harvest.Timeout
	}
	setString(&cfg.DownloadProxy, f.Harvest.Proxy)
	if f.Harvest.MaxSize > 0 {
		cfg.MaxDownloadSize = f.Harvest.MaxSize
	}
	if len(f.Harvest.Headers) > 0 {
		if cfg.DownloadHeaders == nil {
			cfg.DownloadHeaders = make(map[string]string, len(f.Harvest.Headers))
		}
		for k, v := range f.Harvest.Headers {
			cfg.DownloadHeaders[k] = v
		}
	}

	if f.Database.Enabled != nil {
		cfg.SaveToDB = *f.Database.Enabled
	}
	setString(&cfg.DBDir, f.Database.Dir)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
