package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Catalog source kinds.
const (
	SourceFile     = "file"
	SourcePostgres = "postgres"
)

// Audit sink kinds.
const (
	AuditNone     = "none"
	AuditLog      = "log"
	AuditPostgres = "postgres"
	AuditSQLite   = "sqlite"
)

// Config holds all runtime configuration for a codesuggest run. DSN and the
// logging fields come from flags; the sections come from the YAML file.
type Config struct {
	DSN       string `yaml:"-"`
	LogFormat string `yaml:"-"` // "text" or "json"
	LogLevel  string `yaml:"log_level"`

	Catalog   CatalogConfig   `yaml:"catalog"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Semantic  SemanticConfig  `yaml:"semantic"`
	Rules     RulesConfig     `yaml:"rules"`
	Suggest   SuggestConfig   `yaml:"suggest"`
	Audit     AuditConfig     `yaml:"audit"`
	Server    ServerConfig    `yaml:"server"`
}

// CatalogConfig selects where items and rules are loaded from.
type CatalogConfig struct {
	Source    string        `yaml:"source"` // "file" or "postgres"
	ItemsPath string        `yaml:"items_path"`
	RulesPath string        `yaml:"rules_path"`
	Watch     bool          `yaml:"watch"`
	Debounce  time.Duration `yaml:"debounce"`
}

// RetrievalConfig tunes lexical/semantic fusion.
type RetrievalConfig struct {
	// RerankWeight is the semantic share of the fused score. 0 turns fusion
	// off; unset means 0.6.
	RerankWeight *float64 `yaml:"rerank_weight"`
}

// SemanticConfig configures the external semantic retrieval service.
type SemanticConfig struct {
	Enabled    bool          `yaml:"enabled"`
	URL        string        `yaml:"url"`
	APIKey     string        `yaml:"api_key"`
	Timeout    time.Duration `yaml:"timeout"`
	Candidates int           `yaml:"candidates"`
}

// RulesConfig controls rule evaluation.
type RulesConfig struct {
	// StrictUnknownKinds fails rules of unknown kind instead of passing them.
	StrictUnknownKinds bool `yaml:"strict_unknown_kinds"`
}

// SuggestConfig tunes the response.
type SuggestConfig struct {
	DefaultTopK            int     `yaml:"default_top_k"`
	MaxEvidence            int     `yaml:"max_evidence"`
	LowConfidenceThreshold float64 `yaml:"low_confidence_threshold"`
}

// AuditConfig selects and tunes the audit sink.
type AuditConfig struct {
	Sink          string        `yaml:"sink"`
	SQLitePath    string        `yaml:"sqlite_path"`
	IncludeNote   bool          `yaml:"include_note"`
	Buffer        int           `yaml:"buffer"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Default returns a Config with every default applied.
func Default() *Config {
	c := &Config{}
	c.ApplyDefaults()
	return c
}

// LoadFromFile reads a YAML config file and merges its values into Config.
// Fields absent from the file keep their current values.
func (c *Config) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	c.ApplyDefaults()
	return c.Validate()
}

// ApplyDefaults fills zero values. The semantic API key falls back to
// CODESUGGEST_SEMANTIC_API_KEY.
func (c *Config) ApplyDefaults() {
	if c.LogFormat == "" {
		c.LogFormat = "text"
	}
	if c.Catalog.Source == "" {
		c.Catalog.Source = SourceFile
	}
	if c.Catalog.Debounce == 0 {
		c.Catalog.Debounce = 250 * time.Millisecond
	}
	if c.Retrieval.RerankWeight == nil {
		w := 0.6
		c.Retrieval.RerankWeight = &w
	}
	if c.Semantic.Timeout == 0 {
		c.Semantic.Timeout = 800 * time.Millisecond
	}
	if c.Semantic.Candidates == 0 {
		c.Semantic.Candidates = 20
	}
	if c.Semantic.APIKey == "" {
		c.Semantic.APIKey = os.Getenv("CODESUGGEST_SEMANTIC_API_KEY")
	}
	if c.Suggest.DefaultTopK == 0 {
		c.Suggest.DefaultTopK = 5
	}
	if c.Suggest.MaxEvidence == 0 {
		c.Suggest.MaxEvidence = 8
	}
	if c.Suggest.LowConfidenceThreshold == 0 {
		c.Suggest.LowConfidenceThreshold = 0.5
	}
	if c.Audit.Sink == "" {
		c.Audit.Sink = AuditLog
	}
	if c.Audit.Buffer == 0 {
		c.Audit.Buffer = 1024
	}
	if c.Audit.BatchSize == 0 {
		c.Audit.BatchSize = 64
	}
	if c.Audit.FlushInterval == 0 {
		c.Audit.FlushInterval = time.Second
	}
	if c.Server.Host == "" {
		c.Server.Host = "localhost"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
}

// Validate checks field ranges and enum values.
func (c *Config) Validate() error {
	switch c.Catalog.Source {
	case SourceFile, SourcePostgres:
	default:
		return fmt.Errorf("unknown catalog source %q", c.Catalog.Source)
	}
	if w := c.Retrieval.RerankWeight; w != nil && (*w < 0 || *w > 1) {
		return fmt.Errorf("retrieval.rerank_weight must be within [0,1], got %v", *w)
	}
	if c.Semantic.Enabled && c.Semantic.URL == "" {
		return fmt.Errorf("semantic.url is required when semantic retrieval is enabled")
	}
	if c.Suggest.DefaultTopK < 1 || c.Suggest.DefaultTopK > 20 {
		return fmt.Errorf("suggest.default_top_k must be within [1,20], got %d", c.Suggest.DefaultTopK)
	}
	switch c.Audit.Sink {
	case AuditNone, AuditLog, AuditPostgres:
	case AuditSQLite:
		if c.Audit.SQLitePath == "" {
			return fmt.Errorf("audit.sqlite_path is required for the sqlite sink")
		}
	default:
		return fmt.Errorf("unknown audit sink %q", c.Audit.Sink)
	}
	return nil
}

// ValidateCatalogFiles checks that the file catalog paths are set and
// readable.
func (c *Config) ValidateCatalogFiles() error {
	if c.Catalog.ItemsPath == "" || c.Catalog.RulesPath == "" {
		return fmt.Errorf("--items and --rules are required")
	}
	for _, p := range []string{c.Catalog.ItemsPath, c.Catalog.RulesPath} {
		if _, err := os.Stat(p); err != nil {
			return fmt.Errorf("file not accessible: %w", err)
		}
	}
	return nil
}

// ValidateWithDSN checks the config and requires a DSN whenever Postgres is
// in use.
func (c *Config) ValidateWithDSN() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.DSN == "" && (c.Catalog.Source == SourcePostgres || c.Audit.Sink == AuditPostgres) {
		return fmt.Errorf("--dsn or CODESUGGEST_DB_URL is required")
	}
	return nil
}
