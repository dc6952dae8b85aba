// Package config loads the server and CLI configuration from a YAML file,
// an optional .env file and BACKOFFICE_* environment variables, in that
// order of precedence (environment wins).
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-backoffice/pkg/authz"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "BACKOFFICE_"

// Config is the full runtime configuration.
type Config struct {
	Server      Server      `yaml:"server"`
	Backend     Backend     `yaml:"backend"`
	Forms       Forms       `yaml:"forms"`
	Uploads     Uploads     `yaml:"uploads"`
	Editable    Editable    `yaml:"editable"`
	Authz       Authz       `yaml:"authz"`
	Logging     Logging     `yaml:"logging"`
	Lookups     Lookups     `yaml:"lookups"`
	WalletPages WalletPages `yaml:"wallet"`
}

type Server struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	// RequestsPerSecond and Burst bound requests per client.
	RequestsPerSecond float64 `yaml:"requestsPerSecond"`
	Burst             int     `yaml:"burst"`
	// SessionTTL evicts idle form states, flash queues and limiters.
	SessionTTL time.Duration `yaml:"sessionTTL"`
}

type Backend struct {
	WorkflowURL string        `yaml:"workflowURL"`
	DataURL     string        `yaml:"dataURL"`
	SystemURL   string        `yaml:"systemURL"`
	CDNURL      string        `yaml:"cdnURL"`
	Timeout     time.Duration `yaml:"timeout"`
}

type Forms struct {
	// DefinitionsDir serves form definitions from disk instead of the data
	// service when set.
	DefinitionsDir string `yaml:"definitionsDir"`
	// LayoutsDir adds page documents to the embedded ones.
	LayoutsDir string `yaml:"layoutsDir"`
	// Lookups preloads these form codes to register their option sources.
	Lookups []string `yaml:"lookups"`
}

type Uploads struct {
	MaxBytes int64         `yaml:"maxBytes"`
	TTL      time.Duration `yaml:"ttl"`
}

type Editable struct {
	UnlockInterval time.Duration `yaml:"unlockInterval"`
	UnlockBurst    int           `yaml:"unlockBurst"`
}

type Authz struct {
	Mode       string   `yaml:"mode"`
	PolicyFile string   `yaml:"policyFile"`
	Policies   []string `yaml:"policies"`
}

type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type Lookups struct {
	DefaultLimit int `yaml:"defaultLimit"`
	MaxLimit     int `yaml:"maxLimit"`
}

type WalletPages struct {
	SummaryWorkflow string `yaml:"summaryWorkflow"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: Server{
			Addr:              ":8080",
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			ShutdownTimeout:   10 * time.Second,
			RequestsPerSecond: 20,
			Burst:             40,
			SessionTTL:        30 * time.Minute,
		},
		Backend:  Backend{Timeout: 30 * time.Second},
		Uploads:  Uploads{MaxBytes: 5 << 20, TTL: 30 * time.Minute},
		Editable: Editable{UnlockInterval: 10 * time.Second, UnlockBurst: 3},
		Authz:    Authz{Mode: string(authz.ModeDisabled)},
		Logging:  Logging{Level: "info", Format: "json"},
		Lookups:  Lookups{DefaultLimit: 20, MaxLimit: 100},
		WalletPages: WalletPages{
			SummaryWorkflow: "wallet.summary",
		},
	}
}

// Load reads path (optional), then envFile (optional, ignored when missing),
// then applies BACKOFFICE_* overrides from the process environment.
func Load(path, envFile string) (Config, error) {
	cfg := Default()
	if path = strings.TrimSpace(path); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	if envFile = strings.TrimSpace(envFile); envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("config: load %s: %w", envFile, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	var problems []string
	if strings.TrimSpace(c.Server.Addr) == "" {
		problems = append(problems, "server.addr is required")
	}
	for name, raw := range map[string]string{
		"backend.workflowURL": c.Backend.WorkflowURL,
		"backend.dataURL":     c.Backend.DataURL,
		"backend.systemURL":   c.Backend.SystemURL,
		"backend.cdnURL":      c.Backend.CDNURL,
	} {
		if raw == "" {
			continue
		}
		if u, err := url.Parse(raw); err != nil || u.Scheme == "" || u.Host == "" {
			problems = append(problems, fmt.Sprintf("%s must be an absolute URL", name))
		}
	}
	if c.Backend.DataURL == "" && c.Forms.DefinitionsDir == "" {
		problems = append(problems, "either backend.dataURL or forms.definitionsDir is required")
	}
	if _, err := authz.ParseMode(c.Authz.Mode); err != nil {
		problems = append(problems, err.Error())
	}
	if c.Server.RequestsPerSecond < 0 || c.Server.Burst < 0 {
		problems = append(problems, "server rate limits must not be negative")
	}
	if c.Uploads.MaxBytes <= 0 {
		problems = append(problems, "uploads.maxBytes must be positive")
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "json", "text":
	default:
		problems = append(problems, fmt.Sprintf("logging.format %q is not json or text", c.Logging.Format))
	}
	if len(problems) == 0 {
		return nil
	}
	sort.Strings(problems)
	return fmt.Errorf("config: %s", strings.Join(problems, "; "))
}

type lookupFunc func(string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	str := func(key string, dst *string) {
		if value, ok := lookup(EnvPrefix + key); ok {
			*dst = strings.TrimSpace(value)
		}
	}
	var errs []error
	dur := func(key string, dst *time.Duration) {
		if value, ok := lookup(EnvPrefix + key); ok {
			parsed, err := time.ParseDuration(strings.TrimSpace(value))
			if err != nil {
				errs = append(errs, fmt.Errorf("config: %s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = parsed
		}
	}
	num := func(key string, dst *int) {
		if value, ok := lookup(EnvPrefix + key); ok {
			parsed, err := strconv.Atoi(strings.TrimSpace(value))
			if err != nil {
				errs = append(errs, fmt.Errorf("config: %s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = parsed
		}
	}

	str("ADDR", &c.Server.Addr)
	dur("SESSION_TTL", &c.Server.SessionTTL)
	num("BURST", &c.Server.Burst)
	if value, ok := lookup(EnvPrefix + "REQUESTS_PER_SECOND"); ok {
		parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("config: %sREQUESTS_PER_SECOND: %w", EnvPrefix, err))
		} else {
			c.Server.RequestsPerSecond = parsed
		}
	}
	str("WORKFLOW_URL", &c.Backend.WorkflowURL)
	str("DATA_URL", &c.Backend.DataURL)
	str("SYSTEM_URL", &c.Backend.SystemURL)
	str("CDN_URL", &c.Backend.CDNURL)
	dur("BACKEND_TIMEOUT", &c.Backend.Timeout)
	str("DEFINITIONS_DIR", &c.Forms.DefinitionsDir)
	str("LAYOUTS_DIR", &c.Forms.LayoutsDir)
	str("AUTHZ_MODE", &c.Authz.Mode)
	str("AUTHZ_POLICY_FILE", &c.Authz.PolicyFile)
	str("LOG_LEVEL", &c.Logging.Level)
	str("LOG_FORMAT", &c.Logging.Format)
	return errors.Join(errs...)
}
