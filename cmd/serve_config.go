package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/giantswarm/mcp-proxmox/internal/logging"
	"github.com/giantswarm/mcp-proxmox/internal/proxmox"
	"github.com/giantswarm/mcp-proxmox/internal/server"
	"github.com/giantswarm/mcp-proxmox/internal/server/middleware"
)

// Transport type constants for the MCP server.
const (
	transportStdio          = "stdio"
	transportSSE            = "sse"
	transportStreamableHTTP = "streamable-http"
)

// Environment variables read when the matching flag is not set.
const (
	envHost           = "PROXMOX_HOST"
	envUser           = "PROXMOX_USER"
	envTokenID        = "PROXMOX_TOKEN_ID"
	envTokenName      = "PROXMOX_TOKEN_NAME"
	envTokenSecret    = "PROXMOX_TOKEN_SECRET"
	envTokenValue     = "PROXMOX_TOKEN_VALUE"
	envVerifySSL      = "PROXMOX_VERIFY_SSL"
	envTimeout        = "PROXMOX_TIMEOUT"
	envQPSLimit       = "PROXMOX_QPS_LIMIT"
	envBurstLimit     = "PROXMOX_BURST_LIMIT"
	envMaxConcurrency = "PROXMOX_MAX_CONCURRENCY"
	envLogLevel       = "LOG_LEVEL"
	envLogFormat      = "LOG_FORMAT"
	envReadOnly       = "MCP_READ_ONLY"
	envAllowedOrigins = "MCP_ALLOWED_ORIGINS"
	envEnableHSTS     = "ENABLE_HSTS"
	envConfigFile     = "MCP_PROXMOX_CONFIG"
)

// ServeConfig holds all configuration for the serve, call and shell commands.
type ServeConfig struct {
	// Transport settings
	Transport string
	HTTPAddr  string

	// Endpoint paths
	SSEEndpoint     string
	MessageEndpoint string
	HTTPEndpoint    string

	// ConfigFile is an optional YAML file with connection settings.
	ConfigFile string

	Proxmox ProxmoxServeConfig

	ReadOnly       bool
	MaxConcurrency int
	LogLevel       string
	LogFormat      string

	// HTTP hardening
	AllowedOrigins string
	EnableHSTS     bool

	Metrics MetricsServeConfig
}

// ProxmoxServeConfig holds the upstream connection settings.
type ProxmoxServeConfig struct {
	Host        string
	User        string
	TokenID     string
	TokenSecret string
	VerifySSL   bool
	Timeout     time.Duration
	QPSLimit    float64
	BurstLimit  int
}

// MetricsServeConfig holds configuration for the dedicated metrics listener.
type MetricsServeConfig struct {
	Enabled bool
	Addr    string
}

// ClientConfig converts the connection settings for proxmox.NewClient.
func (p ProxmoxServeConfig) ClientConfig() proxmox.ClientConfig {
	return proxmox.ClientConfig{
		Host:        p.Host,
		User:        p.User,
		TokenID:     p.TokenID,
		TokenSecret: p.TokenSecret,
		VerifyTLS:   p.VerifySSL,
		Timeout:     p.Timeout,
		QPSLimit:    p.QPSLimit,
		BurstLimit:  p.BurstLimit,
	}
}

// Validate checks server-level settings. Problems here are fatal; missing
// connection parameters are not checked because they only degrade the server.
func (c ServeConfig) Validate() error {
	switch c.Transport {
	case transportStdio, transportSSE, transportStreamableHTTP:
	default:
		return fmt.Errorf("unsupported transport type: %s (supported: %s, %s, %s)",
			c.Transport, transportStdio, transportSSE, transportStreamableHTTP)
	}

	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}

	switch strings.ToLower(c.LogFormat) {
	case logging.FormatText, logging.FormatJSON:
	default:
		return fmt.Errorf("unknown log format %q (supported: %s, %s)", c.LogFormat, logging.FormatText, logging.FormatJSON)
	}

	if c.MaxConcurrency < 1 {
		return fmt.Errorf("max concurrency must be at least 1, got %d", c.MaxConcurrency)
	}

	if c.Transport != transportStdio {
		if _, err := middleware.ValidateAllowedOrigins(c.AllowedOrigins); err != nil {
			return fmt.Errorf("invalid %s: %w", envAllowedOrigins, err)
		}
	}

	return nil
}

// fileConfig is the on-disk shape of --config.
type fileConfig struct {
	Proxmox struct {
		Host           string  `yaml:"host"`
		User           string  `yaml:"user"`
		TokenID        string  `yaml:"token_id"`
		TokenSecret    string  `yaml:"token_secret"`
		VerifySSL      *bool   `yaml:"verify_ssl"`
		Timeout        string  `yaml:"timeout"`
		QPSLimit       float64 `yaml:"qps_limit"`
		BurstLimit     int     `yaml:"burst_limit"`
		MaxConcurrency int     `yaml:"max_concurrency"`
	} `yaml:"proxmox"`

	ReadOnly  *bool  `yaml:"read_only"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// loadConfigFile reads a YAML config file. An empty path yields an empty
// config. Unknown keys are rejected so typos do not pass silently.
func loadConfigFile(path string) (fileConfig, error) {
	var fc fileConfig
	if path == "" {
		return fc, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return fc, fmt.Errorf("failed to open config file: %w", err)
	}
	defer func() { _ = f.Close() }()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil && !errors.Is(err, io.EOF) {
		return fc, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return fc, nil
}

// addConnectionFlags registers the flags shared by every command that talks
// to the cluster.
func addConnectionFlags(cmd *cobra.Command, config *ServeConfig) {
	flags := cmd.Flags()

	flags.StringVar(&config.ConfigFile, "config", "", "Path to a YAML config file (can also be set via "+envConfigFile+")")
	flags.StringVar(&config.Proxmox.Host, "proxmox-host", "", "Proxmox VE host, e.g. pve1 or https://10.0.0.5:8006 (env "+envHost+")")
	flags.StringVar(&config.Proxmox.User, "proxmox-user", proxmox.DefaultUser, "User owning the API token (env "+envUser+")")
	flags.StringVar(&config.Proxmox.TokenID, "proxmox-token-id", "", "API token id (env "+envTokenID+" or "+envTokenName+")")
	flags.StringVar(&config.Proxmox.TokenSecret, "proxmox-token-secret", "", "API token secret (env "+envTokenSecret+" or "+envTokenValue+")")
	flags.BoolVar(&config.Proxmox.VerifySSL, "verify-ssl", false, "Verify the cluster TLS certificate (env "+envVerifySSL+")")
	flags.DurationVar(&config.Proxmox.Timeout, "timeout", proxmox.DefaultTimeout, "Per-request timeout (env "+envTimeout+")")
	flags.Float64Var(&config.Proxmox.QPSLimit, "qps-limit", proxmox.DefaultQPSLimit, "QPS limit for Proxmox API calls (env "+envQPSLimit+")")
	flags.IntVar(&config.Proxmox.BurstLimit, "burst-limit", proxmox.DefaultBurstLimit, "Burst limit for Proxmox API calls (env "+envBurstLimit+")")
	flags.IntVar(&config.MaxConcurrency, "max-concurrency", server.DefaultMaxConcurrency, "Maximum concurrent per-node requests during fan-out (env "+envMaxConcurrency+")")
	flags.BoolVar(&config.ReadOnly, "read-only", false, "Refuse power, exec and snapshot tools (env "+envReadOnly+")")
	flags.StringVar(&config.LogLevel, "log-level", "info", "Log level: debug, info, warn or error (env "+envLogLevel+")")
	flags.StringVar(&config.LogFormat, "log-format", logging.FormatText, "Log format: text or json (env "+envLogFormat+")")
}

// resolveConfig fills every setting whose flag was not given from the
// environment, then from the config file. Precedence is flag, env, file,
// flag default.
func resolveConfig(cmd *cobra.Command, config *ServeConfig) error {
	changed := cmd.Flags().Changed

	if !changed("config") {
		loadEnvIfEmpty(&config.ConfigFile, envConfigFile)
	}
	fc, err := loadConfigFile(config.ConfigFile)
	if err != nil {
		return err
	}

	if changed("proxmox-token-secret") {
		slog.Warn("Proxmox token secret provided via CLI flag; it may be visible in process listings, prefer " + envTokenSecret)
	}

	p := &config.Proxmox
	resolveString(changed("proxmox-host"), &p.Host, fc.Proxmox.Host, envHost)
	resolveString(changed("proxmox-user"), &p.User, fc.Proxmox.User, envUser)
	resolveString(changed("proxmox-token-id"), &p.TokenID, fc.Proxmox.TokenID, envTokenID, envTokenName)
	resolveString(changed("proxmox-token-secret"), &p.TokenSecret, fc.Proxmox.TokenSecret, envTokenSecret, envTokenValue)
	resolveBool(changed("verify-ssl"), &p.VerifySSL, fc.Proxmox.VerifySSL, envVerifySSL)
	resolveFloat(changed("qps-limit"), &p.QPSLimit, fc.Proxmox.QPSLimit, envQPSLimit)
	resolveInt(changed("burst-limit"), &p.BurstLimit, fc.Proxmox.BurstLimit, envBurstLimit)
	resolveInt(changed("max-concurrency"), &config.MaxConcurrency, fc.Proxmox.MaxConcurrency, envMaxConcurrency)
	resolveBool(changed("read-only"), &config.ReadOnly, fc.ReadOnly, envReadOnly)
	resolveString(changed("log-level"), &config.LogLevel, fc.LogLevel, envLogLevel)
	resolveString(changed("log-format"), &config.LogFormat, fc.LogFormat, envLogFormat)

	if !changed("timeout") {
		if d, ok := parseDurationEnv(os.Getenv(envTimeout), envTimeout); ok {
			p.Timeout = d
		} else if fc.Proxmox.Timeout != "" {
			d, err := time.ParseDuration(fc.Proxmox.Timeout)
			if err != nil {
				return fmt.Errorf("invalid timeout %q in config file: %w", fc.Proxmox.Timeout, err)
			}
			p.Timeout = d
		}
	}

	loadEnvIfEmpty(&config.AllowedOrigins, envAllowedOrigins)
	if !config.EnableHSTS {
		config.EnableHSTS, _ = parseBoolEnv(os.Getenv(envEnableHSTS), envEnableHSTS)
	}

	return nil
}

// loadEnvIfEmpty loads an environment variable into target if target is empty.
func loadEnvIfEmpty(target *string, envKey string) {
	if *target == "" {
		*target = os.Getenv(envKey)
	}
}

func resolveString(flagSet bool, target *string, fileValue string, envKeys ...string) {
	if flagSet {
		return
	}
	for _, key := range envKeys {
		if v := os.Getenv(key); v != "" {
			*target = v
			return
		}
	}
	if fileValue != "" {
		*target = fileValue
	}
}

func resolveBool(flagSet bool, target *bool, fileValue *bool, envKey string) {
	if flagSet {
		return
	}
	if v, ok := parseBoolEnv(os.Getenv(envKey), envKey); ok {
		*target = v
		return
	}
	if fileValue != nil {
		*target = *fileValue
	}
}

func resolveInt(flagSet bool, target *int, fileValue int, envKey string) {
	if flagSet {
		return
	}
	if v, ok := parseIntEnv(os.Getenv(envKey), envKey); ok {
		*target = v
		return
	}
	if fileValue != 0 {
		*target = fileValue
	}
}

func resolveFloat(flagSet bool, target *float64, fileValue float64, envKey string) {
	if flagSet {
		return
	}
	if v, ok := parseFloatEnv(os.Getenv(envKey), envKey); ok {
		*target = v
		return
	}
	if fileValue != 0 {
		*target = fileValue
	}
}

// parseDurationEnv parses a duration from an environment variable value.
// An invalid value is logged and ignored.
func parseDurationEnv(value, envName string) (time.Duration, bool) {
	if value == "" {
		return 0, false
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		slog.Warn("ignoring invalid duration", "env", envName, "value", value, "error", err)
		return 0, false
	}
	return d, true
}

// parseIntEnv parses an integer from an environment variable value.
// An invalid value is logged and ignored.
func parseIntEnv(value, envName string) (int, bool) {
	if value == "" {
		return 0, false
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		slog.Warn("ignoring invalid integer", "env", envName, "value", value, "error", err)
		return 0, false
	}
	return n, true
}

func parseFloatEnv(value, envName string) (float64, bool) {
	if value == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		slog.Warn("ignoring invalid float", "env", envName, "value", value, "error", err)
		return 0, false
	}
	return f, true
}

// parseBoolEnv accepts the strconv.ParseBool spellings plus yes/no and on/off.
func parseBoolEnv(value, envName string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "":
		return false, false
	case "yes", "on":
		return true, true
	case "no", "off":
		return false, true
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		slog.Warn("ignoring invalid boolean", "env", envName, "value", value, "error", err)
		return false, false
	}
	return b, true
}
