// Package config provides configuration loading and defaults for the dclist-mcp server.
package config

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"slices"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/jamesprial/dclist-go/transport"
)

// Environment variables read by ApplyEnvOverrides.
const (
	EnvToken          = "DCLIST_TOKEN"
	EnvGraphQLURL     = "DCLIST_GRAPHQL_URL"
	EnvSubscribeURL   = "DCLIST_SUBSCRIBE_URL"
	EnvForceWebSocket = "DCLIST_FORCE_WEBSOCKET"
	EnvBotID          = "DCLIST_BOT_ID"
	EnvOwnerID        = "DCLIST_OWNER_ID"
	EnvLogLevel       = "DCLIST_LOG_LEVEL"
	EnvServerMode     = "DCLIST_MCP_MODE"
	EnvServerToken    = "DCLIST_MCP_AUTH_TOKEN"
)

// Server modes.
const (
	ModeStdio = "stdio"
	ModeHTTP  = "http"
)

// ServerConfig selects how the MCP server is exposed. In http mode the
// endpoint is guarded by AuthToken and Prometheus metrics are served next
// to it.
type ServerConfig struct {
	Mode      string `yaml:"mode"`
	Port      int    `yaml:"port"`
	AuthToken string `yaml:"auth_token"`
}

// DCListConfig holds connection details for the dclist.net API.
type DCListConfig struct {
	Token          string `yaml:"token"`
	GraphQLURL     string `yaml:"graphql_url"`
	SubscribeURL   string `yaml:"subscribe_url"`
	ForceWebSocket bool   `yaml:"force_websocket"`
	// Timeout is the HTTP request timeout in seconds.
	Timeout int `yaml:"timeout"`
}

// BotConfig describes the bot the server speaks for. Ids are Discord
// snowflakes written as decimal strings.
type BotConfig struct {
	ID      string `yaml:"id"`
	OwnerID string `yaml:"owner_id"`
	Guilds  int    `yaml:"guilds"`
	Members int    `yaml:"members"`
}

// StatsConfig controls periodic stats posting.
type StatsConfig struct {
	// IntervalMinutes between posts. Zero disables the loop.
	IntervalMinutes int `yaml:"interval_minutes"`
	Shards          int `yaml:"shards"`
}

// ToolsConfig limits which MCP tools are registered. Both lists hold glob
// patterns matched against tool names; Deny wins over Allow and an empty
// Allow permits everything not denied.
type ToolsConfig struct {
	Allow []string `yaml:"allow"`
	Deny  []string `yaml:"deny"`
}

// AuditConfig controls audit logging behaviour.
type AuditConfig struct {
	Enabled bool   `yaml:"enabled"`
	LogPath string `yaml:"log_path"`
}

// LogConfig controls the server's slog handler.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Config is the top-level configuration structure for the dclist-mcp server.
type Config struct {
	Server ServerConfig `yaml:"server"`
	DCList DCListConfig `yaml:"dclist"`
	Bot    BotConfig    `yaml:"bot"`
	Stats  StatsConfig  `yaml:"stats"`
	Tools  ToolsConfig  `yaml:"tools"`
	Audit  AuditConfig  `yaml:"audit"`
	Log    LogConfig    `yaml:"log"`
}

// LoadConfig reads a YAML configuration file from the given path on top of
// DefaultConfig, so settings the file omits keep their defaults. On error,
// nil is returned for the config pointer.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns a new Config populated with sensible default values.
// Each call returns a distinct instance.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Mode: ModeStdio,
			Port: 8080,
		},
		DCList: DCListConfig{
			GraphQLURL:   transport.DefaultHTTPURL,
			SubscribeURL: transport.DefaultWebSocketURL,
			Timeout:      30,
		},
		Stats: StatsConfig{
			IntervalMinutes: 30,
			Shards:          1,
		},
		Audit: AuditConfig{
			Enabled: true,
			LogPath: "dclist-audit.log",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// LoadEnvFile loads KEY=VALUE pairs from path into the process environment
// without overriding variables that are already set. A missing file is not
// an error.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// ApplyEnvOverrides updates cfg in place with values from environment variables.
// Recognized variables:
//   - DCLIST_TOKEN overrides cfg.DCList.Token
//   - DCLIST_GRAPHQL_URL overrides cfg.DCList.GraphQLURL
//   - DCLIST_SUBSCRIBE_URL overrides cfg.DCList.SubscribeURL
//   - DCLIST_FORCE_WEBSOCKET overrides cfg.DCList.ForceWebSocket
//   - DCLIST_BOT_ID overrides cfg.Bot.ID
//   - DCLIST_OWNER_ID overrides cfg.Bot.OwnerID
//   - DCLIST_LOG_LEVEL overrides cfg.Log.Level
//   - DCLIST_MCP_MODE overrides cfg.Server.Mode
//   - DCLIST_MCP_AUTH_TOKEN overrides cfg.Server.AuthToken
//
// A DCLIST_FORCE_WEBSOCKET value that is not a boolean is reported and leaves
// cfg untouched for that field.
func ApplyEnvOverrides(cfg *Config) error {
	if token := os.Getenv(EnvToken); token != "" {
		cfg.DCList.Token = token
	}
	if url := os.Getenv(EnvGraphQLURL); url != "" {
		cfg.DCList.GraphQLURL = url
	}
	if url := os.Getenv(EnvSubscribeURL); url != "" {
		cfg.DCList.SubscribeURL = url
	}
	if id := os.Getenv(EnvBotID); id != "" {
		cfg.Bot.ID = id
	}
	if id := os.Getenv(EnvOwnerID); id != "" {
		cfg.Bot.OwnerID = id
	}
	if level := os.Getenv(EnvLogLevel); level != "" {
		cfg.Log.Level = level
	}
	if mode := os.Getenv(EnvServerMode); mode != "" {
		cfg.Server.Mode = mode
	}
	if token := os.Getenv(EnvServerToken); token != "" {
		cfg.Server.AuthToken = token
	}
	if v := os.Getenv(EnvForceWebSocket); v != "" {
		force, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvForceWebSocket, err)
		}
		cfg.DCList.ForceWebSocket = force
	}
	return nil
}

// Validate reports the first setting that cannot be used.
func (c *Config) Validate() error {
	switch c.Server.Mode {
	case ModeStdio:
	case ModeHTTP:
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			return fmt.Errorf("server.port out of range: %d", c.Server.Port)
		}
	default:
		return fmt.Errorf("server.mode must be %q or %q, got %q", ModeStdio, ModeHTTP, c.Server.Mode)
	}
	if c.DCList.GraphQLURL == "" {
		return errors.New("dclist.graphql_url is required")
	}
	if c.DCList.SubscribeURL == "" {
		return errors.New("dclist.subscribe_url is required")
	}
	if c.DCList.Timeout < 0 {
		return fmt.Errorf("dclist.timeout must not be negative, got %d", c.DCList.Timeout)
	}
	if _, _, err := c.Bot.IDs(); err != nil {
		return err
	}
	if c.Stats.IntervalMinutes < 0 {
		return fmt.Errorf("stats.interval_minutes must not be negative, got %d", c.Stats.IntervalMinutes)
	}
	for _, pattern := range append(slices.Clone(c.Tools.Allow), c.Tools.Deny...) {
		if _, err := path.Match(pattern, ""); err != nil {
			return fmt.Errorf("tools: pattern %q: %w", pattern, err)
		}
	}
	if c.Audit.Enabled && c.Audit.LogPath == "" {
		return errors.New("audit.log_path is required when audit is enabled")
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// IDs parses the configured bot and owner ids. Empty ids parse as zero.
func (b BotConfig) IDs() (bot, owner snowflake.ID, err error) {
	if bot, err = parseID("bot.id", b.ID); err != nil {
		return 0, 0, err
	}
	if owner, err = parseID("bot.owner_id", b.OwnerID); err != nil {
		return 0, 0, err
	}
	return bot, owner, nil
}

func parseID(field, s string) (snowflake.ID, error) {
	if s == "" {
		return 0, nil
	}
	id, err := snowflake.ParseString(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%s: invalid snowflake %q: %w", field, s, err)
	}
	return id, nil
}

// SlogLevel maps the configured level name onto a slog.Level. An empty name
// is Info.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if l.Level == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}

// EnsureAuthToken sets a random token on cfg.Server when none is configured.
// It returns the token in effect and whether it was generated.
func EnsureAuthToken(cfg *Config) (token string, generated bool) {
	if cfg.Server.AuthToken != "" {
		return cfg.Server.AuthToken, false
	}
	cfg.Server.AuthToken = rand.Text()
	return cfg.Server.AuthToken, true
}
