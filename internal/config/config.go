// Package config loads and validates the gateway's config.toml.
package config

import (
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/pelletier/go-toml"
)

// ProviderDefaults carries the model/provider choice used when a client
// (or messenger envelope) does not override them per-request.
type ProviderDefaults struct {
	Provider    string  `toml:"provider"`
	Model       string  `toml:"model"`
	BaseURL     string  `toml:"base_url"`
	MaxTokens   int     `toml:"max_tokens"`
	Temperature float64 `toml:"temperature"`
}

// VaultConfig selects how the secrets vault is encrypted.
type VaultConfig struct {
	Path       string `toml:"path"`
	Mode       string `toml:"mode"` // "passphrase" or "keyfile"
	KeyfilePath string `toml:"keyfile_path"`
}

// MessengerConfig enables and configures one external chat platform.
type MessengerConfig struct {
	Enabled     bool   `toml:"enabled"`
	ListenAddr  string `toml:"listen_addr"`  // webhook only
	ReplyURL    string `toml:"reply_url"`    // webhook only
	Homeserver  string `toml:"homeserver"`   // matrix only
	UserID      string `toml:"user_id"`      // matrix only
	ChannelIDs  []string `toml:"channel_ids"` // discord only
	Account     string `toml:"account"`      // signal only
	CLIPath     string `toml:"cli_path"`     // signal only
}

// MessengersConfig is the configuration-driven enablement table spec.md
// §4.8 describes: one entry per supported transport.
type MessengersConfig struct {
	Telegram MessengerConfig `toml:"telegram"`
	Discord  MessengerConfig `toml:"discord"`
	Matrix   MessengerConfig `toml:"matrix"`
	Webhook  MessengerConfig `toml:"webhook"`
	Signal   MessengerConfig `toml:"signal"`
}

// Config is the single root configuration object, loaded from config.toml
// and overlaid with environment variables for credentials.
type Config struct {
	SettingsDir string `toml:"settings_dir"`
	ListenAddr  string `toml:"listen_addr"`

	Provider ProviderDefaults `toml:"provider"`
	Vault    VaultConfig      `toml:"vault"`

	SkillsDir string `toml:"skills_dir"`
	MaxRounds int     `toml:"max_rounds"`

	Messengers MessengersConfig `toml:"messengers"`

	LogLevel string `toml:"log_level"`

	// Credentials populated from environment, never persisted back to
	// config.toml.
	Credentials Credentials `toml:"-"`
}

// Credentials holds secrets that are resolved from the environment at load
// time rather than written into config.toml.
type Credentials struct {
	AnthropicAPIKey string
	OpenAIAPIKey    string
	GoogleAPIKey    string
	TelegramToken   string
	DiscordToken    string
	WebhookURL      string
	BraveAPIKey     string
}

// Load reads path as TOML, applies defaults, overlays environment
// variables, and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.overlayEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a Config populated with the gateway's baseline defaults,
// the starting point both Load and config.toml generation build on.
func Default() *Config {
	return &Config{
		SettingsDir: defaultSettingsDir(),
		ListenAddr:  "127.0.0.1:8787",
		Provider: ProviderDefaults{
			Provider:    "anthropic",
			MaxTokens:   4096,
			Temperature: 0.7,
		},
		Vault:     VaultConfig{Mode: "keyfile"},
		SkillsDir: "skills",
		MaxRounds: 25,
		LogLevel:  "info",
	}
}

func defaultSettingsDir() string {
	if dir := os.Getenv("AGENTRUN_SETTINGS_DIR"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".agentrun"
	}
	return home + "/.agentrun"
}

// overlayEnv fills in Credentials from the process environment; per §6
// these are never read out of config.toml itself.
func (c *Config) overlayEnv() {
	c.Credentials = Credentials{
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		GoogleAPIKey:    os.Getenv("GOOGLE_API_KEY"),
		TelegramToken:   os.Getenv("TELEGRAM_BOT_TOKEN"),
		DiscordToken:    os.Getenv("DISCORD_BOT_TOKEN"),
		WebhookURL:      os.Getenv("WEBHOOK_URL"),
		BraveAPIKey:     os.Getenv("BRAVE_API_KEY"),
	}
	if dir := os.Getenv("AGENTRUN_SETTINGS_DIR"); dir != "" {
		c.SettingsDir = dir
	}
}

// Validate checks the fields spec.md §7 names as fatal config errors:
// invalid listen address, unknown messenger type, missing credential env.
// Messenger type validity is structural here (the struct only has fields
// for the five named transports); this catches address and credential
// problems.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.ListenAddr) == "" {
		return fmt.Errorf("config: listen_addr is required")
	}
	if _, _, err := net.SplitHostPort(c.ListenAddr); err != nil {
		return fmt.Errorf("config: invalid listen_addr %q: %w", c.ListenAddr, err)
	}
	if c.MaxRounds <= 0 {
		return fmt.Errorf("config: max_rounds must be positive")
	}
	switch c.Vault.Mode {
	case "passphrase", "keyfile":
	default:
		return fmt.Errorf("config: vault.mode must be %q or %q, got %q", "passphrase", "keyfile", c.Vault.Mode)
	}

	if c.Messengers.Telegram.Enabled && c.Credentials.TelegramToken == "" {
		return fmt.Errorf("config: messengers.telegram is enabled but TELEGRAM_BOT_TOKEN is not set")
	}
	if c.Messengers.Discord.Enabled && c.Credentials.DiscordToken == "" {
		return fmt.Errorf("config: messengers.discord is enabled but DISCORD_BOT_TOKEN is not set")
	}
	if c.Messengers.Webhook.Enabled && c.Messengers.Webhook.ListenAddr == "" {
		return fmt.Errorf("config: messengers.webhook is enabled but listen_addr is not set")
	}
	if c.Messengers.Matrix.Enabled && (c.Messengers.Matrix.Homeserver == "" || c.Messengers.Matrix.UserID == "") {
		return fmt.Errorf("config: messengers.matrix is enabled but homeserver/user_id are not set")
	}
	if c.Messengers.Signal.Enabled && c.Messengers.Signal.Account == "" {
		return fmt.Errorf("config: messengers.signal is enabled but account is not set")
	}
	return nil
}
