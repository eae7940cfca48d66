// Package config loads and validates bot configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Discord  DiscordConfig  `mapstructure:"discord"`
	Ops      OpsConfig      `mapstructure:"ops"`
	Resolver ResolverConfig `mapstructure:"resolver"`
	Browser  BrowserConfig  `mapstructure:"browser"`
	Delivery DeliveryConfig `mapstructure:"delivery"`
	Dedupe   DedupeConfig   `mapstructure:"dedupe"`
	DB       DBConfig       `mapstructure:"db"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// DiscordConfig identifies the bot on the gateway.
type DiscordConfig struct {
	Token   string `mapstructure:"token"`
	AppID   string `mapstructure:"app_id"`
	GuildID string `mapstructure:"guild_id"`
}

// OpsConfig controls the health/metrics HTTP server.
type OpsConfig struct {
	Port int `mapstructure:"port"`
}

// ResolverConfig governs the classification and fetch tiers.
type ResolverConfig struct {
	HardDomains        []string `mapstructure:"hard_domains"`
	BotFriendlyDomains []string `mapstructure:"bot_friendly_domains"`
	MastodonInstances  []string `mapstructure:"mastodon_instances"`
	CrawlerUserAgent   string   `mapstructure:"crawler_user_agent"`
	BrowserUserAgent   string   `mapstructure:"browser_user_agent"`
	DomainRPS          float64  `mapstructure:"domain_rps"`
	Tier1TimeoutSec    int      `mapstructure:"tier1_timeout_seconds"`
	Tier2TimeoutSec    int      `mapstructure:"tier2_timeout_seconds"`
	Tier3TimeoutSec    int      `mapstructure:"tier3_timeout_seconds"`
}

// BrowserConfig configures the headless rendering tier.
type BrowserConfig struct {
	RemoteRenderURL   string `mapstructure:"remote_render_url"`
	RemoteRenderToken string `mapstructure:"remote_render_token"`
	ExtractAPIURL     string `mapstructure:"extract_api_url"`
	NavTimeoutSec     int    `mapstructure:"nav_timeout_seconds"`
	SettleMs          int    `mapstructure:"settle_ms"`
}

// DeliveryConfig paces the per-channel delivery lanes.
type DeliveryConfig struct {
	PacingSeconds int `mapstructure:"pacing_seconds"`
}

// DedupeConfig bounds the recent-message cache.
type DedupeConfig struct {
	WindowSeconds int `mapstructure:"window_seconds"`
	Capacity      int `mapstructure:"capacity"`
}

// DBConfig locates the settings database.
type DBConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("DECLUTTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ops.port", 8080)
	v.SetDefault("resolver.hard_domains", []string{})
	v.SetDefault("resolver.bot_friendly_domains", []string{})
	v.SetDefault("resolver.mastodon_instances", []string{})
	v.SetDefault("resolver.crawler_user_agent", "declutter-preview/1.0")
	v.SetDefault("resolver.browser_user_agent",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36")
	v.SetDefault("resolver.domain_rps", 1.0)
	v.SetDefault("resolver.tier1_timeout_seconds", 10)
	v.SetDefault("resolver.tier2_timeout_seconds", 15)
	v.SetDefault("resolver.tier3_timeout_seconds", 45)
	v.SetDefault("browser.nav_timeout_seconds", 25)
	v.SetDefault("browser.settle_ms", 1500)
	v.SetDefault("delivery.pacing_seconds", 3)
	v.SetDefault("dedupe.window_seconds", 300)
	v.SetDefault("dedupe.capacity", 4096)
	v.SetDefault("db.path", "data/declutter.db")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Discord.Token == "" {
		return fmt.Errorf("discord.token must be set")
	}
	if c.Ops.Port <= 0 {
		return fmt.Errorf("ops.port must be > 0")
	}
	if c.Resolver.DomainRPS <= 0 {
		return fmt.Errorf("resolver.domain_rps must be > 0")
	}
	if c.Resolver.Tier2TimeoutSec <= 0 {
		return fmt.Errorf("resolver.tier2_timeout_seconds must be > 0")
	}
	if c.Delivery.PacingSeconds < 0 {
		return fmt.Errorf("delivery.pacing_seconds must be >= 0")
	}
	if c.DB.Path == "" {
		return fmt.Errorf("db.path must be set")
	}
	return nil
}

// Tier1Timeout returns the platform-API attempt budget.
func (c Config) Tier1Timeout() time.Duration {
	return time.Duration(c.Resolver.Tier1TimeoutSec) * time.Second
}

// Tier2Timeout returns the generic-fetch attempt budget.
func (c Config) Tier2Timeout() time.Duration {
	return time.Duration(c.Resolver.Tier2TimeoutSec) * time.Second
}

// Tier3Timeout returns the browser-tier attempt budget.
func (c Config) Tier3Timeout() time.Duration {
	return time.Duration(c.Resolver.Tier3TimeoutSec) * time.Second
}

// Pacing returns the per-channel delivery gap.
func (c Config) Pacing() time.Duration {
	return time.Duration(c.Delivery.PacingSeconds) * time.Second
}

// DedupeWindow returns how long message IDs stay remembered.
func (c Config) DedupeWindow() time.Duration {
	return time.Duration(c.Dedupe.WindowSeconds) * time.Second
}
