package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// QuotaConfig controls the free-tier usage quota.
type QuotaConfig struct {
	// FreeLimit is the number of checks a free account may consume per window.
	FreeLimit int `mapstructure:"freeLimit"`
	// Window is the usage window after which the counter resets.
	Window time.Duration `mapstructure:"window"`
	// CountFirstCheck counts the check that creates an account against the
	// limit. The historical behavior is a free first touch.
	CountFirstCheck bool `mapstructure:"countFirstCheck"`
}

func DefaultQuotaConfig() QuotaConfig {
	return QuotaConfig{
		FreeLimit:       5,
		Window:          24 * time.Hour,
		CountFirstCheck: false,
	}
}

// QuotaConfigHolder exposes the current quota configuration with hot reload.
type QuotaConfigHolder struct {
	current atomic.Value // holds QuotaConfig
}

func NewQuotaConfigHolder() (*QuotaConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("quota")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/cardwatch/config")
	v.AddConfigPath("/etc/cardwatch")
	v.AddConfigPath(".")

	v.SetEnvPrefix("CARDWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultQuotaConfig()
	v.SetDefault("quota.freeLimit", defaults.FreeLimit)
	v.SetDefault("quota.window", defaults.Window)
	v.SetDefault("quota.countFirstCheck", defaults.CountFirstCheck)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg QuotaConfig
	if err := v.UnmarshalKey("quota", &cfg); err != nil {
		return nil, err
	}
	if err := validateQuotaConfig(cfg); err != nil {
		return nil, err
	}

	holder := &QuotaConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated QuotaConfig
		if err := v.UnmarshalKey("quota", &updated); err != nil {
			log.Printf("[quota-config] reload failed: %v", err)
			return
		}
		if err := validateQuotaConfig(updated); err != nil {
			log.Printf("[quota-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[quota-config] reloaded: free_limit=%d window=%s", updated.FreeLimit, updated.Window)
	})

	return holder, nil
}

// NewStaticQuotaConfigHolder returns a holder pinned to cfg, for tests.
func NewStaticQuotaConfigHolder(cfg QuotaConfig) *QuotaConfigHolder {
	holder := &QuotaConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func (h *QuotaConfigHolder) Current() QuotaConfig {
	if h == nil {
		return DefaultQuotaConfig()
	}
	if cfg, ok := h.current.Load().(QuotaConfig); ok {
		return cfg
	}
	return DefaultQuotaConfig()
}

func (h *QuotaConfigHolder) Store(cfg QuotaConfig) {
	if err := validateQuotaConfig(cfg); err != nil {
		return
	}
	h.current.Store(cfg)
}

func validateQuotaConfig(cfg QuotaConfig) error {
	if cfg.FreeLimit < 0 {
		return errors.New("quota free limit must not be negative")
	}
	if cfg.Window <= 0 {
		return errors.New("quota window must be positive")
	}
	return nil
}
