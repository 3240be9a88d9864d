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

// RebateConfig carries the operational knobs of the rebate engine. It lives
// in a YAML file so operators can tune policy without a redeploy.
type RebateConfig struct {
	// ClaimRoundingPlaces is the decimal precision rebate amounts are
	// rounded to.
	ClaimRoundingPlaces int32 `mapstructure:"claimRoundingPlaces"`
	// RetainClaimsOnDelete keeps historical claims when their agreement is
	// deleted, marking them orphaned instead of cascading.
	RetainClaimsOnDelete bool `mapstructure:"retainClaimsOnDelete"`
	// SubmissionLockTTL bounds the per-party advisory lock held while an
	// agreement submission is validated and persisted.
	SubmissionLockTTL time.Duration `mapstructure:"submissionLockTTL"`
	// ClaimLockTTL bounds the per-claim lock held during recalculation.
	ClaimLockTTL time.Duration `mapstructure:"claimLockTTL"`
}

func DefaultRebateConfig() RebateConfig {
	return RebateConfig{
		ClaimRoundingPlaces:  2,
		RetainClaimsOnDelete: true,
		SubmissionLockTTL:    10 * time.Second,
		ClaimLockTTL:         30 * time.Second,
	}
}

// RebateConfigHolder exposes the current rebate config and hot-reloads it
// when the backing file changes.
type RebateConfigHolder struct {
	current atomic.Value // holds RebateConfig
}

func NewRebateConfigHolder() (*RebateConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("rebate")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/harborline/config")
	v.AddConfigPath("/etc/harborline")
	v.AddConfigPath(".")

	v.SetEnvPrefix("HARBORLINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultRebateConfig()
	v.SetDefault("rebate.claimRoundingPlaces", defaults.ClaimRoundingPlaces)
	v.SetDefault("rebate.retainClaimsOnDelete", defaults.RetainClaimsOnDelete)
	v.SetDefault("rebate.submissionLockTTL", defaults.SubmissionLockTTL)
	v.SetDefault("rebate.claimLockTTL", defaults.ClaimLockTTL)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	holder := &RebateConfigHolder{}
	if err := holder.reload(v); err != nil {
		return nil, err
	}

	v.OnConfigChange(func(_ fsnotify.Event) {
		if err := holder.reload(v); err != nil {
			log.Printf("rebate config reload failed: %v", err)
		}
	})
	v.WatchConfig()

	return holder, nil
}

// NewStaticRebateConfigHolder returns a holder pinned to the given config
// with no file watching. Intended for tests.
func NewStaticRebateConfigHolder(cfg RebateConfig) *RebateConfigHolder {
	holder := &RebateConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func (h *RebateConfigHolder) Current() RebateConfig {
	if cfg, ok := h.current.Load().(RebateConfig); ok {
		return cfg
	}
	return DefaultRebateConfig()
}

func (h *RebateConfigHolder) reload(v *viper.Viper) error {
	var cfg RebateConfig
	if err := v.UnmarshalKey("rebate", &cfg); err != nil {
		return err
	}
	defaults := DefaultRebateConfig()
	if cfg.ClaimRoundingPlaces <= 0 {
		cfg.ClaimRoundingPlaces = defaults.ClaimRoundingPlaces
	}
	if cfg.SubmissionLockTTL <= 0 {
		cfg.SubmissionLockTTL = defaults.SubmissionLockTTL
	}
	if cfg.ClaimLockTTL <= 0 {
		cfg.ClaimLockTTL = defaults.ClaimLockTTL
	}
	h.current.Store(cfg)
	return nil
}
