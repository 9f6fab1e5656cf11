// Package cmn provides common constants, types, and utilities shared
// by every agent package.
/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package cmn

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// Config is the agent's environment/options surface (spec.md §6), held
// behind GCO the same way the teacher holds cmn.Config behind a global
// config owner: readers call GCO.Get() for an immutable snapshot, and a
// reload builds a whole new Config off to the side and swaps it in only
// once Validate passes (mirrors cmn/config.go's load-validate-swap
// discipline, scaled down to the agent's own option set).
type Config struct {
	BufferSize          uint   `json:"bufferSize"` // exponent: ring size is 1<<BufferSize
	CheckpointFrequency uint64 `json:"checkpointFrequency"`
	MaxAssets           int    `json:"maxAssets"`
	PreserveUUID        bool   `json:"preserveUUID"`
	IgnoreTimestamps    bool   `json:"ignoreTimestamps"`
	ConversionRequired  bool   `json:"conversionRequired"`
	UpcaseDataItemValue bool   `json:"upcaseDataItemValue"`
	FilterDuplicates    bool   `json:"filterDuplicates"`
	AutoAvailable       bool   `json:"autoAvailable"`
	LegacyTimeout       int    `json:"legacyTimeout"`     // seconds
	ReconnectInterval   int    `json:"reconnectInterval"` // milliseconds
	ShdrVersion         int    `json:"shdrVersion"`       // 1 or 2
	StatsEvery          string `json:"statsEvery"`        // time.ParseDuration syntax, "" disables periodic stats logging
}

// DefaultConfig returns the spec's documented defaults (spec.md §6).
func DefaultConfig() *Config {
	return &Config{
		BufferSize:          17,
		CheckpointFrequency: 1000,
		MaxAssets:           1024,
		LegacyTimeout:       600,
		ReconnectInterval:   10000,
		ShdrVersion:         2,
		StatsEvery:          "30s",
	}
}

// Validate rejects a config that would crash or silently misbehave
// downstream (a zero buffer exponent, an unsupported SHDR version)
// before it is ever installed, matching cmn.Config's load-time
// validation discipline.
func (c *Config) Validate() error {
	if c.BufferSize == 0 || c.BufferSize > 31 {
		return errors.Errorf("config: BufferSize exponent %d out of range [1,31]", c.BufferSize)
	}
	if c.ShdrVersion != 1 && c.ShdrVersion != 2 {
		return errors.Errorf("config: unsupported ShdrVersion %d", c.ShdrVersion)
	}
	if c.ReconnectInterval < 0 || c.LegacyTimeout < 0 {
		return errors.New("config: ReconnectInterval and LegacyTimeout must be non-negative")
	}
	if c.StatsEvery != "" {
		if _, err := time.ParseDuration(c.StatsEvery); err != nil {
			return errors.Wrap(err, "config: invalid StatsEvery")
		}
	}
	return nil
}

func (c *Config) StatsInterval() time.Duration {
	if c.StatsEvery == "" {
		return 0
	}
	d, _ := time.ParseDuration(c.StatsEvery)
	return d
}

// globalConfigOwner is GCO: a get-config-once, copy-on-update owner of
// the live Config, mirroring cmn.GCO in the teacher.
type globalConfigOwner struct {
	mu  sync.Mutex
	cur *Config
}

// GCO is the package-level config owner every component reads through,
// exactly as every teacher package reads through cmn.GCO.Get().
var GCO = &globalConfigOwner{cur: DefaultConfig()}

func (o *globalConfigOwner) Get() *Config {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.cur
}

// Update validates newConfig and swaps it in atomically; on failure the
// previously installed Config remains live.
func (o *globalConfigOwner) Update(newConfig *Config) error {
	if err := newConfig.Validate(); err != nil {
		return err
	}
	o.mu.Lock()
	o.cur = newConfig
	o.mu.Unlock()
	return nil
}

// LoadFromEnv overlays spec.md §6's recognised environment variables
// (MTC_<FIELD>, upper-cased) onto DefaultConfig, validates, and installs
// the result through GCO. A JSON config file (if configPath is
// non-empty) is applied first and the environment overlaid on top,
// matching the teacher's layered config precedence.
func LoadFromEnv(configPath string) error {
	cfg := DefaultConfig()
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return errors.Wrap(err, "config: reading config file")
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return errors.Wrap(err, "config: parsing config file")
		}
	}
	overlayEnvUint(&cfg.BufferSize, "MTC_BUFFER_SIZE")
	overlayEnvUint64(&cfg.CheckpointFrequency, "MTC_CHECKPOINT_FREQUENCY")
	overlayEnvInt(&cfg.MaxAssets, "MTC_MAX_ASSETS")
	overlayEnvBool(&cfg.PreserveUUID, "MTC_PRESERVE_UUID")
	overlayEnvBool(&cfg.IgnoreTimestamps, "MTC_IGNORE_TIMESTAMPS")
	overlayEnvBool(&cfg.ConversionRequired, "MTC_CONVERSION_REQUIRED")
	overlayEnvBool(&cfg.UpcaseDataItemValue, "MTC_UPCASE_DATA_ITEM_VALUE")
	overlayEnvBool(&cfg.FilterDuplicates, "MTC_FILTER_DUPLICATES")
	overlayEnvBool(&cfg.AutoAvailable, "MTC_AUTO_AVAILABLE")
	overlayEnvInt(&cfg.LegacyTimeout, "MTC_LEGACY_TIMEOUT")
	overlayEnvInt(&cfg.ReconnectInterval, "MTC_RECONNECT_INTERVAL")
	overlayEnvInt(&cfg.ShdrVersion, "MTC_SHDR_VERSION")
	if v := os.Getenv("MTC_STATS_EVERY"); v != "" {
		cfg.StatsEvery = v
	}
	return GCO.Update(cfg)
}

func overlayEnvBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func overlayEnvInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func overlayEnvUint(dst *uint, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			*dst = uint(n)
		}
	}
}

func overlayEnvUint64(dst *uint64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

// String renders the config for diagnostic logging.
func (c *Config) String() string {
	return fmt.Sprintf("%+v", *c)
}
