// Package config loads the context window array's limits and defaults from
// YAML, layering file values over built-in defaults.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds tunables for the store, views, and batcher.
type Config struct {
	Store          StoreConfig          `yaml:"store"`
	Implementation ImplementationConfig `yaml:"implementation"`
	Batch          BatchConfig          `yaml:"batch"`
	TTL            TTLConfig            `yaml:"ttl"`
}

type StoreConfig struct {
	ContentCacheSize int `yaml:"content_cache_size"`
}

type ImplementationConfig struct {
	MaxEntries int `yaml:"max_entries"`
}

type BatchConfig struct {
	MaxEntriesPerBatch int  `yaml:"max_entries_per_batch"`
	PriorityFirst      bool `yaml:"priority_first"`
}

type TTLConfig struct {
	// DefaultFileTTL and DefaultCommandTTL are turn counts producers may
	// apply to new entries; 0 means no TTL.
	DefaultFileTTL    int `yaml:"default_file_ttl"`
	DefaultCommandTTL int `yaml:"default_command_ttl"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Store:          StoreConfig{ContentCacheSize: 1024},
		Implementation: ImplementationConfig{MaxEntries: 10},
		Batch:          BatchConfig{MaxEntriesPerBatch: 200},
		TTL:            TTLConfig{DefaultCommandTTL: 5},
	}
}

// Load reads a YAML config file and merges it over the defaults. Keys absent
// from the file, and keys whose value is the zero value, keep their
// defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var fileCfg Config
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	merge(cfg, &fileCfg)
	return cfg, nil
}

// merge copies non-zero values from src over dst.
func merge(dst, src *Config) {
	mergeInt(&dst.Store.ContentCacheSize, src.Store.ContentCacheSize)
	mergeInt(&dst.Implementation.MaxEntries, src.Implementation.MaxEntries)
	mergeInt(&dst.Batch.MaxEntriesPerBatch, src.Batch.MaxEntriesPerBatch)
	mergeInt(&dst.TTL.DefaultFileTTL, src.TTL.DefaultFileTTL)
	mergeInt(&dst.TTL.DefaultCommandTTL, src.TTL.DefaultCommandTTL)
	if src.Batch.PriorityFirst {
		dst.Batch.PriorityFirst = true
	}
}

func mergeInt(dst *int, src int) {
	if src != 0 {
		*dst = src
	}
}
