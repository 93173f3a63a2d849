// Package config loads the optional on-disk defaults file that tunes
// scan behaviour without recompiling: chunk size, the deep-search work
// cap, and the worker pool size (spec.md §9's remaining Open
// Questions, made configurable rather than hardcoded).
//
// Grounded on dsmmcken-dh-cli's TOML-backed configuration (the pack's
// other CLI-shaped repo), using the same github.com/pelletier/go-toml/v2
// decoder.
package config

import (
	"fmt"
	"os"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds every tunable spec.md leaves to the implementation.
type Config struct {
	// ChunkSize is the byte size of each sliding-window read
	// (spec.md §4.3). Must be a multiple of the host page size.
	ChunkSize int `toml:"chunk_size"`

	// Workers is the size of the parallel region worker pool
	// (spec.md §4.8). original_source's jni_interface/app.rs builds
	// a rayon pool with 8 threads; that is this field's default.
	Workers int `toml:"workers"`

	// DeepSearchMaxCombinations bounds deep matching's backtracking
	// (spec.md §4.7); see scan.DefaultMaxCombinations.
	DeepSearchMaxCombinations int `toml:"deep_search_max_combinations"`

	// ProgressTickMillis is how often the progress updater flushes
	// the shared buffer (spec.md §4.11 default: 1000ms).
	ProgressTickMillis int `toml:"progress_tick_millis"`
}

// Default returns the configuration used when no file is loaded.
func Default() Config {
	return Config{
		ChunkSize:                 1 << 20, // 1 MiB
		Workers:                   8,
		DeepSearchMaxCombinations: 100000,
		ProgressTickMillis:        1000,
	}
}

// Load reads and decodes a TOML config file at path, filling any
// field it doesn't mention from Default().
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}
