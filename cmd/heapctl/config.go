package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/nm3210/mpgc/gc"
	"github.com/nm3210/mpgc/region"
)

// HeapConfig describes how to construct the heap a subcommand drives.
// It comes from the file named by --config, or the defaults; no
// command-line flag overrides an individual field.
type HeapConfig struct {
	BlockSize      uintptr `yaml:"block_size"`
	HeapSize       int     `yaml:"heap_size"`
	Finalizers     bool    `yaml:"finalizers"`
	AllocThreshold uintptr `yaml:"alloc_threshold"`
	MarkStackSize  int     `yaml:"mark_stack_size"`
}

func defaultConfig() HeapConfig {
	return HeapConfig{
		BlockSize: gc.DefaultBlockSize,
		HeapSize:  1 << 20,
	}
}

// LoadConfig reads a HeapConfig from a YAML file. A missing path
// returns the default config unchanged.
func LoadConfig(path string) (HeapConfig, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("heapctl: reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("heapctl: parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// buildHeap constructs a region and a heap from cfg, returning both so
// the caller can Close the region when done.
func buildHeap(cfg HeapConfig) (*gc.Heap, *region.Region, error) {
	r, err := region.Anonymous(cfg.HeapSize)
	if err != nil {
		return nil, nil, fmt.Errorf("heapctl: allocating region: %w", err)
	}

	opts := []gc.Option{}
	if cfg.BlockSize != 0 {
		opts = append(opts, gc.WithBlockSize(cfg.BlockSize))
	}
	if cfg.Finalizers {
		opts = append(opts, gc.WithFinalizers())
	}
	if cfg.AllocThreshold != 0 {
		opts = append(opts, gc.WithAllocThreshold(cfg.AllocThreshold))
	}
	if cfg.MarkStackSize != 0 {
		opts = append(opts, gc.WithMarkStackSize(cfg.MarkStackSize))
	}

	h, err := gc.New(r.Bytes(), opts...)
	if err != nil {
		r.Close()
		return nil, nil, fmt.Errorf("heapctl: initializing heap: %w", err)
	}
	return h, r, nil
}
