package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaultsWithoutPath(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.EqualValues(t, 1<<20, cfg.HeapSize)
}

func TestLoadConfigOverridesFromYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "heap.yaml")
	yaml := "block_size: 32\nheap_size: 8192\nfinalizers: true\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.EqualValues(t, 32, cfg.BlockSize)
	assert.EqualValues(t, 8192, cfg.HeapSize)
	assert.True(t, cfg.Finalizers)
}

func TestBuildHeapFromConfig(t *testing.T) {
	h, r, err := buildHeap(HeapConfig{BlockSize: 16, HeapSize: 4096})
	require.NoError(t, err)
	defer r.Close()

	ptr := h.Alloc(32, 0, false)
	require.NotNil(t, ptr)
}
