package splitter_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"splithid/splitter"
)

const yamlMapping = `
devices: 3
base_id: 0x20
catch_all: 2
groups:
  - device: 0
    spans:
      - from: 0
        to: 9
  - device: 1
    positions: [10, 11]
`

const tomlMapping = `
devices = 3
base_id = 32
catch_all = 2

[[groups]]
device = 0

[[groups.spans]]
from = 0
to = 9

[[groups]]
device = 1
positions = [10, 11]
`

const jsonMapping = `{
  "devices": 3,
  "base_id": 32,
  "catch_all": 2,
  "groups": [
    {"device": 0, "spans": [{"from": 0, "to": 9}]},
    {"device": 1, "positions": [10, 11]}
  ]
}`

func TestLoadMappingFormats(t *testing.T) {
	tests := []struct {
		name string
		file string
		body string
	}{
		{"yaml", "mapping.yaml", yamlMapping},
		{"toml", "mapping.toml", tomlMapping},
		{"json", "mapping.json", jsonMapping},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tt.file)
			require.NoError(t, os.WriteFile(path, []byte(tt.body), 0o644))

			m, err := splitter.LoadMapping(path)
			require.NoError(t, err)
			assert.Equal(t, 3, m.Devices)
			assert.Equal(t, uint8(0x20), m.BaseID)
			assert.Equal(t, uint8(2), m.CatchAll)

			c, err := m.Classifier()
			require.NoError(t, err)
			assert.Equal(t, uint8(0), c.Classify(5))
			assert.Equal(t, uint8(1), c.Classify(11))
			assert.Equal(t, uint8(2), c.Classify(12), "unclaimed positions go to the catch-all")
		})
	}
}

func TestLoadMappingErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := splitter.LoadMapping(filepath.Join(dir, "missing.yaml"))
	assert.ErrorContains(t, err, "read mapping")

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte(":\n  - ["), 0o644))
	_, err = splitter.LoadMapping(bad)
	assert.ErrorContains(t, err, "decode mapping")

	invalid := filepath.Join(dir, "invalid.yaml")
	require.NoError(t, os.WriteFile(invalid, []byte("devices: 99\n"), 0o644))
	_, err = splitter.LoadMapping(invalid)
	assert.ErrorContains(t, err, "invalid mapping")
}

func TestWatchMappingReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mapping.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yamlMapping), 0o644))

	applied := make(chan splitter.Mapping, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go splitter.WatchMapping(ctx, path, func(m splitter.Mapping) error {
		applied <- m
		return nil
	}, nil)

	// Give the watcher a moment to install before the first write.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte(yamlMapping), 0o644))

	select {
	case m := <-applied:
		assert.Equal(t, 3, m.Devices)
	case <-time.After(2 * time.Second):
		t.Fatal("mapping change was not applied")
	}

	// An invalid save is skipped, keeping the last good mapping in effect.
	require.NoError(t, os.WriteFile(path, []byte("devices: 99\n"), 0o644))
	time.Sleep(200 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte(yamlMapping), 0o644))
	select {
	case m := <-applied:
		assert.Equal(t, 3, m.Devices)
	case <-time.After(2 * time.Second):
		t.Fatal("valid mapping after an invalid save was not applied")
	}
}
