package detector

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiv122/brand-detector/internal/logger"
)

func setupWeightsDir(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("weights"), 0644))
	}
	return dir
}

func TestRegistry_ScanAndDefault(t *testing.T) {
	dir := setupWeightsDir(t, "original.pt", "brands-v2.pt")
	client := NewClient(ClientConfig{ServiceURL: "http://unused"}, logger.NewNopLogger())

	reg := NewRegistry(dir, "original.pt", client, logger.NewNopLogger())

	assert.True(t, reg.Loaded())
	assert.Equal(t, "original.pt", reg.Current())

	available := reg.Available()
	require.Len(t, available, 2)
	names := []string{available[0].Name, available[1].Name}
	assert.Contains(t, names, "original.pt")
	assert.Contains(t, names, "brands-v2.pt")
	for _, w := range available {
		assert.NotEmpty(t, w.Description)
		assert.Equal(t, int64(7), w.Size)
	}
}

func TestRegistry_MissingDefaultIsNotFatal(t *testing.T) {
	dir := setupWeightsDir(t)
	client := NewClient(ClientConfig{ServiceURL: "http://unused"}, logger.NewNopLogger())

	reg := NewRegistry(dir, "original.pt", client, logger.NewNopLogger())

	assert.False(t, reg.Loaded())
	assert.Equal(t, "", reg.Current())

	_, err := reg.Active()
	assert.ErrorIs(t, err, ErrNoActiveWeight)
}

func TestRegistry_Switch(t *testing.T) {
	dir := setupWeightsDir(t, "original.pt", "brands-v2.pt")
	client := NewClient(ClientConfig{ServiceURL: "http://unused"}, logger.NewNopLogger())
	reg := NewRegistry(dir, "original.pt", client, logger.NewNopLogger())

	require.NoError(t, reg.Switch("brands-v2.pt"))
	assert.Equal(t, "brands-v2.pt", reg.Current())

	model, err := reg.Active()
	require.NoError(t, err)
	assert.Equal(t, "brands-v2.pt", model.Name)
}

func TestRegistry_SwitchUnknownLeavesActiveUnchanged(t *testing.T) {
	dir := setupWeightsDir(t, "original.pt")
	client := NewClient(ClientConfig{ServiceURL: "http://unused"}, logger.NewNopLogger())
	reg := NewRegistry(dir, "original.pt", client, logger.NewNopLogger())

	err := reg.Switch("missing.pt")
	assert.ErrorIs(t, err, ErrWeightNotFound)
	assert.Equal(t, "original.pt", reg.Current())
}

func TestRegistry_InFlightHandleSurvivesSwitch(t *testing.T) {
	dir := setupWeightsDir(t, "original.pt", "brands-v2.pt")
	client := NewClient(ClientConfig{ServiceURL: "http://unused"}, logger.NewNopLogger())
	reg := NewRegistry(dir, "original.pt", client, logger.NewNopLogger())

	// A request takes its handle before the switch
	model, err := reg.Active()
	require.NoError(t, err)

	require.NoError(t, reg.Switch("brands-v2.pt"))

	// The held handle still points at the weight it started with
	assert.Equal(t, "original.pt", model.Name)
	assert.Equal(t, "brands-v2.pt", reg.Current())
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "512B", formatSize(512))
	assert.Equal(t, "1.0KB", formatSize(1024))
	assert.Equal(t, "2.5MB", formatSize(2621440))
	assert.Equal(t, "1.0GB", formatSize(1073741824))
}
