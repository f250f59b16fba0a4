package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dicom4d/internal/slicetest"
	"dicom4d/pkg/reconstruction"
)

// useStore loads a config from dir and points the commands at store
func useStore(t *testing.T, store *slicetest.Store, configYAML string) {
	t.Helper()

	cfgPath := filepath.Join(t.TempDir(), "dicom4d.yaml")
	if configYAML != "" {
		require.NoError(t, os.WriteFile(cfgPath, []byte(configYAML), 0644))
	}
	configFile = cfgPath

	prev := source
	source = func() (reconstruction.HeaderReader, reconstruction.SliceDecoder) {
		return store, store
	}
	t.Cleanup(func() { source = prev })

	Log.SetOutput(io.Discard)
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	RootCmd.SetOut(&out)
	RootCmd.SetErr(io.Discard)
	RootCmd.SetArgs(append(args, "--config", configFile))
	sliceZ, sliceT = -1, -1

	err := RootCmd.Execute()
	return out.String(), err
}

func TestDimsCommand(t *testing.T) {
	dir := t.TempDir()
	store, _ := slicetest.Series(t, dir, 24, 48, 64, "6")
	useStore(t, store, "")

	out, err := execute(t, "dims", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Dimensions: 48 x 64 x 4 x 6")
	assert.Contains(t, out, "t (time points): 6")
}

func TestDimsCommandFailure(t *testing.T) {
	useStore(t, slicetest.NewStore(), "")

	_, err := execute(t, "dims", filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, reconstruction.ErrDirectoryAccess)
}

func TestAssembleCommand(t *testing.T) {
	dir := t.TempDir()
	store, names := slicetest.Series(t, dir, 8, 3, 2, "2")
	delete(store.Slices, names[6])
	useStore(t, store, "processing:\n  numCores: 2\n  ordering: numeric\n")

	out, err := execute(t, "assemble", dir, "--slice-z", "1", "--slice-t", "0")
	require.NoError(t, err)

	assert.Contains(t, out, "Dimensions: 3 x 2 x 4 x 2")
	assert.Contains(t, out, "decoded: 7 of 8 slices")
	assert.Contains(t, out, "missing z=2 t=1")
	assert.Contains(t, out, "Slice at time=0, slice=1:")
	assert.Contains(t, out, "     2      2      2 \n")
}

func TestVelocityCommand(t *testing.T) {
	dir := t.TempDir()
	store, _ := slicetest.Series(t, dir, 4, 2, 2, "2")
	useStore(t, store, "processing:\n  rescaleMode: identity\n")

	out, err := execute(t, "velocity", dir, "--venc", "3.14159265", "--slice-z", "1", "--slice-t", "1")
	require.NoError(t, err)

	// raw 4 → 4/π*π
	assert.Contains(t, out, "Slice at time=1, slice=1:")
	assert.Contains(t, out, "     4      4 \n")
}

func TestSliceCommand(t *testing.T) {
	dir := t.TempDir()
	store, names := slicetest.Series(t, dir, 2, 5, 4, "1")
	useStore(t, store, "")

	out, err := execute(t, "slice", filepath.Join(dir, names[1]))
	require.NoError(t, err)
	assert.Contains(t, out, "Dimensions: 5 x 4 x 1 x 1")
	assert.Contains(t, out, "Sample value at (0,0,0,0): 2")
}

func TestStartupRejectsInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("processing:\n  ordering: random\n"), 0644))

	assert.Error(t, Startup(path))
}
