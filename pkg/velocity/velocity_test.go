package velocity

import (
	"errors"
	"io"
	"math"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dicom4d/internal/models"
	"dicom4d/internal/slicetest"
	"dicom4d/pkg/reconstruction"
	"dicom4d/pkg/volume"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.Out = io.Discard
	return log
}

func TestApplyVENC(t *testing.T) {
	v := volume.New(2, 1, 1, 1)
	require.NoError(t, v.Set(0, 0, 0, 0, float32(math.Pi)))

	ApplyVENC(v, 1.70)

	got, err := v.At(0, 0, 0, 0)
	require.NoError(t, err)
	assert.InDelta(t, 1.70, got, 1e-5)

	got, err = v.At(1, 0, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, float32(0), got)
}

func TestApplyVENCNegativePhase(t *testing.T) {
	v := volume.New(1, 1, 1, 1)
	v.Fill(float32(-math.Pi / 2))

	ApplyVENC(v, 2)

	got, _ := v.At(0, 0, 0, 0)
	assert.InDelta(t, -1.0, got, 1e-5)
}

func TestRescale(t *testing.T) {
	v := volume.New(2, 2, 1, 2)
	v.Fill(100)

	Rescale(v, models.RescaleParams{Slope: 2, Intercept: -4096})

	x, y, z, tt := v.Dims()
	assert.Equal(t, [4]int{2, 2, 1, 2}, [4]int{x, y, z, tt})
	st := v.Stats()
	assert.Equal(t, -3896.0, st.Min)
	assert.Equal(t, -3896.0, st.Max)
}

func TestPhaseToVelocityLeavesInputUntouched(t *testing.T) {
	phase := volume.New(1, 1, 1, 1)
	phase.Fill(2048)

	out := PhaseToVelocity(phase, models.RescaleParams{Slope: math.Pi / 2048, Intercept: 0}, 1.5)

	in, _ := phase.At(0, 0, 0, 0)
	assert.Equal(t, float32(2048), in)

	got, _ := out.At(0, 0, 0, 0)
	assert.InDelta(t, 1.5, got, 1e-5)
}

func TestParseRescaleMode(t *testing.T) {
	for name, want := range map[string]RescaleMode{
		"":          RescaleDirectory,
		"directory": RescaleDirectory,
		"Slice":     RescaleSlice,
		" identity": RescaleIdentity,
	} {
		got, err := ParseRescaleMode(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := ParseRescaleMode("per-pixel")
	assert.Error(t, err)

	assert.Equal(t, "slice", RescaleSlice.String())
}

func TestReadRescaleParams(t *testing.T) {
	t.Run("FromFirstReadableHeader", func(t *testing.T) {
		dir := t.TempDir()
		store, names := slicetest.Series(t, dir, 4, 2, 2, "2")
		delete(store.Headers, names[0])
		store.Headers[names[1]].RescaleSlope = slicetest.Float(2)
		store.Headers[names[1]].RescaleIntercept = slicetest.Float(-10)
		store.Headers[names[2]].RescaleSlope = slicetest.Float(7)

		p, err := ReadRescaleParams(store, dir)
		require.NoError(t, err)
		assert.Equal(t, models.RescaleParams{Slope: 2, Intercept: -10}, p)
	})

	t.Run("AbsentFields", func(t *testing.T) {
		dir := t.TempDir()
		store, _ := slicetest.Series(t, dir, 2, 2, 2, "1")

		p, err := ReadRescaleParams(store, dir)
		require.NoError(t, err)
		assert.Equal(t, models.DefaultRescale(), p)
	})

	t.Run("NoReadableFile", func(t *testing.T) {
		dir := t.TempDir()
		slicetest.WriteFiles(t, dir, slicetest.Names(3))

		p, err := ReadRescaleParams(slicetest.NewStore(), dir)
		require.NoError(t, err)
		assert.Equal(t, models.DefaultRescale(), p)
	})

	t.Run("MissingDirectory", func(t *testing.T) {
		p, err := ReadRescaleParams(slicetest.NewStore(), filepath.Join(t.TempDir(), "gone"))
		assert.True(t, errors.Is(err, reconstruction.ErrDirectoryAccess))
		assert.Equal(t, models.DefaultRescale(), p)
	})
}

// newConverter builds a converter over a 4-file, 2-frame series whose i-th
// file holds the constant i+1
func newConverter(t *testing.T) (*Converter, *slicetest.Store, []string) {
	dir := t.TempDir()
	store, names := slicetest.Series(t, dir, 4, 2, 2, "2")

	r := reconstruction.NewReconstructor(reconstruction.DefaultParams(dir), store, store)
	r.Log = quietLogger()

	return NewConverter(r), store, names
}

func TestGenerateVelocityFieldDirectoryMode(t *testing.T) {
	c, store, names := newConverter(t)
	store.Headers[names[0]].RescaleSlope = slicetest.Float(math.Pi)
	store.Headers[names[0]].RescaleIntercept = slicetest.Float(0)
	c.Venc = 1

	vol, report, err := c.GenerateVelocityField()
	require.NoError(t, err)
	assert.True(t, report.Complete())

	// raw i+1 → (i+1)*π → i+1 after VENC of 1
	for i := 0; i < 4; i++ {
		got, err := vol.At(1, 1, i%2, i/2)
		require.NoError(t, err)
		assert.InDelta(t, float64(i+1), got, 1e-5)
	}
}

func TestGenerateVelocityFieldSliceMode(t *testing.T) {
	c, store, names := newConverter(t)
	store.Headers[names[0]].RescaleSlope = slicetest.Float(math.Pi)
	store.Headers[names[3]].RescaleIntercept = slicetest.Float(-4 + math.Pi)
	c.Mode = RescaleSlice
	c.Venc = 1

	vol, _, err := c.GenerateVelocityField()
	require.NoError(t, err)

	want := []float64{
		1,           // 1*π / π
		2 / math.Pi, // identity
		3 / math.Pi, // identity
		1,           // (4 - 4 + π) / π
	}
	for i, w := range want {
		got, err := vol.At(0, 1, i%2, i/2)
		require.NoError(t, err)
		assert.InDelta(t, w, got, 1e-5, "slice %d", i)
	}
}

func TestGenerateVelocityFieldSliceModeSkipsMissing(t *testing.T) {
	c, store, names := newConverter(t)
	delete(store.Slices, names[1])
	store.Headers[names[1]].RescaleIntercept = slicetest.Float(100)
	c.Mode = RescaleSlice

	vol, report, err := c.GenerateVelocityField()
	require.NoError(t, err)
	require.Len(t, report.Missing(), 1)

	got, err := vol.At(0, 0, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, float32(0), got)
}

func TestGenerateVelocityFieldIdentityMode(t *testing.T) {
	c, store, names := newConverter(t)
	store.Headers[names[0]].RescaleSlope = slicetest.Float(1000)
	c.Mode = RescaleIdentity

	vol, _, err := c.GenerateVelocityField()
	require.NoError(t, err)

	got, err := vol.At(0, 0, 0, 0)
	require.NoError(t, err)
	assert.InDelta(t, 1/math.Pi*DefaultVENC, got, 1e-5)
}

func TestGenerateVelocityFieldPropagatesInferenceFailure(t *testing.T) {
	c, store, names := newConverter(t)
	for _, name := range names {
		store.Headers[name].TemporalFrameCount = ""
	}

	vol, report, err := c.GenerateVelocityField()
	assert.True(t, errors.Is(err, reconstruction.ErrMissingFrameCount))
	assert.Nil(t, vol)
	assert.Nil(t, report)
}
