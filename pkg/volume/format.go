package volume

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Stats summarises a set of samples
type Stats struct {
	Min    float64
	Max    float64
	Mean   float64
	StdDev float64
	Count  int
}

func statsOf(samples []float32) Stats {
	if len(samples) == 0 {
		return Stats{}
	}

	values := make([]float64, len(samples))
	for i, s := range samples {
		values[i] = float64(s)
	}

	mean, std := stat.MeanStdDev(values, nil)
	if len(values) == 1 {
		std = 0
	}

	return Stats{
		Min:    floats.Min(values),
		Max:    floats.Max(values),
		Mean:   mean,
		StdDev: std,
		Count:  len(values),
	}
}

// Stats returns summary statistics over every sample. An empty volume
// yields the zero Stats.
func (v *Volume4D) Stats() Stats {
	if v.Empty() {
		return Stats{}
	}
	return statsOf(v.data)
}

// PlaneStats returns summary statistics over the XY plane at (z, t)
func (v *Volume4D) PlaneStats(z, t int) (Stats, error) {
	off, err := v.planeOffset(z, t)
	if err != nil {
		return Stats{}, err
	}
	return statsOf(v.data[off : off+v.nx*v.ny]), nil
}

// MemoryMB returns the approximate sample storage size in megabytes
func (v *Volume4D) MemoryMB() float64 {
	return float64(v.TotalElements()*4) / (1024.0 * 1024.0)
}

// Info returns a short human-readable description of the volume
func (v *Volume4D) Info() string {
	var b strings.Builder

	empty := "No"
	if v.Empty() {
		empty = "Yes"
	}

	fmt.Fprintln(&b, "=== Volume4D Information ===")
	fmt.Fprintf(&b, "Dimensions: %d x %d x %d x %d\n", v.nx, v.ny, v.nz, v.nt)
	fmt.Fprintf(&b, "Total elements: %d\n", v.TotalElements())
	fmt.Fprintf(&b, "Memory usage: ~%.6f MB\n", v.MemoryMB())
	fmt.Fprintf(&b, "Empty: %s\n", empty)
	fmt.Fprintln(&b, "===========================")

	return b.String()
}

// FormatSlice renders the XY plane at time t and slice z as a grid of
// rounded values, one row per line.
func (v *Volume4D) FormatSlice(t, z int) (string, error) {
	if t < 0 || t >= v.nt || z < 0 || z >= v.nz {
		return "", fmt.Errorf("%w: invalid time %d or slice %d", ErrOutOfRange, t, z)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Slice at time=%d, slice=%d:\n", t, z)

	for y := 0; y < v.ny; y++ {
		for x := 0; x < v.nx; x++ {
			i, _ := v.index(x, y, z, t)
			fmt.Fprintf(&b, "%6.0f ", v.data[i])
		}
		b.WriteString("\n")
	}

	return b.String(), nil
}
