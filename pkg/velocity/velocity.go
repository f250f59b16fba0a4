// Package velocity converts an assembled phase volume into a velocity field.
//
// Stored phase samples are first calibrated with the linear rescale
// parameters of the acquisition, then mapped from radians to velocity with
// the velocity encoding (VENC): v = (phase / π) * venc.
package velocity

import (
	"fmt"
	"math"
	"strings"

	"github.com/sirupsen/logrus"

	"dicom4d/internal/models"
	"dicom4d/pkg/reconstruction"
	"dicom4d/pkg/volume"
)

// DefaultVENC is the velocity encoding used when none is configured
const DefaultVENC = 1.70

// RescaleMode selects where rescale parameters come from
type RescaleMode int

const (
	// RescaleDirectory reads one set of parameters from the first readable
	// file of the directory and applies it to the whole volume
	RescaleDirectory RescaleMode = iota

	// RescaleSlice reads each decoded file's own parameters and applies
	// them to that file's plane only
	RescaleSlice

	// RescaleIdentity ignores the headers and uses slope 1, intercept 0
	RescaleIdentity
)

func (m RescaleMode) String() string {
	switch m {
	case RescaleDirectory:
		return "directory"
	case RescaleSlice:
		return "slice"
	case RescaleIdentity:
		return "identity"
	default:
		return fmt.Sprintf("RescaleMode(%d)", int(m))
	}
}

// ParseRescaleMode maps a configuration name to a RescaleMode. The empty
// string selects RescaleDirectory.
func ParseRescaleMode(name string) (RescaleMode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "directory":
		return RescaleDirectory, nil
	case "slice":
		return RescaleSlice, nil
	case "identity":
		return RescaleIdentity, nil
	default:
		return 0, fmt.Errorf("unknown rescale mode %q (want directory, slice or identity)", name)
	}
}

// Rescale replaces every sample s of v with s*Slope + Intercept
func Rescale(v *volume.Volume4D, p models.RescaleParams) {
	v.Apply(func(s float32) float32 {
		return float32(p.Apply(float64(s)))
	})
}

// ApplyVENC replaces every sample s of v with (s / π) * venc. venc is not
// validated; zero or negative values are applied as given.
func ApplyVENC(v *volume.Volume4D, venc float64) {
	v.Apply(func(s float32) float32 {
		return float32(float64(s) / math.Pi * venc)
	})
}

// PhaseToVelocity returns a rescaled, VENC-scaled copy of phase
func PhaseToVelocity(phase *volume.Volume4D, p models.RescaleParams, venc float64) *volume.Volume4D {
	out := phase.Clone()
	Rescale(out, p)
	ApplyVENC(out, venc)
	return out
}

// ReadRescaleParams reads the rescale parameters of the first file in dir,
// in lexical order, whose header can be read. Absent fields and a directory
// without a readable header both yield the defaults; only a directory that
// cannot be listed is an error.
func ReadRescaleParams(headers reconstruction.HeaderReader, dir string) (models.RescaleParams, error) {
	paths, err := reconstruction.ListSlices(dir)
	if err != nil {
		return models.DefaultRescale(), err
	}

	paths, _ = reconstruction.LexicalOrder{}.Order(paths)
	for _, path := range paths {
		h, err := headers.ReadHeader(path)
		if err != nil || h == nil {
			continue
		}
		return h.Rescale(), nil
	}

	return models.DefaultRescale(), nil
}

// Converter assembles a phase volume and converts it to velocity
type Converter struct {
	Reconstructor *reconstruction.Reconstructor

	Mode RescaleMode
	Venc float64

	Log logrus.FieldLogger
}

// NewConverter returns a converter using directory-wide rescale parameters
// and DefaultVENC.
func NewConverter(r *reconstruction.Reconstructor) *Converter {
	c := &Converter{
		Reconstructor: r,
		Mode:          RescaleDirectory,
		Venc:          DefaultVENC,
		Log:           r.Log,
	}
	if c.Log == nil {
		c.Log = logrus.StandardLogger()
	}
	return c
}

// GenerateVelocityField assembles the reconstructor's input directory,
// calibrates it according to c.Mode and scales it by c.Venc. The report is
// the assembly report; rescale and VENC never fail per sample.
func (c *Converter) GenerateVelocityField() (*volume.Volume4D, *reconstruction.Report, error) {
	r := c.Reconstructor
	log := c.Log
	if log == nil {
		log = logrus.StandardLogger()
	}

	vol, report, err := r.Process()
	if err != nil {
		return nil, nil, err
	}

	switch c.Mode {
	case RescaleSlice:
		c.rescaleSlices(vol, report)
	case RescaleIdentity:
		Rescale(vol, models.DefaultRescale())
	default:
		p, err := ReadRescaleParams(r.Headers, r.Params.InputDir)
		if err != nil {
			return nil, nil, err
		}
		log.WithFields(logrus.Fields{
			"slope":     p.Slope,
			"intercept": p.Intercept,
		}).Debug("rescaling volume")
		Rescale(vol, p)
	}

	ApplyVENC(vol, c.Venc)

	log.WithFields(logrus.Fields{
		"mode": c.Mode.String(),
		"venc": c.Venc,
	}).Info("generated velocity field")

	return vol, report, nil
}

// rescaleSlices calibrates every decoded plane with the parameters of the
// file it came from. Cells that were never decoded stay zero.
func (c *Converter) rescaleSlices(vol *volume.Volume4D, report *reconstruction.Report) {
	headers := c.Reconstructor.Headers

	for _, res := range report.Slices {
		if res.Status != reconstruction.Decoded {
			continue
		}

		p := models.DefaultRescale()
		if h, err := headers.ReadHeader(res.Path); err == nil {
			p = h.Rescale()
		} else if c.Log != nil {
			c.Log.WithError(err).WithField("path", res.Path).Warn("no header for slice; using identity rescale")
		}

		plane, err := vol.Plane(res.Z, res.T)
		if err != nil {
			continue
		}
		for i, s := range plane {
			plane[i] = float32(p.Apply(float64(s)))
		}
		_ = vol.SetPlane(res.Z, res.T, plane)
	}
}
