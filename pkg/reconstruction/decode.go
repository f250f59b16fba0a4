package reconstruction

import (
	"encoding/binary"
	"fmt"

	"dicom4d/internal/models"
	"dicom4d/pkg/volume"
)

// EffectiveBitDepth maps a stored bit depth to the sample width used for
// decoding. 8, 16 and 32 are kept; anything else is read as 16-bit.
func EffectiveBitDepth(bits int) int {
	switch bits {
	case 8, 16, 32:
		return bits
	default:
		return 16
	}
}

// DecodeSamples widens the raw unsigned samples of s into a staging volume
// of shape (Width, Height, 1, 1). The raw buffer is row-major with y outer,
// so raw index y*Width+x lands at (x, y, 0, 0).
func DecodeSamples(s *models.Slice) (*volume.Volume4D, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: no slice", ErrDecode)
	}

	if s.Width <= 0 || s.Height <= 0 {
		return nil, fmt.Errorf("%w: %s: invalid size %d x %d", ErrDecode, s.Path, s.Width, s.Height)
	}

	depth := EffectiveBitDepth(s.BitDepth)
	n := s.Width * s.Height
	need := n * depth / 8
	if len(s.Samples) < need {
		return nil, fmt.Errorf("%w: %s: pixel buffer holds %d bytes, need %d for %d-bit samples",
			ErrDecode, s.Path, len(s.Samples), need, depth)
	}

	plane := make([]float32, n)
	raw := s.Samples

	switch depth {
	case 8:
		for i := 0; i < n; i++ {
			plane[i] = float32(raw[i])
		}
	case 16:
		for i := 0; i < n; i++ {
			plane[i] = float32(binary.LittleEndian.Uint16(raw[2*i:]))
		}
	case 32:
		for i := 0; i < n; i++ {
			plane[i] = float32(binary.LittleEndian.Uint32(raw[4*i:]))
		}
	}

	out := volume.New(s.Width, s.Height, 1, 1)
	if err := out.SetPlane(0, 0, plane); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	return out, nil
}
