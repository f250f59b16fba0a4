package reconstruction

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"dicom4d/internal/models"
)

// ListSlices returns the path of every regular file directly inside dir.
// Symlinks are followed; subdirectories are not descended into. The order
// carries no meaning.
func ListSlices(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDirectoryAccess, err)
	}

	paths := make([]string, 0, len(entries))
	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())

		if entry.Type().IsRegular() {
			paths = append(paths, path)
			continue
		}

		if entry.Type()&fs.ModeSymlink != 0 {
			if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
				paths = append(paths, path)
			}
		}
	}

	return paths, nil
}

// ShapeFromHeader derives the volume shape from one slice header and the
// number of slice files in the directory. Rows give y, columns give x, the
// temporal frame count gives t and z is fileCount / t.
//
// This is a heuristic: it is only correct when the directory holds exactly
// z*t slice files. When fileCount is not a multiple of t the remainder is
// dropped.
func ShapeFromHeader(h *models.Header, fileCount int) (models.Dimensions, error) {
	if h == nil {
		return models.Dimensions{}, ErrNoHeader
	}

	if h.Rows <= 0 || h.Columns <= 0 {
		return models.Dimensions{}, fmt.Errorf("%w: rows=%d columns=%d", ErrMissingPlaneSize, h.Rows, h.Columns)
	}

	raw := strings.TrimSpace(h.TemporalFrameCount)
	if raw == "" {
		return models.Dimensions{}, ErrMissingFrameCount
	}

	t, err := strconv.Atoi(raw)
	if err != nil || t <= 0 {
		return models.Dimensions{}, fmt.Errorf("%w: %q", ErrMissingFrameCount, raw)
	}

	if fileCount < t {
		return models.Dimensions{}, fmt.Errorf("%w: %d files, %d frames", ErrTooFewSlices, fileCount, t)
	}

	return models.Dimensions{
		X: h.Columns,
		Y: h.Rows,
		Z: fileCount / t,
		T: t,
	}, nil
}

// InferDimensions determines the (x, y, z, t) shape of the volume stored in
// dir. Only the first file whose header can be read is opened; no pixel
// data is decoded.
//
// On failure the returned Dimensions are all zero and the error matches
// ErrDirectoryAccess or ErrInference.
func InferDimensions(dir string, headers HeaderReader, log logrus.FieldLogger) (models.Dimensions, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}

	paths, err := ListSlices(dir)
	if err != nil {
		return models.Dimensions{}, err
	}

	var header *models.Header
	for _, path := range paths {
		h, err := headers.ReadHeader(path)
		if err != nil || h == nil {
			log.WithFields(logrus.Fields{"path": path, "error": err}).Debug("skipping file without readable header")
			continue
		}
		header = h
		break
	}

	if header == nil {
		return models.Dimensions{}, fmt.Errorf("%w in %s (%d files)", ErrNoHeader, dir, len(paths))
	}

	dims, err := ShapeFromHeader(header, len(paths))
	if err != nil {
		return models.Dimensions{}, err
	}

	if rem := len(paths) % dims.T; rem != 0 {
		log.WithFields(logrus.Fields{
			"dir":    dir,
			"files":  len(paths),
			"frames": dims.T,
			"extra":  rem,
		}).Warn("file count is not a multiple of the temporal frame count; trailing files will not be placed")
	}

	log.WithFields(logrus.Fields{
		"dir":   dir,
		"files": len(paths),
		"dims":  dims.String(),
	}).Info("inferred volume dimensions")

	return dims, nil
}
