// Package dicomio reads slice headers and pixel data from DICOM files.
package dicomio

import (
	"encoding/binary"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/carbocation/pfx"
	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/dicomtag"
	"github.com/suyashkumar/dicom/element"

	"dicom4d/internal/models"
	"dicom4d/pkg/reconstruction"
)

var (
	_ reconstruction.HeaderReader = (*Reader)(nil)
	_ reconstruction.SliceDecoder = (*Reader)(nil)
)

// Reader reads DICOM files from the local filesystem
type Reader struct{}

// NewReader returns a Reader
func NewReader() *Reader {
	return &Reader{}
}

// ReadHeader parses path without its pixel data and extracts the fields
// used for shape inference and calibration
func (r *Reader) ReadHeader(path string) (*models.Header, error) {
	ds, err := parseFile(path, true)
	if err != nil {
		return nil, pfx.Err(err)
	}

	return HeaderFromDataSet(ds), nil
}

// DecodeSlice parses path and returns the first native frame of its pixel
// data packed at the effective bit depth
func (r *Reader) DecodeSlice(path string) (*models.Slice, error) {
	ds, err := parseFile(path, false)
	if err != nil {
		return nil, pfx.Err(err)
	}

	s, err := SliceFromDataSet(ds)
	if err != nil {
		return nil, pfx.Err(fmt.Errorf("%s: %v", path, err))
	}
	s.Path = path

	return s, nil
}

func parseFile(path string, dropPixels bool) (ds *element.DataSet, err error) {
	// The parser constructor reads the file preamble and can panic on
	// truncated input as well
	defer func() {
		if panicErr := recover(); panicErr != nil {
			ds, err = nil, fmt.Errorf("%s: %v", path, panicErr)
		}
	}()

	dcm, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	p, err := dicom.NewParserFromBytes(dcm, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %v", path, err)
	}

	ds, err = SafelyDicomParse(p, dicom.ParseOptions{
		DropPixelData: dropPixels,
	})
	if ds == nil || err != nil {
		return nil, fmt.Errorf("error reading dicom %s: %v", path, err)
	}

	return ds, nil
}

// SafelyDicomParse runs the parser and turns a panic inside it into an
// error
func SafelyDicomParse(p dicom.Parser, opts dicom.ParseOptions) (parsedData *element.DataSet, err error) {
	defer func() {
		if panicErr := recover(); panicErr != nil {
			err = fmt.Errorf("%v", panicErr)
		}
	}()

	return p.Parse(opts)
}

// HeaderFromDataSet extracts rows, columns, the cardiac number of images,
// the instance number and the rescale slope and intercept. Absent or
// malformed fields are left at their zero value.
func HeaderFromDataSet(ds *element.DataSet) *models.Header {
	h := &models.Header{}
	if ds == nil {
		return h
	}

	for _, elem := range ds.Elements {
		if elem == nil || len(elem.Value) == 0 {
			continue
		}

		switch elem.Tag {
		case dicomtag.Rows:
			h.Rows, _ = intValue(elem.Value[0])
		case dicomtag.Columns:
			h.Columns, _ = intValue(elem.Value[0])
		case dicomtag.CardiacNumberOfImages:
			h.TemporalFrameCount = stringValue(elem.Value[0])
		case dicomtag.InstanceNumber:
			h.InstanceNumber = stringValue(elem.Value[0])
		case dicomtag.RescaleSlope:
			if v, err := strconv.ParseFloat(stringValue(elem.Value[0]), 64); err == nil {
				h.RescaleSlope = &v
			}
		case dicomtag.RescaleIntercept:
			if v, err := strconv.ParseFloat(stringValue(elem.Value[0]), 64); err == nil {
				h.RescaleIntercept = &v
			}
		}
	}

	return h
}

// SliceFromDataSet returns the first frame of the dataset's pixel data.
// Encapsulated (compressed) frames are not supported.
func SliceFromDataSet(ds *element.DataSet) (*models.Slice, error) {
	if ds == nil {
		return nil, fmt.Errorf("no dataset")
	}

	h := HeaderFromDataSet(ds)
	bits := 0
	var pixels *element.PixelDataInfo

	for _, elem := range ds.Elements {
		if elem == nil || len(elem.Value) == 0 {
			continue
		}

		switch elem.Tag {
		case dicomtag.BitsAllocated:
			bits, _ = intValue(elem.Value[0])
		case dicomtag.PixelData:
			if info, ok := elem.Value[0].(element.PixelDataInfo); ok {
				pixels = &info
			}
		}
	}

	if pixels == nil || len(pixels.Frames) == 0 {
		return nil, fmt.Errorf("PixelData not found")
	}

	frame := pixels.Frames[0]
	if frame.IsEncapsulated() {
		return nil, fmt.Errorf("frame is encapsulated, which is not supported")
	}

	values := make([]int, len(frame.NativeData.Data))
	for j := range frame.NativeData.Data {
		if len(frame.NativeData.Data[j]) == 0 {
			return nil, fmt.Errorf("pixel %d has no samples", j)
		}
		values[j] = frame.NativeData.Data[j][0]
	}

	if x, y := len(values), h.Rows*h.Columns; x != y {
		return nil, fmt.Errorf("DICOM data has %d pixels but header declares %d (%d rows and %d cols)", x, y, h.Rows, h.Columns)
	}

	return &models.Slice{
		Width:    h.Columns,
		Height:   h.Rows,
		BitDepth: bits,
		Samples:  packSamples(values, bits),
	}, nil
}

// packSamples lays values out as little-endian unsigned integers at the
// effective width of bits. Values wider than the sample are truncated to
// their low bits.
func packSamples(values []int, bits int) []byte {
	depth := reconstruction.EffectiveBitDepth(bits)
	out := make([]byte, len(values)*depth/8)

	for i, v := range values {
		switch depth {
		case 8:
			out[i] = uint8(v)
		case 16:
			binary.LittleEndian.PutUint16(out[2*i:], uint16(v))
		case 32:
			binary.LittleEndian.PutUint32(out[4*i:], uint32(v))
		}
	}

	return out
}

func intValue(v interface{}) (int, bool) {
	switch x := v.(type) {
	case uint16:
		return int(x), true
	case uint32:
		return int(x), true
	case int16:
		return int(x), true
	case int32:
		return int(x), true
	case int:
		return x, true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(x))
		return n, err == nil
	default:
		return 0, false
	}
}

func stringValue(v interface{}) string {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x)
	case nil:
		return ""
	default:
		return fmt.Sprint(x)
	}
}
