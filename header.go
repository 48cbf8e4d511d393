package nifti

import (
	"encoding/binary"
	"math"
	"strings"

	"github.com/b71729/bin"
)

/*
===============================================================================
    VolumeHeader
===============================================================================
*/

// headerSize is the fixed byte length of a volumetric header.
const headerSize = 348

// minPayloadOffset is the lowest byte offset at which a voxel payload may
// start; anything below would overlap the header + extension space.
const minPayloadOffset = 352

// magicTokens lists the two recognised header terminator literals:
// "n+1" for single-file volumes, "ni1" for header+payload file pairs.
var magicTokens = []string{"n+1", "ni1"}

// VolumeHeader represents a decoded volumetric header.
//
// Only the first `len(AxisExtents)` axes are meaningful; `GridSpacing` is
// truncated to match. `ByteOrder` records the byte order resolved for this
// header and is the order the voxel payload must be read in.
type VolumeHeader struct {
	AxisExtents    []int
	ElementType    ElementType
	BitsPerElement int
	GridSpacing    []float32
	QFac           float32
	PayloadOffset  int64
	ScaleSlope     float32
	ScaleIntercept float32
	DisplayMax     float32
	DisplayMin     float32
	SpaceUnit      SpaceUnit
	TimeUnit       TimeUnit
	DimInfo        byte
	SliceStart     int
	SliceEnd       int
	SliceCode      byte
	SliceDuration  float32
	TimeOffset     float32
	IntentParams   [3]float32
	IntentCode     int16
	IntentName     string
	Description    string
	AuxFile        string
	QFormCode      int16
	SFormCode      int16
	QuaternB       float32
	QuaternC       float32
	QuaternD       float32
	QOffsetX       float32
	QOffsetY       float32
	QOffsetZ       float32
	SRow           [3][4]float32
	GLMax          int32
	GLMin          int32
	Magic          string
	ByteOrder      binary.ByteOrder
}

// VoxelCount returns the product of the meaningful axis extents.
func (hdr *VolumeHeader) VoxelCount() int {
	n := 1
	for _, extent := range hdr.AxisExtents {
		n *= extent
	}
	if len(hdr.AxisExtents) == 0 {
		n = 0
	}
	return n
}

/*
===============================================================================
    HeaderReader
===============================================================================
*/

// tmpBuffers provides an assortment of temporary variables used internally
// to reduce allocation overhead.
//
// These variables are **not** safe for concurrent use.
type tmpBuffers struct {
	_1kb [1024]byte
	err  error
	ui16 uint16
	ui32 uint32
	f32  float32
}

// HeaderReader extends `bin.Reader` to export methods to assist in
// decoding volumetric headers, i.e. "ReadHeader".
type HeaderReader struct {
	br bin.Reader
	tmpBuffers
}

// NewHeaderReader returns a fresh HeaderReader set up to use `source`
// for its data.
func NewHeaderReader(source bin.Reader) (hr HeaderReader) {
	hr = HeaderReader{br: source}
	return hr
}

// IsLittleEndian returns whether this HeaderReader is set to parse
// data according to Little Endian byte ordering.
func (hr *HeaderReader) IsLittleEndian() bool {
	return hr.br.GetByteOrder() == binary.LittleEndian
}

// SetLittleEndian sets whether this HeaderReader should parse
// data according to Little Endian byte ordering.
func (hr *HeaderReader) SetLittleEndian(isLittleEndian bool) {
	if isLittleEndian {
		hr.br.SetByteOrder(binary.LittleEndian)
	} else {
		hr.br.SetByteOrder(binary.BigEndian)
	}
}

// determineByteOrder peeks the dimensionality-count field at byte offset 40
// and selects the byte order for the remainder of the decode: a count
// outside 0-7 implies the opposite of the default little-endian order.
//
// Must be called with the Reader positioned at the start of the header.
func (hr *HeaderReader) determineByteOrder() error {
	if hr.err = hr.br.Peek(hr._1kb[:42]); hr.err != nil {
		return MalformedHeaderError("determineByteOrder(): %v", hr.err)
	}
	dimCount := binary.LittleEndian.Uint16(hr._1kb[40:42])
	hr.SetLittleEndian(dimCount <= 7)
	Debugf("determined byte order: LittleEndian: %v", hr.IsLittleEndian())
	return nil
}

// readInt16 reads one int16 in the resolved byte order into `dst`.
func (hr *HeaderReader) readInt16(dst *int16) error {
	if hr.err = hr.br.ReadUint16(&hr.ui16); hr.err != nil {
		return hr.err
	}
	*dst = int16(hr.ui16)
	return nil
}

// readInt32 reads one int32 in the resolved byte order into `dst`.
func (hr *HeaderReader) readInt32(dst *int32) error {
	if hr.err = hr.br.ReadUint32(&hr.ui32); hr.err != nil {
		return hr.err
	}
	*dst = int32(hr.ui32)
	return nil
}

// readFloat32 reads one float32 in the resolved byte order into `dst`.
func (hr *HeaderReader) readFloat32(dst *float32) error {
	if hr.err = hr.br.ReadUint32(&hr.ui32); hr.err != nil {
		return hr.err
	}
	*dst = math.Float32frombits(hr.ui32)
	return nil
}

// readString reads a fixed-width, null-padded text field of `width` bytes
// into `dst`, trimming trailing padding.
func (hr *HeaderReader) readString(dst *string, width int) error {
	if hr.err = hr.br.ReadBytes(hr._1kb[:width]); hr.err != nil {
		return hr.err
	}
	*dst = strings.TrimRight(string(hr._1kb[:width]), "\x00 ")
	return nil
}

// readByte reads a single byte into `dst`.
func (hr *HeaderReader) readByte(dst *byte) error {
	if hr.err = hr.br.ReadBytes(hr._1kb[:1]); hr.err != nil {
		return hr.err
	}
	*dst = hr._1kb[0]
	return nil
}

// ReadHeader attempts to completely decode a 348-byte volumetric header
// into `dst`, resolving the byte order first and validating each field as
// it is consumed. On any validation failure the whole decode aborts with
// an error naming the first field that failed.
//
// Exactly `headerSize` bytes are consumed on success, leaving the Reader
// positioned immediately after the header.
func (hr *HeaderReader) ReadHeader(dst *VolumeHeader) error {
	if hr.err = hr.determineByteOrder(); hr.err != nil {
		return hr.err
	}
	if hr.IsLittleEndian() {
		dst.ByteOrder = binary.LittleEndian
	} else {
		dst.ByteOrder = binary.BigEndian
	}

	// bytes 0-3: header size; the single structural anchor of the format
	var size int32
	if hr.err = hr.readInt32(&size); hr.err != nil {
		return MalformedHeaderError("ReadHeader(): size: %v", hr.err)
	}
	if size != headerSize {
		return MalformedHeaderError("ReadHeader(): size = %d (!= %d)", size, headerSize)
	}

	// bytes 4-39: unused type tag, name, extents, session code, flag + dim info
	if hr.err = hr.br.Discard(35); hr.err != nil {
		return MalformedHeaderError("ReadHeader(): %v", hr.err)
	}
	if hr.err = hr.readByte(&dst.DimInfo); hr.err != nil {
		return MalformedHeaderError("ReadHeader(): dim_info: %v", hr.err)
	}

	// bytes 40-55: dimensionality count + 7 axis extents
	var dim [8]int16
	for i := range dim {
		if hr.err = hr.readInt16(&dim[i]); hr.err != nil {
			return MalformedHeaderError("ReadHeader(): dim[%d]: %v", i, hr.err)
		}
	}
	if dim[0] < 0 || dim[0] > 7 {
		return MalformedHeaderError("ReadHeader(): dim[0] = %d (out of range 0-7)", dim[0])
	}
	dst.AxisExtents = make([]int, dim[0])
	for i := range dst.AxisExtents {
		if dim[i+1] < 1 {
			return MalformedHeaderError("ReadHeader(): dim[%d] = %d (not positive)", i+1, dim[i+1])
		}
		dst.AxisExtents[i] = int(dim[i+1])
	}

	// bytes 56-69: intent parameters + intent code
	for i := range dst.IntentParams {
		if hr.err = hr.readFloat32(&dst.IntentParams[i]); hr.err != nil {
			return MalformedHeaderError("ReadHeader(): intent_p%d: %v", i+1, hr.err)
		}
	}
	if hr.err = hr.readInt16(&dst.IntentCode); hr.err != nil {
		return MalformedHeaderError("ReadHeader(): intent_code: %v", hr.err)
	}

	// bytes 70-73: element type + bits per element
	var datatype, bitpix int16
	if hr.err = hr.readInt16(&datatype); hr.err != nil {
		return MalformedHeaderError("ReadHeader(): datatype: %v", hr.err)
	}
	if dst.ElementType, hr.err = ElementTypeFromCode(int32(datatype)); hr.err != nil {
		return hr.err
	}
	if hr.err = hr.readInt16(&bitpix); hr.err != nil {
		return MalformedHeaderError("ReadHeader(): bitpix: %v", hr.err)
	}
	dst.BitsPerElement = int(bitpix)

	// bytes 74-75: first slice index
	var slice16 int16
	if hr.err = hr.readInt16(&slice16); hr.err != nil {
		return MalformedHeaderError("ReadHeader(): slice_start: %v", hr.err)
	}
	dst.SliceStart = int(slice16)

	// bytes 76-107: grid spacings; slot 0 is the quaternion orientation
	// factor, slots 1..N pair with the kept axis extents
	var pixdim [8]float32
	for i := range pixdim {
		if hr.err = hr.readFloat32(&pixdim[i]); hr.err != nil {
			return MalformedHeaderError("ReadHeader(): pixdim[%d]: %v", i, hr.err)
		}
	}
	dst.QFac = pixdim[0]
	dst.GridSpacing = make([]float32, len(dst.AxisExtents))
	copy(dst.GridSpacing, pixdim[1:1+len(dst.AxisExtents)])

	// bytes 108-111: payload offset, floored at the extension-free boundary
	if hr.err = hr.readFloat32(&hr.f32); hr.err != nil {
		return MalformedHeaderError("ReadHeader(): vox_offset: %v", hr.err)
	}
	dst.PayloadOffset = int64(hr.f32)
	if dst.PayloadOffset < minPayloadOffset {
		Debugf("payload offset %d below %d; floored", dst.PayloadOffset, minPayloadOffset)
		dst.PayloadOffset = minPayloadOffset
	}

	// bytes 112-119: intensity scale
	if hr.err = hr.readFloat32(&dst.ScaleSlope); hr.err != nil {
		return MalformedHeaderError("ReadHeader(): scl_slope: %v", hr.err)
	}
	if hr.err = hr.readFloat32(&dst.ScaleIntercept); hr.err != nil {
		return MalformedHeaderError("ReadHeader(): scl_inter: %v", hr.err)
	}

	// bytes 120-123: last slice index, slice timing code, packed units
	if hr.err = hr.readInt16(&slice16); hr.err != nil {
		return MalformedHeaderError("ReadHeader(): slice_end: %v", hr.err)
	}
	dst.SliceEnd = int(slice16)
	if hr.err = hr.readByte(&dst.SliceCode); hr.err != nil {
		return MalformedHeaderError("ReadHeader(): slice_code: %v", hr.err)
	}
	var units byte
	if hr.err = hr.readByte(&units); hr.err != nil {
		return MalformedHeaderError("ReadHeader(): xyzt_units: %v", hr.err)
	}
	dst.SpaceUnit, dst.TimeUnit = SplitUnits(units)

	// bytes 124-139: display range, slice duration, time axis shift
	if hr.err = hr.readFloat32(&dst.DisplayMax); hr.err != nil {
		return MalformedHeaderError("ReadHeader(): cal_max: %v", hr.err)
	}
	if hr.err = hr.readFloat32(&dst.DisplayMin); hr.err != nil {
		return MalformedHeaderError("ReadHeader(): cal_min: %v", hr.err)
	}
	if hr.err = hr.readFloat32(&dst.SliceDuration); hr.err != nil {
		return MalformedHeaderError("ReadHeader(): slice_duration: %v", hr.err)
	}
	if hr.err = hr.readFloat32(&dst.TimeOffset); hr.err != nil {
		return MalformedHeaderError("ReadHeader(): toffset: %v", hr.err)
	}

	// bytes 140-147: unused display range, stored as (max, min)
	if hr.err = hr.readInt32(&dst.GLMax); hr.err != nil {
		return MalformedHeaderError("ReadHeader(): glmax: %v", hr.err)
	}
	if hr.err = hr.readInt32(&dst.GLMin); hr.err != nil {
		return MalformedHeaderError("ReadHeader(): glmin: %v", hr.err)
	}

	// bytes 148-251: free-text description + auxiliary filename
	if hr.err = hr.readString(&dst.Description, 80); hr.err != nil {
		return MalformedHeaderError("ReadHeader(): descrip: %v", hr.err)
	}
	if hr.err = hr.readString(&dst.AuxFile, 24); hr.err != nil {
		return MalformedHeaderError("ReadHeader(): aux_file: %v", hr.err)
	}

	// bytes 252-279: orientation codes, quaternion triple + offsets
	if hr.err = hr.readInt16(&dst.QFormCode); hr.err != nil {
		return MalformedHeaderError("ReadHeader(): qform_code: %v", hr.err)
	}
	if hr.err = hr.readInt16(&dst.SFormCode); hr.err != nil {
		return MalformedHeaderError("ReadHeader(): sform_code: %v", hr.err)
	}
	for i, dstf := range []*float32{
		&dst.QuaternB, &dst.QuaternC, &dst.QuaternD,
		&dst.QOffsetX, &dst.QOffsetY, &dst.QOffsetZ,
	} {
		if hr.err = hr.readFloat32(dstf); hr.err != nil {
			return MalformedHeaderError("ReadHeader(): quatern[%d]: %v", i, hr.err)
		}
	}

	// bytes 280-327: 3x4 affine rows
	for i := 0; i < 3; i++ {
		for j := 0; j < 4; j++ {
			if hr.err = hr.readFloat32(&dst.SRow[i][j]); hr.err != nil {
				return MalformedHeaderError("ReadHeader(): srow[%d][%d]: %v", i, j, hr.err)
			}
		}
	}

	// bytes 328-343: intent name
	if hr.err = hr.readString(&dst.IntentName, 16); hr.err != nil {
		return MalformedHeaderError("ReadHeader(): intent_name: %v", hr.err)
	}

	// bytes 344-347: magic terminator
	if hr.err = hr.readString(&dst.Magic, 4); hr.err != nil {
		return MalformedHeaderError("ReadHeader(): magic: %v", hr.err)
	}
	for _, token := range magicTokens {
		if dst.Magic == token {
			return nil
		}
	}
	return MalformedHeaderError("ReadHeader(): magic = %q (not one of %v)", dst.Magic, magicTokens)
}
