package nifti

import (
	"math"

	"github.com/b71729/bin"
)

/*
===============================================================================
    VoxelArray
===============================================================================
*/

// VoxelArray represents the decoded voxel payload of a volumetric file.
//
// `Dims` lists the meaningful axis extents after a degenerate fourth axis of
// extent one has been dropped. The flat storage keeps the on-disk element
// order; `At` maps logical coordinates onto it, reversing the two innermost
// axis levels to account for the storage format's axis-traversal convention.
//
// For the packed colour element types the channel bytes are folded into one
// composite value per voxel, so the array is logically one dimension smaller
// than its on-disk shape.
type VoxelArray struct {
	ElementType ElementType
	Dims        []int
	data        interface{}
}

// Len returns the number of voxels.
func (va *VoxelArray) Len() int {
	if len(va.Dims) == 0 {
		return 0
	}
	n := 1
	for _, d := range va.Dims {
		n *= d
	}
	return n
}

// Values returns the flat backing slice in on-disk element order.
// Its concrete type follows `ElementType`; colour types yield composite
// `[]uint32` values.
func (va *VoxelArray) Values() interface{} {
	return va.data
}

// FlatIndex maps logical coordinates onto the flat backing slice.
// Coordinates partition from the outermost axis inward; the two innermost
// axis levels are reversed.
func (va *VoxelArray) FlatIndex(coords ...int) int {
	idx := 0
	stride := va.Len()
	for i, c := range coords {
		stride /= va.Dims[i]
		if i >= len(va.Dims)-2 {
			c = va.Dims[i] - 1 - c
		}
		idx += c * stride
	}
	return idx
}

// At returns the voxel value at the given logical coordinates.
func (va *VoxelArray) At(coords ...int) interface{} {
	idx := va.FlatIndex(coords...)
	switch data := va.data.(type) {
	case []uint8:
		return data[idx]
	case []int8:
		return data[idx]
	case []int16:
		return data[idx]
	case []uint16:
		return data[idx]
	case []int32:
		return data[idx]
	case []uint32:
		return data[idx]
	case []int64:
		return data[idx]
	case []uint64:
		return data[idx]
	case []float32:
		return data[idx]
	case []float64:
		return data[idx]
	case []complex64:
		return data[idx]
	case []complex128:
		return data[idx]
	}
	return nil
}

/*
===============================================================================
    Packed Colour Values
===============================================================================
*/

// PackRGB folds three channel bytes into one composite colour value using
// big-endian place values (256^2, 256, 1).
func PackRGB(r, g, b byte) uint32 {
	return uint32(r)<<16 | uint32(g)<<8 | uint32(b)
}

// UnpackRGB is the inverse of `PackRGB`.
func UnpackRGB(packed uint32) (r, g, b byte) {
	return byte(packed >> 16), byte(packed >> 8), byte(packed)
}

// PackRGBA folds four channel bytes into one composite colour value using
// big-endian place values (256^3, 256^2, 256, 1).
func PackRGBA(r, g, b, a byte) uint32 {
	return uint32(r)<<24 | uint32(g)<<16 | uint32(b)<<8 | uint32(a)
}

// UnpackRGBA is the inverse of `PackRGBA`.
func UnpackRGBA(packed uint32) (r, g, b, a byte) {
	return byte(packed >> 24), byte(packed >> 16), byte(packed >> 8), byte(packed)
}

/*
===============================================================================
    VoxelReader
===============================================================================
*/

// VoxelReader extends `bin.Reader` to export methods to assist in decoding
// voxel payloads, i.e. "ReadVoxels".
type VoxelReader struct {
	br bin.Reader
	tmpBuffers
}

// NewVoxelReader returns a fresh VoxelReader set up to use `source` for its
// data. `source` must carry the byte order resolved during header decode.
func NewVoxelReader(source bin.Reader) (vr VoxelReader) {
	vr = VoxelReader{br: source}
	return vr
}

// ReadVoxels attempts to completely decode the voxel payload described by
// `hdr` into `dst`.
//
// The Reader must be positioned at the header's payload offset. Exactly
// product(extents) elements are consumed; a short read is fatal.
func (vr *VoxelReader) ReadVoxels(hdr *VolumeHeader, dst *VoxelArray) error {
	dst.ElementType = hdr.ElementType

	// a degenerate time axis of extent one collapses before partitioning
	dst.Dims = append([]int{}, hdr.AxisExtents...)
	if len(dst.Dims) >= 4 && dst.Dims[3] == 1 {
		dst.Dims = append(dst.Dims[:3], dst.Dims[4:]...)
	}

	count := hdr.VoxelCount()
	if count == 0 {
		dst.data = nil
		return nil
	}

	elemSize := hdr.ElementType.Size()
	switch hdr.ElementType {
	case Binary, Float128, Complex256:
		return UnrecognizedEncodingError("ReadVoxels(): element type %s is not readable as a voxel payload", hdr.ElementType)
	}

	raw := make([]byte, count*elemSize)
	if vr.err = vr.br.ReadBytes(raw); vr.err != nil {
		return TruncatedPayloadError("ReadVoxels(): expected %d bytes of payload: %v", len(raw), vr.err)
	}

	order := vr.br.GetByteOrder()
	switch hdr.ElementType {
	case Uint8:
		dst.data = raw
	case Int8:
		data := make([]int8, count)
		for i, b := range raw {
			data[i] = int8(b)
		}
		dst.data = data
	case Int16:
		data := make([]int16, count)
		for i := range data {
			data[i] = int16(order.Uint16(raw[i*2:]))
		}
		dst.data = data
	case Uint16:
		data := make([]uint16, count)
		for i := range data {
			data[i] = order.Uint16(raw[i*2:])
		}
		dst.data = data
	case Int32:
		data := make([]int32, count)
		for i := range data {
			data[i] = int32(order.Uint32(raw[i*4:]))
		}
		dst.data = data
	case Uint32:
		data := make([]uint32, count)
		for i := range data {
			data[i] = order.Uint32(raw[i*4:])
		}
		dst.data = data
	case Int64:
		data := make([]int64, count)
		for i := range data {
			data[i] = int64(order.Uint64(raw[i*8:]))
		}
		dst.data = data
	case Uint64:
		data := make([]uint64, count)
		for i := range data {
			data[i] = order.Uint64(raw[i*8:])
		}
		dst.data = data
	case Float32:
		data := make([]float32, count)
		for i := range data {
			data[i] = math.Float32frombits(order.Uint32(raw[i*4:]))
		}
		dst.data = data
	case Float64:
		data := make([]float64, count)
		for i := range data {
			data[i] = math.Float64frombits(order.Uint64(raw[i*8:]))
		}
		dst.data = data
	case Complex64:
		data := make([]complex64, count)
		for i := range data {
			re := math.Float32frombits(order.Uint32(raw[i*8:]))
			im := math.Float32frombits(order.Uint32(raw[i*8+4:]))
			data[i] = complex(re, im)
		}
		dst.data = data
	case Complex128:
		data := make([]complex128, count)
		for i := range data {
			re := math.Float64frombits(order.Uint64(raw[i*16:]))
			im := math.Float64frombits(order.Uint64(raw[i*16+8:]))
			data[i] = complex(re, im)
		}
		dst.data = data
	case RGB24:
		data := make([]uint32, count)
		for i := range data {
			data[i] = PackRGB(raw[i*3], raw[i*3+1], raw[i*3+2])
		}
		dst.data = data
	case RGBA32:
		data := make([]uint32, count)
		for i := range data {
			data[i] = PackRGBA(raw[i*4], raw[i*4+1], raw[i*4+2], raw[i*4+3])
		}
		dst.data = data
	}
	return nil
}
