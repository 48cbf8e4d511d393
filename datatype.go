package nifti

/*
===============================================================================
    Datatype Catalog
===============================================================================
*/

// ElementType enumerates the voxel element types recognised by the
// volumetric format, as per the NIfTI-1 `datatype` field.
type ElementType int

// Recognised element types. RGB24 and RGBA32 are packed colour types: their
// channel bytes are folded into one composite value per voxel during decode.
const (
	Binary ElementType = iota
	Uint8
	Int16
	Int32
	Float32
	Complex64
	Float64
	RGB24
	Int8
	Uint16
	Uint32
	Int64
	Uint64
	Float128
	Complex128
	Complex256
	RGBA32
)

// ElementTypeFromCode returns the `ElementType` for the given on-disk
// datatype code. An unknown code yields an `UnrecognizedFormatCode` error
// carrying the offending value.
func ElementTypeFromCode(code int32) (ElementType, error) {
	switch code {
	case 1:
		return Binary, nil
	case 2:
		return Uint8, nil
	case 4:
		return Int16, nil
	case 8:
		return Int32, nil
	case 16:
		return Float32, nil
	case 32:
		return Complex64, nil
	case 64:
		return Float64, nil
	case 128:
		return RGB24, nil
	case 256:
		return Int8, nil
	case 512:
		return Uint16, nil
	case 768:
		return Uint32, nil
	case 1024:
		return Int64, nil
	case 1280:
		return Uint64, nil
	case 1536:
		return Float128, nil
	case 1792:
		return Complex128, nil
	case 2048:
		return Complex256, nil
	case 2304:
		return RGBA32, nil
	default:
		return Binary, UnrecognizedFormatCodeError(code, "unrecognized datatype code: %d", code)
	}
}

// Code returns the on-disk datatype code for `t`.
// It is the exact inverse of `ElementTypeFromCode`.
func (t ElementType) Code() int32 {
	switch t {
	case Binary:
		return 1
	case Uint8:
		return 2
	case Int16:
		return 4
	case Int32:
		return 8
	case Float32:
		return 16
	case Complex64:
		return 32
	case Float64:
		return 64
	case RGB24:
		return 128
	case Int8:
		return 256
	case Uint16:
		return 512
	case Uint32:
		return 768
	case Int64:
		return 1024
	case Uint64:
		return 1280
	case Float128:
		return 1536
	case Complex128:
		return 1792
	case Complex256:
		return 2048
	case RGBA32:
		return 2304
	}
	return 0
}

// ColorChannels returns the number of packed colour channels for `t`:
// three for RGB24, four for RGBA32, zero for every non-colour type.
func (t ElementType) ColorChannels() int {
	switch t {
	case RGB24:
		return 3
	case RGBA32:
		return 4
	default:
		return 0
	}
}

// Size returns the number of bytes one element of `t` occupies on disk.
func (t ElementType) Size() int {
	switch t {
	case Uint8, Int8:
		return 1
	case Int16, Uint16:
		return 2
	case Int32, Uint32, Float32:
		return 4
	case Int64, Uint64, Float64, Complex64:
		return 8
	case Float128, Complex128:
		return 16
	case Complex256:
		return 32
	case RGB24:
		return 3
	case RGBA32:
		return 4
	}
	return 0
}

func (t ElementType) String() string {
	switch t {
	case Binary:
		return "Binary"
	case Uint8:
		return "Uint8"
	case Int16:
		return "Int16"
	case Int32:
		return "Int32"
	case Float32:
		return "Float32"
	case Complex64:
		return "Complex64"
	case Float64:
		return "Float64"
	case RGB24:
		return "RGB24"
	case Int8:
		return "Int8"
	case Uint16:
		return "Uint16"
	case Uint32:
		return "Uint32"
	case Int64:
		return "Int64"
	case Uint64:
		return "Uint64"
	case Float128:
		return "Float128"
	case Complex128:
		return "Complex128"
	case Complex256:
		return "Complex256"
	case RGBA32:
		return "RGBA32"
	}
	return "Unknown"
}

/*
===============================================================================
    Unit Codes
===============================================================================
*/

// SpaceUnit enumerates recognised spatial units.
type SpaceUnit int

// TimeUnit enumerates recognised temporal/frequency units.
type TimeUnit int

// Spatial units occupy bits 0-2 of the packed units byte.
const (
	SpaceUnitNone SpaceUnit = iota
	SpaceUnitMeter
	SpaceUnitMillimeter
	SpaceUnitMicrometer
)

// Temporal units occupy the remaining bits of the packed units byte.
const (
	TimeUnitNone TimeUnit = iota
	TimeUnitSecond
	TimeUnitMillisecond
	TimeUnitMicrosecond
	TimeUnitHertz
	TimeUnitPPM
	TimeUnitRadiansPerSecond
)

// SplitUnits decodes the packed xyzt units byte into its independent
// spatial and temporal parts.
func SplitUnits(units byte) (SpaceUnit, TimeUnit) {
	var space SpaceUnit
	switch units & 0x07 {
	case 1:
		space = SpaceUnitMeter
	case 2:
		space = SpaceUnitMillimeter
	case 3:
		space = SpaceUnitMicrometer
	default:
		space = SpaceUnitNone
	}
	var time TimeUnit
	switch units &^ 0x07 {
	case 8:
		time = TimeUnitSecond
	case 16:
		time = TimeUnitMillisecond
	case 24:
		time = TimeUnitMicrosecond
	case 32:
		time = TimeUnitHertz
	case 40:
		time = TimeUnitPPM
	case 48:
		time = TimeUnitRadiansPerSecond
	default:
		time = TimeUnitNone
	}
	return space, time
}

// JoinUnits packs a (space, time) unit pair back into a single byte.
// It is the exact inverse of `SplitUnits`.
func JoinUnits(space SpaceUnit, time TimeUnit) byte {
	var units byte
	switch space {
	case SpaceUnitMeter:
		units |= 1
	case SpaceUnitMillimeter:
		units |= 2
	case SpaceUnitMicrometer:
		units |= 3
	}
	switch time {
	case TimeUnitSecond:
		units |= 8
	case TimeUnitMillisecond:
		units |= 16
	case TimeUnitMicrosecond:
		units |= 24
	case TimeUnitHertz:
		units |= 32
	case TimeUnitPPM:
		units |= 40
	case TimeUnitRadiansPerSecond:
		units |= 48
	}
	return units
}

func (u SpaceUnit) String() string {
	switch u {
	case SpaceUnitMeter:
		return "m"
	case SpaceUnitMillimeter:
		return "mm"
	case SpaceUnitMicrometer:
		return "um"
	}
	return "none"
}

func (u TimeUnit) String() string {
	switch u {
	case TimeUnitSecond:
		return "s"
	case TimeUnitMillisecond:
		return "ms"
	case TimeUnitMicrosecond:
		return "us"
	case TimeUnitHertz:
		return "hz"
	case TimeUnitPPM:
		return "ppm"
	case TimeUnitRadiansPerSecond:
		return "rad/s"
	}
	return "none"
}
