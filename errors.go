package nifti

import "fmt"

/*
===============================================================================
    Error Types
===============================================================================
*/

// MalformedHeader is an error indicating that a fixed header field is
// structurally invalid (wrong size, bad magic, out-of-range dimensionality).
type MalformedHeader struct {
	error
}

// UnrecognizedFormatCode is an error indicating that an element-type or unit
// code is not present in the datatype catalog. `Code` carries the offending
// value.
type UnrecognizedFormatCode struct {
	error
	Code int32
}

// TruncatedPayload is an error indicating that fewer bytes or elements were
// available than the header or data array declared.
type TruncatedPayload struct {
	error
}

// UnrecognizedEncoding is an error indicating an unknown indexing order,
// element type, or encoding kind in a surface data array.
type UnrecognizedEncoding struct {
	error
}

// MissingElement is an error indicating that a required document element
// (such as a data array payload) was not found.
type MissingElement struct {
	error
}

// MalformedHeaderError raises a `MalformedHeader` error
func MalformedHeaderError(format string, a ...interface{}) *MalformedHeader {
	return &MalformedHeader{fmt.Errorf(format, a...)}
}

// UnrecognizedFormatCodeError raises an `UnrecognizedFormatCode` error
func UnrecognizedFormatCodeError(code int32, format string, a ...interface{}) *UnrecognizedFormatCode {
	return &UnrecognizedFormatCode{fmt.Errorf(format, a...), code}
}

// TruncatedPayloadError raises a `TruncatedPayload` error
func TruncatedPayloadError(format string, a ...interface{}) *TruncatedPayload {
	return &TruncatedPayload{fmt.Errorf(format, a...)}
}

// UnrecognizedEncodingError raises an `UnrecognizedEncoding` error
func UnrecognizedEncodingError(format string, a ...interface{}) *UnrecognizedEncoding {
	return &UnrecognizedEncoding{fmt.Errorf(format, a...)}
}

// MissingElementError raises a `MissingElement` error
func MissingElementError(format string, a ...interface{}) *MissingElement {
	return &MissingElement{fmt.Errorf(format, a...)}
}
