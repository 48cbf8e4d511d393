package nifti

import (
	"bytes"
	"encoding/binary"
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
)

/*
===============================================================================
    Intent Codes
===============================================================================
*/

// Intent categorises the semantic role of a surface data array.
// Unrecognised intent codes are tagged `IntentOther`; intent is advisory
// and never a decode failure by itself.
type Intent int

// Recognised intent categories.
const (
	IntentOther Intent = iota
	IntentTensor
	IntentLabels
	IntentVertexMask
	IntentPoints
	IntentColorOverlay
	IntentShape
	IntentTimeSeries
	IntentFaces
	IntentVectorField
)

// intentFromName maps a declared intent code onto its category.
func intentFromName(name string) Intent {
	switch name {
	case "NIFTI_INTENT_GENMATRIX", "NIFTI_INTENT_SYMMATRIX":
		return IntentTensor
	case "NIFTI_INTENT_LABEL":
		return IntentLabels
	case "NIFTI_INTENT_NODE_INDEX":
		return IntentVertexMask
	case "NIFTI_INTENT_POINTSET":
		return IntentPoints
	case "NIFTI_INTENT_RGB_VECTOR", "NIFTI_INTENT_RGBA_VECTOR":
		return IntentColorOverlay
	case "NIFTI_INTENT_SHAPE":
		return IntentShape
	case "NIFTI_INTENT_TIME_SERIES":
		return IntentTimeSeries
	case "NIFTI_INTENT_TRIANGLE":
		return IntentFaces
	case "NIFTI_INTENT_VECTOR":
		return IntentVectorField
	}
	return IntentOther
}

func (in Intent) String() string {
	switch in {
	case IntentTensor:
		return "tensor"
	case IntentLabels:
		return "labels"
	case IntentVertexMask:
		return "vertex-mask"
	case IntentPoints:
		return "points"
	case IntentColorOverlay:
		return "color-overlay"
	case IntentShape:
		return "shape"
	case IntentTimeSeries:
		return "time-series"
	case IntentFaces:
		return "faces"
	case IntentVectorField:
		return "vector-field"
	}
	return "other"
}

/*
===============================================================================
    Data Types
===============================================================================
*/

// Color represents one RGBA colour with components in [0,1].
type Color struct {
	R, G, B, A float32
}

// CoordTransform represents a declared coordinate transform between two
// named spaces.
type CoordTransform struct {
	DataSpace        string
	TransformedSpace string
	Matrix           *mat.Dense
}

// DataArray represents one decoded surface data array.
//
// `Values` holds the decoded payload after reordering into declared axis
// order and intent-specific post-processing. Vertex-mask and face indices
// are re-indexed to the 1-based in-memory convention; colour intents fold
// their trailing channel axis into `[]Color` values.
type DataArray struct {
	Intent      Intent
	IntentName  string
	ElementType ElementType
	Dims        []int
	Values      interface{}
	Transform   *CoordTransform
	Meta        map[string]string
}

// Len returns the declared element count (the product of `Dims`).
func (da *DataArray) Len() int {
	if len(da.Dims) == 0 {
		return 0
	}
	n := 1
	for _, d := range da.Dims {
		n *= d
	}
	return n
}

// Label represents one label-table entry.
type Label struct {
	Key   int32
	Name  string
	Color Color
}

// LabelTable provides an integer-key to display-colour lookup for
// categorical per-vertex data. A nil *LabelTable means the document carried
// no table at all, which is distinct from an empty one.
type LabelTable struct {
	byKey map[int32]Label
	keys  []int32
}

// Get returns the label for `key`.
// If the key is not found, param `bool` will be false.
func (lt *LabelTable) Get(key int32) (Label, bool) {
	l, ok := lt.byKey[key]
	return l, ok
}

// Keys returns all label keys in ascending order.
func (lt *LabelTable) Keys() []int32 {
	return lt.keys
}

// Len returns the number of labels.
func (lt *LabelTable) Len() int {
	return len(lt.keys)
}

// Surface represents a parsed surface document: the decoded data arrays
// plus the optional label table and document metadata.
type Surface struct {
	FilePath string
	Version  string
	Meta     map[string]string
	Labels   *LabelTable
	Arrays   []DataArray
}

/*
===============================================================================
    XML Schema
===============================================================================
*/

type giftiDocument struct {
	XMLName    xml.Name         `xml:"GIFTI"`
	Version    string           `xml:"Version,attr"`
	MetaData   *giftiMetaData   `xml:"MetaData"`
	LabelTable *giftiLabelTable `xml:"LabelTable"`
	DataArrays []giftiDataArray `xml:"DataArray"`
}

type giftiMetaData struct {
	Entries []giftiMetaEntry `xml:"MD"`
}

type giftiMetaEntry struct {
	Name  string `xml:"Name"`
	Value string `xml:"Value"`
}

type giftiLabelTable struct {
	Labels []giftiLabel `xml:"Label"`
}

type giftiLabel struct {
	Key   *int32  `xml:"Key,attr"`
	Index *int32  `xml:"Index,attr"` // pre-1.0 documents use Index
	Red   float32 `xml:"Red,attr"`
	Green float32 `xml:"Green,attr"`
	Blue  float32 `xml:"Blue,attr"`
	Alpha float32 `xml:"Alpha,attr"`
	Name  string  `xml:",chardata"`
}

type giftiDataArray struct {
	Intent             string          `xml:"Intent,attr"`
	DataType           string          `xml:"DataType,attr"`
	ArrayIndexingOrder string          `xml:"ArrayIndexingOrder,attr"`
	Dimensionality     int             `xml:"Dimensionality,attr"`
	Dim0               int             `xml:"Dim0,attr"`
	Dim1               int             `xml:"Dim1,attr"`
	Dim2               int             `xml:"Dim2,attr"`
	Dim3               int             `xml:"Dim3,attr"`
	Dim4               int             `xml:"Dim4,attr"`
	Dim5               int             `xml:"Dim5,attr"`
	Encoding           string          `xml:"Encoding,attr"`
	Endian             string          `xml:"Endian,attr"`
	MetaData           *giftiMetaData  `xml:"MetaData"`
	Transform          *giftiTransform `xml:"CoordinateSystemTransformMatrix"`
	Data               *giftiData      `xml:"Data"`
}

type giftiTransform struct {
	DataSpace        string `xml:"DataSpace"`
	TransformedSpace string `xml:"TransformedSpace"`
	MatrixData       string `xml:"MatrixData"`
}

type giftiData struct {
	Text string `xml:",chardata"`
}

/*
===============================================================================
    Surface Parser
===============================================================================
*/

// FromReader decodes a surface document from `source`, returning an error
// if something went wrong during the process.
//
// A data array that fails to decode aborts the whole parse in strict mode;
// otherwise it is logged and skipped, and decodable siblings are kept.
func (s *Surface) FromReader(source io.Reader) error {
	doc := giftiDocument{}
	if err := xml.NewDecoder(source).Decode(&doc); err != nil {
		return MissingElementError("FromReader(): %v", err)
	}
	s.Version = doc.Version
	s.Meta = metaMap(doc.MetaData)
	s.Labels = decodeLabelTable(doc.LabelTable)

	strict := GetConfig().StrictMode
	s.Arrays = make([]DataArray, 0, len(doc.DataArrays))
	for i := range doc.DataArrays {
		array, err := decodeDataArray(&doc.DataArrays[i])
		if err != nil {
			if strict {
				return fmt.Errorf("FromReader(): data array %d: %w", i, err)
			}
			Warnf("skipping data array %d: %v", i, err)
			continue
		}
		s.Arrays = append(s.Arrays, array)
	}
	return nil
}

// ParseSurface takes a relative/absolute path to a surface file and returns
// a parsed `Surface` [+ error]
func ParseSurface(path string) (Surface, error) {
	s := Surface{FilePath: path}
	f, err := os.Open(path)
	if err != nil {
		return s, err
	}
	defer f.Close()
	if err := s.FromReader(f); err != nil {
		return s, fmt.Errorf(`the file "%s" could not be decoded: %v`, filepath.Base(path), err)
	}
	return s, nil
}

// ParseSurfaceBytes parses a surface document from a bytestream
func ParseSurfaceBytes(source []byte) (Surface, error) {
	s := Surface{}
	if err := s.FromReader(bytes.NewReader(source)); err != nil {
		return s, err
	}
	return s, nil
}

// metaMap flattens name/value metadata pairs into a map.
func metaMap(md *giftiMetaData) map[string]string {
	meta := map[string]string{}
	if md == nil {
		return meta
	}
	for _, entry := range md.Entries {
		meta[entry.Name] = entry.Value
	}
	return meta
}

// decodeLabelTable extracts label definitions into a key-sorted lookup.
// A missing table yields nil, distinct from an empty table.
func decodeLabelTable(lt *giftiLabelTable) *LabelTable {
	if lt == nil {
		return nil
	}
	table := LabelTable{byKey: map[int32]Label{}}
	for _, raw := range lt.Labels {
		key := int32(0)
		switch {
		case raw.Key != nil:
			key = *raw.Key
		case raw.Index != nil:
			key = *raw.Index
		}
		table.byKey[key] = Label{
			Key:  key,
			Name: strings.TrimSpace(raw.Name),
			Color: Color{
				R: raw.Red,
				G: raw.Green,
				B: raw.Blue,
				A: raw.Alpha,
			},
		}
	}
	table.keys = make([]int32, 0, len(table.byKey))
	for key := range table.byKey {
		table.keys = append(table.keys, key)
	}
	sort.Slice(table.keys, func(i, j int) bool { return table.keys[i] < table.keys[j] })
	return &table
}

/*
===============================================================================
    Data Array Decoder
===============================================================================
*/

// elementTypeFromName resolves the surface format's element-type vocabulary.
// Only the three documented types are recognised.
func elementTypeFromName(name string) (ElementType, error) {
	switch name {
	case "NIFTI_TYPE_UINT8":
		return Uint8, nil
	case "NIFTI_TYPE_INT32":
		return Int32, nil
	case "NIFTI_TYPE_FLOAT32":
		return Float32, nil
	}
	return Binary, UnrecognizedEncodingError("unrecognized element type: %q", name)
}

// byteOrderFromName resolves the declared byte order of an encoded payload.
// An absent attribute defaults to little endian.
func byteOrderFromName(name string) (binary.ByteOrder, error) {
	switch name {
	case "", "LittleEndian":
		return binary.LittleEndian, nil
	case "BigEndian":
		return binary.BigEndian, nil
	}
	return nil, UnrecognizedEncodingError("unrecognized byte order: %q", name)
}

// decodeDataArray completely decodes one data-array element: encoding,
// ordering, element type and intent are resolved, the payload bytes are
// decoded and reordered into declared axis order, and the intent-specific
// transform is applied.
func decodeDataArray(el *giftiDataArray) (DataArray, error) {
	array := DataArray{
		Intent:     intentFromName(el.Intent),
		IntentName: el.Intent,
		Meta:       metaMap(el.MetaData),
	}
	if array.Intent == IntentOther && el.Intent != "" {
		Debugf("unrecognized intent %q tagged as other", el.Intent)
	}

	if el.Dimensionality < 1 || el.Dimensionality > 6 {
		return array, UnrecognizedEncodingError("dimensionality = %d (out of range 1-6)", el.Dimensionality)
	}
	slots := [6]int{el.Dim0, el.Dim1, el.Dim2, el.Dim3, el.Dim4, el.Dim5}
	for i := 0; i < el.Dimensionality; i++ {
		if slots[i] < 1 {
			return array, UnrecognizedEncodingError("dim%d = %d (not positive)", i, slots[i])
		}
	}
	array.Dims = append([]int{}, slots[:el.Dimensionality]...)

	var err error
	if array.ElementType, err = elementTypeFromName(el.DataType); err != nil {
		return array, err
	}
	order, err := byteOrderFromName(el.Endian)
	if err != nil {
		return array, err
	}

	columnMajor := false
	switch el.ArrayIndexingOrder {
	case "RowMajorOrder":
	case "ColumnMajorOrder":
		columnMajor = true
	default:
		return array, UnrecognizedEncodingError("unrecognized indexing order: %q", el.ArrayIndexingOrder)
	}

	if el.Data == nil {
		return array, MissingElementError("data array has no payload element")
	}
	count := array.Len()
	switch el.Encoding {
	case "ASCII":
		array.Values, err = parseASCIIValues(el.Data.Text, array.ElementType, count)
	case "Base64Binary":
		var raw []byte
		if raw, err = decodeBase64Text(el.Data.Text); err != nil {
			err = UnrecognizedEncodingError("base64 payload: %v", err)
			break
		}
		array.Values, err = elementsFromBytes(raw, array.ElementType, count, order)
	case "GZipBase64Binary":
		var raw []byte
		if raw, err = NewByteStreamCodec().Decode(el.Data.Text); err != nil {
			break
		}
		array.Values, err = elementsFromBytes(raw, array.ElementType, count, order)
	default:
		err = UnrecognizedEncodingError("unrecognized encoding: %q", el.Encoding)
	}
	if err != nil {
		return array, err
	}

	if columnMajor {
		array.Values = transposeToRowMajor(array.Values, array.Dims)
	}
	applyIntentTransform(&array)

	if el.Transform != nil {
		array.Transform = decodeCoordTransform(el.Transform)
	}
	return array, nil
}

// parseASCIIValues parses a plain-text numeric table into `count` typed
// elements.
func parseASCIIValues(text string, et ElementType, count int) (interface{}, error) {
	fields := strings.Fields(text)
	if len(fields) < count {
		return nil, TruncatedPayloadError("expected %d elements, found %d", count, len(fields))
	}
	switch et {
	case Uint8:
		values := make([]uint8, count)
		for i := 0; i < count; i++ {
			v, err := strconv.ParseUint(fields[i], 10, 8)
			if err != nil {
				return nil, UnrecognizedEncodingError("element %d: %v", i, err)
			}
			values[i] = uint8(v)
		}
		return values, nil
	case Int32:
		values := make([]int32, count)
		for i := 0; i < count; i++ {
			v, err := strconv.ParseInt(fields[i], 10, 32)
			if err != nil {
				return nil, UnrecognizedEncodingError("element %d: %v", i, err)
			}
			values[i] = int32(v)
		}
		return values, nil
	case Float32:
		values := make([]float32, count)
		for i := 0; i < count; i++ {
			v, err := strconv.ParseFloat(fields[i], 32)
			if err != nil {
				return nil, UnrecognizedEncodingError("element %d: %v", i, err)
			}
			values[i] = float32(v)
		}
		return values, nil
	}
	return nil, UnrecognizedEncodingError("element type %s has no text form", et)
}

// elementsFromBytes interprets `raw` as `count` typed elements under the
// declared byte order.
func elementsFromBytes(raw []byte, et ElementType, count int, order binary.ByteOrder) (interface{}, error) {
	need := count * et.Size()
	if len(raw) < need {
		return nil, TruncatedPayloadError("expected %d payload bytes, found %d", need, len(raw))
	}
	switch et {
	case Uint8:
		values := make([]uint8, count)
		copy(values, raw)
		return values, nil
	case Int32:
		values := make([]int32, count)
		for i := range values {
			values[i] = int32(order.Uint32(raw[i*4:]))
		}
		return values, nil
	case Float32:
		values := make([]float32, count)
		for i := range values {
			values[i] = math.Float32frombits(order.Uint32(raw[i*4:]))
		}
		return values, nil
	}
	return nil, UnrecognizedEncodingError("element type %s has no binary form", et)
}

// transposeToRowMajor reorders a column-major flat payload into declared
// (row-major) axis order, so all downstream indexing is uniform.
func transposeToRowMajor(values interface{}, dims []int) interface{} {
	n := 1
	for _, d := range dims {
		n *= d
	}
	if n == 0 {
		return values
	}

	// column-major strides over the declared dims
	strides := make([]int, len(dims))
	stride := 1
	for i := range dims {
		strides[i] = stride
		stride *= dims[i]
	}

	perm := make([]int, n)
	coords := make([]int, len(dims))
	for out := 0; out < n; out++ {
		src := 0
		for i, c := range coords {
			src += c * strides[i]
		}
		perm[out] = src
		for i := len(coords) - 1; i >= 0; i-- {
			coords[i]++
			if coords[i] < dims[i] {
				break
			}
			coords[i] = 0
		}
	}

	switch data := values.(type) {
	case []uint8:
		reordered := make([]uint8, n)
		for out, src := range perm {
			reordered[out] = data[src]
		}
		return reordered
	case []int32:
		reordered := make([]int32, n)
		for out, src := range perm {
			reordered[out] = data[src]
		}
		return reordered
	case []float32:
		reordered := make([]float32, n)
		for out, src := range perm {
			reordered[out] = data[src]
		}
		return reordered
	}
	return values
}

// applyIntentTransform applies the intent-specific post-processing step:
// vertex-mask and face indices move from 0-based storage to the 1-based
// in-memory convention, and colour intents fold their channel axis into
// `Color` tuples. Every other intent is identity.
func applyIntentTransform(array *DataArray) {
	switch array.Intent {
	case IntentVertexMask, IntentFaces:
		switch data := array.Values.(type) {
		case []uint8:
			for i := range data {
				data[i]++
			}
		case []int32:
			for i := range data {
				data[i]++
			}
		case []float32:
			for i := range data {
				data[i]++
			}
		}
	case IntentColorOverlay:
		channels := 0
		if len(array.Dims) >= 2 {
			channels = array.Dims[len(array.Dims)-1]
		}
		data, ok := array.Values.([]float32)
		if !ok || (channels != 3 && channels != 4) {
			Warnf("colour array has unusable shape %v (%s); left untransformed", array.Dims, array.ElementType)
			return
		}
		n := array.Len() / channels
		colors := make([]Color, n)
		for i := range colors {
			colors[i] = Color{
				R: data[i*channels],
				G: data[i*channels+1],
				B: data[i*channels+2],
				A: 1,
			}
			if channels == 4 {
				colors[i].A = data[i*channels+3]
			}
		}
		array.Values = colors
		array.Dims = array.Dims[:len(array.Dims)-1]
	}
}

// decodeCoordTransform extracts a coordinate-transform record. A matrix
// that does not parse as 16 values is dropped with a warning; the transform
// is advisory metadata.
func decodeCoordTransform(el *giftiTransform) *CoordTransform {
	fields := strings.Fields(el.MatrixData)
	if len(fields) != 16 {
		Warnf("coordinate transform matrix has %d values (!= 16); dropped", len(fields))
		return nil
	}
	values := make([]float64, 16)
	for i, field := range fields {
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			Warnf("coordinate transform matrix value %d: %v; dropped", i, err)
			return nil
		}
		values[i] = v
	}
	return &CoordTransform{
		DataSpace:        strings.TrimSpace(el.DataSpace),
		TransformedSpace: strings.TrimSpace(el.TransformedSpace),
		Matrix:           mat.NewDense(4, 4, values),
	}
}

// Describe returns a string array of human-readable surface description
func (s *Surface) Describe() []string {
	description := []string{
		fmt.Sprintf("surface: %s (version %s)", filepath.Base(s.FilePath), s.Version),
	}
	if s.Labels != nil {
		description = append(description, fmt.Sprintf("  labels: %d", s.Labels.Len()))
	}
	for i := range s.Arrays {
		array := &s.Arrays[i]
		description = append(description, fmt.Sprintf("  [%d] %s %s %v (%d elements)",
			i, array.Intent, array.ElementType, array.Dims, array.Len()))
	}
	return description
}
