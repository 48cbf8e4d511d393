package nifti

import "fmt"

/*
===============================================================================
    SurfaceAssembler
===============================================================================
*/

// SurfaceMesh represents an indexed triangle mesh with named per-vertex
// attributes.
//
// Face indices follow the decoder's 1-based convention: face {1,2,3} names
// the first three entries of `Points`.
type SurfaceMesh struct {
	Points     [][3]float32
	Faces      [][3]int32
	Attributes map[string]interface{}
}

// VertexCount returns the number of mesh points.
func (m *SurfaceMesh) VertexCount() int {
	return len(m.Points)
}

// FaceCount returns the number of mesh faces.
func (m *SurfaceMesh) FaceCount() int {
	return len(m.Faces)
}

// Mesh combines the surface's decoded data arrays into a single mesh:
// exactly one points array and exactly one faces array are required, and
// every remaining array attaches as a named per-vertex attribute (overlay
// values as-is, vertex masks expanded to dense booleans, labels resolved
// through the label table).
//
// If the one-points/one-faces precondition fails, no mesh is built and
// param `bool` will be false; the caller keeps the raw decoded arrays.
func (s *Surface) Mesh() (*SurfaceMesh, bool) {
	var points, faces *DataArray
	pointsCount, facesCount := 0, 0
	for i := range s.Arrays {
		switch s.Arrays[i].Intent {
		case IntentPoints:
			points = &s.Arrays[i]
			pointsCount++
		case IntentFaces:
			faces = &s.Arrays[i]
			facesCount++
		}
	}
	if pointsCount != 1 || facesCount != 1 {
		Debugf("not assembling mesh: %d points arrays, %d faces arrays", pointsCount, facesCount)
		return nil, false
	}

	mesh := SurfaceMesh{Attributes: map[string]interface{}{}}
	if !gatherTriples(points, &mesh) {
		return nil, false
	}
	if !gatherFaces(faces, &mesh) {
		return nil, false
	}

	for i := range s.Arrays {
		array := &s.Arrays[i]
		switch array.Intent {
		case IntentPoints, IntentFaces:
			continue
		case IntentVertexMask:
			s.attach(&mesh, array, expandMask(array, mesh.VertexCount()))
		case IntentLabels:
			s.attach(&mesh, array, s.resolveLabels(array))
		default:
			s.attach(&mesh, array, array.Values)
		}
	}
	return &mesh, true
}

// attach stores `values` under the array's metadata name, falling back to
// its intent code, avoiding key collisions.
func (s *Surface) attach(mesh *SurfaceMesh, array *DataArray, values interface{}) {
	name := array.Meta["Name"]
	if name == "" {
		name = array.IntentName
	}
	if name == "" {
		name = array.Intent.String()
	}
	key := name
	for n := 2; ; n++ {
		if _, taken := mesh.Attributes[key]; !taken {
			break
		}
		key = fmt.Sprintf("%s#%d", name, n)
	}
	mesh.Attributes[key] = values
}

// gatherTriples converts a points array of shape [n,3] into mesh points.
func gatherTriples(array *DataArray, mesh *SurfaceMesh) bool {
	values, ok := array.Values.([]float32)
	if !ok || len(array.Dims) != 2 || array.Dims[1] != 3 {
		Warnf("points array has unusable shape %v (%s)", array.Dims, array.ElementType)
		return false
	}
	mesh.Points = make([][3]float32, array.Dims[0])
	for i := range mesh.Points {
		mesh.Points[i] = [3]float32{values[i*3], values[i*3+1], values[i*3+2]}
	}
	return true
}

// gatherFaces converts a faces array of shape [m,3] into mesh faces.
// The decoder has already re-indexed the values to 1-based.
func gatherFaces(array *DataArray, mesh *SurfaceMesh) bool {
	values, ok := array.Values.([]int32)
	if !ok || len(array.Dims) != 2 || array.Dims[1] != 3 {
		Warnf("faces array has unusable shape %v (%s)", array.Dims, array.ElementType)
		return false
	}
	mesh.Faces = make([][3]int32, array.Dims[0])
	for i := range mesh.Faces {
		mesh.Faces[i] = [3]int32{values[i*3], values[i*3+1], values[i*3+2]}
	}
	return true
}

// expandMask turns a sparse 1-based vertex index list into a dense
// per-vertex indicator.
func expandMask(array *DataArray, vertexCount int) []bool {
	dense := make([]bool, vertexCount)
	indices, ok := array.Values.([]int32)
	if !ok {
		Warnf("vertex mask has unusable element type %s", array.ElementType)
		return dense
	}
	for _, idx := range indices {
		if idx < 1 || int(idx) > vertexCount {
			Warnf("vertex mask index %d out of range 1-%d; ignored", idx, vertexCount)
			continue
		}
		dense[idx-1] = true
	}
	return dense
}

// resolveLabels maps per-vertex label keys onto their display colours.
// Without a label table the raw keys attach unresolved.
func (s *Surface) resolveLabels(array *DataArray) interface{} {
	keys, ok := array.Values.([]int32)
	if !ok || s.Labels == nil {
		return array.Values
	}
	colors := make([]Color, len(keys))
	for i, key := range keys {
		if label, found := s.Labels.Get(key); found {
			colors[i] = label.Color
			continue
		}
		Debugf("label key %d missing from table; transparent", key)
	}
	return colors
}
