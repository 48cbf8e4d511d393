package nifti

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// Utils

func pointsArray(values []float32, n int) DataArray {
	return DataArray{
		Intent:      IntentPoints,
		IntentName:  "NIFTI_INTENT_POINTSET",
		ElementType: Float32,
		Dims:        []int{n, 3},
		Values:      values,
		Meta:        map[string]string{},
	}
}

func facesArray(values []int32, n int) DataArray {
	return DataArray{
		Intent:      IntentFaces,
		IntentName:  "NIFTI_INTENT_TRIANGLE",
		ElementType: Int32,
		Dims:        []int{n, 3},
		Values:      values,
		Meta:        map[string]string{},
	}
}

func triangleSurface() Surface {
	return Surface{
		Arrays: []DataArray{
			pointsArray([]float32{0, 0, 0, 1, 0, 0, 0, 1, 0}, 3),
			facesArray([]int32{1, 2, 3}, 1),
		},
	}
}

/*
===============================================================================
    SurfaceAssembler
===============================================================================
*/

func TestMeshFromTriangle(t *testing.T) {
	// ensures that one points array and one faces array assemble
	// into an indexed mesh.
	t.Parallel()
	s := triangleSurface()
	mesh, ok := s.Mesh()
	assert.True(t, ok)
	assert.Equal(t, 3, mesh.VertexCount())
	assert.Equal(t, 1, mesh.FaceCount())
	assert.Equal(t, [3]float32{1, 0, 0}, mesh.Points[1])
	assert.Equal(t, [3]int32{1, 2, 3}, mesh.Faces[0])
	assert.Empty(t, mesh.Attributes)
}

func TestMeshRequiresExactlyOnePointsAndFaces(t *testing.T) {
	// ensures that zero or duplicate points/faces arrays prevent
	// assembly without erroring.
	t.Parallel()
	s := triangleSurface()
	s.Arrays = append(s.Arrays, pointsArray([]float32{0, 0, 0}, 1))
	_, ok := s.Mesh()
	assert.False(t, ok)

	s = triangleSurface()
	s.Arrays = s.Arrays[:1] // points only
	_, ok = s.Mesh()
	assert.False(t, ok)

	s = Surface{}
	_, ok = s.Mesh()
	assert.False(t, ok)
}

func TestMeshRejectsBadShapes(t *testing.T) {
	// ensures that points/faces arrays whose shape is not [n,3]
	// prevent assembly.
	t.Parallel()
	s := triangleSurface()
	s.Arrays[0].Dims = []int{9}
	_, ok := s.Mesh()
	assert.False(t, ok)

	s = triangleSurface()
	s.Arrays[1].Dims = []int{3, 1}
	_, ok = s.Mesh()
	assert.False(t, ok)
}

func TestMeshAttachesAttributes(t *testing.T) {
	// ensures that the remaining arrays attach under their
	// metadata names, with collisions suffixed.
	t.Parallel()
	s := triangleSurface()
	s.Arrays = append(s.Arrays,
		DataArray{
			Intent:      IntentShape,
			IntentName:  "NIFTI_INTENT_SHAPE",
			ElementType: Float32,
			Dims:        []int{3},
			Values:      []float32{0.1, 0.2, 0.3},
			Meta:        map[string]string{"Name": "Curvature"},
		},
		DataArray{
			Intent:      IntentShape,
			IntentName:  "NIFTI_INTENT_SHAPE",
			ElementType: Float32,
			Dims:        []int{3},
			Values:      []float32{1, 2, 3},
			Meta:        map[string]string{"Name": "Curvature"},
		},
	)
	mesh, ok := s.Mesh()
	assert.True(t, ok)
	assert.Len(t, mesh.Attributes, 2)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, mesh.Attributes["Curvature"])
	assert.Equal(t, []float32{1, 2, 3}, mesh.Attributes["Curvature#2"])
}

func TestMeshExpandsVertexMask(t *testing.T) {
	// ensures that a sparse 1-based vertex index list expands to a
	// dense indicator, ignoring out-of-range indices.
	t.Parallel()
	s := triangleSurface()
	s.Arrays = append(s.Arrays, DataArray{
		Intent:      IntentVertexMask,
		IntentName:  "NIFTI_INTENT_NODE_INDEX",
		ElementType: Int32,
		Dims:        []int{3},
		Values:      []int32{1, 3, 9},
		Meta:        map[string]string{},
	})
	mesh, ok := s.Mesh()
	assert.True(t, ok)
	mask := mesh.Attributes["NIFTI_INTENT_NODE_INDEX"].([]bool)
	assert.Equal(t, []bool{true, false, true}, mask)
}

func TestMeshResolvesLabels(t *testing.T) {
	// ensures that per-vertex label keys resolve through the label
	// table into colours, with missing keys transparent.
	t.Parallel()
	s := triangleSurface()
	s.Labels = &LabelTable{
		byKey: map[int32]Label{
			7: {Key: 7, Name: "cortex", Color: Color{R: 1, A: 1}},
		},
		keys: []int32{7},
	}
	s.Arrays = append(s.Arrays, DataArray{
		Intent:      IntentLabels,
		IntentName:  "NIFTI_INTENT_LABEL",
		ElementType: Int32,
		Dims:        []int{3},
		Values:      []int32{7, 7, 99},
		Meta:        map[string]string{},
	})
	mesh, ok := s.Mesh()
	assert.True(t, ok)
	colors := mesh.Attributes["NIFTI_INTENT_LABEL"].([]Color)
	assert.Equal(t, []Color{{R: 1, A: 1}, {R: 1, A: 1}, {}}, colors)
}

func TestMeshKeepsRawLabelsWithoutTable(t *testing.T) {
	// ensures that without a label table the raw keys attach
	// unresolved.
	t.Parallel()
	s := triangleSurface()
	s.Arrays = append(s.Arrays, DataArray{
		Intent:      IntentLabels,
		IntentName:  "NIFTI_INTENT_LABEL",
		ElementType: Int32,
		Dims:        []int{3},
		Values:      []int32{7, 7, 9},
		Meta:        map[string]string{},
	})
	mesh, ok := s.Mesh()
	assert.True(t, ok)
	assert.Equal(t, []int32{7, 7, 9}, mesh.Attributes["NIFTI_INTENT_LABEL"])
}
