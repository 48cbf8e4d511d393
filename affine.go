package nifti

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

/*
===============================================================================
    Orientation
===============================================================================
*/

// QFormAffine derives the 4x4 voxel-to-world transform from the header's
// quaternion orientation: the quaternion triple rotates, the grid spacings
// scale, and the quaternion offsets translate. The stored triple holds
// (b, c, d); the scalar part is recovered as sqrt(1 - b^2 - c^2 - d^2).
// A negative orientation factor flips the third axis.
//
// Only meaningful when `QFormCode` > 0.
func (hdr *VolumeHeader) QFormAffine() *mat.Dense {
	b := float64(hdr.QuaternB)
	c := float64(hdr.QuaternC)
	d := float64(hdr.QuaternD)
	a := 1 - b*b - c*c - d*d
	if a < 0 {
		// stored triple is slightly off unit length; renormalise
		norm := math.Sqrt(b*b + c*c + d*d)
		b, c, d = b/norm, c/norm, d/norm
		a = 0
	}
	a = math.Sqrt(a)

	rotation := [3][3]float64{
		{a*a + b*b - c*c - d*d, 2*b*c - 2*a*d, 2*b*d + 2*a*c},
		{2*b*c + 2*a*d, a*a + c*c - b*b - d*d, 2*c*d - 2*a*b},
		{2*b*d - 2*a*c, 2*c*d + 2*a*b, a*a + d*d - b*b - c*c},
	}

	spacing := [3]float64{1, 1, 1}
	for i := 0; i < 3 && i < len(hdr.GridSpacing); i++ {
		spacing[i] = float64(hdr.GridSpacing[i])
	}
	if hdr.QFac < 0 {
		spacing[2] = -spacing[2]
	}
	offset := [3]float64{
		float64(hdr.QOffsetX),
		float64(hdr.QOffsetY),
		float64(hdr.QOffsetZ),
	}

	affine := mat.NewDense(4, 4, nil)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			affine.Set(i, j, rotation[i][j]*spacing[j])
		}
		affine.Set(i, 3, offset[i])
	}
	affine.Set(3, 3, 1)
	return affine
}

// SFormAffine returns the 4x4 voxel-to-world transform declared directly by
// the header's affine rows.
//
// Only meaningful when `SFormCode` > 0.
func (hdr *VolumeHeader) SFormAffine() *mat.Dense {
	affine := mat.NewDense(4, 4, nil)
	for i := 0; i < 3; i++ {
		for j := 0; j < 4; j++ {
			affine.Set(i, j, float64(hdr.SRow[i][j]))
		}
	}
	affine.Set(3, 3, 1)
	return affine
}
