package nifti

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/klauspost/compress/gzip"

	"github.com/stretchr/testify/assert"
)

// Utils

// buildVolume constructs a complete single-file volume: a 348-byte header,
// 4 padding bytes up to the payload offset, then the given float32 voxels.
func buildVolume(order binary.ByteOrder, voxels ...float32) []byte {
	data := buildHeader(order)
	data = append(data, make([]byte, minPayloadOffset-headerSize)...)
	return append(data, float32Payload(order, voxels...)...)
}

func gzipped(t *testing.T, data []byte) []byte {
	buf := bytes.Buffer{}
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write(data)
	assert.NoError(t, err)
	assert.NoError(t, zw.Close())
	return buf.Bytes()
}

/*
===============================================================================
    Reader Pool
===============================================================================
*/

func TestReaderPoolConcurrent(t *testing.T) {
	// ensures that concurrent checkouts keep the allocation
	// counter coherent.
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r := ReaderPool.Get(bytes.NewReader([]byte("data")))
			ReaderPool.Put(r)
		}()
	}
	wg.Wait()
	if n := atomic.LoadInt64(&Nalloc); n < 1 {
		t.Fatalf("Nalloc = %d (< 1)", n)
	}
}

/*
===============================================================================
    Volume
===============================================================================
*/

func TestParseVolumeBytes(t *testing.T) {
	// ensures that a complete single-file volume decodes end to
	// end: header, payload seek and voxel array.
	t.Parallel()
	data := buildVolume(binary.LittleEndian, 0, 1, 2, 3, 4, 5, 6, 7)
	vol, err := ParseVolumeBytes(data)
	assert.NoError(t, err)
	assert.Equal(t, []int{2, 2, 2}, vol.Header.AxisExtents)
	assert.Equal(t, Float32, vol.Header.ElementType)
	assert.Equal(t, []int{2, 2, 2}, vol.Voxels.Dims)
	assert.Equal(t, float32(3), vol.Voxels.At(0, 0, 0))
	assert.Equal(t, float32(4), vol.Voxels.At(1, 1, 1))
}

func TestParseVolumeBytesBigEndian(t *testing.T) {
	// ensures that the resolved byte order carries through from
	// header decode to payload decode.
	t.Parallel()
	data := buildVolume(binary.BigEndian, 0, 1, 2, 3, 4, 5, 6, 7)
	vol, err := ParseVolumeBytes(data)
	assert.NoError(t, err)
	assert.Equal(t, binary.ByteOrder(binary.BigEndian), vol.Header.ByteOrder)
	assert.Equal(t, float32(3), vol.Voxels.At(0, 0, 0))
}

func TestParseVolumeBytesGzip(t *testing.T) {
	// ensures that a gzip-compressed volume is detected from its
	// magic bytes and inflated transparently.
	data := gzipped(t, buildVolume(binary.LittleEndian, 0, 1, 2, 3, 4, 5, 6, 7))
	vol, err := ParseVolumeBytes(data)
	assert.NoError(t, err)
	assert.Equal(t, []int{2, 2, 2}, vol.Voxels.Dims)
	assert.Equal(t, float32(3), vol.Voxels.At(0, 0, 0))
}

func TestParseVolumeBytesTruncated(t *testing.T) {
	// ensures that a payload shorter than the declared extents is
	// fatal rather than silently partial.
	t.Parallel()
	data := buildVolume(binary.LittleEndian, 0, 1, 2)
	_, err := ParseVolumeBytes(data)
	assert.Error(t, err)
}

func TestParseVolumeBytesNegativeExtent(t *testing.T) {
	// ensures that a header declaring a negative axis extent fails
	// cleanly instead of panicking on payload allocation.
	t.Parallel()
	data := buildVolume(binary.LittleEndian, 0, 1, 2, 3, 4, 5, 6, 7)
	binary.LittleEndian.PutUint16(data[44:], 0xFFFF) // dim[2] = -1
	_, err := ParseVolumeBytes(data)
	assert.Error(t, err)
}

func TestParseVolumeFile(t *testing.T) {
	// ensures that parsing from a file path works, and that a
	// missing path reports an error.
	tmpdir, err := os.MkdirTemp("", "nifti")
	assert.NoError(t, err)
	defer os.RemoveAll(tmpdir)

	path := filepath.Join(tmpdir, "example.nii")
	data := buildVolume(binary.LittleEndian, 0, 1, 2, 3, 4, 5, 6, 7)
	assert.NoError(t, os.WriteFile(path, data, 0644))

	vol, err := ParseVolume(path)
	assert.NoError(t, err)
	assert.Equal(t, path, vol.FilePath)
	assert.Equal(t, 8, vol.Voxels.Len())

	_, err = ParseVolume(filepath.Join(tmpdir, "missing.nii"))
	assert.Error(t, err)
}

func TestIsSeries(t *testing.T) {
	// ensures that trivially padded flat sequences are identified.
	t.Parallel()
	vol := Volume{Voxels: VoxelArray{Dims: []int{8, 1, 1}}}
	assert.True(t, vol.IsSeries())
	vol.Voxels.Dims = []int{1, 1, 8}
	assert.True(t, vol.IsSeries())
	vol.Voxels.Dims = []int{1, 1, 1}
	assert.True(t, vol.IsSeries())
	vol.Voxels.Dims = []int{2, 2, 2}
	assert.False(t, vol.IsSeries())
	vol.Voxels.Dims = nil
	assert.False(t, vol.IsSeries())
}

func TestCollapse(t *testing.T) {
	// ensures that a padded flat sequence collapses to its values
	// in logical order, and anything wider stays a volume.
	t.Parallel()
	vol := Volume{Voxels: VoxelArray{
		ElementType: Float32,
		Dims:        []int{4, 1, 1},
		data:        []float32{9, 8, 7, 6},
	}}
	flat, ok := vol.Collapse().([]interface{})
	assert.True(t, ok)
	assert.Len(t, flat, 4)
	// the innermost pair of axes has extent one, so logical order
	// equals storage order
	assert.Equal(t, float32(9), flat[0])
	assert.Equal(t, float32(6), flat[3])

	wide := Volume{Voxels: VoxelArray{
		ElementType: Float32,
		Dims:        []int{2, 2},
		data:        []float32{0, 1, 2, 3},
	}}
	_, ok = wide.Collapse().([]interface{})
	assert.False(t, ok)
}

func TestDescribeVolume(t *testing.T) {
	// ensures that the description covers the salient fields.
	t.Parallel()
	data := buildVolume(binary.LittleEndian, 0, 1, 2, 3, 4, 5, 6, 7)
	vol, err := ParseVolumeBytes(data)
	assert.NoError(t, err)
	description := vol.Describe()
	assert.NotEmpty(t, description)
	joined := ""
	for _, line := range description {
		joined += line + "\n"
	}
	assert.Contains(t, joined, "[2 2 2]")
	assert.Contains(t, joined, "Float32")
	assert.Contains(t, joined, "an example volume")
}
