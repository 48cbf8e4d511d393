// Package nifti provides decoders for NIfTI-1 volumetric files and GIFTI
// surface files, reconstructing voxel grids, orientation metadata and
// triangulated cortical-surface meshes exactly as stored on disk.
package nifti

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/b71729/bin"
	"github.com/klauspost/compress/gzip"
)

/*
===============================================================================
    Reader Pool
===============================================================================
*/

// readerPool wraps a `sync.Pool` to allow for custom Get/Put methods
type readerPool struct {
	pool *sync.Pool
}

// Nalloc counts reader allocations. Incremented atomically: the pool
// allocates from concurrent directory walks.
var Nalloc = int64(0)

// ReaderPool is a pool of `bufio.Reader` with a buffer size set to `Config`
var ReaderPool = readerPool{pool: &sync.Pool{
	New: func() interface{} {
		atomic.AddInt64(&Nalloc, 1)
		return bufio.NewReaderSize(nil, GetConfig().ReadBufferSize)
	},
}}

// Get selects an arbitrary item from the Pool, removes it from the
// Pool, and returns it to the caller.
func (rp *readerPool) Get(src io.Reader) (r *bufio.Reader) {
	r = rp.pool.Get().(*bufio.Reader)
	r.Reset(src)
	return
}

// Put adds `r` to the pool.
func (rp *readerPool) Put(r *bufio.Reader) {
	rp.pool.Put(r)
}

// gzipMagic is the two-byte signature of a gzip stream.
var gzipMagic = []byte{0x1F, 0x8B}

/*
===============================================================================
    Volume
===============================================================================
*/

// Volume pairs a decoded volumetric header with its voxel array.
type Volume struct {
	FilePath string
	Header   VolumeHeader
	Voxels   VoxelArray
}

// FromReader decodes a volumetric file from `source`, returning an error
// if something went wrong during the process.
// This takes ownership of `source`; do not use it after passing through.
//
// Gzip-compressed inputs are detected from their leading magic bytes and
// inflated transparently.
func (vol *Volume) FromReader(source io.Reader) error {
	buffered := ReaderPool.Get(source)
	defer ReaderPool.Put(buffered)

	head, err := buffered.Peek(2)
	if err != nil {
		return MalformedHeaderError("FromReader(): %v", err)
	}
	var stream io.Reader = buffered
	if bytes.Equal(head, gzipMagic) {
		Debug("input is gzip-compressed; inflating")
		gzr, err := gzip.NewReader(buffered)
		if err != nil {
			return MalformedHeaderError("FromReader(): %v", err)
		}
		defer gzr.Close()
		stream = gzr
	}

	binaryReader := bin.NewReader(stream, binary.LittleEndian)
	hr := NewHeaderReader(binaryReader)
	if err := hr.ReadHeader(&vol.Header); err != nil {
		return err
	}

	// the header consumed exactly its own size; fast-forward to the payload
	if vol.Header.PayloadOffset > headerSize {
		if err := hr.br.Discard(int64(vol.Header.PayloadOffset - headerSize)); err != nil {
			return TruncatedPayloadError("FromReader(): seeking to payload offset %d: %v", vol.Header.PayloadOffset, err)
		}
	}

	vr := NewVoxelReader(hr.br)
	return vr.ReadVoxels(&vol.Header, &vol.Voxels)
}

// ParseVolume takes a relative/absolute path to a volumetric file and
// returns a parsed `Volume` [+ error]
func ParseVolume(path string) (Volume, error) {
	vol := Volume{FilePath: path}
	f, err := os.Open(path)
	if err != nil {
		return vol, err
	}
	defer f.Close()
	if err := vol.FromReader(f); err != nil {
		return vol, fmt.Errorf(`the file "%s" could not be decoded: %v`, filepath.Base(path), err)
	}
	return vol, nil
}

// ParseVolumeBytes parses a volumetric file from a bytestream
func ParseVolumeBytes(source []byte) (Volume, error) {
	vol := Volume{}
	if err := vol.FromReader(bytes.NewReader(source)); err != nil {
		return vol, err
	}
	return vol, nil
}

// IsSeries returns whether every axis extent except one equals one, i.e.
// the array is a trivially padded flat sequence.
func (vol *Volume) IsSeries() bool {
	if len(vol.Voxels.Dims) == 0 {
		return false
	}
	wide := 0
	for _, d := range vol.Voxels.Dims {
		if d != 1 {
			wide++
		}
	}
	return wide <= 1
}

// Collapse returns the flat value sequence, in logical order, when the
// voxel array is trivially one-dimensional; otherwise it returns the
// volume itself.
func (vol *Volume) Collapse() interface{} {
	if !vol.IsSeries() {
		return vol
	}
	if vol.Voxels.Len() == 0 {
		return []interface{}{}
	}
	flat := make([]interface{}, 0, vol.Voxels.Len())
	coords := make([]int, len(vol.Voxels.Dims))
	for {
		flat = append(flat, vol.Voxels.At(coords...))
		i := len(coords) - 1
		for ; i >= 0; i-- {
			coords[i]++
			if coords[i] < vol.Voxels.Dims[i] {
				break
			}
			coords[i] = 0
		}
		if i < 0 {
			break
		}
	}
	return flat
}

// Describe returns a string array of human-readable volume description
func (vol *Volume) Describe() []string {
	hdr := &vol.Header
	description := []string{
		fmt.Sprintf("volume: %s", filepath.Base(vol.FilePath)),
		fmt.Sprintf("  extents:  %v", hdr.AxisExtents),
		fmt.Sprintf("  type:     %s (%d bits)", hdr.ElementType, hdr.BitsPerElement),
		fmt.Sprintf("  spacing:  %v (%s, %s)", hdr.GridSpacing, hdr.SpaceUnit, hdr.TimeUnit),
		fmt.Sprintf("  offset:   %d", hdr.PayloadOffset),
		fmt.Sprintf("  scaling:  %g x + %g", hdr.ScaleSlope, hdr.ScaleIntercept),
		fmt.Sprintf("  orient:   qform=%d sform=%d", hdr.QFormCode, hdr.SFormCode),
		fmt.Sprintf("  magic:    %q", hdr.Magic),
	}
	if hdr.Description != "" {
		description = append(description, fmt.Sprintf("  descrip:  %s", hdr.Description))
	}
	if hdr.IntentName != "" {
		description = append(description, fmt.Sprintf("  intent:   %s", hdr.IntentName))
	}
	return description
}
