package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	nii "github.com/b71729/nifti"
)

/*
===============================================================================
    Util: View Volume / Surface File
===============================================================================
*/

var baseFile = filepath.Base(os.Args[0])

func check(err error) {
	if err != nil {
		nii.Errorf("error: %v", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Printf("nifti version %s\n", nii.Version)
	fmt.Printf("usage: %s file_or_dir\n", baseFile)
	os.Exit(1)
}

// isSurface decides the decode path from the filename
func isSurface(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), ".gii")
}

func viewFile(path string) {
	if isSurface(path) {
		surface, err := nii.ParseSurface(path)
		check(err)
		for _, line := range surface.Describe() {
			fmt.Println(line)
		}
		if mesh, ok := surface.Mesh(); ok {
			fmt.Printf("  mesh: %d vertices, %d faces, %d attributes\n",
				mesh.VertexCount(), mesh.FaceCount(), len(mesh.Attributes))
		}
		return
	}
	vol, err := nii.ParseVolume(path)
	check(err)
	for _, line := range vol.Describe() {
		fmt.Println(line)
	}
}

func main() {
	nii.GetConfig()
	if len(os.Args) == 2 && (os.Args[1] == "--help" || os.Args[1] == "-h") {
		usage()
	}
	if len(os.Args) != 2 {
		usage()
	}
	stat, err := os.Stat(os.Args[1])
	check(err)
	if !stat.IsDir() {
		viewFile(os.Args[1])
		return
	}
	errorCount := int64(0)
	successCount := int64(0)
	err = nii.ConcurrentlyWalkDir(os.Args[1], func(path string) {
		basePath := filepath.Base(path)
		var parseErr error
		if isSurface(path) {
			_, parseErr = nii.ParseSurface(path)
		} else {
			_, parseErr = nii.ParseVolume(path)
		}
		if parseErr != nil {
			nii.Errorf(`error parsing "%s": %v`, basePath, parseErr)
			atomic.AddInt64(&errorCount, 1)
			return
		}
		atomic.AddInt64(&successCount, 1)
		nii.Debugf(`parsed "%s"`, basePath)
	})
	check(err)
	if errorCount == 0 {
		nii.Infof("parsed %d files without errors", successCount)
	} else {
		nii.Infof("parsed %d files without errors, and failed to parse %d files", successCount, errorCount)
	}
}
