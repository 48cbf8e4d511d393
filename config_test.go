package nifti

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"
)

func TestIntFromEnv(t *testing.T) {
	testCases := []struct {
		input  string
		output int
	}{
		{input: "100", output: 100},
		{input: "-100", output: -100},
	}
	for _, testCase := range testCases {
		err := os.Setenv("NIFTI_TEST", testCase.input)
		if err != nil {
			t.Fatalf("error: %v", err)
		}
		val, found := intFromEnv("NIFTI_TEST")
		if !found {
			t.Fatal("NIFTI_TEST was not found in environment")
		}
		if val != testCase.output {
			t.Fatalf("got %d (!= %d)", val, testCase.output)
		}
	}
	// unset environment variable then try to retrieve
	err := os.Unsetenv("NIFTI_TEST")
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	_, found := intFromEnv("NIFTI_TEST")
	if found {
		t.Fatalf("NIFTI_TEST was found after unsetting")
	}
}

func TestIntFromEnvDefault(t *testing.T) {
	// unset environment variable then try to retrieve
	err := os.Unsetenv("NIFTI_TEST")
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	val := intFromEnvDefault("NIFTI_TEST", 9000)
	if val != 9000 {
		t.Fatalf("got %d (!= 9000)", val)
	}
	os.Setenv("NIFTI_TEST", "42")
	val = intFromEnvDefault("NIFTI_TEST", 9000)
	if val != 42 {
		t.Fatalf("got %d (!= 42)", val)
	}
}

func TestStrFromEnvDefault(t *testing.T) {
	// unset environment variable then try to retrieve
	err := os.Unsetenv("NIFTI_TEST")
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	val := strFromEnvDefault("NIFTI_TEST", "ascii")
	if val != "ascii" {
		t.Fatalf(`got "%s" (!= "ascii")`, val)
	}
	os.Setenv("NIFTI_TEST", "42")
	val = strFromEnvDefault("NIFTI_TEST", "ascii")
	if val != "42" {
		t.Fatalf(`got "%s" (!= "42")`, val)
	}
}

func TestBoolFromEnv(t *testing.T) {
	testCases := []struct {
		input  string
		output bool
	}{
		{input: "true", output: true},
		{input: "1", output: true},
		{input: "false", output: false},
		{input: "0", output: false},
	}
	for _, testCase := range testCases {
		err := os.Setenv("NIFTI_TEST", testCase.input)
		if err != nil {
			t.Fatalf("error: %v", err)
		}
		val, found := boolFromEnv("NIFTI_TEST")
		if !found {
			t.Fatal("NIFTI_TEST was not found in environment")
		}
		if val != testCase.output {
			t.Fatalf("got %t (!= %t)", val, testCase.output)
		}
	}
	// a malformed value reads as not found
	os.Setenv("NIFTI_TEST", "not-a-bool")
	_, found := boolFromEnv("NIFTI_TEST")
	if found {
		t.Fatalf("NIFTI_TEST was found despite malformed value")
	}
	os.Unsetenv("NIFTI_TEST")
}

func TestGetConfig(t *testing.T) {
	os.Setenv("NIFTI_OPENFILELIMIT", "100")
	defer os.Unsetenv("NIFTI_OPENFILELIMIT")
	config._set = false
	cfg := GetConfig()
	if cfg.OpenFileLimit != 100 {
		t.Fatalf("OpenFileLimit = %d (!= 100)", cfg.OpenFileLimit)
	}
	if cfg.ReadBufferSize <= 0 {
		t.Fatalf("ReadBufferSize = %d (<= 0)", cfg.ReadBufferSize)
	}
}

func TestOverrideConfig(t *testing.T) {
	previous := GetConfig()
	defer OverrideConfig(previous)
	newcfg := previous
	newcfg.OpenFileLimit = 256
	OverrideConfig(newcfg)
	cfg := GetConfig()
	if cfg.OpenFileLimit != 256 {
		t.Fatalf("OpenFileLimit = %d (!= 256)", cfg.OpenFileLimit)
	}
}

func TestLoadConfig(t *testing.T) {
	previous := GetConfig()
	defer OverrideConfig(previous)
	defer SetLoggingLevel(previous.LogLevel)

	tmpdir, err := os.MkdirTemp("", "nifti")
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	defer os.RemoveAll(tmpdir)

	path := filepath.Join(tmpdir, "config.yaml")
	yaml := "openFileLimit: 12\nstrictMode: true\nlogLevel: warn\n"
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatalf("error: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	if cfg.OpenFileLimit != 12 {
		t.Fatalf("OpenFileLimit = %d (!= 12)", cfg.OpenFileLimit)
	}
	if !cfg.StrictMode {
		t.Fatal("StrictMode was not enabled")
	}
	// fields absent from the file keep their previous values
	if cfg.ReadBufferSize != previous.ReadBufferSize {
		t.Fatalf("ReadBufferSize = %d (!= %d)", cfg.ReadBufferSize, previous.ReadBufferSize)
	}

	// a missing file leaves the configuration untouched
	cfg, err = LoadConfig(filepath.Join(tmpdir, "missing.yaml"))
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	if cfg.OpenFileLimit != 12 {
		t.Fatalf("OpenFileLimit = %d (!= 12)", cfg.OpenFileLimit)
	}
}

func TestLoadConfigMalformed(t *testing.T) {
	previous := GetConfig()
	defer OverrideConfig(previous)

	tmpdir, err := os.MkdirTemp("", "nifti")
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	defer os.RemoveAll(tmpdir)

	path := filepath.Join(tmpdir, "config.yaml")
	if err := os.WriteFile(path, []byte("openFileLimit: [not an int"), 0644); err != nil {
		t.Fatalf("error: %v", err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected an error for malformed config")
	}
}

func TestConcurrentlyWalkDir(t *testing.T) {
	// make temporary directory for tests
	tmpdir, err := os.MkdirTemp("", "nifti")
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	// be sure to remove up dir afterwards
	defer os.RemoveAll(tmpdir)
	for i := 0; i < 10; i++ {
		name := filepath.Join(tmpdir, strconv.Itoa(i))
		if err := os.WriteFile(name, []byte("x"), 0644); err != nil {
			t.Fatalf("error: %v", err)
		}
	}
	found := make(chan string, 16)
	err = ConcurrentlyWalkDir(tmpdir, func(path string) {
		found <- path
	})
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	close(found)
	count := 0
	for range found {
		count++
	}
	if count != 10 {
		t.Fatalf("reported %d files (!= 10)", count)
	}
}
