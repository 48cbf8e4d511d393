package nifti

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

/*
===============================================================================
    Configuration
===============================================================================
*/

// Version equals the current (or aimed for) version of the software.
const Version = "0.1"

// Config represents the application configuration
type Config struct {
	Version       string `yaml:"-"`
	OpenFileLimit int    `yaml:"openFileLimit"`
	LogLevel      string `yaml:"logLevel"`
	/* By enabling `StrictMode`, the surface parser will reject documents in
	   which any data array fails to decode, instead of skipping the failed
	   array and keeping its decodable siblings. */
	StrictMode bool `yaml:"strictMode"`

	// ReadBufferSize is the number of bytes to be buffered from disk when
	// parsing files, and the chunk size for compressed-stream reads
	ReadBufferSize int `yaml:"readBufferSize"`

	// do not access / write `_set`. It is used internally.
	_set bool
}

// intFromEnv retrieves `key` from the OS environment.
// if the key is not found, or cannot be expressed as an integer,
// `found` will be false.
func intFromEnv(key string) (val int, found bool) {
	valStr, found := os.LookupEnv(key)
	if !found {
		return
	}
	val, err := strconv.Atoi(valStr)
	if err != nil {
		found = false
	}
	return
}

func intFromEnvDefault(key string, def int) (val int) {
	val, found := intFromEnv(key)
	if !found {
		val = def
	}
	return
}

func strFromEnv(key string) (string, bool) {
	return os.LookupEnv(key)
}

func strFromEnvDefault(key string, def string) (val string) {
	val, found := strFromEnv(key)
	if !found {
		val = def
	}
	return
}

func boolFromEnv(key string) (val bool, found bool) {
	valStr, found := os.LookupEnv(key)
	if !found {
		return
	}
	val, err := strconv.ParseBool(valStr)
	if err != nil {
		found = false
	}
	return
}

func boolFromEnvDefault(key string, def bool) (val bool) {
	val, found := boolFromEnv(key)
	if !found {
		val = def
	}
	return
}

var config Config

// GetConfig returns the application configuration.
// Will set from environment if not already set.
func GetConfig() Config {
	if !config._set {
		config.Version = Version
		config.OpenFileLimit = intFromEnvDefault("NIFTI_OPENFILELIMIT", 64)
		config.StrictMode = boolFromEnvDefault("NIFTI_STRICTMODE", false)
		config.ReadBufferSize = intFromEnvDefault("NIFTI_BUFFERSIZE", 2*1024*1024)
		config.LogLevel = strings.ToLower(strFromEnvDefault("NIFTI_LOGLEVEL", "info"))
		switch config.LogLevel {
		case "debug", "info", "warn", "error", "none", "disabled":
			SetLoggingLevel(config.LogLevel)
		default:
			panic(`Invalid "NIFTI_LOGLEVEL". Choose from "debug", "info", "warn", "error", or "none".`)
		}
		config._set = true
	}
	return config
}

// OverrideConfig overrides the configuration parsed from environment with the one provided
func OverrideConfig(newconfig Config) {
	if !newconfig._set { // to prevent being reverted with subsequent calls to `GetConfig`
		newconfig._set = true
	}
	config = newconfig
}

// LoadConfig overlays the configuration with values from a YAML file.
// A missing file leaves the environment-derived configuration untouched.
func LoadConfig(path string) (Config, error) {
	cfg := GetConfig()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("error reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("error parsing config file: %w", err)
	}
	SetLoggingLevel(cfg.LogLevel)
	OverrideConfig(cfg)
	return cfg, nil
}
