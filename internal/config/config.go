// Package config provides configuration management for the annotator.
// Defaults are overridden by an optional TOML file, then by environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pelletier/go-toml/v2"
)

const (
	// Default values
	DefaultPort      = 8787
	DefaultLogLevel  = "info"
	DefaultLogFormat = "auto"
	DefaultDataDir   = ".heimdex-annotator"
	DefaultVideosDir = "videos"
	DefaultPerPage   = 24
	MaxPerPage       = 200

	// Environment variable names
	EnvConfigFile = "ANNOTATOR_CONFIG"
	EnvPort      = "ANNOTATOR_PORT"
	EnvLogLevel  = "ANNOTATOR_LOG_LEVEL"
	EnvLogFormat = "ANNOTATOR_LOG_FORMAT"
	EnvDataDir   = "ANNOTATOR_DATA_DIR"
	EnvVideosDir = "ANNOTATOR_VIDEOS_DIR"
	EnvStorePath = "ANNOTATOR_STORE_PATH"
	EnvBaseDir   = "ANNOTATOR_BASE_DIR"
	EnvPerPage   = "ANNOTATOR_PER_PAGE"

	// File names inside the data directory
	ConfigFilename  = "annotator.toml"
	StoreFilename   = "annotation.json"
	JournalFilename = "journal.db"
)

// Config defines the application configuration interface
type Config interface {
	Port() int
	LogLevel() string
	LogFormat() string
	DataDir() string
	VideosDir() string
	StorePath() string
	JournalPath() string
	BaseDir() string
	PerPage() int
	ConfigFile() string
}

// fileConfig is the on-disk TOML layout. Zero values mean "not set".
type fileConfig struct {
	Port      int    `toml:"port"`
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
	DataDir   string `toml:"data_dir"`
	VideosDir string `toml:"videos_dir"`
	StorePath string `toml:"store_path"`
	BaseDir   string `toml:"base_dir"`
	PerPage   int    `toml:"per_page"`
}

// EnvConfig holds the resolved configuration.
type EnvConfig struct {
	port       int
	logLevel   string
	logFormat  string
	dataDir    string
	videosDir  string
	storePath  string
	baseDir    string
	perPage    int
	configFile string
}

// New loads configuration using the config file named by ANNOTATOR_CONFIG, if any.
func New() (*EnvConfig, error) {
	return Load(os.Getenv(EnvConfigFile))
}

// Load creates an EnvConfig from defaults, the TOML file at path (or
// <data dir>/annotator.toml when path is empty), and environment overrides.
// A missing file is not an error unless path was given explicitly.
func Load(path string) (*EnvConfig, error) {
	cfg := &EnvConfig{
		port:      DefaultPort,
		logLevel:  DefaultLogLevel,
		logFormat: DefaultLogFormat,
		dataDir:   defaultDataDir(),
		videosDir: DefaultVideosDir,
		perPage:   DefaultPerPage,
	}

	if dd := os.Getenv(EnvDataDir); dd != "" {
		cfg.dataDir = dd
	}

	explicit := path != ""
	if !explicit {
		path = filepath.Join(cfg.dataDir, ConfigFilename)
	}
	if err := cfg.applyFile(path, explicit); err != nil {
		return nil, err
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *EnvConfig) applyFile(path string, required bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !required {
			return nil
		}
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var fc fileConfig
	if err := toml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	c.configFile = path

	if fc.Port != 0 {
		c.port = fc.Port
	}
	if fc.LogLevel != "" {
		c.logLevel = fc.LogLevel
	}
	if fc.LogFormat != "" {
		c.logFormat = fc.LogFormat
	}
	if fc.DataDir != "" && os.Getenv(EnvDataDir) == "" {
		c.dataDir = fc.DataDir
	}
	if fc.VideosDir != "" {
		c.videosDir = fc.VideosDir
	}
	if fc.StorePath != "" {
		c.storePath = fc.StorePath
	}
	if fc.BaseDir != "" {
		c.baseDir = fc.BaseDir
	}
	if fc.PerPage != 0 {
		c.perPage = fc.PerPage
	}
	return nil
}

func (c *EnvConfig) applyEnv() error {
	// Override port from environment
	if p := os.Getenv(EnvPort); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvPort, err)
		}
		c.port = port
	}

	if ll := os.Getenv(EnvLogLevel); ll != "" {
		c.logLevel = ll
	}
	if lf := os.Getenv(EnvLogFormat); lf != "" {
		c.logFormat = lf
	}
	if vd := os.Getenv(EnvVideosDir); vd != "" {
		c.videosDir = vd
	}
	if sp := os.Getenv(EnvStorePath); sp != "" {
		c.storePath = sp
	}
	if bd := os.Getenv(EnvBaseDir); bd != "" {
		c.baseDir = bd
	}

	if pp := os.Getenv(EnvPerPage); pp != "" {
		perPage, err := strconv.Atoi(pp)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvPerPage, err)
		}
		c.perPage = perPage
	}
	return nil
}

func (c *EnvConfig) validate() error {
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port %d: must be between 1 and 65535", c.port)
	}
	if c.perPage < 1 || c.perPage > MaxPerPage {
		return fmt.Errorf("invalid per_page %d: must be between 1 and %d", c.perPage, MaxPerPage)
	}
	switch c.logFormat {
	case "auto", "json", "text":
	default:
		return fmt.Errorf("invalid log_format %q: must be auto, json or text", c.logFormat)
	}
	return nil
}

// Port returns the HTTP server port
func (c *EnvConfig) Port() int {
	return c.port
}

// LogLevel returns the log level (debug, info, warn, error)
func (c *EnvConfig) LogLevel() string {
	return c.logLevel
}

// LogFormat returns auto, json or text
func (c *EnvConfig) LogFormat() string {
	return c.logFormat
}

// DataDir returns the data directory path
func (c *EnvConfig) DataDir() string {
	return c.dataDir
}

// VideosDir returns the directory browsed for videos
func (c *EnvConfig) VideosDir() string {
	return c.videosDir
}

// StorePath returns the full path to the annotation JSON document
func (c *EnvConfig) StorePath() string {
	if c.storePath != "" {
		return c.storePath
	}
	return filepath.Join(c.dataDir, StoreFilename)
}

// JournalPath returns the full path to the SQLite journal database
func (c *EnvConfig) JournalPath() string {
	return filepath.Join(c.dataDir, JournalFilename)
}

// BaseDir returns the directory relative annotation keys resolve against.
// Empty means the working directory.
func (c *EnvConfig) BaseDir() string {
	return c.baseDir
}

func (c *EnvConfig) PerPage() int {
	return c.perPage
}

// ConfigFile returns the TOML file that was applied, or "".
func (c *EnvConfig) ConfigFile() string {
	return c.configFile
}

// defaultDataDir returns the default data directory path
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home is not available
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}

// Version information (set at build time via ldflags)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)
