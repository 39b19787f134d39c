package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	stateDirName = ".spacerestore"

	DefaultRegion            = "eu"
	DefaultRequestsPerSecond = 3
	DefaultMaxRetries        = 6
	DefaultLogLevel          = "warn"
)

// Environment variables read by Resolve.
const (
	EnvConfig     = "SPACERESTORE_CONFIG"
	EnvStateDir   = "SPACERESTORE_STATE_DIR"
	EnvBackupPath = "SPACERESTORE_BACKUP_PATH"
	EnvLogLevel   = "SPACERESTORE_LOG_LEVEL"
	EnvToken      = "STORYBLOK_OAUTH_TOKEN"
	EnvSpaceID    = "STORYBLOK_SPACE_ID"
	EnvRegion     = "STORYBLOK_REGION"
	EnvRate       = "STORYBLOK_RATE_LIMIT"
)

// Config holds resolved configuration: defaults, overridden by the config
// file, overridden by the environment. Commands apply flags last.
type Config struct {
	Token             string  `yaml:"token"`
	SpaceID           string  `yaml:"space_id"`
	Region            string  `yaml:"region"`
	BaseURL           string  `yaml:"base_url"`
	BackupPath        string  `yaml:"backup_path"`
	StateDir          string  `yaml:"state_dir"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	MaxRetries        int     `yaml:"max_retries"`
	LogLevel          string  `yaml:"log_level"`
	LogFile           string  `yaml:"log_file"`

	FilePath   string `yaml:"-"` // config file consulted
	FileLoaded bool   `yaml:"-"` // whether FilePath existed
}

func defaults() (Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}
	return Config{
		Region:            DefaultRegion,
		StateDir:          filepath.Join(cwd, stateDirName),
		RequestsPerSecond: DefaultRequestsPerSecond,
		MaxRetries:        DefaultMaxRetries,
		LogLevel:          DefaultLogLevel,
	}, nil
}

// Path returns the config file location: $SPACERESTORE_CONFIG, or
// spacerestore/config.yaml under the user config directory.
func Path() string {
	if p := os.Getenv(EnvConfig); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "spacerestore", "config.yaml")
}

// Resolve returns the current configuration. A missing config file is not
// an error.
func Resolve() (*Config, error) {
	cfg, err := defaults()
	if err != nil {
		return nil, err
	}

	cfg.FilePath = Path()
	if cfg.FilePath != "" {
		fileCfg, loaded, err := load(cfg.FilePath)
		if err != nil {
			return nil, err
		}
		cfg.FileLoaded = loaded
		cfg.merge(fileCfg)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func load(path string) (Config, bool, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Config{}, false, nil
		}
		return Config{}, false, fmt.Errorf("read config: %w", err)
	}

	var fileCfg Config
	if err := yaml.Unmarshal(b, &fileCfg); err != nil {
		return Config{}, false, fmt.Errorf("parse config %s: %w", path, err)
	}
	return fileCfg, true, nil
}

// merge overrides c with the non-zero values of o.
func (c *Config) merge(o Config) {
	if o.Token != "" {
		c.Token = o.Token
	}
	if o.SpaceID != "" {
		c.SpaceID = o.SpaceID
	}
	if o.Region != "" {
		c.Region = o.Region
	}
	if o.BaseURL != "" {
		c.BaseURL = o.BaseURL
	}
	if o.BackupPath != "" {
		c.BackupPath = o.BackupPath
	}
	if o.StateDir != "" {
		c.StateDir = o.StateDir
	}
	if o.RequestsPerSecond != 0 {
		c.RequestsPerSecond = o.RequestsPerSecond
	}
	if o.MaxRetries != 0 {
		c.MaxRetries = o.MaxRetries
	}
	if o.LogLevel != "" {
		c.LogLevel = o.LogLevel
	}
	if o.LogFile != "" {
		c.LogFile = o.LogFile
	}
}

func (c *Config) applyEnv() error {
	env := Config{
		Token:      os.Getenv(EnvToken),
		SpaceID:    os.Getenv(EnvSpaceID),
		Region:     os.Getenv(EnvRegion),
		BackupPath: os.Getenv(EnvBackupPath),
		StateDir:   os.Getenv(EnvStateDir),
		LogLevel:   os.Getenv(EnvLogLevel),
	}
	if v := os.Getenv(EnvRate); v != "" {
		rate, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("parsing %s=%q: %w", EnvRate, v, err)
		}
		env.RequestsPerSecond = rate
	}
	c.merge(env)
	return nil
}

// DBPath returns the run ledger location inside the state directory.
func (c *Config) DBPath() string {
	return filepath.Join(c.StateDir, "runs.db")
}

// ValidateForRestore reports the settings a restore cannot run without. A
// dry run only needs the backup.
func (c *Config) ValidateForRestore(dryRun bool) error {
	var missing []string
	if c.Token == "" && !dryRun {
		missing = append(missing, "token ("+EnvToken+")")
	}
	if c.SpaceID == "" && !dryRun {
		missing = append(missing, "space id ("+EnvSpaceID+")")
	}
	if c.BackupPath == "" {
		missing = append(missing, "backup path")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required settings: %s", strings.Join(missing, ", "))
	}
	if c.SpaceID == "" {
		return nil
	}
	if _, err := strconv.ParseInt(c.SpaceID, 10, 64); err != nil {
		return fmt.Errorf("space id %q is not numeric", c.SpaceID)
	}
	return nil
}

// MaskedToken returns the token with all but its last four characters
// hidden.
func (c *Config) MaskedToken() string {
	if c.Token == "" {
		return ""
	}
	if len(c.Token) <= 4 {
		return strings.Repeat("*", len(c.Token))
	}
	return strings.Repeat("*", len(c.Token)-4) + c.Token[len(c.Token)-4:]
}
