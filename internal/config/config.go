// Package config loads and validates the filegirl configuration file
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/filegirl/filegirl/internal/watchers/allowlist"
	pperrors "github.com/filegirl/filegirl/pkg/errors"
	"github.com/filegirl/filegirl/pkg/logger"
	"github.com/spf13/viper"
)

// DefaultPath is the configuration file used when --config is not given
const DefaultPath = "./config.yml"

// EnvPrefix is the prefix for environment overrides, e.g. FILEGIRL_BACKUP_DIR
const EnvPrefix = "FILEGIRL"

// Config is the immutable guard configuration
type Config struct {
	ProtectedDirs  []string         `mapstructure:"protected_dirs" yaml:"protected_dirs"`
	BackupDir      string           `mapstructure:"backup_dir" yaml:"backup_dir"`
	WhiteNames     []string         `mapstructure:"white_names" yaml:"white_names"`
	HashAlgorithm  string           `mapstructure:"hash_algorithm" yaml:"hash_algorithm"`
	QuarantineDir  string           `mapstructure:"quarantine_dir" yaml:"quarantine_dir"`
	JournalPath    string           `mapstructure:"journal_path" yaml:"journal_path"`
	HTTPAddr       string           `mapstructure:"http_addr" yaml:"http_addr"`
	ReactionRate   float64          `mapstructure:"reaction_rate" yaml:"reaction_rate"`
	RenameAsRemove bool             `mapstructure:"rename_as_remove" yaml:"rename_as_remove"`
	Logging        logger.LogConfig `mapstructure:"logging" yaml:"logging"`
}

// Load reads the YAML file at path, applies defaults and environment
// overrides, and validates the result.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, pperrors.NewConfigError(fmt.Sprintf("failed to read configuration file %s", path), err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, pperrors.NewConfigError("failed to parse configuration", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	def := logger.DefaultConfig()

	v.SetDefault("white_names", []string{})
	v.SetDefault("hash_algorithm", "sha256")
	v.SetDefault("reaction_rate", 0)
	v.SetDefault("rename_as_remove", false)
	v.SetDefault("logging.level", def.Level)
	v.SetDefault("logging.file", def.OutputPath)
	v.SetDefault("logging.max_size", def.MaxSize)
	v.SetDefault("logging.max_backups", def.MaxBackups)
	v.SetDefault("logging.max_age", def.MaxAge)
	v.SetDefault("logging.compress", def.Compress)
	v.SetDefault("logging.development", def.Development)
	v.SetDefault("logging.json", def.EnableJSON)
}

// Validate checks the configuration. Allowlist patterns are compiled here
// so an invalid pattern fails at startup, never at event time.
func (c *Config) Validate() error {
	if len(c.ProtectedDirs) == 0 {
		return pperrors.NewConfigError("protected_dirs must list at least one directory", nil)
	}

	for _, dir := range c.ProtectedDirs {
		if !filepath.IsAbs(dir) {
			return pperrors.NewConfigError(fmt.Sprintf("protected directory %q is not an absolute path", dir), nil)
		}
		if filepath.Clean(dir) == string(filepath.Separator) {
			return pperrors.NewConfigError("the file system root cannot be protected", nil)
		}
	}

	if c.BackupDir == "" {
		return pperrors.NewConfigError("backup_dir is required", nil)
	}
	if !filepath.IsAbs(c.BackupDir) {
		return pperrors.NewConfigError(fmt.Sprintf("backup_dir %q is not an absolute path", c.BackupDir), nil)
	}

	if c.QuarantineDir != "" && !filepath.IsAbs(c.QuarantineDir) {
		return pperrors.NewConfigError(fmt.Sprintf("quarantine_dir %q is not an absolute path", c.QuarantineDir), nil)
	}

	for _, dir := range c.Directories() {
		for _, own := range []string{c.BackupDir, c.QuarantineDir} {
			if own != "" && isWithin(dir, filepath.Clean(own)) {
				return pperrors.NewConfigError(fmt.Sprintf("%s lies inside protected directory %s", own, dir), nil)
			}
		}

		backup := filepath.Clean(c.BackupDir)
		if isWithin(dir, filepath.Join(backup, filepath.Base(dir))) || isWithin(backup, dir) {
			return pperrors.NewConfigError(fmt.Sprintf("backup_dir %s would back up protected directory %s onto itself", c.BackupDir, dir), nil)
		}
	}

	switch c.HashAlgorithm {
	case "", "md5", "sha256":
	default:
		return pperrors.NewConfigError(fmt.Sprintf("unsupported hash_algorithm %q (use md5 or sha256)", c.HashAlgorithm), nil)
	}

	if c.ReactionRate < 0 {
		return pperrors.NewConfigError("reaction_rate cannot be negative", nil)
	}

	if _, err := allowlist.New(c.WhiteNames); err != nil {
		return err
	}

	return nil
}

// Directories returns the protected directories cleaned and de-duplicated,
// in configuration order.
func (c *Config) Directories() []string {
	seen := make(map[string]bool, len(c.ProtectedDirs))
	dirs := make([]string, 0, len(c.ProtectedDirs))

	for _, dir := range c.ProtectedDirs {
		dir = filepath.Clean(dir)
		if seen[dir] {
			continue
		}
		seen[dir] = true
		dirs = append(dirs, dir)
	}
	return dirs
}

// Warnings describes layouts the guard tolerates but cannot keep apart:
// nested protected directories, and directories whose base names collide
// inside backup_dir.
func (c *Config) Warnings() []string {
	dirs := c.Directories()

	var warnings []string
	for i := range dirs {
		for j := range dirs {
			if i == j {
				continue
			}
			if strings.HasPrefix(dirs[j], dirs[i]+string(filepath.Separator)) {
				warnings = append(warnings, fmt.Sprintf("protected directory %s is nested in %s", dirs[j], dirs[i]))
			}
			if i < j && filepath.Base(dirs[i]) == filepath.Base(dirs[j]) {
				warnings = append(warnings, fmt.Sprintf("protected directories %s and %s share the backup subtree %s",
					dirs[i], dirs[j], filepath.Join(c.BackupDir, filepath.Base(dirs[i]))))
			}
		}
	}
	return warnings
}

func isWithin(root, path string) bool {
	return path == root || strings.HasPrefix(path, root+string(filepath.Separator))
}
