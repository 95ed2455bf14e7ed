package config

import (
	"os"
	"path/filepath"
	"testing"

	pperrors "github.com/filegirl/filegirl/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoad_DefaultYAML(t *testing.T) {
	cfg, err := Load(writeConfig(t, DefaultYAML))
	require.NoError(t, err)

	assert.Equal(t, []string{"/var/www/html/"}, cfg.ProtectedDirs)
	assert.Equal(t, "/tmp/backup", cfg.BackupDir)
	assert.Equal(t, []string{"filegirl"}, cfg.WhiteNames)
	assert.Equal(t, "sha256", cfg.HashAlgorithm)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 100, cfg.Logging.MaxSize)
	assert.False(t, cfg.RenameAsRemove)
	assert.Contains(t, DefaultYAML, "stays missing", "operators are told what the rename default leaves behind")
}

func TestLoad_MinimalFileGetsDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
protected_dirs: [/srv/www]
backup_dir: /srv/backup
`))
	require.NoError(t, err)

	assert.Empty(t, cfg.WhiteNames)
	assert.Equal(t, "sha256", cfg.HashAlgorithm)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 5, cfg.Logging.MaxBackups)
}

func TestLoad_EnvironmentOverride(t *testing.T) {
	t.Setenv("FILEGIRL_BACKUP_DIR", "/var/backups/filegirl")

	cfg, err := Load(writeConfig(t, DefaultYAML))
	require.NoError(t, err)
	assert.Equal(t, "/var/backups/filegirl", cfg.BackupDir)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		isPattern bool
		contains  string
	}{
		{
			name:     "malformed yaml",
			content:  "protected_dirs: [unterminated",
			contains: "failed to read configuration file",
		},
		{
			name:     "no protected dirs",
			content:  "backup_dir: /tmp/backup",
			contains: "protected_dirs",
		},
		{
			name:     "relative protected dir",
			content:  "protected_dirs: [www]\nbackup_dir: /tmp/backup",
			contains: "not an absolute path",
		},
		{
			name:     "missing backup dir",
			content:  "protected_dirs: [/srv/www]",
			contains: "backup_dir is required",
		},
		{
			name:     "unknown hash",
			content:  "protected_dirs: [/srv/www]\nbackup_dir: /b\nhash_algorithm: crc32",
			contains: "unsupported hash_algorithm",
		},
		{
			name:     "backup inside protected dir",
			content:  "protected_dirs: [/srv/www]\nbackup_dir: /srv/www/.backup",
			contains: "lies inside protected directory",
		},
		{
			name:     "quarantine inside protected dir",
			content:  "protected_dirs: [/srv/www]\nbackup_dir: /b\nquarantine_dir: /srv/www/q",
			contains: "lies inside protected directory",
		},
		{
			name:     "backup dir is the parent",
			content:  "protected_dirs: [/srv/www]\nbackup_dir: /srv",
			contains: "onto itself",
		},
		{
			name:     "backup dir contains protected dir",
			content:  "protected_dirs: [/srv/www/html]\nbackup_dir: /srv",
			contains: "onto itself",
		},
		{
			name:      "invalid pattern",
			content:   "protected_dirs: [/srv/www]\nbackup_dir: /b\nwhite_names: ['(']",
			isPattern: true,
			contains:  "invalid white_names pattern",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.Contains(t, err.Error(), tt.contains)
			if tt.isPattern {
				assert.True(t, pperrors.IsPatternError(err))
			} else {
				assert.True(t, pperrors.IsConfigError(err))
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yml"))
	require.Error(t, err)
	assert.True(t, pperrors.IsConfigError(err))
}

func TestDirectories_CleansAndDeduplicates(t *testing.T) {
	cfg := &Config{ProtectedDirs: []string{"/srv/www/", "/srv/assets", "/srv/www"}}

	assert.Equal(t, []string{"/srv/www", "/srv/assets"}, cfg.Directories())
}

func TestWarnings(t *testing.T) {
	cfg := &Config{
		BackupDir:     "/backup",
		ProtectedDirs: []string{"/srv/www", "/srv/www/static", "/opt/site/static"},
	}

	warnings := cfg.Warnings()
	require.Len(t, warnings, 2)
	assert.Contains(t, warnings[0], "nested")
	assert.Contains(t, warnings[1], "/backup/static")
}
