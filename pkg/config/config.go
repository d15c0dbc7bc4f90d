// Package config resolves the tryenv configuration directory and the
// settings file inside it. The file uses dotenv syntax so it stays
// hand-editable and diffable.
package config

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"

	"github.com/joho/godotenv"
)

const (
	// ConfigFileName is the settings file inside the config directory.
	ConfigFileName = "config"
	// StoreFileName is the persisted project collection.
	StoreFileName = "tryenv.json"
	// AuditFileName is the local mutation log database.
	AuditFileName = "audit.db"

	// EnvConfigDir overrides the config directory location.
	EnvConfigDir = "TRYENV_CONFIG_DIR"

	keyBackupRepo = "TRYENV_BACKUP_REPO"
	keyVisibility = "TRYENV_VISIBILITY"
	keyBranch     = "TRYENV_BRANCH"
)

// Config is the resolved tryenv configuration.
type Config struct {
	Dir        string // config directory, created if missing
	BackupRepo string // backup repository name
	Visibility string // visibility used when creating the backup repo
	Branch     string // branch pushed to and cloned from
}

// StorePath returns the location of the persisted project collection.
func (c Config) StorePath() string { return filepath.Join(c.Dir, StoreFileName) }

// AuditPath returns the location of the mutation log.
func (c Config) AuditPath() string { return filepath.Join(c.Dir, AuditFileName) }

// Load resolves the config directory (TRYENV_CONFIG_DIR, else the user
// config dir), ensures it exists, and applies the settings file over the
// defaults. A missing settings file just means defaults.
func Load(logger *slog.Logger) (Config, error) {
	if logger == nil {
		logger = slog.Default()
	}

	dir := os.Getenv(EnvConfigDir)
	if dir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return Config{}, fmt.Errorf("resolving config dir: %w", err)
		}
		dir = filepath.Join(base, "tryenv")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return Config{}, fmt.Errorf("creating config dir %q: %w", dir, err)
	}

	cfg := Config{
		Dir:        dir,
		BackupRepo: "tryenv-backup",
		Visibility: "private",
		Branch:     "main",
	}

	path := filepath.Join(dir, ConfigFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("reading config file %q: %w", path, err)
	}
	checkPermissions(logger, path)

	settings, err := godotenv.Parse(bytes.NewReader(data))
	if err != nil {
		return Config{}, fmt.Errorf("parsing config file %q: %w", path, err)
	}
	if v := settings[keyBackupRepo]; v != "" {
		cfg.BackupRepo = v
	}
	if v := settings[keyVisibility]; v != "" {
		if v != "private" && v != "public" {
			return Config{}, fmt.Errorf("config file %q: %s must be private or public, got %q", path, keyVisibility, v)
		}
		cfg.Visibility = v
	}
	if v := settings[keyBranch]; v != "" {
		cfg.Branch = v
	}

	logger.Debug("loaded config", "dir", dir, "repo", cfg.BackupRepo, "branch", cfg.Branch)
	return cfg, nil
}

// checkPermissions warns if the config file is readable by other users.
func checkPermissions(logger *slog.Logger, path string) {
	if runtime.GOOS == "windows" {
		return
	}
	info, err := os.Stat(path)
	if err != nil {
		return
	}
	if mode := info.Mode().Perm(); mode&0o077 != 0 {
		logger.Warn("config file has loose permissions",
			"path", path, "mode", fmt.Sprintf("%04o", mode), "recommended", "0600")
	}
}
