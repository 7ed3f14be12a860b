// Package config holds the daemon's process configuration and the user's
// settings file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"voxbar/internal/storage"
)

type Config struct {
	LogLevel     string
	Proxy        string
	DataDir      string
	SettingsPath string
	Storage      string
	WSAddr       string
	Socket       string
	Assets       string
	AppDirs      []string
	Seed         int64
}

// FromEnv reads VOXBAR_* variables over the built-in defaults.
func FromEnv() Config {
	dataDir := getEnv("VOXBAR_DATA_DIR", defaultDataDir())
	c := Config{
		LogLevel:     getEnv("VOXBAR_LOG", "info"),
		Proxy:        getEnv("VOXBAR_PROXY", ""),
		DataDir:      dataDir,
		SettingsPath: getEnv("VOXBAR_SETTINGS", filepath.Join(dataDir, "settings.yaml")),
		Storage:      getEnv("VOXBAR_STORAGE", storage.KindFile),
		WSAddr:       getEnv("VOXBAR_WS_ADDR", "127.0.0.1:8092"),
		Socket:       getEnv("VOXBAR_SOCKET", filepath.Join(os.TempDir(), "voxbar.sock")),
		Assets:       getEnv("VOXBAR_ASSETS", filepath.Join(dataDir, "assets")),
		Seed:         getEnvInt64("VOXBAR_SEED", 0),
	}
	if dirs := getEnv("VOXBAR_APP_DIRS", ""); dirs != "" {
		c.AppDirs = filepath.SplitList(dirs)
	}
	return c
}

func (c Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	switch c.Storage {
	case storage.KindFile, storage.KindSQLite:
	default:
		return fmt.Errorf("invalid storage %q", c.Storage)
	}
	if c.DataDir == "" {
		return fmt.Errorf("data directory is empty")
	}
	if c.WSAddr == "" && c.Socket == "" {
		return fmt.Errorf("nothing to listen on")
	}
	return nil
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "voxbar")
	}
	return ".voxbar"
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return n
		}
	}
	return defaultValue
}
