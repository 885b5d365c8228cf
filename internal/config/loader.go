package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	maxConfigFileSize = 1 << 20
	appDirName        = "issuetracker"
)

// sections lists the top-level keys environment variables may target.
var sections = map[string]bool{
	"server":        true,
	"store":         true,
	"events":        true,
	"observability": true,
	"logging":       true,
}

// LoadWithFile builds the configuration from defaults, then the YAML file at
// configPath, then environment variables, each layer overriding the last.
//
// An empty configPath means ~/.config/issuetracker/config.yaml. A missing
// file is not an error. A present file must sit under
// ~/.config/issuetracker/ or /etc/issuetracker/ (after resolving symlinks),
// be mode 0600 or 0400 and be at most 1MB.
//
// Variables are named SECTION_FIELD: SERVER_HTTP_PORT sets server.http_port
// and EVENTS_NATS_URL sets events.nats_url.
func LoadWithFile(configPath string) (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}
	if configPath == "" {
		configPath = filepath.Join(home, ".config", appDirName, "config.yaml")
	}

	k := koanf.New(".")

	content, err := readConfigFile(configPath, allowedDirs(home))
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// envKey maps SECTION_FIELD_NAME to section.field_name, or to "" (skipped)
// for variables outside the known sections.
func envKey(name string) string {
	section, field, ok := strings.Cut(strings.ToLower(name), "_")
	if !ok || field == "" || !sections[section] {
		return ""
	}
	return section + "." + field
}

func allowedDirs(home string) []string {
	dirs := []string{
		filepath.Join(home, ".config", appDirName),
		filepath.Join("/etc", appDirName),
	}
	for i, dir := range dirs {
		if resolved, err := filepath.EvalSymlinks(dir); err == nil {
			dirs[i] = resolved
		}
	}
	return dirs
}

// readConfigFile returns the file content after checking its location,
// mode and size. The checks use the opened descriptor so the file cannot be
// swapped between check and read. A missing file yields fs.ErrNotExist.
func readConfigFile(path string, dirs []string) ([]byte, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}
	if !within(abs, dirs) {
		return nil, fmt.Errorf("config path validation failed: config file must be in ~/.config/%s/ or /etc/%s/", appDirName, appDirName)
	}

	f, err := os.Open(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if perm := info.Mode().Perm(); runtime.GOOS != "windows" && perm != 0o600 && perm != 0o400 {
		return nil, fmt.Errorf("config file validation failed: insecure config file permissions %v (want 0600 or 0400)", perm)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file validation failed: too large, %d bytes exceeds %d", info.Size(), maxConfigFileSize)
	}

	content, err := io.ReadAll(io.LimitReader(f, maxConfigFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return content, nil
}

func within(path string, dirs []string) bool {
	for _, dir := range dirs {
		if path == dir || strings.HasPrefix(path, dir+string(filepath.Separator)) {
			return true
		}
	}
	return false
}
