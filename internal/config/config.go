package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
)

// Config is the timebank client configuration.
type Config struct {
	APIURL       string
	LogDir       string
	StatePath    string
	PollInterval time.Duration
	PageSize     int
	JitsiDomain  string
	RollbarToken string
	Environment  string
}

const (
	defaultConfigPath  = "~/.config/timebank/config.toml"
	defaultStatePath   = "~/.config/timebank/state.toml"
	defaultLogDir      = "~/.local/share/timebank/logs"
	defaultAPIURL      = "http://localhost:8080/api/v1"
	defaultPollSeconds = 15
	defaultPageSize    = 10
	defaultJitsiDomain = "meet.jit.si"
	defaultEnvironment = "development"

	// DotenvFile is read from the working directory when present.
	DotenvFile = ".env"
	envPrefix  = "TIMEBANK_"
)

type fileConfig struct {
	APIURL       string `toml:"api_url"`
	LogDir       string `toml:"log_dir"`
	StatePath    string `toml:"state_path"`
	PollSeconds  int    `toml:"poll_seconds"`
	PageSize     int    `toml:"page_size"`
	JitsiDomain  string `toml:"jitsi_domain"`
	RollbarToken string `toml:"rollbar_token"`
	Environment  string `toml:"environment"`
}

// Load reads the config file at path (or the default location), then applies
// overrides from DotenvFile and from TIMEBANK_* environment variables, which
// take precedence over both.
func Load(path string) (Config, error) {
	return load(path, DotenvFile, os.LookupEnv)
}

func load(path, dotenvPath string, lookup func(string) (string, bool)) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	raw, err := readFile(resolved)
	if err != nil {
		return Config{}, err
	}

	dotenv := map[string]string{}
	if dotenvPath != "" {
		dotenv, err = godotenv.Read(dotenvPath)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("read %s: %w", dotenvPath, err)
		}
		if dotenv == nil {
			dotenv = map[string]string{}
		}
	}
	env := func(key string) (string, bool) {
		if v, ok := lookup(envPrefix + key); ok {
			return v, true
		}
		v, ok := dotenv[envPrefix+key]
		return v, ok
	}
	if err := applyEnv(&raw, env); err != nil {
		return Config{}, err
	}

	return normalize(raw), nil
}

func readFile(path string) (fileConfig, error) {
	var raw fileConfig
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return raw, nil
		}
		return raw, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return raw, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return raw, fmt.Errorf("parse config: %w", err)
	}
	return raw, nil
}

func applyEnv(raw *fileConfig, env func(string) (string, bool)) error {
	strs := map[string]*string{
		"API_URL":       &raw.APIURL,
		"LOG_DIR":       &raw.LogDir,
		"STATE_PATH":    &raw.StatePath,
		"JITSI_DOMAIN":  &raw.JitsiDomain,
		"ROLLBAR_TOKEN": &raw.RollbarToken,
		"ENV":           &raw.Environment,
	}
	for key, dst := range strs {
		if v, ok := env(key); ok {
			*dst = v
		}
	}
	ints := map[string]*int{
		"POLL_SECONDS": &raw.PollSeconds,
		"PAGE_SIZE":    &raw.PageSize,
	}
	for key, dst := range ints {
		v, ok := env(key)
		if !ok || strings.TrimSpace(v) == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s%s: %w", envPrefix, key, err)
		}
		*dst = n
	}
	return nil
}

func normalize(raw fileConfig) Config {
	cfg := Config{
		APIURL:       orDefault(raw.APIURL, defaultAPIURL),
		LogDir:       mustExpand(orDefault(raw.LogDir, defaultLogDir)),
		StatePath:    mustExpand(orDefault(raw.StatePath, defaultStatePath)),
		PollInterval: defaultPollSeconds * time.Second,
		PageSize:     defaultPageSize,
		JitsiDomain:  orDefault(raw.JitsiDomain, defaultJitsiDomain),
		RollbarToken: strings.TrimSpace(raw.RollbarToken),
		Environment:  orDefault(raw.Environment, defaultEnvironment),
	}
	if raw.PollSeconds > 0 {
		cfg.PollInterval = time.Duration(raw.PollSeconds) * time.Second
	}
	if raw.PageSize > 0 {
		cfg.PageSize = raw.PageSize
	}
	return cfg
}

// LogPath returns the path of the client's own log file.
func (c Config) LogPath() string {
	if strings.TrimSpace(c.LogDir) == "" {
		return mustExpand(defaultLogDir + "/timebank.log")
	}
	return filepath.Join(c.LogDir, "timebank.log")
}

func orDefault(value, fallback string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return fallback
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
