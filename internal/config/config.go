package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Config is the root configuration for keybot.
type Config struct {
	General  GeneralConfig       `json:"general"`
	Backend  BackendConfig       `json:"backend"`
	Teams    map[string][]string `json:"teams"` // team name -> channels to monitor
	Help     HelpConfig          `json:"help"`
	Commands CommandsConfig      `json:"commands"`
	History  HistoryConfig       `json:"history"`
	Metrics  MetricsConfig       `json:"metrics"`
}

type GeneralConfig struct {
	LogLevel            string `json:"logLevel"`
	LogFile             string `json:"logFile,omitempty"` // optional log file path
	PollIntervalSeconds int    `json:"pollIntervalSeconds"`
}

// BackendConfig selects and configures the chat backend.
type BackendConfig struct {
	Type     string         `json:"type"` // "keybase" | "telegram"
	Telegram TelegramConfig `json:"telegram,omitempty"`
}

type TelegramConfig struct {
	Token string `json:"token,omitempty"`
}

// HelpConfig sets the trigger of the implicitly registered help command.
type HelpConfig struct {
	Pattern string `json:"pattern"` // regex trigger
	Trigger string `json:"trigger"` // display string in help output
}

type CommandsConfig struct {
	Pong            string `json:"pong"`
	ProfanityFilter bool   `json:"profanityFilter"`
	CannedDir       string `json:"cannedDir,omitempty"` // directory of canned-command YAML files
}

type HistoryConfig struct {
	Enabled bool   `json:"enabled"`
	DBPath  string `json:"dbPath"`
}

type MetricsConfig struct {
	Enabled  bool   `json:"enabled"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Endpoint string `json:"endpoint"`
}

// DefaultConfigDir returns the default config directory (~/.keybot).
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".keybot"
	}
	return filepath.Join(home, ".keybot")
}

func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.json")
}

func Load(path string) (*Config, error) {
	path = ExpandPath(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	// Substitute environment variables: ${VAR} and ${VAR:-default}
	data = []byte(ExpandEnvVars(string(data)))

	cfg := Defaults()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
	}

	cfg.History.DBPath = ExpandPath(cfg.History.DBPath)
	cfg.General.LogFile = ExpandPath(cfg.General.LogFile)
	cfg.Commands.CannedDir = ExpandPath(cfg.Commands.CannedDir)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns in config strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-(.*?))?\}`)

// ExpandEnvVars replaces ${VAR} with the environment variable value.
// Supports default values: ${VAR:-default} uses "default" when VAR is unset or empty.
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		varName := groups[1]
		defaultVal := ""
		hasDefault := len(groups) >= 3 && groups[2] != ""
		if hasDefault {
			defaultVal = groups[2]
		}

		val, exists := os.LookupEnv(varName)
		if !exists || val == "" {
			if hasDefault {
				return defaultVal
			}
			return match // Keep original if no env var and no default
		}
		return val
	})
}

func Save(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0o644)
}

// Validate checks that the config has valid values.
func Validate(cfg *Config) error {
	var errs []string

	if cfg.General.PollIntervalSeconds < 1 || cfg.General.PollIntervalSeconds > 3600 {
		errs = append(errs, "general.pollIntervalSeconds must be between 1 and 3600")
	}

	switch cfg.Backend.Type {
	case "keybase":
		// valid
	case "telegram":
		if cfg.Backend.Telegram.Token == "" {
			errs = append(errs, "backend.telegram.token is required for the telegram backend")
		}
	default:
		errs = append(errs, "backend.type must be one of: keybase, telegram")
	}

	if cfg.Help.Pattern == "" {
		errs = append(errs, "help.pattern must not be empty")
	} else if _, err := regexp.Compile(cfg.Help.Pattern); err != nil {
		errs = append(errs, fmt.Sprintf("help.pattern is not a valid regex: %v", err))
	}

	for team, channels := range cfg.Teams {
		if len(channels) == 0 {
			errs = append(errs, fmt.Sprintf("teams.%s has no channels to monitor", team))
		}
	}

	if cfg.History.Enabled && cfg.History.DBPath == "" {
		errs = append(errs, "history.dbPath is required when history is enabled")
	}
	if cfg.Metrics.Port < 0 || cfg.Metrics.Port > 65535 {
		errs = append(errs, "metrics.port must be between 0 and 65535")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// ExpandPath resolves ~/ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
