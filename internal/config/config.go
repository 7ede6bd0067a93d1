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

// Config represents the worklog configuration.
type Config struct {
	Storage  StorageConfig  `yaml:"storage"`
	Vault    VaultConfig    `yaml:"vault"`
	Tracking TrackingConfig `yaml:"tracking"`
	Privacy  PrivacyConfig  `yaml:"privacy"`
	Log      LogConfig      `yaml:"log"`
}

// StorageConfig holds database settings.
type StorageConfig struct {
	DBPath string `yaml:"db_path"` // SQLite path (empty = XDG data dir)
}

// VaultConfig holds note-vault settings.
type VaultConfig struct {
	Root          string `yaml:"root"`            // Vault root directory (empty = XDG data dir)
	DailyDir      string `yaml:"daily_dir"`       // Subdirectory for daily notes
	WeeklyDir     string `yaml:"weekly_dir"`      // Subdirectory for weekly notes
	MonthlyDir    string `yaml:"monthly_dir"`     // Subdirectory for monthly notes
	ProjectsDir   string `yaml:"projects_dir"`    // Subdirectory for project notes
	LockRetries   int    `yaml:"lock_retries"`    // Render lock attempts before giving up
	LockBackoffMs int    `yaml:"lock_backoff_ms"` // Delay between lock attempts
}

// TrackingConfig holds collector and detector settings.
type TrackingConfig struct {
	WatchRoots         []string `yaml:"watch_roots"`          // Roots whose first path component names the project
	CoalesceWindowMs   int      `yaml:"coalesce_window_ms"`   // File-event dedup window
	StuckThresholdMins int      `yaml:"stuck_threshold_mins"` // Stuck-file look-back window
	StuckMinEdits      int      `yaml:"stuck_min_edits"`      // Edits before a file counts as stuck
	FocusWindowDays    int      `yaml:"focus_window_days"`    // Trailing window for focus analysis
	ClaudeHistory      string   `yaml:"claude_history"`       // Claude Code conversation dir (empty = ~/.claude/projects)
}

// PrivacyConfig holds sensitive-content filter settings.
type PrivacyConfig struct {
	MaskBeforePersist bool     `yaml:"mask_before_persist"` // Mask prompt/response text at ingestion
	SensitivePatterns []string `yaml:"sensitive_patterns"`  // Extra regex patterns layered on the built-ins
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
	File  string `yaml:"file"`  // Log file path (empty = stderr)
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			DBPath: "", // Use default from paths
		},
		Vault: VaultConfig{
			Root:          "", // Use default from paths
			DailyDir:      "daily",
			WeeklyDir:     "weekly",
			MonthlyDir:    "monthly",
			ProjectsDir:   "projects",
			LockRetries:   5,
			LockBackoffMs: 100,
		},
		Tracking: TrackingConfig{
			WatchRoots:         nil,
			CoalesceWindowMs:   2000,
			StuckThresholdMins: 60,
			StuckMinEdits:      3,
			FocusWindowDays:    14,
		},
		Privacy: PrivacyConfig{
			MaskBeforePersist: true,
			SensitivePatterns: nil,
		},
		Log: LogConfig{
			Level: "info",
			File:  "",
		},
	}
}

// Load loads configuration from the default path.
func Load() (*Config, error) {
	paths := DefaultPaths()
	return LoadFromFile(paths.ConfigFile())
}

// LoadFromFile loads configuration from the specified file.
// If the file doesn't exist, returns default configuration.
// Environment variable overrides are applied after file loading.
func LoadFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.ApplyEnvOverrides()
			return cfg, nil // Return defaults if file doesn't exist
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ApplyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Save saves the configuration to the default path.
func (c *Config) Save() error {
	paths := DefaultPaths()
	return c.SaveToFile(paths.ConfigFile())
}

// SaveToFile saves the configuration to the specified file.
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// DBPath resolves the database path, falling back to the XDG default.
func (c *Config) DBPath() string {
	if c.Storage.DBPath != "" {
		return c.Storage.DBPath
	}
	return DefaultPaths().DatabaseFile()
}

// VaultRoot resolves the vault root, falling back to the XDG default.
func (c *Config) VaultRoot() string {
	if c.Vault.Root != "" {
		return c.Vault.Root
	}
	return DefaultPaths().VaultDir()
}

// ClaudeHistoryDir resolves the Claude Code conversation directory, falling
// back to the tool's default location under the home directory.
func (c *Config) ClaudeHistoryDir() string {
	if c.Tracking.ClaudeHistory != "" {
		return c.Tracking.ClaudeHistory
	}
	return filepath.Join(homeDir(), ".claude", "projects")
}

// Validate checks that configured values are usable.
func (c *Config) Validate() error {
	if !isValidLogLevel(c.Log.Level) {
		return fmt.Errorf("invalid log.level: %s (must be debug, info, warn, or error)", c.Log.Level)
	}
	if c.Tracking.CoalesceWindowMs < 0 {
		return fmt.Errorf("invalid tracking.coalesce_window_ms: must be non-negative")
	}
	if c.Tracking.StuckThresholdMins < 1 {
		return fmt.Errorf("invalid tracking.stuck_threshold_mins: must be >= 1")
	}
	if c.Tracking.StuckMinEdits < 1 {
		return fmt.Errorf("invalid tracking.stuck_min_edits: must be >= 1")
	}
	if c.Tracking.FocusWindowDays < 1 {
		return fmt.Errorf("invalid tracking.focus_window_days: must be >= 1")
	}
	if c.Vault.LockRetries < 1 {
		return fmt.Errorf("invalid vault.lock_retries: must be >= 1")
	}
	if c.Vault.LockBackoffMs < 0 {
		return fmt.Errorf("invalid vault.lock_backoff_ms: must be non-negative")
	}
	return nil
}

// ApplyEnvOverrides applies WORKLOG_* environment variable overrides.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("WORKLOG_DB_PATH"); v != "" {
		c.Storage.DBPath = v
	}
	if v := os.Getenv("WORKLOG_VAULT_ROOT"); v != "" {
		c.Vault.Root = v
	}
	if v := os.Getenv("WORKLOG_LOG_LEVEL"); v != "" {
		if isValidLogLevel(v) {
			c.Log.Level = v
		}
	}
	if v := os.Getenv("WORKLOG_DEBUG"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil && b {
			c.Log.Level = "debug"
		}
	}
}

// Get retrieves a configuration value by dot-separated key.
// For example: "tracking.stuck_threshold_mins" or "privacy.mask_before_persist"
func (c *Config) Get(key string) (string, error) {
	parts := strings.Split(key, ".")
	if len(parts) != 2 {
		return "", errors.New("key must be in format 'section.key'")
	}

	section, field := parts[0], parts[1]

	switch section {
	case "storage":
		return c.getStorageField(field)
	case "vault":
		return c.getVaultField(field)
	case "tracking":
		return c.getTrackingField(field)
	case "privacy":
		return c.getPrivacyField(field)
	case "log":
		return c.getLogField(field)
	default:
		return "", fmt.Errorf("unknown section: %s", section)
	}
}

// Set sets a configuration value by dot-separated key.
func (c *Config) Set(key, value string) error {
	parts := strings.Split(key, ".")
	if len(parts) != 2 {
		return errors.New("key must be in format 'section.key'")
	}

	section, field := parts[0], parts[1]

	switch section {
	case "storage":
		return c.setStorageField(field, value)
	case "vault":
		return c.setVaultField(field, value)
	case "tracking":
		return c.setTrackingField(field, value)
	case "privacy":
		return c.setPrivacyField(field, value)
	case "log":
		return c.setLogField(field, value)
	default:
		return fmt.Errorf("unknown section: %s", section)
	}
}

func (c *Config) getStorageField(field string) (string, error) {
	switch field {
	case "db_path":
		return c.Storage.DBPath, nil
	default:
		return "", fmt.Errorf("unknown field: storage.%s", field)
	}
}

func (c *Config) setStorageField(field, value string) error {
	switch field {
	case "db_path":
		c.Storage.DBPath = value
	default:
		return fmt.Errorf("unknown field: storage.%s", field)
	}
	return nil
}

func (c *Config) getVaultField(field string) (string, error) {
	switch field {
	case "root":
		return c.Vault.Root, nil
	case "daily_dir":
		return c.Vault.DailyDir, nil
	case "weekly_dir":
		return c.Vault.WeeklyDir, nil
	case "monthly_dir":
		return c.Vault.MonthlyDir, nil
	case "projects_dir":
		return c.Vault.ProjectsDir, nil
	case "lock_retries":
		return strconv.Itoa(c.Vault.LockRetries), nil
	case "lock_backoff_ms":
		return strconv.Itoa(c.Vault.LockBackoffMs), nil
	default:
		return "", fmt.Errorf("unknown field: vault.%s", field)
	}
}

func (c *Config) setVaultField(field, value string) error {
	switch field {
	case "root":
		c.Vault.Root = value
	case "daily_dir":
		c.Vault.DailyDir = value
	case "weekly_dir":
		c.Vault.WeeklyDir = value
	case "monthly_dir":
		c.Vault.MonthlyDir = value
	case "projects_dir":
		c.Vault.ProjectsDir = value
	case "lock_retries":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for lock_retries: %w", err)
		}
		if v < 1 {
			return fmt.Errorf("invalid lock_retries: must be >= 1")
		}
		c.Vault.LockRetries = v
	case "lock_backoff_ms":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for lock_backoff_ms: %w", err)
		}
		if v < 0 {
			return fmt.Errorf("invalid lock_backoff_ms: must be non-negative")
		}
		c.Vault.LockBackoffMs = v
	default:
		return fmt.Errorf("unknown field: vault.%s", field)
	}
	return nil
}

func (c *Config) getTrackingField(field string) (string, error) {
	switch field {
	case "watch_roots":
		return strings.Join(c.Tracking.WatchRoots, ","), nil
	case "coalesce_window_ms":
		return strconv.Itoa(c.Tracking.CoalesceWindowMs), nil
	case "stuck_threshold_mins":
		return strconv.Itoa(c.Tracking.StuckThresholdMins), nil
	case "stuck_min_edits":
		return strconv.Itoa(c.Tracking.StuckMinEdits), nil
	case "focus_window_days":
		return strconv.Itoa(c.Tracking.FocusWindowDays), nil
	case "claude_history":
		return c.Tracking.ClaudeHistory, nil
	default:
		return "", fmt.Errorf("unknown field: tracking.%s", field)
	}
}

func (c *Config) setTrackingField(field, value string) error {
	switch field {
	case "watch_roots":
		if value == "" {
			c.Tracking.WatchRoots = nil
			return nil
		}
		roots := strings.Split(value, ",")
		for i := range roots {
			roots[i] = strings.TrimSpace(roots[i])
		}
		c.Tracking.WatchRoots = roots
	case "coalesce_window_ms":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for coalesce_window_ms: %w", err)
		}
		if v < 0 {
			return fmt.Errorf("invalid coalesce_window_ms: must be non-negative")
		}
		c.Tracking.CoalesceWindowMs = v
	case "stuck_threshold_mins":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for stuck_threshold_mins: %w", err)
		}
		if v < 1 {
			return fmt.Errorf("invalid stuck_threshold_mins: must be >= 1")
		}
		c.Tracking.StuckThresholdMins = v
	case "stuck_min_edits":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for stuck_min_edits: %w", err)
		}
		if v < 1 {
			return fmt.Errorf("invalid stuck_min_edits: must be >= 1")
		}
		c.Tracking.StuckMinEdits = v
	case "focus_window_days":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for focus_window_days: %w", err)
		}
		if v < 1 {
			return fmt.Errorf("invalid focus_window_days: must be >= 1")
		}
		c.Tracking.FocusWindowDays = v
	case "claude_history":
		c.Tracking.ClaudeHistory = value
	default:
		return fmt.Errorf("unknown field: tracking.%s", field)
	}
	return nil
}

func (c *Config) getPrivacyField(field string) (string, error) {
	switch field {
	case "mask_before_persist":
		return strconv.FormatBool(c.Privacy.MaskBeforePersist), nil
	case "sensitive_patterns":
		return strings.Join(c.Privacy.SensitivePatterns, ","), nil
	default:
		return "", fmt.Errorf("unknown field: privacy.%s", field)
	}
}

func (c *Config) setPrivacyField(field, value string) error {
	switch field {
	case "mask_before_persist":
		v, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid value for mask_before_persist: %w", err)
		}
		c.Privacy.MaskBeforePersist = v
	case "sensitive_patterns":
		if value == "" {
			c.Privacy.SensitivePatterns = nil
			return nil
		}
		c.Privacy.SensitivePatterns = strings.Split(value, ",")
	default:
		return fmt.Errorf("unknown field: privacy.%s", field)
	}
	return nil
}

func (c *Config) getLogField(field string) (string, error) {
	switch field {
	case "level":
		return c.Log.Level, nil
	case "file":
		return c.Log.File, nil
	default:
		return "", fmt.Errorf("unknown field: log.%s", field)
	}
}

func (c *Config) setLogField(field, value string) error {
	switch field {
	case "level":
		if !isValidLogLevel(value) {
			return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", value)
		}
		c.Log.Level = value
	case "file":
		c.Log.File = value
	default:
		return fmt.Errorf("unknown field: log.%s", field)
	}
	return nil
}

// ListKeys returns user-facing configuration keys.
func ListKeys() []string {
	return []string{
		"storage.db_path",
		"vault.root",
		"vault.daily_dir",
		"vault.weekly_dir",
		"vault.monthly_dir",
		"vault.projects_dir",
		"vault.lock_retries",
		"vault.lock_backoff_ms",
		"tracking.watch_roots",
		"tracking.coalesce_window_ms",
		"tracking.stuck_threshold_mins",
		"tracking.stuck_min_edits",
		"tracking.focus_window_days",
		"tracking.claude_history",
		"privacy.mask_before_persist",
		"privacy.sensitive_patterns",
		"log.level",
		"log.file",
	}
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}
