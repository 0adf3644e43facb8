// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"

	"github.com/jeranaias/mailassist/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config is the complete mailassist configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	// User-facing settings edited from the assistant itself.
	UserData UserDataConfig `toml:"user_data" json:"user_data"`

	Model ModelConfig `toml:"model" json:"model"`
	Mail  MailConfig  `toml:"mail" json:"mail"`
	Log   LogConfig   `toml:"log" json:"log"`
}

// UserDataConfig holds the settings the user changes day to day.
type UserDataConfig struct {
	// OllamaURL is the model server base URL.
	OllamaURL string `toml:"ollama_url" json:"ollama_url"`

	// Language is the output language for summaries and warnings.
	Language string `toml:"language" json:"language"`

	// CustomInstruction, when set, prefixes every request.
	CustomInstruction string `toml:"custom_instruction" json:"custom_instruction"`
}

// ModelConfig controls model selection.
type ModelConfig struct {
	// Default model name. Empty selects the first model the server lists.
	Default string `toml:"default" json:"default"`

	// FormatJSON asks the server for JSON mode on reasoning requests.
	FormatJSON bool `toml:"format_json" json:"format_json"`
}

// MailConfig configures the mail client bridge.
type MailConfig struct {
	// Bridge is "file", "command" or "none".
	Bridge string `toml:"bridge" json:"bridge"`

	SelectionFile string `toml:"selection_file" json:"selection_file"`
	Command       string `toml:"command" json:"command"`

	// PollIntervalMS is clamped to 1000..5000.
	PollIntervalMS int `toml:"poll_interval_ms" json:"poll_interval_ms"`

	AttachmentDir string `toml:"attachment_dir" json:"attachment_dir"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `toml:"level" json:"level"`

	// File receives log lines; empty means stderr.
	File string `toml:"file" json:"file"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

const (
	DefaultOllamaURL      = "http://localhost:11434"
	DefaultLanguage       = "English"
	DefaultPollIntervalMS = 1000
	MinPollIntervalMS     = 1000
	MaxPollIntervalMS     = 5000
	currentVersion        = "1"
)

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Version: currentVersion,
		UserData: UserDataConfig{
			OllamaURL: DefaultOllamaURL,
			Language:  DefaultLanguage,
		},
		Model: ModelConfig{
			FormatJSON: true,
		},
		Mail: MailConfig{
			Bridge:         "none",
			PollIntervalMS: DefaultPollIntervalMS,
			AttachmentDir:  filepath.Join(os.TempDir(), "mailassist-attachments"),
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// SetDefaults fills empty values and clamps out-of-range ones.
func (c *Config) SetDefaults() {
	d := Default()

	if c.Version == "" {
		c.Version = d.Version
	}
	if c.UserData.OllamaURL == "" {
		c.UserData.OllamaURL = d.UserData.OllamaURL
	}
	c.UserData.OllamaURL = strings.TrimRight(c.UserData.OllamaURL, "/")
	if c.UserData.Language == "" {
		c.UserData.Language = d.UserData.Language
	}
	if c.Mail.Bridge == "" {
		c.Mail.Bridge = d.Mail.Bridge
	}
	if c.Mail.AttachmentDir == "" {
		c.Mail.AttachmentDir = d.Mail.AttachmentDir
	}
	switch {
	case c.Mail.PollIntervalMS == 0:
		c.Mail.PollIntervalMS = d.Mail.PollIntervalMS
	case c.Mail.PollIntervalMS < MinPollIntervalMS:
		c.Mail.PollIntervalMS = MinPollIntervalMS
	case c.Mail.PollIntervalMS > MaxPollIntervalMS:
		c.Mail.PollIntervalMS = MaxPollIntervalMS
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// HomeEnv overrides the configuration directory.
const HomeEnv = "MAILASSIST_HOME"

// ConfigDir returns the configuration directory path.
func ConfigDir() (string, error) {
	if dir := os.Getenv(HomeEnv); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".mailassist"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// ensureSecurePermissions tightens a config file to 0600.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load reads the configuration from the default location. It tries TOML,
// then JSON, then falls back to defaults. Environment overrides are
// applied last. A file that exists but fails to decode is reported
// alongside the default configuration.
func Load() (*Config, string, error) {
	tomlPath, err := ConfigPathTOML()
	if err != nil {
		return nil, "", err
	}
	jsonPath, err := ConfigPathJSON()
	if err != nil {
		return nil, "", err
	}

	for _, path := range []string{tomlPath, jsonPath} {
		if _, statErr := os.Stat(path); statErr != nil {
			continue
		}
		cfg, err := LoadFromPath(path)
		if err != nil {
			return nil, path, err
		}
		return cfg, path, nil
	}

	cfg, err := finish(Default())
	return cfg, tomlPath, err
}

// LoadFromPath reads the configuration at path, choosing the format by
// extension. A missing file yields defaults.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); err == nil {
		var loadErr error
		if strings.EqualFold(filepath.Ext(path), ".json") {
			loadErr = LoadJSON(cfg, path)
		} else {
			loadErr = LoadTOML(cfg, path)
		}
		if loadErr != nil {
			return nil, loadErr
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("stat config: %w", err)
	}

	return finish(cfg)
}

func finish(cfg *Config) (*Config, error) {
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes a TOML file over cfg.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// LoadJSON decodes a JSON file over cfg.
func LoadJSON(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// SaveTo writes cfg to path, choosing the format by extension.
func SaveTo(cfg *Config, path string) error {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return SaveJSON(cfg, path)
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes cfg as TOML with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	var buf strings.Builder
	buf.WriteString("# mailassist configuration file\n")
	buf.WriteString("# Keys under [user_data] can also be changed from the chat with /set.\n\n")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFileWithDir(path, []byte(buf.String()), 0600, 0700); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SaveJSON writes cfg as indented JSON with 0600 permissions.
func SaveJSON(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFileWithDir(path, data, 0600, 0700); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// ValidateServerURL checks that raw is an absolute http(s) URL.
func ValidateServerURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %v", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("missing host")
	}
	return nil
}

// Validate checks the configuration and returns ValidateErrors if any
// value is unusable.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if err := ValidateServerURL(c.UserData.OllamaURL); err != nil {
		errs = append(errs, ValidationError{Field: "user_data.ollama_url", Message: err.Error()})
	}
	if strings.TrimSpace(c.UserData.Language) == "" {
		errs = append(errs, ValidationError{Field: "user_data.language", Message: "must not be empty"})
	}

	switch c.Mail.Bridge {
	case "none":
	case "file":
		if c.Mail.SelectionFile == "" {
			errs = append(errs, ValidationError{Field: "mail.selection_file", Message: "required when bridge is \"file\""})
		}
	case "command":
		if strings.TrimSpace(c.Mail.Command) == "" {
			errs = append(errs, ValidationError{Field: "mail.command", Message: "required when bridge is \"command\""})
		}
	default:
		errs = append(errs, ValidationError{Field: "mail.bridge", Message: fmt.Sprintf("must be file, command or none, got %q", c.Mail.Bridge)})
	}

	if c.Mail.PollIntervalMS < MinPollIntervalMS || c.Mail.PollIntervalMS > MaxPollIntervalMS {
		errs = append(errs, ValidationError{
			Field:   "mail.poll_interval_ms",
			Message: fmt.Sprintf("must be between %d and %d", MinPollIntervalMS, MaxPollIntervalMS),
		})
	}

	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, ValidationError{Field: "log.level", Message: err.Error()})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides.
//
// Supported environment variables:
//   - MAILASSIST_OLLAMA_URL: overrides user_data.ollama_url
//   - MAILASSIST_LANGUAGE: overrides user_data.language
//   - MAILASSIST_MODEL: overrides model.default
//   - MAILASSIST_MAIL_BRIDGE: overrides mail.bridge
//   - MAILASSIST_SELECTION_FILE: overrides mail.selection_file
//   - MAILASSIST_LOG_LEVEL: overrides log.level
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("MAILASSIST_OLLAMA_URL"); v != "" {
		c.UserData.OllamaURL = v
	}
	if v := os.Getenv("MAILASSIST_LANGUAGE"); v != "" {
		c.UserData.Language = v
	}
	if v := os.Getenv("MAILASSIST_MODEL"); v != "" {
		c.Model.Default = v
	}
	if v := os.Getenv("MAILASSIST_MAIL_BRIDGE"); v != "" {
		c.Mail.Bridge = v
	}
	if v := os.Getenv("MAILASSIST_SELECTION_FILE"); v != "" {
		c.Mail.SelectionFile = v
	}
	if v := os.Getenv("MAILASSIST_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a value by dot-notation key, e.g. "mail.bridge".
func (c *Config) Get(key string) (interface{}, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set assigns a value by dot-notation key. String values are converted
// to the field's type.
func (c *Config) Set(key string, value interface{}) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	if !field.CanSet() {
		return fmt.Errorf("cannot set field: %s", key)
	}
	return setFieldValue(field, value)
}

func (c *Config) lookup(key string) (reflect.Value, error) {
	if strings.TrimSpace(key) == "" {
		return reflect.Value{}, errors.New("empty key")
	}
	parts := strings.Split(key, ".")

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)
		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})
		if !field.IsValid() {
			return reflect.Value{}, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}
		if i == len(parts)-1 {
			if field.Kind() == reflect.Struct {
				return reflect.Value{}, fmt.Errorf("%s is a section, not a value", key)
			}
			return field, nil
		}
		if field.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("field '%s' is not a section", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return reflect.Value{}, fmt.Errorf("invalid key: %s", key)
}

// normalizeFieldName converts snake_case, kebab-case or camelCase to a
// name that matches the Go field case-insensitively.
func normalizeFieldName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-'
	})

	var result strings.Builder
	for _, part := range parts {
		result.WriteString(strings.ToUpper(part[:1]))
		result.WriteString(part[1:])
	}
	return result.String()
}

func setFieldValue(field reflect.Value, value interface{}) error {
	if strVal, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(strVal)
			return nil
		case reflect.Int, reflect.Int64:
			intVal, err := strconv.ParseInt(strings.TrimSpace(strVal), 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %v", err)
			}
			field.SetInt(intVal)
			return nil
		case reflect.Bool:
			boolVal, err := strconv.ParseBool(strings.TrimSpace(strVal))
			if err != nil {
				return fmt.Errorf("invalid boolean value: %v", err)
			}
			field.SetBool(boolVal)
			return nil
		}
	}

	val := reflect.ValueOf(value)
	if !val.IsValid() {
		return fmt.Errorf("cannot assign nil to %s", field.Type())
	}
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}
	if val.Type().ConvertibleTo(field.Type()) && val.Kind() != reflect.String {
		field.Set(val.Convert(field.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// Keys lists every settable key in dot notation.
func Keys() []string {
	var keys []string
	t := reflect.TypeOf(Config{})
	for i := 0; i < t.NumField(); i++ {
		section := t.Field(i)
		name := tomlName(section)
		if section.Type.Kind() != reflect.Struct {
			keys = append(keys, name)
			continue
		}
		for j := 0; j < section.Type.NumField(); j++ {
			keys = append(keys, name+"."+tomlName(section.Type.Field(j)))
		}
	}
	return keys
}

func tomlName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("toml"), ",")
	if name == "" {
		return strings.ToLower(f.Name)
	}
	return name
}

// Clone returns a copy of the configuration. All fields are values, so a
// struct copy is deep.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// String renders the configuration as TOML.
func (c *Config) String() string {
	var buf strings.Builder
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return fmt.Sprintf("<config: %v>", err)
	}
	return buf.String()
}
