// File: internal/config/manager.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// ConfigManager owns the YAML config file. Reads go through viper so that
// OPSKIT_* environment variables override file values; writes go through
// yaml.v3 so the file only ever holds keys the user set explicitly
type ConfigManager struct {
	v    *viper.Viper
	fs   afero.Fs
	path string
}

// Creates a manager for ~/.config/opskit/config.yaml, creating the directory if needed
func NewConfigManager() (*ConfigManager, error) {
	path, err := defaultConfigPath()
	if err != nil {
		return nil, err
	}
	return NewConfigManagerWithFs(afero.NewOsFs(), path)
}

// Creates a manager backed by the given filesystem and config file path
func NewConfigManagerWithFs(fs afero.Fs, path string) (*ConfigManager, error) {
	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	v := viper.New()
	v.SetFs(fs)
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	m := &ConfigManager{v: v, fs: fs, path: path}
	if err := m.reload(); err != nil {
		return nil, err
	}
	return m, nil
}

func defaultConfigPath() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, ConfigDirName, ConfigFileName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, ".config", ConfigDirName, ConfigFileName), nil
}

func (m *ConfigManager) Path() string {
	return m.path
}

func (m *ConfigManager) reload() error {
	exists, err := afero.Exists(m.fs, m.path)
	if err != nil {
		return fmt.Errorf("failed to check config file: %w", err)
	}
	if !exists {
		return nil
	}
	if err := m.v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file %s: %w", m.path, err)
	}
	return nil
}

// Decodes and validates the merged configuration (defaults, file, environment)
func (m *ConfigManager) LoadConfig() (*Config, error) {
	var cfg Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		stringToTimeHook(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := m.v.Unmarshal(&cfg, hook); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func stringToTimeHook() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if from.Kind() != reflect.String || to != reflect.TypeOf(time.Time{}) {
			return data, nil
		}
		return ParseTime(data.(string))
	}
}

// Accepts RFC 3339 timestamps or plain dates; an empty string is the zero time
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q: expected RFC 3339 or YYYY-MM-DD", s)
	}
	return t, nil
}

// Writes a single key to the config file
func (m *ConfigManager) SetValue(key, value string) error {
	key = strings.ToLower(key)
	if !IsSupportedKey(key) {
		return fmt.Errorf("unsupported configuration key '%s'. Supported keys: %s", key, strings.Join(SupportedKeys(), ", "))
	}

	doc, err := m.readFile()
	if err != nil {
		return err
	}
	setNested(doc, strings.Split(key, "."), value)
	if err := m.writeFile(doc); err != nil {
		return err
	}
	return m.reload()
}

// Returns the effective value of a key and whether it has a non-empty value
func (m *ConfigManager) GetValue(key string) (any, bool) {
	key = strings.ToLower(key)
	if !IsSupportedKey(key) {
		return nil, false
	}
	value := m.v.Get(key)
	switch v := value.(type) {
	case nil:
		return nil, false
	case string:
		return v, v != ""
	case []string:
		return v, len(v) > 0
	case []any:
		return v, len(v) > 0
	}
	return value, true
}

// Removes a key from the config file, reporting whether it was present
func (m *ConfigManager) DeleteValue(key string) (bool, error) {
	key = strings.ToLower(key)
	doc, err := m.readFile()
	if err != nil {
		return false, err
	}
	if !deleteNested(doc, strings.Split(key, ".")) {
		return false, nil
	}
	if err := m.writeFile(doc); err != nil {
		return false, err
	}

	return true, m.reload()
}

// Returns the effective settings, including defaults and environment overrides
func (m *ConfigManager) GetAllSettings() map[string]any {
	return m.v.AllSettings()
}

// Returns only the values stored in the config file, flattened to dotted keys
func (m *ConfigManager) GetFileSettings() (map[string]any, error) {
	doc, err := m.readFile()
	if err != nil {
		return nil, err
	}
	return FlattenMap(doc), nil
}

func (m *ConfigManager) readFile() (map[string]any, error) {
	doc := make(map[string]any)
	data, err := afero.ReadFile(m.fs, m.path)
	if err != nil {
		if os.IsNotExist(err) {
			return doc, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", m.path, err)
	}
	if doc == nil {
		doc = make(map[string]any)
	}
	return doc, nil
}

func (m *ConfigManager) writeFile(doc map[string]any) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}
	if err := afero.WriteFile(m.fs, m.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func setNested(doc map[string]any, path []string, value string) {
	node := doc
	for _, part := range path[:len(path)-1] {
		child, ok := node[part].(map[string]any)
		if !ok {
			child = make(map[string]any)
			node[part] = child
		}
		node = child
	}
	node[path[len(path)-1]] = value
}

func deleteNested(doc map[string]any, path []string) bool {
	if len(path) == 1 {
		if _, ok := doc[path[0]]; !ok {
			return false
		}
		delete(doc, path[0])
		return true
	}
	child, ok := doc[path[0]].(map[string]any)
	if !ok {
		return false
	}
	if !deleteNested(child, path[1:]) {
		return false
	}
	if len(child) == 0 {
		delete(doc, path[0])
	}
	return true
}

// Returns every supported key in sorted order
func SupportedKeys() []string {
	keys := make([]string, 0, len(defaults))
	for k := range defaults {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Recursively flattens a nested map into a flat map with dot notation keys
func FlattenMap(nested map[string]any) map[string]any {
	flat := make(map[string]any)

	var flatten func(string, any)
	flatten = func(prefix string, value any) {
		if m, ok := value.(map[string]any); ok {
			for k, val := range m {
				next := k
				if prefix != "" {
					next = prefix + "." + k
				}
				flatten(next, val)
			}
			return
		}
		if prefix != "" {
			flat[prefix] = value
		}
	}

	flatten("", nested)
	return flat
}
