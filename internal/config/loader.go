// Package config loads CLI settings. A settings file may carry CLI options at
// the top level and build properties under "properties"; nested property
// maps are flattened into dotted keys.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Environment variable prefix for CLI settings.
const envPrefix = "CIOPT"

const propertiesKey = "properties"

// Settings are the resolved CLI settings.
type Settings struct {
	Verbose    bool   `mapstructure:"verbose"`
	Strict     bool   `mapstructure:"strict"`
	StateFile  string `mapstructure:"state_file"`
	HintDomain string `mapstructure:"hint_domain"`
	Output     string `mapstructure:"output"`
	// Properties are user properties, keyed by dotted property name.
	Properties map[string]string `mapstructure:"-"`
}

// Loader handles loading settings from a file and the environment.
type Loader struct {
	v *viper.Viper
}

func NewLoader() *Loader {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("verbose", "CIOPT_VERBOSE")
	_ = v.BindEnv("strict", "CIOPT_STRICT")
	_ = v.BindEnv("state_file", "CIOPT_STATE_FILE")
	_ = v.BindEnv("hint_domain", "CIOPT_HINT_DOMAIN")
	_ = v.BindEnv("output", "CIOPT_OUTPUT")

	v.SetDefault("state_file", DefaultStateFile())
	return &Loader{v: v}
}

// Load reads settingsFile when given. The type follows the extension (yaml,
// json or toml). Environment variables take precedence over file values.
func (l *Loader) Load(settingsFile string) (*Settings, error) {
	if settingsFile != "" {
		l.v.SetConfigFile(settingsFile)
		if err := l.v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("settings file %s: %w", settingsFile, fs.ErrNotExist)
			}
			return nil, fmt.Errorf("reading settings file: %w", err)
		}
	}

	var settings Settings
	if err := l.v.Unmarshal(&settings); err != nil {
		return nil, fmt.Errorf("unmarshaling settings: %w", err)
	}
	settings.Properties = l.properties()
	return &settings, nil
}

// properties flattens the properties section. Viper lowercases keys, which
// matches the property naming convention.
func (l *Loader) properties() map[string]string {
	out := map[string]string{}
	prefix := propertiesKey + "."
	for _, key := range l.v.AllKeys() {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		out[strings.TrimPrefix(key, prefix)] = l.v.GetString(key)
	}
	return out
}

// DefaultStateFile is where hints persist between sessions, or "" when no
// cache directory is available.
func DefaultStateFile() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "ciopt", "state.yaml")
}

// ParseProperty splits a -D key=value argument. A bare key means "true".
func ParseProperty(arg string) (string, string, error) {
	key, value, ok := strings.Cut(arg, "=")
	key = strings.TrimSpace(key)
	if key == "" {
		return "", "", fmt.Errorf("invalid property %q", arg)
	}
	if !ok {
		value = "true"
	}
	return key, value, nil
}
