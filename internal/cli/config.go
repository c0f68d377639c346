package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Settings is the resolved tailorctl configuration.
type Settings struct {
	BackendURL  string        `mapstructure:"backend_url"`
	Session     string        `mapstructure:"session"`
	StatePath   string        `mapstructure:"state_path"`
	HTTPTimeout time.Duration `mapstructure:"http_timeout"`
}

// newViper returns a viper instance reading flags, then TAILOR_* variables,
// then the optional config file.
func newViper(cmd *cobra.Command, configFile string) (*viper.Viper, error) {
	v := viper.New()
	v.SetDefault("backend_url", "http://localhost:8000")
	v.SetDefault("session", "default")
	v.SetDefault("state_path", defaultStatePath())
	v.SetDefault("http_timeout", 30*time.Second)

	v.SetEnvPrefix("TAILOR")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if configFile == "" {
		if home, err := os.UserHomeDir(); err == nil {
			configFile = filepath.Join(home, ".tailorctl.yaml")
		}
	}
	if configFile != "" {
		if _, err := os.Stat(configFile); err == nil {
			v.SetConfigFile(configFile)
			v.SetConfigType("yaml")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("read config %s: %w", configFile, err)
			}
		}
	}

	for key, flag := range map[string]string{
		"backend_url": "backend-url",
		"session":     "session",
		"state_path":  "state",
	} {
		if f := cmd.Flags().Lookup(flag); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, err
			}
		}
	}
	return v, nil
}

func loadSettings(cmd *cobra.Command, configFile string) (Settings, error) {
	v, err := newViper(cmd, configFile)
	if err != nil {
		return Settings{}, err
	}
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("decode config: %w", err)
	}
	s.BackendURL = strings.TrimRight(strings.TrimSpace(s.BackendURL), "/")
	if s.BackendURL == "" {
		return Settings{}, fmt.Errorf("backend_url is required")
	}
	if strings.TrimSpace(s.Session) == "" {
		s.Session = "default"
	}
	return s, nil
}

func defaultStatePath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "tailorctl", "state.db")
	}
	return ".tailorctl.db"
}
