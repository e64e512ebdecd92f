// Package config loads the settings of the bootkit command itself: logging,
// the property file, the env file, strict config and the stop timeout.
//
// These are not component properties. Component properties go through the
// bootstrap pipeline; settings configure the tool that runs it.
//
// Sources (highest to lowest precedence):
//  1. Command line flags
//  2. Environment variables (BOOTKIT_*)
//  3. Default values
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cast"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes the environment variables read by Load.
const EnvPrefix = "BOOTKIT"

// Setting keys. They double as flag names.
const (
	KeyConfig       = "config"
	KeyEnvFile      = "env-file"
	KeyLogLevel     = "log-level"
	KeyLogFormat    = "log-format"
	KeyLogOutput    = "log-output"
	KeyStrictConfig = "strict-config"
	KeyStopTimeout  = "stop-timeout"
)

// Settings configures the bootkit command.
type Settings struct {
	// ConfigFile is the property file. Empty means the default location
	// when a file exists there, otherwise none.
	ConfigFile string `mapstructure:"config"`

	// EnvFile is a dotenv file layered over the process environment for
	// ${ENV:NAME} substitution.
	EnvFile string `mapstructure:"env-file"`

	Logging LoggingConfig `mapstructure:",squash"`

	// StrictConfig is nil when neither the flag nor BOOTKIT_STRICT_CONFIG
	// is set, leaving the decision to the bootstrap switch.
	StrictConfig *bool `mapstructure:"-"`

	StopTimeout time.Duration `mapstructure:"stop-timeout" validate:"gt=0"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	// Level is DEBUG, INFO, WARN or ERROR, case-insensitive.
	Level string `mapstructure:"log-level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Format is text or json.
	Format string `mapstructure:"log-format" validate:"required,oneof=text json"`

	// Output is stdout, stderr or a file path.
	Output string `mapstructure:"log-output" validate:"required"`
}

var validate = validator.New()

// Load resolves settings from flags, the environment and defaults. Only
// flags that were set on the command line override the environment.
func Load(flags *pflag.FlagSet) (*Settings, error) {
	v := viper.New()
	setupViper(v)

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("failed to bind flags: %w", err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("failed to decode settings: %w", err)
	}

	if v.IsSet(KeyStrictConfig) {
		strict, err := cast.ToBoolE(v.Get(KeyStrictConfig))
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", KeyStrictConfig, err)
		}
		s.StrictConfig = &strict
	}

	if s.ConfigFile == "" && DefaultConfigExists() {
		s.ConfigFile = DefaultConfigPath()
	}

	if err := Validate(&s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks s against its constraints.
func Validate(s *Settings) error {
	if err := validate.Struct(s); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s must satisfy '%s'", fe.Namespace(), constraint(fe)))
			}
			return fmt.Errorf("invalid settings: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid settings: %w", err)
	}
	return nil
}

func constraint(fe validator.FieldError) string {
	if fe.Param() == "" {
		return fe.Tag()
	}
	return fe.Tag() + "=" + fe.Param()
}

// setupViper wires defaults and BOOTKIT_* variables. A dash or dot in a key
// becomes an underscore: log-level reads BOOTKIT_LOG_LEVEL.
func setupViper(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	d := Defaults()
	v.SetDefault(KeyConfig, d.ConfigFile)
	v.SetDefault(KeyEnvFile, d.EnvFile)
	v.SetDefault(KeyLogLevel, d.Logging.Level)
	v.SetDefault(KeyLogFormat, d.Logging.Format)
	v.SetDefault(KeyLogOutput, d.Logging.Output)
	v.SetDefault(KeyStopTimeout, d.StopTimeout.String())

	// Without a default AutomaticEnv only sees keys that are bound.
	_ = v.BindEnv(KeyStrictConfig)
}

// ConfigDir returns $XDG_CONFIG_HOME/bootkit, falling back to
// ~/.config/bootkit, or "." when the home directory is unknown.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "bootkit")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "bootkit")
}

// DefaultConfigPath returns the property file used when --config is unset.
func DefaultConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// DefaultConfigExists reports whether a file exists at DefaultConfigPath.
func DefaultConfigExists() bool {
	_, err := os.Stat(DefaultConfigPath())
	return err == nil
}
