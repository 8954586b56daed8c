// Package config resolves bcfreq settings from flags, the environment and an
// optional YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"bcfreq/internal/freq"
)

// EnvPrefix prefixes environment overrides, e.g. BCFREQ_FORMAT.
const EnvPrefix = "BCFREQ"

// Config represents configuration for the bcfreq tool
type Config struct {
	Debug     bool   `json:"debug" mapstructure:"debug" jsonschema:"title=Debug,description=Enable debug logging"`
	LogLevel  string `json:"logLevel,omitempty" mapstructure:"log-level" jsonschema:"title=Log Level,enum=debug,enum=info,enum=warn,enum=error,default=info"`
	NoColor   bool   `json:"noColor" mapstructure:"no-color" jsonschema:"title=No Color,description=Disable colored output"`
	NoTUI     bool   `json:"noTui" mapstructure:"no-tui" jsonschema:"title=No TUI,description=Print reports instead of starting the viewer"`
	Format    string `json:"format,omitempty" mapstructure:"format" jsonschema:"title=Format,enum=text,enum=json,enum=cbor,enum=markdown,default=text"`
	DB        string `json:"db,omitempty" mapstructure:"db" jsonschema:"title=History Database,description=SQLite file recording every scan"`
	Key       string `json:"key,omitempty" mapstructure:"key" jsonschema:"title=XXTEA Key,description=Decrypt input images with this key"`
	Signature string `json:"signature,omitempty" mapstructure:"signature" jsonschema:"title=Signature,description=Prefix stripped before decryption"`
}

// defaults registers every key so that environment overrides apply even
// without a matching flag.
var defaults = map[string]any{
	"debug":     false,
	"log-level": "info",
	"no-color":  false,
	"no-tui":    false,
	"format":    freq.FormatText,
	"db":        "",
	"key":       "",
	"signature": "",
}

// New returns a viper instance reading BCFREQ_* variables and, when
// present, the config file. An empty file means $HOME/.bcfreq.yaml.
func New(file string) (*viper.Viper, error) {
	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return v, nil
		}
		v.SetConfigFile(filepath.Join(home, ".bcfreq.yaml"))
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file == "" && (errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)) {
			return v, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return v, nil
}

// Bind makes flag values take precedence over the environment and file.
func Bind(v *viper.Viper, flags *pflag.FlagSet) error {
	return v.BindPFlags(flags)
}

// Load decodes the resolved settings and validates them.
func Load(v *viper.Viper) (Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return c, fmt.Errorf("decoding config: %w", err)
	}
	if !slices.Contains(freq.Formats, c.Format) {
		return c, fmt.Errorf("unknown format %q (want one of %v)", c.Format, freq.Formats)
	}
	return c, nil
}

// Schema returns the JSON schema of the config file.
func Schema() *jsonschema.Schema {
	reflector := new(jsonschema.Reflector)
	return reflector.Reflect(&Config{})
}
