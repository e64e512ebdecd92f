package properties

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	javaprops "github.com/magiconair/properties"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const javaPropertiesType = "properties"

// supportedExtensions maps file extensions to viper config types.
var supportedExtensions = map[string]string{
	".yaml":       "yaml",
	".yml":        "yaml",
	".toml":       "toml",
	".json":       "json",
	".properties": javaPropertiesType,
	".props":      javaPropertiesType,
	".conf":       javaPropertiesType,
}

// LoadFile reads a property file and flattens it into a Map.
//
// Supported formats are YAML, TOML, JSON and Java-style .properties files.
// Nested keys are joined with "." (so `http-server: {port: 8080}` becomes
// "http-server.port"), and lists are joined with ",". Keys are emitted in
// sorted order.
//
// Keys keep the case they have in the file, so a key such as "Node.Port"
// is later rejected by InvalidKeys exactly like the same key given on the
// command line. Two keys that differ only in case are an error.
//
// Environment variable tokens are left untouched; substitution happens later
// in the pipeline so unset variables are reported per key.
func LoadFile(path string) (*Map, error) {
	if path == "" {
		return nil, fmt.Errorf("property file path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("property file %s: %w", path, err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	configType, ok := supportedExtensions[ext]
	if !ok {
		return nil, fmt.Errorf("unsupported property file extension %q (supported: yaml, yml, toml, json, properties)", ext)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read property file %s: %w", path, err)
	}
	if configType == javaPropertiesType {
		return loadJavaProperties(path, data)
	}

	v := viper.New()
	v.SetConfigType(configType)
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("failed to read property file %s: %w", path, err)
	}

	// viper folds keys to lower case; recover the spelling used in the file.
	spelling, err := originalKeys(data, configType)
	if err != nil {
		return nil, fmt.Errorf("failed to read property file %s: %w", path, err)
	}

	keys := v.AllKeys()
	sort.Strings(keys)

	out := New()
	for _, key := range keys {
		value, err := stringify(v.Get(key))
		if err != nil {
			return nil, fmt.Errorf("property %q in %s: %w", key, path, err)
		}
		if original, ok := spelling[key]; ok {
			key = original
		}
		out.Set(key, value)
	}
	return out, nil
}

// loadJavaProperties decodes a key=value file. Expansion is disabled so
// ${ENV:NAME} tokens reach the substitution stage verbatim.
func loadJavaProperties(path string, data []byte) (*Map, error) {
	loader := &javaprops.Loader{Encoding: javaprops.UTF8, DisableExpansion: true}
	p, err := loader.LoadBytes(data)
	if err != nil {
		return nil, fmt.Errorf("failed to read property file %s: %w", path, err)
	}

	keys := p.Keys()
	sort.Strings(keys)

	out := New()
	for _, key := range keys {
		value, _ := p.Get(key)
		out.Set(key, value)
	}
	return out, nil
}

// originalKeys maps each lower-cased dotted key of a structured file to
// the spelling found in the file.
func originalKeys(data []byte, configType string) (map[string]string, error) {
	var raw map[string]any
	var err error
	switch configType {
	case "yaml":
		err = yaml.Unmarshal(data, &raw)
	case "toml":
		err = toml.Unmarshal(data, &raw)
	case "json":
		err = json.Unmarshal(data, &raw)
	}
	if err != nil {
		return nil, err
	}

	spelling := make(map[string]string)
	if err := collectKeys(spelling, "", raw); err != nil {
		return nil, err
	}
	return spelling, nil
}

func collectKeys(spelling map[string]string, prefix string, node any) error {
	var children map[string]any
	switch n := node.(type) {
	case map[string]any:
		children = n
	case map[any]any:
		children = make(map[string]any, len(n))
		for k, v := range n {
			children[fmt.Sprint(k)] = v
		}
	default:
		if prefix == "" {
			return nil
		}
		folded := strings.ToLower(prefix)
		if other, ok := spelling[folded]; ok && other != prefix {
			return fmt.Errorf("keys %q and %q differ only in case", other, prefix)
		}
		spelling[folded] = prefix
		return nil
	}

	for name, child := range children {
		key := name
		if prefix != "" {
			key = prefix + "." + name
		}
		if err := collectKeys(spelling, key, child); err != nil {
			return err
		}
	}
	return nil
}

// stringify renders a decoded config value as a property string.
func stringify(raw any) (string, error) {
	switch v := raw.(type) {
	case nil:
		return "", nil
	case []any:
		parts, err := cast.ToStringSliceE(v)
		if err != nil {
			return "", err
		}
		return strings.Join(parts, ","), nil
	case []string:
		return strings.Join(v, ","), nil
	case map[string]any:
		return "", fmt.Errorf("nested tables must be expressed as dotted keys")
	default:
		return cast.ToStringE(v)
	}
}
