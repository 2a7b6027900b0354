package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	pkgconfig "github.com/goran-ethernal/BuildersIndexer/pkg/config"
	"gopkg.in/yaml.v3"
)

type decodeFunc func(data []byte, cfg *pkgconfig.Config) error

var decoders = map[string]decodeFunc{
	".yaml": decodeYAML,
	".yml":  decodeYAML,
	".json": decodeJSON,
	".toml": decodeTOML,
}

func decodeYAML(data []byte, cfg *pkgconfig.Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("failed to parse YAML config: %w", err)
	}
	return nil
}

func decodeJSON(data []byte, cfg *pkgconfig.Config) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("failed to parse JSON config: %w", err)
	}
	return nil
}

func decodeTOML(data []byte, cfg *pkgconfig.Config) error {
	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return fmt.Errorf("failed to parse TOML config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("failed to parse TOML config: unknown key %s", undecoded[0])
	}
	return nil
}

// Load reads path (or the built-in configuration when path is empty), applies
// the environment on top and validates the result once.
func Load(path string, env EnvReader) (*pkgconfig.Config, error) {
	cfg := pkgconfig.Default()

	if path != "" {
		var err error
		if cfg, err = decodeFile(path, env); err != nil {
			return nil, err
		}
	}

	if err := ApplyEnvOverrides(cfg, env); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	return finalize(cfg)
}

// LoadFromFile reads and validates a configuration file without consulting the environment.
// The format follows the extension: .yaml, .yml, .json or .toml.
func LoadFromFile(path string) (*pkgconfig.Config, error) {
	cfg, err := decodeFile(path, nil)
	if err != nil {
		return nil, err
	}

	return finalize(cfg)
}

func LoadFromYAML(path string) (*pkgconfig.Config, error) { return loadAs(path, decodeYAML) }
func LoadFromJSON(path string) (*pkgconfig.Config, error) { return loadAs(path, decodeJSON) }
func LoadFromTOML(path string) (*pkgconfig.Config, error) { return loadAs(path, decodeTOML) }

func loadAs(path string, decode decodeFunc) (*pkgconfig.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg pkgconfig.Config
	if err := decode(data, &cfg); err != nil {
		return nil, err
	}

	return finalize(&cfg)
}

func decodeFile(path string, env EnvReader) (*pkgconfig.Config, error) {
	ext := strings.ToLower(filepath.Ext(path))
	decode, ok := decoders[ext]
	if !ok {
		return nil, fmt.Errorf("unsupported config file format: %s (supported: .yaml, .yml, .json, .toml)", ext)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if env != nil {
		if data, err = interpolate(data, env); err != nil {
			return nil, err
		}
	}

	var cfg pkgconfig.Config
	if err := decode(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

var placeholderRe = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// interpolate replaces ${NAME} placeholders, typically provider API keys inside
// endpoint URLs. Every referenced variable must be set.
func interpolate(data []byte, env EnvReader) ([]byte, error) {
	var missing []string

	out := placeholderRe.ReplaceAllFunc(data, func(m []byte) []byte {
		name := string(placeholderRe.FindSubmatch(m)[1])
		v, ok := env(name)
		if !ok {
			if !slices.Contains(missing, name) {
				missing = append(missing, name)
			}
			return m
		}
		return []byte(v)
	})

	if len(missing) > 0 {
		return nil, fmt.Errorf("config references unset environment variables: %s", strings.Join(missing, ", "))
	}

	return out, nil
}

func finalize(cfg *pkgconfig.Config) (*pkgconfig.Config, error) {
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}
