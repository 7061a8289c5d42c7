package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.yaml.in/yaml/v3"

	"github.com/ekisa-team/voicescribe/internal/envvar"
	"github.com/ekisa-team/voicescribe/internal/xfs"
)

//go:embed voicescribe.schema.json
var schemaJSON string

const schemaURL = "voicescribe.v1.schema.json"

// Load builds the runtime configuration. Precedence, lowest first: built-in
// defaults, the YAML file at path (skipped when path is empty), the process
// environment. The result is validated.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := LoadAndValidate(path, cfg); err != nil {
			return nil, err
		}
	}

	ApplyEnv(cfg, os.LookupEnv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadAndValidate validates the YAML file at path against the embedded
// schema and decodes it on top of cfg.
func LoadAndValidate(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: failed to read config: %w", err)
	}

	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("config: invalid YAML: %w", err)
	}

	if raw != nil {
		doc, err := toJSONValue(raw)
		if err != nil {
			return fmt.Errorf("config: %w", err)
		}

		schema, err := jsonschema.CompileString(schemaURL, schemaJSON)
		if err != nil {
			return fmt.Errorf("config: failed to compile schema: %w", err)
		}

		if err := schema.Validate(doc); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalid, err)
		}
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("config: failed to unmarshal into Config struct: %w", err)
	}

	return nil
}

// ApplyEnv overlays environment variables onto cfg.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) {
	if v, ok := lookup(envvar.BotToken); ok && strings.TrimSpace(v) != "" {
		cfg.Telegram.Token = strings.TrimSpace(v)
	}
	if v, ok := lookup(envvar.ModelPath); ok && v != "" {
		cfg.Transcription.ModelPath = v
	}
	if v, ok := lookup(envvar.VoicescribeTempDir); ok && v != "" {
		cfg.Storage.TempDir = v
	}
	if v, ok := lookup(envvar.VoicescribeHTTPAddr); ok {
		cfg.Server.Addr = v
	}
	if v, ok := lookup(envvar.VoicescribeLogFile); ok && v != "" {
		cfg.Log.File = v
	}

	cfg.Transcription.ModelPath = xfs.ExpandTilde(cfg.Transcription.ModelPath)
	cfg.Storage.TempDir = xfs.ExpandTilde(cfg.Storage.TempDir)
}

// LoadEnvFiles loads KEY=value files into the process environment without
// overriding variables that are already set. Missing files are skipped.
func LoadEnvFiles(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("config: failed to load %s: %w", p, err)
		}
	}

	return nil
}

// toJSONValue round-trips a YAML document through JSON so the schema
// validator sees plain JSON types.
func toJSONValue(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to convert YAML to JSON: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to convert YAML to JSON: %w", err)
	}

	return out, nil
}
