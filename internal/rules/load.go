package rules

import (
	"bytes"
	"errors"
	"io"
	"os"

	"github.com/cptntrps/contract-v2-sub001/internal/model"
	"gopkg.in/yaml.v3"
)

// LoadConfig overlays the YAML file at path on model.DefaultConfig.
// Lists in the file replace the defaults, maps are merged, unknown keys are rejected.
// An empty path returns the defaults.
func LoadConfig(path string) (*model.Config, error) {
	cfg := model.DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, model.NewValidationError(model.ErrInvalidConfig, path, "read config: %v", err)
	}
	if err := DecodeConfig(data, cfg); err != nil {
		return nil, model.NewValidationError(model.ErrInvalidConfig, path, "%v", err)
	}
	return cfg, nil
}

// DecodeConfig decodes YAML into cfg with strict field checking
func DecodeConfig(data []byte, cfg *model.Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Load reads and compiles a configuration file in one step
func Load(path string) (*Set, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	return Compile(cfg)
}
