package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/simonhull/firebird-suite/nest/internal/model"
)

// LoadRequest reads a generation request from a JSON or YAML file.
func LoadRequest(path string, seed model.GenerationConfig) (*model.GenerationConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read request file: %w", err)
	}
	return DecodeRequest(bytes.NewReader(data), seed)
}

// DecodeRequest decodes a request on top of seed. Input whose first
// non-blank byte is '{' is read as JSON, anything else as YAML. Unknown
// fields are ignored.
func DecodeRequest(r io.Reader, seed model.GenerationConfig) (*model.GenerationConfig, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read request: %w", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("request is empty")
	}

	cfg := seed
	if data[0] == '{' {
		err = json.Unmarshal(data, &cfg)
	} else {
		err = yaml.Unmarshal(data, &cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}
	return &cfg, nil
}
