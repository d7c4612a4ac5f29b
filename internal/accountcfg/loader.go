package accountcfg

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/PurificacionDomenech/Tranding-Control-Automatizado/internal/contracts"
)

// Load reads an account file. Unknown or misspelled fields fail the load.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open account file: %w", err)
	}
	defer f.Close()

	cfg, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Decode parses and validates an account definition.
// Settings missing from the document keep their defaults.
func Decode(r io.Reader) (*Config, error) {
	cfg := Config{Settings: contracts.DefaultSettings()}

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode account file: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Marshal renders cfg as YAML
func Marshal(cfg *Config) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Hash is the SHA256 of the canonical JSON form of the settings and goals,
// stamped on offline evaluations so a report can be tied to its inputs
func Hash(cfg *Config) (string, error) {
	jsonBytes, err := json.Marshal(struct {
		Settings contracts.Settings `json:"settings"`
		Goals    contracts.Goals    `json:"goals"`
	}{cfg.Settings, cfg.Goals})
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(jsonBytes)
	return hex.EncodeToString(sum[:]), nil
}
