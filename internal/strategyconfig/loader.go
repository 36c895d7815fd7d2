package strategyconfig

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Load reads a strategy YAML file and returns Config with raw bytes
// KnownFields(true): 오타/미사용 필드 즉시 실패
func Load(path string) (*Config, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, data, err
	}
	return cfg, data, nil
}

// Parse decodes and validates YAML bytes
func Parse(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, err
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Hash generates SHA256 hash from Config (canonical JSON)
func Hash(cfg *Config) (string, error) {
	jsonBytes, err := json.Marshal(cfg)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(jsonBytes)
	return hex.EncodeToString(sum[:]), nil
}

// NewRunSnapshot records which configuration and dataset a run used
func NewRunSnapshot(cfg *Config, yamlData []byte, datasetHash string) (*RunSnapshot, error) {
	hash, err := Hash(cfg)
	if err != nil {
		return nil, err
	}

	return &RunSnapshot{
		ConfigHash:  hash,
		ConfigYAML:  string(yamlData),
		StrategyID:  cfg.Meta.StrategyID,
		DatasetHash: datasetHash,
		CreatedAt:   time.Now(),
	}, nil
}
