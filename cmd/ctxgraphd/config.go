package main

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the on-disk shape of ctxgraphd's config file. Every field except
// EmbeddingDim has a matching cobra flag that overrides it; EmbeddingDim is
// set only from the file or the default. The file is optional — a config
// path that doesn't exist leaves every field at its flag default rather
// than failing startup.
type Config struct {
	Store struct {
		Backend string `yaml:"backend"` // "badger" or "postgres"
		Dir     string `yaml:"dir"`     // badger data directory
	} `yaml:"store"`

	Embedder struct {
		Backend string `yaml:"backend"` // "local" or "openai"
		Model   string `yaml:"model"`
	} `yaml:"embedder"`

	EmbeddingDim int `yaml:"embedding_dim"`
}

// DefaultConfig returns the configuration ctxgraphd runs with when no file
// is found and no flags override it.
func DefaultConfig() Config {
	var c Config
	c.Store.Backend = "badger"
	c.Store.Dir = "./data/ctxgraph"
	c.Embedder.Backend = "local"
	c.EmbeddingDim = 384
	return c
}

// LoadConfig reads path into a Config seeded with DefaultConfig's values. A
// missing file is not an error — it yields the defaults unchanged.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
