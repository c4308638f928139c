package treetopk

import (
	"fmt"
	"os"
	"runtime"

	"gopkg.in/yaml.v3"

	"github.com/happyhackingspace/treetopk/inference"
	"github.com/happyhackingspace/treetopk/internal/batch"
)

// Config controls how a batch is scheduled and conditioned. ChunkSize and
// Workers never change the result. Epsilon may move scores by rounding error.
// Root can reorder labelings of equal score, and when such a tie straddles
// the K-th rank it changes which of them are returned.
type Config struct {
	ChunkSize int     `yaml:"chunk_size"` // instances per chunk
	Workers   int     `yaml:"workers"`    // chunks in flight; 0 means GOMAXPROCS
	Root      int     `yaml:"root"`       // anchor node of the decoder
	Epsilon   float64 `yaml:"epsilon"`    // positivity margin of the normalizer
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() Config {
	return Config{
		ChunkSize: batch.DefaultChunkSize,
		Workers:   runtime.GOMAXPROCS(0),
		Epsilon:   inference.DefaultEpsilon,
	}
}

// LoadConfig reads a YAML config file on top of DefaultConfig.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate reports the first field New would otherwise replace with a default.
func (c Config) Validate() error {
	if c.ChunkSize < 1 {
		return fmt.Errorf("%w: chunk_size must be positive, got %d", ErrConfig, c.ChunkSize)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers must not be negative, got %d", ErrConfig, c.Workers)
	}
	if c.Epsilon <= 0 {
		return fmt.Errorf("%w: epsilon must be positive, got %g", ErrConfig, c.Epsilon)
	}
	return nil
}
