// Package sink stores run artifacts under flat keys such as "results.json".
package sink

import (
	"context"
	"fmt"

	"github.com/use-agent/jobscout/config"
)

// Sink is a write-only key/value store for run artifacts.
type Sink interface {
	// Name identifies the sink in logs.
	Name() string

	// Put stores data under key, replacing any previous value. A reader
	// never observes a partially written value.
	Put(ctx context.Context, key string, data []byte) error

	// Close releases the sink's resources.
	Close() error
}

// New builds the sink selected by cfg.Output.Sink.
func New(cfg *config.Config) (Sink, error) {
	switch cfg.Output.Sink {
	case "file", "":
		return NewFile(cfg.Output.Dir), nil
	case "redis":
		return NewRedis(cfg.Redis.Addr, cfg.Redis.Prefix, cfg.Redis.TTL), nil
	case "memory":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown sink %q", cfg.Output.Sink)
	}
}
