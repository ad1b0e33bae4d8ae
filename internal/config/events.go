package config

import (
	"fmt"

	"github.com/spf13/pflag"
)

// EventsConfig holds settings for the event scanner.
type EventsConfig struct {
	ClientConfig
	FromBlock uint64
	ToBlock   uint64
	Addresses []string
	Events    []string
	BatchSize uint64
	Out       string
	Cursor    string
}

// LoadEvents merges config file, environment variables, and flags into
// EventsConfig.
func LoadEvents(cfgFile string, flags *pflag.FlagSet) (EventsConfig, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return EventsConfig{}, err
	}
	v.SetDefault("batch-size", uint64(2000))
	v.SetDefault("out", "./data/logs.jsonl")

	client, err := clientConfig(v)
	if err != nil {
		return EventsConfig{}, err
	}
	cfg := EventsConfig{
		ClientConfig: client,
		FromBlock:    v.GetUint64("from"),
		ToBlock:      v.GetUint64("to"),
		Addresses:    getStringSlice(v, "address"),
		Events:       getStringSlice(v, "event"),
		BatchSize:    v.GetUint64("batch-size"),
		Out:          v.GetString("out"),
		Cursor:       v.GetString("cursor"),
	}
	if len(cfg.Addresses) == 0 {
		return EventsConfig{}, fmt.Errorf("at least one address is required")
	}
	if cfg.ToBlock != 0 && cfg.ToBlock < cfg.FromBlock {
		return EventsConfig{}, fmt.Errorf("to block %d is before from block %d", cfg.ToBlock, cfg.FromBlock)
	}
	return cfg, nil
}
