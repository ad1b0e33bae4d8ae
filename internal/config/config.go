package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "SWAPCTL"

// ClientConfig holds the settings every networked command shares.
type ClientConfig struct {
	RPCURL       string
	Timeout      time.Duration
	Headers      map[string]string
	CheckSync    bool
	LogLevel     string
	MetricsAddr  string
	Journal      string
	PGDSN        string
	PrivateKey   string
	PollInterval time.Duration
}

// Load merges config file, environment variables, and flags into ClientConfig.
func Load(cfgFile string, flags *pflag.FlagSet) (ClientConfig, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return ClientConfig{}, err
	}
	return clientConfig(v)
}

func newViper(cfgFile string, flags *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("timeout", 10*time.Second)
	v.SetDefault("check-sync", false)
	v.SetDefault("log-level", "info")
	v.SetDefault("poll-interval", time.Second)

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}
	return v, nil
}

func clientConfig(v *viper.Viper) (ClientConfig, error) {
	headers, err := parseHeaders(getStringSlice(v, "header"))
	if err != nil {
		return ClientConfig{}, err
	}
	cfg := ClientConfig{
		RPCURL:       strings.TrimSpace(v.GetString("rpc")),
		Timeout:      v.GetDuration("timeout"),
		Headers:      headers,
		CheckSync:    v.GetBool("check-sync"),
		LogLevel:     v.GetString("log-level"),
		MetricsAddr:  v.GetString("metrics-addr"),
		Journal:      v.GetString("journal"),
		PGDSN:        v.GetString("pg-dsn"),
		PrivateKey:   v.GetString("private-key"),
		PollInterval: v.GetDuration("poll-interval"),
	}
	if cfg.RPCURL == "" {
		return ClientConfig{}, fmt.Errorf("rpc url is required")
	}
	if cfg.Timeout <= 0 {
		return ClientConfig{}, fmt.Errorf("timeout must be positive")
	}
	if cfg.PollInterval <= 0 {
		return ClientConfig{}, fmt.Errorf("poll interval must be positive")
	}
	return cfg, nil
}

func parseHeaders(items []string) (map[string]string, error) {
	headers := make(map[string]string, len(items))
	for _, item := range items {
		key, value, ok := strings.Cut(item, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid header %q, want key=value", item)
		}
		headers[key] = strings.TrimSpace(value)
	}
	return headers, nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	return cleanStrings(strings.Split(input, ","))
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
