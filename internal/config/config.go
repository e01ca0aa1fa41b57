package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// DefaultRPCURL is used when no endpoint is configured. The URL must
// support subscriptions.
const DefaultRPCURL = "wss://ethereum-rpc.publicnode.com"

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	RPCURL              string
	Pools               []string
	ReconnectBase       time.Duration
	ReconnectMultiplier float64
	ReconnectMax        time.Duration
	Out                 string
	LogLevel            string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("WATCHER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("rpc", DefaultRPCURL)
	v.SetDefault("reconnect-base", time.Second)
	v.SetDefault("reconnect-multiplier", 2.0)
	v.SetDefault("reconnect-max", 30*time.Second)
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		RPCURL:              v.GetString("rpc"),
		Pools:               getStringSlice(v, "pools"),
		ReconnectBase:       v.GetDuration("reconnect-base"),
		ReconnectMultiplier: v.GetFloat64("reconnect-multiplier"),
		ReconnectMax:        v.GetDuration("reconnect-max"),
		Out:                 v.GetString("out"),
		LogLevel:            v.GetString("log-level"),
	}

	if cfg.RPCURL == "" {
		cfg.RPCURL = DefaultRPCURL
	}

	return cfg, nil
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
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
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
