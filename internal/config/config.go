package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	RPCURL          string
	Network         string
	TokensFile      string
	WalletKey       string
	Versions        []string
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	Port            string
	Timeout         time.Duration
	TradingEnabled  bool
	DefaultSlippage float64
	LogLevel        string
}

// Load merges config file, environment variables, and flags into Config.
// Every key is also reachable as UNISWAP_<KEY> with dashes as underscores,
// so rpc-url becomes UNISWAP_RPC_URL.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("UNISWAP")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("rpc-url", "https://eth.llamarpc.com")
	v.SetDefault("network", "mainnet")
	v.SetDefault("versions", []string{"v1", "v2", "v3"})
	v.SetDefault("port", "8080")
	v.SetDefault("timeout", 30*time.Second)
	v.SetDefault("trading-enabled", false)
	v.SetDefault("default-slippage", 0.01)
	v.SetDefault("redis-db", 0)
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
		RPCURL:          v.GetString("rpc-url"),
		Network:         v.GetString("network"),
		TokensFile:      v.GetString("tokens-file"),
		WalletKey:       v.GetString("wallet-key"),
		Versions:        getStringSlice(v, "versions"),
		RedisAddr:       v.GetString("redis-addr"),
		RedisPassword:   v.GetString("redis-password"),
		RedisDB:         v.GetInt("redis-db"),
		Port:            v.GetString("port"),
		Timeout:         v.GetDuration("timeout"),
		TradingEnabled:  v.GetBool("trading-enabled"),
		DefaultSlippage: v.GetFloat64("default-slippage"),
		LogLevel:        v.GetString("log-level"),
	}

	return cfg, nil
}

// getStringSlice reads a key that may arrive as a real slice from YAML or
// pflags, or as a comma-separated string from the environment.
func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	switch typed := v.Get(key).(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return cleanStrings(strings.Split(typed, ","))
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

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
