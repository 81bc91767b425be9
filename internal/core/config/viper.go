package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/viper"
)

// LoadConfig loads configuration from file using viper.
// CLI flags > environment > config file > defaults precedence.
func LoadConfig(configPath string) (*FeedConfig, error) {
	v := viper.New()

	// Defaults matching DefaultFeedConfig
	v.SetDefault("feed.backend", BackendSQL)
	v.SetDefault("feed.database_url", "sqlite://notifeed.db")
	v.SetDefault("feed.mongo_uri", "")
	v.SetDefault("feed.mongo_database", "notifeed")
	v.SetDefault("feed.main_wiki", "main")
	v.SetDefault("feed.request_timeout", "30s")

	// Bind environment variables with NF_ prefix
	v.SetEnvPrefix("NF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Load config file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Security check: reject credentials in config files
	// Credentials must be environment-only per 12-factor principles
	if err := validateNoSecretsInConfig(v); err != nil {
		return nil, err
	}

	cfg := &FeedConfig{
		Backend:        v.GetString("feed.backend"),
		DatabaseURL:    v.GetString("feed.database_url"),
		MongoURI:       v.GetString("feed.mongo_uri"),
		MongoDatabase:  v.GetString("feed.mongo_database"),
		MainWiki:       v.GetString("feed.main_wiki"),
		RequestTimeout: v.GetDuration("feed.request_timeout"),
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateNoSecretsInConfig enforces environment-only credentials
// (12-factor principle). Store URLs carrying a password are allowed from
// the environment but not from config files on disk.
func validateNoSecretsInConfig(v *viper.Viper) error {
	for _, key := range []string{"database_password", "feed.database_password", "mongo_password", "feed.mongo_password"} {
		if v.IsSet(key) {
			return fmt.Errorf("store passwords not allowed in config files (embed them in NF_FEED_DATABASE_URL or NF_FEED_MONGO_URI environment variables)")
		}
	}

	for _, key := range []string{"feed.database_url", "feed.mongo_uri"} {
		if !v.InConfig(key) {
			continue
		}
		u, err := url.Parse(v.GetString(key))
		if err != nil {
			continue
		}
		if _, hasPassword := u.User.Password(); hasPassword {
			return fmt.Errorf("%s in config file must not carry a password (set it via the environment instead)", key)
		}
	}

	return nil
}
