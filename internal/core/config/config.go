// Package config provides configuration management for the notification
// feed service.
package config

import (
	"fmt"
	"net/url"
	"time"
)

// Backend names a supported event store implementation.
const (
	BackendSQL   = "sql"
	BackendMongo = "mongo"
)

// FeedConfig holds configuration for the notification feed service.
type FeedConfig struct {
	Backend        string
	DatabaseURL    string
	MongoURI       string
	MongoDatabase  string
	MainWiki       string
	RequestTimeout time.Duration
}

// DefaultFeedConfig returns configuration with default values.
func DefaultFeedConfig() *FeedConfig {
	return &FeedConfig{
		Backend:        BackendSQL,
		DatabaseURL:    "sqlite://notifeed.db",
		MongoDatabase:  "notifeed",
		MainWiki:       "main",
		RequestTimeout: 30 * time.Second,
	}
}

// validateConfig checks backend selection, store addressing and timeout.
func validateConfig(cfg *FeedConfig) error {
	switch cfg.Backend {
	case BackendSQL:
		if cfg.DatabaseURL == "" {
			return fmt.Errorf("database_url is required for the sql backend")
		}
		if _, err := url.Parse(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("invalid database_url: %w", err)
		}
	case BackendMongo:
		if cfg.MongoURI == "" {
			return fmt.Errorf("mongo_uri is required for the mongo backend")
		}
		if cfg.MongoDatabase == "" {
			return fmt.Errorf("mongo_database is required for the mongo backend")
		}
	default:
		return fmt.Errorf("backend must be %q or %q, got %q", BackendSQL, BackendMongo, cfg.Backend)
	}

	if cfg.MainWiki == "" {
		return fmt.Errorf("main_wiki must not be empty")
	}
	if cfg.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %v", cfg.RequestTimeout)
	}
	return nil
}
