package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/soliform/notifeed/internal/core/config"
	"github.com/soliform/notifeed/internal/core/db"
	"github.com/soliform/notifeed/internal/feed"
	"github.com/soliform/notifeed/internal/store"
	sqlstore "github.com/soliform/notifeed/internal/store/sql"
	"github.com/soliform/notifeed/internal/types"
)

const Version = "0.1.0"

var (
	feedUser   string
	feedTypes  []string
	feedUnread bool
	feedLimit  int
)

var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "Print a user's notification feed",
	RunE:  runFeed,
}

var countCmd = &cobra.Command{
	Use:   "count",
	Short: "Print a user's raw notification count",
	RunE:  runCount,
}

func init() {
	rootCmd.AddCommand(feedCmd)
	rootCmd.AddCommand(countCmd)

	for _, c := range []*cobra.Command{feedCmd, countCmd} {
		c.Flags().StringVar(&feedUser, "user", "", "user id (required)")
		c.Flags().StringSliceVar(&feedTypes, "types", nil, "event types the user subscribes to (required)")
		c.Flags().BoolVar(&feedUnread, "unread-only", false, "exclude events the user already read")
		c.MarkFlagRequired("user")
		c.MarkFlagRequired("types")
	}
	feedCmd.Flags().IntVar(&feedLimit, "limit", 20, "maximum number of grouped notifications")
	countCmd.Flags().IntVar(&feedLimit, "limit", types.MaxCountedEvents, "count cap")
}

func runFeed(cmd *cobra.Command, args []string) error {
	manager, cleanup, cfg, err := buildManager()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout)
	defer cancel()

	composites, err := manager.GetEvents(ctx, feedUser, feedUnread, feedLimit)
	if err != nil {
		return err
	}

	for _, composite := range composites {
		fmt.Printf("%s  %s  %s (%d events)\n",
			composite.LatestDate.Format(time.RFC3339),
			composite.Type,
			composite.Document,
			len(composite.Events))
	}
	return nil
}

func runCount(cmd *cobra.Command, args []string) error {
	manager, cleanup, cfg, err := buildManager()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout)
	defer cancel()

	count, err := manager.GetEventsCount(ctx, feedUser, feedUnread, feedLimit)
	if err != nil {
		return err
	}
	fmt.Println(count)
	return nil
}

// buildManager assembles the feed engine with statically-configured
// user preferences derived from the command flags.
func buildManager() (*feed.Manager, func(), *config.FeedConfig, error) {
	log, err := newLogger()
	if err != nil {
		return nil, nil, nil, err
	}

	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if dbURL != "" {
		cfg.Backend = config.BackendSQL
		cfg.DatabaseURL = dbURL
	}

	eventStore, cleanup, err := openStore(cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	preferences := make([]types.Preference, 0, len(feedTypes))
	for _, eventType := range feedTypes {
		preferences = append(preferences, types.Preference{
			EventType: strings.TrimSpace(eventType),
			Enabled:   true,
			Format:    types.FormatAlert,
		})
	}

	static := &feed.Static{
		Users: map[string]feed.User{
			feedUser: {ID: feedUser, Wiki: cfg.MainWiki},
		},
		UserPreferences:   map[string][]types.Preference{feedUser: preferences},
		RegisteredFilters: []feed.Filter{feed.OwnEventsFilter()},
	}

	manager, err := feed.NewManager(feed.ManagerConfig{
		Store:       eventStore,
		Users:       static,
		Preferences: static,
		Filters:     static,
		Descriptors: static,
		MainWiki:    cfg.MainWiki,
		Log:         log,
	})
	if err != nil {
		cleanup()
		return nil, nil, nil, err
	}
	return manager, cleanup, cfg, nil
}

// openStore opens the configured event store backend. SQL databases are
// migrated on open.
func openStore(cfg *config.FeedConfig) (store.EventStore, func(), error) {
	switch cfg.Backend {
	case config.BackendSQL:
		conn, err := db.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open database: %w", err)
		}
		if err := db.MigrateUp(conn); err != nil {
			conn.Close()
			return nil, nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		s, err := sqlstore.New(conn)
		if err != nil {
			conn.Close()
			return nil, nil, err
		}
		return s, func() { conn.Close() }, nil

	case config.BackendMongo:
		return openMongoStore(cfg)

	default:
		return nil, nil, fmt.Errorf("unsupported backend: %s", cfg.Backend)
	}
}
