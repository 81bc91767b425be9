package cmd

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/spf13/cobra"

	"github.com/soliform/notifeed/internal/core/config"
	"github.com/soliform/notifeed/internal/types"
)

var seedCount int

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert sample events for local development",
	RunE:  runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
	seedCmd.Flags().IntVar(&seedCount, "count", 50, "number of events to insert")
}

// eventWriter is implemented by both store backends.
type eventWriter interface {
	Insert(ctx context.Context, e types.Event) error
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if dbURL != "" {
		cfg.Backend = config.BackendSQL
		cfg.DatabaseURL = dbURL
	}

	eventStore, cleanup, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	writer, ok := eventStore.(eventWriter)
	if !ok {
		return fmt.Errorf("backend %s does not support seeding", cfg.Backend)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout)
	defer cancel()

	eventTypes := []string{"update", "create", "comment", "attachment"}
	documents := []string{"Sandbox.Home", "Main.Welcome", "Dev.Roadmap", "HR.Handbook"}
	users := []string{"alice", "bob", "carol"}

	now := time.Now().UTC()
	for i := 0; i < seedCount; i++ {
		eventType := eventTypes[rand.Intn(len(eventTypes))]
		document := documents[rand.Intn(len(documents))]
		e := types.Event{
			ID:       types.NewEventID(),
			Type:     eventType,
			Document: document,
			Date:     now.Add(-time.Duration(rand.Intn(72)) * time.Hour),
			GroupID:  fmt.Sprintf("g-%d", rand.Intn(seedCount/4+1)),
			Wiki:     cfg.MainWiki,
			User:     users[rand.Intn(len(users))],
		}
		if err := writer.Insert(ctx, e); err != nil {
			return err
		}
	}

	fmt.Printf("inserted %d events\n", seedCount)
	return nil
}
