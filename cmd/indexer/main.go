package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/sooahkim/childcenter-chat/internal/adapters/database"
	"github.com/sooahkim/childcenter-chat/internal/adapters/search"
	"github.com/sooahkim/childcenter-chat/internal/infrastructure/clients/postgres"
	"github.com/sooahkim/childcenter-chat/internal/infrastructure/clients/typesense"
	"github.com/sooahkim/childcenter-chat/internal/infrastructure/observability"
	"github.com/sooahkim/childcenter-chat/pkg/config"
)

const indexBatchSize = 500

// The indexer mirrors the child_centers table into the Typesense centers
// collection so name lookup in the chat path stays typo tolerant. It can run
// once or on an interval.
func main() {
	var reset bool
	var intervalFlag string
	flag.BoolVar(&reset, "reset", false, "delete the existing collection before reindexing")
	flag.StringVar(&intervalFlag, "interval", "", "repeat interval for reindexing (e.g. 6h, 30m)")
	flag.Parse()

	_ = godotenv.Load()
	observability.InitLogger("childcenter-indexer", os.Getenv("APP_ENV"))

	intervalValue := strings.TrimSpace(intervalFlag)
	if intervalValue == "" {
		intervalValue = strings.TrimSpace(os.Getenv("REINDEX_INTERVAL"))
	}

	var interval time.Duration
	if intervalValue != "" {
		var err error
		interval, err = time.ParseDuration(intervalValue)
		if err != nil || interval <= 0 {
			log.Fatal().Str("interval", intervalValue).Msg("invalid reindex interval")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	for {
		if err := indexOnce(ctx, reset); err != nil {
			log.Error().Err(err).Msg("reindex failed")
		}

		if interval <= 0 {
			break
		}

		reset = false
		log.Info().Dur("interval", interval).Msg("reindex complete, waiting for next run")

		select {
		case <-ctx.Done():
			log.Info().Msg("indexer shutting down")
			return
		case <-time.After(interval):
		}
	}
}

func indexOnce(ctx context.Context, reset bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		return err
	}
	defer pgClient.Close()

	tsClient, err := typesense.NewClient(&cfg.Typesense)
	if err != nil {
		return err
	}

	if reset {
		if _, err := tsClient.Client().Collection(typesense.CentersCollection).Delete(ctx); err != nil {
			log.Warn().Err(err).Msg("failed to delete collection, continuing")
		}
	}

	if err := tsClient.InitSchema(ctx); err != nil {
		return err
	}

	repo := database.NewCenterAdapter(pgClient)
	adapter := search.NewTypesenseAdapter(tsClient)

	indexed := 0
	for offset := 0; ; offset += indexBatchSize {
		centers, err := repo.ListAll(ctx, indexBatchSize, offset)
		if err != nil {
			return err
		}
		if len(centers) == 0 {
			break
		}

		for _, center := range centers {
			if err := adapter.Index(ctx, center); err != nil {
				log.Warn().Err(err).Str("center_id", center.CenterID).Msg("failed to index center")
				continue
			}
			indexed++
		}
	}

	log.Info().Int("indexed", indexed).Msg("reindex finished")
	return nil
}
