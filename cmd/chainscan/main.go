// The chainscan daemon ingests staking operations and large transfers from
// the block explorer, enriches them and imports them into the document store.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/azero-feed/internal/config"
	"github.com/azero-feed/internal/keypool"
	"github.com/azero-feed/internal/logging"
	"github.com/azero-feed/internal/models"
	"github.com/azero-feed/internal/pipeline"
	"github.com/azero-feed/internal/storage"
	"github.com/azero-feed/internal/store"
	"github.com/azero-feed/internal/subscan"
	"github.com/azero-feed/internal/types"
	"github.com/azero-feed/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("failed to load configuration")
	}
	if err := cfg.ValidateMongo(); err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}
	if err := cfg.ValidateSubscan(); err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}

	log := logging.New(cfg.Logging)
	log.Info("starting chainscan worker")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	client, err := store.Connect(ctx, cfg.Mongo.URI, cfg.Mongo.Database, "chainscan")
	cancel()
	if err != nil {
		log.WithError(err).Fatal("failed to connect to document store")
	}
	defer func() {
		if err := client.Close(context.Background()); err != nil {
			log.WithError(err).Warn("closing document store failed")
		}
	}()

	retry := store.DefaultRetryPolicy()
	trades := storage.NewTradeRepository(client, cfg.Mongo.Collections.Trades, retry, log)
	operations := storage.NewOperationRepository(client, cfg.Mongo.Collections.Operations, retry, log)
	validators := storage.NewValidatorRepository(client, cfg.Mongo.Collections.Validators, retry, log)
	identities := storage.NewIdentityRepository(client, cfg.Mongo.Collections.Identities, retry, log)

	ctx, cancel = context.WithTimeout(context.Background(), 30*time.Second)
	err = ensureIndexes(ctx, operations, validators, identities)
	cancel()
	if err != nil {
		log.WithError(err).Fatal("failed to ensure indexes")
	}

	pool, err := keypool.New(cfg.Subscan.APIKeys, keypool.Strategy(cfg.Subscan.KeyStrategy))
	if err != nil {
		log.WithError(err).Fatal("failed to build API key pool")
	}
	chain := subscan.New(types.Network(cfg.Subscan.Network), pool, log)

	var cache pipeline.PriceCache
	if cfg.Redis.Enabled() {
		pc, err := storage.NewPriceCache(cfg.Redis)
		if err != nil {
			log.WithError(err).Fatal("failed to connect to price cache")
		}
		defer pc.Close()
		cache = pc
	}
	prices := pipeline.NewCachedPrices(trades, cache)

	staking := pipeline.NewStaking(chain, operations, validators, identities, prices, cfg.Subscan)
	transfers := pipeline.NewTransfers(chain, identities, prices, cfg.Subscan)

	stakingWorker := worker.New("staking_ingester", cfg.Subscan.PollInterval, log, importCycle(staking.Run, operations))
	transferWorker := worker.New("transfer_ingester", cfg.Subscan.PollInterval, log, importCycle(transfers.Run, operations))
	stakingWorker.Start()
	transferWorker.Start()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down")
	stakingWorker.Stop()
	transferWorker.Stop()
}

type indexed interface {
	EnsureIndexes(ctx context.Context) error
}

func ensureIndexes(ctx context.Context, repos ...indexed) error {
	for _, r := range repos {
		if err := r.EnsureIndexes(ctx); err != nil {
			return err
		}
	}
	return nil
}

// importCycle runs one pipeline and imports whatever it produced.
func importCycle(run func(ctx context.Context, log *logrus.Entry) ([]models.Operation, error), operations *storage.OperationRepository) worker.CycleFunc {
	return func(ctx context.Context, log *logrus.Entry) error {
		ops, err := run(ctx, log)
		if err != nil {
			return err
		}
		if err := operations.Import(ctx, ops); err != nil {
			return err
		}
		log.WithField("operations", len(ops)).Debug("ingest cycle finished")
		return nil
	}
}
