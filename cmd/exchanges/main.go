// The exchanges daemon polls public trade history on every supported
// exchange and imports normalized trades into the document store.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/azero-feed/internal/config"
	"github.com/azero-feed/internal/exchange"
	"github.com/azero-feed/internal/logging"
	"github.com/azero-feed/internal/models"
	"github.com/azero-feed/internal/storage"
	"github.com/azero-feed/internal/store"
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

	log := logging.New(cfg.Logging)
	log.Info("starting exchanges worker")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	client, err := store.Connect(ctx, cfg.Mongo.URI, cfg.Mongo.Database, "exchanges")
	cancel()
	if err != nil {
		log.WithError(err).Fatal("failed to connect to document store")
	}
	defer func() {
		if err := client.Close(context.Background()); err != nil {
			log.WithError(err).Warn("closing document store failed")
		}
	}()

	trades := storage.NewTradeRepository(client, cfg.Mongo.Collections.Trades, store.DefaultRetryPolicy(), log)

	ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
	err = trades.EnsureIndexes(ctx)
	cancel()
	if err != nil {
		log.WithError(err).Fatal("failed to ensure indexes")
	}

	parsers := exchange.All(log)

	w := worker.New("exchanges_ingester", cfg.Exchange.PollInterval, log, func(ctx context.Context, log *logrus.Entry) error {
		return runCycle(ctx, log, parsers, trades)
	})
	w.Start()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down")
	w.Stop()
}

func runCycle(ctx context.Context, log *logrus.Entry, parsers []exchange.Parser, trades *storage.TradeRepository) error {
	fns := make([]func(context.Context) ([]models.Trade, error), 0, len(parsers))
	for _, p := range parsers {
		for _, pair := range p.Pairs() {
			p, pair := p, pair
			fns = append(fns, func(ctx context.Context) ([]models.Trade, error) {
				batch, ok := p.Parse(ctx, pair)
				if !ok {
					return nil, fmt.Errorf("%s returned a malformed batch", p.Exchange())
				}
				return batch, nil
			})
		}
	}

	imported := 0
	for _, batch := range worker.Gather(ctx, log, fns) {
		if err := trades.Import(ctx, batch); err != nil {
			return err
		}
		imported += len(batch)
	}

	log.WithField("trades", imported).Debug("exchange cycle finished")
	return nil
}
