// The feedbot daemon renders recent whale activity into channel messages and
// posts them to Telegram.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/azero-feed/internal/config"
	"github.com/azero-feed/internal/feed"
	"github.com/azero-feed/internal/logging"
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
	if err := cfg.ValidateTelegram(); err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}

	log := logging.New(cfg.Logging)
	log.Info("starting feed worker")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	client, err := store.Connect(ctx, cfg.Mongo.URI, cfg.Mongo.Database, "feedbot")
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
	identities := storage.NewIdentityRepository(client, cfg.Mongo.Collections.Identities, retry, log)
	posted := storage.NewPostedRepository(client, cfg.Mongo.Collections.Posted, retry, log)

	ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
	err = posted.EnsureIndexes(ctx)
	cancel()
	if err != nil {
		log.WithError(err).Fatal("failed to ensure indexes")
	}

	poster := feed.NewTelegramPoster(cfg.Telegram.BotToken, cfg.Telegram.ChannelID, log)
	cycle := feed.New(operations, trades, identities, posted, poster, cfg.Feed)

	w := worker.New("feed_poster", cfg.Feed.PollInterval, log, cycle.Run)
	w.Start()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down")
	w.Stop()
}
