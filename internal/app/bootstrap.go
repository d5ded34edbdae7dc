// Package app assembles the analysis service and its optional backends from
// a Config. Both binaries go through Bootstrap.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spacesedan/tweetsense/config"
	"github.com/spacesedan/tweetsense/internal/analysis"
	"github.com/spacesedan/tweetsense/internal/clients"
	"github.com/spacesedan/tweetsense/internal/clients/kafka_client"
	"github.com/spacesedan/tweetsense/internal/db"
	"github.com/spacesedan/tweetsense/internal/feed"
	"github.com/spacesedan/tweetsense/internal/monitoring"
	"github.com/spacesedan/tweetsense/internal/sentiment"
)

type App struct {
	Service *analysis.Service
	Health  *monitoring.Registry
	Valkey  *clients.ValkeyClient

	cleanup []func()
}

// Close releases backends in reverse order of construction.
func (a *App) Close() {
	for i := len(a.cleanup) - 1; i >= 0; i-- {
		a.cleanup[i]()
	}
	a.cleanup = nil
}

// NewClassifier picks the engine named in cfg.Engine.
func NewClassifier(cfg config.Config) (sentiment.Classifier, error) {
	switch cfg.Engine {
	case config.EngineVader:
		slog.Info("[App] Using the lexicon sentiment engine")
		return sentiment.NewVaderClassifier(), nil
	case config.EngineModel:
		c, err := sentiment.LoadModelClassifier(cfg.ModelPath, cfg.VectorizerPath, cfg.StopwordsPath)
		if err != nil {
			return nil, fmt.Errorf("[App] Failed to load model artifacts: %w", err)
		}
		return c, nil
	default:
		return nil, fmt.Errorf("[App] Unknown sentiment engine %q", cfg.Engine)
	}
}

// Bootstrap loads the classifier and connects every backend cfg names. A
// missing bearer token disables the feed rather than failing. withBackends
// is false for one-shot CLI runs, which never record.
func Bootstrap(ctx context.Context, cfg config.Config, withBackends bool) (*App, error) {
	classifier, err := NewClassifier(cfg)
	if err != nil {
		return nil, err
	}

	a := &App{Health: monitoring.NewRegistry()}
	var opts []analysis.Option

	if cfg.FeedEnabled() {
		tc, err := clients.NewTwitterClient(clients.TwitterClientOptions{
			BaseURL:         cfg.TwitterAPIURL,
			BearerToken:     cfg.TwitterBearerToken,
			Timeout:         cfg.TwitterTimeout,
			WaitOnRateLimit: cfg.WaitOnRateLimit,
		})
		if err != nil {
			return nil, err
		}
		opts = append(opts, analysis.WithFetcher(feed.NewFetcher(tc, cfg.MaxPostsPerRequest)))
	} else {
		slog.Warn("[App] TWITTER_BEARER_TOKEN not set, fetching from Twitter is disabled")
	}

	if withBackends {
		backendOpts, err := a.connectBackends(ctx, cfg)
		if err != nil {
			a.Close()
			return nil, err
		}
		opts = append(opts, backendOpts...)
	}

	a.Service = analysis.NewService(classifier, opts...)
	return a, nil
}

func (a *App) connectBackends(ctx context.Context, cfg config.Config) ([]analysis.Option, error) {
	var opts []analysis.Option

	if cfg.ValkeyAddress != "" {
		vc, err := clients.NewValkeyClient(clients.ValkeyOptions{
			Address:     cfg.ValkeyAddress,
			Password:    cfg.ValkeyPassword,
			UseTLS:      cfg.ValkeyTLS,
			HistorySize: cfg.HistorySize,
		})
		if err != nil {
			return nil, err
		}
		a.Valkey = vc
		a.cleanup = append(a.cleanup, vc.Close)
		opts = append(opts, analysis.WithRecorder(vc), analysis.WithHistory(vc))
	}

	if cfg.KafkaBroker != "" {
		pub, err := kafka_client.NewPublisher(kafka_client.KafkaConfig{
			Broker: cfg.KafkaBroker,
			Topic:  cfg.KafkaTopic,
		})
		if err != nil {
			return nil, err
		}
		a.cleanup = append(a.cleanup, pub.Close)
		opts = append(opts, analysis.WithRecorder(pub))
	}

	if cfg.DynamoDBTable != "" {
		client, err := clients.NewDynamoDBClient(ctx, clients.AWSOptions{
			Region:   cfg.AWSRegion,
			Endpoint: cfg.AWSEndpoint,
		})
		if err != nil {
			return nil, err
		}
		archive := db.NewArchive(client, cfg.DynamoDBTable)
		archive.Start(ctx)
		a.cleanup = append(a.cleanup, archive.Close)
		opts = append(opts, analysis.WithRecorder(archive))
	}

	return opts, nil
}

// StartHealthChecks probes each connected backend until ctx is done.
func (a *App) StartHealthChecks(ctx context.Context) {
	if a.Valkey != nil {
		go a.Health.Monitor(ctx, "valkey", monitoring.HEALTHCHECK_TIMER, a.Valkey.Ping)
	}
}
