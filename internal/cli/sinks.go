package cli

import (
	"context"
	"errors"

	"github.com/telhawk-systems/lognorm/internal/history"
	"github.com/telhawk-systems/lognorm/internal/indexer"
	"github.com/telhawk-systems/lognorm/internal/pipeline"
	"github.com/telhawk-systems/lognorm/internal/publisher"
)

func (a *app) natsConfig() publisher.Config {
	cfg := publisher.DefaultConfig()
	cfg.URL = a.cfg.NATS.URL
	cfg.Name = a.cfg.NATS.Name
	if a.cfg.NATS.Timeout > 0 {
		cfg.Timeout = a.cfg.NATS.Timeout
	}
	cfg.Username = a.cfg.NATS.Username
	cfg.Password = a.cfg.NATS.Password
	cfg.Token = a.cfg.NATS.Token
	return cfg
}

func (a *app) openSearchConfig() indexer.Config {
	cfg := indexer.DefaultConfig()
	cfg.URL = a.cfg.OpenSearch.URL
	cfg.Username = a.cfg.OpenSearch.Username
	cfg.Password = a.cfg.OpenSearch.Password
	cfg.TLSSkipVerify = a.cfg.OpenSearch.TLSSkipVerify
	cfg.IndexPrefix = a.cfg.OpenSearch.IndexPrefix
	return cfg
}

// openSinks connects the sinks enabled by flag or configuration. The returned
// close function is always safe to call.
func (a *app) openSinks(publish, index bool) ([]pipeline.Sink, func() error, error) {
	var (
		sinks   []pipeline.Sink
		closers []func() error
	)
	closeAll := func() error {
		var errs []error
		for _, c := range closers {
			errs = append(errs, c())
		}
		return errors.Join(errs...)
	}

	if publish || a.cfg.NATS.Enabled {
		client, err := publisher.NewClient(a.natsConfig(), a.logger)
		if err != nil {
			return nil, closeAll, err
		}
		pub := publisher.NewRecordPublisher(client, a.cfg.NATS.SubjectPrefix, a.logger)
		sinks = append(sinks, pub)
		closers = append(closers, pub.Close)
	}

	if index || a.cfg.OpenSearch.Enabled {
		client, err := indexer.NewClient(a.openSearchConfig(), a.logger)
		if err != nil {
			_ = closeAll()
			return nil, func() error { return nil }, err
		}
		sinks = append(sinks, client)
	}

	return sinks, closeAll, nil
}

// openHistory loads the scan history from the configured backend.
func (a *app) openHistory(ctx context.Context) (*history.History, func() error, error) {
	capacity := a.cfg.History.Capacity
	noop := func() error { return nil }

	var (
		store   history.Store
		closeFn = noop
	)
	switch a.cfg.History.Backend {
	case "redis":
		rs, err := history.NewRedisStore(ctx, a.cfg.Redis.URL, a.cfg.Redis.KeyPrefix, capacity)
		if err != nil {
			return nil, noop, err
		}
		store, closeFn = rs, rs.Close
	default:
		store = history.NewFileStore(a.cfg.HistoryPath(), capacity)
	}

	h, err := history.Open(ctx, store, capacity, a.logger)
	if err != nil {
		_ = closeFn()
		return nil, noop, err
	}
	return h, closeFn, nil
}
