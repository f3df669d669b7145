package main

import (
	"context"
	"fmt"

	"github.com/entrhq/shopeeweb/pkg/auth"
	"github.com/entrhq/shopeeweb/pkg/browser"
	appconfig "github.com/entrhq/shopeeweb/pkg/config"
)

// buildStrategy creates the auth strategy selected in opts. The returned
// function releases what the strategy's backend holds open.
func buildStrategy(ctx context.Context, opts appconfig.Options) (auth.Strategy, func(), error) {
	noop := func() {}

	switch opts.Auth.Strategy {
	case "", appconfig.StrategyNone:
		return auth.NewNoAuth(), noop, nil

	case appconfig.StrategyLocal:
		strategy, err := auth.NewLocalAuth(auth.LocalAuthOptions{
			ClientID:            opts.Auth.ClientID,
			DataPath:            opts.Auth.DataPath,
			RequireValidSession: opts.Auth.RequireValidSession,
		})
		if err != nil {
			return nil, noop, err
		}
		return strategy, noop, nil

	case appconfig.StrategyRemote:
		store, err := auth.NewRedisStore(ctx, opts.Auth.RedisURL, auth.RedisStoreOptions{})
		if err != nil {
			return nil, noop, err
		}
		closeStore := func() { store.Close() }

		strategy, err := auth.NewRemoteAuth(auth.RemoteAuthOptions{
			ClientID:            opts.Auth.ClientID,
			Store:               store,
			DataPath:            opts.Auth.DataPath,
			BackupInterval:      opts.Auth.BackupInterval,
			RequireValidSession: opts.Auth.RequireValidSession,
		})
		if err != nil {
			closeStore()
			return nil, noop, err
		}
		return strategy, closeStore, nil

	default:
		return nil, noop, fmt.Errorf("unknown auth strategy %q", opts.Auth.Strategy)
	}
}

func newLauncher(skipInstall bool) *browser.PlaywrightLauncher {
	launcher := browser.NewPlaywrightLauncher()
	launcher.SkipInstall = skipInstall
	return launcher
}
