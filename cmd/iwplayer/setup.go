package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/iwplayer/shell/pkg/assets"
	"github.com/iwplayer/shell/pkg/config"
	"github.com/iwplayer/shell/pkg/engine"
	"github.com/iwplayer/shell/pkg/launcher"

	"github.com/go-redis/redis/v9"
	"github.com/rs/zerolog/log"
)

const SQLITE_FILE = "assets.db"

func openStore(settings config.StoreSettings) (assets.Store, func() error, error) {
	noop := func() error { return nil }

	switch settings.Type {
	case config.StoreTypeFS:
		err := os.MkdirAll(settings.Path, 0755)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to make store dir %s: %w", settings.Path, err)
		}
		return assets.FSStore(settings.Path), noop, nil
	case config.StoreTypeRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     settings.Redis.Address,
			Password: settings.Redis.Password,
			DB:       settings.Redis.DB,
		})
		return assets.NewRedisStore(client), client.Close, nil
	case config.StoreTypeSQLite:
		err := os.MkdirAll(settings.Path, 0755)
		if err != nil {
			return nil, nil, err
		}

		db, err := assets.InitDB(filepath.Join(settings.Path, SQLITE_FILE))
		if err != nil {
			return nil, nil, err
		}

		sqlDB, err := db.DB()
		if err != nil {
			return nil, nil, err
		}
		return assets.NewSQLStore(db), sqlDB.Close, nil
	case config.StoreTypeLevelDB:
		store, err := assets.NewLevelStore(settings.Path)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	case config.StoreTypeMemory:
		log.Warn().Msg("uploaded files will not survive a restart with the memory store")
		return assets.NewMemoryStore(), noop, nil
	}

	return nil, nil, fmt.Errorf("unknown store type %s", settings.Type)
}

func sharewareSource(settings config.SharewareSettings) engine.Source {
	if settings.URL != "" {
		return engine.RemoteSource(settings.URL)
	}
	return assets.FSStore(settings.Directory)
}

func engineConfig(settings config.EngineSettings) engine.Config {
	return engine.Config{
		Canvas:     settings.Canvas,
		Fullscreen: settings.Fullscreen,
	}
}

// Shell is everything a command needs, with the upload state already
// restored from the store.
type Shell struct {
	Config   config.Config
	Manager  *assets.Manager
	Launcher *launcher.Launcher
	close    func() error
}

func (s *Shell) Close() {
	s.Manager.Close()
	err := s.close()
	if err != nil {
		log.Warn().Err(err).Msg("failed to close asset store")
	}
}

func setup(ctx context.Context, configs []string, game engine.Engine) (*Shell, error) {
	settings, err := config.Process(configs)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	store, closeStore, err := openStore(settings.Store)
	if err != nil {
		return nil, err
	}

	options := make([]assets.ManagerOption, 0)
	if settings.Restore.DropMixedTiers {
		options = append(options, assets.WithDropMixedTiers())
	}

	manager := assets.NewManager(store, engine.Factory{}, options...)
	manager.Restore(ctx)

	return &Shell{
		Config:  *settings,
		Manager: manager,
		Launcher: launcher.New(
			manager,
			game,
			sharewareSource(settings.Shareware),
			engineConfig(settings.Engine),
		),
		close: closeStore,
	}, nil
}
