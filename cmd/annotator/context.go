package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/heimdex/heimdex-annotator/internal/catalog"
	"github.com/heimdex/heimdex-annotator/internal/config"
	"github.com/heimdex/heimdex-annotator/internal/db"
	"github.com/heimdex/heimdex-annotator/internal/identity"
	"github.com/heimdex/heimdex-annotator/internal/logging"
	"github.com/heimdex/heimdex-annotator/internal/reconcile"
	"github.com/heimdex/heimdex-annotator/internal/store"
)

type commandContext struct {
	configFlag *string
	jsonFlag   *bool

	configOnce sync.Once
	config     *config.EnvConfig
	configErr  error
}

func newCommandContext(configFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		jsonFlag:   jsonFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.EnvConfig, error) {
	c.configOnce.Do(func() {
		path := os.Getenv(config.EnvConfigFile)
		if c.configFlag != nil && strings.TrimSpace(*c.configFlag) != "" {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, err := config.Load(path)
		if err != nil {
			c.configErr = fmt.Errorf("failed to load config: %w", err)
			return
		}
		if err := os.MkdirAll(cfg.DataDir(), 0o755); err != nil {
			c.configErr = fmt.Errorf("failed to create data dir: %w", err)
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) jsonOutput() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

// app is the wired object graph shared by every command.
type app struct {
	cfg        *config.EnvConfig
	logger     *slog.Logger
	db         *db.DB
	store      *store.FileStore
	reconciler *reconcile.Reconciler
	service    *catalog.Service
}

func (c *commandContext) openApp() (*app, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}

	logger := logging.NewLogger(cfg.LogLevel(), cfg.LogFormat())

	database, err := db.New(cfg.JournalPath(), logging.WithComponent(logger, "db"))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize journal database: %w", err)
	}

	fs, err := store.New(cfg.StorePath(), logging.WithComponent(logger, "store"))
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to open annotation store: %w", err)
	}

	reconciler := reconcile.New(identity.Normalizer{Base: cfg.BaseDir()}, reconcile.DirLister{},
		logging.WithComponent(logger, "reconcile"))

	svc := catalog.NewService(catalog.Options{
		Store:      fs,
		Reconciler: reconciler,
		Repo:       catalog.NewRepository(database.Conn()),
		VideosDir:  cfg.VideosDir(),
		PerPage:    cfg.PerPage(),
		Logger:     logging.WithComponent(logger, "catalog"),
	})

	return &app{
		cfg:        cfg,
		logger:     logger,
		db:         database,
		store:      fs,
		reconciler: reconciler,
		service:    svc,
	}, nil
}

func (a *app) Close() error {
	return a.db.Close()
}

// withApp opens the app for the duration of fn.
func (c *commandContext) withApp(fn func(*app) error) error {
	a, err := c.openApp()
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}
