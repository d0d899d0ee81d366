package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/stadtwerke-wuelfrath/epilot-provisioner/internal/batch"
	"github.com/stadtwerke-wuelfrath/epilot-provisioner/internal/config"
	"github.com/stadtwerke-wuelfrath/epilot-provisioner/internal/export"
	"github.com/stadtwerke-wuelfrath/epilot-provisioner/internal/importer"
	"github.com/stadtwerke-wuelfrath/epilot-provisioner/internal/logger"
	"github.com/stadtwerke-wuelfrath/epilot-provisioner/internal/seed"
	"github.com/stadtwerke-wuelfrath/epilot-provisioner/internal/storage"
	"github.com/stadtwerke-wuelfrath/epilot-provisioner/pkg/epilot"
	"github.com/stadtwerke-wuelfrath/epilot-provisioner/pkg/httpclient"
	"github.com/stadtwerke-wuelfrath/epilot-provisioner/pkg/publishers"
)

// App is the provisioning runtime shared by all commands. The ledger and the
// publishers are opened on first use and released by Close.
type App struct {
	Config *config.Config
	Log    logger.Logger
	Client *httpclient.RestyClient
	API    *epilot.API
	Runner *batch.Runner

	store  storage.Store
	fanout *publishers.Fanout
}

// New builds the runtime from cfg. It fails fast when the API token is missing.
func New(cfg *config.Config, log logger.Logger) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	log = logger.Ensure(log)

	catalog, err := LoadCatalog(cfg)
	if err != nil {
		return nil, err
	}

	clientCfg := httpclient.Config{
		Token:     cfg.APIToken,
		Timeout:   cfg.APITimeout,
		KeepAlive: cfg.APIKeepAlive,
		UserAgent: cfg.AppName,
		TokenHint: config.TokenHint,
	}
	if logger.S != nil {
		clientCfg.Logger = logger.S
	}
	client, err := httpclient.New(clientCfg)
	if err != nil {
		return nil, err
	}

	api, err := epilot.NewAPI(client, catalog)
	if err != nil {
		return nil, fmt.Errorf("build api: %w", err)
	}

	log.DebugObj("runtime initialized", "runtime_config", map[string]any{
		"tenant":           cfg.Tenant,
		"services":         len(catalog.All()),
		"timeout_seconds":  int(cfg.APITimeout.Seconds()),
		"keep_alive":       cfg.APIKeepAlive,
		"request_delay_ms": cfg.RequestDelay.Milliseconds(),
	})

	return &App{
		Config: cfg,
		Log:    log,
		Client: client,
		API:    api,
		Runner: batch.NewRunner(cfg.RequestDelay, log),
	}, nil
}

// LoadCatalog returns the default service catalog, overlaid with services_file when set.
func LoadCatalog(cfg *config.Config) (*epilot.Catalog, error) {
	if cfg == nil || strings.TrimSpace(cfg.ServicesFile) == "" {
		return epilot.DefaultCatalog(), nil
	}
	catalog, err := epilot.LoadCatalog(cfg.ServicesFile)
	if err != nil {
		return nil, fmt.Errorf("load services file: %w", err)
	}
	return catalog, nil
}

// Ledger opens the provisioning ledger.
func (a *App) Ledger() (storage.Store, error) {
	if a.store != nil {
		return a.store, nil
	}
	opts := storage.Options{RecordTTL: a.Config.LedgerTTL, CleanupInterval: a.Config.LedgerCleanup}
	store, err := storage.NewStore(a.Config.LedgerType, a.Config.LedgerPath, opts)
	if err != nil {
		return nil, fmt.Errorf("init ledger: %w", err)
	}
	a.Log.DebugObj("ledger initialized", "ledger_config", map[string]any{
		"type":        a.Config.LedgerType,
		"path":        a.Config.LedgerPath,
		"ttl_seconds": int(a.Config.LedgerTTL.Seconds()),
	})
	a.store = store
	return store, nil
}

// Publishers builds the event fan-out from publishers_file. Without a file,
// or without enabled publishers, the fan-out is empty.
func (a *App) Publishers(ctx context.Context) (*publishers.Fanout, error) {
	if a.fanout != nil {
		return a.fanout, nil
	}
	path := strings.TrimSpace(a.Config.PublishersFile)
	if path == "" {
		a.fanout = publishers.NewFanout(nil, a.Log)
		return a.fanout, nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		a.Log.WarnObj("publishers file not found, events disabled", "publishers_file", path)
		a.fanout = publishers.NewFanout(nil, a.Log)
		return a.fanout, nil
	}

	reg, err := publishers.LoadRegistry(path)
	if err != nil {
		return nil, fmt.Errorf("load publishers registry: %w", err)
	}
	enabled := reg.Enabled()
	pubs, err := publishers.BuildAll(ctx, publishers.DefaultRegistry(), enabled, a.Log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}

	summaries := make([]map[string]string, 0, len(enabled))
	for _, cfg := range enabled {
		summaries = append(summaries, map[string]string{"id": cfg.ID, "type": cfg.Type})
	}
	a.Log.InfoObj("publishers registry loaded", "publishers_meta", map[string]any{
		"count":      len(summaries),
		"publishers": summaries,
	})
	a.fanout = publishers.NewFanout(pubs, a.Log)
	return a.fanout, nil
}

// Notify publishes a provisioning event. Failures are logged, never returned.
func (a *App) Notify(ctx context.Context, operation, schema string, obj epilot.Object) {
	fanout, err := a.Publishers(ctx)
	if err != nil {
		a.Log.WarnObj("publishers unavailable", "publish_error", err.Error())
		return
	}
	if fanout.Size() == 0 {
		return
	}
	evt := publishers.NewEvent(operation, schema, epilot.ResourceID(obj), epilot.ResourceName(obj), a.Config.Tenant)
	fanout.Notify(ctx, evt)
}

// Exporter builds an exporter over the API.
func (a *App) Exporter() *export.Exporter {
	return export.NewExporter(a.API, a.Log)
}

// Importer builds a customer importer with the ledger and publishers attached.
func (a *App) Importer(ctx context.Context) (*importer.Importer, error) {
	store, fanout, err := a.provisioning(ctx)
	if err != nil {
		return nil, err
	}
	return importer.New(importer.Deps{
		API:      a.API,
		Runner:   a.Runner,
		Store:    store,
		Notifier: fanout,
		Tenant:   a.Config.Tenant,
		Log:      a.Log,
	})
}

// Seeder builds a demo data seeder with the ledger and publishers attached.
func (a *App) Seeder(ctx context.Context) (*seed.Seeder, error) {
	store, fanout, err := a.provisioning(ctx)
	if err != nil {
		return nil, err
	}
	return seed.New(seed.Deps{
		API:      a.API,
		Runner:   a.Runner,
		Store:    store,
		Notifier: fanout,
		Tenant:   a.Config.Tenant,
		Log:      a.Log,
	})
}

func (a *App) provisioning(ctx context.Context) (storage.Store, *publishers.Fanout, error) {
	store, err := a.Ledger()
	if err != nil {
		return nil, nil, err
	}
	fanout, err := a.Publishers(ctx)
	if err != nil {
		return nil, nil, err
	}
	return store, fanout, nil
}

// Close releases the ledger and the publishers.
func (a *App) Close() error {
	if a == nil {
		return nil
	}
	var errs []error
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close ledger: %w", err))
		}
		a.store = nil
	}
	if a.fanout != nil {
		if err := a.fanout.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close publishers: %w", err))
		}
		a.fanout = nil
	}
	return errors.Join(errs...)
}
