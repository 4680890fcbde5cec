package cli

import (
	"bufio"
	"context"
	"os"

	"github.com/akozadaev/inkpad/internal/client/config"
	"github.com/akozadaev/inkpad/internal/client/connectivity"
	"github.com/akozadaev/inkpad/internal/client/db"
	"github.com/akozadaev/inkpad/internal/client/models"
	"github.com/akozadaev/inkpad/internal/client/remote"
	"github.com/akozadaev/inkpad/internal/client/services"
	"github.com/akozadaev/inkpad/internal/client/sync"
	"github.com/akozadaev/inkpad/internal/logging"

	_ "modernc.org/sqlite"
)

// App wires the local store, the remote adapter, the connectivity monitor,
// the sync engine and the note service into one interactive client.
type App struct {
	config  *config.Config
	repos   *db.Repositories
	store   remote.Store
	monitor *connectivity.Monitor
	engine  *sync.Engine
	notes   services.NoteService
	log     logging.Logger
	reader  *bufio.Reader
}

func NewApp(ctx context.Context, cfg *config.Config, log logging.Logger) (*App, error) {
	repos, err := db.Open(ctx, cfg.DatabaseDSN)
	if err != nil {
		log.Error(ctx, "initializing database", "error", err)
		return nil, err
	}

	// Session tokens come from the environment; the backend may not
	// require them at all.
	store := remote.NewHTTPStore(remote.HTTPStoreOpts{
		BaseURL:      cfg.ServerEndpointURL,
		WSURL:        cfg.WSEndpointURL,
		CallTimeout:  cfg.RemoteCallTimeout,
		AccessToken:  os.Getenv("INKPAD_ACCESS_TOKEN"),
		RefreshToken: os.Getenv("INKPAD_REFRESH_TOKEN"),
	}, log)

	monitor := connectivity.NewMonitor(store, cfg.OnlineCheckInterval, log)
	sup := sync.NewSuppressor(cfg.SuppressDelay)
	engine := sync.NewEngine(repos.Notes, repos.Pending, repos.Metadata, store, sup, log)
	notes := services.NewNoteService(cfg.OwnerID, repos.Notes, repos.Pending, store, engine, monitor, log)

	return &App{
		config:  cfg,
		repos:   repos,
		store:   store,
		monitor: monitor,
		engine:  engine,
		notes:   notes,
		log:     log,
		reader:  bufio.NewReader(os.Stdin),
	}, nil
}

// Run starts the connectivity watcher, the remote change feed and the REPL.
// It returns when the user exits or ctx is cancelled.
func (a *App) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer a.Close()

	go a.monitor.Run(ctx)

	// Every offline->online transition triggers a sync so the queue drains
	// as soon as the backend is reachable again.
	a.monitor.Subscribe(func(online bool) {
		if !online {
			return
		}
		go func() {
			if err := a.engine.SyncNow(ctx, a.config.OwnerID); err != nil {
				a.log.Error(ctx, "sync after reconnect", "error", err)
			}
		}()
	})

	if a.config.WSEndpointURL != "" {
		unsubscribe, err := a.store.Subscribe(ctx, a.config.OwnerID, func(ownerID string, snapshot []*models.Note) {
			a.engine.OnRemoteChange(ctx, ownerID, snapshot)
		})
		if err != nil {
			a.log.Warn(ctx, "change feed unavailable", "error", err)
		} else {
			defer unsubscribe()
		}
	}

	printlnFn("Inkpad CLI (type 'help' for commands)")
	runREPL(ctx, a, a.getStatus, bufio.NewScanner(os.Stdin))
}

func (a *App) Close() {
	if a.store != nil {
		_ = a.store.Close()
	}
	if a.repos != nil && a.repos.DB != nil {
		_ = a.repos.DB.Close()
	}
}

func (a *App) getStatus() string {
	mode := "offline"
	if a.monitor.Online() {
		mode = "online"
	}
	if a.config.OwnerID != "" {
		return a.config.OwnerID + " " + mode
	}
	return mode
}
