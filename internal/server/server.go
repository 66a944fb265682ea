package server

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/larder/internal/backup"
	"github.com/dukerupert/larder/internal/config"
	"github.com/dukerupert/larder/internal/email"
	"github.com/dukerupert/larder/internal/handler"
	"github.com/dukerupert/larder/internal/middleware"
	"github.com/dukerupert/larder/internal/notify"
	"github.com/dukerupert/larder/internal/openfoodfacts"
	"github.com/dukerupert/larder/internal/push"
	"github.com/dukerupert/larder/internal/shopping"
	"github.com/dukerupert/larder/internal/store"
	ws "github.com/dukerupert/larder/internal/websocket"
)

type Server struct {
	db          *sql.DB
	cfg         *config.Config
	hub         *ws.Hub
	productH    *handler.ProductHandler
	shoppingH   *handler.ShoppingHandler
	lookupH     *handler.LookupHandler
	prefsH      *handler.PreferencesHandler
	pushH       *handler.PushHandler
	sweepH      *handler.SweepHandler
	backupH     *handler.BackupHandler
	rateLimiter *middleware.RateLimiter
	scheduler   *push.Scheduler
	backups     *backup.Manager
	logger      *slog.Logger

	cancel context.CancelFunc
}

// Options overrides collaborators, mostly for tests.
type Options struct {
	Now        handler.Clock
	Lookup     *openfoodfacts.Client
	PushClient *http.Client
}

func New(db *sql.DB, cfg *config.Config, logger *slog.Logger, opts Options) *Server {
	if opts.Now == nil {
		opts.Now = handler.SystemClock(cfg.Location)
	}
	if opts.Lookup == nil {
		opts.Lookup = openfoodfacts.NewClient(cfg.OpenFoodFacts)
	}

	hub := ws.NewHub(logger.With("component", "websocket"))

	productStore := store.NewProductStore(db)
	shoppingStore := store.NewShoppingStore(db)
	settingsStore := store.NewSettingsStore(db)
	pushStore := store.NewPushStore(db)
	backupStore := store.NewBackupStore(db)

	shoppingSvc := shopping.NewService(shoppingStore, productStore, logger.With("component", "shopping"))

	pushOpts := []push.Option{push.WithSubscriber(cfg.Push.Subscriber)}
	if opts.PushClient != nil {
		pushOpts = append(pushOpts, push.WithHTTPClient(opts.PushClient))
	}
	pushSvc := push.NewService(cfg.Push.VAPIDPublicKey, cfg.Push.VAPIDPrivateKey, pushStore,
		logger.With("component", "push"), pushOpts...)

	notifier := notify.NewFanout(logger.With("component", "notify"), hub)
	if pushSvc.Configured() {
		notifier.Add(pushSvc)
	}
	emailClient := email.NewClient(cfg.Email.PostmarkToken, cfg.Email.From, cfg.Email.To, cfg.BaseURL)
	if emailClient.Configured() {
		notifier.Add(emailClient)
	}

	scheduler := push.NewScheduler(productStore, settingsStore, notifier, logger.With("component", "sweep"), push.Options{
		Concurrency: cfg.Sweep.Concurrency,
		Location:    cfg.Location,
		Now:         opts.Now,
	})
	scheduler.SetStatusCallback(func(s push.Status) {
		extra := map[string]any{"state": s.State, "error": s.LastError}
		if s.LastReport != nil {
			extra["notified"] = s.LastReport.Notified
			extra["failed"] = s.LastReport.Failed
			extra["degraded"] = s.LastReport.Degraded
		}
		hub.Broadcast(ws.Message{
			Type:   "sweep_status",
			Entity: ws.EntitySweep,
			Action: string(s.State),
			Extra:  extra,
		})
	})

	backupMgr := backup.NewManager(backup.Config{
		S3: backup.S3Config{
			Endpoint:  cfg.Backup.S3Endpoint,
			Bucket:    cfg.Backup.S3Bucket,
			Region:    cfg.Backup.S3Region,
			AccessKey: cfg.Backup.S3AccessKey,
			SecretKey: cfg.Backup.S3SecretKey,
		},
		Passphrase:    cfg.Backup.Passphrase,
		Prefix:        cfg.Backup.Prefix,
		Hour:          cfg.Backup.Hour,
		RetentionDays: cfg.Backup.RetentionDays,
	}, db, backupStore, logger.With("component", "backup"))
	backupMgr.SetStatusCallback(func(s backup.Status) {
		hub.Broadcast(ws.Message{
			Type:   "backup_status",
			Entity: ws.EntityBackup,
			Action: string(s.State),
			Extra: map[string]any{
				"in_progress": s.InProgress,
				"error":       s.Error,
			},
		})
	})

	return &Server{
		db:          db,
		cfg:         cfg,
		hub:         hub,
		productH:    handler.NewProductHandler(productStore, shoppingSvc, opts.Now, hub, logger.With("component", "product")),
		shoppingH:   handler.NewShoppingHandler(shoppingSvc, hub, logger.With("component", "shopping")),
		lookupH:     handler.NewLookupHandler(opts.Lookup, logger.With("component", "lookup")),
		prefsH:      handler.NewPreferencesHandler(settingsStore, logger.With("component", "preferences")),
		pushH:       handler.NewPushHandler(pushStore, pushSvc, logger.With("component", "push_handler")),
		sweepH:      handler.NewSweepHandler(scheduler, logger.With("component", "sweep_handler")),
		backupH:     handler.NewBackupHandler(backupMgr, backupStore, logger.With("component", "backup_handler")),
		rateLimiter: middleware.NewRateLimiter(),
		scheduler:   scheduler,
		backups:     backupMgr,
		logger:      logger,
	}
}

// Scheduler returns the expiry sweep scheduler.
func (s *Server) Scheduler() *push.Scheduler {
	return s.scheduler
}

// BackupManager returns the backup manager.
func (s *Server) BackupManager() *backup.Manager {
	return s.backups
}

// Start registers the recurring jobs. Stop undoes it.
func (s *Server) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	if s.cfg.Sweep.Enabled {
		s.scheduler.Register(ctx, push.Schedule{
			Interval:     s.cfg.Sweep.Interval,
			InitialDelay: s.cfg.Sweep.InitialDelay,
		})
	}
	s.backups.Start(ctx)
	go s.rateLimiter.RunCleanup(ctx, 10*time.Minute)
}

func (s *Server) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.scheduler.Stop()
	s.backups.Stop()
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler)
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.logger.With("component", "websocket")))

	// Products
	mux.HandleFunc("GET /api/products", s.productH.List)
	mux.HandleFunc("POST /api/products", s.productH.Create)
	mux.HandleFunc("GET /api/products/{id}", s.productH.Get)
	mux.HandleFunc("PUT /api/products/{id}", s.productH.Update)
	mux.HandleFunc("DELETE /api/products/{id}", s.productH.Delete)
	mux.HandleFunc("GET /api/products/barcode/{code}", s.productH.GetByBarcode)
	mux.HandleFunc("POST /api/products/{id}/shopping", s.productH.AddToShopping)

	// Shopping list
	mux.HandleFunc("GET /api/shopping", s.shoppingH.List)
	mux.HandleFunc("POST /api/shopping", s.shoppingH.Create)
	mux.HandleFunc("PUT /api/shopping/{id}", s.shoppingH.Update)
	mux.HandleFunc("DELETE /api/shopping/{id}", s.shoppingH.Delete)
	mux.HandleFunc("POST /api/shopping/{id}/toggle", s.shoppingH.Toggle)
	mux.HandleFunc("POST /api/shopping/clear-purchased", s.shoppingH.ClearPurchased)
	mux.HandleFunc("GET /api/shopping/{id}/stores", s.shoppingH.Stores)

	// Catalogue lookup, rate limited per client
	mux.HandleFunc("GET /api/lookup/barcode/{code}", s.rateLimitedHandler(s.lookupH.Barcode))
	mux.HandleFunc("GET /api/lookup/search", s.rateLimitedHandler(s.lookupH.Search))

	mux.HandleFunc("GET /api/preferences", s.prefsH.Get)
	mux.HandleFunc("PUT /api/preferences", s.prefsH.Update)

	// Push notifications
	mux.HandleFunc("GET /api/push/vapid-key", s.pushH.GetVAPIDKey)
	mux.HandleFunc("POST /api/push/subscribe", s.pushH.Subscribe)
	mux.HandleFunc("GET /api/push/subscriptions", s.pushH.ListSubscriptions)
	mux.HandleFunc("DELETE /api/push/subscriptions/{id}", s.pushH.Unsubscribe)
	mux.HandleFunc("POST /api/push/test", s.pushH.TestNotification)

	mux.HandleFunc("POST /api/sweep/run", s.sweepH.Run)
	mux.HandleFunc("GET /api/sweep/status", s.sweepH.Status)

	mux.HandleFunc("POST /api/backups/run", s.backupH.Run)
	mux.HandleFunc("GET /api/backups", s.backupH.List)

	mux.HandleFunc("GET /api/categories", handler.Categories)

	return middleware.RequestLogger(s.logger.With("component", "http"))(mux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	status, code := "ok", http.StatusOK
	if err := s.db.PingContext(r.Context()); err != nil {
		s.logger.Error("health check", "error", err)
		status, code = "unavailable", http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write([]byte(`{"status":"` + status + `"}`))
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	rl := middleware.RateLimit(s.rateLimiter, middleware.RealIP, 30, time.Minute)
	return rl(h).ServeHTTP
}
