package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/01moynul/pawshop-golang/internal/accounts"
	"github.com/01moynul/pawshop-golang/internal/auth"
	"github.com/01moynul/pawshop-golang/internal/cache"
	"github.com/01moynul/pawshop-golang/internal/catalog"
	"github.com/01moynul/pawshop-golang/internal/config"
	"github.com/01moynul/pawshop-golang/internal/database"
	"github.com/01moynul/pawshop-golang/internal/handlers"
	"github.com/01moynul/pawshop-golang/internal/notify"
	"github.com/01moynul/pawshop-golang/internal/ordering"
	"github.com/01moynul/pawshop-golang/internal/ratelimit"
	"github.com/01moynul/pawshop-golang/internal/routes"
	"github.com/01moynul/pawshop-golang/internal/session"
	"github.com/01moynul/pawshop-golang/internal/store"
)

const (
	sweepInterval   = time.Minute
	shutdownTimeout = 15 * time.Second
)

func main() {
	app := &cli.App{
		Name:  "pawshop",
		Usage: "pet shop storefront API",
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "migrate the database and start the HTTP server",
				Action: serve,
			},
			{
				Name:   "migrate",
				Usage:  "apply pending database migrations",
				Action: migrate,
			},
			{
				Name:  "create-admin",
				Usage: "create an administrator account",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Required: true},
					&cli.StringFlag{Name: "password", Required: true, EnvVars: []string{"PAWSHOP_ADMIN_PASSWORD"}},
					&cli.StringFlag{Name: "name", Value: "Admin"},
				},
				Action: createAdmin,
			},
		},
		DefaultCommand: "serve",
	}

	if err := app.Run(os.Args); err != nil {
		log.WithError(err).Fatal("pawshop exited with an error")
	}
}

// loadConfig reads .env and the environment, then configures logging.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	cfg.SetupLogger()
	return cfg, nil
}

// openDatabase connects, applies migrations and wraps the connection in the pool.
func openDatabase(ctx context.Context, cfg *config.Config) (*sqlx.DB, *database.Pool, error) {
	db, dialect, err := database.Open(ctx, cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return nil, nil, err
	}
	if err := database.Migrate(db, dialect); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return db, database.NewPool(db, dialect, cfg.DBPoolSize, cfg.LockTimeout), nil
}

func migrate(c *cli.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, pool, err := openDatabase(c.Context, cfg)
	if err != nil {
		return err
	}
	pool.Close()
	return db.Close()
}

func createAdmin(c *cli.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, pool, err := openDatabase(c.Context, cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	defer pool.Close()

	svc := accounts.NewService(store.New(pool), auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL))
	u, err := svc.CreateAdmin(c.Context, c.String("email"), c.String("password"), c.String("name"))
	if err != nil {
		return errors.Wrap(err, "create admin")
	}
	log.WithFields(log.Fields{"id": u.ID, "email": u.Email}).Info("admin ready")
	return nil
}

func serve(c *cli.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// 1. --- Database Connection & Pool ---
	db, pool, err := openDatabase(c.Context, cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	defer pool.Close()
	st := store.New(pool)

	// 2. --- Notification Dispatcher ---
	var email notify.Sender = notify.LogSender{Channel: notify.Email}
	if cfg.SMTPHost != "" {
		email = notify.NewSMTPSender(notify.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		})
	} else {
		log.Warn("PAWSHOP_SMTP_HOST is not set, emails will only be logged")
	}
	dispatcher := notify.NewDispatcher(notify.Options{
		Workers:    cfg.NotifyWorkers,
		QueueSize:  cfg.NotifyQueue,
		ShopName:   "PawShop",
		BaseURL:    cfg.BaseURL,
		AdminEmail: cfg.AdminEmail,
	}, map[notify.Channel]notify.Sender{
		notify.Email: email,
		notify.SMS:   notify.LogSender{Channel: notify.SMS},
		notify.Inbox: notify.InboxSender{Store: st},
	})
	defer dispatcher.Close()

	// 3. --- Services ---
	readCache := cache.New(5 * time.Minute)
	limiter := ratelimit.New(ratelimit.NewMemoryStore())
	tokens := auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL)
	sessions := session.NewManager(cfg.JWTSecret, cfg.SessionCookie, cfg.SessionTTL, isHTTPS(cfg.BaseURL))

	app := &handlers.Handlers{
		Store: st,
		Catalog: catalog.NewService(st, readCache, dispatcher, catalog.TTLs{
			Catalog:   cfg.CatalogTTL,
			Stock:     cfg.StockTTL,
			Campaigns: cfg.CampaignsTTL,
		}),
		Orders: ordering.NewService(st, sessions, readCache, dispatcher, ordering.Options{
			PaymentChatURL: cfg.PaymentChatURL,
			Currency:       cfg.Currency,
		}),
		Accounts:    accounts.NewService(st, tokens),
		Sessions:    sessions,
		Notifier:    dispatcher,
		Tokens:      tokens,
		Limiter:     limiter,
		CORSOrigins: cfg.CORSOrigins,
		UploadDir:   cfg.UploadDir,
		BaseURL:     cfg.BaseURL,
	}

	// 4. --- Background Workers ---
	// Drops rate limit windows that have gone quiet.
	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()
	go func() {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()

		log.Info("background worker started: sweeping rate limit windows")
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				limiter.Sweep(ctx, time.Hour)
			}
		}
	}()

	// 5. --- Start Server ---
	srv := &http.Server{
		Addr:              cfg.HTTPAddress,
		Handler:           routes.SetupRouter(app),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.HTTPAddress).Info("starting PawShop API server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	select {
	case sig := <-quit:
		log.WithField("signal", sig.String()).Info("shutting down")
	case err := <-errCh:
		return errors.Wrap(err, "http server")
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	return errors.Wrap(srv.Shutdown(shutdownCtx), "shutdown")
}

func isHTTPS(baseURL string) bool {
	return strings.HasPrefix(baseURL, "https://")
}
