// Package app builds the services from configuration and owns the clients
// they share, so the server and the seed command wire things the same way.
package app

import (
	"context"
	"log"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-redis/redis/v8"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"storefront/internal/auth"
	"storefront/internal/catalog"
	"storefront/internal/checkout"
	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/handlers"
	"storefront/internal/inventory"
	"storefront/internal/mailer"
	"storefront/internal/memstore"
	"storefront/internal/metrics"
	"storefront/internal/models"
	"storefront/internal/seed"
	"storefront/internal/storage"
)

type App struct {
	Products   *catalog.ProductService
	Categories *catalog.CategoryService
	Sizes      *catalog.ReferenceService
	Colors     *catalog.ReferenceService
	Stock      *inventory.Service
	Accounts   *auth.Service
	Sessions   *auth.Inspector
	Orders     *checkout.Service
	Metrics    *metrics.AppMetrics

	cfg      config.Config
	mongo    *database.Handle
	redis    *redis.Client
	provider *sdkmetric.MeterProvider
}

type productStore interface {
	catalog.ProductRepository
	inventory.Store
}

type repositories struct {
	products      productStore
	categories    catalog.CategoryRepository
	sizes         catalog.ReferenceRepository
	colors        catalog.ReferenceRepository
	users         auth.UserRepository
	refreshTokens auth.RefreshTokenRepository
	orders        checkout.OrderRepository
}

// New connects to the configured backends and builds every service. On
// error whatever was already opened is closed.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	a := &App{cfg: cfg}
	if err := a.build(ctx); err != nil {
		a.Close(context.Background())
		return nil, err
	}
	return a, nil
}

func (a *App) build(ctx context.Context) error {
	cfg := a.cfg
	var err error

	a.provider, err = metrics.NewProvider(ctx, metrics.ProviderConfig{
		ServiceName: cfg.ServiceName,
		Endpoint:    cfg.OTLPEndpoint,
		Insecure:    cfg.OTLPInsecure,
	})
	if err != nil {
		return err
	}
	a.Metrics, err = metrics.New(a.provider.Meter(cfg.ServiceName))
	if err != nil {
		return errors.Wrap(err, "create instruments")
	}

	repos, err := a.openStore(ctx)
	if err != nil {
		return err
	}

	denylist, err := a.openDenylist(ctx)
	if err != nil {
		return err
	}

	images, err := openImageStore(ctx, cfg)
	if err != nil {
		return err
	}

	issuer := auth.NewIssuer(cfg.JWTSecret, cfg.AccessTokenTTL)
	a.Sessions = auth.NewInspector(issuer, denylist)
	a.Accounts = auth.NewService(repos.users, repos.refreshTokens, issuer, denylist, cfg.RefreshTokenTTL)

	a.Categories = catalog.NewCategoryService(repos.categories)
	a.Sizes = catalog.NewReferenceService(models.ReferenceSizes, repos.sizes)
	a.Colors = catalog.NewReferenceService(models.ReferenceColors, repos.colors)
	a.Products = catalog.NewProductService(repos.products, a.Categories, images, a.Metrics)
	a.Stock = inventory.NewService(repos.products, a.Metrics)
	a.Orders = checkout.NewService(repos.products, a.Stock, repos.orders, openMailer(cfg), a.Metrics)
	return nil
}

func (a *App) openStore(ctx context.Context) (repositories, error) {
	if a.cfg.StoreDriver == config.DriverMemory {
		log.Println("[APP] [WARN] STORE_DRIVER=memory, data is lost on restart")
		store := memstore.New()
		return repositories{
			products:      store.Products(),
			categories:    store.Categories(),
			sizes:         store.References(models.ReferenceSizes),
			colors:        store.References(models.ReferenceColors),
			users:         store.Users(),
			refreshTokens: store.RefreshTokens(),
			orders:        store.Orders(),
		}, nil
	}

	handle, err := database.Connect(ctx, a.cfg.MongoURI, a.cfg.DBName)
	if err != nil {
		return repositories{}, err
	}
	a.mongo = handle

	if err := database.EnsureIndexes(ctx, handle.DB); err != nil {
		return repositories{}, err
	}

	db := handle.DB
	return repositories{
		products:      database.NewProductRepository(db),
		categories:    database.NewCategoryRepository(db),
		sizes:         database.NewReferenceRepository(db, models.ReferenceSizes),
		colors:        database.NewReferenceRepository(db, models.ReferenceColors),
		users:         database.NewUserRepository(db),
		refreshTokens: database.NewRefreshTokenRepository(db),
		orders:        database.NewOrderRepository(db),
	}, nil
}

func (a *App) openDenylist(ctx context.Context) (auth.Denylist, error) {
	if a.cfg.RedisURL == "" {
		log.Println("[APP] [INFO] REDIS_URL not set, logged-out tokens are tracked in memory")
		return auth.NewMemoryDenylist(), nil
	}

	opts, err := redis.ParseURL(a.cfg.RedisURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse REDIS_URL")
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "redis ping")
	}
	a.redis = client
	log.Println("[APP] [INFO] redis connected")
	return auth.NewRedisDenylist(client), nil
}

func openImageStore(ctx context.Context, cfg config.Config) (storage.ImageStore, error) {
	if cfg.S3Bucket == "" {
		log.Println("[APP] [WARN] AWS_S3_BUCKET_NAME not set, image uploads are disabled")
		return storage.Disabled{}, nil
	}
	return storage.NewS3Store(ctx, cfg.S3Bucket, cfg.AWSRegion)
}

func openMailer(cfg config.Config) checkout.Notifier {
	if !cfg.MailConfigured() {
		log.Println("[APP] [WARN] EMAIL_USER/EMAIL_PASS not set, order emails are not sent")
		return mailer.Nop{}
	}
	return mailer.NewSMTP(mailer.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.EmailUser,
		Password: cfg.EmailPass,
		StoreTo:  cfg.StoreEmail,
	})
}

// RouterDeps is what handlers.NewRouter needs from a.
func (a *App) RouterDeps() handlers.Deps {
	d := handlers.Deps{
		Products:    a.Products,
		Categories:  a.Categories,
		Sizes:       a.Sizes,
		Colors:      a.Colors,
		Stock:       a.Stock,
		Accounts:    a.Accounts,
		Sessions:    a.Sessions,
		Orders:      a.Orders,
		Metrics:     a.Metrics,
		CORSOrigins: a.cfg.CORSOrigins,
	}
	// a nil *Handle in the interface would not compare equal to nil
	if a.mongo != nil {
		d.Database = a.mongo
	}
	return d
}

func (a *App) SeedServices() seed.Services {
	return seed.Services{
		Categories: a.Categories,
		Sizes:      a.Sizes,
		Colors:     a.Colors,
		Products:   a.Products,
		Accounts:   a.Accounts,
	}
}

// Close flushes metrics and releases Redis and Mongo, in that order.
func (a *App) Close(ctx context.Context) {
	if a.provider != nil {
		if err := a.provider.Shutdown(ctx); err != nil {
			log.Printf("[APP] [WARN] meter provider shutdown: %v", err)
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			log.Printf("[APP] [WARN] redis close: %v", err)
		}
	}
	if a.mongo != nil {
		if err := a.mongo.Close(ctx); err != nil {
			log.Printf("[APP] [WARN] %v", err)
		}
	}
}
