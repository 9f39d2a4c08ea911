package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"time"

	"xof_converter/internal/api"
	"xof_converter/internal/domain"
	"xof_converter/internal/infra"
	"xof_converter/internal/infra/currencyapi"
	"xof_converter/internal/infra/exchangerate"
	"xof_converter/internal/infra/storage"
	"xof_converter/internal/service"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"
)

// maxIconDownloads limits concurrent flag downloads
const maxIconDownloads = 5

// Bootstrap orchestrates the application startup sequence
type Bootstrap struct {
	Config     *infra.Config
	Storage    *storage.Storage
	Downloader *infra.IconDownloader
	Catalog    *domain.Catalog

	Resolver    *service.RateResolver
	Favorites   *service.FavoritesStore
	Comparison  *service.ComparisonService
	Historical  *service.HistoricalService
	Preferences *service.PreferenceService

	scheduler *cron.Cron
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize loads the configuration at configPath and wires every component
func (b *Bootstrap) Initialize(configPath string) error {
	slog.Info("🚀 Bootstrapping XOF Converter...")

	// 1. Load Config
	cfg, err := infra.LoadConfig(configPath)
	if err != nil {
		return err // Let main handle the error
	}
	b.Config = cfg

	// 2. Setup Logger
	logger := infra.NewLogger(cfg)
	slog.SetDefault(logger)

	if cfg.API.Primary.APIKey == "" {
		slog.Warn("EXCHANGE_RATE_API_KEY is not set, primary source will fail")
	}
	if cfg.API.Secondary.APIKey == "" {
		slog.Warn("CURRENCY_API_KEY is not set, secondary source will fail")
	}

	// 3. Initialize Storage (device-local key/value)
	store, err := storage.NewStorage(cfg.Storage.Path)
	if err != nil {
		return err
	}
	b.Storage = store
	slog.Info("✅ Local store initialized")

	// 4. Initialize Icon Downloader
	downloader, err := infra.NewIconDownloader(cfg.Assets.Path, cfg.API.Icons.URL)
	if err != nil {
		return err
	}
	b.Downloader = downloader
	slog.Info("✅ Icon downloader ready", slog.String("dir", downloader.Dir()))

	// 5. Rate sources, highest priority first
	b.Catalog = domain.NewCatalogFromCodes(cfg.Converter.Currencies)
	b.Resolver = service.NewRateResolver(infra.GlobalMetrics,
		exchangerate.NewClient(cfg.API.Primary),
		currencyapi.NewClient(cfg.API.Secondary),
	)

	// 6. Services
	b.Favorites = service.NewFavoritesStore(store, cfg.Favorites.MaxEntries)
	b.Comparison = service.NewComparisonService(b.Resolver, b.Catalog)
	b.Historical = service.NewHistoricalService(b.Resolver)
	b.Preferences = service.NewPreferenceService(store)
	slog.Info("✅ Services ready",
		slog.Int("currencies", len(b.Catalog.Codes())),
		slog.Int("favorites", len(b.Favorites.List())),
	)

	return nil
}

// Router builds the HTTP surface over the initialized services
func (b *Bootstrap) Router() http.Handler {
	return api.NewRouter(api.Deps{
		Resolver:    b.Resolver,
		Catalog:     b.Catalog,
		Favorites:   b.Favorites,
		Comparison:  b.Comparison,
		Historical:  b.Historical,
		Preferences: b.Preferences,
		Health:      b.Storage,
		Metrics:     infra.GlobalMetrics,
		Session: api.SessionConfig{
			Debounce: b.Config.DebounceInterval(),
			From:     b.Config.Converter.DefaultFrom,
			To:       b.Config.Converter.DefaultTo,
		},
		IconsDir:       b.Downloader.Dir(),
		AllowedOrigins: b.Config.Server.AllowedOrigins,
	})
}

// SyncAssets downloads the flag of every catalog currency and records its
// served path. Failures are logged; the converter works without icons.
func (b *Bootstrap) SyncAssets(ctx context.Context) {
	slog.Info("🔄 Starting asset synchronization...")
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxIconDownloads)

	for _, cur := range b.Catalog.All() {
		if cur.Flag == "" {
			continue
		}
		cur := cur
		g.Go(func() error {
			file, err := b.Downloader.DownloadIcon(gctx, cur.Flag)
			if err != nil {
				slog.Warn("Failed to download icon",
					slog.String("currency", cur.Code),
					slog.String("flag", cur.Flag),
					slog.Any("error", err),
				)
				return nil
			}
			b.Catalog.SetIconPath(cur.Code, "/icons/"+path.Base(file))
			return nil
		})
	}

	g.Wait()
	slog.Info("✨ Asset synchronization completed", slog.Duration("took", time.Since(start)))
}

// StartScheduler resyncs icons on the configured cron schedule
func (b *Bootstrap) StartScheduler(ctx context.Context) error {
	spec := b.Config.Assets.SyncCron
	if spec == "" {
		return nil
	}

	b.scheduler = cron.New()
	if _, err := b.scheduler.AddFunc(spec, func() { b.SyncAssets(ctx) }); err != nil {
		return &domain.ConfigError{Field: "assets.sync_cron", Err: fmt.Errorf("invalid schedule %q: %w", spec, err)}
	}
	b.scheduler.Start()
	slog.Info("✅ Asset resync scheduled", slog.String("cron", spec))
	return nil
}

// Close stops background jobs and releases the local store
func (b *Bootstrap) Close() {
	if b.scheduler != nil {
		<-b.scheduler.Stop().Done()
	}
	if b.Storage != nil {
		if err := b.Storage.Close(); err != nil {
			slog.Error("Failed to close local store", slog.Any("error", err))
		}
	}
}
