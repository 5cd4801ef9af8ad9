package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/investigate/case-graph/internal/api"
	"github.com/investigate/case-graph/internal/cache"
	"github.com/investigate/case-graph/internal/config"
	"github.com/investigate/case-graph/internal/crypto"
	"github.com/investigate/case-graph/internal/domain"
	"github.com/investigate/case-graph/internal/events"
	"github.com/investigate/case-graph/internal/logger"
	"github.com/investigate/case-graph/internal/network"
	"github.com/investigate/case-graph/internal/provider"
	"github.com/investigate/case-graph/internal/ratelimit"
	"github.com/investigate/case-graph/internal/repository"
	"github.com/investigate/case-graph/internal/repository/elasticsearch"
	"github.com/investigate/case-graph/internal/repository/memory"
	"github.com/investigate/case-graph/internal/repository/neo4j"
	"github.com/investigate/case-graph/internal/repository/postgres"
	"github.com/investigate/case-graph/internal/repository/s3"
	"github.com/investigate/case-graph/internal/resolver"
	"github.com/investigate/case-graph/internal/service"
)

func main() {
	// 1. Config
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Failed to read .env: %v", err)
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 2. Logger
	zl, err := logger.New(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()
	sugar := zl.Sugar()

	sugar.Info("Starting case graph service...")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Crypto / Security
	signer, err := crypto.NewSigner(cfg.Encryption.SigningSecret)
	if err != nil {
		sugar.Fatalf("Failed to initialize signer: %v", err)
	}
	var vault *crypto.Vault
	if len(cfg.Encryption.EncryptionKeysBase64) > 0 {
		vault, err = crypto.NewVault(cfg.Encryption.EncryptionKeysBase64, cfg.Encryption.CurrentKeyVersion)
		if err != nil {
			sugar.Fatalf("Failed to initialize credential vault: %v", err)
		}
	} else {
		sugar.Warn("No encryption keys configured, provider API keys can only come from config")
	}

	// 4. Store
	store, err := openStore(ctx, cfg.Database, zl)
	if err != nil {
		sugar.Fatalf("Failed to open store: %v", err)
	}
	defer store.Close()

	// 5. Providers
	credentials := service.NewCredentialService(store, vault, provider.StaticKeys{
		domain.ProviderChainalysis: cfg.Providers.ChainalysisAPIKey,
		domain.ProviderEtherscan:   cfg.Providers.EtherscanAPIKey,
		domain.ProviderBlockchair:  cfg.Providers.BlockchairAPIKey,
	}, logger.WithComponent(zl, "credentials"))

	httpClient := &http.Client{Timeout: cfg.Providers.HTTPTimeout}
	registry := resolver.DefaultRegistry()
	prices := provider.NewPriceOracle(httpClient,
		ratelimit.NewInterval("prices", cfg.Providers.GenericDelay),
		cfg.Providers.PriceBaseURL,
		cache.NewTTL[string, float64](cfg.Cache.PriceTTL, nil),
		logger.WithComponent(zl, "prices"),
	)
	free := provider.NewFreeAPI(httpClient,
		ratelimit.NewInterval("free", cfg.Providers.FreeDelay),
		credentials, registry, prices,
		provider.FreeAPIURLs{
			Etherscan:  cfg.Providers.EtherscanBaseURL,
			Blockchair: cfg.Providers.BlockchairBaseURL,
			Tronscan:   cfg.Providers.TronscanBaseURL,
		},
	)
	premium := provider.NewChainalysis(httpClient,
		ratelimit.NewInterval("chainalysis", cfg.Providers.PremiumDelay),
		credentials, cfg.Providers.ChainalysisBaseURL,
	)
	providers := provider.NewService(premium, free,
		cache.NewTTL[provider.WalletKey, domain.WalletInfo](cfg.Cache.WalletTTL, nil),
		logger.WithComponent(zl, "providers"),
	)
	res := resolver.New(registry, providers,
		cache.NewTTL[string, domain.ScreeningResult](cfg.Cache.SanctionsTTL, nil),
		logger.WithComponent(zl, "resolver"),
	)

	// 6. Optional sinks
	var sinks network.Sinks
	var publisher *events.NATSPublisher
	if cfg.NATS.Enabled {
		publisher, err = events.NewNATSPublisher(cfg.NATS, logger.WithComponent(zl, "nats"))
		if err != nil {
			sugar.Warnf("Failed to connect to NATS: %v (events will not be published)", err)
		} else {
			defer publisher.Close()
			sinks.Publisher = publisher
		}
	}

	var searcher network.Searcher
	if cfg.Elasticsearch.Enabled {
		esRepo, err := elasticsearch.NewEntityRepository(ctx, cfg.Elasticsearch)
		if err != nil {
			sugar.Warnf("Failed to connect to Elasticsearch: %v (search falls back to the store)", err)
		} else {
			searcher = esRepo
			if cfg.Network.IndexOnRegenerate {
				sinks.Indexer = esRepo
			}
		}
	}

	if cfg.S3.Enabled && cfg.Network.SnapshotOnRegenerate {
		s3Repo, err := s3.NewSnapshotRepository(ctx, cfg.S3)
		if err != nil {
			sugar.Warnf("Failed to initialize S3 repository: %v (snapshots disabled)", err)
		} else {
			sinks.Archiver = s3Repo
		}
	}

	if cfg.Neo4j.Enabled && cfg.Network.MirrorOnRegenerate {
		mirror, err := neo4j.NewMirrorRepository(ctx, cfg.Neo4j, logger.WithComponent(zl, "neo4j"))
		if err != nil {
			sugar.Warnf("Failed to connect to Neo4j: %v (graph mirror disabled)", err)
		} else {
			defer func() {
				closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer closeCancel()
				_ = mirror.Close(closeCtx)
			}()
			sinks.Mirror = mirror
		}
	}

	// 7. Services
	cases := service.NewCaseService(store, logger.WithComponent(zl, "cases"))
	flows := service.NewMoneyFlowService(store, store, logger.WithComponent(zl, "money_flow"))
	locations := service.NewLocationService(store, store, logger.WithComponent(zl, "locations"))
	evidence := service.NewEvidenceService(store, store, signer, logger.WithComponent(zl, "evidence"))

	var cryptoPublisher service.Publisher
	if publisher != nil {
		cryptoPublisher = publisher
	}
	cryptoSvc := service.NewCryptoService(store, store, providers, prices, res, cryptoPublisher, logger.WithComponent(zl, "crypto"))

	calls := network.NewService(store, store, signer, sinks, logger.WithComponent(zl, "network"))
	if searcher != nil {
		calls.WithSearcher(searcher)
	}
	defer calls.Wait()

	// 8. Kafka Consumer
	if cfg.Kafka.Enabled {
		dispatcher := events.NewDispatcher(cfg.Kafka, calls, cryptoSvc, locations, evidence)
		consumer, err := events.NewIngestConsumer(cfg.Kafka, dispatcher, logger.WithComponent(zl, "kafka"))
		if err != nil {
			sugar.Fatalf("Failed to create Kafka consumer: %v", err)
		}
		go func() {
			sugar.Info("Starting Kafka consumer loop...")
			if err := consumer.Start(ctx); err != nil {
				sugar.Errorf("Kafka consumer failed: %v", err)
			}
		}()
		defer func() { _ = consumer.Close() }()
	}

	// 9. API Server
	e := api.NewEcho(logger.WithComponent(zl, "http"))
	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	e.Server.WriteTimeout = cfg.Server.WriteTimeout

	apiGroup := e.Group("/api/v1")
	if cfg.Auth.Enabled {
		jwtMiddleware, err := api.JWTMiddleware(cfg.Auth.JWTPublicKeyPath, cfg.Auth.JWTIssuer)
		if err != nil {
			sugar.Fatalf("Failed to configure JWT authentication: %v", err)
		}
		apiGroup.Use(jwtMiddleware)
		sugar.Info("JWT Authentication enabled for /api/v1/*")
	} else {
		sugar.Warn("JWT Authentication DISABLED (Security Risk)")
	}
	adminGroup := apiGroup.Group("", api.RequireRole("admin"))

	api.Handlers{
		Cases:     api.NewCaseHandler(cases),
		MoneyFlow: api.NewMoneyFlowHandler(flows),
		Calls:     api.NewCallHandler(calls, evidence),
		Crypto:    api.NewCryptoHandler(cryptoSvc, evidence),
		Locations: api.NewLocationHandler(locations, evidence),
		Evidence:  api.NewEvidenceHandler(evidence),
		Admin:     api.NewAdminHandler(credentials),
	}.RegisterRoutes(apiGroup, adminGroup, e.Group("/public"))

	// Start Server
	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugar.Fatalf("Shutting down the server: %v", err)
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	sugar.Info("Shutting down service...")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		sugar.Errorf("Failed to shut down HTTP server: %v", err)
	}
}

// openStore connects the configured persistence driver, migrating PostgreSQL first when enabled
func openStore(ctx context.Context, cfg config.DatabaseConfig, zl *zap.Logger) (repository.Store, error) {
	switch cfg.Driver {
	case "memory":
		zl.Warn("Using in-memory store, data is lost on restart")
		return memory.New(), nil
	case "", "postgres":
		if cfg.Migrate {
			if err := postgres.Migrate(cfg.URL()); err != nil {
				return nil, fmt.Errorf("failed to migrate database: %w", err)
			}
		}
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		store, err := postgres.New(connectCtx, cfg)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}
