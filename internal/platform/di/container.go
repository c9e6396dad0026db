// internal/platform/di/container.go
package di

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	httpin "storefront/internal/adapters/in/http"
	consoleHandler "storefront/internal/adapters/in/http/console/handler"
	mallHandler "storefront/internal/adapters/in/http/mall/handler"
	"storefront/internal/adapters/in/http/middleware"
	"storefront/internal/adapters/out/cache"
	pgrepo "storefront/internal/adapters/out/db"
	fsrepo "storefront/internal/adapters/out/firestore"
	"storefront/internal/adapters/out/gcs"
	"storefront/internal/adapters/out/memory"
	mallquery "storefront/internal/application/query/mall"
	"storefront/internal/application/usecase"
	cartdom "storefront/internal/domain/cart"
	productdom "storefront/internal/domain/product"
	shopdom "storefront/internal/domain/shop"
	ruledom "storefront/internal/domain/upsellRule"
	appcfg "storefront/internal/infra/config"
	"storefront/internal/infra/telemetry"
	shared "storefront/internal/platform/di/shared"
)

// Container wires repositories, usecases and the HTTP router for one backend.
type Container struct {
	Infra *shared.Infra

	RuleUC       *usecase.UpsellRuleUsecase
	CartUpsellUC *usecase.CartUpsellUsecase
	CartUC       *usecase.CartUsecase
	PublicQuery  *mallquery.UpsellPublicQuery
	Impressions  *usecase.ImpressionRecorder

	router http.Handler
}

// stores is the backend-specific set of ports.
type stores struct {
	rules   ruledom.Repository
	carts   cartdom.Repository
	catalog productdom.Catalog
	shops   shopdom.Repository
	tx      usecase.TxRunner
}

func NewContainer(ctx context.Context, infra *shared.Infra) (*Container, error) {
	if infra == nil || infra.Config == nil {
		return nil, errors.New("di: infra is nil")
	}
	cfg := infra.Config
	log := infra.Logger
	if log == nil {
		log = zap.NewNop()
	}

	st, err := newStores(infra)
	if err != nil {
		return nil, err
	}

	// ---- cache ----
	var c usecase.Cache
	if infra.Redis != nil {
		c = cache.NewRedisCache(infra.Redis, log)
	} else {
		c = cache.NewMemoryCache()
	}

	// ---- metrics / impressions ----
	metrics, err := telemetry.NewRuleMetrics(nil)
	if err != nil {
		return nil, fmt.Errorf("di: rule metrics: %w", err)
	}
	recorder := usecase.NewImpressionRecorder(st.rules, metrics, log, cfg.ImpressionBuffer)

	// ---- icons ----
	var icons usecase.IconURLResolver
	if b := strings.TrimSpace(cfg.ProductIconBucket); b != "" {
		res := gcs.NewProductIconURLResolver(b, cfg.IconSignerEmail, log)
		if cfg.IconSignedURLTTL > 0 {
			res.Expiry = cfg.IconSignedURLTTL
		}
		icons = res
	}

	// ---- usecases ----
	ruleUC := usecase.NewUpsellRuleUsecase(st.rules, st.catalog, c, cfg.CacheListTTL, log)
	cartUC := usecase.NewCartUsecase(st.carts, st.catalog, log)
	upsellUC := usecase.NewCartUpsellUsecase(usecase.CartUpsellDeps{
		Rules:       st.rules,
		Carts:       st.carts,
		Catalog:     st.catalog,
		Shops:       st.shops,
		Tx:          st.tx,
		Impressions: recorder,
		Metrics:     metrics,
		Icons:       icons,
		Logger:      log,
	})
	public := mallquery.NewUpsellPublicQuery(st.rules, st.catalog, c, cfg.CacheListTTL, icons, log)

	// ---- http ----
	ownerAuth := &middleware.OwnerAuth{Shops: st.shops, Disabled: cfg.AuthDisabled, Logger: log}
	shopper := &middleware.ShopperIdentity{Disabled: cfg.AuthDisabled}
	if infra.FirebaseAuth != nil {
		ownerAuth.Verifier = infra.FirebaseAuth
		shopper.Verifier = infra.FirebaseAuth
	}

	router := httpin.NewRouter(httpin.RouterDeps{
		UpsellRules:        consoleHandler.NewUpsellRuleHandler(ruleUC, log),
		CartUpsell:         mallHandler.NewCartUpsellHandler(upsellUC, cartUC, log),
		PublicUpsell:       mallHandler.NewUpsellPublicHandler(public, log),
		OwnerAuth:          ownerAuth,
		ShopperIdentity:    shopper,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		Logger:             log,
	})

	log.Info("container ready",
		zap.String("backend", cfg.StoreBackend),
		zap.Bool("redis", infra.Redis != nil),
		zap.Bool("iconSigning", cfg.IconSignerEmail != ""),
	)

	return &Container{
		Infra:        infra,
		RuleUC:       ruleUC,
		CartUpsellUC: upsellUC,
		CartUC:       cartUC,
		PublicQuery:  public,
		Impressions:  recorder,
		router:       router,
	}, nil
}

func newStores(infra *shared.Infra) (stores, error) {
	cfg := infra.Config
	switch cfg.StoreBackend {
	case appcfg.BackendFirestore:
		if infra.Firestore == nil {
			return stores{}, errors.New("di: firestore client is nil")
		}
		fc := infra.Firestore.Client
		return stores{
			rules:   fsrepo.NewUpsellRuleRepositoryFS(fc),
			carts:   fsrepo.NewCartRepositoryFS(fc),
			catalog: fsrepo.NewProductCatalogFS(fc),
			shops:   fsrepo.NewShopRepositoryFS(fc),
			tx:      fsrepo.NewTxRunnerFS(fc),
		}, nil

	case appcfg.BackendPostgres:
		if infra.DB == nil {
			return stores{}, errors.New("di: postgres connection is nil")
		}
		db := infra.DB.Client
		return stores{
			rules:   pgrepo.NewUpsellRuleRepositoryPG(db),
			carts:   pgrepo.NewCartRepositoryPG(db),
			catalog: pgrepo.NewProductCatalogPG(db),
			shops:   pgrepo.NewShopRepositoryPG(db),
			tx:      pgrepo.NewTxRunnerPG(db),
		}, nil

	case appcfg.BackendMemory:
		catalog := memory.NewCatalogMem()
		if path := strings.TrimSpace(cfg.FixturesFile); path != "" {
			fx, err := memory.LoadFixtures(path)
			if err != nil {
				return stores{}, fmt.Errorf("di: %w", err)
			}
			fx.Apply(catalog)
		}
		return stores{
			rules:   memory.NewUpsellRuleRepositoryMem(),
			carts:   memory.NewCartRepositoryMem(),
			catalog: catalog,
			shops:   catalog.Shops(),
			tx:      usecase.SequentialTx{},
		}, nil
	}
	return stores{}, fmt.Errorf("di: unknown store backend %q", cfg.StoreBackend)
}

// Handler returns the application router.
func (c *Container) Handler() http.Handler {
	return c.router
}

// Close flushes pending impressions. Infra is closed by its owner.
func (c *Container) Close() error {
	if c == nil || c.Impressions == nil {
		return nil
	}
	return c.Impressions.Close()
}
