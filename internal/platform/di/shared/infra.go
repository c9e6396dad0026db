// internal/platform/di/shared/infra.go
package shared

import (
	"context"
	"errors"
	"fmt"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	firebase "firebase.google.com/go/v4"
	firebaseauth "firebase.google.com/go/v4/auth"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	appcfg "storefront/internal/infra/config"
	"storefront/internal/infra/database"
	firestoreinfra "storefront/internal/infra/firestore"
	redisinfra "storefront/internal/infra/redis"
	"storefront/internal/infra/secret"
)

// Infra is shared runtime infrastructure for DI.
// - owns external clients (Firestore / Postgres / Redis / Firebase Auth / Secret Manager)
// - clients not needed by the configured backend stay nil
//
// IMPORTANT:
// Infra must NOT depend on routers, handlers, or usecases.
type Infra struct {
	Config *appcfg.Config
	Logger *zap.Logger

	Firestore     *firestoreinfra.ClientWrapper
	DB            *database.DB
	Redis         *redis.Client
	SecretManager *secretmanager.Client
	Secrets       *secret.Resolver
	FirebaseAuth  *firebaseauth.Client
}

// NewInfra connects what cfg asks for. The store backend is strict;
// Redis falls back to the in-process cache when unreachable.
func NewInfra(ctx context.Context, cfg *appcfg.Config, logger *zap.Logger) (*Infra, error) {
	if cfg == nil {
		return nil, errors.New("shared.infra: config is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	log := logger.Named("shared.infra")
	inf := &Infra{Config: cfg, Logger: logger}

	var clientOpts []option.ClientOption
	if f := strings.TrimSpace(cfg.FirestoreCredentialsFile); f != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(f))
	}

	// 1) Secret Manager (only when a secret is referenced)
	if cfg.DBPasswordSecret != "" || cfg.RedisPasswordSecret != "" {
		sm, err := secretmanager.NewClient(ctx, clientOpts...)
		if err != nil {
			return nil, fmt.Errorf("shared.infra: secretmanager.NewClient failed: %w", err)
		}
		inf.SecretManager = sm
		inf.Secrets = secret.NewResolver(sm, cfg.GCPProjectID)
	}

	// 2) Store backend (strict)
	switch cfg.StoreBackend {
	case appcfg.BackendFirestore:
		fs, err := firestoreinfra.NewClient(ctx, cfg.FirestoreProjectID, cfg.FirestoreCredentialsFile, logger)
		if err != nil {
			_ = inf.Close()
			return nil, fmt.Errorf("shared.infra: %w", err)
		}
		inf.Firestore = fs

	case appcfg.BackendPostgres:
		password, err := inf.secretOr(ctx, cfg.DBPassword, cfg.DBPasswordSecret)
		if err != nil {
			_ = inf.Close()
			return nil, fmt.Errorf("shared.infra: db password: %w", err)
		}
		db, err := database.NewConnection(ctx, cfg.PostgresDSN(password), logger)
		if err != nil {
			_ = inf.Close()
			return nil, fmt.Errorf("shared.infra: %w", err)
		}
		inf.DB = db

	case appcfg.BackendMemory:
		log.Warn("using in-memory store; data is lost on restart")
	}

	// 3) Redis (best-effort)
	if cfg.RedisAddr != "" {
		password, err := inf.secretOr(ctx, cfg.RedisPassword, cfg.RedisPasswordSecret)
		if err != nil {
			log.Warn("redis password unavailable; using in-process cache", zap.Error(err))
		} else if rc, err := redisinfra.NewClient(ctx, cfg.RedisAddr, password, cfg.RedisDB); err != nil {
			log.Warn("redis unavailable; using in-process cache", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		} else {
			inf.Redis = rc
			log.Info("redis connected", zap.String("addr", cfg.RedisAddr))
		}
	}

	// 4) Firebase Auth (skipped when auth is disabled)
	if !cfg.AuthDisabled {
		app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.FirebaseProjectID}, clientOpts...)
		if err != nil {
			_ = inf.Close()
			return nil, fmt.Errorf("shared.infra: firebase app init failed: %w", err)
		}
		authClient, err := app.Auth(ctx)
		if err != nil {
			_ = inf.Close()
			return nil, fmt.Errorf("shared.infra: firebase auth init failed: %w", err)
		}
		inf.FirebaseAuth = authClient
	} else {
		log.Warn("authentication disabled; trusting identity headers")
	}

	return inf, nil
}

func (i *Infra) secretOr(ctx context.Context, plain, secretName string) (string, error) {
	if i.Secrets == nil {
		return plain, nil
	}
	return i.Secrets.ValueOr(ctx, plain, secretName)
}

// Close releases every owned client.
func (i *Infra) Close() error {
	if i == nil {
		return nil
	}
	var errs []error
	if i.Redis != nil {
		errs = append(errs, i.Redis.Close())
	}
	if i.DB != nil {
		errs = append(errs, i.DB.Close())
	}
	if i.Firestore != nil {
		errs = append(errs, i.Firestore.Close())
	}
	if i.SecretManager != nil {
		errs = append(errs, i.SecretManager.Close())
	}
	return errors.Join(errs...)
}
