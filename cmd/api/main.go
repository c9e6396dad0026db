// cmd/api/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"go.uber.org/zap"

	"storefront/internal/adapters/in/http/handlers/common"
	"storefront/internal/adapters/in/http/middleware"
	appcfg "storefront/internal/infra/config"
	"storefront/internal/infra/logging"
	di "storefront/internal/platform/di"
	shared "storefront/internal/platform/di/shared"
)

// atomicHandler allows swapping the underlying handler at runtime safely.
type atomicHandler struct {
	v atomic.Value // stores http.Handler
}

func newAtomicHandler(initial http.Handler) *atomicHandler {
	ah := &atomicHandler{}
	if initial == nil {
		initial = http.NotFoundHandler()
	}
	ah.v.Store(initial)
	return ah
}

func (h *atomicHandler) Store(next http.Handler) {
	if next == nil {
		return
	}
	h.v.Store(next)
}

func (h *atomicHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	cur := h.v.Load()
	if cur == nil {
		http.NotFound(w, r)
		return
	}
	cur.(http.Handler).ServeHTTP(w, r)
}

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		// logger 未初期化のため stderr へ
		_, _ = os.Stderr.WriteString("[boot] config: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger, err := logging.New(cfg.AppEnv, os.Getenv("LOG_LEVEL"))
	if err != nil {
		_, _ = os.Stderr.WriteString("[boot] logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	log := logger.Named("boot")

	// ─────────────────────────────────────────────────────────────
	// Start listening ASAP with lightweight mux (healthz only)
	// ─────────────────────────────────────────────────────────────
	healthMux := http.NewServeMux()
	healthMux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		common.WriteJSON(w, http.StatusOK, map[string]string{"status": "starting"})
	})
	switcher := newAtomicHandler(middleware.CORS(cfg.CORSAllowedOrigins)(healthMux))

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      switcher,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	var (
		infraHolder atomic.Pointer[shared.Infra]
		contHolder  atomic.Pointer[di.Container]
	)
	shuttingDown := make(chan struct{})

	// ─────────────────────────────────────────────────────────────
	// Graceful shutdown
	// ─────────────────────────────────────────────────────────────
	idleConnsClosed := make(chan struct{})
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
		sig := <-c

		close(shuttingDown)
		log.Info("shutting down", zap.String("signal", sig.String()))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown error", zap.Error(err))
		}

		// pending impressions are flushed before the store goes away
		if cont := contHolder.Swap(nil); cont != nil {
			if err := cont.Close(); err != nil {
				log.Error("container close error", zap.Error(err))
			}
		}
		if infra := infraHolder.Swap(nil); infra != nil {
			if err := infra.Close(); err != nil {
				log.Error("infra close error", zap.Error(err))
			}
		}

		close(idleConnsClosed)
	}()

	go func() {
		log.Info("listening", zap.String("port", cfg.Port), zap.String("backend", cfg.StoreBackend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	// ─────────────────────────────────────────────────────────────
	// Heavy DI init in background; then swap handler to full router
	// ─────────────────────────────────────────────────────────────
	go func() {
		initCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		infra, err := shared.NewInfra(initCtx, cfg, logger)
		if err != nil {
			log.Error("shared infra init failed (serving /healthz only)", zap.Error(err))
			return
		}
		infraHolder.Store(infra)

		cont, err := di.NewContainer(initCtx, infra)
		if err != nil {
			if infra := infraHolder.Swap(nil); infra != nil {
				_ = infra.Close()
			}
			log.Error("di init failed (serving /healthz only)", zap.Error(err))
			return
		}
		contHolder.Store(cont)

		select {
		case <-shuttingDown:
			if c := contHolder.Swap(nil); c != nil {
				_ = c.Close()
			}
			if i := infraHolder.Swap(nil); i != nil {
				_ = i.Close()
			}
			return
		default:
		}

		switcher.Store(cont.Handler())
		log.Info("handler switched to application router")
	}()

	<-idleConnsClosed
	log.Info("server stopped")
}
