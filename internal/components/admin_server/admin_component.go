package admin_server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/grand-thief-cash/humble/internal/components/logging"
	prom "github.com/grand-thief-cash/humble/internal/components/prometheus"
	"github.com/grand-thief-cash/humble/internal/consts"
	"github.com/grand-thief-cash/humble/internal/core"
	"github.com/grand-thief-cash/humble/internal/listener"
)

// StatsProvider is implemented by the listener component.
type StatsProvider interface {
	Stats() listener.Stats
}

// AdminServerComponent exposes /healthz, /status and /metrics over plain HTTP.
type AdminServerComponent struct {
	*core.BaseComponent
	cfg       *Config
	container *core.Container
	router    chi.Router
	server    *http.Server
	ln        net.Listener
	served    chan struct{}
}

func NewAdminServerComponent(cfg *Config, c *core.Container) *AdminServerComponent {
	return &AdminServerComponent{
		BaseComponent: core.NewBaseComponent(consts.COMPONENT_ADMIN_SERVER,
			consts.COMPONENT_LOGGING,
			consts.COMPONENT_LISTENER+core.OptionalSuffix,
			consts.COMPONENT_PROMETHEUS+core.OptionalSuffix,
		),
		cfg:       cfg,
		container: c,
	}
}

func (ac *AdminServerComponent) Router() chi.Router { return ac.router }

// Addr is the bound address once started.
func (ac *AdminServerComponent) Addr() net.Addr {
	if ac.ln == nil {
		return nil
	}
	return ac.ln.Addr()
}

func (ac *AdminServerComponent) Start(ctx context.Context) error {
	ac.cfg.applyDefaults()
	ac.router = chi.NewRouter()
	ac.setupMiddlewares()
	ac.router.Get("/healthz", ac.healthHandler)
	ac.router.Get("/status", ac.statusHandler)
	if *ac.cfg.EnableMetrics {
		if c := prom.C(); c != nil {
			ac.router.Handle(c.Path(), c.Handler())
		}
	}

	ln, err := net.Listen("tcp", ac.cfg.Address)
	if err != nil {
		return fmt.Errorf("admin_server listen on %s: %w", ac.cfg.Address, err)
	}
	ac.ln = ln
	ac.server = &http.Server{
		Handler:           ac.router,
		ReadTimeout:       ac.cfg.ReadTimeout,
		ReadHeaderTimeout: ac.cfg.ReadTimeout,
		WriteTimeout:      ac.cfg.WriteTimeout,
	}
	ac.served = make(chan struct{})

	go func() {
		defer close(ac.served)
		logging.Infof(context.Background(), "admin_server listening on %s", ln.Addr())
		if err := ac.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Errorf(context.Background(), "admin_server error: %v", err)
		}
	}()
	return ac.BaseComponent.Start(ctx)
}

func (ac *AdminServerComponent) Stop(ctx context.Context) error {
	defer ac.BaseComponent.Stop(ctx)
	if ac.server == nil {
		return nil
	}
	stopCtx, cancel := context.WithTimeout(ctx, ac.cfg.GracefulTimeout)
	defer cancel()
	if err := ac.server.Shutdown(stopCtx); err != nil {
		return fmt.Errorf("admin_server graceful shutdown failed: %w", err)
	}
	<-ac.served
	logging.Info(ctx, "admin_server stopped")
	return nil
}

func (ac *AdminServerComponent) HealthCheck() error {
	if err := ac.BaseComponent.HealthCheck(); err != nil {
		return err
	}
	if ac.server == nil {
		return fmt.Errorf("admin_server not started")
	}
	return nil
}

type componentHealth struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// healthHandler reports every registered component; any failure turns the
// response into a 503.
func (ac *AdminServerComponent) healthHandler(w http.ResponseWriter, r *http.Request) {
	registered := ac.container.ListRegistered()
	names := make([]string, 0, len(registered))
	for name := range registered {
		names = append(names, name)
	}
	sort.Strings(names)

	status := http.StatusOK
	report := make([]componentHealth, 0, len(names))
	for _, name := range names {
		h := componentHealth{Name: name, Status: "ok"}
		if err := registered[name].HealthCheck(); err != nil {
			h.Status, h.Error = "down", err.Error()
			status = http.StatusServiceUnavailable
		}
		report = append(report, h)
	}
	writeJSON(w, status, map[string]any{"components": report})
}

func (ac *AdminServerComponent) statusHandler(w http.ResponseWriter, r *http.Request) {
	comp, err := ac.container.Resolve(consts.COMPONENT_LISTENER)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	sp, ok := comp.(StatsProvider)
	if !ok {
		writeJSON(w, http.StatusNotImplemented, map[string]string{"error": "listener does not report stats"})
		return
	}
	writeJSON(w, http.StatusOK, sp.Stats())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (ac *AdminServerComponent) setupMiddlewares() {
	ac.router.Use(middleware.RequestID)
	ac.router.Use(middleware.RealIP)
	ac.router.Use(middleware.Recoverer)
	ac.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logging.Debug(r.Context(), "admin_access",
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.String("remote", r.RemoteAddr),
				zap.Duration("dur", time.Since(start)),
			)
		})
	})
}
