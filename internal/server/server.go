// Package server exposes the back office over HTTP: page shells, dynamic
// forms and their per-field actions, uploads, lookups, health and metrics.
// Every state-changing request is a form POST answered with a 303 redirect
// back to the page it came from; outcomes travel as flash notices.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/goliatone/go-backoffice/components/lookups"
	"github.com/goliatone/go-backoffice/internal/config"
	"github.com/goliatone/go-backoffice/internal/logging"
	"github.com/goliatone/go-backoffice/internal/metrics"
	"github.com/goliatone/go-backoffice/pkg/editable"
	"github.com/goliatone/go-backoffice/pkg/notify"
	"github.com/goliatone/go-backoffice/pkg/orchestrator"
	"github.com/goliatone/go-backoffice/pkg/pages"
	"github.com/goliatone/go-backoffice/pkg/ratelimit"
	"github.com/goliatone/go-backoffice/pkg/renderers/vanilla"
	"github.com/goliatone/go-backoffice/pkg/upload"
	"github.com/julienschmidt/httprouter"
	"github.com/sirupsen/logrus"
)

// Deps are the collaborators the server routes to. Forms, Editable and
// Uploads are required; the rest are optional.
type Deps struct {
	Forms    *orchestrator.Orchestrator
	Editable *editable.Controller
	Uploads  *upload.Stager
	Shell    *pages.Shell
	Lookups  *lookups.Component
	Flash    *notify.Flash
	Metrics  *metrics.Metrics
	Logger   logrus.FieldLogger
}

// Server is the admin HTTP surface.
type Server struct {
	cfg      config.Server
	forms    *orchestrator.Orchestrator
	editable *editable.Controller
	uploads  *upload.Stager
	shell    *pages.Shell
	lookups  *lookups.Component
	flash    *notify.Flash
	feedback *feedback
	metrics  *metrics.Metrics
	limiter  *ratelimit.Keyed
	log      logrus.FieldLogger
	router   *httprouter.Router
}

// New wires the routes.
func New(cfg config.Server, deps Deps) (*Server, error) {
	if deps.Forms == nil || deps.Editable == nil || deps.Uploads == nil {
		return nil, errors.New("server: forms, editable and uploads are required")
	}
	s := &Server{
		cfg:      cfg,
		forms:    deps.Forms,
		editable: deps.Editable,
		uploads:  deps.Uploads,
		shell:    deps.Shell,
		lookups:  deps.Lookups,
		flash:    deps.Flash,
		feedback: newFeedback(),
		metrics:  deps.Metrics,
		log:      deps.Logger,
	}
	if s.flash == nil {
		s.flash = notify.NewFlash(10)
	}
	if s.log == nil {
		s.log = logging.Discard()
	}
	if cfg.RequestsPerSecond > 0 {
		interval := time.Duration(float64(time.Second) / cfg.RequestsPerSecond)
		s.limiter = ratelimit.NewKeyed(interval, cfg.Burst, cfg.SessionTTL)
	}
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	r := httprouter.New()
	r.RedirectTrailingSlash = true
	r.HandleMethodNotAllowed = true

	r.GET("/healthz", s.handle("/healthz", false, s.health))
	if s.metrics != nil {
		r.Handler(http.MethodGet, "/metrics", s.metrics.Handler())
	}
	r.Handler(http.MethodGet, "/assets/*filepath", http.StripPrefix("/assets/", http.FileServer(http.FS(vanilla.AssetsFS()))))

	r.GET("/previews/:id", s.handle("/previews/:id", true, s.preview))
	if s.lookups != nil {
		r.GET("/api/lookups/:source", s.handle("/api/lookups/:source", true, s.lookup))
	}
	if s.shell != nil {
		r.GET("/pages/:page", s.handle("/pages/:page", true, s.page))
		r.GET("/pages/:page/:tab", s.handle("/pages/:page/:tab", true, s.page))
	}

	r.GET("/forms/:code", s.handle("/forms/:code", true, s.showForm))
	r.POST("/forms/:code", s.handle("/forms/:code", true, s.submitForm))
	r.POST("/forms/:code/fields/:field/toggle", s.handle("/forms/:code/fields/:field/toggle", true, s.toggleField))
	r.POST("/forms/:code/fields/:field/unlock", s.handle("/forms/:code/fields/:field/unlock", true, s.unlockField))
	r.POST("/forms/:code/fields/:field/value", s.handle("/forms/:code/fields/:field/value", true, s.setValue))
	r.POST("/forms/:code/tables/:field/rows", s.handle("/forms/:code/tables/:field/rows", true, s.appendRow))
	r.POST("/forms/:code/tables/:field/rows/:index", s.handle("/forms/:code/tables/:field/rows/:index", true, s.setCells))
	r.POST("/forms/:code/tables/:field/rows/:index/delete", s.handle("/forms/:code/tables/:field/rows/:index/delete", true, s.deleteRow))
	r.POST("/forms/:code/tables/:field/apply", s.handle("/forms/:code/tables/:field/apply", true, s.applyTable))
	r.POST("/forms/:code/uploads/:field", s.handle("/forms/:code/uploads/:field", true, s.stageUpload))
	r.POST("/forms/:code/uploads/:field/confirm", s.handle("/forms/:code/uploads/:field/confirm", true, s.confirmUpload))

	s.router = r
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.recoverer(s.router)
}

// Run serves until ctx is cancelled, then shuts down gracefully. Idle
// session state is swept once per minute.
func (s *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errChan := make(chan error, 1)
	go func() {
		s.log.WithField("addr", s.cfg.Addr).Info("listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case err := <-errChan:
			return fmt.Errorf("server: listen: %w", err)
		case <-ticker.C:
			s.sweep()
		case <-ctx.Done():
			grace := s.cfg.ShutdownTimeout
			if grace <= 0 {
				grace = 10 * time.Second
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("server: shutdown: %w", err)
			}
			return nil
		}
	}
}

func (s *Server) sweep() {
	forms := s.forms.Store().Sweep()
	staged := s.uploads.Sweep()
	limiters := 0
	if s.limiter != nil {
		limiters = s.limiter.Sweep()
	}
	if forms+staged+limiters > 0 {
		s.log.WithFields(logrus.Fields{"forms": forms, "uploads": staged, "limiters": limiters}).Debug("swept idle state")
	}
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
