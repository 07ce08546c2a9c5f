package http

// this is entry point of the http request handlers

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gitlab.com/judge-relay.net/internal/core/ports/primary"
	"gitlab.com/judge-relay.net/internal/core/services/callback"
	"gitlab.com/judge-relay.net/internal/core/services/hub"
	"gitlab.com/judge-relay.net/internal/core/services/polling"
	"gitlab.com/judge-relay.net/internal/core/services/standing"
	"gitlab.com/judge-relay.net/internal/core/services/submission"
	"gitlab.com/judge-relay.net/internal/core/services/worker"
	"gitlab.com/judge-relay.net/internal/handlers"
	"gitlab.com/judge-relay.net/internal/handlers/live"
	pollinghdl "gitlab.com/judge-relay.net/internal/handlers/polling"
	"gitlab.com/judge-relay.net/internal/handlers/response"
	"gitlab.com/judge-relay.net/internal/handlers/results"
	"gitlab.com/judge-relay.net/internal/handlers/submissions"
	"gitlab.com/judge-relay.net/internal/handlers/webhook"
	"gitlab.com/judge-relay.net/internal/handlers/workers"
)

type ServiceProvider struct {
	submissionService submission.ISubmissionService
	callbackService   callback.ICallbackService
	pollingGateway    polling.IPollingGateway
	standingService   standing.IStandingService
	workerService     worker.IWorkerRegistrationService
	hub               hub.IHub
	tokenVerifier     primary.TokenVerifier
}

// NewServiceProvider bundles the services behind the routes. workerService
// may be nil when no TCP worker registry is running.
func NewServiceProvider(
	submissionService submission.ISubmissionService,
	callbackService callback.ICallbackService,
	pollingGateway polling.IPollingGateway,
	standingService standing.IStandingService,
	workerService worker.IWorkerRegistrationService,
	liveHub hub.IHub,
	tokenVerifier primary.TokenVerifier,
) *ServiceProvider {
	return &ServiceProvider{
		submissionService: submissionService,
		callbackService:   callbackService,
		pollingGateway:    pollingGateway,
		standingService:   standingService,
		workerService:     workerService,
		hub:               liveHub,
		tokenVerifier:     tokenVerifier,
	}
}

type Server struct {
	router          *mux.Router
	Port            int
	ServiceName     string
	ServiceProvider ServiceProvider
	WebhookSecret   string
	gatherer        prometheus.Gatherer
	logger          primary.Logger
	live            *live.LiveHandler
	srv             *http.Server
}

func NewServer(port int, serviceName string, serviceProvider ServiceProvider, webhookSecret string, gatherer prometheus.Gatherer, logger primary.Logger) *Server {
	return &Server{
		Port:            port,
		ServiceName:     serviceName,
		ServiceProvider: serviceProvider,
		WebhookSecret:   webhookSecret,
		gatherer:        gatherer,
		logger:          logger,
	}
}

func (s *Server) Init() error {
	sp := s.ServiceProvider
	if sp.submissionService == nil || sp.callbackService == nil || sp.pollingGateway == nil ||
		sp.standingService == nil || sp.hub == nil || sp.tokenVerifier == nil {
		return errors.New("http server: missing service dependency")
	}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		response.WriteSuccess(w, map[string]string{"status": "ok", "service": s.ServiceName})
	}).Methods(http.MethodGet)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	webhook.NewWebhookHandler(sp.callbackService, s.WebhookSecret, s.logger).RegisterRoutes(r)
	pollinghdl.NewPollingHandler(sp.pollingGateway).RegisterRoutes(r)
	s.live = live.NewLiveHandler(sp.hub, s.logger)
	s.live.RegisterRoutes(r)

	mw := handlers.New(sp.tokenVerifier, s.logger)
	api := r.PathPrefix("/api").Subrouter()
	api.Use(mw.JWTMiddleware)

	submissionHandler := submissions.NewSubmissionHandler(sp.submissionService, s.logger)
	submissionHandler.RegisterRoutes(api)
	results.NewResultHandler(sp.standingService).RegisterRoutes(api)

	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(mw.AdminOnly)
	submissionHandler.RegisterAdminRoutes(admin)
	if sp.workerService != nil {
		workers.NewHandler(sp.workerService).Register(admin)
	}

	s.router = r
	return nil
}

// Handler is the routed handler, valid after Init
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start(ctx context.Context) {
	s.srv = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
		BaseContext:  func(_ net.Listener) context.Context { return ctx },
	}

	go func() {
		s.logger.Info("Server listening", "addr", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()
}

// Stop closes live connections and drains in-flight requests
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Shutting down http server...")
	if s.live != nil {
		s.live.CloseAll()
	}
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}
