package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gregtusar/levgate/internal/config"
	"github.com/gregtusar/levgate/pkg/gateway"
	"github.com/gregtusar/levgate/pkg/models"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const maxRequestBytes = 1 << 20

type Server struct {
	gateway *gateway.Gateway
	logger  *logrus.Logger
	cfg     config.ServerConfig
	router  *mux.Router
	limiter *rate.Limiter
}

func NewServer(gw *gateway.Gateway, logger *logrus.Logger, cfg config.ServerConfig) *Server {
	s := &Server{
		gateway: gw,
		logger:  logger,
		cfg:     cfg,
		router:  mux.NewRouter(),
	}
	if cfg.RateLimit.RPS > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit.RPS), cfg.RateLimit.Burst)
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(s.rateLimitMiddleware)

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.Use(s.authMiddleware)
	api.HandleFunc("/orders", s.handlePlaceOrder).Methods(http.MethodPost)
	api.HandleFunc("/exchanges", s.handleExchanges).Methods(http.MethodGet)

	// Same contract as the legacy single-endpoint function.
	s.router.Handle("/", s.authMiddleware(http.HandlerFunc(s.handlePlaceOrder))).Methods(http.MethodPost)
}

// Handler returns the router wrapped with CORS handling.
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-Client-Info", "apikey", "X-Application-Name"},
	})
	return c.Handler(s.router)
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Infof("Starting API server on port %d", s.cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("Shutting down API server")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
	}

	s.writeJSON(w, http.StatusOK, response)
}

func (s *Server) handleExchanges(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.gateway.Exchanges(r.Context()))
}

func (s *Server) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req models.OrderRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		s.writeResult(w, nil, &gateway.ValidationError{Field: "request body", Reason: err.Error()})
		return
	}

	s.logger.WithFields(logrus.Fields{
		"exchange": req.Exchange,
		"symbol":   req.Symbol,
		"side":     req.Side,
	}).Debug("Order request received")

	result, err := s.gateway.Handle(r.Context(), req)
	s.writeResult(w, result, err)
}

// writeResult sends the order envelope: 200 on success, 500 on any failure.
func (s *Server) writeResult(w http.ResponseWriter, result *models.OrderResult, err error) {
	status := http.StatusOK
	if err != nil {
		status = http.StatusInternalServerError
	}
	s.writeJSON(w, status, gateway.NewResponse(result, err))
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, models.OrderResponse{Success: false, Message: message, Error: message})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.WithError(err).Error("Failed to encode JSON response")
	}
}

func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil && !s.limiter.Allow() {
			s.writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}
