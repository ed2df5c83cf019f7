// Package server provides the HTTP JSON API for resume reviews.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"reflect"
	"strings"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jonathan/resume-reviewer/internal/logging"
	"github.com/jonathan/resume-reviewer/internal/review"
	"github.com/jonathan/resume-reviewer/internal/roleindex"
	"github.com/jonathan/resume-reviewer/internal/server/ratelimit"
	"github.com/sirupsen/logrus"
)

// Defaults for Config.
const (
	DefaultQueryK       = 5
	MaxQueryK           = 20
	DefaultMaxBodyBytes = 1 << 20
	DefaultMaxUpload    = 10 << 20
	shutdownTimeout     = 30 * time.Second
)

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	handler     http.Handler
	reviewer    *review.Reviewer
	kb          roleindex.LoadResult
	rateLimiter *ratelimit.Limiter
	validate    *validator.Validate
	log         logrus.FieldLogger

	queryK       int
	maxBodyBytes int64
	maxUpload    int64
}

// Config holds server configuration
type Config struct {
	Port          int
	KnowledgeBase roleindex.LoadResult
	Reviewer      *review.Reviewer
	Logger        logrus.FieldLogger
	RateLimit     *ratelimit.Config // nil uses ratelimit.LoadConfig
	QueryK        int
	MaxUpload     int64
}

// New creates a new server instance. The reviewer must be built over the
// same knowledge base passed in cfg.
func New(cfg Config) (*Server, error) {
	if cfg.Reviewer == nil {
		return nil, fmt.Errorf("reviewer is required")
	}
	if cfg.QueryK <= 0 || cfg.QueryK > MaxQueryK {
		cfg.QueryK = DefaultQueryK
	}
	if cfg.MaxUpload <= 0 {
		cfg.MaxUpload = DefaultMaxUpload
	}
	rlCfg := cfg.RateLimit
	if rlCfg == nil {
		rlCfg = ratelimit.LoadConfig()
	}

	s := &Server{
		reviewer:     cfg.Reviewer,
		kb:           cfg.KnowledgeBase,
		rateLimiter:  ratelimit.NewLimiter(rlCfg),
		validate:     newValidator(),
		log:          logging.OrDiscard(cfg.Logger),
		queryK:       cfg.QueryK,
		maxBodyBytes: DefaultMaxBodyBytes,
		maxUpload:    cfg.MaxUpload,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /roles", s.handleRoles)
	mux.HandleFunc("POST /review", s.handleReview)
	mux.HandleFunc("POST /review/upload", s.handleReviewUpload)
	mux.HandleFunc("POST /score", s.handleScore)
	mux.HandleFunc("POST /predict", s.handlePredict)
	mux.HandleFunc("POST /query", s.handleQuery)

	s.handler = s.withRateLimit(s.withLogging(s.withCORS(mux)))
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      120 * time.Second, // feedback generation is slow
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start listens until ctx is cancelled or the process receives SIGINT or
// SIGTERM, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer s.rateLimiter.Stop()

	errCh := make(chan error, 1)
	go func() {
		s.log.WithFields(logrus.Fields{
			"addr":           s.httpServer.Addr,
			"knowledge_base": s.kb.Status,
		}).Info("server starting")
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.log.Info("server stopped")
	return nil
}

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// decodeJSON reads a size-limited JSON body into dst and validates it.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, s.maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return &ErrPayloadTooLarge{Limit: tooLarge.Limit}
		}
		return &ErrValidation{Field: "body", Message: "invalid JSON: " + err.Error()}
	}
	return s.validateStruct(dst)
}

func (s *Server) validateStruct(v any) error {
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		msg := "failed " + fe.Tag()
		if fe.Param() != "" {
			msg += "=" + fe.Param()
		}
		return &ErrValidation{Field: fe.Field(), Message: msg}
	}
	return &ErrValidation{Field: "body", Message: err.Error()}
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.WithError(err).Error("failed to encode JSON response")
	}
}

// errorResponse writes an error JSON response with the status for err.
func (s *Server) errorResponse(w http.ResponseWriter, err error) {
	status := HTTPStatus(err)
	if status >= 500 && status != http.StatusServiceUnavailable {
		s.log.WithError(err).Error("request failed")
	}
	s.jsonResponse(w, status, map[string]string{"error": err.Error()})
}
