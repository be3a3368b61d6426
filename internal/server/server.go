package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/HimanshuPBohra/chatbotfrontend/internal/config"
	"github.com/HimanshuPBohra/chatbotfrontend/internal/conversation"
	"github.com/HimanshuPBohra/chatbotfrontend/internal/db"
	"github.com/HimanshuPBohra/chatbotfrontend/internal/hrms"
	"github.com/HimanshuPBohra/chatbotfrontend/internal/prompts"
	"github.com/HimanshuPBohra/chatbotfrontend/internal/render"
	"github.com/HimanshuPBohra/chatbotfrontend/internal/store"
	"github.com/HimanshuPBohra/chatbotfrontend/internal/types"
)

const (
	maxBodyBytes  = 64 << 10
	sweepInterval = time.Minute
)

type Server struct {
	router        *chi.Mux
	cfg           config.Config
	backend       conversation.Backend
	catalog       *prompts.Catalog
	renderer      *render.Renderer
	sessions      *store.MemoryStore
	database      *db.DB
	databaseStore *store.DatabaseStore
}

type Option func(*Server)

// WithBackend replaces the HRMS client built from the config.
func WithBackend(b conversation.Backend) Option {
	return func(s *Server) { s.backend = b }
}

func WithCatalog(c *prompts.Catalog) Option {
	return func(s *Server) { s.catalog = c }
}

func NewServer(ctx context.Context, cfg config.Config, opts ...Option) (*Server, error) {
	s := &Server{cfg: cfg}
	for _, opt := range opts {
		opt(s)
	}

	if s.catalog == nil {
		c, err := prompts.Load(cfg.PromptsFile)
		if err != nil {
			return nil, err
		}
		s.catalog = c
	}
	if s.backend == nil {
		client, err := NewHRMSClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		s.backend = client
	}
	if cfg.DatabaseURL != "" {
		database, err := db.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, errors.Wrap(err, "initialize database")
		}
		log.Info().Msg("database connection established")
		if cfg.AutoMigrate {
			if err := database.RunMigrations(ctx, cfg.MigrationsDir); err != nil {
				_ = database.Close()
				return nil, errors.Wrap(err, "run migrations")
			}
		}
		s.database = database
	}
	if s.database != nil {
		s.databaseStore = store.NewDatabaseStore(s.database)
	} else {
		log.Info().Msg("DB_URL not set; leave submissions will not be recorded")
	}

	s.renderer = render.New(s.catalog)
	s.sessions = store.NewMemoryStore(s.newController, cfg.SessionTTL)
	s.router = chi.NewRouter()
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)
	s.router.Use(requestLogger)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.AllowedOrigin},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Requested-With", SessionHeader},
		ExposedHeaders:   []string{SessionHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	s.routes()
	return s, nil
}

// NewHRMSClient builds the backend client, authenticated with OAuth2 client
// credentials when they are configured.
func NewHRMSClient(ctx context.Context, cfg config.Config) (*hrms.Client, error) {
	opts := []hrms.Option{hrms.WithTimeout(cfg.HRMSTimeout)}
	if cfg.OAuth.Enabled() {
		opts = append(opts, hrms.WithHTTPClient(hrms.NewCredentialsHTTPClient(ctx, cfg.OAuth, cfg.HRMSTimeout)))
		log.Info().Str("token_url", cfg.OAuth.TokenURL).Msg("hrms client uses oauth2 client credentials")
	}
	return hrms.NewClient(cfg.BackendURL, opts...)
}

func (s *Server) routes() {
	s.router.Get("/api/health", s.handleHealth)
	s.router.Get("/api/quick-actions", s.handleQuickActions)
	s.router.Post("/api/chat", s.handleChat)
	s.router.Post("/api/chat/select", s.handleSelect)
	s.router.Post("/api/leave/balance", s.handleBalance)
	s.router.Get("/api/leave/submissions", s.handleSubmissions)
	s.router.Get("/api/transcript", s.handleTranscript)
	s.router.Delete("/api/session", s.handleDeleteSession)
}

func (s *Server) Router() http.Handler { return s.router }

// Run serves on addr until ctx is cancelled, sweeping idle sessions in the
// background.
func (s *Server) Run(ctx context.Context, addr string) error {
	go s.sessions.RunSweeper(ctx, sweepInterval)

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("hrms assistant listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "shutdown")
	}
	return nil
}

func (s *Server) Close() error {
	if s.database != nil {
		return s.database.Close()
	}
	return nil
}

func (s *Server) newController(sessionID string) (*conversation.Controller, error) {
	opts := []conversation.Option{
		conversation.WithCatalog(s.catalog),
		conversation.WithUserID(s.cfg.UserID),
		conversation.WithCallTimeout(s.cfg.HRMSTimeout),
		conversation.WithSessionID(sessionID),
		conversation.WithLogger(log.Logger),
	}
	if s.databaseStore != nil {
		opts = append(opts, conversation.WithRecorder(s.databaseStore))
	}
	return conversation.New(s.backend, opts...)
}

// session returns the caller's controller, starting a new session (and
// setting the cookie) when the request carries no live one.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (string, *conversation.Controller, error) {
	sid := getSessionID(r)
	if sid == "" {
		sid = newSessionID()
	}
	ctl, created, err := s.sessions.GetOrCreate(sid)
	if err != nil {
		return "", nil, err
	}
	if created {
		log.Debug().Str("session", sid).Str("path", r.URL.Path).Msg("session started")
	}
	SetSessionCookie(w, r, sid, s.cfg.SessionTTL)
	w.Header().Set(SessionHeader, sid)
	return sid, ctl, nil
}

func (s *Server) respond(w http.ResponseWriter, sid string, ctl *conversation.Controller, msgs []conversation.Message) {
	views := make([]types.MessageView, 0, len(msgs))
	for _, m := range msgs {
		views = append(views, types.MessageView{Message: m, View: s.renderer.Render(m)})
	}
	writeJSON(w, http.StatusOK, types.ChatResponse{
		SessionID: sid,
		Step:      ctl.Step(),
		Messages:  views,
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("write response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, types.ErrorResponse{Error: msg})
}

// requestLogger logs one line per request with the chi request id.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			log.Info().
				Str("request_id", middleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Msg("request")
		}()
		next.ServeHTTP(ww, r)
	})
}
