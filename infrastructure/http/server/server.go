package server

import (
	"log/slog"
	"net/http"
	"time"

	"traceforge/ai"
	"traceforge/auth"
	"traceforge/contract"
	"traceforge/observability"
	"traceforge/services"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

type Dependencies struct {
	AuthService services.IAuthService
	ChatService services.IChatService
	Issuer      auth.TokenIssuer
	Registry    contract.IRegistry
	// Monitoring may be nil.
	Monitoring *observability.MonitoringManager
	// AI routes are only registered when Globalizer is set.
	Globalizer  *ai.Globalizer
	Transcriber ai.Transcriber
}

type Options struct {
	AllowedOrigins       []string
	ConnectionBufferSize int
	// AIRatePerMinute bounds upstream calls for the whole process.
	AIRatePerMinute int
}

// Server is the HTTP and WebSocket presentation layer.
type Server struct {
	deps      Dependencies
	opts      Options
	log       *slog.Logger
	upgrader  websocket.Upgrader
	aiLimiter *rate.Limiter
}

func NewServer(deps Dependencies, opts Options, log *slog.Logger) *Server {
	if opts.ConnectionBufferSize <= 0 {
		opts.ConnectionBufferSize = 16
	}
	s := &Server{deps: deps, opts: opts, log: log, upgrader: newUpgrader(opts.AllowedOrigins)}
	if opts.AIRatePerMinute > 0 {
		s.aiLimiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.AIRatePerMinute)), opts.AIRatePerMinute)
	}
	return s
}

// Router wires every route. Everything but register, login, health and the
// WebSocket endpoint needs a bearer token.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/register", s.Register).Methods(http.MethodPost)
	api.HandleFunc("/login", s.Login).Methods(http.MethodPost)
	api.HandleFunc("/health", s.Health).Methods(http.MethodGet)

	protected := api.NewRoute().Subrouter()
	protected.Use(auth.Middleware(s.deps.Issuer))
	protected.HandleFunc("/messages", s.GetMessages).Methods(http.MethodGet)
	protected.HandleFunc("/messages", s.PostMessage).Methods(http.MethodPost)
	protected.HandleFunc("/messages/search", s.SearchMessages).Methods(http.MethodGet)

	if s.deps.Globalizer != nil {
		llm := protected.NewRoute().Subrouter()
		llm.Use(s.rateLimit)
		llm.HandleFunc("/globalize", s.Globalize).Methods(http.MethodPost)
		llm.HandleFunc("/code", s.GenerateCode).Methods(http.MethodPost)
		if s.deps.Transcriber != nil {
			llm.HandleFunc("/transcribe", s.Transcribe).Methods(http.MethodPost)
		}
	}

	r.HandleFunc("/ws", s.HandleWebSocket).Methods(http.MethodGet)
	return r
}

func (s *Server) messageSent() {
	if s.deps.Monitoring != nil {
		s.deps.Monitoring.IncrMessagesSent()
	}
}

func (s *Server) loginFailed() {
	if s.deps.Monitoring != nil {
		s.deps.Monitoring.IncrLoginFailures()
	}
}
