package http

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	applog "finman/internal/log"
	"finman/internal/middleware/ratelimit"
	"finman/internal/middleware/security"
	"finman/internal/middleware/trace"
	"finman/internal/services"
	appweb "finman/web"
)

// staticMaxAge is the Cache-Control max-age for embedded assets, in seconds.
const staticMaxAge = 3600

// Options tunes the server beyond its address.
type Options struct {
	// RequestsPerMinute caps writes per client; zero means the limiter default.
	RequestsPerMinute int
	// TrustedProxies are extra CIDRs whose forwarding headers are believed.
	TrustedProxies []string
}

// Server serves the page, the JSON API and the operational endpoints.
type Server struct {
	http.Server
	templates *template.Template
	svc       *services.ExpenseService
	logger    *applog.StructuredLogger
	limiter   *ratelimit.Limiter
	startedAt time.Time

	shutdownOnce sync.Once
}

// NewServer parses the embedded templates and builds the router.
func NewServer(addr string, svc *services.ExpenseService, logger *applog.Logger, opts Options) (*Server, error) {
	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	static, err := fs.Sub(appweb.StaticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("mount static assets: %w", err)
	}

	ips := security.NewClientIPResolver()
	for _, cidr := range opts.TrustedProxies {
		if err := ips.AddTrustedProxy(cidr); err != nil {
			return nil, err
		}
	}

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		templates: t,
		svc:       svc,
		logger:    applog.NewStructuredLogger(logger),
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RequestsPerMinute,
		}),
		startedAt: time.Now(),
	}

	r := chi.NewRouter()
	r.Use(trace.NewMiddleware(logger, ips.ClientIP).Handler)
	r.Use(security.Headers(security.DefaultHeadersConfig()))

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Handle("/metrics", promhttp.Handler())
	r.With(security.StaticAssetMiddleware(staticMaxAge)).
		Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))

	r.Group(func(r chi.Router) {
		r.Use(s.limiter.Middleware(ips.ClientIP))

		r.Get("/", s.handleIndex)
		r.Post("/expenses", s.handleCreateExpense)
		r.Post("/expenses/{id}/delete", s.handleDeleteExpense)

		r.Route("/api", func(r chi.Router) {
			r.Get("/expenses", s.handleAPIListExpenses)
			r.Post("/expenses", s.handleAPICreateExpense)
			r.Delete("/expenses/{id}", s.handleAPIDeleteExpense)
			r.Get("/summary", s.handleAPISummary)
			r.Get("/categories", s.handleAPICategories)
		})
	})

	// h2c lets a reverse proxy speak HTTP/2 to us without TLS; HTTP/1.1
	// clients are served unchanged.
	s.Handler = h2c.NewHandler(r, &http2.Server{})
	return s, nil
}

// Shutdown stops the rate limiter and drains in-flight requests. It is safe
// to call more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func requestID(r *http.Request) string {
	return trace.GetRequestID(r.Context())
}
