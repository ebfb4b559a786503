package platform

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"chabench/ui"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTPServerConfig holds HTTP server tunables.
type HTTPServerConfig struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	EnableTLS    bool
	CertFile     string
	KeyFile      string
	CookieKey    string
}

// Session middleware to assign/load session ID and set in context
func SessionMiddleware(store *sessions.CookieStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, _ := store.Get(r, "chabench")
			id, ok := sess.Values["id"].(string)
			if !ok || id == "" {
				id = uuid.NewString()
				sess.Values["id"] = id
				sess.Options = &sessions.Options{
					Path:     "/",
					MaxAge:   60 * 60 * 24 * 7, // 1 week
					HttpOnly: true,
					Secure:   r.TLS != nil,
					SameSite: http.SameSiteLaxMode,
				}
				_ = sess.Save(r, w)
			}
			ctx := context.WithValue(r.Context(), sessionCtxKey{}, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RunHTTPServer starts an HTTP server and returns a channel that will receive
// an error when the server exits (gracefully or not).
func RunHTTPServer(ctx context.Context, sys *System, cfg HTTPServerConfig, svcCfg ServiceConfig) <-chan error {
	errCh := make(chan error, 1)

	cookieStore := sessions.NewCookieStore([]byte(cfg.CookieKey))

	r := chi.NewRouter()
	r.Use(SessionMiddleware(cookieStore))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(chiLogger)
	r.Use(middleware.Recoverer)

	// metrics endpoint
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	bind := func(ctx context.Context, sid, workspaceID string) error {
		kv, err := sys.JS.KeyValue(ctx, "sessions")
		if err != nil {
			return err
		}
		if workspaceID == "" {
			return UnbindWorkspace(ctx, kv, sid)
		}
		return BindWorkspace(ctx, kv, sid, workspaceID)
	}

	// application routes
	r.Get("/health", Health)
	r.Get("/", IndexHandler())
	r.Post("/upload", UploadHandler(sys.Gateway, bind, svcCfg.MaxUploadBytes))
	r.Get("/workspace/{workspaceID}", WorkspacePageHandler(sys.Engine, bind))
	r.Post("/workspace/{workspaceID}/execute", ExecuteHandler(sys.Publisher))
	r.Get("/workspace/{workspaceID}/download/{filename}", DownloadHandler(sys.Gateway))
	r.Post("/workspace/{workspaceID}/delete", DeleteHandler(sys.Gateway, sys.Publisher, sys.Engine.Forget, bind))

	// static assets
	staticFS, _ := fs.Sub(ui.StaticFS, "static")
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))
	r.Handle("/favicon.svg", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/svg+xml")
		w.Write(ui.FaviconSVG)
	}))

	r.Get("/ui", UIStream(sys.JS, sys.Engine))

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	go func() {
		// wait for context cancellation then shutdown
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			errCh <- err
			return
		}
		errCh <- ctx.Err()
	}()

	go func() {
		var err error
		if cfg.EnableTLS {
			err = srv.ListenAndServeTLS(cfg.CertFile, cfg.KeyFile)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	return errCh
}

// chiLogger is a lightweight slog adapter for chi middleware.
func chiLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t0 := time.Now()
		next.ServeHTTP(w, r)
		duration := time.Since(t0)
		routePattern := chi.RouteContext(r.Context()).RoutePattern()
		status := http.StatusOK // we don't have after-the-fact status easily w/o wrapper
		HTTPRequestsTotal.WithLabelValues(r.Method, routePattern, fmt.Sprint(status)).Inc()
		HTTPDuration.WithLabelValues(r.Method, routePattern).Observe(duration.Seconds())
		slog.Info("http", "method", r.Method, "path", r.URL.Path, "route", routePattern, "duration", duration)
	})
}

// SessionID returns the session ID from the request context.
type sessionCtxKey struct{}

func SessionID(r *http.Request) string {
	id, _ := r.Context().Value(sessionCtxKey{}).(string)
	return id
}
