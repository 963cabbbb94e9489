package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v2"
	"github.com/ieltsdesk/backend/auth"
	"github.com/ieltsdesk/backend/grammar"
	"github.com/ieltsdesk/backend/logger"
	"github.com/ieltsdesk/backend/subm/submsrvc"
	"github.com/klauspost/compress/gzhttp"
)

// GrammarChecker is the grammar service as seen by the handlers.
type GrammarChecker interface {
	Check(ctx context.Context, text string) ([]grammar.Match, error)
}

type Options struct {
	Env            string
	Version        string
	LogLevel       slog.Level
	CorsOrigins    []string
	MaxUploadBytes int64
	StatsInterval  time.Duration
}

type HttpServer struct {
	submSrvc       *submsrvc.SubmSrvc
	teacherAuth    *auth.TeacherAuth
	grammar        GrammarChecker
	router         *chi.Mux
	stats          *statsLogger
	maxUploadBytes int64
}

func NewHttpServer(
	opts Options,
	submSrvc *submsrvc.SubmSrvc,
	teacherAuth *auth.TeacherAuth,
	grammarChecker GrammarChecker,
) *HttpServer {
	router := chi.NewRouter()

	reqLogger := httplog.NewLogger("ielts", httplog.Options{
		LogLevel:         opts.LogLevel,
		Concise:          true,
		RequestHeaders:   false,
		MessageFieldName: "message",
		Tags: map[string]string{
			"version": opts.Version,
			"env":     opts.Env,
		},
	})

	router.Use(httplog.RequestLogger(reqLogger))
	router.Use(requestLoggerInContext)

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.CorsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           3000,
	}))

	statsInterval := opts.StatsInterval
	if statsInterval <= 0 {
		statsInterval = time.Minute
	}
	stats := newStatsLogger(reqLogger.Logger, statsInterval)
	router.Use(stats.middleware)

	maxUpload := opts.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = 20 << 20
	}

	server := &HttpServer{
		submSrvc:       submSrvc,
		teacherAuth:    teacherAuth,
		grammar:        grammarChecker,
		router:         router,
		stats:          stats,
		maxUploadBytes: maxUpload,
	}

	server.routes()

	return server
}

func (httpserver *HttpServer) routes() {
	r := httpserver.router
	r.Get("/", httpserver.banner)

	r.Route("/api", func(r chi.Router) {
		r.Post("/login", httpserver.authLogin)
		r.Post("/submit", httpserver.createSubmission)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireTeacher(httpserver.teacherAuth))

			r.Post("/logout", httpserver.authLogout)
			r.Get("/submissions", httpserver.listSubmissions)
			r.Get("/submissions/{id}", httpserver.getSubmission)
			r.Patch("/submissions/{id}", httpserver.patchSubmission)
			r.Delete("/submissions/{id}", httpserver.deleteSubmission)
			r.Get("/submissions/{id}/grammar-pdf", httpserver.grammarPdf)
			r.Get("/view/{id}", httpserver.viewPdf)
			r.Get("/download/{id}", httpserver.downloadPdf)
			r.Post("/grammar-check", httpserver.grammarCheck)
		})
	})
}

// Handler is the complete handler chain including response compression.
func (httpserver *HttpServer) Handler() http.Handler {
	return gzhttp.GzipHandler(httpserver.router)
}

// Start serves on address until ctx is cancelled, then shuts down
// gracefully.
func (httpserver *HttpServer) Start(ctx context.Context, address string) error {
	srv := &http.Server{
		Addr:              address,
		Handler:           httpserver.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go httpserver.stats.periodicFlush(ctx)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	httpserver.stats.flushStats()
	return nil
}

// requestLoggerInContext hands the request logger to the service layer.
func requestLoggerInContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := logger.WithLogger(r.Context(), httplog.LogEntry(r.Context()))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (httpserver *HttpServer) banner(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("IELTS writing submissions API\n"))
}
