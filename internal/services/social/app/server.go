// Package app assembles the social service process: storage, cache,
// engines, and the HTTP surface.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/openplaza/plaza/internal/platform/config"
	"github.com/openplaza/plaza/internal/platform/timeouts"
	"github.com/openplaza/plaza/internal/services/social/api/rest"
	"github.com/openplaza/plaza/internal/services/social/cache"
	"github.com/openplaza/plaza/internal/services/social/cache/badgercache"
	"github.com/openplaza/plaza/internal/services/social/cache/memory"
	"github.com/openplaza/plaza/internal/services/social/domain"
	"github.com/openplaza/plaza/internal/services/social/media"
	socialsqlite "github.com/openplaza/plaza/internal/services/social/storage/sqlite"
)

// socialServerEnv captures startup defaults for the social process.
type socialServerEnv struct {
	DBPath    string `env:"PLAZA_SOCIAL_DB_PATH"`
	CacheDir  string `env:"PLAZA_SOCIAL_CACHE_DIR"`
	MediaDir  string `env:"PLAZA_SOCIAL_MEDIA_DIR"`
	JWTSecret string `env:"PLAZA_SOCIAL_JWT_SECRET"`
}

func loadSocialServerEnv() socialServerEnv {
	var cfg socialServerEnv
	_ = config.ParseEnv(&cfg)
	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join("data", "social.db")
	}
	if cfg.MediaDir == "" {
		cfg.MediaDir = filepath.Join("data", "media")
	}
	return cfg
}

// Config defines the inputs for the social service process.
type Config struct {
	HTTPAddr string
}

// Run builds a server on the given port and serves until the context ends.
func Run(ctx context.Context, port int) error {
	server, err := NewServer(ctx, Config{HTTPAddr: fmt.Sprintf(":%d", port)})
	if err != nil {
		return fmt.Errorf("init social server: %w", err)
	}
	defer server.Close()
	return server.ListenAndServe(ctx)
}

// Server hosts the social JSON API over its storage and cache stack.
type Server struct {
	httpAddr   string
	httpServer *http.Server
	store      *socialsqlite.Store
	cacheStore cache.Store
}

// NewServer wires storage, cache, media, engines, and HTTP routing.
//
// The cache store is durable badger when PLAZA_SOCIAL_CACHE_DIR is set
// and an in-process map otherwise; both are eviction targets only.
func NewServer(ctx context.Context, cfg Config) (*Server, error) {
	httpAddr := strings.TrimSpace(cfg.HTTPAddr)
	if httpAddr == "" {
		return nil, errors.New("http address is required")
	}

	env := loadSocialServerEnv()
	store, err := openSocialStore(env.DBPath)
	if err != nil {
		return nil, err
	}

	var cacheStore cache.Store
	if env.CacheDir != "" {
		badgerStore, err := badgercache.Open(env.CacheDir)
		if err != nil {
			closeStore(store, nil)
			return nil, fmt.Errorf("open badger cache: %w", err)
		}
		cacheStore = badgerStore
	} else {
		cacheStore = memory.New()
	}
	invalidator := cache.NewInvalidator(cacheStore)

	mediaStore, err := media.NewDiskStore(env.MediaDir)
	if err != nil {
		closeStore(store, cacheStore)
		return nil, fmt.Errorf("open media store: %w", err)
	}

	engine := domain.NewEngine(store, invalidator, nil, nil)
	cascade := domain.NewCascade(store, invalidator, mediaStore)

	handler := rest.NewHandler(rest.Config{
		Store:       store,
		Engine:      engine,
		Cascade:     cascade,
		Invalidator: invalidator,
		Media:       mediaStore,
		Auth:        rest.NewAuthenticator([]byte(env.JWTSecret)),
	})

	httpServer := &http.Server{
		Addr:              httpAddr,
		Handler:           otelhttp.NewHandler(withRequestTimeout(handler), "social"),
		ReadHeaderTimeout: timeouts.ReadHeader,
	}

	return &Server{
		httpAddr:   httpAddr,
		httpServer: httpServer,
		store:      store,
		cacheStore: cacheStore,
	}, nil
}

// withRequestTimeout bounds each request's context so slow storage or
// notification work cannot hold a connection open indefinitely.
func withRequestTimeout(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), timeouts.Request)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ListenAndServe runs the HTTP server until the context ends.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s == nil {
		return errors.New("social server is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	serveErr := make(chan error, 1)
	log.Printf("social listening on %s", s.httpAddr)
	go func() {
		serveErr <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		err := s.httpServer.Shutdown(shutdownCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	}
}

// Close releases storage and cache resources held by the server.
func (s *Server) Close() {
	if s == nil {
		return
	}
	closeStore(s.store, s.cacheStore)
}

func closeStore(store *socialsqlite.Store, cacheStore cache.Store) {
	if store != nil {
		if err := store.Close(); err != nil {
			log.Printf("close social store: %v", err)
		}
	}
	if closer, ok := cacheStore.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			log.Printf("close cache store: %v", err)
		}
	}
}

func openSocialStore(path string) (*socialsqlite.Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}
	store, err := socialsqlite.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open social sqlite store: %w", err)
	}
	return store, nil
}
