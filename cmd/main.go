package main

import (
	"context"
	"crypto/sha256"
	"errors"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/csrf"
	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"

	"github.com/s/lmsPortal/internal/api"
	"github.com/s/lmsPortal/internal/cache"
	"github.com/s/lmsPortal/internal/config"
	"github.com/s/lmsPortal/internal/database"
	"github.com/s/lmsPortal/internal/handlers"
	"github.com/s/lmsPortal/internal/handlers/teacher"
	"github.com/s/lmsPortal/internal/middleware"
	"github.com/s/lmsPortal/internal/session"
	"github.com/s/lmsPortal/internal/storage"
)

func main() {
	// ---------------------------
	// 0. Configuration
	// ---------------------------
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Config error: ", err)
	}

	// ---------------------------
	// 1. Sessions: cookie by default, redis when asked
	// ---------------------------
	var rdb *redis.Client
	if cfg.Session.Backend == config.SessionBackendRedis {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			log.Fatal("Invalid REDIS_URL: ", err)
		}
		rdb = redis.NewClient(opts)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err = rdb.Ping(ctx).Err()
		cancel()
		if err != nil {
			log.Fatal("Redis is unreachable: ", err)
		}
		defer rdb.Close()
		log.Println("Sessions are stored in redis")
	}

	cookies := session.NewCookieStore(cfg.Session.Key, cfg.Session.MaxAge, cfg.Session.Secure)
	var sessions *session.Manager
	if rdb != nil {
		sessions = session.NewManager(cookies, rdb, time.Duration(cfg.Session.MaxAge)*time.Second)
	} else {
		sessions = session.NewManager(cookies, nil, 0)
	}

	// ---------------------------
	// 2. Activity log (optional database)
	// ---------------------------
	var activity storage.Activity = storage.Nop{}
	if cfg.Database.URL != "" {
		db, err := database.Connect(cfg.Database.URL)
		if err != nil {
			log.Fatal("Database connection error: ", err)
		}
		if err := database.AutoMigrate(db); err != nil {
			log.Fatal("Migration error: ", err)
		}
		activity = storage.NewGormActivity(db)
	} else {
		log.Println("DATABASE_URL is not set, activity log disabled")
	}

	// ---------------------------
	// 3. Backend client and per-user caches
	// ---------------------------
	client := api.New(cfg.Backend.BaseURL, &http.Client{Timeout: cfg.Backend.Timeout}).
		WithToken(session.TokenFromContext)

	caches := cache.NewRegistry(cfg.Cache.TTL, time.Minute, func() *cache.Data {
		return cache.NewData(cache.FromClient(client))
	})
	defer caches.Close()

	// ---------------------------
	// 4. Routing
	// ---------------------------
	h := handlers.NewHandler(client, sessions, caches, activity)

	r := mux.NewRouter()
	h.Register(r)
	teacher.Service{Handler: h}.Register(r)

	// ---------------------------
	// 5. Middleware chain: cors -> logging -> csrf -> router
	// ---------------------------
	csrfKey := cfg.Server.CSRFKey
	if csrfKey == "" {
		csrfKey = cfg.Session.Key
	}
	sum := sha256.Sum256([]byte(csrfKey))
	protect := csrf.Protect(sum[:],
		csrf.Secure(cfg.Session.Secure),
		csrf.Path("/"),
		csrf.FieldName("csrf_token"),
		csrf.TrustedOrigins(originHosts(cfg.Server.AllowedOrigins)),
	)

	var handler http.Handler = protect(r)
	if !cfg.Session.Secure {
		handler = plaintext(handler)
	}
	handler = middleware.Logging(handler)
	handler = cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost},
		AllowedHeaders:   []string{"Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: true,
	}).Handler(handler)

	// ---------------------------
	// 6. Serve until interrupted
	// ---------------------------
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("Server started: http://localhost:%s (backend %s)", cfg.Server.Port, cfg.Backend.BaseURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server error: ", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Println("Shutdown error:", err)
	}
}

// plaintext marks requests as plain HTTP so csrf skips its TLS-only
// referer check during local development.
func plaintext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, csrf.PlaintextHTTPRequest(r))
	})
}

func originHosts(origins []string) []string {
	hosts := make([]string, 0, len(origins))
	for _, o := range origins {
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			hosts = append(hosts, u.Host)
		}
	}
	return hosts
}
