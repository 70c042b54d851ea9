// Command server wires the crawler, ranker, cache, state tracker, and
// progress stream into a single HTTP service (spec §1/§6), following the
// teacher's main.go shape: load config, build the dependency graph,
// register handlers behind compression/timeout middleware, and shut down
// gracefully on SIGINT/SIGTERM.
package main

import (
	"compress/gzip"
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/internal/searchcrawl/internal/api"
	"github.com/internal/searchcrawl/internal/cache"
	"github.com/internal/searchcrawl/internal/config"
	"github.com/internal/searchcrawl/internal/crawler"
	"github.com/internal/searchcrawl/internal/httpclient"
	"github.com/internal/searchcrawl/internal/logger"
	"github.com/internal/searchcrawl/internal/parser"
	"github.com/internal/searchcrawl/internal/ratelimit"
	"github.com/internal/searchcrawl/internal/search"
	"github.com/internal/searchcrawl/internal/state"
	"github.com/internal/searchcrawl/internal/stream"
)

var gzipWriterPool = sync.Pool{
	New: func() interface{} {
		return gzip.NewWriter(nil)
	},
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	appConfig, err := config.LoadConfig()
	if err != nil {
		logger.LogError("Failed to load configuration: %v", err)
		log.Fatalf("Failed to load configuration: %v", err)
	}

	pool := httpclient.New(httpclient.Options{
		MaxConnsPerHost: appConfig.MaxConcurrentRequests,
		Timeout:         appConfig.RequestTimeout,
		MaxContentBytes: appConfig.MaxContentBytes,
	})
	limiter := ratelimit.New(appConfig.RateLimitRPS, appConfig.RateLimitBurst)
	crawl := crawler.New(pool, limiter)
	extract := parser.New()

	var resultCache cache.Cache
	var tracker state.Tracker
	if appConfig.UsesRedis() {
		log.Println("Using Redis cache and state backend")
		resultCache = cache.NewRedisCache(appConfig.RedisAddr(), appConfig.RedisPassword, appConfig.RedisDB, appConfig.SearchCacheTTL)
		tracker = state.NewRedisTracker(appConfig.RedisAddr(), appConfig.RedisPassword, appConfig.RedisDB, appConfig.StateTTL)
	} else {
		log.Println("Using in-memory cache and state backend")
		resultCache = cache.NewMemoryCache(appConfig.SearchCacheTTL)
		tracker = state.NewMemoryTracker()
	}

	orchestrator := search.New(crawl, extract, resultCache, tracker, appConfig.MaxConcurrentRequests)
	publisher := stream.NewPublisher(tracker, appConfig.ProgressTickInterval)
	handler := api.NewHandler(orchestrator, tracker, publisher, resultCache, appConfig.MaxPages)

	stopSweep := startSweepLoop(tracker, orchestrator, appConfig.StateSweepInterval, appConfig.StateTTL)
	defer stopSweep()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /search", handler.HandleStartSearch)
	mux.HandleFunc("GET /state/{id}", func(w http.ResponseWriter, r *http.Request) {
		handler.HandleGetState(w, r, r.PathValue("id"))
	})
	mux.HandleFunc("GET /results/{id}", func(w http.ResponseWriter, r *http.Request) {
		handler.HandleGetResults(w, r, r.PathValue("id"))
	})
	mux.HandleFunc("GET /health", handler.HandleHealth)

	// The WebSocket upgrade needs the raw ResponseWriter (for Hijack), so
	// it is registered on its own mux untouched by gzip/timeout wrapping.
	streamMux := http.NewServeMux()
	streamMux.HandleFunc("GET /stream/{id}", func(w http.ResponseWriter, r *http.Request) {
		handler.HandleStream(w, r, r.PathValue("id"))
	})

	root := http.NewServeMux()
	root.Handle("/stream/", streamMux)
	root.Handle("/", gzipMiddleware(timeoutMiddleware(mux)))

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", appConfig.GetPort()),
		Handler:      root,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("Starting server on port %d", appConfig.GetPort())
		log.Printf("Available endpoints:")
		log.Printf("  POST /search       - start a crawl + search")
		log.Printf("  GET  /state/{id}   - poll search progress")
		log.Printf("  GET  /results/{id} - fetch ranked results")
		log.Printf("  GET  /stream/{id}  - live progress over WebSocket")
		log.Printf("  GET  /health       - health check")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.LogError("Server failed to start: %v", err)
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.LogError("Server forced to shutdown: %v", err)
		os.Exit(1)
	}

	if closer, ok := resultCache.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.LogError("error closing cache backend: %v", err)
		}
	}
	if closer, ok := tracker.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.LogError("error closing state backend: %v", err)
		}
	}

	log.Println("Server exited gracefully")
}

// startSweepLoop periodically evicts state and retained results older than
// maxAge (spec §3's SearchState/CacheEntry lifecycle), returning a stop func.
func startSweepLoop(tracker state.Tracker, orchestrator *search.Orchestrator, interval, maxAge time.Duration) func() {
	if interval <= 0 {
		interval = 60 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	ticker := time.NewTicker(interval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n, err := tracker.SweepExpired(ctx, maxAge); err != nil {
					logger.LogError("state sweep failed: %v", err)
				} else if n > 0 {
					log.Printf("swept %d expired search states", n)
				}
				if n := orchestrator.SweepExpired(maxAge); n > 0 {
					log.Printf("swept %d expired result sets", n)
				}
			}
		}
	}()

	return cancel
}

// gzipMiddleware compresses responses when the client supports it.
func gzipMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("Content-Encoding", "gzip")
		w.Header().Set("Vary", "Accept-Encoding")

		gw := gzipWriterPool.Get().(*gzip.Writer)
		gw.Reset(w)
		defer func() {
			if err := gw.Close(); err != nil {
				logger.LogError("Error closing gzip writer: %v", err)
			}
			gzipWriterPool.Put(gw)
		}()

		grw := &gzipResponseWriter{ResponseWriter: w, writer: gw}
		next.ServeHTTP(grw, r)
	})
}

type gzipResponseWriter struct {
	http.ResponseWriter
	writer *gzip.Writer
}

func (w *gzipResponseWriter) Write(b []byte) (int, error) {
	return w.writer.Write(b)
}

func (w *gzipResponseWriter) Header() http.Header {
	return w.ResponseWriter.Header()
}

// timeoutMiddleware bounds request handling time so a stuck crawl can never
// hang the HTTP server (the crawl itself runs detached, see
// api.Handler.HandleStartSearch).
func timeoutMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
		defer cancel()

		r = r.WithContext(ctx)

		done := make(chan struct{})
		go func() {
			next.ServeHTTP(w, r)
			close(done)
		}()

		select {
		case <-done:
			return
		case <-ctx.Done():
			logger.LogError("Request timed out: %s %s", r.Method, r.URL.Path)
			http.Error(w, "Request timeout", http.StatusGatewayTimeout)
			return
		}
	})
}
