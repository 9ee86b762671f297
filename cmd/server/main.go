package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"olx-go-crawler/internal/app"
	"olx-go-crawler/internal/collector"
	"olx-go-crawler/internal/config"
	"olx-go-crawler/internal/crawler"
	"olx-go-crawler/internal/models"
	"olx-go-crawler/pkg/logger"
)

type urlReq struct {
	URL string `json:"url"`
}

type batchReq struct {
	URLs []string `json:"urls"`
}

type adOut struct {
	URL    string           `json:"url"`
	Result *models.AdRecord `json:"result,omitempty"`
	Error  string           `json:"error,omitempty"`
}

func main() {
	cfgFile := flag.String("config", "", "config file")
	flag.Parse()

	cfg, err := config.Load(*cfgFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}
	l, err := logger.New(cfg.Log.Level, cfg.Log.Encoding)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer l.Sync()

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      logRequest(l, newMux(app.New(cfg, l))),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		l.Infof("server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			l.Errorf("server error: %v", err)
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	l.Infof("shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	l.Infof("bye")
}

func newMux(a *app.App) *http.ServeMux {
	mux := http.NewServeMux()
	fetchTimeout := 2 * a.Config.FetchTimeout

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// POST /ad  { "url": "https://..." }
	mux.HandleFunc("POST /ad", func(w http.ResponseWriter, r *http.Request) {
		var req urlReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), fetchTimeout)
		defer cancel()

		ad, err := a.Processor.Extract(ctx, req.URL)
		if err != nil {
			writeJSON(w, statusFor(err), map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, ad)
	})

	// POST /ads  { "urls": ["https://...", "..."] }
	mux.HandleFunc("POST /ads", func(w http.ResponseWriter, r *http.Request) {
		var req batchReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.URLs) == 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
			return
		}

		results := make([]adOut, len(req.URLs))

		// bounded concurrency
		sem := make(chan struct{}, a.Config.Concurrency)
		done := make(chan int, len(req.URLs))

		for i, u := range req.URLs {
			sem <- struct{}{} // acquire
			go func() {
				defer func() { <-sem; done <- i }()
				if u == "" {
					results[i] = adOut{URL: u, Error: "empty url"}
					return
				}
				ctx, cancel := context.WithTimeout(r.Context(), fetchTimeout)
				defer cancel()
				ad, err := a.Processor.Extract(ctx, u)
				if err != nil {
					results[i] = adOut{URL: u, Error: err.Error()}
					return
				}
				results[i] = adOut{URL: u, Result: &ad}
			}()
		}
		// wait
		for range req.URLs {
			<-done
		}
		writeJSON(w, http.StatusOK, results)
	})

	// POST /category  { "url": "https://..." }
	mux.HandleFunc("POST /category", func(w http.ResponseWriter, r *http.Request) {
		var req urlReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), a.Config.CategoryTimeout)
		defer cancel()

		urls, err := a.Collector.Collect(ctx, req.URL)
		if err != nil {
			writeJSON(w, statusFor(err), map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"name": collector.CategoryName(req.URL),
			"urls": urls,
		})
	})

	return mux
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, crawler.ErrInvalidURL):
		return http.StatusBadRequest
	case errors.Is(err, collector.ErrLayoutMismatch):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func logRequest(l *logger.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		l.Infof("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}
