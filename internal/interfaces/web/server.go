// Package web serves health, metrics, adapter status and voucher downloads.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	appbooking "github.com/example/themepark-booking/internal/application/booking"
	"github.com/example/themepark-booking/internal/domain/orderdetails"
	"github.com/example/themepark-booking/internal/infrastructure/voucherstore"
	"github.com/example/themepark-booking/internal/internaltypes"
)

type Adapters interface {
	AdapterStatuses(ctx context.Context) []appbooking.AdapterStatus
	TestAllConnections(ctx context.Context) map[string]bool
}

type Holds interface {
	ActiveHolds(ctx context.Context) ([]orderdetails.Redeam, error)
}

type Server struct {
	Adapters Adapters
	Holds    Holds
	Vouchers voucherstore.Store
	Links    *LinkSigner
	Gatherer prometheus.Gatherer
	Log      logrus.FieldLogger
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logging)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	g := s.Gatherer
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))

	r.Get("/adapters", s.handleAdapters)
	r.Post("/adapters/test", s.handleTestAll)
	if s.Holds != nil {
		r.Get("/holds", s.handleHolds)
	}
	r.Get("/vouchers/{token}", s.handleVoucher)
	return r
}

func (s *Server) logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		if s.Log == nil {
			return
		}
		s.Log.WithFields(logrus.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"duration":   time.Since(start).String(),
			"request_id": middleware.GetReqID(r.Context()),
		}).Info("http request")
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleAdapters(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"adapters": s.Adapters.AdapterStatuses(r.Context())})
}

func (s *Server) handleTestAll(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"connections": s.Adapters.TestAllConnections(r.Context())})
}

type holdView struct {
	OrderID       int64      `json:"order_id"`
	HoldID        string     `json:"hold_id"`
	Supplier      string     `json:"supplier_type"`
	HoldExpiresAt *time.Time `json:"hold_expires_at,omitempty"`
}

func (s *Server) handleHolds(w http.ResponseWriter, r *http.Request) {
	rows, err := s.Holds.ActiveHolds(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	out := make([]holdView, 0, len(rows))
	for _, h := range rows {
		out = append(out, holdView{OrderID: h.OrderID, HoldID: h.HoldID, Supplier: string(h.SupplierType), HoldExpiresAt: h.HoldExpiresAt})
	}
	writeJSON(w, http.StatusOK, map[string]any{"holds": out})
}

func (s *Server) handleVoucher(w http.ResponseWriter, r *http.Request) {
	if s.Links == nil || s.Vouchers == nil {
		http.NotFound(w, r)
		return
	}
	key, err := s.Links.Verify(chi.URLParam(r, "token"))
	if err != nil {
		status := http.StatusForbidden
		if errors.Is(err, ErrLinkExpired) {
			status = http.StatusGone
		}
		http.Error(w, http.StatusText(status), status)
		return
	}
	body, err := s.Vouchers.Get(r.Context(), key)
	if errors.Is(err, internaltypes.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "private, max-age=300")
	_, _ = w.Write(body)
}

func Start(ctx context.Context, addr string, h http.Handler, log logrus.FieldLogger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	log.WithField("addr", addr).Info("HTTP server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
