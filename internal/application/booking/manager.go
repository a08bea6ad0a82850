// Package booking routes booking operations to the configured vendor adapters.
package booking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	domain "github.com/example/themepark-booking/internal/domain/booking"
	"github.com/example/themepark-booking/internal/infrastructure/metrics"
	"github.com/example/themepark-booking/internal/internaltypes"
)

// Factory builds an adapter on first use.
type Factory func() (domain.Adapter, error)

type entry struct {
	factory Factory
	enabled bool
	adapter domain.Adapter
}

// Manager is a string-keyed adapter registry. Adapters are built lazily and
// kept for the life of the manager; a failed build is retried on the next call.
type Manager struct {
	mu      sync.Mutex
	entries map[string]*entry
	order   []string

	log     logrus.FieldLogger
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewManager(log logrus.FieldLogger, m *metrics.Metrics) *Manager {
	if log == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		log = l
	}
	return &Manager{
		entries: map[string]*entry{},
		log:     log.WithField("component", "booking_manager"),
		metrics: m,
		now:     time.Now,
	}
}

// Register adds (or replaces) the factory for name and enables it.
func (m *Manager) Register(name string, f Factory) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[name]; !ok {
		m.order = append(m.order, name)
	}
	m.entries[name] = &entry{factory: f, enabled: true}
}

func (m *Manager) SetEnabled(name string, enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[name]; ok {
		e.enabled = enabled
	}
}

// GetAdapter returns the adapter registered under name. Unknown names wrap
// ErrNotFound; disabled adapters report a ConfigurationError.
func (m *Manager) GetAdapter(name string) (domain.Adapter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[name]
	if !ok {
		return nil, fmt.Errorf("adapter %q: %w", name, internaltypes.ErrNotFound)
	}
	if !e.enabled {
		return nil, &internaltypes.ConfigurationError{Adapter: name, Msg: "adapter is disabled"}
	}
	if e.adapter != nil {
		return e.adapter, nil
	}
	a, err := e.factory()
	if err != nil {
		return nil, err
	}
	e.adapter = a
	return a, nil
}

// AvailableAdapters lists enabled adapter names in registration order.
func (m *Manager) AvailableAdapters() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.order))
	for _, n := range m.order {
		if m.entries[n].enabled {
			out = append(out, n)
		}
	}
	return out
}

func (m *Manager) registered() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.order...)
}

func (m *Manager) observe(name, op string, ok bool, start time.Time) {
	m.metrics.Observe(name, op, ok, m.now().Sub(start))
}

func (m *Manager) TestConnection(ctx context.Context, name string) bool {
	a, err := m.GetAdapter(name)
	if err != nil {
		m.log.WithError(err).WithField("adapter", name).Warn("Connection test skipped")
		return false
	}
	start := m.now()
	ok := a.TestConnection(ctx)
	m.observe(name, "test_connection", ok, start)
	m.log.WithFields(logrus.Fields{"adapter": name, "success": ok}).Info("Connection test finished")
	return ok
}

func (m *Manager) TestAllConnections(ctx context.Context) map[string]bool {
	out := map[string]bool{}
	for _, n := range m.AvailableAdapters() {
		out[n] = m.TestConnection(ctx, n)
	}
	return out
}

func (m *Manager) SyncProducts(ctx context.Context, name string) *domain.ProductSyncResult {
	a, err := m.GetAdapter(name)
	if err != nil {
		return domain.SyncFailure(err.Error())
	}
	log := m.log.WithFields(logrus.Fields{"adapter": name, "operation": "sync_products"})
	log.Info("Product sync started")
	start := m.now()
	res := a.SyncProducts(ctx)
	if res == nil {
		res = domain.SyncFailure("adapter returned no result")
	}
	m.observe(name, "sync_products", res.Success, start)
	if res.Success {
		m.metrics.Synced(name, res.Synced)
	}
	log.WithFields(logrus.Fields{
		"success": res.Success,
		"total":   res.Total,
		"synced":  res.Synced,
		"failed":  res.Failed,
	}).Info(res.Summary())
	return res
}

func (m *Manager) SyncAllProducts(ctx context.Context) map[string]*domain.ProductSyncResult {
	out := map[string]*domain.ProductSyncResult{}
	for _, n := range m.AvailableAdapters() {
		out[n] = m.SyncProducts(ctx, n)
	}
	return out
}

func (m *Manager) GetProduct(ctx context.Context, name, productID string) *domain.Product {
	a, err := m.GetAdapter(name)
	if err != nil {
		return nil
	}
	return a.GetProduct(ctx, productID)
}

func (m *Manager) SearchProducts(ctx context.Context, name string, c domain.SearchCriteria) []domain.Product {
	a, err := m.GetAdapter(name)
	if err != nil {
		return nil
	}
	return a.SearchProducts(ctx, c)
}

func (m *Manager) CheckAvailability(ctx context.Context, name string, q domain.AvailabilityQuery) bool {
	a, err := m.GetAdapter(name)
	if err != nil {
		return false
	}
	start := m.now()
	ok := a.CheckAvailability(ctx, q)
	m.observe(name, "check_availability", ok, start)
	return ok
}

func (m *Manager) GetAvailableTimeSlots(ctx context.Context, name string, q domain.AvailabilityQuery) ([]domain.TimeSlot, error) {
	a, err := m.GetAdapter(name)
	if err != nil {
		return nil, err
	}
	return a.GetAvailableTimeSlots(ctx, q)
}

func (m *Manager) GetPricing(ctx context.Context, name string, q domain.AvailabilityQuery) ([]domain.PricingEntry, error) {
	a, err := m.GetAdapter(name)
	if err != nil {
		return nil, err
	}
	return a.GetPricing(ctx, q)
}

// run wraps a mutating booking call with logging and metrics. Lookup failures
// come back as an error response carrying the NOT_CONFIGURED code.
func (m *Manager) run(name, op string, fields logrus.Fields, fn func(domain.Adapter) *domain.BookingResponse) *domain.BookingResponse {
	log := m.log.WithFields(fields).WithFields(logrus.Fields{"adapter": name, "operation": op})
	a, err := m.GetAdapter(name)
	if err != nil {
		log.WithError(err).Warn("Booking operation rejected")
		return domain.Error(err.Error(), internaltypes.CodeNotConfigured, map[string]any{"adapter": name})
	}
	log.Info("Booking operation started")
	start := m.now()
	resp := fn(a)
	if resp == nil {
		resp = domain.Error("adapter returned no response", internaltypes.CodeVendor, nil)
	}
	if resp.Provider == "" {
		resp.Provider = a.Provider()
	}
	m.observe(name, op, resp.Success, start)
	done := log.WithFields(logrus.Fields{
		"success":    resp.Success,
		"status":     string(resp.Status),
		"booking_id": resp.BookingID,
		"hold_id":    resp.HoldID,
	})
	if resp.Success {
		done.Info("Booking operation completed")
	} else {
		done.WithField("error_code", resp.ErrorCode).Warn("Booking operation failed: " + resp.ErrorMessage)
	}
	return resp
}

func (m *Manager) CreateBooking(ctx context.Context, name string, req domain.BookingRequest) *domain.BookingResponse {
	fields := logrus.Fields{"product_id": req.ProductID, "quantity": req.Quantity}
	return m.run(name, "create_booking", fields, func(a domain.Adapter) *domain.BookingResponse {
		if err := req.Validate(); err != nil {
			return domain.Error(err.Error(), "INVALID_REQUEST", nil)
		}
		return a.CreateBooking(ctx, req)
	})
}

func (m *Manager) ConfirmBooking(ctx context.Context, name, reservationID string, payment domain.PaymentData) *domain.BookingResponse {
	return m.run(name, "confirm_booking", logrus.Fields{"reservation_id": reservationID}, func(a domain.Adapter) *domain.BookingResponse {
		return a.ConfirmBooking(ctx, reservationID, payment)
	})
}

func (m *Manager) CancelBooking(ctx context.Context, name, bookingID, reason string) *domain.BookingResponse {
	return m.run(name, "cancel_booking", logrus.Fields{"booking_id": bookingID}, func(a domain.Adapter) *domain.BookingResponse {
		return a.CancelBooking(ctx, bookingID, reason)
	})
}

func (m *Manager) GetBooking(ctx context.Context, name, bookingID string) *domain.BookingResponse {
	a, err := m.GetAdapter(name)
	if err != nil {
		return domain.Error(err.Error(), internaltypes.CodeNotConfigured, map[string]any{"adapter": name})
	}
	return a.GetBooking(ctx, bookingID)
}

var ErrHoldReleaseUnsupported = errors.New("adapter does not support hold release")

func (m *Manager) ReleaseHold(ctx context.Context, name, holdID string) error {
	a, err := m.GetAdapter(name)
	if err != nil {
		return err
	}
	r, ok := a.(domain.HoldReleaser)
	if !ok {
		return fmt.Errorf("%s: %w", name, ErrHoldReleaseUnsupported)
	}
	start := m.now()
	err = r.ReleaseHold(ctx, holdID)
	m.observe(name, "release_hold", err == nil, start)
	m.log.WithFields(logrus.Fields{"adapter": name, "hold_id": holdID, "success": err == nil}).Info("Hold release finished")
	return err
}

func (m *Manager) GenerateVoucher(ctx context.Context, name, bookingID string) (*domain.VoucherData, error) {
	a, err := m.GetAdapter(name)
	if err != nil {
		return nil, err
	}
	start := m.now()
	v, err := a.GenerateVoucher(ctx, bookingID)
	m.observe(name, "generate_voucher", err == nil, start)
	return v, err
}

type AdapterStatus struct {
	Name       string          `json:"name"`
	Provider   domain.Provider `json:"provider,omitempty"`
	Enabled    bool            `json:"enabled"`
	Configured bool            `json:"configured"`
	Error      string          `json:"error,omitempty"`
	LastSync   *time.Time      `json:"last_sync,omitempty"`
}

// AdapterStatuses reports every registered adapter, enabled or not, without
// contacting any vendor.
func (m *Manager) AdapterStatuses(ctx context.Context) []AdapterStatus {
	names := m.registered()
	out := make([]AdapterStatus, 0, len(names))
	for _, n := range names {
		st := AdapterStatus{Name: n}
		a, err := m.GetAdapter(n)
		var ce *internaltypes.ConfigurationError
		switch {
		case err == nil:
			st.Enabled, st.Configured = true, true
			st.Provider = a.Provider()
			if t, ok := a.LastSync(ctx); ok {
				t := t
				st.LastSync = &t
			}
		case errors.As(err, &ce) && ce.Msg == "adapter is disabled":
			st.Error = "disabled"
		default:
			st.Enabled = true
			st.Error = err.Error()
		}
		out = append(out, st)
	}
	return out
}
