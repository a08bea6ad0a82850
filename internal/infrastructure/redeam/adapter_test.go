package redeam

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/themepark-booking/internal/domain/booking"
	"github.com/example/themepark-booking/internal/infrastructure/adapterkit"
	"github.com/example/themepark-booking/internal/internaltypes"
)

var fixedNow = time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)

type fakeRedeam struct {
	holdExpires   time.Time
	bookingsCalls atomic.Int32
	lastHold      holdRequest
	lastBooking   bookingRequest
}

func (f *fakeRedeam) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	write := func(w http.ResponseWriter, v any) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(v)
	}
	mux.HandleFunc("GET /suppliers", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-API-Key") != "key" || r.Header.Get("X-API-Secret") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		write(w, map[string]any{"suppliers": []any{map[string]any{"id": "SUP1"}, map[string]any{"id": "SUP2"}}})
	})
	mux.HandleFunc("GET /suppliers/{sid}/products", func(w http.ResponseWriter, r *http.Request) {
		write(w, map[string]any{"products": []any{
			map[string]any{"id": "P1", "name": "Magic Kingdom 1-Day", "category": "tickets"},
			map[string]any{"id": "P2", "name": "Epcot After Hours", "active": false},
			map[string]any{"id": "", "name": "broken"},
		}})
	})
	mux.HandleFunc("GET /suppliers/{sid}/products/{pid}/availabilities", func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.URL.Query().Get("start"))
		assert.NotEmpty(t, r.URL.Query().Get("end"))
		write(w, map[string]any{"availabilities": map[string]any{"byRate": map[string]any{
			"R1": map[string]any{
				"price":    "109.00",
				"currency": "USD",
				"availability": []any{
					map[string]any{"id": "A2", "start": "2025-07-04T13:00:00Z", "capacity": 1},
					map[string]any{"id": "A1", "start": "2025-07-04T09:00:00Z", "capacity": 20, "price": "99.50"},
					map[string]any{"id": "A3", "start": "2025-07-05T09:00:00Z", "capacity": 20},
				},
			},
		}}})
	})
	mux.HandleFunc("POST /holds", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&f.lastHold))
		write(w, map[string]any{"hold": map[string]any{"id": "HOLD123", "expires": fixedNow.Add(15 * time.Minute)}})
	})
	mux.HandleFunc("GET /holds/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "HOLD123" {
			w.WriteHeader(http.StatusNotFound)
			write(w, map[string]any{"error": map[string]any{"message": "hold not found"}})
			return
		}
		write(w, map[string]any{"hold": map[string]any{"id": "HOLD123", "expires": f.holdExpires}})
	})
	mux.HandleFunc("DELETE /holds/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("POST /bookings", func(w http.ResponseWriter, r *http.Request) {
		f.bookingsCalls.Add(1)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&f.lastBooking))
		write(w, map[string]any{"booking": map[string]any{
			"id":       "BK-1",
			"status":   "BOOKED",
			"customer": map[string]any{"firstName": "Ada"},
			"ext":      map[string]any{"supplier": map[string]any{"reference": "SUP-REF"}},
		}})
	})
	mux.HandleFunc("GET /bookings/{id}", func(w http.ResponseWriter, r *http.Request) {
		write(w, map[string]any{"booking": map[string]any{
			"id":       r.PathValue("id"),
			"status":   "BOOKED",
			"customer": map[string]any{"firstName": "Ada", "lastName": "Lovelace", "email": "ada@example.com"},
			"items":    []any{map[string]any{"productId": "P1", "at": "2025-07-04T09:00:00Z"}, map[string]any{"productId": "P1"}},
		}})
	})
	mux.HandleFunc("PUT /bookings/cancel/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") == "BAD" {
			w.WriteHeader(http.StatusConflict)
			write(w, map[string]any{"error": map[string]any{"message": "not cancellable", "code": 409}})
			return
		}
		write(w, map[string]any{"booking": map[string]any{"id": r.PathValue("id"), "status": "CANCELLED"}})
	})
	return mux
}

func newTestAdapter(t *testing.T, park ParkType, supplier string) (*Adapter, *fakeRedeam) {
	t.Helper()
	f := &fakeRedeam{holdExpires: fixedNow.Add(10 * time.Minute)}
	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)
	a, err := New(park, Settings{BaseURL: srv.URL, APIKey: "key", APISecret: "secret", SupplierID: supplier},
		adapterkit.Deps{Now: func() time.Time { return fixedNow }})
	require.NoError(t, err)
	return a, f
}

func TestNewValidatesConfig(t *testing.T) {
	cases := []struct {
		name string
		park ParkType
		s    Settings
		key  string
	}{
		{"missing key", ParkDisney, Settings{APISecret: "s", SupplierID: "x"}, "api_key"},
		{"missing secret", ParkDisney, Settings{APIKey: "k", SupplierID: "x"}, "api_secret"},
		{"disney needs supplier", ParkDisney, Settings{APIKey: "k", APISecret: "s"}, "supplier_id"},
		{"unknown park", ParkType("sixflags"), Settings{APIKey: "k", APISecret: "s"}, "park_type"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.park, tc.s, adapterkit.Deps{})
			var ce *internaltypes.ConfigurationError
			require.True(t, errors.As(err, &ce))
			assert.Equal(t, tc.key, ce.Key)
		})
	}

	a, err := New(ParkUnitedParks, Settings{APIKey: "k", APISecret: "s"}, adapterkit.Deps{})
	require.NoError(t, err)
	assert.Equal(t, "redeam_united_parks", a.Name())
	assert.Equal(t, booking.ProviderRedeam, a.Provider())
}

func TestTestConnection(t *testing.T) {
	a, _ := newTestAdapter(t, ParkDisney, "SUP1")
	assert.True(t, a.TestConnection(context.Background()))

	bad, err := New(ParkDisney, Settings{BaseURL: a.client.base, APIKey: "nope", APISecret: "secret", SupplierID: "SUP1"}, adapterkit.Deps{})
	require.NoError(t, err)
	assert.False(t, bad.TestConnection(context.Background()))
}

func TestSyncProducts(t *testing.T) {
	ctx := context.Background()
	a, _ := newTestAdapter(t, ParkDisney, "SUP1")

	_, ok := a.LastSync(ctx)
	assert.False(t, ok)

	res := a.SyncProducts(ctx)
	require.True(t, res.Success)
	assert.Equal(t, 3, res.Total)
	assert.Equal(t, 2, res.Synced)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, "general", res.Products[1].Category)
	assert.False(t, res.Products[1].Active)

	last, ok := a.LastSync(ctx)
	require.True(t, ok)
	assert.True(t, last.Equal(fixedNow))
}

func TestSyncUnitedParksWalksSuppliers(t *testing.T) {
	a, _ := newTestAdapter(t, ParkUnitedParks, "")
	res := a.SyncProducts(context.Background())
	require.True(t, res.Success)
	assert.Equal(t, 6, res.Total)
	assert.Equal(t, "SUP2", res.Products[3].Metadata["supplier_id"])
}

func TestSearchProducts(t *testing.T) {
	a, _ := newTestAdapter(t, ParkDisney, "SUP1")
	inactive := false
	got := a.SearchProducts(context.Background(), booking.SearchCriteria{Active: &inactive})
	require.Len(t, got, 1)
	assert.Equal(t, "P2", got[0].RemoteID)

	got = a.SearchProducts(context.Background(), booking.SearchCriteria{Query: "magic"})
	require.Len(t, got, 1)
	assert.Equal(t, "P1", got[0].RemoteID)
}

func TestTimeSlotsAndAvailability(t *testing.T) {
	ctx := context.Background()
	a, _ := newTestAdapter(t, ParkDisney, "SUP1")
	date := time.Date(2025, 7, 4, 0, 0, 0, 0, time.UTC)

	slots, err := a.GetAvailableTimeSlots(ctx, booking.AvailabilityQuery{ProductID: "P1", Date: date})
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.Equal(t, "09:00", slots[0].Time)
	assert.Equal(t, "A1", slots[0].AvailabilityID)
	assert.Equal(t, "13:00", slots[1].Time)

	assert.True(t, a.CheckAvailability(ctx, booking.AvailabilityQuery{ProductID: "P1", Date: date, Time: "13:00", Quantity: 1}))
	assert.False(t, a.CheckAvailability(ctx, booking.AvailabilityQuery{ProductID: "P1", Date: date, Time: "13:00", Quantity: 2}))
	assert.False(t, a.CheckAvailability(ctx, booking.AvailabilityQuery{ProductID: "P1", Date: date, Time: "10:00"}))

	prices, err := a.GetPricing(ctx, booking.AvailabilityQuery{ProductID: "P1", Date: date, RateID: "R1"})
	require.NoError(t, err)
	require.Len(t, prices, 3)
	byID := map[string]string{}
	for _, p := range prices {
		byID[p.AvailabilityID] = p.Price.Amount.StringFixed(2)
	}
	assert.Equal(t, "99.50", byID["A1"])
	assert.Equal(t, "109.00", byID["A2"])
}

func TestUnitedParksAvailabilityNeedsSupplier(t *testing.T) {
	a, _ := newTestAdapter(t, ParkUnitedParks, "")
	_, err := a.GetAvailableTimeSlots(context.Background(), booking.AvailabilityQuery{ProductID: "P1", Date: fixedNow})
	var ce *internaltypes.ConfigurationError
	assert.True(t, errors.As(err, &ce))
}

func TestCreateBookingPlacesHold(t *testing.T) {
	a, f := newTestAdapter(t, ParkDisney, "SUP1")
	resp := a.CreateBooking(context.Background(), booking.BookingRequest{
		ProductID:      "P1",
		RateID:         "R1",
		AvailabilityID: "A1",
		Date:           time.Date(2025, 7, 4, 0, 0, 0, 0, time.UTC),
		TimeSlot:       "09:00",
		Quantity:       2,
		Options:        map[string]string{"age_group": "child"},
	})
	require.True(t, resp.IsSuccessful())
	assert.Equal(t, booking.StatusPending, resp.Status)
	assert.Equal(t, "HOLD123", resp.ReservationID)
	assert.Equal(t, "HOLD123", resp.HoldID)
	require.NotNil(t, resp.ExpiresAt)
	assert.Equal(t, "disney", resp.Metadata["park_type"])

	require.Len(t, f.lastHold.Hold.Items, 2)
	assert.Equal(t, "child", f.lastHold.Hold.Items[0].TravelerType)
	assert.Equal(t, "2025-07-04T09:00:00Z", f.lastHold.Hold.Items[0].At)
}

func TestConfirmBooking(t *testing.T) {
	ctx := context.Background()
	a, f := newTestAdapter(t, ParkDisney, "SUP1")

	resp := a.ConfirmBooking(ctx, "HOLD123", booking.PaymentData{
		Customer:         booking.Customer{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com"},
		BookingReference: "ORDER-77",
	})
	require.True(t, resp.IsConfirmed())
	assert.Equal(t, "BK-1", resp.BookingID)
	assert.Equal(t, "SUP-REF", resp.SupplierReference)
	assert.Equal(t, "HOLD123", f.lastBooking.Booking.HoldID)
	assert.Equal(t, "ORDER-77", f.lastBooking.Booking.Reference)
	assert.Equal(t, "US", f.lastBooking.Booking.Customer.Address.Country)
}

func TestConfirmExpiredHoldSkipsBooking(t *testing.T) {
	ctx := context.Background()
	a, f := newTestAdapter(t, ParkDisney, "SUP1")
	f.holdExpires = fixedNow.Add(-time.Second)

	resp := a.ConfirmBooking(ctx, "HOLD123", booking.PaymentData{})
	assert.False(t, resp.IsSuccessful())
	assert.Equal(t, booking.StatusFailed, resp.Status)
	assert.Equal(t, "Reservation has expired", resp.ErrorMessage)
	assert.Equal(t, internaltypes.CodeHoldExpired, resp.ErrorCode)

	resp = a.ConfirmBooking(ctx, "UNKNOWN", booking.PaymentData{})
	assert.Equal(t, internaltypes.CodeHoldExpired, resp.ErrorCode)
	assert.Zero(t, f.bookingsCalls.Load())
}

func TestCancelAndRelease(t *testing.T) {
	ctx := context.Background()
	a, _ := newTestAdapter(t, ParkDisney, "SUP1")

	resp := a.CancelBooking(ctx, "BK-1", "guest request")
	require.True(t, resp.IsCancelled())
	assert.Equal(t, "guest request", resp.Cancellation.Reason)

	resp = a.CancelBooking(ctx, "BAD", "")
	assert.False(t, resp.IsSuccessful())
	assert.Equal(t, "not cancellable", resp.ErrorMessage)

	require.NoError(t, a.ReleaseHold(ctx, "HOLD123"))
}

func TestGetBookingAndVoucher(t *testing.T) {
	ctx := context.Background()
	a, _ := newTestAdapter(t, ParkUnitedParks, "SUP1")

	b := a.GetBooking(ctx, "BK-9")
	require.NotNil(t, b)
	assert.Equal(t, 2, b.Quantity)
	assert.Equal(t, "09:00", b.TimeSlot)

	v, err := a.GenerateVoucher(ctx, "BK-9")
	require.NoError(t, err)
	assert.Regexp(t, `^VCH-[0-9A-F]{6}-[0-9A-Z-]{4}$`, v.VoucherNumber)
	assert.Equal(t, "QR-BK-9", v.QRCode)
	assert.Equal(t, "BC-BK-9", v.BarcodeData)
	assert.Equal(t, "Ada Lovelace", v.Customer.FullName())
	assert.Equal(t, "united_parks", v.ParkType)
}
