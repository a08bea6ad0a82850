package smartorder

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
	"github.com/example/themepark-booking/internal/infrastructure/cache"
	"github.com/example/themepark-booking/internal/infrastructure/tokenstore"
	"github.com/example/themepark-booking/internal/internaltypes"
)

type fakeSmartOrder struct {
	t          *testing.T
	tokenCalls atomic.Int32
	orders     atomic.Int32
	canCancel  atomic.Bool
	lastOrder  map[string]any
}

func (f *fakeSmartOrder) handler() http.Handler {
	mux := http.NewServeMux()
	write := func(w http.ResponseWriter, v any) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(v)
	}
	authed := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer T1" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			next(w, r)
		}
	}
	mux.HandleFunc("POST /connect/token", func(w http.ResponseWriter, r *http.Request) {
		f.tokenCalls.Add(1)
		require.NoError(f.t, r.ParseForm())
		assert.Equal(f.t, "client_credentials", r.PostForm.Get("grant_type"))
		assert.Equal(f.t, "SmartOrder", r.PostForm.Get("scope"))
		assert.Equal(f.t, "user", r.PostForm.Get("client_id"))
		assert.Equal(f.t, "pass", r.PostForm.Get("client_secret"))
		write(w, map[string]any{"access_token": "T1", "expires_in": 3600, "token_type": "Bearer"})
	})
	mux.HandleFunc("GET /smartorder/MyProductCatalog", authed(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(f.t, "134853", r.URL.Query().Get("customerId"))
		write(w, []any{
			map[string]any{"plu": "1701123", "name": "Halloween Horror Nights", "salesProgramId": 4638, "price": 129.99, "category": "events"},
			map[string]any{"plu": "20001", "name": "Universal 2-Park Base", "salesProgramId": "4638", "price": "219.00"},
			map[string]any{"plu": "20002", "name": "Promo 2-Park", "salesProgramId": 9999, "price": 199},
			map[string]any{"id": 30001, "title": "Express Pass", "active": false},
		})
	}))
	mux.HandleFunc("POST /smartorder/FindEvents", authed(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(f.t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(f.t, "134853", body["customerId"])
		assert.Equal(f.t, "2025-10-31", body["EventDate"])
		switch body["ProductID"] {
		case "1701555":
			write(w, map[string]any{"success": true, "eventResults": []any{
				map[string]any{"id": 9101, "startTime": "2025-10-31T18:30:00", "capacityAvailable": 50},
			}})
			return
		case "11011700777":
			write(w, map[string]any{"success": true, "eventResults": []any{
				map[string]any{"id": 9201, "startTime": "tonight", "capacityAvailable": 5},
				map[string]any{"id": 9202, "capacityAvailable": 1},
			}})
			return
		}
		write(w, map[string]any{"success": true, "eventResults": []any{
			map[string]any{"id": 9001, "startTime": "2025-10-31T18:30:00Z", "capacityAvailable": 3, "price": 129.99},
			map[string]any{"id": 9002, "startTime": "2025-10-31T20:00:00Z", "capacityAvailable": 0},
		}})
	}))
	mux.HandleFunc("POST /smartorder/PlaceOrder", authed(func(w http.ResponseWriter, r *http.Request) {
		f.orders.Add(1)
		require.NoError(f.t, json.NewDecoder(r.Body).Decode(&f.lastOrder))
		write(w, map[string]any{"galaxyOrderId": "G-100", "confirmationNumber": "CONF-1", "externalOrderId": "ORD-1"})
	}))
	mux.HandleFunc("GET /smartorder/GetExistingOrderId", authed(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("OrderID") != "G-100" {
			write(w, map[string]any{"error": map[string]any{"message": "no such order"}})
			return
		}
		write(w, map[string]any{"galaxyOrderId": "G-100", "orderStatus": "Success"})
	}))
	mux.HandleFunc("GET /smartorder/CanCancelOrder", authed(func(w http.ResponseWriter, r *http.Request) {
		write(w, map[string]any{"CanCancel": f.canCancel.Load()})
	}))
	mux.HandleFunc("GET /smartorder/CancelOrder", authed(func(w http.ResponseWriter, r *http.Request) {
		write(w, map[string]any{"cancelled": true})
	}))
	return mux
}

func newTestAdapter(t *testing.T) (*Adapter, *fakeSmartOrder) {
	t.Helper()
	f := &fakeSmartOrder{t: t}
	f.canCancel.Store(true)
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)
	a, err := New(Settings{BaseURL: srv.URL, CustomerID: "134853", ClientID: "user", ClientSecret: "pass"}, adapterkit.Deps{})
	require.NoError(t, err)
	return a, f
}

func TestNewValidatesConfig(t *testing.T) {
	cases := []struct {
		s   Settings
		key string
	}{
		{Settings{ClientID: "u", ClientSecret: "p"}, "customer_id"},
		{Settings{CustomerID: "1", ClientSecret: "p"}, "client_username"},
		{Settings{CustomerID: "1", ClientID: "u"}, "client_secret"},
	}
	for _, tc := range cases {
		_, err := New(tc.s, adapterkit.Deps{})
		var ce *internaltypes.ConfigurationError
		require.True(t, errors.As(err, &ce), tc.key)
		assert.Equal(t, tc.key, ce.Key)
	}
	a, err := New(Settings{CustomerID: "1", ClientID: "u", ClientSecret: "p"}, adapterkit.Deps{})
	require.NoError(t, err)
	assert.Equal(t, "smartorder", a.Name())
	assert.Equal(t, DefaultApprovedSuffix, a.cfg.ApprovedSuffix)
	assert.Equal(t, DefaultSalesProgramID, a.cfg.SalesProgramID)
}

func TestTokenIsReused(t *testing.T) {
	ctx := context.Background()
	var refreshed atomic.Int32
	f := &fakeSmartOrder{t: t}
	srv := httptest.NewServer(f.handler())
	defer srv.Close()
	a, err := New(Settings{
		BaseURL: srv.URL, CustomerID: "134853", ClientID: "user", ClientSecret: "pass",
		OnTokenRefresh: func() { refreshed.Add(1) },
	}, adapterkit.Deps{})
	require.NoError(t, err)

	assert.True(t, a.TestConnection(ctx))
	assert.True(t, a.TestConnection(ctx))
	assert.EqualValues(t, 1, f.tokenCalls.Load())
	assert.EqualValues(t, 1, refreshed.Load())

	tok, ok, err := a.cfg.Tokens.Get(ctx, tokenstore.Key(Name, "user", "134853"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "T1", tok.AccessToken)
	// cached with the safety margin taken off
	assert.WithinDuration(t, time.Now().Add(55*time.Minute), tok.ExpiresAt, time.Minute)
}

func TestTokenSharedThroughRepository(t *testing.T) {
	ctx := context.Background()
	f := &fakeSmartOrder{t: t}
	srv := httptest.NewServer(f.handler())
	defer srv.Close()

	repo := tokenstore.NewCached(cache.NewMemory(), nil)
	for i := 0; i < 2; i++ {
		a, err := New(Settings{BaseURL: srv.URL, CustomerID: "134853", ClientID: "user", ClientSecret: "pass", Tokens: repo}, adapterkit.Deps{})
		require.NoError(t, err)
		assert.True(t, a.TestConnection(ctx))
	}
	assert.EqualValues(t, 1, f.tokenCalls.Load())
}

func TestSyncFiltersSalesProgram(t *testing.T) {
	ctx := context.Background()
	a, _ := newTestAdapter(t)

	res := a.SyncProducts(ctx)
	require.True(t, res.Success)
	assert.Equal(t, 4, res.Total)
	assert.Equal(t, 3, res.Synced)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, "1701123", res.Products[0].RemoteID)
	assert.Equal(t, "Express Pass", res.Products[2].Name)
	assert.Equal(t, "30001", res.Products[2].RemoteID)

	_, ok := a.LastSync(ctx)
	assert.True(t, ok)
}

func TestSearchAndGetProduct(t *testing.T) {
	ctx := context.Background()
	a, _ := newTestAdapter(t)

	got := a.SearchProducts(ctx, booking.SearchCriteria{Code: "2000"})
	assert.Len(t, got, 2)
	active := false
	got = a.SearchProducts(ctx, booking.SearchCriteria{Active: &active})
	require.Len(t, got, 1)
	assert.Equal(t, "30001", got[0].RemoteID)

	p := a.GetProduct(ctx, "20001")
	require.NotNil(t, p)
	assert.Equal(t, "Universal 2-Park Base", p.Name)
	assert.Nil(t, a.GetProduct(ctx, "nope"))
}

func TestAvailability(t *testing.T) {
	ctx := context.Background()
	a, _ := newTestAdapter(t)
	halloween := time.Date(2025, 10, 31, 0, 0, 0, 0, time.UTC)

	assert.True(t, IsSpecialEvent("1701123"))
	assert.True(t, IsSpecialEvent("11011700999"))
	assert.False(t, IsSpecialEvent("20001"))

	slots, err := a.GetAvailableTimeSlots(ctx, booking.AvailabilityQuery{ProductID: "1701123", Date: halloween})
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.Equal(t, "18:30", slots[0].Time)
	assert.Equal(t, "9001", slots[0].AvailabilityID)

	assert.True(t, a.CheckAvailability(ctx, booking.AvailabilityQuery{ProductID: "1701123", Date: halloween, Quantity: 3}))
	assert.False(t, a.CheckAvailability(ctx, booking.AvailabilityQuery{ProductID: "1701123", Date: halloween, Quantity: 4}))
	assert.False(t, a.CheckAvailability(ctx, booking.AvailabilityQuery{ProductID: "1701123", Date: halloween, Time: "20:00"}))

	assert.True(t, a.CheckAvailability(ctx, booking.AvailabilityQuery{ProductID: "20001", Date: halloween}))
	assert.False(t, a.CheckAvailability(ctx, booking.AvailabilityQuery{ProductID: "30001", Date: halloween}))
}

func TestAvailabilityWithLooseEventTimes(t *testing.T) {
	ctx := context.Background()
	a, _ := newTestAdapter(t)
	orlando := time.FixedZone("EDT", -4*3600)
	halloween := time.Date(2025, 10, 31, 0, 0, 0, 0, orlando)

	slots, err := a.GetAvailableTimeSlots(ctx, booking.AvailabilityQuery{ProductID: "1701555", Date: halloween})
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, "18:30", slots[0].Time)
	assert.Equal(t, 50, slots[0].Capacity)
	assert.True(t, a.CheckAvailability(ctx, booking.AvailabilityQuery{ProductID: "1701555", Date: halloween, Time: "18:30", Quantity: 2}))

	// unreadable or missing start times do not filter on time
	slots, err = a.GetAvailableTimeSlots(ctx, booking.AvailabilityQuery{ProductID: "11011700777", Date: halloween})
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.Empty(t, slots[0].Time)
	assert.True(t, a.CheckAvailability(ctx, booking.AvailabilityQuery{ProductID: "11011700777", Date: halloween, Time: "19:00", Quantity: 5}))
	assert.False(t, a.CheckAvailability(ctx, booking.AvailabilityQuery{ProductID: "11011700777", Date: halloween, Quantity: 6}))
}

func TestEventStartLayouts(t *testing.T) {
	loc := time.FixedZone("EST", -5*3600)
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"2025-10-31T18:30:00Z", "2025-10-31T13:30:00-05:00", true},
		{"2025-10-31T18:30:00", "2025-10-31T18:30:00-05:00", true},
		{"2025-10-31 18:30:00", "2025-10-31T18:30:00-05:00", true},
		{"2025-10-31T18:30", "2025-10-31T18:30:00-05:00", true},
		{"", "", false},
		{"soon", "", false},
	}
	for _, tc := range cases {
		got, ok := eventResult{StartTime: tc.in}.start(loc)
		assert.Equal(t, tc.ok, ok, tc.in)
		if ok {
			assert.Equal(t, tc.want, got.Format(time.RFC3339), tc.in)
		}
	}
}

func TestGetPricing(t *testing.T) {
	a, _ := newTestAdapter(t)
	entries, err := a.GetPricing(context.Background(), booking.AvailabilityQuery{ProductID: "2000", Date: time.Now()})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "219", entries[0].Price.Amount.String())
	assert.Equal(t, "USD", entries[0].Price.Currency)
}

func TestCreateBookingPlacesOrder(t *testing.T) {
	a, f := newTestAdapter(t)
	resp := a.CreateBooking(context.Background(), booking.BookingRequest{
		ProductID:   "1701123",
		Date:        time.Date(2025, 10, 31, 0, 0, 0, 0, time.UTC),
		TimeSlot:    "18:30",
		Quantity:    2,
		Customer:    booking.Customer{FirstName: "Ada", LastName: "Lovelace"},
		ReferenceID: "ORD-1",
	})
	require.True(t, resp.IsConfirmed())
	assert.Equal(t, "G-100", resp.BookingID)
	assert.Equal(t, "CONF-1", resp.ConfirmationCode)
	assert.Equal(t, "134853", f.lastOrder["CustomerID"])
	assert.Equal(t, "-2KNOW", f.lastOrder["ApprovedSuffix"])
	assert.Equal(t, "ORD-1", f.lastOrder["externalOrderId"])
}

func TestCreateBookingChecksAvailabilityFirst(t *testing.T) {
	a, f := newTestAdapter(t)
	resp := a.CreateBooking(context.Background(), booking.BookingRequest{
		ProductID: "1701123",
		Date:      time.Date(2025, 10, 31, 0, 0, 0, 0, time.UTC),
		Quantity:  10,
	})
	assert.False(t, resp.IsSuccessful())
	assert.Equal(t, internaltypes.CodeNotAvailable, resp.ErrorCode)
	assert.Zero(t, f.orders.Load())
}

func TestConfirmGetAndCancel(t *testing.T) {
	ctx := context.Background()
	a, f := newTestAdapter(t)

	assert.True(t, a.ConfirmBooking(ctx, "G-100", booking.PaymentData{}).IsConfirmed())
	missing := a.ConfirmBooking(ctx, "G-404", booking.PaymentData{})
	assert.False(t, missing.IsSuccessful())
	assert.Equal(t, "Booking not found", missing.ErrorMessage)

	assert.Nil(t, a.GetBooking(ctx, "G-404"))

	resp := a.CancelBooking(ctx, "G-100", "weather")
	assert.True(t, resp.IsCancelled())

	f.canCancel.Store(false)
	resp = a.CancelBooking(ctx, "G-100", "weather")
	assert.False(t, resp.IsSuccessful())
	assert.Equal(t, internaltypes.CodeNotCancellable, resp.ErrorCode)
}

func TestGenerateVoucher(t *testing.T) {
	a, _ := newTestAdapter(t)
	v, err := a.GenerateVoucher(context.Background(), "G-100")
	require.NoError(t, err)
	assert.Regexp(t, `^SO-[0-9A-F]{6}--100$`, v.VoucherNumber)
	assert.Equal(t, "QR-SO-G-100", v.QRCode)
	assert.Equal(t, "BC-SO-G-100", v.BarcodeData)

	_, err = a.GenerateVoucher(context.Background(), "G-404")
	assert.Error(t, err)
}

func TestAvailableMonths(t *testing.T) {
	a, err := New(Settings{CustomerID: "1", ClientID: "u", ClientSecret: "p"}, adapterkit.Deps{
		Now: func() time.Time { return time.Date(2024, 7, 19, 10, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)
	months := a.AvailableMonths()
	require.Len(t, months, 12)
	assert.Equal(t, Month{Class: "2024-07", Text: "July, 2024", Value: "2024-07-01"}, months[0])
	assert.Equal(t, "2025-06", months[11].Class)
}
