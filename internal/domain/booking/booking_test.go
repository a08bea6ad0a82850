package booking

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponseConstructors(t *testing.T) {
	ok := Success(BookingResponse{BookingID: "B1", Provider: ProviderRedeam})
	assert.True(t, ok.IsSuccessful())
	assert.True(t, ok.IsConfirmed())
	assert.Equal(t, "B1", ok.ReservationRef())

	pending := Success(BookingResponse{ReservationID: "HOLD123", HoldID: "HOLD123", Status: StatusPending})
	assert.True(t, pending.IsPending())
	assert.Equal(t, "HOLD123", pending.ReservationRef())

	failed := Error("boom", "VENDOR_ERROR", nil)
	assert.False(t, failed.IsSuccessful())
	assert.Equal(t, StatusFailed, failed.Status)
	assert.Equal(t, "boom", failed.ErrorMessage)

	held := Hold(BookingResponse{HoldID: "H9"})
	assert.True(t, held.IsHold())
	assert.Equal(t, "H9", held.ReservationID)

	c := Cancelled("B2", ProviderSmartOrder, &CancellationInfo{Reason: "guest request"}, nil)
	assert.True(t, c.IsCancelled())

	var nilResp *BookingResponse
	assert.False(t, nilResp.IsSuccessful())
}

func TestResponseIsExpired(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)
	assert.True(t, (&BookingResponse{ExpiresAt: &past}).IsExpired(now))
	assert.False(t, (&BookingResponse{ExpiresAt: &future}).IsExpired(now))
	assert.False(t, (&BookingResponse{}).IsExpired(now))
}

func TestSyncSummary(t *testing.T) {
	r := SyncSuccess(10, 7, 2, 1, 3*time.Second)
	assert.Equal(t, "Synced 7/10 products, skipped 2, failed 1 in 3s", r.Summary())
	assert.InDelta(t, 70.0, r.SuccessRate(), 0.0001)

	assert.Equal(t, "Synced 0/0 products", SyncSuccess(0, 0, 0, 0, 0).Summary())
	assert.Equal(t, 0.0, SyncSuccess(0, 0, 0, 0, 0).SuccessRate())

	f := SyncFailure("a", "b")
	assert.Equal(t, "Sync failed with 2 error(s)", f.Summary())
	assert.Equal(t, 0.0, f.SuccessRate())
}

func TestRequestDuration(t *testing.T) {
	d := time.Date(2025, 7, 4, 0, 0, 0, 0, time.UTC)
	r := BookingRequest{Date: d}
	assert.Equal(t, 1, r.Duration())
	assert.False(t, r.IsMultiDay())

	end := d.AddDate(0, 0, 2)
	r.EndDate = &end
	assert.Equal(t, 3, r.Duration())
	assert.True(t, r.IsMultiDay())
	assert.Equal(t, "adult", r.Option("age_group", "adult"))
}

func TestRequestFromMapRequiresProduct(t *testing.T) {
	_, err := BookingRequestFromMap(map[string]any{"date": "2025-01-01"})
	require.Error(t, err)

	_, err = BookingRequestFromMap(map[string]any{"product_id": "P1", "date": "01/01/2025"})
	require.Error(t, err)
}

func TestRequestFromMapDecodedJSON(t *testing.T) {
	r, err := BookingRequestFromMap(map[string]any{
		"product_id":       "P1",
		"date":             "2025-01-01",
		"quantity":         float64(3),
		"special_requests": []any{"wheelchair"},
		"options":          map[string]any{"age_group": "child"},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, r.Quantity)
	assert.Equal(t, []string{"wheelchair"}, r.SpecialRequests)
	assert.Equal(t, "child", r.Option("age_group", "adult"))
}

func TestMatchSlot(t *testing.T) {
	day := time.Date(2025, 12, 25, 0, 0, 0, 0, time.UTC)
	entries := []PricingEntry{
		{RateID: "R1", AvailabilityID: "A2", Start: day.Add(14 * time.Hour), Availability: 10},
		{RateID: "R1", AvailabilityID: "A1", Start: day.Add(9 * time.Hour), Availability: 1},
		{RateID: "R1", AvailabilityID: "A3", Start: day.AddDate(0, 0, 1).Add(9 * time.Hour), Availability: 50},
	}
	slots := SlotsOn(AvailabilityQuery{Date: day}, entries)
	require.Len(t, slots, 2)
	assert.Equal(t, "09:00", slots[0].Time)
	assert.Equal(t, "A1", slots[0].AvailabilityID)

	s, ok := MatchSlot(AvailabilityQuery{Date: day, Quantity: 2}, slots)
	require.True(t, ok)
	assert.Equal(t, "14:00", s.Time)

	_, ok = MatchSlot(AvailabilityQuery{Date: day, Time: "09:00", Quantity: 2}, slots)
	assert.False(t, ok)

	_, ok = MatchSlot(AvailabilityQuery{Date: day, RateID: "R2"}, slots)
	assert.False(t, ok)
}

func TestPriceHelpers(t *testing.T) {
	p := PriceFromAvailability("A1", "R1", time.Date(2025, 1, 1, 10, 30, 0, 0, time.UTC), 5, nil)
	assert.Equal(t, "10:30", p.TimeSlot)
	assert.True(t, p.IsAvailableForQuantity(5))
	assert.False(t, p.IsAvailableForQuantity(6))

	p.BasePrice = decimal.RequireFromString("100")
	p.TotalPrice = decimal.RequireFromString("112.5")
	p.Taxes = []Charge{{Name: "tax", Amount: decimal.RequireFromString("12.5")}}
	assert.Equal(t, "USD 112.50", p.Formatted(true))
	assert.True(t, p.Breakdown().TaxAmount.Equal(decimal.RequireFromString("12.5")))

	zero := 0
	sold := PriceFromAvailability("A2", "R1", time.Time{}, 0, &zero)
	assert.False(t, sold.IsAvailableForQuantity(1))
}

func TestVoucherNumber(t *testing.T) {
	n := NewVoucherNumber("VCH", "booking-abcd")
	assert.Regexp(t, `^VCH-[0-9A-F]{6}-ABCD$`, n)
	assert.Regexp(t, `^SO-[0-9A-F]{6}-42$`, NewVoucherNumber("SO", "42"))
}

func TestRateValidity(t *testing.T) {
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	until := time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)
	base := decimal.RequireFromString("99")
	r := Rate{ID: "R1", Active: true, ValidFrom: &from, ValidUntil: &until, BasePrice: &base, ProductDuration: 2}
	assert.True(t, r.IsValid(from.AddDate(0, 6, 0)))
	assert.False(t, r.IsValid(until.AddDate(0, 0, 1)))
	assert.True(t, r.IsValidForRange(from.AddDate(0, 0, -3), from.AddDate(0, 0, 1)))
	assert.True(t, r.IsMultiDay())
	assert.True(t, r.TotalPrice().Equal(base))
	assert.Equal(t, "Jan 1, 2025 to Dec 31, 2025", r.ValidityPeriod())
}

func TestRequestValidate(t *testing.T) {
	d := time.Date(2025, 7, 4, 0, 0, 0, 0, time.UTC)
	ok := BookingRequest{ProductID: "P1", Date: d, Quantity: 2}
	assert.NoError(t, ok.Validate())

	err := BookingRequest{}.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "product_id")
	assert.Contains(t, err.Error(), "date")
	assert.Contains(t, err.Error(), "quantity")

	before := d.AddDate(0, 0, -1)
	ok.EndDate = &before
	assert.ErrorContains(t, ok.Validate(), "end_date")
}
