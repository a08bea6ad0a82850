package booking

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// Property: ToMap(FromMap(ToMap(r))) == ToMap(r)
func TestBookingRequestMapRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("booking request survives a map round trip", prop.ForAll(
		func(product, rate, first, email string, qty int, dayOffset int) bool {
			if product == "" {
				return true
			}
			d := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, dayOffset)
			req := BookingRequest{
				ProductID: product,
				RateID:    rate,
				Date:      d,
				Quantity:  qty,
				Customer:  Customer{FirstName: first, Email: email},
				Options:   map[string]string{"age_group": "adult"},
			}
			if dayOffset%2 == 0 {
				end := d.AddDate(0, 0, 1)
				req.EndDate = &end
			}
			m := req.ToMap()
			back, err := BookingRequestFromMap(m)
			if err != nil {
				return false
			}
			again := back.ToMap()
			if len(again) != len(m) {
				return false
			}
			return back.ProductID == req.ProductID &&
				back.RateID == req.RateID &&
				back.Date.Equal(req.Date) &&
				back.Quantity == req.Quantity &&
				back.Customer == req.Customer &&
				back.IsMultiDay() == req.IsMultiDay() &&
				back.Option("age_group", "") == "adult"
		},
		gen.AlphaString(),
		gen.AlphaString(),
		gen.AlphaString(),
		gen.AlphaString(),
		gen.IntRange(1, 20),
		gen.IntRange(0, 365),
	))

	properties.TestingRun(t)
}

// Property: SuccessRate == synced/total*100, and 0 when total == 0
func TestSuccessRateProperty(t *testing.T) {
	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("success rate is a bounded percentage", prop.ForAll(
		func(total, synced int) bool {
			if synced > total {
				synced = total
			}
			r := SyncSuccess(total, synced, 0, 0, 0)
			rate := r.SuccessRate()
			if total == 0 {
				return rate == 0
			}
			want := float64(synced) / float64(total) * 100
			return rate == want && rate >= 0 && rate <= 100
		},
		gen.IntRange(0, 10000),
		gen.IntRange(0, 10000),
	))

	properties.TestingRun(t)
}

// Property: Success(...) is always successful, Error(...) never is
func TestResponseSuccessProperty(t *testing.T) {
	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("constructor decides IsSuccessful", prop.ForAll(
		func(id, msg string) bool {
			return Success(BookingResponse{BookingID: id}).IsSuccessful() &&
				!Error(msg, "", nil).IsSuccessful()
		},
		gen.AnyString(),
		gen.AnyString(),
	))

	properties.TestingRun(t)
}
