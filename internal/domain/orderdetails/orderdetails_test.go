package orderdetails

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func at(d time.Duration) *time.Time {
	t := now.Add(d)
	return &t
}

func TestRedeamHoldState(t *testing.T) {
	cases := []struct {
		name    string
		row     Redeam
		onHold  bool
		expired bool
		state   State
	}{
		{"no hold", Redeam{Status: StatusPending}, false, false, StatePending},
		{"open-ended hold", Redeam{HoldID: "H1", Status: StatusPending}, true, false, StateOnHold},
		{"future hold", Redeam{HoldID: "H1", HoldExpiresAt: at(time.Minute)}, true, false, StateOnHold},
		{"lapsed hold", Redeam{HoldID: "H1", HoldExpiresAt: at(-time.Minute)}, false, true, StateHoldExpired},
		{"expiry without id", Redeam{HoldExpiresAt: at(time.Hour)}, false, false, StatePending},
		{"confirmed keeps hold id", Redeam{HoldID: "H1", HoldExpiresAt: at(-time.Hour), Status: StatusConfirmed}, false, true, StateConfirmed},
		{"failed", Redeam{Status: StatusFailed}, false, false, StateFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.onHold, tc.row.IsOnHold(now))
			assert.Equal(t, tc.expired, tc.row.IsHoldExpired(now))
			assert.Equal(t, tc.state, tc.row.State(now))
		})
	}
}

// Property: IsOnHold iff hold id is set and expiry is nil or in the future,
// whatever the stored status.
func TestIsOnHoldProperty(t *testing.T) {
	properties := gopter.NewProperties(gopter.DefaultTestParameters())
	statuses := []Status{StatusPending, StatusConfirmed, StatusCancelled, StatusFailed, ""}

	properties.Property("on-hold is derived from timestamps only", prop.ForAll(
		func(holdID string, hasExpiry bool, offsetSec int64, statusIdx int) bool {
			r := Redeam{HoldID: holdID, Status: statuses[statusIdx]}
			if hasExpiry {
				r.HoldExpiresAt = at(time.Duration(offsetSec) * time.Second)
			}
			want := holdID != "" && (!hasExpiry || offsetSec > 0)
			return r.IsOnHold(now) == want
		},
		gen.AlphaString(),
		gen.Bool(),
		gen.Int64Range(-86400, 86400),
		gen.IntRange(0, len(statuses)-1),
	))

	properties.TestingRun(t)
}

func TestRedeamDerivedFields(t *testing.T) {
	r := Redeam{
		SupplierType: SupplierDisney,
		Status:       StatusPending,
		BookingData: map[string]any{
			"status":   "Booked",
			"ext":      map[string]any{"supplier": map[string]any{"reference": "SUP-9"}},
			"timeline": []any{map[string]any{"type": "created"}},
		},
		Voucher: "vouchers/redeam/voucher-1.html",
	}
	assert.True(t, r.IsDisney())
	assert.False(t, r.IsUnitedParks())
	assert.Equal(t, "Booked", r.BookingStatus())
	assert.True(t, r.IsConfirmed())
	assert.False(t, r.IsCancelled())
	assert.Equal(t, "SUP-9", r.SupplierRef())
	assert.Len(t, r.Timeline(), 1)
	assert.Equal(t, "/srv/storage/vouchers/redeam/voucher-1.html", r.VoucherURL("/srv/storage"))
	assert.Equal(t, "https://cdn.example.com/vouchers/redeam/voucher-1.html", r.VoucherURL("https://cdn.example.com/"))

	r.SupplierReference = "COL-1"
	d, ok := r.ConfirmationDetails("")
	require.True(t, ok)
	assert.Equal(t, "COL-1", d.SupplierReference)

	_, ok = Redeam{}.ConfirmationDetails("")
	assert.False(t, ok)

	abs := Redeam{Voucher: "https://files.example.com/v.pdf"}
	assert.Equal(t, "https://files.example.com/v.pdf", abs.VoucherURL("/ignored"))

	up := Redeam{SupplierType: "united_parks_seaworld", Status: StatusCancelled}
	assert.True(t, up.IsUnitedParks())
	assert.True(t, up.IsCancelled())
}

func TestUniversalTickets(t *testing.T) {
	u := Universal{
		GalaxyOrderID: "G1",
		Status:        StatusPending,
		BookingData: map[string]any{
			"orderStatus": "Success",
			"createdTicketResponses": []any{
				map[string]any{"ticketId": "T1", "barcode": "111", "guestName": "Ada"},
				map[string]any{"ticketId": "T2", "barcode": "222"},
			},
		},
	}
	assert.True(t, u.HasCreatedTicketResponses())
	assert.Equal(t, 2, u.TicketCount())
	assert.Equal(t, "Ada", u.Tickets()[0].GuestName)
	assert.True(t, u.IsConfirmed())
	assert.False(t, u.IsPending())

	g, ok := u.GalaxyOrderDetails()
	require.True(t, ok)
	assert.Equal(t, 2, g.TicketCount)

	empty := Universal{Status: StatusPending}
	assert.False(t, empty.HasCreatedTicketResponses())
	assert.Equal(t, 0, empty.TicketCount())
	assert.True(t, empty.IsPending())
	_, ok = empty.GalaxyOrderDetails()
	assert.False(t, ok)

	failed := Universal{Status: StatusFailed}
	assert.True(t, failed.IsCancelled())
}
