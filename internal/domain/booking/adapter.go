package booking

import (
	"context"
	"time"
)

type Provider string

const (
	ProviderRedeam     Provider = "redeam"
	ProviderSmartOrder Provider = "smartorder"
)

// Adapter is the contract every theme-park booking integration fulfils.
//
// Booking operations never return an error: vendor and transport failures come
// back as a BookingResponse with Success false. Read operations return zero
// values (nil, empty, false) on failure, except time slots, pricing and voucher
// generation which report an error.
type Adapter interface {
	Name() string
	Provider() Provider
	ValidateConfig() error

	TestConnection(ctx context.Context) bool
	SyncProducts(ctx context.Context) *ProductSyncResult

	GetProduct(ctx context.Context, productID string) *Product
	SearchProducts(ctx context.Context, criteria SearchCriteria) []Product

	CreateBooking(ctx context.Context, req BookingRequest) *BookingResponse
	ConfirmBooking(ctx context.Context, reservationID string, payment PaymentData) *BookingResponse
	CancelBooking(ctx context.Context, bookingID, reason string) *BookingResponse
	GetBooking(ctx context.Context, bookingID string) *BookingResponse

	GenerateVoucher(ctx context.Context, bookingID string) (*VoucherData, error)
	GetAvailableTimeSlots(ctx context.Context, q AvailabilityQuery) ([]TimeSlot, error)
	CheckAvailability(ctx context.Context, q AvailabilityQuery) bool
	GetPricing(ctx context.Context, q AvailabilityQuery) ([]PricingEntry, error)

	LastSync(ctx context.Context) (time.Time, bool)
}

// HoldReleaser is implemented by adapters whose vendor supports explicit
// hold release ahead of expiry.
type HoldReleaser interface {
	ReleaseHold(ctx context.Context, holdID string) error
}

type SearchCriteria struct {
	Query    string
	Code     string // code prefix
	Category string
	Active   *bool
	Limit    int
}

type AvailabilityQuery struct {
	ProductID string
	RateID    string
	Date      time.Time
	Time      string // HH:MM, optional
	Quantity  int
}

func (q AvailabilityQuery) quantity() int {
	if q.Quantity < 1 {
		return 1
	}
	return q.Quantity
}

// PaymentData carries what a vendor needs to turn a hold into a booking.
// BookingReference is the caller's own order reference; vendors that take one
// get it verbatim and generate one otherwise.
type PaymentData struct {
	Method           string
	Reference        string
	Amount           string
	Currency         string
	Customer         Customer
	BookingReference string
	Ext              map[string]string
	Extra            map[string]any
}

type TimeSlot struct {
	Time           string `json:"time"`
	AvailabilityID string `json:"availability_id"`
	Capacity       int    `json:"capacity"`
	RateID         string `json:"rate_id"`
}

type PricingEntry struct {
	RateID         string         `json:"rate_id"`
	AvailabilityID string         `json:"availability_id,omitempty"`
	Price          Money          `json:"price"`
	Availability   int            `json:"availability"`
	Start          time.Time      `json:"start"`
	Raw            map[string]any `json:"-"`
}
