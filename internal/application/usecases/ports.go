package usecases

import (
	"context"

	"github.com/example/themepark-booking/internal/domain/booking"
)

// Bookings is the slice of the booking manager the use cases drive.
type Bookings interface {
	TestConnection(ctx context.Context, adapter string) bool
	GetAvailableTimeSlots(ctx context.Context, adapter string, q booking.AvailabilityQuery) ([]booking.TimeSlot, error)
	CreateBooking(ctx context.Context, adapter string, req booking.BookingRequest) *booking.BookingResponse
	ConfirmBooking(ctx context.Context, adapter, reservationID string, payment booking.PaymentData) *booking.BookingResponse
	CancelBooking(ctx context.Context, adapter, bookingID, reason string) *booking.BookingResponse
	GetBooking(ctx context.Context, adapter, bookingID string) *booking.BookingResponse
	ReleaseHold(ctx context.Context, adapter, holdID string) error
	GenerateVoucher(ctx context.Context, adapter, bookingID string) (*booking.VoucherData, error)
}
