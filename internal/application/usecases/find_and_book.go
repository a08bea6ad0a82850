package usecases

import (
	"context"
	"fmt"

	"github.com/example/themepark-booking/internal/domain/booking"
	"github.com/example/themepark-booking/internal/internaltypes"
)

// FindAndBook looks up the day's slots and books the first preferred time that
// has room. With no preferences the earliest slot with capacity wins.
type FindAndBook struct {
	Bookings Bookings
}

func (u FindAndBook) Execute(ctx context.Context, adapter string, req booking.BookingRequest, preferred []string) *booking.BookingResponse {
	if u.Bookings == nil {
		return booking.Error("booking manager is nil", "", nil)
	}
	q := booking.AvailabilityQuery{
		ProductID: req.ProductID,
		RateID:    req.RateID,
		Date:      req.Date,
		Quantity:  req.Quantity,
	}
	slots, err := u.Bookings.GetAvailableTimeSlots(ctx, adapter, q)
	if err != nil {
		return booking.Error(err.Error(), "", nil)
	}
	slot, ok := chooseSlot(q, preferred, slots)
	if !ok {
		return booking.Error(fmt.Sprintf("no matching slots for %s on %s", req.ProductID, req.Date.Format("2006-01-02")), internaltypes.CodeNotAvailable, nil)
	}
	req.TimeSlot = slot.Time
	if req.AvailabilityID == "" {
		req.AvailabilityID = slot.AvailabilityID
	}
	if req.RateID == "" {
		req.RateID = slot.RateID
	}
	return u.Bookings.CreateBooking(ctx, adapter, req)
}

func chooseSlot(q booking.AvailabilityQuery, preferred []string, slots []booking.TimeSlot) (booking.TimeSlot, bool) {
	if len(preferred) == 0 {
		return booking.MatchSlot(q, slots)
	}
	for _, t := range preferred {
		q.Time = t
		if s, ok := booking.MatchSlot(q, slots); ok {
			return s, true
		}
	}
	return booking.TimeSlot{}, false
}
