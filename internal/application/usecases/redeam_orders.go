package usecases

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/example/themepark-booking/internal/domain/booking"
	"github.com/example/themepark-booking/internal/domain/orderdetails"
	"github.com/example/themepark-booking/internal/internaltypes"
)

// RedeamAdapter names the manager entry serving a supplier family.
func RedeamAdapter(s orderdetails.SupplierType) string { return "redeam_" + string(s) }

// RedeamOrders ties Redeam holds and bookings to host orders.
type RedeamOrders struct {
	Bookings Bookings
	Repo     orderdetails.RedeamRepository
	Log      logrus.FieldLogger
	Now      func() time.Time
}

func (s RedeamOrders) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s RedeamOrders) log() logrus.FieldLogger {
	if s.Log != nil {
		return s.Log
	}
	return logrus.StandardLogger()
}

func failure(adapter string, resp *booking.BookingResponse) error {
	return &internaltypes.BookingError{Adapter: adapter, Code: resp.ErrorCode, Msg: resp.ErrorMessage}
}

// failureData is what gets stored in booking_data for a vendor error.
func failureData(resp *booking.BookingResponse) map[string]any {
	return map[string]any{"code": resp.ErrorCode, "message": resp.ErrorMessage}
}

func merge(dst map[string]any, kv ...any) map[string]any {
	if dst == nil {
		dst = map[string]any{}
	}
	for i := 0; i+1 < len(kv); i += 2 {
		if present(kv[i+1]) {
			dst[kv[i].(string)] = kv[i+1]
		}
	}
	return dst
}

func present(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case map[string]any:
		return len(t) > 0
	case []any:
		return len(t) > 0
	case string:
		return t != ""
	}
	return true
}

// Hold places a vendor hold for orderID and records it. A previous row whose
// hold lapsed or whose booking was cancelled is retired first; a live hold or
// a confirmed booking makes this a conflict. A vendor refusal is recorded as
// a failed row.
func (s RedeamOrders) Hold(ctx context.Context, orderID int64, supplier orderdetails.SupplierType, req booking.BookingRequest, by *int64) (orderdetails.Redeam, error) {
	adapter := RedeamAdapter(supplier)
	prev, err := s.Repo.GetRedeam(ctx, orderID, supplier)
	switch {
	case err == nil:
		switch prev.State(s.now()) {
		case orderdetails.StateOnHold, orderdetails.StateConfirmed, orderdetails.StatePending:
			return prev, fmt.Errorf("order %d already has a %s booking: %w", orderID, supplier, internaltypes.ErrConflict)
		}
		if err := s.Repo.DeleteRedeam(ctx, prev.ID, by); err != nil {
			return orderdetails.Redeam{}, err
		}
	case !errors.Is(err, internaltypes.ErrNotFound):
		return orderdetails.Redeam{}, err
	}

	resp := s.Bookings.CreateBooking(ctx, adapter, req)
	if !resp.IsSuccessful() {
		failed := &orderdetails.Redeam{
			OrderID:         orderID,
			ReferenceNumber: req.ReferenceID,
			SupplierType:    supplier,
			Status:          orderdetails.StatusFailed,
			BookingData: merge(nil,
				"error", failureData(resp),
				"status", string(orderdetails.StatusFailed),
				"customer", req.Customer.Map(),
				"request", req.ToMap(),
			),
			Audit: orderdetails.Audit{CreatedBy: by},
		}
		if err := s.Repo.CreateRedeam(ctx, failed); err != nil {
			s.log().WithError(err).WithField("order_id", orderID).Warn("Failed to record failed hold")
		}
		return *failed, failure(adapter, resp)
	}
	row := &orderdetails.Redeam{
		OrderID:         orderID,
		ReferenceNumber: req.ReferenceID,
		HoldID:          resp.HoldID,
		HoldExpiresAt:   resp.ExpiresAt,
		SupplierType:    supplier,
		Status:          orderdetails.StatusPending,
		BookingData: merge(nil,
			"hold", resp.Metadata,
			"customer", req.Customer.Map(),
			"request", req.ToMap(),
		),
		Audit: orderdetails.Audit{CreatedBy: by},
	}
	if err := s.Repo.CreateRedeam(ctx, row); err != nil {
		if rerr := s.Bookings.ReleaseHold(ctx, adapter, resp.HoldID); rerr != nil {
			s.log().WithError(rerr).WithField("hold_id", resp.HoldID).Warn("Failed to release unrecorded hold")
		}
		return orderdetails.Redeam{}, err
	}
	s.log().WithFields(logrus.Fields{"order_id": orderID, "hold_id": row.HoldID, "supplier": supplier}).Info("Hold recorded")
	return *row, nil
}

// Confirm turns the order's hold into a booking. A hold already past its
// recorded expiry is rejected without contacting the vendor.
func (s RedeamOrders) Confirm(ctx context.Context, orderID int64, supplier orderdetails.SupplierType, payment booking.PaymentData, by *int64) (orderdetails.Redeam, error) {
	adapter := RedeamAdapter(supplier)
	row, err := s.Repo.GetRedeam(ctx, orderID, supplier)
	if err != nil {
		return orderdetails.Redeam{}, err
	}
	switch row.State(s.now()) {
	case orderdetails.StateConfirmed:
		return row, nil
	case orderdetails.StateHoldExpired:
		return row, &internaltypes.BookingError{Adapter: adapter, Code: internaltypes.CodeHoldExpired, Msg: "Reservation has expired"}
	case orderdetails.StateOnHold:
	default:
		return row, &internaltypes.BookingError{Adapter: adapter, Code: internaltypes.CodeVendor, Msg: fmt.Sprintf("order %d has no active hold", orderID)}
	}
	if payment.BookingReference == "" {
		payment.BookingReference = row.ReferenceNumber
	}
	if payment.Customer.IsZero() {
		if m, ok := row.BookingData["customer"].(map[string]any); ok {
			payment.Customer = booking.CustomerFromMap(m)
		}
	}

	resp := s.Bookings.ConfirmBooking(ctx, adapter, row.HoldID, payment)
	if !resp.IsSuccessful() {
		if resp.ErrorCode == internaltypes.CodeHoldExpired {
			now := s.now()
			row.HoldExpiresAt = &now
		} else {
			row.Status = orderdetails.StatusFailed
			row.BookingData = merge(row.BookingData,
				"error", failureData(resp),
				"status", string(orderdetails.StatusFailed),
			)
		}
		row.UpdatedBy = by
		if err := s.Repo.UpdateRedeam(ctx, row); err != nil {
			return row, err
		}
		return row, failure(adapter, resp)
	}

	row.BookingID = resp.BookingID
	row.ConfirmationNumber = resp.ConfirmationCode
	if row.ConfirmationNumber == "" {
		row.ConfirmationNumber = resp.BookingID
	}
	row.SupplierReference = resp.SupplierReference
	if ref, ok := resp.Meta("reference").(string); ok && row.ReferenceNumber == "" {
		row.ReferenceNumber = ref
	}
	row.Status = orderdetails.StatusConfirmed
	row.BookingData = merge(row.BookingData,
		"booking", resp.Raw,
		"timeline", resp.Timeline,
		"status", string(orderdetails.StatusConfirmed),
	)
	row.UpdatedBy = by
	if err := s.Repo.UpdateRedeam(ctx, row); err != nil {
		return row, err
	}
	s.log().WithFields(logrus.Fields{"order_id": orderID, "booking_id": row.BookingID}).Info("Booking confirmed")
	return row, nil
}

// Cancel cancels a confirmed booking or releases a live hold.
func (s RedeamOrders) Cancel(ctx context.Context, orderID int64, supplier orderdetails.SupplierType, reason string, by *int64) (orderdetails.Redeam, error) {
	adapter := RedeamAdapter(supplier)
	row, err := s.Repo.GetRedeam(ctx, orderID, supplier)
	if err != nil {
		return orderdetails.Redeam{}, err
	}
	if row.Status == orderdetails.StatusCancelled {
		return row, nil
	}
	now := s.now()
	var raw map[string]any
	switch {
	case row.BookingID != "":
		resp := s.Bookings.CancelBooking(ctx, adapter, row.BookingID, reason)
		if !resp.IsSuccessful() {
			return row, failure(adapter, resp)
		}
		raw = resp.Raw
	case row.IsOnHold(now):
		if err := s.Bookings.ReleaseHold(ctx, adapter, row.HoldID); err != nil {
			return row, err
		}
	}
	row.Status = orderdetails.StatusCancelled
	row.BookingData = merge(row.BookingData,
		"status", string(orderdetails.StatusCancelled),
		"cancellation", merge(nil, "reason", reason, "cancelled_at", now.UTC().Format(time.RFC3339), "response", raw),
	)
	row.UpdatedBy = by
	if err := s.Repo.UpdateRedeam(ctx, row); err != nil {
		return row, err
	}
	s.log().WithFields(logrus.Fields{"order_id": orderID, "supplier": supplier}).Info("Booking cancelled")
	return row, nil
}

func (s RedeamOrders) ActiveHolds(ctx context.Context) ([]orderdetails.Redeam, error) {
	return s.Repo.ActiveHolds(ctx, s.now())
}
