package usecases

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/example/themepark-booking/internal/domain/booking"
	"github.com/example/themepark-booking/internal/domain/orderdetails"
	"github.com/example/themepark-booking/internal/internaltypes"
)

const UniversalAdapter = "smartorder"

// UniversalOrders places SmartOrder orders for host orders. Orders are
// confirmed by the vendor on placement.
type UniversalOrders struct {
	Bookings Bookings
	Repo     orderdetails.UniversalRepository
	Log      logrus.FieldLogger
	Now      func() time.Time
}

func (s UniversalOrders) log() logrus.FieldLogger {
	if s.Log != nil {
		return s.Log
	}
	return logrus.StandardLogger()
}

func (s UniversalOrders) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// ExternalOrderID is the reference sent to the vendor when the caller gives none.
func ExternalOrderID(orderID int64) string { return "ORD-" + strconv.FormatInt(orderID, 10) }

func (s UniversalOrders) Book(ctx context.Context, orderID int64, req booking.BookingRequest, by *int64) (orderdetails.Universal, error) {
	prev, err := s.Repo.GetUniversal(ctx, orderID)
	switch {
	case err == nil:
		if prev.Status != orderdetails.StatusCancelled && prev.Status != orderdetails.StatusFailed {
			return prev, fmt.Errorf("order %d already has a universal booking: %w", orderID, internaltypes.ErrConflict)
		}
		if err := s.Repo.DeleteUniversal(ctx, prev.ID, by); err != nil {
			return orderdetails.Universal{}, err
		}
	case !errors.Is(err, internaltypes.ErrNotFound):
		return orderdetails.Universal{}, err
	}
	if req.ReferenceID == "" {
		req.ReferenceID = ExternalOrderID(orderID)
	}

	resp := s.Bookings.CreateBooking(ctx, UniversalAdapter, req)
	if !resp.IsSuccessful() {
		failed := &orderdetails.Universal{
			OrderID:         orderID,
			ExternalOrderID: req.ReferenceID,
			Status:          orderdetails.StatusFailed,
			BookingData: merge(nil,
				"error", failureData(resp),
				"status", string(orderdetails.StatusFailed),
				"customer", req.Customer.Map(),
				"request", req.ToMap(),
			),
			Audit: orderdetails.Audit{CreatedBy: by},
		}
		if err := s.Repo.CreateUniversal(ctx, failed); err != nil {
			s.log().WithError(err).WithField("order_id", orderID).Warn("Failed to record failed order")
		}
		return *failed, failure(UniversalAdapter, resp)
	}
	data := map[string]any{}
	for k, v := range resp.Raw {
		data[k] = v
	}
	data["customer"] = req.Customer.Map()
	data["request"] = req.ToMap()
	ref := resp.SupplierReference
	if ref == "" {
		ref = req.ReferenceID
	}
	row := &orderdetails.Universal{
		OrderID:            orderID,
		GalaxyOrderID:      resp.BookingID,
		ExternalOrderID:    ref,
		BookingData:        data,
		ConfirmationNumber: resp.ConfirmationCode,
		Status:             orderdetails.StatusConfirmed,
		Audit:              orderdetails.Audit{CreatedBy: by},
	}
	if err := s.Repo.CreateUniversal(ctx, row); err != nil {
		// the vendor order exists; leave a trail for reconciliation
		s.log().WithError(err).WithFields(logrus.Fields{"order_id": orderID, "galaxy_order_id": resp.BookingID}).Error("Failed to record placed order")
		return orderdetails.Universal{}, err
	}
	s.log().WithFields(logrus.Fields{"order_id": orderID, "galaxy_order_id": row.GalaxyOrderID}).Info("Order placed")
	return *row, nil
}

func (s UniversalOrders) Cancel(ctx context.Context, orderID int64, reason string, by *int64) (orderdetails.Universal, error) {
	row, err := s.Repo.GetUniversal(ctx, orderID)
	if err != nil {
		return orderdetails.Universal{}, err
	}
	if row.Status == orderdetails.StatusCancelled {
		return row, nil
	}
	if row.GalaxyOrderID == "" {
		return row, &internaltypes.BookingError{Adapter: UniversalAdapter, Code: internaltypes.CodeNotCancellable, Msg: "order has no galaxy order id"}
	}
	resp := s.Bookings.CancelBooking(ctx, UniversalAdapter, row.GalaxyOrderID, reason)
	if !resp.IsSuccessful() {
		return row, failure(UniversalAdapter, resp)
	}
	row.Status = orderdetails.StatusCancelled
	row.BookingData = merge(row.BookingData,
		"status", string(orderdetails.StatusCancelled),
		"cancellation", merge(nil, "reason", reason, "cancelled_at", s.now().UTC().Format(time.RFC3339)),
	)
	row.UpdatedBy = by
	if err := s.Repo.UpdateUniversal(ctx, row); err != nil {
		return row, err
	}
	return row, nil
}

// Refresh re-reads the order from the vendor and stores what it reports.
func (s UniversalOrders) Refresh(ctx context.Context, orderID int64) (orderdetails.Universal, error) {
	row, err := s.Repo.GetUniversal(ctx, orderID)
	if err != nil {
		return orderdetails.Universal{}, err
	}
	resp := s.Bookings.GetBooking(ctx, UniversalAdapter, row.GalaxyOrderID)
	if !resp.IsSuccessful() {
		return row, fmt.Errorf("galaxy order %s: %w", row.GalaxyOrderID, internaltypes.ErrNotFound)
	}
	for k, v := range resp.Raw {
		row.BookingData = merge(row.BookingData, k, v)
	}
	if resp.ConfirmationCode != "" {
		row.ConfirmationNumber = resp.ConfirmationCode
	}
	if err := s.Repo.UpdateUniversal(ctx, row); err != nil {
		return row, err
	}
	return row, nil
}
