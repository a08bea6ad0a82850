package usecases

import (
	"context"
	"fmt"
	"time"

	"github.com/example/themepark-booking/internal/application/voucher"
	"github.com/example/themepark-booking/internal/domain/booking"
	"github.com/example/themepark-booking/internal/domain/orderdetails"
	"github.com/example/themepark-booking/internal/internaltypes"
)

type VoucherRenderer interface {
	Generate(ctx context.Context, v booking.VoucherData, opts voucher.Options) (*booking.VoucherData, error)
}

// Vouchers issues vouchers for confirmed bookings and records where the
// document was stored.
type Vouchers struct {
	Bookings  Bookings
	Renderer  VoucherRenderer
	Redeam    orderdetails.RedeamRepository
	Universal orderdetails.UniversalRepository
}

// fillFromRequest completes adapter voucher data with what was captured when
// the booking was placed.
func fillFromRequest(v *booking.VoucherData, data map[string]any) {
	if v.Customer.IsZero() {
		if m, ok := data["customer"].(map[string]any); ok {
			v.Customer = booking.CustomerFromMap(m)
		}
	}
	req, _ := data["request"].(map[string]any)
	if req == nil {
		return
	}
	if v.BookingDate == nil {
		if s, ok := req["date"].(string); ok {
			if d, err := time.Parse("2006-01-02", s); err == nil {
				v.BookingDate = &d
			}
		}
	}
	if v.TimeSlot == "" {
		v.TimeSlot, _ = req["time_slot"].(string)
	}
	if v.Quantity == 0 {
		switch q := req["quantity"].(type) {
		case int:
			v.Quantity = q
		case float64:
			v.Quantity = int(q)
		}
	}
	if v.ProductName == "" {
		switch md := req["metadata"].(type) {
		case map[string]any:
			v.ProductName, _ = md["product_name"].(string)
		case map[string]string:
			v.ProductName = md["product_name"]
		}
		if v.ProductName == "" {
			v.ProductName, _ = req["product_id"].(string)
		}
	}
}

func (s Vouchers) IssueRedeam(ctx context.Context, orderID int64, supplier orderdetails.SupplierType, by *int64) (*booking.VoucherData, error) {
	row, err := s.Redeam.GetRedeam(ctx, orderID, supplier)
	if err != nil {
		return nil, err
	}
	if row.BookingID == "" || row.Status != orderdetails.StatusConfirmed {
		return nil, &internaltypes.BookingError{Adapter: RedeamAdapter(supplier), Code: internaltypes.CodeVendor, Msg: fmt.Sprintf("order %d is not confirmed", orderID)}
	}
	v, err := s.Bookings.GenerateVoucher(ctx, RedeamAdapter(supplier), row.BookingID)
	if err != nil {
		return nil, err
	}
	fillFromRequest(v, row.BookingData)
	if v.ParkType == "" {
		v.ParkType = string(supplier)
	}
	out, err := s.Renderer.Generate(ctx, *v, voucher.Options{})
	if err != nil {
		return nil, err
	}
	row.Voucher = out.ArtifactPath
	row.UpdatedBy = by
	if err := s.Redeam.UpdateRedeam(ctx, row); err != nil {
		return nil, err
	}
	return out, nil
}

func (s Vouchers) IssueUniversal(ctx context.Context, orderID int64, by *int64) (*booking.VoucherData, error) {
	row, err := s.Universal.GetUniversal(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if row.GalaxyOrderID == "" || row.Status != orderdetails.StatusConfirmed {
		return nil, &internaltypes.BookingError{Adapter: UniversalAdapter, Code: internaltypes.CodeVendor, Msg: fmt.Sprintf("order %d is not confirmed", orderID)}
	}
	v, err := s.Bookings.GenerateVoucher(ctx, UniversalAdapter, row.GalaxyOrderID)
	if err != nil {
		return nil, err
	}
	fillFromRequest(v, row.BookingData)
	if v.Details == nil {
		v.Details = map[string]any{}
	}
	v.Details["galaxy_order_id"] = row.GalaxyOrderID
	out, err := s.Renderer.Generate(ctx, *v, voucher.Options{})
	if err != nil {
		return nil, err
	}
	row.Voucher = out.ArtifactPath
	row.UpdatedBy = by
	if err := s.Universal.UpdateUniversal(ctx, row); err != nil {
		return nil, err
	}
	return out, nil
}
