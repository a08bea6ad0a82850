package orderdetails

import (
	"strings"
	"time"
)

// Redeam is one Redeam booking attached to a host order (Disney or United Parks).
type Redeam struct {
	ID                 int64
	OrderID            int64
	ReferenceNumber    string
	HoldID             string
	HoldExpiresAt      *time.Time
	BookingID          string
	BookingData        map[string]any
	Voucher            string
	SupplierType       SupplierType
	SupplierReference  string
	ConfirmationNumber string
	Status             Status
	Audit
}

// IsHoldExpired is true once a recorded hold expiry has passed.
func (r Redeam) IsHoldExpired(now time.Time) bool {
	return r.HoldExpiresAt != nil && !r.HoldExpiresAt.After(now)
}

// IsOnHold is true iff a hold id is present and its expiry is unset or still
// in the future. The status column plays no part.
func (r Redeam) IsOnHold(now time.Time) bool {
	return r.HoldID != "" && !r.IsHoldExpired(now)
}

// State folds the stored status and the hold timestamps into one view.
func (r Redeam) State(now time.Time) State {
	switch r.Status {
	case StatusConfirmed:
		return StateConfirmed
	case StatusCancelled:
		return StateCancelled
	case StatusFailed:
		return StateFailed
	}
	if r.HoldID != "" {
		if r.IsOnHold(now) {
			return StateOnHold
		}
		return StateHoldExpired
	}
	return StatePending
}

func (r Redeam) IsDisney() bool {
	return r.SupplierType == SupplierDisney || strings.Contains(strings.ToLower(string(r.SupplierType)), "disney")
}

func (r Redeam) IsUnitedParks() bool {
	return r.SupplierType == SupplierUnitedParks || strings.Contains(strings.ToLower(string(r.SupplierType)), "united")
}

// BookingStatus prefers the vendor's status from booking data over the column.
func (r Redeam) BookingStatus() string {
	if s := stringAt(r.BookingData, "status"); s != "" {
		return s
	}
	return string(r.Status)
}

func (r Redeam) IsConfirmed() bool { return statusIn(r.BookingStatus(), confirmedStatuses) }
func (r Redeam) IsCancelled() bool { return statusIn(r.BookingStatus(), cancelledStatuses) }

func (r Redeam) SupplierRef() string {
	if r.SupplierReference != "" {
		return r.SupplierReference
	}
	return stringAt(r.BookingData, "ext", "supplier", "reference")
}

func (r Redeam) Timeline() []any {
	if tl, ok := r.BookingData["timeline"].([]any); ok {
		return tl
	}
	return nil
}

func (r Redeam) VoucherURL(root string) string { return voucherURL(r.Voucher, root) }

type RedeamConfirmation struct {
	ReferenceNumber    string `json:"reference_number"`
	BookingID          string `json:"booking_id"`
	SupplierReference  string `json:"supplier_reference"`
	ConfirmationNumber string `json:"confirmation_number"`
	Status             string `json:"status"`
	VoucherURL         string `json:"voucher_url"`
}

// ConfirmationDetails is empty until booking data has been recorded.
func (r Redeam) ConfirmationDetails(voucherRoot string) (RedeamConfirmation, bool) {
	if len(r.BookingData) == 0 {
		return RedeamConfirmation{}, false
	}
	return RedeamConfirmation{
		ReferenceNumber:    r.ReferenceNumber,
		BookingID:          r.BookingID,
		SupplierReference:  r.SupplierRef(),
		ConfirmationNumber: r.ConfirmationNumber,
		Status:             r.BookingStatus(),
		VoucherURL:         r.VoucherURL(voucherRoot),
	}, true
}
