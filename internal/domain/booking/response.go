package booking

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusHold      Status = "hold"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusFailed    Status = "failed"
)

type Pricing struct {
	Total    *decimal.Decimal `json:"total,omitempty"`
	Currency string           `json:"currency,omitempty"`
}

type CancellationInfo struct {
	Reason      string     `json:"reason,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
	Refund      any        `json:"refund,omitempty"`
}

// BookingResponse is the uniform result of every booking operation.
type BookingResponse struct {
	Success           bool
	BookingID         string
	ReservationID     string
	HoldID            string
	Status            Status
	Customer          map[string]any
	ProductInfo       map[string]any
	BookingDate       *time.Time
	ExpiresAt         *time.Time
	TimeSlot          string
	Quantity          int
	Pricing           *Pricing
	Vouchers          []map[string]any
	ConfirmationCode  string
	SupplierReference string
	Cancellation      *CancellationInfo
	Timeline          []any
	ErrorMessage      string
	ErrorCode         string
	Provider          Provider
	Raw               map[string]any
	Metadata          map[string]any
}

// Success marks r successful, defaulting the status to confirmed.
func Success(r BookingResponse) *BookingResponse {
	r.Success = true
	if r.Status == "" {
		r.Status = StatusConfirmed
	}
	r.ErrorMessage, r.ErrorCode = "", ""
	return &r
}

func Error(msg, code string, metadata map[string]any) *BookingResponse {
	return &BookingResponse{
		Success:      false,
		Status:       StatusFailed,
		ErrorMessage: msg,
		ErrorCode:    code,
		Metadata:     metadata,
	}
}

func Cancelled(bookingID string, provider Provider, info *CancellationInfo, raw map[string]any) *BookingResponse {
	return &BookingResponse{
		Success:      true,
		BookingID:    bookingID,
		Status:       StatusCancelled,
		Cancellation: info,
		Provider:     provider,
		Raw:          raw,
	}
}

// Hold builds a held-inventory response; the reservation id defaults to the hold id.
func Hold(r BookingResponse) *BookingResponse {
	r.Success = true
	r.Status = StatusHold
	if r.ReservationID == "" {
		r.ReservationID = r.HoldID
	}
	return &r
}

func (r *BookingResponse) IsSuccessful() bool { return r != nil && r.Success }
func (r *BookingResponse) IsConfirmed() bool  { return r.IsSuccessful() && r.Status == StatusConfirmed }
func (r *BookingResponse) IsPending() bool    { return r.IsSuccessful() && r.Status == StatusPending }
func (r *BookingResponse) IsHold() bool       { return r.IsSuccessful() && r.Status == StatusHold }
func (r *BookingResponse) IsCancelled() bool  { return r.IsSuccessful() && r.Status == StatusCancelled }

func (r *BookingResponse) IsExpired(now time.Time) bool {
	return r != nil && r.ExpiresAt != nil && !r.ExpiresAt.After(now)
}

// ReservationRef returns the identifier a caller should use for follow-up
// operations: the booking id once confirmed, otherwise the reservation/hold id.
func (r *BookingResponse) ReservationRef() string {
	switch {
	case r == nil:
		return ""
	case r.BookingID != "":
		return r.BookingID
	case r.ReservationID != "":
		return r.ReservationID
	default:
		return r.HoldID
	}
}

func (r *BookingResponse) Meta(key string) any {
	if r == nil || r.Metadata == nil {
		return nil
	}
	return r.Metadata[key]
}
