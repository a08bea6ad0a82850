package orderdetails

import (
	"net/url"
	"path"
	"strings"
	"time"
)

// Status is the persisted lifecycle column. Hold state is never stored; it is
// derived from HoldID and HoldExpiresAt.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusFailed    Status = "failed"
)

// State is the computed view of a row at a point in time.
type State string

const (
	StateOnHold      State = "on_hold"
	StateHoldExpired State = "hold_expired"
	StatePending     State = "pending"
	StateConfirmed   State = "confirmed"
	StateCancelled   State = "cancelled"
	StateFailed      State = "failed"
)

type SupplierType string

const (
	SupplierDisney      SupplierType = "disney"
	SupplierUnitedParks SupplierType = "united_parks"
)

// Audit carries the row bookkeeping shared by both tables.
type Audit struct {
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
	CreatedBy *int64
	UpdatedBy *int64
	DeletedBy *int64
}

func (a Audit) IsDeleted() bool { return a.DeletedAt != nil }

var (
	confirmedStatuses          = []string{"confirmed", "booked", "completed"}
	cancelledStatuses          = []string{"cancelled", "canceled"}
	universalConfirmedStatuses = []string{"confirmed", "booked", "completed", "success"}
	universalCancelledStatuses = []string{"cancelled", "canceled", "failed"}
	universalPendingStatuses   = []string{"pending", "processing", "submitted"}
)

func statusIn(s string, set []string) bool {
	s = strings.ToLower(s)
	for _, v := range set {
		if s == v {
			return true
		}
	}
	return false
}

// voucherURL returns voucher unchanged when it is an absolute URL, otherwise
// the path joined onto root.
func voucherURL(voucher, root string) string {
	if voucher == "" {
		return ""
	}
	if u, err := url.Parse(voucher); err == nil && u.Scheme != "" && u.Host != "" {
		return voucher
	}
	if root == "" {
		return voucher
	}
	if u, err := url.Parse(root); err == nil && u.Scheme != "" {
		return strings.TrimRight(root, "/") + "/" + strings.TrimLeft(voucher, "/")
	}
	return path.Join(root, voucher)
}

func stringAt(m map[string]any, keys ...string) string {
	var cur any = m
	for _, k := range keys {
		mm, ok := cur.(map[string]any)
		if !ok {
			return ""
		}
		cur = mm[k]
	}
	s, _ := cur.(string)
	return s
}
