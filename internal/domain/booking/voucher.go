package booking

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type VoucherData struct {
	BookingID     string
	VoucherNumber string
	QRCode        string
	BarcodeData   string
	Customer      Customer
	ProductName   string
	ProductInfo   map[string]any
	BookingDate   *time.Time
	TimeSlot      string
	Quantity      int
	Provider      Provider
	ParkType      string
	ArtifactPath  string
	DownloadURL   string
	Instructions  []string
	Details       map[string]any
	Metadata      map[string]any
}

func (v VoucherData) HasDownloadURL() bool { return v.DownloadURL != "" }
func (v VoucherData) HasArtifact() bool    { return v.ArtifactPath != "" }

// NewVoucherNumber renders prefix-XXXXXX-tail where XXXXXX is random upper
// case alphanumerics and tail the last four characters of bookingID.
func NewVoucherNumber(prefix, bookingID string) string {
	rnd := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:6]
	tail := bookingID
	if len(tail) > 4 {
		tail = tail[len(tail)-4:]
	}
	return prefix + "-" + rnd + "-" + strings.ToUpper(tail)
}
