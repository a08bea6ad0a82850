package booking

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type Location struct {
	Name      string   `json:"name,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// Product is a vendor catalog entry normalised across providers.
type Product struct {
	RemoteID       string
	Name           string
	Description    string
	Provider       Provider
	Category       string
	Pricing        map[string]any
	Options        map[string]any
	Active         bool
	ImageURL       string
	Location       *Location
	Duration       int
	Restrictions   map[string]any
	AvailableFrom  *time.Time
	AvailableUntil *time.Time
	Metadata       map[string]any
	LastUpdated    *time.Time
}

func (p Product) Option(key string) (any, bool) {
	v, ok := p.Options[key]
	return v, ok
}

// IsAvailableOn reports whether d falls inside the product's validity window.
func (p Product) IsAvailableOn(d time.Time) bool {
	if p.AvailableFrom != nil && d.Before(*p.AvailableFrom) {
		return false
	}
	if p.AvailableUntil != nil && d.After(*p.AvailableUntil) {
		return false
	}
	return true
}

func (p Product) BasePricing() map[string]any {
	if base, ok := p.Pricing["base"].(map[string]any); ok {
		return base
	}
	return map[string]any{}
}

// Rate is a purchasable variant of a product.
type Rate struct {
	ID                 string
	Name               string
	Code               string
	OptionID           string
	ProductID          string
	ProductDuration    int
	ValidFrom          *time.Time
	ValidUntil         *time.Time
	Description        string
	BasePrice          *decimal.Decimal
	Total              *decimal.Decimal
	Restrictions       map[string]any
	CancellationPolicy map[string]any
	Active             bool
	Currency           string
	Metadata           map[string]any
}

func (r Rate) IsValid(at time.Time) bool {
	if r.ValidFrom != nil && at.Before(*r.ValidFrom) {
		return false
	}
	if r.ValidUntil != nil && at.After(*r.ValidUntil) {
		return false
	}
	return r.Active
}

func (r Rate) IsValidForRange(start, end time.Time) bool {
	if r.ValidFrom != nil && end.Before(*r.ValidFrom) {
		return false
	}
	if r.ValidUntil != nil && start.After(*r.ValidUntil) {
		return false
	}
	return r.Active
}

func (r Rate) IsMultiDay() bool { return r.ProductDuration > 1 }

// TotalPrice falls back to the base price when no total was quoted.
func (r Rate) TotalPrice() *decimal.Decimal {
	if r.Total != nil {
		return r.Total
	}
	return r.BasePrice
}

func (r Rate) ValidityPeriod() string {
	if r.ValidFrom == nil || r.ValidUntil == nil {
		return ""
	}
	return fmt.Sprintf("%s to %s", r.ValidFrom.Format("Jan 2, 2006"), r.ValidUntil.Format("Jan 2, 2006"))
}
