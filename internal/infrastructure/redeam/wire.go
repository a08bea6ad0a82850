package redeam

import (
	"time"

	"github.com/shopspring/decimal"
)

type supplierWire struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Code   string `json:"code"`
	OctoID string `json:"octoID"`
}

type productWire struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Category    string         `json:"category"`
	SupplierID  string         `json:"supplierId"`
	Active      *bool          `json:"active"`
	Image       string         `json:"image"`
	Pricing     map[string]any `json:"pricing"`
	Options     map[string]any `json:"options"`
	Extensions  map[string]any `json:"extensions"`
	Location    *struct {
		Name      string   `json:"name"`
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
	} `json:"location"`
}

type rateWire struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Code        string              `json:"code"`
	OptionID    string              `json:"optionId"`
	ProductID   string              `json:"productId"`
	Description string              `json:"description"`
	Active      *bool               `json:"active"`
	Currency    string              `json:"currency"`
	Pricing     map[string]any      `json:"pricing"`
	Price       decimal.NullDecimal `json:"price"`
	Total       decimal.NullDecimal `json:"total"`
	Valid       struct {
		From  *time.Time `json:"from"`
		Until *time.Time `json:"until"`
	} `json:"valid"`
	Restrictions       map[string]any `json:"restrictions"`
	CancellationPolicy map[string]any `json:"cancellationPolicy"`
	Ext                map[string]any `json:"ext"`
}

type availabilityWire struct {
	ID        string              `json:"id"`
	Start     time.Time           `json:"start"`
	Capacity  int                 `json:"capacity"`
	Available *int                `json:"available"`
	Price     decimal.NullDecimal `json:"price"`
}

type rateAvailabilityWire struct {
	Price        decimal.NullDecimal `json:"price"`
	Currency     string              `json:"currency"`
	Availability []availabilityWire  `json:"availability"`
}

type availabilitiesResponse struct {
	Availabilities struct {
		ByRate map[string]rateAvailabilityWire `json:"byRate"`
	} `json:"availabilities"`
}

type holdItem struct {
	ProductID      string            `json:"productId"`
	RateID         string            `json:"rateId,omitempty"`
	AvailabilityID string            `json:"availabilityId,omitempty"`
	At             string            `json:"at"`
	TravelerType   string            `json:"travelerType"`
	Ext            map[string]string `json:"ext,omitempty"`
}

type holdRequest struct {
	Hold struct {
		Items []holdItem `json:"items"`
	} `json:"hold"`
}

type holdWire struct {
	ID      string           `json:"id"`
	Expires *time.Time       `json:"expires"`
	Items   []map[string]any `json:"items"`
}

type holdResponse struct {
	Hold holdWire `json:"hold"`
}

type addressWire struct {
	Line1    string `json:"line1"`
	Line2    string `json:"line2"`
	City     string `json:"city"`
	State    string `json:"state"`
	Postcode string `json:"postcode"`
	Country  string `json:"country"`
}

type customerWire struct {
	FirstName string      `json:"firstName"`
	LastName  string      `json:"lastName"`
	Email     string      `json:"email"`
	Phone     string      `json:"phone"`
	Address   addressWire `json:"address"`
}

type bookingRequest struct {
	Booking struct {
		HoldID    string            `json:"holdId"`
		Reference string            `json:"reference"`
		Customer  customerWire      `json:"customer"`
		Ext       map[string]string `json:"ext,omitempty"`
	} `json:"booking"`
}

type bookingResponse struct {
	Booking map[string]any `json:"booking"`
}
