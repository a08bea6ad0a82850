package booking

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const DefaultCurrency = "USD"

type Money struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

func NewMoney(amount decimal.Decimal, currency string) Money {
	if currency == "" {
		currency = DefaultCurrency
	}
	return Money{Amount: amount, Currency: currency}
}

func (m Money) String() string {
	return m.Currency + " " + m.Amount.StringFixed(2)
}

// Charge is a single tax, fee or discount line.
type Charge struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

func sumCharges(cs []Charge) decimal.Decimal {
	total := decimal.Zero
	for _, c := range cs {
		total = total.Add(c.Amount)
	}
	return total
}

// Price is a dated, optionally slotted price point for a rate.
type Price struct {
	ID        string
	RateID    string
	ProductID string
	Date      *time.Time
	TimeSlot  string

	BasePrice  decimal.Decimal
	TotalPrice decimal.Decimal
	Taxes      []Charge
	Fees       []Charge
	Discounts  []Charge
	Currency   string

	Capacity    *int
	Available   *int
	IsAvailable bool
	PriceType   string
	AgeGroups   map[string]decimal.Decimal
	Metadata    map[string]any
}

// PriceFromAvailability builds a Price from a single vendor availability
// entry (id, start, capacity, optional available).
func PriceFromAvailability(id, rateID string, start time.Time, capacity int, available *int) Price {
	p := Price{
		ID:       id,
		RateID:   rateID,
		Currency: DefaultCurrency,
		Capacity: &capacity,
	}
	if !start.IsZero() {
		d := start
		p.Date = &d
		p.TimeSlot = start.Format("15:04")
	}
	if available != nil {
		p.Available = available
	} else {
		c := capacity
		p.Available = &c
	}
	p.IsAvailable = *p.Available > 0
	return p
}

func (p Price) TaxAmount() decimal.Decimal      { return sumCharges(p.Taxes) }
func (p Price) FeeAmount() decimal.Decimal      { return sumCharges(p.Fees) }
func (p Price) DiscountAmount() decimal.Decimal { return sumCharges(p.Discounts) }

func (p Price) IsAvailableForQuantity(qty int) bool {
	if !p.IsAvailable {
		return false
	}
	if p.Available != nil {
		return *p.Available >= qty
	}
	if p.Capacity != nil {
		return *p.Capacity >= qty
	}
	return true
}

func (p Price) RemainingCapacity() *int {
	if p.Available != nil {
		return p.Available
	}
	return p.Capacity
}

func (p Price) IsForDate(d time.Time) bool {
	return p.Date != nil && sameDay(*p.Date, d)
}

type PriceBreakdown struct {
	BasePrice      decimal.Decimal
	TaxAmount      decimal.Decimal
	FeeAmount      decimal.Decimal
	DiscountAmount decimal.Decimal
	TotalPrice     decimal.Decimal
	Currency       string
}

func (p Price) Breakdown() PriceBreakdown {
	return PriceBreakdown{
		BasePrice:      p.BasePrice,
		TaxAmount:      p.TaxAmount(),
		FeeAmount:      p.FeeAmount(),
		DiscountAmount: p.DiscountAmount(),
		TotalPrice:     p.TotalPrice,
		Currency:       p.Currency,
	}
}

func (p Price) Formatted(withCurrency bool) string {
	s := p.TotalPrice.StringFixed(2)
	if withCurrency {
		return fmt.Sprintf("%s %s", p.Currency, s)
	}
	return s
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
