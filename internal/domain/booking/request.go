package booking

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

type Address struct {
	Line1    string `json:"line1"`
	Line2    string `json:"line2"`
	City     string `json:"city"`
	State    string `json:"state"`
	Postcode string `json:"postcode"`
	Country  string `json:"country"`
}

type Customer struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Address   Address
}

func (c Customer) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

func (c Customer) IsZero() bool { return c == Customer{} }

func (c Customer) toMap() map[string]any {
	return map[string]any{
		"first_name":    c.FirstName,
		"last_name":     c.LastName,
		"email":         c.Email,
		"phone":         c.Phone,
		"address_line1": c.Address.Line1,
		"address_line2": c.Address.Line2,
		"city":          c.Address.City,
		"state":         c.Address.State,
		"postcode":      c.Address.Postcode,
		"country":       c.Address.Country,
	}
}

// Map renders c with the snake_case keys used in stored booking data.
func (c Customer) Map() map[string]any { return c.toMap() }

// CustomerFromMap is the inverse of Customer.Map.
func CustomerFromMap(m map[string]any) Customer { return customerFromMap(m) }

func customerFromMap(m map[string]any) Customer {
	return Customer{
		FirstName: str(m["first_name"]),
		LastName:  str(m["last_name"]),
		Email:     str(m["email"]),
		Phone:     str(m["phone"]),
		Address: Address{
			Line1:    str(m["address_line1"]),
			Line2:    str(m["address_line2"]),
			City:     str(m["city"]),
			State:    str(m["state"]),
			Postcode: str(m["postcode"]),
			Country:  str(m["country"]),
		},
	}
}

// BookingRequest is the provider-neutral input to CreateBooking.
type BookingRequest struct {
	ProductID       string
	RateID          string
	AvailabilityID  string
	Date            time.Time
	EndDate         *time.Time
	TimeSlot        string
	Quantity        int
	Customer        Customer
	Guests          []Customer
	Options         map[string]string
	SpecialRequests []string
	ReferenceID     string
	Metadata        map[string]string
}

func (r BookingRequest) Option(key, def string) string {
	if v, ok := r.Options[key]; ok && v != "" {
		return v
	}
	return def
}

// Validate checks the fields every vendor needs before a booking is attempted.
func (r BookingRequest) Validate() error {
	var errs []error
	if strings.TrimSpace(r.ProductID) == "" {
		errs = append(errs, errors.New("product_id is required"))
	}
	if r.Date.IsZero() {
		errs = append(errs, errors.New("date is required"))
	}
	if r.Quantity < 1 {
		errs = append(errs, fmt.Errorf("quantity must be at least 1 (got %d)", r.Quantity))
	}
	if r.EndDate != nil && r.EndDate.Before(r.Date) {
		errs = append(errs, errors.New("end_date is before date"))
	}
	return errors.Join(errs...)
}

func (r BookingRequest) IsMultiDay() bool {
	return r.EndDate != nil && !sameDay(*r.EndDate, r.Date)
}

// Duration is the inclusive number of days covered by the request.
func (r BookingRequest) Duration() int {
	if r.EndDate == nil {
		return 1
	}
	from := time.Date(r.Date.Year(), r.Date.Month(), r.Date.Day(), 0, 0, 0, 0, time.UTC)
	to := time.Date(r.EndDate.Year(), r.EndDate.Month(), r.EndDate.Day(), 0, 0, 0, 0, time.UTC)
	days := int(to.Sub(from).Hours() / 24)
	if days < 0 {
		days = -days
	}
	return days + 1
}

// ToMap renders the request in the snake_case shape used by hosts and logs.
func (r BookingRequest) ToMap() map[string]any {
	m := map[string]any{
		"product_id":       r.ProductID,
		"rate_id":          r.RateID,
		"availability_id":  r.AvailabilityID,
		"date":             r.Date.Format(dateLayout),
		"time_slot":        r.TimeSlot,
		"quantity":         r.Quantity,
		"customer_info":    r.Customer.toMap(),
		"options":          copyStrings(r.Options),
		"special_requests": append([]string(nil), r.SpecialRequests...),
		"reference_id":     r.ReferenceID,
		"metadata":         copyStrings(r.Metadata),
	}
	if r.EndDate != nil {
		m["end_date"] = r.EndDate.Format(dateLayout)
	}
	guests := make([]map[string]any, 0, len(r.Guests))
	for _, g := range r.Guests {
		guests = append(guests, g.toMap())
	}
	m["guest_info"] = guests
	return m
}

// BookingRequestFromMap is the inverse of ToMap.
func BookingRequestFromMap(m map[string]any) (BookingRequest, error) {
	var r BookingRequest
	r.ProductID = str(m["product_id"])
	if r.ProductID == "" {
		return r, fmt.Errorf("booking request: product_id is required")
	}
	d, err := time.Parse(dateLayout, str(m["date"]))
	if err != nil {
		return r, fmt.Errorf("booking request: date: %w", err)
	}
	r.Date = d
	if s := str(m["end_date"]); s != "" {
		ed, err := time.Parse(dateLayout, s)
		if err != nil {
			return r, fmt.Errorf("booking request: end_date: %w", err)
		}
		r.EndDate = &ed
	}
	r.RateID = str(m["rate_id"])
	r.AvailabilityID = str(m["availability_id"])
	r.TimeSlot = str(m["time_slot"])
	r.ReferenceID = str(m["reference_id"])
	switch q := m["quantity"].(type) {
	case int:
		r.Quantity = q
	case float64:
		r.Quantity = int(q)
	}
	if c, ok := m["customer_info"].(map[string]any); ok {
		r.Customer = customerFromMap(c)
	}
	if gs, ok := m["guest_info"].([]map[string]any); ok {
		for _, g := range gs {
			r.Guests = append(r.Guests, customerFromMap(g))
		}
	}
	r.Options = stringMap(m["options"])
	r.Metadata = stringMap(m["metadata"])
	switch sr := m["special_requests"].(type) {
	case []string:
		r.SpecialRequests = append([]string(nil), sr...)
	case []any:
		for _, v := range sr {
			r.SpecialRequests = append(r.SpecialRequests, str(v))
		}
	}
	return r, nil
}

func str(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}

func copyStrings(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func stringMap(v any) map[string]string {
	switch t := v.(type) {
	case map[string]string:
		return copyStrings(t)
	case map[string]any:
		out := make(map[string]string, len(t))
		for k, x := range t {
			out[k] = str(x)
		}
		return out
	}
	return nil
}
