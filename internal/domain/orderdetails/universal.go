package orderdetails

// Universal is one SmartOrder (Galaxy) order attached to a host order.
type Universal struct {
	ID                 int64
	OrderID            int64
	GalaxyOrderID      string
	ExternalOrderID    string
	BookingData        map[string]any
	Voucher            string
	ConfirmationNumber string
	Status             Status
	SupplierReference  string
	Audit
}

type Ticket struct {
	TicketID    string `json:"ticket_id"`
	Barcode     string `json:"barcode"`
	ProductName string `json:"product_name"`
	GuestName   string `json:"guest_name"`
	VisitDate   string `json:"visit_date"`
	Status      string `json:"status"`
}

func (u Universal) createdTickets() []any {
	ts, _ := u.BookingData["createdTicketResponses"].([]any)
	return ts
}

func (u Universal) HasCreatedTicketResponses() bool { return len(u.createdTickets()) > 0 }

func (u Universal) TicketCount() int { return len(u.createdTickets()) }

func (u Universal) Tickets() []Ticket {
	raw := u.createdTickets()
	out := make([]Ticket, 0, len(raw))
	for _, r := range raw {
		m, ok := r.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, Ticket{
			TicketID:    stringAt(m, "ticketId"),
			Barcode:     stringAt(m, "barcode"),
			ProductName: stringAt(m, "productName"),
			GuestName:   stringAt(m, "guestName"),
			VisitDate:   stringAt(m, "visitDate"),
			Status:      stringAt(m, "status"),
		})
	}
	return out
}

func (u Universal) BookingStatus() string {
	if s := stringAt(u.BookingData, "status"); s != "" {
		return s
	}
	if s := stringAt(u.BookingData, "orderStatus"); s != "" {
		return s
	}
	return string(u.Status)
}

func (u Universal) IsConfirmed() bool { return statusIn(u.BookingStatus(), universalConfirmedStatuses) }
func (u Universal) IsCancelled() bool { return statusIn(u.BookingStatus(), universalCancelledStatuses) }
func (u Universal) IsPending() bool   { return statusIn(u.BookingStatus(), universalPendingStatuses) }

func (u Universal) VoucherURL(root string) string { return voucherURL(u.Voucher, root) }

type GalaxyOrder struct {
	GalaxyOrderID      string `json:"galaxy_order_id"`
	ExternalOrderID    string `json:"external_order_id"`
	Status             string `json:"status"`
	ConfirmationNumber string `json:"confirmation_number"`
	SupplierReference  string `json:"supplier_reference"`
	TicketCount        int    `json:"ticket_count"`
	VoucherURL         string `json:"voucher_url,omitempty"`
	TicketsCreated     bool   `json:"tickets_created"`
}

func (u Universal) GalaxyOrderDetails() (GalaxyOrder, bool) {
	if len(u.BookingData) == 0 {
		return GalaxyOrder{}, false
	}
	return GalaxyOrder{
		GalaxyOrderID:      u.GalaxyOrderID,
		ExternalOrderID:    u.ExternalOrderID,
		Status:             u.BookingStatus(),
		ConfirmationNumber: u.ConfirmationNumber,
		SupplierReference:  u.SupplierReference,
		TicketCount:        u.TicketCount(),
	}, true
}

func (u Universal) ConfirmationDetails(voucherRoot string) GalaxyOrder {
	return GalaxyOrder{
		GalaxyOrderID:      u.GalaxyOrderID,
		ExternalOrderID:    u.ExternalOrderID,
		ConfirmationNumber: u.ConfirmationNumber,
		Status:             u.BookingStatus(),
		VoucherURL:         u.VoucherURL(voucherRoot),
		TicketsCreated:     u.HasCreatedTicketResponses(),
		TicketCount:        u.TicketCount(),
	}
}
