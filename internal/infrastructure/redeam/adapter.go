package redeam

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/example/themepark-booking/internal/domain/booking"
	"github.com/example/themepark-booking/internal/infrastructure/adapterkit"
	"github.com/example/themepark-booking/internal/infrastructure/cache"
	"github.com/example/themepark-booking/internal/internaltypes"
)

type ParkType string

const (
	ParkDisney      ParkType = "disney"
	ParkUnitedParks ParkType = "united_parks"
)

const msgHoldExpired = "Reservation has expired"

type Settings struct {
	BaseURL            string
	APIKey             string
	APISecret          string
	SupplierID         string
	Timeout            time.Duration
	InsecureSkipVerify bool
	// Optional product used by TestConnection instead of listing suppliers.
	TestProductID   string
	ReferencePrefix string
}

// Adapter books Disney or United Parks inventory through Redeam. The park type
// only changes how supplier ids are resolved: Disney is pinned to the supplier
// given at construction, United Parks resolves it per call.
type Adapter struct {
	park   ParkType
	cfg    Settings
	client *Client
	deps   adapterkit.Deps
	log    logrus.FieldLogger
}

var (
	_ booking.Adapter      = (*Adapter)(nil)
	_ booking.HoldReleaser = (*Adapter)(nil)
)

func New(park ParkType, cfg Settings, deps adapterkit.Deps) (*Adapter, error) {
	a := &Adapter{park: park, cfg: cfg, deps: deps.WithDefaults()}
	if err := a.ValidateConfig(); err != nil {
		return nil, err
	}
	if a.cfg.ReferencePrefix == "" {
		a.cfg.ReferencePrefix = "KBUG"
	}
	a.log = a.deps.Log.WithFields(logrus.Fields{"adapter": a.Name(), "provider": string(booking.ProviderRedeam)})
	a.client = NewClient(a.deps.HTTPClient(cfg.Timeout, cfg.InsecureSkipVerify), cfg.BaseURL, cfg.APIKey, cfg.APISecret, a.Name())
	return a, nil
}

func (a *Adapter) Name() string                { return "redeam_" + string(a.park) }
func (a *Adapter) Provider() booking.Provider { return booking.ProviderRedeam }
func (a *Adapter) Park() ParkType             { return a.park }

func (a *Adapter) ValidateConfig() error {
	switch a.park {
	case ParkDisney, ParkUnitedParks:
	default:
		return &internaltypes.ConfigurationError{Adapter: "redeam", Key: "park_type", Msg: fmt.Sprintf("unknown park type %q", a.park)}
	}
	if strings.TrimSpace(a.cfg.APIKey) == "" {
		return internaltypes.MissingConfig(a.Name(), "api_key")
	}
	if strings.TrimSpace(a.cfg.APISecret) == "" {
		return internaltypes.MissingConfig(a.Name(), "api_secret")
	}
	if a.park == ParkDisney && strings.TrimSpace(a.cfg.SupplierID) == "" {
		return internaltypes.MissingConfig(a.Name(), "supplier_id")
	}
	return nil
}

func (a *Adapter) supplier() (string, error) {
	if a.cfg.SupplierID != "" {
		return a.cfg.SupplierID, nil
	}
	return "", &internaltypes.ConfigurationError{Adapter: a.Name(), Key: "supplier_id", Msg: "is required for United Parks"}
}

func productPath(sid, pid string, rest ...string) string {
	p := "suppliers/" + url.PathEscape(sid) + "/products/" + url.PathEscape(pid)
	for _, r := range rest {
		p += "/" + r
	}
	return p
}

func (a *Adapter) logOp(op string, fields logrus.Fields) {
	a.log.WithFields(fields).Info("Adapter operation: " + op)
}

func (a *Adapter) logErr(op string, err error, fields logrus.Fields) {
	a.log.WithFields(fields).WithError(err).Error("Adapter operation failed: " + op)
}

func (a *Adapter) TestConnection(ctx context.Context) bool {
	if a.cfg.TestProductID != "" {
		sid, err := a.supplier()
		if err != nil {
			a.logErr("test_connection", err, nil)
			return false
		}
		now := a.deps.Now()
		_, err = a.availabilities(ctx, sid, a.cfg.TestProductID, now, now.Add(24*time.Hour))
		if err != nil {
			a.logErr("test_connection", err, nil)
		}
		return err == nil
	}
	if _, err := a.Suppliers(ctx); err != nil {
		a.logErr("test_connection", err, nil)
		return false
	}
	return true
}

// Suppliers lists every supplier visible to the credentials.
func (a *Adapter) Suppliers(ctx context.Context) ([]string, error) {
	var out struct {
		Suppliers []supplierWire `json:"suppliers"`
	}
	if err := a.client.Get(ctx, "suppliers", nil, &out); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(out.Suppliers))
	for _, s := range out.Suppliers {
		if s.ID != "" {
			ids = append(ids, s.ID)
		}
	}
	return ids, nil
}

func (a *Adapter) catalogSuppliers(ctx context.Context) ([]string, error) {
	if a.cfg.SupplierID != "" {
		return []string{a.cfg.SupplierID}, nil
	}
	return a.Suppliers(ctx)
}

func (a *Adapter) SyncProducts(ctx context.Context) *booking.ProductSyncResult {
	start := a.deps.Now()
	a.logOp("sync_products_start", nil)

	raw, err := a.fetchCatalog(ctx, false)
	if err != nil {
		a.logErr("sync_products", err, nil)
		return booking.SyncFailure(err.Error())
	}
	var (
		products []booking.Product
		failed   int
		warnings []string
	)
	for _, p := range raw {
		if p.ID == "" || p.Name == "" {
			failed++
			warnings = append(warnings, fmt.Sprintf("product %q missing id or name", p.ID))
			a.log.WithField("product_id", p.ID).Warn("Failed to sync product")
			continue
		}
		products = append(products, a.toProduct(p))
	}
	a.deps.MarkSynced(ctx, a.Name())

	res := booking.SyncSuccess(len(raw), len(products), 0, failed, a.deps.Now().Sub(start))
	res.Warnings = warnings
	res.Products = products
	a.logOp("sync_products_complete", logrus.Fields{"synced": res.Synced, "failed": res.Failed, "duration": res.Duration.String()})
	return res
}

func (a *Adapter) fetchCatalog(ctx context.Context, useCache bool) ([]productWire, error) {
	key := "catalog_" + a.Name()
	var raw []productWire
	if useCache && cache.GetJSON(ctx, a.deps.Cache, key, &raw) {
		return raw, nil
	}
	sids, err := a.catalogSuppliers(ctx)
	if err != nil {
		return nil, err
	}
	for _, sid := range sids {
		var out struct {
			Products []productWire `json:"products"`
		}
		if err := a.client.Get(ctx, "suppliers/"+url.PathEscape(sid)+"/products", nil, &out); err != nil {
			return nil, err
		}
		for i := range out.Products {
			if out.Products[i].SupplierID == "" {
				out.Products[i].SupplierID = sid
			}
		}
		raw = append(raw, out.Products...)
	}
	_ = cache.SetJSON(ctx, a.deps.Cache, key, raw, a.deps.TTL.Products)
	return raw, nil
}

func (a *Adapter) toProduct(p productWire) booking.Product {
	now := a.deps.Now()
	prod := booking.Product{
		RemoteID:    p.ID,
		Name:        p.Name,
		Description: p.Description,
		Provider:    booking.ProviderRedeam,
		Category:    p.Category,
		Pricing:     p.Pricing,
		Options:     p.Options,
		Active:      p.Active == nil || *p.Active,
		ImageURL:    p.Image,
		Metadata: map[string]any{
			"park_type":   string(a.park),
			"supplier_id": p.SupplierID,
		},
		LastUpdated: &now,
	}
	if prod.Category == "" {
		prod.Category = "general"
	}
	if t, ok := p.Extensions["disney-productType"]; ok {
		prod.Metadata["product_type"] = t
	}
	if p.Location != nil {
		prod.Location = &booking.Location{Name: p.Location.Name, Latitude: p.Location.Latitude, Longitude: p.Location.Longitude}
	}
	return prod
}

func (a *Adapter) GetProduct(ctx context.Context, productID string) *booking.Product {
	sid, err := a.supplier()
	if err != nil {
		a.logErr("get_product", err, logrus.Fields{"product_id": productID})
		return nil
	}
	var out struct {
		Product *productWire `json:"product"`
	}
	if err := a.client.Get(ctx, productPath(sid, productID), nil, &out); err != nil {
		a.logErr("get_product", err, logrus.Fields{"product_id": productID})
		return nil
	}
	if out.Product == nil || out.Product.ID == "" {
		return nil
	}
	if out.Product.SupplierID == "" {
		out.Product.SupplierID = sid
	}
	p := a.toProduct(*out.Product)
	return &p
}

func (a *Adapter) SearchProducts(ctx context.Context, c booking.SearchCriteria) []booking.Product {
	raw, err := a.fetchCatalog(ctx, true)
	if err != nil {
		a.logErr("search_products", err, nil)
		return nil
	}
	var out []booking.Product
	q := strings.ToLower(c.Query)
	for _, r := range raw {
		if r.ID == "" {
			continue
		}
		p := a.toProduct(r)
		if q != "" && !strings.Contains(strings.ToLower(p.Name), q) && !strings.Contains(strings.ToLower(p.Description), q) {
			continue
		}
		if c.Code != "" && !strings.HasPrefix(p.RemoteID, c.Code) {
			continue
		}
		if c.Category != "" && !strings.EqualFold(p.Category, c.Category) {
			continue
		}
		if c.Active != nil && p.Active != *c.Active {
			continue
		}
		out = append(out, p)
		if c.Limit > 0 && len(out) >= c.Limit {
			break
		}
	}
	return out
}

// Rates lists the rates of a product.
func (a *Adapter) Rates(ctx context.Context, productID string) ([]booking.Rate, error) {
	sid, err := a.supplier()
	if err != nil {
		return nil, err
	}
	var out struct {
		Rates []rateWire `json:"rates"`
	}
	if err := a.client.Get(ctx, productPath(sid, productID, "rates"), nil, &out); err != nil {
		return nil, err
	}
	rates := make([]booking.Rate, 0, len(out.Rates))
	for _, r := range out.Rates {
		rates = append(rates, toRate(r, productID))
	}
	return rates, nil
}

func (a *Adapter) Rate(ctx context.Context, productID, rateID string) (booking.Rate, error) {
	sid, err := a.supplier()
	if err != nil {
		return booking.Rate{}, err
	}
	var out struct {
		Rate *rateWire `json:"rate"`
	}
	if err := a.client.Get(ctx, productPath(sid, productID, "rates", url.PathEscape(rateID)), nil, &out); err != nil {
		return booking.Rate{}, err
	}
	if out.Rate == nil {
		return booking.Rate{}, fmt.Errorf("rate %s: %w", rateID, internaltypes.ErrNotFound)
	}
	return toRate(*out.Rate, productID), nil
}

func toRate(r rateWire, productID string) booking.Rate {
	rate := booking.Rate{
		ID:                 r.ID,
		Name:               r.Name,
		Code:               r.Code,
		OptionID:           r.OptionID,
		ProductID:          r.ProductID,
		Description:        r.Description,
		ValidFrom:          r.Valid.From,
		ValidUntil:         r.Valid.Until,
		Restrictions:       r.Restrictions,
		CancellationPolicy: r.CancellationPolicy,
		Active:             r.Active == nil || *r.Active,
		Currency:           r.Currency,
		Metadata:           r.Ext,
	}
	if rate.ProductID == "" {
		rate.ProductID = productID
	}
	if rate.Currency == "" {
		rate.Currency = booking.DefaultCurrency
	}
	if r.Price.Valid {
		v := r.Price.Decimal
		rate.BasePrice = &v
	}
	if r.Total.Valid {
		v := r.Total.Decimal
		rate.Total = &v
	}
	switch d := r.Ext["disney-productDuration"].(type) {
	case float64:
		rate.ProductDuration = int(d)
	case string:
		fmt.Sscanf(d, "%d", &rate.ProductDuration)
	}
	return rate
}

// PricingSchedule returns the vendor's dated price schedule keyed by rate id.
func (a *Adapter) PricingSchedule(ctx context.Context, productID string, from, to time.Time, rateID string) (map[string]any, error) {
	sid, err := a.supplier()
	if err != nil {
		return nil, err
	}
	q := url.Values{}
	q.Set("start_date", from.Format("2006-01-02"))
	q.Set("end_date", to.Format("2006-01-02"))
	if rateID != "" {
		q.Set("rate_id", rateID)
	}
	var out map[string]any
	if err := a.client.Get(ctx, productPath(sid, productID, "pricing", "schedule"), q, &out); err != nil {
		return nil, err
	}
	if rateID != "" {
		if sub, ok := out[rateID].(map[string]any); ok {
			return sub, nil
		}
	}
	return out, nil
}

func dayBounds(d time.Time) (time.Time, time.Time) {
	start := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, d.Location())
	return start, start.Add(24*time.Hour - time.Second)
}

func (a *Adapter) availabilities(ctx context.Context, sid, productID string, from, to time.Time) (map[string]rateAvailabilityWire, error) {
	key := fmt.Sprintf("availability_%s_%s_%s_%d_%d", a.Name(), sid, productID, from.Unix(), to.Unix())
	var cached map[string]rateAvailabilityWire
	if cache.GetJSON(ctx, a.deps.Cache, key, &cached) {
		return cached, nil
	}
	q := url.Values{}
	q.Set("start", from.Format(time.RFC3339))
	q.Set("end", to.Format(time.RFC3339))
	var out availabilitiesResponse
	if err := a.client.Get(ctx, productPath(sid, productID, "availabilities"), q, &out); err != nil {
		return nil, err
	}
	_ = cache.SetJSON(ctx, a.deps.Cache, key, out.Availabilities.ByRate, a.deps.TTL.Availability)
	return out.Availabilities.ByRate, nil
}

func (a *Adapter) pricingEntries(ctx context.Context, q booking.AvailabilityQuery) ([]booking.PricingEntry, error) {
	sid, err := a.supplier()
	if err != nil {
		return nil, err
	}
	from, to := dayBounds(q.Date)
	byRate, err := a.availabilities(ctx, sid, q.ProductID, from, to)
	if err != nil {
		return nil, err
	}
	var entries []booking.PricingEntry
	for rateID, rd := range byRate {
		if q.RateID != "" && rateID != q.RateID {
			continue
		}
		for _, av := range rd.Availability {
			price := rd.Price
			if av.Price.Valid {
				price = av.Price
			}
			amount := decimal.Zero
			if price.Valid {
				amount = price.Decimal
			}
			capacity := av.Capacity
			if av.Available != nil {
				capacity = *av.Available
			}
			entries = append(entries, booking.PricingEntry{
				RateID:         rateID,
				AvailabilityID: av.ID,
				Price:          booking.NewMoney(amount, rd.Currency),
				Availability:   capacity,
				Start:          av.Start,
			})
		}
	}
	return entries, nil
}

func (a *Adapter) GetAvailableTimeSlots(ctx context.Context, q booking.AvailabilityQuery) ([]booking.TimeSlot, error) {
	entries, err := a.pricingEntries(ctx, q)
	if err != nil {
		a.logErr("get_available_time_slots", err, logrus.Fields{"product_id": q.ProductID, "date": q.Date.Format("2006-01-02")})
		return nil, fmt.Errorf("failed to get time slots: %w", err)
	}
	return booking.SlotsOn(q, entries), nil
}

func (a *Adapter) CheckAvailability(ctx context.Context, q booking.AvailabilityQuery) bool {
	slots, err := a.GetAvailableTimeSlots(ctx, q)
	if err != nil {
		return false
	}
	_, ok := booking.MatchSlot(q, slots)
	return ok
}

func (a *Adapter) GetPricing(ctx context.Context, q booking.AvailabilityQuery) ([]booking.PricingEntry, error) {
	sid, _ := a.supplier()
	key := fmt.Sprintf("pricing_%s_%s_%s_%s_%s", a.Name(), sid, q.ProductID, q.RateID, q.Date.Format("2006-01-02"))
	var cached []booking.PricingEntry
	if cache.GetJSON(ctx, a.deps.Cache, key, &cached) {
		return cached, nil
	}
	entries, err := a.pricingEntries(ctx, q)
	if err != nil {
		a.logErr("get_pricing", err, logrus.Fields{"product_id": q.ProductID, "date": q.Date.Format("2006-01-02")})
		return nil, fmt.Errorf("failed to get pricing: %w", err)
	}
	_ = cache.SetJSON(ctx, a.deps.Cache, key, entries, a.deps.TTL.Pricing)
	return entries, nil
}

func (a *Adapter) holdItems(req booking.BookingRequest) []holdItem {
	at := req.Date
	if req.TimeSlot != "" {
		if t, err := time.ParseInLocation("15:04", req.TimeSlot, req.Date.Location()); err == nil {
			at = time.Date(req.Date.Year(), req.Date.Month(), req.Date.Day(), t.Hour(), t.Minute(), 0, 0, req.Date.Location())
		}
	}
	qty := req.Quantity
	if qty < 1 {
		qty = 1
	}
	items := make([]holdItem, 0, qty)
	for i := 0; i < qty; i++ {
		items = append(items, holdItem{
			ProductID:      req.ProductID,
			RateID:         req.RateID,
			AvailabilityID: req.AvailabilityID,
			At:             at.UTC().Format(time.RFC3339),
			TravelerType:   req.Option("age_group", "adult"),
			Ext:            req.Options,
		})
	}
	return items
}

// CreateBooking places a hold. The hold must be confirmed before it expires.
func (a *Adapter) CreateBooking(ctx context.Context, req booking.BookingRequest) *booking.BookingResponse {
	fields := logrus.Fields{"product_id": req.ProductID, "date": req.Date.Format("2006-01-02")}
	if req.ProductID == "" {
		return booking.Error("product_id is required", internaltypes.CodeVendor, nil)
	}
	var body holdRequest
	body.Hold.Items = a.holdItems(req)

	var out holdResponse
	if err := a.client.Post(ctx, "holds", body, &out); err != nil {
		a.logErr("create_booking", err, fields)
		return booking.Error(err.Error(), internaltypes.ErrorCode(err), nil)
	}
	if out.Hold.ID == "" {
		err := &internaltypes.BookingError{Adapter: a.Name(), Code: internaltypes.CodeVendor, Msg: "hold response missing id"}
		a.logErr("create_booking", err, fields)
		return booking.Error(err.Error(), err.Code, nil)
	}
	d := req.Date
	meta := map[string]any{"park_type": string(a.park)}
	if out.Hold.Expires != nil {
		meta["hold_expires_at"] = out.Hold.Expires.UTC().Format(time.RFC3339)
	}
	a.logOp("create_booking", logrus.Fields{"hold_id": out.Hold.ID})
	return booking.Success(booking.BookingResponse{
		ReservationID: out.Hold.ID,
		HoldID:        out.Hold.ID,
		Status:        booking.StatusPending,
		BookingDate:   &d,
		ExpiresAt:     out.Hold.Expires,
		TimeSlot:      req.TimeSlot,
		Quantity:      req.Quantity,
		Customer:      customerMap(req.Customer),
		Provider:      booking.ProviderRedeam,
		Metadata:      meta,
	})
}

func customerMap(c booking.Customer) map[string]any {
	if c.IsZero() {
		return nil
	}
	return map[string]any{
		"first_name": c.FirstName,
		"last_name":  c.LastName,
		"email":      c.Email,
		"phone":      c.Phone,
	}
}

// verifyHold reports whether holdID still exists with an expiry in the future.
func (a *Adapter) verifyHold(ctx context.Context, holdID string) (bool, error) {
	var out holdResponse
	if err := a.client.Get(ctx, "holds/"+url.PathEscape(holdID), nil, &out); err != nil {
		var ae *internaltypes.AdapterError
		if errors.As(err, &ae) && ae.StatusCode >= 400 && ae.StatusCode < 500 {
			return false, nil
		}
		return false, err
	}
	return out.Hold.Expires != nil && out.Hold.Expires.After(a.deps.Now()), nil
}

// ConfirmBooking converts a live hold into a booking. An expired or unknown
// hold is rejected without calling the bookings endpoint.
func (a *Adapter) ConfirmBooking(ctx context.Context, reservationID string, payment booking.PaymentData) *booking.BookingResponse {
	fields := logrus.Fields{"reservation_id": reservationID}
	live, err := a.verifyHold(ctx, reservationID)
	if err != nil {
		a.logErr("confirm_booking", err, fields)
		return booking.Error(err.Error(), internaltypes.ErrorCode(err), nil)
	}
	if !live {
		be := &internaltypes.BookingError{Adapter: a.Name(), Code: internaltypes.CodeHoldExpired, Msg: msgHoldExpired}
		a.logErr("confirm_booking", be, fields)
		return booking.Error(msgHoldExpired, be.Code, map[string]any{"reservation_id": reservationID})
	}

	var body bookingRequest
	body.Booking.HoldID = reservationID
	body.Booking.Reference = payment.BookingReference
	if body.Booking.Reference == "" {
		body.Booking.Reference = a.cfg.ReferencePrefix + "-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:13])
	}
	body.Booking.Customer = toCustomerWire(payment.Customer)
	body.Booking.Ext = payment.Ext

	var out bookingResponse
	if err := a.client.Post(ctx, "bookings", body, &out); err != nil {
		a.logErr("confirm_booking", err, fields)
		return booking.Error(err.Error(), internaltypes.ErrorCode(err), nil)
	}
	id, _ := out.Booking["id"].(string)
	if id == "" {
		err := &internaltypes.BookingError{Adapter: a.Name(), Code: internaltypes.CodeVendor, Msg: "booking response missing id"}
		a.logErr("confirm_booking", err, fields)
		return booking.Error(err.Error(), err.Code, nil)
	}
	a.logOp("confirm_booking", logrus.Fields{"reservation_id": reservationID, "booking_id": id})
	return booking.Success(booking.BookingResponse{
		BookingID:         id,
		ReservationID:     reservationID,
		HoldID:            reservationID,
		Status:            booking.StatusConfirmed,
		SupplierReference: supplierReference(out.Booking),
		Customer:          asMap(out.Booking["customer"]),
		Timeline:          asSlice(out.Booking["timeline"]),
		Provider:          booking.ProviderRedeam,
		Raw:               out.Booking,
		Metadata: map[string]any{
			"booking_details": out.Booking,
			"park_type":       string(a.park),
			"reference":       body.Booking.Reference,
		},
	})
}

func toCustomerWire(c booking.Customer) customerWire {
	country := c.Address.Country
	if country == "" {
		country = "US"
	}
	return customerWire{
		FirstName: c.FirstName,
		LastName:  c.LastName,
		Email:     c.Email,
		Phone:     c.Phone,
		Address: addressWire{
			Line1:    c.Address.Line1,
			Line2:    c.Address.Line2,
			City:     c.Address.City,
			State:    c.Address.State,
			Postcode: c.Address.Postcode,
			Country:  country,
		},
	}
}

func (a *Adapter) CancelBooking(ctx context.Context, bookingID, reason string) *booking.BookingResponse {
	fields := logrus.Fields{"booking_id": bookingID, "reason": reason}
	var out map[string]any
	if err := a.client.Put(ctx, "bookings/cancel/"+url.PathEscape(bookingID), map[string]any{}, &out); err != nil {
		a.logErr("cancel_booking", err, fields)
		return booking.Error(err.Error(), internaltypes.ErrorCode(err), nil)
	}
	now := a.deps.Now()
	a.logOp("cancel_booking", fields)
	return booking.Cancelled(bookingID, booking.ProviderRedeam, &booking.CancellationInfo{Reason: reason, CancelledAt: &now}, out)
}

// ReleaseHold drops a hold ahead of its expiry.
func (a *Adapter) ReleaseHold(ctx context.Context, holdID string) error {
	if err := a.client.Delete(ctx, "holds/"+url.PathEscape(holdID), nil); err != nil {
		a.logErr("release_hold", err, logrus.Fields{"hold_id": holdID})
		return err
	}
	a.logOp("release_hold", logrus.Fields{"hold_id": holdID})
	return nil
}

func (a *Adapter) GetBooking(ctx context.Context, bookingID string) *booking.BookingResponse {
	var out bookingResponse
	if err := a.client.Get(ctx, "bookings/"+url.PathEscape(bookingID), nil, &out); err != nil {
		a.logErr("get_booking", err, logrus.Fields{"booking_id": bookingID})
		return nil
	}
	if len(out.Booking) == 0 {
		return nil
	}
	status := booking.StatusConfirmed
	if s, _ := out.Booking["status"].(string); strings.HasPrefix(strings.ToLower(s), "cancel") {
		status = booking.StatusCancelled
	}
	resp := booking.BookingResponse{
		BookingID:         bookingID,
		Status:            status,
		SupplierReference: supplierReference(out.Booking),
		Customer:          asMap(out.Booking["customer"]),
		Timeline:          asSlice(out.Booking["timeline"]),
		Provider:          booking.ProviderRedeam,
		Raw:               out.Booking,
		Metadata: map[string]any{
			"booking_details": out.Booking,
			"park_type":       string(a.park),
		},
	}
	if items := asSlice(out.Booking["items"]); len(items) > 0 {
		resp.Quantity = len(items)
		if first := asMap(items[0]); first != nil {
			if at, _ := first["at"].(string); at != "" {
				if t, err := time.Parse(time.RFC3339, at); err == nil {
					resp.BookingDate = &t
					resp.TimeSlot = t.Format("15:04")
				}
			}
			if pid, _ := first["productId"].(string); pid != "" {
				resp.ProductInfo = map[string]any{"product_id": pid}
			}
		}
	}
	resp.Success = true
	return &resp
}

func (a *Adapter) GenerateVoucher(ctx context.Context, bookingID string) (*booking.VoucherData, error) {
	b := a.GetBooking(ctx, bookingID)
	if b == nil {
		err := &internaltypes.AdapterError{Adapter: a.Name(), Op: "generate_voucher", Msg: "booking not found: " + bookingID}
		a.logErr("generate_voucher", err, logrus.Fields{"booking_id": bookingID})
		return nil, fmt.Errorf("failed to generate voucher: %w", err)
	}
	now := a.deps.Now()
	v := &booking.VoucherData{
		BookingID:     bookingID,
		VoucherNumber: booking.NewVoucherNumber("VCH", bookingID),
		QRCode:        "QR-" + bookingID,
		BarcodeData:   "BC-" + bookingID,
		Customer:      customerFromMap(b.Customer),
		ProductInfo:   b.ProductInfo,
		BookingDate:   b.BookingDate,
		TimeSlot:      b.TimeSlot,
		Quantity:      b.Quantity,
		Provider:      booking.ProviderRedeam,
		ParkType:      string(a.park),
		Metadata: map[string]any{
			"park_type":          string(a.park),
			"generated_at":       now.UTC().Format(time.RFC3339),
			"supplier_reference": b.SupplierReference,
		},
	}
	return v, nil
}

func (a *Adapter) LastSync(ctx context.Context) (time.Time, bool) {
	return a.deps.LastSync(ctx, a.Name())
}

func supplierReference(b map[string]any) string {
	ext := asMap(b["ext"])
	sup := asMap(ext["supplier"])
	s, _ := sup["reference"].(string)
	return s
}

func customerFromMap(m map[string]any) booking.Customer {
	get := func(keys ...string) string {
		for _, k := range keys {
			if s, ok := m[k].(string); ok && s != "" {
				return s
			}
		}
		return ""
	}
	return booking.Customer{
		FirstName: get("firstName", "first_name"),
		LastName:  get("lastName", "last_name"),
		Email:     get("email"),
		Phone:     get("phone"),
	}
}

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func asSlice(v any) []any {
	s, _ := v.([]any)
	return s
}
