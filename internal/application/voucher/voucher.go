// Package voucher renders booking vouchers and stores them for download.
package voucher

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/example/themepark-booking/internal/domain/booking"
	"github.com/example/themepark-booking/internal/infrastructure/voucherstore"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	TemplateDisney      = "disney"
	TemplateUnitedParks = "united_parks"
	TemplateRedeam      = "redeam"
	TemplateUniversal   = "universal"
	TemplateDefault     = "default"
)

var templates = func() map[string]*template.Template {
	out := map[string]*template.Template{}
	for _, name := range []string{TemplateDisney, TemplateUnitedParks, TemplateRedeam, TemplateUniversal, TemplateDefault} {
		out[name] = template.Must(template.ParseFS(templateFS, "templates/base.html", "templates/"+name+".html"))
	}
	return out
}()

// LinkSigner produces an opaque token naming a stored artifact.
type LinkSigner interface {
	Sign(key string, ttl time.Duration) (string, error)
}

type Generator struct {
	store     voucherstore.Store
	links     LinkSigner
	publicURL string
	ttl       time.Duration
	now       func() time.Time
}

// New builds a generator. links may be nil, in which case vouchers carry no
// download URL.
func New(store voucherstore.Store, links LinkSigner, publicURL string, expiryDays int) *Generator {
	if expiryDays <= 0 {
		expiryDays = 365
	}
	return &Generator{
		store:     store,
		links:     links,
		publicURL: strings.TrimRight(publicURL, "/"),
		ttl:       time.Duration(expiryDays) * 24 * time.Hour,
		now:       time.Now,
	}
}

type Options struct {
	// Template overrides the provider/park selection.
	Template          string
	RegenerateQR      bool
	RegenerateBarcode bool
}

// TemplateFor picks the template for a provider and park type.
func TemplateFor(p booking.Provider, park string) string {
	switch p {
	case booking.ProviderRedeam:
		switch park {
		case "disney":
			return TemplateDisney
		case "united_parks":
			return TemplateUnitedParks
		}
		return TemplateRedeam
	case booking.ProviderSmartOrder:
		return TemplateUniversal
	}
	return TemplateDefault
}

func Instructions(p booking.Provider, park string) []string {
	switch TemplateFor(p, park) {
	case TemplateDisney:
		return []string{
			"Bring this voucher and a valid photo ID to the park entrance.",
			"Exchange this voucher for your park tickets at the Will Call window.",
			"Allow extra time for ticket pickup before park opening.",
			"Keep your tickets safe as they cannot be replaced if lost.",
			"Tickets are valid for the date specified only.",
		}
	case TemplateUnitedParks:
		return []string{
			"Present this EZ-Ticket at the park entrance turnstiles.",
			"The barcode will be scanned for admission.",
			"Keep this voucher with you throughout your visit.",
			"This ticket is valid for one admission on the specified date.",
			"Contact guest services for any issues with ticket scanning.",
		}
	case TemplateUniversal:
		return []string{
			"Present this voucher at the park entrance for admission.",
			"Arrive at least 30 minutes before your scheduled time.",
			"Bring a valid photo ID matching the name on the reservation.",
			"Follow all park safety guidelines and restrictions.",
			"Contact customer service for changes or cancellations.",
		}
	}
	return []string{
		"Present this voucher at the designated location.",
		"Arrive on time for your scheduled booking.",
		"Bring valid identification if required.",
		"Follow all venue rules and guidelines.",
		"Contact customer service for assistance.",
	}
}

func validate(v booking.VoucherData) error {
	var errs []error
	if v.BookingID == "" {
		errs = append(errs, errors.New("booking id is required for voucher generation"))
	}
	if v.VoucherNumber == "" {
		errs = append(errs, errors.New("voucher number is required"))
	}
	if v.Customer.IsZero() {
		errs = append(errs, errors.New("customer information is required for voucher generation"))
	}
	return errors.Join(errs...)
}

// QRPayload is the JSON document encoded into the voucher's QR code.
func QRPayload(v booking.VoucherData) string {
	date := ""
	if v.BookingDate != nil {
		date = v.BookingDate.Format("2006-01-02")
	}
	b, _ := json.Marshal(map[string]any{
		"booking_id":     v.BookingID,
		"voucher_number": v.VoucherNumber,
		"customer_name":  v.Customer.FullName(),
		"product_name":   v.ProductName,
		"date":           date,
		"time":           v.TimeSlot,
		"quantity":       v.Quantity,
	})
	return string(b)
}

type view struct {
	Voucher     booking.VoucherData
	QRPayload   string
	Date        string
	GeneratedAt string
}

func (g *Generator) Render(v booking.VoucherData, name string) ([]byte, error) {
	t, ok := templates[name]
	if !ok {
		return nil, fmt.Errorf("voucher template not found: %s", name)
	}
	data := view{
		Voucher:     v,
		QRPayload:   QRPayload(v),
		GeneratedAt: g.now().UTC().Format(time.RFC1123),
	}
	if v.BookingDate != nil {
		data.Date = v.BookingDate.Format("Monday, January 2, 2006")
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "base", data); err != nil {
		return nil, fmt.Errorf("render voucher: %w", err)
	}
	return buf.Bytes(), nil
}

// Generate renders v, stores the document and returns a copy with the
// artifact path, download link and instructions filled in.
func (g *Generator) Generate(ctx context.Context, v booking.VoucherData, opts Options) (*booking.VoucherData, error) {
	if err := validate(v); err != nil {
		return nil, err
	}
	out := v
	if out.QRCode == "" || opts.RegenerateQR {
		out.QRCode = QRPayload(v)
	}
	if out.BarcodeData == "" || opts.RegenerateBarcode {
		out.BarcodeData = out.VoucherNumber
	}
	if len(out.Instructions) == 0 {
		out.Instructions = Instructions(out.Provider, out.ParkType)
	}
	name := opts.Template
	if name == "" {
		name = TemplateFor(out.Provider, out.ParkType)
	}
	html, err := g.Render(out, name)
	if err != nil {
		return nil, err
	}

	key := g.Key(out)
	if err := g.store.Put(ctx, key, html, "text/html; charset=utf-8"); err != nil {
		return nil, fmt.Errorf("store voucher %s: %w", key, err)
	}
	out.ArtifactPath = key
	if out.DownloadURL, err = g.Link(key); err != nil {
		return nil, err
	}

	meta := make(map[string]any, len(v.Metadata)+3)
	for k, val := range v.Metadata {
		meta[k] = val
	}
	meta["generated_at"] = g.now().UTC().Format(time.RFC3339)
	meta["template_used"] = name
	meta["expires_at"] = g.now().Add(g.ttl).UTC().Format(time.RFC3339)
	out.Metadata = meta
	return &out, nil
}

// Link signs a download URL for an already stored artifact.
func (g *Generator) Link(key string) (string, error) {
	if g.links == nil {
		return "", nil
	}
	tok, err := g.links.Sign(key, g.ttl)
	if err != nil {
		return "", fmt.Errorf("sign voucher link: %w", err)
	}
	return g.publicURL + "/vouchers/" + tok, nil
}

// Key is vouchers/<provider>/voucher-<number>-<guest>-<date>.html.
func (g *Generator) Key(v booking.VoucherData) string {
	dir := string(v.Provider)
	if dir == "" {
		dir = "default"
	}
	parts := []string{"voucher", Slug(v.VoucherNumber)}
	if s := Slug(v.Customer.FullName()); s != "" {
		parts = append(parts, s)
	}
	parts = append(parts, g.now().UTC().Format("2006-01-02"))
	return "vouchers/" + dir + "/" + strings.Join(parts, "-") + ".html"
}

// Slug folds s to lower-case ASCII words joined by single dashes.
func Slug(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(folded) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimRight(b.String(), "-")
}
