package smartorder

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// looseString accepts JSON strings and numbers; SmartOrder is inconsistent
// about ids.
type looseString string

func (s *looseString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*s = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = looseString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*s = looseString(n.String())
	return nil
}

type catalogItem struct {
	ID             looseString         `json:"id"`
	PLU            looseString         `json:"plu"`
	Name           string              `json:"name"`
	Title          string              `json:"title"`
	Description    string              `json:"description"`
	Category       string              `json:"category"`
	Price          decimal.NullDecimal `json:"price"`
	SalesProgramID looseString         `json:"salesProgramId"`
	EventType      string              `json:"eventType"`
	Active         *bool               `json:"active"`
	Image          string              `json:"image"`
}

func (c catalogItem) remoteID() string {
	if c.PLU != "" {
		return string(c.PLU)
	}
	return string(c.ID)
}

func (c catalogItem) name() string {
	if c.Name != "" {
		return c.Name
	}
	return c.Title
}

type eventResult struct {
	ID                looseString         `json:"id"`
	StartTime         string              `json:"startTime"`
	CapacityAvailable int                 `json:"capacityAvailable"`
	Price             decimal.NullDecimal `json:"price"`
}

var eventTimeLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
}

// start parses StartTime. Offset-less values are read in loc. ok is false
// when the vendor sent nothing usable.
func (e eventResult) start(loc *time.Location) (time.Time, bool) {
	v := strings.TrimSpace(e.StartTime)
	if v == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t.In(loc), true
	}
	for _, layout := range eventTimeLayouts {
		if t, err := time.ParseInLocation(layout, v, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

type findEventsResponse struct {
	Success      bool          `json:"success"`
	EventResults []eventResult `json:"eventResults"`
}

type canCancelResponse struct {
	CanCancel bool   `json:"CanCancel"`
	Reason    string `json:"Reason"`
}
