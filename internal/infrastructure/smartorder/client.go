package smartorder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/example/themepark-booking/internal/infrastructure/tokenstore"
	"github.com/example/themepark-booking/internal/internaltypes"
)

const (
	DefaultBaseURL = "https://QACorpAPI.ucdp.net"

	// tokens are cached this long before the vendor's stated expiry
	tokenSafetyMargin = 5 * time.Minute
	defaultTokenLife  = time.Hour
)

// tokenSource hands out bearer tokens, preferring the shared repository and
// falling back to a client-credentials exchange. Concurrent refreshes are
// harmless; the last writer wins.
type tokenSource struct {
	cfg       *clientcredentials.Config
	http      *http.Client
	repo      tokenstore.Repository
	key       string
	now       func() time.Time
	onRefresh func()
}

func (s *tokenSource) Token(ctx context.Context) (string, error) {
	if tok, ok, err := s.repo.Get(ctx, s.key); err == nil && ok && tok.Valid(s.now()) {
		return tok.AccessToken, nil
	}
	fetched, err := s.cfg.Token(context.WithValue(ctx, oauth2.HTTPClient, s.http))
	if err != nil {
		return "", fmt.Errorf("smartorder token: %w", err)
	}
	if s.onRefresh != nil {
		s.onRefresh()
	}
	expiry := fetched.Expiry
	if expiry.IsZero() {
		expiry = s.now().Add(defaultTokenLife)
	}
	tok := tokenstore.Token{AccessToken: fetched.AccessToken, ExpiresAt: expiry.Add(-tokenSafetyMargin)}
	_ = s.repo.Put(ctx, s.key, tok)
	return tok.AccessToken, nil
}

func (s *tokenSource) Forget(ctx context.Context) {
	_ = s.repo.Forget(ctx, s.key)
}

// Client calls SmartOrder2 endpoints on behalf of one customer. customerId is
// added to every query string (GET) or JSON body (POST).
type Client struct {
	http       *http.Client
	base       string
	customerID string
	tokens     *tokenSource
}

func newClient(h *http.Client, base, customerID string, tokens *tokenSource) *Client {
	return &Client{http: h, base: strings.TrimRight(base, "/"), customerID: customerID, tokens: tokens}
}

func (c *Client) Get(ctx context.Context, path string, params url.Values, out any) error {
	q := url.Values{}
	for k, v := range params {
		q[k] = v
	}
	q.Set("customerId", c.customerID)
	return c.do(ctx, http.MethodGet, path+"?"+q.Encode(), nil, out)
}

func (c *Client) Post(ctx context.Context, path string, body map[string]any, out any) error {
	payload := make(map[string]any, len(body)+1)
	for k, v := range body {
		payload[k] = v
	}
	payload["customerId"] = c.customerID
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, path, b, out)
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	op := method + " " + strings.SplitN(path, "?", 2)[0]
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return &internaltypes.AdapterError{Adapter: "smartorder", Op: "token", Err: err}
	}
	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+"/"+strings.TrimLeft(path, "/"), rdr)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &internaltypes.AdapterError{Adapter: "smartorder", Op: op, Err: err}
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return &internaltypes.AdapterError{Adapter: "smartorder", Op: op, Err: err}
	}
	if resp.StatusCode == http.StatusUnauthorized {
		// next call re-authenticates
		c.tokens.Forget(ctx)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := strings.TrimSpace(string(raw))
		if m := vendorMessage(raw); m != "" {
			msg = m
		}
		return &internaltypes.AdapterError{Adapter: "smartorder", Op: op, StatusCode: resp.StatusCode, Msg: msg}
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &internaltypes.AdapterError{Adapter: "smartorder", Op: op, Msg: "decode response", Err: err}
	}
	return nil
}

func vendorMessage(raw []byte) string {
	var v struct {
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &v) != nil {
		return ""
	}
	if v.Error != nil && v.Error.Message != "" {
		return v.Error.Message
	}
	return v.Message
}
