package redeam

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/example/themepark-booking/internal/internaltypes"
)

const DefaultBaseURL = "https://booking.redeam.io/v1.2"

// Client speaks the Redeam booking API: JSON over HTTPS with key/secret headers.
type Client struct {
	http   *http.Client
	base   string
	key    string
	secret string
	name   string
}

func NewClient(h *http.Client, base, key, secret, name string) *Client {
	if base == "" {
		base = DefaultBaseURL
	}
	return &Client{http: h, base: strings.TrimRight(base, "/"), key: key, secret: secret, name: name}
}

type vendorError struct {
	Error *struct {
		Message string `json:"message"`
		Code    any    `json:"code"`
	} `json:"error"`
}

func (c *Client) Get(ctx context.Context, path string, q url.Values, out any) error {
	return c.do(ctx, http.MethodGet, path, q, nil, out)
}

func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, nil, body, out)
}

func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPut, path, nil, body, out)
}

func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil, out)
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values, body, out any) error {
	u := c.base + "/" + strings.TrimLeft(path, "/")
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rdr)
	if err != nil {
		return err
	}
	req.Header.Set("X-API-Key", c.key)
	req.Header.Set("X-API-Secret", c.secret)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &internaltypes.AdapterError{Adapter: c.name, Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return &internaltypes.AdapterError{Adapter: c.name, Op: method + " " + path, Err: err}
	}

	var ve vendorError
	_ = json.Unmarshal(raw, &ve)
	if resp.StatusCode < 200 || resp.StatusCode > 299 || ve.Error != nil {
		ae := &internaltypes.AdapterError{
			Adapter:    c.name,
			Op:         method + " " + path,
			StatusCode: resp.StatusCode,
			Msg:        strings.TrimSpace(string(raw)),
		}
		if ve.Error != nil {
			ae.Msg = ve.Error.Message
			if ve.Error.Code != nil {
				ae.Code = fmt.Sprint(ve.Error.Code)
			}
		}
		if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
			ae.StatusCode = 0
		}
		return ae
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &internaltypes.AdapterError{Adapter: c.name, Op: method + " " + path, Msg: "decode response", Err: err}
	}
	return nil
}
