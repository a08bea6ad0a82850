package tokenstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/example/themepark-booking/internal/infrastructure/cache"
	"github.com/example/themepark-booking/internal/infrastructure/crypto"
)

type Token struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Valid reports whether the token can still be used at now.
func (t Token) Valid(now time.Time) bool {
	return t.AccessToken != "" && now.Before(t.ExpiresAt)
}

// Repository maps a provider key to its current access token.
type Repository interface {
	Get(ctx context.Context, key string) (Token, bool, error)
	Put(ctx context.Context, key string, tok Token) error
	Forget(ctx context.Context, key string) error
}

// Key derives the cache key for a client/customer pair so credentials never
// appear in the key itself.
func Key(provider, clientID, customerID string) string {
	sum := sha256.Sum256([]byte(clientID + customerID))
	return provider + "_token_" + hex.EncodeToString(sum[:16])
}

// Cached stores tokens in a cache.Store, sealing them when an AEAD is set.
type Cached struct {
	store cache.Store
	aead  *crypto.AEAD
	now   func() time.Time
}

func NewCached(store cache.Store, aead *crypto.AEAD) *Cached {
	return &Cached{store: store, aead: aead, now: time.Now}
}

func (c *Cached) Get(ctx context.Context, key string) (Token, bool, error) {
	b, ok, err := c.store.Get(ctx, key)
	if err != nil || !ok {
		return Token{}, false, err
	}
	if c.aead != nil {
		pt, err := c.aead.DecryptString(string(b))
		if err != nil {
			// unreadable entries are treated as a miss and replaced on refresh
			return Token{}, false, nil
		}
		b = []byte(pt)
	}
	var tok Token
	if err := json.Unmarshal(b, &tok); err != nil {
		return Token{}, false, nil
	}
	return tok, true, nil
}

func (c *Cached) Put(ctx context.Context, key string, tok Token) error {
	ttl := tok.ExpiresAt.Sub(c.now())
	if ttl <= 0 {
		return nil
	}
	b, err := json.Marshal(tok)
	if err != nil {
		return err
	}
	if c.aead != nil {
		s, err := c.aead.EncryptToString(string(b))
		if err != nil {
			return fmt.Errorf("seal token: %w", err)
		}
		b = []byte(s)
	}
	return c.store.Set(ctx, key, b, ttl)
}

func (c *Cached) Forget(ctx context.Context, key string) error {
	return c.store.Delete(ctx, key)
}
