package web

import (
	"errors"
	"time"

	"github.com/gorilla/securecookie"
)

const linkName = "themepark_voucher"

var ErrLinkExpired = errors.New("voucher link expired")

// LinkSigner issues tamper-proof voucher download tokens. Tokens carry the
// storage key and their own expiry.
type LinkSigner struct {
	sc  *securecookie.SecureCookie
	now func() time.Time
}

// NewLinkSigner uses the given keys; a nil hash key falls back to a random one,
// so links stop verifying after a restart.
func NewLinkSigner(hashKey, blockKey []byte) *LinkSigner {
	if len(hashKey) == 0 {
		hashKey = securecookie.GenerateRandomKey(32)
	}
	if len(blockKey) == 0 {
		blockKey = nil
	}
	sc := securecookie.New(hashKey, blockKey)
	sc.MaxAge(0)
	return &LinkSigner{sc: sc, now: time.Now}
}

func (l *LinkSigner) Sign(key string, ttl time.Duration) (string, error) {
	value := map[string]string{
		"k":   key,
		"exp": l.now().Add(ttl).UTC().Format(time.RFC3339),
	}
	return l.sc.Encode(linkName, value)
}

// Verify returns the storage key named by token.
func (l *LinkSigner) Verify(token string) (string, error) {
	value := map[string]string{}
	if err := l.sc.Decode(linkName, token, &value); err != nil {
		return "", err
	}
	exp, err := time.Parse(time.RFC3339, value["exp"])
	if err != nil {
		return "", err
	}
	if !l.now().Before(exp) {
		return "", ErrLinkExpired
	}
	if value["k"] == "" {
		return "", errors.New("voucher link has no key")
	}
	return value["k"], nil
}
