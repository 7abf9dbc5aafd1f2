package model

import (
	"crypto/sha1"
	"crypto/subtle"
	"encoding/hex"
	"net/url"
	"strings"
)

// PingbackPath is the route, relative to the base url, that receives test
// completion callbacks.
const PingbackPath = "/pingback"

// PingbackToken derives the callback token from the shared secret.
func PingbackToken(secret string) string {
	sum := sha1.Sum([]byte(secret))
	return hex.EncodeToString(sum[:])
}

// AuthenticatePingback reports whether token was derived from secret. It
// fails closed when either value is empty.
func AuthenticatePingback(secret, token string) bool {
	if secret == "" || token == "" {
		return false
	}

	return subtle.ConstantTimeCompare([]byte(PingbackToken(secret)), []byte(token)) == 1
}

// PingbackURL builds the callback url handed to the test runner. The runner
// appends the test id when it calls back.
func PingbackURL(baseURL, token, profile string) string {
	q := url.Values{}
	q.Set("key", token)
	q.Set("profile", profile)

	return strings.TrimSuffix(baseURL, "/") + PingbackPath + "?" + q.Encode()
}
