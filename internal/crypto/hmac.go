// Package crypto signs outbound requests to the payout execution service.
package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"
	"time"
)

// RequestSigner holds the shared secret for HMAC-authenticated requests
// against the payout executor API.
type RequestSigner struct {
	Key    string // API key identifier
	Secret string // shared secret
}

// Headers returns the HTTP headers for a signed request. The signature is
// HMAC-SHA256(secret, timestamp+method+path+body) encoded as base64.
//
// Returned header keys:
//   - X-LL-Api-Key
//   - X-LL-Timestamp
//   - X-LL-Signature
func (s *RequestSigner) Headers(method, path, body string) map[string]string {
	return s.HeadersAt(method, path, body, time.Now().Unix())
}

// HeadersAt is like Headers but lets the caller supply the Unix timestamp
// (useful for deterministic testing).
func (s *RequestSigner) HeadersAt(method, path, body string, unixTS int64) map[string]string {
	ts := strconv.FormatInt(unixTS, 10)

	message := ts + method + path + body
	sig := hmacSHA256Base64([]byte(s.Secret), message)

	return map[string]string{
		"X-LL-Api-Key":   s.Key,
		"X-LL-Timestamp": ts,
		"X-LL-Signature": sig,
	}
}

// Verify checks a signature produced by HeadersAt against the same message
// material. Timestamps older than maxAge are rejected.
func (s *RequestSigner) Verify(method, path, body, timestamp, signature string, maxAge time.Duration) bool {
	unixTS, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return false
	}
	if time.Since(time.Unix(unixTS, 0)) > maxAge {
		return false
	}

	message := timestamp + method + path + body
	expected := hmacSHA256Base64([]byte(s.Secret), message)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// hmacSHA256Base64 computes HMAC-SHA256 of message using key and returns the
// result as a base64 standard-encoded string.
func hmacSHA256Base64(key []byte, message string) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(message))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// String returns a redacted representation suitable for logging.
func (s *RequestSigner) String() string {
	redact := func(v string) string {
		if len(v) <= 4 {
			return "****"
		}
		return v[:4] + "****"
	}
	return fmt.Sprintf("RequestSigner{key=%s, secret=%s}", redact(s.Key), redact(s.Secret))
}
