package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"regexp"
	"strings"
)

var signaturePrefixRegex = regexp.MustCompile(`(?i)^(sha256=|sha1=)`)

// SignatureService verifies the HMAC-SHA256 signature the upstream platform
// attaches to webhook deliveries. The MAC is computed over the exact raw body
// bytes (prefixed with "timestamp." when a timestamp header is present) and
// may arrive hex- or base64-encoded, optionally with a "sha256=" prefix.
type SignatureService struct {
	secret []byte
}

func NewSignatureService(secret string) *SignatureService {
	return &SignatureService{secret: []byte(secret)}
}

// Verify reports whether signature authenticates rawBody. Fails closed: an
// unconfigured or empty secret rejects every request. Comparison is constant
// time in the MAC bytes.
func (ss *SignatureService) Verify(rawBody []byte, signature, timestamp string) bool {
	if len(ss.secret) == 0 {
		return false
	}
	signature = strings.TrimSpace(signature)
	if signature == "" {
		return false
	}
	signature = signaturePrefixRegex.ReplaceAllString(signature, "")

	payload := rawBody
	if timestamp != "" {
		payload = append([]byte(timestamp+"."), rawBody...)
	}

	mac := hmac.New(sha256.New, ss.secret)
	mac.Write(payload)
	expected := mac.Sum(nil)

	if decoded, err := hex.DecodeString(signature); err == nil {
		if hmac.Equal(decoded, expected) {
			return true
		}
	}
	if decoded, err := base64.StdEncoding.DecodeString(signature); err == nil {
		if hmac.Equal(decoded, expected) {
			return true
		}
	}
	return false
}
