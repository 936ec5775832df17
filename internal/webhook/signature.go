package webhook

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"
)

// verifyHMACSignature verifies an HMAC-SHA1 signature against the raw
// request body.
//
// Constant-time comparison (crypto/subtle) prevents timing attacks.
// Supported header formats:
//   - "<hex>" (plain hex, what Kommo sends in X-Signature)
//   - "sha1=<hex>"
//
// Returns nil if the signature is valid. All errors are generic to prevent
// information leakage.
func verifyHMACSignature(body []byte, signature, secret string) error {
	if secret == "" || signature == "" {
		return fmt.Errorf("webhook verification failed")
	}

	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write(body)
	expectedMAC := mac.Sum(nil)

	actualMAC, err := parseSignature(signature)
	if err != nil {
		// Generic error - don't leak format details
		return fmt.Errorf("webhook verification failed")
	}

	if subtle.ConstantTimeCompare(expectedMAC, actualMAC) != 1 {
		return fmt.Errorf("webhook verification failed")
	}

	return nil
}

// parseSignature decodes the signature header into raw bytes.
func parseSignature(signature string) ([]byte, error) {
	if strings.HasPrefix(signature, "sha1=") {
		return hex.DecodeString(strings.TrimPrefix(signature, "sha1="))
	}
	return hex.DecodeString(signature)
}

// computeExpectedSignature computes the hex HMAC-SHA1 signature for a body.
// Used by tests.
func computeExpectedSignature(body []byte, secret string) string {
	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
