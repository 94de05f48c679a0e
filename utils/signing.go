package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strconv"
	"strings"
)

// EmptyBodyHash is the hex SHA256 of zero bytes.
const EmptyBodyHash = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"

// BuildStringToSign joins the canonical parts of a signed message:
// KIND\nRESOURCE\nUNIX_SECONDS\nBODY_SHA256.
func BuildStringToSign(kind, resource string, timestamp int64, bodyHash string) string {
	return strings.Join([]string{kind, resource, strconv.FormatInt(timestamp, 10), bodyHash}, "\n")
}

// ComputeHMACSHA256 returns the hex HMAC of message under secret.
func ComputeHMACSHA256(secret, message string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}

// SecureCompare compares in constant time. Use it for signatures and
// security codes.
func SecureCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func HashBodySHA256(body []byte) string {
	if len(body) == 0 {
		return EmptyBodyHash
	}
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

func Abs(x int64) int64 {
	if x < 0 {
		return -x
	}
	return x
}
