package utils

import (
	"crypto/rand"
	"encoding/base64"
	"time"
)

// RandString returns a URL-safe token built from n random bytes.
func RandString(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func NowUTC() time.Time {
	return time.Now().UTC()
}
