// Package idgen generates session, report and request identifiers and the
// random material used for admin credentials.
package idgen

import (
	"crypto/rand"
	"encoding/base64"
	"math/big"

	"github.com/rs/xid"
)

// NewID returns a 20-character xid. IDs sort by creation time and are URL safe.
func NewID() string {
	return xid.New().String()
}

// NewSessionID generates a unique ID for a selection wizard session.
func NewSessionID() string {
	return NewID()
}

// NewReportID generates a unique ID for a report generation run.
func NewReportID() string {
	return NewID()
}

// NewRequestID generates a unique ID for request tracking.
func NewRequestID() string {
	return NewID()
}

// NewSecureSecret returns length URL-safe base64 characters from crypto/rand.
func NewSecureSecret(length int) string {
	byteLength := (length*3 + 3) / 4
	bytes := make([]byte, byteLength)

	if _, err := rand.Read(bytes); err != nil {
		return "please-generate-a-secure-random-secret"
	}

	encoded := base64.URLEncoding.EncodeToString(bytes)
	if len(encoded) > length {
		encoded = encoded[:length]
	}
	return encoded
}

const (
	passwordUpper   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	passwordLower   = "abcdefghijklmnopqrstuvwxyz"
	passwordDigits  = "0123456789"
	passwordSpecial = "!@$%^&*()_+-=[]{}|;:,.<>?"
	passwordLength  = 16
)

// NewSecurePassword generates a password that satisfies the admin password policy:
// at least one uppercase, lowercase, digit and special character.
func NewSecurePassword() string {
	classes := []string{passwordUpper, passwordLower, passwordDigits, passwordSpecial}
	all := passwordUpper + passwordLower + passwordDigits + passwordSpecial

	out := make([]byte, 0, passwordLength)
	for _, class := range classes {
		out = append(out, class[randIndex(len(class))])
	}
	for len(out) < passwordLength {
		out = append(out, all[randIndex(len(all))])
	}

	// Fisher-Yates so the guaranteed characters don't always lead.
	for i := len(out) - 1; i > 0; i-- {
		j := randIndex(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return string(out)
}

func randIndex(n int) int {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0
	}
	return int(v.Int64())
}
