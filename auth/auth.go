// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// UserHeader carries the caller identity resolved by the upstream proxy
const UserHeader = "X-User-ID"

const maxUserIDLen = 128

var (
	ErrMissingUser = errors.New(UserHeader + " header required")
	ErrInvalidUser = errors.New("invalid user id")
)

// GenerateID creates a random UUIDv4 string for rows we own
func GenerateID() string {
	return uuid.NewString()
}

// RandomString draws n characters uniformly from alphabet using crypto/rand
func RandomString(alphabet string, n int) (string, error) {
	if alphabet == "" || n <= 0 {
		return "", fmt.Errorf("random string: empty alphabet or length %d", n)
	}
	max := big.NewInt(int64(len(alphabet)))
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to draw random index: %w", err)
		}
		b[i] = alphabet[idx.Int64()]
	}
	return string(b), nil
}

// ValidateUserID trims and checks a caller-supplied user id
func ValidateUserID(userID string) (string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", ErrMissingUser
	}
	if len(userID) > maxUserIDLen {
		return "", ErrInvalidUser
	}
	return userID, nil
}

// UserIDFromRequest extracts the caller identity from the request header.
// Identity is resolved upstream; we only check it is present and sane.
func UserIDFromRequest(r *http.Request) (string, error) {
	return ValidateUserID(r.Header.Get(UserHeader))
}
